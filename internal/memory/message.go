package memory

import (
	"context"
	"errors"
)

// Message is what the memory layer needs from a chat-platform message.
type Message interface {
	AuthorID() string
	AuthorName() string
	// GuildID is empty for direct messages.
	GuildID() string
	ChannelID() string
	IsThread() bool
	Content() string
	// ReferenceID is the id of the message this one replies to, or "".
	ReferenceID() string
	FetchReference(ctx context.Context) (Message, error)
}

// ErrNoReference is returned by FetchReference on a message that is not a reply.
var ErrNoReference = errors.New("message has no reference")

// StaticMessage is an in-memory Message.
type StaticMessage struct {
	Author   string
	Username string
	Guild    string
	Channel  string
	Thread   bool
	Text     string

	RefID  string
	Ref    *StaticMessage
	RefErr error
}

func (m *StaticMessage) AuthorID() string    { return m.Author }
func (m *StaticMessage) AuthorName() string  { return m.Username }
func (m *StaticMessage) GuildID() string     { return m.Guild }
func (m *StaticMessage) ChannelID() string   { return m.Channel }
func (m *StaticMessage) IsThread() bool      { return m.Thread }
func (m *StaticMessage) Content() string     { return m.Text }
func (m *StaticMessage) ReferenceID() string { return m.RefID }

func (m *StaticMessage) FetchReference(ctx context.Context) (Message, error) {
	if m.RefErr != nil {
		return nil, m.RefErr
	}
	if m.Ref == nil {
		return nil, ErrNoReference
	}
	return m.Ref, nil
}
