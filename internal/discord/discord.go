// Package discord adapts Discord gateway messages to the memory layer's
// message contract, resolving replies and thread channels over the REST API.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rcliao/layered-memory/internal/memory"
)

const defaultAPI = "https://discord.com/api/v10"

// Thread channel types.
const (
	channelAnnouncementThread = 10
	channelPublicThread       = 11
	channelPrivateThread      = 12
)

// Client calls the Discord REST API with a bot token.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger

	mu           sync.Mutex
	channelTypes map[string]int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the client's logger. The default is slog.Default().
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client. An empty baseURL uses the public v10 API.
func NewClient(token, baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = defaultAPI
	}
	c := &Client{
		token:        token,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          slog.Default(),
		channelTypes: make(map[string]int),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type user struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Bot        bool   `json:"bot"`
}

type reference struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
}

type payload struct {
	ID                string     `json:"id"`
	ChannelID         string     `json:"channel_id"`
	GuildID           string     `json:"guild_id"`
	Content           string     `json:"content"`
	Author            user       `json:"author"`
	MessageReference  *reference `json:"message_reference"`
	ReferencedMessage *payload   `json:"referenced_message"`
}

// Message is a Discord message implementing memory.Message.
type Message struct {
	p       payload
	thread  bool
	client  *Client
	guildID string // inherited by fetched references, which omit guild_id
}

var _ memory.Message = (*Message)(nil)

// ParseMessage decodes a MESSAGE_CREATE dispatch payload. Use
// Client.Resolve to also detect thread channels and enable reply fetches.
func ParseMessage(raw []byte) (*Message, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if p.ChannelID == "" || p.Author.ID == "" {
		return nil, fmt.Errorf("decode message: missing channel or author")
	}
	return &Message{p: p, guildID: p.GuildID}, nil
}

func (m *Message) ID() string        { return m.p.ID }
func (m *Message) AuthorID() string  { return m.p.Author.ID }
func (m *Message) GuildID() string   { return m.guildID }
func (m *Message) ChannelID() string { return m.p.ChannelID }
func (m *Message) IsThread() bool    { return m.thread }
func (m *Message) Content() string   { return m.p.Content }
func (m *Message) FromBot() bool     { return m.p.Author.Bot }

func (m *Message) AuthorName() string {
	if m.p.Author.GlobalName != "" {
		return m.p.Author.GlobalName
	}
	return m.p.Author.Username
}

func (m *Message) ReferenceID() string {
	if m.p.MessageReference == nil {
		return ""
	}
	return m.p.MessageReference.MessageID
}

// FetchReference returns the message this one replies to, using the copy
// embedded in the gateway payload when present.
func (m *Message) FetchReference(ctx context.Context) (memory.Message, error) {
	ref := m.p.MessageReference
	if ref == nil || ref.MessageID == "" {
		return nil, memory.ErrNoReference
	}
	if m.p.ReferencedMessage != nil {
		return &Message{p: *m.p.ReferencedMessage, client: m.client, guildID: m.guildID}, nil
	}
	if m.client == nil {
		return nil, fmt.Errorf("fetch reference %s: no client", ref.MessageID)
	}
	channelID := ref.ChannelID
	if channelID == "" {
		channelID = m.p.ChannelID
	}
	fetched, err := m.client.FetchMessage(ctx, channelID, ref.MessageID)
	if err != nil {
		return nil, err
	}
	fetched.guildID = m.guildID
	return fetched, nil
}

// Resolve parses raw and looks up whether its channel is a thread. A failed
// lookup is logged and the channel treated as a regular one.
func (c *Client) Resolve(ctx context.Context, raw []byte) (*Message, error) {
	m, err := ParseMessage(raw)
	if err != nil {
		return nil, err
	}
	m.client = c
	typ, err := c.ChannelType(ctx, m.p.ChannelID)
	if err != nil {
		c.log.Debug("discord: channel lookup failed", "channel", m.p.ChannelID, "err", err)
		return m, nil
	}
	m.thread = isThreadType(typ)
	return m, nil
}

// FetchMessage retrieves one message by id.
func (c *Client) FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error) {
	var p payload
	if err := c.get(ctx, "/channels/"+channelID+"/messages/"+messageID, &p); err != nil {
		return nil, fmt.Errorf("fetch message %s: %w", messageID, err)
	}
	return &Message{p: p, client: c, guildID: p.GuildID}, nil
}

// ChannelType returns the Discord channel type, cached per channel.
func (c *Client) ChannelType(ctx context.Context, channelID string) (int, error) {
	c.mu.Lock()
	typ, ok := c.channelTypes[channelID]
	c.mu.Unlock()
	if ok {
		return typ, nil
	}

	var ch struct {
		Type int `json:"type"`
	}
	if err := c.get(ctx, "/channels/"+channelID, &ch); err != nil {
		return 0, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}

	c.mu.Lock()
	c.channelTypes[channelID] = ch.Type
	c.mu.Unlock()
	return ch.Type, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord api %s: status %d: %s", path, resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func isThreadType(t int) bool {
	return t == channelAnnouncementThread || t == channelPublicThread || t == channelPrivateThread
}
