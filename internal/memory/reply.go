package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rcliao/layered-memory/internal/model"
)

const replyPrefix = "[Reply Context] "

// ResolveReply turns the message msg replies to into context entries.
// The assistant's own messages come back as assistant turns and the
// speaker's own messages as user turns. Anything written by someone else
// becomes a system note naming its author, so their details are never
// mistaken for the speaker's. Fetch failures yield no entries.
func ResolveReply(ctx context.Context, msg Message, botUserID string, log *slog.Logger) []model.ContextEntry {
	if msg.ReferenceID() == "" {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}

	ref, err := msg.FetchReference(ctx)
	if err != nil {
		log.Debug("reply context unavailable", "reference", msg.ReferenceID(), "err", err)
		return nil
	}
	if ref == nil {
		return nil
	}
	text := Sanitize(ref.Content())
	if text == "" {
		return nil
	}

	author := ref.AuthorID()
	switch {
	case botUserID != "" && author == botUserID:
		return []model.ContextEntry{{Role: model.RoleAssistant, Content: replyPrefix + text}}
	case author != "" && author == msg.AuthorID():
		return []model.ContextEntry{{Role: model.RoleUser, Content: replyPrefix + text}}
	default:
		return []model.ContextEntry{{Role: model.RoleSystem, Content: thirdPartyNote(ref, text)}}
	}
}

func thirdPartyNote(ref Message, text string) string {
	name := ref.AuthorName()
	if name == "" && ref.AuthorID() != "" {
		name = "<@" + ref.AuthorID() + ">"
	}
	if name == "" {
		name = "another user"
	}
	return fmt.Sprintf("[Third-party Reply Context from %s]\n"+
		"The current speaker is replying to a message written by %s, not by themselves. "+
		"Treat it as topical context only. Do not attribute its characters, realms or preferences "+
		"to the current speaker unless they confirm them explicitly.\n"+
		"%s wrote: %s", name, name, name, text)
}
