package memory

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rcliao/layered-memory/internal/model"
	"github.com/rcliao/layered-memory/internal/store"
	"github.com/rcliao/layered-memory/internal/topics"
)

// Scopes stores rolling summaries for guilds, channels and threads.
type Scopes struct {
	store store.Store
	cfg   Config
	*settings
}

// NewScopes creates a Scopes backed by st.
func NewScopes(st store.Store, cfg Config, opts ...Option) *Scopes {
	cfg = cfg.withDefaults()
	return &Scopes{store: st, cfg: cfg, settings: newSettings(cfg, opts)}
}

// Load returns the live memory of a scope, or nil when it is missing,
// tagged for a different scope, or expired.
func (s *Scopes) Load(ctx context.Context, scope model.ScopeType, scopeID string) *model.ScopeMemory {
	id := ScopeResourceID(scope, scopeID)
	if id == "" {
		return nil
	}
	res := s.loadResource(ctx, s.store, id)
	if res == nil {
		return nil
	}
	mem, ok := model.DecodeScopeMemory(res.Metadata, scope)
	if !ok {
		return nil
	}
	if mem.Expired(s.now()) {
		return nil
	}
	return mem
}

// Save appends a user/assistant exchange to the scope's rolling summary,
// refreshes its topics and pushes its expiry out by the scope's TTL. An
// expired record is replaced rather than extended.
func (s *Scopes) Save(ctx context.Context, scope model.ScopeType, scopeID, userText, assistantText string) error {
	if !model.ValidScopes[scope] {
		return fmt.Errorf("save scope: %w: unknown scope %q", ErrInvalidInput, scope)
	}
	id := ScopeResourceID(scope, scopeID)
	if id == "" {
		return fmt.Errorf("save scope: %w: empty %s id", ErrInvalidInput, scope)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	var prevSummary string
	var prevTopics []string
	if prev := s.Load(ctx, scope, scopeID); prev != nil {
		prevSummary = prev.RollingSummary
		prevTopics = prev.Topics
	}

	now := s.now()
	next := model.ScopeMemory{
		Type:           scope,
		RollingSummary: appendSummary(prevSummary, userText, assistantText, s.cfg.SummaryMaxChars),
		Topics:         topics.Merge(prevTopics, topics.Extract(userText+"\n"+assistantText)),
		ExpiresAt:      now.Add(s.cfg.TTL(scope)),
		UpdatedAt:      now,
	}

	doc, err := model.EncodeDocument(next)
	if err != nil {
		return err
	}
	if _, err := s.store.UpdateResource(ctx, store.UpdateParams{ID: id, Metadata: doc}); err != nil {
		s.log.Warn("failed to save scope memory", "resource", id, "err", err)
		return fmt.Errorf("save scope %s: %w", id, err)
	}
	return nil
}

var blankRun = regexp.MustCompile(`\n{3,}`)

// appendSummary adds one exchange to prev, collapses runs of blank lines and
// keeps at most max trailing characters.
func appendSummary(prev, userText, assistantText string, max int) string {
	var parts []string
	if prev != "" {
		parts = append(parts, prev)
	}
	parts = append(parts, strings.TrimSpace("User: "+userText))
	if assistantText != "" {
		parts = append(parts, "Assistant: "+assistantText)
	}

	out := blankRun.ReplaceAllString(strings.Join(parts, "\n"), "\n\n")
	if max <= 0 || utf8.RuneCountInString(out) <= max {
		return out
	}
	runes := []rune(out)
	return string(runes[len(runes)-max:])
}
