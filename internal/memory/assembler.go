package memory

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rcliao/layered-memory/internal/model"
	"github.com/rcliao/layered-memory/internal/store"
)

// Prepared is the memory handed to the agent before it generates a reply.
type Prepared struct {
	ResourceKey string               `json:"resourceKey"`
	ThreadKey   string               `json:"threadKey"`
	Context     []model.ContextEntry `json:"context"`
}

// Assembler builds per-turn context from every memory layer and writes the
// turn back afterwards.
type Assembler struct {
	profiles *Profiles
	scopes   *Scopes
	cfg      Config
	*settings
}

// NewAssembler creates an Assembler backed by st.
func NewAssembler(st store.Store, cfg Config, opts ...Option) *Assembler {
	cfg = cfg.withDefaults()
	set := newSettings(cfg, opts)
	return &Assembler{
		profiles: &Profiles{store: st, settings: set},
		scopes:   &Scopes{store: st, cfg: cfg, settings: set},
		cfg:      cfg,
		settings: set,
	}
}

// Profiles returns the user profile memory.
func (a *Assembler) Profiles() *Profiles { return a.profiles }

// Scopes returns the scope memory.
func (a *Assembler) Scopes() *Scopes { return a.scopes }

// Prepare loads the speaker's profile, the guild, channel and (for threads)
// thread memories, and any reply context for msg.
func (a *Assembler) Prepare(ctx context.Context, msg Message) Prepared {
	var (
		profile                Profile
		guild, channel, thread *model.ScopeMemory
		reply                  []model.ContextEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile = a.profiles.Get(gctx, msg.AuthorID(), msg.GuildID())
		return nil
	})
	if msg.GuildID() != "" {
		g.Go(func() error {
			guild = a.scopes.Load(gctx, model.ScopeGuild, msg.GuildID())
			return nil
		})
	}
	g.Go(func() error {
		channel = a.scopes.Load(gctx, model.ScopeChannel, msg.ChannelID())
		return nil
	})
	if msg.IsThread() {
		g.Go(func() error {
			thread = a.scopes.Load(gctx, model.ScopeThread, msg.ChannelID())
			return nil
		})
	}
	g.Go(func() error {
		reply = ResolveReply(gctx, msg, a.cfg.BotUserID, a.log)
		return nil
	})
	_ = g.Wait()

	out := Prepared{
		ResourceKey: UserResourceID(msg.AuthorID()),
		ThreadKey:   ThreadKey(msg),
		Context:     []model.ContextEntry{},
	}
	if text := renderSystemContext(profile, guild, channel, thread); text != "" {
		out.Context = append(out.Context, model.ContextEntry{Role: model.RoleSystem, Content: text})
	}
	out.Context = append(out.Context, reply...)
	return out
}

// Remember records the exchange in the guild, channel and thread scopes of
// msg. Each scope is saved independently; failures are logged and joined
// into the returned error.
func (a *Assembler) Remember(ctx context.Context, msg Message, userText, assistantText string) error {
	userText = Sanitize(userText)
	assistantText = Sanitize(assistantText)

	type target struct {
		scope model.ScopeType
		id    string
	}
	var targets []target
	if msg.GuildID() != "" {
		targets = append(targets, target{model.ScopeGuild, msg.GuildID()})
	}
	targets = append(targets, target{model.ScopeChannel, msg.ChannelID()})
	if msg.IsThread() {
		targets = append(targets, target{model.ScopeThread, msg.ChannelID()})
	}

	var errs []error
	for _, t := range targets {
		if err := a.scopes.Save(ctx, t.scope, t.id, userText, assistantText); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func renderSystemContext(p Profile, guild, channel, thread *model.ScopeMemory) string {
	var lines []string

	if !p.Empty() {
		lines = append(lines, "User Profile:")
		if p.BattleTag != "" {
			lines = append(lines, "- BattleTag: "+p.BattleTag)
		}
		if len(p.Aliases) > 0 {
			lines = append(lines, "- Aliases: "+strings.Join(p.Aliases, ", "))
		}
		if len(p.Characters) > 0 {
			chars := make([]string, 0, len(p.Characters))
			for _, c := range p.Characters {
				chars = append(chars, formatCharacter(c))
			}
			lines = append(lines, "- WoW Characters (this guild): "+strings.Join(chars, "; "))
		}
	}

	lines = appendScope(lines, "Guild Context:", guild)
	lines = appendScope(lines, "Channel Context:", channel)
	lines = appendScope(lines, "Thread Context:", thread)

	if len(lines) == 0 {
		return ""
	}
	return "[Discord Layered Memory Context]\n" + strings.Join(lines, "\n")
}

func appendScope(lines []string, heading string, m *model.ScopeMemory) []string {
	if m == nil || (m.RollingSummary == "" && len(m.Topics) == 0) {
		return lines
	}
	lines = append(lines, heading)
	if m.RollingSummary != "" {
		lines = append(lines, m.RollingSummary)
	}
	if len(m.Topics) > 0 {
		lines = append(lines, "Topics: "+strings.Join(m.Topics, ", "))
	}
	return lines
}

// formatCharacter renders "Name (Class Spec) - REGION-realm".
func formatCharacter(c model.CharacterBinding) string {
	detail := strings.TrimSpace(c.Class + " " + c.Spec)
	if detail == "" {
		return c.Name + " - " + c.Region + "-" + c.Realm
	}
	return c.Name + " (" + detail + ") - " + c.Region + "-" + c.Realm
}
