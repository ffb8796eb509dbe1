package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/layered-memory/internal/model"
	"github.com/rcliao/layered-memory/internal/store"
)

// Profile is a user's identity as seen from one guild.
type Profile struct {
	Aliases    []string                 `json:"aliases"`
	Characters []model.CharacterBinding `json:"characters"`
	BattleTag  string                   `json:"battleTag,omitempty"`
}

// Empty reports whether the profile has nothing worth rendering.
func (p Profile) Empty() bool {
	return len(p.Aliases) == 0 && len(p.Characters) == 0 && p.BattleTag == ""
}

// Profiles stores per-user aliases, character bindings and BattleTag.
type Profiles struct {
	store store.Store
	*settings
}

// NewProfiles creates a Profiles backed by st.
func NewProfiles(st store.Store, cfg Config, opts ...Option) *Profiles {
	return &Profiles{store: st, settings: newSettings(cfg, opts)}
}

func (p *Profiles) load(ctx context.Context, userID string) *model.UserProfile {
	res := p.loadResource(ctx, p.store, UserResourceID(userID))
	if res == nil {
		return nil
	}
	prof, ok := model.DecodeUserProfile(res.Metadata)
	if !ok {
		return nil
	}
	return prof
}

// Get returns the user's global aliases merged with aliases for guildID, and
// the characters bound in guildID. guildID may be empty.
func (p *Profiles) Get(ctx context.Context, userID, guildID string) Profile {
	out := Profile{Aliases: []string{}, Characters: []model.CharacterBinding{}}
	prof := p.load(ctx, userID)
	if prof == nil {
		return out
	}

	aliases := append([]string{}, prof.Aliases...)
	if guildID != "" {
		aliases = append(aliases, prof.AliasesByGuild[guildID]...)
		out.Characters = dedupe(prof.CharactersByGuild[guildID], model.CharacterBinding.Key)
	}
	out.Aliases = dedupe(aliases, identity)
	out.BattleTag = prof.BlizzardBattleTag
	return out
}

// AddAlias records alias globally and, when guildID is set, for that guild.
func (p *Profiles) AddAlias(ctx context.Context, userID, alias, guildID string) error {
	alias = strings.TrimSpace(alias)
	if userID == "" || alias == "" {
		return fmt.Errorf("add alias: %w: user id and alias are required", ErrInvalidInput)
	}
	return p.mutate(ctx, userID, func(prof *model.UserProfile) {
		prof.Aliases = dedupe(append(prof.Aliases, alias), identity)
		if guildID != "" {
			if prof.AliasesByGuild == nil {
				prof.AliasesByGuild = map[string][]string{}
			}
			prof.AliasesByGuild[guildID] = dedupe(append(prof.AliasesByGuild[guildID], alias), identity)
		}
	})
}

// BindCharacter records a character for the user within guildID.
func (p *Profiles) BindCharacter(ctx context.Context, userID, guildID string, c model.CharacterBinding) error {
	if userID == "" || guildID == "" || c.Name == "" || c.Realm == "" || c.Region == "" {
		return fmt.Errorf("bind character: %w: user, guild, name, realm and region are required", ErrInvalidInput)
	}
	return p.mutate(ctx, userID, func(prof *model.UserProfile) {
		if prof.CharactersByGuild == nil {
			prof.CharactersByGuild = map[string][]model.CharacterBinding{}
		}
		list := append(prof.CharactersByGuild[guildID], c)
		prof.CharactersByGuild[guildID] = dedupe(list, model.CharacterBinding.Key)
	})
}

// SetBattleTag records the user's Blizzard BattleTag.
func (p *Profiles) SetBattleTag(ctx context.Context, userID, tag string) error {
	tag = strings.TrimSpace(tag)
	if userID == "" || tag == "" {
		return fmt.Errorf("set battletag: %w: user id and tag are required", ErrInvalidInput)
	}
	return p.mutate(ctx, userID, func(prof *model.UserProfile) {
		prof.BlizzardBattleTag = tag
	})
}

func (p *Profiles) mutate(ctx context.Context, userID string, fn func(*model.UserProfile)) error {
	id := UserResourceID(userID)
	unlock := p.locks.Lock(id)
	defer unlock()

	prof := p.load(ctx, userID)
	if prof == nil {
		prof = &model.UserProfile{}
	}
	prof.Type = model.TypeUser
	fn(prof)
	prof.UpdatedAt = p.now()

	doc, err := model.EncodeDocument(prof)
	if err != nil {
		return err
	}
	if _, err := p.store.UpdateResource(ctx, store.UpdateParams{ID: id, Metadata: doc}); err != nil {
		p.log.Warn("failed to save user profile", "resource", id, "err", err)
		return fmt.Errorf("save profile %s: %w", id, err)
	}
	return nil
}
