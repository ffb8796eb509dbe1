package model

import (
	"encoding/json"
	"time"
)

// ScopeType names a shared conversational scope.
type ScopeType string

const (
	ScopeGuild   ScopeType = "guild"
	ScopeChannel ScopeType = "channel"
	ScopeThread  ScopeType = "thread"
)

// TypeUser tags a user profile document.
const TypeUser = "user"

// ValidScopes are the allowed scope types.
var ValidScopes = map[ScopeType]bool{
	ScopeGuild:   true,
	ScopeChannel: true,
	ScopeThread:  true,
}

// CharacterBinding is a user's in-game character within one guild.
type CharacterBinding struct {
	Name   string `json:"name"`
	Realm  string `json:"realm"`
	Region string `json:"region"`
	Class  string `json:"class,omitempty"`
	Spec   string `json:"spec,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Key is the dedupe key of a binding.
func (c CharacterBinding) Key() string {
	return c.Name + "|" + c.Realm + "|" + c.Region
}

// UserProfile is the metadata document of a user resource. Like ScopeMemory,
// every field is always written.
type UserProfile struct {
	Type              string                        `json:"type"`
	Aliases           []string                      `json:"aliases"`
	AliasesByGuild    map[string][]string           `json:"aliasesByGuild"`
	CharactersByGuild map[string][]CharacterBinding `json:"charactersByGuild"`
	BlizzardBattleTag string                        `json:"blizzardBattleTag"`
	UpdatedAt         time.Time                     `json:"updatedAt"`
}

// ScopeMemory is the metadata document of a guild, channel or thread resource.
// Every field is always written so a merge over an older row replaces it whole.
type ScopeMemory struct {
	Type           ScopeType `json:"type"`
	RollingSummary string    `json:"rollingSummary"`
	Topics         []string  `json:"topics"`
	ExpiresAt      time.Time `json:"expiresAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Expired reports whether the record is past its expiry at now.
// A record without an expiry never expires.
func (m *ScopeMemory) Expired(now time.Time) bool {
	if m.ExpiresAt.IsZero() {
		return false
	}
	return !m.ExpiresAt.After(now)
}

// DecodeUserProfile decodes d when it is tagged as a user profile.
func DecodeUserProfile(d Document) (*UserProfile, bool) {
	if d.Type() != TypeUser {
		return nil, false
	}
	var p UserProfile
	if !decode(d, &p) {
		return nil, false
	}
	return &p, true
}

// DecodeScopeMemory decodes d when it is tagged with scope.
func DecodeScopeMemory(d Document, scope ScopeType) (*ScopeMemory, bool) {
	if d.Type() != string(scope) {
		return nil, false
	}
	var m ScopeMemory
	if !decode(d, &m) {
		return nil, false
	}
	return &m, true
}

func decode(d Document, v any) bool {
	b, err := json.Marshal(d)
	if err != nil {
		return false
	}
	return json.Unmarshal(b, v) == nil
}
