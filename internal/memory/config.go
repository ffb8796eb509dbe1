package memory

import (
	"time"

	"github.com/rcliao/layered-memory/internal/model"
)

// Default expiry and size limits.
const (
	DefaultGuildTTL        = 7 * 24 * time.Hour
	DefaultChannelTTL      = 4 * time.Hour
	DefaultThreadTTL       = 4 * time.Hour
	DefaultSummaryMaxChars = 4000
)

// Config is the full set of options the memory layer recognizes.
type Config struct {
	// GuildTTL, ChannelTTL and ThreadTTL set how long a scope record stays
	// readable after its last write.
	GuildTTL   time.Duration
	ChannelTTL time.Duration
	ThreadTTL  time.Duration

	// SummaryMaxChars caps a rolling summary; older text is dropped first.
	SummaryMaxChars int

	// BotUserID identifies the assistant's own messages in reply context.
	BotUserID string

	// SerializeWrites holds a per-resource lock around each
	// read-modify-write. Without it, concurrent turns on the same scope are
	// last-writer-wins.
	SerializeWrites bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		GuildTTL:        DefaultGuildTTL,
		ChannelTTL:      DefaultChannelTTL,
		ThreadTTL:       DefaultThreadTTL,
		SummaryMaxChars: DefaultSummaryMaxChars,
	}
}

// withDefaults fills unset or non-positive values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.GuildTTL <= 0 {
		c.GuildTTL = d.GuildTTL
	}
	if c.ChannelTTL <= 0 {
		c.ChannelTTL = d.ChannelTTL
	}
	if c.ThreadTTL <= 0 {
		c.ThreadTTL = d.ThreadTTL
	}
	if c.SummaryMaxChars <= 0 {
		c.SummaryMaxChars = d.SummaryMaxChars
	}
	return c
}

// TTL returns the expiry duration for scope.
func (c Config) TTL(scope model.ScopeType) time.Duration {
	switch scope {
	case model.ScopeGuild:
		return c.GuildTTL
	case model.ScopeThread:
		return c.ThreadTTL
	default:
		return c.ChannelTTL
	}
}
