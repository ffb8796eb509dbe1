// Package config loads layered-memory settings from a YAML file, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/layered-memory/internal/memory"
)

// Environment variables recognized by Load. They override the file.
const (
	EnvDBPath          = "LAYERED_MEMORY_DB"
	EnvGuildTTL        = "MEMORY_GUILD_TTL_MINUTES"
	EnvChannelTTL      = "MEMORY_CHANNEL_TTL_MINUTES"
	EnvThreadTTL       = "MEMORY_THREAD_TTL_MINUTES"
	EnvSummaryMaxChars = "MEMORY_SCOPE_SUMMARY_MAX_CHARS"
	EnvSerializeWrites = "MEMORY_SERIALIZE_WRITES"
	EnvBotUserID       = "DISCORD_BOT_USER_ID"
	EnvDiscordToken    = "DISCORD_BOT_TOKEN"
)

// Config is the on-disk configuration. TTLs are whole minutes.
type Config struct {
	DBPath            string `yaml:"db_path"`
	BotUserID         string `yaml:"bot_user_id"`
	DiscordToken      string `yaml:"discord_token"`
	GuildTTLMinutes   int    `yaml:"guild_ttl_minutes"`
	ChannelTTLMinutes int    `yaml:"channel_ttl_minutes"`
	ThreadTTLMinutes  int    `yaml:"thread_ttl_minutes"`
	SummaryMaxChars   int    `yaml:"summary_max_chars"`
	SerializeWrites   bool   `yaml:"serialize_writes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:            DefaultDBPath(),
		GuildTTLMinutes:   int(memory.DefaultGuildTTL / time.Minute),
		ChannelTTLMinutes: int(memory.DefaultChannelTTL / time.Minute),
		ThreadTTLMinutes:  int(memory.DefaultThreadTTL / time.Minute),
		SummaryMaxChars:   memory.DefaultSummaryMaxChars,
	}
}

// DefaultDBPath returns ~/.layered-memory/memory.db.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".layered-memory", "memory.db")
	}
	return filepath.Join(home, ".layered-memory", "memory.db")
}

// Path returns the default config file path: ~/.layered-memory/config.yaml.
func Path() string {
	return filepath.Join(filepath.Dir(DefaultDBPath()), "config.yaml")
}

// Load builds a Config from defaults, the YAML file at path (skipped when it
// does not exist) and environment overrides. Variables from ./.env are
// loaded first without replacing ones already set. If path is empty,
// Path() is used.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	if path == "" {
		path = Path()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv loads variables from path. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvBotUserID); v != "" {
		c.BotUserID = v
	}
	if v := os.Getenv(EnvDiscordToken); v != "" {
		c.DiscordToken = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{EnvGuildTTL, &c.GuildTTLMinutes},
		{EnvChannelTTL, &c.ChannelTTLMinutes},
		{EnvThreadTTL, &c.ThreadTTLMinutes},
		{EnvSummaryMaxChars, &c.SummaryMaxChars},
	}
	for _, it := range ints {
		v := os.Getenv(it.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid number %q", it.name, v)
		}
		*it.dst = n
	}

	if v := os.Getenv(EnvSerializeWrites); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: invalid bool %q", EnvSerializeWrites, v)
		}
		c.SerializeWrites = b
	}
	return nil
}

// Validate rejects non-positive TTLs and summary limits.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		v    int
	}{
		{"guild_ttl_minutes", c.GuildTTLMinutes},
		{"channel_ttl_minutes", c.ChannelTTLMinutes},
		{"thread_ttl_minutes", c.ThreadTTLMinutes},
		{"summary_max_chars", c.SummaryMaxChars},
	}
	for _, ch := range checks {
		if ch.v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", ch.name, ch.v)
		}
	}
	return nil
}

// Memory converts c into the memory layer's configuration.
func (c *Config) Memory() memory.Config {
	return memory.Config{
		GuildTTL:        time.Duration(c.GuildTTLMinutes) * time.Minute,
		ChannelTTL:      time.Duration(c.ChannelTTLMinutes) * time.Minute,
		ThreadTTL:       time.Duration(c.ThreadTTLMinutes) * time.Minute,
		SummaryMaxChars: c.SummaryMaxChars,
		BotUserID:       c.BotUserID,
		SerializeWrites: c.SerializeWrites,
	}
}
