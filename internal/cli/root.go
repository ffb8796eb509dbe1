// Package cli implements the layered-memory CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/layered-memory/internal/config"
	"github.com/rcliao/layered-memory/internal/memory"
	"github.com/rcliao/layered-memory/internal/store"
)

var (
	dbPath     string
	configPath string
	verbose    bool

	cfg *config.Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "layered-memory",
	Short: "Layered conversational memory for a Discord assistant",
	Long: "Inspect and update the per-user, guild, channel and thread memory a Discord " +
		"assistant assembles before each turn. SQLite-backed, single binary.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $LAYERED_MEMORY_DB or ~/.layered-memory/memory.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.layered-memory/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if cfg != nil && cfg.DBPath != "" {
		return cfg.DBPath
	}
	return config.DefaultDBPath()
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

func newAssembler(s store.Store) *memory.Assembler {
	return memory.NewAssembler(s, cfg.Memory())
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
