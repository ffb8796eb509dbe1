package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/layered-memory/internal/discord"
	"github.com/rcliao/layered-memory/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [message text]",
		Short: "Assemble the memory context for an incoming message",
		Long: "Build the system context and reply context the assistant would see for a message. " +
			"Describe the message with flags, or pass a raw Discord message payload with --message " +
			"to resolve threads and replies over the Discord API.",
		Run: runContext,
	}

	addMessageFlags(cmd)
	RootCmd.AddCommand(cmd)
}

func addMessageFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("user", "u", "", "Author user id")
	cmd.Flags().String("username", "", "Author display name")
	cmd.Flags().StringP("guild", "g", "", "Guild id (empty for DMs)")
	cmd.Flags().String("channel", "", "Channel id")
	cmd.Flags().Bool("thread", false, "Channel is a thread")
	cmd.Flags().StringP("message", "m", "", "Raw Discord message JSON file ('-' for stdin)")
}

// messageFromFlags builds the message a command acts on. A --message payload
// is resolved through the Discord API; otherwise the flags describe it.
func messageFromFlags(cmd *cobra.Command, text string) memory.Message {
	if path, _ := cmd.Flags().GetString("message"); path != "" {
		var raw []byte
		var err error
		if path == "-" {
			raw, err = readAllStdin()
		} else {
			raw, err = os.ReadFile(path)
		}
		if err != nil {
			exitErr("read message", err)
		}
		msg, err := discord.NewClient(cfg.DiscordToken, "", discord.WithLogger(slog.Default())).Resolve(cmd.Context(), raw)
		if err != nil {
			exitErr("resolve message", err)
		}
		return msg
	}

	user, _ := cmd.Flags().GetString("user")
	username, _ := cmd.Flags().GetString("username")
	guild, _ := cmd.Flags().GetString("guild")
	channel, _ := cmd.Flags().GetString("channel")
	thread, _ := cmd.Flags().GetBool("thread")
	if user == "" || channel == "" {
		exitErr("message", fmt.Errorf("--user and --channel are required without --message"))
	}
	return &memory.StaticMessage{
		Author:   user,
		Username: username,
		Guild:    guild,
		Channel:  channel,
		Thread:   thread,
		Text:     text,
	}
}

func runContext(cmd *cobra.Command, args []string) {
	msg := messageFromFlags(cmd, strings.Join(args, " "))

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	prepared := newAssembler(s).Prepare(cmd.Context(), msg)
	b, _ := json.MarshalIndent(prepared, "", "  ")
	fmt.Println(string(b))
}
