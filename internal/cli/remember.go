package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/layered-memory/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [user text]",
		Short: "Record a finished exchange into every applicable scope",
		Long: "Append the user's message and the assistant's answer to the guild, channel and " +
			"thread memories the message belongs to.",
		Args: cobra.MinimumNArgs(1),
		Run:  runRemember,
	}

	addMessageFlags(cmd)
	cmd.Flags().StringP("reply", "r", "", "Assistant reply text")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	userText := strings.Join(args, " ")
	reply, _ := cmd.Flags().GetString("reply")
	msg := messageFromFlags(cmd, userText)

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := newAssembler(s).Remember(cmd.Context(), msg, userText, reply); err != nil {
		exitErr("remember", err)
	}

	out := map[string]any{"ok": true, "threadKey": memory.ThreadKey(msg)}
	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}
