package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/layered-memory/internal/model"
)

func init() {
	scopeCmd := &cobra.Command{
		Use:   "scope",
		Short: "Guild, channel and thread memory",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show a scope's live rolling summary (nothing if expired)",
		Run:   runScopeShow,
	}
	showCmd.Flags().StringP("type", "t", "channel", "Scope: guild, channel, thread")
	showCmd.Flags().String("id", "", "Scope id (required)")
	showCmd.MarkFlagRequired("id")

	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Append one exchange to a single scope",
		Run:   runScopeSave,
	}
	saveCmd.Flags().StringP("type", "t", "channel", "Scope: guild, channel, thread")
	saveCmd.Flags().String("id", "", "Scope id (required)")
	saveCmd.Flags().String("user-text", "", "What the user said (required)")
	saveCmd.Flags().String("assistant-text", "", "What the assistant answered")
	saveCmd.MarkFlagRequired("id")
	saveCmd.MarkFlagRequired("user-text")

	scopeCmd.AddCommand(showCmd, saveCmd)
	RootCmd.AddCommand(scopeCmd)
}

func parseScope(cmd *cobra.Command) model.ScopeType {
	t, _ := cmd.Flags().GetString("type")
	scope := model.ScopeType(t)
	if !model.ValidScopes[scope] {
		exitErr("scope", fmt.Errorf("invalid type %q (valid: guild, channel, thread)", t))
	}
	return scope
}

func runScopeShow(cmd *cobra.Command, args []string) {
	scope := parseScope(cmd)
	id, _ := cmd.Flags().GetString("id")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mem := newAssembler(s).Scopes().Load(cmd.Context(), scope, id)
	if mem == nil {
		fmt.Println("null")
		return
	}
	b, _ := json.MarshalIndent(mem, "", "  ")
	fmt.Println(string(b))
}

func runScopeSave(cmd *cobra.Command, args []string) {
	scope := parseScope(cmd)
	id, _ := cmd.Flags().GetString("id")
	userText, _ := cmd.Flags().GetString("user-text")
	assistantText, _ := cmd.Flags().GetString("assistant-text")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	scopes := newAssembler(s).Scopes()
	if err := scopes.Save(cmd.Context(), scope, id, userText, assistantText); err != nil {
		exitErr("save scope", err)
	}
	b, _ := json.MarshalIndent(scopes.Load(cmd.Context(), scope, id), "", "  ")
	fmt.Println(string(b))
}
