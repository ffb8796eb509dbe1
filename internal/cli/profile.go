package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/layered-memory/internal/model"
)

func init() {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "User profile memory",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show a user's aliases and characters as seen from a guild",
		Run:   runProfileShow,
	}
	showCmd.Flags().StringP("user", "u", "", "User id (required)")
	showCmd.Flags().StringP("guild", "g", "", "Guild id")
	showCmd.MarkFlagRequired("user")

	aliasCmd := &cobra.Command{
		Use:   "alias [alias]",
		Short: "Add an alias, globally and for a guild if given",
		Args:  cobra.MinimumNArgs(1),
		Run:   runProfileAlias,
	}
	aliasCmd.Flags().StringP("user", "u", "", "User id (required)")
	aliasCmd.Flags().StringP("guild", "g", "", "Guild id")
	aliasCmd.MarkFlagRequired("user")

	bindCmd := &cobra.Command{
		Use:   "bind",
		Short: "Bind a WoW character to a user within a guild",
		Run:   runProfileBind,
	}
	bindCmd.Flags().StringP("user", "u", "", "User id (required)")
	bindCmd.Flags().StringP("guild", "g", "", "Guild id (required)")
	bindCmd.Flags().String("name", "", "Character name (required)")
	bindCmd.Flags().String("realm", "", "Realm (required)")
	bindCmd.Flags().String("region", "", "Region, e.g. US or EU (required)")
	bindCmd.Flags().String("class", "", "Class")
	bindCmd.Flags().String("spec", "", "Specialization")
	bindCmd.Flags().String("role", "", "Role: tank, healer, dps")
	for _, f := range []string{"user", "guild", "name", "realm", "region"} {
		bindCmd.MarkFlagRequired(f)
	}

	tagCmd := &cobra.Command{
		Use:   "battletag [tag]",
		Short: "Set a user's Blizzard BattleTag",
		Args:  cobra.ExactArgs(1),
		Run:   runProfileBattleTag,
	}
	tagCmd.Flags().StringP("user", "u", "", "User id (required)")
	tagCmd.MarkFlagRequired("user")

	profileCmd.AddCommand(showCmd, aliasCmd, bindCmd, tagCmd)
	RootCmd.AddCommand(profileCmd)
}

func runProfileShow(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	guild, _ := cmd.Flags().GetString("guild")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	prof := newAssembler(s).Profiles().Get(cmd.Context(), user, guild)
	b, _ := json.MarshalIndent(prof, "", "  ")
	fmt.Println(string(b))
}

func runProfileAlias(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	guild, _ := cmd.Flags().GetString("guild")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := newAssembler(s).Profiles().AddAlias(cmd.Context(), user, strings.Join(args, " "), guild); err != nil {
		exitErr("add alias", err)
	}
	fmt.Println(`{"ok":true}`)
}

func runProfileBind(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	guild, _ := cmd.Flags().GetString("guild")
	var c model.CharacterBinding
	c.Name, _ = cmd.Flags().GetString("name")
	c.Realm, _ = cmd.Flags().GetString("realm")
	c.Region, _ = cmd.Flags().GetString("region")
	c.Class, _ = cmd.Flags().GetString("class")
	c.Spec, _ = cmd.Flags().GetString("spec")
	c.Role, _ = cmd.Flags().GetString("role")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := newAssembler(s).Profiles().BindCharacter(cmd.Context(), user, guild, c); err != nil {
		exitErr("bind character", err)
	}
	fmt.Println(`{"ok":true}`)
}

func runProfileBattleTag(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := newAssembler(s).Profiles().SetBattleTag(cmd.Context(), user, args[0]); err != nil {
		exitErr("set battletag", err)
	}
	fmt.Println(`{"ok":true}`)
}
