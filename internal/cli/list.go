package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/layered-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memory resources",
		Run:   runList,
	}

	cmd.Flags().StringP("prefix", "p", "discord:", "Resource id prefix")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("ids-only", false, "Only output resource ids")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	prefix, _ := cmd.Flags().GetString("prefix")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	resources, err := s.ListResources(cmd.Context(), store.ListParams{
		Prefix: prefix,
		Limit:  limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if idsOnly {
		for _, r := range resources {
			fmt.Println(r.ID)
		}
		return
	}

	b, _ := json.MarshalIndent(resources, "", "  ")
	fmt.Println(string(b))
}
