package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memory resources as JSON",
		Long:  "Export resources as a JSON array. Filter by id prefix with -p.",
		Run:   runExport,
	}

	cmd.Flags().StringP("prefix", "p", "", "Resource id prefix")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	prefix, _ := cmd.Flags().GetString("prefix")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	resources, err := s.ExportAll(cmd.Context(), prefix)
	if err != nil {
		exitErr("export", err)
	}

	b, _ := json.MarshalIndent(resources, "", "  ")
	fmt.Println(string(b))
}
