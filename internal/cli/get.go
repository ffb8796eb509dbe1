package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [resource id]",
		Short: "Print a raw memory resource",
		Long:  "Print a stored resource by id, e.g. discord:user:123 or discord:channel:456.",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	r, err := s.GetResource(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}
	if r == nil {
		exitErr("get", fmt.Errorf("resource %q not found", args[0]))
	}

	b, _ := json.MarshalIndent(r, "", "  ")
	fmt.Println(string(b))
}
