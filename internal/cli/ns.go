package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	nsCmd := &cobra.Command{
		Use:   "ns",
		Short: "Resource namespaces (discord:user, discord:guild, ...)",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List namespaces with resource counts and recent ids",
		Run:   runNSList,
	}
	listCmd.Flags().IntP("examples", "e", 3, "Recent resource ids to show per namespace")
	listCmd.Flags().Bool("json", false, "Output JSON")

	nsCmd.AddCommand(listCmd)
	RootCmd.AddCommand(nsCmd)
}

func runNSList(cmd *cobra.Command, args []string) {
	examples, _ := cmd.Flags().GetInt("examples")
	asJSON, _ := cmd.Flags().GetBool("json")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rows, err := s.ListNamespaces(cmd.Context(), examples)
	if err != nil {
		exitErr("list namespaces", err)
	}

	if asJSON {
		b, _ := json.MarshalIndent(rows, "", "  ")
		fmt.Println(string(b))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAMESPACE\tCOUNT\tLAST UPDATED\tRECENT")
	for _, ns := range rows {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", ns.NS, ns.Count,
			ns.LastUpdated.Local().Format(time.DateTime), strings.Join(ns.Examples, ", "))
	}
	w.Flush()
}
