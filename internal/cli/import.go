package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/layered-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import memory resources from JSON",
		Long:  "Import resources from stdin. Expects the format produced by export; metadata is merged into existing resources.",
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func readAllStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}

func runImport(cmd *cobra.Command, args []string) {
	data, err := readAllStdin()
	if err != nil {
		exitErr("read stdin", err)
	}

	var resources []model.Resource
	if err := json.Unmarshal(data, &resources); err != nil {
		exitErr("parse json", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.Import(cmd.Context(), resources)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
