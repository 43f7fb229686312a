package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rcliao/dicom-find/internal/dataset"
	"github.com/rcliao/dicom-find/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Index instances from a DICOM JSON array",
		Long:  "Index instances from a JSON array of DICOM JSON datasets (file arg or stdin). Stops at the first failing dataset.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	name := "-"
	if len(args) > 0 {
		name = args[0]
	}
	data, err := readInput(name)
	if err != nil {
		exitErr("read input", err)
	}

	var datasets []*dataset.Dataset
	if err := json.Unmarshal(data, &datasets); err != nil {
		exitErr("parse json", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := store.Import(cmd.Context(), s, datasets)
	if err != nil {
		exitErr(fmt.Sprintf("import dataset %d", imported), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d}`+"\n", imported)
}
