package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rcliao/dicom-find/internal/dataset"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [file]",
		Short: "Index one instance",
		Long:  "Index one instance from a DICOM JSON dataset. The dataset can be a file argument or piped via stdin.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runPut,
	}

	cmd.Flags().Bool("generate-uids", false, "Generate missing Study, Series and SOP Instance UIDs")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	generate, _ := cmd.Flags().GetBool("generate-uids")

	var (
		data []byte
		err  error
	)
	switch {
	case len(args) > 0:
		data, err = readInput(args[0])
	case stdinPiped():
		data, err = readInput("-")
	default:
		err = fmt.Errorf("dataset is required (file arg or stdin)")
	}
	if err != nil {
		exitErr("read dataset", err)
	}

	ds := dataset.New()
	if err := json.Unmarshal(data, ds); err != nil {
		exitErr("parse dataset", err)
	}
	if generate {
		generateUIDs(ds)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rec, err := s.Put(cmd.Context(), ds)
	if err != nil {
		exitErr("put", err)
	}
	slog.Debug("instance indexed", "sop_uid", rec.Instance.SOPInstanceUID, "study_pk", rec.Study.PK)

	b, _ := json.Marshal(rec)
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

// generateUIDs fills the identifying UIDs the dataset lacks.
func generateUIDs(ds *dataset.Dataset) {
	for _, p := range []dataset.Path{dataset.StudyInstanceUID, dataset.SeriesInstanceUID, dataset.SOPInstanceUID} {
		if ds.String(p.Tag) == "" {
			ds.Set(p, dataset.NewUID())
		}
	}
}
