package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rcliao/dicom-find/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	if formatFlag == "text" {
		printStats(cmd.OutOrStdout(), stats)
		return
	}
	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func printStats(w io.Writer, st *store.Stats) {
	fmt.Fprintf(w, "database   %s (%s)\n", st.DBPath, humanize.Bytes(uint64(st.DBSizeBytes)))
	fmt.Fprintf(w, "studies    %s (%s deleted, %s pending reindex)\n",
		humanize.Comma(int64(st.Studies)), humanize.Comma(int64(st.DeletedStudies)), humanize.Comma(int64(st.ReindexStudies)))
	fmt.Fprintf(w, "series     %s\n", humanize.Comma(int64(st.Series)))
	fmt.Fprintf(w, "instances  %s\n", humanize.Comma(int64(st.Instances)))
	for _, m := range st.Modalities {
		name := m.Modality
		if name == "" {
			name = "(none)"
		}
		fmt.Fprintf(w, "  %-8s %s series\n", name, humanize.Comma(int64(m.Series)))
	}
}
