package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Flag a study for reindexing",
		Long:  "Flag a study as pending reindex so queries skip it. --clear removes the flag.",
		Run:   runReindex,
	}

	cmd.Flags().StringP("study", "s", "", "StudyInstanceUID (required)")
	cmd.Flags().Bool("clear", false, "Clear the reindex flag")

	cmd.MarkFlagRequired("study")

	RootCmd.AddCommand(cmd)
}

func runReindex(cmd *cobra.Command, args []string) {
	uid, _ := cmd.Flags().GetString("study")
	clearFlag, _ := cmd.Flags().GetBool("clear")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.MarkReindex(cmd.Context(), uid, !clearFlag); err != nil {
		exitErr("reindex", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"study_uid":%q,"reindex":%t}`+"\n", uid, !clearFlag)
}
