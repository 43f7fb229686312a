package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Delete a study",
		Long:  "Flag a study as deleted so queries skip it, or remove it with its series and instances using --hard.",
		Run:   runRm,
	}

	cmd.Flags().StringP("study", "s", "", "StudyInstanceUID (required)")
	cmd.Flags().Bool("hard", false, "Permanent delete (irreversible)")

	cmd.MarkFlagRequired("study")

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	uid, _ := cmd.Flags().GetString("study")
	hard, _ := cmd.Flags().GetBool("hard")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if hard {
		err = s.Delete(cmd.Context(), uid)
	} else {
		err = s.MarkDeleted(cmd.Context(), uid)
	}
	if err != nil {
		exitErr("rm", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"study_uid":%q,"hard":%t}`+"\n", uid, hard)
}
