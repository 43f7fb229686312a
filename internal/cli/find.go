package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rcliao/dicom-find/internal/dataset"
	"github.com/rcliao/dicom-find/internal/find"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Query studies, series or instances",
		Long: `Query the index at a level. Criteria come from a DICOM JSON file and
from flags: -a Keyword=Value matches, -r Keyword requests the attribute
without constraining it and --null Keyword sends it as null.

Series queries need StudyInstanceUID; instance queries also need
SeriesInstanceUID.`,
		Example: `  dicom-find find -l STUDY -a PatientName='DOE^*' -a StudyDate=20240101-20240131 -r StudyDescription
  dicom-find find -l SERIES -a StudyInstanceUID=1.2.3 -a Modality='CT\MR'
  dicom-find find -l IMAGE --query criteria.json`,
		Args: cobra.NoArgs,
		Run:  runFind,
	}

	cmd.Flags().StringP("level", "l", "STUDY", "Query level: STUDY, SERIES or IMAGE")
	cmd.Flags().StringArrayP("attr", "a", nil, "Matching criterion Keyword=Value (repeatable)")
	cmd.Flags().StringArrayP("return", "r", nil, "Return attribute Keyword (repeatable)")
	cmd.Flags().StringArray("null", nil, "Null criterion Keyword (repeatable)")
	cmd.Flags().StringP("query", "q", "", "DICOM JSON criteria file, - for stdin")

	RootCmd.AddCommand(cmd)
}

func runFind(cmd *cobra.Command, args []string) {
	levelStr, _ := cmd.Flags().GetString("level")
	attrs, _ := cmd.Flags().GetStringArray("attr")
	returns, _ := cmd.Flags().GetStringArray("return")
	nulls, _ := cmd.Flags().GetStringArray("null")
	queryFile, _ := cmd.Flags().GetString("query")

	level, err := find.ParseLevel(levelStr)
	if err != nil {
		exitErr("find", err)
	}

	criteria := dataset.New()
	if queryFile != "" {
		data, err := readInput(queryFile)
		if err != nil {
			exitErr("read query", err)
		}
		if err := json.Unmarshal(data, criteria); err != nil {
			exitErr("parse query", err)
		}
	}
	if err := applyCriteria(criteria, attrs, returns, nulls); err != nil {
		exitErr("find", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := find.New(s, find.WithLogger(slog.Default())).Find(cmd.Context(), level, criteria)
	if err != nil {
		exitErr("find", err)
	}

	if err := printDatasets(cmd.OutOrStdout(), formatFlag, results); err != nil {
		exitErr("write results", err)
	}
}

// applyCriteria adds the flag criteria to ds. Flags override the file.
func applyCriteria(ds *dataset.Dataset, attrs, returns, nulls []string) error {
	for _, a := range attrs {
		name, value, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("criterion %q: want Keyword=Value", a)
		}
		p, err := lookup(name)
		if err != nil {
			return err
		}
		ds.Set(p, value)
	}
	for _, name := range returns {
		p, err := lookup(name)
		if err != nil {
			return err
		}
		ds.Set(p, "")
	}
	for _, name := range nulls {
		p, err := lookup(name)
		if err != nil {
			return err
		}
		ds.SetNull(p)
	}
	return nil
}

func lookup(name string) (dataset.Path, error) {
	p, ok := dataset.LookupKeyword(strings.TrimSpace(name))
	if !ok {
		return dataset.Path{}, fmt.Errorf("unknown attribute %q", name)
	}
	return p, nil
}
