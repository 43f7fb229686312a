package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/rcliao/dicom-find/internal/dataset"
)

var (
	tagColor     = color.New(color.FgCyan)
	keywordColor = color.New(color.Bold)
	emptyColor   = color.New(color.Faint)
)

// readInput reads a file, or stdin when name is "-".
func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

// stdinPiped reports whether stdin is a pipe or file rather than a terminal.
func stdinPiped() bool {
	stat, err := os.Stdin.Stat()
	return err == nil && stat.Mode()&os.ModeCharDevice == 0
}

func printDatasets(w io.Writer, format string, results []*dataset.Dataset) error {
	switch format {
	case "json":
		if len(results) == 0 {
			_, err := fmt.Fprintln(w, "[]")
			return err
		}
		b, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "text":
		for i, ds := range results {
			if i > 0 {
				fmt.Fprintln(w)
			}
			printDataset(w, ds)
		}
		fmt.Fprintf(w, "%d result(s)\n", len(results))
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

func printDataset(w io.Writer, ds *dataset.Dataset) {
	for _, tag := range ds.Tags() {
		e, _ := ds.Get(tag)
		keyword := tag.Hex()
		if p, ok := dataset.Lookup(tag); ok {
			keyword = p.Keyword
		}

		var value string
		switch {
		case e.Null:
			value = emptyColor.Sprint("(null)")
		case strings.TrimSpace(e.Value) == "":
			value = emptyColor.Sprint("(empty)")
		default:
			value = strings.TrimSpace(e.Value)
		}
		fmt.Fprintf(w, "%s %-2s %-34s %s\n", tagColor.Sprint(tag), e.VR, keywordColor.Sprint(keyword), value)
	}
}
