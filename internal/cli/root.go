// Package cli implements the dicom-find CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rcliao/dicom-find/internal/store"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	formatFlag string
	logLevel   string
	logJSON    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "dicom-find",
	Short: "Query a DICOM study index",
	Long:  "Index DICOM instance attributes and run Study/Series/Instance C-FIND style queries against them. SQLite-backed, single binary.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger()
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $DICOM_FIND_DB or ~/.dicom-find/index.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: $DICOM_FIND_LOG_LEVEL or warn)")
	RootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("DICOM_FIND_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dicom-find", "index.db")
}

func setupLogger() error {
	name := logLevel
	if name == "" {
		name = os.Getenv("DICOM_FIND_LOG_LEVEL")
	}
	level := slog.LevelWarn
	if name != "" {
		if err := level.UnmarshalText([]byte(name)); err != nil {
			return fmt.Errorf("log level: %w", err)
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if logJSON {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
