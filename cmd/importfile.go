package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	importProject string
	importPath    string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import reviews from a CSV or XLSX file",
	Long:  "Parses an uploaded review export (CSV or XLSX, flexible column names) and stores the rows on the project.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "ingest")
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Tracker.ImportFile(ctx, importProject, importPath)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		zap.L().Info("import finished",
			zap.String("project_id", report.ProjectID),
			zap.String("path", importPath),
			zap.Int("reviews", report.ReviewCount),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	importCmd.Flags().StringVar(&importProject, "project", "", "project id to import into")
	importCmd.Flags().StringVar(&importPath, "file", "", "path to a .csv or .xlsx review export")
	_ = importCmd.MarkFlagRequired("project")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
