package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reviewlens/reviews-cli/internal/analysis"
)

var (
	analyzeProject string
	analyzeMode    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run sentiment analysis over a project's reviews",
	Long:  "Classifies every not-yet-analyzed review with a Claude model. Standard mode favors quality; fast mode favors throughput.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		mode := analysis.Mode(analyzeMode)
		if analyzeMode == "" {
			mode = analysis.Mode(cfg.Analysis.Mode)
		}

		report, err := env.Tracker.RunAnalysis(ctx, analyzeProject, mode)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		zap.L().Info("analysis finished",
			zap.String("project_id", report.ProjectID),
			zap.Int("analyzed", report.ReviewCount),
			zap.Int("skipped", report.Skipped),
			zap.Int("fallbacks", report.Fallbacks),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeProject, "project", "", "project id to analyze")
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "", "analysis mode: standard or fast (default from config)")
	_ = analyzeCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(analyzeCmd)
}
