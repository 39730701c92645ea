package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/reviewlens/reviews-cli/internal/analysis"
	"github.com/reviewlens/reviews-cli/internal/resilience"
	"github.com/reviewlens/reviews-cli/internal/tracker"
)

var progressCmd = &cobra.Command{
	Use:   "progress <project-id>",
	Short: "Show analysis progress for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		// Progress only reads project counters; no providers or LLM needed.
		tr := tracker.New(st, analysis.NewEngine(nil, resilience.DefaultRetryConfig()), nil)

		progress, err := tr.GetProgress(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "progress")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(progress)
	},
}

func init() {
	rootCmd.AddCommand(progressCmd)
}
