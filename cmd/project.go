package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/reviewlens/reviews-cli/internal/model"
	"github.com/reviewlens/reviews-cli/internal/store"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage review projects",
	Long:  "Commands for creating, listing, inspecting and deleting review projects.",
}

// -- project create --

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new project",
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

		description, _ := cmd.Flags().GetString("description")
		owner, _ := cmd.Flags().GetString("owner")

		p, err := st.CreateProject(ctx, args[0], description, owner)
		if err != nil {
			return eris.Wrap(err, "project create")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

// -- project list --

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		owner, _ := cmd.Flags().GetString("owner")
		limit, _ := cmd.Flags().GetInt("limit")

		projects, err := st.ListProjects(ctx, store.ProjectFilter{
			Status: model.ProjectStatus(status),
			Owner:  owner,
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "project list")
		}

		if len(projects) == 0 {
			fmt.Fprintln(os.Stderr, "No projects found.")
			return nil
		}

		formatProjectList(os.Stdout, projects)
		return nil
	},
}

// -- project show --

var projectShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show a project and its analysis summary",
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

		summary, err := st.ProjectSummary(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "project show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

// -- project delete --

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project and all its reviews and analyses",
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

		if err := st.DeleteProject(ctx, args[0]); err != nil {
			return eris.Wrap(err, "project delete")
		}
		fmt.Fprintf(os.Stdout, "Deleted project %s\n", args[0])
		return nil
	},
}

func formatProjectList(w io.Writer, projects []model.Project) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tOWNER\tSTATUS\tREVIEWS\tANALYZED\tCREATED")
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			p.ID, p.Name, p.Owner, p.Status,
			p.TotalReviews, p.AnalyzedReviews,
			p.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	tw.Flush()
}

func init() {
	projectCreateCmd.Flags().String("description", "", "project description")
	projectCreateCmd.Flags().String("owner", "", "project owner")

	projectListCmd.Flags().String("status", "", "filter by status (pending|processing|completed|error)")
	projectListCmd.Flags().String("owner", "", "filter by owner")
	projectListCmd.Flags().Int("limit", 0, "maximum projects to list")

	projectCmd.AddCommand(projectCreateCmd, projectListCmd, projectShowCmd, projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}
