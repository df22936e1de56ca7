package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"testforge/internal/bootstrap"
	"testforge/internal/bootstrap/logging"
	"testforge/internal/errs"
	sqliterepo "testforge/internal/infrastructure/persistence/sqlite/repository"
	"testforge/internal/ports"
	"testforge/internal/usecase/artifact"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create or update a project",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetString("id")
		name, _ := cmd.Flags().GetString("name")

		repo := sqliterepo.NewProjectRepository(app.DB)
		if err := repo.EnsureProject(ctx, ports.Project{
			ID:        id,
			Name:      name,
			CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		}); err != nil {
			logging.Error(ctx, "upsert project failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "upsert project")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "project ready: %s (%s)\n", id, name); err != nil {
			return errs.Wrap(err, "write project output")
		}
		return nil
	}),
}

var projectPolicyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Show the resolved auto-approve policy for a project",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, _ *artifact.Service, assessor ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetString("id")
		policy, err := assessor.ProjectSettings(ctx, id)
		if err != nil {
			logging.Error(ctx, "resolve project policy failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "resolve project policy")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "auto-approve: enabled=%t max_risk=%s min_confidence=%.1f\n",
			policy.Enabled, policy.MaxRisk, policy.MinConfidence); err != nil {
			return errs.Wrap(err, "write policy output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectPolicyCmd)

	projectAddCmd.Flags().String("id", "", "Project id")
	projectAddCmd.Flags().String("name", "", "Project name")
	_ = projectAddCmd.MarkFlagRequired("id")
	_ = projectAddCmd.MarkFlagRequired("name")

	projectPolicyCmd.Flags().String("id", "", "Project id")
	_ = projectPolicyCmd.MarkFlagRequired("id")
}
