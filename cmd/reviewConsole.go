package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"testforge/internal/bootstrap"
	"testforge/internal/bootstrap/logging"
	"testforge/internal/errs"
	"testforge/internal/ports"
	"testforge/internal/usecase/artifact"
	"testforge/internal/usecase/reviewconsole"
)

var consoleReviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Start the interactive review console",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		project, _ := cmd.Flags().GetString("project")
		reviewer, _ := cmd.Flags().GetString("reviewer")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")

		model := reviewconsole.NewReviewModel(ctx, svc, reviewconsole.Options{
			ProjectID:       project,
			Reviewer:        reviewer,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run review console")
		}
		return nil
	}),
}

func init() {
	consoleCmd.AddCommand(consoleReviewCmd)
	consoleReviewCmd.Flags().String("project", "", "Project id to scope the queue")
	consoleReviewCmd.Flags().String("reviewer", "", "Reviewer user id")
	consoleReviewCmd.Flags().Duration("refresh-interval", 5*time.Second, "Auto refresh interval")
	_ = consoleReviewCmd.MarkFlagRequired("reviewer")
}
