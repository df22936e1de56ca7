package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"testforge/internal/bootstrap"
	"testforge/internal/bootstrap/logging"
	"testforge/internal/errs"
	slainfra "testforge/internal/infrastructure/sla"
	"testforge/internal/ports"
	"testforge/internal/usecase/artifact"
)

var slaCmd = &cobra.Command{
	Use:   "sla",
	Short: "Inspect review SLA windows",
}

var slaOverdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List review windows past their deadline",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		tracker := slainfra.NewTracker(app.DB, app.Config.SLA.ReviewWindow)
		windows, err := tracker.Overdue(ctx, time.Now())
		if err != nil {
			logging.Error(ctx, "list overdue sla windows failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list overdue sla windows")
		}

		if len(windows) == 0 {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), "no overdue reviews"); err != nil {
				return errs.Wrap(err, "write sla output")
			}
			return nil
		}
		for _, window := range windows {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s opened=%s deadline=%s\n",
				window.ArtifactID, window.OpenedAt, window.Deadline); err != nil {
				return errs.Wrap(err, "write sla window")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(slaCmd)
	slaCmd.AddCommand(slaOverdueCmd)
}
