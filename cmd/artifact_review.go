package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"testforge/internal/bootstrap"
	"testforge/internal/bootstrap/logging"
	domain "testforge/internal/domain/artifact"
	"testforge/internal/errs"
	"testforge/internal/ports"
	"testforge/internal/usecase/artifact"
)

var artifactSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a draft artifact for review",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *artifact.Service, assessor ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetString("id")
		actor, _ := cmd.Flags().GetString("actor")

		detail, err := svc.FindByID(ctx, id)
		if err != nil {
			return errs.Wrap(err, "load artifact")
		}

		policy, err := assessor.ProjectSettings(ctx, detail.Artifact.ProjectID)
		if err != nil {
			logging.Error(ctx, "resolve auto-approve policy failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "resolve auto-approve policy")
		}

		got, err := svc.SubmitForReview(ctx, id, actor, policy)
		if err != nil {
			logging.Error(ctx, "submit artifact failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "submit artifact")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "submitted artifact: %s state=%s\n", id, got.Artifact.State); err != nil {
			return errs.Wrap(err, "write submit output")
		}
		return nil
	}),
}

var artifactClaimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim a pending artifact for review",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetString("id")
		actor, _ := cmd.Flags().GetString("actor")

		if _, err := svc.ClaimReview(ctx, id, actor); err != nil {
			logging.Error(ctx, "claim artifact failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "claim artifact")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "claimed artifact: %s reviewer=%s\n", id, actor); err != nil {
			return errs.Wrap(err, "write claim output")
		}
		return nil
	}),
}

var artifactApproveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve the claimed artifact",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetString("id")
		actor, _ := cmd.Flags().GetString("actor")
		comment, _ := cmd.Flags().GetString("comment")

		got, err := svc.Approve(ctx, id, actor, comment)
		if err != nil {
			logging.Error(ctx, "approve artifact failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "approve artifact")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "approved: %s state=%s approvals=%d/%d\n",
			id, got.Artifact.State, got.Workflow.CurrentApprovals, got.Workflow.RequiredApprovals); err != nil {
			return errs.Wrap(err, "write approve output")
		}
		return nil
	}),
}

var artifactRejectCmd = &cobra.Command{
	Use:   "reject",
	Short: "Reject the claimed artifact with structured feedback",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetString("id")
		actor, _ := cmd.Flags().GetString("actor")
		comment, _ := cmd.Flags().GetString("comment")
		rawFeedback, _ := cmd.Flags().GetStringArray("feedback")

		feedback, err := parseFeedbackFlags(rawFeedback)
		if err != nil {
			return err
		}

		if _, err := svc.Reject(ctx, id, actor, comment, feedback); err != nil {
			logging.Error(ctx, "reject artifact failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "reject artifact")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "rejected artifact: %s feedback entries=%d\n", id, len(feedback)); err != nil {
			return errs.Wrap(err, "write reject output")
		}
		return nil
	}),
}

var artifactReviseCmd = &cobra.Command{
	Use:   "revise",
	Short: "Create the next version of a rejected artifact",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetString("id")
		actor, _ := cmd.Flags().GetString("actor")
		content, err := resolveContent(cmd, true)
		if err != nil {
			return err
		}

		got, err := svc.Revise(ctx, id, actor, content)
		if err != nil {
			logging.Error(ctx, "revise artifact failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "revise artifact")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "revised artifact: %s -> %s (v%d)\n",
			id, got.Artifact.ID, got.Artifact.Version); err != nil {
			return errs.Wrap(err, "write revise output")
		}
		return nil
	}),
}

var artifactArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive an approved artifact",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetString("id")
		actor, _ := cmd.Flags().GetString("actor")

		if _, err := svc.Archive(ctx, id, actor); err != nil {
			logging.Error(ctx, "archive artifact failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "archive artifact")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "archived artifact: %s\n", id); err != nil {
			return errs.Wrap(err, "write archive output")
		}
		return nil
	}),
}

var artifactHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the audit trail of an artifact",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetString("id")
		entries, err := svc.History(ctx, id)
		if err != nil {
			logging.Error(ctx, "show artifact history failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "show artifact history")
		}

		for _, entry := range entries {
			from := "-"
			if entry.FromState != nil {
				from = string(*entry.FromState)
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s by %s at %s\n",
				entry.Action, from, entry.ToState, entry.ActorID, entry.ActionAt); err != nil {
				return errs.Wrap(err, "write history entry")
			}
		}
		return nil
	}),
}

var artifactFeedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Show rejection feedback for an artifact",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetString("id")
		entries, err := svc.Feedback(ctx, id)
		if err != nil {
			logging.Error(ctx, "show artifact feedback failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "show artifact feedback")
		}

		if len(entries) == 0 {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), "no feedback"); err != nil {
				return errs.Wrap(err, "write feedback output")
			}
			return nil
		}
		for _, entry := range entries {
			fix := ""
			if entry.SuggestedFix != nil && *entry.SuggestedFix != "" {
				fix = " fix=" + *entry.SuggestedFix
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "[%s/%s] %s%s\n",
				entry.Category, entry.Severity, entry.Description, fix); err != nil {
				return errs.Wrap(err, "write feedback entry")
			}
		}
		return nil
	}),
}

// parseFeedbackFlags parses --feedback entries of the form
// category:severity:description[:suggested fix].
func parseFeedbackFlags(raw []string) ([]artifact.FeedbackInput, error) {
	entries := make([]artifact.FeedbackInput, 0, len(raw))
	for _, item := range raw {
		parts := strings.SplitN(item, ":", 4)
		if len(parts) < 3 {
			return nil, fmt.Errorf("invalid feedback %q, want category:severity:description[:fix]", item)
		}
		entry := artifact.FeedbackInput{
			Category:    strings.TrimSpace(parts[0]),
			Severity:    domain.FeedbackSeverity(strings.TrimSpace(parts[1])),
			Description: strings.TrimSpace(parts[2]),
		}
		if len(parts) == 4 {
			fix := strings.TrimSpace(parts[3])
			if fix != "" {
				entry.SuggestedFix = &fix
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func init() {
	artifactCmd.AddCommand(artifactSubmitCmd)
	artifactCmd.AddCommand(artifactClaimCmd)
	artifactCmd.AddCommand(artifactApproveCmd)
	artifactCmd.AddCommand(artifactRejectCmd)
	artifactCmd.AddCommand(artifactReviseCmd)
	artifactCmd.AddCommand(artifactArchiveCmd)
	artifactCmd.AddCommand(artifactHistoryCmd)
	artifactCmd.AddCommand(artifactFeedbackCmd)

	artifactSubmitCmd.Flags().String("id", "", "Artifact id")
	artifactSubmitCmd.Flags().String("actor", "", "Submitting user id")
	_ = artifactSubmitCmd.MarkFlagRequired("id")
	_ = artifactSubmitCmd.MarkFlagRequired("actor")

	artifactClaimCmd.Flags().String("id", "", "Artifact id")
	artifactClaimCmd.Flags().String("actor", "", "Reviewer user id")
	_ = artifactClaimCmd.MarkFlagRequired("id")
	_ = artifactClaimCmd.MarkFlagRequired("actor")

	artifactApproveCmd.Flags().String("id", "", "Artifact id")
	artifactApproveCmd.Flags().String("actor", "", "Reviewer user id")
	artifactApproveCmd.Flags().String("comment", "", "Optional review comment")
	_ = artifactApproveCmd.MarkFlagRequired("id")
	_ = artifactApproveCmd.MarkFlagRequired("actor")

	artifactRejectCmd.Flags().String("id", "", "Artifact id")
	artifactRejectCmd.Flags().String("actor", "", "Reviewer user id")
	artifactRejectCmd.Flags().String("comment", "", "Optional review comment")
	artifactRejectCmd.Flags().StringArray("feedback", nil, "Feedback entry category:severity:description[:fix]")
	_ = artifactRejectCmd.MarkFlagRequired("id")
	_ = artifactRejectCmd.MarkFlagRequired("actor")

	artifactReviseCmd.Flags().String("id", "", "Rejected artifact id")
	artifactReviseCmd.Flags().String("actor", "", "Revising user id")
	artifactReviseCmd.Flags().String("content", "", "Revised content")
	artifactReviseCmd.Flags().String("content-file", "", "Path to revised content file")
	_ = artifactReviseCmd.MarkFlagRequired("id")
	_ = artifactReviseCmd.MarkFlagRequired("actor")

	artifactArchiveCmd.Flags().String("id", "", "Artifact id")
	artifactArchiveCmd.Flags().String("actor", "", "Archiving user id")
	_ = artifactArchiveCmd.MarkFlagRequired("id")
	_ = artifactArchiveCmd.MarkFlagRequired("actor")

	artifactHistoryCmd.Flags().String("id", "", "Artifact id")
	_ = artifactHistoryCmd.MarkFlagRequired("id")

	artifactFeedbackCmd.Flags().String("id", "", "Artifact id")
	_ = artifactFeedbackCmd.MarkFlagRequired("id")
}
