package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"testforge/internal/bootstrap"
	"testforge/internal/bootstrap/logging"
	"testforge/internal/errs"
	"testforge/internal/ports"
	"testforge/internal/usecase/artifact"
)

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Manage test artifacts and their approval lifecycle",
}

var artifactCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a draft artifact with its approval workflow",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		project, _ := cmd.Flags().GetString("project")
		typ, _ := cmd.Flags().GetString("type")
		title, _ := cmd.Flags().GetString("title")
		agent, _ := cmd.Flags().GetString("agent")
		actor, _ := cmd.Flags().GetString("actor")
		content, err := resolveContent(cmd, true)
		if err != nil {
			return err
		}

		var confidence *float64
		if cmd.Flags().Changed("confidence") {
			v, _ := cmd.Flags().GetFloat64("confidence")
			confidence = &v
		}

		detail, err := svc.Create(ctx, artifact.CreateInput{
			ProjectID:    project,
			Type:         typ,
			SourceAgent:  agent,
			Title:        title,
			Content:      content,
			AIConfidence: confidence,
			CreatedByID:  actor,
		})
		if err != nil {
			logging.Error(ctx, "create artifact failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "create artifact")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "created artifact: %s (risk=%s, approvals required=%d)\n",
			detail.Artifact.ID, detail.Artifact.RiskLevel, detail.Workflow.RequiredApprovals); err != nil {
			return errs.Wrap(err, "write create output")
		}
		return nil
	}),
}

var artifactUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Patch a draft artifact's title, content or type",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetString("id")

		var input artifact.UpdateInput
		if cmd.Flags().Changed("title") {
			title, _ := cmd.Flags().GetString("title")
			input.Title = &title
		}
		if cmd.Flags().Changed("type") {
			typ, _ := cmd.Flags().GetString("type")
			input.Type = &typ
		}
		if cmd.Flags().Changed("content") || cmd.Flags().Changed("content-file") {
			content, err := resolveContent(cmd, true)
			if err != nil {
				return err
			}
			input.Content = &content
		}

		detail, err := svc.UpdateDraft(ctx, id, input)
		if err != nil {
			logging.Error(ctx, "update artifact failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "update artifact")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "updated artifact: %s\n", detail.Artifact.ID); err != nil {
			return errs.Wrap(err, "write update output")
		}
		return nil
	}),
}

var artifactShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show artifact detail, workflow, steps, history and feedback",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetString("id")
		detail, err := svc.FindByID(ctx, id)
		if err != nil {
			logging.Error(ctx, "show artifact failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "show artifact")
		}

		return printDetail(cmd, detail)
	}),
}

var artifactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List artifacts",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		project, _ := cmd.Flags().GetString("project")
		typ, _ := cmd.Flags().GetString("type")
		state, _ := cmd.Flags().GetString("state")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		result, err := svc.List(ctx, artifact.ListFilter{
			ProjectID: project,
			Type:      typ,
			State:     state,
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			logging.Error(ctx, "list artifacts failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list artifacts")
		}

		return printArtifactList(cmd, result)
	}),
}

var artifactQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List artifacts waiting on reviewers",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		project, _ := cmd.Flags().GetString("project")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		result, err := svc.ReviewQueue(ctx, project, limit, offset)
		if err != nil {
			logging.Error(ctx, "list review queue failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list review queue")
		}

		return printArtifactList(cmd, result)
	}),
}

var artifactDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a draft or archived artifact and all of its records",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *artifact.Service, _ ports.RiskAssessor) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, _ := cmd.Flags().GetString("id")
		if err := svc.Delete(ctx, id); err != nil {
			logging.Error(ctx, "delete artifact failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "delete artifact")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted artifact: %s\n", id); err != nil {
			return errs.Wrap(err, "write delete output")
		}
		return nil
	}),
}

func printArtifactList(cmd *cobra.Command, result artifact.ListResult) error {
	if len(result.Items) == 0 {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), "no artifacts"); err != nil {
			return errs.Wrap(err, "write list output")
		}
		return nil
	}

	for _, item := range result.Items {
		if _, err := fmt.Fprintf(
			cmd.OutOrStdout(),
			"%s [%s] type=%s risk=%s v%d title=%s\n",
			item.ID,
			item.State,
			item.Type,
			item.RiskLevel,
			item.Version,
			item.Title,
		); err != nil {
			return errs.Wrap(err, "write list item")
		}
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "total: %d\n", result.Total); err != nil {
		return errs.Wrap(err, "write list total")
	}
	return nil
}

func printDetail(cmd *cobra.Command, detail artifact.Detail) error {
	out := cmd.OutOrStdout()
	a := detail.Artifact

	lines := []string{
		fmt.Sprintf("ID: %s", a.ID),
		fmt.Sprintf("Project: %s", a.ProjectID),
		fmt.Sprintf("Type: %s", a.Type),
		fmt.Sprintf("State: %s", a.State),
		fmt.Sprintf("Risk: %s (score %.1f)", a.RiskLevel, a.RiskScore),
		fmt.Sprintf("Version: %d", a.Version),
		fmt.Sprintf("Title: %s", a.Title),
		fmt.Sprintf("SourceAgent: %s", a.SourceAgent),
		fmt.Sprintf("CreatedBy: %s", a.CreatedByID),
		fmt.Sprintf("CreatedAt: %s", a.CreatedAt),
	}
	if a.AIConfidence != nil {
		lines = append(lines, fmt.Sprintf("AIConfidence: %.1f", *a.AIConfidence))
	}
	if a.PreviousVersionID != nil {
		lines = append(lines, fmt.Sprintf("PreviousVersion: %s", *a.PreviousVersionID))
	}
	stamps := []struct {
		label string
		value *string
	}{
		{"SubmittedAt", a.SubmittedAt},
		{"ApprovedAt", a.ApprovedAt},
		{"RejectedAt", a.RejectedAt},
		{"ArchivedAt", a.ArchivedAt},
	}
	for _, stamp := range stamps {
		if stamp.value != nil {
			lines = append(lines, fmt.Sprintf("%s: %s", stamp.label, *stamp.value))
		}
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return errs.Wrap(err, "write show output")
		}
	}

	w := detail.Workflow
	autoApproved := ""
	if w.AutoApproved {
		autoApproved = " auto-approved"
		if w.AutoApproveReason != nil {
			autoApproved = fmt.Sprintf(" auto-approved (%s)", *w.AutoApproveReason)
		}
	}
	if _, err := fmt.Fprintf(out, "\nWorkflow: %d/%d approvals%s\n", w.CurrentApprovals, w.RequiredApprovals, autoApproved); err != nil {
		return errs.Wrap(err, "write workflow output")
	}

	if len(detail.Steps) > 0 {
		if _, err := fmt.Fprintln(out, "\nSteps:"); err != nil {
			return errs.Wrap(err, "write steps output")
		}
		for _, step := range detail.Steps {
			comment := ""
			if step.Comment != nil && *step.Comment != "" {
				comment = " comment=" + *step.Comment
			}
			if _, err := fmt.Fprintf(out, "- %s reviewer=%s%s\n", step.Status, step.AssignedToID, comment); err != nil {
				return errs.Wrap(err, "write step")
			}
		}
	}

	if len(detail.History) > 0 {
		if _, err := fmt.Fprintln(out, "\nHistory:"); err != nil {
			return errs.Wrap(err, "write history output")
		}
		for _, entry := range detail.History {
			from := "-"
			if entry.FromState != nil {
				from = string(*entry.FromState)
			}
			if _, err := fmt.Fprintf(out, "- %s %s -> %s by %s at %s\n", entry.Action, from, entry.ToState, entry.ActorID, entry.ActionAt); err != nil {
				return errs.Wrap(err, "write history entry")
			}
		}
	}

	if len(detail.Feedback) > 0 {
		if _, err := fmt.Fprintln(out, "\nFeedback:"); err != nil {
			return errs.Wrap(err, "write feedback output")
		}
		for _, entry := range detail.Feedback {
			fix := ""
			if entry.SuggestedFix != nil && *entry.SuggestedFix != "" {
				fix = " fix=" + *entry.SuggestedFix
			}
			if _, err := fmt.Fprintf(out, "- [%s/%s] %s%s\n", entry.Category, entry.Severity, entry.Description, fix); err != nil {
				return errs.Wrap(err, "write feedback entry")
			}
		}
	}

	if _, err := fmt.Fprintf(out, "\nContent:\n%s\n", a.Content); err != nil {
		return errs.Wrap(err, "write content output")
	}
	return nil
}

func resolveContent(cmd *cobra.Command, required bool) (string, error) {
	inline, _ := cmd.Flags().GetString("content")
	contentFile, _ := cmd.Flags().GetString("content-file")

	if strings.TrimSpace(inline) != "" && strings.TrimSpace(contentFile) != "" {
		return "", errors.New("content and content-file are mutually exclusive")
	}

	if strings.TrimSpace(contentFile) != "" {
		raw, err := os.ReadFile(contentFile)
		if err != nil {
			return "", errs.Wrapf(err, "read content file %q", contentFile)
		}
		inline = string(raw)
	}

	if required && strings.TrimSpace(inline) == "" {
		return "", errors.New("content is required (set --content or --content-file)")
	}
	return inline, nil
}

func init() {
	rootCmd.AddCommand(artifactCmd)
	artifactCmd.AddCommand(artifactCreateCmd)
	artifactCmd.AddCommand(artifactUpdateCmd)
	artifactCmd.AddCommand(artifactShowCmd)
	artifactCmd.AddCommand(artifactListCmd)
	artifactCmd.AddCommand(artifactQueueCmd)
	artifactCmd.AddCommand(artifactDeleteCmd)

	artifactCreateCmd.Flags().String("project", "", "Project id")
	artifactCreateCmd.Flags().String("type", "", "Artifact type (test_case|script|test_plan|test_data)")
	artifactCreateCmd.Flags().String("title", "", "Artifact title")
	artifactCreateCmd.Flags().String("content", "", "Artifact content")
	artifactCreateCmd.Flags().String("content-file", "", "Path to artifact content file")
	artifactCreateCmd.Flags().String("agent", "", "Source agent that generated the artifact")
	artifactCreateCmd.Flags().Float64("confidence", 0, "AI confidence score (0-100)")
	artifactCreateCmd.Flags().String("actor", "", "Creating user id")
	_ = artifactCreateCmd.MarkFlagRequired("project")
	_ = artifactCreateCmd.MarkFlagRequired("type")
	_ = artifactCreateCmd.MarkFlagRequired("title")
	_ = artifactCreateCmd.MarkFlagRequired("actor")

	artifactUpdateCmd.Flags().String("id", "", "Artifact id")
	artifactUpdateCmd.Flags().String("title", "", "New title")
	artifactUpdateCmd.Flags().String("content", "", "New content")
	artifactUpdateCmd.Flags().String("content-file", "", "Path to new content file")
	artifactUpdateCmd.Flags().String("type", "", "New artifact type")
	_ = artifactUpdateCmd.MarkFlagRequired("id")

	artifactShowCmd.Flags().String("id", "", "Artifact id")
	_ = artifactShowCmd.MarkFlagRequired("id")

	artifactListCmd.Flags().String("project", "", "Filter by project id")
	artifactListCmd.Flags().String("type", "", "Filter by artifact type")
	artifactListCmd.Flags().String("state", "", "Filter by state")
	artifactListCmd.Flags().Int("limit", 0, "Page size (0 = unlimited)")
	artifactListCmd.Flags().Int("offset", 0, "Page offset")

	artifactQueueCmd.Flags().String("project", "", "Filter by project id")
	artifactQueueCmd.Flags().Int("limit", 0, "Page size (0 = unlimited)")
	artifactQueueCmd.Flags().Int("offset", 0, "Page offset")

	artifactDeleteCmd.Flags().String("id", "", "Artifact id")
	_ = artifactDeleteCmd.MarkFlagRequired("id")
}
