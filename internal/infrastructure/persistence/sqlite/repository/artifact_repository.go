package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"testforge/internal/domain/artifact"
	"testforge/internal/errs"
	"testforge/internal/infrastructure/persistence/sqlite/model"
	"testforge/internal/ports"
)

type ArtifactRepository struct {
	db *gorm.DB
}

var _ ports.ArtifactRepository = (*ArtifactRepository)(nil)

func NewArtifactRepository(db *gorm.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

func (r *ArtifactRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *ArtifactRepository) CreateArtifact(ctx context.Context, a ports.Artifact) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row, err := toArtifactRow(a)
	if err != nil {
		return err
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert artifact")
	}
	return nil
}

func (r *ArtifactRepository) GetArtifact(ctx context.Context, id string) (ports.Artifact, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Artifact{}, err
	}

	var row model.Artifact
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Artifact{}, artifact.ErrArtifactNotFound
		}
		return ports.Artifact{}, errs.Wrap(err, "query artifact")
	}
	return fromArtifactRow(row)
}

func (r *ArtifactRepository) ListArtifacts(ctx context.Context, filter ports.ArtifactFilter) ([]ports.Artifact, int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}

	query := db.Model(&model.Artifact{})
	if filter.ProjectID != "" {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", string(filter.Type))
	}
	if len(filter.States) > 0 {
		states := make([]string, 0, len(filter.States))
		for _, s := range filter.States {
			states = append(states, string(s))
		}
		query = query.Where("state IN ?", states)
	} else if filter.State != "" {
		query = query.Where("state = ?", string(filter.State))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errs.Wrap(err, "count artifacts")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []model.Artifact
	if err := query.Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, 0, errs.Wrap(err, "query artifacts")
	}

	items := make([]ports.Artifact, 0, len(rows))
	for _, row := range rows {
		item, err := fromArtifactRow(row)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, nil
}

// Transition is the state compare-and-swap. The WHERE clause carries the
// expected from-state, so two racing callers cannot both win; the loser
// sees zero affected rows.
func (r *ArtifactRepository) Transition(ctx context.Context, change ports.StateTransition) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	updates := map[string]any{
		"state":      string(change.To),
		"updated_at": change.At,
	}
	if column := stampColumn(change.Stamp); column != "" {
		updates[column] = change.At
	}

	result := db.Model(&model.Artifact{}).
		Where("id = ? AND state = ?", change.ArtifactID, string(change.From)).
		Updates(updates)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "transition artifact state")
	}
	return result.RowsAffected == 1, nil
}

func stampColumn(action artifact.Action) string {
	switch action {
	case artifact.ActionSubmitted:
		return "submitted_at"
	case artifact.ActionApproved:
		return "approved_at"
	case artifact.ActionRejected:
		return "rejected_at"
	case artifact.ActionArchived, artifact.ActionRevised:
		return "archived_at"
	}
	return ""
}

func (r *ArtifactRepository) UpdateDraft(ctx context.Context, id string, title, content string, typ artifact.Type, updatedAt string) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	result := db.Model(&model.Artifact{}).
		Where("id = ? AND state = ?", id, string(artifact.StateDraft)).
		Updates(map[string]any{
			"title":      title,
			"content":    content,
			"type":       string(typ),
			"updated_at": updatedAt,
		})
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "update draft artifact")
	}
	return result.RowsAffected == 1, nil
}

// DeleteArtifact removes the artifact and everything hanging off it.
// Callers run this inside a unit of work.
func (r *ArtifactRepository) DeleteArtifact(ctx context.Context, id string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	var workflow model.ApprovalWorkflow
	workflowErr := db.Where("artifact_id = ?", id).Take(&workflow).Error
	if workflowErr != nil && !errors.Is(workflowErr, gorm.ErrRecordNotFound) {
		return errs.Wrap(workflowErr, "query workflow for delete")
	}

	if workflowErr == nil {
		if err := db.Where("workflow_id = ?", workflow.ID).Delete(&model.ApprovalStep{}).Error; err != nil {
			return errs.Wrap(err, "delete approval steps")
		}
		if err := db.Where("id = ?", workflow.ID).Delete(&model.ApprovalWorkflow{}).Error; err != nil {
			return errs.Wrap(err, "delete approval workflow")
		}
	}

	if err := db.Where("artifact_id = ?", id).Delete(&model.ArtifactHistory{}).Error; err != nil {
		return errs.Wrap(err, "delete artifact history")
	}
	if err := db.Where("artifact_id = ?", id).Delete(&model.ApprovalFeedback{}).Error; err != nil {
		return errs.Wrap(err, "delete approval feedback")
	}

	result := db.Where("id = ?", id).Delete(&model.Artifact{})
	if result.Error != nil {
		return errs.Wrap(result.Error, "delete artifact")
	}
	if result.RowsAffected == 0 {
		return artifact.ErrArtifactNotFound
	}
	return nil
}

func (r *ArtifactRepository) CreateWorkflow(ctx context.Context, w ports.Workflow) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.ApprovalWorkflow{
		ID:                w.ID,
		ArtifactID:        w.ArtifactID,
		RequiredApprovals: w.RequiredApprovals,
		CurrentApprovals:  w.CurrentApprovals,
		RequiresAdmin:     w.RequiresAdmin,
		RequiresLead:      w.RequiresLead,
		AutoApproved:      w.AutoApproved,
		AutoApproveReason: w.AutoApproveReason,
		StartedAt:         w.StartedAt,
		CompletedAt:       w.CompletedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert approval workflow")
	}
	return nil
}

func (r *ArtifactRepository) GetWorkflowByArtifact(ctx context.Context, artifactID string) (ports.Workflow, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Workflow{}, err
	}

	var row model.ApprovalWorkflow
	if err := db.Where("artifact_id = ?", artifactID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Workflow{}, artifact.ErrWorkflowNotFound
		}
		return ports.Workflow{}, errs.Wrap(err, "query approval workflow")
	}
	return fromWorkflowRow(row), nil
}

// AddApproval bumps current_approvals under the required_approvals cap in
// one conditional UPDATE, so concurrent approvals on the same workflow can
// never double-count past the quota.
func (r *ArtifactRepository) AddApproval(ctx context.Context, workflowID string, at string) (ports.Workflow, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Workflow{}, err
	}

	result := db.Model(&model.ApprovalWorkflow{}).
		Where("id = ? AND current_approvals < required_approvals", workflowID).
		Update("current_approvals", gorm.Expr("current_approvals + 1"))
	if result.Error != nil {
		return ports.Workflow{}, errs.Wrap(result.Error, "increment approvals")
	}
	if result.RowsAffected == 0 {
		return ports.Workflow{}, fmt.Errorf("%w: approval quota already met", artifact.ErrValidation)
	}

	var row model.ApprovalWorkflow
	if err := db.Where("id = ?", workflowID).Take(&row).Error; err != nil {
		return ports.Workflow{}, errs.Wrap(err, "reload approval workflow")
	}
	return fromWorkflowRow(row), nil
}

func (r *ArtifactRepository) CompleteWorkflow(ctx context.Context, workflowID string, completedAt string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.ApprovalWorkflow{}).
		Where("id = ? AND completed_at IS NULL", workflowID).
		Update("completed_at", completedAt)
	if result.Error != nil {
		return errs.Wrap(result.Error, "complete approval workflow")
	}
	if result.RowsAffected == 0 {
		return artifact.ErrWorkflowNotFound
	}
	return nil
}

func (r *ArtifactRepository) MarkAutoApproved(ctx context.Context, workflowID string, reason string, completedAt string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.ApprovalWorkflow{}).
		Where("id = ? AND completed_at IS NULL", workflowID).
		Updates(map[string]any{
			"auto_approved":       true,
			"auto_approve_reason": reason,
			"completed_at":        completedAt,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "mark workflow auto-approved")
	}
	if result.RowsAffected == 0 {
		return artifact.ErrWorkflowNotFound
	}
	return nil
}

func (r *ArtifactRepository) CreateStep(ctx context.Context, s ports.Step) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.ApprovalStep{
		ID:           s.ID,
		WorkflowID:   s.WorkflowID,
		AssignedToID: s.AssignedToID,
		Status:       string(s.Status),
		Comment:      s.Comment,
		CreatedAt:    s.CreatedAt,
		DecidedAt:    s.DecidedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert approval step")
	}
	return nil
}

func (r *ArtifactRepository) ActiveStep(ctx context.Context, workflowID string) (ports.Step, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Step{}, err
	}

	var row model.ApprovalStep
	if err := db.
		Where("workflow_id = ? AND status = ?", workflowID, string(artifact.StepInProgress)).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Step{}, artifact.ErrStepNotFound
		}
		return ports.Step{}, errs.Wrap(err, "query active step")
	}
	return fromStepRow(row), nil
}

func (r *ArtifactRepository) HasActiveStep(ctx context.Context, workflowID string) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	var count int64
	if err := db.Model(&model.ApprovalStep{}).
		Where("workflow_id = ? AND status = ?", workflowID, string(artifact.StepInProgress)).
		Count(&count).Error; err != nil {
		return false, errs.Wrap(err, "count active steps")
	}
	return count > 0, nil
}

func (r *ArtifactRepository) HasApprovedStep(ctx context.Context, workflowID string, assigneeID string) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	var count int64
	if err := db.Model(&model.ApprovalStep{}).
		Where("workflow_id = ? AND assigned_to_id = ? AND status = ?", workflowID, assigneeID, string(artifact.StepApproved)).
		Count(&count).Error; err != nil {
		return false, errs.Wrap(err, "count approved steps by assignee")
	}
	return count > 0, nil
}

// FinishStep resolves the step only while it is still in_progress and held
// by assignedTo; a concurrent second decision loses the conditional UPDATE
// and gets false back.
func (r *ArtifactRepository) FinishStep(ctx context.Context, stepID string, assignedTo string, status artifact.StepStatus, comment *string, decidedAt string) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	result := db.Model(&model.ApprovalStep{}).
		Where("id = ? AND assigned_to_id = ? AND status = ?", stepID, assignedTo, string(artifact.StepInProgress)).
		Updates(map[string]any{
			"status":     string(status),
			"comment":    comment,
			"decided_at": decidedAt,
		})
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "finish approval step")
	}
	return result.RowsAffected == 1, nil
}

func (r *ArtifactRepository) ListSteps(ctx context.Context, workflowID string) ([]ports.Step, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.ApprovalStep
	if err := db.
		Where("workflow_id = ?", workflowID).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query approval steps")
	}

	items := make([]ports.Step, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromStepRow(row))
	}
	return items, nil
}

func (r *ArtifactRepository) AppendHistory(ctx context.Context, entry ports.HistoryEntry) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	var fromState *string
	if entry.FromState != nil {
		s := string(*entry.FromState)
		fromState = &s
	}

	row := model.ArtifactHistory{
		ArtifactID: entry.ArtifactID,
		FromState:  fromState,
		ToState:    string(entry.ToState),
		Action:     string(entry.Action),
		ActorID:    entry.ActorID,
		ActionAt:   entry.ActionAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "append artifact history")
	}
	return nil
}

func (r *ArtifactRepository) ListHistory(ctx context.Context, artifactID string) ([]ports.HistoryEntry, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.ArtifactHistory
	if err := db.
		Where("artifact_id = ?", artifactID).
		Order("seq desc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query artifact history")
	}

	items := make([]ports.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		var fromState *artifact.State
		if row.FromState != nil {
			s := artifact.State(*row.FromState)
			fromState = &s
		}
		items = append(items, ports.HistoryEntry{
			Seq:        row.Seq,
			ArtifactID: row.ArtifactID,
			FromState:  fromState,
			ToState:    artifact.State(row.ToState),
			Action:     artifact.Action(row.Action),
			ActorID:    row.ActorID,
			ActionAt:   row.ActionAt,
		})
	}
	return items, nil
}

func (r *ArtifactRepository) CreateFeedback(ctx context.Context, entries []ports.Feedback) error {
	if len(entries) == 0 {
		return nil
	}

	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	rows := make([]model.ApprovalFeedback, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, model.ApprovalFeedback{
			ID:           entry.ID,
			ArtifactID:   entry.ArtifactID,
			Category:     entry.Category,
			Severity:     string(entry.Severity),
			Description:  entry.Description,
			SuggestedFix: entry.SuggestedFix,
			CreatedAt:    entry.CreatedAt,
		})
	}
	if err := db.Create(&rows).Error; err != nil {
		return errs.Wrap(err, "insert approval feedback")
	}
	return nil
}

func (r *ArtifactRepository) ListFeedback(ctx context.Context, artifactID string) ([]ports.Feedback, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.ApprovalFeedback
	if err := db.
		Where("artifact_id = ?", artifactID).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query approval feedback")
	}

	items := make([]ports.Feedback, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.Feedback{
			ID:           row.ID,
			ArtifactID:   row.ArtifactID,
			Category:     row.Category,
			Severity:     artifact.FeedbackSeverity(row.Severity),
			Description:  row.Description,
			SuggestedFix: row.SuggestedFix,
			CreatedAt:    row.CreatedAt,
		})
	}
	return items, nil
}

func toArtifactRow(a ports.Artifact) (model.Artifact, error) {
	factors := a.RiskFactors
	if factors == nil {
		factors = map[string]any{}
	}
	raw, err := json.Marshal(factors)
	if err != nil {
		return model.Artifact{}, errs.Wrap(err, "encode risk factors")
	}

	return model.Artifact{
		ID:                a.ID,
		ProjectID:         a.ProjectID,
		Type:              string(a.Type),
		State:             string(a.State),
		RiskLevel:         string(a.RiskLevel),
		RiskScore:         a.RiskScore,
		RiskFactors:       string(raw),
		AIConfidence:      a.AIConfidence,
		Title:             a.Title,
		Content:           a.Content,
		Version:           a.Version,
		PreviousVersionID: a.PreviousVersionID,
		SourceAgent:       a.SourceAgent,
		CreatedByID:       a.CreatedByID,
		SubmittedAt:       a.SubmittedAt,
		ApprovedAt:        a.ApprovedAt,
		RejectedAt:        a.RejectedAt,
		ArchivedAt:        a.ArchivedAt,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}, nil
}

func fromArtifactRow(row model.Artifact) (ports.Artifact, error) {
	factors := map[string]any{}
	if row.RiskFactors != "" {
		if err := json.Unmarshal([]byte(row.RiskFactors), &factors); err != nil {
			return ports.Artifact{}, errs.Wrapf(err, "decode risk factors for artifact %s", row.ID)
		}
	}

	return ports.Artifact{
		ID:                row.ID,
		ProjectID:         row.ProjectID,
		Type:              artifact.Type(row.Type),
		State:             artifact.State(row.State),
		RiskLevel:         artifact.RiskLevel(row.RiskLevel),
		RiskScore:         row.RiskScore,
		RiskFactors:       factors,
		AIConfidence:      row.AIConfidence,
		Title:             row.Title,
		Content:           row.Content,
		Version:           row.Version,
		PreviousVersionID: row.PreviousVersionID,
		SourceAgent:       row.SourceAgent,
		CreatedByID:       row.CreatedByID,
		SubmittedAt:       row.SubmittedAt,
		ApprovedAt:        row.ApprovedAt,
		RejectedAt:        row.RejectedAt,
		ArchivedAt:        row.ArchivedAt,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}, nil
}

func fromWorkflowRow(row model.ApprovalWorkflow) ports.Workflow {
	return ports.Workflow{
		ID:                row.ID,
		ArtifactID:        row.ArtifactID,
		RequiredApprovals: row.RequiredApprovals,
		CurrentApprovals:  row.CurrentApprovals,
		RequiresAdmin:     row.RequiresAdmin,
		RequiresLead:      row.RequiresLead,
		AutoApproved:      row.AutoApproved,
		AutoApproveReason: row.AutoApproveReason,
		StartedAt:         row.StartedAt,
		CompletedAt:       row.CompletedAt,
	}
}

func fromStepRow(row model.ApprovalStep) ports.Step {
	return ports.Step{
		ID:           row.ID,
		WorkflowID:   row.WorkflowID,
		AssignedToID: row.AssignedToID,
		Status:       artifact.StepStatus(row.Status),
		Comment:      row.Comment,
		CreatedAt:    row.CreatedAt,
		DecidedAt:    row.DecidedAt,
	}
}
