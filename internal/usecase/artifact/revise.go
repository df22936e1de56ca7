package artifact

import (
	"context"
	"strings"

	"github.com/google/uuid"

	domain "testforge/internal/domain/artifact"
	"testforge/internal/ports"
)

// Revise turns a rejected artifact into a new draft version. The new row
// carries version+1 and a back-reference to the superseded artifact, which
// is archived in the same transaction and never deleted. Risk is not
// re-assessed here; the inherited verdict stands until the next submit.
func (s *Service) Revise(ctx context.Context, artifactID string, userID string, content string) (Detail, error) {
	if err := s.checkMutationDeps(ctx); err != nil {
		return Detail{}, err
	}

	artifactID = strings.TrimSpace(artifactID)
	if artifactID == "" {
		return Detail{}, errArtifactRequired
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Detail{}, errActorRequired
	}
	if strings.TrimSpace(content) == "" {
		return Detail{}, errContentRequired
	}

	newID := uuid.New().String()
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		old, err := s.repo.GetArtifact(txCtx, artifactID)
		if err != nil {
			return err
		}
		if old.State != domain.StateRejected {
			return domain.InvalidTransition(old.State, domain.ActionRevised)
		}

		oldWorkflow, err := s.repo.GetWorkflowByArtifact(txCtx, artifactID)
		if err != nil {
			return err
		}

		now := nowUTCString()
		previousID := old.ID

		if err := s.repo.CreateArtifact(txCtx, ports.Artifact{
			ID:                newID,
			ProjectID:         old.ProjectID,
			Type:              old.Type,
			State:             domain.StateDraft,
			RiskLevel:         old.RiskLevel,
			RiskScore:         old.RiskScore,
			RiskFactors:       old.RiskFactors,
			AIConfidence:      old.AIConfidence,
			Title:             old.Title,
			Content:           content,
			Version:           old.Version + 1,
			PreviousVersionID: &previousID,
			SourceAgent:       old.SourceAgent,
			CreatedByID:       userID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}); err != nil {
			return err
		}

		// The replacement gets a fresh workflow with the same frozen
		// requirements; the counter starts over.
		if err := s.repo.CreateWorkflow(txCtx, ports.Workflow{
			ID:                uuid.New().String(),
			ArtifactID:        newID,
			RequiredApprovals: oldWorkflow.RequiredApprovals,
			CurrentApprovals:  0,
			RequiresAdmin:     oldWorkflow.RequiresAdmin,
			RequiresLead:      oldWorkflow.RequiresLead,
			AutoApproveReason: oldWorkflow.AutoApproveReason,
			StartedAt:         now,
		}); err != nil {
			return err
		}

		if err := transitionTx(txCtx, s.repo, artifactID, domain.StateRejected, domain.StateArchived, domain.ActionRevised, domain.ActionRevised, now); err != nil {
			return err
		}

		if err := appendHistoryTx(txCtx, s.repo, artifactID, statePtr(domain.StateRejected), domain.StateArchived, domain.ActionRevised, userID, now); err != nil {
			return err
		}
		return appendHistoryTx(txCtx, s.repo, newID, nil, domain.StateDraft, domain.ActionCreated, userID, now)
	}); err != nil {
		return Detail{}, err
	}

	s.setCacheBestEffort(ctx, cacheArtifactStateKey(artifactID), string(domain.StateArchived))
	s.setCacheBestEffort(ctx, cacheArtifactStateKey(newID), string(domain.StateDraft))
	return s.FindByID(ctx, newID)
}
