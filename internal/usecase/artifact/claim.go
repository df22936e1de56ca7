package artifact

import (
	"context"
	"strings"

	"github.com/google/uuid"

	domain "testforge/internal/domain/artifact"
	"testforge/internal/ports"
)

// ClaimReview assigns a pending_review artifact to one reviewer. The state
// CAS is the race arbiter: of two concurrent claims exactly one moves the
// artifact to in_review and creates the single in_progress step.
func (s *Service) ClaimReview(ctx context.Context, artifactID string, userID string) (Detail, error) {
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

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		art, err := s.repo.GetArtifact(txCtx, artifactID)
		if err != nil {
			return err
		}
		if art.State == domain.StateInReview {
			// Someone else got here first; the in_review state implies an
			// active step.
			return domain.ErrAlreadyClaimed
		}
		if err := domain.Guard(art.State, domain.ActionClaimed, domain.StateInReview); err != nil {
			return err
		}

		workflow, err := s.repo.GetWorkflowByArtifact(txCtx, artifactID)
		if err != nil {
			return err
		}

		active, err := s.repo.HasActiveStep(txCtx, workflow.ID)
		if err != nil {
			return err
		}
		if active {
			return domain.ErrAlreadyClaimed
		}

		// A reviewer counts toward the quota at most once; partial
		// approvals send the artifact back to the pool for someone else.
		approvedAlready, err := s.repo.HasApprovedStep(txCtx, workflow.ID, userID)
		if err != nil {
			return err
		}
		if approvedAlready {
			return domain.ErrDuplicateReviewer
		}

		now := nowUTCString()
		moved, err := s.repo.Transition(txCtx, ports.StateTransition{
			ArtifactID: artifactID,
			From:       domain.StatePendingReview,
			To:         domain.StateInReview,
			Stamp:      domain.ActionClaimed,
			At:         now,
		})
		if err != nil {
			return err
		}
		if !moved {
			return domain.ErrAlreadyClaimed
		}

		if err := s.repo.CreateStep(txCtx, ports.Step{
			ID:           uuid.New().String(),
			WorkflowID:   workflow.ID,
			AssignedToID: userID,
			Status:       domain.StepInProgress,
			CreatedAt:    now,
		}); err != nil {
			return err
		}

		return appendHistoryTx(txCtx, s.repo, artifactID, statePtr(domain.StatePendingReview), domain.StateInReview, domain.ActionClaimed, userID, now)
	}); err != nil {
		return Detail{}, err
	}

	s.setCacheBestEffort(ctx, cacheArtifactStateKey(artifactID), string(domain.StateInReview))
	return s.FindByID(ctx, artifactID)
}
