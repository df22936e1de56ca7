package artifact

import (
	"context"
	"strings"

	domain "testforge/internal/domain/artifact"
)

// Approve resolves the caller's in_progress step and counts it toward the
// workflow quota. Quota met means terminal approval (workflow completed,
// SLA window closed); short of quota the artifact returns to the review
// pool for a fresh claim by another reviewer.
//
// The step update and the approval increment run as conditional writes in
// the same transaction, so a doubled approve on one step cannot count
// twice.
func (s *Service) Approve(ctx context.Context, artifactID string, userID string, comment string) (Detail, error) {
	if err := s.checkMutationDeps(ctx); err != nil {
		return Detail{}, err
	}
	if s.sla == nil {
		return Detail{}, errSLARequired
	}

	artifactID = strings.TrimSpace(artifactID)
	if artifactID == "" {
		return Detail{}, errArtifactRequired
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Detail{}, errActorRequired
	}

	var finalState domain.State
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		art, err := s.repo.GetArtifact(txCtx, artifactID)
		if err != nil {
			return err
		}
		if art.State != domain.StateInReview {
			return domain.InvalidTransition(art.State, domain.ActionApproved)
		}

		workflow, err := s.repo.GetWorkflowByArtifact(txCtx, artifactID)
		if err != nil {
			return err
		}

		step, err := s.repo.ActiveStep(txCtx, workflow.ID)
		if err != nil {
			return err
		}
		if step.AssignedToID != userID {
			return domain.ErrNotAssignee
		}

		now := nowUTCString()
		finished, err := s.repo.FinishStep(txCtx, step.ID, userID, domain.StepApproved, strPtr(strings.TrimSpace(comment)), now)
		if err != nil {
			return err
		}
		if !finished {
			return domain.ErrNotAssignee
		}

		updated, err := s.repo.AddApproval(txCtx, workflow.ID, now)
		if err != nil {
			return err
		}

		if updated.CurrentApprovals >= updated.RequiredApprovals {
			finalState = domain.StateApproved

			if err := transitionTx(txCtx, s.repo, artifactID, domain.StateInReview, domain.StateApproved, domain.ActionApproved, domain.ActionApproved, now); err != nil {
				return err
			}
			if err := s.repo.CompleteWorkflow(txCtx, workflow.ID, now); err != nil {
				return err
			}
			if err := s.sla.Complete(txCtx, artifactID); err != nil {
				return err
			}
			return appendHistoryTx(txCtx, s.repo, artifactID, statePtr(domain.StateInReview), domain.StateApproved, domain.ActionApproved, userID, now)
		}

		// Partial approval: back to the pool for the next reviewer.
		// No lifecycle timestamp moves; approved_at waits for the quota.
		finalState = domain.StatePendingReview

		if err := transitionTx(txCtx, s.repo, artifactID, domain.StateInReview, domain.StatePendingReview, domain.ActionApproved, "", now); err != nil {
			return err
		}
		return appendHistoryTx(txCtx, s.repo, artifactID, statePtr(domain.StateInReview), domain.StatePendingReview, domain.ActionApproved, userID, now)
	}); err != nil {
		return Detail{}, err
	}

	s.setCacheBestEffort(ctx, cacheArtifactStateKey(artifactID), string(finalState))
	return s.FindByID(ctx, artifactID)
}
