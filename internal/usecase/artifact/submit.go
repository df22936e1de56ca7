package artifact

import (
	"context"
	"strings"

	domain "testforge/internal/domain/artifact"
)

// SubmitForReview moves a draft into the review pipeline. The caller
// resolves the project's auto-approve policy up front (typically through
// the risk collaborator's ProjectSettings) so the decision here is a pure
// function of the policy and the artifact's stored risk and confidence.
//
// Auto-approved artifacts jump straight to approved and never open an SLA
// window; everything else lands in pending_review with a tracked deadline.
func (s *Service) SubmitForReview(ctx context.Context, artifactID string, userID string, policy domain.AutoApprovePolicy) (Detail, error) {
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
		if art.State != domain.StateDraft {
			return domain.InvalidTransition(art.State, domain.ActionSubmitted)
		}

		workflow, err := s.repo.GetWorkflowByArtifact(txCtx, artifactID)
		if err != nil {
			return err
		}

		now := nowUTCString()
		if domain.ShouldAutoApprove(policy, art.RiskLevel, art.AIConfidence) {
			finalState = domain.StateApproved

			if err := transitionTx(txCtx, s.repo, artifactID, domain.StateDraft, domain.StateApproved, domain.ActionSubmitted, domain.ActionApproved, now); err != nil {
				return err
			}

			reason := "auto-approved by project policy"
			if workflow.AutoApproveReason != nil && *workflow.AutoApproveReason != "" {
				reason = *workflow.AutoApproveReason
			}
			if err := s.repo.MarkAutoApproved(txCtx, workflow.ID, reason, now); err != nil {
				return err
			}

			return appendHistoryTx(txCtx, s.repo, artifactID, statePtr(domain.StateDraft), domain.StateApproved, domain.ActionApproved, userID, now)
		}

		finalState = domain.StatePendingReview

		if err := transitionTx(txCtx, s.repo, artifactID, domain.StateDraft, domain.StatePendingReview, domain.ActionSubmitted, domain.ActionSubmitted, now); err != nil {
			return err
		}
		if err := s.sla.Open(txCtx, artifactID); err != nil {
			return err
		}
		return appendHistoryTx(txCtx, s.repo, artifactID, statePtr(domain.StateDraft), domain.StatePendingReview, domain.ActionSubmitted, userID, now)
	}); err != nil {
		return Detail{}, err
	}

	s.setCacheBestEffort(ctx, cacheArtifactStateKey(artifactID), string(finalState))
	return s.FindByID(ctx, artifactID)
}
