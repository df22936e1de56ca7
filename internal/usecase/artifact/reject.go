package artifact

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	domain "testforge/internal/domain/artifact"
	"testforge/internal/ports"
)

// Reject resolves the caller's in_progress step as rejected, stores the
// supplied feedback entries verbatim, and terminates the workflow. The
// approval counter is untouched; a rejected artifact leaves review through
// revise, not through more approvals.
func (s *Service) Reject(ctx context.Context, artifactID string, userID string, comment string, feedback []FeedbackInput) (Detail, error) {
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

	for _, entry := range feedback {
		if strings.TrimSpace(entry.Category) == "" || strings.TrimSpace(entry.Description) == "" {
			return Detail{}, errFeedbackIncomplete
		}
		if !domain.ValidSeverity(entry.Severity) {
			return Detail{}, fmt.Errorf("%w: unknown feedback severity %q", domain.ErrValidation, entry.Severity)
		}
	}

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		art, err := s.repo.GetArtifact(txCtx, artifactID)
		if err != nil {
			return err
		}
		if art.State != domain.StateInReview {
			return domain.InvalidTransition(art.State, domain.ActionRejected)
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
		finished, err := s.repo.FinishStep(txCtx, step.ID, userID, domain.StepRejected, strPtr(strings.TrimSpace(comment)), now)
		if err != nil {
			return err
		}
		if !finished {
			return domain.ErrNotAssignee
		}

		if len(feedback) > 0 {
			entries := make([]ports.Feedback, 0, len(feedback))
			for _, entry := range feedback {
				entries = append(entries, ports.Feedback{
					ID:           uuid.New().String(),
					ArtifactID:   artifactID,
					Category:     entry.Category,
					Severity:     entry.Severity,
					Description:  entry.Description,
					SuggestedFix: entry.SuggestedFix,
					CreatedAt:    now,
				})
			}
			if err := s.repo.CreateFeedback(txCtx, entries); err != nil {
				return err
			}
		}

		if err := transitionTx(txCtx, s.repo, artifactID, domain.StateInReview, domain.StateRejected, domain.ActionRejected, domain.ActionRejected, now); err != nil {
			return err
		}
		if err := s.repo.CompleteWorkflow(txCtx, workflow.ID, now); err != nil {
			return err
		}
		if err := s.sla.Complete(txCtx, artifactID); err != nil {
			return err
		}
		return appendHistoryTx(txCtx, s.repo, artifactID, statePtr(domain.StateInReview), domain.StateRejected, domain.ActionRejected, userID, now)
	}); err != nil {
		return Detail{}, err
	}

	s.setCacheBestEffort(ctx, cacheArtifactStateKey(artifactID), string(domain.StateRejected))
	return s.FindByID(ctx, artifactID)
}
