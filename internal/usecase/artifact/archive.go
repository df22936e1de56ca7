package artifact

import (
	"context"
	"strings"

	domain "testforge/internal/domain/artifact"
)

// Archive retires an approved artifact. Draft and rejected artifacts are
// refused here (rejected ones archive through Revise), and archiving an
// archived artifact is an error rather than a no-op.
func (s *Service) Archive(ctx context.Context, artifactID string, userID string) (Detail, error) {
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
		if !domain.Archivable(art.State) {
			return domain.InvalidTransition(art.State, domain.ActionArchived)
		}

		now := nowUTCString()
		if err := transitionTx(txCtx, s.repo, artifactID, art.State, domain.StateArchived, domain.ActionArchived, domain.ActionArchived, now); err != nil {
			return err
		}
		return appendHistoryTx(txCtx, s.repo, artifactID, statePtr(art.State), domain.StateArchived, domain.ActionArchived, userID, now)
	}); err != nil {
		return Detail{}, err
	}

	s.setCacheBestEffort(ctx, cacheArtifactStateKey(artifactID), string(domain.StateArchived))
	return s.FindByID(ctx, artifactID)
}
