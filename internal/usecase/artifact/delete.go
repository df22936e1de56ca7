package artifact

import (
	"context"
	"fmt"
	"strings"

	domain "testforge/internal/domain/artifact"
)

// Delete removes an artifact and every row hanging off it. Only drafts and
// archived artifacts may go; anything inside the review pipeline stays put.
func (s *Service) Delete(ctx context.Context, artifactID string) error {
	if err := s.checkMutationDeps(ctx); err != nil {
		return err
	}

	artifactID = strings.TrimSpace(artifactID)
	if artifactID == "" {
		return errArtifactRequired
	}

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		art, err := s.repo.GetArtifact(txCtx, artifactID)
		if err != nil {
			return err
		}
		if !domain.Deletable(art.State) {
			return fmt.Errorf("%w: cannot delete artifact in state %q", domain.ErrValidation, art.State)
		}
		return s.repo.DeleteArtifact(txCtx, artifactID)
	}); err != nil {
		return err
	}

	s.deleteCacheBestEffort(ctx, cacheArtifactStateKey(artifactID))
	return nil
}
