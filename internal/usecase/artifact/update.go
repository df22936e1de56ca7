package artifact

import (
	"context"
	"fmt"
	"strings"

	domain "testforge/internal/domain/artifact"
)

// UpdateDraft patches title, content or type on a draft. Anything past draft
// is immutable content-wise; reviewers decide on exactly what was submitted.
func (s *Service) UpdateDraft(ctx context.Context, artifactID string, in UpdateInput) (Detail, error) {
	if err := s.checkMutationDeps(ctx); err != nil {
		return Detail{}, err
	}

	artifactID = strings.TrimSpace(artifactID)
	if artifactID == "" {
		return Detail{}, errArtifactRequired
	}
	if in.Title == nil && in.Content == nil && in.Type == nil {
		return Detail{}, fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return Detail{}, fmt.Errorf("%w: %s", domain.ErrValidation, errTitleRequired)
	}
	if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
		return Detail{}, fmt.Errorf("%w: %s", domain.ErrValidation, errContentRequired)
	}
	var newType *domain.Type
	if in.Type != nil {
		t, err := domain.ParseType(*in.Type)
		if err != nil {
			return Detail{}, err
		}
		newType = &t
	}

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		art, err := s.repo.GetArtifact(txCtx, artifactID)
		if err != nil {
			return err
		}
		if !domain.Editable(art.State) {
			return fmt.Errorf("%w: cannot edit artifact in state %q", domain.ErrValidation, art.State)
		}

		title := art.Title
		if in.Title != nil {
			title = strings.TrimSpace(*in.Title)
		}
		content := art.Content
		if in.Content != nil {
			content = *in.Content
		}
		typ := art.Type
		if newType != nil {
			typ = *newType
		}

		changed, err := s.repo.UpdateDraft(txCtx, artifactID, title, content, typ, nowUTCString())
		if err != nil {
			return err
		}
		if !changed {
			// The update is conditional on state = draft; the earlier check
			// passed, so a miss means someone moved the artifact mid-flight.
			return domain.ErrStateConflict
		}
		return nil
	}); err != nil {
		return Detail{}, err
	}

	return s.FindByID(ctx, artifactID)
}
