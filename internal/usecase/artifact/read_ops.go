package artifact

import (
	"context"
	"strings"

	domain "testforge/internal/domain/artifact"
	"testforge/internal/ports"
)

// FindByID assembles the full detail view: artifact, workflow, steps,
// history and feedback in one read. Artifacts created before their workflow
// committed do not exist, so a missing workflow is surfaced as-is.
func (s *Service) FindByID(ctx context.Context, artifactID string) (Detail, error) {
	if err := s.checkReadDeps(ctx); err != nil {
		return Detail{}, err
	}

	artifactID = strings.TrimSpace(artifactID)
	if artifactID == "" {
		return Detail{}, errArtifactRequired
	}

	art, err := s.repo.GetArtifact(ctx, artifactID)
	if err != nil {
		return Detail{}, err
	}
	wf, err := s.repo.GetWorkflowByArtifact(ctx, artifactID)
	if err != nil {
		return Detail{}, err
	}
	steps, err := s.repo.ListSteps(ctx, wf.ID)
	if err != nil {
		return Detail{}, err
	}
	history, err := s.repo.ListHistory(ctx, artifactID)
	if err != nil {
		return Detail{}, err
	}
	feedback, err := s.repo.ListFeedback(ctx, artifactID)
	if err != nil {
		return Detail{}, err
	}

	return Detail{
		Artifact: art,
		Workflow: wf,
		Steps:    steps,
		History:  history,
		Feedback: feedback,
	}, nil
}

// List returns one page of artifacts plus the unpaged total.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	if err := s.checkReadDeps(ctx); err != nil {
		return ListResult{}, err
	}

	repoFilter := ports.ArtifactFilter{
		ProjectID: strings.TrimSpace(filter.ProjectID),
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	}
	if raw := strings.TrimSpace(filter.Type); raw != "" {
		t, err := domain.ParseType(raw)
		if err != nil {
			return ListResult{}, err
		}
		repoFilter.Type = t
	}
	if raw := strings.TrimSpace(filter.State); raw != "" {
		st, err := domain.ParseState(raw)
		if err != nil {
			return ListResult{}, err
		}
		repoFilter.State = st
	}

	items, total, err := s.repo.ListArtifacts(ctx, repoFilter)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// ReviewQueue lists artifacts waiting on reviewers, scoped to a project when
// one is given. It covers both the unclaimed and the claimed half of the
// queue so dashboards see everything still in flight.
func (s *Service) ReviewQueue(ctx context.Context, projectID string, limit, offset int) (ListResult, error) {
	if err := s.checkReadDeps(ctx); err != nil {
		return ListResult{}, err
	}

	items, total, err := s.repo.ListArtifacts(ctx, ports.ArtifactFilter{
		ProjectID: strings.TrimSpace(projectID),
		States:    domain.ReviewQueueStates,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// History returns the append-only audit trail, newest first. Asking for a
// missing artifact is a not-found error, not an empty list.
func (s *Service) History(ctx context.Context, artifactID string) ([]ports.HistoryEntry, error) {
	if err := s.checkReadDeps(ctx); err != nil {
		return nil, err
	}

	artifactID = strings.TrimSpace(artifactID)
	if artifactID == "" {
		return nil, errArtifactRequired
	}
	if _, err := s.repo.GetArtifact(ctx, artifactID); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, artifactID)
}

// Feedback returns the structured rejection feedback for an artifact.
func (s *Service) Feedback(ctx context.Context, artifactID string) ([]ports.Feedback, error) {
	if err := s.checkReadDeps(ctx); err != nil {
		return nil, err
	}

	artifactID = strings.TrimSpace(artifactID)
	if artifactID == "" {
		return nil, errArtifactRequired
	}
	if _, err := s.repo.GetArtifact(ctx, artifactID); err != nil {
		return nil, err
	}
	return s.repo.ListFeedback(ctx, artifactID)
}

// CachedState answers state lookups from the cache when possible, falling
// back to the database and refreshing the entry on a miss.
func (s *Service) CachedState(ctx context.Context, artifactID string) (domain.State, error) {
	if err := s.checkReadDeps(ctx); err != nil {
		return "", err
	}

	artifactID = strings.TrimSpace(artifactID)
	if artifactID == "" {
		return "", errArtifactRequired
	}

	if s.cache != nil {
		if raw, found, err := s.cache.Get(ctx, cacheArtifactStateKey(artifactID)); err == nil && found {
			if st, perr := domain.ParseState(raw); perr == nil {
				return st, nil
			}
		}
	}

	art, err := s.repo.GetArtifact(ctx, artifactID)
	if err != nil {
		return "", err
	}
	s.setCacheBestEffort(ctx, cacheArtifactStateKey(artifactID), string(art.State))
	return art.State, nil
}
