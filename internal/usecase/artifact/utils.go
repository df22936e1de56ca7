package artifact

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"testforge/internal/bootstrap/logging"
	"testforge/internal/errs"

	domain "testforge/internal/domain/artifact"
)

func nowUTCString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cacheArtifactStateKey(artifactID string) string {
	return "artifact_state:" + artifactID
}

// setCacheBestEffort mirrors committed state into the cache; failures are
// logged and swallowed because the database already holds the truth.
func (s *Service) setCacheBestEffort(ctx context.Context, key string, value string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, 0); err != nil {
		logging.Warn(ctx, "cache update failed", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
	}
}

func (s *Service) deleteCacheBestEffort(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		logging.Warn(ctx, "cache delete failed", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
	}
}

func (s *Service) checkMutationDeps(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return errRepoRequired
	}
	if s.uow == nil {
		return errUowRequired
	}
	return nil
}

func (s *Service) checkReadDeps(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return errRepoRequired
	}
	return nil
}

func statePtr(s domain.State) *domain.State {
	return &s
}
