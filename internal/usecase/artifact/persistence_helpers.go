package artifact

import (
	"context"

	domain "testforge/internal/domain/artifact"
	"testforge/internal/ports"
)

func appendHistoryTx(ctx context.Context, repo ports.ArtifactRepository, artifactID string, from *domain.State, to domain.State, action domain.Action, actorID string, at string) error {
	return repo.AppendHistory(ctx, ports.HistoryEntry{
		ArtifactID: artifactID,
		FromState:  from,
		ToState:    to,
		Action:     action,
		ActorID:    actorID,
		ActionAt:   at,
	})
}

// transitionTx consults the edge table, then runs the state CAS and maps a
// lost race to the domain's conflict error. A CAS miss after the table says
// yes means another transaction moved the artifact first.
//
// action names the edge being taken; stamp picks the lifecycle timestamp
// column and may differ from action (a partial approval stamps nothing, an
// auto-approved submit stamps approved_at).
func transitionTx(ctx context.Context, repo ports.ArtifactRepository, artifactID string, from, to domain.State, action domain.Action, stamp domain.Action, at string) error {
	if err := domain.Guard(from, action, to); err != nil {
		return err
	}
	moved, err := repo.Transition(ctx, ports.StateTransition{
		ArtifactID: artifactID,
		From:       from,
		To:         to,
		Stamp:      stamp,
		At:         at,
	})
	if err != nil {
		return err
	}
	if !moved {
		return domain.ErrStateConflict
	}
	return nil
}
