package sla

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"testforge/internal/errs"
	"testforge/internal/infrastructure/persistence/sqlite/model"
	"testforge/internal/ports"
)

// Tracker is the bundled SLA collaborator: one sqlite row per review
// window, deadline = opened_at + window. It honors the tx-in-context
// convention so SLA rows commit with the operation that opened them.
type Tracker struct {
	db     *gorm.DB
	window time.Duration
}

var _ ports.SLATracker = (*Tracker)(nil)

func NewTracker(db *gorm.DB, window time.Duration) *Tracker {
	return &Tracker{db: db, window: window}
}

func (t *Tracker) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	if tx := ports.TxFromContext(ctx); tx != nil {
		gormTx, ok := tx.(*gorm.DB)
		if !ok || gormTx == nil {
			return nil, errors.New("invalid tx in context")
		}
		return gormTx.WithContext(ctx), nil
	}
	return t.db.WithContext(ctx), nil
}

func (t *Tracker) Open(ctx context.Context, artifactID string) error {
	db, err := t.dbFromContext(ctx)
	if err != nil {
		return err
	}

	var open int64
	if err := db.Model(&model.SLAWindow{}).
		Where("artifact_id = ? AND completed_at IS NULL", artifactID).
		Count(&open).Error; err != nil {
		return errs.Wrap(err, "count open sla windows")
	}
	if open > 0 {
		return errors.New("sla window already open for artifact")
	}

	now := time.Now().UTC()
	row := model.SLAWindow{
		ID:         uuid.New().String(),
		ArtifactID: artifactID,
		OpenedAt:   now.Format(time.RFC3339Nano),
		Deadline:   now.Add(t.window).Format(time.RFC3339Nano),
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "open sla window")
	}
	return nil
}

func (t *Tracker) Complete(ctx context.Context, artifactID string) error {
	db, err := t.dbFromContext(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	result := db.Model(&model.SLAWindow{}).
		Where("artifact_id = ? AND completed_at IS NULL", artifactID).
		Update("completed_at", now)
	if result.Error != nil {
		return errs.Wrap(result.Error, "complete sla window")
	}
	// No open window is fine: auto-approved artifacts never opened one.
	return nil
}

// Window is the read view of a tracked deadline.
type Window struct {
	ArtifactID  string
	OpenedAt    string
	Deadline    string
	CompletedAt *string
	Overdue     bool
}

// Overdue lists open windows whose deadline has passed, oldest first.
func (t *Tracker) Overdue(ctx context.Context, now time.Time) ([]Window, error) {
	db, err := t.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.SLAWindow
	if err := db.
		Where("completed_at IS NULL AND deadline < ?", now.UTC().Format(time.RFC3339Nano)).
		Order("deadline asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query overdue sla windows")
	}

	items := make([]Window, 0, len(rows))
	for _, row := range rows {
		items = append(items, Window{
			ArtifactID:  row.ArtifactID,
			OpenedAt:    row.OpenedAt,
			Deadline:    row.Deadline,
			CompletedAt: row.CompletedAt,
			Overdue:     true,
		})
	}
	return items, nil
}
