package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"testforge/internal/domain/artifact"
	"testforge/internal/errs"
	"testforge/internal/infrastructure/persistence/sqlite/model"
	"testforge/internal/ports"
)

type ProjectRepository struct {
	db *gorm.DB
}

var _ ports.ProjectLookup = (*ProjectRepository)(nil)

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) GetProject(ctx context.Context, id string) (ports.Project, error) {
	if ctx == nil {
		return ports.Project{}, errors.New("context is required")
	}

	db := r.db.WithContext(ctx)
	if tx := ports.TxFromContext(ctx); tx != nil {
		gormTx, ok := tx.(*gorm.DB)
		if !ok || gormTx == nil {
			return ports.Project{}, errors.New("invalid tx in context")
		}
		db = gormTx.WithContext(ctx)
	}

	var row model.Project
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Project{}, artifact.ErrProjectNotFound
		}
		return ports.Project{}, errs.Wrap(err, "query project")
	}

	return ports.Project{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt}, nil
}

// EnsureProject upserts a project row; the CLI uses it to seed projects.
func (r *ProjectRepository) EnsureProject(ctx context.Context, project ports.Project) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	row := model.Project{ID: project.ID, Name: project.Name, CreatedAt: project.CreatedAt}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{"name": row.Name}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert project")
	}
	return nil
}
