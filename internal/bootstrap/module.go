package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"testforge/internal/bootstrap/config"
	"testforge/internal/bootstrap/database"
	"testforge/internal/bootstrap/logging"
	cacheinfra "testforge/internal/infrastructure/cache"
	sqliterepo "testforge/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "testforge/internal/infrastructure/persistence/sqlite/uow"
	riskinfra "testforge/internal/infrastructure/risk"
	slainfra "testforge/internal/infrastructure/sla"
	"testforge/internal/ports"
	"testforge/internal/usecase/artifact"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewArtifactRepository,
			fx.As(new(ports.ArtifactRepository)),
		),
	),
	fx.Provide(
		// The seed command needs the concrete type for EnsureProject, the
		// service only the lookup contract.
		fx.Annotate(
			sqliterepo.NewProjectRepository,
			fx.As(fx.Self()),
			fx.As(new(ports.ProjectLookup)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(
		fx.Annotate(
			provideRiskAssessor,
			fx.As(new(ports.RiskAssessor)),
		),
	),
	fx.Provide(
		fx.Annotate(
			provideSLATracker,
			fx.As(new(ports.SLATracker)),
		),
	),
	fx.Provide(artifact.NewService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideRiskAssessor(cfg config.Config) (*riskinfra.PolicyAssessor, error) {
	return riskinfra.LoadPolicyAssessor(cfg.Risk.PolicyFile)
}

func provideSLATracker(cfg config.Config, db *gorm.DB) *slainfra.Tracker {
	return slainfra.NewTracker(db, cfg.SLA.ReviewWindow)
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}
