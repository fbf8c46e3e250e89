package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mohammadpnp/member-import/internal/application/importing"
	"github.com/mohammadpnp/member-import/internal/application/reconcile"
	"github.com/mohammadpnp/member-import/internal/config"
	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
	"github.com/mohammadpnp/member-import/internal/infrastructure/db"
	"github.com/mohammadpnp/member-import/internal/infrastructure/file"
	"github.com/mohammadpnp/member-import/internal/infrastructure/identity"
	"github.com/mohammadpnp/member-import/internal/infrastructure/queue"
	"github.com/mohammadpnp/member-import/internal/infrastructure/repository"
	"github.com/mohammadpnp/member-import/internal/infrastructure/storage"
	"github.com/mohammadpnp/member-import/internal/normalize"
)

// App holds every wired component. Binaries use the parts they need.
type App struct {
	Config *config.Config
	Log    zerolog.Logger

	DB    *gorm.DB
	pool  *pgxpool.Pool
	redis *redis.Client

	Queue   *queue.RedisQueue
	Imports *repository.ImportRepository
	Members *repository.MemberStore
	Linker  *reconcile.AccountLinker

	StartImport  importing.StartImport
	PauseImport  importing.PauseImport
	ResumeImport importing.ResumeImport
	StopImport   importing.StopImport
	Status       importing.GetImportStatus
	RowResults   importing.GetRowResults
	ChunkJob     *importing.ChunkJob
}

func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	gdb, err := db.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log, DB: gdb}

	a.Imports = repository.NewImportRepository(gdb)
	a.Members = repository.NewMemberStore(gdb)

	opts := reconcile.OptionsFromConfig(cfg.Matching)
	if err := a.Members.SeedCatalog(ctx, []string{opts.DefaultRole, opts.OfficerRole}, nil, nil); err != nil {
		a.Close()
		return nil, fmt.Errorf("seed role catalog: %w", err)
	}

	// Postgres gets the single-statement counter; sqlite keeps the gorm transaction.
	var aggregator domain.Aggregator = a.Imports
	if gdb.Dialector.Name() == "postgres" {
		a.pool, err = pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		aggregator = repository.NewPgxImportCounter(a.pool)
	}

	files, err := storage.NewManagerFromConfig(cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}
	reader := file.NewCSVReader(files)

	a.redis = queue.NewRedisClient(cfg.Redis)
	a.Queue = queue.NewRedisQueue(a.redis, cfg.Redis)

	a.Linker = reconcile.NewAccountLinker(identity.NewClient(cfg.Identity), a.Members, cfg.Identity.Timeout, log)
	processor := importing.NewChunkProcessor(
		normalize.NewCleaner(cfg.Matching.Acronyms),
		reconcile.NewReconciler(a.Members, a.Linker, opts, log),
		reconcile.NewAssigner(a.Members, opts, log),
		log,
	)

	a.StartImport = importing.NewStartImport(a.Imports, files, reader, a.Queue, importing.StartImportConfig{
		ChunkSize:            cfg.Import.ChunkSize,
		EstimatedRowDuration: cfg.Import.EstimatedRowDuration,
	}, log)
	a.PauseImport = importing.NewPauseImport(a.Imports, log)
	a.ResumeImport = importing.NewResumeImport(a.Imports, a.Queue, log)
	a.StopImport = importing.NewStopImport(a.Imports, a.Queue, log)
	a.Status = importing.NewGetImportStatus(a.Imports)
	a.RowResults = importing.NewGetRowResults(a.Imports)
	a.ChunkJob = importing.NewChunkJob(a.Imports, aggregator, reader, processor, cfg.Import.MaxAttempts, log)

	return a, nil
}

// NewConsumer feeds queued chunk jobs to the chunk job handler.
func (a *App) NewConsumer() *queue.Consumer {
	handler := func(ctx context.Context, msg queue.Message) error {
		return a.ChunkJob.Handle(ctx, importing.ChunkTask{
			ImportID: msg.ImportID,
			ChunkID:  msg.ChunkID,
			Attempt:  msg.Attempt,
		})
	}
	return queue.NewConsumer(a.Queue, handler, queue.ConsumerConfig{
		Workers:      a.Config.Import.Workers,
		MaxAttempts:  a.Config.Import.MaxAttempts,
		Backoff:      a.Config.Import.Backoff,
		JobTimeout:   a.Config.Import.JobTimeout,
		PollInterval: a.Config.Import.PollInterval,
	}, a.Log)
}

// Close waits for pending identity requests and releases connections.
func (a *App) Close() {
	if a.Linker != nil {
		a.Linker.Wait()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Log.Warn().Err(err).Msg("close redis client")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
