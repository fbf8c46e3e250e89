package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mohammadpnp/member-import/internal/config"
	"github.com/mohammadpnp/member-import/internal/infrastructure/db"
	"github.com/mohammadpnp/member-import/internal/infrastructure/repository"
)

func TestPgxImportCounterAppliesOnceIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	gdb, err := db.Open(config.DatabaseConfig{Driver: "postgres", URL: dsn}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to connect db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to open pgx pool: %v", err)
	}
	defer pool.Close()

	repo := repository.NewImportRepository(gdb)
	counter := repository.NewPgxImportCounter(pool)
	imp, chunks := seedImport(t, repo, 12, 10)

	for _, c := range chunks {
		if _, err := repo.ClaimChunk(ctx, c.ID, time.Now()); err != nil {
			t.Fatalf("claim failed: %v", err)
		}
		if err := repo.CompleteChunk(ctx, c.ID, resultOf(c.EndRow-c.StartRow+1), time.Now()); err != nil {
			t.Fatalf("complete failed: %v", err)
		}
		first, err := counter.ApplyChunk(ctx, c.ID)
		if err != nil {
			t.Fatalf("apply failed: %v", err)
		}
		if !first.Applied {
			t.Fatalf("expected first apply to count chunk %d", c.ChunkIndex)
		}
		second, err := counter.ApplyChunk(ctx, c.ID)
		if err != nil {
			t.Fatalf("second apply failed: %v", err)
		}
		if second.Applied {
			t.Fatalf("chunk %d counted twice", c.ChunkIndex)
		}
	}

	got, err := repo.GetImport(ctx, imp.ID)
	if err != nil {
		t.Fatalf("get import failed: %v", err)
	}
	if got.Counters.ProcessedRows != 12 || got.ProcessedChunks != 2 {
		t.Fatalf("unexpected totals: rows=%d chunks=%d", got.Counters.ProcessedRows, got.ProcessedChunks)
	}
}
