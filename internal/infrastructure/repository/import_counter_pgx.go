package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
)

// PgxImportCounter applies chunk counts with a single UPDATE ... RETURNING per
// chunk on postgres, bypassing gorm on the contended import row.
type PgxImportCounter struct {
	pool *pgxpool.Pool
}

func NewPgxImportCounter(pool *pgxpool.Pool) *PgxImportCounter {
	return &PgxImportCounter{pool: pool}
}

func (c *PgxImportCounter) ApplyChunk(ctx context.Context, chunkID string) (domain.ChunkProgress, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return domain.ChunkProgress{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		importID string
		progress domain.ChunkProgress
	)
	err = tx.QueryRow(ctx, `
UPDATE import_chunks
   SET aggregated_at = NOW()
 WHERE id = $1
   AND aggregated_at IS NULL
   AND status IN ('completed', 'failed')
RETURNING import_id
`, chunkID).Scan(&importID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if err := tx.QueryRow(ctx, `SELECT import_id FROM import_chunks WHERE id = $1`, chunkID).Scan(&importID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ChunkProgress{}, domain.ErrChunkNotFound
			}
			return domain.ChunkProgress{}, fmt.Errorf("load chunk: %w", err)
		}
	case err != nil:
		return domain.ChunkProgress{}, fmt.Errorf("mark chunk aggregated: %w", err)
	default:
		progress.Applied = true
	}

	var status string
	if progress.Applied {
		err = tx.QueryRow(ctx, `
UPDATE imports AS i
   SET processed_rows      = i.processed_rows + c.processed_rows,
       success_rows        = i.success_rows + c.success_rows,
       failed_rows         = i.failed_rows + c.failed_rows,
       created_rows        = i.created_rows + c.created_rows,
       updated_rows        = i.updated_rows + c.updated_rows,
       skipped_rows        = i.skipped_rows + c.skipped_rows,
       processed_chunks    = i.processed_chunks + 1,
       failed_chunks       = i.failed_chunks + CASE WHEN c.status = 'failed' THEN 1 ELSE 0 END,
       current_chunk_index = c.chunk_index,
       updated_at          = NOW()
  FROM import_chunks AS c
 WHERE i.id = c.import_id
   AND c.id = $1
RETURNING i.status, i.total_chunks, i.processed_chunks, i.failed_chunks,
          i.processed_rows, i.success_rows, i.failed_rows,
          i.created_rows, i.updated_rows, i.skipped_rows
`, chunkID).Scan(
			&status, &progress.TotalChunks, &progress.ProcessedChunks, &progress.FailedChunks,
			&progress.Counters.ProcessedRows, &progress.Counters.SuccessRows, &progress.Counters.FailedRows,
			&progress.Counters.CreatedRows, &progress.Counters.UpdatedRows, &progress.Counters.SkippedRows,
		)
	} else {
		err = tx.QueryRow(ctx, `
SELECT status, total_chunks, processed_chunks, failed_chunks,
       processed_rows, success_rows, failed_rows,
       created_rows, updated_rows, skipped_rows
  FROM imports
 WHERE id = $1
`, importID).Scan(
			&status, &progress.TotalChunks, &progress.ProcessedChunks, &progress.FailedChunks,
			&progress.Counters.ProcessedRows, &progress.Counters.SuccessRows, &progress.Counters.FailedRows,
			&progress.Counters.CreatedRows, &progress.Counters.UpdatedRows, &progress.Counters.SkippedRows,
		)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ChunkProgress{}, domain.ErrImportNotFound
	}
	if err != nil {
		return domain.ChunkProgress{}, fmt.Errorf("increment import counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ChunkProgress{}, fmt.Errorf("commit chunk aggregation: %w", err)
	}

	progress.ImportID = importID
	progress.Status = domain.ImportStatus(status)
	return progress, nil
}
