package importing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
	"github.com/mohammadpnp/member-import/internal/domain/member"
	"github.com/mohammadpnp/member-import/internal/metrics"
)

var ErrChunkJob = errors.New("chunk job failed")

type ChunkTask struct {
	ImportID string
	ChunkID  string
	Attempt  int
}

type chunkReader interface {
	ReadChunk(ctx context.Context, path, disk string, startRow, endRow int64) ([]member.RawRow, error)
}

type chunkProcessor interface {
	Process(ctx context.Context, chunk *domain.Chunk, imp *domain.Import, rows []member.RawRow) (domain.ChunkResult, error)
}

// ChunkJob is the worker entrypoint for one chunk. A nil return acknowledges
// the delivery; an error asks the queue for another attempt.
type ChunkJob struct {
	repo        domain.Repository
	aggregator  domain.Aggregator
	reader      chunkReader
	processor   chunkProcessor
	maxAttempts int
	log         zerolog.Logger
	now         func() time.Time
}

func NewChunkJob(repo domain.Repository, aggregator domain.Aggregator, reader chunkReader, processor chunkProcessor, maxAttempts int, log zerolog.Logger) *ChunkJob {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &ChunkJob{
		repo:        repo,
		aggregator:  aggregator,
		reader:      reader,
		processor:   processor,
		maxAttempts: maxAttempts,
		log:         log.With().Str("component", "chunk_job").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (j *ChunkJob) Handle(ctx context.Context, task ChunkTask) error {
	log := j.log.With().Str("import_id", task.ImportID).Str("chunk_id", task.ChunkID).Int("attempt", task.Attempt).Logger()

	imp, err := j.repo.GetImport(ctx, task.ImportID)
	if errors.Is(err, domain.ErrImportNotFound) {
		log.Warn().Msg("import not found, discarding job")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGetImport, err)
	}

	if imp.Status == domain.ImportStatusStopped {
		if _, err := j.repo.TransitionChunk(ctx, task.ChunkID,
			[]domain.ChunkStatus{domain.ChunkStatusPending, domain.ChunkStatusPaused}, domain.ChunkStatusStopped, nil); err != nil {
			return fmt.Errorf("%w: %v", ErrChunkJob, err)
		}
		log.Info().Msg("import stopped, chunk will not run")
		return nil
	}

	chunk, err := j.repo.GetChunk(ctx, task.ChunkID)
	if errors.Is(err, domain.ErrChunkNotFound) {
		log.Warn().Msg("chunk not found, discarding job")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChunkJob, err)
	}

	// A previous delivery finished the chunk but died before counting it.
	if (chunk.Status == domain.ChunkStatusCompleted || chunk.Status == domain.ChunkStatusFailed) && chunk.AggregatedAt == nil {
		return j.aggregate(ctx, log, chunk.ID)
	}
	if chunk.Status.SkipOnDelivery() {
		log.Debug().Str("status", string(chunk.Status)).Msg("chunk already handled, discarding redelivery")
		return nil
	}

	if imp.Status == domain.ImportStatusPaused {
		parked, err := j.repo.TransitionChunk(ctx, chunk.ID,
			[]domain.ChunkStatus{domain.ChunkStatusPending}, domain.ChunkStatusPaused, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrChunkJob, err)
		}
		// A resume that listed pending chunks before the park landed would
		// never see this chunk again, so look at the import once more.
		if imp, err = j.repo.GetImport(ctx, task.ImportID); err != nil {
			return fmt.Errorf("%w: %v", ErrGetImport, err)
		}
		if imp.Status == domain.ImportStatusPaused {
			log.Info().Msg("import paused, chunk parked")
			return nil
		}
		if parked {
			if _, err := j.repo.TransitionChunk(ctx, chunk.ID,
				[]domain.ChunkStatus{domain.ChunkStatusPaused}, domain.ChunkStatusPending, nil); err != nil {
				return fmt.Errorf("%w: %v", ErrChunkJob, err)
			}
		}
		log.Info().Str("status", string(imp.Status)).Msg("import left paused while parking, running chunk")
	}

	claimed, err := j.repo.ClaimChunk(ctx, chunk.ID, j.now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChunkJob, err)
	}
	if !claimed {
		log.Debug().Msg("chunk claimed by another delivery")
		return nil
	}

	started := time.Now()
	result, err := j.run(ctx, log, imp, chunk)
	if err != nil {
		return j.fail(ctx, log, task, chunk, err, time.Since(started))
	}

	finished := j.now()
	if err := j.repo.CompleteChunk(ctx, chunk.ID, result, finished); err != nil {
		return j.fail(ctx, log, task, chunk, err, time.Since(started))
	}
	metrics.ChunkFinished(string(domain.ChunkStatusCompleted), result.Duration)
	log.Info().
		Int64("total", result.Total).
		Int64("created", result.Created).
		Int64("updated", result.Updated).
		Int64("skipped", result.Skipped).
		Int64("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("chunk completed")

	// The chunk is already completed; a retry only has to aggregate.
	return j.aggregate(ctx, log, chunk.ID)
}

func (j *ChunkJob) run(ctx context.Context, log zerolog.Logger, imp *domain.Import, chunk *domain.Chunk) (domain.ChunkResult, error) {
	if err := j.checkStopped(ctx, imp.ID); err != nil {
		return domain.ChunkResult{}, err
	}
	rows, err := j.reader.ReadChunk(ctx, imp.Path, imp.Disk, chunk.StartRow, chunk.EndRow)
	if err != nil {
		return domain.ChunkResult{}, fmt.Errorf("read rows %d-%d: %w", chunk.StartRow, chunk.EndRow, err)
	}
	if int64(len(rows)) != chunk.RowCount() {
		log.Warn().Int("read", len(rows)).Int64("expected", chunk.RowCount()).Msg("chunk row count differs from partition")
	}
	if err := j.checkStopped(ctx, imp.ID); err != nil {
		return domain.ChunkResult{}, err
	}
	return j.processor.Process(ctx, chunk, imp, rows)
}

// checkStopped re-reads the import so a stop issued mid-flight is seen.
func (j *ChunkJob) checkStopped(ctx context.Context, importID string) error {
	imp, err := j.repo.GetImport(ctx, importID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGetImport, err)
	}
	if imp.Status == domain.ImportStatusStopped || imp.Flags.StopRequested {
		return domain.ErrImportStopped
	}
	return nil
}

func (j *ChunkJob) fail(ctx context.Context, log zerolog.Logger, task ChunkTask, chunk *domain.Chunk, cause error, elapsed time.Duration) error {
	ctx = context.WithoutCancel(ctx)

	if errors.Is(cause, domain.ErrImportStopped) {
		reason := cause.Error()
		if _, err := j.repo.TransitionChunk(ctx, chunk.ID,
			[]domain.ChunkStatus{domain.ChunkStatusProcessing}, domain.ChunkStatusStopped, &reason); err != nil {
			return fmt.Errorf("%w: %v", ErrChunkJob, err)
		}
		metrics.ChunkFinished(string(domain.ChunkStatusStopped), elapsed)
		log.Info().Msg("import stopped mid-flight, chunk stopped")
		return nil
	}

	if task.Attempt < j.maxAttempts {
		log.Warn().Err(cause).Msg("chunk failed, releasing for retry")
		if err := j.repo.ReleaseChunk(ctx, chunk.ID, cause.Error()); err != nil {
			log.Error().Err(err).Msg("failed to release chunk")
		}
		return fmt.Errorf("%w: %v", ErrChunkJob, cause)
	}

	log.Error().Err(cause).Msg("chunk failed on final attempt")
	if _, err := j.repo.FailChunk(ctx, chunk.ID, cause.Error(), elapsed, j.now()); err != nil {
		return fmt.Errorf("%w: %v (mark failed: %v)", ErrChunkJob, cause, err)
	}
	metrics.ChunkFinished(string(domain.ChunkStatusFailed), elapsed)
	if err := j.aggregate(ctx, log, chunk.ID); err != nil {
		log.Error().Err(err).Msg("failed to count failed chunk")
	}
	return fmt.Errorf("%w: %v", ErrChunkJob, cause)
}

func (j *ChunkJob) aggregate(ctx context.Context, log zerolog.Logger, chunkID string) error {
	progress, err := j.aggregator.ApplyChunk(ctx, chunkID)
	if err != nil {
		return fmt.Errorf("%w: aggregate: %v", ErrChunkJob, err)
	}
	status, err := finalize(ctx, j.repo, progress, j.now())
	if err != nil {
		return err
	}
	if status != progress.Status {
		log.Info().Str("status", string(status)).Int64("processed_rows", progress.Counters.ProcessedRows).Msg("import finished")
	}
	return nil
}
