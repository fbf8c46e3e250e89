package importing

import (
	"context"
	"fmt"
	"time"

	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
)

// finalize closes an import once every chunk is done. A stopped import keeps
// its status; the conditional transition makes concurrent callers harmless.
func finalize(ctx context.Context, repo domain.Repository, progress domain.ChunkProgress, now time.Time) (domain.ImportStatus, error) {
	if !progress.AllChunksDone() {
		return progress.Status, nil
	}
	switch progress.Status {
	case domain.ImportStatusProcessing, domain.ImportStatusPaused:
	default:
		return progress.Status, nil
	}

	next := domain.ImportStatusCompleted
	if progress.FailedChunks > 0 {
		next = domain.ImportStatusFailed
	}
	ok, err := repo.TransitionImport(ctx, progress.ImportID,
		[]domain.ImportStatus{domain.ImportStatusProcessing, domain.ImportStatusPaused}, next,
		domain.ImportUpdate{CompletedAt: &now})
	if err != nil {
		return progress.Status, fmt.Errorf("%w: %v", ErrUpdateImport, err)
	}
	if !ok {
		return progress.Status, nil
	}
	return next, nil
}

// progressOf summarises an import for finalize.
func progressOf(imp *domain.Import) domain.ChunkProgress {
	return domain.ChunkProgress{
		ImportID:        imp.ID,
		Status:          imp.Status,
		TotalChunks:     imp.TotalChunks,
		ProcessedChunks: imp.ProcessedChunks,
		FailedChunks:    imp.FailedChunks,
		Counters:        imp.Counters,
	}
}
