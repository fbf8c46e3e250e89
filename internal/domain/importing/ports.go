package importing

import (
	"context"
	"time"
)

// ImportUpdate carries the optional columns written alongside a status change.
type ImportUpdate struct {
	Flags       *ControlFlags
	StartedAt   *time.Time
	PausedAt    *time.Time
	ResumedAt   *time.Time
	StoppedAt   *time.Time
	CompletedAt *time.Time
}

// Repository persists imports and their chunks. Every conditional method
// reports false when the row was not in one of the expected states.
type Repository interface {
	CreateWithChunks(ctx context.Context, imp *Import, chunks []Chunk) error
	GetImport(ctx context.Context, id string) (*Import, error)
	TransitionImport(ctx context.Context, id string, from []ImportStatus, next ImportStatus, update ImportUpdate) (bool, error)

	GetChunk(ctx context.Context, id string) (*Chunk, error)
	ListChunks(ctx context.Context, importID string, statuses ...ChunkStatus) ([]Chunk, error)
	ClaimChunk(ctx context.Context, id string, startedAt time.Time) (bool, error)
	TransitionChunk(ctx context.Context, id string, from []ChunkStatus, next ChunkStatus, reason *string) (bool, error)
	TransitionChunks(ctx context.Context, importID string, from, next ChunkStatus) (int64, error)
	ReleaseChunk(ctx context.Context, id string, reason string) error
	CompleteChunk(ctx context.Context, id string, result ChunkResult, completedAt time.Time) error
	FailChunk(ctx context.Context, id string, reason string, duration time.Duration, completedAt time.Time) (bool, error)
}

// Aggregator folds a finished chunk into its import's counters exactly once,
// using datastore-side increments.
type Aggregator interface {
	ApplyChunk(ctx context.Context, chunkID string) (ChunkProgress, error)
}
