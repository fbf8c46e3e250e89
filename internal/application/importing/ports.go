package importing

import (
	"context"

	"github.com/mohammadpnp/member-import/internal/domain/member"
)

type fileStore interface {
	Put(ctx context.Context, path, disk string, data []byte) error
	Delete(ctx context.Context, path, disk string) error
	DefaultDisk() string
}

type rowSource interface {
	ReadChunk(ctx context.Context, path, disk string, startRow, endRow int64) ([]member.RawRow, error)
	TotalRows(ctx context.Context, path, disk string) (int64, error)
}

// Dispatcher hands chunk jobs to the background queue.
type Dispatcher interface {
	DispatchChunks(ctx context.Context, importID string, chunkIDs []string) error
	Remove(ctx context.Context, importID string) (int, error)
}
