package importing

import "time"

type ChunkStatus string

const (
	ChunkStatusPending    ChunkStatus = "pending"
	ChunkStatusProcessing ChunkStatus = "processing"
	ChunkStatusCompleted  ChunkStatus = "completed"
	ChunkStatusFailed     ChunkStatus = "failed"
	ChunkStatusPaused     ChunkStatus = "paused"
	ChunkStatusStopped    ChunkStatus = "stopped"
)

// Done reports whether the chunk reached a state it never leaves.
func (s ChunkStatus) Done() bool {
	switch s {
	case ChunkStatusCompleted, ChunkStatusFailed, ChunkStatusStopped:
		return true
	}
	return false
}

// SkipOnDelivery is the set a delivered job must not start work for.
func (s ChunkStatus) SkipOnDelivery() bool {
	return s.Done() || s == ChunkStatusPaused
}

type Chunk struct {
	ID                 string
	ImportID           string
	ChunkIndex         int
	StartRow           int64
	EndRow             int64
	Status             ChunkStatus
	Counters           Counters
	TotalRows          int64
	RowResults         []RowResult
	ProcessingDuration int64
	Attempts           int
	LastError          *string
	StartedAt          *time.Time
	CompletedAt        *time.Time
	AggregatedAt       *time.Time
}

// RowCount is the number of data rows owned by the chunk.
func (c Chunk) RowCount() int64 {
	return c.EndRow - c.StartRow + 1
}

// ChunkBounds is an inclusive 0-based data-row range.
type ChunkBounds struct {
	Index    int
	StartRow int64
	EndRow   int64
}

// Partition splits totalRows into contiguous ranges of at most chunkSize rows.
func Partition(totalRows int64, chunkSize int) []ChunkBounds {
	if totalRows <= 0 || chunkSize <= 0 {
		return nil
	}

	size := int64(chunkSize)
	count := int((totalRows + size - 1) / size)
	bounds := make([]ChunkBounds, 0, count)
	for i := 0; i < count; i++ {
		start := int64(i) * size
		end := start + size - 1
		if end > totalRows-1 {
			end = totalRows - 1
		}
		bounds = append(bounds, ChunkBounds{Index: i, StartRow: start, EndRow: end})
	}
	return bounds
}

// ChunkResult is the outcome of processing one chunk's rows.
type ChunkResult struct {
	Total      int64
	Success    int64
	Failed     int64
	Created    int64
	Updated    int64
	Skipped    int64
	RowResults []RowResult
	Duration   time.Duration
}

func (r ChunkResult) Counters() Counters {
	return Counters{
		ProcessedRows: r.Total,
		SuccessRows:   r.Success,
		FailedRows:    r.Failed,
		CreatedRows:   r.Created,
		UpdatedRows:   r.Updated,
		SkippedRows:   r.Skipped,
	}
}

// Record appends a row result and bumps the matching counter.
func (r *ChunkResult) Record(result RowResult) {
	r.RowResults = append(r.RowResults, result)
	r.Total++
	switch result.Action {
	case RowActionCreated:
		r.Created++
		r.Success++
	case RowActionUpdated:
		r.Updated++
		r.Success++
	case RowActionSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}
