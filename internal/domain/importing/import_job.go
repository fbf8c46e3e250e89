package importing

import "time"

type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusPaused     ImportStatus = "paused"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
	ImportStatusStopped    ImportStatus = "stopped"
)

// Terminal reports whether no further control transitions are allowed.
func (s ImportStatus) Terminal() bool {
	switch s {
	case ImportStatusCompleted, ImportStatusFailed, ImportStatusStopped:
		return true
	}
	return false
}

// CanTransitionTo encodes the import lifecycle. Only paused <-> processing may go back and forth.
func (s ImportStatus) CanTransitionTo(next ImportStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case ImportStatusProcessing:
		return s == ImportStatusPending || s == ImportStatusPaused
	case ImportStatusPaused:
		return s == ImportStatusPending || s == ImportStatusProcessing
	case ImportStatusStopped, ImportStatusFailed:
		return true
	case ImportStatusCompleted:
		return s == ImportStatusProcessing || s == ImportStatusPaused
	}
	return false
}

type ControlFlags struct {
	PauseRequested  bool `json:"pause_requested"`
	StopRequested   bool `json:"stop_requested"`
	ResumeRequested bool `json:"resume_requested"`
}

type Counters struct {
	ProcessedRows int64 `json:"processed_rows"`
	SuccessRows   int64 `json:"success_rows"`
	FailedRows    int64 `json:"failed_rows"`
	CreatedRows   int64 `json:"created_rows"`
	UpdatedRows   int64 `json:"updated_rows"`
	SkippedRows   int64 `json:"skipped_rows"`
}

func (c Counters) Add(other Counters) Counters {
	return Counters{
		ProcessedRows: c.ProcessedRows + other.ProcessedRows,
		SuccessRows:   c.SuccessRows + other.SuccessRows,
		FailedRows:    c.FailedRows + other.FailedRows,
		CreatedRows:   c.CreatedRows + other.CreatedRows,
		UpdatedRows:   c.UpdatedRows + other.UpdatedRows,
		SkippedRows:   c.SkippedRows + other.SkippedRows,
	}
}

// Balanced checks created+updated+skipped+failed == processed.
func (c Counters) Balanced() bool {
	return c.CreatedRows+c.UpdatedRows+c.SkippedRows+c.FailedRows == c.ProcessedRows
}

type Import struct {
	ID                string
	Filename          string
	Path              string
	Disk              string
	OwnerID           string
	AffiliateID       *string
	TotalRows         int64
	TotalChunks       int
	ChunkSize         int
	Counters          Counters
	ProcessedChunks   int
	FailedChunks      int
	CurrentChunkIndex *int
	Status            ImportStatus
	Flags             ControlFlags
	StartedAt         *time.Time
	PausedAt          *time.Time
	ResumedAt         *time.Time
	StoppedAt         *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Percentage is the processed share of total rows, rounded to two decimals.
func (i Import) Percentage() float64 {
	if i.TotalRows <= 0 {
		return 0
	}
	pct := float64(i.Counters.ProcessedRows) / float64(i.TotalRows) * 100
	if pct > 100 {
		pct = 100
	}
	return float64(int64(pct*100+0.5)) / 100
}

// ChunkProgress is the aggregate view returned after a chunk has been applied to its import.
type ChunkProgress struct {
	ImportID        string
	Status          ImportStatus
	TotalChunks     int
	ProcessedChunks int
	FailedChunks    int
	Counters        Counters
	Applied         bool
}

func (p ChunkProgress) AllChunksDone() bool {
	return p.TotalChunks > 0 && p.ProcessedChunks >= p.TotalChunks
}
