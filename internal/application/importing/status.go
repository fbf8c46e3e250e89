package importing

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
)

type StatusInput struct {
	ImportID string
	// OwnerID is checked when set.
	OwnerID string
}

type StatusOutput struct {
	ImportID          string                     `json:"import_id"`
	Filename          string                     `json:"filename"`
	Status            string                     `json:"status"`
	TotalRows         int64                      `json:"total_rows"`
	TotalChunks       int                        `json:"total_chunks"`
	ProcessedChunks   int                        `json:"processed_chunks"`
	FailedChunks      int                        `json:"failed_chunks"`
	CurrentChunkIndex *int                       `json:"current_chunk_index"`
	Counters          domain.Counters            `json:"counters"`
	Percentage        float64                    `json:"percentage"`
	Flags             domain.ControlFlags        `json:"flags"`
	Chunks            map[domain.ChunkStatus]int `json:"chunks"`
	StartedAt         *time.Time                 `json:"started_at,omitempty"`
	PausedAt          *time.Time                 `json:"paused_at,omitempty"`
	ResumedAt         *time.Time                 `json:"resumed_at,omitempty"`
	StoppedAt         *time.Time                 `json:"stopped_at,omitempty"`
	CompletedAt       *time.Time                 `json:"completed_at,omitempty"`
	CreatedAt         time.Time                  `json:"created_at"`
}

type GetImportStatus interface {
	Execute(ctx context.Context, in StatusInput) (StatusOutput, error)
}

type getImportStatus struct {
	repo domain.Repository
	now  func() time.Time
}

func NewGetImportStatus(repo domain.Repository) GetImportStatus {
	return &getImportStatus{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (uc *getImportStatus) Execute(ctx context.Context, in StatusInput) (StatusOutput, error) {
	imp, err := loadVisible(ctx, uc.repo, in)
	if err != nil {
		return StatusOutput{}, err
	}

	// Completion normally happens in the last chunk job; this covers a job
	// that died between counting its chunk and closing the import.
	if status, err := finalize(ctx, uc.repo, progressOf(imp), uc.now()); err == nil && status != imp.Status {
		if imp, err = uc.repo.GetImport(ctx, imp.ID); err != nil {
			return StatusOutput{}, fmt.Errorf("%w: %v", ErrGetImport, err)
		}
	}

	chunks, err := uc.repo.ListChunks(ctx, imp.ID)
	if err != nil {
		return StatusOutput{}, fmt.Errorf("%w: %v", ErrGetImport, err)
	}
	byStatus := make(map[domain.ChunkStatus]int)
	for _, c := range chunks {
		byStatus[c.Status]++
	}

	return StatusOutput{
		ImportID:          imp.ID,
		Filename:          imp.Filename,
		Status:            string(imp.Status),
		TotalRows:         imp.TotalRows,
		TotalChunks:       imp.TotalChunks,
		ProcessedChunks:   imp.ProcessedChunks,
		FailedChunks:      imp.FailedChunks,
		CurrentChunkIndex: imp.CurrentChunkIndex,
		Counters:          imp.Counters,
		Percentage:        imp.Percentage(),
		Flags:             imp.Flags,
		Chunks:            byStatus,
		StartedAt:         imp.StartedAt,
		PausedAt:          imp.PausedAt,
		ResumedAt:         imp.ResumedAt,
		StoppedAt:         imp.StoppedAt,
		CompletedAt:       imp.CompletedAt,
		CreatedAt:         imp.CreatedAt,
	}, nil
}

type RowResultsInput struct {
	ImportID string
	OwnerID  string
	Filter   domain.RowResultFilter
	Page     domain.Page
}

type RowResultItem struct {
	ChunkIndex int `json:"chunk_index"`
	domain.RowResult
}

type Pagination struct {
	Page     int   `json:"page"`
	PerPage  int   `json:"per_page"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
}

type RowResultsOutput struct {
	Data       []RowResultItem         `json:"data"`
	Summary    domain.RowResultSummary `json:"summary"`
	Pagination Pagination              `json:"pagination"`
}

type GetRowResults interface {
	Execute(ctx context.Context, in RowResultsInput) (RowResultsOutput, error)
}

type getRowResults struct {
	repo domain.Repository
}

func NewGetRowResults(repo domain.Repository) GetRowResults {
	return &getRowResults{repo: repo}
}

// Execute walks chunks in index order so results come back in file order.
// The summary counts the filtered set, not just the returned page.
func (uc *getRowResults) Execute(ctx context.Context, in RowResultsInput) (RowResultsOutput, error) {
	imp, err := loadVisible(ctx, uc.repo, in.statusInput())
	if err != nil {
		return RowResultsOutput{}, err
	}
	if in.Filter.Action != "" && !in.Filter.Action.Valid() {
		return RowResultsOutput{}, fmt.Errorf("%w: unknown action %q", ErrInvalidFilter, in.Filter.Action)
	}

	chunks, err := uc.repo.ListChunks(ctx, imp.ID)
	if err != nil {
		return RowResultsOutput{}, fmt.Errorf("%w: %v", ErrGetImport, err)
	}

	page := in.Page.Normalize()
	offset := int64((page.Page - 1) * page.PerPage)
	search := strings.ToLower(strings.TrimSpace(in.Filter.Search))

	out := RowResultsOutput{Data: []RowResultItem{}}
	for _, c := range chunks {
		if in.Filter.ChunkIndex != nil && c.ChunkIndex != *in.Filter.ChunkIndex {
			continue
		}
		for _, rr := range c.RowResults {
			if in.Filter.Action != "" && rr.Action != in.Filter.Action {
				continue
			}
			if search != "" && !matchesSearch(rr, search) {
				continue
			}
			if out.Summary.Total >= offset && len(out.Data) < page.PerPage {
				out.Data = append(out.Data, RowResultItem{ChunkIndex: c.ChunkIndex, RowResult: rr})
			}
			out.Summary.Add(rr.Action)
		}
	}

	lastPage := int((out.Summary.Total + int64(page.PerPage) - 1) / int64(page.PerPage))
	if lastPage < 1 {
		lastPage = 1
	}
	out.Pagination = Pagination{Page: page.Page, PerPage: page.PerPage, Total: out.Summary.Total, LastPage: lastPage}
	return out, nil
}

func (in RowResultsInput) statusInput() StatusInput {
	return StatusInput{ImportID: in.ImportID, OwnerID: in.OwnerID}
}

func matchesSearch(rr domain.RowResult, needle string) bool {
	if strings.Contains(strings.ToLower(rr.Message), needle) {
		return true
	}
	for _, e := range rr.Errors {
		if strings.Contains(strings.ToLower(e), needle) {
			return true
		}
	}
	for _, v := range rr.Data {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func loadVisible(ctx context.Context, repo domain.Repository, in StatusInput) (*domain.Import, error) {
	imp, err := repo.GetImport(ctx, in.ImportID)
	if err != nil {
		if isNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrGetImport, err)
	}
	if in.OwnerID != "" && imp.OwnerID != in.OwnerID {
		return nil, domain.ErrForbidden
	}
	return imp, nil
}
