package importing

import "time"

type RowAction string

const (
	RowActionCreated RowAction = "created"
	RowActionUpdated RowAction = "updated"
	RowActionSkipped RowAction = "skipped"
	RowActionFailed  RowAction = "failed"
)

func (a RowAction) Valid() bool {
	switch a {
	case RowActionCreated, RowActionUpdated, RowActionSkipped, RowActionFailed:
		return true
	}
	return false
}

// RowResult is the audit record for one input row. Data is already sanitized.
type RowResult struct {
	RowNumber   int64             `json:"row_number"`
	Data        map[string]string `json:"data"`
	Action      RowAction         `json:"action"`
	UserID      *string           `json:"user_id,omitempty"`
	MemberID    *string           `json:"member_id,omitempty"`
	AffiliateID *string           `json:"affiliate_id,omitempty"`
	Errors      []string          `json:"errors,omitempty"`
	Message     string            `json:"message"`
	Timestamp   time.Time         `json:"timestamp"`
}

type RowResultFilter struct {
	Action     RowAction
	Search     string
	ChunkIndex *int
}

type Page struct {
	Page    int
	PerPage int
}

const (
	DefaultPerPage = 50
	MaxPerPage     = 500
)

// Normalize clamps the page into the supported window.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

type RowResultSummary struct {
	Total   int64 `json:"total"`
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
}

func (s *RowResultSummary) Add(action RowAction) {
	s.Total++
	switch action {
	case RowActionCreated:
		s.Created++
	case RowActionUpdated:
		s.Updated++
	case RowActionSkipped:
		s.Skipped++
	case RowActionFailed:
		s.Failed++
	}
}
