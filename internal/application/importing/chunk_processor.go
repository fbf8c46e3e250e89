package importing

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mohammadpnp/member-import/internal/application/reconcile"
	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
	"github.com/mohammadpnp/member-import/internal/domain/member"
	"github.com/mohammadpnp/member-import/internal/metrics"
	"github.com/mohammadpnp/member-import/internal/normalize"
)

type rowReconciler interface {
	Reconcile(ctx context.Context, row member.CleanedRow, defaultAffiliateID *string, creatorID string) (reconcile.Outcome, error)
}

type roleAssigner interface {
	Assign(ctx context.Context, user *member.User, m *member.Member, row member.CleanedRow, affiliateID *string) (reconcile.Assignment, error)
}

var testName = regexp.MustCompile(`(?i)\btest\b`)

// ChunkProcessor turns a chunk's raw rows into row results. Row failures are
// recorded; only a cancelled context aborts the chunk.
type ChunkProcessor struct {
	cleaner    *normalize.Cleaner
	reconciler rowReconciler
	assigner   roleAssigner
	log        zerolog.Logger
	now        func() time.Time
}

func NewChunkProcessor(cleaner *normalize.Cleaner, reconciler rowReconciler, assigner roleAssigner, log zerolog.Logger) *ChunkProcessor {
	if cleaner == nil {
		cleaner = normalize.NewCleaner(nil)
	}
	return &ChunkProcessor{
		cleaner:    cleaner,
		reconciler: reconciler,
		assigner:   assigner,
		log:        log.With().Str("component", "chunk_processor").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (p *ChunkProcessor) Process(ctx context.Context, chunk *domain.Chunk, imp *domain.Import, rows []member.RawRow) (domain.ChunkResult, error) {
	started := time.Now()
	result := domain.ChunkResult{RowResults: make([]domain.RowResult, 0, len(rows))}
	log := p.log.With().Str("import_id", imp.ID).Str("chunk_id", chunk.ID).Logger()

	for i, raw := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rr := p.processRow(ctx, log, chunk.StartRow+int64(i)+1, raw, imp)
		result.Record(rr)
		metrics.RowProcessed(string(rr.Action))
	}

	result.Duration = time.Since(started)
	return result, nil
}

func (p *ChunkProcessor) processRow(ctx context.Context, log zerolog.Logger, rowNumber int64, raw member.RawRow, imp *domain.Import) (rr domain.RowResult) {
	keyed := normalize.NormalizeKeys(raw)
	rr = domain.RowResult{
		RowNumber: rowNumber,
		Data:      normalize.SanitizeForLog(keyed.Map()),
		Timestamp: p.now(),
	}
	log = log.With().Int64("row_number", rowNumber).Logger()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("row processing panicked")
			rr.Action = domain.RowActionFailed
			rr.Errors = []string{fmt.Sprintf("unexpected error: %v", rec)}
			rr.Message = "Row failed"
		}
	}()

	row := p.cleaner.Clean(keyed)
	if reason, skip := skipReason(keyed, row); skip {
		rr.Action = domain.RowActionSkipped
		rr.Message = reason
		return rr
	}
	if row.FirstName == nil || row.LastName == nil {
		log.Warn().Interface("data", rr.Data).Msg("row is missing a first or last name")
	}

	outcome, err := p.reconciler.Reconcile(ctx, row, imp.AffiliateID, imp.OwnerID)
	if err != nil {
		return failRow(log, rr, err)
	}
	rr.UserID = &outcome.User.ID
	rr.MemberID = &outcome.Member.MemberID
	rr.AffiliateID = outcome.AffiliateID

	assigned, err := p.assigner.Assign(ctx, outcome.User, outcome.Member, row, outcome.AffiliateID)
	if err != nil {
		return failRow(log, rr, err)
	}

	rr.Action = domain.RowActionUpdated
	verb := "Updated"
	if outcome.Created {
		rr.Action = domain.RowActionCreated
		verb = "Created"
	}
	rr.Message = describe(verb, assigned, outcome.Notes)
	return rr
}

func failRow(log zerolog.Logger, rr domain.RowResult, err error) domain.RowResult {
	log.Warn().Err(err).Interface("data", rr.Data).Msg("row failed")
	rr.Action = domain.RowActionFailed
	rr.Errors = []string{err.Error()}
	rr.Message = "Row failed"
	if errors.Is(err, reconcile.ErrDuplicateMember) {
		rr.Message = "Duplicate member"
	}
	return rr
}

// skipReason decides which rows never reach reconciliation.
func skipReason(keyed member.RawRow, row member.CleanedRow) (string, bool) {
	if keyed.Empty() {
		return "Empty row", true
	}
	name := strings.TrimSpace(deref(row.FirstName) + " " + deref(row.LastName))
	if testName.MatchString(name) {
		return "Test record", true
	}
	if name == "" && row.PrimaryEmail() == nil && row.MemberID == nil {
		return "No name, email or member id", true
	}
	return "", false
}

func describe(verb string, a reconcile.Assignment, notes []string) string {
	parts := []string{verb + " member"}
	if len(a.Roles) > 0 {
		parts = append(parts, "roles: "+strings.Join(a.Roles, ", "))
	}
	if len(a.OrgRoles) > 0 {
		parts = append(parts, "org roles: "+strings.Join(a.OrgRoles, ", "))
	}
	if len(a.Positions) > 0 {
		parts = append(parts, "positions: "+strings.Join(a.Positions, ", "))
	}
	if len(a.Unmatched) > 0 {
		parts = append(parts, "unmatched: "+strings.Join(a.Unmatched, ", "))
	}
	parts = append(parts, notes...)
	return strings.Join(parts, "; ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
