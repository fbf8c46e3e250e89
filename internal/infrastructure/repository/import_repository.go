package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
	"github.com/mohammadpnp/member-import/internal/infrastructure/db/models"
)

const chunkInsertBatch = 200

type ImportRepository struct {
	db *gorm.DB
}

func NewImportRepository(db *gorm.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

func (r *ImportRepository) CreateWithChunks(ctx context.Context, imp *domain.Import, chunks []domain.Chunk) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := importModel(imp)
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create import: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}

		rows := make([]models.ImportChunk, 0, len(chunks))
		for i := range chunks {
			rows = append(rows, chunkModel(&chunks[i]))
		}
		if err := tx.CreateInBatches(&rows, chunkInsertBatch).Error; err != nil {
			return fmt.Errorf("create import chunks: %w", err)
		}
		return nil
	})
}

func (r *ImportRepository) GetImport(ctx context.Context, id string) (*domain.Import, error) {
	var row models.Import
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrImportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import: %w", err)
	}
	imp := importDomain(row)
	return &imp, nil
}

func (r *ImportRepository) TransitionImport(ctx context.Context, id string, from []domain.ImportStatus, next domain.ImportStatus, update domain.ImportUpdate) (bool, error) {
	values := map[string]any{
		"status":     string(next),
		"updated_at": time.Now().UTC(),
	}
	if update.Flags != nil {
		values["pause_requested"] = update.Flags.PauseRequested
		values["stop_requested"] = update.Flags.StopRequested
		values["resume_requested"] = update.Flags.ResumeRequested
	}
	setTime(values, "started_at", update.StartedAt)
	setTime(values, "paused_at", update.PausedAt)
	setTime(values, "resumed_at", update.ResumedAt)
	setTime(values, "stopped_at", update.StoppedAt)
	setTime(values, "completed_at", update.CompletedAt)

	res := r.db.WithContext(ctx).
		Model(&models.Import{}).
		Where("id = ? AND status IN ?", id, importStatuses(from)).
		Updates(values)
	if res.Error != nil {
		return false, fmt.Errorf("transition import to %s: %w", next, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *ImportRepository) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	var row models.ImportChunk
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrChunkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	chunk := chunkDomain(row)
	return &chunk, nil
}

func (r *ImportRepository) ListChunks(ctx context.Context, importID string, statuses ...domain.ChunkStatus) ([]domain.Chunk, error) {
	query := r.db.WithContext(ctx).Where("import_id = ?", importID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", chunkStatuses(statuses))
	}

	var rows []models.ImportChunk
	if err := query.Order("chunk_index ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	chunks := make([]domain.Chunk, 0, len(rows))
	for _, row := range rows {
		chunks = append(chunks, chunkDomain(row))
	}
	return chunks, nil
}

// ClaimChunk moves a pending chunk to processing and counts the attempt.
func (r *ImportRepository) ClaimChunk(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ImportChunk{}).
		Where("id = ? AND status = ?", id, string(domain.ChunkStatusPending)).
		Updates(map[string]any{
			"status":     string(domain.ChunkStatusProcessing),
			"started_at": startedAt,
			"attempts":   gorm.Expr("attempts + ?", 1),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("claim chunk: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *ImportRepository) TransitionChunk(ctx context.Context, id string, from []domain.ChunkStatus, next domain.ChunkStatus, reason *string) (bool, error) {
	now := time.Now().UTC()
	values := map[string]any{
		"status":     string(next),
		"updated_at": now,
	}
	if reason != nil {
		values["last_error"] = truncateReason(*reason)
	}
	if next.Done() {
		values["completed_at"] = now
	}

	res := r.db.WithContext(ctx).
		Model(&models.ImportChunk{}).
		Where("id = ? AND status IN ?", id, chunkStatuses(from)).
		Updates(values)
	if res.Error != nil {
		return false, fmt.Errorf("transition chunk to %s: %w", next, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *ImportRepository) TransitionChunks(ctx context.Context, importID string, from, next domain.ChunkStatus) (int64, error) {
	now := time.Now().UTC()
	values := map[string]any{
		"status":     string(next),
		"updated_at": now,
	}
	if next.Done() {
		values["completed_at"] = now
	}

	res := r.db.WithContext(ctx).
		Model(&models.ImportChunk{}).
		Where("import_id = ? AND status = ?", importID, string(from)).
		Updates(values)
	if res.Error != nil {
		return 0, fmt.Errorf("transition %s chunks to %s: %w", from, next, res.Error)
	}
	return res.RowsAffected, nil
}

// ReleaseChunk hands a processing chunk back to pending so a retry can claim it.
func (r *ImportRepository) ReleaseChunk(ctx context.Context, id string, reason string) error {
	err := r.db.WithContext(ctx).
		Model(&models.ImportChunk{}).
		Where("id = ? AND status = ?", id, string(domain.ChunkStatusProcessing)).
		Updates(map[string]any{
			"status":     string(domain.ChunkStatusPending),
			"last_error": truncateReason(reason),
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("release chunk: %w", err)
	}
	return nil
}

func (r *ImportRepository) CompleteChunk(ctx context.Context, id string, result domain.ChunkResult, completedAt time.Time) error {
	counters := result.Counters()
	row := models.ImportChunk{
		Status:             string(domain.ChunkStatusCompleted),
		TotalRows:          result.Total,
		ProcessedRows:      counters.ProcessedRows,
		SuccessRows:        counters.SuccessRows,
		FailedRows:         counters.FailedRows,
		CreatedRows:        counters.CreatedRows,
		UpdatedRows:        counters.UpdatedRows,
		SkippedRows:        counters.SkippedRows,
		RowResults:         result.RowResults,
		ProcessingDuration: int64(result.Duration / time.Second),
		CompletedAt:        &completedAt,
		UpdatedAt:          completedAt,
	}

	res := r.db.WithContext(ctx).
		Model(&models.ImportChunk{}).
		Where("id = ? AND status = ?", id, string(domain.ChunkStatusProcessing)).
		Select(
			"status", "total_rows", "processed_rows", "success_rows", "failed_rows",
			"created_rows", "updated_rows", "skipped_rows", "row_results",
			"processing_duration", "completed_at", "updated_at",
		).
		Updates(&row)
	if res.Error != nil {
		return fmt.Errorf("complete chunk: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("complete chunk %s: %w", id, domain.ErrChunkNotFound)
	}
	return nil
}

func (r *ImportRepository) FailChunk(ctx context.Context, id string, reason string, duration time.Duration, completedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ImportChunk{}).
		Where("id = ? AND status IN ?", id, []string{string(domain.ChunkStatusPending), string(domain.ChunkStatusProcessing)}).
		Updates(map[string]any{
			"status":              string(domain.ChunkStatusFailed),
			"last_error":          truncateReason(reason),
			"processing_duration": int64(duration / time.Second),
			"completed_at":        completedAt,
			"updated_at":          completedAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("fail chunk: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ApplyChunk adds a finished chunk's counters to its import. The aggregated_at
// guard and the increments share one transaction, so a chunk is counted once.
func (r *ImportRepository) ApplyChunk(ctx context.Context, chunkID string) (domain.ChunkProgress, error) {
	var progress domain.ChunkProgress
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chunk models.ImportChunk
		err := tx.Where("id = ?", chunkID).First(&chunk).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrChunkNotFound
		}
		if err != nil {
			return fmt.Errorf("load chunk: %w", err)
		}

		now := time.Now().UTC()
		res := tx.Model(&models.ImportChunk{}).
			Where("id = ? AND aggregated_at IS NULL AND status IN ?", chunkID,
				[]string{string(domain.ChunkStatusCompleted), string(domain.ChunkStatusFailed)}).
			Update("aggregated_at", now)
		if res.Error != nil {
			return fmt.Errorf("mark chunk aggregated: %w", res.Error)
		}
		progress.Applied = res.RowsAffected == 1

		if progress.Applied {
			failed := 0
			if chunk.Status == string(domain.ChunkStatusFailed) {
				failed = 1
			}
			err := tx.Model(&models.Import{}).
				Where("id = ?", chunk.ImportID).
				Updates(map[string]any{
					"processed_rows":      gorm.Expr("processed_rows + ?", chunk.ProcessedRows),
					"success_rows":        gorm.Expr("success_rows + ?", chunk.SuccessRows),
					"failed_rows":         gorm.Expr("failed_rows + ?", chunk.FailedRows),
					"created_rows":        gorm.Expr("created_rows + ?", chunk.CreatedRows),
					"updated_rows":        gorm.Expr("updated_rows + ?", chunk.UpdatedRows),
					"skipped_rows":        gorm.Expr("skipped_rows + ?", chunk.SkippedRows),
					"processed_chunks":    gorm.Expr("processed_chunks + ?", 1),
					"failed_chunks":       gorm.Expr("failed_chunks + ?", failed),
					"current_chunk_index": chunk.ChunkIndex,
					"updated_at":          now,
				}).Error
			if err != nil {
				return fmt.Errorf("increment import counters: %w", err)
			}
		}

		var imp models.Import
		if err := tx.Where("id = ?", chunk.ImportID).First(&imp).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrImportNotFound
			}
			return fmt.Errorf("load import: %w", err)
		}
		progress.ImportID = imp.ID
		progress.Status = domain.ImportStatus(imp.Status)
		progress.TotalChunks = imp.TotalChunks
		progress.ProcessedChunks = imp.ProcessedChunks
		progress.FailedChunks = imp.FailedChunks
		progress.Counters = importDomain(imp).Counters
		return nil
	})
	if err != nil {
		return domain.ChunkProgress{}, err
	}
	return progress, nil
}

func setTime(values map[string]any, column string, t *time.Time) {
	if t != nil {
		values[column] = *t
	}
}

func importStatuses(in []domain.ImportStatus) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

func chunkStatuses(in []domain.ChunkStatus) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

func truncateReason(reason string) string {
	const maxLen = 1000
	if len(reason) <= maxLen {
		return reason
	}
	return reason[:maxLen]
}

func importModel(imp *domain.Import) models.Import {
	return models.Import{
		ID:                imp.ID,
		Filename:          imp.Filename,
		Path:              imp.Path,
		Disk:              imp.Disk,
		OwnerID:           imp.OwnerID,
		AffiliateID:       imp.AffiliateID,
		TotalRows:         imp.TotalRows,
		TotalChunks:       imp.TotalChunks,
		ChunkSize:         imp.ChunkSize,
		ProcessedRows:     imp.Counters.ProcessedRows,
		SuccessRows:       imp.Counters.SuccessRows,
		FailedRows:        imp.Counters.FailedRows,
		CreatedRows:       imp.Counters.CreatedRows,
		UpdatedRows:       imp.Counters.UpdatedRows,
		SkippedRows:       imp.Counters.SkippedRows,
		ProcessedChunks:   imp.ProcessedChunks,
		FailedChunks:      imp.FailedChunks,
		CurrentChunkIndex: imp.CurrentChunkIndex,
		Status:            string(imp.Status),
		PauseRequested:    imp.Flags.PauseRequested,
		StopRequested:     imp.Flags.StopRequested,
		ResumeRequested:   imp.Flags.ResumeRequested,
		StartedAt:         imp.StartedAt,
		PausedAt:          imp.PausedAt,
		ResumedAt:         imp.ResumedAt,
		StoppedAt:         imp.StoppedAt,
		CompletedAt:       imp.CompletedAt,
		CreatedAt:         imp.CreatedAt,
		UpdatedAt:         imp.UpdatedAt,
	}
}

func importDomain(row models.Import) domain.Import {
	return domain.Import{
		ID:          row.ID,
		Filename:    row.Filename,
		Path:        row.Path,
		Disk:        row.Disk,
		OwnerID:     row.OwnerID,
		AffiliateID: row.AffiliateID,
		TotalRows:   row.TotalRows,
		TotalChunks: row.TotalChunks,
		ChunkSize:   row.ChunkSize,
		Counters: domain.Counters{
			ProcessedRows: row.ProcessedRows,
			SuccessRows:   row.SuccessRows,
			FailedRows:    row.FailedRows,
			CreatedRows:   row.CreatedRows,
			UpdatedRows:   row.UpdatedRows,
			SkippedRows:   row.SkippedRows,
		},
		ProcessedChunks:   row.ProcessedChunks,
		FailedChunks:      row.FailedChunks,
		CurrentChunkIndex: row.CurrentChunkIndex,
		Status:            domain.ImportStatus(row.Status),
		Flags: domain.ControlFlags{
			PauseRequested:  row.PauseRequested,
			StopRequested:   row.StopRequested,
			ResumeRequested: row.ResumeRequested,
		},
		StartedAt:   row.StartedAt,
		PausedAt:    row.PausedAt,
		ResumedAt:   row.ResumedAt,
		StoppedAt:   row.StoppedAt,
		CompletedAt: row.CompletedAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func chunkModel(c *domain.Chunk) models.ImportChunk {
	return models.ImportChunk{
		ID:                 c.ID,
		ImportID:           c.ImportID,
		ChunkIndex:         c.ChunkIndex,
		StartRow:           c.StartRow,
		EndRow:             c.EndRow,
		Status:             string(c.Status),
		TotalRows:          c.TotalRows,
		ProcessedRows:      c.Counters.ProcessedRows,
		SuccessRows:        c.Counters.SuccessRows,
		FailedRows:         c.Counters.FailedRows,
		CreatedRows:        c.Counters.CreatedRows,
		UpdatedRows:        c.Counters.UpdatedRows,
		SkippedRows:        c.Counters.SkippedRows,
		RowResults:         c.RowResults,
		ProcessingDuration: c.ProcessingDuration,
		Attempts:           c.Attempts,
		LastError:          c.LastError,
		StartedAt:          c.StartedAt,
		CompletedAt:        c.CompletedAt,
		AggregatedAt:       c.AggregatedAt,
	}
}

func chunkDomain(row models.ImportChunk) domain.Chunk {
	return domain.Chunk{
		ID:         row.ID,
		ImportID:   row.ImportID,
		ChunkIndex: row.ChunkIndex,
		StartRow:   row.StartRow,
		EndRow:     row.EndRow,
		Status:     domain.ChunkStatus(row.Status),
		Counters: domain.Counters{
			ProcessedRows: row.ProcessedRows,
			SuccessRows:   row.SuccessRows,
			FailedRows:    row.FailedRows,
			CreatedRows:   row.CreatedRows,
			UpdatedRows:   row.UpdatedRows,
			SkippedRows:   row.SkippedRows,
		},
		TotalRows:          row.TotalRows,
		RowResults:         row.RowResults,
		ProcessingDuration: row.ProcessingDuration,
		Attempts:           row.Attempts,
		LastError:          row.LastError,
		StartedAt:          row.StartedAt,
		CompletedAt:        row.CompletedAt,
		AggregatedAt:       row.AggregatedAt,
	}
}
