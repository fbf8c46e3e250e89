package importing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
)

type StartImportInput struct {
	Filename    string
	Data        []byte
	OwnerID     string
	AffiliateID *string
}

type StartImportOutput struct {
	ImportID      string `json:"import_id"`
	Status        string `json:"status"`
	TotalRows     int64  `json:"total_rows"`
	TotalChunks   int    `json:"total_chunks"`
	EstimatedTime int64  `json:"estimated_time"`
}

type StartImport interface {
	Execute(ctx context.Context, in StartImportInput) (StartImportOutput, error)
}

type StartImportConfig struct {
	ChunkSize            int
	EstimatedRowDuration time.Duration
}

type startImport struct {
	repo       domain.Repository
	files      fileStore
	rows       rowSource
	dispatcher Dispatcher
	cfg        StartImportConfig
	log        zerolog.Logger
	now        func() time.Time
}

func NewStartImport(repo domain.Repository, files fileStore, rows rowSource, dispatcher Dispatcher, cfg StartImportConfig, log zerolog.Logger) StartImport {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 100
	}
	if cfg.EstimatedRowDuration <= 0 {
		cfg.EstimatedRowDuration = 200 * time.Millisecond
	}
	return &startImport{
		repo:       repo,
		files:      files,
		rows:       rows,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log.With().Str("component", "start_import").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Execute stores the upload, partitions it into chunks and queues one job per
// chunk. The stored file is removed whenever no import row survives.
func (uc *startImport) Execute(ctx context.Context, in StartImportInput) (StartImportOutput, error) {
	filename := strings.TrimSpace(filepath.Base(in.Filename))
	if len(in.Data) == 0 || strings.TrimSpace(in.OwnerID) == "" {
		return StartImportOutput{}, ErrInvalidFile
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
	default:
		return StartImportOutput{}, fmt.Errorf("%w: %s is not a csv file", ErrInvalidFile, filename)
	}

	now := uc.now()
	disk := uc.files.DefaultDisk()
	path := storagePath(now, in.OwnerID, filename)
	if err := uc.files.Put(ctx, path, disk, in.Data); err != nil {
		return StartImportOutput{}, fmt.Errorf("%w: %v", ErrStoreFile, err)
	}

	log := uc.log.With().Str("path", path).Str("owner_id", in.OwnerID).Logger()
	discard := func() {
		if err := uc.files.Delete(context.WithoutCancel(ctx), path, disk); err != nil {
			log.Error().Err(err).Msg("failed to delete stored import file")
		}
	}

	totalRows, err := uc.rows.TotalRows(ctx, path, disk)
	if err != nil {
		discard()
		return StartImportOutput{}, fmt.Errorf("%w: %v", ErrCountRows, err)
	}
	if totalRows == 0 {
		discard()
		return StartImportOutput{}, domain.ErrEmptyImport
	}

	bounds := domain.Partition(totalRows, uc.cfg.ChunkSize)
	imp := &domain.Import{
		ID:          uuid.NewString(),
		Filename:    filename,
		Path:        path,
		Disk:        disk,
		OwnerID:     in.OwnerID,
		AffiliateID: in.AffiliateID,
		TotalRows:   totalRows,
		TotalChunks: len(bounds),
		ChunkSize:   uc.cfg.ChunkSize,
		Status:      domain.ImportStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	chunks := make([]domain.Chunk, 0, len(bounds))
	chunkIDs := make([]string, 0, len(bounds))
	for _, b := range bounds {
		c := domain.Chunk{
			ID:         uuid.NewString(),
			ImportID:   imp.ID,
			ChunkIndex: b.Index,
			StartRow:   b.StartRow,
			EndRow:     b.EndRow,
			Status:     domain.ChunkStatusPending,
		}
		chunks = append(chunks, c)
		chunkIDs = append(chunkIDs, c.ID)
	}
	if err := uc.repo.CreateWithChunks(ctx, imp, chunks); err != nil {
		discard()
		return StartImportOutput{}, fmt.Errorf("%w: %v", ErrCreateImport, err)
	}

	out := StartImportOutput{
		ImportID:      imp.ID,
		Status:        string(domain.ImportStatusProcessing),
		TotalRows:     totalRows,
		TotalChunks:   len(bounds),
		EstimatedTime: estimateSeconds(totalRows, uc.cfg.EstimatedRowDuration),
	}
	log = log.With().Str("import_id", imp.ID).Logger()

	// Flip to processing before any job can run, so completion always starts from processing.
	if _, err := uc.repo.TransitionImport(ctx, imp.ID,
		[]domain.ImportStatus{domain.ImportStatusPending}, domain.ImportStatusProcessing,
		domain.ImportUpdate{StartedAt: &now}); err != nil {
		return StartImportOutput{}, fmt.Errorf("%w: %v", ErrUpdateImport, err)
	}

	if err := uc.dispatcher.DispatchChunks(ctx, imp.ID, chunkIDs); err != nil {
		log.Error().Err(err).Msg("chunk dispatch failed, import paused until resumed")
		pausedAt := uc.now()
		_, pauseErr := uc.repo.TransitionImport(context.WithoutCancel(ctx), imp.ID,
			[]domain.ImportStatus{domain.ImportStatusProcessing}, domain.ImportStatusPaused,
			domain.ImportUpdate{Flags: &domain.ControlFlags{PauseRequested: true}, PausedAt: &pausedAt})
		if pauseErr != nil {
			return out, fmt.Errorf("%w: %v (pause failed: %v)", ErrDispatch, err, pauseErr)
		}
		out.Status = string(domain.ImportStatusPaused)
		return out, nil
	}

	log.Info().Int64("total_rows", totalRows).Int("total_chunks", len(bounds)).Msg("import started")
	return out, nil
}

func estimateSeconds(rows int64, perRow time.Duration) int64 {
	return int64(math.Ceil((time.Duration(rows) * perRow).Seconds()))
}

// storagePath lays uploads out as imports/YYYY/MM/DD/<owner>/<slug>-<suffix><ext>.
func storagePath(now time.Time, ownerID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".csv"
	}
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("imports/%s/%s/%s-%s%s", now.Format("2006/01/02"), slugify(ownerID), slugify(base), suffix, ext)
}

func slugify(s string) string {
	// Chains keep per-call state, so each slug gets its own.
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	if slug == "" {
		return "import"
	}
	return slug
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrImportNotFound)
}
