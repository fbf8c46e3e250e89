package importing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
)

type ControlInput struct {
	ImportID string
	OwnerID  string
}

type ControlOutput struct {
	ImportID        string          `json:"import_id"`
	Status          string          `json:"status"`
	TotalChunks     int             `json:"total_chunks"`
	ProcessedChunks int             `json:"processed_chunks"`
	Counters        domain.Counters `json:"counters"`
	Dispatched      int             `json:"dispatched,omitempty"`
	StoppedChunks   int64           `json:"stopped_chunks,omitempty"`
}

type PauseImport interface {
	Execute(ctx context.Context, in ControlInput) (ControlOutput, error)
}

type ResumeImport interface {
	Execute(ctx context.Context, in ControlInput) (ControlOutput, error)
}

type StopImport interface {
	Execute(ctx context.Context, in ControlInput) (ControlOutput, error)
}

type control struct {
	repo       domain.Repository
	dispatcher Dispatcher
	log        zerolog.Logger
	now        func() time.Time
}

func newControl(repo domain.Repository, dispatcher Dispatcher, log zerolog.Logger, name string) control {
	return control{
		repo:       repo,
		dispatcher: dispatcher,
		log:        log.With().Str("component", name).Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// loadOwned returns the import only when ownerID owns it.
func (c control) loadOwned(ctx context.Context, in ControlInput) (*domain.Import, error) {
	imp, err := c.repo.GetImport(ctx, in.ImportID)
	if err != nil {
		if isNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrGetImport, err)
	}
	if in.OwnerID == "" || imp.OwnerID != in.OwnerID {
		return nil, domain.ErrForbidden
	}
	return imp, nil
}

// transition applies a status change and reloads the import.
func (c control) transition(ctx context.Context, imp *domain.Import, from []domain.ImportStatus, next domain.ImportStatus, update domain.ImportUpdate) (*domain.Import, error) {
	if !imp.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, imp.Status, next)
	}
	ok, err := c.repo.TransitionImport(ctx, imp.ID, from, next, update)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpdateImport, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: import changed to another status concurrently", domain.ErrInvalidTransition)
	}
	return c.reload(ctx, imp.ID)
}

func (c control) reload(ctx context.Context, id string) (*domain.Import, error) {
	imp, err := c.repo.GetImport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGetImport, err)
	}
	return imp, nil
}

func controlOutput(imp *domain.Import) ControlOutput {
	return ControlOutput{
		ImportID:        imp.ID,
		Status:          string(imp.Status),
		TotalChunks:     imp.TotalChunks,
		ProcessedChunks: imp.ProcessedChunks,
		Counters:        imp.Counters,
	}
}

type pauseImport struct{ control }

func NewPauseImport(repo domain.Repository, log zerolog.Logger) PauseImport {
	return &pauseImport{newControl(repo, nil, log, "pause_import")}
}

// Execute parks the import. Chunks already running finish; the rest park
// themselves when their job is delivered.
func (uc *pauseImport) Execute(ctx context.Context, in ControlInput) (ControlOutput, error) {
	imp, err := uc.loadOwned(ctx, in)
	if err != nil {
		return ControlOutput{}, err
	}
	now := uc.now()
	imp, err = uc.transition(ctx, imp,
		[]domain.ImportStatus{domain.ImportStatusPending, domain.ImportStatusProcessing}, domain.ImportStatusPaused,
		domain.ImportUpdate{Flags: &domain.ControlFlags{PauseRequested: true}, PausedAt: &now})
	if err != nil {
		return ControlOutput{}, err
	}
	uc.log.Info().Str("import_id", imp.ID).Msg("import paused")
	return controlOutput(imp), nil
}

type resumeImport struct{ control }

func NewResumeImport(repo domain.Repository, dispatcher Dispatcher, log zerolog.Logger) ResumeImport {
	return &resumeImport{newControl(repo, dispatcher, log, "resume_import")}
}

// Execute returns parked chunks to pending and re-dispatches every pending chunk.
func (uc *resumeImport) Execute(ctx context.Context, in ControlInput) (ControlOutput, error) {
	imp, err := uc.loadOwned(ctx, in)
	if err != nil {
		return ControlOutput{}, err
	}
	if imp.Status != domain.ImportStatusPaused {
		return ControlOutput{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, imp.Status, domain.ImportStatusProcessing)
	}
	now := uc.now()
	imp, err = uc.transition(ctx, imp,
		[]domain.ImportStatus{domain.ImportStatusPaused}, domain.ImportStatusProcessing,
		domain.ImportUpdate{Flags: &domain.ControlFlags{}, ResumedAt: &now})
	if err != nil {
		return ControlOutput{}, err
	}
	log := uc.log.With().Str("import_id", imp.ID).Logger()

	if _, err := uc.repo.TransitionChunks(ctx, imp.ID, domain.ChunkStatusPaused, domain.ChunkStatusPending); err != nil {
		return ControlOutput{}, fmt.Errorf("%w: %v", ErrUpdateImport, err)
	}
	pending, err := uc.repo.ListChunks(ctx, imp.ID, domain.ChunkStatusPending)
	if err != nil {
		return ControlOutput{}, fmt.Errorf("%w: %v", ErrGetImport, err)
	}
	ids := make([]string, 0, len(pending))
	for _, c := range pending {
		ids = append(ids, c.ID)
	}

	if err := uc.dispatcher.DispatchChunks(ctx, imp.ID, ids); err != nil {
		log.Error().Err(err).Msg("re-dispatch failed, import paused again")
		pausedAt := uc.now()
		if _, pauseErr := uc.repo.TransitionImport(context.WithoutCancel(ctx), imp.ID,
			[]domain.ImportStatus{domain.ImportStatusProcessing}, domain.ImportStatusPaused,
			domain.ImportUpdate{Flags: &domain.ControlFlags{PauseRequested: true}, PausedAt: &pausedAt}); pauseErr != nil {
			log.Error().Err(pauseErr).Msg("failed to pause import after dispatch failure")
		}
		return ControlOutput{}, fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	out := controlOutput(imp)
	out.Dispatched = len(ids)
	log.Info().Int("dispatched", len(ids)).Msg("import resumed")

	// Every chunk may already be done when the pause landed after the last one.
	if status, err := finalize(ctx, uc.repo, progressOf(imp), uc.now()); err == nil {
		out.Status = string(status)
	}
	return out, nil
}

type stopImport struct{ control }

func NewStopImport(repo domain.Repository, dispatcher Dispatcher, log zerolog.Logger) StopImport {
	return &stopImport{newControl(repo, dispatcher, log, "stop_import")}
}

// Execute stops the import for good. Waiting chunks become stopped; jobs
// already running re-check the import and stop at their next checkpoint.
func (uc *stopImport) Execute(ctx context.Context, in ControlInput) (ControlOutput, error) {
	imp, err := uc.loadOwned(ctx, in)
	if err != nil {
		return ControlOutput{}, err
	}
	now := uc.now()
	imp, err = uc.transition(ctx, imp,
		[]domain.ImportStatus{domain.ImportStatusPending, domain.ImportStatusProcessing, domain.ImportStatusPaused}, domain.ImportStatusStopped,
		domain.ImportUpdate{Flags: &domain.ControlFlags{StopRequested: true}, StoppedAt: &now})
	if err != nil {
		return ControlOutput{}, err
	}
	log := uc.log.With().Str("import_id", imp.ID).Logger()

	var stopped int64
	for _, from := range []domain.ChunkStatus{domain.ChunkStatusPending, domain.ChunkStatusPaused} {
		n, err := uc.repo.TransitionChunks(ctx, imp.ID, from, domain.ChunkStatusStopped)
		if err != nil {
			return ControlOutput{}, fmt.Errorf("%w: %v", ErrUpdateImport, err)
		}
		stopped += n
	}

	if removed, err := uc.dispatcher.Remove(ctx, imp.ID); err != nil {
		log.Warn().Err(err).Msg("failed to remove queued chunk jobs")
	} else {
		log.Debug().Int("removed", removed).Msg("removed queued chunk jobs")
	}

	out := controlOutput(imp)
	out.StoppedChunks = stopped
	log.Info().Int64("stopped_chunks", stopped).Msg("import stopped")
	return out, nil
}
