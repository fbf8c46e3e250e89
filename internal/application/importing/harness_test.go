package importing_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mohammadpnp/member-import/internal/application/importing"
	"github.com/mohammadpnp/member-import/internal/application/reconcile"
	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
	"github.com/mohammadpnp/member-import/internal/infrastructure/file"
	"github.com/mohammadpnp/member-import/internal/infrastructure/repository"
	"github.com/mohammadpnp/member-import/internal/normalize"
	"github.com/mohammadpnp/member-import/internal/testutil"
)

const owner = "owner-1"

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) Get(_ context.Context, path, _ string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (s *memStorage) Put(_ context.Context, path, _ string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = data
	return nil
}

func (s *memStorage) Delete(_ context.Context, path, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

func (s *memStorage) DefaultDisk() string { return "memory" }

func (s *memStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// fakeQueue records dispatched chunk jobs in order.
type fakeQueue struct {
	mu      sync.Mutex
	err     error
	tasks   []importing.ChunkTask
	removed []string
}

func (q *fakeQueue) DispatchChunks(_ context.Context, importID string, chunkIDs []string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	for _, id := range chunkIDs {
		q.tasks = append(q.tasks, importing.ChunkTask{ImportID: importID, ChunkID: id, Attempt: 1})
	}
	return nil
}

func (q *fakeQueue) Remove(_ context.Context, importID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.tasks[:0]
	n := 0
	for _, task := range q.tasks {
		if task.ImportID == importID {
			n++
			continue
		}
		kept = append(kept, task)
	}
	q.tasks = kept
	q.removed = append(q.removed, importID)
	return n, nil
}

func (q *fakeQueue) take() []importing.ChunkTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	tasks := q.tasks
	q.tasks = nil
	return tasks
}

func (q *fakeQueue) fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}

type pipeline struct {
	repo      *repository.ImportRepository
	members   *repository.MemberStore
	files     *memStorage
	queue     *fakeQueue
	reader    *file.CSVReader
	processor *importing.ChunkProcessor
	start     importing.StartImport
	pause     importing.PauseImport
	resume    importing.ResumeImport
	stop      importing.StopImport
	status    importing.GetImportStatus
	results   importing.GetRowResults
	job       *importing.ChunkJob
}

func newPipeline(t *testing.T, chunkSize int) *pipeline {
	t.Helper()

	gdb := testutil.NewTestDB(t)
	p := &pipeline{
		repo:    repository.NewImportRepository(gdb),
		members: repository.NewMemberStore(gdb),
		files:   newMemStorage(),
		queue:   &fakeQueue{},
	}
	require.NoError(t, p.members.SeedCatalog(context.Background(),
		[]string{"Member", "Affiliate Officer", "Steward"},
		[]string{"Steward"},
		[]string{"President", "Treasurer"},
	))

	opts := reconcile.DefaultOptions()
	log := zerolog.Nop()
	p.reader = file.NewCSVReader(p.files)
	p.processor = importing.NewChunkProcessor(
		normalize.NewCleaner(nil),
		reconcile.NewReconciler(p.members, nil, opts, log),
		reconcile.NewAssigner(p.members, opts, log),
		log,
	)
	p.start = importing.NewStartImport(p.repo, p.files, p.reader, p.queue, importing.StartImportConfig{ChunkSize: chunkSize}, log)
	p.pause = importing.NewPauseImport(p.repo, log)
	p.resume = importing.NewResumeImport(p.repo, p.queue, log)
	p.stop = importing.NewStopImport(p.repo, p.queue, log)
	p.status = importing.NewGetImportStatus(p.repo)
	p.results = importing.NewGetRowResults(p.repo)
	p.job = importing.NewChunkJob(p.repo, p.repo, p.reader, p.processor, 3, log)
	return p
}

func (p *pipeline) startCSV(t *testing.T, csv string) importing.StartImportOutput {
	t.Helper()
	out, err := p.start.Execute(context.Background(), importing.StartImportInput{
		Filename: "roster.csv",
		Data:     []byte(csv),
		OwnerID:  owner,
	})
	require.NoError(t, err)
	return out
}

// drain runs every queued job until the queue stays empty.
func (p *pipeline) drain(t *testing.T) {
	t.Helper()
	for {
		tasks := p.queue.take()
		if len(tasks) == 0 {
			return
		}
		for _, task := range tasks {
			require.NoError(t, p.job.Handle(context.Background(), task))
		}
	}
}

func (p *pipeline) importOf(t *testing.T, id string) *domain.Import {
	t.Helper()
	imp, err := p.repo.GetImport(context.Background(), id)
	require.NoError(t, err)
	return imp
}

func (p *pipeline) chunks(t *testing.T, id string) []domain.Chunk {
	t.Helper()
	chunks, err := p.repo.ListChunks(context.Background(), id)
	require.NoError(t, err)
	return chunks
}
