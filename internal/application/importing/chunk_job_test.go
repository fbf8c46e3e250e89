package importing_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mohammadpnp/member-import/internal/application/importing"
	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
	"github.com/mohammadpnp/member-import/internal/domain/member"
)

func rosterCSV(rows int) string {
	var b strings.Builder
	b.WriteString("First Name,Last Name,Email,Member ID\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "Person,Number%s,person%d@example.com,ID%04d\n", strings.Repeat("x", i%3), i, i)
	}
	return b.String()
}

func TestSmallFileImportsAsOneChunk(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, 10)
	out := p.startCSV(t, "First Name,Last Name,Email\nJane,Doe,jane@example.com\n,,\nTest,User,\n")
	require.EqualValues(t, 3, out.TotalRows)
	require.Equal(t, 1, out.TotalChunks)
	require.Equal(t, "processing", out.Status)

	p.drain(t)

	imp := p.importOf(t, out.ImportID)
	require.Equal(t, domain.ImportStatusCompleted, imp.Status)
	require.NotNil(t, imp.CompletedAt)
	require.EqualValues(t, 3, imp.Counters.ProcessedRows)
	require.EqualValues(t, 1, imp.Counters.SuccessRows)
	require.EqualValues(t, 1, imp.Counters.CreatedRows)
	require.EqualValues(t, 2, imp.Counters.SkippedRows)
	require.True(t, imp.Counters.Balanced())

	chunks := p.chunks(t, out.ImportID)
	require.Len(t, chunks, 1)
	results := chunks[0].RowResults
	require.Len(t, results, 3)
	for i, rr := range results {
		require.EqualValues(t, i+1, rr.RowNumber)
	}
	require.Equal(t, domain.RowActionCreated, results[0].Action)
	require.Equal(t, "Empty row", results[1].Message)
	require.Equal(t, "Test record", results[2].Message)
	require.Equal(t, "j***@example.com", results[0].Data["Email"])
}

func TestRedeliveredChunkJobIsNoop(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, 2)
	out := p.startCSV(t, rosterCSV(4))
	tasks := p.queue.take()
	require.Len(t, tasks, 2)

	for _, task := range tasks {
		require.NoError(t, p.job.Handle(context.Background(), task))
	}
	first := p.importOf(t, out.ImportID)

	for _, task := range tasks {
		require.NoError(t, p.job.Handle(context.Background(), task))
	}
	second := p.importOf(t, out.ImportID)

	require.Equal(t, first.Counters, second.Counters)
	require.Equal(t, first.ProcessedChunks, second.ProcessedChunks)
	require.Equal(t, domain.ImportStatusCompleted, second.Status)
	for _, c := range p.chunks(t, out.ImportID) {
		require.Equal(t, 1, c.Attempts)
	}
}

func TestConcurrentChunksAggregateExactly(t *testing.T) {
	t.Parallel()

	const rows = 60
	p := newPipeline(t, 5)
	out := p.startCSV(t, rosterCSV(rows))
	tasks := p.queue.take()
	require.Len(t, tasks, 12)

	var wg sync.WaitGroup
	errs := make(chan error, len(tasks)*2)
	for _, task := range tasks {
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(task importing.ChunkTask) {
				defer wg.Done()
				errs <- p.job.Handle(context.Background(), task)
			}(task)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	imp := p.importOf(t, out.ImportID)
	require.Equal(t, domain.ImportStatusCompleted, imp.Status)
	require.EqualValues(t, rows, imp.Counters.ProcessedRows)
	require.EqualValues(t, rows, imp.Counters.CreatedRows)
	require.Equal(t, 12, imp.ProcessedChunks)
	require.True(t, imp.Counters.Balanced())

	var sum int64
	for _, c := range p.chunks(t, out.ImportID) {
		sum += c.Counters.ProcessedRows
		require.Len(t, c.RowResults, int(c.RowCount()))
	}
	require.EqualValues(t, rows, sum)
}

type gatedProcessor struct {
	inner   *importing.ChunkProcessor
	started chan struct{}
	release chan struct{}
}

func (g *gatedProcessor) Process(ctx context.Context, chunk *domain.Chunk, imp *domain.Import, rows []member.RawRow) (domain.ChunkResult, error) {
	g.started <- struct{}{}
	<-g.release
	return g.inner.Process(ctx, chunk, imp, rows)
}

func TestStopMidFlightFinishesRunningChunksOnly(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, 2)
	out := p.startCSV(t, rosterCSV(6))
	tasks := p.queue.take()
	require.Len(t, tasks, 3)

	gate := &gatedProcessor{inner: p.processor, started: make(chan struct{}, 2), release: make(chan struct{})}
	job := importing.NewChunkJob(p.repo, p.repo, p.reader, gate, 3, zerolog.Nop())

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, task := range tasks[:2] {
		wg.Add(1)
		go func(task importing.ChunkTask) {
			defer wg.Done()
			errs <- job.Handle(context.Background(), task)
		}(task)
	}
	<-gate.started
	<-gate.started

	stopped, err := p.stop.Execute(context.Background(), importing.ControlInput{ImportID: out.ImportID, OwnerID: owner})
	require.NoError(t, err)
	require.Equal(t, "stopped", stopped.Status)
	require.EqualValues(t, 1, stopped.StoppedChunks)

	close(gate.release)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.NoError(t, job.Handle(context.Background(), tasks[2]))

	imp := p.importOf(t, out.ImportID)
	require.Equal(t, domain.ImportStatusStopped, imp.Status)
	require.True(t, imp.Flags.StopRequested)
	require.EqualValues(t, 4, imp.Counters.ProcessedRows)
	require.Equal(t, 2, imp.ProcessedChunks)

	chunks := p.chunks(t, out.ImportID)
	require.Equal(t, domain.ChunkStatusCompleted, chunks[0].Status)
	require.Equal(t, domain.ChunkStatusCompleted, chunks[1].Status)
	require.Equal(t, domain.ChunkStatusStopped, chunks[2].Status)
	require.Zero(t, chunks[2].Counters.ProcessedRows)
	require.Empty(t, chunks[2].RowResults)
}

func TestStopBeforeReadStopsClaimedChunk(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, 10)
	out := p.startCSV(t, rosterCSV(3))
	tasks := p.queue.take()

	// Flag the import without running the stop use case, so the pending chunk survives.
	flags := domain.ControlFlags{StopRequested: true}
	ok, err := p.repo.TransitionImport(context.Background(), out.ImportID,
		[]domain.ImportStatus{domain.ImportStatusProcessing}, domain.ImportStatusProcessing, domain.ImportUpdate{Flags: &flags})
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, p.job.Handle(context.Background(), tasks[0]))
	chunk, err := p.repo.GetChunk(context.Background(), tasks[0].ChunkID)
	require.NoError(t, err)
	require.Equal(t, domain.ChunkStatusStopped, chunk.Status)
	require.NotNil(t, chunk.LastError)
	require.Contains(t, *chunk.LastError, "stopped")
}

func TestChunkJobRetriesThenFails(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, 10)
	out := p.startCSV(t, rosterCSV(3))
	tasks := p.queue.take()
	require.Len(t, tasks, 1)

	imp := p.importOf(t, out.ImportID)
	require.NoError(t, p.files.Delete(context.Background(), imp.Path, imp.Disk))

	task := tasks[0]
	err := p.job.Handle(context.Background(), task)
	require.ErrorIs(t, err, importing.ErrChunkJob)

	chunk, err := p.repo.GetChunk(context.Background(), task.ChunkID)
	require.NoError(t, err)
	require.Equal(t, domain.ChunkStatusPending, chunk.Status)
	require.Equal(t, 1, chunk.Attempts)
	require.NotNil(t, chunk.LastError)

	task.Attempt = 3
	require.ErrorIs(t, p.job.Handle(context.Background(), task), importing.ErrChunkJob)

	chunk, err = p.repo.GetChunk(context.Background(), task.ChunkID)
	require.NoError(t, err)
	require.Equal(t, domain.ChunkStatusFailed, chunk.Status)
	require.NotNil(t, chunk.AggregatedAt)

	imp = p.importOf(t, out.ImportID)
	require.Equal(t, domain.ImportStatusFailed, imp.Status)
	require.Equal(t, 1, imp.FailedChunks)
	require.Equal(t, 1, imp.ProcessedChunks)
	require.Zero(t, imp.Counters.ProcessedRows)

	// The dead-lettered job may come back; it must not count the chunk again.
	require.NoError(t, p.job.Handle(context.Background(), task))
	require.Equal(t, 1, p.importOf(t, out.ImportID).ProcessedChunks)
}

func TestChunkJobDiscardsUnknownRecords(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, 10)
	require.NoError(t, p.job.Handle(context.Background(), importing.ChunkTask{ImportID: "missing", ChunkID: "missing", Attempt: 1}))

	out := p.startCSV(t, rosterCSV(1))
	require.NoError(t, p.job.Handle(context.Background(), importing.ChunkTask{ImportID: out.ImportID, ChunkID: "missing", Attempt: 1}))
}
