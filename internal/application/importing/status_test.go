package importing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mohammadpnp/member-import/internal/application/importing"
	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
)

const mixedCSV = "First Name,Last Name,Email,Member ID\n" +
	"Jane,Doe,jane@example.com,A1\n" +
	",,,\n" +
	"Test,Account,test@example.com,\n" +
	"John,Roe,john@example.com,A2\n" +
	"Jane,Smith,someone@example.com,A1\n"

func TestGetImportStatusReportsProgress(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, 2)
	out := p.startCSV(t, mixedCSV)
	ctx := context.Background()

	tasks := p.queue.take()
	require.Len(t, tasks, 3)
	require.NoError(t, p.job.Handle(ctx, tasks[0]))

	st, err := p.status.Execute(ctx, importing.StatusInput{ImportID: out.ImportID})
	require.NoError(t, err)
	require.Equal(t, "processing", st.Status)
	require.EqualValues(t, 2, st.Counters.ProcessedRows)
	require.Equal(t, 40.0, st.Percentage)
	require.Equal(t, 1, st.Chunks[domain.ChunkStatusCompleted])
	require.Equal(t, 2, st.Chunks[domain.ChunkStatusPending])
	require.NotNil(t, st.CurrentChunkIndex)
	require.Equal(t, 0, *st.CurrentChunkIndex)

	for _, task := range tasks[1:] {
		require.NoError(t, p.job.Handle(ctx, task))
	}
	st, err = p.status.Execute(ctx, importing.StatusInput{ImportID: out.ImportID, OwnerID: owner})
	require.NoError(t, err)
	require.Equal(t, "completed", st.Status)
	require.Equal(t, 100.0, st.Percentage)
	require.EqualValues(t, 2, st.Counters.CreatedRows)
	require.EqualValues(t, 1, st.Counters.UpdatedRows)
	require.EqualValues(t, 2, st.Counters.SkippedRows)

	_, err = p.status.Execute(ctx, importing.StatusInput{ImportID: out.ImportID, OwnerID: "intruder"})
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestGetImportStatusClosesFinishedImport(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, 10)
	out := p.startCSV(t, rosterCSV(2))
	ctx := context.Background()
	task := p.queue.take()[0]

	// Simulate a worker that counted the chunk but died before closing the import.
	ok, err := p.repo.ClaimChunk(ctx, task.ChunkID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, p.repo.CompleteChunk(ctx, task.ChunkID, domain.ChunkResult{}, time.Now()))
	_, err = p.repo.ApplyChunk(ctx, task.ChunkID)
	require.NoError(t, err)
	require.Equal(t, domain.ImportStatusProcessing, p.importOf(t, out.ImportID).Status)

	st, err := p.status.Execute(ctx, importing.StatusInput{ImportID: out.ImportID})
	require.NoError(t, err)
	require.Equal(t, "completed", st.Status)
	require.NotNil(t, st.CompletedAt)
}

func TestGetRowResultsFiltersAndPaginates(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, 2)
	out := p.startCSV(t, mixedCSV)
	p.drain(t)
	ctx := context.Background()

	all, err := p.results.Execute(ctx, importing.RowResultsInput{ImportID: out.ImportID, OwnerID: owner})
	require.NoError(t, err)
	require.Len(t, all.Data, 5)
	require.EqualValues(t, 5, all.Summary.Total)
	require.EqualValues(t, 2, all.Summary.Skipped)
	for i, item := range all.Data {
		require.EqualValues(t, i+1, item.RowNumber)
		require.Equal(t, i/2, item.ChunkIndex)
	}

	skipped, err := p.results.Execute(ctx, importing.RowResultsInput{
		ImportID: out.ImportID,
		Filter:   domain.RowResultFilter{Action: domain.RowActionSkipped},
	})
	require.NoError(t, err)
	require.Len(t, skipped.Data, 2)
	require.EqualValues(t, 2, skipped.Summary.Skipped)
	require.Zero(t, skipped.Summary.Created)

	search, err := p.results.Execute(ctx, importing.RowResultsInput{
		ImportID: out.ImportID,
		Filter:   domain.RowResultFilter{Search: "ROE"},
	})
	require.NoError(t, err)
	require.Len(t, search.Data, 1)
	require.EqualValues(t, 4, search.Data[0].RowNumber)

	chunk := 2
	byChunk, err := p.results.Execute(ctx, importing.RowResultsInput{
		ImportID: out.ImportID,
		Filter:   domain.RowResultFilter{ChunkIndex: &chunk},
	})
	require.NoError(t, err)
	require.Len(t, byChunk.Data, 1)
	require.Equal(t, domain.RowActionUpdated, byChunk.Data[0].Action)

	page, err := p.results.Execute(ctx, importing.RowResultsInput{
		ImportID: out.ImportID,
		Page:     domain.Page{Page: 2, PerPage: 2},
	})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	require.EqualValues(t, 3, page.Data[0].RowNumber)
	require.Equal(t, importing.Pagination{Page: 2, PerPage: 2, Total: 5, LastPage: 3}, page.Pagination)
	require.EqualValues(t, 5, page.Summary.Total)

	_, err = p.results.Execute(ctx, importing.RowResultsInput{
		ImportID: out.ImportID,
		Filter:   domain.RowResultFilter{Action: "exploded"},
	})
	require.ErrorIs(t, err, importing.ErrInvalidFilter)
}
