package file_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/mohammadpnp/member-import/internal/domain/member"
	"github.com/mohammadpnp/member-import/internal/infrastructure/file"
)

type memoryStorage map[string][]byte

func (m memoryStorage) Get(_ context.Context, path, _ string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func values(rows []member.RawRow, key string) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Get(key))
	}
	return out
}

func TestReadChunkReturnsInclusiveRange(t *testing.T) {
	t.Parallel()

	storage := memoryStorage{"r.csv": []byte("Name,Email\nA,a@x.com\nB,b@x.com\nC,c@x.com\nD,d@x.com\nE,e@x.com\n")}
	reader := file.NewCSVReader(storage)

	rows, err := reader.ReadChunk(context.Background(), "r.csv", "local", 1, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "C", "D"}, values(rows, "Name"))

	rows, err = reader.ReadChunk(context.Background(), "r.csv", "local", 4, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"E"}, values(rows, "Name"))

	rows, err = reader.ReadChunk(context.Background(), "r.csv", "local", 7, 9)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestReadChunkRejectsInvalidRange(t *testing.T) {
	t.Parallel()

	reader := file.NewCSVReader(memoryStorage{"r.csv": []byte("a\n1\n")})
	_, err := reader.ReadChunk(context.Background(), "r.csv", "local", 3, 1)
	require.ErrorIs(t, err, file.ErrInvalidRange)
}

func TestTotalRowsSkipsBlankLines(t *testing.T) {
	t.Parallel()

	storage := memoryStorage{"r.csv": []byte("First Name,Last Name\r\nJane,Doe\r\n\r\n   \r\n,\r\nJohn,Roe\r\n\n")}
	reader := file.NewCSVReader(storage)

	total, err := reader.TotalRows(context.Background(), "r.csv", "local")
	require.NoError(t, err)
	require.EqualValues(t, 3, total)

	rows, err := reader.ReadAll(context.Background(), "r.csv", "local")
	require.NoError(t, err)
	require.Equal(t, []string{"Jane", "", "John"}, values(rows, "First Name"))
	require.True(t, rows[1].Empty())
}

func TestEmptyFileHasNoRows(t *testing.T) {
	t.Parallel()

	reader := file.NewCSVReader(memoryStorage{"h.csv": []byte("Name,Email\n"), "e.csv": {}})

	for _, path := range []string{"h.csv", "e.csv"} {
		total, err := reader.TotalRows(context.Background(), path, "")
		require.NoError(t, err)
		require.Zero(t, total, path)
	}
}

func TestReadAllTranscodesUTF16(t *testing.T) {
	t.Parallel()

	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("Last Name,City\nMüller,Köln\n")
	require.NoError(t, err)

	rows, err := file.NewCSVReader(memoryStorage{"u.csv": []byte(encoded)}).ReadAll(context.Background(), "u.csv", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Müller", rows[0].Get("Last Name"))
	require.Equal(t, "Köln", rows[0].Get("City"))
}

func TestReadAllStripsUTF8BOM(t *testing.T) {
	t.Parallel()

	rows, err := file.NewCSVReader(memoryStorage{"b.csv": []byte("\xef\xbb\xbfEmail\na@x.com\n")}).ReadAll(context.Background(), "b.csv", "")
	require.NoError(t, err)
	require.Equal(t, "a@x.com", rows[0].Get("Email"))
}

func TestIrregularRowsFallBackToManualParser(t *testing.T) {
	t.Parallel()

	storage := memoryStorage{"x.csv": []byte("a,b,c\n1,2\n4,5,6,7\n\"q,1\",x\"y,z\n")}
	rows, err := file.NewCSVReader(storage).ReadAll(context.Background(), "x.csv", "")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, []string{"1", "4", "q,1"}, values(rows, "a"))
	require.Equal(t, []string{"2", "5", `x"y`}, values(rows, "b"))
	require.Equal(t, "", rows[0].Get("c"))
	require.Equal(t, "6", rows[1].Get("c"))
	require.Len(t, rows[1], 3)
}

func TestDelimiterIsSniffedFromHeader(t *testing.T) {
	t.Parallel()

	storage := memoryStorage{
		"semi.csv": []byte("Name;Email;City\nAnn;a@x.com;Austin, TX\n"),
		"tab.csv":  []byte("Name\tEmail\nAnn\ta@x.com\n"),
		"pipe.csv": []byte("Name|Email\nAnn|a@x.com\n"),
	}
	reader := file.NewCSVReader(storage)
	for path := range storage {
		rows, err := reader.ReadAll(context.Background(), path, "")
		require.NoError(t, err, path)
		require.Equal(t, "a@x.com", rows[0].Get("Email"), path)
	}
	rows, _ := reader.ReadAll(context.Background(), "semi.csv", "")
	require.Equal(t, "Austin, TX", rows[0].Get("City"))
}

func TestChunkedReadsMatchFullScan(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("Member ID,Name\n")
	for i := 0; i < 47; i++ {
		if i%9 == 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "M%03d,Person %d\n", i, i)
	}
	storage := memoryStorage{"big.csv": []byte(b.String())}
	reader := file.NewCSVReader(storage)

	all, err := reader.ReadAll(context.Background(), "big.csv", "")
	require.NoError(t, err)
	require.Len(t, all, 47)

	var chunked []member.RawRow
	for start := int64(0); start < 47; start += 10 {
		rows, err := reader.ReadChunk(context.Background(), "big.csv", "", start, start+9)
		require.NoError(t, err)
		chunked = append(chunked, rows...)
	}
	require.Equal(t, all, chunked)
}

func TestQuotedLineBreaksKeepRowNumberingStable(t *testing.T) {
	t.Parallel()

	for name, content := range map[string]string{
		"ragged":  "First Name,Last Name,Address\nAnn,Lee,\"12 Main St\nApt 4\"\nBob,Roe,1 Elm\nCat,Poe,2 Oak\nDan,Ray\n",
		"regular": "First Name,Last Name,Address\nAnn,Lee,\"12 Main St\r\nApt 4\"\nBob,Roe,1 Elm\nCat,Poe,2 Oak\nDan,Ray,\n",
	} {
		reader := file.NewCSVReader(memoryStorage{"m.csv": []byte(content)})
		ctx := context.Background()

		total, err := reader.TotalRows(ctx, "m.csv", "")
		require.NoError(t, err, name)
		require.EqualValues(t, 4, total, name)

		all, err := reader.ReadAll(ctx, "m.csv", "")
		require.NoError(t, err, name)
		require.Equal(t, []string{"Ann", "Bob", "Cat", "Dan"}, values(all, "First Name"), name)
		require.Equal(t, "12 Main St\nApt 4", all[0].Get("Address"), name)
		require.Equal(t, "", all[3].Get("Address"), name)

		var chunked []member.RawRow
		for start := int64(0); start < total; start += 2 {
			rows, err := reader.ReadChunk(ctx, "m.csv", "", start, start+1)
			require.NoError(t, err, name)
			require.Len(t, rows, 2, name)
			chunked = append(chunked, rows...)
		}
		require.Equal(t, all, chunked, name)
	}
}
