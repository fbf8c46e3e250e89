package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"

	"github.com/mohammadpnp/member-import/internal/domain/member"
)

var ErrInvalidRange = errors.New("invalid row range")

// errIrregular makes the strict parser hand over to the manual one.
var errIrregular = errors.New("irregular csv content")

type objectReader interface {
	Get(ctx context.Context, path, disk string) ([]byte, error)
}

// CSVReader reads header-keyed rows from files in durable storage.
// Data rows are counted from 0 after the header; blank lines are not rows.
type CSVReader struct {
	storage objectReader
}

func NewCSVReader(storage objectReader) *CSVReader {
	return &CSVReader{storage: storage}
}

// ReadChunk returns rows startRow..endRow inclusive. The whole file is
// parsed so every range agrees with TotalRows on row numbering.
func (r *CSVReader) ReadChunk(ctx context.Context, path, disk string, startRow, endRow int64) ([]member.RawRow, error) {
	if startRow < 0 || endRow < startRow {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, startRow, endRow)
	}
	data, err := r.storage.Get(ctx, path, disk)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseRange(ctx, data, startRow, endRow)
}

func (r *CSVReader) ReadAll(ctx context.Context, path, disk string) ([]member.RawRow, error) {
	data, err := r.storage.Get(ctx, path, disk)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	t, err := parse(ctx, data)
	if err != nil {
		return nil, err
	}
	return t.rows(0, int64(len(t.records))-1), nil
}

func (r *CSVReader) TotalRows(ctx context.Context, path, disk string) (int64, error) {
	data, err := r.storage.Get(ctx, path, disk)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	return CountRows(ctx, data)
}

// CountRows returns the number of data rows in data, excluding the header.
func CountRows(ctx context.Context, data []byte) (int64, error) {
	t, err := parse(ctx, data)
	if err != nil {
		return 0, err
	}
	return int64(len(t.records)), nil
}

// ParseRange parses data and returns the rows in [startRow, endRow].
func ParseRange(ctx context.Context, data []byte, startRow, endRow int64) ([]member.RawRow, error) {
	t, err := parse(ctx, data)
	if err != nil {
		return nil, err
	}
	return t.rows(startRow, endRow), nil
}

type table struct {
	header  []string
	records [][]string
}

func (t *table) rows(start, end int64) []member.RawRow {
	if start >= int64(len(t.records)) {
		return []member.RawRow{}
	}
	if end >= int64(len(t.records)) {
		end = int64(len(t.records)) - 1
	}
	out := make([]member.RawRow, 0, end-start+1)
	for _, rec := range t.records[start : end+1] {
		row := make(member.RawRow, len(t.header))
		for i, key := range t.header {
			row[i] = member.Field{Key: key, Value: rec[i]}
		}
		out = append(out, row)
	}
	return out
}

// parse picks the parser from the whole file, never from a prefix of it.
func parse(ctx context.Context, data []byte) (*table, error) {
	text, err := decode(data)
	if err != nil {
		return nil, err
	}
	delim := sniffDelimiter(text)

	t, err := parseStrict(ctx, text, delim)
	if errors.Is(err, errIrregular) {
		return parseManual(ctx, text, delim)
	}
	return t, err
}

// decode transcodes UTF-16 and UTF-32 content to UTF-8 and drops a UTF-8 BOM.
func decode(data []byte) (string, error) {
	var (
		out []byte
		err error
	)
	switch {
	case bytes.HasPrefix(data, []byte{0x00, 0x00, 0xfe, 0xff}):
		out, err = utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder().Bytes(data)
	case bytes.HasPrefix(data, []byte{0xff, 0xfe, 0x00, 0x00}):
		out, err = utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder().Bytes(data)
	case bytes.HasPrefix(data, []byte{0xfe, 0xff}):
		out, err = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
	case bytes.HasPrefix(data, []byte{0xff, 0xfe}):
		out, err = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
	default:
		out = bytes.TrimPrefix(data, []byte{0xef, 0xbb, 0xbf})
	}
	if err != nil {
		return "", fmt.Errorf("decode csv: %w", err)
	}
	return string(out), nil
}

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// sniffDelimiter picks the candidate seen most often outside quotes on the header line.
func sniffDelimiter(text string) rune {
	header := firstNonBlankLine(text)
	counts := make(map[rune]int, len(candidateDelimiters))
	inQuotes := false
	for _, r := range header {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best := ','
	for _, d := range candidateDelimiters {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

func firstNonBlankLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

func parseStrict(ctx context.Context, text string, delim rune) (*table, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = delim
	cr.FieldsPerRecord = -1

	t := &table{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errIrregular, err)
		}
		if blankRecord(rec) {
			continue
		}
		if t.header == nil {
			t.header = cleanHeader(rec)
			continue
		}
		if len(rec) != len(t.header) {
			return nil, fmt.Errorf("%w: %d fields, header has %d", errIrregular, len(rec), len(t.header))
		}
		t.records = append(t.records, rec)
		if len(t.records)%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
}

// parseManual splits records by hand, padding short rows and truncating long ones.
func parseManual(ctx context.Context, text string, delim rune) (*table, error) {
	t := &table{}
	for _, fields := range splitRecords(text, delim) {
		if blankRecord(fields) {
			continue
		}
		if t.header == nil {
			t.header = cleanHeader(fields)
			continue
		}
		rec := make([]string, len(t.header))
		copy(rec, fields)
		t.records = append(t.records, rec)
		if len(t.records)%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// splitRecords honours double-quoted fields, including delimiters, line breaks
// and doubled quotes inside them. Stray quotes are kept as text.
func splitRecords(text string, delim rune) [][]string {
	var (
		records  [][]string
		fields   []string
		field    strings.Builder
		inQuotes bool
	)
	endRecord := func() {
		records = append(records, append(fields, strings.TrimSuffix(field.String(), "\r")))
		fields = nil
		field.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case inQuotes && c == '"' && i+1 < len(runes) && runes[i+1] == '"':
			field.WriteRune('"')
			i++
		case c == '"' && (inQuotes || strings.TrimSpace(field.String()) == ""):
			if !inQuotes {
				field.Reset()
			}
			inQuotes = !inQuotes
		case inQuotes && c == '\r' && i+1 < len(runes) && runes[i+1] == '\n':
			// CRLF inside a quoted field is read as LF, as encoding/csv does.
		case c == '\n' && !inQuotes:
			endRecord()
		case c == delim && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(c)
		}
	}
	if len(fields) > 0 || field.Len() > 0 {
		endRecord()
	}
	return records
}

func blankRecord(rec []string) bool {
	return len(rec) == 1 && strings.TrimSpace(rec[0]) == ""
}

func cleanHeader(rec []string) []string {
	header := make([]string, len(rec))
	for i, h := range rec {
		header[i] = strings.TrimSpace(h)
	}
	return header
}
