package storage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"llamarural/models"
)

// CSVReader reads the coverage dataset into raw records. The source file is
// a delimited table with a header row; cells are decoded from Encoding
// ("latin-1" or "utf-8") before parsing.
type CSVReader struct {
	Delimiter rune
	Encoding  string
}

// ReadStats reports how many data rows were seen and skipped.
type ReadStats struct {
	Rows    int
	Skipped int
	Missing []string
}

// ReadFile opens path and reads it with Read.
func (r *CSVReader) ReadFile(path string) ([]*models.RawRecord, ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ReadStats{}, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()
	return r.Read(f)
}

// Read parses src. Rows whose field count does not match the header, or that
// the csv package cannot parse, are skipped and counted. A missing required
// column fails the whole read.
func (r *CSVReader) Read(src io.Reader) ([]*models.RawRecord, ReadStats, error) {
	var stats ReadStats

	decoded, err := r.decoder(src)
	if err != nil {
		return nil, stats, err
	}

	cr := csv.NewReader(decoded)
	cr.Comma = r.delimiter()
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, stats, errors.New("csv: empty file, header row missing")
	}
	if err != nil {
		return nil, stats, fmt.Errorf("csv: read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		key := NormaliseHeader(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	for _, col := range models.RequiredColumns {
		if _, ok := index[col]; !ok {
			stats.Missing = append(stats.Missing, col)
		}
	}
	if len(stats.Missing) > 0 {
		return nil, stats, fmt.Errorf("csv: missing required columns %s", strings.Join(stats.Missing, ", "))
	}
	for _, col := range models.OptionalColumns {
		if _, ok := index[col]; !ok {
			stats.Missing = append(stats.Missing, col)
		}
	}

	var records []*models.RawRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		stats.Rows++
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				stats.Skipped++
				continue
			}
			return nil, stats, fmt.Errorf("csv: read row %d: %w", stats.Rows+1, err)
		}
		if len(row) != len(header) {
			stats.Skipped++
			continue
		}

		line, _ := cr.FieldPos(0)
		rec := &models.RawRecord{Line: line, Fields: make(map[string]string, len(index))}
		for col, i := range index {
			rec.Fields[col] = strings.TrimSpace(row[i])
		}
		records = append(records, rec)
	}

	return records, stats, nil
}

func (r *CSVReader) delimiter() rune {
	if r.Delimiter == 0 {
		return ';'
	}
	return r.Delimiter
}

func (r *CSVReader) decoder(src io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.ReplaceAll(r.Encoding, "_", "-")) {
	case "", "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return transform.NewReader(src, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(src, charmap.Windows1252.NewDecoder()), nil
	case "utf-8", "utf8":
		br := bufio.NewReader(src)
		if bom, err := br.Peek(3); err == nil && string(bom) == "\xef\xbb\xbf" {
			_, _ = br.Discard(3)
		}
		return br, nil
	default:
		return nil, fmt.Errorf("csv: unsupported encoding %q", r.Encoding)
	}
}

// NormaliseHeader maps a header cell to its canonical column key.
func NormaliseHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripAccents, h)
	if err != nil {
		folded = h
	}
	folded = strings.ToUpper(strings.TrimSpace(folded))
	return strings.Join(strings.Fields(folded), "_")
}
