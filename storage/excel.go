package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"llamarural/models"
)

// Header aliases accepted in batch query files, after NormaliseHeader.
var pointAliases = map[string][]string{
	"id":       {"ID", "CODE", "CODIGO", "NAME", "NOMBRE"},
	"lat":      {"LAT", "LATITUDE", "LATITUD"},
	"lon":      {"LON", "LNG", "LONGITUDE", "LONGITUD"},
	"radius":   {"RADIUS", "RADIUS_KM", "RADIO", "RADIO_KM"},
	"operator": {"OPERATOR", "OPERADOR", "EMPRESA_OPERADORA"},
}

func parseCoord(val string) (float64, error) {
	// Accept comma decimal separators
	val = strings.TrimSpace(strings.ReplaceAll(val, ",", "."))
	if val == "" {
		return 0, fmt.Errorf("empty")
	}
	return strconv.ParseFloat(val, 64)
}

// ReadQueryPoints loads batch query points from an .xlsx (first sheet, or
// sheet when given) or a delimited text file. The delimiter of a text file
// is taken from its header line; delimiter is used only when the header
// holds none of ';', ',' or tab. Rows with unusable coordinates are
// skipped; a row without an id gets its row number as id.
func ReadQueryPoints(path, sheet string, delimiter rune) ([]models.QueryPoint, error) {
	var rows [][]string
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = readSheetRows(path, sheet)
	} else {
		rows, err = readDelimitedRows(path, delimiter)
	}
	if err != nil {
		return nil, err
	}
	return pointsFromRows(rows)
}

// DetectDelimiter picks the most frequent of ';', ',' and tab in header.
// Ties go to fallback when it is one of the tied runes, otherwise to the
// first in that order. A header with none of them yields fallback, or ','
// when fallback is zero.
func DetectDelimiter(header string, fallback rune) rune {
	best, bestCount := rune(0), 0
	for _, c := range []rune{fallback, ';', ',', '\t'} {
		if c == 0 {
			continue
		}
		if n := strings.Count(header, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	if best != 0 {
		return best
	}
	if fallback != 0 {
		return fallback
	}
	return ','
}

func readSheetRows(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open %q: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("xlsx: %q has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx: read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readDelimitedRows(path string, delimiter rune) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}

	header, _, _ := bytes.Cut(data, []byte("\n"))
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = DetectDelimiter(string(header), delimiter)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read %q: %w", path, err)
	}
	return rows, nil
}

func pointsFromRows(rows [][]string) ([]models.QueryPoint, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("batch: input has no header row")
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		key := NormaliseHeader(h)
		for name, aliases := range pointAliases {
			if _, seen := cols[name]; seen {
				continue
			}
			for _, a := range aliases {
				if key == a {
					cols[name] = i
				}
			}
		}
	}
	if _, ok := cols["lat"]; !ok {
		return nil, fmt.Errorf("batch: latitude column not found")
	}
	if _, ok := cols["lon"]; !ok {
		return nil, fmt.Errorf("batch: longitude column not found")
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var points []models.QueryPoint
	for i, row := range rows {
		if i == 0 {
			continue // Skip header
		}
		lat, err1 := parseCoord(cell(row, "lat"))
		lon, err2 := parseCoord(cell(row, "lon"))
		if err1 != nil || err2 != nil {
			continue // Skip invalid rows
		}

		p := models.QueryPoint{
			ID:        cell(row, "id"),
			Latitude:  lat,
			Longitude: lon,
			Operator:  cell(row, "operator"),
		}
		if p.ID == "" {
			p.ID = strconv.Itoa(i + 1)
		}
		if r, err := parseCoord(cell(row, "radius")); err == nil {
			p.RadiusKm = r
		}
		points = append(points, p)
	}
	return points, nil
}

var batchHeader = []string{
	"id", "lat", "lon", "radius_km", "operator", "matches",
	"nearest_locality", "nearest_operator", "nearest_distance_km",
	"2G", "3G", "4G", "5G", "high_speed", "operators", "error",
}

func batchRowValues(r models.BatchRow) []interface{} {
	row := []interface{}{
		r.Point.ID, r.Point.Latitude, r.Point.Longitude, r.Point.RadiusKm, r.Point.Operator, r.Count,
		"", "", "",
		r.Summary.ByTechnology["2G"], r.Summary.ByTechnology["3G"],
		r.Summary.ByTechnology["4G"], r.Summary.ByTechnology["5G"],
		r.Summary.HighSpeed, r.Summary.DistinctOperators, r.Err,
	}
	if r.Nearest != nil {
		row[6] = r.Nearest.Locality
		row[7] = r.Nearest.Operator
		row[8] = r.Nearest.DistanceKm
	}
	return row
}

// WriteBatchXLSX writes batch rows to a new workbook using the stream writer.
func WriteBatchXLSX(path string, rows []models.BatchRow, sheetName string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("xlsx: create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("xlsx: new sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("xlsx: stream writer: %w", err)
	}

	header := make([]interface{}, len(batchHeader))
	for i, h := range batchHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("xlsx: header: %w", err)
	}

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, batchRowValues(r)); err != nil {
			return fmt.Errorf("xlsx: row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx: flush: %w", err)
	}

	f.SetActiveSheet(index)
	if sheetName != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	return f.SaveAs(path)
}

// WriteBatchCSV writes batch rows as comma separated text.
func WriteBatchCSV(path string, rows []models.BatchRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(batchHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, r := range rows {
		values := batchRowValues(r)
		rec := make([]string, len(values))
		for i, v := range values {
			rec[i] = fmt.Sprint(v)
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// XLSXWriter exports search results to a workbook. Rows are buffered and the
// file is written on Close.
type XLSXWriter struct {
	path    string
	results []models.CachedResult
}

func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (x *XLSXWriter) WriteResults(results []models.CachedResult) error {
	x.results = append(x.results, results...)
	return nil
}

func (x *XLSXWriter) Close() error {
	if err := os.MkdirAll(filepath.Dir(x.path), 0755); err != nil {
		return fmt.Errorf("xlsx: create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("xlsx: new sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("xlsx: stream writer: %w", err)
	}

	header := make([]interface{}, len(resultHeader))
	for i, h := range resultHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("xlsx: header: %w", err)
	}
	for i, r := range x.results {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			r.DistanceKm, r.Locality, r.Operator, r.Department, r.Province, r.District,
			r.Latitude, r.Longitude, strings.Join(r.Technologies, " "), r.Speed,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("xlsx: row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx: flush: %w", err)
	}

	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")
	return f.SaveAs(x.path)
}

// NewResultExporter picks the exporter from the file extension.
func NewResultExporter(path string) (ResultExporter, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return NewXLSXWriter(path), nil
	}
	w, err := NewCSVWriter(path)
	if err != nil {
		return nil, err
	}
	return w, nil
}
