package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"llamarural/models"
)

// ErrCacheWrite wraps every failure to persist a result set.
var ErrCacheWrite = errors.New("result cache write failed")

// ResultCache is the interface any result cache backend must satisfy.
//
// Persist replaces the stored set wholesale; an empty set is a no-op so an
// empty search never clears a previous non-empty one. Load reports false
// when nothing was persisted or the store cannot be read.
type ResultCache interface {
	Persist(ctx context.Context, results []models.CachedResult) error
	Load(ctx context.Context) ([]models.CachedResult, bool)
	Close() error
}

// ResultExporter writes a result set to an export format (CSV, XLSX).
type ResultExporter interface {
	WriteResults(results []models.CachedResult) error
	Close() error
}

// encodeResults is the shared JSON encoding: an array of objects indented
// with four spaces.
func encodeResults(results []models.CachedResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(results); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeResults(data []byte) ([]models.CachedResult, bool) {
	var results []models.CachedResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, false
	}
	if results == nil {
		return nil, false
	}
	return results, true
}

// FormatContext renders a cached result set as the text handed to the chat
// assistant.
func FormatContext(results []models.CachedResult) string {
	data, err := encodeResults(results)
	if err != nil {
		return ""
	}
	return string(bytes.TrimRight(data, "\n"))
}
