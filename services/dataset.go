package services

import (
	"fmt"
	"sort"
	"time"

	"llamarural/models"
	"llamarural/storage"
	"llamarural/utils"
)

// Dataset is the in-memory coverage table. It is loaded once and read-only
// afterwards, so it may be shared between concurrent readers.
type Dataset struct {
	records   []models.CoverageRecord
	operators []string
	source    string
	loadedAt  time.Time
	err       error
}

// NewDataset wraps already normalised records.
func NewDataset(records []models.CoverageRecord) *Dataset {
	seen := make(map[string]struct{})
	var ops []string
	for _, r := range records {
		if _, ok := seen[r.Operator]; ok {
			continue
		}
		seen[r.Operator] = struct{}{}
		ops = append(ops, r.Operator)
	}
	sort.Strings(ops)

	return &Dataset{records: records, operators: ops, loadedAt: time.Now()}
}

// UnavailableDataset records a failed load. Every query against it fails
// with ErrDataUnavailable.
func UnavailableDataset(err error) *Dataset {
	return &Dataset{err: err, loadedAt: time.Now()}
}

// LoadDataset reads and normalises the dataset at path. The returned Dataset
// is never nil: on failure it carries the load error so the process can keep
// serving and report the problem per query.
func LoadDataset(path string, reader *storage.CSVReader, logger *utils.Logger) (*Dataset, error) {
	start := time.Now()
	logger.Info("[dataset] Loading %s", path)

	raw, stats, err := reader.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrDataLoad, err)
		logger.Error("[dataset] %v", err)
		return UnavailableDataset(err), err
	}
	if stats.Skipped > 0 {
		logger.Warn("[dataset] Skipped %d malformed rows out of %d", stats.Skipped, stats.Rows)
	}
	if len(stats.Missing) > 0 {
		logger.Warn("[dataset] Optional columns not found: %v", stats.Missing)
	}

	records, _ := NewCleaner(logger).Clean(raw)
	if len(records) == 0 {
		err = fmt.Errorf("%w: %s contains no usable rows", ErrDataLoad, path)
		logger.Error("[dataset] %v", err)
		return UnavailableDataset(err), err
	}

	ds := NewDataset(records)
	ds.source = path
	logger.Info("[dataset] Loaded %d records, %d operators in %s",
		len(records), len(ds.operators), time.Since(start).Round(time.Millisecond))
	return ds, nil
}

// Err returns the load error, if any.
func (d *Dataset) Err() error {
	if d == nil {
		return fmt.Errorf("%w: dataset not loaded", ErrDataUnavailable)
	}
	if d.err != nil {
		return fmt.Errorf("%w: %w", ErrDataUnavailable, d.err)
	}
	return nil
}

// Records returns the loaded rows. The slice is shared and must not be modified.
func (d *Dataset) Records() []models.CoverageRecord {
	if d == nil {
		return nil
	}
	return d.records
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Operators returns the distinct operator names, sorted.
func (d *Dataset) Operators() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.operators))
	copy(out, d.operators)
	return out
}

// Source is the path the dataset was read from, empty for in-memory datasets.
func (d *Dataset) Source() string {
	if d == nil {
		return ""
	}
	return d.source
}

// LoadedAt is when the dataset was loaded, or the load failed.
func (d *Dataset) LoadedAt() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.loadedAt
}
