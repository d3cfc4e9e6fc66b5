package services

import (
	"context"
	"sync"

	"llamarural/models"
	"llamarural/storage"
	"llamarural/utils"
)

// CoverageService is the single entry point the presentation layers use:
// search, caching of the last non-empty result set, and statistics.
type CoverageService struct {
	search *SearchService
	cache  storage.ResultCache
	logger *utils.Logger

	globalOnce sync.Once
	global     models.CoverageSummary
}

// NewCoverageService wires a dataset to a result cache. cache may be nil, in
// which case results are never persisted.
func NewCoverageService(ds *Dataset, cache storage.ResultCache, logger *utils.Logger) *CoverageService {
	return &CoverageService{
		search: NewSearchService(ds, logger),
		cache:  cache,
		logger: logger,
	}
}

// Dataset returns the underlying dataset.
func (s *CoverageService) Dataset() *Dataset { return s.search.Dataset() }

// Search runs a proximity search. A non-empty outcome replaces the cached
// result set; an empty one leaves it untouched. Cache failures are logged
// and never fail the search.
func (s *CoverageService) Search(ctx context.Context, q models.SearchQuery) ([]models.SearchResult, error) {
	results, err := s.search.Search(q)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || s.cache == nil {
		return results, nil
	}

	if err := s.cache.Persist(ctx, models.NewCachedResultSet(results)); err != nil {
		s.logger.Warn("[coverage] %v", err)
	} else {
		s.logger.Debug("[coverage] Cached %d results", len(results))
	}
	return results, nil
}

// GlobalSummary aggregates the whole dataset. It is computed once; each
// caller gets its own copy of the count maps.
func (s *CoverageService) GlobalSummary() (models.CoverageSummary, error) {
	ds := s.search.Dataset()
	if err := ds.Err(); err != nil {
		return models.CoverageSummary{}, err
	}
	s.globalOnce.Do(func() {
		s.global = Aggregate(ds.Records())
	})
	return cloneSummary(s.global), nil
}

func cloneSummary(in models.CoverageSummary) models.CoverageSummary {
	out := in
	out.ByTechnology = make(map[string]int, len(in.ByTechnology))
	for k, v := range in.ByTechnology {
		out.ByTechnology[k] = v
	}
	out.ByOperator = make(map[string]int, len(in.ByOperator))
	for k, v := range in.ByOperator {
		out.ByOperator[k] = v
	}
	return out
}

// Summary aggregates a search result subset.
func (s *CoverageService) Summary(results []models.SearchResult) models.CoverageSummary {
	return AggregateResults(results)
}

// Operators lists the distinct operators for the operator filter.
func (s *CoverageService) Operators() ([]string, error) {
	ds := s.search.Dataset()
	if err := ds.Err(); err != nil {
		return nil, err
	}
	return ds.Operators(), nil
}

// CachedResults returns the last persisted result set, if any.
func (s *CoverageService) CachedResults(ctx context.Context) ([]models.CachedResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Load(ctx)
}

// CachedContext returns the last persisted result set rendered as chat
// context text. Absence is reported with false.
func (s *CoverageService) CachedContext(ctx context.Context) (string, bool) {
	results, ok := s.CachedResults(ctx)
	if !ok || len(results) == 0 {
		return "", false
	}
	return storage.FormatContext(results), true
}
