package models

// InsightReport holds the computed analytics over one set of search results.
type InsightReport struct {
	Summary CoverageSummary
	Nearest *CachedResult
}
