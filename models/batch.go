package models

// QueryPoint is one row of a batch search input.
type QueryPoint struct {
	ID        string
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Operator  string
}

// BatchRow is the outcome of searching around one QueryPoint.
type BatchRow struct {
	Point   QueryPoint
	Count   int
	Nearest *CachedResult
	Summary CoverageSummary
	Err     string
}
