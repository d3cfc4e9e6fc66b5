package models

import "math"

// Technology labels in the fixed order used for display and aggregation.
var TechnologyLabels = []string{"2G", "3G", "4G", "5G"}

// RawRecord holds the unparsed cells of one dataset row keyed by the
// canonical column names. It is produced by the CSV reader before any
// normalisation.
type RawRecord struct {
	Line   int
	Fields map[string]string
}

// CoverageRecord is one normalised row of the coverage dataset.
type CoverageRecord struct {
	Locality   string
	Operator   string
	Department string
	Province   string
	District   string
	Latitude   float64
	Longitude  float64
	Has2G      bool
	Has3G      bool
	Has4G      bool
	Has5G      bool
	HighSpeed  bool
}

// Technologies returns the labels of the generations this record offers.
func (r *CoverageRecord) Technologies() []string {
	techs := make([]string, 0, 4)
	for i, has := range []bool{r.Has2G, r.Has3G, r.Has4G, r.Has5G} {
		if has {
			techs = append(techs, TechnologyLabels[i])
		}
	}
	return techs
}

// HasTechnology reports whether the flag for label is set.
func (r *CoverageRecord) HasTechnology(label string) bool {
	switch label {
	case "2G":
		return r.Has2G
	case "3G":
		return r.Has3G
	case "4G":
		return r.Has4G
	case "5G":
		return r.Has5G
	}
	return false
}

// SpeedLabel describes the advertised throughput class.
func (r *CoverageRecord) SpeedLabel() string {
	if r.HighSpeed {
		return "More than 1Mbps"
	}
	return "Up to 1Mbps"
}

// SearchQuery describes one proximity search. An empty Operator disables
// the operator filter.
type SearchQuery struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Operator  string
}

// SearchResult pairs a dataset record with its distance from the query point.
// Record points into the dataset and must not be modified.
type SearchResult struct {
	Record     *CoverageRecord
	DistanceKm float64
}

// CachedResult is the serialised form of a SearchResult kept in the result
// cache and handed to the chat assistant as context.
type CachedResult struct {
	DistanceKm   float64  `json:"distance"`
	Locality     string   `json:"locality"`
	Operator     string   `json:"operator"`
	Department   string   `json:"department"`
	Province     string   `json:"province"`
	District     string   `json:"district"`
	Latitude     float64  `json:"lat"`
	Longitude    float64  `json:"lon"`
	Technologies []string `json:"technologies"`
	HighSpeed    bool     `json:"high_speed"`
	Speed        string   `json:"speed"`
}

// NewCachedResult flattens a SearchResult. The distance is rounded to two
// decimals; ordering is decided before this conversion.
func NewCachedResult(r SearchResult) CachedResult {
	return CachedResult{
		DistanceKm:   math.Round(r.DistanceKm*100) / 100,
		Locality:     r.Record.Locality,
		Operator:     r.Record.Operator,
		Department:   r.Record.Department,
		Province:     r.Record.Province,
		District:     r.Record.District,
		Latitude:     r.Record.Latitude,
		Longitude:    r.Record.Longitude,
		Technologies: r.Record.Technologies(),
		HighSpeed:    r.Record.HighSpeed,
		Speed:        r.Record.SpeedLabel(),
	}
}

// NewCachedResultSet converts results in order.
func NewCachedResultSet(results []SearchResult) []CachedResult {
	out := make([]CachedResult, 0, len(results))
	for _, r := range results {
		out = append(out, NewCachedResult(r))
	}
	return out
}

// CoverageSummary holds the computed statistics over a set of records.
type CoverageSummary struct {
	TotalRecords      int            `json:"total_records"`
	DistinctOperators int            `json:"distinct_operators"`
	ByTechnology      map[string]int `json:"by_technology"`
	ByOperator        map[string]int `json:"by_operator"`
	HighSpeed         int            `json:"high_speed"`
}
