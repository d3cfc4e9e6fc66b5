package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s2"

	"llamarural/models"
	"llamarural/utils"
)

// KmPerDegree converts planar degree distances to kilometres:
// distance = sqrt(dLat² + dLon²) * KmPerDegree.
const KmPerDegree = 111.0

// DefaultRadiusKm is used when a caller leaves the radius unset.
const DefaultRadiusKm = 5.0

// boxMargin widens the prefilter box so rounding never excludes a record
// that sits exactly on the radius.
const boxMargin = 1e-9

// PlanarDistanceKm returns the approximate distance between two points.
func PlanarDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	d := r2.Point{X: lon1, Y: lat1}.Sub(r2.Point{X: lon2, Y: lat2})
	return math.Sqrt(d.Dot(d)) * KmPerDegree
}

// ValidateQuery checks coordinates and radius.
func ValidateQuery(q models.SearchQuery) error {
	for _, v := range []float64{q.Latitude, q.Longitude, q.RadiusKm} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: coordinates and radius must be finite", ErrInvalidInput)
		}
	}
	if !s2.LatLngFromDegrees(q.Latitude, q.Longitude).IsValid() {
		return fmt.Errorf("%w: coordinates (%g, %g) out of range", ErrInvalidInput, q.Latitude, q.Longitude)
	}
	if q.RadiusKm <= 0 {
		return fmt.Errorf("%w: radius must be positive, got %g", ErrInvalidInput, q.RadiusKm)
	}
	return nil
}

// Search returns every record within q.RadiusKm of the query point whose
// operator matches q.Operator (when set), sorted by distance. Records at
// equal distance keep their dataset order. An empty, non-nil slice is
// returned when nothing matches.
func Search(ds *Dataset, q models.SearchQuery) ([]models.SearchResult, error) {
	if err := ValidateQuery(q); err != nil {
		return nil, err
	}
	if err := ds.Err(); err != nil {
		return nil, err
	}

	center := r2.Point{X: q.Longitude, Y: q.Latitude}
	half := q.RadiusKm/KmPerDegree + boxMargin
	box := r2.RectFromCenterSize(center, r2.Point{X: 2 * half, Y: 2 * half})

	records := ds.Records()
	results := make([]models.SearchResult, 0)
	for i := range records {
		rec := &records[i]
		if q.Operator != "" && rec.Operator != q.Operator {
			continue
		}
		p := r2.Point{X: rec.Longitude, Y: rec.Latitude}
		if !box.ContainsPoint(p) {
			continue
		}
		d := p.Sub(center)
		dist := math.Sqrt(d.Dot(d)) * KmPerDegree
		if dist <= q.RadiusKm {
			results = append(results, models.SearchResult{Record: rec, DistanceKm: dist})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})
	return results, nil
}

// SearchService runs searches against one dataset and logs each query.
type SearchService struct {
	dataset *Dataset
	logger  *utils.Logger
}

func NewSearchService(ds *Dataset, logger *utils.Logger) *SearchService {
	return &SearchService{dataset: ds, logger: logger}
}

// Dataset returns the dataset this service searches.
func (s *SearchService) Dataset() *Dataset { return s.dataset }

func (s *SearchService) Search(q models.SearchQuery) ([]models.SearchResult, error) {
	start := time.Now()
	results, err := Search(s.dataset, q)
	if err != nil {
		s.logger.Warn("[search] (%.6f, %.6f) r=%.2fkm operator=%q: %v",
			q.Latitude, q.Longitude, q.RadiusKm, q.Operator, err)
		return nil, err
	}
	s.logger.Debug("[search] (%.6f, %.6f) r=%.2fkm operator=%q → %d matches in %s",
		q.Latitude, q.Longitude, q.RadiusKm, q.Operator, len(results), time.Since(start))
	return results, nil
}
