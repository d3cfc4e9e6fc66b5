package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"llamarural/models"
	"llamarural/utils"
)

// BatchService searches around many query points concurrently. It only reads
// the dataset and never touches the result cache.
type BatchService struct {
	search        *SearchService
	concurrency   int
	defaultRadius float64
	logger        *utils.Logger
}

func NewBatchService(ds *Dataset, concurrency int, defaultRadius float64, logger *utils.Logger) *BatchService {
	if defaultRadius <= 0 {
		defaultRadius = DefaultRadiusKm
	}
	return &BatchService{
		search:        NewSearchService(ds, logger),
		concurrency:   concurrency,
		defaultRadius: defaultRadius,
		logger:        logger,
	}
}

// Run searches every point and returns one row per unique point id in input
// order. A failing point yields a row with Err set; the rest of the batch
// continues. Cancelling ctx marks the points not yet started as cancelled.
func (s *BatchService) Run(ctx context.Context, points []models.QueryPoint) []models.BatchRow {
	runID := uuid.NewString()
	start := time.Now()
	s.logger.Info("[batch %s] Searching %d points with %d workers", runID[:8], len(points), s.concurrency)

	seen := utils.NewKeySet()
	slots := make([]*models.BatchRow, len(points))
	pool := utils.NewWorkerPool(s.concurrency, 0)
	var failed int32

	for i, p := range points {
		if seen.Contains(p.ID) {
			s.logger.Warn("[batch %s] Skipping duplicate point id %q", runID[:8], p.ID)
			continue
		}
		seen.Add(p.ID)
		i, p := i, p
		pool.Submit(func() {
			row := s.runPoint(ctx, p)
			if row.Err != "" {
				atomic.AddInt32(&failed, 1)
			}
			slots[i] = &row
		})
	}
	pool.Wait()

	rows := make([]models.BatchRow, 0, seen.Size())
	for _, r := range slots {
		if r != nil {
			rows = append(rows, *r)
		}
	}

	s.logger.Info("[batch %s] Done: %d rows, %d failed in %s",
		runID[:8], len(rows), failed, time.Since(start).Round(time.Millisecond))
	return rows
}

func (s *BatchService) runPoint(ctx context.Context, p models.QueryPoint) models.BatchRow {
	if p.RadiusKm == 0 {
		p.RadiusKm = s.defaultRadius
	}
	row := models.BatchRow{Point: p}

	if err := ctx.Err(); err != nil {
		row.Err = fmt.Sprintf("cancelled: %v", err)
		return row
	}

	results, err := s.search.Search(models.SearchQuery{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		RadiusKm:  p.RadiusKm,
		Operator:  p.Operator,
	})
	if err != nil {
		row.Err = err.Error()
		return row
	}

	row.Count = len(results)
	row.Summary = AggregateResults(results)
	if len(results) > 0 {
		nearest := models.NewCachedResult(results[0])
		row.Nearest = &nearest
	}
	return row
}
