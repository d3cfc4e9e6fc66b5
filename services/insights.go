package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"llamarural/models"
	"llamarural/utils"
)

// Aggregate counts records by technology and operator. It is a pure function
// of its input: the same call serves the whole dataset and a search subset.
func Aggregate(records []models.CoverageRecord) models.CoverageSummary {
	s := newSummary()
	for i := range records {
		s.add(&records[i])
	}
	return s.finish()
}

// AggregateResults is Aggregate over the records behind a search result.
func AggregateResults(results []models.SearchResult) models.CoverageSummary {
	s := newSummary()
	for _, r := range results {
		if r.Record != nil {
			s.add(r.Record)
		}
	}
	return s.finish()
}

type summaryBuilder struct {
	models.CoverageSummary
}

func newSummary() *summaryBuilder {
	b := &summaryBuilder{}
	b.ByTechnology = make(map[string]int, len(models.TechnologyLabels))
	b.ByOperator = make(map[string]int)
	for _, label := range models.TechnologyLabels {
		b.ByTechnology[label] = 0
	}
	return b
}

func (b *summaryBuilder) add(r *models.CoverageRecord) {
	b.TotalRecords++
	b.ByOperator[r.Operator]++
	for _, label := range models.TechnologyLabels {
		if r.HasTechnology(label) {
			b.ByTechnology[label]++
		}
	}
	if r.HighSpeed {
		b.HighSpeed++
	}
}

func (b *summaryBuilder) finish() models.CoverageSummary {
	b.DistinctOperators = len(b.ByOperator)
	return b.CoverageSummary
}

// InsightService renders coverage summaries for the terminal.
type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate aggregates results and, when any are present, attaches the nearest
// one for display.
func (s *InsightService) Generate(results []models.SearchResult) *models.InsightReport {
	report := &models.InsightReport{Summary: AggregateResults(results)}
	if len(results) > 0 {
		nearest := models.NewCachedResult(results[0])
		report.Nearest = &nearest
	}
	s.logger.Debug("[insights] %d records, %d operators",
		report.Summary.TotalRecords, report.Summary.DistinctOperators)
	return report
}

func (s *InsightService) Print(w io.Writer, title string, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📡 %s\033[0m\n", strings.ToUpper(title))
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Records            : \033[1m%d\033[0m\n", r.Summary.TotalRecords)
	fmt.Fprintf(w, "  Distinct operators : \033[1m%d\033[0m\n", r.Summary.DistinctOperators)
	fmt.Fprintf(w, "  More than 1Mbps    : \033[1m%d\033[0m\n", r.Summary.HighSpeed)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Records by Technology\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, label := range models.TechnologyLabels {
		n := r.Summary.ByTechnology[label]
		fmt.Fprintf(w, "  %-4s %s (%d)\n", label, bar(n, r.Summary.TotalRecords), n)
	}
	fmt.Fprintln(w)

	if r.Nearest != nil {
		fmt.Fprintf(w, "\033[1;33m  Nearest Locality\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.Nearest.Locality, 50))
		fmt.Fprintf(w, "  Operator     : %s\n", r.Nearest.Operator)
		fmt.Fprintf(w, "  Distance     : \033[1;32m%.2f km\033[0m\n", r.Nearest.DistanceKm)
		fmt.Fprintf(w, "  Technologies : %s\n", strings.Join(r.Nearest.Technologies, ", "))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Records by Operator\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Summary.ByOperator) == 0 {
		fmt.Fprintf(w, "  No records\n")
	} else {
		type opCount struct {
			op    string
			count int
		}
		ops := make([]opCount, 0, len(r.Summary.ByOperator))
		for op, cnt := range r.Summary.ByOperator {
			ops = append(ops, opCount{op, cnt})
		}
		sort.Slice(ops, func(i, j int) bool {
			if ops[i].count != ops[j].count {
				return ops[i].count > ops[j].count
			}
			return ops[i].op < ops[j].op
		})
		for _, oc := range ops {
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(oc.op, 28), bar(oc.count, r.Summary.TotalRecords), oc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// bar scales count against total to at most 30 cells.
func bar(count, total int) string {
	if total == 0 || count == 0 {
		return ""
	}
	n := count * 30 / total
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
