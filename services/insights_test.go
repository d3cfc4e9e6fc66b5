package services

import (
	"bytes"
	"strings"
	"testing"

	"llamarural/models"
)

func sampleRecords() []models.CoverageRecord {
	return []models.CoverageRecord{
		{Locality: "A", Operator: "ENTEL PERÚ S.A.", Has2G: true, Has4G: true, HighSpeed: true},
		{Locality: "B", Operator: "VIETTEL PERÚ S.A.C.", Has3G: true},
		{Locality: "C", Operator: "ENTEL PERÚ S.A.", Has4G: true, Latitude: km(1)},
		{Locality: "D", Operator: "entel perú s.a."},
	}
}

func TestAggregateCounts(t *testing.T) {
	s := Aggregate(sampleRecords())
	if s.TotalRecords != 4 {
		t.Errorf("TotalRecords: got %d, want 4", s.TotalRecords)
	}
	if s.ByTechnology["4G"] != 2 {
		t.Errorf("4G: got %d, want 2", s.ByTechnology["4G"])
	}
	if s.ByTechnology["5G"] != 0 {
		t.Errorf("5G: got %d, want 0", s.ByTechnology["5G"])
	}
	if _, ok := s.ByTechnology["5G"]; !ok {
		t.Error("5G key should be present even when zero")
	}
	if s.DistinctOperators != 3 {
		t.Errorf("DistinctOperators: got %d, want 3 (case-sensitive)", s.DistinctOperators)
	}
	if s.HighSpeed != 1 {
		t.Errorf("HighSpeed: got %d, want 1", s.HighSpeed)
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)
	if s.TotalRecords != 0 || s.DistinctOperators != 0 || len(s.ByTechnology) != 4 {
		t.Errorf("Aggregate(nil) = %+v", s)
	}
}

func TestAggregateSubsetNeverExceedsSuperset(t *testing.T) {
	records := sampleRecords()
	ds := NewDataset(records)
	all := Aggregate(records)

	results, err := Search(ds, models.SearchQuery{RadiusKm: 0.5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	sub := AggregateResults(results)
	if sub.TotalRecords != 3 {
		t.Fatalf("subset TotalRecords: got %d, want 3", sub.TotalRecords)
	}

	if sub.TotalRecords > all.TotalRecords || sub.DistinctOperators > all.DistinctOperators || sub.HighSpeed > all.HighSpeed {
		t.Errorf("subset %+v exceeds superset %+v", sub, all)
	}
	for _, label := range models.TechnologyLabels {
		if sub.ByTechnology[label] > all.ByTechnology[label] {
			t.Errorf("%s: subset %d > superset %d", label, sub.ByTechnology[label], all.ByTechnology[label])
		}
	}
	for op, n := range sub.ByOperator {
		if n > all.ByOperator[op] {
			t.Errorf("%s: subset %d > superset %d", op, n, all.ByOperator[op])
		}
	}
}

func TestInsightPrint(t *testing.T) {
	ds := NewDataset(sampleRecords())
	results, _ := Search(ds, models.SearchQuery{RadiusKm: 5})

	svc := NewInsightService(newTestLogger())
	report := svc.Generate(results)
	if report.Nearest == nil || report.Nearest.Locality != "A" {
		t.Fatalf("Nearest: got %+v", report.Nearest)
	}

	var buf bytes.Buffer
	svc.Print(&buf, "Coverage", report)
	out := buf.String()
	for _, want := range []string{"COVERAGE", "Distinct operators", "VIETTEL PERÚ S.A.C.", "Nearest Locality"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("CAÑETE", 10); got != "CAÑETE" {
		t.Errorf("truncate short: got %q", got)
	}
	if got := truncate("SAN VICENTE DE CAÑETE", 10); got != "SAN VIC..." {
		t.Errorf("truncate long: got %q", got)
	}
}
