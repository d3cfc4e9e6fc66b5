package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"llamarural/models"
)

func sampleResults() []models.CachedResult {
	return []models.CachedResult{
		{DistanceKm: 0.42, Locality: "SAN VICENTE", Operator: "ENTEL PERÚ S.A.", Department: "LIMA", Province: "CAÑETE", District: "SAN VICENTE DE CAÑETE", Latitude: -12.95, Longitude: -76.44, Technologies: []string{"2G", "4G"}, HighSpeed: true, Speed: "More than 1Mbps"},
		{DistanceKm: 1.5, Locality: "IMPERIAL", Operator: "VIETTEL PERÚ S.A.C.", Department: "LIMA", Province: "CAÑETE", District: "IMPERIAL", Latitude: -13.06, Longitude: -76.35, Technologies: []string{}, HighSpeed: false, Speed: "Up to 1Mbps"},
	}
}

// exerciseCache checks the contract every backend must honour.
func exerciseCache(t *testing.T, c ResultCache) {
	t.Helper()
	ctx := context.Background()

	if _, ok := c.Load(ctx); ok {
		t.Fatal("fresh cache should report absent")
	}

	if err := c.Persist(ctx, sampleResults()); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, ok := c.Load(ctx)
	if !ok {
		t.Fatal("Load after Persist should succeed")
	}
	if len(got) != 2 {
		t.Fatalf("len: got %d, want 2", len(got))
	}
	if got[0].Locality != "SAN VICENTE" || got[1].Locality != "IMPERIAL" {
		t.Errorf("order not preserved: %q, %q", got[0].Locality, got[1].Locality)
	}
	if strings.Join(got[0].Technologies, ",") != "2G,4G" {
		t.Errorf("technologies: got %v", got[0].Technologies)
	}
	if len(got[1].Technologies) != 0 {
		t.Errorf("expected no technologies, got %v", got[1].Technologies)
	}
	if !got[0].HighSpeed || got[1].HighSpeed {
		t.Errorf("high speed flags not preserved")
	}
	if got[0].Province != "CAÑETE" {
		t.Errorf("province: got %q", got[0].Province)
	}

	// An empty persist must not clear the previous set.
	if err := c.Persist(ctx, nil); err != nil {
		t.Fatalf("Persist(nil): %v", err)
	}
	if got, ok := c.Load(ctx); !ok || len(got) != 2 {
		t.Errorf("empty persist erased the cache: ok=%v len=%d", ok, len(got))
	}

	// A new non-empty set replaces the old one wholesale.
	if err := c.Persist(ctx, sampleResults()[1:]); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, ok = c.Load(ctx)
	if !ok || len(got) != 1 || got[0].Locality != "IMPERIAL" {
		t.Errorf("overwrite failed: ok=%v got=%v", ok, got)
	}
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemoryCache())
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	_ = c.Persist(ctx, sampleResults())

	got, _ := c.Load(ctx)
	got[0].Technologies[0] = "9G"

	again, _ := c.Load(ctx)
	if again[0].Technologies[0] != "2G" {
		t.Error("Load handed out shared slices")
	}
}

func TestFileCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resources", "nearby.json")
	exerciseCache(t, NewFileCache(path))
}

func TestFileCacheWritesIndentedArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nearby.json")
	c := NewFileCache(path)
	if err := c.Persist(context.Background(), sampleResults()); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "[\n    {") {
		t.Errorf("expected a four-space indented array, got %q", text[:20])
	}
	if !strings.Contains(text, `"distance": 0.42`) {
		t.Errorf("distance key missing: %s", text)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestFileCacheCorruptIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nearby.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := NewFileCache(path).Load(context.Background()); ok {
		t.Error("corrupt document should be reported as absent")
	}
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := NewRedisCache(OpenRedis(mr.Addr(), "", 0), "test:nearby", 0)
	defer rc.Close()

	if err := rc.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	exerciseCache(t, rc)

	if !mr.Exists("test:nearby") {
		t.Error("expected the configured key to be set")
	}
}

func TestSQLiteCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nearby.db")
	c, err := OpenSQLCache(context.Background(), "sqlite", path, nil)
	if err != nil {
		t.Fatalf("OpenSQLCache: %v", err)
	}
	defer c.Close()

	exerciseCache(t, c)
}

func TestSQLiteCacheLargeSetKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nearby.db")
	c, err := OpenSQLCache(context.Background(), "sqlite", path, nil)
	if err != nil {
		t.Fatalf("OpenSQLCache: %v", err)
	}
	defer c.Close()

	var results []models.CachedResult
	for i := 0; i < 120; i++ {
		results = append(results, models.CachedResult{DistanceKm: float64(i), Locality: "L", Technologies: []string{"3G"}})
	}
	if err := c.Persist(context.Background(), results); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, ok := c.Load(context.Background())
	if !ok || len(got) != 120 {
		t.Fatalf("Load: ok=%v len=%d", ok, len(got))
	}
	for i, r := range got {
		if r.DistanceKm != float64(i) {
			t.Fatalf("row %d: distance %v", i, r.DistanceKm)
		}
	}
}

func TestFormatContext(t *testing.T) {
	text := FormatContext(sampleResults())
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		t.Errorf("expected a JSON array, got %q", text)
	}
	if !strings.Contains(text, "ENTEL PERÚ S.A.") {
		t.Error("operator text should not be escaped")
	}
}
