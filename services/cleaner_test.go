package services

import (
	"testing"

	"llamarural/models"
	"llamarural/utils"
)

func newTestLogger() *utils.Logger { return utils.Discard() }

func TestParseFlag(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"SI", true},
		{"Sí", true},
		{"si", true},
		{"S", true},
		{"YES", true},
		{"y", true},
		{"1", true},
		{"1.0", true},
		{" true ", true},
		{"T", true},
		{"x", true},
		{"NO", false},
		{"0", false},
		{"", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		if got := ParseFlag(tt.raw); got != tt.want {
			t.Errorf("ParseFlag(%q) = %v; want %v", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerParseCoordinate(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"-12.95", -12.95, false},
		{"-12,95", -12.95, false},
		{" -76.44 ", -76.44, false},
		{"", 0, true},
		{"abc", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
	}

	for _, tt := range tests {
		got, err := parseCoordinate(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseCoordinate(%q) err = %v; wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseCoordinate(%q) = %v; want %v", tt.raw, got, tt.want)
		}
	}
}

func rawRow(line int, locality, operator, lat, lon, g4 string) *models.RawRecord {
	return &models.RawRecord{
		Line: line,
		Fields: map[string]string{
			models.ColLocality:  locality,
			models.ColOperator:  operator,
			models.ColLatitude:  lat,
			models.ColLongitude: lon,
			models.Col2G:        "SI",
			models.Col3G:        "NO",
			models.Col4G:        g4,
			models.Col5G:        "",
			models.ColHighSpeed: "1",
		},
	}
}

func TestCleanerDropsBadCoordinates(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawRecord{
		rawRow(2, "  SAN   VICENTE ", "ENTEL PERÚ S.A.", "-12.95", "-76.44", "YES"),
		rawRow(3, "NOWHERE", "ENTEL PERÚ S.A.", "", "-76.44", "YES"),
		rawRow(4, "IMPERIAL", "VIETTEL PERÚ S.A.C.", "-13,06", "-76,35", "0"),
	}

	got, dropped := c.Clean(raw)
	if dropped != 1 {
		t.Errorf("dropped: got %d, want 1", dropped)
	}
	if len(got) != 2 {
		t.Fatalf("records: got %d, want 2", len(got))
	}
	if got[0].Locality != "SAN VICENTE" {
		t.Errorf("Locality: got %q, want %q", got[0].Locality, "SAN VICENTE")
	}
	if !got[0].Has2G || got[0].Has3G || !got[0].Has4G || got[0].Has5G || !got[0].HighSpeed {
		t.Errorf("flags: got %+v", got[0])
	}
	if got[1].Latitude != -13.06 || got[1].Has4G {
		t.Errorf("second record: got %+v", got[1])
	}
}

func TestCleanerEmptyInput(t *testing.T) {
	got, dropped := NewCleaner(newTestLogger()).Clean(nil)
	if got == nil || len(got) != 0 || dropped != 0 {
		t.Errorf("Clean(nil) = %v, %d; want empty, 0", got, dropped)
	}
}
