package services

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"llamarural/models"
	"llamarural/utils"
)

// truthy lists the flag spellings found across dataset exports. Anything
// else, including empty cells, reads as false.
var truthy = map[string]struct{}{
	"SI": {}, "SÍ": {}, "S": {},
	"YES": {}, "Y": {},
	"1": {}, "1.0": {},
	"TRUE": {}, "T": {},
	"X": {},
}

// Cleaner transforms RawRecords into validated CoverageRecords.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean converts raw rows in order. Rows without usable coordinates are
// dropped; the number dropped is returned alongside the records.
func (c *Cleaner) Clean(raw []*models.RawRecord) ([]models.CoverageRecord, int) {
	result := make([]models.CoverageRecord, 0, len(raw))
	dropped := 0

	for _, r := range raw {
		lat, errLat := parseCoordinate(r.Fields[models.ColLatitude])
		lon, errLon := parseCoordinate(r.Fields[models.ColLongitude])
		if errLat != nil || errLon != nil {
			c.logger.Debug("[cleaner] Dropping line %d: bad coordinates %q, %q",
				r.Line, r.Fields[models.ColLatitude], r.Fields[models.ColLongitude])
			dropped++
			continue
		}

		result = append(result, models.CoverageRecord{
			Locality:   normaliseText(r.Fields[models.ColLocality]),
			Operator:   normaliseText(r.Fields[models.ColOperator]),
			Department: normaliseText(r.Fields[models.ColDepartment]),
			Province:   normaliseText(r.Fields[models.ColProvince]),
			District:   normaliseText(r.Fields[models.ColDistrict]),
			Latitude:   lat,
			Longitude:  lon,
			Has2G:      ParseFlag(r.Fields[models.Col2G]),
			Has3G:      ParseFlag(r.Fields[models.Col3G]),
			Has4G:      ParseFlag(r.Fields[models.Col4G]),
			Has5G:      ParseFlag(r.Fields[models.Col5G]),
			HighSpeed:  ParseFlag(r.Fields[models.ColHighSpeed]),
		})
	}

	c.logger.Info("[cleaner] Cleaned %d → %d records (dropped %d)",
		len(raw), len(result), dropped)
	return result, dropped
}

// ParseFlag maps a technology or speed cell to a boolean.
//   "SI", "Sí", "YES", "y", "1", "TRUE", "X" → true
//   "NO", "0", "" and anything else         → false
func ParseFlag(raw string) bool {
	_, ok := truthy[strings.ToUpper(strings.TrimSpace(raw))]
	return ok
}

// parseCoordinate accepts "." or "," as the decimal separator and rejects
// non-finite values.
func parseCoordinate(raw string) (float64, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		return 0, strconv.ErrSyntax
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrRange
	}
	return f, nil
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
