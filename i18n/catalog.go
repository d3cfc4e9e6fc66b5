package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Lang is a supported interface language.
type Lang string

const (
	ES Lang = "es"
	EN Lang = "en"
)

// Supported lists the languages in matcher preference order.
var Supported = []Lang{ES, EN}

var matcher = language.NewMatcher([]language.Tag{language.Spanish, language.English})

// Message keys.
const (
	Title          = "title"
	Subtitle       = "subtitle"
	HomePopup      = "home_popup"
	Operator       = "operator"
	Distance       = "distance"
	Technologies   = "technologies"
	Speed          = "speed"
	Location       = "location"
	SpeedHigh      = "speed_high"
	SpeedLow       = "speed_low"
	Found          = "found"
	NoneFound      = "none_found"
	AllOperators   = "all_operators"
	SearchRadius   = "search_radius"
	TotalRecords   = "total_records"
	TotalOperators = "total_operators"
	RecordsByTech  = "records_by_tech"
	ChatError      = "chat_error"
	ErrInvalid     = "err_invalid"
	ErrUnavailable = "err_unavailable"
	ErrSearch      = "err_search"
	ErrNoCache     = "err_no_cache"
)

var catalog = map[Lang]map[string]string{
	ES: {
		Title:          "LlamaRural - Análisis de Cobertura",
		Subtitle:       "Análisis de Cobertura en Zonas Rurales",
		HomePopup:      "Tu ubicación",
		Operator:       "Operador",
		Distance:       "Distancia",
		Technologies:   "Tecnologías",
		Speed:          "Velocidad",
		Location:       "Ubicación",
		SpeedHigh:      "Más de 1Mbps",
		SpeedLow:       "Hasta 1Mbps",
		Found:          "Se encontraron %d estaciones cercanas",
		NoneFound:      "No se encontraron estaciones en un radio de %gkm",
		AllOperators:   "Todos",
		SearchRadius:   "Radio de búsqueda (km)",
		TotalRecords:   "Total Estaciones",
		TotalOperators: "Total Operadores",
		RecordsByTech:  "Estaciones %s",
		ChatError:      "Error: No hay suficientes tokens para completarlo",
		ErrInvalid:     "Coordenadas o radio inválidos: %v",
		ErrUnavailable: "Error al cargar datos: %v",
		ErrSearch:      "Error en búsqueda: %v",
		ErrNoCache:     "Aún no hay resultados guardados",
	},
	EN: {
		Title:          "LlamaRural - Coverage Analysis",
		Subtitle:       "Coverage Analysis in Rural Areas",
		HomePopup:      "Your location",
		Operator:       "Operator",
		Distance:       "Distance",
		Technologies:   "Technologies",
		Speed:          "Speed",
		Location:       "Location",
		SpeedHigh:      "More than 1Mbps",
		SpeedLow:       "Up to 1Mbps",
		Found:          "Found %d nearby stations",
		NoneFound:      "No stations found within %gkm",
		AllOperators:   "All",
		SearchRadius:   "Search radius (km)",
		TotalRecords:   "Total Stations",
		TotalOperators: "Total Operators",
		RecordsByTech:  "%s Stations",
		ChatError:      "Error: There are not enough tokens to complete it",
		ErrInvalid:     "Invalid coordinates or radius: %v",
		ErrUnavailable: "Error loading data: %v",
		ErrSearch:      "Error in search: %v",
		ErrNoCache:     "No saved results yet",
	},
}

// Parse maps a language code such as "en", "EN" or "es-PE" to a supported
// Lang, falling back to fallback.
func Parse(code string, fallback Lang) Lang {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	for _, l := range Supported {
		if string(l) == code {
			return l
		}
	}
	return fallback
}

// FromAcceptLanguage picks the best supported language for an
// Accept-Language header value.
func FromAcceptLanguage(header string, fallback Lang) Lang {
	if strings.TrimSpace(header) == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return Supported[idx]
}

// T returns the message for key in lang, formatted with args when given.
// Unknown keys fall back to Spanish and then to the key itself.
func T(lang Lang, key string, args ...any) string {
	msg, ok := catalog[lang][key]
	if !ok {
		msg, ok = catalog[ES][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// SpeedLabel returns the localised throughput class.
func SpeedLabel(lang Lang, high bool) string {
	if high {
		return T(lang, SpeedHigh)
	}
	return T(lang, SpeedLow)
}
