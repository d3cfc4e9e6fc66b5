package mapview

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"

	"llamarural/i18n"
	"llamarural/models"
)

// Default query point, a rural locality in Cañete, Lima.
const (
	DefaultLatitude  = -12.95197897275646
	DefaultLongitude = -76.44419446222732
)

const defaultColor = "gray"

var operatorColors = map[string]string{
	"TELEFÓNICA DEL PERÚ S.A.A.": "blue",
	"AMÉRICA MÓVIL PERÚ S.A.C.":  "red",
	"VIETTEL PERÚ S.A.C.":        "green",
	"ENTEL PERÚ S.A.":            "purple",
}

// OperatorColor returns the marker colour for an operator.
func OperatorColor(operator string) string {
	if c, ok := operatorColors[operator]; ok {
		return c
	}
	return defaultColor
}

// View is everything needed to draw one coverage map.
type View struct {
	Lang      i18n.Lang
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Results   []models.CachedResult
}

type marker struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Popup string  `json:"popup"`
}

type layer struct {
	Name    string   `json:"name"`
	Color   string   `json:"color"`
	Markers []marker `json:"markers"`
}

type pageData struct {
	Lang      string
	Title     string
	Home      string
	Latitude  float64
	Longitude float64
	RadiusM   float64
	Layers    []layer
}

// Render writes a standalone Leaflet HTML page: a home marker, one marker
// layer per operator and a circle showing the search radius.
func Render(w io.Writer, v View) error {
	if v.Lang == "" {
		v.Lang = i18n.ES
	}
	data := pageData{
		Lang:      string(v.Lang),
		Title:     i18n.T(v.Lang, i18n.Title),
		Home:      i18n.T(v.Lang, i18n.HomePopup),
		Latitude:  v.Latitude,
		Longitude: v.Longitude,
		RadiusM:   v.RadiusKm * 1000,
		Layers:    buildLayers(v),
	}
	if err := pageTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("mapview: render: %w", err)
	}
	return nil
}

// RenderString is Render into a string.
func RenderString(v View) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildLayers(v View) []layer {
	byOp := make(map[string]*layer)
	var names []string
	for _, r := range v.Results {
		l, ok := byOp[r.Operator]
		if !ok {
			l = &layer{Name: r.Operator, Color: OperatorColor(r.Operator)}
			byOp[r.Operator] = l
			names = append(names, r.Operator)
		}
		l.Markers = append(l.Markers, marker{Lat: r.Latitude, Lon: r.Longitude, Popup: popupHTML(v.Lang, r)})
	}
	sort.Strings(names)

	layers := make([]layer, 0, len(names))
	for _, n := range names {
		layers = append(layers, *byOp[n])
	}
	return layers
}

func popupHTML(lang i18n.Lang, r models.CachedResult) string {
	esc := template.HTMLEscapeString
	var b strings.Builder
	b.WriteString("<div style='width:200px'>")
	fmt.Fprintf(&b, "<h4>%s</h4>", esc(r.Locality))
	fmt.Fprintf(&b, "<b>%s:</b> %s<br>", i18n.T(lang, i18n.Operator), esc(r.Operator))
	fmt.Fprintf(&b, "<b>%s:</b> %.2fkm<br>", i18n.T(lang, i18n.Distance), r.DistanceKm)
	fmt.Fprintf(&b, "<b>%s:</b> %s<br>", i18n.T(lang, i18n.Technologies), esc(strings.Join(r.Technologies, ", ")))
	fmt.Fprintf(&b, "<b>%s:</b> %s<br>", i18n.T(lang, i18n.Speed), i18n.SpeedLabel(lang, r.HighSpeed))
	fmt.Fprintf(&b, "<b>%s:</b> %s, %s", i18n.T(lang, i18n.Location), esc(r.District), esc(r.Province))
	b.WriteString("</div>")
	return b.String()
}

var pageTmpl = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var center = [{{.Latitude}}, {{.Longitude}}];
var layers = {{.Layers}};
var map = L.map('map').setView(center, 12);
L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {
  maxZoom: 19,
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
L.marker(center).bindPopup({{.Home}}).addTo(map);
var overlays = {};
layers.forEach(function (l) {
  var group = L.layerGroup();
  l.markers.forEach(function (m) {
    L.circleMarker([m.lat, m.lon], {radius: 7, color: l.color, fillOpacity: 0.8})
      .bindPopup(m.popup, {maxWidth: 300})
      .addTo(group);
  });
  group.addTo(map);
  overlays[l.name] = group;
});
L.control.layers(null, overlays).addTo(map);
L.circle(center, {radius: {{.RadiusM}}, color: 'red', fill: true, opacity: 0.1}).addTo(map);
window.mapReady = true;
</script>
</body>
</html>
`))
