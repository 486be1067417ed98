package listings

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"property-tour-router/internal/geo"
	"property-tour-router/internal/models"
)

// ParseMetroCSV reads comma separated stations with Web Mercator X and Y
// columns, reprojected to WGS84. Rows without coordinates are skipped.
func ParseMetroCSV(r io.Reader) ([]models.PointOfInterest, error) {
	rows, err := readCSV(r, ',')
	if err != nil {
		return nil, fmt.Errorf("parsing metro CSV: %w", err)
	}

	pois := make([]models.PointOfInterest, 0, len(rows))
	for _, row := range rows {
		x, errX := strconv.ParseFloat(row["X"], 64)
		y, errY := strconv.ParseFloat(row["Y"], 64)
		if errX != nil || errY != nil {
			continue
		}
		c := geo.MercatorToWGS84(x, y)
		poi := models.PointOfInterest{
			Name:     firstNonEmpty(row["nombre"], row["estacion"]),
			Category: models.CategoryMetro,
			Lat:      c.Lat,
			Lng:      c.Lng,
		}
		if line := row["linea"]; line != "" {
			poi.Attributes = map[string]string{"linea": line}
		}
		pois = append(pois, poi)
	}
	return pois, nil
}

// ParseHealthCSV reads pipe separated health facilities with LATITUD and
// LONGITUD columns
func ParseHealthCSV(r io.Reader) ([]models.PointOfInterest, error) {
	rows, err := readCSV(r, '|')
	if err != nil {
		return nil, fmt.Errorf("parsing health CSV: %w", err)
	}

	pois := make([]models.PointOfInterest, 0, len(rows))
	for _, row := range rows {
		lat, okLat := parseCoordinate(row["LATITUD"])
		lng, okLng := parseCoordinate(row["LONGITUD"])
		if !okLat || !okLng {
			continue
		}
		poi := models.PointOfInterest{
			Name:     firstNonEmpty(row["NOMBRE"], row["NOM_COM"], row["DIRECCION"]),
			Category: models.CategoryHealth,
			Lat:      lat,
			Lng:      lng,
		}
		if kind := row["TIPO"]; kind != "" {
			poi.Attributes = map[string]string{"tipo": kind}
		}
		pois = append(pois, poi)
	}
	return pois, nil
}

// ParseTransitStops reads bus stop Point features. When comuna is set only
// stops in that comuna are kept, compared case-insensitively.
func ParseTransitStops(data []byte, comuna string) ([]models.PointOfInterest, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing transit stops GeoJSON: %w", err)
	}

	comuna = strings.ToUpper(strings.TrimSpace(comuna))
	pois := make([]models.PointOfInterest, 0, len(fc.Features))
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		if comuna != "" {
			got := firstNonEmpty(propString(f.Properties, "comuna"), propString(f.Properties, "COMUNA"))
			if strings.ToUpper(got) != comuna {
				continue
			}
		}
		c := geo.FromPoint(pt)
		pois = append(pois, models.PointOfInterest{
			Name:     firstNonEmpty(propString(f.Properties, "nombre_ust"), propString(f.Properties, "nombre")),
			Code:     propString(f.Properties, "codigo"),
			Category: models.CategoryTransitStop,
			Lat:      c.Lat,
			Lng:      c.Lng,
		})
	}
	log.Printf("[LISTINGS] Parsed transit stops: kept=%d features=%d comuna=%q", len(pois), len(fc.Features), comuna)
	return pois, nil
}

// LoadMetro reads a metro stations CSV file
func LoadMetro(path string) ([]models.PointOfInterest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening metro file: %w", err)
	}
	defer f.Close()
	return ParseMetroCSV(f)
}

// LoadHealth reads a health facilities CSV file
func LoadHealth(path string) ([]models.PointOfInterest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening health file: %w", err)
	}
	defer f.Close()
	return ParseHealthCSV(f)
}

// LoadTransitStops reads a bus stops GeoJSON file
func LoadTransitStops(path, comuna string) ([]models.PointOfInterest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transit stops file: %w", err)
	}
	return ParseTransitStops(data, comuna)
}

// readCSV maps each data row by trimmed header name
func readCSV(r io.Reader, sep rune) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseCoordinate(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func propString(props geojson.Properties, key string) string {
	switch v := props[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
