package listings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"property-tour-router/internal/models"
)

var (
	// ErrMissingID is returned for listings without an identifier
	ErrMissingID = errors.New("listing has no id")
	// ErrMissingCoordinates is returned for listings without a usable lat/lng
	ErrMissingCoordinates = errors.New("listing has no coordinates")
)

// Field precedence, first non-empty key wins
var (
	idKeys        = []string{"id", "codigo", "code"}
	titleKeys     = []string{"titulo", "title", "nombre", "name"}
	latKeys       = []string{"lat", "latitude", "latitud"}
	lngKeys       = []string{"lon", "lng", "longitude", "longitud"}
	pesoKeys      = []string{"precio_peso", "price_peso", "price"}
	ufKeys        = []string{"precio_uf", "price_uf"}
	bedroomKeys   = []string{"dormitorios", "bedrooms"}
	bathroomKeys  = []string{"banos", "baños", "bathrooms"}
	builtKeys     = []string{"superficie_construida", "superficie_util", "built_area_m2"}
	totalKeys     = []string{"superficie_total", "total_area_m2"}
	typeKeys      = []string{"tipo", "type", "tipo_propiedad"}
	operationKeys = []string{"operacion", "operation"}
	comunaKeys    = []string{"comuna", "COMUNA"}
	urlKeys       = []string{"url", "link"}
	imageKeys     = []string{"imagen", "image", "image_url"}
)

// Defaults fill fields a source file does not carry
type Defaults struct {
	Type      models.PropertyType
	Operation models.Operation
	Source    string
	// UFRate converts UF to pesos when only one price is present; zero disables it
	UFRate float64
}

// DefaultsFromFilename guesses the type and operation from names such as
// casa-venta-toctoc.json or depto-arriendo.json
func DefaultsFromFilename(path string) Defaults {
	name := strings.ToLower(filepath.Base(path))
	d := Defaults{Source: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	if t, ok := parseType(name); ok {
		d.Type = t
	}
	if op, ok := parseOperation(name); ok {
		d.Operation = op
	}
	return d
}

// Normalize resolves a raw scraped record to one canonical Property.
// Inverted UF and peso prices are swapped; a missing price is derived from
// the other when a UF rate is configured.
func Normalize(raw map[string]interface{}, d Defaults) (models.Property, error) {
	var p models.Property

	p.ID = firstString(raw, idKeys)
	if p.ID == "" {
		return p, ErrMissingID
	}

	lat, okLat := firstNumber(raw, latKeys)
	lng, okLng := firstNumber(raw, lngKeys)
	if !okLat || !okLng || (lat == 0 && lng == 0) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return p, fmt.Errorf("%w: id=%s", ErrMissingCoordinates, p.ID)
	}
	p.Lat, p.Lng = lat, lng

	p.Title = firstString(raw, titleKeys)
	p.PricePeso, _ = firstNumber(raw, pesoKeys)
	p.PriceUF, _ = firstNumber(raw, ufKeys)
	if p.PriceUF > 0 && p.PricePeso > 0 && p.PriceUF > p.PricePeso {
		p.PriceUF, p.PricePeso = p.PricePeso, p.PriceUF
	}
	if d.UFRate > 0 {
		if p.PricePeso == 0 && p.PriceUF > 0 {
			p.PricePeso = p.PriceUF * d.UFRate
		} else if p.PriceUF == 0 && p.PricePeso > 0 {
			p.PriceUF = p.PricePeso / d.UFRate
		}
	}

	if v, ok := firstNumber(raw, bedroomKeys); ok {
		p.Bedrooms = int(v)
	}
	if v, ok := firstNumber(raw, bathroomKeys); ok {
		p.Bathrooms = int(v)
	}
	p.BuiltArea, _ = firstNumber(raw, builtKeys)
	p.TotalArea, _ = firstNumber(raw, totalKeys)

	p.Type = d.Type
	if t, ok := parseType(firstString(raw, typeKeys)); ok {
		p.Type = t
	}
	if p.Type == "" {
		p.Type = models.PropertyHouse
	}
	p.Operation = d.Operation
	if op, ok := parseOperation(firstString(raw, operationKeys)); ok {
		p.Operation = op
	}
	if p.Operation == "" {
		p.Operation = models.OperationSale
	}

	p.Comuna = firstString(raw, comunaKeys)
	p.URL = firstString(raw, urlKeys)
	p.ImageURL = firstString(raw, imageKeys)
	p.Source = d.Source
	return p, nil
}

// ParseListings decodes a JSON array of raw records. Records that cannot be
// normalized are skipped and counted.
func ParseListings(data []byte, d Defaults) ([]models.Property, int, error) {
	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("parsing listings: %w", err)
	}

	props := make([]models.Property, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		p, err := Normalize(r, d)
		if err != nil {
			skipped++
			continue
		}
		props = append(props, p)
	}
	return props, skipped, nil
}

// LoadListings reads one listings file, taking defaults from its name
// unless the caller already set them
func LoadListings(path string, d Defaults) ([]models.Property, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading listings file: %w", err)
	}
	guessed := DefaultsFromFilename(path)
	if d.Type == "" {
		d.Type = guessed.Type
	}
	if d.Operation == "" {
		d.Operation = guessed.Operation
	}
	if d.Source == "" {
		d.Source = guessed.Source
	}

	props, skipped, err := ParseListings(data, d)
	if err != nil {
		return nil, err
	}
	log.Printf("[LISTINGS] Loaded listings: file=%s count=%d skipped=%d", filepath.Base(path), len(props), skipped)
	return props, nil
}

// Merge concatenates sources and drops repeated ids. The first source that
// carries an id wins.
func Merge(sources ...[]models.Property) []models.Property {
	return lo.UniqBy(lo.Flatten(sources), func(p models.Property) string {
		return p.ID
	})
}

func parseType(s string) (models.PropertyType, bool) {
	s = strings.ToLower(s)
	switch {
	case s == "":
		return "", false
	case strings.Contains(s, "depto"), strings.Contains(s, "departamento"), strings.Contains(s, "apartment"):
		return models.PropertyApartment, true
	case strings.Contains(s, "casa"), strings.Contains(s, "house"):
		return models.PropertyHouse, true
	}
	return "", false
}

func parseOperation(s string) (models.Operation, bool) {
	s = strings.ToLower(s)
	switch {
	case s == "":
		return "", false
	case strings.Contains(s, "arriendo"), strings.Contains(s, "rent"):
		return models.OperationRent, true
	case strings.Contains(s, "venta"), strings.Contains(s, "sale"):
		return models.OperationSale, true
	}
	return "", false
}

func firstString(raw map[string]interface{}, keys []string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func firstNumber(raw map[string]interface{}, keys []string) (float64, bool) {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case float64:
			return v, true
		case string:
			if f, ok := parseNumber(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// parseNumber accepts plain numbers and Chilean formatted amounts such as
// "$ 350.000.000" or "UF 12.500,5"
func parseNumber(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0, false
	}
	switch {
	case strings.Contains(cleaned, ","):
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case strings.Count(cleaned, ".") > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
