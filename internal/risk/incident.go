package risk

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"property-tour-router/internal/geo"
	"property-tour-router/internal/models"
)

// Incident is a reported traffic or safety event with its base probability
type Incident struct {
	ID          int                `json:"id"`
	Kind        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Coords      models.Coordinates `json:"coordinates"`
	Probability float64            `json:"probability"`
}

// LoadIncidents reads a FeatureCollection of Point incidents
func LoadIncidents(path string) ([]Incident, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading incidents file: %w", err)
	}
	return ParseIncidents(data)
}

// ParseIncidents decodes Point features and assigns each one a base
// probability. Non-point features are skipped.
func ParseIncidents(data []byte) ([]Incident, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing incidents GeoJSON: %w", err)
	}

	incidents := make([]Incident, 0, len(fc.Features))
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		incidents = append(incidents, Incident{
			ID:          i,
			Kind:        stringProp(f.Properties, "type", "unknown"),
			Description: stringProp(f.Properties, "description", ""),
			Coords:      geo.FromPoint(pt),
			Probability: BaseProbability(f.Properties),
		})
	}
	log.Printf("[RISK] Loaded incidents: count=%d features=%d", len(incidents), len(fc.Features))
	return incidents, nil
}

// BaseProbability maps incident properties to a probability in [0, 1].
// The first of severity, impact or level wins; without one the incident
// type decides.
func BaseProbability(props map[string]interface{}) float64 {
	var sev interface{}
	found := false
	for _, key := range []string{"severity", "impact", "level"} {
		if v, ok := props[key]; ok {
			sev, found = v, true
			break
		}
	}

	if !found {
		kind, _ := props["type"].(string)
		kind = strings.ToLower(kind)
		switch {
		case strings.Contains(kind, "accident") || strings.Contains(kind, "collision"):
			return 0.25
		case strings.Contains(kind, "congestion") || strings.Contains(kind, "traffic"):
			return 0.12
		default:
			return 0.1
		}
	}

	switch v := sev.(type) {
	case string:
		switch strings.ToLower(v) {
		case "high", "alta", "grave":
			return 0.35
		case "medium", "med", "media":
			return 0.18
		case "low", "baja", "leve":
			return 0.06
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) {
			return 0.12
		}
		return clamp(f)
	case float64:
		return scaled(v)
	case int:
		return scaled(float64(v))
	case int64:
		return scaled(float64(v))
	default:
		return 0.1
	}
}

func stringProp(props geojson.Properties, key, def string) string {
	if s, ok := props[key].(string); ok && s != "" {
		return s
	}
	return def
}

// scaled accepts both 0-1 and 0-100 inputs
func scaled(v float64) float64 {
	if math.IsNaN(v) {
		return 0.1
	}
	if v > 1 {
		v /= 100
	}
	return clamp(v)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
