package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"property-tour-router/internal/geo"
)

// LoadGeoJSON builds a graph from node and edge FeatureCollection files
func LoadGeoJSON(nodesPath, edgesPath string) (*Graph, error) {
	nodesData, err := os.ReadFile(nodesPath)
	if err != nil {
		return nil, fmt.Errorf("reading nodes file: %w", err)
	}
	edgesData, err := os.ReadFile(edgesPath)
	if err != nil {
		return nil, fmt.Errorf("reading edges file: %w", err)
	}
	return ParseGeoJSON(nodesData, edgesData)
}

// ParseGeoJSON builds a graph from Point node features (property id or osmid)
// and LineString edge features (properties u, v and length, length_m or weight)
func ParseGeoJSON(nodesData, edgesData []byte) (*Graph, error) {
	nodesFC, err := geojson.UnmarshalFeatureCollection(nodesData)
	if err != nil {
		return nil, fmt.Errorf("parsing nodes GeoJSON: %w", err)
	}
	edgesFC, err := geojson.UnmarshalFeatureCollection(edgesData)
	if err != nil {
		return nil, fmt.Errorf("parsing edges GeoJSON: %w", err)
	}

	g := NewGraph()
	for _, f := range nodesFC.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		raw, present := f.Properties["id"]
		if !present {
			raw = f.Properties["osmid"]
		}
		id, ok := parseID(raw)
		if !ok {
			continue
		}
		g.AddNode(id, geo.FromPoint(pt))
	}

	for _, f := range edgesFC.Features {
		u, okU := parseID(f.Properties["u"])
		v, okV := parseID(f.Properties["v"])
		if !okU || !okV {
			g.skipped++
			continue
		}

		var geometry orb.LineString
		if ls, ok := f.Geometry.(orb.LineString); ok {
			geometry = ls
		}

		length := firstFloat(f.Properties, "length", "length_m", "weight")
		if !g.AddEdge(u, v, length, geo.FromLineString(geometry)) {
			log.Printf("[WARN] Ignoring edge with unknown endpoint: u=%d v=%d", u, v)
		}
	}

	if g.NodeCount() == 0 {
		return nil, ErrEmptyGraph
	}
	g.LogSummary()
	return g, nil
}

type edgeProbability struct {
	U           interface{} `json:"u"`
	V           interface{} `json:"v"`
	Probability float64     `json:"probability"`
}

type nodeProbability struct {
	ID          interface{} `json:"id"`
	Probability float64     `json:"probability"`
}

// LoadRiskMap reads edge and node probability files. Missing files yield empty maps.
func LoadRiskMap(edgePath, nodePath string) (*RiskMap, error) {
	edgeData, err := readOptional(edgePath)
	if err != nil {
		return nil, err
	}
	nodeData, err := readOptional(nodePath)
	if err != nil {
		return nil, err
	}
	return ParseRiskMap(edgeData, nodeData)
}

// ParseRiskMap decodes [{u,v,probability}] and [{id,probability}] arrays.
// Either input may be empty.
func ParseRiskMap(edgeData, nodeData []byte) (*RiskMap, error) {
	rm := NewRiskMap()

	if len(edgeData) > 0 {
		var edges []edgeProbability
		if err := json.Unmarshal(edgeData, &edges); err != nil {
			return nil, fmt.Errorf("parsing edge probabilities: %w", err)
		}
		for _, e := range edges {
			u, okU := parseID(e.U)
			v, okV := parseID(e.V)
			if okU && okV {
				rm.SetEdge(u, v, e.Probability)
			}
		}
	}

	if len(nodeData) > 0 {
		var nodes []nodeProbability
		if err := json.Unmarshal(nodeData, &nodes); err != nil {
			return nil, fmt.Errorf("parsing node probabilities: %w", err)
		}
		for _, n := range nodes {
			if id, ok := parseID(n.ID); ok {
				rm.SetNode(id, n.Probability)
			}
		}
	}

	log.Printf("[RISK] Risk map loaded: edges=%d nodes=%d", len(rm.Edges), len(rm.Nodes))
	return rm, nil
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("[RISK] Risk file not found, defaulting to zero: path=%s", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading risk file: %w", err)
	}
	return data, nil
}

func parseID(raw interface{}) (int64, bool) {
	switch v := raw.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		id, err := v.Int64()
		return id, err == nil
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}

func firstFloat(props geojson.Properties, keys ...string) float64 {
	for _, key := range keys {
		switch v := props[key].(type) {
		case float64:
			if v > 0 && !math.IsNaN(v) {
				return v
			}
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
				return f
			}
		}
	}
	return 0
}
