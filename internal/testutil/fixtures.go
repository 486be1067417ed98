package testutil

import (
	"property-tour-router/internal/graph"
	"property-tour-router/internal/models"
)

// GridOrigin is the south-west corner used by GridGraph
var GridOrigin = models.Coordinates{Lat: -33.4300, Lng: -70.6200}

// SquareGraph returns nodes 0..3 on a square with unit-length edges 0-1, 1-2, 2-3, 3-0
func SquareGraph() *graph.Graph {
	g := graph.NewGraph()
	g.AddNode(0, models.Coordinates{Lat: 0, Lng: 0})
	g.AddNode(1, models.Coordinates{Lat: 0, Lng: 0.001})
	g.AddNode(2, models.Coordinates{Lat: 0.001, Lng: 0.001})
	g.AddNode(3, models.Coordinates{Lat: 0.001, Lng: 0})
	g.AddEdge(0, 1, 1, nil)
	g.AddEdge(1, 2, 1, nil)
	g.AddEdge(2, 3, 1, nil)
	g.AddEdge(3, 0, 1, nil)
	return g
}

// GridGraph returns a rows x cols street grid anchored at GridOrigin.
// Node ids are row*cols+col and edge lengths are great-circle distances.
func GridGraph(rows, cols int, spacingDeg float64) *graph.Graph {
	g := graph.NewGraph()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.AddNode(GridNodeID(r, c, cols), GridCoords(r, c, spacingDeg))
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			id := GridNodeID(r, c, cols)
			if c+1 < cols {
				g.AddEdge(id, GridNodeID(r, c+1, cols), 0, nil)
			}
			if r+1 < rows {
				g.AddEdge(id, GridNodeID(r+1, c, cols), 0, nil)
			}
		}
	}
	return g
}

// GridNodeID returns the id of the grid node at row r, column c
func GridNodeID(r, c, cols int) int64 {
	return int64(r*cols + c)
}

// GridCoords returns the coordinates of the grid node at row r, column c
func GridCoords(r, c int, spacingDeg float64) models.Coordinates {
	return models.Coordinates{
		Lat: GridOrigin.Lat + float64(r)*spacingDeg,
		Lng: GridOrigin.Lng + float64(c)*spacingDeg,
	}
}

// SampleStops returns three stops placed on a 5x5 grid with the given spacing
func SampleStops(spacingDeg float64) []models.Stop {
	a := GridCoords(0, 4, spacingDeg)
	b := GridCoords(4, 4, spacingDeg)
	c := GridCoords(4, 0, spacingDeg)
	return []models.Stop{
		{ID: "casa-1", Name: "Casa Los Leones", Lat: a.Lat, Lng: a.Lng},
		{ID: "depto-2", Name: "Depto Pedro de Valdivia", Lat: b.Lat, Lng: b.Lng},
		{ID: "casa-3", Name: "Casa Manuel Montt", Lat: c.Lat, Lng: c.Lng},
	}
}
