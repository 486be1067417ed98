package transit

import (
	"context"
	"log"

	"property-tour-router/internal/distance"
	"property-tour-router/internal/geo"
	"property-tour-router/internal/graph"
	"property-tour-router/internal/models"
	"property-tour-router/internal/spatial"
)

// Params holds travel speeds in meters per minute and the candidate count
type Params struct {
	WalkSpeed    float64 `yaml:"walk_speed_m_per_min" json:"walk_speed_m_per_min"`
	TransitSpeed float64 `yaml:"transit_speed_m_per_min" json:"transit_speed_m_per_min"`
	Candidates   int     `yaml:"candidates" json:"candidates"`
}

// DefaultParams returns 5 km/h walking, 25 km/h transit and 6 candidates per side
func DefaultParams() Params {
	return Params{
		WalkSpeed:    83.333,
		TransitSpeed: 416.667,
		Candidates:   6,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.WalkSpeed <= 0 {
		p.WalkSpeed = d.WalkSpeed
	}
	if p.TransitSpeed <= 0 {
		p.TransitSpeed = d.TransitSpeed
	}
	if p.Candidates <= 0 {
		p.Candidates = d.Candidates
	}
	return p
}

// Station is a transit POI snapped to the street graph
type Station struct {
	POI  models.PointOfInterest
	Node int64
}

type stationSet struct {
	transport models.Transport
	stations  []Station
	index     *spatial.Index
}

func newStationSet(transport models.Transport, stations []Station) *stationSet {
	points := make([]models.Coordinates, len(stations))
	for i, s := range stations {
		points[i] = s.POI.GetCoords()
	}
	return &stationSet{transport: transport, stations: stations, index: spatial.New(points)}
}

// PlanResult is the ordered leg sequence with per-stop arrival estimates
type PlanResult struct {
	Legs                 []models.RouteLeg
	Arrivals             []models.StopArrival
	TotalDistanceMeters  float64
	TotalDurationMinutes float64
}

// Planner chooses between walking and walk + ride + walk for each hop
type Planner struct {
	graph  *graph.Graph
	calc   distance.Calculator
	params Params
	sets   []*stationSet
}

// NewPlanner snaps transit-stop and metro POIs to g. POIs of other
// categories are ignored. With an empty graph only walking legs are produced.
func NewPlanner(g *graph.Graph, calc distance.Calculator, params Params, pois []models.PointOfInterest) *Planner {
	var bus, metro []Station
	for _, poi := range pois {
		if poi.Category != models.CategoryTransitStop && poi.Category != models.CategoryMetro {
			continue
		}
		node, _, err := g.NearestNode(poi.GetCoords())
		if err != nil {
			continue
		}
		s := Station{POI: poi, Node: node}
		if poi.Category == models.CategoryMetro {
			metro = append(metro, s)
		} else {
			bus = append(bus, s)
		}
	}

	p := &Planner{graph: g, calc: calc, params: params.withDefaults()}
	if len(bus) > 0 {
		p.sets = append(p.sets, newStationSet(models.TransportBus, bus))
	}
	if len(metro) > 0 {
		p.sets = append(p.sets, newStationSet(models.TransportMetro, metro))
	}
	log.Printf("[PLANNER] Planner ready: bus_stops=%d metro_stations=%d", len(bus), len(metro))
	return p
}

// Params returns the effective planner parameters
func (p *Planner) Params() Params {
	return p.params
}

type transitOption struct {
	from, to  Station
	walkIn    float64
	walkOut   float64
	ride      *distance.PathResult
	transport models.Transport
	totalMins float64
}

// Plan builds legs from start through stops in the given order
func (p *Planner) Plan(ctx context.Context, start models.Coordinates, stops []models.Stop) (*PlanResult, error) {
	result := &PlanResult{
		Legs:     []models.RouteLeg{},
		Arrivals: []models.StopArrival{},
	}

	current := start
	currentName := "start"
	for i := range stops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stop := &stops[i]
		next := stop.GetCoords()
		legs := p.planHop(ctx, current, next, currentName, stop.Name, i)
		for _, leg := range legs {
			result.TotalDistanceMeters += leg.DistanceMeters
			result.TotalDurationMinutes += leg.DurationMinutes
		}
		result.Legs = append(result.Legs, legs...)
		result.Arrivals = append(result.Arrivals, models.StopArrival{
			Order:                    i,
			Stop:                     stop,
			ArrivalMinutes:           result.TotalDurationMinutes,
			CumulativeDistanceMeters: result.TotalDistanceMeters,
		})

		current = next
		currentName = stop.Name
	}

	log.Printf("[PLANNER] Plan complete: stops=%d legs=%d distance=%.0f minutes=%.1f",
		len(stops), len(result.Legs), result.TotalDistanceMeters, result.TotalDurationMinutes)
	return result, nil
}

func (p *Planner) planHop(ctx context.Context, from, to models.Coordinates, fromName, toName string, stopIndex int) []models.RouteLeg {
	walkDistance := geo.Haversine(from, to)
	walkMinutes := walkDistance / p.params.WalkSpeed

	best := p.bestTransit(ctx, from, to)
	if best == nil || best.totalMins >= walkMinutes {
		return []models.RouteLeg{{
			Kind:            models.LegWalk,
			Transport:       models.TransportNone,
			DistanceMeters:  walkDistance,
			DurationMinutes: walkMinutes,
			Origin:          from,
			Destination:     to,
			OriginName:      fromName,
			DestinationName: toName,
			ToStopIndex:     stopIndex,
		}}
	}

	fromCoords := best.from.POI.GetCoords()
	toCoords := best.to.POI.GetCoords()
	ride := models.RouteLeg{
		Kind:            models.LegTransit,
		Transport:       best.transport,
		DistanceMeters:  best.ride.DistanceMeters,
		DurationMinutes: best.ride.DistanceMeters / p.params.TransitSpeed,
		Origin:          fromCoords,
		Destination:     toCoords,
		OriginName:      best.from.POI.Name,
		DestinationName: best.to.POI.Name,
		NodePath:        best.ride.Nodes,
		ToStopIndex:     stopIndex,
	}
	AnnotateRisk(p.graph, &ride)

	return []models.RouteLeg{
		{
			Kind:            models.LegWalk,
			Transport:       models.TransportNone,
			DistanceMeters:  best.walkIn,
			DurationMinutes: best.walkIn / p.params.WalkSpeed,
			Origin:          from,
			Destination:     fromCoords,
			OriginName:      fromName,
			DestinationName: best.from.POI.Name,
			ToStopIndex:     stopIndex,
		},
		ride,
		{
			Kind:            models.LegWalk,
			Transport:       models.TransportNone,
			DistanceMeters:  best.walkOut,
			DurationMinutes: best.walkOut / p.params.WalkSpeed,
			Origin:          toCoords,
			Destination:     to,
			OriginName:      best.to.POI.Name,
			DestinationName: toName,
			ToStopIndex:     stopIndex,
		},
	}
}

// bestTransit evaluates every origin/destination candidate pair across bus
// and metro sets, including cross combinations
func (p *Planner) bestTransit(ctx context.Context, from, to models.Coordinates) *transitOption {
	var best *transitOption
	k := p.params.Candidates

	for _, originSet := range p.sets {
		origins := originSet.index.Nearest(from, k)
		for _, destSet := range p.sets {
			destinations := destSet.index.Nearest(to, k)

			transport := models.TransportBus
			if originSet.transport == models.TransportMetro && destSet.transport == models.TransportMetro {
				transport = models.TransportMetro
			}

			for _, o := range origins {
				for _, d := range destinations {
					fromStation := originSet.stations[o.Index]
					toStation := destSet.stations[d.Index]
					if fromStation.Node == toStation.Node {
						continue
					}
					ride, ok := p.calc.PathDistance(ctx, fromStation.Node, toStation.Node)
					if !ok {
						continue
					}
					total := o.Distance/p.params.WalkSpeed + ride.DistanceMeters/p.params.TransitSpeed + d.Distance/p.params.WalkSpeed
					if best == nil || total < best.totalMins {
						best = &transitOption{
							from:      fromStation,
							to:        toStation,
							walkIn:    o.Distance,
							walkOut:   d.Distance,
							ride:      ride,
							transport: transport,
							totalMins: total,
						}
					}
				}
			}
		}
	}
	return best
}
