package models

import "time"

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PropertyType is the structural kind of a listing, decided once at ingestion
type PropertyType string

const (
	PropertyHouse     PropertyType = "house"
	PropertyApartment PropertyType = "apartment"
)

// Operation is the commercial operation of a listing
type Operation string

const (
	OperationSale Operation = "sale"
	OperationRent Operation = "rent"
)

// Property represents a real-estate listing
type Property struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Lat       float64      `json:"lat"`
	Lng       float64      `json:"lng"`
	PricePeso float64      `json:"price_peso"`
	PriceUF   float64      `json:"price_uf"`
	Bedrooms  int          `json:"bedrooms"`
	Bathrooms int          `json:"bathrooms"`
	BuiltArea float64      `json:"built_area_m2"`
	TotalArea float64      `json:"total_area_m2"`
	Type      PropertyType `json:"type"`
	Operation Operation    `json:"operation"`
	Comuna    string       `json:"comuna,omitempty"`
	URL       string       `json:"url,omitempty"`
	ImageURL  string       `json:"image_url,omitempty"`
	Source    string       `json:"source,omitempty"`
}

// GetCoords returns the coordinates of the property
func (p *Property) GetCoords() Coordinates {
	return Coordinates{Lat: p.Lat, Lng: p.Lng}
}

// POICategory tags a point of interest
type POICategory string

const (
	CategoryMetro       POICategory = "metro"
	CategoryHealth      POICategory = "health"
	CategoryTransitStop POICategory = "transit-stop"
	CategoryPolice      POICategory = "police"
	CategoryMarket      POICategory = "market"
	CategoryFireStation POICategory = "fire-station"
	CategoryUniversity  POICategory = "university"
	CategorySchool      POICategory = "school"
)

// PointOfInterest is an immutable per-session POI record
type PointOfInterest struct {
	Name       string            `json:"name"`
	Code       string            `json:"code,omitempty"`
	Category   POICategory       `json:"category"`
	Lat        float64           `json:"lat"`
	Lng        float64           `json:"lng"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// GetCoords returns the coordinates of the POI
func (p *PointOfInterest) GetCoords() Coordinates {
	return Coordinates{Lat: p.Lat, Lng: p.Lng}
}

// Stop is a property promoted into an itinerary
type Stop struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// GetCoords returns the coordinates of the stop
func (s *Stop) GetCoords() Coordinates {
	return Coordinates{Lat: s.Lat, Lng: s.Lng}
}

// StopFromProperty builds an itinerary stop from a listing
func StopFromProperty(p *Property) Stop {
	return Stop{ID: p.ID, Name: p.Title, Lat: p.Lat, Lng: p.Lng}
}

// LegKind distinguishes walking legs from rides
type LegKind string

const (
	LegWalk    LegKind = "walk"
	LegTransit LegKind = "transit"
)

// Transport is the vehicle used on a transit leg
type Transport string

const (
	TransportNone  Transport = "none"
	TransportBus   Transport = "bus"
	TransportMetro Transport = "metro"
)

// RiskBand is the display classification of a leg's average risk
type RiskBand string

const (
	RiskLow    RiskBand = "low"
	RiskMedium RiskBand = "medium"
	RiskHigh   RiskBand = "high"
)

// RouteLeg is one ephemeral piece of an itinerary
type RouteLeg struct {
	Kind            LegKind     `json:"kind"`
	Transport       Transport   `json:"transport"`
	DistanceMeters  float64     `json:"distance_meters"`
	DurationMinutes float64     `json:"duration_minutes"`
	Origin          Coordinates `json:"origin"`
	Destination     Coordinates `json:"destination"`
	OriginName      string      `json:"origin_name,omitempty"`
	DestinationName string      `json:"destination_name,omitempty"`
	NodePath        []int64     `json:"node_path,omitempty"`
	AverageRisk     float64     `json:"average_risk"`
	Risk            RiskBand    `json:"risk,omitempty"`
	ToStopIndex     int         `json:"to_stop_index"`
}

// StopArrival is the cumulative ETA at one itinerary stop
type StopArrival struct {
	Order                    int     `json:"order"`
	Stop                     *Stop   `json:"stop"`
	ArrivalMinutes           float64 `json:"arrival_minutes"`
	CumulativeDistanceMeters float64 `json:"cumulative_distance_meters"`
}

// Itinerary is the full output of one route generation
type Itinerary struct {
	Start                Coordinates   `json:"start"`
	Stops                []Stop        `json:"stops"`
	Legs                 []RouteLeg    `json:"legs"`
	Arrivals             []StopArrival `json:"arrivals"`
	TotalDistanceMeters  float64       `json:"total_distance_meters"`
	TotalDurationMinutes float64       `json:"total_duration_minutes"`
	Strategy             string        `json:"strategy,omitempty"`
	Warnings             []string      `json:"warnings"`
	GeneratedAt          time.Time     `json:"generated_at"`
}

// AppointmentStatus is the state of a scheduled viewing
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentActive    AppointmentStatus = "active"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment is a scheduled viewing for one stop
type Appointment struct {
	StopID                  string            `json:"stop_id"`
	StopName                string            `json:"stop_name"`
	ScheduledAt             time.Time         `json:"scheduled_at"`
	Status                  AppointmentStatus `json:"status"`
	CancellationProbability float64           `json:"cancellation_probability"`
}

// Cancelled reports whether the appointment reached its terminal state
func (a *Appointment) Cancelled() bool {
	return a.Status == AppointmentCancelled
}

// CancellationEvent is surfaced when an appointment is cancelled by a tick
type CancellationEvent struct {
	SessionID   string    `json:"session_id,omitempty"`
	StopID      string    `json:"stop_id"`
	StopName    string    `json:"stop_name"`
	Draw        float64   `json:"draw"`
	Probability float64   `json:"probability"`
	At          time.Time `json:"at"`
}
