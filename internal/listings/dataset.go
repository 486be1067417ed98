package listings

import (
	"errors"
	"log"
	"os"
	"path/filepath"

	"property-tour-router/internal/models"
)

// Default file names inside a data directory
const (
	PrimaryListingsFile = "casas.json"
	MetroFile           = "Estaciones_actuales_Metro_de_Santiago.csv"
	TransitStopsFile    = "Paraderos_Transantiago.geojson"
	HealthFile          = "Establecimientos_de_Salud.csv"
)

// SecondaryListingsFiles are merged after the primary file
var SecondaryListingsFiles = []string{
	"casa-venta-toctoc.json",
	"depto-venta-toctoc.json",
}

// DatasetOptions tunes LoadDataset
type DatasetOptions struct {
	UFRate float64
	Comuna string
}

// Dataset is the per-session catalog of listings and POIs
type Dataset struct {
	Properties []models.Property
	POIs       []models.PointOfInterest
}

// Property looks up a listing by id
func (d *Dataset) Property(id string) (models.Property, bool) {
	for _, p := range d.Properties {
		if p.ID == id {
			return p, true
		}
	}
	return models.Property{}, false
}

// LoadDataset reads every known file in dir. Missing files are logged and
// skipped; malformed files are errors.
func LoadDataset(dir string, opts DatasetOptions) (*Dataset, error) {
	ds := &Dataset{}

	files := append([]string{PrimaryListingsFile}, SecondaryListingsFiles...)
	var sources [][]models.Property
	for _, name := range files {
		props, err := LoadListings(filepath.Join(dir, name), Defaults{UFRate: opts.UFRate})
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Printf("[WARN] Listings file missing: file=%s", name)
				continue
			}
			return nil, err
		}
		sources = append(sources, props)
	}
	ds.Properties = Merge(sources...)

	metro, err := LoadMetro(filepath.Join(dir, MetroFile))
	if err := skipMissing(err, MetroFile); err != nil {
		return nil, err
	}
	stops, err := LoadTransitStops(filepath.Join(dir, TransitStopsFile), opts.Comuna)
	if err := skipMissing(err, TransitStopsFile); err != nil {
		return nil, err
	}
	health, err := LoadHealth(filepath.Join(dir, HealthFile))
	if err := skipMissing(err, HealthFile); err != nil {
		return nil, err
	}
	ds.POIs = append(append(append(ds.POIs, metro...), stops...), health...)

	log.Printf("[LISTINGS] Dataset ready: properties=%d metro=%d transit_stops=%d health=%d",
		len(ds.Properties), len(metro), len(stops), len(health))
	return ds, nil
}

func skipMissing(err error, name string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] POI file missing: file=%s", name)
		return nil
	}
	return err
}
