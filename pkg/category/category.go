// Package category holds the fixed critical-infrastructure query table.
package category

import (
	"sort"
	"strings"

	"osmflex/pkg/model"
)

// Category is a critical-infrastructure type with a fixed set of queries.
type Category string

const (
	Education  Category = "education"
	Healthcare Category = "healthcare"
	Water      Category = "water"
	Telecom    Category = "telecom"
	Road       Category = "road"
	MainRoad   Category = "main_road"
	Rail       Category = "rail"
	Air        Category = "air"
	Gas        Category = "gas"
	Oil        Category = "oil"
	Power      Category = "power"
	Wastewater Category = "wastewater"
	Food       Category = "food"
	Buildings  Category = "buildings"
)

var (
	pointsAndAreas = []model.Layer{model.LayerPoints, model.LayerMultiPolygons}
	areasOnly      = []model.Layer{model.LayerMultiPolygons}
	allLayers      = []model.Layer{model.LayerPoints, model.LayerMultiPolygons, model.LayerLines}
)

type entry struct {
	keys      []string
	predicate string
	layers    []model.Layer
}

var table = map[Category]entry{
	Education: {
		keys:      []string{"amenity", "building", "name"},
		predicate: "building='school' or amenity='school' or building='kindergarten' or amenity='kindergarten' or building='college' or amenity='college' or building='university' or amenity='university' or building='library' or amenity='library'",
		layers:    pointsAndAreas,
	},
	Healthcare: {
		keys:      []string{"amenity", "building", "healthcare", "name"},
		predicate: "amenity='hospital' or healthcare='hospital' or building='hospital' or building='clinic' or healthcare='clinic' or amenity='clinic' or amenity='doctors' or healthcare='doctors' or amenity='dentist' or amenity='pharmacy'",
		layers:    pointsAndAreas,
	},
	Water: {
		keys:      []string{"man_made", "pump", "pipeline", "emergency", "name"},
		predicate: "man_made='water_well' or man_made='water_works' or man_made='water_tower' or man_made='reservoir_covered' or (man_made='storage_tank' and content='water') or (man_made='pipeline' and substance='water') or (pipeline='substation' and substance='water') or pump='powered' or pump='manual' or pump='yes' or emergency='fire_hydrant'",
		layers:    allLayers,
	},
	Telecom: {
		keys:      []string{"man_made", "tower_type", "telecom", "communication_mobile_phone", "name"},
		predicate: "tower_type='communication' or man_made='mast' or communication_mobile_phone IS NOT NULL or telecom='antenna' or telecom='data_center' or telecom='exchange' or telecom='service_device' or telecom='central_office'",
		layers:    allLayers,
	},
	Road: {
		keys:      []string{"highway", "man_made", "public_transport", "bus", "name"},
		predicate: "highway IN ('motorway', 'motorway_link', 'trunk', 'trunk_link', 'primary', 'primary_link', 'secondary', 'secondary_link', 'tertiary', 'tertiary_link', 'residential', 'road', 'service', 'unclassified')",
		layers:    allLayers,
	},
	MainRoad: {
		keys:      []string{"highway", "name"},
		predicate: "highway IN ('primary', 'primary_link', 'secondary', 'secondary_link', 'tertiary', 'tertiary_link', 'trunk', 'trunk_link', 'motorway', 'motorway_link')",
		layers:    allLayers,
	},
	Rail: {
		keys:      []string{"railway", "name"},
		predicate: "railway='rail' or railway='tram' or railway='subway' or railway='narrow_gauge' or railway='light_rail'",
		layers:    allLayers,
	},
	Air: {
		keys:      []string{"aeroway", "name"},
		predicate: "aeroway='aerodrome'",
		layers:    areasOnly,
	},
	Gas: {
		keys:      []string{"man_made", "pipeline", "utility", "name"},
		predicate: "(man_made='pipeline' and substance='gas') or (pipeline='substation' and substance='gas') or (man_made='storage_tank' and content='gas') or utility='gas'",
		layers:    allLayers,
	},
	Oil: {
		keys:      []string{"pipeline", "man_made", "amenity", "name"},
		predicate: "(pipeline='substation' and substance='oil') or (man_made='pipeline' and substance='oil') or man_made='petroleum_well' or man_made='oil_refinery' or amenity='fuel'",
		layers:    allLayers,
	},
	Power: {
		keys:      []string{"power", "voltage", "utility", "name"},
		predicate: "power='line' or power='cable' or power='minor_line' or power='minor_cable' or power='plant' or power='generator' or power='substation' or power='transformer' or power='pole' or power='portal' or power='tower' or power='terminal' or power='switch' or power='catenary_mast' or utility='power'",
		layers:    allLayers,
	},
	Wastewater: {
		keys:      []string{"reservoir_type", "man_made", "utility", "natural", "name"},
		predicate: "reservoir_type='sewage' or (man_made='storage_tank' and content='sewage') or (man_made='pipeline' and substance='sewage') or substance='waterwaste' or substance='wastewater' or (natural='water' and water='wastewater') or man_made='wastewater_plant' or man_made='wastewater_tank' or utility='sewerage'",
		layers:    allLayers,
	},
	Food: {
		keys:      []string{"shop", "name"},
		predicate: "shop='supermarket' or shop='general' or shop='convenience' or shop='greengrocer' or shop='butcher' or shop='bakery'",
		layers:    pointsAndAreas,
	},
	Buildings: {
		keys:   []string{"building", "amenity", "name"},
		layers: pointsAndAreas,
	},
}

// Parse resolves a category name. Matching ignores case and surrounding
// whitespace.
func Parse(name string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(name)))
	_, ok := table[c]
	return c, ok
}

// All returns every known category in name order.
func All() []Category {
	out := make([]Category, 0, len(table))
	for c := range table {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := table[c]
	return ok
}

func (c Category) String() string { return string(c) }

// Queries returns one query per layer of the category, in the fixed order
// points, multipolygons, lines. Unknown categories yield nil.
func (c Category) Queries() []model.QuerySpec {
	e, ok := table[c]
	if !ok {
		return nil
	}
	out := make([]model.QuerySpec, 0, len(e.layers))
	for _, l := range e.layers {
		out = append(out, model.QuerySpec{
			Layer:     l,
			Keys:      append([]string(nil), e.keys...),
			Predicate: e.predicate,
		})
	}
	return out
}
