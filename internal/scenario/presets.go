package scenario

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/tariktoplu/Opti-LogistiX/internal/model"
)

// Preset is a named, pre-parameterized scenario. The epicenter offset is
// relative to the graph centroid so presets work on any loaded network.
type Preset struct {
	Name      string  `yaml:"name" json:"name"`
	Magnitude float64 `yaml:"magnitude" json:"magnitude"`
	OffsetLat float64 `yaml:"offset_lat" json:"offset_lat"`
	OffsetLon float64 `yaml:"offset_lon" json:"offset_lon"`
	DepthKm   float64 `yaml:"depth_km" json:"depth_km"`
}

// DefaultPresets is the built-in catalog: a mild, a moderate, and a severe
// earthquake with slightly different epicenters.
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "mild", Magnitude: 5.5, DepthKm: 10},
		{Name: "moderate", Magnitude: 6.5, OffsetLat: 0.005, OffsetLon: -0.003, DepthKm: 12},
		{Name: "severe", Magnitude: 7.2, OffsetLat: -0.002, OffsetLon: 0.005, DepthKm: 8},
	}
}

// LoadPresets reads a preset catalog from a YAML file.
func LoadPresets(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: read presets %s", path)
	}
	var doc struct {
		Presets []Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "scenario: parse presets %s", path)
	}
	if len(doc.Presets) == 0 {
		return nil, eris.Errorf("scenario: presets file %s is empty", path)
	}
	return doc.Presets, nil
}

// Params resolves a preset against the graph centroid.
func (p Preset) Params(centroid model.LatLon, seed int64) Params {
	return Params{
		Magnitude: p.Magnitude,
		Epicenter: model.LatLon{Lat: centroid.Lat + p.OffsetLat, Lon: centroid.Lon + p.OffsetLon},
		DepthKm:   p.DepthKm,
		Seed:      seed,
		ID:        "PRESET-" + p.Name,
	}
}

// FindPreset returns the preset with the given name.
func FindPreset(presets []Preset, name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
