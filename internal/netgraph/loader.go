package netgraph

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tariktoplu/Opti-LogistiX/internal/model"
)

// NodeSpec describes one node of an externally supplied dataset.
type NodeSpec struct {
	ID   int64          `json:"id"`
	Loc  model.LatLon   `json:"location"`
	Role model.NodeRole `json:"role,omitempty"`
}

// EdgeSpec describes one directed edge of an externally supplied dataset.
// Undirected roads appear as two specs, one per direction.
type EdgeSpec struct {
	ID       int64           `json:"id"`
	From     int64           `json:"from"`
	To       int64           `json:"to"`
	LengthM  float64         `json:"length_m"`
	Class    model.RoadClass `json:"road_class"`
	Lanes    int             `json:"lanes,omitempty"`
	Bridge   bool            `json:"is_bridge,omitempty"`
	Soil     model.SoilClass `json:"soil,omitempty"`
	Density  float64         `json:"building_density,omitempty"`
	SpeedKmh float64         `json:"base_speed_kmh,omitempty"`
	Geometry []model.LatLon  `json:"geometry,omitempty"`
}

// Dataset is the node/edge model the engine consumes. Acquisition from a
// mapping provider is out of scope; this is already-reduced data.
type Dataset struct {
	Nodes []NodeSpec `json:"nodes"`
	Edges []EdgeSpec `json:"edges"`
}

// ParseDataset decodes a node-link JSON dataset.
func ParseDataset(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, eris.Wrap(ErrGraphLoad, "netgraph: parse dataset JSON: "+err.Error())
	}
	return &ds, nil
}

// LoadFile reads a node-link JSON dataset from disk and builds the graph.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "netgraph: read dataset %s", path)
	}
	ds, err := ParseDataset(data)
	if err != nil {
		return nil, err
	}
	g, err := New(ds)
	if err != nil {
		return nil, err
	}
	zap.L().Info("road network loaded",
		zap.String("path", path),
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
	)
	return g, nil
}
