package netgraph

import (
	"github.com/tariktoplu/Opti-LogistiX/internal/model"
)

// GridOptions parameterizes the synthetic demo network.
type GridOptions struct {
	// Size is the side length; the grid has Size*Size nodes.
	Size int
	// Origin is the south-west corner. Zero value places the grid in
	// Kadıköy, Istanbul, matching the demo dataset.
	Origin model.LatLon
	// SpacingDeg is the node spacing in degrees.
	SpacingDeg float64
	// EdgeLengthM overrides the derived edge length when positive; useful for
	// uniform test fixtures.
	EdgeLengthM float64
	// SpeedKmh overrides the per-class base speed when positive.
	SpeedKmh float64
}

func (o GridOptions) withDefaults() GridOptions {
	if o.Size <= 0 {
		o.Size = 5
	}
	if o.Origin == (model.LatLon{}) {
		o.Origin = model.LatLon{Lat: 41.0, Lon: 29.0}
	}
	if o.SpacingDeg <= 0 {
		o.SpacingDeg = 0.01
	}
	return o
}

// GridDataset builds a Size×Size demo road grid: two-lane secondary roads
// east-west, residential streets north-south, every edge present in both
// directions, and a bridge on the north-south link at the grid center. Node 0
// is tagged as a depot and the center node as a hospital so allocation demos
// have somewhere to go.
func GridDataset(opts GridOptions) *Dataset {
	opts = opts.withDefaults()
	size := opts.Size
	center := int64(size/2*size + size/2)

	ds := &Dataset{}
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			id := int64(i*size + j)
			role := model.RoleIntersection
			switch id {
			case 0:
				role = model.RoleDepot
			case center:
				role = model.RoleHospital
			}
			ds.Nodes = append(ds.Nodes, NodeSpec{
				ID: id,
				Loc: model.LatLon{
					Lat: opts.Origin.Lat + float64(j)*opts.SpacingDeg,
					Lon: opts.Origin.Lon + float64(i)*opts.SpacingDeg,
				},
				Role: role,
			})
		}
	}

	nodeLoc := func(id int64) model.LatLon { return ds.Nodes[id].Loc }
	edgeID := int64(0)
	addPair := func(a, b int64, class model.RoadClass, lanes int, bridge bool) {
		length := opts.EdgeLengthM
		if length <= 0 {
			length = nodeLoc(a).PlanarMeters(nodeLoc(b))
		}
		for _, dir := range [2][2]int64{{a, b}, {b, a}} {
			ds.Edges = append(ds.Edges, EdgeSpec{
				ID:       edgeID,
				From:     dir[0],
				To:       dir[1],
				LengthM:  length,
				Class:    class,
				Lanes:    lanes,
				Bridge:   bridge,
				Soil:     model.SoilStiff,
				Density:  0.4,
				SpeedKmh: opts.SpeedKmh,
			})
			edgeID++
		}
	}

	mid := size / 2
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			current := int64(i*size + j)
			if j < size-1 {
				bridge := i == mid && j == mid
				addPair(current, current+1, model.RoadResidential, 1, bridge)
			}
			if i < size-1 {
				addPair(current, current+int64(size), model.RoadSecondary, 2, false)
			}
		}
	}

	return ds
}
