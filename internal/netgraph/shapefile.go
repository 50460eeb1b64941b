package netgraph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tariktoplu/Opti-LogistiX/internal/model"
)

// Shapefile attribute fields read by the importer. Missing fields fall back
// to road-class defaults, so partial datasets still load.
const (
	fieldClass   = "class"
	fieldLanes   = "lanes"
	fieldBridge  = "bridge"
	fieldSpeed   = "maxspeed"
	fieldSoil    = "soil"
	fieldDensity = "bldg_dens"
	fieldOneway  = "oneway"
)

// ImportShapefile reads a road-centerline shapefile and reduces it to the
// node/edge dataset. Polyline endpoints are deduplicated into nodes with
// stable integer identifiers assigned in read order; coordinates are never
// used as map keys beyond this one load step.
func ImportShapefile(path string) (*Dataset, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "netgraph: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	attr := func(name string) string {
		idx, ok := fieldIdx[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
	}

	ds := &Dataset{}
	nodeIDs := make(map[string]int64)
	nodeFor := func(lat, lon float64) int64 {
		key := fmt.Sprintf("%.7f,%.7f", lat, lon)
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := int64(len(ds.Nodes))
		nodeIDs[key] = id
		ds.Nodes = append(ds.Nodes, NodeSpec{ID: id, Loc: model.LatLon{Lat: lat, Lon: lon}})
		return id
	}

	var edgeID int64
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		line, ok := shape.(*shp.PolyLine)
		if !ok || len(line.Points) < 2 {
			skipped++
			continue
		}

		class := model.RoadClass(strings.ToLower(attr(fieldClass)))
		if !class.Known() {
			class = model.RoadUnclassified
		}
		lanes, _ := strconv.Atoi(attr(fieldLanes))
		speed, _ := strconv.ParseFloat(attr(fieldSpeed), 64)
		density, _ := strconv.ParseFloat(attr(fieldDensity), 64)
		bridge := strings.EqualFold(attr(fieldBridge), "yes") || attr(fieldBridge) == "1"
		soil := model.SoilClass(strings.ToLower(attr(fieldSoil)))
		oneway := strings.EqualFold(attr(fieldOneway), "yes") || attr(fieldOneway) == "1"

		first := line.Points[0]
		last := line.Points[len(line.Points)-1]
		from := nodeFor(first.Y, first.X)
		to := nodeFor(last.Y, last.X)
		if from == to {
			skipped++
			continue
		}

		var lengthM float64
		geometry := make([]model.LatLon, 0, len(line.Points)-2)
		for i, p := range line.Points {
			if i > 0 {
				prev := line.Points[i-1]
				lengthM += (model.LatLon{Lat: prev.Y, Lon: prev.X}).PlanarMeters(model.LatLon{Lat: p.Y, Lon: p.X})
			}
			if i > 0 && i < len(line.Points)-1 {
				geometry = append(geometry, model.LatLon{Lat: p.Y, Lon: p.X})
			}
		}
		if lengthM <= 0 {
			skipped++
			continue
		}

		spec := EdgeSpec{
			From:     from,
			To:       to,
			LengthM:  lengthM,
			Class:    class,
			Lanes:    lanes,
			Bridge:   bridge,
			Soil:     soil,
			Density:  density,
			SpeedKmh: speed,
			Geometry: geometry,
		}

		spec.ID = edgeID
		edgeID++
		ds.Edges = append(ds.Edges, spec)

		if !oneway {
			rev := spec
			rev.ID = edgeID
			edgeID++
			rev.From, rev.To = spec.To, spec.From
			rev.Geometry = reverseCoords(spec.Geometry)
			ds.Edges = append(ds.Edges, rev)
		}
	}

	if skipped > 0 {
		zap.L().Debug("skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(ds.Edges) == 0 {
		return nil, eris.Wrapf(ErrGraphLoad, "netgraph: shapefile %s yielded no road segments", path)
	}

	return ds, nil
}

func reverseCoords(pts []model.LatLon) []model.LatLon {
	if len(pts) == 0 {
		return nil
	}
	out := make([]model.LatLon, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}
