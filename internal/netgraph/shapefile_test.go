package netgraph

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tariktoplu/Opti-LogistiX/internal/model"
)

// writeTestShapefile lays down two connected road segments: a two-way
// secondary bridge and a one-way residential street.
func writeTestShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roads.shp")

	w, err := shp.Create(path, shp.POLYLINE)
	require.NoError(t, err)
	w.SetFields([]shp.Field{
		shp.StringField("class", 16),
		shp.StringField("bridge", 4),
		shp.StringField("oneway", 4),
	})

	w.Write(shp.NewPolyLine([][]shp.Point{{
		{X: 29.00, Y: 41.00},
		{X: 29.01, Y: 41.00},
	}}))
	w.WriteAttribute(0, 0, "secondary")
	w.WriteAttribute(0, 1, "yes")
	w.WriteAttribute(0, 2, "")

	w.Write(shp.NewPolyLine([][]shp.Point{{
		{X: 29.01, Y: 41.00},
		{X: 29.02, Y: 41.00},
	}}))
	w.WriteAttribute(1, 0, "residential")
	w.WriteAttribute(1, 1, "")
	w.WriteAttribute(1, 2, "yes")

	w.Close()
	return path
}

func TestImportShapefile(t *testing.T) {
	ds, err := ImportShapefile(writeTestShapefile(t))
	require.NoError(t, err)

	// The shared endpoint dedupes into one node: three nodes total. The
	// two-way segment yields two directed edges, the one-way segment one.
	assert.Len(t, ds.Nodes, 3)
	require.Len(t, ds.Edges, 3)

	assert.Equal(t, model.RoadSecondary, ds.Edges[0].Class)
	assert.True(t, ds.Edges[0].Bridge)
	assert.Equal(t, ds.Edges[0].From, ds.Edges[1].To)
	assert.Equal(t, ds.Edges[0].To, ds.Edges[1].From)

	assert.Equal(t, model.RoadResidential, ds.Edges[2].Class)
	assert.False(t, ds.Edges[2].Bridge)
	assert.Greater(t, ds.Edges[0].LengthM, 800.0)

	g, err := New(ds)
	require.NoError(t, err)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 3, g.EdgeCount())
}

func TestImportShapefileMissing(t *testing.T) {
	_, err := ImportShapefile(filepath.Join(t.TempDir(), "nope.shp"))
	assert.Error(t, err)
}
