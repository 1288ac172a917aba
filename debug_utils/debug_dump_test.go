package debug_utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Robmaister/SharpNav-sub000/common"
	"github.com/Robmaister/SharpNav-sub000/navmesh"
	"github.com/Robmaister/SharpNav-sub000/recast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func plane(x1, z1 float32) recast.TriangleList {
	a := common.Vec3{0, 0, 0}
	b := common.Vec3{0, 0, z1}
	c := common.Vec3{x1, 0, z1}
	d := common.Vec3{x1, 0, 0}
	return recast.TriangleList{{A: a, B: b, C: c}, {A: a, B: c, C: d}}
}

func countPrefix(s, prefix string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

func generate(t *testing.T) *navmesh.NavMesh {
	t.Helper()
	m, err := navmesh.Generate(plane(10, 10), navmesh.Default(), nil)
	require.NoError(t, err)
	return m
}

func TestDumpPolyMeshToObj(t *testing.T) {
	pm := generate(t).Tiles[0].PolyMesh
	var buf bytes.Buffer
	require.NoError(t, DumpPolyMeshToObj(pm, &buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Recast Navmesh\n"))
	assert.Equal(t, len(pm.Verts), countPrefix(out, "v "))
	tris := 0
	for i := range pm.Polys {
		tris += pm.Polys[i].VertexCount() - 2
	}
	assert.Equal(t, tris, countPrefix(out, "f "))
}

func TestDumpPolyMeshDetailToObj(t *testing.T) {
	dm := generate(t).Tiles[0].DetailMesh
	var buf bytes.Buffer
	require.NoError(t, DumpPolyMeshDetailToObj(dm, &buf))
	assert.Equal(t, len(dm.Verts), countPrefix(buf.String(), "v "))
	assert.Equal(t, len(dm.Tris), countPrefix(buf.String(), "f "))
}

func TestDumpNavMeshToObj(t *testing.T) {
	m := generate(t)
	var buf bytes.Buffer
	require.NoError(t, DumpNavMeshToObj(m.TiledNavMesh, &buf))

	out := buf.String()
	assert.Equal(t, 1, countPrefix(out, "o Tile_0_0_0"))
	tile := m.Tile(0)
	assert.Equal(t, len(tile.Verts)/3+len(tile.DetailVerts)/3, countPrefix(out, "v "))
	assert.Equal(t, len(tile.DetailTris)/4, countPrefix(out, "f "))
}

func TestContourSetRoundTrip(t *testing.T) {
	cset := &recast.ContourSet{
		Bounds:     recast.BBox3{Min: common.Vec3{0, 0, 0}, Max: common.Vec3{10, 2, 10}},
		CellSize:   0.3,
		CellHeight: 0.2,
		Width:      34,
		Length:     34,
		BorderSize: 5,
		MaxError:   1.3,
		Contours: []*recast.Contour{{
			Vertices:    []recast.ContourVertex{{X: 0, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 8}, {X: 8, Y: 1, Z: 8, RegionId: 2}},
			RawVertices: []recast.ContourVertex{{X: 0, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 4}, {X: 0, Y: 1, Z: 8}, {X: 8, Y: 1, Z: 8}},
			RegionId:    1,
			Area:        recast.AreaWalkable,
		}},
	}
	got, err := ReadContourSet(DumpContourSet(cset))
	require.NoError(t, err)
	assert.Equal(t, cset, got)
}

func TestReadContourSetErrors(t *testing.T) {
	_, err := ReadContourSet(nil)
	assert.ErrorIs(t, err, ErrBadContourSet)

	data := DumpContourSet(&recast.ContourSet{Contours: []*recast.Contour{{
		Vertices: []recast.ContourVertex{{X: 1}, {X: 2}, {X: 3}},
	}}})
	_, err = ReadContourSet(data[:len(data)-4])
	assert.ErrorIs(t, err, ErrBadContourSet)

	data[4] = 9
	_, err = ReadContourSet(data)
	assert.ErrorIs(t, err, ErrBadContourSet)
}

func TestLogBuildTimes(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := generate(t)
	LogBuildTimes(m.BuildContext, zap.New(core))

	assert.Equal(t, 1, logs.FilterMessage("Build Times").Len())
	assert.Equal(t, 1, logs.FilterMessage("- Rasterize").Len())
	assert.Equal(t, 1, logs.FilterMessage("    - Trace").Len())
	total := logs.FilterMessage("=== TOTAL").All()
	require.Len(t, total, 1)
	assert.Contains(t, total[0].ContextMap(), "time")
}
