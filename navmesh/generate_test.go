package navmesh

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/Robmaister/SharpNav-sub000/common"
	"github.com/Robmaister/SharpNav-sub000/detour"
	"github.com/Robmaister/SharpNav-sub000/recast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var queryExtents = common.Vec3{1, 2, 1}

func plane(x0, z0, x1, z1 float32) recast.TriangleList {
	a := common.Vec3{x0, 0, z0}
	b := common.Vec3{x0, 0, z1}
	c := common.Vec3{x1, 0, z1}
	d := common.Vec3{x1, 0, z0}
	return recast.TriangleList{{A: a, B: b, C: c}, {A: a, B: c, C: d}}
}

func nearest(t *testing.T, q *detour.NavMeshQuery, pos common.Vec3) detour.PolyRef {
	t.Helper()
	n, status := q.FindNearestPoly(pos, queryExtents, detour.NewStandardQueryFilter())
	require.True(t, status.Succeeded())
	require.NotZero(t, n.Ref, "no polygon near %v", pos)
	return n.Ref
}

func TestGenerateFlatPlane(t *testing.T) {
	s := Default()
	s.MaxEdgeLength = 0
	m, err := Generate(plane(0, 0, 10, 10), s, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, m.Tiles, 1)
	assert.NotEqual(t, [16]byte{}, [16]byte(m.BuildID))
	assert.NotNil(t, m.BuildContext)

	pm := m.Tiles[0].PolyMesh
	require.Len(t, pm.Polys, 1)
	assert.Equal(t, recast.AreaWalkable, pm.Polys[0].Area)
	require.NotNil(t, m.Tiles[0].DetailMesh)

	q, err := m.NewQuery(256)
	require.NoError(t, err)
	corner := common.Vec3{1, 0, 1}
	ref := nearest(t, q, corner)
	path, status := q.FindPath(ref, ref, corner, corner, detour.NewStandardQueryFilter(), 16)
	require.True(t, status.Succeeded())
	assert.Equal(t, []detour.PolyRef{ref}, path)

	h, status := q.GetPolyHeight(ref, common.Vec3{5, 0, 5})
	require.True(t, status.Succeeded())
	assert.InDelta(t, 0, h, 0.3)
}

func TestGenerateOneRegion(t *testing.T) {
	m, err := Generate(plane(0, 0, 10, 10), Default(), zaptest.NewLogger(t))
	require.NoError(t, err)
	pm := m.Tiles[0].PolyMesh
	require.NotEmpty(t, pm.Polys)
	for i := range pm.Polys {
		assert.Equal(t, pm.Polys[0].RegionId, pm.Polys[i].RegionId)
	}

	q, err := m.NewQuery(256)
	require.NoError(t, err)
	start, end := common.Vec3{1, 0, 1}, common.Vec3{9, 0, 9}
	path, status := q.FindPath(nearest(t, q, start), nearest(t, q, end), start, end, detour.NewStandardQueryFilter(), 64)
	require.True(t, status.Succeeded())
	assert.False(t, status.Detail(detour.PartialResult))

	straight, status := q.FindStraightPath(start, end, path, 16, 0)
	require.True(t, status.Succeeded())
	// Open ground, so the path is a straight line.
	require.Len(t, straight, 2)
	assert.InDelta(t, 1, straight[0].Pos[0], 0.1)
	assert.InDelta(t, 9, straight[1].Pos[2], 0.1)
}

func TestGenerateTwoSquares(t *testing.T) {
	tris := append(plane(0, 0, 5, 5), plane(5, 0, 10, 5)...)
	m, err := Generate(tris, Default(), zaptest.NewLogger(t))
	require.NoError(t, err)

	q, err := m.NewQuery(256)
	require.NoError(t, err)
	start, end := common.Vec3{1, 0, 2.5}, common.Vec3{9, 0, 2.5}
	path, status := q.FindPath(nearest(t, q, start), nearest(t, q, end), start, end, detour.NewStandardQueryFilter(), 64)
	require.True(t, status.Succeeded())
	assert.False(t, status.Detail(detour.PartialResult))

	// Consecutive corridor polygons share a portal.
	for i := 1; i < len(path); i++ {
		_, _, _, _, status := q.GetPortalPoints(path[i-1], path[i])
		assert.True(t, status.Succeeded(), "no portal between %d and %d", i-1, i)
		_, _, _, _, status = q.GetPortalPoints(path[i], path[i-1])
		assert.True(t, status.Succeeded(), "no portal between %d and %d", i, i-1)
	}
}

func TestGenerateErrors(t *testing.T) {
	s := Default()
	s.CellSize = 0
	_, err := Generate(plane(0, 0, 10, 10), s, nil)
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = Generate(recast.TriangleList{}, Default(), nil)
	assert.Error(t, err)

	// Too small to stand on once eroded.
	_, err = Generate(plane(0, 0, 0.5, 0.5), Default(), nil)
	assert.ErrorIs(t, err, ErrEmptyMesh)

	_, err = GenerateTiled(plane(0, 0, 10, 10), Default(), nil)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func tiledPlane(t *testing.T) *NavMesh {
	t.Helper()
	s := Default()
	s.TileSize = 20
	m, err := Generate(plane(0, 0, 12, 5.5), s, zaptest.NewLogger(t))
	require.NoError(t, err)
	return m
}

func TestGenerateTiled(t *testing.T) {
	m := tiledPlane(t)
	require.Len(t, m.Tiles, 2)
	assert.InDelta(t, 6, m.Params().TileWidth, 1e-5)
	assert.NotNil(t, m.TileAt(0, 0, 0))
	assert.NotNil(t, m.TileAt(1, 0, 0))
	assert.Nil(t, m.TileAt(0, 1, 0))
	for x := int32(0); x < 2; x++ {
		assert.Len(t, m.TilesAt(x, 0, 4), 1, "tiles at (%d, 0)", x)
	}

	q, err := m.NewQuery(512)
	require.NoError(t, err)
	start, end := common.Vec3{1, 0, 3}, common.Vec3{11, 0, 3}
	startRef, endRef := nearest(t, q, start), nearest(t, q, end)
	ids := m.IdManager()
	assert.NotEqual(t, ids.DecodeTile(startRef), ids.DecodeTile(endRef))

	path, status := q.FindPath(startRef, endRef, start, end, detour.NewStandardQueryFilter(), 64)
	require.True(t, status.Succeeded())
	assert.False(t, status.Detail(detour.PartialResult))
	assert.Equal(t, endRef, path[len(path)-1])

	straight, status := q.FindStraightPath(start, end, path, 16, 0)
	require.True(t, status.Succeeded())
	assert.Len(t, straight, 2)
}

func TestSaveLoad(t *testing.T) {
	m := tiledPlane(t)
	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	loaded, err := Load(&buf, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, m.BuildID, loaded.BuildID)
	assert.Equal(t, m.Params(), loaded.Params())

	q, err := loaded.NewQuery(512)
	require.NoError(t, err)
	orig, err := m.NewQuery(512)
	require.NoError(t, err)
	pos := common.Vec3{8, 0, 3}
	assert.Equal(t, nearest(t, orig, pos), nearest(t, q, pos))
}

func TestSaveLoadFile(t *testing.T) {
	m, err := Generate(plane(0, 0, 10, 10), Default(), nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "level.navmesh")
	require.NoError(t, m.SaveFile(path))

	loaded, err := LoadFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, m.BuildID, loaded.BuildID)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}
