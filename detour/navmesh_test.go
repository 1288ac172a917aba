package detour

import (
	"testing"

	"github.com/Robmaister/SharpNav-sub000/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func tiledParams() NavMeshParams {
	return NavMeshParams{TileWidth: testQuadSize, TileHeight: testQuadSize, MaxTiles: 4, MaxPolys: 8}
}

func TestSingleTileInternalLinks(t *testing.T) {
	nav, _ := singleTileQuery(t, stripMesh(3, 0, false, false))
	tile := nav.Tile(0)
	base := nav.PolyRefBase(tile)
	r0, r1, r2 := base|0, base|1, base|2

	assert.True(t, linked(nav, r0, r1))
	assert.True(t, linked(nav, r1, r0))
	assert.True(t, linked(nav, r1, r2))
	assert.True(t, linked(nav, r2, r1))
	assert.False(t, linked(nav, r0, r2))

	for i := tile.Polys[1].FirstLink; i != NullLink; i = tile.Links[i].Next {
		assert.Equal(t, uint8(0xff), tile.Links[i].Side)
	}
	assert.True(t, nav.IsValidPolyRef(r2))
	assert.False(t, nav.IsValidPolyRef(base|3))
	assert.False(t, nav.IsValidPolyRef(0))
}

func TestNewTiledNavMeshInvalid(t *testing.T) {
	_, err := NewTiledNavMesh(NavMeshParams{MaxTiles: 1, MaxPolys: 1}, nil)
	require.Error(t, err)
	_, err = NewTiledNavMesh(NavMeshParams{TileWidth: 1, TileHeight: 1, MaxTiles: 1 << 12, MaxPolys: 1 << 12}, nil)
	require.Error(t, err)

	data := buildData(t, createParams(stripMesh(1, 0, false, false), 0))
	data.Header.Magic = 0
	_, err = NewSingleTileNavMesh(data, 0, nil)
	require.ErrorIs(t, err, ErrWrongMagic)
	data.Header.Magic = NavMeshMagic
	data.Header.Version = NavMeshVersion + 1
	_, err = NewSingleTileNavMesh(data, 0, nil)
	require.ErrorIs(t, err, ErrWrongVersion)
}

func TestAddRemoveTile(t *testing.T) {
	nav, err := NewTiledNavMesh(tiledParams(), zaptest.NewLogger(t))
	require.NoError(t, err)
	data := buildData(t, createParams(stripMesh(1, 0, false, false), 0))

	ref, status := nav.AddTile(data, 0, 0)
	require.True(t, status.Succeeded())
	require.NotZero(t, ref)
	assert.Equal(t, ref, nav.TileRefAt(0, 0, 0))
	tile := nav.TileByRef(ref)
	require.NotNil(t, tile)
	polyRef := nav.PolyRefBase(tile)
	assert.True(t, nav.IsValidPolyRef(polyRef))

	_, status = nav.AddTile(data, 0, 0)
	assert.True(t, status.Detail(AlreadyOccupied))

	removed, status := nav.RemoveTile(ref)
	require.True(t, status.Succeeded())
	assert.Same(t, data, removed)
	assert.False(t, nav.IsValidPolyRef(polyRef), "stale reference must not resolve")
	assert.Nil(t, nav.TileByRef(ref))
	assert.Nil(t, nav.TileAt(0, 0, 0))
	_, status = nav.RemoveTile(ref)
	assert.True(t, status.Failed())

	// Restoring with the old reference brings back the old salt.
	again, status := nav.AddTile(data, 0, ref)
	require.True(t, status.Succeeded())
	assert.Equal(t, ref, again)
	assert.True(t, nav.IsValidPolyRef(polyRef))

	_, status = nav.RemoveTile(again)
	require.True(t, status.Succeeded())
	fresh, status := nav.AddTile(data, TileFreeData, 0)
	require.True(t, status.Succeeded())
	assert.NotEqual(t, ref, fresh)
	assert.Equal(t, nav.IdManager().DecodeSalt(PolyRef(ref))+1, nav.IdManager().DecodeSalt(PolyRef(fresh)))

	removed, status = nav.RemoveTile(fresh)
	require.True(t, status.Succeeded())
	assert.Nil(t, removed)
}

func TestAddTileRejects(t *testing.T) {
	params := tiledParams()
	params.MaxPolys = 1
	nav, err := NewTiledNavMesh(params, nil)
	require.NoError(t, err)

	_, status := nav.AddTile(buildData(t, createParams(stripMesh(2, 0, false, false), 0)), 0, 0)
	assert.True(t, status.Detail(InvalidParam))

	data := buildData(t, createParams(stripMesh(1, 0, false, false), 0))
	data.Header.Version = 1
	_, status = nav.AddTile(data, 0, 0)
	assert.True(t, status.Detail(WrongVersion))
}

func twoTileMesh(t *testing.T) (*TiledNavMesh, TileRef, TileRef) {
	t.Helper()
	nav, err := NewTiledNavMesh(tiledParams(), zaptest.NewLogger(t))
	require.NoError(t, err)
	a, status := nav.AddTile(buildData(t, createParams(stripMesh(1, 0, false, true), 0)), 0, 0)
	require.True(t, status.Succeeded())
	b, status := nav.AddTile(buildData(t, createParams(stripMesh(1, testQuadSize, true, false), 1)), 0, 0)
	require.True(t, status.Succeeded())
	return nav, a, b
}

func TestTwoTileExternalLinks(t *testing.T) {
	nav, a, b := twoTileMesh(t)
	ra, rb := PolyRef(a), PolyRef(b)

	require.True(t, linked(nav, ra, rb))
	require.True(t, linked(nav, rb, ra))

	tile := nav.TileByRef(a)
	poly := &tile.Polys[0]
	for i := poly.FirstLink; i != NullLink; i = tile.Links[i].Next {
		l := tile.Links[i]
		assert.Equal(t, uint8(SidePlusX), l.Side)
		assert.Equal(t, uint8(2), l.Edge)
		assert.Equal(t, uint8(0), l.Bmin)
		assert.Equal(t, uint8(255), l.Bmax)
	}

	tx, ty := nav.CalcTileLoc(common.Vec3{testQuadSize + 1, 0, 1})
	assert.Equal(t, int32(1), tx)
	assert.Zero(t, ty)
	assert.Len(t, nav.TilesAt(1, 0, 4), 1)

	q, err := NewNavMeshQuery(nav, 64)
	require.NoError(t, err)
	path, status := q.FindPath(ra, rb, common.Vec3{1, 0, 2}, common.Vec3{7, 0, 2}, NewStandardQueryFilter(), 8)
	require.True(t, status.Succeeded())
	assert.Equal(t, []PolyRef{ra, rb}, path)

	_, status = nav.RemoveTile(b)
	require.True(t, status.Succeeded())
	assert.False(t, linked(nav, ra, rb))
	assert.Equal(t, uint32(NullLink), poly.FirstLink)
}

func TestOffMeshConnection(t *testing.T) {
	pm := stripMesh(3, 0, false, false)
	cut(pm, 1)
	p := createParams(pm, 0)
	p.OffMeshConnections = []OffMeshConnectionSpec{{
		Start: common.Vec3{6, 0, 2}, End: common.Vec3{10, 0, 2},
		Radius: 0.5, Bidirectional: true, Area: 1, Flags: PolyFlagWalk, UserId: 7,
	}}
	nav, err := NewSingleTileNavMesh(buildData(t, p), 0, zaptest.NewLogger(t))
	require.NoError(t, err)

	base := nav.PolyRefBase(nav.Tile(0))
	r1, r2, off := base|1, base|2, base|3
	assert.True(t, linked(nav, off, r1))
	assert.True(t, linked(nav, off, r2))
	assert.True(t, linked(nav, r1, off))
	assert.True(t, linked(nav, r2, off), "bidirectional connection lands back")
	assert.False(t, linked(nav, r1, r2))

	con := nav.OffMeshConnectionByRef(off)
	require.NotNil(t, con)
	assert.Equal(t, uint32(7), con.UserId)
	assert.Nil(t, nav.OffMeshConnectionByRef(r1))

	start, end, status := nav.OffMeshConnectionPolyEndPoints(r1, off)
	require.True(t, status.Succeeded())
	assert.InDelta(t, 6, start[0], 1e-4)
	assert.InDelta(t, 10, end[0], 1e-4)
	start, end, status = nav.OffMeshConnectionPolyEndPoints(r2, off)
	require.True(t, status.Succeeded())
	assert.InDelta(t, 10, start[0], 1e-4)
	assert.InDelta(t, 6, end[0], 1e-4)
	_, _, status = nav.OffMeshConnectionPolyEndPoints(r1, r2)
	assert.True(t, status.Failed())

	q, err := NewNavMeshQuery(nav, 64)
	require.NoError(t, err)
	filter := NewStandardQueryFilter()
	path, status := q.FindPath(base|0, r2, common.Vec3{2, 0, 2}, common.Vec3{10, 0, 2}, filter, 16)
	require.True(t, status.Succeeded())
	assert.False(t, status.Detail(PartialResult))
	assert.Equal(t, []PolyRef{base | 0, r1, off, r2}, path)

	straight, status := q.FindStraightPath(common.Vec3{2, 0, 2}, common.Vec3{10, 0, 2}, path, 16, 0)
	require.True(t, status.Succeeded())
	var offMesh int
	for _, pt := range straight {
		if pt.Flags&StraightPathOffMeshConnection != 0 {
			offMesh++
			assert.Equal(t, off, pt.Ref)
			assert.InDelta(t, 6, pt.Pos[0], 1e-4)
		}
	}
	assert.Equal(t, 1, offMesh)

	// Polygon flags gate the connection.
	require.True(t, nav.SetPolyFlags(off, 0x04).Succeeded())
	flags, _ := nav.PolyFlags(off)
	assert.Equal(t, uint16(0x04), flags)
	filter.SetExcludeFlags(0x04)
	_, status = q.FindPath(base|0, r2, common.Vec3{2, 0, 2}, common.Vec3{10, 0, 2}, filter, 16)
	assert.True(t, status.Detail(PartialResult))

	require.True(t, nav.SetPolyArea(r1, 3).Succeeded())
	area, _ := nav.PolyArea(r1)
	assert.Equal(t, uint8(3), area)
	assert.True(t, nav.SetPolyArea(0, 3).Failed())
}
