package detour

import (
	"math/rand"
	"testing"

	"github.com/Robmaister/SharpNav-sub000/common"
	"github.com/Robmaister/SharpNav-sub000/recast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stripQuery is a query over a strip of three quads, 12 units along x.
func stripQuery(t *testing.T) (*NavMeshQuery, [3]PolyRef) {
	t.Helper()
	nav, q := singleTileQuery(t, stripMesh(3, 0, false, false))
	base := nav.PolyRefBase(nav.Tile(0))
	return q, [3]PolyRef{base | 0, base | 1, base | 2}
}

func TestNewNavMeshQueryInvalid(t *testing.T) {
	nav, _ := singleTileQuery(t, stripMesh(1, 0, false, false))
	_, err := NewNavMeshQuery(nav, 0)
	require.Error(t, err)
	_, err = NewNavMeshQuery(nav, 1<<16)
	require.Error(t, err)
}

func TestFindNearestPoly(t *testing.T) {
	q, refs := stripQuery(t)
	filter := NewStandardQueryFilter()

	np, status := q.FindNearestPoly(common.Vec3{6, 0.3, 2}, common.Vec3{1, 1, 1}, filter)
	require.True(t, status.Succeeded())
	assert.Equal(t, refs[1], np.Ref)
	assert.True(t, np.OverPoly)
	assert.InDelta(t, 0, np.Point[1], 1e-4)

	// Off the side of the strip the nearest point is on the edge.
	np, status = q.FindNearestPoly(common.Vec3{2, 0, -0.5}, common.Vec3{1, 1, 1}, filter)
	require.True(t, status.Succeeded())
	assert.Equal(t, refs[0], np.Ref)
	assert.False(t, np.OverPoly)
	assert.InDelta(t, 0, np.Point[2], 1e-4)

	np, status = q.FindNearestPoly(common.Vec3{50, 0, 50}, common.Vec3{1, 1, 1}, filter)
	require.True(t, status.Succeeded())
	assert.Zero(t, np.Ref)

	_, status = q.FindNearestPoly(common.Vec3{2, 0, 2}, common.Vec3{1, 1, 1}, nil)
	assert.True(t, status.Detail(InvalidParam))
}

func TestQueryPolygons(t *testing.T) {
	q, refs := stripQuery(t)
	filter := NewStandardQueryFilter()

	polys, status := q.QueryPolygons(common.Vec3{6, 0, 2}, common.Vec3{10, 1, 10}, filter, 8)
	require.True(t, status.Succeeded())
	assert.ElementsMatch(t, refs[:], polys)

	polys, status = q.QueryPolygons(common.Vec3{6, 0, 2}, common.Vec3{10, 1, 10}, filter, 2)
	require.True(t, status.Succeeded())
	assert.True(t, status.Detail(BufferTooSmall))
	assert.Len(t, polys, 2)

	polys, status = q.QueryPolygons(common.Vec3{10, 0, 2}, common.Vec3{0.5, 1, 0.5}, filter, 8)
	require.True(t, status.Succeeded())
	assert.Equal(t, []PolyRef{refs[2]}, polys)

	filter.SetIncludeFlags(0x10)
	polys, _ = q.QueryPolygons(common.Vec3{6, 0, 2}, common.Vec3{10, 1, 10}, filter, 8)
	assert.Empty(t, polys)
}

func TestPolyGeometryQueries(t *testing.T) {
	q, refs := stripQuery(t)

	h, status := q.GetPolyHeight(refs[0], common.Vec3{2, 5, 2})
	require.True(t, status.Succeeded())
	assert.InDelta(t, 0, h, 1e-4)
	_, status = q.GetPolyHeight(refs[0], common.Vec3{6, 0, 2})
	assert.True(t, status.Failed())

	inside := common.Vec3{1, 0, 1}
	p, status := q.ClosestPointOnPolyBoundary(refs[0], inside)
	require.True(t, status.Succeeded())
	assert.Equal(t, inside, p)
	p, _ = q.ClosestPointOnPolyBoundary(refs[0], common.Vec3{-1, 0, 2})
	assert.InDelta(t, 0, p[0], 1e-4)
	assert.InDelta(t, 2, p[2], 1e-4)

	p, over, status := q.ClosestPointOnPoly(refs[1], common.Vec3{6, 3, 2})
	require.True(t, status.Succeeded())
	assert.True(t, over)
	assert.InDelta(t, 0, p[1], 1e-4)

	left, right, fromType, toType, status := q.GetPortalPoints(refs[0], refs[1])
	require.True(t, status.Succeeded())
	assert.Equal(t, PolyTypeGround, fromType)
	assert.Equal(t, PolyTypeGround, toType)
	assert.InDelta(t, testQuadSize, left[0], 1e-4)
	assert.InDelta(t, testQuadSize, right[0], 1e-4)
	assert.ElementsMatch(t, []float32{0, testQuadSize}, []float32{left[2], right[2]})

	mid, status := q.GetEdgeMidPoint(refs[0], refs[1])
	require.True(t, status.Succeeded())
	assert.InDelta(t, testQuadSize, mid[0], 1e-4)
	assert.InDelta(t, testQuadSize/2, mid[2], 1e-4)

	_, _, _, _, status = q.GetPortalPoints(refs[0], refs[2])
	assert.True(t, status.Failed())
}

func TestFindPath(t *testing.T) {
	q, refs := stripQuery(t)
	filter := NewStandardQueryFilter()
	start, end := common.Vec3{2, 0, 2}, common.Vec3{10, 0, 2}

	path, status := q.FindPath(refs[0], refs[2], start, end, filter, 16)
	require.True(t, status.Succeeded())
	assert.False(t, status.Detail(PartialResult))
	assert.Equal(t, refs[:], path)
	assert.True(t, q.IsInClosedList(refs[0]))

	path, status = q.FindPath(refs[1], refs[1], start, start, filter, 16)
	require.True(t, status.Succeeded())
	assert.Equal(t, []PolyRef{refs[1]}, path)

	path, status = q.FindPath(refs[0], refs[2], start, end, filter, 2)
	require.True(t, status.Succeeded())
	assert.True(t, status.Detail(BufferTooSmall))
	assert.Equal(t, []PolyRef{refs[0], refs[1]}, path)

	_, status = q.FindPath(0, refs[2], start, end, filter, 16)
	assert.True(t, status.Detail(InvalidParam))
}

func TestFindPathUnreachable(t *testing.T) {
	pm := stripMesh(3, 0, false, false)
	cut(pm, 1)
	nav, q := singleTileQuery(t, pm)
	base := nav.PolyRefBase(nav.Tile(0))

	path, status := q.FindPath(base|0, base|2, common.Vec3{2, 0, 2}, common.Vec3{10, 0, 2}, NewStandardQueryFilter(), 16)
	require.True(t, status.Succeeded())
	assert.True(t, status.Detail(PartialResult))
	// The best guess is the polygon closest to the goal.
	assert.Equal(t, []PolyRef{base | 0, base | 1}, path)
}

func TestQueryFilterValidity(t *testing.T) {
	q, refs := stripQuery(t)
	filter := NewStandardQueryFilter()
	filter.SetAreaCost(int(q.AttachedNavMesh().Tile(0).Polys[1].Area()), 10)

	path, status := q.FindPath(refs[0], refs[2], common.Vec3{2, 0, 2}, common.Vec3{10, 0, 2}, filter, 16)
	require.True(t, status.Succeeded())
	assert.Equal(t, refs[:], path)

	assert.True(t, q.IsValidPolyRef(refs[1], filter))
	filter.SetExcludeFlags(PolyFlagWalk)
	assert.False(t, q.IsValidPolyRef(refs[1], filter))
	assert.False(t, q.IsValidPolyRef(0, NewStandardQueryFilter()))
}

func TestSlicedFindPath(t *testing.T) {
	q, refs := stripQuery(t)
	filter := NewStandardQueryFilter()
	start, end := common.Vec3{2, 0, 2}, common.Vec3{10, 0, 2}

	want, status := q.FindPath(refs[0], refs[2], start, end, filter, 16)
	require.True(t, status.Succeeded())

	status = q.InitSlicedFindPath(refs[0], refs[2], start, end, filter)
	require.True(t, status.InProgress())
	iters := 0
	for status.InProgress() {
		var n int
		n, status = q.UpdateSlicedFindPath(1)
		iters += n
		require.Less(t, iters, 100)
	}
	require.True(t, status.Succeeded())
	got, status := q.FinalizeSlicedFindPath(16)
	require.True(t, status.Succeeded())
	assert.Equal(t, want, got)

	_, status = q.UpdateSlicedFindPath(10)
	assert.False(t, status.InProgress(), "finalize resets the search")

	status = q.InitSlicedFindPath(refs[0], refs[0], start, start, filter)
	require.True(t, status.Succeeded())
	got, status = q.FinalizeSlicedFindPath(16)
	require.True(t, status.Succeeded())
	assert.Equal(t, []PolyRef{refs[0]}, got)
}

func TestSlicedFindPathPartial(t *testing.T) {
	q, refs := stripQuery(t)
	filter := NewStandardQueryFilter()
	start, end := common.Vec3{2, 0, 2}, common.Vec3{10, 0, 2}

	status := q.InitSlicedFindPath(refs[0], refs[2], start, end, filter)
	require.True(t, status.InProgress())
	_, status = q.UpdateSlicedFindPath(1)
	require.True(t, status.InProgress())

	// The corridor being followed ends at refs[1].
	got, status := q.FinalizeSlicedFindPathPartial([]PolyRef{refs[0], refs[1]}, 16)
	require.True(t, status.Succeeded())
	require.NotEmpty(t, got)
	assert.Equal(t, refs[0], got[0])
}

func TestFindStraightPath(t *testing.T) {
	q, refs := stripQuery(t)
	start, end := common.Vec3{2, 0, 2}, common.Vec3{10, 0, 2}

	straight, status := q.FindStraightPath(start, end, refs[:], 16, 0)
	require.True(t, status.Succeeded())
	require.Len(t, straight, 2)
	assert.Equal(t, StraightPathStart, straight[0].Flags)
	assert.Equal(t, refs[0], straight[0].Ref)
	assert.Equal(t, StraightPathEnd, straight[1].Flags)
	assert.Zero(t, straight[1].Ref)
	assert.InDelta(t, 10, straight[1].Pos[0], 1e-4)

	straight, status = q.FindStraightPath(start, end, refs[:], 16, StraightPathAllCrossings)
	require.True(t, status.Succeeded())
	require.Len(t, straight, 4)
	assert.InDelta(t, 4, straight[1].Pos[0], 1e-4)
	assert.InDelta(t, 8, straight[2].Pos[0], 1e-4)
	assert.Equal(t, refs[1], straight[1].Ref)

	straight, status = q.FindStraightPath(start, end, refs[:], 2, StraightPathAllCrossings)
	require.True(t, status.Succeeded())
	assert.True(t, status.Detail(BufferTooSmall))
	assert.Len(t, straight, 2)

	_, status = q.FindStraightPath(start, end, nil, 16, 0)
	assert.True(t, status.Detail(InvalidParam))
}

func TestStraightPathAroundCorner(t *testing.T) {
	// An L of three quads: two along x then one up +z over the second.
	pm := stripMesh(2, 0, false, false)
	pm.Verts = append(pm.Verts,
		recast.PolyVertex{X: testQuadCells, Z: 2 * testQuadCells},
		recast.PolyVertex{X: 2 * testQuadCells, Z: 2 * testQuadCells})
	pm.Polys = append(pm.Polys, recast.Polygon{
		Vertices:      []int{3, 6, 7, 5, recast.NullId, recast.NullId},
		NeighborEdges: []int{recast.NullId, recast.NullId, recast.NullId, 1, recast.NullId, recast.NullId},
		Area:          recast.AreaWalkable,
	})
	pm.Polys[1].NeighborEdges[1] = 2
	pm.Bounds.Max[2] = 2 * testQuadSize

	nav, q := singleTileQuery(t, pm)
	base := nav.PolyRefBase(nav.Tile(0))
	path := []PolyRef{base | 0, base | 1, base | 2}
	start, end := common.Vec3{1, 0, 2}, common.Vec3{6, 0, 7}

	straight, status := q.FindStraightPath(start, end, path, 16, 0)
	require.True(t, status.Succeeded())
	require.Len(t, straight, 3)
	// The path bends at the inner corner.
	assert.InDelta(t, testQuadSize, straight[1].Pos[0], 1e-4)
	assert.InDelta(t, testQuadSize, straight[1].Pos[2], 1e-4)

	var length float32
	for i := 1; i < len(straight); i++ {
		length += straight[i].Pos.Sub(straight[i-1].Pos).Len()
	}
	// Never longer than walking through the portal midpoints.
	var mids float32
	prev := start
	for i := 0; i+1 < len(path); i++ {
		mid, _ := q.GetEdgeMidPoint(path[i], path[i+1])
		mids += mid.Sub(prev).Len()
		prev = mid
	}
	mids += end.Sub(prev).Len()
	assert.LessOrEqual(t, length, mids+1e-4)
}

func TestMoveAlongSurface(t *testing.T) {
	q, refs := stripQuery(t)
	filter := NewStandardQueryFilter()

	pos, visited, status := q.MoveAlongSurface(refs[0], common.Vec3{2, 0, 2}, common.Vec3{10, 0, 3}, filter, 16)
	require.True(t, status.Succeeded())
	assert.InDelta(t, 10, pos[0], 1e-4)
	assert.InDelta(t, 3, pos[2], 1e-4)
	assert.Equal(t, refs[:], visited)

	// Blocked by the end wall.
	pos, visited, status = q.MoveAlongSurface(refs[0], common.Vec3{2, 0, 2}, common.Vec3{20, 0, 2}, filter, 16)
	require.True(t, status.Succeeded())
	assert.InDelta(t, 12, pos[0], 1e-4)
	assert.InDelta(t, 2, pos[2], 1e-4)
	assert.Equal(t, refs[2], visited[len(visited)-1])

	// Slides along the side wall.
	pos, _, status = q.MoveAlongSurface(refs[0], common.Vec3{2, 0, 2}, common.Vec3{3, 0, -2}, filter, 16)
	require.True(t, status.Succeeded())
	assert.InDelta(t, 3, pos[0], 1e-4)
	assert.InDelta(t, 0, pos[2], 1e-4)

	pos, visited, status = q.MoveAlongSurface(refs[0], common.Vec3{2, 0, 2}, common.Vec3{10, 0, 3}, filter, 2)
	require.True(t, status.Succeeded())
	assert.True(t, status.Detail(BufferTooSmall))
	assert.Len(t, visited, 2)
	assert.InDelta(t, 10, pos[0], 1e-4)
}

func TestFindRandomPoint(t *testing.T) {
	q, refs := stripQuery(t)
	filter := NewStandardQueryFilter()
	rnd := rand.New(rand.NewSource(1))

	seen := map[PolyRef]bool{}
	for i := 0; i < 64; i++ {
		ref, pt, status := q.FindRandomPoint(filter, rnd.Float32)
		require.True(t, status.Succeeded())
		require.Contains(t, refs[:], ref)
		seen[ref] = true
		assert.True(t, pt[0] >= 0 && pt[0] <= 3*testQuadSize, "x %v", pt[0])
		assert.True(t, pt[2] >= 0 && pt[2] <= testQuadSize, "z %v", pt[2])
		assert.InDelta(t, 0, pt[1], 1e-4)
		// The point lies in its polygon.
		_, over, _ := q.ClosestPointOnPoly(ref, pt)
		assert.True(t, over)
	}
	assert.Len(t, seen, 3, "every polygon has the same area")

	filter.SetIncludeFlags(0x10)
	_, _, status := q.FindRandomPoint(filter, rnd.Float32)
	assert.True(t, status.Failed())
}

func TestFindRandomPointAroundCircle(t *testing.T) {
	q, refs := stripQuery(t)
	filter := NewStandardQueryFilter()
	rnd := rand.New(rand.NewSource(1))

	for i := 0; i < 32; i++ {
		ref, pt, status := q.FindRandomPointAroundCircle(refs[0], common.Vec3{2, 0, 2}, 3, filter, rnd.Float32)
		require.True(t, status.Succeeded())
		// The circle reaches into the second polygon only.
		assert.Contains(t, refs[:2], ref)
		assert.Less(t, pt[0], float32(2*testQuadSize))
	}
	_, _, status := q.FindRandomPointAroundCircle(0, common.Vec3{2, 0, 2}, 3, filter, rnd.Float32)
	assert.True(t, status.Detail(InvalidParam))
}

func TestFindPolysAroundCircle(t *testing.T) {
	q, refs := stripQuery(t)
	filter := NewStandardQueryFilter()

	res, status := q.FindPolysAroundCircle(refs[0], common.Vec3{2, 0, 2}, 3, filter, 8)
	require.True(t, status.Succeeded())
	require.Len(t, res, 2)
	assert.Equal(t, CircleResult{Ref: refs[0]}, res[0])
	assert.Equal(t, refs[1], res[1].Ref)
	assert.Equal(t, refs[0], res[1].Parent)
	assert.Positive(t, res[1].Cost)

	res, status = q.FindPolysAroundCircle(refs[0], common.Vec3{2, 0, 2}, 20, filter, 2)
	require.True(t, status.Succeeded())
	assert.True(t, status.Detail(BufferTooSmall))
	assert.Len(t, res, 2)
}
