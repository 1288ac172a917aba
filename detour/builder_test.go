package detour

import (
	"testing"

	"github.com/Robmaister/SharpNav-sub000/common"
	"github.com/Robmaister/SharpNav-sub000/recast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCreateNavMeshDataStrip(t *testing.T) {
	data := buildData(t, createParams(stripMesh(3, 0, false, false), 0))
	h := data.Header

	assert.Equal(t, int32(NavMeshMagic), h.Magic)
	assert.Equal(t, int32(3), h.PolyCount)
	assert.Equal(t, int32(8), h.VertCount)
	assert.Equal(t, int32(12), h.MaxLinkCount)
	assert.Equal(t, int32(6), h.DetailTriCount)
	assert.Zero(t, h.DetailVertCount)
	assert.Equal(t, int32(3), h.OffMeshBase)
	assert.InDelta(t, 1/testCellSize, h.BvQuantFactor, 1e-6)
	require.Len(t, data.Verts, 8*3)
	// Vertex 3 is the far corner of the first quad.
	assert.Equal(t, []float32{testQuadSize, 0, testQuadSize}, data.Verts[9:12])

	p0 := data.Polys[0]
	assert.Equal(t, uint8(4), p0.VertCount)
	assert.Equal(t, uint32(NullLink), p0.FirstLink)
	assert.Equal(t, PolyFlagWalk, p0.Flags)
	assert.Equal(t, uint8(recast.AreaWalkable), p0.Area())
	assert.Equal(t, PolyTypeGround, p0.Type())
	assert.Equal(t, [MaxVertsPerPolygon]uint16{0, 0, 2, 0, 0, 0}, p0.Neis)
	assert.Equal(t, [MaxVertsPerPolygon]uint16{1, 0, 3, 0, 0, 0}, data.Polys[1].Neis)

	// Complete binary tree over the polygons.
	assert.Len(t, data.BVTree, 2*3-1)
	assert.Equal(t, int32(5), h.BvNodeCount)
	assert.Equal(t, -int32(5), data.BVTree[0].I)
	leaves := 0
	for _, n := range data.BVTree {
		if n.I >= 0 {
			leaves++
		}
	}
	assert.Equal(t, 3, leaves)
}

func TestCreateNavMeshDataPortals(t *testing.T) {
	data := buildData(t, createParams(stripMesh(2, 0, true, true), 0))
	assert.Equal(t, uint16(ExtLink)|uint16(SideMinusX), data.Polys[0].Neis[0])
	assert.Equal(t, uint16(ExtLink)|uint16(SidePlusX), data.Polys[1].Neis[2])
	// Two portals reserve two extra links each.
	assert.Equal(t, int32(8+2*2), data.Header.MaxLinkCount)
}

func TestCreateNavMeshDataInvalid(t *testing.T) {
	_, err := CreateNavMeshData(&NavMeshCreateParams{})
	require.ErrorIs(t, err, ErrInvalidBuildParams)

	pm := stripMesh(1, 0, false, false)
	pm.NumVertsPerPoly = MaxVertsPerPolygon + 1
	_, err = CreateNavMeshData(createParams(pm, 0))
	require.ErrorIs(t, err, ErrInvalidBuildParams)

	p := createParams(stripMesh(2, 0, false, false), 0)
	p.DetailMesh = &recast.PolyMeshDetail{Meshes: make([]recast.MeshData, 1)}
	_, err = CreateNavMeshData(p)
	require.ErrorIs(t, err, ErrInvalidBuildParams)
}

func TestCreateNavMeshDataOffMesh(t *testing.T) {
	p := createParams(stripMesh(2, 0, false, false), 0)
	p.OffMeshConnections = []OffMeshConnectionSpec{
		{Start: common.Vec3{2, 0, 2}, End: common.Vec3{6, 0, 2}, Radius: 0.5, Bidirectional: true, Area: 1, Flags: PolyFlagWalk, UserId: 42},
		// Starts outside the tile, so it is not stored.
		{Start: common.Vec3{-5, 0, 2}, End: common.Vec3{2, 0, 2}, Radius: 0.5},
	}
	data := buildData(t, p)

	require.Len(t, data.OffMeshCons, 1)
	assert.Equal(t, int32(3), data.Header.PolyCount)
	assert.Equal(t, int32(1), data.Header.OffMeshConCount)
	con := data.OffMeshCons[0]
	assert.Equal(t, uint16(2), con.Poly)
	assert.Equal(t, uint8(SideInternal), con.Side)
	assert.Equal(t, uint8(OffMeshConBidir), con.Flags)
	assert.Equal(t, uint32(42), con.UserId)
	assert.Equal(t, [6]float32{2, 0, 2, 6, 0, 2}, con.Pos)

	poly := data.Polys[2]
	assert.Equal(t, PolyTypeOffMeshConnection, poly.Type())
	assert.Equal(t, uint8(2), poly.VertCount)
	assert.Equal(t, uint8(1), poly.Area())
	assert.Equal(t, []float32{6, 0, 2}, data.Verts[int(poly.Verts[1])*3:int(poly.Verts[1])*3+3])
}

func planeTris(x0, z0, x1, z1 float32) recast.TriangleList {
	a := common.Vec3{x0, 0, z0}
	b := common.Vec3{x0, 0, z1}
	c := common.Vec3{x1, 0, z1}
	d := common.Vec3{x1, 0, z0}
	return recast.TriangleList{{A: a, B: b, C: c}, {A: a, B: c, C: d}}
}

func TestCreateNavMeshDataFromPipeline(t *testing.T) {
	ctx := recast.NewContext(zaptest.NewLogger(t))
	tris := planeTris(0, 0, 10, 10)
	hf, err := recast.NewHeightfield(recast.BoundsOf(tris), 0.5, 0.5)
	require.NoError(t, err)
	require.NoError(t, hf.RasterizeTriangles(ctx, tris, recast.MarkWalkableTriangles(tris, 45), 1))
	chf := recast.NewCompactHeightfield(ctx, hf, 4, 1)
	chf.Erode(ctx, 1)
	chf.BuildDistanceField(ctx)
	require.NoError(t, chf.BuildRegions(ctx, 0, 8, 20))
	cset, err := recast.NewContourSet(ctx, chf, 1.3, 12, recast.ContourTessWallEdges)
	require.NoError(t, err)
	mesh, err := recast.NewPolyMesh(ctx, cset, 6)
	require.NoError(t, err)
	dmesh, err := recast.NewPolyMeshDetail(ctx, mesh, chf, 1.5, 0.5)
	require.NoError(t, err)

	p := createParams(mesh, 0)
	p.DetailMesh = dmesh
	data := buildData(t, p)
	assert.Equal(t, int32(len(mesh.Polys)), data.Header.PolyCount)
	assert.Len(t, data.DetailMeshes, len(mesh.Polys))
	assert.Len(t, data.DetailTris, len(dmesh.Tris)*4)
	assert.Len(t, data.BVTree, 2*len(mesh.Polys)-1)

	nav, err := NewSingleTileNavMesh(data, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	q, err := NewNavMeshQuery(nav, 512)
	require.NoError(t, err)

	ref := polyAt(t, q, common.Vec3{5, 0, 5})
	h, status := q.GetPolyHeight(ref, common.Vec3{5, 0, 5})
	require.True(t, status.Succeeded())
	assert.InDelta(t, 0, h, 0.5)

	start := polyAt(t, q, common.Vec3{2, 0, 2})
	end := polyAt(t, q, common.Vec3{8, 0, 8})
	path, status := q.FindPath(start, end, common.Vec3{2, 0, 2}, common.Vec3{8, 0, 8}, NewStandardQueryFilter(), 64)
	require.True(t, status.Succeeded())
	assert.False(t, status.Detail(PartialResult))
	assert.Equal(t, start, path[0])
	assert.Equal(t, end, path[len(path)-1])
}
