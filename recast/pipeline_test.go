package recast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type pipelineResult struct {
	chf   *CompactHeightfield
	cset  *ContourSet
	mesh  *PolyMesh
	dmesh *PolyMeshDetail
}

func runPipeline(t *testing.T, tris TriangleList) pipelineResult {
	t.Helper()
	ctx := NewContext(zaptest.NewLogger(t))

	hf, err := NewHeightfield(BoundsOf(tris), 0.5, 0.5)
	require.NoError(t, err)
	require.NoError(t, hf.RasterizeTriangles(ctx, tris, MarkWalkableTriangles(tris, 45), 1))
	hf.FilterLowHangingWalkableObstacles(ctx, 1)
	hf.FilterWalkableLowHeightSpans(ctx, 4)

	chf := NewCompactHeightfield(ctx, hf, 4, 1)
	chf.Erode(ctx, 1)
	chf.BuildDistanceField(ctx)
	require.NoError(t, chf.BuildRegions(ctx, 0, 8, 20))

	cset, err := NewContourSet(ctx, chf, 1.3, 12, ContourTessWallEdges)
	require.NoError(t, err)
	mesh, err := NewPolyMesh(ctx, cset, 6)
	require.NoError(t, err)
	dmesh, err := NewPolyMeshDetail(ctx, mesh, chf, 1.5, 0.5)
	require.NoError(t, err)
	return pipelineResult{chf, cset, mesh, dmesh}
}

func assertContiguousRegions(t *testing.T, chf *CompactHeightfield) {
	t.Helper()
	seen := map[int]bool{}
	for _, s := range chf.Spans {
		if s.Region.IsNull() || s.Region.Has(RegionBorder) {
			continue
		}
		seen[s.Region.Id()] = true
	}
	require.Len(t, seen, chf.MaxRegions)
	for id := 1; id <= chf.MaxRegions; id++ {
		assert.True(t, seen[id], "region %d missing", id)
	}
}

func polyEdge(p *Polygon, j int) (int, int) {
	n := p.VertexCount()
	return p.Vertices[j], p.Vertices[(j+1)%n]
}

func assertMeshAdjacency(t *testing.T, mesh *PolyMesh) {
	t.Helper()
	for i := range mesh.Polys {
		p := &mesh.Polys[i]
		for j := 0; j < p.VertexCount(); j++ {
			n := p.NeighborEdges[j]
			if n == NullId || n&NeighborEdgeFlag != 0 {
				continue
			}
			require.Less(t, n, len(mesh.Polys))
			a, b := polyEdge(p, j)
			q := &mesh.Polys[n]
			found := false
			for k := 0; k < q.VertexCount(); k++ {
				c, d := polyEdge(q, k)
				if q.NeighborEdges[k] == i && c == b && d == a {
					found = true
				}
			}
			assert.True(t, found, "poly %d edge %d links to %d without a reverse link", i, j, n)
		}
	}
}

func assertConvex(t *testing.T, mesh *PolyMesh) {
	t.Helper()
	for i := range mesh.Polys {
		p := &mesh.Polys[i]
		n := p.VertexCount()
		require.GreaterOrEqual(t, n, 3)
		sign := 0
		for j := 0; j < n; j++ {
			a := mesh.Verts[p.Vertices[j]]
			b := mesh.Verts[p.Vertices[(j+1)%n]]
			c := mesh.Verts[p.Vertices[(j+2)%n]]
			cross := (b.X-a.X)*(c.Z-a.Z) - (c.X-a.X)*(b.Z-a.Z)
			if cross == 0 {
				continue
			}
			if sign == 0 {
				sign = cross
			}
			assert.True(t, (cross > 0) == (sign > 0), "poly %d is not convex at %d", i, j)
		}
	}
}

func TestPipelineFlatPlane(t *testing.T) {
	r := runPipeline(t, quad(0, 0, 10, 10, 0))

	require.GreaterOrEqual(t, r.chf.MaxRegions, 1)
	assertContiguousRegions(t, r.chf)

	require.NotEmpty(t, r.cset.Contours)
	for i, c := range r.cset.Contours {
		assert.GreaterOrEqual(t, len(c.Vertices), 3)
		assert.Positive(t, c.Area2D(), "contour %d is wound as a hole", i)
		assert.False(t, c.RegionId.IsNull())
	}

	mesh := r.mesh
	require.NotEmpty(t, mesh.Polys)
	for _, v := range mesh.Verts {
		assert.True(t, v.X >= 0 && v.X <= r.cset.Width && v.Z >= 0 && v.Z <= r.cset.Length, "vertex %v", v)
	}
	for _, p := range mesh.Polys {
		assert.Len(t, p.Vertices, 6)
		assert.Len(t, p.NeighborEdges, 6)
		assert.Equal(t, AreaWalkable, p.Area)
		for _, vi := range p.Vertices[:p.VertexCount()] {
			assert.Less(t, vi, len(mesh.Verts))
		}
	}
	assertMeshAdjacency(t, mesh)
	assertConvex(t, mesh)

	d := r.dmesh
	require.Len(t, d.Meshes, len(mesh.Polys))
	for i, m := range d.Meshes {
		p := &mesh.Polys[i]
		require.GreaterOrEqual(t, m.VertexCount, p.VertexCount())
		require.Positive(t, m.TriangleCount)
		// Submeshes start with the polygon's own vertices.
		first := mesh.Verts[p.Vertices[0]]
		v := d.Verts[m.VertexIndex]
		assert.InDelta(t, float32(first.X)*mesh.CellSize+mesh.Bounds.Min[0], v[0], 1e-4)
		assert.InDelta(t, float32(first.Z)*mesh.CellSize+mesh.Bounds.Min[2], v[2], 1e-4)
		for _, tri := range d.Tris[m.TriangleIndex : m.TriangleIndex+m.TriangleCount] {
			for _, idx := range tri.Indices {
				assert.Less(t, idx, m.VertexCount)
			}
		}
	}
	// The plane is flat so every detail vertex sits on the same height.
	for _, v := range d.Verts {
		assert.InDelta(t, d.Verts[0][1], v[1], 1e-4)
	}
}

func TestPipelineTwoSquares(t *testing.T) {
	tris := append(quad(0, 0, 4, 4, 0), quad(6, 0, 10, 4, 0)...)
	r := runPipeline(t, tris)

	require.GreaterOrEqual(t, r.chf.MaxRegions, 2)
	assertContiguousRegions(t, r.chf)

	mesh := r.mesh
	require.GreaterOrEqual(t, len(mesh.Polys), 2)
	assertMeshAdjacency(t, mesh)

	// Cell x of the gap between the squares in voxels.
	gap := int(5 / mesh.CellSize)
	side := func(p *Polygon) bool { return mesh.Verts[p.Vertices[0]].X < gap }
	left, right := map[RegionId]bool{}, map[RegionId]bool{}
	for i := range mesh.Polys {
		p := &mesh.Polys[i]
		for _, vi := range p.Vertices[:p.VertexCount()] {
			assert.Equal(t, side(p), mesh.Verts[vi].X < gap, "poly %d spans the gap", i)
		}
		for j := 0; j < p.VertexCount(); j++ {
			if n := p.NeighborEdges[j]; n != NullId && n&NeighborEdgeFlag == 0 {
				assert.Equal(t, side(p), side(&mesh.Polys[n]), "poly %d links across the gap", i)
			}
		}
		if side(p) {
			left[p.RegionId] = true
		} else {
			right[p.RegionId] = true
		}
	}
	require.NotEmpty(t, left)
	require.NotEmpty(t, right)
	for id := range left {
		assert.False(t, right[id], "region %d on both squares", id)
	}
}

func TestPipelineBorderPortals(t *testing.T) {
	ctx := NewContext(zaptest.NewLogger(t))
	tris := quad(0, 0, 10, 10, 0)
	hf, err := NewHeightfield(BoundsOf(tris), 0.5, 0.5)
	require.NoError(t, err)
	require.NoError(t, hf.RasterizeTriangles(ctx, tris, nil, 1))

	const borderSize = 3
	chf := NewCompactHeightfield(ctx, hf, 4, 1)
	require.NoError(t, chf.BuildRegions(ctx, borderSize, 8, 20))
	assertContiguousRegions(t, chf)

	cset, err := NewContourSet(ctx, chf, 1.3, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, chf.Width-2*borderSize, cset.Width)
	mesh, err := NewPolyMesh(ctx, cset, 6)
	require.NoError(t, err)

	portals := map[int]int{}
	for i := range mesh.Polys {
		p := &mesh.Polys[i]
		for j := 0; j < p.VertexCount(); j++ {
			if n := p.NeighborEdges[j]; n != NullId && n&NeighborEdgeFlag != 0 {
				portals[n&0xf]++
				assert.True(t, mesh.IsBoundaryEdge(i, j))
			}
		}
	}
	// The walkable area runs into the border on every side.
	for dir := 0; dir < 4; dir++ {
		assert.Positive(t, portals[dir], "no portal edge in direction %d", dir)
	}
}
