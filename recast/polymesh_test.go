package recast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var squareVerts = []int{
	0, 0, 0,
	0, 0, 10,
	10, 0, 10,
	10, 0, 0,
	5, 0, 5,
}

func nullPolys(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = NullId
	}
	return p
}

func TestPolyMergeValue(t *testing.T) {
	a := []int{0, 1, 2, NullId}
	b := []int{0, 2, 3, NullId}

	v, ea, eb := polyMergeValue(a, b, squareVerts, 4)
	assert.Equal(t, 200, v)
	assert.Equal(t, 2, ea)
	assert.Equal(t, 0, eb)

	// The merged polygon would not fit in three slots.
	v, _, _ = polyMergeValue(a[:3], b[:3], squareVerts, 3)
	assert.Equal(t, -1, v)

	// No shared edge.
	v, _, _ = polyMergeValue([]int{0, 1, 4, NullId}, []int{2, 3, 4, NullId}, squareVerts, 4)
	assert.Equal(t, -1, v)

	tmp := make([]int, 4)
	mergePolyVerts(a, b, ea, eb, tmp, 4)
	assert.Equal(t, []int{0, 1, 2, 3}, a)
}

func TestBuildMeshAdjacency(t *testing.T) {
	const nvp = 3
	polys := nullPolys(2 * nvp * 2)
	copy(polys[0:], []int{0, 1, 2})
	copy(polys[nvp*2:], []int{0, 2, 3})

	buildMeshAdjacency(polys, 2, 4, nvp)

	assert.Equal(t, []int{NullId, NullId, 1}, polys[nvp:nvp*2])
	assert.Equal(t, []int{0, NullId, NullId}, polys[nvp*3:])
}

func fanBuilder(nvp int) *meshBuilder {
	b := &meshBuilder{
		nvp:      nvp,
		verts:    append([]int(nil), squareVerts...),
		polys:    nullPolys(4 * nvp * 2),
		regs:     make([]RegionId, 4),
		areas:    make([]Area, 4),
		maxPolys: 4,
	}
	fan := [][]int{{0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {3, 0, 4}}
	for i, f := range fan {
		copy(b.poly(i), f)
		b.regs[i] = 1
		b.areas[i] = AreaWalkable
	}
	b.npolys = 4
	return b
}

func TestRemoveVertexRetriangulatesHole(t *testing.T) {
	b := fanBuilder(4)
	require.True(t, b.canRemoveVertex(4))
	require.NoError(t, b.removeVertex(4))

	assert.Equal(t, 4, b.nverts())
	require.Equal(t, 1, b.npolys)
	p := b.poly(0)
	assert.Equal(t, 4, countPolyVerts(p, 4))
	assert.ElementsMatch(t, []int{0, 1, 2, 3}, p[:4])
	assert.Equal(t, RegionId(1), b.regs[0])
	assert.Equal(t, AreaWalkable, b.areas[0])
}

func TestRemoveVertexTriangles(t *testing.T) {
	b := fanBuilder(3)
	require.NoError(t, b.removeVertex(4))
	assert.Equal(t, 2, b.npolys)
	for i := 0; i < b.npolys; i++ {
		assert.Equal(t, 3, countPolyVerts(b.poly(i), 3))
	}
}

func TestCanRemoveVertexTip(t *testing.T) {
	b := &meshBuilder{
		nvp:      3,
		verts:    append([]int(nil), squareVerts...),
		polys:    nullPolys(3 * 2),
		regs:     make([]RegionId, 1),
		areas:    make([]Area, 1),
		maxPolys: 1,
		npolys:   1,
	}
	copy(b.poly(0), []int{0, 1, 2})
	// Removing the tip of a lone triangle leaves a single edge.
	assert.False(t, b.canRemoveVertex(0))
}

func TestMeshBuilderAddVertex(t *testing.T) {
	b := &meshBuilder{
		firstVert: nullPolys(vertexBucketCount),
		nextVert:  make([]int, 8),
	}
	i := b.addVertex(3, 10, 4)
	assert.Equal(t, 0, i)
	// Within two voxels vertically is the same vertex.
	assert.Equal(t, i, b.addVertex(3, 12, 4))
	assert.Equal(t, 1, b.addVertex(3, 13, 4))
	assert.Equal(t, 2, b.addVertex(4, 10, 4))
	assert.Equal(t, 3, b.nverts())
}

func TestNewPolyMeshRejectsSmallPolygons(t *testing.T) {
	_, err := NewPolyMesh(nil, &ContourSet{}, 2)
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestHeightPatch(t *testing.T) {
	_, err := NewHeightPatch(-1, 0, 2, 2)
	assert.ErrorIs(t, err, ErrInvalidHeightPatch)

	hp, err := NewHeightPatch(2, 3, 4, 5)
	require.NoError(t, err)
	assert.True(t, hp.Contains(2, 3))
	assert.True(t, hp.Contains(5, 7))
	assert.False(t, hp.Contains(6, 3))
	assert.False(t, hp.Contains(2, 8))

	_, ok := hp.Height(3, 4)
	assert.False(t, ok)
	hp.SetHeight(3, 4, 17)
	h, ok := hp.Height(3, 4)
	assert.True(t, ok)
	assert.Equal(t, 17, h)

	require.NoError(t, hp.Resize(0, 0, 2, 2))
	_, ok = hp.Height(1, 1)
	assert.False(t, ok)
	assert.ErrorIs(t, hp.Resize(0, 0, -1, 2), ErrInvalidHeightPatch)
}

func TestDetailEdgeFlags(t *testing.T) {
	poly := []float32{0, 0, 0, 0, 0, 1, 1, 0, 1, 1, 0, 0}
	a := []float32{0, 0, 0}
	b := []float32{0, 0, 1}
	c := []float32{0.5, 0, 0.5}
	assert.Equal(t, DetailEdgeBoundary, edgeFlags(a, b, poly))
	assert.Equal(t, 0, edgeFlags(b, c, poly))
	assert.Equal(t, DetailEdgeBoundary, triFlags(a, b, c, poly))
	assert.Equal(t, DetailEdgeBoundary<<2, triFlags(c, a, b, poly))
}

func TestJitterRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		assert.True(t, jitterX(i) >= -1 && jitterX(i) <= 1)
		assert.True(t, jitterY(i) >= -1 && jitterY(i) <= 1)
	}
}
