package recast

import (
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stripTriangles lays n unit triangles along the x axis.
func stripTriangles(n int) TriangleList {
	var tris TriangleList
	for i := 0; i < n; i++ {
		x := float32(i)
		tris = append(tris, Triangle{
			A: mgl32.Vec3{x, 0, 0},
			B: mgl32.Vec3{x, 0, 1},
			C: mgl32.Vec3{x + 1, 0, 0},
		})
	}
	return tris
}

func TestChunkyTriMeshCoversAllTriangles(t *testing.T) {
	tris := stripTriangles(100)
	cm := NewChunkyTriMesh(tris, 8)

	require.Len(t, cm.Tris, 100)
	assert.LessOrEqual(t, cm.MaxTrisPerChunk, 8)
	assert.False(t, cm.Nodes[0].IsLeaf())

	seen := slices.Clone(cm.Tris)
	slices.Sort(seen)
	for i, v := range seen {
		assert.Equal(t, i, v)
	}

	all := cm.TrianglesOverlappingRect(mgl32.Vec2{-1, -1}, mgl32.Vec2{101, 2})
	assert.Len(t, all, 100)
}

func TestChunkyTriMeshRectQuery(t *testing.T) {
	tris := stripTriangles(100)
	cm := NewChunkyTriMesh(tris, 4)

	got := cm.TrianglesOverlappingRect(mgl32.Vec2{10.2, 0}, mgl32.Vec2{10.8, 1})
	// Triangle 10 spans [10, 11] and must be found.
	assert.Contains(t, got, 10)
	assert.Less(t, len(got), 100)
	for _, i := range got {
		b := tris[i].Bounds()
		// Chunks are coarse but never far away.
		assert.InDelta(t, 10.5, b.Center()[0], 10)
	}

	assert.Empty(t, cm.TrianglesOverlappingRect(mgl32.Vec2{200, 0}, mgl32.Vec2{210, 1}))
}

func TestChunkyTriMeshEmpty(t *testing.T) {
	cm := NewChunkyTriMesh(TriangleList{}, 8)
	assert.Empty(t, cm.Nodes)
	assert.Empty(t, cm.ChunksOverlappingRect(mgl32.Vec2{}, mgl32.Vec2{1, 1}))
}
