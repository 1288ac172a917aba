package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriangulateSquare(t *testing.T) {
	verts := []int{
		0, 0, 0, 0,
		0, 0, 10, 0,
		10, 0, 10, 0,
		10, 0, 0, 0,
	}
	indices := []int{0, 1, 2, 3}
	tris := make([]int, 6)

	n := Triangulate(4, verts, indices, tris)
	require.Equal(t, 2, n)
	seen := map[int]bool{}
	for _, v := range tris {
		seen[v] = true
	}
	assert.Len(t, seen, 4)
}

func TestTriangulateConcave(t *testing.T) {
	// L shape, clockwise in xz as contours are.
	verts := []int{
		0, 0, 0, 0,
		0, 0, 10, 0,
		5, 0, 10, 0,
		5, 0, 5, 0,
		10, 0, 5, 0,
		10, 0, 0, 0,
	}
	indices := []int{0, 1, 2, 3, 4, 5}
	tris := make([]int, 12)
	n := Triangulate(6, verts, indices, tris)
	assert.Equal(t, 4, n)
}

func TestCalcAreaOfPolygon2DWinding(t *testing.T) {
	outline := []int{0, 0, 0, 0, 0, 0, 4, 0, 4, 0, 4, 0, 4, 0, 0, 0}
	hole := []int{0, 0, 0, 0, 4, 0, 0, 0, 4, 0, 4, 0, 0, 0, 4, 0}
	assert.Equal(t, 16, CalcAreaOfPolygon2D(outline, 4))
	assert.Less(t, CalcAreaOfPolygon2D(hole, 4), 0)
}

func TestCircumCircle(t *testing.T) {
	c := make([]float32, 3)
	r, ok := CircumCircle([]float32{0, 0, 0}, []float32{2, 0, 0}, []float32{0, 0, 2}, c)
	require.True(t, ok)
	assert.InDelta(t, 1.0, c[0], 1e-5)
	assert.InDelta(t, 1.0, c[2], 1e-5)
	assert.InDelta(t, 1.41421, r, 1e-4)

	_, ok = CircumCircle([]float32{0, 0, 0}, []float32{1, 0, 0}, []float32{2, 0, 0}, c)
	assert.False(t, ok)
}

func TestDistToPolySign(t *testing.T) {
	square := []float32{0, 0, 0, 0, 0, 4, 4, 0, 4, 4, 0, 0}
	assert.Less(t, DistToPoly(4, square, []float32{2, 0, 2}), float32(0))
	assert.InDelta(t, 1.0, DistToPoly(4, square, []float32{5, 0, 2}), 1e-5)
	assert.True(t, PointInPoly(4, square, []float32{1, 0, 1}))
	assert.False(t, PointInPoly(4, square, []float32{-1, 0, 1}))
}

func TestDistPtTri(t *testing.T) {
	a := []float32{0, 1, 0}
	b := []float32{0, 1, 4}
	c := []float32{4, 1, 0}
	assert.InDelta(t, 2.0, DistPtTri([]float32{1, 3, 1}, a, b, c), 1e-5)
	assert.Greater(t, DistPtTri([]float32{5, 3, 5}, a, b, c), float32(1e30))
}

func TestDirOffsets(t *testing.T) {
	for dir := 0; dir < 4; dir++ {
		assert.Equal(t, dir, GetDirForOffset(GetDirOffsetX(dir), GetDirOffsetY(dir)))
	}
}

func TestNextPow2Ilog2(t *testing.T) {
	assert.Equal(t, uint32(16), NextPow2(9))
	assert.Equal(t, uint32(8), NextPow2(8))
	assert.Equal(t, uint32(3), Ilog2(8))
	assert.Equal(t, uint32(4), Ilog2(31))
}

func TestVisfinite(t *testing.T) {
	assert.True(t, Visfinite([]float32{1, 2, 3}))
	inf := float32(1)
	for i := 0; i < 200; i++ {
		inf *= 10
	}
	assert.False(t, Visfinite([]float32{1, inf, 3}))
}

func TestStack(t *testing.T) {
	s := NewStack[int](4)
	s.Push(1, 2, 3)
	assert.Equal(t, 3, s.Pop())
	assert.Equal(t, 2, s.Len())
	s.Resize(4, 9)
	assert.Equal(t, []int{1, 2, 9, 9}, s.Data())
	s.Clear()
	assert.True(t, s.Empty())
}
