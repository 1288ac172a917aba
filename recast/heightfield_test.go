package recast

import (
	"testing"

	"github.com/Robmaister/SharpNav-sub000/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertSpanInvariant(t *testing.T, c *Cell) {
	t.Helper()
	spans := c.Spans()
	for i := range spans {
		assert.Less(t, spans[i].Minimum, spans[i].Maximum, "span %d is empty", i)
		if i > 0 {
			assert.Less(t, spans[i-1].Maximum, spans[i].Minimum, "spans %d and %d touch", i-1, i)
		}
	}
}

func TestCellAddSpanMerges(t *testing.T) {
	var c Cell
	require.NoError(t, c.AddSpan(Span{Minimum: 0, Maximum: 2, Area: AreaWalkable}, 1))
	require.NoError(t, c.AddSpan(Span{Minimum: 4, Maximum: 6, Area: AreaWalkable}, 1))
	require.Equal(t, 2, c.SpanCount())

	require.NoError(t, c.AddSpan(Span{Minimum: 1, Maximum: 5, Area: AreaWalkable}, 1))
	require.Equal(t, 1, c.SpanCount())
	assert.Equal(t, Span{Minimum: 0, Maximum: 6, Area: AreaWalkable}, c.Spans()[0])
}

func TestCellAddSpanTouchingMerges(t *testing.T) {
	var c Cell
	require.NoError(t, c.AddSpan(Span{Minimum: 0, Maximum: 3, Area: AreaWalkable}, 1))
	require.NoError(t, c.AddSpan(Span{Minimum: 3, Maximum: 5, Area: AreaWalkable}, 1))
	require.Equal(t, 1, c.SpanCount())
	assert.Equal(t, 0, c.Spans()[0].Minimum)
	assert.Equal(t, 5, c.Spans()[0].Maximum)
}

func TestCellAddSpanAreaMerge(t *testing.T) {
	var c Cell
	require.NoError(t, c.AddSpan(Span{Minimum: 0, Maximum: 5, Area: 1}, 1))
	require.NoError(t, c.AddSpan(Span{Minimum: 3, Maximum: 6, Area: AreaWalkable}, 1))
	assert.Equal(t, AreaWalkable, c.Spans()[0].Area)

	// Tops too far apart, the new span's area is kept.
	var d Cell
	require.NoError(t, d.AddSpan(Span{Minimum: 0, Maximum: 10, Area: AreaWalkable}, 1))
	require.NoError(t, d.AddSpan(Span{Minimum: 8, Maximum: 20, Area: 1}, 1))
	assert.Equal(t, Area(1), d.Spans()[0].Area)
}

func TestCellAddSpanInvalid(t *testing.T) {
	var c Cell
	assert.ErrorIs(t, c.AddSpan(Span{Minimum: 4, Maximum: 4}, 1), ErrInvalidSpan)
	assert.ErrorIs(t, c.AddSpan(Span{Minimum: 5, Maximum: 2}, 1), ErrInvalidSpan)
	assert.Zero(t, c.SpanCount())
}

func TestCellSpanInvariant(t *testing.T) {
	var c Cell
	inputs := []Span{
		{10, 12, AreaWalkable}, {0, 2, AreaWalkable}, {20, 25, AreaWalkable},
		{5, 7, AreaWalkable}, {11, 15, AreaWalkable}, {2, 3, AreaWalkable},
		{30, 31, AreaWalkable}, {16, 19, AreaWalkable}, {24, 29, AreaWalkable},
	}
	for _, s := range inputs {
		require.NoError(t, c.AddSpan(s, 1))
		assertSpanInvariant(t, &c)
	}
	assert.Equal(t, []Span{
		{0, 3, AreaWalkable}, {5, 7, AreaWalkable}, {10, 15, AreaWalkable},
		{16, 19, AreaWalkable}, {20, 29, AreaWalkable}, {30, 31, AreaWalkable},
	}, c.Spans())
}

func TestNewHeightfieldGrid(t *testing.T) {
	bounds := BBox3{Min: common.Vec3{0, 0, 0}, Max: common.Vec3{10, 2, 5}}
	hf, err := NewHeightfield(bounds, 0.5, 0.25)
	require.NoError(t, err)
	assert.Equal(t, 20, hf.Width)
	assert.Equal(t, 10, hf.Length)
	assert.Equal(t, 8, hf.Height)

	_, err = NewHeightfield(bounds, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidParam)

	require.NoError(t, hf.AddSpan(3, 4, Span{0, 2, AreaWalkable}, 1))
	assert.ErrorIs(t, hf.AddSpan(20, 0, Span{0, 2, AreaWalkable}, 1), ErrInvalidParam)
	assert.Equal(t, 1, hf.SpanCount())
	assert.Equal(t, 1, hf.WalkableSpanCount())
}

func TestMarkWalkableTriangles(t *testing.T) {
	tris := TriangleList{
		{A: common.Vec3{0, 0, 0}, B: common.Vec3{0, 0, 1}, C: common.Vec3{1, 0, 1}},
		// Vertical wall.
		{A: common.Vec3{0, 0, 0}, B: common.Vec3{0, 1, 0}, C: common.Vec3{1, 0, 0}},
		// Floor facing down.
		{A: common.Vec3{0, 0, 0}, B: common.Vec3{1, 0, 1}, C: common.Vec3{0, 0, 1}},
	}
	areas := MarkWalkableTriangles(tris, 45)
	assert.Equal(t, []Area{AreaWalkable, AreaNull, AreaNull}, areas)

	areas = []Area{AreaWalkable, AreaWalkable, AreaWalkable}
	ClearUnwalkableTriangles(tris, 45, areas)
	assert.Equal(t, []Area{AreaWalkable, AreaNull, AreaNull}, areas)
}

func TestRasterizeFlatQuad(t *testing.T) {
	tris := quad(0, 0, 4, 4, 1)
	bounds := BoundsOf(tris)
	hf, err := NewHeightfield(bounds, 0.5, 0.5)
	require.NoError(t, err)
	require.NoError(t, hf.RasterizeTriangles(nil, tris, nil, 1))

	for z := 0; z < hf.Length; z++ {
		for x := 0; x < hf.Width; x++ {
			c := hf.Cell(x, z)
			require.Equal(t, 1, c.SpanCount(), "cell (%d,%d)", x, z)
			assertSpanInvariant(t, c)
			assert.Equal(t, AreaWalkable, c.Spans()[0].Area)
		}
	}
}

// quad returns two upward facing triangles covering [x0,x1]x[z0,z1] at y.
func quad(x0, z0, x1, z1, y float32) TriangleList {
	a := common.Vec3{x0, y, z0}
	b := common.Vec3{x0, y, z1}
	c := common.Vec3{x1, y, z1}
	d := common.Vec3{x1, y, z0}
	return TriangleList{{A: a, B: b, C: c}, {A: a, B: c, C: d}}
}
