package recast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionIdFlags(t *testing.T) {
	r := RegionId(5).With(RegionBorder)
	assert.True(t, r.Has(RegionBorder))
	assert.False(t, r.Has(RegionVertexBorder|RegionAreaBorder))
	assert.Equal(t, 5, r.Id())
	assert.False(t, r.IsNull())
	assert.Equal(t, RegionId(5), r.Without(RegionBorder))

	assert.True(t, RegionBorder.IsNull())
	assert.True(t, RegionId(0).IsNull())
}

func contourOf(pts ...int) *Contour {
	c := &Contour{}
	for i := 0; i < len(pts); i += 2 {
		c.Vertices = append(c.Vertices, ContourVertex{X: pts[i], Z: pts[i+1]})
	}
	return c
}

func TestContourMergeHole(t *testing.T) {
	outline := contourOf(0, 0, 0, 10, 10, 10, 10, 0)
	hole := contourOf(3, 3, 7, 3, 7, 7, 3, 7)
	require.Equal(t, 100, outline.Area2D())
	require.Negative(t, hole.Area2D())

	require.True(t, outline.MergeWith(hole))
	assert.Len(t, outline.Vertices, 4+4+2)
	assert.True(t, hole.IsNull())
	assert.Equal(t, 84, outline.Area2D())
}

func TestBuildRegionsSplitsSeparatedAreas(t *testing.T) {
	chf := flatCompactHeightfield(t, 12, 5)
	// Cut a null column so the field holds two islands.
	for z := 0; z < chf.Length; z++ {
		c := chf.Cell(6, z)
		for i := c.StartIndex; i < c.StartIndex+c.Count; i++ {
			chf.Areas[i] = AreaNull
		}
	}
	chf.BuildDistanceField(nil)
	require.NoError(t, chf.BuildRegions(nil, 0, 1, 100))

	assert.Equal(t, 2, chf.MaxRegions)
	left := chf.Spans[chf.Cell(1, 2).StartIndex].Region
	right := chf.Spans[chf.Cell(10, 2).StartIndex].Region
	assert.NotEqual(t, left, right)
	assert.False(t, left.IsNull())
	assert.False(t, right.IsNull())
	assert.True(t, chf.Spans[chf.Cell(6, 2).StartIndex].Region.IsNull())
}
