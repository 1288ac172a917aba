package recast

import (
	"fmt"
	"math"

	"github.com/Robmaister/SharpNav-sub000/common"
)

type axis int

const (
	axisX axis = 0
	axisZ axis = 2
)

// / Divides a convex polygon of max 12 vertices into two convex polygons
// / across a separating axis.
// /
// / @param[in]	in			The input polygon vertices
// / @param[in]	nin			The number of input polygon vertices
// / @param[out]	out1		Resulting polygon 1's vertices (the side below axisOffset)
// / @param[out]	out2		Resulting polygon 2's vertices
// / @param[in]	axisOffset	The offset along the specified axis
// / @param[in]	ax			The separating axis
func dividePoly(in []float32, nin int, out1, out2 []float32, axisOffset float32, ax axis) (n1, n2 int) {
	common.AssertTrue(nin <= 12)
	// How far positive or negative away from the separating axis is each vertex.
	var d [12]float32
	for i := 0; i < nin; i++ {
		d[i] = axisOffset - in[i*3+int(ax)]
	}

	for a, b := 0, nin-1; a < nin; b, a = a, a+1 {
		sameSide := (d[a] >= 0) == (d[b] >= 0)
		if !sameSide {
			s := d[b] / (d[b] - d[a])
			out1[n1*3+0] = in[b*3+0] + (in[a*3+0]-in[b*3+0])*s
			out1[n1*3+1] = in[b*3+1] + (in[a*3+1]-in[b*3+1])*s
			out1[n1*3+2] = in[b*3+2] + (in[a*3+2]-in[b*3+2])*s
			copy(out2[n2*3:n2*3+3], out1[n1*3:n1*3+3])
			n1++
			n2++
			// Add the a point to the right polygon. Points on the dividing
			// line were already added above.
			if d[a] > 0 {
				copy(out1[n1*3:n1*3+3], in[a*3:a*3+3])
				n1++
			} else if d[a] < 0 {
				copy(out2[n2*3:n2*3+3], in[a*3:a*3+3])
				n2++
			}
			continue
		}
		// Same side: points on the dividing line go to both polygons.
		if d[a] >= 0 {
			copy(out1[n1*3:n1*3+3], in[a*3:a*3+3])
			n1++
			if d[a] != 0 {
				continue
			}
		}
		copy(out2[n2*3:n2*3+3], in[a*3:a*3+3])
		n2++
	}
	return n1, n2
}

// RasterizeTriangle voxelizes one triangle into the field. Triangles outside
// the field bounds are skipped.
func (h *Heightfield) RasterizeTriangle(tri Triangle, area Area, flagMergeThreshold int) error {
	return h.rasterizeTri(tri.A[:], tri.B[:], tri.C[:], area, 1/h.CellSize, 1/h.CellHeight, flagMergeThreshold)
}

func (h *Heightfield) rasterizeTri(v0, v1, v2 []float32, area Area, ics, ich float32, flagMergeThreshold int) error {
	bmin := h.Bounds.Min[:]
	bmax := h.Bounds.Max[:]

	// Calculate the bounding box of the triangle.
	var tmin, tmax [3]float32
	common.Vcopy(tmin[:], v0)
	common.Vmin(tmin[:], v1)
	common.Vmin(tmin[:], v2)
	common.Vcopy(tmax[:], v0)
	common.Vmax(tmax[:], v1)
	common.Vmax(tmax[:], v2)

	// If the triangle does not touch the bounding box of the heightfield, skip the triangle.
	if !common.OverlapBounds(tmin[:], tmax[:], bmin, bmax) {
		return nil
	}

	w := h.Width
	l := h.Length
	by := bmax[1] - bmin[1]
	cs := h.CellSize

	// Calculate the footprint of the triangle on the grid's z-axis.
	z0 := int((tmin[2] - bmin[2]) * ics)
	z1 := int((tmax[2] - bmin[2]) * ics)
	// use -1 rather than 0 to cut the polygon properly at the start of the tile
	z0 = common.Clamp(z0, -1, l-1)
	z1 = common.Clamp(z1, 0, l-1)

	// Clip the triangle into all grid cells it touches.
	var buf [7 * 3 * 4]float32
	in := buf[0 : 7*3]
	inRow := buf[7*3 : 14*3]
	p1 := buf[14*3 : 21*3]
	p2 := buf[21*3 : 28*3]

	copy(in[0:3], v0)
	copy(in[3:6], v1)
	copy(in[6:9], v2)
	nvIn := 3

	for z := z0; z <= z1; z++ {
		// Clip polygon to row. Store the remaining polygon as well.
		cz := bmin[2] + float32(z)*cs
		var nvRow int
		nvRow, nvIn = dividePoly(in, nvIn, inRow, p1, cz+cs, axisZ)
		in, p1 = p1, in
		if nvRow < 3 || z < 0 {
			continue
		}

		// find the x-axis bounds of the row
		minX := inRow[0]
		maxX := inRow[0]
		for i := 1; i < nvRow; i++ {
			minX = min(minX, inRow[i*3])
			maxX = max(maxX, inRow[i*3])
		}
		x0 := int((minX - bmin[0]) * ics)
		x1 := int((maxX - bmin[0]) * ics)
		if x1 < 0 || x0 >= w {
			continue
		}
		x0 = common.Clamp(x0, -1, w-1)
		x1 = common.Clamp(x1, 0, w-1)

		nv2 := nvRow
		for x := x0; x <= x1; x++ {
			// Clip polygon to column. Store the remaining polygon as well.
			cx := bmin[0] + float32(x)*cs
			var nv int
			nv, nv2 = dividePoly(inRow, nv2, p1, p2, cx+cs, axisX)
			inRow, p2 = p2, inRow
			if nv < 3 || x < 0 {
				continue
			}

			// Calculate min and max of the span.
			smin := p1[1]
			smax := p1[1]
			for i := 1; i < nv; i++ {
				smin = min(smin, p1[i*3+1])
				smax = max(smax, p1[i*3+1])
			}
			smin -= bmin[1]
			smax -= bmin[1]
			// Skip the span if it is completely outside the heightfield bounding box.
			if smax < 0 || smin > by {
				continue
			}
			// Clamp the span to the heightfield bounding box.
			smin = max(smin, 0)
			smax = min(smax, by)

			// Snap the span to the heightfield height grid.
			ismin := common.Clamp(int(math.Floor(float64(smin*ich))), 0, SpanMaxHeight)
			ismax := common.Clamp(int(math.Ceil(float64(smax*ich))), ismin+1, SpanMaxHeight)

			if err := h.Cell(x, z).AddSpan(Span{Minimum: ismin, Maximum: ismax, Area: area}, flagMergeThreshold); err != nil {
				return fmt.Errorf("rasterize cell (%d, %d): %w", x, z, err)
			}
		}
	}
	return nil
}

// RasterizeTriangles voxelizes every triangle of src. areas holds one area
// per triangle; a nil slice rasterizes everything as AreaWalkable.
func (h *Heightfield) RasterizeTriangles(ctx *Context, src TriangleSource, areas []Area, flagMergeThreshold int) error {
	ctx.StartTimer(TimerRasterizeTriangles)
	defer ctx.StopTimer(TimerRasterizeTriangles)

	n := src.TriangleCount()
	if areas != nil && len(areas) < n {
		return fmt.Errorf("%w: %d areas for %d triangles", ErrInvalidParam, len(areas), n)
	}
	ics := 1 / h.CellSize
	ich := 1 / h.CellHeight
	for i := 0; i < n; i++ {
		t := src.Triangle(i)
		area := AreaWalkable
		if areas != nil {
			area = areas[i]
		}
		if err := h.rasterizeTri(t.A[:], t.B[:], t.C[:], area, ics, ich, flagMergeThreshold); err != nil {
			return err
		}
	}
	return nil
}

// MarkWalkableTriangles returns one area per triangle: AreaWalkable when the
// triangle faces up within maxSlopeDeg of vertical, AreaNull otherwise.
func MarkWalkableTriangles(src TriangleSource, maxSlopeDeg float32) []Area {
	thr := float32(math.Cos(float64(maxSlopeDeg) / 180 * math.Pi))
	areas := make([]Area, src.TriangleCount())
	for i := range areas {
		if src.Triangle(i).Normal()[1] > thr {
			areas[i] = AreaWalkable
		}
	}
	return areas
}

// ClearUnwalkableTriangles sets the area of every too steep triangle to AreaNull.
func ClearUnwalkableTriangles(src TriangleSource, maxSlopeDeg float32, areas []Area) {
	thr := float32(math.Cos(float64(maxSlopeDeg) / 180 * math.Pi))
	for i := range areas {
		if src.Triangle(i).Normal()[1] <= thr {
			areas[i] = AreaNull
		}
	}
}
