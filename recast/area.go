package recast

import (
	"slices"

	"github.com/Robmaister/SharpNav-sub000/common"
)

// Erode shrinks the walkable area by radius voxels. Spans closer than
// radius to a null area or an unconnected edge become AreaNull. A distance
// field built before the call is rebuilt.
func (chf *CompactHeightfield) Erode(ctx *Context, radius int) {
	ctx.StartTimer(TimerErodeArea)
	defer ctx.StopTimer(TimerErodeArea)

	dist := make([]int, len(chf.Spans))
	for i := range dist {
		dist[i] = 0xff
	}

	// Mark boundary cells.
	chf.forEachSpan(func(x, z, i int) {
		if chf.Areas[i] == AreaNull {
			dist[i] = 0
			return
		}
		s := &chf.Spans[i]
		nc := 0
		for dir := 0; dir < 4; dir++ {
			if !s.IsConnected(dir) {
				break
			}
			_, _, ni := chf.neighbor(x, z, s, dir)
			if chf.Areas[ni] == AreaNull {
				break
			}
			nc++
		}
		// At least one missing neighbour.
		if nc != 4 {
			dist[i] = 0
		}
	})

	chf.chamferDistances(dist, 255)

	thr := radius * 2
	for i := range dist {
		if dist[i] < thr {
			chf.Areas[i] = AreaNull
		}
	}

	if chf.Distances != nil {
		chf.Distances = nil
		chf.BuildDistanceField(ctx)
	}
}

// MedianFilterWalkableArea replaces the area of every walkable span with
// the median of its 3x3 neighbourhood.
func (chf *CompactHeightfield) MedianFilterWalkableArea(ctx *Context) {
	ctx.StartTimer(TimerMedianArea)
	defer ctx.StopTimer(TimerMedianArea)

	areas := make([]Area, len(chf.Areas))
	chf.forEachSpan(func(x, z, i int) {
		if chf.Areas[i] == AreaNull {
			areas[i] = AreaNull
			return
		}
		s := &chf.Spans[i]
		var nei [9]Area
		for j := range nei {
			nei[j] = chf.Areas[i]
		}
		for dir := 0; dir < 4; dir++ {
			if !s.IsConnected(dir) {
				continue
			}
			ax, az, ai := chf.neighbor(x, z, s, dir)
			if chf.Areas[ai] != AreaNull {
				nei[dir*2+0] = chf.Areas[ai]
			}
			as := &chf.Spans[ai]
			dir2 := (dir + 1) & 0x3
			if as.IsConnected(dir2) {
				_, _, bi := chf.neighbor(ax, az, as, dir2)
				if chf.Areas[bi] != AreaNull {
					nei[dir*2+1] = chf.Areas[bi]
				}
			}
		}
		slices.Sort(nei[:])
		areas[i] = nei[4]
	})
	chf.Areas = areas
}

// gridFootprint converts world bounds into clamped cell coordinates. ok is
// false when the bounds miss the grid.
func (chf *CompactHeightfield) gridFootprint(bmin, bmax common.Vec3) (minx, miny, minz, maxx, maxy, maxz int, ok bool) {
	o := chf.Bounds.Min
	minx = int((bmin[0] - o[0]) / chf.CellSize)
	miny = int((bmin[1] - o[1]) / chf.CellHeight)
	minz = int((bmin[2] - o[2]) / chf.CellSize)
	maxx = int((bmax[0] - o[0]) / chf.CellSize)
	maxy = int((bmax[1] - o[1]) / chf.CellHeight)
	maxz = int((bmax[2] - o[2]) / chf.CellSize)

	if maxx < 0 || minx >= chf.Width || maxz < 0 || minz >= chf.Length {
		return
	}
	minx = max(minx, 0)
	maxx = min(maxx, chf.Width-1)
	minz = max(minz, 0)
	maxz = min(maxz, chf.Length-1)
	ok = true
	return
}

// MarkBoxArea sets area on every walkable span whose floor lies inside box.
func (chf *CompactHeightfield) MarkBoxArea(ctx *Context, box BBox3, area Area) {
	ctx.StartTimer(TimerMarkBoxArea)
	defer ctx.StopTimer(TimerMarkBoxArea)

	minx, miny, minz, maxx, maxy, maxz, ok := chf.gridFootprint(box.Min, box.Max)
	if !ok {
		return
	}
	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			c := chf.Cells[x+z*chf.Width]
			for i := c.StartIndex; i < c.StartIndex+c.Count; i++ {
				s := &chf.Spans[i]
				if s.Minimum < miny || s.Minimum > maxy {
					continue
				}
				if chf.Areas[i] == AreaNull {
					continue
				}
				chf.Areas[i] = area
			}
		}
	}
}

// MarkConvexPolyArea sets area on the walkable spans inside the xz polygon
// verts (x, y, z triples) whose floor is between minY and maxY.
func (chf *CompactHeightfield) MarkConvexPolyArea(ctx *Context, verts []float32, minY, maxY float32, area Area) {
	ctx.StartTimer(TimerMarkConvexPolyArea)
	defer ctx.StopTimer(TimerMarkConvexPolyArea)

	nverts := len(verts) / 3
	if nverts < 3 {
		return
	}
	bmin := common.Vec3At(verts, 0)
	bmax := bmin
	for i := 1; i < nverts; i++ {
		common.Vmin(bmin[:], common.GetVert3(verts, i))
		common.Vmax(bmax[:], common.GetVert3(verts, i))
	}
	bmin[1] = minY
	bmax[1] = maxY

	minx, miny, minz, maxx, maxy, maxz, ok := chf.gridFootprint(bmin, bmax)
	if !ok {
		return
	}
	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			c := chf.Cells[x+z*chf.Width]
			for i := c.StartIndex; i < c.StartIndex+c.Count; i++ {
				if chf.Areas[i] == AreaNull {
					continue
				}
				s := &chf.Spans[i]
				if s.Minimum < miny || s.Minimum > maxy {
					continue
				}
				p := []float32{
					chf.Bounds.Min[0] + (float32(x)+0.5)*chf.CellSize,
					0,
					chf.Bounds.Min[2] + (float32(z)+0.5)*chf.CellSize,
				}
				if common.PointInPoly(nverts, verts, p) {
					chf.Areas[i] = area
				}
			}
		}
	}
}

// MarkCylinderArea sets area on the walkable spans inside an upright
// cylinder standing on pos.
func (chf *CompactHeightfield) MarkCylinderArea(ctx *Context, pos common.Vec3, radius, height float32, area Area) {
	ctx.StartTimer(TimerMarkCylinderArea)
	defer ctx.StopTimer(TimerMarkCylinderArea)

	bmin := common.Vec3{pos[0] - radius, pos[1], pos[2] - radius}
	bmax := common.Vec3{pos[0] + radius, pos[1] + height, pos[2] + radius}
	minx, miny, minz, maxx, maxy, maxz, ok := chf.gridFootprint(bmin, bmax)
	if !ok {
		return
	}
	r2 := radius * radius
	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			cx := chf.Bounds.Min[0] + (float32(x)+0.5)*chf.CellSize
			cz := chf.Bounds.Min[2] + (float32(z)+0.5)*chf.CellSize
			// Skip this column if it's too far from the center point of the cylinder.
			if common.Sqr(cx-pos[0])+common.Sqr(cz-pos[2]) >= r2 {
				continue
			}
			c := chf.Cells[x+z*chf.Width]
			for i := c.StartIndex; i < c.StartIndex+c.Count; i++ {
				if chf.Areas[i] == AreaNull {
					continue
				}
				s := &chf.Spans[i]
				if s.Minimum >= miny && s.Minimum <= maxy {
					chf.Areas[i] = area
				}
			}
		}
	}
}

const offsetEpsilon = 1e-6

func safeNormalizeXZ(v []float32) {
	sq := common.Sqr(v[0]) + common.Sqr(v[2])
	if sq > offsetEpsilon {
		inv := 1 / common.Sqrt(sq)
		v[0] *= inv
		v[2] *= inv
	}
}

// OffsetPoly expands (offset > 0) or shrinks a convex polygon on the xz
// plane. Sharp convex corners are bevelled. It returns nil when the result
// would exceed maxOutVerts.
func OffsetPoly(verts []float32, offset float32, maxOutVerts int) []float32 {
	// Defines the limit at which a miter becomes a bevel.
	const miterLimit = 1.20

	n := len(verts) / 3
	out := make([]float32, 0, maxOutVerts*3)
	for i := 0; i < n; i++ {
		va := common.GetVert3(verts, (i+n-1)%n)
		vb := common.GetVert3(verts, i)
		vc := common.GetVert3(verts, (i+1)%n)

		prevDir := []float32{vb[0] - va[0], 0, vb[2] - va[2]}
		safeNormalizeXZ(prevDir)
		currDir := []float32{vc[0] - vb[0], 0, vc[2] - vb[2]}
		safeNormalizeXZ(currDir)

		// y component of currDir x prevDir
		cross := currDir[0]*prevDir[2] - prevDir[0]*currDir[2]

		// CCW normals of AB and BC.
		prevNormX, prevNormZ := -prevDir[2], prevDir[0]
		currNormX, currNormZ := -currDir[2], currDir[0]

		miterX := (prevNormX + currNormX) * 0.5
		miterZ := (prevNormZ + currNormZ) * 0.5
		miterSq := common.Sqr(miterX) + common.Sqr(miterZ)

		bevel := miterSq*miterLimit*miterLimit < 1
		if miterSq > offsetEpsilon {
			scale := 1 / miterSq
			miterX *= scale
			miterZ *= scale
		}

		if bevel && cross < 0 {
			if len(out)/3+2 > maxOutVerts {
				return nil
			}
			d := 1 - (prevDir[0]*currDir[0]+prevDir[2]*currDir[2])*0.5
			out = append(out,
				vb[0]+(-prevNormX+prevDir[0]*d)*offset, vb[1], vb[2]+(-prevNormZ+prevDir[2]*d)*offset,
				vb[0]+(-currNormX-currDir[0]*d)*offset, vb[1], vb[2]+(-currNormZ-currDir[2]*d)*offset,
			)
			continue
		}
		if len(out)/3+1 > maxOutVerts {
			return nil
		}
		out = append(out, vb[0]-miterX*offset, vb[1], vb[2]-miterZ*offset)
	}
	return out
}
