package recast

import (
	"fmt"
	"math"

	"github.com/Robmaister/SharpNav-sub000/common"
	"go.uber.org/zap"
)

const (
	// HeightPatchUnset marks a height patch cell without a sampled height.
	HeightPatchUnset = 0xffff

	maxDetailVerts        = 127
	maxDetailTris         = 255
	maxDetailVertsPerEdge = 32

	// DetailEdgeBoundary flags a detail triangle edge lying on the edge of
	// its polygon. Each edge uses two bits of DetailTriangle.Flags.
	DetailEdgeBoundary = 0x1

	edgeUndefined = -1
	edgeHull      = -2
)

// HeightPatch is a rectangular window of sampled span heights. X and Z are
// the cell coordinates of its first cell.
type HeightPatch struct {
	X, Z          int
	Width, Length int
	data          []int
}

func NewHeightPatch(x, z, width, length int) (*HeightPatch, error) {
	hp := &HeightPatch{}
	if err := hp.Resize(x, z, width, length); err != nil {
		return nil, err
	}
	return hp, nil
}

// Resize moves the patch and makes room for width*length cells. Every cell
// is unset afterwards.
func (hp *HeightPatch) Resize(x, z, width, length int) error {
	if x < 0 || z < 0 || width < 0 || length < 0 {
		return fmt.Errorf("%w: (%d,%d) %dx%d", ErrInvalidHeightPatch, x, z, width, length)
	}
	hp.X, hp.Z, hp.Width, hp.Length = x, z, width, length
	if cap(hp.data) < width*length {
		hp.data = make([]int, width*length)
	}
	hp.data = hp.data[:width*length]
	hp.Clear()
	return nil
}

func (hp *HeightPatch) Clear() {
	hp.fill(HeightPatchUnset)
}

func (hp *HeightPatch) fill(v int) {
	for i := range hp.data {
		hp.data[i] = v
	}
}

// Contains reports whether the cell (x, z) lies inside the patch.
func (hp *HeightPatch) Contains(x, z int) bool {
	return x >= hp.X && x < hp.X+hp.Width && z >= hp.Z && z < hp.Z+hp.Length
}

// Height returns the height stored for cell (x, z) and whether it was set.
func (hp *HeightPatch) Height(x, z int) (int, bool) {
	if !hp.Contains(x, z) {
		return HeightPatchUnset, false
	}
	h := hp.data[x-hp.X+(z-hp.Z)*hp.Width]
	return h, h != HeightPatchUnset
}

func (hp *HeightPatch) SetHeight(x, z, h int) {
	hp.data[x-hp.X+(z-hp.Z)*hp.Width] = h
}

// MeshData locates the detail submesh of one polygon.
type MeshData struct {
	VertexIndex   int
	VertexCount   int
	TriangleIndex int
	TriangleCount int
}

// DetailTriangle indexes vertices local to its submesh. Flags holds
// DetailEdgeBoundary bits for the edges (0,1), (1,2) and (2,0) at bit
// offsets 0, 2 and 4.
type DetailTriangle struct {
	Indices [3]int
	Flags   int
}

// PolyMeshDetail adds height detail to every polygon of a PolyMesh. Each
// submesh starts with the polygon vertices themselves.
type PolyMeshDetail struct {
	Meshes []MeshData
	Verts  []common.Vec3
	Tris   []DetailTriangle
}

// detailBuilder keeps the scratch buffers reused between polygons.
type detailBuilder struct {
	ctx         *Context
	chf         *CompactHeightfield
	hp          *HeightPatch
	sampleDist  float32
	maxError    float32
	stack       []int
	verts       []float32
	tris        []int // a, b, c, flags
	edges       []int // s, t, l, r
	samples     []int // x, y, z, added
	hull        []int
	edgeSamples [(maxDetailVertsPerEdge + 1) * 3]float32
}

// NewPolyMeshDetail samples the compact heightfield under every polygon and
// triangulates the polygon with extra vertices until the surface is within
// sampleMaxError of the samples.
func NewPolyMeshDetail(ctx *Context, mesh *PolyMesh, chf *CompactHeightfield, sampleDist, sampleMaxError float32) (*PolyMeshDetail, error) {
	ctx.StartTimer(TimerBuildPolyMeshDetail)
	defer ctx.StopTimer(TimerBuildPolyMeshDetail)

	dmesh := &PolyMeshDetail{}
	if len(mesh.Verts) == 0 || len(mesh.Polys) == 0 {
		return dmesh, nil
	}

	nvp := mesh.NumVertsPerPoly
	cs := mesh.CellSize
	ch := mesh.CellHeight
	orig := mesh.Bounds.Min
	borderSize := mesh.BorderSize

	type patchBounds struct{ xmin, xmax, zmin, zmax int }
	bounds := make([]patchBounds, len(mesh.Polys))

	// Find max size for a polygon area.
	maxhw, maxhh := 0, 0
	for i := range mesh.Polys {
		p := &mesh.Polys[i]
		b := patchBounds{chf.Width, 0, chf.Length, 0}
		for _, vi := range p.Vertices[:p.VertexCount()] {
			v := mesh.Verts[vi]
			b.xmin = min(b.xmin, v.X)
			b.xmax = max(b.xmax, v.X)
			b.zmin = min(b.zmin, v.Z)
			b.zmax = max(b.zmax, v.Z)
		}
		b.xmin = max(0, b.xmin-1)
		b.xmax = min(chf.Width, b.xmax+1)
		b.zmin = max(0, b.zmin-1)
		b.zmax = min(chf.Length, b.zmax+1)
		bounds[i] = b
		if b.xmin >= b.xmax || b.zmin >= b.zmax {
			continue
		}
		maxhw = max(maxhw, b.xmax-b.xmin)
		maxhh = max(maxhh, b.zmax-b.zmin)
	}

	hp, err := NewHeightPatch(0, 0, maxhw, maxhh)
	if err != nil {
		return nil, err
	}
	db := &detailBuilder{
		ctx:        ctx,
		chf:        chf,
		hp:         hp,
		sampleDist: sampleDist,
		maxError:   sampleMaxError,
		verts:      make([]float32, 0, maxDetailVerts*3),
	}

	dmesh.Meshes = make([]MeshData, len(mesh.Polys))
	poly := make([]float32, nvp*3)
	for i := range mesh.Polys {
		p := &mesh.Polys[i]
		npoly := p.VertexCount()

		// Store polygon vertices for processing.
		for j := 0; j < npoly; j++ {
			v := mesh.Verts[p.Vertices[j]]
			poly[j*3+0] = float32(v.X) * cs
			poly[j*3+1] = float32(v.Y) * ch
			poly[j*3+2] = float32(v.Z) * cs
		}

		// Get the height data from the area of the polygon.
		b := bounds[i]
		if err := hp.Resize(b.xmin, b.zmin, max(b.xmax-b.xmin, 0), max(b.zmax-b.zmin, 0)); err != nil {
			return nil, err
		}
		db.heightData(mesh, p, borderSize)

		// Build detail mesh.
		if err := db.buildPolyDetail(poly[:npoly*3]); err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}

		nverts := len(db.verts) / 3
		ntris := len(db.tris) / 4

		// Move detail verts to world space.
		for j := 0; j < nverts; j++ {
			db.verts[j*3+0] += orig[0]
			db.verts[j*3+1] += orig[1] + ch
			db.verts[j*3+2] += orig[2]
		}
		// Offset poly too, will be used to flag checking.
		for j := 0; j < npoly; j++ {
			poly[j*3+0] += orig[0]
			poly[j*3+1] += orig[1]
			poly[j*3+2] += orig[2]
		}

		// Store detail submesh.
		dmesh.Meshes[i] = MeshData{
			VertexIndex:   len(dmesh.Verts),
			VertexCount:   nverts,
			TriangleIndex: len(dmesh.Tris),
			TriangleCount: ntris,
		}
		for j := 0; j < nverts; j++ {
			dmesh.Verts = append(dmesh.Verts, common.Vec3At(db.verts, j))
		}
		for j := 0; j < ntris; j++ {
			t := db.tris[j*4 : j*4+4]
			dmesh.Tris = append(dmesh.Tris, DetailTriangle{
				Indices: [3]int{t[0], t[1], t[2]},
				Flags: triFlags(common.GetVert3(db.verts, t[0]), common.GetVert3(db.verts, t[1]),
					common.GetVert3(db.verts, t[2]), poly[:npoly*3]),
			})
		}
	}

	ctx.Debug("built poly mesh detail", zap.Int("verts", len(dmesh.Verts)), zap.Int("tris", len(dmesh.Tris)))
	return dmesh, nil
}

// edgeFlags reports whether va-vb runs along an edge of vpoly.
func edgeFlags(va, vb, vpoly []float32) int {
	const thrSqr = 0.001 * 0.001
	npoly := len(vpoly) / 3
	for i, j := 0, npoly-1; i < npoly; j, i = i, i+1 {
		pj := common.GetVert3(vpoly, j)
		pi := common.GetVert3(vpoly, i)
		if common.DistancePtSeg2d(va, pj, pi) < thrSqr && common.DistancePtSeg2d(vb, pj, pi) < thrSqr {
			return DetailEdgeBoundary
		}
	}
	return 0
}

func triFlags(va, vb, vc, vpoly []float32) int {
	flags := 0
	flags |= edgeFlags(va, vb, vpoly) << 0
	flags |= edgeFlags(vb, vc, vpoly) << 2
	flags |= edgeFlags(vc, va, vpoly) << 4
	return flags
}

var seedOffsets = [9 * 2]int{0, 0, -1, -1, 0, -1, 1, -1, 1, 0, 1, 1, 0, 1, -1, 1, -1, 0}

// heightData floods the compact heightfield under p into the height patch.
// The fill starts at the span closest to each polygon vertex, walks towards
// the polygon center and grows outward from there so that overlapping
// floors are not sampled.
func (db *detailBuilder) heightData(mesh *PolyMesh, p *Polygon, bs int) {
	chf := db.chf
	hp := db.hp
	npoly := p.VertexCount()

	// Coordinates below are in polymesh space; reads from the compact
	// heightfield are offset by the border size.
	stack := db.stack[:0]
	// Use poly vertices as seed points for the flood fill.
	for _, vi := range p.Vertices[:npoly] {
		v := mesh.Verts[vi]
		cx, cz, ci := 0, 0, -1
		dmin := HeightPatchUnset
		for k := 0; k < 9; k++ {
			ax := v.X + seedOffsets[k*2+0]
			az := v.Z + seedOffsets[k*2+1]
			if !hp.Contains(ax, az) {
				continue
			}
			c := chf.Cells[(ax+bs)+(az+bs)*chf.Width]
			for i := c.StartIndex; i < c.StartIndex+c.Count; i++ {
				if d := common.Abs(v.Y - chf.Spans[i].Minimum); d < dmin {
					cx, cz, ci = ax, az, i
					dmin = d
				}
			}
		}
		if ci != -1 {
			stack = append(stack, cx, cz, ci)
		}
	}
	seeds := len(stack)

	// Find center of the polygon using flood fill.
	pcx, pcz := 0, 0
	for _, vi := range p.Vertices[:npoly] {
		pcx += mesh.Verts[vi].X
		pcz += mesh.Verts[vi].Z
	}
	pcx /= npoly
	pcz /= npoly

	// Walk from the seeds is done with 0/1 marks in the patch.
	hp.fill(0)
	for i := 0; i < len(stack); i += 3 {
		hp.SetHeight(stack[i], stack[i+1], 1)
	}
	walk := append([]int(nil), stack...)
	found := false
	for len(walk) > 0 {
		n := len(walk)
		cx, cz, ci := walk[n-3], walk[n-2], walk[n-1]
		walk = walk[:n-3]

		// Check if close to center of the polygon.
		if common.Abs(cx-pcx) <= 1 && common.Abs(cz-pcz) <= 1 {
			stack = append(stack[:0], cx, cz, ci)
			found = true
			break
		}

		s := &chf.Spans[ci]
		for dir := 0; dir < 4; dir++ {
			if !s.IsConnected(dir) {
				continue
			}
			ax := cx + common.GetDirOffsetX(dir)
			az := cz + common.GetDirOffsetY(dir)
			if !hp.Contains(ax, az) {
				continue
			}
			if h, _ := hp.Height(ax, az); h != 0 {
				continue
			}
			_, _, ai := chf.neighbor(cx+bs, cz+bs, s, dir)
			hp.SetHeight(ax, az, 1)
			walk = append(walk, ax, az, ai)
		}
	}
	if !found {
		// The center was not reachable, grow from the vertex seeds instead.
		stack = stack[:seeds]
	}

	hp.Clear()
	// Mark start locations.
	for i := 0; i < len(stack); i += 3 {
		hp.SetHeight(stack[i], stack[i+1], chf.Spans[stack[i+2]].Minimum)
	}

	for head := 0; head < len(stack); head += 3 {
		cx, cz, ci := stack[head], stack[head+1], stack[head+2]
		s := &chf.Spans[ci]
		for dir := 0; dir < 4; dir++ {
			if !s.IsConnected(dir) {
				continue
			}
			ax := cx + common.GetDirOffsetX(dir)
			az := cz + common.GetDirOffsetY(dir)
			if !hp.Contains(ax, az) {
				continue
			}
			if _, ok := hp.Height(ax, az); ok {
				continue
			}
			_, _, ai := chf.neighbor(cx+bs, cz+bs, s, dir)
			hp.SetHeight(ax, az, chf.Spans[ai].Minimum)
			stack = append(stack, ax, az, ai)
		}
	}
	db.stack = stack
}

var heightNeighborOffsets = [8 * 2]int{-1, 0, -1, -1, 0, -1, 1, -1, 1, 0, 1, 1, 0, 1, -1, 1}

// height returns the patch height under (fx, fz) in voxels. An unset cell
// takes the neighbouring height closest to fy.
func (db *detailBuilder) height(fx, fy, fz float32) int {
	hp := db.hp
	ics := 1 / db.chf.CellSize
	ch := db.chf.CellHeight
	if len(hp.data) == 0 {
		return int(fy / ch)
	}
	ix := int(math.Floor(float64(fx*ics + 0.01)))
	iz := int(math.Floor(float64(fz*ics + 0.01)))
	ix = common.Clamp(ix-hp.X, 0, hp.Width-1)
	iz = common.Clamp(iz-hp.Z, 0, hp.Length-1)
	h := hp.data[ix+iz*hp.Width]
	if h != HeightPatchUnset {
		return h
	}
	// Special case when data might be bad.
	// Find nearest neighbour pixel which has valid height.
	dmin := float32(math.MaxFloat32)
	for i := 0; i < 8; i++ {
		nx := ix + heightNeighborOffsets[i*2+0]
		nz := iz + heightNeighborOffsets[i*2+1]
		if nx < 0 || nz < 0 || nx >= hp.Width || nz >= hp.Length {
			continue
		}
		nh := hp.data[nx+nz*hp.Width]
		if nh == HeightPatchUnset {
			continue
		}
		if d := common.Abs(float32(nh)*ch - fy); d < dmin {
			h = nh
			dmin = d
		}
	}
	return h
}

func jitterX(i int) float32 {
	return (float32((uint32(i)*0x8da6b343)&0xffff) / 65535.0 * 2.0) - 1.0
}

func jitterY(i int) float32 {
	return (float32((uint32(i)*0xd8163841)&0xffff) / 65535.0 * 2.0) - 1.0
}

func polyMinExtent(verts []float32) float32 {
	nverts := len(verts) / 3
	minDist := float32(math.MaxFloat32)
	for i := 0; i < nverts; i++ {
		ni := (i + 1) % nverts
		p1 := common.GetVert3(verts, i)
		p2 := common.GetVert3(verts, ni)
		maxEdgeDist := float32(0)
		for j := 0; j < nverts; j++ {
			if j == i || j == ni {
				continue
			}
			d := common.DistancePtSeg2d(common.GetVert3(verts, j), p1, p2)
			maxEdgeDist = max(maxEdgeDist, d)
		}
		minDist = min(minDist, maxEdgeDist)
	}
	return common.Sqrt(minDist)
}

// buildPolyDetail triangulates the polygon in (local space) into db.verts
// and db.tris.
func (db *detailBuilder) buildPolyDetail(in []float32) error {
	nin := len(in) / 3
	sampleDist := db.sampleDist
	cs := db.chf.CellSize
	ch := db.chf.CellHeight

	db.verts = append(db.verts[:0], in...)
	db.tris = db.tris[:0]
	db.edges = db.edges[:0]
	db.hull = db.hull[:0]

	// Calculate minimum extents of the polygon based on input data.
	minExtent := polyMinExtent(db.verts)

	// Tessellate outlines.
	// This is done in separate pass in order to ensure
	// seamless height values across the ply boundaries.
	if sampleDist > 0 {
		edge := db.edgeSamples[:]
		for i, j := 0, nin-1; i < nin; j, i = i, i+1 {
			vj := common.GetVert3(in, j)
			vi := common.GetVert3(in, i)
			swapped := false
			// Make sure the segments are always handled in same order
			// using lexological sort or else there will be seams.
			if common.Abs(vj[0]-vi[0]) < 1e-6 {
				if vj[2] > vi[2] {
					vj, vi = vi, vj
					swapped = true
				}
			} else if vj[0] > vi[0] {
				vj, vi = vi, vj
				swapped = true
			}

			// Create samples along the edge.
			dx := vi[0] - vj[0]
			dy := vi[1] - vj[1]
			dz := vi[2] - vj[2]
			d := common.Sqrt(dx*dx + dz*dz)
			nn := 1 + int(math.Floor(float64(d/sampleDist)))
			if nn >= maxDetailVertsPerEdge {
				nn = maxDetailVertsPerEdge - 1
			}
			nverts := len(db.verts) / 3
			if nverts+nn >= maxDetailVerts {
				nn = max(maxDetailVerts-1-nverts, 1)
			}

			for k := 0; k <= nn; k++ {
				u := float32(k) / float32(nn)
				pos := edge[k*3 : k*3+3]
				pos[0] = vj[0] + dx*u
				pos[1] = vj[1] + dy*u
				pos[2] = vj[2] + dz*u
				pos[1] = float32(db.height(pos[0], pos[1], pos[2])) * ch
			}

			// Simplify samples.
			var idx [maxDetailVertsPerEdge]int
			idx[0] = 0
			idx[1] = nn
			nidx := 2
			for k := 0; k < nidx-1; {
				a := idx[k]
				b := idx[k+1]
				va := edge[a*3 : a*3+3]
				vb := edge[b*3 : b*3+3]
				// Find maximum deviation along the segment.
				maxd := float32(0)
				maxi := -1
				for m := a + 1; m < b; m++ {
					if dev := common.DistancePtSeg(edge[m*3:m*3+3], va, vb); dev > maxd {
						maxd = dev
						maxi = m
					}
				}
				// If the max deviation is larger than accepted error,
				// add new point, else continue to next segment.
				if maxi != -1 && maxd > common.Sqr(db.maxError) {
					copy(idx[k+2:nidx+1], idx[k+1:nidx])
					idx[k+1] = maxi
					nidx++
				} else {
					k++
				}
			}

			db.hull = append(db.hull, j)
			// Add new vertices.
			if swapped {
				for k := nidx - 2; k > 0; k-- {
					db.hull = append(db.hull, len(db.verts)/3)
					db.verts = append(db.verts, edge[idx[k]*3:idx[k]*3+3]...)
				}
			} else {
				for k := 1; k < nidx-1; k++ {
					db.hull = append(db.hull, len(db.verts)/3)
					db.verts = append(db.verts, edge[idx[k]*3:idx[k]*3+3]...)
				}
			}
		}
	} else {
		for i := 0; i < nin; i++ {
			db.hull = append(db.hull, i)
		}
	}

	// If the polygon minimum extent is small (sliver or small triangle),
	// do not try to add internal points.
	if minExtent < sampleDist*2 {
		db.triangulateHull(nin)
		return nil
	}

	// Tessellate the base mesh.
	// We're using the triangulateHull instead of delaunayHull as it tends to
	// create a bit better triangulation for long thin triangles when there
	// are no internal points.
	db.triangulateHull(nin)

	if len(db.tris) == 0 {
		// Could not triangulate the poly, make sure there is some valid data there.
		db.ctx.Warn("could not triangulate polygon", zap.Int("verts", len(db.verts)/3))
		return nil
	}

	if sampleDist > 0 {
		// Create sample locations in a grid.
		bmin := common.Vec3At(in, 0)
		bmax := bmin
		for i := 1; i < nin; i++ {
			common.Vmin(bmin[:], common.GetVert3(in, i))
			common.Vmax(bmax[:], common.GetVert3(in, i))
		}
		x0 := int(math.Floor(float64(bmin[0] / sampleDist)))
		x1 := int(math.Ceil(float64(bmax[0] / sampleDist)))
		z0 := int(math.Floor(float64(bmin[2] / sampleDist)))
		z1 := int(math.Ceil(float64(bmax[2] / sampleDist)))
		db.samples = db.samples[:0]
		for z := z0; z < z1; z++ {
			for x := x0; x < x1; x++ {
				pt := []float32{float32(x) * sampleDist, (bmax[1] + bmin[1]) * 0.5, float32(z) * sampleDist}
				// Make sure the samples are not too close to the edges.
				if common.DistToPoly(nin, in, pt) > -sampleDist/2 {
					continue
				}
				db.samples = append(db.samples, x, db.height(pt[0], pt[1], pt[2]), z, 0)
			}
		}

		// Add the samples starting from the one that has the most
		// error. The procedure stops when all samples are added
		// or when the max error is within treshold.
		nsamples := len(db.samples) / 4
		for iter := 0; iter < nsamples; iter++ {
			if len(db.verts)/3 >= maxDetailVerts {
				break
			}

			// Find sample with most error.
			var bestpt [3]float32
			bestd := float32(0)
			besti := -1
			for i := 0; i < nsamples; i++ {
				s := db.samples[i*4 : i*4+4]
				if s[3] != 0 {
					continue // skip added.
				}
				pt := [3]float32{
					float32(s[0])*sampleDist + jitterX(i)*cs*0.1,
					float32(s[1]) * ch,
					float32(s[2])*sampleDist + jitterY(i)*cs*0.1,
				}
				d := common.DistToTriMesh(pt[:], db.verts, db.tris, len(db.tris)/4)
				if d < 0 {
					continue // did not hit the mesh.
				}
				if d > bestd {
					bestd = d
					besti = i
					bestpt = pt
				}
			}
			// If the max error is within accepted threshold, stop tesselating.
			if bestd <= db.maxError || besti == -1 {
				break
			}
			// Mark sample as added.
			db.samples[besti*4+3] = 1
			// Add the new sample point.
			db.verts = append(db.verts, bestpt[:]...)

			// Create new triangulation.
			db.delaunayHull()
		}
	}

	if ntris := len(db.tris) / 4; ntris > maxDetailTris {
		db.tris = db.tris[:maxDetailTris*4]
		db.ctx.Warn("shrinking detail triangle count", zap.Int("tris", ntris), zap.Int("max", maxDetailTris))
	}
	return nil
}

// triangulateHull fans the hull starting at the ear with the shortest
// perimeter, advancing on whichever side keeps triangles shorter.
func (db *detailBuilder) triangulateHull(nin int) {
	hull := db.hull
	nhull := len(hull)
	v := func(i int) []float32 { return common.GetVert3(db.verts, hull[i]) }

	start, left, right := 0, 1, nhull-1

	// Start from an ear with shortest perimeter.
	// This tends to favor well formed triangles as starting point.
	dmin := float32(math.MaxFloat32)
	for i := 0; i < nhull; i++ {
		// Ears are triangles with original vertices as middle vertex while
		// others are actually line segments on edges.
		if hull[i] >= nin {
			continue
		}
		pi := common.Prev(i, nhull)
		ni := common.Next(i, nhull)
		d := common.Vdist2(v(pi), v(i)) + common.Vdist2(v(i), v(ni)) + common.Vdist2(v(ni), v(pi))
		if d < dmin {
			start, left, right = i, ni, pi
			dmin = d
		}
	}

	// Add first triangle
	db.tris = append(db.tris, hull[start], hull[left], hull[right], 0)

	// Triangulate the polygon by moving left or right,
	// depending on which triangle has shorter perimeter.
	// This heuristic was chose empirically, since it seems
	// handle tessellated straight edges well.
	for common.Next(left, nhull) != right {
		// Check to see if se should advance left or right.
		nleft := common.Next(left, nhull)
		nright := common.Prev(right, nhull)

		dleft := common.Vdist2(v(left), v(nleft)) + common.Vdist2(v(nleft), v(right))
		dright := common.Vdist2(v(right), v(nright)) + common.Vdist2(v(left), v(nright))

		if dleft < dright {
			db.tris = append(db.tris, hull[left], hull[nleft], hull[right], 0)
			left = nleft
		} else {
			db.tris = append(db.tris, hull[left], hull[nright], hull[right], 0)
			right = nright
		}
	}
}

func (db *detailBuilder) findEdge(s, t int) int {
	for i := 0; i < len(db.edges); i += 4 {
		e := db.edges[i : i+4]
		if (e[0] == s && e[1] == t) || (e[0] == t && e[1] == s) {
			return i / 4
		}
	}
	return edgeUndefined
}

func (db *detailBuilder) addEdge(s, t, l, r, maxEdges int) int {
	if len(db.edges)/4 >= maxEdges {
		db.ctx.Warn("delaunay: too many edges", zap.Int("max", maxEdges))
		return edgeUndefined
	}

	// Add edge if not already in the triangulation.
	e := db.findEdge(s, t)
	if e == edgeUndefined {
		db.edges = append(db.edges, s, t, l, r)
		return len(db.edges)/4 - 1
	}
	return edgeUndefined
}

func (db *detailBuilder) updateLeftFace(ei, s, t, f int) {
	e := db.edges[ei*4 : ei*4+4]
	if e[0] == s && e[1] == t && e[2] == edgeUndefined {
		e[2] = f
	} else if e[1] == s && e[0] == t && e[3] == edgeUndefined {
		e[3] = f
	}
}

func overlapSegSeg2d(a, b, c, d []float32) bool {
	a1 := common.Vcross2(a, b, d)
	a2 := common.Vcross2(a, b, c)
	if a1*a2 < 0 {
		a3 := common.Vcross2(c, d, a)
		a4 := a3 + a2 - a1
		if a3*a4 < 0 {
			return true
		}
	}
	return false
}

func (db *detailBuilder) overlapEdges(s1, t1 int) bool {
	pts := db.verts
	for i := 0; i < len(db.edges); i += 4 {
		s0 := db.edges[i+0]
		t0 := db.edges[i+1]
		// Same or connected edges do not overlap.
		if s0 == s1 || s0 == t1 || t0 == s1 || t0 == t1 {
			continue
		}
		if overlapSegSeg2d(common.GetVert3(pts, s0), common.GetVert3(pts, t0),
			common.GetVert3(pts, s1), common.GetVert3(pts, t1)) {
			return true
		}
	}
	return false
}

func (db *detailBuilder) completeFacet(ei int, nfaces *int, maxEdges int) {
	const eps = 1e-5
	pts := db.verts
	npts := len(pts) / 3
	e := db.edges[ei*4 : ei*4+4]

	// Cache s and t.
	var s, t int
	switch {
	case e[2] == edgeUndefined:
		s, t = e[0], e[1]
	case e[3] == edgeUndefined:
		s, t = e[1], e[0]
	default:
		// Edge already completed.
		return
	}

	// Find best point on left of edge.
	pt := npts
	var c [3]float32
	r := float32(-1)
	ps := common.GetVert3(pts, s)
	pt2 := common.GetVert3(pts, t)
	for u := 0; u < npts; u++ {
		if u == s || u == t {
			continue
		}
		pu := common.GetVert3(pts, u)
		if common.Vcross2(ps, pt2, pu) <= eps {
			continue
		}
		if r < 0 {
			// The circle is not updated yet, do it now.
			pt = u
			r, _ = common.CircumCircle(ps, pt2, pu, c[:])
			continue
		}
		d := common.Vdist2(c[:], pu)
		const tol = 0.001
		switch {
		case d > r*(1+tol):
			// Outside current circumcircle, skip.
			continue
		case d < r*(1-tol):
			// Inside safe circumcircle, update circle.
			pt = u
			r, _ = common.CircumCircle(ps, pt2, pu, c[:])
		default:
			// Inside epsilon circum circle, do extra tests to make sure the edge is valid.
			// s-u and t-u cannot overlap with s-pt nor t-pt if they exists.
			if db.overlapEdges(s, u) || db.overlapEdges(t, u) {
				continue
			}
			// Edge is valid.
			pt = u
			r, _ = common.CircumCircle(ps, pt2, pu, c[:])
		}
	}

	// Add new triangle or update edge info if s-t is on hull.
	if pt < npts {
		// Update face information of edge being completed.
		db.updateLeftFace(ei, s, t, *nfaces)

		// Add new edge or update face info of old edge.
		if e := db.findEdge(pt, s); e == edgeUndefined {
			db.addEdge(pt, s, *nfaces, edgeUndefined, maxEdges)
		} else {
			db.updateLeftFace(e, pt, s, *nfaces)
		}

		// Add new edge or update face info of old edge.
		if e := db.findEdge(t, pt); e == edgeUndefined {
			db.addEdge(t, pt, *nfaces, edgeUndefined, maxEdges)
		} else {
			db.updateLeftFace(e, t, pt, *nfaces)
		}
		*nfaces++
	} else {
		db.updateLeftFace(ei, s, t, edgeHull)
	}
}

// delaunayHull rebuilds db.tris as the Delaunay triangulation of all
// vertices constrained to the hull.
func (db *detailBuilder) delaunayHull() {
	npts := len(db.verts) / 3
	nhull := len(db.hull)
	maxEdges := npts * 10
	nfaces := 0
	db.edges = db.edges[:0]

	for i, j := 0, nhull-1; i < nhull; j, i = i, i+1 {
		db.addEdge(db.hull[j], db.hull[i], edgeHull, edgeUndefined, maxEdges)
	}

	for currentEdge := 0; currentEdge < len(db.edges)/4; currentEdge++ {
		if db.edges[currentEdge*4+2] == edgeUndefined {
			db.completeFacet(currentEdge, &nfaces, maxEdges)
		}
		if db.edges[currentEdge*4+3] == edgeUndefined {
			db.completeFacet(currentEdge, &nfaces, maxEdges)
		}
	}

	// Create tris
	db.tris = db.tris[:0]
	for i := 0; i < nfaces*4; i++ {
		db.tris = append(db.tris, -1)
	}
	for i := 0; i < len(db.edges); i += 4 {
		e := db.edges[i : i+4]
		if e[3] >= 0 {
			// Left face
			t := db.tris[e[3]*4 : e[3]*4+4]
			if t[0] == -1 {
				t[0] = e[0]
				t[1] = e[1]
			} else if t[0] == e[1] {
				t[2] = e[0]
			} else if t[1] == e[0] {
				t[2] = e[1]
			}
		}
		if e[2] >= 0 {
			// Right
			t := db.tris[e[2]*4 : e[2]*4+4]
			if t[0] == -1 {
				t[0] = e[1]
				t[1] = e[0]
			} else if t[0] == e[0] {
				t[2] = e[1]
			} else if t[1] == e[1] {
				t[2] = e[0]
			}
		}
	}

	for i := 0; i < len(db.tris)/4; i++ {
		t := db.tris[i*4 : i*4+4]
		if t[0] == -1 || t[1] == -1 || t[2] == -1 {
			db.ctx.Warn("delaunay: removing dangling face", zap.Int("face", i))
			last := len(db.tris) - 4
			copy(t, db.tris[last:last+4])
			db.tris = db.tris[:last]
			i--
			continue
		}
		t[3] = 0
	}
}
