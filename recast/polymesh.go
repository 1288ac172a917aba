package recast

import (
	"fmt"

	"github.com/Robmaister/SharpNav-sub000/common"
	"go.uber.org/zap"
)

const (
	// NullId marks an unused vertex slot or an edge without a neighbour.
	NullId = -1
	// NeighborEdgeFlag marks a tile border edge. The low bits hold the
	// border direction: 0 is x=0, 1 is z=length, 2 is x=width, 3 is z=0.
	NeighborEdgeFlag = 0x8000

	vertexBucketCount = 1 << 12
	// maxMeshVertices is the vertex limit of a single PolyMesh.
	maxMeshVertices = 0xfffe
)

// PolyVertex is a mesh vertex in voxel coordinates.
type PolyVertex struct {
	X, Y, Z int
}

// Polygon is a convex polygon of a PolyMesh. Vertices and NeighborEdges
// both have NumVertsPerPoly slots; unused vertex slots hold NullId.
type Polygon struct {
	Vertices      []int
	NeighborEdges []int // polygon index, NeighborEdgeFlag|dir or NullId
	Area          Area
	RegionId      RegionId
	Flags         uint16
}

// VertexCount returns the number of used vertex slots.
func (p *Polygon) VertexCount() int {
	for i, v := range p.Vertices {
		if v == NullId {
			return i
		}
	}
	return len(p.Vertices)
}

// PolyMesh is the convex polygon mesh built from a ContourSet.
type PolyMesh struct {
	Verts           []PolyVertex
	Polys           []Polygon
	NumVertsPerPoly int
	Bounds          BBox3
	CellSize        float32
	CellHeight      float32
	BorderSize      int
	MaxEdgeError    float32
}

// meshBuilder holds a PolyMesh in flat Recast layout while it is built.
// polys has nvp vertex slots followed by nvp neighbour slots per polygon.
type meshBuilder struct {
	ctx      *Context
	nvp      int
	verts    []int // x, y, z
	polys    []int
	regs     []RegionId
	areas    []Area
	npolys   int
	maxPolys int

	firstVert []int
	nextVert  []int
}

func computeVertexHash(x, y, z int) int {
	const h1 = 0x8da6b343 // Large multiplicative constants;
	const h2 = 0xd8163841 // here arbitrarily chosen primes
	const h3 = 0xcb1ab31f
	n := uint32(h1)*uint32(x) + uint32(h2)*uint32(y) + uint32(h3)*uint32(z)
	return int(n & (vertexBucketCount - 1))
}

// addVertex returns the index of the vertex at (x, z) within 2 voxels of
// y, adding it when none exists.
func (b *meshBuilder) addVertex(x, y, z int) int {
	bucket := computeVertexHash(x, 0, z)
	for i := b.firstVert[bucket]; i != -1; i = b.nextVert[i] {
		v := b.verts[i*3 : i*3+3]
		if v[0] == x && common.Abs(v[1]-y) <= 2 && v[2] == z {
			return i
		}
	}
	// Could not find, create new.
	i := len(b.verts) / 3
	b.verts = append(b.verts, x, y, z)
	b.nextVert[i] = b.firstVert[bucket]
	b.firstVert[bucket] = i
	return i
}

func (b *meshBuilder) nverts() int { return len(b.verts) / 3 }

func (b *meshBuilder) vert(i int) []int { return b.verts[i*3 : i*3+3] }

func (b *meshBuilder) poly(i int) []int { return b.polys[i*b.nvp*2 : (i+1)*b.nvp*2] }

func countPolyVerts(p []int, nvp int) int {
	for i := 0; i < nvp; i++ {
		if p[i] == NullId {
			return i
		}
	}
	return nvp
}

// polyMergeValue returns the squared length of the edge shared by pa and
// pb, or -1 when they share no edge, the result would exceed nvp vertices
// or would not be convex. ea and eb are the shared edge in each polygon.
func polyMergeValue(pa, pb []int, verts []int, nvp int) (value, ea, eb int) {
	na := countPolyVerts(pa, nvp)
	nb := countPolyVerts(pb, nvp)

	// If the merged polygon would be too big, do not merge.
	if na+nb-2 > nvp {
		return -1, -1, -1
	}

	// Check if the polygons share an edge.
	ea, eb = -1, -1
	for i := 0; i < na; i++ {
		va0 := pa[i]
		va1 := pa[(i+1)%na]
		if va0 > va1 {
			va0, va1 = va1, va0
		}
		for j := 0; j < nb; j++ {
			vb0 := pb[j]
			vb1 := pb[(j+1)%nb]
			if vb0 > vb1 {
				vb0, vb1 = vb1, vb0
			}
			if va0 == vb0 && va1 == vb1 {
				ea = i
				eb = j
				break
			}
		}
	}

	// No common edge, cannot merge.
	if ea == -1 || eb == -1 {
		return -1, -1, -1
	}

	v := func(i int) []int { return verts[i*3 : i*3+3] }

	// Check to see if the merged polygon would be convex.
	if !common.Uleft(v(pa[(ea+na-1)%na]), v(pa[ea]), v(pb[(eb+2)%nb])) {
		return -1, -1, -1
	}
	if !common.Uleft(v(pb[(eb+nb-1)%nb]), v(pb[eb]), v(pa[(ea+2)%na])) {
		return -1, -1, -1
	}

	a := v(pa[ea])
	c := v(pa[(ea+1)%na])
	dx := a[0] - c[0]
	dz := a[2] - c[2]
	return dx*dx + dz*dz, ea, eb
}

// mergePolyVerts writes the union of pa and pb sharing edges ea/eb into pa.
func mergePolyVerts(pa, pb []int, ea, eb int, tmp []int, nvp int) {
	na := countPolyVerts(pa, nvp)
	nb := countPolyVerts(pb, nvp)

	for i := 0; i < nvp; i++ {
		tmp[i] = NullId
	}
	n := 0
	// Add pa
	for i := 0; i < na-1; i++ {
		tmp[n] = pa[(ea+1+i)%na]
		n++
	}
	// Add pb
	for i := 0; i < nb-1; i++ {
		tmp[n] = pb[(eb+1+i)%nb]
		n++
	}
	copy(pa[:nvp], tmp[:nvp])
}

// mergePolys greedily merges the npolys polygons of polys (nvp slots each)
// along their longest shared edge until no merge applies. onMerge is told
// which polygon absorbed which before the last polygon is moved into the
// freed slot.
func mergePolys(polys []int, npolys, nvp int, verts []int, tmp []int, onMerge func(pa, pb, last int)) int {
	for {
		// Find best polygons to merge.
		bestMergeVal := 0
		bestPa, bestPb, bestEa, bestEb := 0, 0, 0, 0
		for j := 0; j < npolys-1; j++ {
			pj := polys[j*nvp : (j+1)*nvp]
			for k := j + 1; k < npolys; k++ {
				pk := polys[k*nvp : (k+1)*nvp]
				v, ea, eb := polyMergeValue(pj, pk, verts, nvp)
				if v > bestMergeVal {
					bestMergeVal = v
					bestPa, bestPb, bestEa, bestEb = j, k, ea, eb
				}
			}
		}
		if bestMergeVal <= 0 {
			// Could not merge any polygons, stop.
			return npolys
		}

		// Found best, merge.
		pa := polys[bestPa*nvp : (bestPa+1)*nvp]
		pb := polys[bestPb*nvp : (bestPb+1)*nvp]
		mergePolyVerts(pa, pb, bestEa, bestEb, tmp, nvp)
		last := npolys - 1
		if onMerge != nil {
			onMerge(bestPa, bestPb, last)
		}
		if bestPb != last {
			copy(pb, polys[last*nvp:(last+1)*nvp])
		}
		npolys--
	}
}

// canRemoveVertex reports whether removing rem keeps a valid hole: at least
// three remaining edges and at most two open edges around it.
func (b *meshBuilder) canRemoveVertex(rem int) bool {
	nvp := b.nvp

	// Count number of polygons to remove.
	numTouchedVerts := 0
	numRemainingEdges := 0
	for i := 0; i < b.npolys; i++ {
		p := b.poly(i)
		nv := countPolyVerts(p, nvp)
		numRemoved := 0
		for j := 0; j < nv; j++ {
			if p[j] == rem {
				numTouchedVerts++
				numRemoved++
			}
		}
		if numRemoved > 0 {
			numRemainingEdges += nv - (numRemoved + 1)
		}
	}

	// There would be too few edges remaining to create a polygon.
	// This can happen for example when a tip of a triangle is marked
	// as deletion, but there are no other polys that share the vertex.
	// In this case, the vertex should not be removed.
	if numRemainingEdges <= 2 {
		return false
	}

	// Find edges which share the removed vertex.
	edges := make([]int, 0, numTouchedVerts*2*3)
	for i := 0; i < b.npolys; i++ {
		p := b.poly(i)
		nv := countPolyVerts(p, nvp)

		// Collect edges which touches the removed vertex.
		for j, k := 0, nv-1; j < nv; k, j = j, j+1 {
			if p[j] != rem && p[k] != rem {
				continue
			}
			// Arrange edge so that a=rem.
			a, bv := p[j], p[k]
			if bv == rem {
				a, bv = bv, a
			}
			// Check if the edge exists
			exists := false
			for m := 0; m < len(edges); m += 3 {
				if edges[m+1] == bv {
					// Exists, increment vertex share count.
					edges[m+2]++
					exists = true
				}
			}
			// Add new edge.
			if !exists {
				edges = append(edges, a, bv, 1)
			}
		}
	}

	// There should be no more than 2 open edges.
	// This catches the case that two non-adjacent polygons
	// share the removed vertex. In that case, do not remove the vertex.
	numOpenEdges := 0
	for m := 0; m < len(edges); m += 3 {
		if edges[m+2] < 2 {
			numOpenEdges++
		}
	}
	return numOpenEdges <= 2
}

func pushFront[T any](v T, arr []T) []T {
	arr = append(arr, v)
	copy(arr[1:], arr[:len(arr)-1])
	arr[0] = v
	return arr
}

// removeVertex deletes rem with every polygon touching it and fills the
// hole with new polygons.
func (b *meshBuilder) removeVertex(rem int) error {
	nvp := b.nvp

	type holeEdge struct {
		a, b int
		reg  RegionId
		area Area
	}
	var edges []holeEdge

	for i := 0; i < b.npolys; i++ {
		p := b.poly(i)
		nv := countPolyVerts(p, nvp)
		hasRem := false
		for j := 0; j < nv; j++ {
			if p[j] == rem {
				hasRem = true
			}
		}
		if !hasRem {
			continue
		}
		// Collect edges which does not touch the removed vertex.
		for j, k := 0, nv-1; j < nv; k, j = j, j+1 {
			if p[j] != rem && p[k] != rem {
				edges = append(edges, holeEdge{p[k], p[j], b.regs[i], b.areas[i]})
			}
		}
		// Remove the polygon.
		last := b.npolys - 1
		if i != last {
			copy(p[:nvp], b.poly(last)[:nvp])
		}
		lp := b.poly(last)
		for j := range lp {
			lp[j] = NullId
		}
		if i != last {
			for j := nvp; j < nvp*2; j++ {
				p[j] = NullId
			}
		}
		b.regs[i] = b.regs[last]
		b.areas[i] = b.areas[last]
		b.npolys--
		i--
	}

	// Remove vertex.
	b.verts = append(b.verts[:rem*3], b.verts[(rem+1)*3:]...)

	// Adjust indices to match the removed vertex layout.
	for i := 0; i < b.npolys; i++ {
		p := b.poly(i)
		nv := countPolyVerts(p, nvp)
		for j := 0; j < nv; j++ {
			if p[j] > rem {
				p[j]--
			}
		}
	}
	for i := range edges {
		if edges[i].a > rem {
			edges[i].a--
		}
		if edges[i].b > rem {
			edges[i].b--
		}
	}

	if len(edges) == 0 {
		return nil
	}

	// Start with one vertex, keep appending connected
	// segments to the start and end of the hole.
	hole := []int{edges[0].a}
	hreg := []RegionId{edges[0].reg}
	harea := []Area{edges[0].area}

	for len(edges) > 0 {
		match := false
		for i := 0; i < len(edges); i++ {
			e := edges[i]
			add := false
			if hole[0] == e.b {
				// The segment matches the beginning of the hole boundary.
				hole = pushFront(e.a, hole)
				hreg = pushFront(e.reg, hreg)
				harea = pushFront(e.area, harea)
				add = true
			} else if hole[len(hole)-1] == e.a {
				// The segment matches the end of the hole boundary.
				hole = append(hole, e.b)
				hreg = append(hreg, e.reg)
				harea = append(harea, e.area)
				add = true
			}
			if add {
				// The edge segment was added, remove it.
				edges[i] = edges[len(edges)-1]
				edges = edges[:len(edges)-1]
				match = true
				i--
			}
		}
		if !match {
			break
		}
	}

	// A closed loop ends where it started.
	if n := len(hole); n > 1 && hole[0] == hole[n-1] {
		hole, hreg, harea = hole[:n-1], hreg[:n-1], harea[:n-1]
	}

	nhole := len(hole)
	tris := make([]int, nhole*3)
	tverts := make([]int, nhole*4)
	thole := make([]int, nhole)

	// Generate temp vertex array for triangulation.
	for i, pi := range hole {
		v := b.vert(pi)
		tverts[i*4+0] = v[0]
		tverts[i*4+1] = v[1]
		tverts[i*4+2] = v[2]
		thole[i] = i
	}

	// Triangulate the hole.
	ntris := common.Triangulate(nhole, tverts, thole, tris)
	if ntris < 0 {
		ntris = -ntris
		b.ctx.Warn("removeVertex: triangulation of hole returned bad results", zap.Int("vertices", nhole))
	}

	// Merge the hole triangles back to polygons.
	polys := make([]int, (ntris+1)*nvp)
	for i := range polys {
		polys[i] = NullId
	}
	pregs := make([]RegionId, ntris)
	pareas := make([]Area, ntris)
	tmpPoly := polys[ntris*nvp:]

	// Build initial polygons.
	npolys := 0
	for j := 0; j < ntris; j++ {
		t := tris[j*3 : j*3+3]
		if t[0] == t[1] || t[0] == t[2] || t[1] == t[2] {
			continue
		}
		polys[npolys*nvp+0] = hole[t[0]]
		polys[npolys*nvp+1] = hole[t[1]]
		polys[npolys*nvp+2] = hole[t[2]]
		// If this polygon covers multiple region types then mark it as such.
		if hreg[t[0]] != hreg[t[1]] || hreg[t[1]] != hreg[t[2]] {
			pregs[npolys] = 0
		} else {
			pregs[npolys] = hreg[t[0]]
		}
		pareas[npolys] = harea[t[0]]
		npolys++
	}
	if npolys == 0 {
		return nil
	}

	// Merge polygons.
	if nvp > 3 {
		npolys = mergePolys(polys, npolys, nvp, b.verts, tmpPoly, func(pa, pb, last int) {
			if pregs[pa] != pregs[pb] {
				pregs[pa] = 0
			}
			pregs[pb] = pregs[last]
			pareas[pb] = pareas[last]
		})
	}

	// Store polygons.
	for i := 0; i < npolys; i++ {
		if b.npolys >= b.maxPolys {
			return fmt.Errorf("%w: too many polygons %d (max %d)", ErrTooManyPolygons, b.npolys, b.maxPolys)
		}
		p := b.poly(b.npolys)
		for j := range p {
			p[j] = NullId
		}
		copy(p[:nvp], polys[i*nvp:(i+1)*nvp])
		b.regs[b.npolys] = pregs[i]
		b.areas[b.npolys] = pareas[i]
		b.npolys++
	}
	return nil
}

// buildMeshAdjacency fills the neighbour slots of every polygon edge that
// is shared with another polygon.
func buildMeshAdjacency(polys []int, npolys, nverts, nvp int) {
	// Based on code by Eric Lengyel from:
	// https://web.archive.org/web/20080704083314/http://www.terathon.com/code/edges.php
	type edge struct {
		vert     [2]int
		polyEdge [2]int
		poly     [2]int
	}

	maxEdgeCount := npolys * nvp
	firstEdge := make([]int, nverts)
	nextEdge := make([]int, maxEdgeCount)
	edges := make([]edge, 0, maxEdgeCount)
	for i := range firstEdge {
		firstEdge[i] = NullId
	}

	endpoints := func(t []int, j int) (int, int) {
		v0 := t[j]
		if j+1 >= nvp || t[j+1] == NullId {
			return v0, t[0]
		}
		return v0, t[j+1]
	}

	for i := 0; i < npolys; i++ {
		t := polys[i*nvp*2:]
		for j := 0; j < nvp; j++ {
			if t[j] == NullId {
				break
			}
			v0, v1 := endpoints(t, j)
			if v0 < v1 {
				e := edge{vert: [2]int{v0, v1}, poly: [2]int{i, i}, polyEdge: [2]int{j, 0}}
				// Insert edge
				nextEdge[len(edges)] = firstEdge[v0]
				firstEdge[v0] = len(edges)
				edges = append(edges, e)
			}
		}
	}

	for i := 0; i < npolys; i++ {
		t := polys[i*nvp*2:]
		for j := 0; j < nvp; j++ {
			if t[j] == NullId {
				break
			}
			v0, v1 := endpoints(t, j)
			if v0 > v1 {
				for e := firstEdge[v1]; e != NullId; e = nextEdge[e] {
					ed := &edges[e]
					if ed.vert[1] == v0 && ed.poly[0] == ed.poly[1] {
						ed.poly[1] = i
						ed.polyEdge[1] = j
						break
					}
				}
			}
		}
	}

	// Store adjacency
	for _, e := range edges {
		if e.poly[0] != e.poly[1] {
			p0 := polys[e.poly[0]*nvp*2:]
			p1 := polys[e.poly[1]*nvp*2:]
			p0[nvp+e.polyEdge[0]] = e.poly[1]
			p1[nvp+e.polyEdge[1]] = e.poly[0]
		}
	}
}

// NewPolyMesh triangulates every contour, merges the triangles into convex
// polygons of at most numVertsPerPoly vertices, removes tile border
// vertices and links neighbouring polygons.
func NewPolyMesh(ctx *Context, cset *ContourSet, numVertsPerPoly int) (*PolyMesh, error) {
	ctx.StartTimer(TimerBuildPolyMesh)
	defer ctx.StopTimer(TimerBuildPolyMesh)

	if numVertsPerPoly < 3 {
		return nil, fmt.Errorf("%w: %d vertices per polygon", ErrInvalidParam, numVertsPerPoly)
	}
	nvp := numVertsPerPoly

	maxVertices := 0
	maxTris := 0
	maxVertsPerCont := 0
	for _, c := range cset.Contours {
		// Skip null contours.
		if len(c.Vertices) < 3 {
			continue
		}
		maxVertices += len(c.Vertices)
		maxTris += len(c.Vertices) - 2
		maxVertsPerCont = max(maxVertsPerCont, len(c.Vertices))
	}
	if maxVertices >= maxMeshVertices {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrTooManyVertices, maxVertices, maxMeshVertices)
	}

	b := &meshBuilder{
		ctx:       ctx,
		nvp:       nvp,
		verts:     make([]int, 0, maxVertices*3),
		polys:     make([]int, maxTris*nvp*2),
		regs:      make([]RegionId, maxTris),
		areas:     make([]Area, maxTris),
		maxPolys:  maxTris,
		firstVert: make([]int, vertexBucketCount),
		nextVert:  make([]int, maxVertices),
	}
	for i := range b.polys {
		b.polys[i] = NullId
	}
	for i := range b.firstVert {
		b.firstVert[i] = -1
	}
	vflags := make([]bool, maxVertices)

	indices := make([]int, maxVertsPerCont)
	tris := make([]int, maxVertsPerCont*3)
	polys := make([]int, (maxVertsPerCont+1)*nvp)
	tmpPoly := polys[maxVertsPerCont*nvp:]
	cverts := make([]int, 0, maxVertsPerCont*4)

	for ci, cont := range cset.Contours {
		// Skip null contours.
		if len(cont.Vertices) < 3 {
			continue
		}
		nv := len(cont.Vertices)

		// Triangulate contour
		cverts = cverts[:0]
		for _, v := range cont.Vertices {
			cverts = append(cverts, v.X, v.Y, v.Z, int(v.RegionId))
		}
		for j := 0; j < nv; j++ {
			indices[j] = j
		}
		ntris := common.Triangulate(nv, cverts, indices[:nv], tris)
		if ntris <= 0 {
			// Bad triangulation, should not happen.
			ctx.Warn("bad triangulation of contour", zap.Int("contour", ci), zap.Int("vertices", nv))
			ntris = -ntris
		}

		// Add and merge vertices.
		for j, v := range cont.Vertices {
			indices[j] = b.addVertex(v.X, v.Y, v.Z)
			if v.RegionId.Has(RegionVertexBorder) {
				// This vertex should be removed.
				vflags[indices[j]] = true
			}
		}

		// Build initial polygons.
		npolys := 0
		for j := range polys {
			polys[j] = NullId
		}
		for j := 0; j < ntris; j++ {
			t := tris[j*3 : j*3+3]
			if t[0] != t[1] && t[0] != t[2] && t[1] != t[2] {
				polys[npolys*nvp+0] = indices[t[0]]
				polys[npolys*nvp+1] = indices[t[1]]
				polys[npolys*nvp+2] = indices[t[2]]
				npolys++
			}
		}
		if npolys == 0 {
			continue
		}

		// Merge polygons.
		if nvp > 3 {
			npolys = mergePolys(polys, npolys, nvp, b.verts, tmpPoly, nil)
		}

		// Store polygons.
		for j := 0; j < npolys; j++ {
			if b.npolys >= b.maxPolys {
				return nil, fmt.Errorf("%w: too many polygons %d (max %d)", ErrTooManyPolygons, b.npolys, b.maxPolys)
			}
			p := b.poly(b.npolys)
			copy(p[:nvp], polys[j*nvp:(j+1)*nvp])
			b.regs[b.npolys] = cont.RegionId
			b.areas[b.npolys] = cont.Area
			b.npolys++
		}
	}

	// Remove edge vertices.
	for i := 0; i < b.nverts(); i++ {
		if !vflags[i] {
			continue
		}
		if !b.canRemoveVertex(i) {
			continue
		}
		if err := b.removeVertex(i); err != nil {
			return nil, fmt.Errorf("remove vertex %d: %w", i, err)
		}
		// Remove vertex. The builder already dropped it, fix up the flags.
		copy(vflags[i:], vflags[i+1:])
		i--
	}

	// Calculate adjacency.
	buildMeshAdjacency(b.polys, b.npolys, b.nverts(), nvp)

	// Find portal edges
	if cset.BorderSize > 0 {
		w := cset.Width
		l := cset.Length
		for i := 0; i < b.npolys; i++ {
			p := b.poly(i)
			for j := 0; j < nvp; j++ {
				if p[j] == NullId {
					break
				}
				// Skip connected edges.
				if p[nvp+j] != NullId {
					continue
				}
				nj := j + 1
				if nj >= nvp || p[nj] == NullId {
					nj = 0
				}
				va := b.vert(p[j])
				vb := b.vert(p[nj])
				switch {
				case va[0] == 0 && vb[0] == 0:
					p[nvp+j] = NeighborEdgeFlag | 0
				case va[2] == l && vb[2] == l:
					p[nvp+j] = NeighborEdgeFlag | 1
				case va[0] == w && vb[0] == w:
					p[nvp+j] = NeighborEdgeFlag | 2
				case va[2] == 0 && vb[2] == 0:
					p[nvp+j] = NeighborEdgeFlag | 3
				}
			}
		}
	}

	mesh := &PolyMesh{
		NumVertsPerPoly: nvp,
		Bounds:          cset.Bounds,
		CellSize:        cset.CellSize,
		CellHeight:      cset.CellHeight,
		BorderSize:      cset.BorderSize,
		MaxEdgeError:    cset.MaxError,
		Verts:           make([]PolyVertex, b.nverts()),
		Polys:           make([]Polygon, b.npolys),
	}
	for i := range mesh.Verts {
		v := b.vert(i)
		mesh.Verts[i] = PolyVertex{v[0], v[1], v[2]}
	}
	for i := range mesh.Polys {
		p := b.poly(i)
		mesh.Polys[i] = Polygon{
			Vertices:      append([]int(nil), p[:nvp]...),
			NeighborEdges: append([]int(nil), p[nvp:]...),
			Area:          b.areas[i],
			RegionId:      b.regs[i],
		}
	}

	if len(mesh.Verts) > maxMeshVertices {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrTooManyVertices, len(mesh.Verts), maxMeshVertices)
	}
	ctx.Debug("built poly mesh", zap.Int("verts", len(mesh.Verts)), zap.Int("polys", len(mesh.Polys)))
	return mesh, nil
}

// IsBoundaryEdge reports whether edge j of polygon i has no neighbour
// polygon in this mesh.
func (m *PolyMesh) IsBoundaryEdge(i, j int) bool {
	n := m.Polys[i].NeighborEdges[j]
	return n == NullId || n&NeighborEdgeFlag != 0
}
