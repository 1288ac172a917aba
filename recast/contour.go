package recast

import (
	"fmt"

	"github.com/Robmaister/SharpNav-sub000/common"
	"go.uber.org/zap"
)

// ContourBuildFlags select which raw edges are tessellated by maxEdgeLen.
type ContourBuildFlags int

const (
	ContourTessWallEdges ContourBuildFlags = 0x01 // tessellate solid (impassable) edges
	ContourTessAreaEdges ContourBuildFlags = 0x02 // tessellate edges between areas
)

// ContourVertex is a contour corner in voxel coordinates. RegionId is the
// region on the far side of the edge starting at the vertex, with
// RegionAreaBorder and RegionVertexBorder flags.
type ContourVertex struct {
	X, Y, Z  int
	RegionId RegionId
}

// Contour is the simplified outline of one region.
type Contour struct {
	Vertices    []ContourVertex
	RawVertices []ContourVertex
	RegionId    RegionId
	Area        Area
}

func (c *Contour) IsNull() bool { return len(c.Vertices) < 3 }

// Area2D returns twice the signed xz area. Outlines are positive, holes negative.
func (c *Contour) Area2D() int {
	area := 0
	for i, j := 0, len(c.Vertices)-1; i < len(c.Vertices); j, i = i, i+1 {
		vi := &c.Vertices[i]
		vj := &c.Vertices[j]
		area += vi.X*vj.Z - vj.X*vi.Z
	}
	return (area + 1) / 2
}

// ileft reports whether c is right of or on the directed line a->b.
func ileft(a, b, c *ContourVertex) bool {
	return (b.X-a.X)*(c.Z-a.Z)-(c.X-a.X)*(b.Z-a.Z) <= 0
}

// closestIndices finds the closest pair of vertices va of c and vb of other
// such that vb is in front of va.
func (c *Contour) closestIndices(other *Contour) (ia, ib int) {
	closest := int(^uint(0) >> 1)
	ia, ib = -1, -1
	na := len(c.Vertices)
	for i := 0; i < na; i++ {
		va := &c.Vertices[i]
		van := &c.Vertices[(i+1)%na]
		vap := &c.Vertices[(i+na-1)%na]
		for j := range other.Vertices {
			vb := &other.Vertices[j]
			// vb must be "infront" of va.
			if ileft(vap, va, vb) && ileft(va, van, vb) {
				dx := vb.X - va.X
				dz := vb.Z - va.Z
				if d := dx*dx + dz*dz; d < closest {
					ia, ib = i, j
					closest = d
				}
			}
		}
	}
	return
}

// MergeWith splices other into c at their closest visible vertex pair and
// empties other. It returns false when no such pair exists.
func (c *Contour) MergeWith(other *Contour) bool {
	ia, ib := c.closestIndices(other)
	if ia == -1 || ib == -1 {
		return false
	}
	na := len(c.Vertices)
	nb := len(other.Vertices)
	verts := make([]ContourVertex, 0, na+nb+2)
	// Copy contour A.
	for i := 0; i <= na; i++ {
		verts = append(verts, c.Vertices[(ia+i)%na])
	}
	// Copy contour B.
	for i := 0; i <= nb; i++ {
		verts = append(verts, other.Vertices[(ib+i)%nb])
	}
	c.Vertices = verts
	other.Vertices = nil
	other.RawVertices = nil
	return true
}

// ContourSet holds the contours of every region of a CompactHeightfield.
type ContourSet struct {
	Contours   []*Contour
	Bounds     BBox3
	CellSize   float32
	CellHeight float32
	Width      int
	Length     int
	BorderSize int
	MaxError   float32
}

// NewContourSet traces and simplifies the outline of every region. Raw
// points may deviate at most maxError voxels from the simplified edges, and
// edges selected by flags are split when longer than maxEdgeLen.
func NewContourSet(ctx *Context, chf *CompactHeightfield, maxError float32, maxEdgeLen int, flags ContourBuildFlags) (*ContourSet, error) {
	ctx.StartTimer(TimerBuildContours)
	defer ctx.StopTimer(TimerBuildContours)

	w := chf.Width
	l := chf.Length
	borderSize := chf.BorderSize

	cset := &ContourSet{
		Bounds:     chf.Bounds,
		CellSize:   chf.CellSize,
		CellHeight: chf.CellHeight,
		Width:      w - borderSize*2,
		Length:     l - borderSize*2,
		BorderSize: borderSize,
		MaxError:   maxError,
		Contours:   make([]*Contour, 0, max(chf.MaxRegions, 8)),
	}
	if borderSize > 0 {
		// If the heightfield was build with bordersize, remove the offset.
		pad := float32(borderSize) * chf.CellSize
		cset.Bounds.Min[0] += pad
		cset.Bounds.Min[2] += pad
		cset.Bounds.Max[0] -= pad
		cset.Bounds.Max[2] -= pad
	}

	// Mark boundaries.
	edges := make([]uint8, len(chf.Spans))
	chf.forEachSpan(func(x, z, i int) {
		s := &chf.Spans[i]
		if s.Region.IsNull() || s.Region.Has(RegionBorder) {
			return
		}
		var res uint8
		for dir := 0; dir < 4; dir++ {
			var r RegionId
			if s.IsConnected(dir) {
				_, _, ai := chf.neighbor(x, z, s, dir)
				r = chf.Spans[ai].Region
			}
			if r == s.Region {
				res |= 1 << dir
			}
		}
		edges[i] = res ^ 0xf // Inverse, mark non connected edges.
	})

	verts := make([]int, 0, 256)
	simplified := make([]int, 0, 64)

	for z := 0; z < l; z++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+z*w]
			for i := c.StartIndex; i < c.StartIndex+c.Count; i++ {
				if edges[i] == 0 || edges[i] == 0xf {
					edges[i] = 0
					continue
				}
				reg := chf.Spans[i].Region
				if reg.IsNull() || reg.Has(RegionBorder) {
					continue
				}
				area := chf.Areas[i]

				ctx.StartTimer(TimerBuildContoursTrace)
				var err error
				verts, err = chf.walkContour(x, z, i, edges, verts[:0])
				ctx.StopTimer(TimerBuildContoursTrace)
				if err != nil {
					return nil, err
				}

				ctx.StartTimer(TimerBuildContoursSimplify)
				simplified = simplifyContour(verts, simplified[:0], maxError, maxEdgeLen, flags)
				simplified = removeDegenerateSegments(simplified)
				ctx.StopTimer(TimerBuildContoursSimplify)

				// Create contour.
				if len(simplified)/4 < 3 {
					continue
				}
				cont := &Contour{
					Vertices:    toContourVertices(simplified, borderSize),
					RawVertices: toContourVertices(verts, borderSize),
					RegionId:    reg,
					Area:        area,
				}
				cset.Contours = append(cset.Contours, cont)
			}
		}
	}

	cset.mergeHoles(ctx)
	return cset, nil
}

// toContourVertices converts stride 4 points and removes the border offset.
func toContourVertices(points []int, borderSize int) []ContourVertex {
	out := make([]ContourVertex, len(points)/4)
	for i := range out {
		out[i] = ContourVertex{
			X:        points[i*4+0] - borderSize,
			Y:        points[i*4+1],
			Z:        points[i*4+2] - borderSize,
			RegionId: RegionId(uint32(points[i*4+3])),
		}
	}
	return out
}

// mergeHoles joins every backwards wound contour into the outline of its
// region.
func (cset *ContourSet) mergeHoles(ctx *Context) {
	conts := cset.Contours
	for i, cont := range conts {
		// If the contour is wound backwards, it is a hole.
		if cont.IsNull() || cont.Area2D() >= 0 {
			continue
		}
		var target *Contour
		for j, mcont := range conts {
			if i == j || mcont.IsNull() || mcont.RegionId != cont.RegionId {
				continue
			}
			if mcont.Area2D() > 0 {
				target = mcont
				break
			}
		}
		if target == nil {
			ctx.Warn("could not find merge target for bad contour", zap.Int("index", i),
				zap.Uint32("region", uint32(cont.RegionId)))
			continue
		}
		if !target.MergeWith(cont) {
			ctx.Warn("failed to find merge points for contour", zap.Int("index", i))
		}
	}

	kept := conts[:0]
	for _, cont := range conts {
		if !cont.IsNull() {
			kept = append(kept, cont)
		}
	}
	cset.Contours = kept
}

// cornerHeight returns the floor height at the corner of dir and dir+1 of
// span i, and whether the corner is a tile border vertex.
func (chf *CompactHeightfield) cornerHeight(x, z, i, dir int) (int, bool) {
	s := &chf.Spans[i]
	ch := s.Minimum
	dirp := (dir + 1) & 0x3

	// Combine region and area codes in order to prevent
	// border vertices which are in between two areas to be removed.
	code := func(i int) uint64 {
		return uint64(chf.Spans[i].Region) | uint64(chf.Areas[i])<<32
	}
	var regs [4]uint64
	regs[0] = code(i)

	if s.IsConnected(dir) {
		ax, az, ai := chf.neighbor(x, z, s, dir)
		as := &chf.Spans[ai]
		ch = max(ch, as.Minimum)
		regs[1] = code(ai)
		if as.IsConnected(dirp) {
			_, _, ai2 := chf.neighbor(ax, az, as, dirp)
			ch = max(ch, chf.Spans[ai2].Minimum)
			regs[2] = code(ai2)
		}
	}
	if s.IsConnected(dirp) {
		ax, az, ai := chf.neighbor(x, z, s, dirp)
		as := &chf.Spans[ai]
		ch = max(ch, as.Minimum)
		regs[3] = code(ai)
		if as.IsConnected(dir) {
			_, _, ai2 := chf.neighbor(ax, az, as, dir)
			ch = max(ch, chf.Spans[ai2].Minimum)
			regs[2] = code(ai2)
		}
	}

	// Check if the vertex is special edge vertex, these vertices will be removed later.
	const border = uint64(RegionBorder)
	for j := 0; j < 4; j++ {
		a := j
		b := (j + 1) & 0x3
		c := (j + 2) & 0x3
		d := (j + 3) & 0x3

		// The vertex is a border vertex there are two same exterior cells in a row,
		// followed by two interior cells and none of the regions are out of bounds.
		twoSameExts := regs[a]&regs[b]&border != 0 && regs[a] == regs[b]
		twoInts := (regs[c]|regs[d])&border == 0
		intsSameArea := regs[c]>>32 == regs[d]>>32
		noZeros := regs[a] != 0 && regs[b] != 0 && regs[c] != 0 && regs[d] != 0
		if twoSameExts && twoInts && intsSameArea && noZeros {
			return ch, true
		}
	}
	return ch, false
}

// walkContour traces the region boundary clockwise from span i, appending
// (x, y, z, region info) corners to points. Visited edges are cleared from
// edges.
func (chf *CompactHeightfield) walkContour(x, z, i int, edges []uint8, points []int) ([]int, error) {
	// Choose the first non-connected edge
	dir := 0
	for edges[i]&(1<<dir) == 0 {
		dir++
	}

	startDir := dir
	starti := i
	area := chf.Areas[i]

	for iter := 0; iter < 40000; iter++ {
		s := &chf.Spans[i]
		if edges[i]&(1<<dir) != 0 {
			// Choose the edge corner
			py, isBorderVertex := chf.cornerHeight(x, z, i, dir)
			px, pz := x, z
			switch dir {
			case 0:
				pz++
			case 1:
				px++
				pz++
			case 2:
				px++
			}
			var r RegionId
			isAreaBorder := false
			if s.IsConnected(dir) {
				_, _, ai := chf.neighbor(x, z, s, dir)
				r = chf.Spans[ai].Region
				if area != chf.Areas[ai] {
					isAreaBorder = true
				}
			}
			if isBorderVertex {
				r |= RegionVertexBorder
			}
			if isAreaBorder {
				r |= RegionAreaBorder
			}
			points = append(points, px, py, pz, int(r))

			edges[i] &^= 1 << dir // Remove visited edges
			dir = (dir + 1) & 0x3 // Rotate CW
		} else {
			if !s.IsConnected(dir) {
				return points, fmt.Errorf("%w: contour walk left the field at (%d, %d)", ErrInternal, x, z)
			}
			x, z, i = chf.neighbor(x, z, s, dir)
			dir = (dir + 3) & 0x3 // Rotate CCW
		}
		if starti == i && startDir == dir {
			break
		}
	}
	return points, nil
}

func regionOf(info int) RegionId { return RegionId(uint32(info)) }

// insertPoint inserts raw point index maxi of points after simplified
// vertex i.
func insertPoint(simplified, points []int, i, maxi int) []int {
	simplified = append(simplified, 0, 0, 0, 0)
	copy(simplified[(i+2)*4:], simplified[(i+1)*4:len(simplified)-4])
	simplified[(i+1)*4+0] = points[maxi*4+0]
	simplified[(i+1)*4+1] = points[maxi*4+1]
	simplified[(i+1)*4+2] = points[maxi*4+2]
	simplified[(i+1)*4+3] = maxi
	return simplified
}

// simplifyContour reduces the raw points to the mandatory region change
// vertices plus every point deviating more than maxError. The fourth value
// of a simplified point is its raw index until the final pass.
func simplifyContour(points, simplified []int, maxError float32, maxEdgeLen int, flags ContourBuildFlags) []int {
	// Add initial points.
	hasConnections := false
	for i := 0; i < len(points); i += 4 {
		if !regionOf(points[i+3]).IsNull() {
			hasConnections = true
			break
		}
	}

	pn := len(points) / 4
	if hasConnections {
		// The contour has some portals to other regions.
		// Add a new point to every location where the region changes.
		for i := 0; i < pn; i++ {
			ii := (i + 1) % pn
			ri := regionOf(points[i*4+3])
			rii := regionOf(points[ii*4+3])
			differentRegs := ri&(RegionMask|RegionBorder) != rii&(RegionMask|RegionBorder)
			areaBorders := ri&RegionAreaBorder != rii&RegionAreaBorder
			if differentRegs || areaBorders {
				simplified = append(simplified, points[i*4+0], points[i*4+1], points[i*4+2], i)
			}
		}
	}

	if len(simplified) == 0 {
		// If there is no connections at all,
		// create some initial points for the simplification process.
		// Find lower-left and upper-right vertices of the contour.
		lli, uri := 0, 0
		for i := 1; i < pn; i++ {
			x, z := points[i*4+0], points[i*4+2]
			if x < points[lli*4] || (x == points[lli*4] && z < points[lli*4+2]) {
				lli = i
			}
			if x > points[uri*4] || (x == points[uri*4] && z > points[uri*4+2]) {
				uri = i
			}
		}
		simplified = append(simplified,
			points[lli*4+0], points[lli*4+1], points[lli*4+2], lli,
			points[uri*4+0], points[uri*4+1], points[uri*4+2], uri)
	}

	// Add points until all raw points are within
	// error tolerance to the simplified shape.
	maxErrorSq := maxError * maxError
	for i := 0; i < len(simplified)/4; {
		ii := (i + 1) % (len(simplified) / 4)

		ax, az, ai := simplified[i*4+0], simplified[i*4+2], simplified[i*4+3]
		bx, bz, bi := simplified[ii*4+0], simplified[ii*4+2], simplified[ii*4+3]

		// Find maximum deviation from the segment.
		var maxd float32
		maxi := -1
		var ci, cinc, endi int

		// Traverse the segment in lexilogical order so that the
		// max deviation is calculated similarly when traversing
		// opposite segments.
		if bx > ax || (bx == ax && bz > az) {
			cinc = 1
			ci = (ai + cinc) % pn
			endi = bi
		} else {
			cinc = pn - 1
			ci = (bi + cinc) % pn
			endi = ai
			ax, bx = bx, ax
			az, bz = bz, az
		}

		// Tessellate only outer edges or edges between areas.
		rci := regionOf(points[ci*4+3])
		if rci.IsNull() || rci.Has(RegionAreaBorder) {
			for ci != endi {
				d := common.DistancePtSegInt(points[ci*4+0], points[ci*4+2], ax, az, bx, bz)
				if d > maxd {
					maxd = d
					maxi = ci
				}
				ci = (ci + cinc) % pn
			}
		}

		// If the max deviation is larger than accepted error,
		// add new point, else continue to next segment.
		if maxi != -1 && maxd > maxErrorSq {
			simplified = insertPoint(simplified, points, i, maxi)
		} else {
			i++
		}
	}

	// Split too long edges.
	if maxEdgeLen > 0 && flags&(ContourTessWallEdges|ContourTessAreaEdges) != 0 {
		for i := 0; i < len(simplified)/4; {
			ii := (i + 1) % (len(simplified) / 4)

			ax, az, ai := simplified[i*4+0], simplified[i*4+2], simplified[i*4+3]
			bx, bz, bi := simplified[ii*4+0], simplified[ii*4+2], simplified[ii*4+3]

			maxi := -1
			ci := (ai + 1) % pn
			rci := regionOf(points[ci*4+3])

			// Tessellate only outer edges or edges between areas.
			tess := false
			// Wall edges.
			if flags&ContourTessWallEdges != 0 && rci.IsNull() {
				tess = true
			}
			// Edges between areas.
			if flags&ContourTessAreaEdges != 0 && rci.Has(RegionAreaBorder) {
				tess = true
			}

			if tess {
				dx := bx - ax
				dz := bz - az
				if dx*dx+dz*dz > maxEdgeLen*maxEdgeLen {
					// Round based on the segments in lexilogical order so that the
					// max tesselation is consistent regardless in which direction
					// segments are traversed.
					n := bi - ai
					if bi < ai {
						n = bi + pn - ai
					}
					if n > 1 {
						if bx > ax || (bx == ax && bz > az) {
							maxi = (ai + n/2) % pn
						} else {
							maxi = (ai + (n+1)/2) % pn
						}
					}
				}
			}

			if maxi != -1 {
				simplified = insertPoint(simplified, points, i, maxi)
			} else {
				i++
			}
		}
	}

	for i := 0; i < len(simplified)/4; i++ {
		// The edge vertex flag is take from the current raw point,
		// and the neighbour region is take from the next raw point.
		ai := (simplified[i*4+3] + 1) % pn
		bi := simplified[i*4+3]
		v := regionOf(points[ai*4+3])&(RegionMask|RegionBorder|RegionAreaBorder) | regionOf(points[bi*4+3])&RegionVertexBorder
		simplified[i*4+3] = int(v)
	}
	return simplified
}

// removeDegenerateSegments drops adjacent vertices that are equal on the
// xz plane.
func removeDegenerateSegments(simplified []int) []int {
	npts := len(simplified) / 4
	for i := 0; i < npts; i++ {
		ni := common.Next(i, npts)
		if simplified[i*4] == simplified[ni*4] && simplified[i*4+2] == simplified[ni*4+2] {
			// Degenerate segment, remove.
			simplified = append(simplified[:i*4], simplified[(i+1)*4:]...)
			npts--
		}
	}
	return simplified
}
