package recast

import (
	"fmt"

	"github.com/Robmaister/SharpNav-sub000/common"
	"go.uber.org/zap"
)

// RegionId is a region number in the low 29 bits plus flag bits.
type RegionId uint32

const (
	// RegionBorder marks the reserved regions painted along a tile border.
	RegionBorder RegionId = 0x20000000
	// RegionVertexBorder marks a contour vertex on the tile border.
	RegionVertexBorder RegionId = 0x40000000
	// RegionAreaBorder marks a contour vertex where the area type changes.
	RegionAreaBorder RegionId = 0x80000000
	// RegionMask extracts the region number.
	RegionMask RegionId = 0x1fffffff
)

func (r RegionId) Id() int { return int(r & RegionMask) }

func (r RegionId) IsNull() bool { return r&RegionMask == 0 }

func (r RegionId) Has(flags RegionId) bool { return r&flags != 0 }

func (r RegionId) With(flags RegionId) RegionId { return r | flags }

func (r RegionId) Without(flags RegionId) RegionId { return r &^ flags }

// Region is the build time aggregate of all spans sharing an id.
type Region struct {
	Id          RegionId
	AreaType    Area
	SpanCount   int
	Connections []RegionId // neighbours met walking the region contour, in order
	Floors      []RegionId // regions stacked above or below
	visited     bool
	remap       bool
}

func (r *Region) isNullOrBorder() bool { return r.Id.IsNull() || r.Id.Has(RegionBorder) }

// IsConnectedToBorder reports whether the contour touches the null region.
func (r *Region) IsConnectedToBorder() bool {
	for _, c := range r.Connections {
		if c == 0 {
			return true
		}
	}
	return false
}

func (r *Region) addUniqueFloor(n RegionId) {
	for _, f := range r.Floors {
		if f == n {
			return
		}
	}
	r.Floors = append(r.Floors, n)
}

func (r *Region) removeAdjacentNeighbours() {
	// Remove adjacent duplicates.
	for i := 0; i < len(r.Connections) && len(r.Connections) > 1; {
		ni := (i + 1) % len(r.Connections)
		if r.Connections[i] == r.Connections[ni] {
			r.Connections = append(r.Connections[:i], r.Connections[i+1:]...)
		} else {
			i++
		}
	}
}

func (r *Region) replaceNeighbour(oldId, newId RegionId) {
	changed := false
	for i := range r.Connections {
		if r.Connections[i] == oldId {
			r.Connections[i] = newId
			changed = true
		}
	}
	for i := range r.Floors {
		if r.Floors[i] == oldId {
			r.Floors[i] = newId
		}
	}
	if changed {
		r.removeAdjacentNeighbours()
	}
}

// CanMergeWith reports whether other can be folded into r: same area, at
// most one shared edge and not stacked on top of each other.
func (r *Region) CanMergeWith(other *Region) bool {
	if r.AreaType != other.AreaType {
		return false
	}
	n := 0
	for _, c := range r.Connections {
		if c == other.Id {
			n++
		}
	}
	if n > 1 {
		return false
	}
	for _, f := range r.Floors {
		if f == other.Id {
			return false
		}
	}
	return true
}

// mergeWith splices other's neighbour loop into r's at the shared edge.
func (r *Region) mergeWith(other *Region) bool {
	aid := r.Id
	bid := other.Id

	acon := append([]RegionId(nil), r.Connections...)
	bcon := other.Connections

	// Find insertion point on A.
	insa := -1
	for i, c := range acon {
		if c == bid {
			insa = i
			break
		}
	}
	if insa == -1 {
		return false
	}

	// Find insertion point on B.
	insb := -1
	for i, c := range bcon {
		if c == aid {
			insb = i
			break
		}
	}
	if insb == -1 {
		return false
	}

	// Merge neighbours.
	r.Connections = r.Connections[:0]
	for i, n := 0, len(acon); i < n-1; i++ {
		r.Connections = append(r.Connections, acon[(insa+1+i)%n])
	}
	for i, n := 0, len(bcon); i < n-1; i++ {
		r.Connections = append(r.Connections, bcon[(insb+1+i)%n])
	}
	r.removeAdjacentNeighbours()

	for _, f := range other.Floors {
		r.addUniqueFloor(f)
	}
	r.SpanCount += other.SpanCount
	other.SpanCount = 0
	other.Connections = nil
	return true
}

type levelStackEntry struct {
	x, z, index int
}

type dirtyEntry struct {
	index    int
	region   RegionId
	distance int
}

// regionScratch holds the buffers of one BuildRegions call.
type regionScratch struct {
	regions []RegionId
	dists   []int
	stack   []levelStackEntry
	dirty   []dirtyEntry
}

func newRegionScratch(spanCount int) *regionScratch {
	return &regionScratch{
		regions: make([]RegionId, spanCount),
		dists:   make([]int, spanCount),
		stack:   make([]levelStackEntry, 0, 256),
	}
}

// BuildRegions partitions the walkable spans into regions with a watershed
// over the distance field. borderSize cells along each edge go to reserved
// border regions. Regions smaller than minRegionArea spans are removed and
// regions smaller than mergeRegionArea are merged into a neighbour.
func (chf *CompactHeightfield) BuildRegions(ctx *Context, borderSize, minRegionArea, mergeRegionArea int) error {
	ctx.StartTimer(TimerBuildRegions)
	defer ctx.StopTimer(TimerBuildRegions)

	if chf.Distances == nil {
		chf.BuildDistanceField(ctx)
	}

	w := chf.Width
	l := chf.Length
	sc := newRegionScratch(len(chf.Spans))

	ctx.StartTimer(TimerBuildRegionsWatershed)

	regionId := RegionId(1)
	level := (chf.MaxDistance + 1) &^ 1

	// expandIters defines how much the watershed "overflows" and
	// simplifies the regions.
	const expandIters = 8

	if borderSize > 0 {
		// Make sure border will not overflow.
		bw := min(w, borderSize)
		bl := min(l, borderSize)
		// Paint regions
		chf.paintRectRegion(0, bw, 0, l, regionId|RegionBorder, sc.regions)
		regionId++
		chf.paintRectRegion(w-bw, w, 0, l, regionId|RegionBorder, sc.regions)
		regionId++
		chf.paintRectRegion(0, w, 0, bl, regionId|RegionBorder, sc.regions)
		regionId++
		chf.paintRectRegion(0, w, l-bl, l, regionId|RegionBorder, sc.regions)
		regionId++
	}
	chf.BorderSize = borderSize

	for level > 0 {
		level = max(level-2, 0)

		// Expand current regions until no empty connected cells found.
		ctx.StartTimer(TimerBuildRegionsExpand)
		chf.expandRegions(expandIters, level, sc)
		ctx.StopTimer(TimerBuildRegionsExpand)

		// Mark new regions with ids.
		ctx.StartTimer(TimerBuildRegionsFlood)
		for z := 0; z < l; z++ {
			for x := 0; x < w; x++ {
				c := chf.Cells[x+z*w]
				for i := c.StartIndex; i < c.StartIndex+c.Count; i++ {
					if chf.Distances[i] < level || sc.regions[i] != 0 || chf.Areas[i] == AreaNull {
						continue
					}
					if chf.floodRegion(x, z, i, level, regionId, sc) {
						if regionId == RegionMask {
							ctx.StopTimer(TimerBuildRegionsFlood)
							ctx.StopTimer(TimerBuildRegionsWatershed)
							return fmt.Errorf("%w: region id overflow", ErrInternal)
						}
						regionId++
					}
				}
			}
		}
		ctx.StopTimer(TimerBuildRegionsFlood)
	}

	// Expand current regions until no empty connected cells found.
	ctx.StartTimer(TimerBuildRegionsExpand)
	chf.expandRegions(expandIters*8, 0, sc)
	ctx.StopTimer(TimerBuildRegionsExpand)

	ctx.StopTimer(TimerBuildRegionsWatershed)

	ctx.StartTimer(TimerBuildRegionsFilter)
	borderRegions := 0
	if borderSize > 0 {
		borderRegions = 4
	}
	maxRegions, err := chf.filterSmallRegions(minRegionArea, mergeRegionArea, int(regionId), borderRegions, sc.regions)
	ctx.StopTimer(TimerBuildRegionsFilter)
	if err != nil {
		return err
	}
	chf.MaxRegions = maxRegions

	// Write the result out.
	for i := range chf.Spans {
		chf.Spans[i].Region = sc.regions[i]
	}
	ctx.Debug("built regions", zap.Int("regions", maxRegions), zap.Int("spans", len(chf.Spans)))
	return nil
}

func (chf *CompactHeightfield) paintRectRegion(minx, maxx, minz, maxz int, r RegionId, regions []RegionId) {
	for z := minz; z < maxz; z++ {
		for x := minx; x < maxx; x++ {
			c := chf.Cells[x+z*chf.Width]
			for i := c.StartIndex; i < c.StartIndex+c.Count; i++ {
				if chf.Areas[i] != AreaNull {
					regions[i] = r
				}
			}
		}
	}
}

// floodRegion grows region r from span i over spans at or above level-2.
// Spans that touch another non border region are given back. It reports
// whether any span was claimed.
func (chf *CompactHeightfield) floodRegion(x, z, i, level int, r RegionId, sc *regionScratch) bool {
	area := chf.Areas[i]

	// Flood fill mark region.
	sc.stack = sc.stack[:0]
	sc.stack = append(sc.stack, levelStackEntry{x, z, i})
	sc.regions[i] = r
	sc.dists[i] = 0

	lev := max(level-2, 0)
	count := 0

	for len(sc.stack) > 0 {
		back := sc.stack[len(sc.stack)-1]
		sc.stack = sc.stack[:len(sc.stack)-1]
		cx, cz, ci := back.x, back.z, back.index
		cs := &chf.Spans[ci]

		// Check if any of the neighbours already have a valid region set.
		var ar RegionId
		for dir := 0; dir < 4; dir++ {
			// 8 connected
			if !cs.IsConnected(dir) {
				continue
			}
			ax, az, ai := chf.neighbor(cx, cz, cs, dir)
			if chf.Areas[ai] != area {
				continue
			}
			nr := sc.regions[ai]
			// Do not take borders into account.
			if nr.Has(RegionBorder) {
				continue
			}
			if nr != 0 && nr != r {
				ar = nr
				break
			}
			as := &chf.Spans[ai]
			dir2 := (dir + 1) & 0x3
			if as.IsConnected(dir2) {
				_, _, ai2 := chf.neighbor(ax, az, as, dir2)
				if chf.Areas[ai2] != area {
					continue
				}
				nr2 := sc.regions[ai2]
				if nr2 != 0 && nr2 != r {
					ar = nr2
					break
				}
			}
		}
		if ar != 0 {
			sc.regions[ci] = 0
			continue
		}
		count++

		// Expand neighbours.
		for dir := 0; dir < 4; dir++ {
			if !cs.IsConnected(dir) {
				continue
			}
			ax, az, ai := chf.neighbor(cx, cz, cs, dir)
			if chf.Areas[ai] != area {
				continue
			}
			if chf.Distances[ai] >= lev && sc.regions[ai] == 0 {
				sc.regions[ai] = r
				sc.dists[ai] = 0
				sc.stack = append(sc.stack, levelStackEntry{ax, az, ai})
			}
		}
	}
	return count > 0
}

// expandRegions grows the existing regions into unassigned spans at or
// above level, each span joining the neighbour with the smallest flood
// distance. It stops at a fixed point or after maxIter rounds.
func (chf *CompactHeightfield) expandRegions(maxIter, level int, sc *regionScratch) {
	// Find cells revealed by the raised level.
	sc.stack = sc.stack[:0]
	chf.forEachSpan(func(x, z, i int) {
		if chf.Distances[i] >= level && sc.regions[i] == 0 && chf.Areas[i] != AreaNull {
			sc.stack = append(sc.stack, levelStackEntry{x, z, i})
		}
	})

	iter := 0
	for len(sc.stack) > 0 {
		failed := 0
		sc.dirty = sc.dirty[:0]

		for j := range sc.stack {
			e := &sc.stack[j]
			if e.index < 0 {
				failed++
				continue
			}
			i := e.index
			r := sc.regions[i]
			d2 := 0xffff
			area := chf.Areas[i]
			s := &chf.Spans[i]
			for dir := 0; dir < 4; dir++ {
				if !s.IsConnected(dir) {
					continue
				}
				_, _, ai := chf.neighbor(e.x, e.z, s, dir)
				if chf.Areas[ai] != area {
					continue
				}
				nr := sc.regions[ai]
				if nr > 0 && !nr.Has(RegionBorder) {
					if sc.dists[ai]+2 < d2 {
						r = nr
						d2 = sc.dists[ai] + 2
					}
				}
			}
			if r != 0 {
				e.index = -1 // mark as used
				sc.dirty = append(sc.dirty, dirtyEntry{i, r, d2})
			} else {
				failed++
			}
		}

		// Apply the round at once so every span sees the previous state.
		for _, d := range sc.dirty {
			sc.regions[d.index] = d.region
			sc.dists[d.index] = d.distance
		}

		if failed == len(sc.stack) {
			break
		}
		iter++
		if iter >= maxIter {
			break
		}
	}
}

// isSolidEdge reports whether dir of span i leads out of its region.
func (chf *CompactHeightfield) isSolidEdge(regions []RegionId, x, z, i, dir int) bool {
	s := &chf.Spans[i]
	var r RegionId
	if s.IsConnected(dir) {
		_, _, ai := chf.neighbor(x, z, s, dir)
		r = regions[ai]
	}
	return r != regions[i]
}

// walkRegionContour walks the boundary of the region of span i starting
// with the solid edge dir and returns the sequence of neighbour regions.
func (chf *CompactHeightfield) walkRegionContour(x, z, i, dir int, regions []RegionId) ([]RegionId, error) {
	startDir := dir
	starti := i

	ss := &chf.Spans[i]
	var curReg RegionId
	if ss.IsConnected(dir) {
		_, _, ai := chf.neighbor(x, z, ss, dir)
		curReg = regions[ai]
	}
	cont := []RegionId{curReg}

	for iter := 0; iter < 40000; iter++ {
		s := &chf.Spans[i]
		if chf.isSolidEdge(regions, x, z, i, dir) {
			// Choose the edge corner
			var r RegionId
			if s.IsConnected(dir) {
				_, _, ai := chf.neighbor(x, z, s, dir)
				r = regions[ai]
			}
			if r != curReg {
				curReg = r
				cont = append(cont, curReg)
			}
			dir = (dir + 1) & 0x3 // Rotate CW
		} else {
			if !s.IsConnected(dir) {
				return nil, fmt.Errorf("%w: region contour walk left the field at (%d, %d)", ErrInternal, x, z)
			}
			x, z, i = chf.neighbor(x, z, s, dir)
			dir = (dir + 3) & 0x3 // Rotate CCW
		}
		if starti == i && startDir == dir {
			break
		}
	}

	// Remove adjacent duplicates.
	if len(cont) > 1 {
		for j := 0; j < len(cont); {
			nj := (j + 1) % len(cont)
			if cont[j] == cont[nj] {
				cont = append(cont[:j], cont[j+1:]...)
			} else {
				j++
			}
		}
	}
	return cont, nil
}

// filterSmallRegions removes and merges small regions, compresses the
// surviving ids to 1..n and returns n. Ids 1..borderRegions are the painted
// border regions.
func (chf *CompactHeightfield) filterSmallRegions(minRegionArea, mergeRegionArea, nreg, borderRegions int, srcReg []RegionId) (int, error) {
	w := chf.Width
	regions := make([]*Region, nreg)
	for i := range regions {
		regions[i] = &Region{Id: RegionId(i)}
		if i > 0 && i <= borderRegions {
			regions[i].Id |= RegionBorder
		}
	}

	// Find edge of a region and find connections around the contour.
	for z := 0; z < chf.Length; z++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+z*w]
			end := c.StartIndex + c.Count
			for i := c.StartIndex; i < end; i++ {
				r := srcReg[i]
				if r == 0 || r.Has(RegionBorder) || r.Id() >= nreg {
					continue
				}
				reg := regions[r.Id()]
				reg.SpanCount++

				// Update floors.
				for j := c.StartIndex; j < end; j++ {
					if i == j {
						continue
					}
					floorId := srcReg[j]
					if floorId == 0 || floorId.Has(RegionBorder) || floorId.Id() >= nreg {
						continue
					}
					reg.addUniqueFloor(floorId)
				}

				// Have found contour
				if len(reg.Connections) > 0 {
					continue
				}
				reg.AreaType = chf.Areas[i]

				// Check if this cell is next to a border.
				ndir := -1
				for dir := 0; dir < 4; dir++ {
					if chf.isSolidEdge(srcReg, x, z, i, dir) {
						ndir = dir
						break
					}
				}
				if ndir != -1 {
					// The cell is at border.
					// Walk around the contour to find all the neighbours.
					cont, err := chf.walkRegionContour(x, z, i, ndir, srcReg)
					if err != nil {
						return 0, err
					}
					reg.Connections = cont
				}
			}
		}
	}

	// Remove too small regions.
	stack := common.NewStack[int](32)
	var trace []int
	for i := 0; i < nreg; i++ {
		reg := regions[i]
		if reg.isNullOrBorder() || reg.SpanCount == 0 || reg.visited {
			continue
		}

		// Count the total size of all the connected regions.
		// Also keep track of the regions connects to a tile border.
		connectsToBorder := false
		spanCount := 0
		stack.Clear()
		trace = trace[:0]

		reg.visited = true
		stack.Push(i)
		for !stack.Empty() {
			ri := stack.Pop()
			creg := regions[ri]
			spanCount += creg.SpanCount
			trace = append(trace, ri)

			for _, c := range creg.Connections {
				if c.Has(RegionBorder) {
					connectsToBorder = true
					continue
				}
				nei := regions[c.Id()]
				if nei.visited || nei.isNullOrBorder() {
					continue
				}
				stack.Push(nei.Id.Id())
				nei.visited = true
			}
		}

		// If the accumulated regions size is too small, remove it.
		// Regions touching a tile border cannot be measured here.
		if spanCount < minRegionArea && !connectsToBorder {
			for _, t := range trace {
				regions[t].SpanCount = 0
				regions[t].Id = 0
			}
		}
	}

	// Merge too small regions to neighbour regions.
	for {
		mergeCount := 0
		for i := 0; i < nreg; i++ {
			reg := regions[i]
			if reg.isNullOrBorder() || reg.SpanCount == 0 {
				continue
			}
			// Check to see if the region should be merged.
			if reg.SpanCount > mergeRegionArea && reg.IsConnectedToBorder() {
				continue
			}

			// Small region with more than 1 connection, or a region that is
			// not connected to a border at all. Find the smallest neighbour
			// region that connects to this one.
			smallest := int(^uint(0) >> 1)
			mergeId := reg.Id
			for _, c := range reg.Connections {
				if c.Has(RegionBorder) {
					continue
				}
				mreg := regions[c.Id()]
				if mreg.isNullOrBorder() {
					continue
				}
				if mreg.SpanCount < smallest && reg.CanMergeWith(mreg) && mreg.CanMergeWith(reg) {
					smallest = mreg.SpanCount
					mergeId = mreg.Id
				}
			}

			// Found new id.
			if mergeId == reg.Id {
				continue
			}
			oldId := reg.Id
			target := regions[mergeId.Id()]
			if !target.mergeWith(reg) {
				continue
			}
			// Fixup regions pointing to current region.
			for _, other := range regions {
				if other.isNullOrBorder() {
					continue
				}
				// If another region was already merged into the current
				// region change its id too.
				if other.Id == oldId {
					other.Id = mergeId
				}
				other.replaceNeighbour(oldId, mergeId)
			}
			mergeCount++
		}
		if mergeCount == 0 {
			break
		}
	}

	// Compress region ids.
	for _, reg := range regions {
		reg.remap = !reg.isNullOrBorder()
	}
	next := 0
	for i := 0; i < nreg; i++ {
		if !regions[i].remap {
			continue
		}
		oldId := regions[i].Id
		next++
		newId := RegionId(next)
		for j := i; j < nreg; j++ {
			if regions[j].remap && regions[j].Id == oldId {
				regions[j].Id = newId
				regions[j].remap = false
			}
		}
	}

	// Remap regions.
	for i := range srcReg {
		if !srcReg[i].Has(RegionBorder) {
			srcReg[i] = regions[srcReg[i].Id()].Id
		}
	}
	return next, nil
}
