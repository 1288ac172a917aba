package recast

// BuildDistanceField computes the distance, in half voxel steps, of every
// span to the nearest boundary and smooths it with a box blur.
func (chf *CompactHeightfield) BuildDistanceField(ctx *Context) {
	ctx.StartTimer(TimerBuildDistanceField)
	defer ctx.StopTimer(TimerBuildDistanceField)

	src := make([]int, len(chf.Spans))
	dst := make([]int, len(chf.Spans))

	ctx.StartTimer(TimerBuildDistanceFieldDist)
	chf.MaxDistance = chf.calculateDistanceField(src)
	ctx.StopTimer(TimerBuildDistanceFieldDist)

	ctx.StartTimer(TimerBuildDistanceFieldBlur)
	chf.Distances = chf.boxBlur(1, src, dst)
	ctx.StopTimer(TimerBuildDistanceFieldBlur)
}

// calculateDistanceField fills dist and returns its largest value. A span is
// a boundary when any direction is unconnected or leads to another area.
func (chf *CompactHeightfield) calculateDistanceField(dist []int) int {
	for i := range dist {
		dist[i] = 0xffff
	}

	// Mark boundary cells.
	chf.forEachSpan(func(x, z, i int) {
		s := &chf.Spans[i]
		area := chf.Areas[i]
		nc := 0
		for dir := 0; dir < 4; dir++ {
			if s.IsConnected(dir) {
				_, _, ai := chf.neighbor(x, z, s, dir)
				if area == chf.Areas[ai] {
					nc++
				}
			}
		}
		if nc != 4 {
			dist[i] = 0
		}
	})

	chf.chamferDistances(dist, 0xffff)

	maxDist := 0
	for _, d := range dist {
		maxDist = max(maxDist, d)
	}
	return maxDist
}

// chamferDistances propagates the seeded zeros of dist with a two pass 2-3
// chamfer. Values are capped at limit.
func (chf *CompactHeightfield) chamferDistances(dist []int, limit int) {
	w := chf.Width
	relax := func(i, ni, cost int) {
		if nd := min(dist[ni]+cost, limit); nd < dist[i] {
			dist[i] = nd
		}
	}
	// step relaxes through dir and then through the diagonal dir2 of that
	// neighbour.
	step := func(x, z, i, dir, dir2 int) {
		s := &chf.Spans[i]
		if !s.IsConnected(dir) {
			return
		}
		ax, az, ai := chf.neighbor(x, z, s, dir)
		relax(i, ai, 2)
		as := &chf.Spans[ai]
		if as.IsConnected(dir2) {
			_, _, bi := chf.neighbor(ax, az, as, dir2)
			relax(i, bi, 3)
		}
	}

	// Pass 1
	for z := 0; z < chf.Length; z++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+z*w]
			for i := c.StartIndex; i < c.StartIndex+c.Count; i++ {
				step(x, z, i, 0, 3) // (-1,0) then (-1,-1)
				step(x, z, i, 3, 2) // (0,-1) then (1,-1)
			}
		}
	}

	// Pass 2
	for z := chf.Length - 1; z >= 0; z-- {
		for x := w - 1; x >= 0; x-- {
			c := chf.Cells[x+z*w]
			for i := c.StartIndex; i < c.StartIndex+c.Count; i++ {
				step(x, z, i, 2, 1) // (1,0) then (1,1)
				step(x, z, i, 1, 0) // (0,1) then (-1,1)
			}
		}
	}
}

// boxBlur writes a 3x3 average of src into dst for spans farther than thr
// voxels from a boundary and returns dst.
func (chf *CompactHeightfield) boxBlur(thr int, src, dst []int) []int {
	thr *= 2
	chf.forEachSpan(func(x, z, i int) {
		s := &chf.Spans[i]
		cd := src[i]
		if cd <= thr {
			dst[i] = cd
			return
		}
		d := cd
		for dir := 0; dir < 4; dir++ {
			if !s.IsConnected(dir) {
				d += cd * 2
				continue
			}
			ax, az, ai := chf.neighbor(x, z, s, dir)
			d += src[ai]
			as := &chf.Spans[ai]
			dir2 := (dir + 1) & 0x3
			if as.IsConnected(dir2) {
				_, _, ai2 := chf.neighbor(ax, az, as, dir2)
				d += src[ai2]
			} else {
				d += cd
			}
		}
		dst[i] = (d + 5) / 9
	})
	return dst
}
