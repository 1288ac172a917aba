package recast

import "github.com/Robmaister/SharpNav-sub000/common"

// spanCeiling is the bottom of the span above spans[i], or SpanMaxHeight.
func spanCeiling(spans []Span, i int) int {
	if i+1 < len(spans) {
		return spans[i+1].Minimum
	}
	return SpanMaxHeight
}

// FilterLowHangingWalkableObstacles marks non walkable spans as walkable
// when their top is within walkableClimb of the walkable span below, so
// curbs and stair steps stay walkable.
func (h *Heightfield) FilterLowHangingWalkableObstacles(ctx *Context, walkableClimb int) {
	ctx.StartTimer(TimerFilterLowObstacles)
	defer ctx.StopTimer(TimerFilterLowObstacles)

	for i := range h.cells {
		spans := h.cells[i].spans
		previousWalkable := false
		previousArea := AreaNull
		for j := range spans {
			walkable := spans[j].Area != AreaNull
			// If current span is not walkable, but there is walkable
			// span just below it, mark the span above it walkable too.
			if !walkable && previousWalkable {
				if common.Abs(spans[j].Maximum-spans[j-1].Maximum) <= walkableClimb {
					spans[j].Area = previousArea
				}
			}
			// Copy walkable flag so that it cannot propagate
			// past multiple non-walkable objects.
			previousWalkable = walkable
			previousArea = spans[j].Area
		}
	}
}

// FilterLedgeSpans removes the walkable flag from spans next to a drop
// deeper than walkableClimb, and from spans on slopes too steep to climb.
func (h *Heightfield) FilterLedgeSpans(ctx *Context, walkableHeight, walkableClimb int) {
	ctx.StartTimer(TimerFilterBorder)
	defer ctx.StopTimer(TimerFilterBorder)

	w := h.Width
	l := h.Length
	for z := 0; z < l; z++ {
		for x := 0; x < w; x++ {
			spans := h.cells[x+z*w].spans
			for i := range spans {
				// Skip non walkable spans.
				if spans[i].Area == AreaNull {
					continue
				}
				bot := spans[i].Maximum
				top := spanCeiling(spans, i)

				// Find neighbours minimum height.
				minh := SpanMaxHeight
				// Min and max height of accessible neighbours.
				asmin := bot
				asmax := bot

				for dir := 0; dir < 4; dir++ {
					dx := x + common.GetDirOffsetX(dir)
					dz := z + common.GetDirOffsetY(dir)
					// Skip neighbours which are out of bounds.
					if dx < 0 || dz < 0 || dx >= w || dz >= l {
						minh = min(minh, -walkableClimb-bot)
						continue
					}

					// From minus infinity to the first span.
					ns := h.cells[dx+dz*w].spans
					nbot := -walkableClimb
					ntop := SpanMaxHeight
					if len(ns) > 0 {
						ntop = ns[0].Minimum
					}
					// Skip neighbour if the gap between the spans is too small.
					if min(top, ntop)-max(bot, nbot) > walkableHeight {
						minh = min(minh, nbot-bot)
					}

					// Rest of the spans.
					for k := range ns {
						nbot = ns[k].Maximum
						ntop = spanCeiling(ns, k)
						// Skip neighbour if the gap between the spans is too small.
						if min(top, ntop)-max(bot, nbot) > walkableHeight {
							minh = min(minh, nbot-bot)
							// Find min/max accessible neighbour height.
							if common.Abs(nbot-bot) <= walkableClimb {
								asmin = min(asmin, nbot)
								asmax = max(asmax, nbot)
							}
						}
					}
				}

				// The current span is close to a ledge if the drop to any
				// neighbour span is less than the walkableClimb.
				if minh < -walkableClimb {
					spans[i].Area = AreaNull
				} else if asmax-asmin > walkableClimb {
					// If the difference between all neighbours is too large,
					// we are at steep slope, mark the span as ledge.
					spans[i].Area = AreaNull
				}
			}
		}
	}
}

// FilterWalkableLowHeightSpans removes the walkable flag from spans that
// do not leave walkableHeight of free space above them.
func (h *Heightfield) FilterWalkableLowHeightSpans(ctx *Context, walkableHeight int) {
	ctx.StartTimer(TimerFilterWalkable)
	defer ctx.StopTimer(TimerFilterWalkable)

	for i := range h.cells {
		spans := h.cells[i].spans
		for j := range spans {
			if spanCeiling(spans, j)-spans[j].Maximum < walkableHeight {
				spans[j].Area = AreaNull
			}
		}
	}
}
