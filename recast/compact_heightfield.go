package recast

import (
	"github.com/Robmaister/SharpNav-sub000/common"
	"go.uber.org/zap"
)

// NotConnected is the connection value of a direction without a neighbour.
const NotConnected = 0xff

// maxLayers is the largest local span index a connection can hold.
const maxLayers = NotConnected - 1

// CompactCell indexes the run of open spans of one column.
type CompactCell struct {
	StartIndex int
	Count      int
}

// CompactSpan is a walkable gap above a solid span. Height is spanOpenTop
// for the topmost gap of a column.
type CompactSpan struct {
	Minimum     int
	Height      int
	connections uint32
	Region      RegionId
}

// Top is the first voxel above the gap.
func (s *CompactSpan) Top() int { return s.Minimum + s.Height }

// Connection returns the local index into the neighbour column in dir, or
// NotConnected.
func (s *CompactSpan) Connection(dir int) int {
	shift := uint(dir) * 8
	return int((s.connections >> shift) & 0xff)
}

func (s *CompactSpan) IsConnected(dir int) bool {
	return s.Connection(dir) != NotConnected
}

func (s *CompactSpan) SetConnection(dir, i int) {
	shift := uint(dir) * 8
	s.connections = (s.connections &^ (0xff << shift)) | (uint32(i&0xff) << shift)
}

func (s *CompactSpan) UnsetConnection(dir int) {
	s.SetConnection(dir, NotConnected)
}

// CompactHeightfield is the open space representation of a Heightfield.
type CompactHeightfield struct {
	Bounds         BBox3
	Width          int
	Length         int
	CellSize       float32
	CellHeight     float32
	WalkableHeight int
	WalkableClimb  int
	BorderSize     int
	MaxDistance    int
	MaxRegions     int

	Cells     []CompactCell
	Spans     []CompactSpan
	Areas     []Area
	Distances []int // nil until BuildDistanceField
}

// NewCompactHeightfield converts the walkable closed spans of hf into open
// spans and links every span to the first neighbour span, bottom up, that
// leaves walkableHeight of head room and is within walkableClimb.
func NewCompactHeightfield(ctx *Context, hf *Heightfield, walkableHeight, walkableClimb int) *CompactHeightfield {
	ctx.StartTimer(TimerBuildCompactHeightfield)
	defer ctx.StopTimer(TimerBuildCompactHeightfield)

	w := hf.Width
	l := hf.Length
	spanCount := hf.WalkableSpanCount()

	chf := &CompactHeightfield{
		Bounds:         hf.Bounds,
		Width:          w,
		Length:         l,
		CellSize:       hf.CellSize,
		CellHeight:     hf.CellHeight,
		WalkableHeight: walkableHeight,
		WalkableClimb:  walkableClimb,
		Cells:          make([]CompactCell, w*l),
		Spans:          make([]CompactSpan, 0, spanCount),
		Areas:          make([]Area, 0, spanCount),
	}
	chf.Bounds.Max[1] += float32(walkableHeight) * hf.CellHeight

	// Fill in cells and spans.
	for i := range hf.cells {
		cell := &chf.Cells[i]
		cell.StartIndex = len(chf.Spans)
		spans := hf.cells[i].spans
		for j := range spans {
			if spans[j].Area == AreaNull {
				continue
			}
			bot := spans[j].Maximum
			height := spanOpenTop
			if j+1 < len(spans) {
				height = spans[j+1].Minimum - bot
			}
			chf.Spans = append(chf.Spans, CompactSpan{Minimum: bot, Height: height, connections: 0xffffffff})
			chf.Areas = append(chf.Areas, spans[j].Area)
			cell.Count++
		}
	}

	// Find neighbour connections.
	maxLayerIndex := 0
	for z := 0; z < l; z++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+z*w]
			for i := c.StartIndex; i < c.StartIndex+c.Count; i++ {
				s := &chf.Spans[i]
				for dir := 0; dir < 4; dir++ {
					nx := x + common.GetDirOffsetX(dir)
					nz := z + common.GetDirOffsetY(dir)
					// First check that the neighbour cell is in bounds.
					if nx < 0 || nz < 0 || nx >= w || nz >= l {
						continue
					}
					nc := chf.Cells[nx+nz*w]
					for k := nc.StartIndex; k < nc.StartIndex+nc.Count; k++ {
						ns := &chf.Spans[k]
						bot := max(s.Minimum, ns.Minimum)
						top := min(s.Top(), ns.Top())
						// Check that the gap between the spans is walkable,
						// and that the climb height between the gaps is not too high.
						if top-bot >= walkableHeight && common.Abs(ns.Minimum-s.Minimum) <= walkableClimb {
							layer := k - nc.StartIndex
							if layer > maxLayers {
								maxLayerIndex = max(maxLayerIndex, layer)
								continue
							}
							s.SetConnection(dir, layer)
							break
						}
					}
				}
			}
		}
	}

	if maxLayerIndex > maxLayers {
		ctx.Warn("compact heightfield has too many layers",
			zap.Int("layers", maxLayerIndex), zap.Int("max", maxLayers))
	}
	return chf
}

func (chf *CompactHeightfield) SpanCount() int { return len(chf.Spans) }

func (chf *CompactHeightfield) Cell(x, z int) CompactCell {
	return chf.Cells[x+z*chf.Width]
}

// neighbor returns the cell coordinates and span index reached from span s
// of column (x, z) through dir. The caller checks the connection first.
func (chf *CompactHeightfield) neighbor(x, z int, s *CompactSpan, dir int) (nx, nz, ni int) {
	nx = x + common.GetDirOffsetX(dir)
	nz = z + common.GetDirOffsetY(dir)
	ni = chf.Cells[nx+nz*chf.Width].StartIndex + s.Connection(dir)
	return
}

// forEachSpan calls fn for every span with its column coordinates.
func (chf *CompactHeightfield) forEachSpan(fn func(x, z, i int)) {
	for z := 0; z < chf.Length; z++ {
		for x := 0; x < chf.Width; x++ {
			c := chf.Cells[x+z*chf.Width]
			for i := c.StartIndex; i < c.StartIndex+c.Count; i++ {
				fn(x, z, i)
			}
		}
	}
}
