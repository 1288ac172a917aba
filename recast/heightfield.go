package recast

import (
	"fmt"
	"math"

	"github.com/Robmaister/SharpNav-sub000/common"
)

// Area is the per span area type. Higher values win when spans merge.
type Area uint8

const (
	// AreaNull marks unwalkable space.
	AreaNull Area = 0
	// AreaWalkable is the default area for walkable geometry.
	AreaWalkable Area = 63
)

func (a Area) IsWalkable() bool { return a != AreaNull }

const (
	// SpanMaxHeight is the highest voxel index a closed span may reach.
	SpanMaxHeight = 0xffff
	// spanOpenTop is the height of an open span with nothing above it.
	spanOpenTop = math.MaxInt32
)

// Span is a solid range of voxels in a single column.
type Span struct {
	Minimum int
	Maximum int
	Area    Area
}

func (s Span) Height() int { return s.Maximum - s.Minimum }

// Cell is one column of a Heightfield. Its spans are sorted by Minimum
// and never touch or overlap.
type Cell struct {
	spans []Span
}

func (c *Cell) Spans() []Span { return c.spans }

func (c *Cell) SpanCount() int { return len(c.spans) }

// AddSpan inserts span, merging it with every span it overlaps or touches.
// When the merged span's top is within flagMergeThreshold of an existing
// span's top the higher area wins.
func (c *Cell) AddSpan(span Span, flagMergeThreshold int) error {
	if span.Minimum >= span.Maximum {
		return fmt.Errorf("%w: [%d, %d)", ErrInvalidSpan, span.Minimum, span.Maximum)
	}

	insertAt := len(c.spans)
	i := 0
	for i < len(c.spans) {
		cur := c.spans[i]
		if cur.Minimum > span.Maximum {
			// Current span is completely after the new span.
			insertAt = i
			break
		}
		if cur.Maximum < span.Minimum {
			// Current span is completely before the new span. Keep going.
			i++
			continue
		}
		// The new span overlaps with an existing span. Merge them.
		if cur.Minimum < span.Minimum {
			span.Minimum = cur.Minimum
		}
		if cur.Maximum > span.Maximum {
			span.Maximum = cur.Maximum
		}
		if common.Abs(span.Maximum-cur.Maximum) <= flagMergeThreshold {
			span.Area = max(span.Area, cur.Area)
		}
		// Keep going because there might be other overlapping spans that also need to be merged.
		c.spans = append(c.spans[:i], c.spans[i+1:]...)
		insertAt = i
	}
	if insertAt > len(c.spans) {
		insertAt = len(c.spans)
	}

	c.spans = append(c.spans, Span{})
	copy(c.spans[insertAt+1:], c.spans[insertAt:])
	c.spans[insertAt] = span
	return nil
}

// Heightfield is a voxel grid of solid spans over the world bounds.
type Heightfield struct {
	Bounds     BBox3
	Width      int // cells along x
	Length     int // cells along z
	Height     int // voxel rows along y
	CellSize   float32
	CellHeight float32
	cells      []Cell
}

// NewHeightfield creates an empty grid. The bounds are grown so that they
// line up with whole cells.
func NewHeightfield(bounds BBox3, cellSize, cellHeight float32) (*Heightfield, error) {
	if cellSize <= 0 || cellHeight <= 0 {
		return nil, fmt.Errorf("%w: cell size %v and height %v must be positive", ErrInvalidParam, cellSize, cellHeight)
	}
	if !bounds.IsValid() {
		return nil, fmt.Errorf("%w: empty bounds", ErrInvalidParam)
	}
	size := bounds.Size()
	hf := &Heightfield{
		Width:      max(1, int(math.Ceil(float64(size[0]/cellSize)))),
		Height:     max(1, int(math.Ceil(float64(size[1]/cellHeight)))),
		Length:     max(1, int(math.Ceil(float64(size[2]/cellSize)))),
		CellSize:   cellSize,
		CellHeight: cellHeight,
	}
	hf.Bounds.Min = bounds.Min
	hf.Bounds.Max = common.Vec3{
		bounds.Min[0] + float32(hf.Width)*cellSize,
		bounds.Min[1] + float32(hf.Height)*cellHeight,
		bounds.Min[2] + float32(hf.Length)*cellSize,
	}
	hf.cells = make([]Cell, hf.Width*hf.Length)
	return hf, nil
}

// NewHeightfieldGrid creates a heightfield with an explicit grid size, as
// used for tiles whose bounds are already cell aligned.
func NewHeightfieldGrid(width, length int, bounds BBox3, cellSize, cellHeight float32) (*Heightfield, error) {
	if width <= 0 || length <= 0 || cellSize <= 0 || cellHeight <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrInvalidParam, width, length)
	}
	hf := &Heightfield{
		Bounds:     bounds,
		Width:      width,
		Length:     length,
		Height:     max(1, int(math.Ceil(float64((bounds.Max[1]-bounds.Min[1])/cellHeight)))),
		CellSize:   cellSize,
		CellHeight: cellHeight,
	}
	hf.cells = make([]Cell, width*length)
	return hf, nil
}

func (h *Heightfield) Cell(x, z int) *Cell {
	return &h.cells[x+z*h.Width]
}

// SpanCount returns the number of solid spans in the whole field.
func (h *Heightfield) SpanCount() int {
	n := 0
	for i := range h.cells {
		n += len(h.cells[i].spans)
	}
	return n
}

// WalkableSpanCount returns the number of spans with a non null area.
func (h *Heightfield) WalkableSpanCount() int {
	n := 0
	for i := range h.cells {
		for _, s := range h.cells[i].spans {
			if s.Area != AreaNull {
				n++
			}
		}
	}
	return n
}

func (h *Heightfield) AddSpan(x, z int, span Span, flagMergeThreshold int) error {
	if x < 0 || z < 0 || x >= h.Width || z >= h.Length {
		return fmt.Errorf("%w: cell (%d, %d) outside %dx%d", ErrInvalidParam, x, z, h.Width, h.Length)
	}
	return h.Cell(x, z).AddSpan(span, flagMergeThreshold)
}
