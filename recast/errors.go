package recast

import "errors"

var (
	// ErrInvalidSpan is returned for zero-thickness or inverted spans.
	ErrInvalidSpan = errors.New("recast: span minimum must be below its maximum")
	// ErrInvalidHeightPatch is returned for a height patch with negative extents.
	ErrInvalidHeightPatch = errors.New("recast: invalid height patch bounds")
	ErrTooManyVertices    = errors.New("recast: too many vertices")
	ErrTooManyPolygons    = errors.New("recast: too many polygons")
	ErrInvalidParam       = errors.New("recast: invalid parameter")
	// ErrInternal marks a broken invariant inside the pipeline. It indicates a
	// bug or a malformed heightfield, never a normal input condition.
	ErrInternal = errors.New("recast: internal invariant violated")
)
