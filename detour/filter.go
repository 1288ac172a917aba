package detour

import "github.com/Robmaister/SharpNav-sub000/common"

// QueryFilter decides which polygons a query may visit and what moving
// across them costs.
type QueryFilter interface {
	// PassFilter reports whether the polygon may be visited.
	PassFilter(ref PolyRef, tile *MeshTile, poly *Poly) bool

	// Cost returns the cost to move from pa to pb on the cur polygon. The
	// previous and next polygons are zero when they do not exist.
	Cost(pa, pb common.Vec3,
		prevRef PolyRef, prevTile *MeshTile, prevPoly *Poly,
		curRef PolyRef, curTile *MeshTile, curPoly *Poly,
		nextRef PolyRef, nextTile *MeshTile, nextPoly *Poly) float32
}

// StandardQueryFilter passes polygons with at least one include flag and
// no exclude flag and scales distances by a per area cost.
type StandardQueryFilter struct {
	areaCost     [MaxAreas]float32
	includeFlags uint16
	excludeFlags uint16
}

// NewStandardQueryFilter includes every polygon at unit cost.
func NewStandardQueryFilter() *StandardQueryFilter {
	f := &StandardQueryFilter{includeFlags: 0xffff}
	for i := range f.areaCost {
		f.areaCost[i] = 1
	}
	return f
}

func (f *StandardQueryFilter) PassFilter(_ PolyRef, _ *MeshTile, poly *Poly) bool {
	return poly.Flags&f.includeFlags != 0 && poly.Flags&f.excludeFlags == 0
}

func (f *StandardQueryFilter) Cost(pa, pb common.Vec3,
	_ PolyRef, _ *MeshTile, _ *Poly,
	_ PolyRef, _ *MeshTile, curPoly *Poly,
	_ PolyRef, _ *MeshTile, _ *Poly) float32 {
	return pa.Sub(pb).Len() * f.areaCost[curPoly.Area()]
}

// AreaCost returns the traversal cost of the area.
func (f *StandardQueryFilter) AreaCost(i int) float32 { return f.areaCost[i] }

// SetAreaCost sets the traversal cost of the area. [Limit: < #MaxAreas]
func (f *StandardQueryFilter) SetAreaCost(i int, cost float32) { f.areaCost[i] = cost }

func (f *StandardQueryFilter) IncludeFlags() uint16 { return f.includeFlags }

func (f *StandardQueryFilter) SetIncludeFlags(flags uint16) { f.includeFlags = flags }

func (f *StandardQueryFilter) ExcludeFlags() uint16 { return f.excludeFlags }

func (f *StandardQueryFilter) SetExcludeFlags(flags uint16) { f.excludeFlags = flags }
