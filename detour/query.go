package detour

import (
	"fmt"
	"math"

	"github.com/Robmaister/SharpNav-sub000/common"
)

// hScale is the search heuristic scale.
const hScale = 0.999

const (
	tinyNodePoolSize = 64
	tinyNodePoolHash = 32
	// maxQueryTiles caps the tile layers visited per grid cell.
	maxQueryTiles = 32
)

// slicedQuery is the state of a sliced path search.
type slicedQuery struct {
	status           Status
	lastBestNode     *Node
	lastBestNodeCost float32
	startRef, endRef PolyRef
	startPos, endPos common.Vec3
	filter           QueryFilter
}

// NavMeshQuery runs pathfinding and spatial queries against a TiledNavMesh.
//
// A query owns its search state and must not be used by two goroutines at
// once. Several queries may share one mesh.
type NavMeshQuery struct {
	nav          *TiledNavMesh
	nodePool     *NodePool
	tinyNodePool *NodePool
	openList     *NodeQueue
	query        slicedQuery
	polyBuf      []PolyRef
}

// NewNavMeshQuery creates a query over nav that can visit up to maxNodes
// polygons per search. [Limit: 0 < maxNodes <= 65535]
func NewNavMeshQuery(nav *TiledNavMesh, maxNodes int) (*NavMeshQuery, error) {
	if nav == nil {
		return nil, fmt.Errorf("detour: query without mesh: %s", InvalidParam)
	}
	if maxNodes <= 0 || maxNodes > math.MaxUint16 {
		return nil, fmt.Errorf("detour: max nodes %d: %s", maxNodes, InvalidParam)
	}
	hashSize := int(common.NextPow2(uint32(maxNodes / 4)))
	if hashSize == 0 {
		hashSize = 1
	}
	return &NavMeshQuery{
		nav:          nav,
		nodePool:     NewNodePool(maxNodes, hashSize),
		tinyNodePool: NewNodePool(tinyNodePoolSize, tinyNodePoolHash),
		openList:     NewNodeQueue(maxNodes),
	}, nil
}

// AttachedNavMesh returns the mesh the query runs on.
func (q *NavMeshQuery) AttachedNavMesh() *TiledNavMesh { return q.nav }

// NodePool returns the node pool of the last search.
func (q *NavMeshQuery) NodePool() *NodePool { return q.nodePool }

// IsValidPolyRef reports whether ref is valid and passes filter.
func (q *NavMeshQuery) IsValidPolyRef(ref PolyRef, filter QueryFilter) bool {
	tile, poly, status := q.nav.TileAndPolyByRef(ref)
	if status.Failed() {
		return false
	}
	// If cannot pass filter, assume flags has changed and boundary is invalid.
	return filter.PassFilter(ref, tile, poly)
}

// IsInClosedList reports whether the last search closed ref.
func (q *NavMeshQuery) IsInClosedList(ref PolyRef) bool {
	for _, n := range q.nodePool.FindNodes(ref, maxStatesPerNode) {
		if n.Flags&NodeClosed != 0 {
			return true
		}
	}
	return false
}

// ClosestPointOnPoly returns the point on the polygon closest to pos, with
// the height of the detail mesh, and whether pos lies over the polygon.
func (q *NavMeshQuery) ClosestPointOnPoly(ref PolyRef, pos common.Vec3) (common.Vec3, bool, Status) {
	if !q.nav.IsValidPolyRef(ref) || !common.Visfinite(pos[:]) {
		return pos, false, Failure | InvalidParam
	}
	closest, over := q.nav.ClosestPointOnPoly(ref, pos)
	return closest, over, Success
}

// ClosestPointOnPolyBoundary returns pos when it is inside the polygon in
// the xz plane, else the closest point on the polygon boundary. The
// detail mesh is not used so the height is that of the polygon edges.
func (q *NavMeshQuery) ClosestPointOnPolyBoundary(ref PolyRef, pos common.Vec3) (common.Vec3, Status) {
	tile, poly, status := q.nav.TileAndPolyByRef(ref)
	if status.Failed() || !common.Visfinite(pos[:]) {
		return pos, Failure | InvalidParam
	}

	// Collect vertices.
	var vbuf [MaxVertsPerPolygon * 3]float32
	var edged, edget [MaxVertsPerPolygon]float32
	verts := tile.polyVerts(poly, vbuf[:0])
	nv := int(poly.VertCount)

	if distancePtPolyEdgesSqr(pos[:], verts, nv, edged[:], edget[:]) {
		// Point is inside the polygon, return the point.
		return pos, Success
	}
	// Point is outside the polygon, clamp to nearest edge.
	imin := 0
	for i := 1; i < nv; i++ {
		if edged[i] < edged[imin] {
			imin = i
		}
	}
	var closest common.Vec3
	common.Vlerp(closest[:], verts[imin*3:], verts[((imin+1)%nv)*3:], edget[imin])
	return closest, Success
}

// GetPolyHeight returns the height of the polygon at the xz position of
// pos. It fails when pos is outside the polygon.
func (q *NavMeshQuery) GetPolyHeight(ref PolyRef, pos common.Vec3) (float32, Status) {
	tile, poly, status := q.nav.TileAndPolyByRef(ref)
	if status.Failed() || !common.Visfinite2D(pos[:]) {
		return 0, Failure | InvalidParam
	}
	// Off-mesh connections interpolate along the connection.
	if poly.Type() == PolyTypeOffMeshConnection {
		v0 := tile.vert(poly.Verts[0])
		v1 := tile.vert(poly.Verts[1])
		_, t := distancePtSegSqr2D(pos[:], v0, v1)
		return v0[1] + (v1[1]-v0[1])*t, Success
	}
	if h, ok := polyHeight(tile, poly, int(q.nav.ids.DecodePoly(ref)), pos); ok {
		return h, Success
	}
	return 0, Failure | InvalidParam
}

// queryPolygons collects every polygon passing filter whose bounds overlap
// the box around center.
func (q *NavMeshQuery) queryPolygons(center, halfExtents common.Vec3, filter QueryFilter) ([]PolyRef, Status) {
	if !common.Visfinite(center[:]) || !common.Visfinite(halfExtents[:]) || filter == nil {
		return nil, Failure | InvalidParam
	}
	bmin := center.Sub(halfExtents)
	bmax := center.Add(halfExtents)

	// Find tiles the query touches.
	minx, miny := q.nav.CalcTileLoc(bmin)
	maxx, maxy := q.nav.CalcTileLoc(bmax)

	polys := q.polyBuf[:0]
	for y := miny; y <= maxy; y++ {
		for x := minx; x <= maxx; x++ {
			for _, tile := range q.nav.TilesAt(x, y, maxQueryTiles) {
				polys = q.nav.queryPolygonsInTile(tile, bmin, bmax, filter, polys, math.MaxInt)
			}
		}
	}
	q.polyBuf = polys
	return polys, Success
}

// QueryPolygons returns up to maxPolys polygons passing filter whose bounds
// overlap the box around center. BufferTooSmall is set when more overlap.
// /  @param[in]		center		The center of the search box. [(x, y, z)]
// /  @param[in]		halfExtents	The search distance along each axis. [(x, y, z)]
// /  @param[in]		filter		The polygon filter to apply to the query.
// /  @param[in]		maxPolys	The maximum number of polygons the search will return. [Limit: > 0]
func (q *NavMeshQuery) QueryPolygons(center, halfExtents common.Vec3, filter QueryFilter, maxPolys int) ([]PolyRef, Status) {
	if maxPolys <= 0 {
		return nil, Failure | InvalidParam
	}
	polys, status := q.queryPolygons(center, halfExtents, filter)
	if status.Failed() {
		return nil, status
	}
	if len(polys) > maxPolys {
		return append([]PolyRef(nil), polys[:maxPolys]...), Success | BufferTooSmall
	}
	return append([]PolyRef(nil), polys...), Success
}

// NearestPoly is the result of FindNearestPoly.
type NearestPoly struct {
	Ref   PolyRef
	Point common.Vec3 // closest point on the polygon
	// OverPoly is set when the center lies over the polygon in the xz plane.
	OverPoly bool
}

// FindNearestPoly finds the polygon nearest to center within the box of
// halfExtents around it. A zero Ref with a success status means no polygon
// is in range.
func (q *NavMeshQuery) FindNearestPoly(center, halfExtents common.Vec3, filter QueryFilter) (NearestPoly, Status) {
	polys, status := q.queryPolygons(center, halfExtents, filter)
	if status.Failed() {
		return NearestPoly{}, status
	}

	var best NearestPoly
	nearestDistanceSqr := float32(math.MaxFloat32)
	for _, ref := range polys {
		tile, _ := q.nav.tileAndPolyByRefUnsafe(ref)
		closestPtPoly, posOverPoly := q.nav.ClosestPointOnPoly(ref, center)

		// If a point is directly over a polygon and closer than
		// climb height, favor that instead of straight line nearest point.
		diff := center.Sub(closestPtPoly)
		var d float32
		if posOverPoly {
			d = common.Abs(diff[1]) - tile.Header.WalkableClimb
			if d > 0 {
				d *= d
			} else {
				d = 0
			}
		} else {
			d = diff.Dot(diff)
		}
		if d < nearestDistanceSqr {
			nearestDistanceSqr = d
			best = NearestPoly{Ref: ref, Point: closestPtPoly, OverPoly: posOverPoly}
		}
	}
	return best, Success
}

// GetPortalPoints returns the left and right points of the portal between
// two adjacent polygons, and their types.
func (q *NavMeshQuery) GetPortalPoints(from, to PolyRef) (left, right common.Vec3, fromType, toType PolyType, status Status) {
	fromTile, fromPoly, status := q.nav.TileAndPolyByRef(from)
	if status.Failed() {
		return left, right, 0, 0, Failure | InvalidParam
	}
	toTile, toPoly, status := q.nav.TileAndPolyByRef(to)
	if status.Failed() {
		return left, right, 0, 0, Failure | InvalidParam
	}
	left, right, status = q.portalPoints(from, fromPoly, fromTile, to, toPoly, toTile)
	return left, right, fromPoly.Type(), toPoly.Type(), status
}

func (q *NavMeshQuery) portalPoints(from PolyRef, fromPoly *Poly, fromTile *MeshTile,
	to PolyRef, toPoly *Poly, toTile *MeshTile) (left, right common.Vec3, status Status) {
	// Find the link that points to the 'to' polygon.
	var link *Link
	for i := fromPoly.FirstLink; i != NullLink; i = fromTile.Links[i].Next {
		if fromTile.Links[i].Ref == to {
			link = &fromTile.Links[i]
			break
		}
	}
	if link == nil {
		return left, right, Failure | InvalidParam
	}

	// Handle off-mesh connections.
	if fromPoly.Type() == PolyTypeOffMeshConnection {
		// Find link that points to first vertex.
		for i := fromPoly.FirstLink; i != NullLink; i = fromTile.Links[i].Next {
			if fromTile.Links[i].Ref == to {
				v := vec(fromTile.vert(fromPoly.Verts[fromTile.Links[i].Edge]))
				return v, v, Success
			}
		}
		return left, right, Failure | InvalidParam
	}
	if toPoly.Type() == PolyTypeOffMeshConnection {
		for i := toPoly.FirstLink; i != NullLink; i = toTile.Links[i].Next {
			if toTile.Links[i].Ref == from {
				v := vec(toTile.vert(toPoly.Verts[toTile.Links[i].Edge]))
				return v, v, Success
			}
		}
		return left, right, Failure | InvalidParam
	}

	// Find portal vertices.
	v0 := fromTile.vert(fromPoly.Verts[link.Edge])
	v1 := fromTile.vert(fromPoly.Verts[(int(link.Edge)+1)%int(fromPoly.VertCount)])
	left, right = vec(v0), vec(v1)

	// If the link is at tile boundary, clamp the vertices to the link width.
	if link.Side != 0xff && (link.Bmin != 0 || link.Bmax != 255) {
		// Unpack portal limits.
		const s = 1.0 / 255.0
		common.Vlerp(left[:], v0, v1, float32(link.Bmin)*s)
		common.Vlerp(right[:], v0, v1, float32(link.Bmax)*s)
	}
	return left, right, Success
}

// GetEdgeMidPoint returns the middle of the portal between two polygons.
func (q *NavMeshQuery) GetEdgeMidPoint(from, to PolyRef) (common.Vec3, Status) {
	left, right, _, _, status := q.GetPortalPoints(from, to)
	if status.Failed() {
		return common.Vec3{}, status
	}
	return left.Add(right).Mul(0.5), Success
}

func (q *NavMeshQuery) edgeMidPoint(from PolyRef, fromPoly *Poly, fromTile *MeshTile,
	to PolyRef, toPoly *Poly, toTile *MeshTile) (common.Vec3, Status) {
	left, right, status := q.portalPoints(from, fromPoly, fromTile, to, toPoly, toTile)
	if status.Failed() {
		return common.Vec3{}, status
	}
	return left.Add(right).Mul(0.5), Success
}

func (q *NavMeshQuery) parentOf(n *Node) (PolyRef, *MeshTile, *Poly) {
	if n.PIdx == 0 {
		return 0, nil, nil
	}
	ref := q.nodePool.NodeAtIdx(n.PIdx).Id
	tile, poly := q.nav.tileAndPolyByRefUnsafe(ref)
	return ref, tile, poly
}
