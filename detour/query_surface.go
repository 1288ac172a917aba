package detour

import (
	"math"

	"github.com/Robmaister/SharpNav-sub000/common"
)

// moveAlongSurfaceStack caps the polygons queued by MoveAlongSurface.
const moveAlongSurfaceStack = 48

// MoveAlongSurface moves from startPos towards endPos constrained to the
// mesh surface. It returns the reached position and the polygons visited on
// the way, at most maxVisited. The search is a breadth first walk limited
// to the circle through startPos and endPos; when endPos is not reached the
// result is the closest point on a wall. The height of the result is not
// adjusted, see GetPolyHeight.
func (q *NavMeshQuery) MoveAlongSurface(startRef PolyRef, startPos, endPos common.Vec3,
	filter QueryFilter, maxVisited int) (common.Vec3, []PolyRef, Status) {
	// Validate input
	if !q.nav.IsValidPolyRef(startRef) || !common.Visfinite(startPos[:]) || !common.Visfinite(endPos[:]) ||
		filter == nil || maxVisited <= 0 {
		return startPos, nil, Failure | InvalidParam
	}

	status := Success
	pool := q.tinyNodePool
	pool.Clear()

	startNode := pool.Node(startRef, 0)
	startNode.PIdx = 0
	startNode.Cost = 0
	startNode.Total = 0
	startNode.Id = startRef
	startNode.Flags = NodeClosed
	stack := make([]*Node, 0, moveAlongSurfaceStack)
	stack = append(stack, startNode)

	bestPos := startPos
	bestDist := float32(math.MaxFloat32)
	var bestNode *Node

	// Search constraints
	var searchPos common.Vec3
	common.Vlerp(searchPos[:], startPos[:], endPos[:], 0.5)
	searchRadSqr := common.Sqr(startPos.Sub(endPos).Len()/2 + 0.001)

	var vbuf [MaxVertsPerPolygon * 3]float32
	for len(stack) > 0 {
		// Pop front.
		curNode := stack[0]
		stack = append(stack[:0], stack[1:]...)

		// Get poly and tile.
		// The API input has been checked already, skip checking internal data.
		curRef := curNode.Id
		curTile, curPoly := q.nav.tileAndPolyByRefUnsafe(curRef)

		// Collect vertices.
		nverts := int(curPoly.VertCount)
		verts := curTile.polyVerts(curPoly, vbuf[:0])

		// If target is inside the poly, stop search.
		if common.PointInPoly(nverts, verts, endPos[:]) {
			bestNode = curNode
			bestPos = endPos
			break
		}

		// Find wall edges and find nearest point inside the walls.
		for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
			// Find links to neighbours.
			const maxNeis = 8
			var neiBuf [maxNeis]PolyRef
			neis := neiBuf[:0]

			if curPoly.Neis[j]&ExtLink != 0 {
				// Tile border.
				for k := curPoly.FirstLink; k != NullLink; k = curTile.Links[k].Next {
					link := &curTile.Links[k]
					if int(link.Edge) != j || link.Ref == 0 {
						continue
					}
					neiTile, neiPoly := q.nav.tileAndPolyByRefUnsafe(link.Ref)
					if filter.PassFilter(link.Ref, neiTile, neiPoly) && len(neis) < maxNeis {
						neis = append(neis, link.Ref)
					}
				}
			} else if curPoly.Neis[j] != 0 {
				idx := uint32(curPoly.Neis[j] - 1)
				ref := q.nav.PolyRefBase(curTile) | PolyRef(idx)
				if filter.PassFilter(ref, curTile, &curTile.Polys[idx]) {
					// Internal edge, encode id.
					neis = append(neis, ref)
				}
			}

			vj := verts[j*3 : j*3+3]
			vi := verts[i*3 : i*3+3]
			if len(neis) == 0 {
				// Wall edge, calc distance.
				distSqr, tseg := distancePtSegSqr2D(endPos[:], vj, vi)
				if distSqr < bestDist {
					// Update nearest distance.
					common.Vlerp(bestPos[:], vj, vi, tseg)
					bestDist = distSqr
					bestNode = curNode
				}
				continue
			}

			for _, nei := range neis {
				// Skip if no node can be allocated.
				neighbourNode := pool.Node(nei, 0)
				if neighbourNode == nil {
					continue
				}
				// Skip if already visited.
				if neighbourNode.Flags&NodeClosed != 0 {
					continue
				}

				// Skip the link if it is too far from search constraint.
				if distSqr, _ := distancePtSegSqr2D(searchPos[:], vj, vi); distSqr > searchRadSqr {
					continue
				}

				// Mark as the node as visited and push to queue.
				if len(stack) < moveAlongSurfaceStack {
					neighbourNode.PIdx = pool.NodeIdx(curNode)
					neighbourNode.Flags |= NodeClosed
					stack = append(stack, neighbourNode)
				}
			}
		}
	}

	var visited []PolyRef
	if bestNode != nil {
		// Reverse the path.
		var prev *Node
		for node := bestNode; node != nil; {
			next := pool.NodeAtIdx(node.PIdx)
			node.PIdx = pool.NodeIdx(prev)
			prev = node
			node = next
		}

		// Store result
		for node := prev; node != nil; node = pool.NodeAtIdx(node.PIdx) {
			visited = append(visited, node.Id)
			if len(visited) >= maxVisited {
				if pool.NodeAtIdx(node.PIdx) != nil {
					status |= BufferTooSmall
				}
				break
			}
		}
	}
	return bestPos, visited, status
}

// polyArea2D returns the xz area of the triangle fan of poly.
func polyArea2D(tile *MeshTile, poly *Poly) float32 {
	var area float32
	va := tile.vert(poly.Verts[0])
	for j := 2; j < int(poly.VertCount); j++ {
		vb := tile.vert(poly.Verts[j-1])
		vc := tile.vert(poly.Verts[j])
		area += common.TriArea2D(va, vb, vc)
	}
	return area
}

// randomPointInPoly picks a uniformly distributed point on poly and snaps
// it to the detail mesh.
func (q *NavMeshQuery) randomPointInPoly(ref PolyRef, tile *MeshTile, poly *Poly, frand func() float32) common.Vec3 {
	var vbuf [MaxVertsPerPolygon * 3]float32
	var areas [MaxVertsPerPolygon]float32
	verts := tile.polyVerts(poly, vbuf[:0])
	s := frand()
	t := frand()
	pt := randomPointInConvexPoly(verts, int(poly.VertCount), areas[:], s, t)
	pt, _ = q.nav.ClosestPointOnPoly(ref, pt)
	return pt
}

// FindRandomPoint returns a random point on the mesh. A tile is picked
// uniformly, then a polygon of it weighted by area. frand must return
// values in [0, 1).
func (q *NavMeshQuery) FindRandomPoint(filter QueryFilter, frand func() float32) (PolyRef, common.Vec3, Status) {
	if filter == nil || frand == nil {
		return 0, common.Vec3{}, Failure | InvalidParam
	}

	// Randomly pick one tile. Assume that all tiles cover roughly the same area.
	var tile *MeshTile
	var tsum float32
	for i := 0; i < q.nav.MaxTiles(); i++ {
		t := q.nav.Tile(i)
		if t.Header == nil {
			continue
		}
		// Choose random tile using reservoir sampling.
		const area = 1
		tsum += area
		if frand()*tsum <= area {
			tile = t
		}
	}
	if tile == nil {
		return 0, common.Vec3{}, Failure
	}

	// Randomly pick one polygon weighted by polygon area.
	var poly *Poly
	var polyRef PolyRef
	base := q.nav.PolyRefBase(tile)
	var areaSum float32
	for i := range tile.Polys {
		p := &tile.Polys[i]
		// Do not return off-mesh connection polygons.
		if p.Type() != PolyTypeGround {
			continue
		}
		// Must pass filter
		ref := base | PolyRef(i)
		if !filter.PassFilter(ref, tile, p) {
			continue
		}

		// Choose random polygon weighted by area, using reservoir sampling.
		polyArea := polyArea2D(tile, p)
		areaSum += polyArea
		if frand()*areaSum <= polyArea {
			poly = p
			polyRef = ref
		}
	}
	if poly == nil {
		return 0, common.Vec3{}, Failure
	}
	return polyRef, q.randomPointInPoly(polyRef, tile, poly, frand), Success
}

// FindRandomPointAroundCircle returns a random point on the polygons
// reachable from startRef that touch the circle around centerPos. The
// point itself may lie outside the circle.
func (q *NavMeshQuery) FindRandomPointAroundCircle(startRef PolyRef, centerPos common.Vec3, maxRadius float32,
	filter QueryFilter, frand func() float32) (PolyRef, common.Vec3, Status) {
	// Validate input
	if !q.nav.IsValidPolyRef(startRef) || !common.Visfinite(centerPos[:]) ||
		maxRadius < 0 || !common.IsFinite(maxRadius) || filter == nil || frand == nil {
		return 0, common.Vec3{}, Failure | InvalidParam
	}
	startTile, startPoly := q.nav.tileAndPolyByRefUnsafe(startRef)
	if !filter.PassFilter(startRef, startTile, startPoly) {
		return 0, common.Vec3{}, Failure | InvalidParam
	}

	q.nodePool.Clear()
	q.openList.Clear()

	startNode := q.nodePool.Node(startRef, 0)
	startNode.Pos = centerPos
	startNode.PIdx = 0
	startNode.Cost = 0
	startNode.Total = 0
	startNode.Id = startRef
	startNode.Flags = NodeOpen
	q.openList.Offer(startNode)

	status := Success
	radiusSqr := common.Sqr(maxRadius)
	var areaSum float32

	var randomTile *MeshTile
	var randomPoly *Poly
	var randomPolyRef PolyRef

	for !q.openList.Empty() {
		bestNode := q.openList.Poll()
		bestNode.Flags &^= NodeOpen
		bestNode.Flags |= NodeClosed

		// Get poly and tile.
		// The API input has been checked already, skip checking internal data.
		bestRef := bestNode.Id
		bestTile, bestPoly := q.nav.tileAndPolyByRefUnsafe(bestRef)

		// Place random locations on on ground.
		if bestPoly.Type() == PolyTypeGround {
			// Choose random polygon weighted by area, using reservoir sampling.
			polyArea := polyArea2D(bestTile, bestPoly)
			areaSum += polyArea
			if frand()*areaSum <= polyArea {
				randomTile = bestTile
				randomPoly = bestPoly
				randomPolyRef = bestRef
			}
		}

		// Get parent poly and tile.
		parentRef, _, _ := q.parentOf(bestNode)

		for i := bestPoly.FirstLink; i != NullLink; i = bestTile.Links[i].Next {
			neighbourRef := bestTile.Links[i].Ref
			// Skip invalid neighbours and do not follow back to parent.
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}

			// Expand to neighbour
			neighbourTile, neighbourPoly := q.nav.tileAndPolyByRefUnsafe(neighbourRef)

			// Do not advance if the polygon is excluded by the filter.
			if !filter.PassFilter(neighbourRef, neighbourTile, neighbourPoly) {
				continue
			}

			// Find edge and calc distance to the edge.
			va, vb, st := q.portalPoints(bestRef, bestPoly, bestTile, neighbourRef, neighbourPoly, neighbourTile)
			if st.Failed() {
				continue
			}

			// If the circle is not touching the next polygon, skip it.
			if distSqr, _ := distancePtSegSqr2D(centerPos[:], va[:], vb[:]); distSqr > radiusSqr {
				continue
			}

			neighbourNode := q.nodePool.Node(neighbourRef, 0)
			if neighbourNode == nil {
				status |= OutOfNodes
				continue
			}
			if neighbourNode.Flags&NodeClosed != 0 {
				continue
			}

			// Cost
			if neighbourNode.Flags == 0 {
				neighbourNode.Pos = va.Add(vb).Mul(0.5)
			}
			total := bestNode.Total + bestNode.Pos.Sub(neighbourNode.Pos).Len()

			// The node is already in open list and the new result is worse, skip.
			if neighbourNode.Flags&NodeOpen != 0 && total >= neighbourNode.Total {
				continue
			}

			neighbourNode.Id = neighbourRef
			neighbourNode.Flags &^= NodeClosed
			neighbourNode.PIdx = q.nodePool.NodeIdx(bestNode)
			neighbourNode.Total = total

			if neighbourNode.Flags&NodeOpen != 0 {
				q.openList.Modify(neighbourNode)
			} else {
				neighbourNode.Flags = NodeOpen
				q.openList.Offer(neighbourNode)
			}
		}
	}

	if randomPoly == nil {
		return 0, common.Vec3{}, Failure
	}
	return randomPolyRef, q.randomPointInPoly(randomPolyRef, randomTile, randomPoly, frand), status
}

// CircleResult is a polygon found by FindPolysAroundCircle.
type CircleResult struct {
	Ref    PolyRef
	Parent PolyRef // polygon the search came from, 0 for the start
	Cost   float32 // search cost from the center to the polygon
}

// FindPolysAroundCircle returns, in search order, the polygons reachable
// from startRef whose portals touch the circle around centerPos. At most
// maxResult polygons are returned; BufferTooSmall is set when more were
// found.
func (q *NavMeshQuery) FindPolysAroundCircle(startRef PolyRef, centerPos common.Vec3, radius float32,
	filter QueryFilter, maxResult int) ([]CircleResult, Status) {
	// Validate input
	if !q.nav.IsValidPolyRef(startRef) || !common.Visfinite(centerPos[:]) ||
		radius < 0 || !common.IsFinite(radius) || filter == nil || maxResult < 0 {
		return nil, Failure | InvalidParam
	}

	q.nodePool.Clear()
	q.openList.Clear()

	startNode := q.nodePool.Node(startRef, 0)
	startNode.Pos = centerPos
	startNode.PIdx = 0
	startNode.Cost = 0
	startNode.Total = 0
	startNode.Id = startRef
	startNode.Flags = NodeOpen
	q.openList.Offer(startNode)

	status := Success
	var results []CircleResult
	radiusSqr := common.Sqr(radius)

	for !q.openList.Empty() {
		bestNode := q.openList.Poll()
		bestNode.Flags &^= NodeOpen
		bestNode.Flags |= NodeClosed

		// Get poly and tile.
		// The API input has been checked already, skip checking internal data.
		bestRef := bestNode.Id
		bestTile, bestPoly := q.nav.tileAndPolyByRefUnsafe(bestRef)

		// Get parent poly and tile.
		parentRef, parentTile, parentPoly := q.parentOf(bestNode)

		if len(results) < maxResult {
			results = append(results, CircleResult{Ref: bestRef, Parent: parentRef, Cost: bestNode.Total})
		} else {
			status |= BufferTooSmall
		}

		for i := bestPoly.FirstLink; i != NullLink; i = bestTile.Links[i].Next {
			neighbourRef := bestTile.Links[i].Ref
			// Skip invalid neighbours and do not follow back to parent.
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}

			// Expand to neighbour
			neighbourTile, neighbourPoly := q.nav.tileAndPolyByRefUnsafe(neighbourRef)

			// Do not advance if the polygon is excluded by the filter.
			if !filter.PassFilter(neighbourRef, neighbourTile, neighbourPoly) {
				continue
			}

			// Find edge and calc distance to the edge.
			va, vb, st := q.portalPoints(bestRef, bestPoly, bestTile, neighbourRef, neighbourPoly, neighbourTile)
			if st.Failed() {
				continue
			}

			// If the circle is not touching the next polygon, skip it.
			if distSqr, _ := distancePtSegSqr2D(centerPos[:], va[:], vb[:]); distSqr > radiusSqr {
				continue
			}

			neighbourNode := q.nodePool.Node(neighbourRef, 0)
			if neighbourNode == nil {
				status |= OutOfNodes
				continue
			}
			if neighbourNode.Flags&NodeClosed != 0 {
				continue
			}

			// Cost
			if neighbourNode.Flags == 0 {
				neighbourNode.Pos = va.Add(vb).Mul(0.5)
			}
			cost := filter.Cost(bestNode.Pos, neighbourNode.Pos,
				parentRef, parentTile, parentPoly,
				bestRef, bestTile, bestPoly,
				neighbourRef, neighbourTile, neighbourPoly)
			total := bestNode.Total + cost

			// The node is already in open list and the new result is worse, skip.
			if neighbourNode.Flags&NodeOpen != 0 && total >= neighbourNode.Total {
				continue
			}

			neighbourNode.Id = neighbourRef
			neighbourNode.PIdx = q.nodePool.NodeIdx(bestNode)
			neighbourNode.Total = total

			if neighbourNode.Flags&NodeOpen != 0 {
				q.openList.Modify(neighbourNode)
			} else {
				neighbourNode.Flags = NodeOpen
				q.openList.Offer(neighbourNode)
			}
		}
	}
	return results, status
}
