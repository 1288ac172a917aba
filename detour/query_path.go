package detour

import (
	"github.com/Robmaister/SharpNav-sub000/common"
)

// StraightPathFlags describe a vertex of a straight path.
type StraightPathFlags uint8

const (
	StraightPathStart             StraightPathFlags = 0x01 // the vertex is the start position in the path
	StraightPathEnd               StraightPathFlags = 0x02 // the vertex is the end position in the path
	StraightPathOffMeshConnection StraightPathFlags = 0x04 // the vertex is the start of an off-mesh connection
)

// StraightPathOptions select the extra vertices of FindStraightPath.
type StraightPathOptions uint8

const (
	// StraightPathAreaCrossings adds a vertex at every polygon edge crossing where area changes.
	StraightPathAreaCrossings StraightPathOptions = 0x01
	// StraightPathAllCrossings adds a vertex at every polygon edge crossing.
	StraightPathAllCrossings StraightPathOptions = 0x02
)

// StraightPathPoint is a vertex of a straight path.
type StraightPathPoint struct {
	Pos   common.Vec3
	Flags StraightPathFlags
	Ref   PolyRef // polygon entered at the vertex, 0 at the end
}

// FindPath finds a polygon corridor from startRef to endRef.
//
// The positions are used for the cost of the first and last polygon. When
// endRef cannot be reached the corridor ends at the polygon closest to
// endPos and PartialResult is set. The corridor is cut after maxPath
// polygons with BufferTooSmall, and OutOfNodes is set when the node pool
// ran out.
// /  @param[in]		startRef	The reference id of the start polygon.
// /  @param[in]		endRef		The reference id of the end polygon.
// /  @param[in]		startPos	A position within the start polygon. [(x, y, z)]
// /  @param[in]		endPos		A position within the end polygon. [(x, y, z)]
// /  @param[in]		filter		The polygon filter to apply to the query.
// /  @param[in]		maxPath		The maximum number of polygons returned. [Limit: >= 1]
func (q *NavMeshQuery) FindPath(startRef, endRef PolyRef, startPos, endPos common.Vec3,
	filter QueryFilter, maxPath int) ([]PolyRef, Status) {
	// Validate input
	if !q.nav.IsValidPolyRef(startRef) || !q.nav.IsValidPolyRef(endRef) ||
		!common.Visfinite(startPos[:]) || !common.Visfinite(endPos[:]) || filter == nil || maxPath <= 0 {
		return nil, Failure | InvalidParam
	}
	if startRef == endRef {
		return []PolyRef{startRef}, Success
	}

	q.nodePool.Clear()
	q.openList.Clear()

	startNode := q.nodePool.Node(startRef, 0)
	startNode.Pos = startPos
	startNode.PIdx = 0
	startNode.Cost = 0
	startNode.Total = startPos.Sub(endPos).Len() * hScale
	startNode.Id = startRef
	startNode.Flags = NodeOpen
	q.openList.Offer(startNode)

	lastBestNode := startNode
	lastBestNodeCost := startNode.Total
	outOfNodes := false

	for !q.openList.Empty() {
		// Remove node from open list and put it in closed list.
		bestNode := q.openList.Poll()
		bestNode.Flags &^= NodeOpen
		bestNode.Flags |= NodeClosed

		// Reached the goal, stop searching.
		if bestNode.Id == endRef {
			lastBestNode = bestNode
			break
		}

		// Get current poly and tile.
		// The API input has been checked already, skip checking internal data.
		bestRef := bestNode.Id
		bestTile, bestPoly := q.nav.tileAndPolyByRefUnsafe(bestRef)

		// Get parent poly and tile.
		parentRef, parentTile, parentPoly := q.parentOf(bestNode)

		for i := bestPoly.FirstLink; i != NullLink; i = bestTile.Links[i].Next {
			link := &bestTile.Links[i]
			neighbourRef := link.Ref

			// Skip invalid ids and do not expand back to where we came from.
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}

			// Get neighbour poly and tile.
			// The API input has been checked already, skip checking internal data.
			neighbourTile, neighbourPoly := q.nav.tileAndPolyByRefUnsafe(neighbourRef)
			if !filter.PassFilter(neighbourRef, neighbourTile, neighbourPoly) {
				continue
			}

			// deal explicitly with crossing tile boundaries
			var crossSide uint8
			if link.Side != 0xff {
				crossSide = link.Side >> 1
			}

			// get the node
			neighbourNode := q.nodePool.Node(neighbourRef, crossSide)
			if neighbourNode == nil {
				outOfNodes = true
				continue
			}

			// If the node is visited the first time, calculate node position.
			if neighbourNode.Flags == 0 {
				neighbourNode.Pos, _ = q.edgeMidPoint(bestRef, bestPoly, bestTile, neighbourRef, neighbourPoly, neighbourTile)
			}

			// Calculate cost and heuristic.
			var cost, heuristic float32
			curCost := filter.Cost(bestNode.Pos, neighbourNode.Pos,
				parentRef, parentTile, parentPoly,
				bestRef, bestTile, bestPoly,
				neighbourRef, neighbourTile, neighbourPoly)
			if neighbourRef == endRef {
				// Special case for last node.
				endCost := filter.Cost(neighbourNode.Pos, endPos,
					bestRef, bestTile, bestPoly,
					neighbourRef, neighbourTile, neighbourPoly,
					0, nil, nil)
				cost = bestNode.Cost + curCost + endCost
				heuristic = 0
			} else {
				cost = bestNode.Cost + curCost
				heuristic = neighbourNode.Pos.Sub(endPos).Len() * hScale
			}
			total := cost + heuristic

			// The node is already in open list and the new result is worse, skip.
			if neighbourNode.Flags&NodeOpen != 0 && total >= neighbourNode.Total {
				continue
			}
			// The node is already visited and process, and the new result is worse, skip.
			if neighbourNode.Flags&NodeClosed != 0 && total >= neighbourNode.Total {
				continue
			}

			// Add or update the node.
			neighbourNode.PIdx = q.nodePool.NodeIdx(bestNode)
			neighbourNode.Id = neighbourRef
			neighbourNode.Flags &^= NodeClosed
			neighbourNode.Cost = cost
			neighbourNode.Total = total

			if neighbourNode.Flags&NodeOpen != 0 {
				// Already in open, update node location.
				q.openList.Modify(neighbourNode)
			} else {
				// Put the node in open list.
				neighbourNode.Flags |= NodeOpen
				q.openList.Offer(neighbourNode)
			}

			// Update nearest node to target so far.
			if heuristic < lastBestNodeCost {
				lastBestNodeCost = heuristic
				lastBestNode = neighbourNode
			}
		}
	}

	path, status := q.pathToNode(lastBestNode, maxPath)
	if lastBestNode.Id != endRef {
		status |= PartialResult
	}
	if outOfNodes {
		status |= OutOfNodes
	}
	return path, status
}

// pathToNode walks the parents of endNode back to the start. Only the
// first maxPath polygons are kept.
func (q *NavMeshQuery) pathToNode(endNode *Node, maxPath int) ([]PolyRef, Status) {
	// Find the length of the entire path.
	length := 0
	for cur := endNode; cur != nil; cur = q.nodePool.NodeAtIdx(cur.PIdx) {
		length++
	}

	// If the path cannot be fully stored then advance to the last node we will be able to store.
	cur := endNode
	writeCount := length
	for ; writeCount > maxPath; writeCount-- {
		cur = q.nodePool.NodeAtIdx(cur.PIdx)
	}

	// Write path
	path := make([]PolyRef, writeCount)
	for i := writeCount - 1; i >= 0; i-- {
		path[i] = cur.Id
		cur = q.nodePool.NodeAtIdx(cur.PIdx)
	}
	if length > maxPath {
		return path, Success | BufferTooSmall
	}
	return path, Success
}

// InitSlicedFindPath starts a path search that is advanced by
// UpdateSlicedFindPath. The query keeps filter until the search is
// finalized.
func (q *NavMeshQuery) InitSlicedFindPath(startRef, endRef PolyRef, startPos, endPos common.Vec3, filter QueryFilter) Status {
	// Init path state.
	q.query = slicedQuery{
		status:   Failure,
		startRef: startRef,
		endRef:   endRef,
		startPos: startPos,
		endPos:   endPos,
		filter:   filter,
	}

	// Validate input
	if !q.nav.IsValidPolyRef(startRef) || !q.nav.IsValidPolyRef(endRef) ||
		!common.Visfinite(startPos[:]) || !common.Visfinite(endPos[:]) || filter == nil {
		return Failure | InvalidParam
	}

	if startRef == endRef {
		q.query.status = Success
		return Success
	}

	q.nodePool.Clear()
	q.openList.Clear()

	startNode := q.nodePool.Node(startRef, 0)
	startNode.Pos = startPos
	startNode.PIdx = 0
	startNode.Cost = 0
	startNode.Total = startPos.Sub(endPos).Len() * hScale
	startNode.Id = startRef
	startNode.Flags = NodeOpen
	q.openList.Offer(startNode)

	q.query.status = InProgress
	q.query.lastBestNode = startNode
	q.query.lastBestNodeCost = startNode.Total
	return q.query.status
}

// UpdateSlicedFindPath runs up to maxIter iterations of the search
// started by InitSlicedFindPath and returns the iterations done. The
// status stays InProgress until the search is complete.
func (q *NavMeshQuery) UpdateSlicedFindPath(maxIter int) (int, Status) {
	if !q.query.status.InProgress() {
		return 0, q.query.status
	}

	// Make sure the request is still valid.
	if !q.nav.IsValidPolyRef(q.query.startRef) || !q.nav.IsValidPolyRef(q.query.endRef) {
		q.query.status = Failure
		return 0, Failure
	}

	filter := q.query.filter
	iter := 0
	for iter < maxIter && !q.openList.Empty() {
		iter++

		// Remove node from open list and put it in closed list.
		bestNode := q.openList.Poll()
		bestNode.Flags &^= NodeOpen
		bestNode.Flags |= NodeClosed

		// Reached the goal, stop searching.
		if bestNode.Id == q.query.endRef {
			q.query.lastBestNode = bestNode
			q.query.status = Success | q.query.status&StatusDetailMask
			return iter, q.query.status
		}

		// Get current poly and tile.
		bestRef := bestNode.Id
		bestTile, bestPoly, status := q.nav.TileAndPolyByRef(bestRef)
		if status.Failed() {
			// The polygon has disappeared during the sliced query, fail.
			q.query.status = Failure
			return iter, q.query.status
		}

		// Get parent poly and tile.
		var parentRef PolyRef
		var parentTile *MeshTile
		var parentPoly *Poly
		if bestNode.PIdx != 0 {
			parentRef = q.nodePool.NodeAtIdx(bestNode.PIdx).Id
		}
		if parentRef != 0 {
			parentTile, parentPoly, status = q.nav.TileAndPolyByRef(parentRef)
			if status.Failed() {
				// The polygon has disappeared during the sliced query, fail.
				q.query.status = Failure
				return iter, q.query.status
			}
		}

		for i := bestPoly.FirstLink; i != NullLink; i = bestTile.Links[i].Next {
			neighbourRef := bestTile.Links[i].Ref

			// Skip invalid ids and do not expand back to where we came from.
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}

			neighbourTile, neighbourPoly := q.nav.tileAndPolyByRefUnsafe(neighbourRef)
			if !filter.PassFilter(neighbourRef, neighbourTile, neighbourPoly) {
				continue
			}

			// get the neighbor node
			neighbourNode := q.nodePool.Node(neighbourRef, 0)
			if neighbourNode == nil {
				q.query.status |= OutOfNodes
				continue
			}

			// do not expand to nodes that were already visited from the same parent
			if neighbourNode.PIdx != 0 && neighbourNode.PIdx == bestNode.PIdx {
				continue
			}

			// If the node is visited the first time, calculate node position.
			if neighbourNode.Flags == 0 {
				neighbourNode.Pos, _ = q.edgeMidPoint(bestRef, bestPoly, bestTile, neighbourRef, neighbourPoly, neighbourTile)
			}

			// Calculate cost and heuristic.
			cost := bestNode.Cost + filter.Cost(bestNode.Pos, neighbourNode.Pos,
				parentRef, parentTile, parentPoly,
				bestRef, bestTile, bestPoly,
				neighbourRef, neighbourTile, neighbourPoly)
			var heuristic float32
			if neighbourRef == q.query.endRef {
				// Special case for last node.
				cost += filter.Cost(neighbourNode.Pos, q.query.endPos,
					bestRef, bestTile, bestPoly,
					neighbourRef, neighbourTile, neighbourPoly,
					0, nil, nil)
			} else {
				heuristic = neighbourNode.Pos.Sub(q.query.endPos).Len() * hScale
			}
			total := cost + heuristic

			// The node is already in open list and the new result is worse, skip.
			if neighbourNode.Flags&NodeOpen != 0 && total >= neighbourNode.Total {
				continue
			}
			// The node is already visited and process, and the new result is worse, skip.
			if neighbourNode.Flags&NodeClosed != 0 && total >= neighbourNode.Total {
				continue
			}

			// Add or update the node.
			neighbourNode.PIdx = q.nodePool.NodeIdx(bestNode)
			neighbourNode.Id = neighbourRef
			neighbourNode.Flags &^= NodeClosed | NodeParentDetached
			neighbourNode.Cost = cost
			neighbourNode.Total = total

			if neighbourNode.Flags&NodeOpen != 0 {
				q.openList.Modify(neighbourNode)
			} else {
				neighbourNode.Flags |= NodeOpen
				q.openList.Offer(neighbourNode)
			}

			// Update nearest node to target so far.
			if heuristic < q.query.lastBestNodeCost {
				q.query.lastBestNodeCost = heuristic
				q.query.lastBestNode = neighbourNode
			}
		}
	}

	// Exhausted all nodes, but could not find path.
	if q.openList.Empty() {
		q.query.status = Success | q.query.status&StatusDetailMask
	}
	return iter, q.query.status
}

// FinalizeSlicedFindPath returns the corridor of the sliced search and
// resets it.
func (q *NavMeshQuery) FinalizeSlicedFindPath(maxPath int) ([]PolyRef, Status) {
	if maxPath <= 0 {
		return nil, Failure | InvalidParam
	}
	if q.query.status.Failed() {
		// Reset query.
		q.query = slicedQuery{}
		return nil, Failure
	}

	var path []PolyRef
	if q.query.startRef == q.query.endRef {
		// Special case: the search starts and ends at same poly.
		path = []PolyRef{q.query.startRef}
	} else {
		common.AssertTrue(q.query.lastBestNode != nil, "sliced search without best node")
		if q.query.lastBestNode.Id != q.query.endRef {
			q.query.status |= PartialResult
		}
		path = q.storeReversedPath(q.query.lastBestNode, maxPath)
	}

	details := q.query.status & StatusDetailMask
	// Reset query.
	q.query = slicedQuery{}
	return path, Success | details
}

// FinalizeSlicedFindPathPartial returns the corridor of the sliced search
// to the furthest polygon of existing it visited, and resets the search.
// Without such a polygon the corridor ends at the polygon closest to the
// goal and PartialResult is set.
func (q *NavMeshQuery) FinalizeSlicedFindPathPartial(existing []PolyRef, maxPath int) ([]PolyRef, Status) {
	if len(existing) == 0 || maxPath <= 0 {
		return nil, Failure | InvalidParam
	}
	if q.query.status.Failed() {
		// Reset query.
		q.query = slicedQuery{}
		return nil, Failure
	}

	var path []PolyRef
	if q.query.startRef == q.query.endRef {
		// Special case: the search starts and ends at same poly.
		path = []PolyRef{q.query.startRef}
	} else {
		// Find furthest existing node that was visited.
		var node *Node
		for i := len(existing) - 1; i >= 0 && node == nil; i-- {
			if found := q.nodePool.FindNodes(existing[i], 1); len(found) > 0 {
				node = found[0]
			}
		}
		if node == nil {
			q.query.status |= PartialResult
			common.AssertTrue(q.query.lastBestNode != nil, "sliced search without best node")
			node = q.query.lastBestNode
		}
		path = q.storeReversedPath(node, maxPath)
	}

	details := q.query.status & StatusDetailMask
	// Reset query.
	q.query = slicedQuery{}
	return path, Success | details
}

// storeReversedPath reverses the parent chain ending at node in place and
// returns the first maxPath polygons from the start.
func (q *NavMeshQuery) storeReversedPath(node *Node, maxPath int) []PolyRef {
	// Reverse the path.
	var prev *Node
	for node != nil {
		next := q.nodePool.NodeAtIdx(node.PIdx)
		node.PIdx = q.nodePool.NodeIdx(prev)
		prev = node
		node = next
	}

	// Store path
	var path []PolyRef
	for node = prev; node != nil; node = q.nodePool.NodeAtIdx(node.PIdx) {
		path = append(path, node.Id)
		if len(path) >= maxPath {
			if q.nodePool.NodeAtIdx(node.PIdx) != nil {
				q.query.status |= BufferTooSmall
			}
			break
		}
	}
	return path
}

// straightPath accumulates the vertices of FindStraightPath.
type straightPath struct {
	pts []StraightPathPoint
	max int
}

// appendVertex adds a vertex or replaces the last one at the same
// position. It returns InProgress while more vertices may follow.
func (sp *straightPath) appendVertex(pos common.Vec3, flags StraightPathFlags, ref PolyRef) Status {
	if n := len(sp.pts); n > 0 && common.Vequal(sp.pts[n-1].Pos[:], pos[:]) {
		// The vertices are equal, update flags and poly.
		sp.pts[n-1].Flags = flags
		sp.pts[n-1].Ref = ref
		return InProgress
	}

	// Append new vertex.
	sp.pts = append(sp.pts, StraightPathPoint{Pos: pos, Flags: flags, Ref: ref})

	// If there is no space to append more vertices, return.
	if len(sp.pts) >= sp.max {
		return Success | BufferTooSmall
	}
	// If reached end of path, return.
	if flags == StraightPathEnd {
		return Success
	}
	return InProgress
}

// appendPortals adds the crossings of the segment from the last vertex to
// endPos with the portals of path[startIdx:endIdx+1].
func (q *NavMeshQuery) appendPortals(sp *straightPath, startIdx, endIdx int, endPos common.Vec3,
	path []PolyRef, options StraightPathOptions) Status {
	startPos := sp.pts[len(sp.pts)-1].Pos

	// Append or update last vertex
	for i := startIdx; i < endIdx; i++ {
		// Calculate portal
		from := path[i]
		fromTile, fromPoly, status := q.nav.TileAndPolyByRef(from)
		if status.Failed() {
			return Failure | InvalidParam
		}
		to := path[i+1]
		toTile, toPoly, status := q.nav.TileAndPolyByRef(to)
		if status.Failed() {
			return Failure | InvalidParam
		}

		left, right, status := q.portalPoints(from, fromPoly, fromTile, to, toPoly, toTile)
		if status.Failed() {
			break
		}

		if options&StraightPathAreaCrossings != 0 {
			// Skip intersection if only area crossings are requested.
			if fromPoly.Area() == toPoly.Area() {
				continue
			}
		}

		// Append intersection
		if _, t, ok := intersectSegSeg2D(startPos[:], endPos[:], left[:], right[:]); ok {
			var pt common.Vec3
			common.Vlerp(pt[:], left[:], right[:], t)
			if stat := sp.appendVertex(pt, 0, path[i+1]); stat != InProgress {
				return stat
			}
		}
	}
	return InProgress
}

// FindStraightPath string-pulls the polygon corridor path into the
// shortest polyline from startPos to endPos inside it.
// /  @param[in]		startPos		Path start position. [(x, y, z)]
// /  @param[in]		endPos			Path end position. [(x, y, z)]
// /  @param[in]		path			The polygon corridor, from FindPath.
// /  @param[in]		maxStraightPath	The maximum number of points returned. [Limit: > 0]
// /  @param[in]		options			Extra crossing vertices, see StraightPathOptions.
func (q *NavMeshQuery) FindStraightPath(startPos, endPos common.Vec3, path []PolyRef,
	maxStraightPath int, options StraightPathOptions) ([]StraightPathPoint, Status) {
	if !common.Visfinite(startPos[:]) || !common.Visfinite(endPos[:]) ||
		len(path) == 0 || path[0] == 0 || maxStraightPath <= 0 {
		return nil, Failure | InvalidParam
	}

	closestStartPos, status := q.ClosestPointOnPolyBoundary(path[0], startPos)
	if status.Failed() {
		return nil, Failure | InvalidParam
	}
	closestEndPos, status := q.ClosestPointOnPolyBoundary(path[len(path)-1], endPos)
	if status.Failed() {
		return nil, Failure | InvalidParam
	}

	crossings := options&(StraightPathAreaCrossings|StraightPathAllCrossings) != 0
	sp := &straightPath{max: maxStraightPath}
	full := func() Status {
		if len(sp.pts) >= maxStraightPath {
			return BufferTooSmall
		}
		return 0
	}

	// Add start point.
	if stat := sp.appendVertex(closestStartPos, StraightPathStart, path[0]); stat != InProgress {
		return sp.pts, stat
	}

	if len(path) > 1 {
		portalApex := closestStartPos
		portalLeft := portalApex
		portalRight := portalApex
		apexIndex, leftIndex, rightIndex := 0, 0, 0

		var leftPolyType, rightPolyType PolyType
		leftPolyRef, rightPolyRef := path[0], path[0]

		for i := 0; i < len(path); i++ {
			var left, right common.Vec3
			var toType PolyType

			if i+1 < len(path) {
				// Next portal.
				var status Status
				left, right, _, toType, status = q.GetPortalPoints(path[i], path[i+1])
				if status.Failed() {
					// Failed to get portal points, in practice this means that path[i+1] is invalid polygon.
					// Clamp the end point to path[i], and return the path so far.
					closestEndPos, status = q.ClosestPointOnPolyBoundary(path[i], endPos)
					if status.Failed() {
						// This should only happen when the first polygon is invalid.
						return nil, Failure | InvalidParam
					}

					// Append portals along the current straight path segment.
					if crossings {
						// Ignore status return value as we're just about to return anyway.
						q.appendPortals(sp, apexIndex, i, closestEndPos, path, options)
					}
					// Ignore status return value as we're just about to return anyway.
					sp.appendVertex(closestEndPos, 0, path[i])
					return sp.pts, Success | PartialResult | full()
				}

				// If starting really close the portal, advance.
				if i == 0 {
					if d, _ := distancePtSegSqr2D(portalApex[:], left[:], right[:]); d < common.Sqr(float32(0.001)) {
						continue
					}
				}
			} else {
				// End of the path.
				left = closestEndPos
				right = closestEndPos
				toType = PolyTypeGround
			}

			// Right vertex.
			if common.TriArea2D(portalApex[:], portalRight[:], right[:]) <= 0 {
				if common.Vequal(portalApex[:], portalRight[:]) || common.TriArea2D(portalApex[:], portalLeft[:], right[:]) > 0 {
					// Tighten the funnel.
					portalRight = right
					rightPolyRef = 0
					if i+1 < len(path) {
						rightPolyRef = path[i+1]
					}
					rightPolyType = toType
					rightIndex = i
				} else {
					// Right over left, insert left to path and restart scan from portal left point.
					if crossings {
						if stat := q.appendPortals(sp, apexIndex, leftIndex, portalLeft, path, options); stat != InProgress {
							return sp.pts, stat
						}
					}

					portalApex = portalLeft
					apexIndex = leftIndex

					var flags StraightPathFlags
					if leftPolyRef == 0 {
						flags = StraightPathEnd
					} else if leftPolyType == PolyTypeOffMeshConnection {
						flags = StraightPathOffMeshConnection
					}

					// Append or update vertex
					if stat := sp.appendVertex(portalApex, flags, leftPolyRef); stat != InProgress {
						return sp.pts, stat
					}

					portalLeft = portalApex
					portalRight = portalApex
					leftIndex = apexIndex
					rightIndex = apexIndex

					// Restart
					i = apexIndex
					continue
				}
			}

			// Left vertex.
			if common.TriArea2D(portalApex[:], portalLeft[:], left[:]) >= 0 {
				if common.Vequal(portalApex[:], portalLeft[:]) || common.TriArea2D(portalApex[:], portalRight[:], left[:]) < 0 {
					// Tighten the funnel.
					portalLeft = left
					leftPolyRef = 0
					if i+1 < len(path) {
						leftPolyRef = path[i+1]
					}
					leftPolyType = toType
					leftIndex = i
				} else {
					// Left over right, insert right to path and restart scan from portal right point.
					if crossings {
						if stat := q.appendPortals(sp, apexIndex, rightIndex, portalRight, path, options); stat != InProgress {
							return sp.pts, stat
						}
					}

					portalApex = portalRight
					apexIndex = rightIndex

					var flags StraightPathFlags
					if rightPolyRef == 0 {
						flags = StraightPathEnd
					} else if rightPolyType == PolyTypeOffMeshConnection {
						flags = StraightPathOffMeshConnection
					}

					// Append or update vertex
					if stat := sp.appendVertex(portalApex, flags, rightPolyRef); stat != InProgress {
						return sp.pts, stat
					}

					portalLeft = portalApex
					portalRight = portalApex
					leftIndex = apexIndex
					rightIndex = apexIndex

					// Restart
					i = apexIndex
					continue
				}
			}
		}

		// Append portals along the current straight path segment.
		if crossings {
			if stat := q.appendPortals(sp, apexIndex, len(path)-1, closestEndPos, path, options); stat != InProgress {
				return sp.pts, stat
			}
		}
	}

	// Ignore status return value as we're just about to return anyway.
	sp.appendVertex(closestEndPos, StraightPathEnd, 0)
	return sp.pts, Success | full()
}
