package recast

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// ChunkyTriMeshNode is a node of the xz bounding tree. Leaves own the
// triangle range [Index, Index+Count) of ChunkyTriMesh.Tris; interior nodes
// store the negated size of their subtree in Index.
type ChunkyTriMeshNode struct {
	Min, Max mgl32.Vec2
	Index    int
	Count    int
}

func (n *ChunkyTriMeshNode) IsLeaf() bool { return n.Index >= 0 }

// ChunkyTriMesh partitions triangles into chunks of at most trisPerChunk
// so tiles can gather the geometry overlapping them.
type ChunkyTriMesh struct {
	Nodes           []ChunkyTriMeshNode
	Tris            []int // triangle indices into the source
	MaxTrisPerChunk int
}

type boundsItem struct {
	min, max mgl32.Vec2
	tri      int
}

func calcExtends(items []boundsItem) (bmin, bmax mgl32.Vec2) {
	bmin = items[0].min
	bmax = items[0].max
	for _, it := range items[1:] {
		bmin[0] = min(bmin[0], it.min[0])
		bmin[1] = min(bmin[1], it.min[1])
		bmax[0] = max(bmax[0], it.max[0])
		bmax[1] = max(bmax[1], it.max[1])
	}
	return
}

func longestAxis(x, y float32) int {
	if y > x {
		return 1
	}
	return 0
}

func (cm *ChunkyTriMesh) subdivide(items []boundsItem, trisPerChunk, maxNodes int) {
	if len(cm.Nodes) >= maxNodes {
		return
	}
	icur := len(cm.Nodes)
	cm.Nodes = append(cm.Nodes, ChunkyTriMeshNode{})
	bmin, bmax := calcExtends(items)

	if len(items) <= trisPerChunk {
		// Leaf
		node := &cm.Nodes[icur]
		node.Min, node.Max = bmin, bmax
		node.Index = len(cm.Tris)
		node.Count = len(items)
		for _, it := range items {
			cm.Tris = append(cm.Tris, it.tri)
		}
		return
	}

	// Split
	axis := longestAxis(bmax[0]-bmin[0], bmax[1]-bmin[1])
	slices.SortFunc(items, func(a, b boundsItem) int {
		switch {
		case a.min[axis] < b.min[axis]:
			return -1
		case a.min[axis] > b.min[axis]:
			return 1
		}
		return 0
	})
	isplit := len(items) / 2

	// Left
	cm.subdivide(items[:isplit], trisPerChunk, maxNodes)
	// Right
	cm.subdivide(items[isplit:], trisPerChunk, maxNodes)

	node := &cm.Nodes[icur]
	node.Min, node.Max = bmin, bmax
	// Negative index means escape.
	node.Index = -(len(cm.Nodes) - icur)
}

// NewChunkyTriMesh builds the chunk tree over src.
func NewChunkyTriMesh(src TriangleSource, trisPerChunk int) *ChunkyTriMesh {
	ntris := src.TriangleCount()
	trisPerChunk = max(trisPerChunk, 1)
	nchunks := (ntris + trisPerChunk - 1) / trisPerChunk
	cm := &ChunkyTriMesh{
		Nodes: make([]ChunkyTriMeshNode, 0, nchunks*4),
		Tris:  make([]int, 0, ntris),
	}
	if ntris == 0 {
		return cm
	}

	// Build tree
	items := make([]boundsItem, ntris)
	for i := range items {
		b := src.Triangle(i).Bounds()
		// Calc triangle XZ bounds.
		items[i] = boundsItem{
			min: mgl32.Vec2{b.Min[0], b.Min[2]},
			max: mgl32.Vec2{b.Max[0], b.Max[2]},
			tri: i,
		}
	}
	cm.subdivide(items, trisPerChunk, nchunks*4)

	// Calc max tris per node.
	for i := range cm.Nodes {
		if n := &cm.Nodes[i]; n.IsLeaf() {
			cm.MaxTrisPerChunk = max(cm.MaxTrisPerChunk, n.Count)
		}
	}
	return cm
}

func checkOverlapRect(amin, amax, bmin, bmax mgl32.Vec2) bool {
	return !(amin[0] > bmax[0] || amax[0] < bmin[0] || amin[1] > bmax[1] || amax[1] < bmin[1])
}

// ChunksOverlappingRect returns the leaf nodes whose bounds overlap the xz
// rectangle.
func (cm *ChunkyTriMesh) ChunksOverlappingRect(bmin, bmax mgl32.Vec2) []int {
	var ids []int
	// Traverse tree
	for i := 0; i < len(cm.Nodes); {
		node := &cm.Nodes[i]
		overlap := checkOverlapRect(bmin, bmax, node.Min, node.Max)
		isLeaf := node.IsLeaf()
		if isLeaf && overlap {
			ids = append(ids, i)
		}
		if overlap || isLeaf {
			i++
		} else {
			i += -node.Index
		}
	}
	return ids
}

// TrianglesOverlappingRect collects the source triangle indices of every
// chunk overlapping the rectangle.
func (cm *ChunkyTriMesh) TrianglesOverlappingRect(bmin, bmax mgl32.Vec2) []int {
	var tris []int
	for _, id := range cm.ChunksOverlappingRect(bmin, bmax) {
		n := &cm.Nodes[id]
		tris = append(tris, cm.Tris[n.Index:n.Index+n.Count]...)
	}
	return tris
}
