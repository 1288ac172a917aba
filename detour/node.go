package detour

import (
	"container/heap"

	"github.com/Robmaister/SharpNav-sub000/common"
)

// NodeFlags mark the search state of a Node.
type NodeFlags uint8

const (
	NodeOpen   NodeFlags = 0x01
	NodeClosed NodeFlags = 0x02
	// NodeParentDetached marks a parent that is not adjacent to the node.
	NodeParentDetached NodeFlags = 0x04
)

const (
	nodeParentBits = 24
	nodeStateBits  = 2
	// maxStatesPerNode is the number of nodes one polygon can have, told
	// apart by Node.State.
	maxStatesPerNode = 1 << nodeStateBits

	nullNodeIdx = ^uint32(0)
)

// Node is a search node of a NodePool.
type Node struct {
	Pos   common.Vec3 // position of the node
	Cost  float32     // cost from the start to the node
	Total float32     // cost plus heuristic
	PIdx  uint32      // index of the parent node + 1, 0 for none
	State uint8       // extra state, see maxStatesPerNode
	Flags NodeFlags
	Id    PolyRef

	heapIndex int
	poolIdx   uint32
}

func hashRef(a PolyRef) uint32 {
	v := uint32(a)
	v += ^(v << 15)
	v ^= v >> 10
	v += v << 3
	v ^= v >> 6
	v += ^(v << 11)
	v ^= v >> 16
	return v
}

// NodePool owns a fixed number of nodes looked up by polygon and state.
type NodePool struct {
	nodes    []Node
	first    []uint32
	next     []uint32
	maxNodes int
	count    int
}

// NewNodePool allocates maxNodes nodes. hashSize must be a power of two.
func NewNodePool(maxNodes, hashSize int) *NodePool {
	common.AssertTrue(common.NextPow2(uint32(hashSize)) == uint32(hashSize), "hash size must be a power of two")
	// pidx is special as 0 means "none" and 1 is the first node. For that reason
	// we have 1 fewer nodes available than the number of values it can contain.
	common.AssertTrue(maxNodes > 0 && maxNodes <= 1<<nodeParentBits-1, "node count out of range")
	p := &NodePool{
		nodes:    make([]Node, maxNodes),
		first:    make([]uint32, hashSize),
		next:     make([]uint32, maxNodes),
		maxNodes: maxNodes,
	}
	p.Clear()
	return p
}

func (p *NodePool) Clear() {
	for i := range p.first {
		p.first[i] = nullNodeIdx
	}
	p.count = 0
}

func (p *NodePool) MaxNodes() int  { return p.maxNodes }
func (p *NodePool) NodeCount() int { return p.count }

// NodeIdx returns the 1 based index stored in Node.PIdx.
func (p *NodePool) NodeIdx(n *Node) uint32 {
	if n == nil {
		return 0
	}
	return n.poolIdx
}

func (p *NodePool) NodeAtIdx(idx uint32) *Node {
	if idx == 0 || int(idx) > p.count {
		return nil
	}
	return &p.nodes[idx-1]
}

func (p *NodePool) bucket(id PolyRef) uint32 {
	return hashRef(id) & uint32(len(p.first)-1)
}

// Node returns the node of id and state, allocating it when needed. It
// returns nil when the pool is exhausted.
func (p *NodePool) Node(id PolyRef, state uint8) *Node {
	b := p.bucket(id)
	for i := p.first[b]; i != nullNodeIdx; i = p.next[i] {
		if n := &p.nodes[i]; n.Id == id && n.State == state {
			return n
		}
	}
	if p.count >= p.maxNodes {
		return nil
	}
	i := uint32(p.count)
	p.count++

	// Init node
	n := &p.nodes[i]
	*n = Node{Id: id, State: state, heapIndex: -1, poolIdx: i + 1}
	p.next[i] = p.first[b]
	p.first[b] = i
	return n
}

// FindNode returns the existing node of id and state or nil.
func (p *NodePool) FindNode(id PolyRef, state uint8) *Node {
	b := p.bucket(id)
	for i := p.first[b]; i != nullNodeIdx; i = p.next[i] {
		if n := &p.nodes[i]; n.Id == id && n.State == state {
			return n
		}
	}
	return nil
}

// FindNodes returns up to maxNodes nodes of id, one per state.
func (p *NodePool) FindNodes(id PolyRef, maxNodes int) []*Node {
	var out []*Node
	b := p.bucket(id)
	for i := p.first[b]; i != nullNodeIdx && len(out) < maxNodes; i = p.next[i] {
		if p.nodes[i].Id == id {
			out = append(out, &p.nodes[i])
		}
	}
	return out
}

// NodeQueue is a min heap of nodes ordered by Node.Total.
type NodeQueue struct {
	nodes []*Node
}

func NewNodeQueue(capacity int) *NodeQueue {
	return &NodeQueue{nodes: make([]*Node, 0, capacity)}
}

func (q *NodeQueue) Len() int { return len(q.nodes) }

func (q *NodeQueue) Less(i, j int) bool { return q.nodes[i].Total < q.nodes[j].Total }

func (q *NodeQueue) Swap(i, j int) {
	q.nodes[i], q.nodes[j] = q.nodes[j], q.nodes[i]
	q.nodes[i].heapIndex = i
	q.nodes[j].heapIndex = j
}

// Push and Pop implement heap.Interface; use Offer and Poll.
func (q *NodeQueue) Push(x any) {
	n := x.(*Node)
	n.heapIndex = len(q.nodes)
	q.nodes = append(q.nodes, n)
}

func (q *NodeQueue) Pop() any {
	last := len(q.nodes) - 1
	n := q.nodes[last]
	q.nodes[last] = nil
	q.nodes = q.nodes[:last]
	n.heapIndex = -1
	return n
}

func (q *NodeQueue) Clear() {
	for _, n := range q.nodes {
		n.heapIndex = -1
	}
	q.nodes = q.nodes[:0]
}

func (q *NodeQueue) Empty() bool { return len(q.nodes) == 0 }

func (q *NodeQueue) Top() *Node { return q.nodes[0] }

// Offer inserts n.
func (q *NodeQueue) Offer(n *Node) { heap.Push(q, n) }

// Poll removes and returns the cheapest node.
func (q *NodeQueue) Poll() *Node { return heap.Pop(q).(*Node) }

// Modify restores the order after the Total of n decreased.
func (q *NodeQueue) Modify(n *Node) {
	if n.heapIndex >= 0 && n.heapIndex < len(q.nodes) && q.nodes[n.heapIndex] == n {
		heap.Fix(q, n.heapIndex)
	}
}
