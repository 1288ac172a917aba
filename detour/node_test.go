package detour

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	s := Failure | InvalidParam
	assert.True(t, s.Failed())
	assert.False(t, s.Succeeded())
	assert.True(t, s.Detail(InvalidParam))
	assert.False(t, s.Detail(OutOfNodes))
	assert.Equal(t, "failure|invalid param", s.String())

	s = Success | PartialResult | OutOfNodes
	assert.True(t, s.Succeeded())
	assert.Equal(t, PartialResult|OutOfNodes, s&StatusDetailMask)
	assert.Equal(t, "none", Status(0).String())
	assert.True(t, InProgress.InProgress())
}

func TestPolyIdRoundTrip(t *testing.T) {
	ids, err := NewPolyIdManager(128, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), ids.TileBits())
	assert.Equal(t, uint32(10), ids.PolyBits())
	assert.Equal(t, uint32(14), ids.SaltBits())

	ref := ids.Encode(77, 100, 999)
	salt, it, ip := ids.Decode(ref)
	assert.Equal(t, uint32(77), salt)
	assert.Equal(t, uint32(100), it)
	assert.Equal(t, uint32(999), ip)

	// Salt wraps inside its own field.
	ref = ids.Encode(1<<14+3, 1, 2)
	assert.Equal(t, uint32(3), ids.DecodeSalt(ref))
	assert.Equal(t, uint32(1), ids.DecodeTile(ref))
}

func TestPolyIdTooFewSaltBits(t *testing.T) {
	_, err := NewPolyIdManager(1<<12, 1<<10)
	require.Error(t, err)
	_, err = NewPolyIdManager(0, 10)
	require.Error(t, err)
	_, err = NewPolyIdManager(1<<11, 1<<10)
	require.NoError(t, err)
}

func TestNodePool(t *testing.T) {
	pool := NewNodePool(4, 2)

	a := pool.Node(10, 0)
	require.NotNil(t, a)
	assert.Equal(t, uint32(1), pool.NodeIdx(a))
	assert.Same(t, a, pool.Node(10, 0))
	assert.Same(t, a, pool.NodeAtIdx(1))
	assert.Zero(t, pool.NodeIdx(nil))

	b := pool.Node(10, 1)
	require.NotNil(t, b)
	assert.NotSame(t, a, b)
	assert.Len(t, pool.FindNodes(10, 4), 2)
	assert.Len(t, pool.FindNodes(10, 1), 1)
	assert.Nil(t, pool.FindNode(11, 0))

	require.NotNil(t, pool.Node(11, 0))
	require.NotNil(t, pool.Node(12, 0))
	assert.Nil(t, pool.Node(13, 0), "pool is full")
	assert.Equal(t, 4, pool.NodeCount())

	pool.Clear()
	assert.Zero(t, pool.NodeCount())
	assert.Nil(t, pool.FindNode(10, 0))
	assert.Nil(t, pool.NodeAtIdx(1))
}

func TestNodeQueue(t *testing.T) {
	q := NewNodeQueue(8)
	nodes := []*Node{{Total: 5}, {Total: 1}, {Total: 3}, {Total: 4}}
	for _, n := range nodes {
		q.Offer(n)
	}
	assert.Same(t, nodes[1], q.Top())

	nodes[0].Total = 0.5
	q.Modify(nodes[0])

	var order []float32
	for !q.Empty() {
		order = append(order, q.Poll().Total)
	}
	assert.Equal(t, []float32{0.5, 1, 3, 4}, order)

	q.Offer(nodes[2])
	q.Clear()
	assert.True(t, q.Empty())
}

func TestStandardQueryFilter(t *testing.T) {
	f := NewStandardQueryFilter()
	p := &Poly{Flags: 0x02}
	p.SetArea(5)
	assert.True(t, f.PassFilter(0, nil, p))

	f.SetExcludeFlags(0x02)
	assert.False(t, f.PassFilter(0, nil, p))
	f.SetExcludeFlags(0)
	f.SetIncludeFlags(0x01)
	assert.False(t, f.PassFilter(0, nil, p))

	f.SetAreaCost(5, 3)
	assert.Equal(t, float32(3), f.AreaCost(5))
	cost := f.Cost([3]float32{0, 0, 0}, [3]float32{2, 0, 0}, 0, nil, nil, 0, nil, p, 0, nil, nil)
	assert.InDelta(t, 6, cost, 1e-6)
}
