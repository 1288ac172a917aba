package recast

import (
	"math"

	"github.com/Robmaister/SharpNav-sub000/common"
)

// BBox3 is an axis aligned box in world space.
type BBox3 struct {
	Min, Max common.Vec3
}

// EmptyBBox3 returns an inverted box that any Extend call will reset.
func EmptyBBox3() BBox3 {
	inf := float32(math.MaxFloat32)
	return BBox3{
		Min: common.Vec3{inf, inf, inf},
		Max: common.Vec3{-inf, -inf, -inf},
	}
}

func (b BBox3) Extend(v common.Vec3) BBox3 {
	common.Vmin(b.Min[:], v[:])
	common.Vmax(b.Max[:], v[:])
	return b
}

func (b BBox3) Overlaps(o BBox3) bool {
	return common.OverlapBounds(b.Min[:], b.Max[:], o.Min[:], o.Max[:])
}

func (b BBox3) Center() common.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b BBox3) Size() common.Vec3 {
	return b.Max.Sub(b.Min)
}

func (b BBox3) IsValid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

type Triangle struct {
	A, B, C common.Vec3
}

// Normal is the unit normal (B-A) x (C-A). Upward facing walkable
// geometry has a positive y component.
func (t Triangle) Normal() common.Vec3 {
	n := t.B.Sub(t.A).Cross(t.C.Sub(t.A))
	if n.Len() == 0 {
		return n
	}
	return n.Normalize()
}

func (t Triangle) Bounds() BBox3 {
	return EmptyBBox3().Extend(t.A).Extend(t.B).Extend(t.C)
}

// TriangleSource enumerates input level geometry.
type TriangleSource interface {
	TriangleCount() int
	Triangle(i int) Triangle
}

// TriangleList is a TriangleSource over unindexed triangles.
type TriangleList []Triangle

func (l TriangleList) TriangleCount() int { return len(l) }

func (l TriangleList) Triangle(i int) Triangle { return l[i] }

// IndexedTriangleMesh is a TriangleSource over shared vertices.
type IndexedTriangleMesh struct {
	Verts   []common.Vec3
	Indices []int
}

func (m *IndexedTriangleMesh) TriangleCount() int { return len(m.Indices) / 3 }

func (m *IndexedTriangleMesh) Triangle(i int) Triangle {
	return Triangle{
		A: m.Verts[m.Indices[i*3+0]],
		B: m.Verts[m.Indices[i*3+1]],
		C: m.Verts[m.Indices[i*3+2]],
	}
}

// BoundsOf returns the bounding box of every triangle in src.
func BoundsOf(src TriangleSource) BBox3 {
	b := EmptyBBox3()
	for i := 0; i < src.TriangleCount(); i++ {
		t := src.Triangle(i)
		b = b.Extend(t.A).Extend(t.B).Extend(t.C)
	}
	return b
}
