package detour

import "github.com/Robmaister/SharpNav-sub000/common"

const (
	// MaxVertsPerPolygon is the maximum number of vertices per navigation polygon.
	MaxVertsPerPolygon = 6

	// NullLink terminates a polygon's link list.
	NullLink = 0xffffffff

	// ExtLink marks a polygon edge as a portal to another tile. The low bits
	// hold the side the neighbour tile is on.
	ExtLink = 0x8000

	// OffMeshConBidir marks an off-mesh connection as traversable both ways.
	OffMeshConBidir = 1

	// MaxAreas is the number of user defined area ids.
	MaxAreas = 64

	// NavMeshMagic identifies tile data.
	NavMeshMagic = 'D'<<24 | 'N'<<16 | 'A'<<8 | 'V'
	// NavMeshVersion is the tile data format version.
	NavMeshVersion = 7

	// DetailEdgeBoundary marks a detail triangle edge on the polygon boundary.
	DetailEdgeBoundary = 0x01
)

// PolyType tells ground polygons from off-mesh connections.
type PolyType uint8

const (
	// PolyTypeGround is a convex polygon on the surface of the mesh.
	PolyTypeGround PolyType = 0
	// PolyTypeOffMeshConnection is a two vertex off-mesh connection.
	PolyTypeOffMeshConnection PolyType = 1
)

// PolyFlagWalk is given to polygons that are built without flags.
const PolyFlagWalk uint16 = 0x01

// TileFlags control how AddTile treats the tile data.
type TileFlags int32

// TileFreeData tells RemoveTile to drop the tile data instead of returning it.
const TileFreeData TileFlags = 0x01

// BoundarySide is the neighbour direction of a tile, counter clockwise from +x.
type BoundarySide uint8

const (
	SidePlusX BoundarySide = iota
	SidePlusXPlusZ
	SidePlusZ
	SideMinusXPlusZ
	SideMinusX
	SideMinusXMinusZ
	SideMinusZ
	SidePlusXMinusZ

	// SideInternal is an off-mesh endpoint inside the tile.
	SideInternal BoundarySide = 0xff
)

// Opposite returns the side facing s.
func (s BoundarySide) Opposite() BoundarySide { return (s + 4) & 0x7 }

// Poly is a polygon of a MeshTile.
type Poly struct {
	// Index to first link in linked list. (Or NullLink if there is no link.)
	FirstLink uint32
	// Indices of the polygon's vertices in MeshTile.Verts.
	Verts [MaxVertsPerPolygon]uint16
	// Neighbour polygon index + 1 for internal edges, ExtLink|side for
	// portals and 0 for walls.
	Neis      [MaxVertsPerPolygon]uint16
	Flags     uint16
	VertCount uint8
	// The bit packed area id and polygon type.
	AreaAndType uint8
}

// / Sets the user defined area id. [Limit: < #MaxAreas]
func (p *Poly) SetArea(a uint8) { p.AreaAndType = (p.AreaAndType & 0xc0) | (a & 0x3f) }

// / Sets the polygon type.
func (p *Poly) SetType(t PolyType) { p.AreaAndType = (p.AreaAndType & 0x3f) | (uint8(t) << 6) }

func (p *Poly) Area() uint8 { return p.AreaAndType & 0x3f }

func (p *Poly) Type() PolyType { return PolyType(p.AreaAndType >> 6) }

// PolyDetail locates the detail submesh of a polygon in its tile.
type PolyDetail struct {
	VertBase  uint32 // offset of the vertices in MeshTile.DetailVerts
	TriBase   uint32 // offset of the triangles in MeshTile.DetailTris
	VertCount uint8  // vertices besides the polygon's own
	TriCount  uint8
}

// Link connects a polygon edge to a neighbour polygon.
type Link struct {
	Ref  PolyRef // neighbour reference
	Next uint32  // index of the next link
	Edge uint8   // index of the polygon edge that owns this link
	Side uint8   // boundary side, 0xff for internal links
	Bmin uint8   // part of the edge covered by a boundary link, 0..255
	Bmax uint8
}

// BVNode is a node of a tile's bounding volume tree in quantized tile space.
type BVNode struct {
	Bmin [3]uint16
	Bmax [3]uint16
	I    int32 // polygon index of leaves, negated escape index otherwise
}

// OffMeshConnection is a user defined jump between two points.
type OffMeshConnection struct {
	// The endpoints of the connection. [(ax, ay, az, bx, by, bz)]
	Pos [6]float32
	// The radius of the endpoints. [Limit: >= 0]
	Rad float32
	// The polygon of the connection within the tile.
	Poly uint16
	// Link flags, OffMeshConBidir.
	Flags uint8
	// End point side.
	Side   uint8
	UserId uint32
}

// MeshHeader describes the contents of a tile.
type MeshHeader struct {
	Magic           int32
	Version         int32
	X               int32 // tile grid location (x, y, layer)
	Y               int32
	Layer           int32
	UserId          uint32
	PolyCount       int32
	VertCount       int32
	MaxLinkCount    int32
	DetailMeshCount int32
	// The number of unique vertices in the detail mesh. (In addition to the polygon vertices.)
	DetailVertCount int32
	DetailTriCount  int32
	BvNodeCount     int32
	OffMeshConCount int32
	OffMeshBase     int32 // index of the first off-mesh connection polygon
	WalkableHeight  float32
	WalkableRadius  float32
	WalkableClimb   float32
	Bmin            [3]float32
	Bmax            [3]float32
	// The bounding volume quantization factor.
	BvQuantFactor float32
}

// NavMeshData is the built data of one tile, as produced by
// CreateNavMeshData and stored by the encoders.
type NavMeshData struct {
	Header       MeshHeader
	Verts        []float32
	Polys        []Poly
	DetailMeshes []PolyDetail
	DetailVerts  []float32
	DetailTris   []uint8 // (vertA, vertB, vertC, triFlags) per triangle
	BVTree       []BVNode
	OffMeshCons  []OffMeshConnection
}

// MeshTile is a tile slot of a TiledNavMesh.
type MeshTile struct {
	index         uint32
	salt          uint32
	linksFreeList uint32

	Header       *MeshHeader
	Polys        []Poly
	Verts        []float32
	Links        []Link
	DetailMeshes []PolyDetail
	DetailVerts  []float32
	DetailTris   []uint8
	BVTree       []BVNode
	OffMeshCons  []OffMeshConnection
	Flags        TileFlags
	Data         *NavMeshData

	next *MeshTile // free list or spatial hash chain
}

// Salt counts the modifications of the tile slot.
func (t *MeshTile) Salt() uint32 { return t.salt }

func (t *MeshTile) vert(i uint16) []float32 { return common.GetVert3(t.Verts, i) }

// polyVerts copies the vertices of p into a flat slice.
func (t *MeshTile) polyVerts(p *Poly, dst []float32) []float32 {
	dst = dst[:0]
	for i := 0; i < int(p.VertCount); i++ {
		dst = append(dst, t.vert(p.Verts[i])...)
	}
	return dst
}

// detailTri returns the three vertices of triangle j of the detail mesh of p.
func (t *MeshTile) detailTri(p *Poly, pd *PolyDetail, j int) [3][]float32 {
	tri := t.DetailTris[(int(pd.TriBase)+j)*4:]
	var v [3][]float32
	for k := 0; k < 3; k++ {
		if tri[k] < p.VertCount {
			v[k] = t.vert(p.Verts[tri[k]])
		} else {
			v[k] = common.GetVert3(t.DetailVerts, int(pd.VertBase)+int(tri[k]-p.VertCount))
		}
	}
	return v
}

// DetailTriEdgeFlags returns the flags of edge edgeIndex of a detail
// triangle, 0 being the edge AB.
func DetailTriEdgeFlags(triFlags uint8, edgeIndex int) int {
	return int(triFlags>>(edgeIndex*2)) & 0x3
}

// NavMeshParams configure the tile grid of a TiledNavMesh.
type NavMeshParams struct {
	Orig       common.Vec3 // world space origin of tile (0, 0)
	TileWidth  float32     // along x
	TileHeight float32     // along z
	// MaxTiles and MaxPolys size the tile and polygon fields of PolyRefs.
	MaxTiles int32
	MaxPolys int32
}
