package detour

import (
	"fmt"
	"math"
	"slices"

	"github.com/Robmaister/SharpNav-sub000/common"
	"github.com/Robmaister/SharpNav-sub000/recast"
)

// OffMeshConnectionSpec describes an off-mesh connection to bake into a tile.
type OffMeshConnectionSpec struct {
	Start, End    common.Vec3
	Radius        float32
	Bidirectional bool
	Area          uint8
	Flags         uint16
	UserId        uint32
}

// NavMeshCreateParams is the input of CreateNavMeshData.
type NavMeshCreateParams struct {
	PolyMesh *recast.PolyMesh
	// DetailMesh is optional. Without it every polygon is fanned into
	// triangles at polygon height.
	DetailMesh *recast.PolyMeshDetail

	OffMeshConnections []OffMeshConnectionSpec

	UserId    uint32
	TileX     int32
	TileY     int32
	TileLayer int32

	WalkableHeight float32 // agent height in world units
	WalkableRadius float32 // agent radius in world units
	WalkableClimb  float32 // agent max climb in world units

	BuildBvTree bool
}

// classifyOffMeshPoint returns the side of the tile bounds the point lies
// beyond, or SideInternal.
func classifyOffMeshPoint(pt, bmin, bmax common.Vec3) BoundarySide {
	const (
		xp = 1 << 0
		zp = 1 << 1
		xm = 1 << 2
		zm = 1 << 3
	)
	outcode := 0
	if pt[0] >= bmax[0] {
		outcode |= xp
	}
	if pt[2] >= bmax[2] {
		outcode |= zp
	}
	if pt[0] < bmin[0] {
		outcode |= xm
	}
	if pt[2] < bmin[2] {
		outcode |= zm
	}
	switch outcode {
	case xp:
		return SidePlusX
	case xp | zp:
		return SidePlusXPlusZ
	case zp:
		return SidePlusZ
	case xm | zp:
		return SideMinusXPlusZ
	case xm:
		return SideMinusX
	case xm | zm:
		return SideMinusXMinusZ
	case zm:
		return SideMinusZ
	case xp | zm:
		return SidePlusXMinusZ
	}
	return SideInternal
}

type bvItem struct {
	bmin, bmax [3]uint16
	i          int32
}

func longestAxis(x, y, z uint16) int {
	axis := 0
	maxVal := x
	if y > maxVal {
		axis = 1
		maxVal = y
	}
	if z > maxVal {
		axis = 2
	}
	return axis
}

func subdivideBV(items []bvItem, nodes []BVNode) []BVNode {
	icur := len(nodes)
	nodes = append(nodes, BVNode{})
	if len(items) == 1 {
		// Leaf
		nodes[icur] = BVNode{Bmin: items[0].bmin, Bmax: items[0].bmax, I: items[0].i}
		return nodes
	}

	// Split
	bmin, bmax := items[0].bmin, items[0].bmax
	for _, it := range items[1:] {
		for k := 0; k < 3; k++ {
			bmin[k] = min(bmin[k], it.bmin[k])
			bmax[k] = max(bmax[k], it.bmax[k])
		}
	}
	axis := longestAxis(bmax[0]-bmin[0], bmax[1]-bmin[1], bmax[2]-bmin[2])
	slices.SortFunc(items, func(a, b bvItem) int { return int(a.bmin[axis]) - int(b.bmin[axis]) })

	isplit := len(items) / 2
	nodes = subdivideBV(items[:isplit], nodes)
	nodes = subdivideBV(items[isplit:], nodes)

	// Negative index means escape.
	nodes[icur] = BVNode{Bmin: bmin, Bmax: bmax, I: -int32(len(nodes) - icur)}
	return nodes
}

// createBVTree quantizes every polygon's bounds with the cell size on all
// axes and builds the tree over them.
func createBVTree(p *NavMeshCreateParams) []BVNode {
	pm := p.PolyMesh
	quantFactor := 1 / pm.CellSize
	bmin := pm.Bounds.Min
	items := make([]bvItem, len(pm.Polys))
	for i := range pm.Polys {
		it := &items[i]
		it.i = int32(i)
		if dm := p.DetailMesh; dm != nil {
			// Calc polygon bounds. Use detail meshes if available.
			m := dm.Meshes[i]
			vmin := dm.Verts[m.VertexIndex]
			vmax := vmin
			for j := 1; j < m.VertexCount; j++ {
				v := dm.Verts[m.VertexIndex+j]
				for k := 0; k < 3; k++ {
					vmin[k] = min(vmin[k], v[k])
					vmax[k] = max(vmax[k], v[k])
				}
			}
			for k := 0; k < 3; k++ {
				it.bmin[k] = quantize(vmin[k], bmin[k], quantFactor, math.Trunc)
				it.bmax[k] = quantize(vmax[k], bmin[k], quantFactor, math.Trunc)
			}
			continue
		}
		poly := &pm.Polys[i]
		v0 := pm.Verts[poly.Vertices[0]]
		lo := [3]int{v0.X, v0.Y, v0.Z}
		hi := lo
		for j := 1; j < poly.VertexCount(); j++ {
			v := pm.Verts[poly.Vertices[j]]
			for k, c := range [3]int{v.X, v.Y, v.Z} {
				lo[k] = min(lo[k], c)
				hi[k] = max(hi[k], c)
			}
		}
		for k := 0; k < 3; k++ {
			it.bmin[k] = uint16(lo[k])
			it.bmax[k] = uint16(hi[k])
		}
		// Remap y
		it.bmin[1] = uint16(math.Floor(float64(float32(lo[1]) * pm.CellHeight / pm.CellSize)))
		it.bmax[1] = uint16(math.Ceil(float64(float32(hi[1]) * pm.CellHeight / pm.CellSize)))
	}
	return subdivideBV(items, make([]BVNode, 0, len(items)*2))
}

// portalNeighbour maps a recast tile border direction to ExtLink|side.
func portalNeighbour(n int) uint16 {
	switch n & 0xf {
	case 0: // Portal x-
		return ExtLink | uint16(SideMinusX)
	case 1: // Portal z+
		return ExtLink | uint16(SidePlusZ)
	case 2: // Portal x+
		return ExtLink | uint16(SidePlusX)
	case 3: // Portal z-
		return ExtLink | uint16(SideMinusZ)
	}
	return 0
}

// CreateNavMeshData converts a polygon mesh, its optional detail mesh and
// off-mesh connections into the data of one tile.
func CreateNavMeshData(p *NavMeshCreateParams) (*NavMeshData, error) {
	pm := p.PolyMesh
	if pm == nil || len(pm.Polys) == 0 {
		return nil, fmt.Errorf("%w: no polygons", ErrInvalidBuildParams)
	}
	nvp := pm.NumVertsPerPoly
	if nvp > MaxVertsPerPolygon {
		return nil, fmt.Errorf("%w: %d vertices per polygon (max %d)", ErrInvalidBuildParams, nvp, MaxVertsPerPolygon)
	}
	if len(pm.Verts) >= 0xffff {
		return nil, fmt.Errorf("%w: %d vertices", ErrInvalidBuildParams, len(pm.Verts))
	}
	dm := p.DetailMesh
	if dm != nil && len(dm.Meshes) != len(pm.Polys) {
		return nil, fmt.Errorf("%w: %d detail meshes for %d polygons", ErrInvalidBuildParams, len(dm.Meshes), len(pm.Polys))
	}
	cs, ch := pm.CellSize, pm.CellHeight
	bmin, bmax := pm.Bounds.Min, pm.Bounds.Max

	// Classify off-mesh connection points. We store only the connections
	// whose start point is inside the tile.
	offMeshConClass := make([]BoundarySide, len(p.OffMeshConnections)*2)
	storedOffMeshConCount := 0
	offMeshConLinkCount := 0
	if len(p.OffMeshConnections) > 0 {
		// Find tight heigh bounds, used for culling out off-mesh start locations.
		hmin := float32(math.MaxFloat32)
		hmax := float32(-math.MaxFloat32)
		if dm != nil && len(dm.Verts) > 0 {
			for _, v := range dm.Verts {
				hmin = min(hmin, v[1])
				hmax = max(hmax, v[1])
			}
		} else {
			for _, v := range pm.Verts {
				h := bmin[1] + float32(v.Y)*ch
				hmin = min(hmin, h)
				hmax = max(hmax, h)
			}
		}
		hmin -= p.WalkableClimb
		hmax += p.WalkableClimb
		tbmin, tbmax := bmin, bmax
		tbmin[1] = hmin
		tbmax[1] = hmax

		for i, con := range p.OffMeshConnections {
			c0 := classifyOffMeshPoint(con.Start, tbmin, tbmax)
			c1 := classifyOffMeshPoint(con.End, tbmin, tbmax)
			// Zero out off-mesh start positions which are not even potentially touching the mesh.
			if c0 == SideInternal && (con.Start[1] < tbmin[1] || con.Start[1] > tbmax[1]) {
				c0 = 0
			}
			offMeshConClass[i*2+0] = c0
			offMeshConClass[i*2+1] = c1
			// Count how many links should be allocated for off-mesh connections.
			if c0 == SideInternal {
				offMeshConLinkCount++
				storedOffMeshConCount++
			}
			if c1 == SideInternal {
				offMeshConLinkCount++
			}
		}
	}

	// Off-mesh connections are stored as polygons, adjust values.
	totPolyCount := len(pm.Polys) + storedOffMeshConCount
	totVertCount := len(pm.Verts) + storedOffMeshConCount*2

	// Find portal edges which are at tile borders.
	edgeCount := 0
	portalCount := 0
	for i := range pm.Polys {
		poly := &pm.Polys[i]
		for j := 0; j < poly.VertexCount(); j++ {
			edgeCount++
			if n := poly.NeighborEdges[j]; n != recast.NullId && n&recast.NeighborEdgeFlag != 0 && portalNeighbour(n) != 0 {
				portalCount++
			}
		}
	}
	maxLinkCount := edgeCount + portalCount*2 + offMeshConLinkCount*2

	// Find unique detail vertices.
	uniqueDetailVertCount := 0
	detailTriCount := 0
	if dm != nil {
		detailTriCount = len(dm.Tris)
		for i := range pm.Polys {
			uniqueDetailVertCount += dm.Meshes[i].VertexCount - pm.Polys[i].VertexCount()
		}
	} else {
		for i := range pm.Polys {
			detailTriCount += pm.Polys[i].VertexCount() - 2
		}
	}

	data := &NavMeshData{
		Header: MeshHeader{
			Magic:           NavMeshMagic,
			Version:         NavMeshVersion,
			X:               p.TileX,
			Y:               p.TileY,
			Layer:           p.TileLayer,
			UserId:          p.UserId,
			PolyCount:       int32(totPolyCount),
			VertCount:       int32(totVertCount),
			MaxLinkCount:    int32(maxLinkCount),
			Bmin:            bmin,
			Bmax:            bmax,
			DetailMeshCount: int32(len(pm.Polys)),
			DetailVertCount: int32(uniqueDetailVertCount),
			DetailTriCount:  int32(detailTriCount),
			BvQuantFactor:   1 / cs,
			OffMeshBase:     int32(len(pm.Polys)),
			WalkableHeight:  p.WalkableHeight,
			WalkableRadius:  p.WalkableRadius,
			WalkableClimb:   p.WalkableClimb,
			OffMeshConCount: int32(storedOffMeshConCount),
		},
		Verts:        make([]float32, 0, totVertCount*3),
		Polys:        make([]Poly, totPolyCount),
		DetailMeshes: make([]PolyDetail, len(pm.Polys)),
		DetailVerts:  make([]float32, 0, uniqueDetailVertCount*3),
		DetailTris:   make([]uint8, 0, detailTriCount*4),
		OffMeshCons:  make([]OffMeshConnection, 0, storedOffMeshConCount),
	}
	offMeshVertsBase := len(pm.Verts)
	offMeshPolyBase := len(pm.Polys)

	// Store vertices
	// Mesh vertices
	for _, v := range pm.Verts {
		data.Verts = append(data.Verts,
			bmin[0]+float32(v.X)*cs,
			bmin[1]+float32(v.Y)*ch,
			bmin[2]+float32(v.Z)*cs)
	}
	// Off-mesh link vertices.
	for i, con := range p.OffMeshConnections {
		// Only store connections which start from this tile.
		if offMeshConClass[i*2+0] == SideInternal {
			data.Verts = append(data.Verts, con.Start[:]...)
			data.Verts = append(data.Verts, con.End[:]...)
		}
	}

	// Store polygons
	// Mesh polys
	for i := range pm.Polys {
		src := &pm.Polys[i]
		dst := &data.Polys[i]
		dst.FirstLink = NullLink
		dst.Flags = src.Flags
		if dst.Flags == 0 {
			dst.Flags = PolyFlagWalk
		}
		dst.SetArea(uint8(src.Area))
		dst.SetType(PolyTypeGround)
		for j := 0; j < src.VertexCount(); j++ {
			dst.Verts[j] = uint16(src.Vertices[j])
			switch n := src.NeighborEdges[j]; {
			case n == recast.NullId:
				dst.Neis[j] = 0
			case n&recast.NeighborEdgeFlag != 0:
				// Border or portal edge.
				dst.Neis[j] = portalNeighbour(n)
			default:
				dst.Neis[j] = uint16(n + 1)
			}
			dst.VertCount++
		}
	}
	// Off-mesh connection vertices.
	n := 0
	for i, con := range p.OffMeshConnections {
		if offMeshConClass[i*2+0] != SideInternal {
			continue
		}
		dst := &data.Polys[offMeshPolyBase+n]
		dst.FirstLink = NullLink
		dst.VertCount = 2
		dst.Verts[0] = uint16(offMeshVertsBase + n*2 + 0)
		dst.Verts[1] = uint16(offMeshVertsBase + n*2 + 1)
		dst.Flags = con.Flags
		dst.SetArea(con.Area)
		dst.SetType(PolyTypeOffMeshConnection)
		n++
	}

	// Store detail meshes and vertices.
	if dm != nil {
		vbase := 0
		for i := range pm.Polys {
			m := dm.Meshes[i]
			nv := int(data.Polys[i].VertCount)
			data.DetailMeshes[i] = PolyDetail{
				VertBase:  uint32(vbase),
				VertCount: uint8(m.VertexCount - nv),
				TriBase:   uint32(m.TriangleIndex),
				TriCount:  uint8(m.TriangleCount),
			}
			// Copy vertices except the first 'nv' verts which are equal to nav poly verts.
			for _, v := range dm.Verts[m.VertexIndex+nv : m.VertexIndex+m.VertexCount] {
				data.DetailVerts = append(data.DetailVerts, v[:]...)
			}
			vbase += m.VertexCount - nv
		}
		// Store triangles.
		for _, t := range dm.Tris {
			data.DetailTris = append(data.DetailTris, uint8(t.Indices[0]), uint8(t.Indices[1]), uint8(t.Indices[2]), uint8(t.Flags))
		}
	} else {
		// Create dummy detail mesh by triangulating polys.
		tbase := 0
		for i := range pm.Polys {
			nv := int(data.Polys[i].VertCount)
			data.DetailMeshes[i] = PolyDetail{TriBase: uint32(tbase), TriCount: uint8(nv - 2)}
			// Triangulate polygon (local indices).
			for j := 2; j < nv; j++ {
				// Bit for each edge that belongs to poly boundary.
				flags := uint8(DetailEdgeBoundary << 2)
				if j == 2 {
					flags |= DetailEdgeBoundary << 0
				}
				if j == nv-1 {
					flags |= DetailEdgeBoundary << 4
				}
				data.DetailTris = append(data.DetailTris, 0, uint8(j-1), uint8(j), flags)
				tbase++
			}
		}
	}

	// Store and create BVtree.
	if p.BuildBvTree {
		data.BVTree = createBVTree(p)
		data.Header.BvNodeCount = int32(len(data.BVTree))
	}

	// Store Off-Mesh connections.
	n = 0
	for i, con := range p.OffMeshConnections {
		if offMeshConClass[i*2+0] != SideInternal {
			continue
		}
		oc := OffMeshConnection{
			Poly:   uint16(offMeshPolyBase + n),
			Rad:    con.Radius,
			Side:   uint8(offMeshConClass[i*2+1]),
			UserId: con.UserId,
		}
		copy(oc.Pos[0:3], con.Start[:])
		copy(oc.Pos[3:6], con.End[:])
		if con.Bidirectional {
			oc.Flags = OffMeshConBidir
		}
		data.OffMeshCons = append(data.OffMeshCons, oc)
		n++
	}
	return data, nil
}
