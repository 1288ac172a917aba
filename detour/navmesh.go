package detour

import (
	"fmt"
	"math"

	"github.com/Robmaister/SharpNav-sub000/common"
	"go.uber.org/zap"
)

// maxNeighbourTiles caps the tiles linked per side when a tile is added.
const maxNeighbourTiles = 32

// TiledNavMesh is a grid of navigation mesh tiles. Tiles can be added and
// removed at runtime; polygons are addressed by PolyRef.
//
// A TiledNavMesh may be shared by any number of NavMeshQuery instances as
// long as no tile is added or removed while they run.
type TiledNavMesh struct {
	params      NavMeshParams
	orig        common.Vec3
	tileWidth   float32
	tileHeight  float32
	maxTiles    int
	tileLutMask int
	posLookup   []*MeshTile
	nextFree    *MeshTile
	tiles       []MeshTile
	ids         PolyIdManager
	log         *zap.Logger
}

// NewTiledNavMesh creates an empty mesh for the tile grid of params.
func NewTiledNavMesh(params NavMeshParams, logger *zap.Logger) (*TiledNavMesh, error) {
	if params.TileWidth <= 0 || params.TileHeight <= 0 {
		return nil, fmt.Errorf("detour: tile size %gx%g: %s", params.TileWidth, params.TileHeight, InvalidParam)
	}
	ids, err := NewPolyIdManager(int(params.MaxTiles), int(params.MaxPolys))
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	lutSize := int(common.NextPow2(uint32(params.MaxTiles / 4)))
	if lutSize == 0 {
		lutSize = 1
	}
	m := &TiledNavMesh{
		params:      params,
		orig:        params.Orig,
		tileWidth:   params.TileWidth,
		tileHeight:  params.TileHeight,
		maxTiles:    int(params.MaxTiles),
		tileLutMask: lutSize - 1,
		posLookup:   make([]*MeshTile, lutSize),
		tiles:       make([]MeshTile, params.MaxTiles),
		ids:         ids,
		log:         logger,
	}
	for i := m.maxTiles - 1; i >= 0; i-- {
		m.tiles[i].index = uint32(i)
		m.tiles[i].salt = 1
		m.tiles[i].next = m.nextFree
		m.nextFree = &m.tiles[i]
	}
	return m, nil
}

// NewSingleTileNavMesh creates a mesh of exactly one tile holding data.
func NewSingleTileNavMesh(data *NavMeshData, flags TileFlags, logger *zap.Logger) (*TiledNavMesh, error) {
	if err := checkHeader(&data.Header); err != nil {
		return nil, err
	}
	h := &data.Header
	m, err := NewTiledNavMesh(NavMeshParams{
		Orig:       h.Bmin,
		TileWidth:  h.Bmax[0] - h.Bmin[0],
		TileHeight: h.Bmax[2] - h.Bmin[2],
		MaxTiles:   1,
		MaxPolys:   h.PolyCount,
	}, logger)
	if err != nil {
		return nil, err
	}
	if _, status := m.AddTile(data, flags, 0); status.Failed() {
		return nil, fmt.Errorf("detour: add tile: %s", status)
	}
	return m, nil
}

func checkHeader(h *MeshHeader) error {
	if h.Magic != NavMeshMagic {
		return ErrWrongMagic
	}
	if h.Version != NavMeshVersion {
		return fmt.Errorf("%w: %d", ErrWrongVersion, h.Version)
	}
	return nil
}

func (m *TiledNavMesh) Params() NavMeshParams { return m.params }

func (m *TiledNavMesh) IdManager() PolyIdManager { return m.ids }

// MaxTiles is the number of tile slots. Tile(i) is valid for i < MaxTiles.
func (m *TiledNavMesh) MaxTiles() int { return m.maxTiles }

// Tile returns slot i. The slot holds no tile when its Header is nil.
func (m *TiledNavMesh) Tile(i int) *MeshTile { return &m.tiles[i] }

// AddTile adds the tile data to the mesh and links it with its neighbours.
// A non zero lastRef restores the tile at the slot and salt of a removed
// tile so that old references stay valid.
func (m *TiledNavMesh) AddTile(data *NavMeshData, flags TileFlags, lastRef TileRef) (TileRef, Status) {
	header := &data.Header
	if header.Magic != NavMeshMagic {
		return 0, Failure | WrongMagic
	}
	if header.Version != NavMeshVersion {
		return 0, Failure | WrongVersion
	}
	// Do not allow adding more polygons than specified in the NavMesh's maxPolys constraint.
	if m.params.MaxPolys < header.PolyCount {
		return 0, Failure | InvalidParam
	}
	// Make sure the location is free.
	if m.TileAt(header.X, header.Y, header.Layer) != nil {
		return 0, Failure | AlreadyOccupied
	}

	// Allocate a tile.
	var tile *MeshTile
	if lastRef == 0 {
		if m.nextFree != nil {
			tile = m.nextFree
			m.nextFree = tile.next
			tile.next = nil
		}
	} else {
		// Try to relocate the tile to specific index with same salt.
		tileIndex := int(m.ids.DecodeTile(PolyRef(lastRef)))
		if tileIndex >= m.maxTiles {
			return 0, Failure | OutOfMemory
		}
		// Try to find the specific tile id from the free list.
		target := &m.tiles[tileIndex]
		var prev *MeshTile
		tile = m.nextFree
		for tile != nil && tile != target {
			prev = tile
			tile = tile.next
		}
		// Could not find the correct location.
		if tile != target {
			return 0, Failure | OutOfMemory
		}
		// Remove from freelist
		if prev == nil {
			m.nextFree = tile.next
		} else {
			prev.next = tile.next
		}
		// Restore salt.
		tile.salt = m.ids.DecodeSalt(PolyRef(lastRef))
	}
	// Make sure we could allocate a tile.
	if tile == nil {
		return 0, Failure | OutOfMemory
	}

	// Insert tile into the position lut.
	h := common.ComputeTileHash(int(header.X), int(header.Y), m.tileLutMask)
	tile.next = m.posLookup[h]
	m.posLookup[h] = tile

	tile.Header = header
	tile.Polys = data.Polys
	tile.Verts = data.Verts
	tile.DetailMeshes = data.DetailMeshes
	tile.DetailVerts = data.DetailVerts
	tile.DetailTris = data.DetailTris
	tile.BVTree = data.BVTree
	tile.OffMeshCons = data.OffMeshCons
	tile.Data = data
	tile.Flags = flags

	// Build links freelist
	tile.Links = make([]Link, header.MaxLinkCount)
	tile.linksFreeList = NullLink
	if len(tile.Links) > 0 {
		tile.linksFreeList = 0
		for i := range tile.Links {
			tile.Links[i].Next = uint32(i + 1)
		}
		tile.Links[len(tile.Links)-1].Next = NullLink
	}

	m.connectIntLinks(tile)
	// Base off-mesh connections to their starting polygons and connect connections inside the tile.
	m.baseOffMeshLinks(tile)
	m.connectExtOffMeshLinks(tile, tile, -1)

	// Connect with layers in current tile.
	for _, nei := range m.TilesAt(header.X, header.Y, maxNeighbourTiles) {
		if nei == tile {
			continue
		}
		m.connectExtLinks(tile, nei, -1)
		m.connectExtLinks(nei, tile, -1)
		m.connectExtOffMeshLinks(tile, nei, -1)
		m.connectExtOffMeshLinks(nei, tile, -1)
	}
	// Connect with neighbour tiles.
	for i := 0; i < 8; i++ {
		side := BoundarySide(i)
		for _, nei := range m.neighbourTilesAt(header.X, header.Y, side, maxNeighbourTiles) {
			m.connectExtLinks(tile, nei, int(side))
			m.connectExtLinks(nei, tile, int(side.Opposite()))
			m.connectExtOffMeshLinks(tile, nei, int(side))
			m.connectExtOffMeshLinks(nei, tile, int(side.Opposite()))
		}
	}

	ref := m.TileRefOf(tile)
	m.log.Debug("added tile",
		zap.Int32("x", header.X), zap.Int32("y", header.Y), zap.Int32("layer", header.Layer),
		zap.Int32("polys", header.PolyCount), zap.Uint32("ref", uint32(ref)))
	return ref, Success
}

// RemoveTile unlinks the tile from its neighbours and frees its slot. The
// slot's salt is bumped so references into the tile become invalid. The
// tile data is returned unless the tile was added with TileFreeData.
func (m *TiledNavMesh) RemoveTile(ref TileRef) (*NavMeshData, Status) {
	if ref == 0 {
		return nil, Failure | InvalidParam
	}
	tileIndex := int(m.ids.DecodeTile(PolyRef(ref)))
	tileSalt := m.ids.DecodeSalt(PolyRef(ref))
	if tileIndex >= m.maxTiles {
		return nil, Failure | InvalidParam
	}
	tile := &m.tiles[tileIndex]
	if tile.salt != tileSalt || tile.Header == nil {
		return nil, Failure | InvalidParam
	}
	header := tile.Header

	// Remove tile from hash lookup.
	h := common.ComputeTileHash(int(header.X), int(header.Y), m.tileLutMask)
	var prev *MeshTile
	for cur := m.posLookup[h]; cur != nil; cur = cur.next {
		if cur == tile {
			if prev != nil {
				prev.next = cur.next
			} else {
				m.posLookup[h] = cur.next
			}
			break
		}
		prev = cur
	}

	// Remove connections to neighbour tiles.
	// Disconnect from other layers in current tile.
	for _, nei := range m.TilesAt(header.X, header.Y, maxNeighbourTiles) {
		if nei == tile {
			continue
		}
		m.unconnectLinks(nei, tile)
	}
	// Disconnect from neighbour tiles.
	for i := 0; i < 8; i++ {
		for _, nei := range m.neighbourTilesAt(header.X, header.Y, BoundarySide(i), maxNeighbourTiles) {
			m.unconnectLinks(nei, tile)
		}
	}

	var data *NavMeshData
	if tile.Flags&TileFreeData == 0 {
		data = tile.Data
	}
	m.log.Debug("removed tile",
		zap.Int32("x", header.X), zap.Int32("y", header.Y), zap.Int32("layer", header.Layer),
		zap.Uint32("ref", uint32(ref)))

	// Reset tile.
	salt := tile.salt
	*tile = MeshTile{index: tile.index}
	// Update salt, salt should never be zero.
	tile.salt = (salt + 1) & m.ids.saltMask()
	if tile.salt == 0 {
		tile.salt++
	}

	// Add to free list.
	tile.next = m.nextFree
	m.nextFree = tile
	return data, Success
}

// CalcTileLoc returns the grid location of the tile containing pos.
func (m *TiledNavMesh) CalcTileLoc(pos common.Vec3) (tx, ty int32) {
	tx = int32(math.Floor(float64((pos[0] - m.orig[0]) / m.tileWidth)))
	ty = int32(math.Floor(float64((pos[2] - m.orig[2]) / m.tileHeight)))
	return tx, ty
}

// TileAt returns the tile at the grid location or nil.
func (m *TiledNavMesh) TileAt(x, y, layer int32) *MeshTile {
	h := common.ComputeTileHash(int(x), int(y), m.tileLutMask)
	for tile := m.posLookup[h]; tile != nil; tile = tile.next {
		if tile.Header != nil && tile.Header.X == x && tile.Header.Y == y && tile.Header.Layer == layer {
			return tile
		}
	}
	return nil
}

// TilesAt returns up to maxTiles tiles of every layer at the grid location.
func (m *TiledNavMesh) TilesAt(x, y int32, maxTiles int) []*MeshTile {
	var out []*MeshTile
	h := common.ComputeTileHash(int(x), int(y), m.tileLutMask)
	for tile := m.posLookup[h]; tile != nil && len(out) < maxTiles; tile = tile.next {
		if tile.Header != nil && tile.Header.X == x && tile.Header.Y == y {
			out = append(out, tile)
		}
	}
	return out
}

func (m *TiledNavMesh) neighbourTilesAt(x, y int32, side BoundarySide, maxTiles int) []*MeshTile {
	nx, ny := x, y
	switch side {
	case SidePlusX:
		nx++
	case SidePlusXPlusZ:
		nx++
		ny++
	case SidePlusZ:
		ny++
	case SideMinusXPlusZ:
		nx--
		ny++
	case SideMinusX:
		nx--
	case SideMinusXMinusZ:
		nx--
		ny--
	case SideMinusZ:
		ny--
	case SidePlusXMinusZ:
		nx++
		ny--
	}
	return m.TilesAt(nx, ny, maxTiles)
}

// TileRefAt returns the reference of the tile at the grid location or 0.
func (m *TiledNavMesh) TileRefAt(x, y, layer int32) TileRef {
	return m.TileRefOf(m.TileAt(x, y, layer))
}

func (m *TiledNavMesh) TileRefOf(tile *MeshTile) TileRef {
	if tile == nil {
		return 0
	}
	return TileRef(m.ids.Encode(tile.salt, tile.index, 0))
}

// PolyRefBase returns the reference of polygon 0 of the tile. Polygon i
// of the tile is PolyRefBase(tile) | i.
func (m *TiledNavMesh) PolyRefBase(tile *MeshTile) PolyRef {
	return PolyRef(m.TileRefOf(tile))
}

// TileByRef returns the tile of ref or nil when ref is stale.
func (m *TiledNavMesh) TileByRef(ref TileRef) *MeshTile {
	if ref == 0 {
		return nil
	}
	tileIndex := int(m.ids.DecodeTile(PolyRef(ref)))
	if tileIndex >= m.maxTiles {
		return nil
	}
	tile := &m.tiles[tileIndex]
	if tile.salt != m.ids.DecodeSalt(PolyRef(ref)) || tile.Header == nil {
		return nil
	}
	return tile
}

// TileAndPolyByRef resolves a polygon reference.
func (m *TiledNavMesh) TileAndPolyByRef(ref PolyRef) (*MeshTile, *Poly, Status) {
	if ref == 0 {
		return nil, nil, Failure
	}
	salt, it, ip := m.ids.Decode(ref)
	if int(it) >= m.maxTiles {
		return nil, nil, Failure | InvalidParam
	}
	tile := &m.tiles[it]
	if tile.salt != salt || tile.Header == nil {
		return nil, nil, Failure | InvalidParam
	}
	if int(ip) >= int(tile.Header.PolyCount) {
		return nil, nil, Failure | InvalidParam
	}
	return tile, &tile.Polys[ip], Success
}

// tileAndPolyByRefUnsafe resolves a reference known to be valid.
func (m *TiledNavMesh) tileAndPolyByRefUnsafe(ref PolyRef) (*MeshTile, *Poly) {
	_, it, ip := m.ids.Decode(ref)
	tile := &m.tiles[it]
	return tile, &tile.Polys[ip]
}

// IsValidPolyRef reports whether ref points at a polygon of a live tile.
func (m *TiledNavMesh) IsValidPolyRef(ref PolyRef) bool {
	_, _, status := m.TileAndPolyByRef(ref)
	return status.Succeeded()
}

// OffMeshConnectionPolyEndPoints returns the endpoints of an off-mesh
// connection polygon in the direction of travel when entered from prevRef.
func (m *TiledNavMesh) OffMeshConnectionPolyEndPoints(prevRef, polyRef PolyRef) (start, end common.Vec3, status Status) {
	tile, poly, status := m.TileAndPolyByRef(polyRef)
	if status.Failed() {
		return start, end, Failure | InvalidParam
	}
	// Make sure that the current poly is indeed off-mesh link.
	if poly.Type() != PolyTypeOffMeshConnection {
		return start, end, Failure
	}

	// Figure out which way to hand out the vertices.
	idx0, idx1 := 0, 1
	// Find link that points to first vertex.
	for i := poly.FirstLink; i != NullLink; i = tile.Links[i].Next {
		if tile.Links[i].Edge == 0 {
			if tile.Links[i].Ref != prevRef {
				idx0, idx1 = 1, 0
			}
			break
		}
	}
	return vec(tile.vert(poly.Verts[idx0])), vec(tile.vert(poly.Verts[idx1])), Success
}

// OffMeshConnectionByRef returns the connection of an off-mesh polygon or nil.
func (m *TiledNavMesh) OffMeshConnectionByRef(ref PolyRef) *OffMeshConnection {
	tile, poly, status := m.TileAndPolyByRef(ref)
	if status.Failed() || poly.Type() != PolyTypeOffMeshConnection {
		return nil
	}
	idx := int(m.ids.DecodePoly(ref)) - int(tile.Header.OffMeshBase)
	if idx < 0 || idx >= len(tile.OffMeshCons) {
		return nil
	}
	return &tile.OffMeshCons[idx]
}

func (m *TiledNavMesh) SetPolyFlags(ref PolyRef, flags uint16) Status {
	_, poly, status := m.TileAndPolyByRef(ref)
	if status.Failed() {
		return status
	}
	poly.Flags = flags
	return Success
}

func (m *TiledNavMesh) PolyFlags(ref PolyRef) (uint16, Status) {
	_, poly, status := m.TileAndPolyByRef(ref)
	if status.Failed() {
		return 0, status
	}
	return poly.Flags, Success
}

func (m *TiledNavMesh) SetPolyArea(ref PolyRef, area uint8) Status {
	_, poly, status := m.TileAndPolyByRef(ref)
	if status.Failed() {
		return status
	}
	poly.SetArea(area)
	return Success
}

func (m *TiledNavMesh) PolyArea(ref PolyRef) (uint8, Status) {
	_, poly, status := m.TileAndPolyByRef(ref)
	if status.Failed() {
		return 0, status
	}
	return poly.Area(), Success
}

func allocLink(tile *MeshTile) uint32 {
	if tile.linksFreeList == NullLink {
		return NullLink
	}
	link := tile.linksFreeList
	tile.linksFreeList = tile.Links[link].Next
	return link
}

func freeLink(tile *MeshTile, link uint32) {
	tile.Links[link].Next = tile.linksFreeList
	tile.linksFreeList = link
}

// addLink prepends a link to the list of poly. It returns false when the
// tile is out of links.
func addLink(tile *MeshTile, poly *Poly, l Link) bool {
	idx := allocLink(tile)
	if idx == NullLink {
		return false
	}
	l.Next = poly.FirstLink
	tile.Links[idx] = l
	poly.FirstLink = idx
	return true
}

func (m *TiledNavMesh) connectIntLinks(tile *MeshTile) {
	base := m.PolyRefBase(tile)
	for i := range tile.Polys {
		poly := &tile.Polys[i]
		poly.FirstLink = NullLink
		if poly.Type() == PolyTypeOffMeshConnection {
			continue
		}
		// Build edge links backwards so that the links will be
		// in the linked list from lowest index to highest.
		for j := int(poly.VertCount) - 1; j >= 0; j-- {
			// Skip hard and non-internal edges.
			if poly.Neis[j] == 0 || poly.Neis[j]&ExtLink != 0 {
				continue
			}
			addLink(tile, poly, Link{
				Ref:  base | PolyRef(poly.Neis[j]-1),
				Edge: uint8(j),
				Side: 0xff,
			})
		}
	}
}

// unconnectLinks drops every link of tile that points into target.
func (m *TiledNavMesh) unconnectLinks(tile, target *MeshTile) {
	targetNum := m.ids.DecodeTile(PolyRef(m.TileRefOf(target)))
	for i := range tile.Polys {
		poly := &tile.Polys[i]
		j := poly.FirstLink
		pj := uint32(NullLink)
		for j != NullLink {
			if m.ids.DecodeTile(tile.Links[j].Ref) == targetNum {
				// Remove link.
				nj := tile.Links[j].Next
				if pj == NullLink {
					poly.FirstLink = nj
				} else {
					tile.Links[pj].Next = nj
				}
				freeLink(tile, j)
				j = nj
			} else {
				// Advance
				pj = j
				j = tile.Links[j].Next
			}
		}
	}
}

// connectExtLinks links the portal edges of tile on side (or every side
// for -1) to the matching polygons of target.
func (m *TiledNavMesh) connectExtLinks(tile, target *MeshTile, side int) {
	if tile == nil {
		return
	}
	// Connect border links.
	for i := range tile.Polys {
		poly := &tile.Polys[i]
		nv := int(poly.VertCount)
		for j := 0; j < nv; j++ {
			// Skip non-portal edges.
			if poly.Neis[j]&ExtLink == 0 {
				continue
			}
			dir := int(poly.Neis[j] & 0xff)
			if side != -1 && dir != side {
				continue
			}

			// Create new links
			va := tile.vert(poly.Verts[j])
			vb := tile.vert(poly.Verts[(j+1)%nv])
			for _, c := range m.findConnectingPolys(va, vb, target, BoundarySide(dir).Opposite(), 4) {
				l := Link{Ref: c.ref, Edge: uint8(j), Side: uint8(dir)}
				// Compress portal limits to a byte value.
				var tmin, tmax float32
				switch dir {
				case int(SidePlusX), int(SideMinusX):
					tmin = (c.amin - va[2]) / (vb[2] - va[2])
					tmax = (c.amax - va[2]) / (vb[2] - va[2])
				case int(SidePlusZ), int(SideMinusZ):
					tmin = (c.amin - va[0]) / (vb[0] - va[0])
					tmax = (c.amax - va[0]) / (vb[0] - va[0])
				}
				if tmin > tmax {
					tmin, tmax = tmax, tmin
				}
				l.Bmin = uint8(math.Round(float64(common.Clamp(tmin, 0, 1) * 255)))
				l.Bmax = uint8(math.Round(float64(common.Clamp(tmax, 0, 1) * 255)))
				addLink(tile, poly, l)
			}
		}
	}
}

type connectingPoly struct {
	ref        PolyRef
	amin, amax float32 // overlap along the slab axis
}

// findConnectingPolys returns the polygons of tile whose portal edges on
// side overlap the slab of edge va-vb.
func (m *TiledNavMesh) findConnectingPolys(va, vb []float32, tile *MeshTile, side BoundarySide, maxcon int) []connectingPoly {
	if tile == nil {
		return nil
	}
	amin, amax := calcSlabEndPoints(va, vb, side)
	apos := slabCoord(va, side)

	// Remove links pointing to 'side' and compact the links array.
	match := ExtLink | uint16(side)
	base := m.PolyRefBase(tile)
	var out []connectingPoly
	for i := range tile.Polys {
		poly := &tile.Polys[i]
		nv := int(poly.VertCount)
		for j := 0; j < nv; j++ {
			// Skip edges which do not point to the right side.
			if poly.Neis[j] != match {
				continue
			}
			vc := tile.vert(poly.Verts[j])
			vd := tile.vert(poly.Verts[(j+1)%nv])
			bpos := slabCoord(vc, side)

			// Segments are not close enough.
			if common.Abs(apos-bpos) > 0.01 {
				continue
			}
			// Check if the segments touch.
			bmin, bmax := calcSlabEndPoints(vc, vd, side)
			if !overlapSlabs(amin, amax, bmin, bmax, 0.01, tile.Header.WalkableClimb) {
				continue
			}
			// Add return value.
			if len(out) < maxcon {
				out = append(out, connectingPoly{
					ref:  base | PolyRef(i),
					amin: max(amin[0], bmin[0]),
					amax: min(amax[0], bmax[0]),
				})
			}
			break
		}
	}
	return out
}

// slabCoord returns the coordinate of v across the tile seam of side.
func slabCoord(v []float32, side BoundarySide) float32 {
	switch side {
	case SidePlusX, SideMinusX:
		return v[0]
	case SidePlusZ, SideMinusZ:
		return v[2]
	}
	return 0
}

// calcSlabEndPoints projects edge va-vb on the seam of side as (along,
// height) points ordered along the seam.
func calcSlabEndPoints(va, vb []float32, side BoundarySide) (bmin, bmax [2]float32) {
	switch side {
	case SidePlusX, SideMinusX:
		if va[2] < vb[2] {
			return [2]float32{va[2], va[1]}, [2]float32{vb[2], vb[1]}
		}
		return [2]float32{vb[2], vb[1]}, [2]float32{va[2], va[1]}
	case SidePlusZ, SideMinusZ:
		if va[0] < vb[0] {
			return [2]float32{va[0], va[1]}, [2]float32{vb[0], vb[1]}
		}
		return [2]float32{vb[0], vb[1]}, [2]float32{va[0], va[1]}
	}
	return
}

// overlapSlabs reports whether two slabs overlap along the seam by more
// than px and are within py of each other in height somewhere on it.
func overlapSlabs(amin, amax, bmin, bmax [2]float32, px, py float32) bool {
	// Check for horizontal overlap.
	// The segment is shrunken a little so that slabs which touch
	// at end points are not connected.
	minx := max(amin[0]+px, bmin[0]+px)
	maxx := min(amax[0]-px, bmax[0]-px)
	if minx > maxx {
		return false
	}

	// Check vertical overlap.
	ad := (amax[1] - amin[1]) / (amax[0] - amin[0])
	ak := amin[1] - ad*amin[0]
	bd := (bmax[1] - bmin[1]) / (bmax[0] - bmin[0])
	bk := bmin[1] - bd*bmin[0]
	aminy := ad*minx + ak
	amaxy := ad*maxx + ak
	bminy := bd*minx + bk
	bmaxy := bd*maxx + bk
	dmin := bminy - aminy
	dmax := bmaxy - amaxy

	// Crossing segments always overlap.
	if dmin*dmax < 0 {
		return true
	}
	// Check for overlap at endpoints.
	thr := common.Sqr(py * 2)
	return dmin*dmin <= thr || dmax*dmax <= thr
}

// baseOffMeshLinks attaches the start of every off-mesh connection of the
// tile to the polygon under it.
func (m *TiledNavMesh) baseOffMeshLinks(tile *MeshTile) {
	base := m.PolyRefBase(tile)
	for i := range tile.OffMeshCons {
		con := &tile.OffMeshCons[i]
		poly := &tile.Polys[con.Poly]
		halfExtents := common.Vec3{con.Rad, tile.Header.WalkableClimb, con.Rad}

		// Find polygon to connect to.
		p := common.Vec3{con.Pos[0], con.Pos[1], con.Pos[2]} // First vertex
		ref, nearestPt := m.findNearestPolyInTile(tile, p, halfExtents)
		if ref == 0 {
			continue
		}
		// findNearestPoly may return too optimistic results, further check to make sure.
		if common.Sqr(nearestPt[0]-p[0])+common.Sqr(nearestPt[2]-p[2]) > common.Sqr(con.Rad) {
			continue
		}
		// Make sure the location is on current mesh.
		copy(tile.vert(poly.Verts[0]), nearestPt[:])

		// Link off-mesh connection to target poly.
		addLink(tile, poly, Link{Ref: ref, Edge: 0, Side: 0xff})

		// Start end-point is always connect back to off-mesh connection.
		landPoly := &tile.Polys[m.ids.DecodePoly(ref)]
		addLink(tile, landPoly, Link{Ref: base | PolyRef(con.Poly), Edge: 0xff, Side: 0xff})
	}
}

// connectExtOffMeshLinks lands the off-mesh connections of target that end
// in tile. side is where tile lies seen from target, -1 for the same cell.
func (m *TiledNavMesh) connectExtOffMeshLinks(tile, target *MeshTile, side int) {
	if tile == nil {
		return
	}
	// Connect off-mesh links.
	// We are interested on links which land from target tile to this tile.
	oppositeSide := uint8(0xff)
	linkSide := uint8(0xff)
	if side != -1 {
		oppositeSide = uint8(BoundarySide(side).Opposite())
		linkSide = uint8(side)
	}
	for i := range target.OffMeshCons {
		targetCon := &target.OffMeshCons[i]
		if targetCon.Side != oppositeSide {
			continue
		}
		targetPoly := &target.Polys[targetCon.Poly]
		// Skip off-mesh connections which start location could not be connected at all.
		if targetPoly.FirstLink == NullLink {
			continue
		}
		halfExtents := common.Vec3{targetCon.Rad, target.Header.WalkableClimb, targetCon.Rad}

		// Find polygon to connect to.
		p := common.Vec3{targetCon.Pos[3], targetCon.Pos[4], targetCon.Pos[5]}
		ref, nearestPt := m.findNearestPolyInTile(tile, p, halfExtents)
		if ref == 0 {
			continue
		}
		// findNearestPoly may return too optimistic results, further check to make sure.
		if common.Sqr(nearestPt[0]-p[0])+common.Sqr(nearestPt[2]-p[2]) > common.Sqr(targetCon.Rad) {
			continue
		}
		// Make sure the location is on current mesh.
		copy(target.vert(targetPoly.Verts[1]), nearestPt[:])

		// Link off-mesh connection to target poly.
		addLink(target, targetPoly, Link{Ref: ref, Edge: 1, Side: oppositeSide})

		// Link target poly to off-mesh connection.
		if targetCon.Flags&OffMeshConBidir != 0 {
			landPoly := &tile.Polys[m.ids.DecodePoly(ref)]
			addLink(tile, landPoly, Link{
				Ref:  m.PolyRefBase(target) | PolyRef(targetCon.Poly),
				Edge: 0xff,
				Side: linkSide,
			})
		}
	}
}

// queryPolygonsInTile returns up to maxPolys ground polygons of the tile
// whose bounds overlap [qmin, qmax].
func (m *TiledNavMesh) queryPolygonsInTile(tile *MeshTile, qmin, qmax common.Vec3, filter QueryFilter, out []PolyRef, maxPolys int) []PolyRef {
	base := m.PolyRefBase(tile)
	if len(tile.BVTree) > 0 {
		tbmin := tile.Header.Bmin
		tbmax := tile.Header.Bmax
		qfac := tile.Header.BvQuantFactor

		// Calculate quantized box
		var bmin, bmax [3]uint16
		for k := 0; k < 3; k++ {
			// Clamp query box to world box.
			lo := common.Clamp(qmin[k], tbmin[k], tbmax[k]) - tbmin[k]
			hi := common.Clamp(qmax[k], tbmin[k], tbmax[k]) - tbmin[k]
			// Quantize
			bmin[k] = uint16(qfac*lo) & 0xfffe
			bmax[k] = uint16(qfac*hi+1) | 1
		}

		// Traverse tree
		for i := 0; i < len(tile.BVTree); {
			node := &tile.BVTree[i]
			overlap := overlapQuantBounds(bmin, bmax, node.Bmin, node.Bmax)
			isLeafNode := node.I >= 0
			if isLeafNode && overlap {
				ref := base | PolyRef(node.I)
				if filter == nil || filter.PassFilter(ref, tile, &tile.Polys[node.I]) {
					if len(out) < maxPolys {
						out = append(out, ref)
					}
				}
			}
			if overlap || isLeafNode {
				i++
			} else {
				i += int(-node.I)
			}
		}
		return out
	}

	for i := range tile.Polys {
		p := &tile.Polys[i]
		// Do not return off-mesh connection polygons.
		if p.Type() == PolyTypeOffMeshConnection {
			continue
		}
		ref := base | PolyRef(i)
		if filter != nil && !filter.PassFilter(ref, tile, p) {
			continue
		}
		// Calc polygon bounds.
		bmin := vec(tile.vert(p.Verts[0]))
		bmax := bmin
		for j := 1; j < int(p.VertCount); j++ {
			v := tile.vert(p.Verts[j])
			common.Vmin(bmin[:], v)
			common.Vmax(bmax[:], v)
		}
		if common.OverlapBounds(qmin[:], qmax[:], bmin[:], bmax[:]) && len(out) < maxPolys {
			out = append(out, ref)
		}
	}
	return out
}

// findNearestPolyInTile returns the polygon of the tile nearest to center
// within halfExtents and the closest point on it.
func (m *TiledNavMesh) findNearestPolyInTile(tile *MeshTile, center, halfExtents common.Vec3) (PolyRef, common.Vec3) {
	bmin := center.Sub(halfExtents)
	bmax := center.Add(halfExtents)

	// Get nearby polygons from proximity grid.
	polys := m.queryPolygonsInTile(tile, bmin, bmax, nil, make([]PolyRef, 0, 128), 128)

	// Find nearest polygon amongst the nearby polygons.
	var nearest PolyRef
	var nearestPt common.Vec3
	nearestDistanceSqr := float32(math.MaxFloat32)
	for _, ref := range polys {
		closestPtPoly, posOverPoly := m.ClosestPointOnPoly(ref, center)

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
			nearestPt = closestPtPoly
			nearestDistanceSqr = d
			nearest = ref
		}
	}
	return nearest, nearestPt
}

// ClosestPointOnPoly returns the point on polygon ref closest to pos and
// whether pos lies over the polygon. ref must be valid.
func (m *TiledNavMesh) ClosestPointOnPoly(ref PolyRef, pos common.Vec3) (closest common.Vec3, posOverPoly bool) {
	tile, poly := m.tileAndPolyByRefUnsafe(ref)
	ip := int(m.ids.DecodePoly(ref))
	closest = pos
	if h, ok := polyHeight(tile, poly, ip, pos); ok {
		closest[1] = h
		return closest, true
	}

	// Off-mesh connections don't have detail polys.
	if poly.Type() == PolyTypeOffMeshConnection {
		v0 := tile.vert(poly.Verts[0])
		v1 := tile.vert(poly.Verts[1])
		_, t := distancePtSegSqr2D(pos[:], v0, v1)
		common.Vlerp(closest[:], v0, v1, t)
		return closest, false
	}

	// Outside poly that is not an offmesh connection.
	return closestPointOnDetailEdges(tile, poly, ip, pos, true), false
}

// closestPointOnDetailEdges returns the point on the detail mesh edges of
// poly closest to pos. With onlyBoundary only polygon boundary edges count.
func closestPointOnDetailEdges(tile *MeshTile, poly *Poly, ip int, pos common.Vec3, onlyBoundary bool) common.Vec3 {
	const anyBoundaryEdge = DetailEdgeBoundary<<0 | DetailEdgeBoundary<<2 | DetailEdgeBoundary<<4
	pd := &tile.DetailMeshes[ip]

	dmin := float32(math.MaxFloat32)
	tmin := float32(0)
	var pmin, pmax []float32
	for i := 0; i < int(pd.TriCount); i++ {
		tris := tile.DetailTris[(int(pd.TriBase)+i)*4:]
		if onlyBoundary && tris[3]&anyBoundaryEdge == 0 {
			continue
		}
		v := tile.detailTri(poly, pd, i)
		for k, j := 0, 2; k < 3; j, k = k, k+1 {
			if DetailTriEdgeFlags(tris[3], j)&DetailEdgeBoundary == 0 && (onlyBoundary || tris[j] < tris[k]) {
				// Only looking at boundary edges and this is internal, or
				// this is an inner edge that we will see again or have already seen.
				continue
			}
			d, t := distancePtSegSqr2D(pos[:], v[j], v[k])
			if d < dmin {
				dmin = d
				tmin = t
				pmin = v[j]
				pmax = v[k]
			}
		}
	}
	if pmin == nil {
		return pos
	}
	var closest common.Vec3
	common.Vlerp(closest[:], pmin, pmax, tmin)
	return closest
}

// polyHeight returns the detail mesh height of poly ip at the xz position
// of pos, or false when pos is outside the polygon.
func polyHeight(tile *MeshTile, poly *Poly, ip int, pos common.Vec3) (float32, bool) {
	// Off-mesh connections do not have detail polys and getting height
	// over them does not make sense.
	if poly.Type() == PolyTypeOffMeshConnection {
		return 0, false
	}
	var buf [MaxVertsPerPolygon * 3]float32
	verts := tile.polyVerts(poly, buf[:0])
	if !common.PointInPoly(int(poly.VertCount), verts, pos[:]) {
		return 0, false
	}

	// Find height at the location.
	pd := &tile.DetailMeshes[ip]
	for j := 0; j < int(pd.TriCount); j++ {
		v := tile.detailTri(poly, pd, j)
		if h, ok := closestHeightPointTriangle(pos[:], v[0], v[1], v[2]); ok {
			return h, true
		}
	}

	// If all triangle checks failed above (can happen with degenerate triangles
	// or larger floating point values) the point is on an edge, so just select
	// closest. This should almost never happen so the extra iteration here is ok.
	closest := closestPointOnDetailEdges(tile, poly, ip, pos, false)
	return closest[1], true
}
