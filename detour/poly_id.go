package detour

import (
	"fmt"

	"github.com/Robmaister/SharpNav-sub000/common"
)

// PolyRef is a handle to a polygon in a TiledNavMesh, packed as salt, tile
// index and polygon index from the most significant bit down. Zero is the
// null reference.
type PolyRef uint32

// TileRef is a handle to a tile. It is the PolyRef of the tile's polygon 0.
type TileRef uint32

// minSaltBits is the smallest salt that still catches stale references.
const minSaltBits = 10

// PolyIdManager encodes and decodes PolyRefs with fixed field widths.
type PolyIdManager struct {
	saltBits uint32
	tileBits uint32
	polyBits uint32
}

// NewPolyIdManager sizes the tile and polygon fields for maxTiles tiles of
// maxPolys polygons. The remaining bits up to 31 are salt.
func NewPolyIdManager(maxTiles, maxPolys int) (PolyIdManager, error) {
	if maxTiles <= 0 || maxPolys <= 0 {
		return PolyIdManager{}, fmt.Errorf("detour: %d tiles of %d polygons: %s", maxTiles, maxPolys, InvalidParam)
	}
	tileBits := common.Ilog2(common.NextPow2(uint32(maxTiles)))
	polyBits := common.Ilog2(common.NextPow2(uint32(maxPolys)))
	if tileBits+polyBits > 31-minSaltBits {
		return PolyIdManager{}, fmt.Errorf("detour: %d tile bits and %d poly bits leave fewer than %d salt bits: %s",
			tileBits, polyBits, minSaltBits, InvalidParam)
	}
	return PolyIdManager{
		saltBits: 31 - tileBits - polyBits,
		tileBits: tileBits,
		polyBits: polyBits,
	}, nil
}

func (m PolyIdManager) SaltBits() uint32 { return m.saltBits }
func (m PolyIdManager) TileBits() uint32 { return m.tileBits }
func (m PolyIdManager) PolyBits() uint32 { return m.polyBits }

func (m PolyIdManager) saltMask() uint32 { return 1<<m.saltBits - 1 }
func (m PolyIdManager) tileMask() uint32 { return 1<<m.tileBits - 1 }
func (m PolyIdManager) polyMask() uint32 { return 1<<m.polyBits - 1 }

// / Derives a standard polygon reference.
// /  @param[in]	salt	The tile's salt value.
// /  @param[in]	it		The index of the tile.
// /  @param[in]	ip		The index of the polygon within the tile.
func (m PolyIdManager) Encode(salt, it, ip uint32) PolyRef {
	return PolyRef((salt&m.saltMask())<<(m.polyBits+m.tileBits) | (it&m.tileMask())<<m.polyBits | ip&m.polyMask())
}

// / Decodes a standard polygon reference.
// /  @see #Encode
func (m PolyIdManager) Decode(ref PolyRef) (salt, it, ip uint32) {
	return m.DecodeSalt(ref), m.DecodeTile(ref), m.DecodePoly(ref)
}

func (m PolyIdManager) DecodeSalt(ref PolyRef) uint32 {
	return uint32(ref) >> (m.polyBits + m.tileBits) & m.saltMask()
}

func (m PolyIdManager) DecodeTile(ref PolyRef) uint32 {
	return uint32(ref) >> m.polyBits & m.tileMask()
}

func (m PolyIdManager) DecodePoly(ref PolyRef) uint32 {
	return uint32(ref) & m.polyMask()
}
