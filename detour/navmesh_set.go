package detour

import (
	"errors"
	"fmt"
	"io"

	"github.com/Robmaister/SharpNav-sub000/common/rw"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	NavMeshSetMagic   = 'M'<<24 | 'S'<<16 | 'E'<<8 | 'T' // 'MSET'
	NavMeshSetVersion = 2
)

var ErrNavMeshSet = errors.New("detour: bad navmesh set")

func (p *NavMeshParams) ToBin(w *rw.ReaderWriter) {
	w.WriteFloat32s(p.Orig[:])
	w.WriteFloat32(p.TileWidth)
	w.WriteFloat32(p.TileHeight)
	w.WriteInt32(p.MaxTiles)
	w.WriteInt32(p.MaxPolys)
}

func (p *NavMeshParams) FromBin(r *rw.ReaderWriter) {
	r.ReadFloat32s(p.Orig[:])
	p.TileWidth = r.ReadFloat32()
	p.TileHeight = r.ReadFloat32()
	p.MaxTiles = r.ReadInt32()
	p.MaxPolys = r.ReadInt32()
}

// NavMeshSetHeader starts a navmesh set file.
type NavMeshSetHeader struct {
	Magic    int32
	Version  int32
	BuildID  uuid.UUID
	NumTiles int32
	Params   NavMeshParams
}

func (h *NavMeshSetHeader) Encode(w *rw.ReaderWriter) {
	w.WriteInt32(h.Magic)
	w.WriteInt32(h.Version)
	w.WriteUInt8s(h.BuildID[:])
	w.WriteInt32(h.NumTiles)
	h.Params.ToBin(w)
}

func (h *NavMeshSetHeader) Decode(r *rw.ReaderWriter) {
	h.Magic = r.ReadInt32()
	h.Version = r.ReadInt32()
	r.ReadUInt8s(h.BuildID[:])
	h.NumTiles = r.ReadInt32()
	h.Params.FromBin(r)
}

// NavMeshTileHeader precedes the binary data of each tile of a set.
type NavMeshTileHeader struct {
	TileRef  TileRef
	DataSize int32
}

func (h *NavMeshTileHeader) Encode(w *rw.ReaderWriter) {
	w.WriteUInt32(uint32(h.TileRef))
	w.WriteInt32(h.DataSize)
}

func (h *NavMeshTileHeader) Decode(r *rw.ReaderWriter) {
	h.TileRef = TileRef(r.ReadUInt32())
	h.DataSize = r.ReadInt32()
}

// SaveNavMeshSet writes every tile of mesh with its reference so that
// LoadNavMeshSet restores the same polygon references.
func SaveNavMeshSet(out io.Writer, mesh *TiledNavMesh, buildID uuid.UUID) error {
	w := rw.NewNavMeshDataBinWriter()

	// Store header.
	header := NavMeshSetHeader{
		Magic:   NavMeshSetMagic,
		Version: NavMeshSetVersion,
		BuildID: buildID,
		Params:  mesh.Params(),
	}
	for i := 0; i < mesh.MaxTiles(); i++ {
		if tile := mesh.Tile(i); tile.Header != nil && tile.Data != nil {
			header.NumTiles++
		}
	}
	header.Encode(w)

	// Store tiles.
	for i := 0; i < mesh.MaxTiles(); i++ {
		tile := mesh.Tile(i)
		if tile.Header == nil || tile.Data == nil {
			continue
		}
		data := tile.Data.ToBin()
		tileHeader := NavMeshTileHeader{TileRef: mesh.TileRefOf(tile), DataSize: int32(len(data))}
		tileHeader.Encode(w)
		w.WriteUInt8s(data)
	}

	if _, err := out.Write(w.GetWriteBytes()); err != nil {
		return fmt.Errorf("detour: write navmesh set: %w", err)
	}
	return nil
}

// LoadNavMeshSet reads a file written by SaveNavMeshSet.
func LoadNavMeshSet(in io.Reader, logger *zap.Logger) (*TiledNavMesh, uuid.UUID, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("detour: read navmesh set: %w", err)
	}
	r := rw.NewNavMeshDataBinReader(data)

	// Read header.
	var header NavMeshSetHeader
	header.Decode(r)
	if err := r.Err(); err != nil {
		return nil, uuid.Nil, fmt.Errorf("%w: header: %w", ErrNavMeshSet, err)
	}
	if header.Magic != NavMeshSetMagic {
		return nil, uuid.Nil, fmt.Errorf("%w: %w", ErrNavMeshSet, ErrWrongMagic)
	}
	if header.Version != NavMeshSetVersion {
		return nil, uuid.Nil, fmt.Errorf("%w: %w: %d", ErrNavMeshSet, ErrWrongVersion, header.Version)
	}

	mesh, err := NewTiledNavMesh(header.Params, logger)
	if err != nil {
		return nil, uuid.Nil, err
	}

	// Read tiles.
	for i := 0; i < int(header.NumTiles); i++ {
		var tileHeader NavMeshTileHeader
		tileHeader.Decode(r)
		if tileHeader.TileRef == 0 || tileHeader.DataSize <= 0 {
			break
		}
		tileData := r.ReadBytes(int(tileHeader.DataSize))
		if err := r.Err(); err != nil {
			return nil, uuid.Nil, fmt.Errorf("%w: tile %d: %w", ErrNavMeshSet, i, err)
		}

		meshData := &NavMeshData{}
		if err := meshData.FromBin(tileData); err != nil {
			return nil, uuid.Nil, fmt.Errorf("%w: tile %d: %w", ErrNavMeshSet, i, err)
		}
		if _, status := mesh.AddTile(meshData, TileFreeData, tileHeader.TileRef); status.Failed() {
			return nil, uuid.Nil, fmt.Errorf("%w: add tile %d: %s", ErrNavMeshSet, i, status)
		}
	}
	return mesh, header.BuildID, nil
}
