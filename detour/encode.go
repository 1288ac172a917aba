package detour

import (
	"fmt"

	"github.com/Robmaister/SharpNav-sub000/common"
	"github.com/Robmaister/SharpNav-sub000/common/message"
	"github.com/Robmaister/SharpNav-sub000/common/rw"
)

// Sizes of the records in the binary tile layout.
const (
	meshHeaderSize        = 25 * 4
	polySize              = 4 + MaxVertsPerPolygon*2*2 + 2 + 1 + 1
	linkSize              = 4 + 4 + 4
	polyDetailSize        = 4 + 4 + 1 + 1 + 2
	bvNodeSize            = 6*2 + 4
	offMeshConnectionSize = 7*4 + 2 + 1 + 1 + 4
)

func padding(size int) int { return common.Align4(size) - size }

func (d *MeshHeader) ToBin(w *rw.ReaderWriter) {
	w.WriteInt32(d.Magic)
	w.WriteInt32(d.Version)
	w.WriteInt32(d.X)
	w.WriteInt32(d.Y)
	w.WriteInt32(d.Layer)
	w.WriteUInt32(d.UserId)
	w.WriteInt32(d.PolyCount)
	w.WriteInt32(d.VertCount)
	w.WriteInt32(d.MaxLinkCount)
	w.WriteInt32(d.DetailMeshCount)
	w.WriteInt32(d.DetailVertCount)
	w.WriteInt32(d.DetailTriCount)
	w.WriteInt32(d.BvNodeCount)
	w.WriteInt32(d.OffMeshConCount)
	w.WriteInt32(d.OffMeshBase)
	w.WriteFloat32(d.WalkableHeight)
	w.WriteFloat32(d.WalkableRadius)
	w.WriteFloat32(d.WalkableClimb)
	w.WriteFloat32s(d.Bmin[:])
	w.WriteFloat32s(d.Bmax[:])
	w.WriteFloat32(d.BvQuantFactor)
}

func (d *MeshHeader) FromBin(r *rw.ReaderWriter) *MeshHeader {
	d.Magic = r.ReadInt32()
	d.Version = r.ReadInt32()
	d.X = r.ReadInt32()
	d.Y = r.ReadInt32()
	d.Layer = r.ReadInt32()
	d.UserId = r.ReadUInt32()
	d.PolyCount = r.ReadInt32()
	d.VertCount = r.ReadInt32()
	d.MaxLinkCount = r.ReadInt32()
	d.DetailMeshCount = r.ReadInt32()
	d.DetailVertCount = r.ReadInt32()
	d.DetailTriCount = r.ReadInt32()
	d.BvNodeCount = r.ReadInt32()
	d.OffMeshConCount = r.ReadInt32()
	d.OffMeshBase = r.ReadInt32()
	d.WalkableHeight = r.ReadFloat32()
	d.WalkableRadius = r.ReadFloat32()
	d.WalkableClimb = r.ReadFloat32()
	r.ReadFloat32s(d.Bmin[:])
	r.ReadFloat32s(d.Bmax[:])
	d.BvQuantFactor = r.ReadFloat32()
	return d
}

func (d *Poly) ToBin(w *rw.ReaderWriter) {
	w.WriteUInt32(d.FirstLink)
	w.WriteUInt16s(d.Verts[:])
	w.WriteUInt16s(d.Neis[:])
	w.WriteUInt16(d.Flags)
	w.WriteUInt8(d.VertCount)
	w.WriteUInt8(d.AreaAndType)
}

func (d *Poly) FromBin(r *rw.ReaderWriter) {
	d.FirstLink = r.ReadUInt32()
	r.ReadUInt16s(d.Verts[:])
	r.ReadUInt16s(d.Neis[:])
	d.Flags = r.ReadUInt16()
	d.VertCount = r.ReadUInt8()
	d.AreaAndType = r.ReadUInt8()
}

func (d *PolyDetail) ToBin(w *rw.ReaderWriter) {
	w.WriteUInt32(d.VertBase)
	w.WriteUInt32(d.TriBase)
	w.WriteUInt8(d.VertCount)
	w.WriteUInt8(d.TriCount)
	w.PadZero(2)
}

func (d *PolyDetail) FromBin(r *rw.ReaderWriter) {
	d.VertBase = r.ReadUInt32()
	d.TriBase = r.ReadUInt32()
	d.VertCount = r.ReadUInt8()
	d.TriCount = r.ReadUInt8()
	r.Skip(2)
}

func (d *BVNode) ToBin(w *rw.ReaderWriter) {
	w.WriteUInt16s(d.Bmin[:])
	w.WriteUInt16s(d.Bmax[:])
	w.WriteInt32(d.I)
}

func (d *BVNode) FromBin(r *rw.ReaderWriter) {
	r.ReadUInt16s(d.Bmin[:])
	r.ReadUInt16s(d.Bmax[:])
	d.I = r.ReadInt32()
}

func (d *OffMeshConnection) ToBin(w *rw.ReaderWriter) {
	w.WriteFloat32s(d.Pos[:])
	w.WriteFloat32(d.Rad)
	w.WriteUInt16(d.Poly)
	w.WriteUInt8(d.Flags)
	w.WriteUInt8(d.Side)
	w.WriteUInt32(d.UserId)
}

func (d *OffMeshConnection) FromBin(r *rw.ReaderWriter) {
	r.ReadFloat32s(d.Pos[:])
	d.Rad = r.ReadFloat32()
	d.Poly = r.ReadUInt16()
	d.Flags = r.ReadUInt8()
	d.Side = r.ReadUInt8()
	d.UserId = r.ReadUInt32()
}

// BinSize is the size of the binary form of the tile.
func (d *NavMeshData) BinSize() int {
	h := &d.Header
	return common.Align4(meshHeaderSize) +
		common.Align4(4*3*int(h.VertCount)) +
		common.Align4(polySize*int(h.PolyCount)) +
		common.Align4(linkSize*int(h.MaxLinkCount)) +
		common.Align4(polyDetailSize*int(h.DetailMeshCount)) +
		common.Align4(4*3*int(h.DetailVertCount)) +
		common.Align4(4*int(h.DetailTriCount)) +
		common.Align4(bvNodeSize*int(h.BvNodeCount)) +
		common.Align4(offMeshConnectionSize*int(h.OffMeshConCount))
}

// ToBin writes the tile in the Detour binary layout. Space for the links is
// left zeroed; links are built when the tile is added to a mesh.
func (d *NavMeshData) ToBin() []byte {
	w := rw.NewNavMeshDataBinWriter()
	d.Header.ToBin(w)
	w.PadZero(padding(meshHeaderSize))

	w.WriteFloat32s(d.Verts)
	w.PadZero(padding(4 * len(d.Verts)))

	for i := range d.Polys {
		d.Polys[i].ToBin(w)
	}
	w.PadZero(padding(polySize * len(d.Polys)))

	w.PadZero(common.Align4(linkSize * int(d.Header.MaxLinkCount)))

	for i := range d.DetailMeshes {
		d.DetailMeshes[i].ToBin(w)
	}
	w.PadZero(padding(polyDetailSize * len(d.DetailMeshes)))

	w.WriteFloat32s(d.DetailVerts)
	w.PadZero(padding(4 * len(d.DetailVerts)))

	w.WriteUInt8s(d.DetailTris)
	w.PadZero(padding(len(d.DetailTris)))

	for i := range d.BVTree {
		d.BVTree[i].ToBin(w)
	}
	w.PadZero(padding(bvNodeSize * len(d.BVTree)))

	for i := range d.OffMeshCons {
		d.OffMeshCons[i].ToBin(w)
	}
	w.PadZero(padding(offMeshConnectionSize * len(d.OffMeshCons)))
	return w.GetWriteBytes()
}

// FromBin reads a tile written by ToBin.
func (d *NavMeshData) FromBin(data []byte) error {
	r := rw.NewNavMeshDataBinReader(data)
	d.Header.FromBin(r)
	if err := r.Err(); err != nil {
		return fmt.Errorf("detour: tile header: %w", err)
	}
	if err := checkHeader(&d.Header); err != nil {
		return err
	}
	h := &d.Header
	if len(data) < d.BinSize() {
		return fmt.Errorf("detour: tile data is %d bytes, header needs %d: %w", len(data), d.BinSize(), rw.ErrShortBuffer)
	}
	r.Skip(padding(meshHeaderSize))

	d.Verts = make([]float32, 3*h.VertCount)
	r.ReadFloat32s(d.Verts)
	r.Skip(padding(4 * len(d.Verts)))

	d.Polys = make([]Poly, h.PolyCount)
	for i := range d.Polys {
		d.Polys[i].FromBin(r)
	}
	r.Skip(padding(polySize * len(d.Polys)))

	r.Skip(common.Align4(linkSize * int(h.MaxLinkCount)))

	d.DetailMeshes = make([]PolyDetail, h.DetailMeshCount)
	for i := range d.DetailMeshes {
		d.DetailMeshes[i].FromBin(r)
	}
	r.Skip(padding(polyDetailSize * len(d.DetailMeshes)))

	d.DetailVerts = make([]float32, 3*h.DetailVertCount)
	r.ReadFloat32s(d.DetailVerts)
	r.Skip(padding(4 * len(d.DetailVerts)))

	d.DetailTris = make([]uint8, 4*h.DetailTriCount)
	r.ReadUInt8s(d.DetailTris)
	r.Skip(padding(len(d.DetailTris)))

	d.BVTree = make([]BVNode, h.BvNodeCount)
	for i := range d.BVTree {
		d.BVTree[i].FromBin(r)
	}
	r.Skip(padding(bvNodeSize * len(d.BVTree)))

	d.OffMeshCons = make([]OffMeshConnection, h.OffMeshConCount)
	for i := range d.OffMeshCons {
		d.OffMeshCons[i].FromBin(r)
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("detour: tile body: %w", err)
	}
	return nil
}

// Field numbers of the protobuf tile form.
const (
	protoHeader       = 1
	protoVerts        = 2
	protoPolys        = 3
	protoDetailMeshes = 4
	protoDetailVerts  = 5
	protoDetailTris   = 6
	protoBVTree       = 7
	protoOffMeshCons  = 8
)

func u16s(vs []uint16) []uint32 {
	out := make([]uint32, len(vs))
	for i, v := range vs {
		out[i] = uint32(v)
	}
	return out
}

func (d *MeshHeader) toProto(e *message.Encoder) {
	e.Int32(1, d.Magic)
	e.Int32(2, d.Version)
	e.Int32(3, d.X)
	e.Int32(4, d.Y)
	e.Int32(5, d.Layer)
	e.Uint32(6, d.UserId)
	e.Int32(7, d.PolyCount)
	e.Int32(8, d.VertCount)
	e.Int32(9, d.MaxLinkCount)
	e.Int32(10, d.DetailMeshCount)
	e.Int32(11, d.DetailVertCount)
	e.Int32(12, d.DetailTriCount)
	e.Int32(13, d.BvNodeCount)
	e.Int32(14, d.OffMeshConCount)
	e.Int32(15, d.OffMeshBase)
	e.Float32(16, d.WalkableHeight)
	e.Float32(17, d.WalkableRadius)
	e.Float32(18, d.WalkableClimb)
	e.PackedFloat32s(19, d.Bmin[:])
	e.PackedFloat32s(20, d.Bmax[:])
	e.Float32(21, d.BvQuantFactor)
}

func (d *MeshHeader) fromProto(f message.Field) error {
	switch f.Num {
	case 1:
		d.Magic = f.Int32()
	case 2:
		d.Version = f.Int32()
	case 3:
		d.X = f.Int32()
	case 4:
		d.Y = f.Int32()
	case 5:
		d.Layer = f.Int32()
	case 6:
		d.UserId = f.Uint32()
	case 7:
		d.PolyCount = f.Int32()
	case 8:
		d.VertCount = f.Int32()
	case 9:
		d.MaxLinkCount = f.Int32()
	case 10:
		d.DetailMeshCount = f.Int32()
	case 11:
		d.DetailVertCount = f.Int32()
	case 12:
		d.DetailTriCount = f.Int32()
	case 13:
		d.BvNodeCount = f.Int32()
	case 14:
		d.OffMeshConCount = f.Int32()
	case 15:
		d.OffMeshBase = f.Int32()
	case 16:
		d.WalkableHeight = f.Float32()
	case 17:
		d.WalkableRadius = f.Float32()
	case 18:
		d.WalkableClimb = f.Float32()
	case 19, 20:
		vs, err := message.UnpackFloat32s(f.Bytes)
		if err != nil {
			return err
		}
		if len(vs) != 3 {
			return fmt.Errorf("%w: bounds of %d values", message.ErrMalformed, len(vs))
		}
		if f.Num == 19 {
			copy(d.Bmin[:], vs)
		} else {
			copy(d.Bmax[:], vs)
		}
	case 21:
		d.BvQuantFactor = f.Float32()
	}
	return nil
}

// unpackUint16s decodes a packed field into dst, which must be filled exactly.
func unpackUint16s(b []byte, dst []uint16) error {
	vs, err := message.UnpackUint32s(b)
	if err != nil {
		return err
	}
	if len(vs) != len(dst) {
		return fmt.Errorf("%w: %d values, want %d", message.ErrMalformed, len(vs), len(dst))
	}
	for i, v := range vs {
		dst[i] = uint16(v)
	}
	return nil
}

// ToProto writes the tile as protobuf wire data.
func (d *NavMeshData) ToProto() []byte {
	e := message.NewEncoder()
	e.Message(protoHeader, d.Header.toProto)
	e.PackedFloat32s(protoVerts, d.Verts)
	for i := range d.Polys {
		p := &d.Polys[i]
		e.Message(protoPolys, func(sub *message.Encoder) {
			sub.PackedUint32s(1, u16s(p.Verts[:]))
			sub.PackedUint32s(2, u16s(p.Neis[:]))
			sub.Uint32(3, uint32(p.Flags))
			sub.Uint32(4, uint32(p.VertCount))
			sub.Uint32(5, uint32(p.AreaAndType))
		})
	}
	for i := range d.DetailMeshes {
		pd := &d.DetailMeshes[i]
		e.Message(protoDetailMeshes, func(sub *message.Encoder) {
			sub.Uint32(1, pd.VertBase)
			sub.Uint32(2, pd.TriBase)
			sub.Uint32(3, uint32(pd.VertCount))
			sub.Uint32(4, uint32(pd.TriCount))
		})
	}
	e.PackedFloat32s(protoDetailVerts, d.DetailVerts)
	if len(d.DetailTris) > 0 {
		e.RawBytes(protoDetailTris, d.DetailTris)
	}
	for i := range d.BVTree {
		n := &d.BVTree[i]
		e.Message(protoBVTree, func(sub *message.Encoder) {
			sub.PackedUint32s(1, u16s(n.Bmin[:]))
			sub.PackedUint32s(2, u16s(n.Bmax[:]))
			sub.Int32(3, n.I)
		})
	}
	for i := range d.OffMeshCons {
		c := &d.OffMeshCons[i]
		e.Message(protoOffMeshCons, func(sub *message.Encoder) {
			sub.PackedFloat32s(1, c.Pos[:])
			sub.Float32(2, c.Rad)
			sub.Uint32(3, uint32(c.Poly))
			sub.Uint32(4, uint32(c.Flags))
			sub.Uint32(5, uint32(c.Side))
			sub.Uint32(6, c.UserId)
		})
	}
	return e.Bytes()
}

// FromProto reads a tile written by ToProto.
func (d *NavMeshData) FromProto(data []byte) error {
	*d = NavMeshData{}
	err := message.Decode(data, func(f message.Field) error {
		switch f.Num {
		case protoHeader:
			return message.Decode(f.Bytes, d.Header.fromProto)
		case protoVerts:
			vs, err := message.UnpackFloat32s(f.Bytes)
			d.Verts = vs
			return err
		case protoPolys:
			var p Poly
			if err := message.Decode(f.Bytes, func(pf message.Field) error {
				switch pf.Num {
				case 1:
					return unpackUint16s(pf.Bytes, p.Verts[:])
				case 2:
					return unpackUint16s(pf.Bytes, p.Neis[:])
				case 3:
					p.Flags = uint16(pf.Uint32())
				case 4:
					p.VertCount = uint8(pf.Uint32())
				case 5:
					p.AreaAndType = uint8(pf.Uint32())
				}
				return nil
			}); err != nil {
				return err
			}
			p.FirstLink = NullLink
			d.Polys = append(d.Polys, p)
		case protoDetailMeshes:
			var pd PolyDetail
			if err := message.Decode(f.Bytes, func(pf message.Field) error {
				switch pf.Num {
				case 1:
					pd.VertBase = pf.Uint32()
				case 2:
					pd.TriBase = pf.Uint32()
				case 3:
					pd.VertCount = uint8(pf.Uint32())
				case 4:
					pd.TriCount = uint8(pf.Uint32())
				}
				return nil
			}); err != nil {
				return err
			}
			d.DetailMeshes = append(d.DetailMeshes, pd)
		case protoDetailVerts:
			vs, err := message.UnpackFloat32s(f.Bytes)
			d.DetailVerts = vs
			return err
		case protoDetailTris:
			d.DetailTris = append([]uint8(nil), f.Bytes...)
		case protoBVTree:
			var n BVNode
			if err := message.Decode(f.Bytes, func(nf message.Field) error {
				switch nf.Num {
				case 1:
					return unpackUint16s(nf.Bytes, n.Bmin[:])
				case 2:
					return unpackUint16s(nf.Bytes, n.Bmax[:])
				case 3:
					n.I = nf.Int32()
				}
				return nil
			}); err != nil {
				return err
			}
			d.BVTree = append(d.BVTree, n)
		case protoOffMeshCons:
			var c OffMeshConnection
			if err := message.Decode(f.Bytes, func(cf message.Field) error {
				switch cf.Num {
				case 1:
					vs, err := message.UnpackFloat32s(cf.Bytes)
					if err != nil {
						return err
					}
					if len(vs) != 6 {
						return fmt.Errorf("%w: off-mesh connection of %d values", message.ErrMalformed, len(vs))
					}
					copy(c.Pos[:], vs)
				case 2:
					c.Rad = cf.Float32()
				case 3:
					c.Poly = uint16(cf.Uint32())
				case 4:
					c.Flags = uint8(cf.Uint32())
				case 5:
					c.Side = uint8(cf.Uint32())
				case 6:
					c.UserId = cf.Uint32()
				}
				return nil
			}); err != nil {
				return err
			}
			d.OffMeshCons = append(d.OffMeshCons, c)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("detour: tile proto: %w", err)
	}
	if err := checkHeader(&d.Header); err != nil {
		return err
	}
	return d.checkCounts()
}

// checkCounts verifies that the sections match the header counts.
func (d *NavMeshData) checkCounts() error {
	h := &d.Header
	switch {
	case len(d.Verts) != 3*int(h.VertCount),
		len(d.Polys) != int(h.PolyCount),
		len(d.DetailMeshes) != int(h.DetailMeshCount),
		len(d.DetailVerts) != 3*int(h.DetailVertCount),
		len(d.DetailTris) != 4*int(h.DetailTriCount),
		len(d.BVTree) != int(h.BvNodeCount),
		len(d.OffMeshCons) != int(h.OffMeshConCount):
		return fmt.Errorf("detour: tile sections do not match header counts: %w", message.ErrMalformed)
	}
	return nil
}
