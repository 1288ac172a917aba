package rw

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var ErrShortBuffer = errors.New("rw: unexpected end of data")

// ReaderWriter is a little-endian cursor over tile data. Reads past the end
// record ErrShortBuffer and return zero values; check Err once at the end.
type ReaderWriter struct {
	order   binary.ByteOrder
	dataBuf [8]byte
	rw      bytes.Buffer
	err     error
}

func NewNavMeshDataBinWriter() *ReaderWriter {
	return &ReaderWriter{order: binary.LittleEndian}
}

func NewNavMeshDataBinReader(data []byte) *ReaderWriter {
	d := &ReaderWriter{order: binary.LittleEndian}
	d.rw.Write(data)
	return d
}

func (w *ReaderWriter) Err() error {
	return w.err
}

func (w *ReaderWriter) read(n int) []byte {
	if w.err != nil {
		return nil
	}
	buf := w.dataBuf[:n]
	if _, err := io.ReadFull(&w.rw, buf); err != nil {
		w.err = fmt.Errorf("%w: need %d bytes", ErrShortBuffer, n)
		return nil
	}
	return buf
}

func (w *ReaderWriter) ReadUInt8() uint8 {
	b := w.read(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (w *ReaderWriter) ReadUInt8s(value []uint8) {
	for i := range value {
		value[i] = w.ReadUInt8()
	}
}

func (w *ReaderWriter) ReadUInt16() uint16 {
	b := w.read(2)
	if b == nil {
		return 0
	}
	return w.order.Uint16(b)
}

func (w *ReaderWriter) ReadUInt16s(value []uint16) {
	for i := range value {
		value[i] = w.ReadUInt16()
	}
}

func (w *ReaderWriter) ReadUInt32() uint32 {
	b := w.read(4)
	if b == nil {
		return 0
	}
	return w.order.Uint32(b)
}

func (w *ReaderWriter) ReadInt32() int32 {
	return int32(w.ReadUInt32())
}

func (w *ReaderWriter) ReadUInt64() uint64 {
	b := w.read(8)
	if b == nil {
		return 0
	}
	return w.order.Uint64(b)
}

func (w *ReaderWriter) ReadFloat32() float32 {
	return math.Float32frombits(w.ReadUInt32())
}

func (w *ReaderWriter) ReadFloat32s(value []float32) {
	for i := range value {
		value[i] = w.ReadFloat32()
	}
}

func (w *ReaderWriter) ReadBytes(n int) []byte {
	if w.err != nil {
		return nil
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(&w.rw, out); err != nil {
		w.err = fmt.Errorf("%w: need %d bytes", ErrShortBuffer, n)
		return nil
	}
	return out
}

func (w *ReaderWriter) WriteUInt8(v uint8) {
	w.rw.WriteByte(v)
}

func (w *ReaderWriter) WriteUInt8s(v []uint8) {
	w.rw.Write(v)
}

func (w *ReaderWriter) WriteUInt16(v uint16) {
	w.order.PutUint16(w.dataBuf[:], v)
	w.rw.Write(w.dataBuf[:2])
}

func (w *ReaderWriter) WriteUInt16s(v []uint16) {
	for _, tmp := range v {
		w.WriteUInt16(tmp)
	}
}

func (w *ReaderWriter) WriteUInt32(v uint32) {
	w.order.PutUint32(w.dataBuf[:], v)
	w.rw.Write(w.dataBuf[:4])
}

func (w *ReaderWriter) WriteInt32(v int32) {
	w.WriteUInt32(uint32(v))
}

func (w *ReaderWriter) WriteUInt64(v uint64) {
	w.order.PutUint64(w.dataBuf[:], v)
	w.rw.Write(w.dataBuf[:8])
}

func (w *ReaderWriter) WriteFloat32(v float32) {
	w.WriteUInt32(math.Float32bits(v))
}

func (w *ReaderWriter) WriteFloat32s(v []float32) {
	for _, tmp := range v {
		w.WriteFloat32(tmp)
	}
}

func (w *ReaderWriter) Skip(size int) {
	if w.err != nil {
		return
	}
	if w.rw.Len() < size {
		w.err = fmt.Errorf("%w: skip %d bytes", ErrShortBuffer, size)
		return
	}
	w.rw.Next(size)
}

func (w *ReaderWriter) PadZero(n int) {
	for i := 0; i < n; i++ {
		w.rw.WriteByte(0)
	}
}

func (w *ReaderWriter) GetWriteBytes() []byte {
	return w.rw.Bytes()
}

// Size is the number of unread (or written) bytes.
func (w *ReaderWriter) Size() int {
	return w.rw.Len()
}
