// Package message writes and reads protobuf wire data without generated
// message types. Tiles describe their own field numbers.
package message

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrMalformed = errors.New("message: malformed protobuf data")

type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) Uint32(num protowire.Number, v uint32) {
	if v == 0 {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, uint64(v))
}

func (e *Encoder) Int32(num protowire.Number, v int32) {
	if v == 0 {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, protowire.EncodeZigZag(int64(v)))
}

func (e *Encoder) Float32(num protowire.Number, v float32) {
	if v == 0 {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.Fixed32Type)
	e.buf = protowire.AppendFixed32(e.buf, math.Float32bits(v))
}

func (e *Encoder) RawBytes(num protowire.Number, b []byte) {
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, b)
}

func (e *Encoder) PackedFloat32s(num protowire.Number, vs []float32) {
	if len(vs) == 0 {
		return
	}
	packed := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		packed = protowire.AppendFixed32(packed, math.Float32bits(v))
	}
	e.RawBytes(num, packed)
}

func (e *Encoder) PackedUint32s(num protowire.Number, vs []uint32) {
	if len(vs) == 0 {
		return
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	e.RawBytes(num, packed)
}

// Message appends a length-delimited sub message built by fn.
func (e *Encoder) Message(num protowire.Number, fn func(sub *Encoder)) {
	sub := &Encoder{}
	fn(sub)
	e.RawBytes(num, sub.buf)
}

// Field is one decoded key/value pair.
type Field struct {
	Num     protowire.Number
	Type    protowire.Type
	Varint  uint64
	Fixed32 uint32
	Bytes   []byte
}

func (f Field) Uint32() uint32 { return uint32(f.Varint) }

func (f Field) Int32() int32 { return int32(protowire.DecodeZigZag(f.Varint)) }

func (f Field) Float32() float32 { return math.Float32frombits(f.Fixed32) }

// Decode walks the fields of data in order. Unknown wire types are an error.
func Decode(data []byte, fn func(f Field) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]
		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.Varint, n = protowire.ConsumeVarint(data)
		case protowire.Fixed32Type:
			f.Fixed32, n = protowire.ConsumeFixed32(data)
		case protowire.BytesType:
			f.Bytes, n = protowire.ConsumeBytes(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
		}
		data = data[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func UnpackFloat32s(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: packed fixed32 length %d", ErrMalformed, len(b))
	}
	out := make([]float32, 0, len(b)/4)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		out = append(out, math.Float32frombits(v))
		b = b[n:]
	}
	return out, nil
}

func UnpackUint32s(b []byte) ([]uint32, error) {
	var out []uint32
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		out = append(out, uint32(v))
		b = b[n:]
	}
	return out, nil
}
