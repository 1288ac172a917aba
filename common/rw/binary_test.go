package rw

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderWriterRoundTrip(t *testing.T) {
	w := NewNavMeshDataBinWriter()
	w.WriteInt32(-7)
	w.WriteUInt16(0xbeef)
	w.WriteUInt8(3)
	w.PadZero(1)
	w.WriteFloat32s([]float32{1.5, -2})
	w.WriteUInt64(1 << 40)

	r := NewNavMeshDataBinReader(w.GetWriteBytes())
	assert.Equal(t, int32(-7), r.ReadInt32())
	assert.Equal(t, uint16(0xbeef), r.ReadUInt16())
	assert.Equal(t, uint8(3), r.ReadUInt8())
	r.Skip(1)
	fs := make([]float32, 2)
	r.ReadFloat32s(fs)
	assert.Equal(t, []float32{1.5, -2}, fs)
	assert.Equal(t, uint64(1<<40), r.ReadUInt64())
	require.NoError(t, r.Err())
}

func TestReaderShortBuffer(t *testing.T) {
	r := NewNavMeshDataBinReader([]byte{1, 2})
	assert.Equal(t, uint32(0), r.ReadUInt32())
	assert.True(t, errors.Is(r.Err(), ErrShortBuffer))
	// sticky
	assert.Equal(t, uint8(0), r.ReadUInt8())
}
