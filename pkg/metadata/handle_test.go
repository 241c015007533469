package metadata

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireHandleRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		id   uint64
	}{
		{name: "small id", id: 1},
		{name: "large id", id: 0xDEADBEEFCAFEF00D},
		{name: "max id", id: ^uint64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := EncodeWireHandle(tt.id)
			require.Len(t, buf, WireHandleSize)

			id, err := DecodeWireHandle(buf, true)
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestWireHandleLittleEndianCaller(t *testing.T) {
	// A little-endian caller writes the same fields in its native order.
	buf := make([]byte, WireHandleSize)
	binary.LittleEndian.PutUint64(buf[0:8], 42)
	binary.LittleEndian.PutUint16(buf[8:10], wirePayloadLen)

	id, err := DecodeWireHandle(buf, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	// Reading the same bytes with the wrong endianness declaration must
	// fail on the length field rather than return a garbage id.
	_, err = DecodeWireHandle(buf, true)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrInvalidHandle))
}

func TestWireHandleShortBuffer(t *testing.T) {
	for size := 0; size < WireHandleSize; size++ {
		_, err := DecodeWireHandle(make([]byte, size), true)
		require.Error(t, err, "buffer of %d bytes must be rejected", size)
		assert.True(t, IsCode(err, ErrInvalidHandle))
	}
}

func TestResolveWireHandle(t *testing.T) {
	e := newTestExport(t, &scriptedStore{})

	h, err := e.Create(context.Background(), e.Root(), "file", Attributes{
		Kind: KindFile,
		Mode: DefaultFileMode,
	})
	require.NoError(t, err)

	resolved, err := e.ResolveWireHandle(EncodeWireHandle(h.ID()), true)
	require.NoError(t, err)
	assert.Equal(t, h, resolved)

	// A token for a freed handle decodes but does not resolve.
	require.NoError(t, e.Remove(context.Background(), e.Root(), "file"))
	require.NoError(t, e.Free(h))

	_, err = e.ResolveWireHandle(EncodeWireHandle(h.ID()), true)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrStaleHandle))
}
