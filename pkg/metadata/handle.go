package metadata

import "encoding/binary"

// ============================================================================
// Handle
// ============================================================================

// Handle is one live filesystem object in an export's arena.
//
// A handle exists from the moment a listing or create materializes it until
// the consumer releases it (Free) or the export shuts down (Close). Its ID is
// unique within the export for the lifetime of the process and is the only
// part of the handle that crosses the wire.
//
// All fields are guarded by the owning Export's lock. Accessors that copy
// state out (Attributes, Key) take the lock themselves so consumers can call
// them directly.
type Handle struct {
	id     uint64
	export *Export

	// key is the object key this handle maps to. Directories carry the key
	// prefix without the trailing delimiter; the root's key is empty.
	key string

	attr Attributes

	// parentID is a weak back-reference to the owning directory, resolved
	// through the arena. 0 for the root.
	parentID uint64

	// dirents lists the directory entries that currently name this handle.
	// Free unlinks them from their owning directories.
	dirents []*DirEntry

	// Kind-specific payload, dispatched on attr.Kind.
	dir        *DirIndex // KindDirectory
	linkTarget string    // KindSymlink
	devMajor   uint32    // KindBlockDevice, KindCharDevice
	devMinor   uint32
}

// ID returns the handle's arena identity.
func (h *Handle) ID() uint64 {
	return h.id
}

// Kind returns what the handle represents.
func (h *Handle) Kind() Kind {
	h.export.mu.RLock()
	defer h.export.mu.RUnlock()
	return h.attr.Kind
}

// Key returns the object key the handle maps to.
func (h *Handle) Key() string {
	h.export.mu.RLock()
	defer h.export.mu.RUnlock()
	return h.key
}

// Attributes returns a copy of the handle's current attributes.
func (h *Handle) Attributes() Attributes {
	h.export.mu.RLock()
	defer h.export.mu.RUnlock()
	return h.attr
}

// ============================================================================
// Wire handle codec
// ============================================================================

// WireHandleSize is the size of an encoded wire handle: a uint64 handle ID
// followed by a uint16 payload length.
const WireHandleSize = 10

// wirePayloadLen is the value of the length field: the 8 ID bytes.
const wirePayloadLen = 8

// EncodeWireHandle writes the handle's wire token in network byte order.
func EncodeWireHandle(id uint64) []byte {
	buf := make([]byte, WireHandleSize)
	binary.BigEndian.PutUint64(buf[0:8], id)
	binary.BigEndian.PutUint16(buf[8:10], wirePayloadLen)
	return buf
}

// DecodeWireHandle parses a wire token produced by a caller whose byte order
// is declared by callerBigEndian, returning the handle ID. Buffers that are
// too short or carry an impossible length field yield ErrInvalidHandle.
func DecodeWireHandle(buf []byte, callerBigEndian bool) (uint64, error) {
	if len(buf) < WireHandleSize {
		return 0, &StoreError{
			Code:    ErrInvalidHandle,
			Message: "wire handle too short",
		}
	}

	var order binary.ByteOrder = binary.LittleEndian
	if callerBigEndian {
		order = binary.BigEndian
	}

	id := order.Uint64(buf[0:8])
	length := order.Uint16(buf[8:10])
	if length != wirePayloadLen {
		return 0, &StoreError{
			Code:    ErrInvalidHandle,
			Message: "wire handle has invalid length field",
		}
	}

	return id, nil
}
