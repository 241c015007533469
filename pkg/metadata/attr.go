package metadata

import "time"

// Kind identifies what a handle represents.
type Kind int

const (
	KindDirectory Kind = iota
	KindFile
	KindSymlink
	KindBlockDevice
	KindCharDevice
	KindFIFO
	KindSocket
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	case KindSymlink:
		return "symlink"
	case KindBlockDevice:
		return "block-device"
	case KindCharDevice:
		return "char-device"
	case KindFIFO:
		return "fifo"
	case KindSocket:
		return "socket"
	default:
		return "unknown"
	}
}

// Default permission bits for entries synthesized from bucket listings.
// Objects become regular files, common prefixes become directories.
const (
	DefaultFileMode = 0o644
	DefaultDirMode  = 0o755
)

// Attributes holds the filesystem-visible attributes of a handle.
//
// Size, ModifyTime and Owner come from the bucket listing for files; the
// rest is synthesized. Change is a monotonic counter consumers use to detect
// attribute churn, bumped by refresh upcalls.
type Attributes struct {
	Kind       Kind
	Mode       uint32
	Size       int64
	Owner      string
	Change     uint64
	ModifyTime time.Time
	ChangeTime time.Time
}

// AttrUpdate is the attribute delta carried by a refresh upcall.
type AttrUpdate struct {
	Change     uint64
	ModifyTime time.Time
	ChangeTime time.Time
}
