package metadata

// StoreError represents a domain error from metadata operations.
//
// These are filesystem-semantic errors (entry not found, directory busy,
// malformed handle) as opposed to infrastructure errors from the object
// store, which are wrapped and surfaced separately.
//
// Consumers embedding the store translate StoreError codes to their own
// status codes (NFS status codes, FUSE errno values, and so on).
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the bucket key or entry name related to the error, when
	// applicable. Helps with debugging and error reporting.
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a store error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested entry or handle doesn't exist
	ErrNotFound ErrorCode = iota

	// ErrNameExists indicates an entry with the name already exists in the
	// directory
	ErrNameExists

	// ErrHandleBusy indicates the handle cannot be released yet
	// Used for directories that still have live child handles
	ErrHandleBusy

	// ErrIsDirectory indicates operation expected a file but got a directory
	ErrIsDirectory

	// ErrNotDirectory indicates operation expected a directory but got a file
	ErrNotDirectory

	// ErrInvalidHandle indicates the wire handle is malformed
	// Different from ErrStaleHandle - the handle bytes themselves are invalid
	ErrInvalidHandle

	// ErrStaleHandle indicates the wire handle decoded cleanly but no live
	// handle with that identity exists in the arena
	ErrStaleHandle

	// ErrInvalidArgument indicates invalid parameters were provided
	// Examples: empty name, a name containing the delimiter
	ErrInvalidArgument

	// ErrNotSupported indicates the operation is not supported
	// Examples: hard links, which have no flat-namespace representation
	ErrNotSupported
)

func errNotFound(name string) *StoreError {
	return &StoreError{Code: ErrNotFound, Message: "entry not found", Path: name}
}

func errNameExists(name string) *StoreError {
	return &StoreError{Code: ErrNameExists, Message: "entry already exists", Path: name}
}

func errInvalidArgument(message, name string) *StoreError {
	return &StoreError{Code: ErrInvalidArgument, Message: message, Path: name}
}

// IsCode reports whether err is a StoreError with the given code.
func IsCode(err error, code ErrorCode) bool {
	se, ok := err.(*StoreError)
	return ok && se.Code == code
}
