// Package objectstore defines the flat-namespace object listing interface
// that the metadata layer builds its directory tree from.
//
// The interface is a thin abstraction over a bucket's delimiter listing API:
// one page of keys and common prefixes at a time, with an opaque continuation
// marker. Retry policy deliberately lives above this interface, in the
// metadata listing protocol, so implementations must not retry internally;
// they only classify errors via IsRetryable.
package objectstore

import (
	"context"
	"time"
)

// ObjectInfo describes one key returned by a listing page.
type ObjectInfo struct {
	// Key is the full object key, including any listing prefix.
	Key string

	// Size is the object size in bytes.
	Size int64

	// LastModified is the object's last-modified time. Zero when the
	// backend did not report one.
	LastModified time.Time

	// Owner is the backend's owner identifier for the object. Empty when
	// the backend did not report one.
	Owner string
}

// ListRequest describes one page of a delimiter listing.
type ListRequest struct {
	// Prefix restricts the listing to keys beginning with this string.
	Prefix string

	// Marker is the continuation point: only keys lexicographically after
	// it are returned. Empty starts from the beginning.
	Marker string

	// Delimiter groups keys sharing a prefix up to the delimiter into
	// common prefixes. Empty disables grouping.
	Delimiter string

	// MaxKeys caps the number of keys in this page. Zero lets the backend
	// choose its default page size.
	MaxKeys int
}

// Page is one page of listing results.
type Page struct {
	// Keys are the objects in this page, in lexicographic key order.
	Keys []ObjectInfo

	// CommonPrefixes are the grouped prefixes in this page, each ending
	// with the request delimiter.
	CommonPrefixes []string

	// Truncated reports whether more results follow this page.
	Truncated bool

	// NextMarker is the backend-provided continuation marker for the next
	// page. May be empty even when Truncated is true; callers then resume
	// from the last key of this page.
	NextMarker string
}

// Client lists objects in a single bucket.
//
// Implementations must be safe for concurrent use.
type Client interface {
	// ListPage fetches one page of a delimiter listing. It performs exactly
	// one backend request: no internal retries.
	ListPage(ctx context.Context, req ListRequest) (*Page, error)

	// IsRetryable classifies an error returned by ListPage: true for
	// transient failures worth reissuing, false for permanent ones such as
	// a missing bucket or denied access.
	IsRetryable(err error) bool

	// TestBucket verifies the bucket exists and is reachable with the
	// configured credentials.
	TestBucket(ctx context.Context) error
}
