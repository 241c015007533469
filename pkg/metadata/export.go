// Package metadata caches a flat object-storage namespace as a hierarchical
// filesystem tree.
//
// One Export owns one bucket's tree: an arena of live handles, a root
// directory, and the listing protocol that keeps directories synchronized
// with the bucket. All structural state is guarded by one reader-writer lock
// per export; lookups and enumeration take the shared lock, mutations and
// page reconciliation take the exclusive lock.
package metadata

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/objectstore"
)

// Delimiter separates path components in object keys. The bucket namespace
// is flat; this is the character that delimiter listings group on.
const Delimiter = "/"

// Options configures a new Export.
type Options struct {
	// Name labels the export in logs. Usually the bucket name.
	Name string

	// Store lists the bucket. Required.
	Store objectstore.Client

	// MaxRetries is the total number of attempts for one listing page
	// against transient failures. Zero means a single attempt.
	MaxRetries uint

	// RetryInterval is the sleep before the first retry; each subsequent
	// retry sleeps one second longer.
	RetryInterval time.Duration

	// RequestTimeout bounds one page request. Zero means unbounded.
	RequestTimeout time.Duration

	// MaxKeys caps the number of object keys collected per listing.
	// Zero means unlimited.
	MaxKeys int

	// Metrics receives listing observations. Nil disables them.
	Metrics ListingMetrics

	// SkipProbe disables the bucket reachability check at creation.
	// Intended for tests with scripted stores.
	SkipProbe bool
}

// Export presents one bucket as a filesystem tree.
//
// Thread safety: all methods are safe for concurrent use.
type Export struct {
	name    string
	store   objectstore.Client
	metrics ListingMetrics

	maxRetries     uint
	retryInterval  time.Duration
	requestTimeout time.Duration
	maxKeys        int

	// sleep is swapped out by tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.RWMutex
	handles map[uint64]*Handle
	nextID  uint64
	root    *Handle
	closed  bool
}

// NewExport validates the options, probes the bucket, and creates the export
// with its root directory handle. Probe failures abort creation so that a
// misconfigured export never serves requests.
func NewExport(ctx context.Context, opts Options) (*Export, error) {
	if opts.Store == nil {
		return nil, errInvalidArgument("export requires an object store client", opts.Name)
	}
	if opts.Name == "" {
		opts.Name = "export"
	}
	if opts.Metrics == nil {
		opts.Metrics = NopListingMetrics{}
	}

	e := &Export{
		name:           opts.Name,
		store:          opts.Store,
		metrics:        opts.Metrics,
		maxRetries:     opts.MaxRetries,
		retryInterval:  opts.RetryInterval,
		requestTimeout: opts.RequestTimeout,
		maxKeys:        opts.MaxKeys,
		sleep:          sleepWithContext,
		handles:        make(map[uint64]*Handle),
		nextID:         1,
	}

	if !opts.SkipProbe {
		if err := e.probeBucket(ctx); err != nil {
			return nil, err
		}
	}

	root := e.newHandleLocked("", Attributes{
		Kind:       KindDirectory,
		Mode:       DefaultDirMode,
		ModifyTime: time.Now(),
		ChangeTime: time.Now(),
	}, 0)
	root.dir = NewDirIndex()
	e.root = root

	logger.Info("Export %s created: root handle id=%d", e.name, root.id)
	return e, nil
}

// probeBucket verifies reachability with the same growing-interval retry
// loop the listing protocol uses.
func (e *Export) probeBucket(ctx context.Context) error {
	err := e.withRetries(ctx, func(attemptCtx context.Context) error {
		return e.store.TestBucket(attemptCtx)
	})
	if err != nil {
		return fmt.Errorf("export %s: bucket probe failed: %w", e.name, err)
	}
	return nil
}

// Name returns the export's label.
func (e *Export) Name() string {
	return e.name
}

// Root returns the root directory handle. It exists for the lifetime of the
// export.
func (e *Export) Root() *Handle {
	return e.root
}

// HandleCount returns the number of live handles, including the root.
func (e *Export) HandleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handles)
}

// LookupHandle resolves an arena identity to its live handle. Unknown IDs
// yield ErrStaleHandle: the token decoded cleanly but the handle is gone.
func (e *Export) LookupHandle(id uint64) (*Handle, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	h, ok := e.handles[id]
	if !ok {
		return nil, &StoreError{
			Code:    ErrStaleHandle,
			Message: fmt.Sprintf("no live handle with id %d", id),
		}
	}
	return h, nil
}

// ResolveWireHandle decodes a wire token and resolves it in the arena.
func (e *Export) ResolveWireHandle(buf []byte, callerBigEndian bool) (*Handle, error) {
	id, err := DecodeWireHandle(buf, callerBigEndian)
	if err != nil {
		return nil, err
	}
	return e.LookupHandle(id)
}

// newHandleLocked allocates a handle in the arena. Callers must hold the
// exclusive lock (or be inside NewExport, before the export is shared).
func (e *Export) newHandleLocked(key string, attr Attributes, parentID uint64) *Handle {
	h := &Handle{
		id:       e.nextID,
		export:   e,
		key:      key,
		attr:     attr,
		parentID: parentID,
	}
	e.nextID++
	e.handles[h.id] = h
	return h
}

// linkLocked inserts name -> h into parent's index and records the
// back-reference on h. Callers must hold the exclusive lock.
func (e *Export) linkLocked(parent *Handle, name string, h *Handle) (*DirEntry, error) {
	entry, err := parent.dir.Insert(name, h)
	if err != nil {
		return nil, err
	}
	entry.dir = parent
	h.dirents = append(h.dirents, entry)
	return entry, nil
}

// checkDirectory validates that h is a usable directory handle.
func checkDirectory(h *Handle) error {
	if h == nil {
		return errInvalidArgument("nil handle", "")
	}
	if h.attr.Kind != KindDirectory {
		return &StoreError{
			Code:    ErrNotDirectory,
			Message: "handle is not a directory",
			Path:    h.key,
		}
	}
	return nil
}

func checkName(name string) error {
	if name == "" {
		return errInvalidArgument("empty name", "")
	}
	if name == "." || name == ".." {
		return errInvalidArgument("reserved name", name)
	}
	if strings.Contains(name, Delimiter) {
		return errInvalidArgument("name contains delimiter", name)
	}
	return nil
}

// childKey derives the object key of a child entry.
func childKey(parent *Handle, name string) string {
	if parent.key == "" {
		return name
	}
	return parent.key + Delimiter + name
}

// Create materializes a new entry under parent. The attribute kind selects
// the handle variant; use CreateSymlink and CreateNode for kinds that carry
// extra payload. Fails with ErrNameExists when the name is taken.
func (e *Export) Create(ctx context.Context, parent *Handle, name string, attr Attributes) (*Handle, error) {
	if err := checkDirectory(parent); err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.newHandleLocked(childKey(parent, name), attr, parent.id)
	if attr.Kind == KindDirectory {
		h.dir = NewDirIndex()
	}

	if _, err := e.linkLocked(parent, name, h); err != nil {
		delete(e.handles, h.id)
		return nil, err
	}

	logger.Debug("Export %s: created %s %q (handle %d)", e.name, attr.Kind, name, h.id)
	return h, nil
}

// CreateSymlink materializes a symlink entry pointing at target.
func (e *Export) CreateSymlink(ctx context.Context, parent *Handle, name, target string, attr Attributes) (*Handle, error) {
	if target == "" {
		return nil, errInvalidArgument("empty symlink target", name)
	}
	attr.Kind = KindSymlink

	h, err := e.Create(ctx, parent, name, attr)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	h.linkTarget = target
	e.mu.Unlock()
	return h, nil
}

// CreateNode materializes a device, fifo or socket entry.
func (e *Export) CreateNode(ctx context.Context, parent *Handle, name string, attr Attributes, major, minor uint32) (*Handle, error) {
	switch attr.Kind {
	case KindBlockDevice, KindCharDevice, KindFIFO, KindSocket:
	default:
		return nil, errInvalidArgument("kind is not a special node", name)
	}

	h, err := e.Create(ctx, parent, name, attr)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	h.devMajor = major
	h.devMinor = minor
	e.mu.Unlock()
	return h, nil
}

// Remove unlinks name from parent's index. The target handle stays in the
// arena until its consumer releases it with Free.
func (e *Export) Remove(ctx context.Context, parent *Handle, name string) error {
	if err := checkDirectory(parent); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := parent.dir.Remove(name)
	if !ok {
		return errNotFound(name)
	}
	unlinkDirent(entry.Handle, entry)

	logger.Debug("Export %s: removed %q from handle %d", e.name, name, parent.id)
	return nil
}

// unlinkDirent drops one back-reference from h's dirent list.
func unlinkDirent(h *Handle, entry *DirEntry) {
	for i, d := range h.dirents {
		if d == entry {
			h.dirents = append(h.dirents[:i], h.dirents[i+1:]...)
			return
		}
	}
}

// Free releases a handle: removes it from the arena, unlinks every
// directory entry naming it, and drops kind-specific payload. A directory
// with a non-empty index fails with ErrHandleBusy; callers free children
// first. The root cannot be freed.
func (e *Export) Free(h *Handle) error {
	if h == nil {
		return errInvalidArgument("nil handle", "")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.freeLocked(h)
}

func (e *Export) freeLocked(h *Handle) error {
	if h == e.root && !e.closed {
		return errInvalidArgument("cannot free the root handle", h.key)
	}
	if _, live := e.handles[h.id]; !live {
		return &StoreError{
			Code:    ErrStaleHandle,
			Message: "handle already freed",
			Path:    h.key,
		}
	}
	if h.attr.Kind == KindDirectory && h.dir.Len() > 0 {
		return &StoreError{
			Code:    ErrHandleBusy,
			Message: "directory still has children",
			Path:    h.key,
		}
	}

	for _, entry := range h.dirents {
		entry.dir.dir.Remove(entry.Name)
	}
	h.dirents = nil
	h.dir = nil
	h.linkTarget = ""

	delete(e.handles, h.id)
	return nil
}

// Close tears the export down: children-first recursive free of the whole
// tree, root included. The export must not be used afterwards.
func (e *Export) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if err := e.closeSubtreeLocked(e.root); err != nil {
		return err
	}

	logger.Info("Export %s closed: %d handles remaining", e.name, len(e.handles))
	return nil
}

// closeSubtreeLocked frees dir's descendants depth-first, then dir itself.
func (e *Export) closeSubtreeLocked(h *Handle) error {
	if h.attr.Kind == KindDirectory && h.dir != nil {
		var children []*DirEntry
		h.dir.ForEach(func(entry *DirEntry) bool {
			children = append(children, entry)
			return true
		})
		for _, entry := range children {
			// freeLocked unlinks the entry from this index as it goes.
			if err := e.closeSubtreeLocked(entry.Handle); err != nil {
				return err
			}
		}
	}
	return e.freeLocked(h)
}

// Readlink returns a symlink's target.
func (e *Export) Readlink(h *Handle) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if h == nil || h.attr.Kind != KindSymlink {
		return "", errInvalidArgument("handle is not a symlink", "")
	}
	return h.linkTarget, nil
}

// GetAttr returns a copy of the handle's attributes.
func (e *Export) GetAttr(h *Handle) (Attributes, error) {
	if h == nil {
		return Attributes{}, errInvalidArgument("nil handle", "")
	}
	return h.Attributes(), nil
}

// BumpChange advances the handle's change counter and refreshes its change
// and modify times, returning the resulting delta. The coherency scheduler
// calls this before emitting a refresh upcall.
func (e *Export) BumpChange(h *Handle) AttrUpdate {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	h.attr.Change++
	h.attr.ChangeTime = now
	h.attr.ModifyTime = now

	return AttrUpdate{
		Change:     h.attr.Change,
		ModifyTime: h.attr.ModifyTime,
		ChangeTime: h.attr.ChangeTime,
	}
}

// Sample picks one live handle uniformly at random with a single reservoir
// pass over the arena, under the shared lock. Returns false when the export
// is empty or closed.
func (e *Export) Sample(rng *rand.Rand) (*Handle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, false
	}

	var picked *Handle
	n := 0
	for _, h := range e.handles {
		n++
		if rng.IntN(n) == 0 {
			picked = h
		}
	}
	return picked, picked != nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
