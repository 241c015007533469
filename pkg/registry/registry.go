// Package registry tracks the live exports of one BucketFS process.
//
// The registry is an explicit value created at startup and passed to the
// components that need it (the scheduler walks it, the daemon tears it
// down). There is deliberately no package-level singleton.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/metadata"
)

// Registry holds the live exports, keyed by a process-local UUID.
//
// Example usage:
//
//	reg := registry.New()
//	id := reg.Register(export)
//	...
//	reg.Deregister(id)
//
// Thread safety: all methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	exports map[uuid.UUID]*metadata.Export
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		exports: make(map[uuid.UUID]*metadata.Export),
	}
}

// Register adds an export and returns its registry identity.
func (r *Registry) Register(e *metadata.Export) (uuid.UUID, error) {
	if e == nil {
		return uuid.Nil, fmt.Errorf("cannot register nil export")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New()
	r.exports[id] = e

	logger.Info("Registered export %s (id=%s)", e.Name(), id)
	return id, nil
}

// Deregister removes an export. Returns false when the id is unknown, which
// is not an error during shutdown races.
func (r *Registry) Deregister(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.exports[id]; !exists {
		return false
	}
	delete(r.exports, id)
	return true
}

// Get looks an export up by identity.
func (r *Registry) Get(id uuid.UUID) (*metadata.Export, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.exports[id]
	return e, ok
}

// Len returns the number of registered exports.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.exports)
}

// Range calls fn for each registered export until fn returns false. The
// iteration works on a snapshot, so fn may register or deregister exports.
func (r *Registry) Range(fn func(id uuid.UUID, e *metadata.Export) bool) {
	r.mu.RLock()
	snapshot := make(map[uuid.UUID]*metadata.Export, len(r.exports))
	for id, e := range r.exports {
		snapshot[id] = e
	}
	r.mu.RUnlock()

	for id, e := range snapshot {
		if !fn(id, e) {
			return
		}
	}
}

// CloseAll deregisters and closes every export. Errors are collected; all
// exports are attempted regardless.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	exports := r.exports
	r.exports = make(map[uuid.UUID]*metadata.Export)
	r.mu.Unlock()

	var errs []error
	for id, e := range exports {
		if err := e.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close export %s (id=%s): %w", e.Name(), id, err))
		}
	}
	return errors.Join(errs...)
}
