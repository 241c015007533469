// Package upcall defines the coherency notifications BucketFS sends to the
// layer caching above it.
//
// The invalidation scheduler produces these calls; whatever embeds the store
// (an NFS frontend, a FUSE bridge, a test harness) consumes them. Keys are
// wire handle tokens, so consumers can correlate notifications with handles
// they obtained earlier without sharing in-memory state.
package upcall

import (
	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/metadata"
)

// Interface is the produced upper-cache capability.
//
// Implementations may block (network-bound consumers); callers release all
// store locks before invoking them. Errors are advisory: the scheduler logs
// them and moves on.
type Interface interface {
	// Update notifies that a handle's attributes changed.
	Update(key []byte, update metadata.AttrUpdate) error

	// Invalidate notifies that a handle's cached state is no longer valid.
	Invalidate(key []byte) error

	// InvalidateClose notifies that a handle is invalid and any open state
	// for it should be closed.
	InvalidateClose(key []byte) error
}

// Logging is an Interface that records every notification and does nothing
// else. It is the default sink for the daemon when no consumer is attached,
// and doubles as a trace tool.
type Logging struct{}

var _ Interface = Logging{}

func (Logging) Update(key []byte, update metadata.AttrUpdate) error {
	logger.Debug("upcall: update key=%x change=%d", key, update.Change)
	return nil
}

func (Logging) Invalidate(key []byte) error {
	logger.Debug("upcall: invalidate key=%x", key)
	return nil
}

func (Logging) InvalidateClose(key []byte) error {
	logger.Debug("upcall: invalidate-close key=%x", key)
	return nil
}
