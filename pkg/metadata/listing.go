package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/objectstore"
)

// listingCursor is the transient state of one in-flight listing: where the
// next page starts and how many object keys have been collected so far.
type listingCursor struct {
	prefix       string
	marker       string
	delimiter    string
	maxKeys      int
	keysReturned int
}

// withRetries runs fn with the export's retry budget. Transient failures are
// reissued after a sleep that starts at the configured base interval and
// grows by one second per attempt. Permanent failures and context
// cancellation surface immediately. The budget counts attempts, so a budget
// of N performs at most N calls to fn.
func (e *Export) withRetries(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := e.maxRetries
	if attempts == 0 {
		attempts = 1
	}

	interval := e.retryInterval
	var lastErr error

	for attempt := uint(1); attempt <= attempts; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if e.requestTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, e.requestTimeout)
		}

		lastErr = fn(attemptCtx)
		if cancel != nil {
			cancel()
		}

		if lastErr == nil {
			return nil
		}
		if !e.store.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		e.metrics.RecordRetry()
		logger.Warn("Export %s: transient store error (attempt %d/%d), retrying in %s: %v",
			e.name, attempt, attempts, interval, lastErr)

		if err := e.sleep(ctx, interval); err != nil {
			return err
		}
		interval += time.Second
	}

	return fmt.Errorf("retry budget exhausted after %d attempts: %w", attempts, lastErr)
}

// fetchPage retrieves one listing page, retrying the same marker on
// transient failures, and applies the marker-continuity rule: a truncated,
// non-empty page without a next marker continues from its own last key,
// while a truncated page with neither keys nor a marker ends the listing.
func (e *Export) fetchPage(ctx context.Context, cursor *listingCursor) (*objectstore.Page, error) {
	req := objectstore.ListRequest{
		Prefix:    cursor.prefix,
		Marker:    cursor.marker,
		Delimiter: cursor.delimiter,
	}
	if e.maxKeys > 0 {
		req.MaxKeys = e.maxKeys - cursor.keysReturned
	}

	var page *objectstore.Page
	err := e.withRetries(ctx, func(attemptCtx context.Context) error {
		p, err := e.store.ListPage(attemptCtx, req)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	cursor.keysReturned += len(page.Keys)

	if page.Truncated {
		switch {
		case page.NextMarker != "":
			cursor.marker = page.NextMarker
		case len(page.Keys) > 0:
			// Some stores omit the cursor when no delimiter groups the
			// results; the last key of the page is the resume point.
			cursor.marker = page.Keys[len(page.Keys)-1].Key
		default:
			// Truncated, empty, and cursorless: there is nothing to
			// resume from, so end the listing instead of restarting it
			// from the current marker forever.
			page.Truncated = false
		}
	}

	e.metrics.RecordPage(len(page.Keys), len(page.CommonPrefixes))
	return page, nil
}

// dirPrefix derives the listing prefix for a directory: its key plus the
// trailing delimiter, empty for the root.
func dirPrefix(dir *Handle) string {
	if dir.key == "" {
		return ""
	}
	return dir.key + Delimiter
}

// Refresh synchronizes one directory with the bucket: pages through a
// delimiter listing of the directory's prefix and merges each page into the
// directory's index. The exclusive lock is held per page, never across
// network calls.
//
// Entries already present keep their cached attributes untouched; see the
// reconciler notes in reconcile.go.
func (e *Export) Refresh(ctx context.Context, dir *Handle) error {
	if err := checkDirectory(dir); err != nil {
		return err
	}

	start := time.Now()
	cursor := &listingCursor{
		prefix:    dirPrefix(dir),
		delimiter: Delimiter,
		maxKeys:   e.maxKeys,
	}

	var err error
	for {
		var page *objectstore.Page
		page, err = e.fetchPage(ctx, cursor)
		if err != nil {
			break
		}

		e.mu.Lock()
		added := e.reconcilePage(dir, cursor.prefix, page)
		e.mu.Unlock()

		if added > 0 {
			logger.Debug("Export %s: listing %q merged %d new entries",
				e.name, cursor.prefix, added)
		}

		if !page.Truncated {
			break
		}
		if cursor.maxKeys > 0 && cursor.keysReturned >= cursor.maxKeys {
			break
		}
	}

	e.metrics.RecordListing(time.Since(start), err)
	if err != nil {
		return fmt.Errorf("listing %q failed: %w", cursor.prefix, err)
	}
	return nil
}

// Lookup resolves one name under dir, refreshing the directory from the
// bucket first. Missing names yield ErrNotFound.
func (e *Export) Lookup(ctx context.Context, dir *Handle, name string) (*Handle, error) {
	if err := checkDirectory(dir); err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, err
	}

	if err := e.Refresh(ctx, dir); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	entry, ok := dir.dir.Lookup(name)
	if !ok {
		return nil, errNotFound(name)
	}
	return entry.Handle, nil
}

// ReadDirEntry is one enumeration result: the entry's name, the ordinal to
// resume after it, and its handle.
type ReadDirEntry struct {
	Name    string
	Ordinal uint64
	Handle  *Handle
}

// ReadDir refreshes dir and enumerates its entries in ordinal order,
// starting at cursor (0 for the beginning). At most maxEntries are returned
// when maxEntries > 0. The returned cursor resumes the enumeration after the
// last entry; eof reports that the end of the directory was reached.
//
// Ordinals are never reused, so a cursor stays valid across concurrent
// listing growth: later insertions appear after it, existing positions never
// shift.
func (e *Export) ReadDir(ctx context.Context, dir *Handle, cursor uint64, maxEntries int) ([]ReadDirEntry, uint64, bool, error) {
	if err := checkDirectory(dir); err != nil {
		return nil, 0, false, err
	}

	if err := e.Refresh(ctx, dir); err != nil {
		return nil, 0, false, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var entries []ReadDirEntry
	eof := true
	dir.dir.AscendFrom(cursor, func(entry *DirEntry) bool {
		if maxEntries > 0 && len(entries) >= maxEntries {
			eof = false
			return false
		}
		entries = append(entries, ReadDirEntry{
			Name:    entry.Name,
			Ordinal: entry.Ordinal,
			Handle:  entry.Handle,
		})
		return true
	})

	next := cursor
	if len(entries) > 0 {
		next = entries[len(entries)-1].Ordinal + 1
	}
	return entries, next, eof, nil
}
