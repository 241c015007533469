package metadata

import (
	"strings"
	"time"

	"github.com/marmos91/bucketfs/pkg/objectstore"
)

// reconcilePage merges one listing page into dir's index: object keys become
// file handles, common prefixes become directory handles. Entries whose name
// already exists are skipped, and their cached attributes are deliberately
// left untouched; consumers of the change counter depend on attributes only
// moving through the refresh upcall path.
//
// Keys are processed before common prefixes, mirroring the object versus
// pseudo-directory split in the remote namespace. Callers must hold the
// exclusive lock for the duration of the merge.
//
// Returns the number of entries materialized.
func (e *Export) reconcilePage(dir *Handle, prefix string, page *objectstore.Page) int {
	added := 0

	for _, obj := range page.Keys {
		name := strings.TrimPrefix(obj.Key, prefix)
		if name == "" {
			// The directory's own marker object lists under its prefix.
			continue
		}
		if _, exists := dir.dir.Lookup(name); exists {
			continue
		}

		mtime := obj.LastModified
		if mtime.IsZero() {
			mtime = time.Now()
		}

		h := e.newHandleLocked(obj.Key, Attributes{
			Kind:       KindFile,
			Mode:       DefaultFileMode,
			Size:       obj.Size,
			Owner:      obj.Owner,
			ModifyTime: mtime,
			ChangeTime: mtime,
		}, dir.id)

		if _, err := e.linkLocked(dir, name, h); err != nil {
			// Lookup above makes a collision impossible; keep the arena
			// consistent anyway.
			delete(e.handles, h.id)
			continue
		}
		added++
	}

	for _, cp := range page.CommonPrefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(cp, prefix), Delimiter)
		if name == "" {
			continue
		}
		if _, exists := dir.dir.Lookup(name); exists {
			continue
		}

		now := time.Now()
		h := e.newHandleLocked(strings.TrimSuffix(cp, Delimiter), Attributes{
			Kind:       KindDirectory,
			Mode:       DefaultDirMode,
			ModifyTime: now,
			ChangeTime: now,
		}, dir.id)
		h.dir = NewDirIndex()

		if _, err := e.linkLocked(dir, name, h); err != nil {
			delete(e.handles, h.id)
			continue
		}
		added++
	}

	return added
}
