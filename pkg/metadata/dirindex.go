package metadata

import "github.com/google/btree"

// FirstOrdinal is the ordinal assigned to the first entry inserted into a
// directory. Lower values are reserved for the conventional self and parent
// entries that consumers synthesize themselves.
const FirstOrdinal = 3

// DirEntry is one name in a directory, linking the name to its handle.
//
// The ordinal is a stable readdir position: assigned once at insert, never
// reused after removal. Consumers hand ordinals out as directory cookies and
// resume iteration from them, so an ordinal must keep meaning "everything
// inserted after this point" even across removals.
type DirEntry struct {
	Name    string
	Ordinal uint64
	Handle  *Handle

	// dir is the directory handle owning this entry, set when the entry is
	// linked into a directory.
	dir *Handle
}

// DirIndex is the entry table of one directory, ordered two ways: by name
// for lookup and insert, by ordinal for positional iteration.
//
// Both trees hold the same *DirEntry values. DirIndex is not safe for
// concurrent use; the owning Export serializes access.
type DirIndex struct {
	byName      *btree.BTreeG[*DirEntry]
	byOrdinal   *btree.BTreeG[*DirEntry]
	nextOrdinal uint64
}

const btreeDegree = 8

// NewDirIndex creates an empty directory index.
func NewDirIndex() *DirIndex {
	return &DirIndex{
		byName: btree.NewG(btreeDegree, func(a, b *DirEntry) bool {
			return a.Name < b.Name
		}),
		byOrdinal: btree.NewG(btreeDegree, func(a, b *DirEntry) bool {
			return a.Ordinal < b.Ordinal
		}),
		nextOrdinal: FirstOrdinal,
	}
}

// Len returns the number of entries.
func (d *DirIndex) Len() int {
	return d.byName.Len()
}

// Lookup finds an entry by name.
func (d *DirIndex) Lookup(name string) (*DirEntry, bool) {
	return d.byName.Get(&DirEntry{Name: name})
}

// Insert adds a name for the given handle. The ordinal counter only advances
// when the insert succeeds, so failed inserts leave no gaps.
func (d *DirIndex) Insert(name string, h *Handle) (*DirEntry, error) {
	if _, exists := d.byName.Get(&DirEntry{Name: name}); exists {
		return nil, errNameExists(name)
	}

	entry := &DirEntry{
		Name:    name,
		Ordinal: d.nextOrdinal,
		Handle:  h,
	}
	d.nextOrdinal++

	d.byName.ReplaceOrInsert(entry)
	d.byOrdinal.ReplaceOrInsert(entry)
	return entry, nil
}

// Remove deletes an entry by name. The entry's ordinal is retired, not
// recycled.
func (d *DirIndex) Remove(name string) (*DirEntry, bool) {
	entry, ok := d.byName.Delete(&DirEntry{Name: name})
	if !ok {
		return nil, false
	}
	d.byOrdinal.Delete(entry)
	return entry, true
}

// AscendFrom visits entries in ordinal order, starting at the first entry
// whose ordinal is >= start. Iteration stops when fn returns false.
//
// fn must not mutate the index.
func (d *DirIndex) AscendFrom(start uint64, fn func(*DirEntry) bool) {
	d.byOrdinal.AscendGreaterOrEqual(&DirEntry{Ordinal: start}, func(e *DirEntry) bool {
		return fn(e)
	})
}

// ForEach visits all entries in name order. Iteration stops when fn returns
// false. fn must not mutate the index.
func (d *DirIndex) ForEach(fn func(*DirEntry) bool) {
	d.byName.Ascend(func(e *DirEntry) bool {
		return fn(e)
	})
}
