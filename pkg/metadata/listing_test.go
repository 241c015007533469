package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/bucketfs/pkg/objectstore"
)

func TestRefreshPaginatesUntilDone(t *testing.T) {
	// 5 keys at page size 2: exactly ceil(5/2) = 3 requests.
	store := &scriptedStore{responses: []storeResponse{
		{page: &objectstore.Page{Keys: objects("a", "b"), Truncated: true, NextMarker: "b"}},
		{page: &objectstore.Page{Keys: objects("c", "d"), Truncated: true, NextMarker: "d"}},
		{page: &objectstore.Page{Keys: objects("e")}},
	}}
	e := newTestExport(t, store)

	require.NoError(t, e.Refresh(context.Background(), e.Root()))

	assert.Len(t, store.calls, 3)
	assert.Equal(t, "", store.calls[0].Marker)
	assert.Equal(t, "b", store.calls[1].Marker)
	assert.Equal(t, "d", store.calls[2].Marker)
	assert.Equal(t, 5, e.Root().dir.Len())
}

func TestRefreshSynthesizesMarker(t *testing.T) {
	// Truncated page without a next marker: the next request must resume
	// from the last key of the page.
	store := &scriptedStore{responses: []storeResponse{
		{page: &objectstore.Page{Keys: objects("a", "b"), Truncated: true}},
		{page: &objectstore.Page{Keys: objects("c")}},
	}}
	e := newTestExport(t, store)

	require.NoError(t, e.Refresh(context.Background(), e.Root()))

	require.Len(t, store.calls, 2)
	assert.Equal(t, "b", store.calls[1].Marker)
}

func TestRefreshEndsOnEmptyTruncatedPage(t *testing.T) {
	// A truncated page with neither keys nor a next marker offers nothing to
	// resume from. The listing must end after that page, not restart from
	// the current marker.
	store := &scriptedStore{responses: []storeResponse{
		{page: &objectstore.Page{Keys: objects("a", "b"), Truncated: true}},
		{page: &objectstore.Page{Truncated: true}},
		{page: &objectstore.Page{Keys: objects("never-reached")}},
	}}
	e := newTestExport(t, store)

	require.NoError(t, e.Refresh(context.Background(), e.Root()))

	require.Len(t, store.calls, 2)
	assert.Equal(t, "b", store.calls[1].Marker, "a valid marker must survive the terminal page")
	assert.Equal(t, 2, e.Root().dir.Len())
}

func TestRefreshRetryBudget(t *testing.T) {
	// A store failing transiently forever consumes exactly MaxRetries
	// attempts on the one page, then the listing fails.
	store := &scriptedStore{responses: repeat(errTransient, 10)}
	e := newTestExport(t, store)

	var slept []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	err := e.Refresh(context.Background(), e.Root())
	require.Error(t, err)
	assert.ErrorIs(t, err, errTransient)
	assert.Len(t, store.calls, 3, "attempts must equal the retry budget")

	// Backoff grows by one second per attempt from the base interval.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)

	// Every retry reissued the same marker.
	for _, call := range store.calls {
		assert.Equal(t, "", call.Marker)
	}
}

func TestRefreshTransientThenSuccess(t *testing.T) {
	store := &scriptedStore{responses: []storeResponse{
		{err: errTransient},
		{err: errTransient},
		{page: &objectstore.Page{Keys: objects("a")}},
	}}
	e := newTestExport(t, store)

	require.NoError(t, e.Refresh(context.Background(), e.Root()))
	assert.Len(t, store.calls, 3)
	assert.Equal(t, 1, e.Root().dir.Len())
}

func TestRefreshPermanentErrorFailsFast(t *testing.T) {
	store := &scriptedStore{responses: repeat(errPermanent, 5)}
	e := newTestExport(t, store)

	err := e.Refresh(context.Background(), e.Root())
	require.Error(t, err)
	assert.ErrorIs(t, err, errPermanent)
	assert.Len(t, store.calls, 1, "permanent errors must not be retried")
}

func TestRefreshIdempotent(t *testing.T) {
	page := func() *objectstore.Page {
		return &objectstore.Page{
			Keys:           objects("a.txt", "b.txt"),
			CommonPrefixes: []string{"sub/"},
		}
	}
	store := &scriptedStore{responses: []storeResponse{
		{page: page()}, {page: page()}, {page: page()},
	}}
	e := newTestExport(t, store)
	root := e.Root()

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Refresh(context.Background(), root))
		assert.Equal(t, 3, root.dir.Len(), "re-listing must not duplicate entries")
	}

	var names []string
	root.dir.ForEach(func(entry *DirEntry) bool {
		names = append(names, entry.Name)
		return true
	})
	assert.Equal(t, []string{"a.txt", "b.txt", "sub"}, names)
}

func TestRefreshHonorsMaxKeys(t *testing.T) {
	store := &scriptedStore{responses: []storeResponse{
		{page: &objectstore.Page{Keys: objects("a", "b"), Truncated: true, NextMarker: "b"}},
		{page: &objectstore.Page{Keys: objects("c", "d"), Truncated: true, NextMarker: "d"}},
	}}
	e := newTestExport(t, store)
	e.maxKeys = 4

	require.NoError(t, e.Refresh(context.Background(), e.Root()))

	// The cap is reached after the second page even though it was truncated.
	assert.Len(t, store.calls, 2)
	assert.Equal(t, 4, store.calls[0].MaxKeys)
	assert.Equal(t, 2, store.calls[1].MaxKeys)
}

func TestLookup(t *testing.T) {
	store := &scriptedStore{responses: []storeResponse{
		{page: &objectstore.Page{Keys: objects("wanted.txt")}},
		{page: &objectstore.Page{Keys: objects("wanted.txt")}},
	}}
	e := newTestExport(t, store)

	h, err := e.Lookup(context.Background(), e.Root(), "wanted.txt")
	require.NoError(t, err)
	assert.Equal(t, KindFile, h.Kind())
	assert.Equal(t, "wanted.txt", h.Key())

	_, err = e.Lookup(context.Background(), e.Root(), "missing.txt")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrNotFound))
}

func TestLookupRejectsBadNames(t *testing.T) {
	e := newTestExport(t, &scriptedStore{})

	for _, name := range []string{"", ".", "..", "a/b"} {
		_, err := e.Lookup(context.Background(), e.Root(), name)
		require.Error(t, err, "name %q must be rejected", name)
		assert.True(t, IsCode(err, ErrInvalidArgument))
	}
}

func TestLookupOnFileHandle(t *testing.T) {
	e := newTestExport(t, &scriptedStore{})

	f, err := e.Create(context.Background(), e.Root(), "plain", Attributes{Kind: KindFile})
	require.NoError(t, err)

	_, err = e.Lookup(context.Background(), f, "child")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrNotDirectory))
}

func TestReadDirCursor(t *testing.T) {
	store := &scriptedStore{responses: []storeResponse{
		{page: &objectstore.Page{Keys: objects("a", "b", "c", "d")}},
	}}
	e := newTestExport(t, store)

	entries, next, eof, err := e.ReadDir(context.Background(), e.Root(), 0, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, eof)
	assert.Equal(t, []string{"a", "b"}, []string{entries[0].Name, entries[1].Name})

	entries, _, eof, err = e.ReadDir(context.Background(), e.Root(), next, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, eof)
	assert.Equal(t, []string{"c", "d"}, []string{entries[0].Name, entries[1].Name})
}

func TestReadDirEmptyDirectory(t *testing.T) {
	e := newTestExport(t, &scriptedStore{})

	entries, next, eof, err := e.ReadDir(context.Background(), e.Root(), 0, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.True(t, eof)
	assert.Equal(t, uint64(0), next)
}
