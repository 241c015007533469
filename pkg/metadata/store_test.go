package metadata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marmos91/bucketfs/pkg/objectstore"
)

// Test doubles shared by the package tests: a scripted object store client
// and an export wired to it with an instant sleep.

var (
	errTransient = errors.New("transient store failure")
	errPermanent = errors.New("permanent store failure")
)

type storeResponse struct {
	page *objectstore.Page
	err  error
}

// scriptedStore replays a fixed sequence of responses and records every
// request it receives. Requests beyond the script get an empty final page.
type scriptedStore struct {
	responses []storeResponse
	calls     []objectstore.ListRequest
}

func (s *scriptedStore) ListPage(ctx context.Context, req objectstore.ListRequest) (*objectstore.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.calls = append(s.calls, req)
	if len(s.responses) == 0 {
		return &objectstore.Page{}, nil
	}

	resp := s.responses[0]
	s.responses = s.responses[1:]
	if resp.err != nil {
		return nil, resp.err
	}
	return resp.page, nil
}

func (s *scriptedStore) IsRetryable(err error) bool {
	return errors.Is(err, errTransient)
}

func (s *scriptedStore) TestBucket(ctx context.Context) error {
	return nil
}

// repeat builds a script of n identical error responses.
func repeat(err error, n int) []storeResponse {
	responses := make([]storeResponse, n)
	for i := range responses {
		responses[i] = storeResponse{err: err}
	}
	return responses
}

func objects(keys ...string) []objectstore.ObjectInfo {
	infos := make([]objectstore.ObjectInfo, len(keys))
	for i, key := range keys {
		infos[i] = objectstore.ObjectInfo{
			Key:          key,
			Size:         int64(100 + i),
			LastModified: time.Date(2024, 6, 1, 12, 0, i, 0, time.UTC),
			Owner:        "owner-1",
		}
	}
	return infos
}

func newTestExport(t *testing.T, store *scriptedStore) *Export {
	t.Helper()

	e, err := NewExport(context.Background(), Options{
		Name:          "test",
		Store:         store,
		MaxRetries:    3,
		RetryInterval: time.Second,
		SkipProbe:     true,
	})
	if err != nil {
		t.Fatalf("NewExport() failed: %v", err)
	}

	// Record backoffs instead of sleeping through them.
	e.sleep = func(ctx context.Context, d time.Duration) error {
		return nil
	}
	return e
}
