package service_test

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/atinyakov/journalon/internal/client/cache"
	"github.com/atinyakov/journalon/internal/common"
	"github.com/atinyakov/journalon/internal/keys"
	"github.com/atinyakov/journalon/internal/models"
	"github.com/atinyakov/journalon/internal/service"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeStore is an in-memory blob store. StoreFunc and FetchFunc, when set,
// replace the default behavior.
type fakeStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	stores  int
	fetches int

	StoreFunc func(ctx context.Context, secret string, blob []byte) (string, error)
	FetchFunc func(ctx context.Context, publicKey string) ([]byte, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: map[string][]byte{}}
}

func (f *fakeStore) Store(ctx context.Context, secret string, blob []byte) (string, error) {
	f.mu.Lock()
	f.stores++
	fn := f.StoreFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, secret, blob)
	}
	return f.put(secret, blob), nil
}

func (f *fakeStore) put(secret string, blob []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	pk := keys.DerivePublicKey(secret)
	f.blobs[pk] = slices.Clone(blob)
	return pk
}

func (f *fakeStore) Fetch(ctx context.Context, publicKey string) ([]byte, error) {
	f.mu.Lock()
	f.fetches++
	fn := f.FetchFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, publicKey)
	}
	return f.get(ctx, publicKey)
}

func (f *fakeStore) get(ctx context.Context, publicKey string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrNetwork, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	blob, ok := f.blobs[publicKey]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", publicKey, common.ErrNotFound)
	}
	return slices.Clone(blob), nil
}

func (f *fakeStore) counts() (stores, fetches int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stores, f.fetches
}

func (f *fakeStore) blob(publicKey string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blobs[publicKey]
	return b, ok
}

// fakeIndex is an in-memory IndexStore with injectable write failures.
type fakeIndex struct {
	mu      sync.Mutex
	ids     []string
	secrets map[string]string

	addErr       error
	setSecretErr error
	removeErr    error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{secrets: map[string]string{}}
}

func (f *fakeIndex) ListIDs(context.Context) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.ids)
}

func (f *fakeIndex) AddID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	if !slices.Contains(f.ids, id) {
		f.ids = append(f.ids, id)
	}
	return nil
}

func (f *fakeIndex) RemoveID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.ids = slices.DeleteFunc(f.ids, func(v string) bool { return v == id })
	return nil
}

func (f *fakeIndex) Secret(_ context.Context, id string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.secrets[id]
	return s, ok
}

func (f *fakeIndex) SetSecret(_ context.Context, id, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setSecretErr != nil {
		return f.setSecretErr
	}
	f.secrets[id] = secret
	return nil
}

func (f *fakeIndex) RemoveSecret(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.secrets, id)
	return nil
}

// stepClock advances one second on every reading.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	svc   *service.JournalService
	store *fakeStore
	index *fakeIndex
	cache *cache.Cache
	clock *stepClock
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	f := &fixture{
		store: newFakeStore(),
		index: newFakeIndex(),
		cache: cache.New(),
		clock: newStepClock(),
	}
	opts = append([]service.Option{service.WithClock(f.clock.Now), service.WithLogger(zap.NewNop())}, opts...)
	f.svc = service.NewJournalService(f.store, f.index, f.cache, opts...)
	return f
}

// reopen returns a service over the same store and index with an empty cache,
// which is what a fresh process sees.
func (f *fixture) reopen() *service.JournalService {
	return service.NewJournalService(f.store, f.index, cache.New(), service.WithClock(f.clock.Now))
}

func assertSameJournal(t *testing.T, want, got models.Journal) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.PrivateKey, got.PrivateKey)
	assert.Equal(t, want.Title, got.Title)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "createdAt %v != %v", want.CreatedAt, got.CreatedAt)
	assertSameEntries(t, want.Entries, got.Entries)
}

func assertSameEntries(t *testing.T, want, got []models.Entry) {
	t.Helper()
	if !assert.Len(t, got, len(want)) {
		return
	}
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Content, got[i].Content)
		assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp), "entry %d timestamp %v != %v", i, want[i].Timestamp, got[i].Timestamp)
	}
}
