// Package service provides the business logic of journalon: the journal
// repository used by the client and the blob service behind the reference
// store. Persistence and transport are reached through the interfaces declared
// here.
package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/atinyakov/journalon/internal/common"
	"github.com/atinyakov/journalon/internal/keys"
	"github.com/atinyakov/journalon/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// listConcurrency bounds parallel fetches in ListAll.
const listConcurrency = 8

var (
	// ErrJournalNotFound is returned when an operation targets a journal that
	// cannot be resolved.
	ErrJournalNotFound = fmt.Errorf("journal %w", common.ErrNotFound)
	// ErrEntryNotFound is returned when an entry id does not exist in its journal.
	ErrEntryNotFound = fmt.Errorf("entry %w", common.ErrNotFound)
)

// BlobStore is the remote content-addressed store.
type BlobStore interface {
	// Store writes blob at the address derived from secret and returns that address.
	Store(ctx context.Context, secret string, blob []byte) (string, error)
	// Fetch returns the blob stored at publicKey.
	Fetch(ctx context.Context, publicKey string) ([]byte, error)
}

// IndexStore is the local record of known journal ids and held private keys.
// Reads never fail; missing data reads as empty.
type IndexStore interface {
	ListIDs(ctx context.Context) []string
	AddID(ctx context.Context, id string) error
	RemoveID(ctx context.Context, id string) error
	Secret(ctx context.Context, id string) (string, bool)
	SetSecret(ctx context.Context, id, secret string) error
	RemoveSecret(ctx context.Context, id string) error
}

// JournalCache holds journals already materialized in this process.
type JournalCache interface {
	Get(id string) (models.Journal, bool)
	Put(id string, j models.Journal)
	Remove(id string)
}

// JournalService creates, reads, mutates, exports and imports journals.
//
// Every mutation republishes the whole journal. Mutations of one journal are
// serialized inside the process; across processes the store keeps whichever
// write lands last, because the wire protocol carries no version.
type JournalService struct {
	store BlobStore
	index IndexStore
	cache JournalCache
	log   *zap.Logger
	now   func() time.Time

	locks   keyedMutex
	fetches singleflight.Group
}

// Option configures a JournalService.
type Option func(*JournalService)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(s *JournalService) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *JournalService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewJournalService constructs a JournalService over the given store, index and cache.
func NewJournalService(store BlobStore, index IndexStore, cache JournalCache, opts ...Option) *JournalService {
	s := &JournalService{
		store: store,
		index: index,
		cache: cache,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp returns the current time at the precision the blob format keeps.
func (s *JournalService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// modifiedAt never precedes createdAt.
func (s *JournalService) modifiedAt(createdAt time.Time) time.Time {
	t := s.timestamp()
	if t.Before(createdAt) {
		return createdAt
	}
	return t
}

func validTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &common.ValidationError{Field: "title", Message: "must not be empty"}
	}
	return title, nil
}

// Create mints a new journal, publishes it and records it locally. Local state
// only changes once the remote write has succeeded.
func (s *JournalService) Create(ctx context.Context, title string) (*models.Journal, error) {
	title, err := validTitle(title)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	kp := keys.NewKeyPair()
	j := models.Journal{
		ID:         kp.PublicKey,
		PrivateKey: kp.PrivateKey,
		Title:      title,
		Entries:    []models.Entry{},
		CreatedAt:  now,
		ModifiedAt: now,
	}

	if err := s.publishNew(ctx, j); err != nil {
		return nil, err
	}
	s.log.Info("journal created", zap.String("id", j.ID))
	return &j, nil
}

// Get resolves a journal by id. It returns nil without an error when the
// journal is not accessible from this installation. A journal whose key is
// held but whose blob cannot be loaded fails with common.ErrStorage.
func (s *JournalService) Get(ctx context.Context, id string) (*models.Journal, error) {
	if j, ok := s.cache.Get(id); ok {
		return &j, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: load journal %s: %w", common.ErrStorage, id, err)
	}

	// The shared fetch outlives any single caller; each caller stops waiting
	// when its own ctx is done.
	ch := s.fetches.DoChan(id, func() (any, error) {
		unlock := s.locks.Lock(id)
		defer unlock()
		return s.load(context.WithoutCancel(ctx), id)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: load journal %s: %w", common.ErrStorage, id, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	j, _ := res.Val.(*models.Journal)
	if j == nil {
		return nil, nil
	}
	c := j.Clone()
	return &c, nil
}

// load resolves id through the cache, the index and the store. The caller holds
// the lock for id.
func (s *JournalService) load(ctx context.Context, id string) (*models.Journal, error) {
	if j, ok := s.cache.Get(id); ok {
		return &j, nil
	}

	secret, ok := s.index.Secret(ctx, id)
	if !ok {
		if slices.Contains(s.index.ListIDs(ctx), id) {
			s.log.Warn("no private key held for known journal", zap.String("id", id))
		} else {
			s.log.Debug("unknown journal", zap.String("id", id))
		}
		return nil, nil
	}

	blob, err := s.store.Fetch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: load journal %s: %w", common.ErrStorage, id, err)
	}
	j, err := UnmarshalJournal(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: decode journal %s: %w", common.ErrStorage, id, err)
	}
	if j.ID != id {
		return nil, fmt.Errorf("%w: blob at %s describes journal %s", common.ErrStorage, id, j.ID)
	}
	j.PrivateKey = secret

	s.cache.Put(id, *j)
	return j, nil
}

// ListAll returns every accessible journal, most recently modified first.
// Journals that cannot be resolved are logged and left out.
func (s *JournalService) ListAll(ctx context.Context) ([]models.Journal, error) {
	ids := s.index.ListIDs(ctx)
	resolved := make([]*models.Journal, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			j, err := s.Get(gctx, id)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.log.Warn("failed to fetch journal", zap.String("id", id), zap.Error(err))
				return nil
			}
			resolved[i] = j
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	journals := make([]models.Journal, 0, len(ids))
	for _, j := range resolved {
		if j != nil {
			journals = append(journals, *j)
		}
	}
	sort.SliceStable(journals, func(a, b int) bool {
		return journals[a].ModifiedAt.After(journals[b].ModifiedAt)
	})
	return journals, nil
}

// Update stamps j with the current time and republishes it. j must carry the
// private key its id was derived from.
func (s *JournalService) Update(ctx context.Context, j *models.Journal) error {
	if j == nil {
		return &common.ValidationError{Field: "journal", Message: "missing"}
	}
	unlock := s.locks.Lock(j.ID)
	defer unlock()
	return s.update(ctx, j)
}

func (s *JournalService) update(ctx context.Context, j *models.Journal) error {
	if !(keys.KeyPair{PrivateKey: j.PrivateKey, PublicKey: j.ID}).Valid() {
		return fmt.Errorf("update journal %s: private key does not match id: %w", j.ID, common.ErrInvalidKey)
	}
	j.ModifiedAt = s.modifiedAt(j.CreatedAt)
	if err := s.put(ctx, *j); err != nil {
		return err
	}
	s.cache.Put(j.ID, *j)
	return nil
}

// put serializes j and writes it to the store.
func (s *JournalService) put(ctx context.Context, j models.Journal) error {
	blob, err := MarshalJournal(j)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	pk, err := s.store.Store(ctx, j.PrivateKey, blob)
	if err != nil {
		return fmt.Errorf("%w: publish journal %s: %w", common.ErrStorage, j.ID, err)
	}
	if pk != j.ID {
		return fmt.Errorf("%w: journal %s stored at %s: %w", common.ErrStorage, j.ID, pk, common.ErrInvalidKey)
	}
	return nil
}

// publishNew stores a journal with a fresh identity, then indexes and caches it.
func (s *JournalService) publishNew(ctx context.Context, j models.Journal) error {
	if err := s.put(ctx, j); err != nil {
		return err
	}
	if err := s.index.AddID(ctx, j.ID); err != nil {
		return fmt.Errorf("%w: register journal %s: %w", common.ErrStorage, j.ID, err)
	}
	if err := s.index.SetSecret(ctx, j.ID, j.PrivateKey); err != nil {
		if rmErr := s.index.RemoveID(ctx, j.ID); rmErr != nil {
			s.log.Warn("failed to roll back journal id", zap.String("id", j.ID), zap.Error(rmErr))
		}
		return fmt.Errorf("%w: store private key %s: %w", common.ErrStorage, j.ID, err)
	}
	s.cache.Put(j.ID, j)
	return nil
}

// mutate runs a read-modify-write of one journal under its lock. fn reports
// whether it changed anything; unchanged journals are not republished.
func (s *JournalService) mutate(ctx context.Context, id string, fn func(j *models.Journal) (bool, error)) (*models.Journal, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	j, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrJournalNotFound)
	}

	changed, err := fn(j)
	if err != nil {
		return nil, err
	}
	if !changed {
		return j, nil
	}
	if err := s.update(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// AddEntry appends a new entry to the journal and returns it.
func (s *JournalService) AddEntry(ctx context.Context, id, content string) (*models.Entry, error) {
	var entry models.Entry
	_, err := s.mutate(ctx, id, func(j *models.Journal) (bool, error) {
		entry = models.Entry{
			ID:        uuid.NewString(),
			Content:   content,
			Timestamp: s.timestamp(),
		}
		j.Entries = append(j.Entries, entry)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateEntry replaces the content of an entry in place.
func (s *JournalService) UpdateEntry(ctx context.Context, id, entryID, content string) error {
	_, err := s.mutate(ctx, id, func(j *models.Journal) (bool, error) {
		i := j.EntryIndex(entryID)
		if i < 0 {
			return false, fmt.Errorf("%s: %w", entryID, ErrEntryNotFound)
		}
		j.Entries[i].Content = content
		return true, nil
	})
	return err
}

// DeleteEntry removes an entry. Removing an entry that is already gone succeeds
// and leaves the journal untouched.
func (s *JournalService) DeleteEntry(ctx context.Context, id, entryID string) error {
	_, err := s.mutate(ctx, id, func(j *models.Journal) (bool, error) {
		if j.EntryIndex(entryID) < 0 {
			return false, nil
		}
		j.Entries = slices.DeleteFunc(j.Entries, func(e models.Entry) bool { return e.ID == entryID })
		return true, nil
	})
	return err
}

// Rename changes the title of a journal.
func (s *JournalService) Rename(ctx context.Context, id, title string) (*models.Journal, error) {
	title, err := validTitle(title)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(j *models.Journal) (bool, error) {
		if j.Title == title {
			return false, nil
		}
		j.Title = title
		return true, nil
	})
}

// Delete forgets a journal locally: cache, id and private key. The blob stays
// in the store, which has no delete; without the key this installation simply
// cannot reach it anymore.
func (s *JournalService) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	s.cache.Remove(id)
	if err := s.index.RemoveID(ctx, id); err != nil {
		return fmt.Errorf("%w: remove journal %s: %w", common.ErrStorage, id, err)
	}
	if err := s.index.RemoveSecret(ctx, id); err != nil {
		return fmt.Errorf("%w: remove private key %s: %w", common.ErrStorage, id, err)
	}
	s.log.Info("journal removed locally", zap.String("id", id))
	return nil
}

// Export projects out the private key.
func (s *JournalService) Export(j models.Journal) models.ExportedJournal {
	return models.ExportedJournal{
		ID:         j.ID,
		Title:      j.Title,
		Entries:    j.Clone().Entries,
		CreatedAt:  j.CreatedAt,
		ModifiedAt: j.ModifiedAt,
	}
}

// CheckExists probes for a journal, turning every failure into nil.
func (s *JournalService) CheckExists(ctx context.Context, id string) *models.Journal {
	j, err := s.Get(ctx, id)
	if err != nil {
		s.log.Debug("journal probe failed", zap.String("id", id), zap.Error(err))
		return nil
	}
	return j
}

// Import brings an exported journal in.
//
// If this installation already holds the journal, Import fails with
// common.ErrConflict unless overwrite is set, in which case the content is
// replaced while the existing private key is kept. Otherwise the journal is
// published under a brand new identity: without the original private key the
// original address cannot be written.
func (s *JournalService) Import(ctx context.Context, exported models.ExportedJournal, overwrite bool) (*models.Journal, error) {
	if exported.ID == "" {
		return nil, &common.ValidationError{Field: "id", Message: "missing"}
	}
	payload := exported.Clone()
	if payload.CreatedAt.IsZero() {
		payload.CreatedAt = s.timestamp()
	}

	unlock := s.locks.Lock(payload.ID)
	existing, err := s.load(ctx, payload.ID)
	if err != nil {
		unlock()
		return nil, err
	}

	if existing != nil {
		defer unlock()
		if !overwrite {
			return nil, fmt.Errorf("import %s: %w", payload.ID, common.ErrConflict)
		}
		merged := models.Journal{
			ID:         existing.ID,
			PrivateKey: existing.PrivateKey,
			Title:      payload.Title,
			Entries:    payload.Entries,
			CreatedAt:  payload.CreatedAt,
		}
		if err := s.update(ctx, &merged); err != nil {
			return nil, err
		}
		s.log.Info("journal overwritten from import", zap.String("id", merged.ID))
		return &merged, nil
	}
	unlock()

	kp := keys.NewKeyPair()
	j := models.Journal{
		ID:         kp.PublicKey,
		PrivateKey: kp.PrivateKey,
		Title:      payload.Title,
		Entries:    payload.Entries,
		CreatedAt:  payload.CreatedAt,
	}
	j.ModifiedAt = s.modifiedAt(j.CreatedAt)

	if err := s.publishNew(ctx, j); err != nil {
		return nil, err
	}
	s.log.Info("journal imported under new id", zap.String("from", payload.ID), zap.String("id", j.ID))
	return &j, nil
}
