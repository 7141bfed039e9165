package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/atinyakov/journalon/internal/common"
	"go.uber.org/zap"
)

const (
	// JournalIDsKey holds the JSON array of known journal ids.
	JournalIDsKey = "journalon_journal_ids"
	// PrivateKeysKey holds the JSON object mapping journal id to private key.
	PrivateKeysKey = "journalon_private_keys"
)

// Index is the local record of which journals this installation knows and which
// of them it can still open. An id may be present without a private key: the
// journal is known but no longer accessible.
//
// Reads never fail. Missing or malformed data reads as empty and is logged.
// Writes fail with common.ErrStorage.
type Index struct {
	kv  KV
	log *zap.Logger
	mu  sync.Mutex
}

// NewIndex returns an Index persisted in kv.
func NewIndex(kv KV, log *zap.Logger) *Index {
	if log == nil {
		log = zap.NewNop()
	}
	return &Index{kv: kv, log: log}
}

// readValue decodes the JSON value under key, falling back to def when the key
// is missing, unreadable or malformed.
func readValue[T any](ctx context.Context, ix *Index, key string, def T) T {
	raw, err := ix.kv.Get(ctx, key)
	if err != nil {
		ix.log.Warn("failed to read local index, treating as empty", zap.String("key", key), zap.Error(err))
		return def
	}
	if raw == nil {
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		ix.log.Warn("malformed local index value, treating as empty", zap.String("key", key), zap.Error(err))
		return def
	}
	return v
}

func (ix *Index) writeValue(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", common.ErrStorage, key, err)
	}
	if err := ix.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("%w: write %s: %w", common.ErrStorage, key, err)
	}
	return nil
}

func (ix *Index) ids(ctx context.Context) []string {
	ids := readValue(ctx, ix, JournalIDsKey, []string{})
	if ids == nil {
		return []string{}
	}
	return ids
}

func (ix *Index) secrets(ctx context.Context) map[string]string {
	secrets := readValue(ctx, ix, PrivateKeysKey, map[string]string{})
	if secrets == nil {
		return map[string]string{}
	}
	return secrets
}

// ListIDs returns the known journal ids in insertion order.
func (ix *Index) ListIDs(ctx context.Context) []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.ids(ctx)
}

// AddID records id. Adding a known id is a no-op.
func (ix *Index) AddID(ctx context.Context, id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ids := ix.ids(ctx)
	if slices.Contains(ids, id) {
		return nil
	}
	return ix.writeValue(ctx, JournalIDsKey, append(ids, id))
}

// RemoveID forgets id. Removing an unknown id is a no-op.
func (ix *Index) RemoveID(ctx context.Context, id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ids := ix.ids(ctx)
	kept := slices.DeleteFunc(slices.Clone(ids), func(v string) bool { return v == id })
	if len(kept) == len(ids) {
		return nil
	}
	return ix.writeValue(ctx, JournalIDsKey, kept)
}

// Secret returns the private key held for id.
func (ix *Index) Secret(ctx context.Context, id string) (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	secret, ok := ix.secrets(ctx)[id]
	if !ok || secret == "" {
		return "", false
	}
	return secret, true
}

// SetSecret stores the private key for id.
func (ix *Index) SetSecret(ctx context.Context, id, secret string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	secrets := ix.secrets(ctx)
	secrets[id] = secret
	return ix.writeValue(ctx, PrivateKeysKey, secrets)
}

// RemoveSecret drops the private key for id. The id itself stays known.
func (ix *Index) RemoveSecret(ctx context.Context, id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	secrets := ix.secrets(ctx)
	if _, ok := secrets[id]; !ok {
		return nil
	}
	delete(secrets, id)
	return ix.writeValue(ctx, PrivateKeysKey, secrets)
}

// Reset forgets every id and private key.
func (ix *Index) Reset(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, key := range []string{JournalIDsKey, PrivateKeysKey} {
		if err := ix.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("%w: delete %s: %w", common.ErrStorage, key, err)
		}
	}
	return nil
}
