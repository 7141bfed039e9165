package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/atinyakov/journalon/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// mapKV is an in-memory KV with injectable failures.
type mapKV struct {
	values map[string][]byte
	getErr error
	setErr error
	delErr error
}

func newMapKV() *mapKV {
	return &mapKV{values: map[string][]byte{}}
}

func (m *mapKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.values[key], nil
}

func (m *mapKV) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mapKV) Delete(_ context.Context, key string) error {
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.values, key)
	return nil
}

func backends(t *testing.T) map[string]KV {
	db, err := openSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return map[string]KV{
		"memory": newMapKV(),
		"file":   NewFileKV(t.TempDir()),
		"sqlite": NewSQLiteKV(db),
	}
}

func TestIndex_IDs(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ix := NewIndex(kv, nil)
			ctx := context.Background()

			assert.Empty(t, ix.ListIDs(ctx))

			require.NoError(t, ix.AddID(ctx, "b"))
			require.NoError(t, ix.AddID(ctx, "a"))
			require.NoError(t, ix.AddID(ctx, "b"))
			require.NoError(t, ix.AddID(ctx, "c"))
			assert.Equal(t, []string{"b", "a", "c"}, ix.ListIDs(ctx))

			require.NoError(t, ix.RemoveID(ctx, "a"))
			require.NoError(t, ix.RemoveID(ctx, "a"))
			require.NoError(t, ix.RemoveID(ctx, "unknown"))
			assert.Equal(t, []string{"b", "c"}, ix.ListIDs(ctx))
		})
	}
}

func TestIndex_Secrets(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ix := NewIndex(kv, nil)
			ctx := context.Background()

			_, ok := ix.Secret(ctx, "id")
			assert.False(t, ok)

			require.NoError(t, ix.SetSecret(ctx, "id", "s1"))
			require.NoError(t, ix.SetSecret(ctx, "other", "s2"))
			secret, ok := ix.Secret(ctx, "id")
			require.True(t, ok)
			assert.Equal(t, "s1", secret)

			require.NoError(t, ix.RemoveSecret(ctx, "id"))
			require.NoError(t, ix.RemoveSecret(ctx, "id"))
			_, ok = ix.Secret(ctx, "id")
			assert.False(t, ok)

			secret, ok = ix.Secret(ctx, "other")
			require.True(t, ok)
			assert.Equal(t, "s2", secret)
		})
	}
}

func TestIndex_KnownWithoutSecret(t *testing.T) {
	ix := NewIndex(newMapKV(), nil)
	ctx := context.Background()

	require.NoError(t, ix.AddID(ctx, "id"))
	require.NoError(t, ix.SetSecret(ctx, "id", "s"))
	require.NoError(t, ix.RemoveSecret(ctx, "id"))

	assert.Equal(t, []string{"id"}, ix.ListIDs(ctx))
	_, ok := ix.Secret(ctx, "id")
	assert.False(t, ok)
}

func TestIndex_PersistedFormat(t *testing.T) {
	kv := newMapKV()
	ix := NewIndex(kv, nil)
	ctx := context.Background()

	require.NoError(t, ix.AddID(ctx, "id1"))
	require.NoError(t, ix.AddID(ctx, "id2"))
	require.NoError(t, ix.SetSecret(ctx, "id1", "secret1"))

	assert.JSONEq(t, `["id1","id2"]`, string(kv.values[JournalIDsKey]))
	assert.JSONEq(t, `{"id1":"secret1"}`, string(kv.values[PrivateKeysKey]))
}

func TestIndex_MalformedValuesReadAsEmpty(t *testing.T) {
	tests := []struct {
		name    string
		ids     string
		secrets string
	}{
		{"garbage", "{not json", "[[["},
		{"wrong types", `{"a":1}`, `["x"]`},
		{"null", "null", "null"},
		{"wrong element types", "[1,2,3]", `{"id":42}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kv := newMapKV()
			kv.values[JournalIDsKey] = []byte(tc.ids)
			kv.values[PrivateKeysKey] = []byte(tc.secrets)

			core, logs := observer.New(zapcore.WarnLevel)
			ix := NewIndex(kv, zap.New(core))
			ctx := context.Background()

			assert.Empty(t, ix.ListIDs(ctx))
			_, ok := ix.Secret(ctx, "id")
			assert.False(t, ok)

			// Writes heal the corrupted value.
			require.NoError(t, ix.AddID(ctx, "fresh"))
			require.NoError(t, ix.SetSecret(ctx, "fresh", "s"))
			assert.Equal(t, []string{"fresh"}, ix.ListIDs(ctx))
			secret, ok := ix.Secret(ctx, "fresh")
			assert.True(t, ok)
			assert.Equal(t, "s", secret)

			if tc.name != "null" {
				assert.NotZero(t, logs.FilterMessageSnippet("treating as empty").Len())
			}
		})
	}
}

func TestIndex_ReadFailureReadsEmpty(t *testing.T) {
	kv := newMapKV()
	kv.getErr = errors.New("disk gone")
	ix := NewIndex(kv, nil)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		assert.Empty(t, ix.ListIDs(ctx))
		_, ok := ix.Secret(ctx, "id")
		assert.False(t, ok)
	})
}

func TestIndex_WriteFailurePropagates(t *testing.T) {
	kv := newMapKV()
	kv.setErr = errors.New("read-only")
	kv.delErr = errors.New("read-only")
	ix := NewIndex(kv, nil)
	ctx := context.Background()

	for name, err := range map[string]error{
		"AddID":     ix.AddID(ctx, "id"),
		"SetSecret": ix.SetSecret(ctx, "id", "s"),
		"Reset":     ix.Reset(ctx),
	} {
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, common.ErrStorage), name)
	}
}

func TestIndex_Reset(t *testing.T) {
	ix := NewIndex(NewFileKV(t.TempDir()), nil)
	ctx := context.Background()

	require.NoError(t, ix.AddID(ctx, "id"))
	require.NoError(t, ix.SetSecret(ctx, "id", "s"))
	require.NoError(t, ix.Reset(ctx))

	assert.Empty(t, ix.ListIDs(ctx))
	_, ok := ix.Secret(ctx, "id")
	assert.False(t, ok)
}
