package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the contract every backend must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "@expenses")
	require.NoError(t, err)
	assert.False(t, ok, "missing key must report ok=false")

	require.NoError(t, s.Set(ctx, "@expenses", `[{"id":"1"}]`))
	v, ok, err := s.Get(ctx, "@expenses")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, v)

	require.NoError(t, s.Set(ctx, "@expenses", `[]`))
	v, _, err = s.Get(ctx, "@expenses")
	require.NoError(t, err)
	assert.Equal(t, `[]`, v, "Set must overwrite")

	require.NoError(t, s.Set(ctx, "@other", "x"))
	v, _, err = s.Get(ctx, "@expenses")
	require.NoError(t, err)
	assert.Equal(t, `[]`, v, "keys are independent")

	assert.ErrorIs(t, s.Set(ctx, "", "x"), ErrEmptyKey)
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	exerciseStore(t, s)

	require.NoError(t, s.Close())
	_, _, err := s.Get(context.Background(), "@expenses")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "agrocost.json")
	s, err := NewJSONFile(path)
	require.NoError(t, err)
	exerciseStore(t, s)

	// A second instance sees what the first one wrote.
	again, err := NewJSONFile(path)
	require.NoError(t, err)
	v, ok, err := again.Get(context.Background(), "@other")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestJSONFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agrocost.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := NewJSONFile(path)
	require.NoError(t, err)
	_, _, err = s.Get(context.Background(), "@expenses")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agrocost.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	// Reopening runs migrations again without error and keeps the data.
	s, err = NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get(context.Background(), "@expenses")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, v)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres test")
	}
	s, err := NewPostgres(context.Background(), dsn)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSealed(t *testing.T) {
	inner := NewMemory()
	s, err := NewSealed(inner, strings.Repeat("k", 32), strings.Repeat("s", 40))
	require.NoError(t, err)
	exerciseStore(t, s)

	raw, _, err := inner.Get(context.Background(), "@other")
	require.NoError(t, err)
	assert.NotEqual(t, "x", raw, "value must be encrypted at rest")
	assert.Contains(t, raw, ".")
}

func TestSealedRejectsTampering(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	s, err := NewSealed(inner, strings.Repeat("k", 32), strings.Repeat("s", 32))
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "@expenses", "[]"))

	other, err := NewSealed(inner, strings.Repeat("k", 32), strings.Repeat("t", 32))
	require.NoError(t, err)
	_, _, err = other.Get(ctx, "@expenses")
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, inner.Set(ctx, "@expenses", "garbage"))
	_, _, err = s.Get(ctx, "@expenses")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSealedKeyLength(t *testing.T) {
	_, err := NewSealed(NewMemory(), "short", strings.Repeat("s", 32))
	assert.ErrorIs(t, err, ErrKeyTooShort)
}
