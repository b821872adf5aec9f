package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "job:missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Create(ctx, "job:a", []byte("one"), time.Hour))
	require.ErrorIs(t, s.Create(ctx, "job:a", []byte("two"), time.Hour), ErrConflict)

	got, err := s.Get(ctx, "job:a")
	require.NoError(t, err)
	require.Equal(t, []byte("one"), got)

	require.NoError(t, s.Put(ctx, "job:a", []byte("three"), time.Hour))
	got, err = s.Get(ctx, "job:a")
	require.NoError(t, err)
	require.Equal(t, []byte("three"), got)

	require.NoError(t, s.Delete(ctx, "job:a"))
	_, err = s.Get(ctx, "job:a")
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is fine.
	require.NoError(t, s.Delete(ctx, "job:a"))
}

func testExpiry(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "ratelimit:x", []byte("n"), 10*time.Millisecond))
	time.Sleep(1100 * time.Millisecond) // sqlite stores whole seconds

	_, err := s.Get(ctx, "ratelimit:x")
	require.ErrorIs(t, err, ErrNotFound)

	// An expired key can be re-created conditionally.
	require.NoError(t, s.Create(ctx, "ratelimit:x", []byte("m"), time.Hour))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	testStore(t, s)
	testExpiry(t, s)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	testStore(t, s)
	testExpiry(t, s)
}

func TestKeys(t *testing.T) {
	require.Equal(t, "job:abc", JobKey("abc"))
	require.Equal(t, "ratelimit:1.2.3.4", RateLimitKey("1.2.3.4"))
	require.Equal(t, "doc:abc:2", DocKey("abc", 2))
}
