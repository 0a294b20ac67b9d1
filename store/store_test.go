package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testRoundTrip(t *testing.T, users Users) {
	t.Helper()
	ctx := context.Background()

	// unknown id
	user, err := users.Get(ctx, "nobody")
	require.NoError(t, err)
	require.Nil(t, user)

	data := map[string]any{
		"score":  float64(42), // JSON numbers come back as float64
		"name":   "Аня",
		"nested": map[string]any{"list": []any{"a", "b"}},
	}
	err = users.Put(ctx, &User{
		ID:        "alisa:u1",
		Data:      data,
		Intent:    "greeting",
		UpdatedAt: time.Now(),
	})
	require.NoError(t, err)

	user, err = users.Get(ctx, "alisa:u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, data, user.Data)
	require.Equal(t, "greeting", user.Intent)

	// last writer wins
	err = users.Put(ctx, &User{ID: "alisa:u1", Data: map[string]any{"score": float64(7)}})
	require.NoError(t, err)
	user, err = users.Get(ctx, "alisa:u1")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"score": float64(7)}, user.Data)
	require.Empty(t, user.Intent)

	require.NoError(t, users.Delete(ctx, "alisa:u1"))
	user, err = users.Get(ctx, "alisa:u1")
	require.NoError(t, err)
	require.Nil(t, user)

	require.Error(t, users.Put(ctx, &User{}))
}

func TestMemoryRoundTrip(t *testing.T) {
	users := NewMemory()
	defer users.Close()
	testRoundTrip(t, users)
}

func TestMemoryIsolatesCallers(t *testing.T) {
	users := NewMemory()
	defer users.Close()
	ctx := context.Background()

	data := map[string]any{"n": float64(1)}
	require.NoError(t, users.Put(ctx, &User{ID: "u", Data: data}))

	// mutating the caller's map after Put must not leak into the store
	data["n"] = float64(2)

	user, err := users.Get(ctx, "u")
	require.NoError(t, err)
	require.Equal(t, float64(1), user.Data["n"])
}

func TestSqliteRoundTrip(t *testing.T) {
	users, err := NewSqlite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer users.Close()
	testRoundTrip(t, users)
}
