package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_StringRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.SetString(KeyUserID, "user-7"))

	value, err := store.GetString(KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, "user-7", value)
}

func TestMemoryStore_GetString_NotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.GetString("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_BoolRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.SetBool("flag", true))
	value, err := store.GetBool("flag")
	require.NoError(t, err)
	assert.True(t, value)

	require.NoError(t, store.SetBool("flag", false))
	value, err = store.GetBool("flag")
	require.NoError(t, err)
	assert.False(t, value)
}

func TestMemoryStore_Int64RoundTrip(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.SetInt64(KeyFirstVisitTimestamp, 1724572800))

	value, err := store.GetInt64(KeyFirstVisitTimestamp)
	require.NoError(t, err)
	assert.Equal(t, int64(1724572800), value)
}

func TestMemoryStore_Overwrite(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.SetString(KeyUserEmail, "a@example.com"))
	require.NoError(t, store.SetString(KeyUserEmail, "b@example.com"))

	value, err := store.GetString(KeyUserEmail)
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", value)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.SetString("key", "value"))
	require.NoError(t, store.Delete("key"))

	_, err := store.GetString("key")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is not an error.
	assert.NoError(t, store.Delete("key"))
}

func TestMemoryStore_Closed(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	_, err := store.GetString("key")
	assert.ErrorIs(t, err, ErrStoreClosed)

	assert.ErrorIs(t, store.SetString("key", "value"), ErrStoreClosed)
	assert.ErrorIs(t, store.Delete("key"), ErrStoreClosed)
}
