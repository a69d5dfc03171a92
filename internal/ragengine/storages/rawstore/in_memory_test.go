package rawstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "k", []byte("v1")))
	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	// Put overwrites per key.
	require.NoError(t, s.Put(ctx, "k", []byte("v2")))
	got, _, _ = s.Get(ctx, "k")
	assert.Equal(t, []byte("v2"), got)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, _ = s.Get(ctx, "k")
	assert.False(t, ok)

	// Deleting an absent key is not an error.
	assert.NoError(t, s.Delete(ctx, "k"))
}

func TestListByPrefix(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Put(ctx, "manifest/beta", []byte("b")))
	require.NoError(t, s.Put(ctx, "manifest/alpha", []byte("a")))
	require.NoError(t, s.Put(ctx, "element/alpha:1:0", []byte("e")))

	keys, err := s.List(ctx, "manifest/")
	require.NoError(t, err)
	assert.Equal(t, []string{"manifest/alpha", "manifest/beta"}, keys)

	keys, err = s.List(ctx, "nothing/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Put(ctx, "k", []byte("abc")))

	got, _, _ := s.Get(ctx, "k")
	got[0] = 'x'

	again, _, _ := s.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}
