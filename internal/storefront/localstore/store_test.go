package localstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "huerta.json")

	s, err := Open(path)
	require.NoError(t, err)
	_, ok, err := s.Get("huerta.cart.v1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("huerta.cart.v1", []byte(`[{"productId":"lechuga","quantity":2}]`)))
	require.NoError(t, s.Set("other", []byte(`{"a":1}`)))
	require.NoError(t, s.Delete("other"))
	require.NoError(t, s.Delete("never-set"))

	reopened, err := Open(path)
	require.NoError(t, err)
	got, ok, err := reopened.Get("huerta.cart.v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"productId":"lechuga","quantity":2}]`, string(got))
	_, ok, _ = reopened.Get("other")
	assert.False(t, ok)
}

func TestFileStore_CorruptFileLoadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huerta.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := Open(path)
	require.NoError(t, err)
	_, ok, err := s.Get("huerta.cart.v1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("k", []byte(`1`)))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":1}`, string(raw))
}

func TestFileStore_RejectsInvalidJSON(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "huerta.json"))
	require.NoError(t, err)
	assert.Error(t, s.Set("k", []byte("{")))
	_, ok, _ := s.Get("k")
	assert.False(t, ok)
}
