package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nailsmag/wpsite/internal/storage/local"
	"github.com/nailsmag/wpsite/internal/storage/memory"
)

func TestOpenLocal(t *testing.T) {
	t.Parallel()

	h, err := Open(context.Background(), Options{Backend: BackendLocal, Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &local.BlobStore{}, h.Store)
	assert.NoError(t, h.Close())
}

func TestOpenDefaultsToLocal(t *testing.T) {
	t.Parallel()

	h, err := Open(context.Background(), Options{Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &local.BlobStore{}, h.Store)
}

func TestOpenMemory(t *testing.T) {
	t.Parallel()

	h, err := Open(context.Background(), Options{Backend: BackendMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.BlobStore{}, h.Store)
}

func TestOpenUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Options{Backend: "s3"}, nil)
	require.ErrorContains(t, err, "s3")
}

func TestNilHandleClose(t *testing.T) {
	t.Parallel()

	var nilHandle *Handle
	assert.NoError(t, nilHandle.Close())
}
