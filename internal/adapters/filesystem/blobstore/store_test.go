package blobstore

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bodyforce/admin-api/internal/adapters/contracttest"
	blobstoreport "github.com/bodyforce/admin-api/internal/ports/out/blobstore"
)

func TestContract_FilesystemBlobStore(t *testing.T) {
	contracttest.RunBlobStore(t, func(t *testing.T) (blobstoreport.Store, func()) {
		t.Helper()
		s, err := NewStore(t.TempDir())
		require.NoError(t, err)
		return s, nil
	})
}

func TestStore_RejectsTraversal(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s, err := NewStore(root)
	require.NoError(t, err)

	// Leading ".." segments are clamped to the bucket root.
	obj, err := s.Put(context.Background(), "documents", "../../etc/passwd", "text/plain", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	rc, _, err := s.Open(context.Background(), "documents", "etc/passwd")
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, int64(1), obj.Size)

	_, err = s.Put(context.Background(), "../x", "a.txt", "text/plain", bytes.NewReader(nil))
	assert.Error(t, err)
	_, err = s.Put(context.Background(), "documents", "a.txt.meta.json", "text/plain", bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestNewStore_RequiresRoot(t *testing.T) {
	t.Parallel()

	_, err := NewStore("")
	assert.Error(t, err)
}
