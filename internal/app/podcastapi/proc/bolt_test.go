package proc

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/boltdb/bolt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prepBolt(t *testing.T) *BoltBlobs {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "files.bdb"), 0o600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })
	return &BoltBlobs{DB: db, BaseURL: "http://localhost:8080/files/"}
}

func TestBoltBlobs(t *testing.T) {
	b := prepBolt(t)
	ctx := context.Background()

	ok, err := b.Has(ctx, "episodes/a.mp3")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = b.Stat(ctx, "episodes/a.mp3")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Put(ctx, "episodes/a.mp3", bytes.NewReader([]byte("some audio")), -1, "audio/mpeg"))

	ok, err = b.Has(ctx, "episodes/a.mp3")
	require.NoError(t, err)
	assert.True(t, ok)

	info, err := b.Stat(ctx, "episodes/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, BlobInfo{Size: 10, ContentType: "audio/mpeg"}, info)

	rd, info, err := b.Open(ctx, "episodes/a.mp3")
	require.NoError(t, err)
	data, err := io.ReadAll(rd)
	require.NoError(t, err)
	require.NoError(t, rd.Close())
	assert.Equal(t, "some audio", string(data))
	assert.Equal(t, int64(10), info.Size)

	assert.Equal(t, "http://localhost:8080/files/episodes/a.mp3", b.URL("episodes/a.mp3"))
}

func TestBoltBlobsRename(t *testing.T) {
	b := prepBolt(t)
	ctx := context.Background()

	assert.ErrorIs(t, b.Rename(ctx, "episodes/a.mp3", "backups/a.mp3"), ErrNotFound)

	require.NoError(t, b.Put(ctx, "episodes/a.mp3", bytes.NewReader([]byte("first")), 5, "audio/mpeg"))
	require.NoError(t, b.Put(ctx, "backups/a.mp3", bytes.NewReader([]byte("older")), 5, "audio/mpeg"))
	require.NoError(t, b.Rename(ctx, "episodes/a.mp3", "backups/a.mp3"))

	ok, err := b.Has(ctx, "episodes/a.mp3")
	require.NoError(t, err)
	assert.False(t, ok)

	rd, _, err := b.Open(ctx, "backups/a.mp3")
	require.NoError(t, err)
	data, err := io.ReadAll(rd)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}
