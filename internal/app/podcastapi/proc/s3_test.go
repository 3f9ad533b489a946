package proc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prepS3(t *testing.T, h http.HandlerFunc) *S3Store {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	client, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)
	return &S3Store{Client: client, Location: "us-east-1", Bucket: "podcasts"}
}

func TestS3StoreStat(t *testing.T) {
	s := prepS3(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead || r.URL.Path != "/podcasts/episodes/a.mp3" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", "1024")
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("ETag", `"abc"`)
		w.Header().Set("Last-Modified", "Thu, 15 Oct 2026 12:00:00 GMT")
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()

	info, err := s.Stat(ctx, "episodes/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, BlobInfo{Size: 1024, ContentType: "audio/mpeg"}, info)

	ok, err := s.Has(ctx, "episodes/a.mp3")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Stat(ctx, "episodes/missing.mp3")
	assert.ErrorIs(t, err, ErrNotFound)
	ok, err = s.Has(ctx, "episodes/missing.mp3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3StoreURL(t *testing.T) {
	s := prepS3(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })
	assert.Regexp(t, `^http://127\.0\.0\.1:\d+/podcasts/episodes/a\.mp3$`, s.URL("episodes/a.mp3"))
}
