package proc

import (
	"context"
	"io"
)

// BlobInfo describes a stored file
type BlobInfo struct {
	Size        int64
	ContentType string
}

// Blobs is the file storage backend. Keys are slash separated, missing keys give ErrNotFound.
type Blobs interface {
	Has(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Rename(ctx context.Context, from, to string) error
	Stat(ctx context.Context, key string) (BlobInfo, error)
	Open(ctx context.Context, key string) (io.ReadCloser, BlobInfo, error)
	URL(key string) string
}
