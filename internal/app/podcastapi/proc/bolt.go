package proc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/boltdb/bolt"
	log "github.com/go-pkgz/lgr"
)

var (
	blobsBucket    = []byte("blobs")
	blobMetaBucket = []byte("blob_meta")
)

// BoltBlobs keeps files in a bolt db, for single node setups without s3.
// Public urls point to BaseURL which is expected to serve Open.
type BoltBlobs struct {
	DB      *bolt.DB
	BaseURL string
}

// Has checks key
func (b *BoltBlobs) Has(_ context.Context, key string) (bool, error) {
	found := false
	err := b.DB.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(blobMetaBucket)
		if bucket == nil {
			return nil
		}
		found = bucket.Get([]byte(key)) != nil
		return nil
	})
	return found, err
}

// Put reads r fully and stores it under key
func (b *BoltBlobs) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}

	meta, err := json.Marshal(BlobInfo{Size: int64(len(data)), ContentType: contentType})
	if err != nil {
		return err
	}

	return b.DB.Update(func(tx *bolt.Tx) error {
		blobs, e := tx.CreateBucketIfNotExists(blobsBucket)
		if e != nil {
			return e
		}
		metas, e := tx.CreateBucketIfNotExists(blobMetaBucket)
		if e != nil {
			return e
		}

		log.Printf("[INFO] save file %s - %s - %d", key, contentType, len(data))
		if e = blobs.Put([]byte(key), data); e != nil {
			return e
		}
		return metas.Put([]byte(key), meta)
	})
}

// Rename moves from to another key, replacing an existing one
func (b *BoltBlobs) Rename(_ context.Context, from, to string) error {
	return b.DB.Update(func(tx *bolt.Tx) error {
		blobs, metas := tx.Bucket(blobsBucket), tx.Bucket(blobMetaBucket)
		if blobs == nil || metas == nil {
			return fmt.Errorf("file %s: %w", from, ErrNotFound)
		}

		meta := metas.Get([]byte(from))
		if meta == nil {
			return fmt.Errorf("file %s: %w", from, ErrNotFound)
		}
		// values are only valid inside the transaction
		data := append([]byte(nil), blobs.Get([]byte(from))...)
		meta = append([]byte(nil), meta...)

		if err := blobs.Put([]byte(to), data); err != nil {
			return err
		}
		if err := metas.Put([]byte(to), meta); err != nil {
			return err
		}
		if err := blobs.Delete([]byte(from)); err != nil {
			return err
		}
		return metas.Delete([]byte(from))
	})
}

// Stat returns size and content type of key
func (b *BoltBlobs) Stat(_ context.Context, key string) (BlobInfo, error) {
	var info BlobInfo
	err := b.DB.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(blobMetaBucket)
		if bucket == nil {
			return fmt.Errorf("file %s: %w", key, ErrNotFound)
		}
		meta := bucket.Get([]byte(key))
		if meta == nil {
			return fmt.Errorf("file %s: %w", key, ErrNotFound)
		}
		return json.Unmarshal(meta, &info)
	})
	return info, err
}

// Open returns content of key
func (b *BoltBlobs) Open(ctx context.Context, key string) (io.ReadCloser, BlobInfo, error) {
	info, err := b.Stat(ctx, key)
	if err != nil {
		return nil, BlobInfo{}, err
	}

	var data []byte
	err = b.DB.View(func(tx *bolt.Tx) error {
		data = append([]byte(nil), tx.Bucket(blobsBucket).Get([]byte(key))...)
		return nil
	})
	if err != nil {
		return nil, BlobInfo{}, err
	}
	return io.NopCloser(bytes.NewReader(data)), info, nil
}

// URL of key under BaseURL
func (b *BoltBlobs) URL(key string) string {
	return strings.TrimRight(b.BaseURL, "/") + "/" + key
}
