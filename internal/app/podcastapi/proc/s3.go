package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/minio/minio-go/v7"
)

// S3Store keeps files in a s3 bucket
type S3Store struct {
	Client   *minio.Client
	Location string
	Bucket   string
}

// Has checks object exists
func (s *S3Store) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.Stat(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Put streams r to the bucket, creating the bucket when missing
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}

	uploadInfo, err := s.Client.PutObject(ctx, s.Bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return err
	}
	log.Printf("[INFO] uploaded %s to %s - %d", key, s.Bucket, uploadInfo.Size)
	return nil
}

// Rename copies object to a new key and removes the old one
func (s *S3Store) Rename(ctx context.Context, from, to string) error {
	_, err := s.Client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.Bucket, Object: to},
		minio.CopySrcOptions{Bucket: s.Bucket, Object: from})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return fmt.Errorf("object %s: %w", from, ErrNotFound)
		}
		return err
	}
	return s.Client.RemoveObject(ctx, s.Bucket, from, minio.RemoveObjectOptions{})
}

// Stat returns size and content type of object
func (s *S3Store) Stat(ctx context.Context, key string) (BlobInfo, error) {
	statInfo, err := s.Client.StatObject(ctx, s.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if code := minio.ToErrorResponse(err).Code; code == "NoSuchKey" || code == "NoSuchBucket" {
			return BlobInfo{}, fmt.Errorf("object %s: %w", key, ErrNotFound)
		}
		return BlobInfo{}, err
	}
	return BlobInfo{Size: statInfo.Size, ContentType: statInfo.ContentType}, nil
}

// Open returns object reader
func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, BlobInfo, error) {
	info, err := s.Stat(ctx, key)
	if err != nil {
		return nil, BlobInfo{}, err
	}
	obj, err := s.Client.GetObject(ctx, s.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, BlobInfo{}, err
	}
	return obj, info, nil
}

// URL is the public location of object
func (s *S3Store) URL(key string) string {
	endpoint := s.Client.EndpointURL()
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(endpoint.String(), "/"), s.Bucket, key)
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	exists, err := s.Client.BucketExists(ctx, s.Bucket)
	if err != nil {
		return fmt.Errorf("can't check exists bucket %s: %w", s.Bucket, err)
	}
	if exists {
		return nil
	}

	if err := s.Client.MakeBucket(ctx, s.Bucket, minio.MakeBucketOptions{Region: s.Location}); err != nil {
		return fmt.Errorf("can't create bucket %s: %w", s.Bucket, err)
	}
	log.Printf("[INFO] bucket %s created in %s", s.Bucket, s.Location)
	return nil
}
