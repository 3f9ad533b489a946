package proc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned for missing records and blobs
var ErrNotFound = errors.New("not found")

// ValidationError holds user correctable messages, one per violated rule
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// StorageError is a failure of the blob storage backend
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
