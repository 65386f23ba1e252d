// Package uploads validates uploaded property images and stores them as blobs.
package uploads

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned when a blob does not exist
	ErrNotFound = errors.New("upload not found")
	// ErrInvalidName is returned for names that could escape the store root
	ErrInvalidName = errors.New("invalid upload name")
)

// Store is a flat namespace of image blobs.
type Store interface {
	// Put stores exactly size bytes read from r under name.
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	// Open returns the blob content or ErrNotFound.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
}

// checkName отклоняет имена с разделителями пути и служебные имена
func checkName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return ErrInvalidName
	}
	if strings.HasPrefix(name, ".") {
		return ErrInvalidName
	}
	return nil
}
