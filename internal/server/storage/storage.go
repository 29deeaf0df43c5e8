// Package storage persists fetched emoticon images. Objects are written once
// per key and never modified afterwards.
package storage

import (
	"context"
	"errors"
	"io"
)

// Extension is appended to every key to form the object name.
const Extension = ".png"

var errEmptyKey = errors.New("storage key required")

// Store is the durable home of fetched images.
type Store interface {
	// Put writes body under key atomically: readers see either nothing or
	// the complete object.
	Put(ctx context.Context, key string, body io.Reader) error
	// Exists reports whether an object for key has been written.
	Exists(ctx context.Context, key string) (bool, error)
	// Location returns the URL callers are redirected to for key.
	Location(ctx context.Context, key string) (string, error)
}

func objectName(key string) string {
	return key + Extension
}
