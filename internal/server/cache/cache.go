// Package cache holds the presence cache of fetched emoticons. An entry for a
// key means the durable copy of that key has been written.
package cache

import "context"

// PresentMarker is the value stored under every present key.
const PresentMarker = "saved"

type Cache interface {
	Has(ctx context.Context, key string) (bool, error)
	MarkPresent(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
