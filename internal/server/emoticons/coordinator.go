// Package emoticons resolves emoticon keys to stored images, fetching each
// missing image from upstream exactly once no matter how many requests ask
// for it at the same time.
package emoticons

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/dmitrijs2005/emoticons/internal/common"
	"github.com/dmitrijs2005/emoticons/internal/logging"
	"github.com/dmitrijs2005/emoticons/internal/server/cache"
	"github.com/dmitrijs2005/emoticons/internal/server/storage"
	"golang.org/x/sync/singleflight"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidKey reports whether key may be used as an emoticon key.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// Reference points at the stored copy of an emoticon.
type Reference struct {
	Key      string
	Location string
}

// Coordinator owns the miss path: fetch, store, then mark present.
// A cache entry is only ever written after the object is in storage.
type Coordinator struct {
	cache   cache.Cache
	store   storage.Store
	fetcher Fetcher
	logger  logging.Logger
	timeout time.Duration

	group singleflight.Group
}

// NewCoordinator builds a Coordinator. timeout bounds one fill, including
// retries and the storage write, independent of the callers' contexts.
func NewCoordinator(c cache.Cache, s storage.Store, f Fetcher, timeout time.Duration, logger logging.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Coordinator{
		cache:   c,
		store:   s,
		fetcher: f,
		timeout: timeout,
		logger:  logger.With("module", "emoticons"),
	}
}

// Resolve returns the reference for key, filling storage and cache on a miss.
// Concurrent misses for one key share a single fill and its result. If ctx
// ends first Resolve returns ctx.Err() and the fill carries on.
func (c *Coordinator) Resolve(ctx context.Context, key string) (Reference, error) {
	if !ValidKey(key) {
		return Reference{}, fmt.Errorf("%w: %q", common.ErrInvalidKey, key)
	}

	if c.cached(ctx, key) {
		return c.reference(ctx, key)
	}

	ch := c.group.DoChan(key, func() (any, error) {
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.fill(fillCtx, key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Reference{}, res.Err
		}
		return res.Val.(Reference), nil
	case <-ctx.Done():
		return Reference{}, ctx.Err()
	}
}

func (c *Coordinator) fill(ctx context.Context, key string) (Reference, error) {
	// A fill that finished just before this one started has already
	// marked the key.
	if c.cached(ctx, key) {
		return c.reference(ctx, key)
	}

	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		c.logger.Warn(ctx, "storage lookup failed, fetching anyway", "key", key, "error", err)
	}
	if exists {
		c.logger.Info(ctx, "object already stored, restoring cache entry", "key", key)
		c.markPresent(ctx, key)
		return c.reference(ctx, key)
	}

	start := time.Now()
	data, err := c.fetcher.Fetch(ctx, key)
	if err != nil {
		c.logger.Error(ctx, "upstream fetch failed", "key", key, "error", err)
		return Reference{}, fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}

	if err := c.store.Put(ctx, key, bytes.NewReader(data)); err != nil {
		c.logger.Error(ctx, "storage write failed", "key", key, "error", err)
		return Reference{}, fmt.Errorf("%w: %v", common.ErrStorageWriteFailed, err)
	}

	c.markPresent(ctx, key)
	c.logger.Info(ctx, "emoticon stored", "key", key, "bytes", len(data), "elapsed", time.Since(start).String())

	return c.reference(ctx, key)
}

// cached treats a failing cache as a miss; the fill path re-checks storage.
func (c *Coordinator) cached(ctx context.Context, key string) bool {
	ok, err := c.cache.Has(ctx, key)
	if err != nil {
		c.logger.Warn(ctx, "cache lookup failed", "key", key, "error", err)
		return false
	}
	return ok
}

// markPresent logs failures without failing the fill.
func (c *Coordinator) markPresent(ctx context.Context, key string) {
	if err := c.cache.MarkPresent(ctx, key); err != nil {
		c.logger.Error(ctx, "cache write failed", "key", key, "error", err)
	}
}

func (c *Coordinator) reference(ctx context.Context, key string) (Reference, error) {
	loc, err := c.store.Location(ctx, key)
	if err != nil {
		c.logger.Error(ctx, "cannot build location", "key", key, "error", err)
		return Reference{}, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return Reference{Key: key, Location: loc}, nil
}
