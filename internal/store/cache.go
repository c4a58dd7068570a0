package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Loader builds a fresh store, typically by fetching the source object and
// streaming it through Load.
type Loader func(ctx context.Context) (*Store, error)

// Cache keeps one loaded store per TTL window. The store itself is immutable,
// so a single cached value is safely shared by every session; only the
// rebuild is serialized.
type Cache struct {
	mu     sync.Mutex
	ttl    time.Duration
	load   Loader
	logger *slog.Logger
	now    func() time.Time

	current  *Store
	loadedAt time.Time
}

func NewCache(ttl time.Duration, load Loader, logger *slog.Logger) *Cache {
	return &Cache{
		ttl:    ttl,
		load:   load,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the cached store, rebuilding it when absent or expired. A
// failed rebuild returns the error and leaves no partial store behind; the
// next call retries.
func (c *Cache) Get(ctx context.Context) (*Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && c.now().Sub(c.loadedAt) < c.ttl {
		return c.current, nil
	}

	if c.current != nil {
		c.logger.Info("store cache expired, rebuilding",
			"age", c.now().Sub(c.loadedAt),
			"ttl", c.ttl,
		)
	}

	fresh, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	// The outgoing store may still be mid-pass in a concurrent render;
	// dropping the reference lets those readers finish, and the store
	// reclaims its database once they do.
	c.current = fresh
	c.loadedAt = c.now()

	return c.current, nil
}

// Invalidate forces a rebuild on the next Get.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadedAt = time.Time{}
}

// Age reports how long ago the current store was built, and false when no
// store is loaded.
func (c *Cache) Age() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return 0, false
	}
	return c.now().Sub(c.loadedAt), true
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	err := c.current.Close()
	c.current = nil
	return err
}
