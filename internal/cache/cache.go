// Package cache holds fetched tournament data between bracket sessions.
package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// Cache stores values by key. Implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
}

// Memory is an in-process Cache whose entries expire after a fixed TTL.
// A zero TTL keeps entries until they are deleted.
type Memory struct {
	items *ttlcache.Cache[string, any]
}

// NewMemory creates a Memory cache
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		items: ttlcache.New[string, any](
			ttlcache.WithTTL[string, any](ttl),
			ttlcache.WithDisableTouchOnHit[string, any](),
		),
	}
}

func (m *Memory) Get(key string) (any, bool) {
	item := m.items.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (m *Memory) Set(key string, value any) {
	m.items.Set(key, value, ttlcache.DefaultTTL)
}

func (m *Memory) Delete(key string) {
	m.items.Delete(key)
}

// Len returns the number of stored entries, including expired ones not yet
// swept by DeleteExpired
func (m *Memory) Len() int {
	return m.items.Len()
}

// DeleteExpired drops every expired entry
func (m *Memory) DeleteExpired() {
	m.items.DeleteExpired()
}

// Loader reads through a Cache. Concurrent misses for the same key share a
// single call to the load function.
type Loader struct {
	cache Cache
	group singleflight.Group
}

// NewLoader creates a Loader over c
func NewLoader(c Cache) *Loader {
	return &Loader{cache: c}
}

// Load returns the cached value for key, calling fn on a miss. Errors are not
// cached.
func (l *Loader) Load(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}
	v, err, _ := l.group.Do(key, func() (any, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		l.cache.Set(key, v)
		return v, nil
	})
	return v, err
}

// Forget drops key from the cache so the next Load fetches again
func (l *Loader) Forget(key string) {
	l.group.Forget(key)
	l.cache.Delete(key)
}

var _ Cache = (*Memory)(nil)
