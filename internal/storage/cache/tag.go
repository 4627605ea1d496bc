// Package cache holds in-process caches in front of the postgres stores.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"content_import/internal/domain"
)

// TagSource is the store TagCache decorates.
type TagSource interface {
	Dispense(ctx context.Context, title, language string) (*domain.Tag, error)
}

// TagCache remembers dispensed tags by language and title. Errors are never cached.
type TagCache struct {
	next  TagSource
	cache *expirable.LRU[string, domain.Tag]
}

func NewTagCache(next TagSource, size int, ttl time.Duration) *TagCache {
	return &TagCache{
		next:  next,
		cache: expirable.NewLRU[string, domain.Tag](size, nil, ttl),
	}
}

func (c *TagCache) Dispense(ctx context.Context, title, language string) (*domain.Tag, error) {
	key := language + "|" + title
	if tag, ok := c.cache.Get(key); ok {
		return &tag, nil
	}

	tag, err := c.next.Dispense(ctx, title, language)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, *tag)
	return tag, nil
}

func (c *TagCache) Len() int {
	return c.cache.Len()
}
