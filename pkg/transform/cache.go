package transform

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of transform results kept by NewCached
// when a non-positive size is requested.
const DefaultCacheSize = 256

type cacheKey struct {
	path string
	sum  [sha256.Size]byte
}

// Cached memoizes a Transformer by path and content digest. Failed
// transforms are not cached.
type Cached struct {
	inner  Transformer
	cache  *lru.Cache[cacheKey, Result]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCached wraps inner with an LRU cache holding up to size results.
func NewCached(inner Transformer, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}

	cache, err := lru.New[cacheKey, Result](size)
	if err != nil {
		return nil, fmt.Errorf("create transform cache: %w", err)
	}

	return &Cached{inner: inner, cache: cache}, nil
}

// Transform implements Transformer.
func (c *Cached) Transform(path string, source []byte) (Result, error) {
	key := cacheKey{path: path, sum: sha256.Sum256(source)}

	if res, ok := c.cache.Get(key); ok {
		c.hits.Add(1)

		return clone(res), nil
	}

	c.misses.Add(1)

	res, err := c.inner.Transform(path, source)
	if err != nil {
		return Result{}, err
	}

	c.cache.Add(key, clone(res))

	return res, nil
}

// Stats returns the number of cache hits and misses so far.
func (c *Cached) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// clone keeps callers from mutating cached specifier slices.
func clone(res Result) Result {
	return Result{
		ImportSpecifiers: slices.Clone(res.ImportSpecifiers),
		Body:             res.Body,
	}
}
