package db

import (
	"strconv"
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
	"golang.org/x/sync/singleflight"
)

// Loader locates and decodes the asset with the given id.
type Loader[T any] func(id LocalId) (T, error)

// Cache memoizes a Loader: for every id the loader succeeds at most once and
// every caller receives the same instance. Concurrent requests for an id
// that is not loaded yet wait on a single load.
type Cache[T any] struct {
	kind  Kind
	load  Loader[T]
	loads atomic.Int64

	mutex  deadlock.RWMutex
	assets map[LocalId]T
	group  singleflight.Group
}

func NewCache[T any](kind Kind, load Loader[T]) *Cache[T] {
	return &Cache[T]{
		kind:   kind,
		load:   load,
		assets: make(map[LocalId]T),
	}
}

func (c *Cache[T]) Kind() Kind {
	return c.kind
}

func (c *Cache[T]) lookup(id LocalId) (T, bool) {
	c.mutex.RLock()
	asset, ok := c.assets[id]
	c.mutex.RUnlock()
	return asset, ok
}

func (c *Cache[T]) Get(id LocalId) (T, error) {
	if asset, ok := c.lookup(id); ok {
		return asset, nil
	}

	result, err, _ := c.group.Do(strconv.FormatUint(uint64(id), 10), func() (interface{}, error) {
		// Another caller may have finished loading while we waited
		if asset, ok := c.lookup(id); ok {
			return asset, nil
		}

		c.loads.Add(1)
		asset, err := c.load(id)
		if err != nil {
			return nil, err
		}

		c.mutex.Lock()
		c.assets[id] = asset
		c.mutex.Unlock()

		return asset, nil
	})

	if err != nil {
		var empty T
		return empty, err
	}

	return result.(T), nil
}

// Len is the number of loaded assets.
func (c *Cache[T]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.assets)
}

// Loads counts how many times the loader ran, failures included.
func (c *Cache[T]) Loads() int64 {
	return c.loads.Load()
}
