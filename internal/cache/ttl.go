// Package cache: кэш с TTL и явно переданными часами.
// Создаётся один раз при старте и передаётся по ссылке.
package cache

import (
	"context"
	"sync"
	"time"
)

// Loader загружает значение по ключу.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

type entry[V any] struct {
	value    V
	loadedAt time.Time
}

type TTL[K comparable, V any] struct {
	mu     sync.Mutex
	items  map[K]entry[V]
	ttl    time.Duration
	now    func() time.Time
	loader Loader[K, V]
}

// New: now == nil означает time.Now.
func New[K comparable, V any](ttl time.Duration, now func() time.Time, loader Loader[K, V]) *TTL[K, V] {
	if now == nil {
		now = time.Now
	}
	return &TTL[K, V]{
		items:  make(map[K]entry[V]),
		ttl:    ttl,
		now:    now,
		loader: loader,
	}
}

// Get отдаёт свежее значение из кэша или загружает заново.
// Ошибки загрузки не кэшируются.
func (c *TTL[K, V]) Get(ctx context.Context, key K) (V, error) {
	return c.GetWith(ctx, key, c.loader)
}

// GetWith: как Get, но при промахе грузит через load (например, в уже
// открытой транзакции). Результат кэшируется так же.
func (c *TTL[K, V]) GetWith(ctx context.Context, key K, load Loader[K, V]) (V, error) {
	c.mu.Lock()
	e, ok := c.items[key]
	c.mu.Unlock()
	if ok && !c.stale(e) {
		return e.value, nil
	}

	v, err := load(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}
	c.mu.Lock()
	c.items[key] = entry[V]{value: v, loadedAt: c.now()}
	c.mu.Unlock()
	return v, nil
}

func (c *TTL[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// RefreshIfStale перезагружает все устаревшие записи. Если загрузка не
// удалась, запись удаляется (следующий Get попробует снова).
// Возвращает число обновлённых записей.
func (c *TTL[K, V]) RefreshIfStale(ctx context.Context) int {
	c.mu.Lock()
	var keys []K
	for k, e := range c.items {
		if c.stale(e) {
			keys = append(keys, k)
		}
	}
	c.mu.Unlock()

	refreshed := 0
	for _, k := range keys {
		v, err := c.loader(ctx, k)
		c.mu.Lock()
		if err != nil {
			delete(c.items, k)
		} else {
			c.items[k] = entry[V]{value: v, loadedAt: c.now()}
			refreshed++
		}
		c.mu.Unlock()
	}
	return refreshed
}

func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTL[K, V]) stale(e entry[V]) bool {
	return c.now().Sub(e.loadedAt) >= c.ttl
}
