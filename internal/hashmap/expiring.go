package hashmap

import (
	"context"
	"time"

	"github.com/skybi/fleetdash/internal/task"
)

type expiringEntry[T any] struct {
	raw      T
	inserted time.Time
}

func (entry *expiringEntry[T]) expired(lifetime time.Duration) bool {
	return lifetime > 0 && time.Since(entry.inserted) > lifetime
}

// ExpiringMap implements the Map interface and wraps the standard NormalMap in order to implement value expiration.
// Expired values are never returned, but they occupy memory until the cleanup task removes them.
// A lifetime of zero or less disables expiration.
type ExpiringMap[K comparable, V any] struct {
	normal      *NormalMap[K, *expiringEntry[V]]
	lifetime    time.Duration
	cleanupTask *task.RepeatingTask
}

var _ Map[int, any] = (*ExpiringMap[int, any])(nil)

// NewExpiring creates a new expiring map whose values exist for a specific lifetime
func NewExpiring[K comparable, V any](lifetime time.Duration) *ExpiringMap[K, V] {
	return &ExpiringMap[K, V]{
		normal:   NewNormal[K, *expiringEntry[V]](),
		lifetime: lifetime,
	}
}

// Lifetime returns the duration values are retained for
func (obj *ExpiringMap[K, V]) Lifetime() time.Duration {
	return obj.lifetime
}

// ScheduleCleanupTask schedules the task that removes expired values in a specific interval.
// StopCleanupTask has to be called as soon as the map is no longer needed as the task keeps it reachable.
func (obj *ExpiringMap[K, V]) ScheduleCleanupTask(tick time.Duration) {
	if obj.cleanupTask != nil || obj.lifetime <= 0 {
		return
	}
	obj.cleanupTask = task.NewRepeating(func(_ context.Context) {
		obj.normal.DeleteFunc(func(_ K, val *expiringEntry[V]) bool {
			return val.expired(obj.lifetime)
		})
	}, tick)
	obj.cleanupTask.Start(context.Background(), false)
}

// StopCleanupTask stops the cleanup task
func (obj *ExpiringMap[K, V]) StopCleanupTask() {
	if obj.cleanupTask == nil {
		return
	}
	obj.cleanupTask.Stop(true)
	obj.cleanupTask = nil
}

// Size returns the amount of stored key-value pairs, including expired ones not yet cleaned up
func (obj *ExpiringMap[K, V]) Size() int {
	return obj.normal.Size()
}

// Has returns whether an unexpired value is assigned to the given key
func (obj *ExpiringMap[K, V]) Has(key K) bool {
	_, ok := obj.Lookup(key)
	return ok
}

// Lookup returns the unexpired value assigned to the given key and a boolean indicating whether there was one
func (obj *ExpiringMap[K, V]) Lookup(key K) (V, bool) {
	val, _, ok := obj.LookupAge(key)
	return val, ok
}

// LookupAge works like Lookup but additionally returns how long ago the value was set
func (obj *ExpiringMap[K, V]) LookupAge(key K) (V, time.Duration, bool) {
	val, ok := obj.normal.Lookup(key)
	if !ok || val.expired(obj.lifetime) {
		var zero V
		return zero, 0, false
	}
	return val.raw, time.Since(val.inserted), true
}

// Get returns the unexpired value assigned to the given key or the type's zero value
func (obj *ExpiringMap[K, V]) Get(key K) V {
	val, _ := obj.Lookup(key)
	return val
}

// Set sets a key-value pair, resetting its lifetime
func (obj *ExpiringMap[K, V]) Set(key K, value V) {
	obj.normal.Set(key, &expiringEntry[V]{
		raw:      value,
		inserted: time.Now(),
	})
}

// Unset deletes the value assigned to given key
func (obj *ExpiringMap[K, V]) Unset(key K) {
	obj.normal.Unset(key)
}

// Clear clears the whole map (essentially re-creating the underlying map)
func (obj *ExpiringMap[K, V]) Clear() {
	obj.normal.Clear()
}
