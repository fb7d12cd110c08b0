package hashmap

import "sync"

// NormalMap implements the Map interface by wrapping the builtin map type with a RWMutex
type NormalMap[K comparable, V any] struct {
	mtx        sync.RWMutex
	underlying map[K]V
}

var _ Map[int, any] = (*NormalMap[int, any])(nil)

// NewNormal creates a new normal thread safe Map
func NewNormal[K comparable, V any]() *NormalMap[K, V] {
	return &NormalMap[K, V]{
		underlying: make(map[K]V),
	}
}

// Size returns the amount of stored key-value pairs
func (obj *NormalMap[K, V]) Size() int {
	obj.mtx.RLock()
	defer obj.mtx.RUnlock()
	return len(obj.underlying)
}

// Has returns whether a value is assigned to the given key
func (obj *NormalMap[K, V]) Has(key K) bool {
	_, ok := obj.Lookup(key)
	return ok
}

// Lookup returns the value assigned to the given key and a boolean indicating if the value was set manually or is
// the type's zero value
func (obj *NormalMap[K, V]) Lookup(key K) (V, bool) {
	obj.mtx.RLock()
	defer obj.mtx.RUnlock()
	val, ok := obj.underlying[key]
	return val, ok
}

// Get returns the value assigned to the given key.
// May be the type's zero value if it was not set using Set before; use Has or Lookup for this information.
func (obj *NormalMap[K, V]) Get(key K) V {
	obj.mtx.RLock()
	defer obj.mtx.RUnlock()
	return obj.underlying[key]
}

// Set sets a key-value pair
func (obj *NormalMap[K, V]) Set(key K, value V) {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	obj.underlying[key] = value
}

// Unset deletes the value assigned to given key
func (obj *NormalMap[K, V]) Unset(key K) {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	delete(obj.underlying, key)
}

// Clear clears the whole map (essentially re-creating the underlying map)
func (obj *NormalMap[K, V]) Clear() {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	obj.underlying = make(map[K]V)
}

// Keys returns the keys currently stored in the map in no particular order
func (obj *NormalMap[K, V]) Keys() []K {
	obj.mtx.RLock()
	defer obj.mtx.RUnlock()
	keys := make([]K, 0, len(obj.underlying))
	for key := range obj.underlying {
		keys = append(keys, key)
	}
	return keys
}

// DeleteFunc deletes every key-value pair the given predicate returns true for
func (obj *NormalMap[K, V]) DeleteFunc(predicate func(key K, value V) bool) {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	for key, val := range obj.underlying {
		if predicate(key, val) {
			delete(obj.underlying, key)
		}
	}
}
