// Package poll implements subscription based polling of backend resources.
// A resource is only polled while it has at least one subscriber; its latest successful snapshot is cached.
// Polls and cache misses of the same resource share one request, while an explicit refresh always starts its own.
package poll

import (
	"sort"
	"sync"
	"time"

	"github.com/skybi/fleetdash/internal/hashmap"
	"github.com/skybi/fleetdash/internal/metrics"
	"golang.org/x/sync/singleflight"
)

type stopper interface {
	stop()
}

// Manager owns the cache and the request coalescing shared by all resources registered to it
type Manager struct {
	cache   *hashmap.ExpiringMap[string, any]
	group   singleflight.Group
	metrics *metrics.Metrics

	mtx       sync.Mutex
	resources map[string]stopper
}

// NewManager creates a new poll manager caching snapshots for cacheLifetime.
// metrics may be nil.
func NewManager(cacheLifetime time.Duration, metrics *metrics.Metrics) *Manager {
	cache := hashmap.NewExpiring[string, any](cacheLifetime)
	if cacheLifetime > 0 {
		cache.ScheduleCleanupTask(cacheLifetime)
	}
	return &Manager{
		cache:     cache,
		metrics:   metrics,
		resources: make(map[string]stopper),
	}
}

// Resources returns the names of all registered resources
func (manager *Manager) Resources() []string {
	manager.mtx.Lock()
	defer manager.mtx.Unlock()
	names := make([]string, 0, len(manager.resources))
	for name := range manager.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops polling every resource and the cache cleanup.
// Subscriptions are dropped; their unsubscribe functions become no-ops.
func (manager *Manager) Close() {
	manager.mtx.Lock()
	resources := make([]stopper, 0, len(manager.resources))
	for _, resource := range manager.resources {
		resources = append(resources, resource)
	}
	manager.mtx.Unlock()

	for _, resource := range resources {
		resource.stop()
	}
	manager.cache.StopCleanupTask()
}

func (manager *Manager) register(name string, resource stopper) {
	manager.mtx.Lock()
	defer manager.mtx.Unlock()
	if _, ok := manager.resources[name]; ok {
		panic("poll: resource registered twice: " + name)
	}
	manager.resources[name] = resource
}
