package poll

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/skybi/fleetdash/internal/task"
)

// Fetcher retrieves the current state of a resource
type Fetcher[T any] func(ctx context.Context) (T, error)

// Snapshot is the outcome of a single fetch delivered to subscribers.
// Value holds the last successful value if Err is set.
type Snapshot[T any] struct {
	Value     T
	Err       error
	FetchedAt time.Time

	seq uint64
}

// flight is a single fetch shared by every caller that joined it
type flight struct {
	key     string
	seq     uint64
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Resource is a polled backend resource
type Resource[T any] struct {
	manager  *Manager
	name     string
	interval time.Duration
	fetch    Fetcher[T]

	mtx         sync.Mutex
	subscribers map[uint64]func(Snapshot[T])
	nextID      uint64
	generation  uint64
	task        *task.RepeatingTask

	// flight is the running fetch new callers join; flights counts every fetch started so far
	flight    *flight
	flights   uint64
	stored    uint64
	delivered uint64
}

// Register registers a new resource that is polled every interval while it is subscribed to
func Register[T any](manager *Manager, name string, interval time.Duration, fetch Fetcher[T]) *Resource[T] {
	resource := &Resource[T]{
		manager:     manager,
		name:        name,
		interval:    interval,
		fetch:       fetch,
		subscribers: make(map[uint64]func(Snapshot[T])),
	}
	manager.register(name, resource)
	return resource
}

// Name returns the name of the resource
func (resource *Resource[T]) Name() string {
	return resource.name
}

// Interval returns the poll interval of the resource
func (resource *Resource[T]) Interval() time.Duration {
	return resource.interval
}

// Subscribe registers fn to receive every snapshot of the resource.
// The first subscriber starts polling (fetching immediately); the returned function unsubscribes fn and stops
// polling if it was the last subscriber. Stopping cancels a running fetch and discards its result.
func (resource *Resource[T]) Subscribe(fn func(Snapshot[T])) (unsubscribe func()) {
	resource.mtx.Lock()
	id := resource.nextID
	resource.nextID++
	resource.subscribers[id] = fn
	count := len(resource.subscribers)
	if count == 1 {
		resource.generation++
		generation := resource.generation
		resource.task = task.NewRepeating(func(ctx context.Context) {
			resource.poll(ctx, generation)
		}, resource.interval)
		resource.task.Start(context.Background(), true)
	}
	resource.mtx.Unlock()
	resource.manager.metrics.SetSubscribers(resource.name, count)

	var once sync.Once
	return func() {
		once.Do(func() {
			resource.unsubscribe(id)
		})
	}
}

// Subscribers returns the current amount of subscribers
func (resource *Resource[T]) Subscribers() int {
	resource.mtx.Lock()
	defer resource.mtx.Unlock()
	return len(resource.subscribers)
}

// Latest returns the cached snapshot if one younger than the cache lifetime exists
func (resource *Resource[T]) Latest() (Snapshot[T], bool) {
	raw, ok := resource.manager.cache.Lookup(resource.name)
	if !ok {
		return Snapshot[T]{}, false
	}
	snapshot, ok := raw.(Snapshot[T])
	return snapshot, ok
}

// Get returns the cached value or fetches it if the cache holds none.
// A cache miss joins a fetch that is already running.
func (resource *Resource[T]) Get(ctx context.Context) (T, error) {
	if snapshot, ok := resource.Latest(); ok {
		return snapshot.Value, nil
	}
	return resource.update(ctx, false)
}

// Refresh fetches the resource right away and delivers the result to all subscribers.
// The fetch always starts after Refresh is called, so it observes every change made before.
func (resource *Resource[T]) Refresh(ctx context.Context) (T, error) {
	return resource.update(ctx, true)
}

func (resource *Resource[T]) update(ctx context.Context, fresh bool) (T, error) {
	resource.mtx.Lock()
	generation := resource.generation
	resource.mtx.Unlock()

	snapshot := resource.load(ctx, fresh)
	resource.deliver(ctx, generation, snapshot)
	return snapshot.Value, snapshot.Err
}

func (resource *Resource[T]) poll(ctx context.Context, generation uint64) {
	snapshot := resource.load(ctx, false)
	if snapshot.Err != nil && ctx.Err() == nil {
		log.Debug().Err(snapshot.Err).Str("resource", resource.name).Msg("poll failed")
	}
	resource.deliver(ctx, generation, snapshot)
}

// load waits for the result of the running fetch or starts a new one if fresh is set or none is running.
// The fetch itself is detached from ctx and only cancelled once every caller waiting for it gave up.
func (resource *Resource[T]) load(ctx context.Context, fresh bool) Snapshot[T] {
	resource.mtx.Lock()
	current := resource.flight
	if current == nil || fresh {
		resource.flights++
		fetchCtx, cancel := context.WithCancel(context.Background())
		current = &flight{
			key:    resource.name + "#" + strconv.FormatUint(resource.flights, 10),
			seq:    resource.flights,
			ctx:    fetchCtx,
			cancel: cancel,
		}
		resource.flight = current
	}
	current.waiters++
	results := resource.manager.group.DoChan(current.key, func() (any, error) {
		return resource.run(current), nil
	})
	resource.mtx.Unlock()

	var snapshot Snapshot[T]
	select {
	case result := <-results:
		snapshot = result.Val.(Snapshot[T])
	case <-ctx.Done():
		snapshot = Snapshot[T]{Err: ctx.Err(), FetchedAt: time.Now()}
	}
	resource.leave(current)

	if snapshot.Err != nil {
		if previous, ok := resource.Latest(); ok {
			snapshot.Value = previous.Value
		}
	}
	return snapshot
}

// run performs the fetch of a flight and caches its result unless a newer fetch already did
func (resource *Resource[T]) run(current *flight) Snapshot[T] {
	defer current.cancel()

	started := time.Now()
	value, err := resource.fetch(current.ctx)
	resource.manager.metrics.ObservePoll(resource.name, err, time.Since(started).Seconds())
	snapshot := Snapshot[T]{Value: value, Err: err, FetchedAt: time.Now(), seq: current.seq}

	resource.mtx.Lock()
	defer resource.mtx.Unlock()
	if resource.flight == current {
		resource.flight = nil
	}
	if err == nil && current.seq > resource.stored {
		resource.stored = current.seq
		resource.manager.cache.Set(resource.name, snapshot)
	}
	return snapshot
}

// leave removes a waiter from a flight and cancels the fetch if it was the last one
func (resource *Resource[T]) leave(current *flight) {
	resource.mtx.Lock()
	current.waiters--
	abandoned := current.waiters == 0
	if abandoned && resource.flight == current {
		resource.flight = nil
	}
	resource.mtx.Unlock()

	if abandoned {
		current.cancel()
	}
}

func (resource *Resource[T]) deliver(ctx context.Context, generation uint64, snapshot Snapshot[T]) {
	if ctx.Err() != nil {
		return
	}
	resource.mtx.Lock()
	if resource.generation != generation || snapshot.seq < resource.delivered {
		resource.mtx.Unlock()
		return
	}
	resource.delivered = snapshot.seq
	ids := make([]uint64, 0, len(resource.subscribers))
	for id := range resource.subscribers {
		ids = append(ids, id)
	}
	resource.mtx.Unlock()

	for _, id := range ids {
		resource.mtx.Lock()
		fn, ok := resource.subscribers[id]
		current := resource.generation == generation
		resource.mtx.Unlock()
		if ok && current {
			fn(snapshot)
		}
	}
}

func (resource *Resource[T]) unsubscribe(id uint64) {
	resource.mtx.Lock()
	if _, ok := resource.subscribers[id]; !ok {
		resource.mtx.Unlock()
		return
	}
	delete(resource.subscribers, id)
	count := len(resource.subscribers)
	var stopping *task.RepeatingTask
	if count == 0 {
		resource.generation++
		stopping = resource.task
		resource.task = nil
	}
	resource.mtx.Unlock()

	resource.manager.metrics.SetSubscribers(resource.name, count)
	if stopping != nil {
		stopping.Stop(false)
	}
}

func (resource *Resource[T]) stop() {
	resource.mtx.Lock()
	resource.subscribers = make(map[uint64]func(Snapshot[T]))
	resource.generation++
	stopping := resource.task
	resource.task = nil
	resource.mtx.Unlock()

	resource.manager.metrics.SetSubscribers(resource.name, 0)
	if stopping != nil {
		<-stopping.Stop(false)
	}
}
