package task

import (
	"context"
	"sync"
	"time"
)

// RepeatingTask executes a task in a specific interval asynchronously.
// Every execution receives a context that is cancelled as soon as the task is stopped.
type RepeatingTask struct {
	task     func(ctx context.Context)
	interval time.Duration

	mtx    sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRepeating creates a new repeating asynchronous task
func NewRepeating(task func(ctx context.Context), interval time.Duration) *RepeatingTask {
	return &RepeatingTask{
		task:     task,
		interval: interval,
	}
}

// Start starts the repeating task.
// immediate defines whether the task is executed right away instead of after the first interval.
// If the task is already running, this is a no-op.
func (task *RepeatingTask) Start(parent context.Context, immediate bool) {
	task.mtx.Lock()
	defer task.mtx.Unlock()
	if task.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	task.cancel = cancel
	task.done = done

	go func() {
		defer close(done)
		if immediate {
			task.task(ctx)
		}
		ticker := time.NewTicker(task.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				task.task(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Running returns whether the task is currently scheduled
func (task *RepeatingTask) Running() bool {
	task.mtx.Lock()
	defer task.mtx.Unlock()
	return task.cancel != nil
}

// Stop stops the repeating task and cancels the context of a currently running execution.
// It does not wait for that execution to return; use the returned channel for this.
// forceExec defines whether to execute the task one last time just before the task shuts down.
// If the task is not running, this is a no-op and the returned channel is already closed.
func (task *RepeatingTask) Stop(forceExec bool) <-chan struct{} {
	task.mtx.Lock()
	cancel, done := task.cancel, task.done
	task.cancel = nil
	task.done = nil
	task.mtx.Unlock()

	if cancel == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	cancel()
	if forceExec {
		task.task(context.Background())
	}
	return done
}
