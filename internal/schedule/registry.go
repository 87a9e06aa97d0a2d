package schedule

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/gmbot/internal/infra"
)

type task struct {
	cancel context.CancelFunc
}

// Registry runs deferred one-shot tasks that stay cancellable by key
// until they fire. Scheduling the same key twice replaces the pending
// task. Stop cancels everything still pending and waits for in-flight
// goroutines.
type Registry struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	pending map[string]*task

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRegistry() *Registry {
	return &Registry{pending: map[string]*task{}}
}

func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx, r.cancel = context.WithCancel(ctx)
	return nil
}

func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// After schedules fn to run once the delay elapses, unless the key is
// cancelled or rescheduled first. With a non-positive delay fn runs
// immediately on the calling goroutine.
func (r *Registry) After(key string, delay time.Duration, fn func(ctx context.Context)) {
	r.mu.Lock()
	if r.ctx == nil {
		r.mu.Unlock()
		log.WithField("key", key).Warn("schedule before start, dropping")
		return
	}
	if prev, ok := r.pending[key]; ok {
		prev.cancel()
	}
	taskCtx, taskCancel := context.WithCancel(r.ctx)
	own := &task{cancel: taskCancel}
	r.pending[key] = own
	r.wg.Add(1)
	r.mu.Unlock()

	if delay <= 0 {
		defer r.wg.Done()
		defer r.forget(key, own)
		fn(taskCtx)
		return
	}

	go func() {
		defer r.wg.Done()
		defer r.forget(key, own)

		infra.GoRecoverable(1, "scheduled:"+key, func() {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-taskCtx.Done():
			case <-timer.C:
				fn(taskCtx)
			}
		})
	}()
}

// Cancel drops a pending task, reporting whether one was pending.
func (r *Registry) Cancel(key string) bool {
	r.mu.Lock()
	pending, ok := r.pending[key]
	if ok {
		delete(r.pending, key)
	}
	r.mu.Unlock()
	if ok {
		pending.cancel()
	}
	return ok
}

func (r *Registry) forget(key string, own *task) {
	r.mu.Lock()
	// A reschedule may have replaced the entry; only remove our own.
	if current, ok := r.pending[key]; ok && current == own {
		delete(r.pending, key)
	}
	r.mu.Unlock()
	own.cancel()
}
