// Package debounce coalesces rapid input edits into a single remote query.
//
// Every Set bumps a version counter. When the input has been quiet for the
// configured window, the latest version is committed and its fetch starts.
// A fetch result is applied only if its version is still the latest
// committed one, so a slow response for an old input can never overwrite a
// newer one regardless of arrival order.
package debounce

import (
	"context"
	"sync"
	"time"
)

// DefaultWindow is the quiescence window used by the console.
const DefaultWindow = 500 * time.Millisecond

// Result is an applied query result.
type Result[T any] struct {
	Version uint64
	Input   string
	Value   T
	Err     error
}

// Query is a debounced remote query over a string input.
type Query[T any] struct {
	ctx      context.Context
	window   time.Duration
	fetch    func(ctx context.Context, input string) (T, error)
	onResult func(Result[T])

	// deliverMu orders callbacks the same way results are applied.
	deliverMu sync.Mutex

	mu        sync.Mutex
	version   uint64
	committed uint64
	input     string
	loading   bool
	timer     *time.Timer
	latest    Result[T]
	hasResult bool
	stopped   bool
}

// New creates a query. onResult is called (from a background goroutine) for
// each applied result and may be nil.
func New[T any](ctx context.Context, window time.Duration, fetch func(ctx context.Context, input string) (T, error), onResult func(Result[T])) *Query[T] {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Query[T]{ctx: ctx, window: window, fetch: fetch, onResult: onResult}
}

// Set records a new input value and restarts the quiescence window. It
// returns the version assigned to the input.
func (q *Query[T]) Set(input string) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return q.version
	}
	q.version++
	q.input = input
	v := q.version
	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(q.window, func() { q.commit(v) })
	return v
}

// commit starts the fetch for version v unless a newer input arrived.
func (q *Query[T]) commit(v uint64) {
	q.mu.Lock()
	if q.stopped || v != q.version {
		q.mu.Unlock()
		return
	}
	q.committed = v
	q.loading = true
	input := q.input
	q.mu.Unlock()

	go func() {
		value, err := q.fetch(q.ctx, input)
		q.Deliver(v, input, value, err)
	}()
}

// Deliver applies a fetch result. Results for anything but the latest
// committed version are dropped; Deliver reports whether it was applied.
// Callbacks run one at a time in the order results were applied, so onResult
// must not call Deliver.
func (q *Query[T]) Deliver(v uint64, input string, value T, err error) bool {
	q.deliverMu.Lock()
	defer q.deliverMu.Unlock()

	q.mu.Lock()
	if q.stopped || v != q.committed {
		q.mu.Unlock()
		return false
	}
	q.loading = false
	q.latest = Result[T]{Version: v, Input: input, Value: value, Err: err}
	q.hasResult = true
	res := q.latest
	cb := q.onResult
	q.mu.Unlock()

	if cb != nil {
		cb(res)
	}
	return true
}

// Loading reports whether the latest committed fetch has not resolved yet.
// A fetch that never resolves leaves the query loading indefinitely.
func (q *Query[T]) Loading() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loading
}

// Version returns the latest input version.
func (q *Query[T]) Version() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.version
}

// Latest returns the most recently applied result.
func (q *Query[T]) Latest() (Result[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.latest, q.hasResult
}

// Stop cancels any pending window and drops results still in flight.
func (q *Query[T]) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	if q.timer != nil {
		q.timer.Stop()
	}
}
