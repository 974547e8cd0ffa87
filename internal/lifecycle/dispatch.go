package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Guard tracks which entities have a lifecycle operation in flight.
type Guard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewGuard returns an empty guard.
func NewGuard() *Guard {
	return &Guard{inflight: make(map[string]struct{})}
}

// TryAcquire marks key as busy. It returns false if key is already busy.
func (g *Guard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inflight[key]; busy {
		return false
	}
	g.inflight[key] = struct{}{}
	return true
}

// Release clears key.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	delete(g.inflight, key)
	g.mu.Unlock()
}

// InFlight reports whether key is busy.
func (g *Guard) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inflight[key]
	return busy
}

// Entity kinds understood by the dispatcher.
const (
	KindBatch = "batch"
	KindQueue = "queue"
)

// Request asks for one action on one entity.
type Request struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Action Action `json:"action"`
}

func (r Request) key() string { return r.Kind + "/" + r.ID }

// Outcome is the result of a dispatched request.
type Outcome struct {
	Request
	Err      error
	Started  time.Time
	Finished time.Time
}

// Message is the user-facing notification text for the outcome.
func (o Outcome) Message() string {
	if o.Err != nil {
		return fmt.Sprintf("%s %s: %s failed: %v", o.Kind, o.ID, o.Action, o.Err)
	}
	return fmt.Sprintf("%s %s: %s requested", o.Kind, o.ID, o.Action)
}

// Target binds an entity kind to its status lookup and its mutation call.
type Target struct {
	Kind   string
	Status func(ctx context.Context, id string) (Status, error)
	Mutate func(ctx context.Context, id string, a Action) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithInvalidator sets the hook that drops cached views after an operation.
func WithInvalidator(fn func(kind, id string)) Option {
	return func(d *Dispatcher) { d.invalidate = fn }
}

// WithNotifier sets the hook that surfaces each outcome to the user.
func WithNotifier(fn func(Outcome)) Option {
	return func(d *Dispatcher) { d.notify = fn }
}

// WithRecorder sets the hook that persists each outcome.
func WithRecorder(fn func(context.Context, Outcome) error) Option {
	return func(d *Dispatcher) { d.record = fn }
}

// WithGuard shares an in-flight guard between dispatchers.
func WithGuard(g *Guard) Option {
	return func(d *Dispatcher) { d.guard = g }
}

// Dispatcher gates lifecycle requests and runs permitted ones asynchronously.
type Dispatcher struct {
	logger     *zap.Logger
	guard      *Guard
	targets    map[string]Target
	invalidate func(kind, id string)
	notify     func(Outcome)
	record     func(context.Context, Outcome) error
	wg         sync.WaitGroup
}

// NewDispatcher creates a dispatcher for the given targets.
func NewDispatcher(logger *zap.Logger, targets []Target, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		logger:  logger,
		guard:   NewGuard(),
		targets: make(map[string]Target, len(targets)),
	}
	for _, t := range targets {
		d.targets[t.Kind] = t
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// InFlight reports whether an operation for the entity is pending.
func (d *Dispatcher) InFlight(kind, id string) bool {
	return d.guard.InFlight(Request{Kind: kind, ID: id}.key())
}

// Dispatch re-checks the gate and, if the request is permitted and nothing
// else is pending for the entity, starts the mutation in the background. It
// returns false when the request was suppressed; suppression is silent.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) bool {
	t, ok := d.targets[req.Kind]
	if !ok {
		d.logger.Debug("dispatch: unknown kind", zap.String("kind", req.Kind))
		return false
	}
	if !d.guard.TryAcquire(req.key()) {
		d.logger.Debug("dispatch: operation already in flight",
			zap.String("kind", req.Kind), zap.String("id", req.ID), zap.String("action", string(req.Action)))
		return false
	}

	st, err := t.Status(ctx, req.ID)
	if err != nil || !st.Permits(req.Action) {
		d.guard.Release(req.key())
		fields := []zap.Field{zap.String("kind", req.Kind), zap.String("id", req.ID), zap.String("action", string(req.Action))}
		if err != nil {
			fields = append(fields, zap.Error(err))
		} else {
			fields = append(fields, zap.Stringer("status", st))
		}
		d.logger.Debug("dispatch: suppressed by pre-check", fields...)
		return false
	}

	// The mutation outlives the caller's request context.
	runCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		out := Outcome{Request: req, Started: time.Now()}
		out.Err = t.Mutate(runCtx, req.ID, req.Action)
		out.Finished = time.Now()
		d.complete(runCtx, out)
	}()
	return true
}

func (d *Dispatcher) complete(ctx context.Context, out Outcome) {
	d.guard.Release(out.key())
	if d.invalidate != nil {
		d.invalidate(out.Kind, out.ID)
	}
	if d.notify != nil {
		d.notify(out)
	}
	if d.record != nil {
		if err := d.record(ctx, out); err != nil {
			d.logger.Warn("recording lifecycle outcome", zap.Error(err))
		}
	}

	fields := []zap.Field{
		zap.String("kind", out.Kind),
		zap.String("id", out.ID),
		zap.String("action", string(out.Action)),
		zap.Duration("took", out.Finished.Sub(out.Started)),
	}
	if out.Err != nil {
		d.logger.Warn("lifecycle request failed", append(fields, zap.Error(out.Err))...)
		return
	}
	d.logger.Info("lifecycle request completed", fields...)
}

// Wait blocks until every dispatched operation has completed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
