// Package console assembles the administrator's views: it fetches entities
// from the migration backend, caches the snapshots, turns them into tables and
// routes lifecycle actions through the gate.
package console

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/battlewithbytes/migration-console/internal/lifecycle"
	"github.com/battlewithbytes/migration-console/internal/migrator"
)

// Cache keys for the entity snapshots.
const (
	keyBatches = "batches"
	keyQueue   = "queue"
	keyVMs     = "vms"
)

// Backend is the subset of the migration API the console uses.
// *migrator.Client implements it.
type Backend interface {
	ListBatches(ctx context.Context) ([]migrator.Batch, error)
	ListQueue(ctx context.Context) ([]migrator.QueueEntry, error)
	ListVMs(ctx context.Context) ([]migrator.VM, error)
	BatchAction(ctx context.Context, id, action string) error
	QueueAction(ctx context.Context, id, action string) error
	CountVMs(ctx context.Context, filter string) (int, error)
	SetOverride(ctx context.Context, vmID string, in migrator.OverrideInput) error
}

// Option configures a Console.
type Option func(*Console)

// WithLogger sets the logger used by the console and its dispatcher.
func WithLogger(l *zap.Logger) Option {
	return func(c *Console) { c.logger = l }
}

// WithTTL bounds how long a snapshot is served before it is refetched.
func WithTTL(d time.Duration) Option {
	return func(c *Console) { c.cache.ttl = d }
}

// WithDispatchOptions passes extra options to the lifecycle dispatcher.
func WithDispatchOptions(opts ...lifecycle.Option) Option {
	return func(c *Console) { c.dispatchOpts = append(c.dispatchOpts, opts...) }
}

// Console is the shared state behind the HTTP server, the CLI and the TUI.
type Console struct {
	backend      Backend
	logger       *zap.Logger
	cache        *Cache
	dispatcher   *lifecycle.Dispatcher
	dispatchOpts []lifecycle.Option
}

// New creates a console over backend.
func New(backend Backend, opts ...Option) *Console {
	c := &Console{
		backend: backend,
		logger:  zap.NewNop(),
		cache:   NewCache(0),
	}
	for _, opt := range opts {
		opt(c)
	}

	targets := []lifecycle.Target{
		{
			Kind:   lifecycle.KindBatch,
			Status: c.BatchStatus,
			Mutate: func(ctx context.Context, id string, a lifecycle.Action) error {
				return c.backend.BatchAction(ctx, id, string(a))
			},
		},
		{
			Kind:   lifecycle.KindQueue,
			Status: c.QueueStatus,
			Mutate: func(ctx context.Context, id string, a lifecycle.Action) error {
				return c.backend.QueueAction(ctx, id, string(a))
			},
		},
	}
	dopts := append([]lifecycle.Option{lifecycle.WithInvalidator(c.Invalidate)}, c.dispatchOpts...)
	c.dispatcher = lifecycle.NewDispatcher(c.logger.Named("lifecycle"), targets, dopts...)
	return c
}

// Dispatcher returns the lifecycle dispatcher bound to this console.
func (c *Console) Dispatcher() *lifecycle.Dispatcher {
	return c.dispatcher
}

// Dispatch submits a lifecycle request. See lifecycle.Dispatcher.Dispatch.
func (c *Console) Dispatch(ctx context.Context, req lifecycle.Request) bool {
	return c.dispatcher.Dispatch(ctx, req)
}

// Invalidate drops the snapshots affected by an operation on the entity.
// Batch and queue state move together, so both are dropped either way.
func (c *Console) Invalidate(kind, id string) {
	c.logger.Debug("invalidating snapshots", zap.String("kind", kind), zap.String("id", id))
	switch kind {
	case lifecycle.KindBatch, lifecycle.KindQueue:
		c.cache.Invalidate(keyBatches, keyQueue)
	case "vm":
		c.cache.Invalidate(keyVMs)
	default:
		c.cache.Invalidate(keyBatches, keyQueue, keyVMs)
	}
}

// Refresh drops every snapshot.
func (c *Console) Refresh() {
	c.cache.Invalidate(keyBatches, keyQueue, keyVMs)
}

// Batches returns the batch snapshot.
func (c *Console) Batches(ctx context.Context) ([]migrator.Batch, error) {
	return cached(ctx, c.cache, keyBatches, c.backend.ListBatches)
}

// Queue returns the queue snapshot.
func (c *Console) Queue(ctx context.Context) ([]migrator.QueueEntry, error) {
	return cached(ctx, c.cache, keyQueue, c.backend.ListQueue)
}

// VMs returns the VM snapshot.
func (c *Console) VMs(ctx context.Context) ([]migrator.VM, error) {
	return cached(ctx, c.cache, keyVMs, c.backend.ListVMs)
}

// BatchStatus looks the batch up in the current snapshot.
func (c *Console) BatchStatus(ctx context.Context, id string) (lifecycle.Status, error) {
	batches, err := c.Batches(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range batches {
		if b.ID == id {
			return lifecycle.ParseBatchStatus(b.Status), nil
		}
	}
	return nil, fmt.Errorf("batch %q not found", id)
}

// QueueStatus looks the queue entry up in the current snapshot.
func (c *Console) QueueStatus(ctx context.Context, id string) (lifecycle.Status, error) {
	entries, err := c.Queue(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ID == id {
			return lifecycle.ParseQueueEntryStatus(e.Status), nil
		}
	}
	return nil, fmt.Errorf("queue entry %q not found", id)
}

// CountVMs asks the backend how many VMs match filter. It is not cached.
func (c *Console) CountVMs(ctx context.Context, filter string) (int, error) {
	return c.backend.CountVMs(ctx, filter)
}

// SetOverride stores an override for a VM and drops the VM snapshot.
func (c *Console) SetOverride(ctx context.Context, vmID string, in migrator.OverrideInput) error {
	if err := c.backend.SetOverride(ctx, vmID, in); err != nil {
		return fmt.Errorf("setting override for %s: %w", vmID, err)
	}
	c.Invalidate("vm", vmID)
	return nil
}

// Wait blocks until pending lifecycle operations finish.
func (c *Console) Wait() {
	c.dispatcher.Wait()
}
