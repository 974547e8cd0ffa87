package migrator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListBatches returns every batch known to the backend.
func (c *Client) ListBatches(ctx context.Context) ([]Batch, error) {
	var batches []Batch
	if err := c.doRequest(ctx, http.MethodGet, "/batches", nil, nil, &batches); err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	return batches, nil
}

// GetBatch returns a single batch.
func (c *Client) GetBatch(ctx context.Context, id string) (*Batch, error) {
	var b Batch
	if err := c.doRequest(ctx, http.MethodGet, "/batches/"+url.PathEscape(id), nil, nil, &b); err != nil {
		return nil, fmt.Errorf("getting batch %s: %w", id, err)
	}
	return &b, nil
}

// BatchAction requests a start, stop or reset of a batch.
func (c *Client) BatchAction(ctx context.Context, id, action string) error {
	path := fmt.Sprintf("/batches/%s/%s", url.PathEscape(id), url.PathEscape(action))
	if err := c.doRequest(ctx, http.MethodPost, path, nil, nil, nil); err != nil {
		return fmt.Errorf("%s batch %s: %w", action, id, err)
	}
	return nil
}

// ListQueue returns every queue entry.
func (c *Client) ListQueue(ctx context.Context) ([]QueueEntry, error) {
	var entries []QueueEntry
	if err := c.doRequest(ctx, http.MethodGet, "/queue", nil, nil, &entries); err != nil {
		return nil, fmt.Errorf("listing queue: %w", err)
	}
	return entries, nil
}

// GetQueueEntry returns a single queue entry.
func (c *Client) GetQueueEntry(ctx context.Context, id string) (*QueueEntry, error) {
	var e QueueEntry
	if err := c.doRequest(ctx, http.MethodGet, "/queue/"+url.PathEscape(id), nil, nil, &e); err != nil {
		return nil, fmt.Errorf("getting queue entry %s: %w", id, err)
	}
	return &e, nil
}

// QueueAction requests a cancel, retry or delete of a queue entry. Delete is
// issued as DELETE on the entry itself.
func (c *Client) QueueAction(ctx context.Context, id, action string) error {
	method, path := http.MethodPost, fmt.Sprintf("/queue/%s/%s", url.PathEscape(id), url.PathEscape(action))
	if action == "delete" {
		method, path = http.MethodDelete, "/queue/"+url.PathEscape(id)
	}
	if err := c.doRequest(ctx, method, path, nil, nil, nil); err != nil {
		return fmt.Errorf("%s queue entry %s: %w", action, id, err)
	}
	return nil
}

// ListVMs returns the discovered source VMs.
func (c *Client) ListVMs(ctx context.Context) ([]VM, error) {
	var vms []VM
	if err := c.doRequest(ctx, http.MethodGet, "/vms", nil, nil, &vms); err != nil {
		return nil, fmt.Errorf("listing vms: %w", err)
	}
	return vms, nil
}

// GetVM returns a single VM.
func (c *Client) GetVM(ctx context.Context, id string) (*VM, error) {
	var vm VM
	if err := c.doRequest(ctx, http.MethodGet, "/vms/"+url.PathEscape(id), nil, nil, &vm); err != nil {
		return nil, fmt.Errorf("getting vm %s: %w", id, err)
	}
	return &vm, nil
}

// CountVMs returns how many VMs match a free-text filter expression.
func (c *Client) CountVMs(ctx context.Context, filter string) (int, error) {
	var out Count
	q := url.Values{}
	if filter != "" {
		q.Set("filter", filter)
	}
	if err := c.doRequest(ctx, http.MethodGet, "/vms/count", q, nil, &out); err != nil {
		return 0, fmt.Errorf("counting vms: %w", err)
	}
	return out.Count, nil
}

// SetOverride stores an administrator override for a VM. Zero fields mean
// "no override" for that field.
func (c *Client) SetOverride(ctx context.Context, vmID string, in OverrideInput) error {
	if err := c.doRequest(ctx, http.MethodPut, "/vms/"+url.PathEscape(vmID)+"/override", nil, in, nil); err != nil {
		return fmt.Errorf("setting override for vm %s: %w", vmID, err)
	}
	return nil
}
