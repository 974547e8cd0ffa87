package console

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/battlewithbytes/migration-console/internal/migrator"
	"github.com/battlewithbytes/migration-console/internal/override"
	"github.com/battlewithbytes/migration-console/internal/units"
)

// Dashboard summarizes the migration estate.
type Dashboard struct {
	Batches          map[string]int `json:"batches"`
	Queue            map[string]int `json:"queue"`
	VMs              int            `json:"vms"`
	Overridden       int            `json:"overridden"`
	DiskBytes        uint64         `json:"disk_bytes"`
	Disk             string         `json:"disk"`
	TransferredBytes uint64         `json:"transferred_bytes"`
	Transferred      string         `json:"transferred"`
}

// Dashboard fetches the three snapshots in parallel and summarizes them.
func (c *Console) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		batches []migrator.Batch
		queue   []migrator.QueueEntry
		vms     []migrator.VM
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		batches, err = c.Batches(gctx)
		return err
	})
	g.Go(func() (err error) {
		queue, err = c.Queue(gctx)
		return err
	})
	g.Go(func() (err error) {
		vms, err = c.VMs(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Batches: make(map[string]int),
		Queue:   make(map[string]int),
		VMs:     len(vms),
	}
	for _, b := range batches {
		d.Batches[b.Status]++
	}
	for _, e := range queue {
		d.Queue[e.Status]++
		d.TransferredBytes += e.TransferredBytes
	}
	for _, vm := range vms {
		d.DiskBytes += vm.DiskBytes
		if override.Applied(vm.Overrides) {
			d.Overridden++
		}
	}
	d.Disk = units.BytesToHuman(d.DiskBytes)
	d.Transferred = units.BytesToHuman(d.TransferredBytes)
	return d, nil
}
