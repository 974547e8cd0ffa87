package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/battlewithbytes/migration-console/internal/lifecycle"
	"github.com/battlewithbytes/migration-console/internal/migrator"
	"github.com/battlewithbytes/migration-console/internal/override"
	"github.com/battlewithbytes/migration-console/internal/table"
	"github.com/battlewithbytes/migration-console/internal/units"
)

// Link identifies the entity a row belongs to. It renders as its text.
type Link struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (l Link) String() string { return l.Text }

// Control is one action button of a row.
type Control struct {
	Action  lifecycle.Action `json:"action"`
	Enabled bool             `json:"enabled"`
}

// Controls holds a row's action buttons, computed from the same snapshot the
// row was built from.
type Controls struct {
	Kind    string    `json:"kind"`
	ID      string    `json:"id"`
	Actions []Control `json:"actions"`
}

// Enabled lists the enabled actions.
func (c Controls) Enabled() []lifecycle.Action {
	var out []lifecycle.Action
	for _, ctl := range c.Actions {
		if ctl.Enabled {
			out = append(out, ctl.Action)
		}
	}
	return out
}

func (c Controls) String() string {
	enabled := c.Enabled()
	if len(enabled) == 0 {
		return "-"
	}
	names := make([]string, len(enabled))
	for i, a := range enabled {
		names[i] = string(a)
	}
	return strings.Join(names, " ")
}

// RowLink returns the entity link stored in the first column of row.
func RowLink(row table.Row) (Link, bool) {
	l, ok := row.At(0).Value.(Link)
	return l, ok
}

// RowControls returns the action controls stored in the last column of row.
func RowControls(row table.Row) (Controls, bool) {
	c, ok := row.At(len(row) - 1).Value.(Controls)
	return c, ok
}

// Column headers.
var (
	BatchHeaders = []string{"Name", "Status", "Progress", "Failed", "Created", "Started", "Actions"}
	QueueHeaders = []string{"VM", "Batch", "Status", "Transferred", "Updated", "Error", "Actions"}
	VMHeaders    = []string{"Name", "Source", "Power", "CPUs", "Memory", "Disk", "Overridden"}
)

func (c *Console) controls(kind, id string, st lifecycle.Status, actions []lifecycle.Action) Controls {
	busy := c.dispatcher.InFlight(kind, id)
	out := Controls{Kind: kind, ID: id, Actions: make([]Control, 0, len(actions))}
	for _, a := range actions {
		out.Actions = append(out.Actions, Control{Action: a, Enabled: !busy && st.Permits(a)})
	}
	return out
}

func controlsCell(ctl Controls) table.Cell {
	return table.Keyed(ctl, len(ctl.Enabled()))
}

func linkCell(kind, id, text string) table.Cell {
	if text == "" {
		text = id
	}
	return table.Keyed(Link{Text: text, Kind: kind, ID: id}, text)
}

// timeCell renders t relative to now and sorts by the instant. A zero time
// renders blank.
func timeCell(t time.Time) table.Cell {
	if t.IsZero() {
		return table.Cell{}
	}
	return table.Keyed(humanize.Time(t), t)
}

// BatchTable builds the batch table from the current snapshot.
func (c *Console) BatchTable(ctx context.Context) (table.Table, error) {
	batches, err := c.Batches(ctx)
	if err != nil {
		return table.Table{}, err
	}
	t := table.Table{Headers: BatchHeaders, Rows: make([]table.Row, 0, len(batches))}
	for _, b := range batches {
		st := lifecycle.ParseBatchStatus(b.Status)
		var started time.Time
		if b.StartedAt != nil {
			started = *b.StartedAt
		}
		t.Rows = append(t.Rows, table.Row{
			linkCell(lifecycle.KindBatch, b.ID, b.Name),
			table.Text(b.Status),
			table.Keyed(fmt.Sprintf("%d/%d", b.Finished, b.MigrationCount), ratio(uint64(b.Finished), uint64(b.MigrationCount))),
			table.Keyed(strconv.Itoa(b.Failed), b.Failed),
			timeCell(b.CreatedAt),
			timeCell(started),
			controlsCell(c.controls(lifecycle.KindBatch, b.ID, st, lifecycle.BatchActions)),
		})
	}
	return t, nil
}

// QueueTable builds the queue table from the current snapshot.
func (c *Console) QueueTable(ctx context.Context) (table.Table, error) {
	entries, err := c.Queue(ctx)
	if err != nil {
		return table.Table{}, err
	}
	batchNames := map[string]string{}
	if batches, err := c.Batches(ctx); err == nil {
		for _, b := range batches {
			batchNames[b.ID] = b.Name
		}
	}

	t := table.Table{Headers: QueueHeaders, Rows: make([]table.Row, 0, len(entries))}
	for _, e := range entries {
		st := lifecycle.ParseQueueEntryStatus(e.Status)
		batch := batchNames[e.BatchID]
		if batch == "" {
			batch = e.BatchID
		}
		t.Rows = append(t.Rows, table.Row{
			linkCell(lifecycle.KindQueue, e.ID, e.VMName),
			table.Text(batch),
			table.Text(e.Status),
			transferCell(e.TransferredBytes, e.DiskBytes),
			timeCell(e.UpdatedAt),
			table.Text(e.Error),
			controlsCell(c.controls(lifecycle.KindQueue, e.ID, st, lifecycle.QueueActions)),
		})
	}
	return t, nil
}

func transferCell(done, total uint64) table.Cell {
	if total == 0 {
		return table.Cell{}
	}
	text := units.BytesToHuman(done) + " / " + units.BytesToHuman(total)
	return table.Keyed(text, ratio(done, total))
}

func ratio(a, b uint64) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// VMTable builds the VM table. CPU and memory columns show the source value
// struck through next to an override when one applies, and sort by the
// effective value.
func (c *Console) VMTable(ctx context.Context) (table.Table, error) {
	vms, err := c.VMs(ctx)
	if err != nil {
		return table.Table{}, err
	}
	t := table.Table{Headers: VMHeaders, Rows: make([]table.Row, 0, len(vms))}
	for _, vm := range vms {
		t.Rows = append(t.Rows, vmRow(vm))
	}
	return t, nil
}

func vmRow(vm migrator.VM) table.Row {
	has := override.HasOverride(vm.Overrides)
	var cpuOverride *int
	var memOverride *uint64
	if vm.Overrides != nil {
		cpuOverride = vm.Overrides.CPUCount
		memOverride = vm.Overrides.MemoryMiB
	}
	cpu := override.ResolveField(vm.CPUCount, cpuOverride, has)
	mem := override.ResolveField(vm.MemoryMiB, memOverride, has)

	overridden := "no"
	if override.Applied(vm.Overrides) {
		overridden = "yes"
	}
	disk := table.Cell{}
	if vm.DiskBytes > 0 {
		disk = table.Keyed(units.BytesToHuman(vm.DiskBytes), vm.DiskBytes)
	}
	return table.Row{
		linkCell("vm", vm.ID, vm.Name),
		table.Text(vm.Source),
		table.Text(vm.PowerState),
		override.Cell(cpu, strconv.Itoa),
		override.Cell(mem, units.FormatMiB),
		disk,
		table.Text(overridden),
	}
}
