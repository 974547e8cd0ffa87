package console

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/battlewithbytes/migration-console/internal/lifecycle"
	"github.com/battlewithbytes/migration-console/internal/migrator"
	"github.com/battlewithbytes/migration-console/internal/override"
	"github.com/battlewithbytes/migration-console/internal/table"
)

type fakeBackend struct {
	mu        sync.Mutex
	batches   []migrator.Batch
	queue     []migrator.QueueEntry
	vms       []migrator.VM
	actions   []string
	actErr    error
	block     chan struct{}
	overrides map[string]migrator.OverrideInput

	batchCalls atomic.Int32
	listGate   chan struct{}
}

func (f *fakeBackend) ListBatches(ctx context.Context) ([]migrator.Batch, error) {
	f.batchCalls.Add(1)
	if f.listGate != nil {
		<-f.listGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]migrator.Batch(nil), f.batches...), nil
}

func (f *fakeBackend) ListQueue(ctx context.Context) ([]migrator.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]migrator.QueueEntry(nil), f.queue...), nil
}

func (f *fakeBackend) ListVMs(ctx context.Context) ([]migrator.VM, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]migrator.VM(nil), f.vms...), nil
}

func (f *fakeBackend) BatchAction(ctx context.Context, id, action string) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, "batch/"+id+"/"+action)
	if f.actErr != nil {
		return f.actErr
	}
	for i := range f.batches {
		if f.batches[i].ID != id {
			continue
		}
		switch action {
		case "stop":
			f.batches[i].Status = "Stopped"
		case "start":
			f.batches[i].Status = "Running"
		}
	}
	return nil
}

func (f *fakeBackend) QueueAction(ctx context.Context, id, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, "queue/"+id+"/"+action)
	return f.actErr
}

func (f *fakeBackend) CountVMs(ctx context.Context, filter string) (int, error) {
	return len(filter), nil
}

func (f *fakeBackend) SetOverride(ctx context.Context, vmID string, in migrator.OverrideInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.overrides == nil {
		f.overrides = make(map[string]migrator.OverrideInput)
	}
	f.overrides[vmID] = in
	return nil
}

func (f *fakeBackend) actionLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.actions...)
}

func intPtr(v int) *int       { return &v }
func u64Ptr(v uint64) *uint64 { return &v }

func controlsOf(t *testing.T, tbl table.Table, id string) Controls {
	t.Helper()
	for _, row := range tbl.Rows {
		link, ok := RowLink(row)
		if !ok || link.ID != id {
			continue
		}
		ctl, ok := RowControls(row)
		if !ok {
			t.Fatalf("row %s has no controls", id)
		}
		return ctl
	}
	t.Fatalf("row %s not found", id)
	return Controls{}
}

func TestBatchTable(t *testing.T) {
	created := time.Now().Add(-2 * time.Hour)
	fb := &fakeBackend{batches: []migrator.Batch{
		{ID: "b1", Name: "wave-1", Status: "Running", MigrationCount: 4, Finished: 1, CreatedAt: created},
		{ID: "b2", Name: "", Status: "Paused"},
	}}
	c := New(fb)

	tbl, err := c.BatchTable(context.Background())
	if err != nil {
		t.Fatalf("BatchTable: %v", err)
	}
	if err := tbl.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := tbl.Rows[0][2].Text(); got != "1/4" {
		t.Errorf("progress = %q", got)
	}
	if got := tbl.Rows[0][4].Text(); got == "" {
		t.Error("created should render a relative time")
	}
	if got := tbl.Rows[1][0].Text(); got != "b2" {
		t.Errorf("unnamed batch renders %q, want its id", got)
	}
	if got := tbl.Rows[1][5].Text(); got != "" {
		t.Errorf("missing started_at renders %q, want blank", got)
	}

	if diff := cmp.Diff([]lifecycle.Action{lifecycle.ActionStop, lifecycle.ActionReset}, controlsOf(t, tbl, "b1").Enabled()); diff != "" {
		t.Errorf("running batch controls (-want +got):\n%s", diff)
	}
	if got := controlsOf(t, tbl, "b2"); len(got.Enabled()) != 0 || got.String() != "-" {
		t.Errorf("unknown status controls = %+v", got)
	}
}

func TestQueueTable(t *testing.T) {
	fb := &fakeBackend{
		batches: []migrator.Batch{{ID: "b1", Name: "wave-1", Status: "Running"}},
		queue: []migrator.QueueEntry{
			{ID: "q1", BatchID: "b1", VMName: "web01", Status: "BackgroundImport", DiskBytes: 4 << 30, TransferredBytes: 1 << 30},
			{ID: "q2", BatchID: "gone", VMName: "db01", Status: "Canceled"},
		},
	}
	tbl, err := New(fb).QueueTable(context.Background())
	if err != nil {
		t.Fatalf("QueueTable: %v", err)
	}
	if got := tbl.Rows[0][1].Text(); got != "wave-1" {
		t.Errorf("batch column = %q", got)
	}
	if got := tbl.Rows[0][3].Text(); got != "1.00 GiB / 4.00 GiB" {
		t.Errorf("transferred = %q", got)
	}
	if got := tbl.Rows[0][3].Key(); got != 0.25 {
		t.Errorf("transferred sort key = %v", got)
	}
	if got := tbl.Rows[1][1].Text(); got != "gone" {
		t.Errorf("unknown batch column = %q", got)
	}
	if got := tbl.Rows[1][3].Text(); got != "" {
		t.Errorf("zero disk renders %q, want blank", got)
	}
	if got := controlsOf(t, tbl, "q2").Enabled(); len(got) != 1 || got[0] != lifecycle.ActionRetry {
		t.Errorf("canceled entry controls = %v", got)
	}
}

func TestVMTableOverrides(t *testing.T) {
	fb := &fakeBackend{vms: []migrator.VM{
		{ID: "v1", Name: "web01", CPUCount: 2, MemoryMiB: 4096, DiskBytes: 10 << 30,
			Overrides: &override.Record{ID: uuid.New(), CPUCount: intPtr(6), MemoryMiB: u64Ptr(0)}},
		{ID: "v2", Name: "db01", CPUCount: 4, MemoryMiB: 8192,
			Overrides: &override.Record{CPUCount: intPtr(16)}},
	}}
	tbl, err := New(fb).VMTable(context.Background())
	if err != nil {
		t.Fatalf("VMTable: %v", err)
	}

	cpu := tbl.Rows[0][3]
	parts, ok := cpu.Value.(table.Composite)
	if !ok || len(parts) != 2 {
		t.Fatalf("overridden cpu cell = %#v", cpu)
	}
	if parts[0].Class != table.ClassSuperseded || parts[0].Text() != "2" || parts[1].Text() != "6" {
		t.Errorf("cpu parts = %#v", parts)
	}
	if cpu.Key() != 6 {
		t.Errorf("cpu sort key = %v, want 6", cpu.Key())
	}
	if got := tbl.Rows[0][4].Text(); got != "4.00 GiB" {
		t.Errorf("zero memory override renders %q", got)
	}
	if got := tbl.Rows[0][6].Text(); got != "yes" {
		t.Errorf("overridden = %q", got)
	}

	if got := tbl.Rows[1][3].Text(); got != "4" {
		t.Errorf("nil-id record cpu = %q, want source value", got)
	}
	if got := tbl.Rows[1][6].Text(); got != "no" {
		t.Errorf("overridden = %q", got)
	}
	if got := tbl.Rows[1][5].Text(); got != "" {
		t.Errorf("zero disk = %q, want blank", got)
	}
}

func TestCacheCoalescesMisses(t *testing.T) {
	fb := &fakeBackend{
		batches:  []migrator.Batch{{ID: "b1", Status: "Running"}},
		listGate: make(chan struct{}),
	}
	c := New(fb)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Batches(context.Background()); err != nil {
				t.Errorf("Batches: %v", err)
			}
		}()
	}
	for fb.batchCalls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	close(fb.listGate)
	wg.Wait()

	if n := fb.batchCalls.Load(); n != 1 {
		t.Errorf("backend called %d times, want 1", n)
	}

	c.Invalidate(lifecycle.KindBatch, "b1")
	c.Batches(context.Background())
	if n := fb.batchCalls.Load(); n != 2 {
		t.Errorf("after invalidate backend called %d times, want 2", n)
	}
}

func TestCacheTTL(t *testing.T) {
	fb := &fakeBackend{}
	c := New(fb, WithTTL(time.Minute))
	now := time.Now()
	c.cache.now = func() time.Time { return now }

	c.Batches(context.Background())
	c.Batches(context.Background())
	now = now.Add(2 * time.Minute)
	c.Batches(context.Background())
	if n := fb.batchCalls.Load(); n != 2 {
		t.Errorf("backend called %d times, want 2", n)
	}
}

func TestDispatchRoundTrip(t *testing.T) {
	fb := &fakeBackend{batches: []migrator.Batch{{ID: "b1", Name: "wave-1", Status: "Running"}}}
	var notes []string
	var mu sync.Mutex
	c := New(fb, WithDispatchOptions(lifecycle.WithNotifier(func(o lifecycle.Outcome) {
		mu.Lock()
		notes = append(notes, o.Message())
		mu.Unlock()
	})))
	ctx := context.Background()

	if c.Dispatch(ctx, lifecycle.Request{Kind: lifecycle.KindBatch, ID: "b1", Action: lifecycle.ActionStart}) {
		t.Fatal("start should be suppressed while running")
	}
	if !c.Dispatch(ctx, lifecycle.Request{Kind: lifecycle.KindBatch, ID: "b1", Action: lifecycle.ActionStop}) {
		t.Fatal("stop should be accepted while running")
	}
	c.Wait()

	tbl, err := c.BatchTable(ctx)
	if err != nil {
		t.Fatalf("BatchTable: %v", err)
	}
	if got := tbl.Rows[0][1].Text(); got != "Stopped" {
		t.Errorf("status after stop = %q; snapshot was not invalidated", got)
	}
	if diff := cmp.Diff([]lifecycle.Action{lifecycle.ActionStart}, controlsOf(t, tbl, "b1").Enabled()); diff != "" {
		t.Errorf("controls after stop (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"batch/b1/stop"}, fb.actionLog()); diff != "" {
		t.Errorf("backend calls (-want +got):\n%s", diff)
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]string{"batch b1: stop requested"}, notes); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
}

func TestControlsDisabledWhileInFlight(t *testing.T) {
	fb := &fakeBackend{
		batches: []migrator.Batch{{ID: "b1", Status: "Running"}},
		block:   make(chan struct{}),
	}
	c := New(fb)
	ctx := context.Background()

	if !c.Dispatch(ctx, lifecycle.Request{Kind: lifecycle.KindBatch, ID: "b1", Action: lifecycle.ActionReset}) {
		t.Fatal("reset should be accepted")
	}
	tbl, _ := c.BatchTable(ctx)
	if got := controlsOf(t, tbl, "b1").Enabled(); len(got) != 0 {
		t.Errorf("controls while in flight = %v, want none", got)
	}
	if c.Dispatch(ctx, lifecycle.Request{Kind: lifecycle.KindBatch, ID: "b1", Action: lifecycle.ActionStop}) {
		t.Error("second request while pending should be a no-op")
	}
	close(fb.block)
	c.Wait()

	if got := fb.actionLog(); len(got) != 1 {
		t.Errorf("backend calls = %v, want exactly one", got)
	}
}

func TestDispatchFailureStillInvalidates(t *testing.T) {
	fb := &fakeBackend{
		queue:  []migrator.QueueEntry{{ID: "q1", Status: "Error"}},
		actErr: errors.New("backend API 500"),
	}
	c := New(fb)
	ctx := context.Background()
	c.Queue(ctx)

	if !c.Dispatch(ctx, lifecycle.Request{Kind: lifecycle.KindQueue, ID: "q1", Action: lifecycle.ActionDelete}) {
		t.Fatal("delete should be accepted for an errored entry")
	}
	c.Wait()
	if c.Dispatcher().InFlight(lifecycle.KindQueue, "q1") {
		t.Error("guard not cleared after failure")
	}
	if _, _, ok := c.cache.lookup(keyQueue); ok {
		t.Error("queue snapshot should be invalidated after failure")
	}
}

func TestDashboard(t *testing.T) {
	fb := &fakeBackend{
		batches: []migrator.Batch{{ID: "b1", Status: "Running"}, {ID: "b2", Status: "Running"}, {ID: "b3", Status: "Defined"}},
		queue:   []migrator.QueueEntry{{ID: "q1", Status: "Idle", TransferredBytes: 1 << 30}},
		vms: []migrator.VM{
			{ID: "v1", DiskBytes: 1 << 30, Overrides: &override.Record{ID: uuid.New(), CPUCount: intPtr(4)}},
			{ID: "v2", DiskBytes: 1 << 30},
			{ID: "v3", Overrides: &override.Record{ID: uuid.New(), CPUCount: intPtr(0)}},
		},
	}
	d, err := New(fb).Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	want := Dashboard{
		Batches:          map[string]int{"Running": 2, "Defined": 1},
		Queue:            map[string]int{"Idle": 1},
		VMs:              3,
		Overridden:       1,
		DiskBytes:        2 << 30,
		Disk:             "2.00 GiB",
		TransferredBytes: 1 << 30,
		Transferred:      "1.00 GiB",
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("dashboard (-want +got):\n%s", diff)
	}
}

func TestSetOverrideInvalidatesVMs(t *testing.T) {
	fb := &fakeBackend{vms: []migrator.VM{{ID: "v1"}}}
	c := New(fb)
	ctx := context.Background()
	c.VMs(ctx)

	if err := c.SetOverride(ctx, "v1", migrator.OverrideInput{CPUCount: 4}); err != nil {
		t.Fatalf("SetOverride: %v", err)
	}
	if _, _, ok := c.cache.lookup(keyVMs); ok {
		t.Error("vm snapshot should be invalidated")
	}
	if fb.overrides["v1"].CPUCount != 4 {
		t.Errorf("override not sent: %+v", fb.overrides)
	}
}

func TestOverriddenCountMatchesTable(t *testing.T) {
	fb := &fakeBackend{vms: []migrator.VM{
		{ID: "v1", CPUCount: 2, Overrides: &override.Record{ID: uuid.New(), CPUCount: intPtr(0), MemoryMiB: u64Ptr(0)}},
		{ID: "v2", CPUCount: 2, MemoryMiB: 1024, Overrides: &override.Record{ID: uuid.New(), MemoryMiB: u64Ptr(2048)}},
		{ID: "v3", CPUCount: 2},
	}}
	c := New(fb)
	ctx := context.Background()

	tbl, err := c.VMTable(ctx)
	if err != nil {
		t.Fatalf("VMTable: %v", err)
	}
	yes := 0
	for _, r := range tbl.Rows {
		if r[6].Text() == "yes" {
			yes++
		}
	}
	d, err := c.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if yes != 1 || d.Overridden != yes {
		t.Errorf("table marks %d overridden, dashboard counts %d, want 1 and 1", yes, d.Overridden)
	}
}
