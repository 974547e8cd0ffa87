package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/battlewithbytes/migration-console/internal/config"
	"github.com/battlewithbytes/migration-console/internal/console"
	"github.com/battlewithbytes/migration-console/internal/lifecycle"
	"github.com/battlewithbytes/migration-console/internal/migrator"
	"github.com/battlewithbytes/migration-console/internal/notify"
	"github.com/battlewithbytes/migration-console/internal/override"
)

// mockBackend is an in-memory migration backend.
type mockBackend struct {
	mu        sync.Mutex
	batches   []migrator.Batch
	queue     []migrator.QueueEntry
	vms       []migrator.VM
	calls     []string
	overrides map[string]migrator.OverrideInput
	actionErr error
}

func newMockBackend() *mockBackend {
	cpu := 8
	return &mockBackend{
		batches: []migrator.Batch{
			{ID: "b1", Name: "wave-1", Status: "Running", MigrationCount: 3, Finished: 1},
			{ID: "b2", Name: "wave-2", Status: "Defined", MigrationCount: 2},
			{ID: "b3", Name: "wave-3", Status: "Finished", MigrationCount: 5, Finished: 5},
		},
		queue: []migrator.QueueEntry{
			{ID: "q1", BatchID: "b1", VMName: "web01", Status: "BackgroundImport", DiskBytes: 4 << 30, TransferredBytes: 1 << 30},
			{ID: "q2", BatchID: "b1", VMName: "web02", Status: "Canceled"},
		},
		vms: []migrator.VM{
			{ID: "v1", Name: "web01", CPUCount: 2, MemoryMiB: 2048, DiskBytes: 4 << 30,
				Overrides: &override.Record{ID: uuid.New(), CPUCount: &cpu}},
			{ID: "v2", Name: "web02", CPUCount: 4, MemoryMiB: 4096, DiskBytes: 8 << 30},
		},
	}
}

func (m *mockBackend) ListBatches(ctx context.Context) ([]migrator.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]migrator.Batch(nil), m.batches...), nil
}

func (m *mockBackend) ListQueue(ctx context.Context) ([]migrator.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]migrator.QueueEntry(nil), m.queue...), nil
}

func (m *mockBackend) ListVMs(ctx context.Context) ([]migrator.VM, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]migrator.VM(nil), m.vms...), nil
}

func (m *mockBackend) BatchAction(ctx context.Context, id, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "batch/"+id+"/"+action)
	if m.actionErr != nil {
		return m.actionErr
	}
	for i := range m.batches {
		if m.batches[i].ID == id && action == "stop" {
			m.batches[i].Status = "Stopped"
		}
	}
	return nil
}

func (m *mockBackend) QueueAction(ctx context.Context, id, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "queue/"+id+"/"+action)
	return m.actionErr
}

func (m *mockBackend) CountVMs(ctx context.Context, filter string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, vm := range m.vms {
		if strings.Contains(vm.Name, filter) {
			n++
		}
	}
	return n, nil
}

func (m *mockBackend) SetOverride(ctx context.Context, vmID string, in migrator.OverrideInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.overrides == nil {
		m.overrides = make(map[string]migrator.OverrideInput)
	}
	m.overrides[vmID] = in
	return nil
}

func (m *mockBackend) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Service.Port = 0
	cfg.Filter.DebounceMS = 10
	cfg.DataDir = "/tmp/migration-console-test"
	return cfg
}

type testEnv struct {
	srv     *Server
	backend *mockBackend
	hub     *notify.Hub
}

func testServer(t *testing.T) *testEnv {
	t.Helper()
	backend := newMockBackend()
	hub := notify.NewHub()
	con := console.New(backend, console.WithDispatchOptions(lifecycle.WithNotifier(hub.Outcome)))
	t.Cleanup(con.Wait)
	return &testEnv{
		srv:     New(testConfig(), con, WithHub(hub)),
		backend: backend,
		hub:     hub,
	}
}

func doRequest(t *testing.T, srv *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, w.Body.String())
	}
	return result
}

// pageRows decodes a table page response into rows of cell texts.
func pageRows(t *testing.T, w *httptest.ResponseRecorder) (map[string]interface{}, [][]interface{}) {
	t.Helper()
	body := decodeJSON(t, w)
	raw, _ := body["rows"].([]interface{})
	rows := make([][]interface{}, 0, len(raw))
	for _, r := range raw {
		cells, _ := r.([]interface{})
		values := make([]interface{}, 0, len(cells))
		for _, c := range cells {
			cell, _ := c.(map[string]interface{})
			values = append(values, cell["value"])
		}
		rows = append(rows, values)
	}
	return body, rows
}

// linkText returns the text of a Link cell value.
func linkText(v interface{}) string {
	m, _ := v.(map[string]interface{})
	s, _ := m["text"].(string)
	return s
}
