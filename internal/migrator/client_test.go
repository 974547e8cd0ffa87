package migrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// newTestServer creates an httptest.TLSServer and a Client pointing to it.
func newTestServer(t *testing.T, handler http.Handler) (*httptest.Server, *Client) {
	t.Helper()
	ts := httptest.NewTLSServer(handler)
	t.Cleanup(ts.Close)
	return ts, NewClientWithHTTP(ts.URL, "secret-token", ts.Client())
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatal("expected error for empty base URL")
	}
	if _, err := NewClient(ClientConfig{BaseURL: "https://backend:8443", TLSCACertPath: "/nonexistent/ca.pem"}); err == nil {
		t.Fatal("expected error for missing CA file")
	}
	c, err := NewClient(ClientConfig{BaseURL: "https://backend:8443/", TLSSkipVerify: true})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.baseURL != "https://backend:8443" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
}

func TestAuthHeader(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/batches", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]Batch{})
	})
	_, client := newTestServer(t, mux)
	if _, err := client.ListBatches(context.Background()); err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

func TestListBatches(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/batches", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"b1","name":"wave-1","status":"Running","migration_count":12},
			{"id":"b2","name":"wave-2","status":"Defined","migration_count":3}]`))
	})
	_, client := newTestServer(t, mux)

	batches, err := client.ListBatches(context.Background())
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if len(batches) != 2 || batches[0].Status != "Running" || batches[1].MigrationCount != 3 {
		t.Errorf("batches = %+v", batches)
	}
}

func TestBatchActionPath(t *testing.T) {
	var gotMethod, gotPath string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusAccepted)
	})
	_, client := newTestServer(t, mux)

	if err := client.BatchAction(context.Background(), "b1", "stop"); err != nil {
		t.Fatalf("BatchAction: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/v1/batches/b1/stop" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
}

func TestQueueDeleteUsesDeleteMethod(t *testing.T) {
	var gotMethod, gotPath string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	_, client := newTestServer(t, mux)

	if err := client.QueueAction(context.Background(), "q7", "delete"); err != nil {
		t.Fatalf("QueueAction: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/v1/queue/q7" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}

	if err := client.QueueAction(context.Background(), "q7", "retry"); err != nil {
		t.Fatalf("QueueAction: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/v1/queue/q7/retry" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
}

func TestAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/batches/b1/start", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"batch is already running"}`))
	})
	mux.HandleFunc("GET /api/v1/batches/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such batch", http.StatusNotFound)
	})
	_, client := newTestServer(t, mux)

	err := client.BatchAction(context.Background(), "b1", "start")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Message != "batch is already running" || !IsConflict(err) {
		t.Errorf("apiErr = %+v", apiErr)
	}

	_, err = client.GetBatch(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if !errors.As(err, &apiErr) || apiErr.Message != "no such batch" {
		t.Errorf("plain-text error body not used: %v", err)
	}
}

func TestListVMsWithOverrides(t *testing.T) {
	id := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/vms", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "vm-1", "name": "db", "cpu_count": 4, "memory": 8192,
				"overrides": map[string]any{"override_id": id.String(), "cpu_count": 8, "memory": 0}},
			{"id": "vm-2", "name": "web", "cpu_count": 2, "memory": 2048,
				"overrides": map[string]any{"override_id": uuid.Nil.String()}},
			{"id": "vm-3", "name": "cache", "cpu_count": 1, "memory": 512},
		})
	})
	_, client := newTestServer(t, mux)

	vms, err := client.ListVMs(context.Background())
	if err != nil {
		t.Fatalf("ListVMs: %v", err)
	}
	if len(vms) != 3 {
		t.Fatalf("got %d vms", len(vms))
	}
	if vms[0].Overrides == nil || vms[0].Overrides.ID != id || *vms[0].Overrides.CPUCount != 8 {
		t.Errorf("vm-1 overrides = %+v", vms[0].Overrides)
	}
	if vms[1].Overrides == nil || vms[1].Overrides.ID != uuid.Nil {
		t.Errorf("vm-2 overrides = %+v", vms[1].Overrides)
	}
	if vms[2].Overrides != nil {
		t.Errorf("vm-3 should have no overrides")
	}
}

func TestCountVMs(t *testing.T) {
	var gotFilter string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/vms/count", func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter")
		w.Write([]byte(`{"count":17}`))
	})
	_, client := newTestServer(t, mux)

	n, err := client.CountVMs(context.Background(), "name~db")
	if err != nil {
		t.Fatalf("CountVMs: %v", err)
	}
	if n != 17 || gotFilter != "name~db" {
		t.Errorf("count = %d filter = %q", n, gotFilter)
	}
}

func TestSetOverrideBody(t *testing.T) {
	var got OverrideInput
	var gotType string
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/v1/vms/vm-1/override", func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	})
	_, client := newTestServer(t, mux)

	in := OverrideInput{CPUCount: 6, MemoryMiB: 4096}
	if err := client.SetOverride(context.Background(), "vm-1", in); err != nil {
		t.Fatalf("SetOverride: %v", err)
	}
	if got != in || gotType != "application/json" {
		t.Errorf("body = %+v content-type = %q", got, gotType)
	}
}
