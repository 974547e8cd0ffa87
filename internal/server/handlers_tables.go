package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/battlewithbytes/migration-console/internal/console"
	"github.com/battlewithbytes/migration-console/internal/lifecycle"
	"github.com/battlewithbytes/migration-console/internal/table"
)

// parseState reads the table view state from query parameters:
// page, per_page, sort (column index or header name), dir (asc|desc) and
// click (a header click applied after the rest, toggling direction when it
// names the sorted column).
func parseState(q url.Values, headers []string, defaultPerPage int) (table.State, error) {
	st := table.NewState().SetPerPage(defaultPerPage)

	if v := q.Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return st, fmt.Errorf("invalid per_page %q", v)
		}
		st = st.SetPerPage(n)
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return st, fmt.Errorf("invalid page %q", v)
		}
		st.Page = n
	}
	if v := q.Get("sort"); v != "" {
		col, err := columnIndex(v, headers)
		if err != nil {
			return st, err
		}
		dir, err := table.ParseDirection(q.Get("dir"))
		if err != nil {
			return st, err
		}
		if dir == table.None {
			dir = table.Ascending
		}
		st.SortColumn, st.Direction = col, dir
	}
	if v := q.Get("click"); v != "" {
		col, err := columnIndex(v, headers)
		if err != nil {
			return st, err
		}
		st = st.SetSort(col)
	}
	return st, nil
}

func columnIndex(v string, headers []string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 || n >= len(headers) {
			return 0, fmt.Errorf("sort column %d out of range", n)
		}
		return n, nil
	}
	i := slices.IndexFunc(headers, func(h string) bool { return strings.EqualFold(h, v) })
	if i < 0 {
		return 0, fmt.Errorf("unknown column %q", v)
	}
	return i, nil
}

func (s *Server) serveTable(w http.ResponseWriter, r *http.Request, headers []string, build func(context.Context) (table.Table, error)) {
	st, err := parseState(r.URL.Query(), headers, s.cfg.Tables.DefaultPerPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if r.URL.Query().Get("refresh") == "1" {
		s.console.Refresh()
	}
	t, err := build(r.Context())
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	page := table.View(t, st)

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, table.Render(page))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleBatchTable(w http.ResponseWriter, r *http.Request) {
	s.serveTable(w, r, console.BatchHeaders, s.console.BatchTable)
}

func (s *Server) handleQueueTable(w http.ResponseWriter, r *http.Request) {
	s.serveTable(w, r, console.QueueHeaders, s.console.QueueTable)
}

func (s *Server) handleVMTable(w http.ResponseWriter, r *http.Request) {
	s.serveTable(w, r, console.VMHeaders, s.console.VMTable)
}

func (s *Server) handleBatchAction(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, lifecycle.KindBatch, lifecycle.BatchActions)
}

func (s *Server) handleQueueAction(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, lifecycle.KindQueue, lifecycle.QueueActions)
}

// dispatch submits a lifecycle request. A request the gate suppresses
// gets 409 and produces no notification.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, kind string, offered []lifecycle.Action) {
	action, ok := lifecycle.ParseAction(r.PathValue("action"))
	if !ok || !slices.Contains(offered, action) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported %s action %q", kind, r.PathValue("action")))
		return
	}
	req := lifecycle.Request{Kind: kind, ID: r.PathValue("id"), Action: action}
	if !s.console.Dispatch(r.Context(), req) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{"accepted": false, "request": req})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"accepted": true, "request": req})
}
