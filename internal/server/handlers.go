package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/battlewithbytes/migration-console/internal/migrator"
	"github.com/battlewithbytes/migration-console/internal/store"
	"github.com/battlewithbytes/migration-console/internal/units"
	"github.com/battlewithbytes/migration-console/internal/version"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFieldError reports a form field that failed validation.
func writeFieldError(w http.ResponseWriter, field string, err error) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"field": field, "error": err.Error()})
}

// writeBackendError maps a backend failure to a response status.
func (s *Server) writeBackendError(w http.ResponseWriter, err error) {
	var apiErr *migrator.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		writeError(w, http.StatusNotFound, apiErr.Message)
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Warn("backend request failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": version.Version,
		"backend": s.cfg.Backend.BaseURL,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.console.Dashboard(r.Context())
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if s.activity == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"activity": []store.Activity{}, "total": 0})
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	kind, id := q.Get("kind"), q.Get("id")

	var (
		rows []store.Activity
		err  error
	)
	if kind != "" && id != "" {
		rows, err = s.activity.ListForEntity(r.Context(), kind, id, limit)
	} else {
		rows, err = s.activity.List(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []store.Activity{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"activity": rows, "total": len(rows)})
}

type parseUnitsRequest struct {
	Value string `json:"value"`
}

type parseUnitsResponse struct {
	Bytes uint64 `json:"bytes"`
	Human string `json:"human"`
	Words string `json:"words"`
}

func (s *Server) handleParseUnits(w http.ResponseWriter, r *http.Request) {
	var req parseUnitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := units.HumanToBytes(req.Value)
	if err != nil {
		writeFieldError(w, "value", err)
		return
	}
	writeJSON(w, http.StatusOK, parseUnitsResponse{
		Bytes: n,
		Human: units.BytesToHuman(n),
		Words: humanize.Comma(int64(n)) + " bytes",
	})
}

type overrideRequest struct {
	Name     string `json:"name"`
	CPUCount int    `json:"cpu_count"`
	Memory   string `json:"memory"`
}

// handleSetOverride accepts memory as a human-readable size and stores it
// in MiB. An empty memory or zero CPU count leaves that field unset.
func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CPUCount < 0 {
		writeFieldError(w, "cpu_count", errors.New("cpu_count must be >= 0"))
		return
	}

	var mib uint64
	if strings.TrimSpace(req.Memory) != "" {
		n, err := units.HumanToBytes(req.Memory)
		if err != nil {
			writeFieldError(w, "memory", err)
			return
		}
		mib = units.BytesToMiB(n)
	}

	in := migrator.OverrideInput{Name: req.Name, CPUCount: req.CPUCount, MemoryMiB: mib}
	if err := s.console.SetOverride(r.Context(), id, in); err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}
