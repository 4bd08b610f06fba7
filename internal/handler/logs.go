package handler

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/dasim/internal/store"
)

// LogsHandler serves the contents of a run's logs.
type LogsHandler struct {
	logs map[string]store.Table
}

// NewLogsHandler creates a new LogsHandler.
func NewLogsHandler(logs map[string]store.Table) *LogsHandler {
	return &LogsHandler{logs: logs}
}

// logListResponse is the JSON response for GET /logs.
type logListResponse struct {
	Logs []string `json:"logs"`
}

// logResponse is the JSON response for GET /logs/{name}.
type logResponse struct {
	Name   string   `json:"name"`
	Header []string `json:"header"`
	Rows   [][]any  `json:"rows"`
}

// lastResponse is the JSON response for GET /logs/{name}/last/{column}.
type lastResponse struct {
	Name   string `json:"name"`
	Column string `json:"column"`
	Value  any    `json:"value"`
}

// List handles GET /logs.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.logs))
	for name := range h.logs {
		names = append(names, name)
	}
	sort.Strings(names)
	WriteJSON(w, http.StatusOK, logListResponse{Logs: names})
}

// Get handles GET /logs/{name}.
func (h *LogsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t, ok := h.logs[name]
	if !ok {
		WriteError(w, http.StatusNotFound, "log_not_found", "Log not found")
		return
	}

	rows := t.Rows()
	if rows == nil {
		rows = [][]any{}
	}
	WriteJSON(w, http.StatusOK, logResponse{Name: name, Header: t.Header(), Rows: rows})
}

// Last handles GET /logs/{name}/last/{column}.
func (h *LogsHandler) Last(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	column := chi.URLParam(r, "column")
	t, ok := h.logs[name]
	if !ok {
		WriteError(w, http.StatusNotFound, "log_not_found", "Log not found")
		return
	}

	header := t.Header()
	rows := t.Rows()
	idx := -1
	for i, c := range header {
		if c == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		WriteError(w, http.StatusNotFound, "column_not_found", "Column not found")
		return
	}
	if len(rows) == 0 {
		WriteError(w, http.StatusNotFound, "no_rows", "Log has no rows yet")
		return
	}
	WriteJSON(w, http.StatusOK, lastResponse{Name: name, Column: column, Value: rows[len(rows)-1][idx]})
}
