package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mercator-hq/callaudit/pkg/audit"
	"mercator-hq/callaudit/pkg/audit/export"
	"mercator-hq/callaudit/pkg/audit/query"
)

// dateTimeLayouts are accepted for the date-range bounds, in order. Layouts
// without a zone are read as UTC.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// CallHistoryHandler serves the read-only call history API.
type CallHistoryHandler struct {
	query  *query.Service
	store  audit.Storage
	logger *slog.Logger
}

// NewCallHistoryHandler creates a handler over the query service. store is
// used for streaming exports.
func NewCallHistoryHandler(svc *query.Service, store audit.Storage) *CallHistoryHandler {
	return &CallHistoryHandler{
		query:  svc,
		store:  store,
		logger: slog.Default().With("component", "server.callhistory"),
	}
}

// Routes mounts the handler on r. The caller chooses the prefix, normally
// /api/v1/call-history.
func (h *CallHistoryHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/date-range", h.ByDateRange)
	r.Get("/correlation/{correlationId}", h.ByCorrelationID)
	r.Get("/path", h.ByPath)
	r.Get("/success", h.BySuccess)
	r.Get("/failures", h.Failures)
	r.Get("/export", h.Export)
	r.Get("/{id}", h.GetByID)
}

// List handles GET /?limit=&offset=.
func (h *CallHistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "listing call history", "limit", limit, "offset", offset)

	records, err := h.query.List(r.Context(), limit, offset)
	h.respond(w, r, records, err)
}

// GetByID handles GET /{id}.
func (h *CallHistoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		WriteError(w, r, NewBadRequestError("id", "%q is not a record id", raw))
		return
	}

	record, err := h.query.GetByID(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, record)
}

// ByDateRange handles GET /date-range?from=&to=.
func (h *CallHistoryHandler) ByDateRange(w http.ResponseWriter, r *http.Request) {
	from, err := timeParam(r, "from")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	to, err := timeParam(r, "to")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	records, err := h.query.ByDateRange(r.Context(), from, to)
	h.respond(w, r, records, err)
}

// ByCorrelationID handles GET /correlation/{correlationId}.
func (h *CallHistoryHandler) ByCorrelationID(w http.ResponseWriter, r *http.Request) {
	records, err := h.query.ByCorrelationID(r.Context(), chi.URLParam(r, "correlationId"))
	h.respond(w, r, records, err)
}

// ByPath handles GET /path?path=.
func (h *CallHistoryHandler) ByPath(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		WriteError(w, r, NewBadRequestError("path", "is required"))
		return
	}

	records, err := h.query.ByPath(r.Context(), path)
	h.respond(w, r, records, err)
}

// BySuccess handles GET /success?success=true|false.
func (h *CallHistoryHandler) BySuccess(w http.ResponseWriter, r *http.Request) {
	success, err := boolParam(r, "success")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	records, err := h.query.BySuccess(r.Context(), success)
	h.respond(w, r, records, err)
}

// Failures handles GET /failures.
func (h *CallHistoryHandler) Failures(w http.ResponseWriter, r *http.Request) {
	records, err := h.query.Failures(r.Context())
	h.respond(w, r, records, err)
}

// Export handles GET /export?format=json|csv plus at most one filter:
// from&to, correlation-id, path, success or failures. Records are streamed
// straight from storage.
func (h *CallHistoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatJSON
	}

	exporter, err := export.New(format, false)
	if err != nil {
		WriteError(w, r, NewBadRequestError("format", "%v", err))
		return
	}

	filter, err := exportFilter(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	contentType := "application/json"
	if format == export.FormatCSV {
		contentType = "text/csv"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=call-history."+format)

	// Headers are already sent once streaming starts; failures can only be
	// logged.
	if err := export.FromStorage(r.Context(), h.store, filter, exporter, w); err != nil {
		h.logger.ErrorContext(r.Context(), "call history export failed", "format", format, "error", err)
	}
}

// exportFilter builds the storage filter from the export query parameters.
// A nil filter exports every record.
func exportFilter(r *http.Request) (*audit.Filter, error) {
	q := r.URL.Query()

	var given []string
	for _, name := range []string{"from", "correlation-id", "path", "success", "failures"} {
		if q.Has(name) || (name == "from" && q.Has("to")) {
			given = append(given, name)
		}
	}
	if len(given) > 1 {
		return nil, NewBadRequestError(given[1], "cannot be combined with %s", given[0])
	}

	switch {
	case q.Has("from") || q.Has("to"):
		from, err := timeParam(r, "from")
		if err != nil {
			return nil, err
		}
		to, err := timeParam(r, "to")
		if err != nil {
			return nil, err
		}
		if from.After(to) {
			return nil, NewBadRequestError("from", "must not be after to")
		}
		return audit.ByDateRange(from, to), nil
	case q.Has("correlation-id"):
		id := q.Get("correlation-id")
		if id == "" {
			return nil, NewBadRequestError("correlation-id", "is required")
		}
		return audit.ByCorrelationID(id), nil
	case q.Has("path"):
		path := q.Get("path")
		if path == "" {
			return nil, NewBadRequestError("path", "is required")
		}
		return audit.ByPath(path), nil
	case q.Has("success"):
		success, err := boolParam(r, "success")
		if err != nil {
			return nil, err
		}
		return audit.BySuccess(success), nil
	case q.Has("failures"):
		failures, err := boolParam(r, "failures")
		if err != nil {
			return nil, err
		}
		if failures {
			return audit.Failures(), nil
		}
		return nil, nil
	default:
		return nil, nil
	}
}

func (h *CallHistoryHandler) respond(w http.ResponseWriter, r *http.Request, records []*audit.Record, err error) {
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if records == nil {
		records = []*audit.Record{}
	}
	WriteJSON(w, http.StatusOK, records)
}

// intParam parses an optional integer query parameter; absent is 0.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewBadRequestError(name, "%q is not an integer", raw)
	}
	return v, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, NewBadRequestError(name, "is required")
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, NewBadRequestError(name, "%q is not a boolean", raw)
	}
	return v, nil
}

func timeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, NewBadRequestError(name, "is required")
	}
	t, ok := ParseDateTime(raw)
	if !ok {
		return time.Time{}, NewBadRequestError(name, "%q is not an ISO-8601 date-time", raw)
	}
	return t, nil
}

// ParseDateTime parses an ISO-8601 date-time. A value without a zone is
// taken as UTC. The result is always in UTC.
func ParseDateTime(raw string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
