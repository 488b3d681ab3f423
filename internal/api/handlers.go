package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/polalpha/aware-gateway/internal/auth"
	"github.com/polalpha/aware-gateway/internal/gateway"
	"github.com/polalpha/aware-gateway/internal/ingest"
	"github.com/polalpha/aware-gateway/internal/retrieve"
	"github.com/polalpha/aware-gateway/internal/sqlbuild"
	"github.com/polalpha/aware-gateway/internal/stats"
	"github.com/polalpha/aware-gateway/internal/store"
)

type handlers struct {
	store    *store.Provider
	ingest   *ingest.Engine
	retrieve *retrieve.Engine
	auth     *auth.Service
	stats    *stats.Stats
}

// ────────────────────────────────────────────────────────────────────────────
// POST /webservice/index/{study_id}/{password}/{table}
// ────────────────────────────────────────────────────────────────────────────

// webserviceTable receives one record or a batch from an AWARE client and
// writes it into the named table. A batch always answers 200 with per-record
// tallies; only an unreachable store or a caller error changes the status.
func (h *handlers) webserviceTable(w http.ResponseWriter, r *http.Request) {
	studyID := chi.URLParam(r, "study_id")
	table := chi.URLParam(r, "table")

	if !h.auth.CheckPassword(chi.URLParam(r, "password"), h.stats) {
		log.Warn().Str("study_id", studyID).Str("table", table).Msg("unauthorized attempt")
		writeError(w, gateway.Authf("unauthorized"))
		return
	}
	h.stats.RequestReceived()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, gateway.Validationf("read request body: %v", err))
		return
	}

	records, isBatch, err := gateway.ParseRecords(body)
	if err != nil {
		writeError(w, err)
		return
	}

	if !isBatch {
		ok, msg := h.ingest.InsertOne(r.Context(), table, records[0], h.stats)
		if !ok {
			writeJSON(w, http.StatusInternalServerError, errorBody{
				Status: "error", Category: string(gateway.CategoryExecution), Error: msg,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	log.Info().Str("table", table).Int("records", len(records)).Msg("batch received")
	summary, err := h.ingest.InsertMany(r.Context(), table, records, h.stats)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ────────────────────────────────────────────────────────────────────────────
// POST /login
// ────────────────────────────────────────────────────────────────────────────

type loginRequest struct {
	Password string `json:"password"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, gateway.Validationf("invalid json: %v", err))
		return
	}
	if req.Password == "" {
		writeError(w, gateway.Validationf("missing password"))
		return
	}

	token, err := h.auth.Login(r.Context(), req.Password, h.stats)
	if err != nil {
		log.Warn().Msg("unauthorized login attempt")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// ────────────────────────────────────────────────────────────────────────────
// GET /data
// ────────────────────────────────────────────────────────────────────────────

// data serves filtered, paginated reads. The query string carries the
// table, an identifying device filter (required) and an optional timestamp
// range; limit/offset default to the standard window.
func (h *handlers) data(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Validate(r.Context(), r.Header.Get("Authorization"), h.stats); err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	table := q.Get("table")
	if table == "" {
		writeError(w, gateway.Validationf("missing table parameter"))
		return
	}

	filters, err := h.buildFilters(q.Get("device_id"), q.Get("device_uid"), q.Get("start_time"), q.Get("end_time"))
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := parsePage(q.Get("limit"), q.Get("offset"))
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.retrieve.Query(r.Context(), table, filters, page)
	if err != nil {
		log.Error().Err(err).Str("table", table).Msg("query failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// buildFilters maps query parameters onto bound filter clauses. Requests
// without a device identifier are rejected: multi-device tables must never
// be read unfiltered.
func (h *handlers) buildFilters(deviceID, deviceUID, startTime, endTime string) ([]sqlbuild.Filter, error) {
	if deviceID == "" && deviceUID == "" {
		return nil, gateway.ValidationWrap(gateway.ErrMissingFilter, "missing device_id or device_uid parameter")
	}

	d := h.store.Dialect()
	var filters []sqlbuild.Filter

	if deviceID != "" {
		f, err := sqlbuild.Eq(d, "device_id", deviceID)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if deviceUID != "" {
		f, err := sqlbuild.Eq(d, "device_uid", deviceUID)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if startTime != "" {
		f, err := sqlbuild.GTE(d, "timestamp", numericOrString(startTime))
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if endTime != "" {
		f, err := sqlbuild.LTE(d, "timestamp", numericOrString(endTime))
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// numericOrString binds timestamps as integers when they parse as such;
// the value is a bound parameter either way.
func numericOrString(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

func parsePage(limitParam, offsetParam string) (gateway.Page, error) {
	page := gateway.DefaultPage()
	if limitParam != "" {
		n, err := strconv.Atoi(limitParam)
		if err != nil {
			return page, gateway.Validationf("invalid limit %q", limitParam)
		}
		page.Limit = n
	}
	if offsetParam != "" {
		n, err := strconv.Atoi(offsetParam)
		if err != nil {
			return page, gateway.Validationf("invalid offset %q", offsetParam)
		}
		page.Offset = n
	}
	return page, nil
}

// ────────────────────────────────────────────────────────────────────────────
// GET /tables-for-device
// ────────────────────────────────────────────────────────────────────────────

// tablesForDevice lists the tables holding data for one or more devices,
// given as a comma-separated device_id parameter.
func (h *handlers) tablesForDevice(w http.ResponseWriter, r *http.Request) {
	param := r.URL.Query().Get("device_id")
	if param == "" {
		writeError(w, gateway.Validationf("missing device_id parameter"))
		return
	}

	if err := h.auth.Validate(r.Context(), r.Header.Get("Authorization"), h.stats); err != nil {
		writeError(w, err)
		return
	}

	var deviceIDs []string
	for _, id := range strings.Split(param, ",") {
		if id = strings.TrimSpace(id); id != "" {
			deviceIDs = append(deviceIDs, id)
		}
	}
	if len(deviceIDs) == 0 {
		writeError(w, gateway.Validationf("missing device_id parameter"))
		return
	}

	list, err := h.retrieve.TablesForDevices(r.Context(), deviceIDs)
	if err != nil {
		log.Error().Err(err).Int("devices", len(deviceIDs)).Msg("device table scan failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ────────────────────────────────────────────────────────────────────────────
// GET /health, GET /stats
// ────────────────────────────────────────────────────────────────────────────

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy", "database": "disconnected",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "connected"})
}

func (h *handlers) serviceStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "AWARE Gateway",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"stats":     h.stats.Snapshot(),
	})
}

// ────────────────────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────────────────────

type errorBody struct {
	Status   string `json:"status"`
	Category string `json:"category"`
	Error    string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an engine error onto the status table and emits a body
// with both the machine-readable category and the human-readable message.
func writeError(w http.ResponseWriter, err error) {
	cat := gateway.CategoryOf(err)
	writeJSON(w, httpStatus(cat), errorBody{
		Status:   "error",
		Category: string(cat),
		Error:    err.Error(),
	})
}

func httpStatus(cat gateway.Category) int {
	switch cat {
	case gateway.CategoryValidation:
		return http.StatusBadRequest
	case gateway.CategoryAuth:
		return http.StatusUnauthorized
	case gateway.CategoryConnection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
