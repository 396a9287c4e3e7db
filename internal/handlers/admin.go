package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coverly/erp-bridge/internal/audit"
	"github.com/coverly/erp-bridge/internal/health"
	"github.com/coverly/erp-bridge/internal/models"
	"github.com/coverly/erp-bridge/internal/pricecache"
	"github.com/coverly/erp-bridge/internal/pricing"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	cache    *pricecache.Cache
	checker  *health.Checker
	prices   *pricing.Service
	recorder audit.Recorder
	log      *logrus.Entry
}

func NewAdminHandler(logger *logrus.Logger, cache *pricecache.Cache, checker *health.Checker, prices *pricing.Service, recorder audit.Recorder) *AdminHandler {
	return &AdminHandler{
		cache:    cache,
		checker:  checker,
		prices:   prices,
		recorder: recorder,
		log:      logger.WithField("component", "admin_handler"),
	}
}

type invalidateRequest struct {
	TenantID string   `json:"tenant_id,omitempty"`
	PlanIDs  []string `json:"plan_ids,omitempty"`
	All      bool     `json:"all,omitempty"`
}

type invalidateResponse struct {
	Removed int    `json:"removed"`
	Scope   string `json:"scope"`
}

// InvalidateCache clears cache entries. Scope is chosen by the body: exact
// key when tenant_id and plan_ids are both given, tenant-wide when only
// tenant_id is given, global when all is set.
func (h *AdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var removed int
	var scope string
	switch {
	case req.TenantID != "" && len(req.PlanIDs) > 0:
		scope = "exact"
		n, err := h.cache.InvalidateKey(req.TenantID, req.PlanIDs)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		removed = n
	case req.TenantID != "":
		scope = "tenant"
		removed = h.cache.InvalidateTenant(req.TenantID)
	case req.All:
		scope = "global"
		removed = h.cache.InvalidateAll()
	default:
		writeError(w, http.StatusBadRequest, "tenant_id or all is required")
		return
	}

	rec := models.CacheClearAudit{
		ID:          uuid.NewString(),
		Scope:       scope,
		TenantID:    req.TenantID,
		Removed:     removed,
		RequestedBy: getClientIP(r),
		CreatedAt:   time.Now(),
	}
	if err := h.recorder.RecordCacheClear(r.Context(), rec); err != nil {
		h.log.WithError(err).Warn("Failed to record cache clear audit")
	}

	h.log.WithFields(logrus.Fields{
		"scope":     scope,
		"tenant_id": req.TenantID,
		"removed":   removed,
	}).Info("Cache invalidated")

	writeJSON(w, http.StatusOK, invalidateResponse{Removed: removed, Scope: scope})
}

// CacheStats returns the cache statistics snapshot.
func (h *AdminHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Statistics())
}

// TriggerHealthCheck runs one health-check pass synchronously and returns
// its summary. A run already in flight yields 409 rather than a second run.
func (h *AdminHandler) TriggerHealthCheck(w http.ResponseWriter, r *http.Request) {
	summary, err := h.checker.Run(r.Context())
	if err != nil {
		if errors.Is(err, health.ErrRunInProgress) {
			writeError(w, http.StatusConflict, "health check already running")
			return
		}
		h.log.WithError(err).Error("Manual health check run failed")
		writeError(w, http.StatusBadGateway, "health check failed: "+err.Error())
		return
	}

	if err := h.recorder.RecordHealthRun(r.Context(), *summary); err != nil {
		h.log.WithError(err).Warn("Failed to record health run audit")
	}

	writeJSON(w, http.StatusOK, summary)
}

type pricesRequest struct {
	TenantID string   `json:"tenant_id"`
	PlanIDs  []string `json:"plan_ids"`
}

// GetPrices is the internal price-lookup surface used by the assistant
// backend: cache first, ERP on miss.
func (h *AdminHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	var req pricesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	data, cached, err := h.prices.GetPrices(r.Context(), req.TenantID, req.PlanIDs)
	if err != nil {
		if errors.Is(err, pricecache.ErrNoPlanIDs) {
			writeError(w, http.StatusBadRequest, "plan_ids must not be empty")
			return
		}
		h.log.WithError(err).WithField("tenant_id", req.TenantID).Warn("Price lookup failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":   data,
		"cached": cached,
	})
}

func HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
