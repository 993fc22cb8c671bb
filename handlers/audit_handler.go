package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mssp-stack/portal-backend/audit"
	"github.com/mssp-stack/portal-backend/models"
	"github.com/mssp-stack/portal-backend/utils"
)

// AuditHandler serves the read-only audit trail queries backing the
// activity and change-history views
type AuditHandler struct {
	service *audit.Service
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(service *audit.Service) *AuditHandler {
	return &AuditHandler{service: service}
}

// SetupAuditRoutes configures the audit API routes
func (h *AuditHandler) SetupAuditRoutes(mux *http.ServeMux) {
	mux.Handle("/api/v1/audit/", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleAudit)))
}

// handleAudit dispatches audit-related routes
func (h *AuditHandler) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/audit"), "/")
	switch path {
	case "logs":
		h.getAuditLogs(w, r)
	case "changes":
		h.getChangeHistory(w, r)
	case "security-events":
		h.getSecurityEvents(w, r)
	case "data-access":
		h.getDataAccessLogs(w, r)
	default:
		utils.RespondWithError(w, http.StatusNotFound, "Endpoint not found", nil)
	}
}

func (h *AuditHandler) getAuditLogs(w http.ResponseWriter, r *http.Request) {
	filter := &models.AuditLogFilter{
		UserID:     queryPtr(r, "userId"),
		Action:     queryPtr(r, "action"),
		Category:   queryPtr(r, "category"),
		Severity:   queryPtr(r, "severity"),
		EntityType: queryPtr(r, "entityType"),
		EntityID:   queryPtr(r, "entityId"),
		Limit:      parseBoundedInt(r.URL.Query().Get("limit"), 0, 1000),
		Offset:     parseBoundedInt(r.URL.Query().Get("offset"), 0, 1<<20),
	}

	var err error
	if filter.StartDate, filter.EndDate, err = parseDateRange(r); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	response, err := h.service.GetAuditLogs(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, r, "query audit logs", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

func (h *AuditHandler) getChangeHistory(w http.ResponseWriter, r *http.Request) {
	filter := &models.ChangeHistoryFilter{
		EntityType: queryPtr(r, "entityType"),
		EntityID:   queryPtr(r, "entityId"),
		FieldName:  queryPtr(r, "fieldName"),
		ChangedBy:  queryPtr(r, "changedBy"),
		BatchID:    queryPtr(r, "batchId"),
		Limit:      parseBoundedInt(r.URL.Query().Get("limit"), 0, 1000),
		Offset:     parseBoundedInt(r.URL.Query().Get("offset"), 0, 1<<20),
	}

	var err error
	if filter.StartDate, filter.EndDate, err = parseDateRange(r); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	response, err := h.service.GetChangeHistory(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, r, "query change history", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

func (h *AuditHandler) getSecurityEvents(w http.ResponseWriter, r *http.Request) {
	filter := &models.SecurityEventFilter{
		EventType: queryPtr(r, "eventType"),
		UserID:    queryPtr(r, "userId"),
		IPAddress: queryPtr(r, "ipAddress"),
		Limit:     parseBoundedInt(r.URL.Query().Get("limit"), 0, 1000),
		Offset:    parseBoundedInt(r.URL.Query().Get("offset"), 0, 1<<20),
	}

	if raw := r.URL.Query().Get("success"); raw != "" {
		success, err := strconv.ParseBool(raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid success value, expected true or false", nil)
			return
		}
		filter.Success = &success
	}

	var err error
	if filter.StartDate, filter.EndDate, err = parseDateRange(r); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	response, err := h.service.GetSecurityEvents(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, r, "query security events", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

func (h *AuditHandler) getDataAccessLogs(w http.ResponseWriter, r *http.Request) {
	filter := &models.DataAccessLogFilter{
		UserID:     queryPtr(r, "userId"),
		EntityType: queryPtr(r, "entityType"),
		AccessType: queryPtr(r, "accessType"),
		Limit:      parseBoundedInt(r.URL.Query().Get("limit"), 0, 1000),
		Offset:     parseBoundedInt(r.URL.Query().Get("offset"), 0, 1<<20),
	}

	var err error
	if filter.StartDate, filter.EndDate, err = parseDateRange(r); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	response, err := h.service.GetDataAccessLogs(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, r, "query data access logs", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// queryPtr returns a pointer to the query parameter value, or nil when absent
func queryPtr(r *http.Request, key string) *string {
	if value := r.URL.Query().Get(key); value != "" {
		return &value
	}
	return nil
}

// parseDateRange reads the optional startDate/endDate query parameters as
// RFC3339 timestamps
func parseDateRange(r *http.Request) (*time.Time, *time.Time, error) {
	parse := func(key string) (*time.Time, error) {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s, expected RFC3339 timestamp", key)
		}
		return &t, nil
	}

	start, err := parse("startDate")
	if err != nil {
		return nil, nil, err
	}
	end, err := parse("endDate")
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}
