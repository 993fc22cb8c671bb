package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/mssp-stack/portal-backend/utils"
)

// HealthHandler reports service liveness and database reachability
type HealthHandler struct {
	db          *gorm.DB
	serviceName string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB, serviceName string) *HealthHandler {
	return &HealthHandler{db: db, serviceName: serviceName}
}

// SetupHealthRoutes configures the health check route
func (h *HealthHandler) SetupHealthRoutes(mux *http.ServeMux) {
	mux.Handle("/health", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleHealth)))
}

type dbHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthStatus struct {
	Status   string   `json:"status"`
	Service  string   `json:"service"`
	Database dbHealth `json:"database"`
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	status := healthStatus{
		Status:   "healthy",
		Service:  h.serviceName,
		Database: dbHealth{Status: "healthy"},
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.db == nil {
		status.Database = dbHealth{Status: "unhealthy", Error: "database connection is nil"}
	} else if sqlDB, err := h.db.DB(); err != nil {
		status.Database = dbHealth{Status: "unhealthy", Error: fmt.Sprintf("failed to get sql.DB: %v", err)}
	} else if err := sqlDB.PingContext(ctx); err != nil {
		status.Database = dbHealth{Status: "unhealthy", Error: err.Error()}
	}

	statusCode := http.StatusOK
	if status.Database.Status != "healthy" {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	utils.RespondWithJSON(w, statusCode, status)
}
