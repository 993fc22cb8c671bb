package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mssp-stack/portal-backend/middleware"
	"github.com/mssp-stack/portal-backend/models"
	"github.com/mssp-stack/portal-backend/services"
	"github.com/mssp-stack/portal-backend/utils"
)

// ClientHandler handles HTTP requests for client records
type ClientHandler struct {
	service *services.ClientService
}

// NewClientHandler creates a new client handler
func NewClientHandler(service *services.ClientService) *ClientHandler {
	return &ClientHandler{service: service}
}

// SetupClientRoutes configures the client API routes
func (h *ClientHandler) SetupClientRoutes(mux *http.ServeMux) {
	mux.Handle("/api/v1/clients", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleClients)))
	mux.Handle("/api/v1/clients/", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleClients)))
}

// handleClients dispatches client-related routes
func (h *ClientHandler) handleClients(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/clients")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	// Collection endpoint: GET /api/v1/clients and POST /api/v1/clients
	if len(parts) == 1 && parts[0] == "" {
		switch r.Method {
		case http.MethodGet:
			h.listClients(w, r)
		case http.MethodPost:
			h.createClient(w, r)
		default:
			utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
		return
	}

	if len(parts) != 1 {
		utils.RespondWithError(w, http.StatusNotFound, "Endpoint not found", nil)
		return
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid client ID", err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getClient(w, r, id)
	case http.MethodPut:
		h.updateClient(w, r, id)
	case http.MethodDelete:
		h.deleteClient(w, r, id)
	default:
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

func (h *ClientHandler) createClient(w http.ResponseWriter, r *http.Request) {
	var req models.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	client, err := h.service.CreateClient(r.Context(), middleware.GetLogger(r.Context()), &req)
	if err != nil {
		respondWithServiceError(w, r, "create client", err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, client)
}

func (h *ClientHandler) listClients(w http.ResponseWriter, r *http.Request) {
	filter := &models.ClientFilter{
		Limit:  parseBoundedInt(r.URL.Query().Get("limit"), 0, 1000),
		Offset: parseBoundedInt(r.URL.Query().Get("offset"), 0, 1<<20),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = &status
	}
	if industry := r.URL.Query().Get("industry"); industry != "" {
		filter.Industry = &industry
	}
	if search := r.URL.Query().Get("search"); search != "" {
		filter.Search = &search
	}

	response, err := h.service.ListClients(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, r, "list clients", err)
		return
	}

	if logger := middleware.GetLogger(r.Context()); logger != nil {
		logger.LogList(r.Context(), "client", len(response.Clients))
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}

func (h *ClientHandler) getClient(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	client, err := h.service.GetClient(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, "get client", err)
		return
	}
	if client == nil {
		utils.RespondWithError(w, http.StatusNotFound, "Client not found", nil)
		return
	}

	if logger := middleware.GetLogger(r.Context()); logger != nil {
		logger.LogView(r.Context(), "client", id.String())
	}

	utils.RespondWithJSON(w, http.StatusOK, client)
}

func (h *ClientHandler) updateClient(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req models.UpdateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	client, err := h.service.UpdateClient(r.Context(), middleware.GetLogger(r.Context()), id, &req)
	if err != nil {
		respondWithServiceError(w, r, "update client", err)
		return
	}
	if client == nil {
		utils.RespondWithError(w, http.StatusNotFound, "Client not found", nil)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, client)
}

func (h *ClientHandler) deleteClient(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.service.DeleteClient(r.Context(), middleware.GetLogger(r.Context()), id); err != nil {
		respondWithServiceError(w, r, "delete client", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondWithServiceError maps service-layer errors onto HTTP status codes
func respondWithServiceError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	switch {
	case services.IsValidationError(err):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error(), nil)
	case services.IsConflictError(err):
		utils.RespondWithError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error(), nil)
	default:
		slog.Error("Request failed", "operation", operation, "path", r.URL.Path, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to "+operation, nil)
	}
}
