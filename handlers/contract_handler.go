package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mssp-stack/portal-backend/middleware"
	"github.com/mssp-stack/portal-backend/models"
	"github.com/mssp-stack/portal-backend/services"
	"github.com/mssp-stack/portal-backend/utils"
)

// ContractHandler handles HTTP requests for contract records
type ContractHandler struct {
	service *services.ContractService
}

// NewContractHandler creates a new contract handler
func NewContractHandler(service *services.ContractService) *ContractHandler {
	return &ContractHandler{service: service}
}

// SetupContractRoutes configures the contract API routes
func (h *ContractHandler) SetupContractRoutes(mux *http.ServeMux) {
	mux.Handle("/api/v1/contracts", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleContracts)))
	mux.Handle("/api/v1/contracts/", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleContracts)))
}

// handleContracts dispatches contract-related routes
func (h *ContractHandler) handleContracts(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/contracts")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	// Collection endpoint: GET /api/v1/contracts and POST /api/v1/contracts
	if len(parts) == 1 && parts[0] == "" {
		switch r.Method {
		case http.MethodGet:
			h.listContracts(w, r)
		case http.MethodPost:
			h.createContract(w, r)
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
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid contract ID", err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getContract(w, r, id)
	case http.MethodPut:
		h.updateContract(w, r, id)
	case http.MethodDelete:
		h.deleteContract(w, r, id)
	default:
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

func (h *ContractHandler) createContract(w http.ResponseWriter, r *http.Request) {
	var req models.CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	contract, err := h.service.CreateContract(r.Context(), middleware.GetLogger(r.Context()), &req)
	if err != nil {
		respondWithServiceError(w, r, "create contract", err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, contract)
}

func (h *ContractHandler) listContracts(w http.ResponseWriter, r *http.Request) {
	filter := &models.ContractFilter{
		Limit:  parseBoundedInt(r.URL.Query().Get("limit"), 0, 1000),
		Offset: parseBoundedInt(r.URL.Query().Get("offset"), 0, 1<<20),
	}
	if clientID := r.URL.Query().Get("clientId"); clientID != "" {
		filter.ClientID = &clientID
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = &status
	}

	response, err := h.service.ListContracts(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, r, "list contracts", err)
		return
	}

	if logger := middleware.GetLogger(r.Context()); logger != nil {
		logger.LogList(r.Context(), "contract", len(response.Contracts))
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}

func (h *ContractHandler) getContract(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	contract, err := h.service.GetContract(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, "get contract", err)
		return
	}
	if contract == nil {
		utils.RespondWithError(w, http.StatusNotFound, "Contract not found", nil)
		return
	}

	if logger := middleware.GetLogger(r.Context()); logger != nil {
		logger.LogView(r.Context(), "contract", id.String())
	}

	utils.RespondWithJSON(w, http.StatusOK, contract)
}

func (h *ContractHandler) updateContract(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req models.UpdateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	contract, err := h.service.UpdateContract(r.Context(), middleware.GetLogger(r.Context()), id, &req)
	if err != nil {
		respondWithServiceError(w, r, "update contract", err)
		return
	}
	if contract == nil {
		utils.RespondWithError(w, http.StatusNotFound, "Contract not found", nil)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, contract)
}

func (h *ContractHandler) deleteContract(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.service.DeleteContract(r.Context(), middleware.GetLogger(r.Context()), id); err != nil {
		respondWithServiceError(w, r, "delete contract", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
