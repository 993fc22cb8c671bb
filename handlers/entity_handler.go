package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/mssp-stack/portal-backend/middleware"
	"github.com/mssp-stack/portal-backend/registry"
	"github.com/mssp-stack/portal-backend/relationship"
	"github.com/mssp-stack/portal-backend/utils"
)

// EntityHandler serves the generic entity surface: type listing, lookups,
// cross-entity search, and the relationship graph
type EntityHandler struct {
	registry *registry.Registry
	engine   *relationship.Engine
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(reg *registry.Registry, engine *relationship.Engine) *EntityHandler {
	return &EntityHandler{registry: reg, engine: engine}
}

// SetupEntityRoutes configures the entity API routes
func (h *EntityHandler) SetupEntityRoutes(mux *http.ServeMux) {
	mux.Handle("/api/v1/entity-types", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleEntityTypes)))
	mux.Handle("/api/v1/entities/search", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleSearch)))
	mux.Handle("/api/v1/entities/", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleEntities)))
}

// entityTypeInfo is the API projection of a registry descriptor
type entityTypeInfo struct {
	Type  registry.EntityType `json:"type"`
	Label string              `json:"label"`
	Table string              `json:"table"`
}

// handleEntityTypes handles GET /api/v1/entity-types
func (h *EntityHandler) handleEntityTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	types := registry.Types()
	infos := make([]entityTypeInfo, 0, len(types))
	for _, entityType := range types {
		desc, ok := registry.Lookup(entityType)
		if !ok {
			continue
		}
		infos = append(infos, entityTypeInfo{Type: entityType, Label: desc.Label, Table: desc.Table})
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"entityTypes": infos,
		"count":       len(infos),
	})
}

// handleSearch handles GET /api/v1/entities/search
func (h *EntityHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Search query (q) is required", nil)
		return
	}

	opts := relationship.SearchOptions{
		Query:  query,
		Limit:  parseBoundedInt(r.URL.Query().Get("limit"), 0, relationship.DefaultSearchLimit*5),
		Offset: parseBoundedInt(r.URL.Query().Get("offset"), 0, 1<<20),
	}
	if typesParam := r.URL.Query().Get("types"); typesParam != "" {
		for _, raw := range strings.Split(typesParam, ",") {
			if trimmed := strings.TrimSpace(raw); trimmed != "" {
				opts.EntityTypes = append(opts.EntityTypes, registry.EntityType(trimmed))
			}
		}
	}

	result := h.engine.SearchEntities(r.Context(), opts)

	if logger := middleware.GetLogger(r.Context()); logger != nil {
		logger.LogSearch(r.Context(), "entity", query, result.Total)
	}

	utils.RespondWithJSON(w, http.StatusOK, result)
}

// handleEntities dispatches the /api/v1/entities/{type}/{id}... subtree
func (h *EntityHandler) handleEntities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/entities")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Entity type and ID are required", nil)
		return
	}

	entityType := registry.EntityType(parts[0])
	entityID := parts[1]

	switch {
	case len(parts) == 2:
		h.getEntity(w, r, entityType, entityID)
	case len(parts) == 3 && parts[2] == "relationships":
		h.getRelationships(w, r, entityType, entityID)
	case len(parts) == 4 && parts[2] == "relationships" && parts[3] == "stats":
		h.getRelationshipStats(w, r, entityType, entityID)
	case len(parts) == 4 && parts[2] == "related" && parts[3] != "":
		h.getRelatedEntities(w, r, entityType, entityID, registry.EntityType(parts[3]))
	default:
		utils.RespondWithError(w, http.StatusNotFound, "Endpoint not found", nil)
	}
}

// getEntity handles GET /api/v1/entities/{type}/{id}. Unknown types and
// missing rows both read as "not found"; the lookup itself never errors.
func (h *EntityHandler) getEntity(w http.ResponseWriter, r *http.Request, entityType registry.EntityType, id string) {
	entity := h.registry.GetEntity(r.Context(), entityType, id)
	if entity == nil {
		utils.RespondWithError(w, http.StatusNotFound, "Entity not found", nil)
		return
	}

	if logger := middleware.GetLogger(r.Context()); logger != nil {
		logger.LogView(r.Context(), string(entityType), id)
	}

	utils.RespondWithJSON(w, http.StatusOK, entity)
}

// getRelationships handles GET /api/v1/entities/{type}/{id}/relationships
func (h *EntityHandler) getRelationships(w http.ResponseWriter, r *http.Request, entityType registry.EntityType, id string) {
	opts := relationship.Options{
		Limit: parseBoundedInt(r.URL.Query().Get("limit"), 0, 1000),
	}

	groups := h.engine.GetEntityRelationships(r.Context(), entityType, id, opts)

	total := 0
	for _, group := range groups {
		total += group.Count
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"relationships": groups,
		"count":         total,
	})
}

// getRelationshipStats handles GET /api/v1/entities/{type}/{id}/relationships/stats
func (h *EntityHandler) getRelationshipStats(w http.ResponseWriter, r *http.Request, entityType registry.EntityType, id string) {
	stats := h.engine.GetRelationshipStats(r.Context(), entityType, id)
	utils.RespondWithJSON(w, http.StatusOK, stats)
}

// getRelatedEntities handles GET /api/v1/entities/{type}/{id}/related/{relatedType}
func (h *EntityHandler) getRelatedEntities(w http.ResponseWriter, r *http.Request, entityType registry.EntityType, id string, relatedType registry.EntityType) {
	if !registry.IsValidType(relatedType) {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown related entity type", nil)
		return
	}

	relationType := relationship.RelationType(r.URL.Query().Get("relationshipType"))
	related := h.engine.GetRelatedEntities(r.Context(), entityType, id, relatedType, relationType)

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"entities": related,
		"count":    len(related),
	})
}

// parseBoundedInt parses a positive query integer, returning zero for
// missing, malformed, or out-of-range values so callers fall back to their
// defaults
func parseBoundedInt(raw string, min, max int) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < min || value > max {
		return 0
	}
	return value
}
