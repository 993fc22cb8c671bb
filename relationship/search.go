package relationship

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mssp-stack/portal-backend/monitoring"
	"github.com/mssp-stack/portal-backend/registry"
)

const (
	// DefaultSearchLimit applies when the caller does not supply a limit
	DefaultSearchLimit = 20
	// perTypeSearchCap keeps any single entity type from starving the rest
	perTypeSearchCap = 10
)

// SearchOptions tunes a cross-entity text search
type SearchOptions struct {
	Query       string
	EntityTypes []registry.EntityType
	Limit       int
	Offset      int
}

// SearchResult is one page of matches. Total is the count returned in this
// page, not a true matching count; a full count would need a second query per
// type.
type SearchResult struct {
	Entities []registry.Reference `json:"entities"`
	Total    int                  `json:"total"`
	HasMore  bool                 `json:"hasMore"`
}

// SearchEntities runs a case-insensitive substring match across each entity
// type's searchable columns, accumulating results until the limit is reached.
// Each type contributes at most perTypeSearchCap rows. Unregistered requested
// types are skipped silently, and a per-type query failure degrades to zero
// matches for that type.
func (e *Engine) SearchEntities(ctx context.Context, opts SearchOptions) SearchResult {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return SearchResult{Entities: []registry.Reference{}}
	}
	pattern := "%" + strings.ToLower(query) + "%"

	types := opts.EntityTypes
	if len(types) == 0 {
		types = registry.Types()
	}

	entities := make([]registry.Reference, 0, limit)
	for _, entityType := range types {
		if len(entities) >= limit {
			break
		}
		desc, ok := registry.Lookup(entityType)
		if !ok {
			continue
		}

		perType := limit - len(entities)
		if perType > perTypeSearchCap {
			perType = perTypeSearchCap
		}

		rows, err := e.searchTable(ctx, desc, pattern, perType, opts.Offset)
		if err != nil {
			slog.Error("Failed to search entity type", "entityType", entityType, "query", query, "error", err)
			continue
		}
		for _, row := range rows {
			if ref := registry.ToReference(entityType, row); ref != nil {
				entities = append(entities, *ref)
			}
		}
	}

	return SearchResult{
		Entities: entities,
		Total:    len(entities),
		HasMore:  len(entities) == limit,
	}
}

// searchTable matches the pattern against every searchable column of one type.
// LOWER(...) LIKE keeps the match case-insensitive on both postgres and sqlite.
func (e *Engine) searchTable(ctx context.Context, desc registry.Descriptor, pattern string, limit, offset int) ([]map[string]interface{}, error) {
	conditions := make([]string, 0, len(desc.SearchColumns))
	args := make([]interface{}, 0, len(desc.SearchColumns))
	for _, col := range desc.SearchColumns {
		conditions = append(conditions, "LOWER("+col+") LIKE ?")
		args = append(args, pattern)
	}

	rows := make([]map[string]interface{}, 0)
	start := time.Now()
	err := e.db.WithContext(ctx).
		Table(desc.Table).
		Where(strings.Join(conditions, " OR "), args...).
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	monitoring.RecordDBLatency(ctx, "postgres", "entity_search", time.Since(start))
	return rows, err
}
