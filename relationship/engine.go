package relationship

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/mssp-stack/portal-backend/monitoring"
	"github.com/mssp-stack/portal-backend/registry"
)

// Engine computes relationships between entities on demand from foreign
// keys. It owns no persistent state; every public method is a pure read that
// degrades to an empty result on failure so a broken lookup never takes down
// the detail page it backs.
type Engine struct {
	db       *gorm.DB
	registry *registry.Registry
}

// NewEngine creates a relationship engine over the given database handle
func NewEngine(db *gorm.DB, reg *registry.Registry) *Engine {
	return &Engine{db: db, registry: reg}
}

// CreateRelationship builds one edge. The source side is resolved through the
// registry (one DB round-trip); the target side is transformed directly from
// the already-fetched row. The edge ID is deterministic, so the same logical
// edge gets the same ID on every request.
func (e *Engine) CreateRelationship(
	ctx context.Context,
	sourceType registry.EntityType, sourceID string,
	targetType registry.EntityType, targetID string,
	relType RelationType,
	targetRow map[string]interface{},
	isReverse bool,
) *Relationship {
	now := time.Now().UTC()
	return &Relationship{
		ID:               fmt.Sprintf("%s:%s->%s:%s", sourceType, sourceID, targetType, targetID),
		SourceEntity:     e.registry.GetEntity(ctx, sourceType, sourceID),
		TargetEntity:     registry.ToReference(targetType, targetRow),
		RelationshipType: relType,
		IsReverse:        isReverse,
		Strength:         relationshipStrength,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// GetForwardRelationships returns the ownership/containment edges discovered
// by the queried entity's traversal rules. Unregistered entity types yield an
// empty list, not an error. Each traversal branch is capped at opts.Limit rows.
func (e *Engine) GetForwardRelationships(ctx context.Context, entityType registry.EntityType, id string, opts Options) []Relationship {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultRelationshipLimit
	}

	rules, ok := forwardRules[entityType]
	if !ok {
		return []Relationship{}
	}

	relationships := make([]Relationship, 0)
	for _, rule := range rules {
		rows, err := e.fetchChildRows(ctx, rule, id, limit)
		if err != nil {
			slog.Error("Failed to traverse forward relationships",
				"sourceType", entityType, "sourceId", id, "targetType", rule.Target, "error", err)
			continue
		}
		for _, row := range rows {
			targetID := registry.StringValue(row["id"])
			rel := e.CreateRelationship(ctx, entityType, id, rule.Target, targetID, rule.RelationType, row, false)
			relationships = append(relationships, *rel)
		}
	}
	return relationships
}

// fetchChildRows runs one traversal query: child rows referencing the source
// entity directly, or through the rule's join table
func (e *Engine) fetchChildRows(ctx context.Context, rule forwardRule, sourceID string, limit int) ([]map[string]interface{}, error) {
	desc, ok := registry.Lookup(rule.Target)
	if !ok {
		return nil, fmt.Errorf("no descriptor registered for entity type %s", rule.Target)
	}

	rows := make([]map[string]interface{}, 0)
	query := e.db.WithContext(ctx).Table(desc.Table)
	if rule.Join != nil {
		join := rule.Join
		query = query.
			Select(desc.Table+".*").
			Joins(fmt.Sprintf("JOIN %s ON %s.%s = %s.id", join.Table, join.Table, join.TargetKey, desc.Table)).
			Where(fmt.Sprintf("%s.%s = ?", join.Table, join.SourceKey), sourceID)
	} else {
		query = query.Where(fmt.Sprintf("%s = ?", rule.ForeignKey), sourceID)
	}
	start := time.Now()
	err := query.Limit(limit).Find(&rows).Error
	monitoring.RecordDBLatency(ctx, "postgres", "relationship_fetch", time.Since(start))
	return rows, err
}

// GetReverseRelationships returns the parent edges named by the queried
// entity's own foreign keys. At most one relationship per foreign key; a null
// foreign key emits nothing.
func (e *Engine) GetReverseRelationships(ctx context.Context, entityType registry.EntityType, id string, opts Options) []Relationship {
	rules, ok := reverseRules[entityType]
	if !ok {
		return []Relationship{}
	}

	row, found := e.registry.GetRow(ctx, entityType, id)
	if !found {
		return []Relationship{}
	}

	relationships := make([]Relationship, 0, len(rules))
	for _, rule := range rules {
		parentID := registry.StringValue(row[rule.ForeignKey])
		if parentID == "" {
			continue
		}
		// Source is the parent so the edge ID matches its forward twin
		rel := e.CreateRelationship(ctx, rule.Parent, parentID, entityType, id, rule.RelationType, row, true)
		relationships = append(relationships, *rel)
	}
	return relationships
}

// GetEntityRelationships returns forward and reverse edges grouped by
// relationship type, in first-occurrence order
func (e *Engine) GetEntityRelationships(ctx context.Context, entityType registry.EntityType, id string, opts Options) []Group {
	forward := e.GetForwardRelationships(ctx, entityType, id, opts)
	reverse := e.GetReverseRelationships(ctx, entityType, id, opts)

	all := make([]Relationship, 0, len(forward)+len(reverse))
	all = append(all, forward...)
	all = append(all, reverse...)

	groups := make([]Group, 0)
	index := make(map[RelationType]int)
	for _, rel := range all {
		i, ok := index[rel.RelationshipType]
		if !ok {
			index[rel.RelationshipType] = len(groups)
			groups = append(groups, Group{RelationshipType: rel.RelationshipType})
			i = len(groups) - 1
		}
		groups[i].Relationships = append(groups[i].Relationships, rel)
		groups[i].Count++
	}
	return groups
}

// GetRelationshipStats reduces an entity's relationship groups to counts
func (e *Engine) GetRelationshipStats(ctx context.Context, entityType registry.EntityType, id string) Stats {
	stats := Stats{RelationshipTypes: make(map[RelationType]int)}
	for _, group := range e.GetEntityRelationships(ctx, entityType, id, Options{}) {
		stats.TotalRelationships += group.Count
		stats.RelationshipTypes[group.RelationshipType] = group.Count
	}
	return stats
}

// GetRelatedEntities filters the relationship graph down to one related
// entity type, optionally by relationship type (empty means any), and
// de-duplicates by (type, id) with first-occurrence semantics.
func (e *Engine) GetRelatedEntities(ctx context.Context, entityType registry.EntityType, id string, relatedType registry.EntityType, relationType RelationType) []registry.Reference {
	groups := e.GetEntityRelationships(ctx, entityType, id, Options{})

	seen := make(map[string]struct{})
	related := make([]registry.Reference, 0)
	for _, group := range groups {
		if relationType != "" && group.RelationshipType != relationType {
			continue
		}
		for _, rel := range group.Relationships {
			candidate := relatedEndpoint(rel, entityType, id, relatedType)
			if candidate == nil {
				continue
			}
			key := string(candidate.Type) + ":" + candidate.ID
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			related = append(related, *candidate)
		}
	}
	return related
}

// relatedEndpoint picks whichever end of the edge is the requested type and
// is not the queried entity itself
func relatedEndpoint(rel Relationship, entityType registry.EntityType, id string, relatedType registry.EntityType) *registry.Reference {
	if ref := rel.TargetEntity; ref != nil && ref.Type == relatedType {
		if !(ref.Type == entityType && ref.ID == id) {
			return ref
		}
	}
	if ref := rel.SourceEntity; ref != nil && ref.Type == relatedType {
		if !(ref.Type == entityType && ref.ID == id) {
			return ref
		}
	}
	return nil
}
