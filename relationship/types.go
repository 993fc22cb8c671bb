package relationship

import (
	"time"

	"github.com/mssp-stack/portal-backend/registry"
)

// RelationType classifies a discovered edge. The vocabulary is shared with
// the route layer and the frontend.
type RelationType string

const (
	RelationOwns       RelationType = "OWNS"
	RelationContains   RelationType = "CONTAINS"
	RelationAuthorizes RelationType = "AUTHORIZES"
	RelationAssigned   RelationType = "ASSIGNED"
)

// DefaultRelationshipLimit caps each traversal branch when the caller does
// not supply a limit
const DefaultRelationshipLimit = 50

// relationshipStrength is a placeholder weight carried on every edge, not a
// computed value
const relationshipStrength = 5

// Relationship is a directed edge discovered at query time from foreign keys.
// Never persisted; recomputed per request. A reverse relationship is the
// mirror image of a forward one discovered from the other endpoint, so both
// carry the same ID.
type Relationship struct {
	ID               string              `json:"id"`
	SourceEntity     *registry.Reference `json:"sourceEntity"`
	TargetEntity     *registry.Reference `json:"targetEntity"`
	RelationshipType RelationType        `json:"relationshipType"`
	IsReverse        bool                `json:"isReverse"`
	Strength         int                 `json:"strength"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// Group buckets relationships by type
type Group struct {
	RelationshipType RelationType   `json:"relationshipType"`
	Count            int            `json:"count"`
	Relationships    []Relationship `json:"relationships"`
}

// Stats summarizes an entity's relationship graph
type Stats struct {
	TotalRelationships int                  `json:"totalRelationships"`
	RelationshipTypes  map[RelationType]int `json:"relationshipTypes"`
}

// Options tunes a relationship lookup
type Options struct {
	// Limit caps the rows fetched per traversal branch; zero means the default
	Limit int
}
