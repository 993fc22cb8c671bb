package relationship

import (
	"github.com/mssp-stack/portal-backend/registry"
)

// joinRule traverses a many-to-many join table instead of a direct foreign key
type joinRule struct {
	// Table is the join table name
	Table string
	// SourceKey is the join-table column referencing the queried entity
	SourceKey string
	// TargetKey is the join-table column referencing the target entity
	TargetKey string
}

// forwardRule describes one ownership/containment traversal: rows of Target
// whose ForeignKey column references the queried entity (or, when Join is
// set, rows reachable through the join table)
type forwardRule struct {
	Target       registry.EntityType
	RelationType RelationType
	ForeignKey   string
	Join         *joinRule
}

// reverseRule describes the mirror lookup: the queried entity's own
// ForeignKey column names its parent. At most one reverse relationship is
// emitted per rule; a null foreign key emits nothing.
type reverseRule struct {
	Parent       registry.EntityType
	RelationType RelationType
	ForeignKey   string
}

// forwardRules is intentionally non-exhaustive: entity types without an entry
// simply produce no forward edges until a rule is added here.
var forwardRules = map[registry.EntityType][]forwardRule{
	registry.EntityClient: {
		{Target: registry.EntityContract, RelationType: RelationOwns, ForeignKey: "client_id"},
		{Target: registry.EntityHardwareAsset, RelationType: RelationAssigned, Join: &joinRule{
			Table:     "client_hardware_assignments",
			SourceKey: "client_id",
			TargetKey: "hardware_asset_id",
		}},
		{Target: registry.EntitySAF, RelationType: RelationOwns, ForeignKey: "client_id"},
		{Target: registry.EntityCOC, RelationType: RelationOwns, ForeignKey: "client_id"},
	},
	registry.EntityContract: {
		{Target: registry.EntityServiceScope, RelationType: RelationContains, ForeignKey: "contract_id"},
		{Target: registry.EntityProposal, RelationType: RelationContains, ForeignKey: "contract_id"},
		{Target: registry.EntityFinancialTransaction, RelationType: RelationContains, ForeignKey: "contract_id"},
	},
	registry.EntitySAF: {
		{Target: registry.EntityCOC, RelationType: RelationAuthorizes, ForeignKey: "saf_id"},
		{Target: registry.EntityServiceScope, RelationType: RelationAuthorizes, ForeignKey: "saf_id"},
	},
}

// reverseRules covers the child types whose parent link is worth surfacing.
// Each reverse rule mirrors a forward rule (same relation type read from the
// other endpoint) so the shared edges carry identical IDs. Coverage is
// deliberately partial; children without an entry surface no parent edge.
var reverseRules = map[registry.EntityType][]reverseRule{
	registry.EntityContract: {
		{Parent: registry.EntityClient, RelationType: RelationOwns, ForeignKey: "client_id"},
	},
	registry.EntityServiceScope: {
		{Parent: registry.EntityContract, RelationType: RelationContains, ForeignKey: "contract_id"},
	},
	registry.EntityCOC: {
		{Parent: registry.EntitySAF, RelationType: RelationAuthorizes, ForeignKey: "saf_id"},
		{Parent: registry.EntityClient, RelationType: RelationOwns, ForeignKey: "client_id"},
	},
}
