package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntityType identifies which business table a record belongs to.
// Tags are shared with the route layer and the frontend, so renaming one is a
// breaking change for API consumers.
type EntityType string

const (
	EntityClient               EntityType = "client"
	EntityContract             EntityType = "contract"
	EntityServiceScope         EntityType = "service_scope"
	EntityHardwareAsset        EntityType = "hardware_asset"
	EntitySAF                  EntityType = "saf"
	EntityCOC                  EntityType = "coc"
	EntityProposal             EntityType = "proposal"
	EntityDocument             EntityType = "document"
	EntityFinancialTransaction EntityType = "financial_transaction"
	EntityLicensePool          EntityType = "license_pool"
	EntityService              EntityType = "service"
	EntityUser                 EntityType = "user"
	EntityAuditLog             EntityType = "audit_log"
)

// Descriptor describes how one entity type is stored and presented
type Descriptor struct {
	// Table is the storage table holding rows of this type
	Table string
	// Label is the human-readable type name shown in API responses
	Label string
	// NameColumns are joined in declaration order to build the display name
	NameColumns []string
	// SearchColumns are matched by cross-entity text search
	SearchColumns []string
	// DisplayColumns are projected into Reference.Fields
	DisplayColumns []string
}

// entityTypes preserves a stable ordering for iteration; Go map order is random
var entityTypes = []EntityType{
	EntityClient,
	EntityContract,
	EntityServiceScope,
	EntityHardwareAsset,
	EntitySAF,
	EntityCOC,
	EntityProposal,
	EntityDocument,
	EntityFinancialTransaction,
	EntityLicensePool,
	EntityService,
	EntityUser,
	EntityAuditLog,
}

// descriptors is the single source of truth mapping an entity type to its
// table and presentation rules. Initialized once at package load and never
// mutated afterwards, so concurrent reads need no locking.
// Adding a new entity type means adding one constant and one entry here.
var descriptors = map[EntityType]Descriptor{
	EntityClient: {
		Table:          "clients",
		Label:          "Client",
		NameColumns:    []string{"name"},
		SearchColumns:  []string{"name", "industry", "contact_name", "contact_email"},
		DisplayColumns: []string{"name", "industry", "status"},
	},
	EntityContract: {
		Table:          "contracts",
		Label:          "Contract",
		NameColumns:    []string{"contract_number", "title"},
		SearchColumns:  []string{"contract_number", "title", "description"},
		DisplayColumns: []string{"contract_number", "title", "status"},
	},
	EntityServiceScope: {
		Table:          "service_scopes",
		Label:          "Service Scope",
		NameColumns:    []string{"name"},
		SearchColumns:  []string{"name", "description"},
		DisplayColumns: []string{"name", "status"},
	},
	EntityHardwareAsset: {
		Table:          "hardware_assets",
		Label:          "Hardware Asset",
		NameColumns:    []string{"asset_tag"},
		SearchColumns:  []string{"asset_tag", "serial_number", "manufacturer", "model"},
		DisplayColumns: []string{"asset_tag", "manufacturer", "model", "status"},
	},
	EntitySAF: {
		Table:          "service_authorization_forms",
		Label:          "Service Authorization Form",
		NameColumns:    []string{"saf_number", "title"},
		SearchColumns:  []string{"saf_number", "title", "description"},
		DisplayColumns: []string{"saf_number", "title", "status"},
	},
	EntityCOC: {
		Table:          "certificates_of_compliance",
		Label:          "Certificate of Compliance",
		NameColumns:    []string{"certificate_number", "title"},
		SearchColumns:  []string{"certificate_number", "title", "standard"},
		DisplayColumns: []string{"certificate_number", "title", "status"},
	},
	EntityProposal: {
		Table:          "proposals",
		Label:          "Proposal",
		NameColumns:    []string{"title"},
		SearchColumns:  []string{"title", "notes"},
		DisplayColumns: []string{"title", "status"},
	},
	EntityDocument: {
		Table:          "documents",
		Label:          "Document",
		NameColumns:    []string{"name"},
		SearchColumns:  []string{"name", "file_name", "category"},
		DisplayColumns: []string{"name", "file_name", "category"},
	},
	EntityFinancialTransaction: {
		Table:          "financial_transactions",
		Label:          "Financial Transaction",
		NameColumns:    []string{"reference"},
		SearchColumns:  []string{"reference", "description"},
		DisplayColumns: []string{"transaction_type", "amount", "status"},
	},
	EntityLicensePool: {
		Table:          "license_pools",
		Label:          "License Pool",
		NameColumns:    []string{"name"},
		SearchColumns:  []string{"name", "vendor", "product_name"},
		DisplayColumns: []string{"name", "vendor", "status"},
	},
	EntityService: {
		Table:          "services",
		Label:          "Service",
		NameColumns:    []string{"name"},
		SearchColumns:  []string{"name", "category", "description"},
		DisplayColumns: []string{"name", "category"},
	},
	EntityUser: {
		Table:          "users",
		Label:          "User",
		NameColumns:    []string{"first_name", "last_name"},
		SearchColumns:  []string{"email", "first_name", "last_name"},
		DisplayColumns: []string{"email", "role"},
	},
	EntityAuditLog: {
		Table:          "audit_logs",
		Label:          "Audit Log",
		NameColumns:    []string{"action"},
		SearchColumns:  []string{"description"},
		DisplayColumns: []string{"action", "category", "severity"},
	},
}

// Reference is a normalized, type-tagged projection of any business record.
// Created on demand, never persisted.
type Reference struct {
	ID     string                 `json:"id"`
	Type   EntityType             `json:"type"`
	Name   string                 `json:"name"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// Types returns every registered entity type in a stable order
func Types() []EntityType {
	out := make([]EntityType, len(entityTypes))
	copy(out, entityTypes)
	return out
}

// Lookup returns the descriptor for an entity type
func Lookup(entityType EntityType) (Descriptor, bool) {
	desc, ok := descriptors[entityType]
	return desc, ok
}

// IsValidType reports whether the entity type is registered
func IsValidType(entityType EntityType) bool {
	_, ok := descriptors[entityType]
	return ok
}

// DisplayName builds the human-readable name for a raw row by joining the
// descriptor's name columns. Falls back to "<Label> <id>" when every name
// column is empty.
func (d Descriptor) DisplayName(row map[string]interface{}) string {
	parts := make([]string, 0, len(d.NameColumns))
	for _, col := range d.NameColumns {
		if s := StringValue(row[col]); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(fmt.Sprintf("%s %s", d.Label, StringValue(row["id"])))
	}
	return strings.Join(parts, " ")
}

// ToReference is the transformer turning a raw row into a normalized
// Reference. Returns nil for unregistered types so callers can treat
// "unknown type" uniformly with "missing row".
func ToReference(entityType EntityType, row map[string]interface{}) *Reference {
	desc, ok := descriptors[entityType]
	if !ok {
		return nil
	}
	fields := make(map[string]interface{}, len(desc.DisplayColumns))
	for _, col := range desc.DisplayColumns {
		if v, exists := row[col]; exists && v != nil {
			fields[col] = v
		}
	}
	return &Reference{
		ID:     StringValue(row["id"]),
		Type:   entityType,
		Name:   desc.DisplayName(row),
		Fields: fields,
	}
}

// Registry resolves entity references against the database
type Registry struct {
	db *gorm.DB
}

// NewRegistry creates a registry bound to a database handle
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// GetRow fetches a raw row by primary key. Returns (nil, false) for unknown
// types, missing rows, and query failures alike; failures are logged but
// never propagated because entity lookups are advisory, not critical-path.
func (r *Registry) GetRow(ctx context.Context, entityType EntityType, id string) (map[string]interface{}, bool) {
	desc, ok := descriptors[entityType]
	if !ok {
		slog.Warn("Unknown entity type", "entityType", entityType, "id", id)
		return nil, false
	}

	row := map[string]interface{}{}
	// Take instead of First: map destinations have no primary key to order by
	err := r.db.WithContext(ctx).Table(desc.Table).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false
		}
		slog.Error("Failed to fetch entity", "entityType", entityType, "id", id, "error", err)
		return nil, false
	}
	return row, true
}

// GetEntity fetches a row by primary key and transforms it into a Reference.
// Never returns an error: unknown types, missing rows, and storage failures
// all yield nil.
func (r *Registry) GetEntity(ctx context.Context, entityType EntityType, id string) *Reference {
	row, ok := r.GetRow(ctx, entityType, id)
	if !ok {
		return nil
	}
	return ToReference(entityType, row)
}

// StringValue normalizes the driver-specific representations a scanned
// column value can take (uuid bytes on postgres, text on sqlite)
func StringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case [16]byte:
		return uuid.UUID(t).String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
