package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mssp-stack/portal-backend/config"
	"github.com/stretchr/testify/assert"
)

func TestJSONMap_Value_Scan(t *testing.T) {
	m := JSONMap{"key": "value", "number": 123.0}

	// Test Value
	val, err := m.Value()
	assert.NoError(t, err)
	assert.NotNil(t, val)

	// Test Scan
	var m2 JSONMap
	err = m2.Scan(val)
	assert.NoError(t, err)
	assert.Equal(t, m["key"], m2["key"])
	assert.Equal(t, m["number"], m2["number"])

	// Test Scan with string
	jsonStr := `{"key": "value", "number": 123.0}`
	var m3 JSONMap
	err = m3.Scan(jsonStr)
	assert.NoError(t, err)
	assert.Equal(t, m["key"], m3["key"])

	// Test Scan with nil
	var m4 JSONMap
	err = m4.Scan(nil)
	assert.NoError(t, err)
	assert.Nil(t, m4)
}

func TestBaseModel_BeforeCreate_GeneratesID(t *testing.T) {
	client := &Client{Name: "Acme Corp"}

	err := client.BeforeCreate(nil)
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, client.ID)

	// An explicitly assigned ID must survive the hook
	fixed := uuid.New()
	contract := &Contract{BaseModel: BaseModel{ID: fixed}}
	err = contract.BeforeCreate(nil)
	assert.NoError(t, err)
	assert.Equal(t, fixed, contract.ID)
}

func TestAuditLog_BeforeCreate_SetsDefaults(t *testing.T) {
	log := AuditLog{
		Action:      ActionCreate,
		Category:    CategoryDataModification,
		Severity:    SeverityInfo,
		Description: "Created client",
	}

	if err := log.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate() should not return error, got: %v", err)
	}

	// Verify ID was generated
	if log.ID == uuid.Nil {
		t.Error("ID should be generated by BeforeCreate hook")
	}

	// Verify timestamp was set
	if log.Timestamp.IsZero() {
		t.Error("Timestamp should be set by BeforeCreate hook")
	}

	// Verify ImmutableModel timestamp was set
	if log.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set by ImmutableModel BeforeCreate hook")
	}
}

func TestAuditLog_Validate_WithConfig(t *testing.T) {
	// Set up enum configuration using AuditEnums type
	enums := &config.AuditEnums{
		Categories:         []string{"data_modification", "data_access", "security"},
		Severities:         []string{"info", "medium", "high"},
		Actions:            []string{"create", "update", "delete", "view"},
		SecurityEventTypes: []string{"login", "logout"},
	}
	// Initialize maps for O(1) validation
	enums.InitializeMaps()
	SetEnumConfig(enums)

	tests := []struct {
		name    string
		log     AuditLog
		wantErr bool
	}{
		{
			name: "Valid audit log",
			log: AuditLog{
				Action:      "create",
				Category:    "data_modification",
				Severity:    "info",
				Description: "Created client Acme Corp",
			},
			wantErr: false,
		},
		{
			name: "Valid audit log with entity target",
			log: AuditLog{
				Action:      "update",
				Category:    "data_modification",
				Severity:    "info",
				EntityType:  strPtr("client"),
				EntityID:    strPtr(uuid.NewString()),
				Description: "Updated client",
			},
			wantErr: false,
		},
		{
			name: "Invalid category",
			log: AuditLog{
				Action:      "create",
				Category:    "INVALID",
				Severity:    "info",
				Description: "Created client",
			},
			wantErr: true,
		},
		{
			name: "Invalid severity",
			log: AuditLog{
				Action:      "create",
				Category:    "data_modification",
				Severity:    "INVALID",
				Description: "Created client",
			},
			wantErr: true,
		},
		{
			name: "Invalid action (not in config)",
			log: AuditLog{
				Action:      "INVALID_ACTION",
				Category:    "data_modification",
				Severity:    "info",
				Description: "Did something",
			},
			wantErr: true,
		},
		{
			name: "Missing action",
			log: AuditLog{
				Action:      "",
				Category:    "data_modification",
				Severity:    "info",
				Description: "Created client",
			},
			wantErr: true,
		},
		{
			name: "Missing description",
			log: AuditLog{
				Action:      "create",
				Category:    "data_modification",
				Severity:    "info",
				Description: "",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.log.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuditLog_Validate_WithoutConfig(t *testing.T) {
	// Reset enum config to nil to test fallback behavior
	enumConfig = nil

	log := AuditLog{
		Action:      ActionDelete,
		Category:    CategoryDataModification,
		Severity:    SeverityMedium,
		Description: "Deleted contract",
	}

	// Should still validate successfully using default enums from config
	if err := log.Validate(); err != nil {
		t.Errorf("Validate() should work with default constants, got error: %v", err)
	}
}

func TestChangeHistory_Validate(t *testing.T) {
	valid := ChangeHistory{
		EntityType: "client",
		EntityID:   uuid.NewString(),
		FieldName:  "status",
		BatchID:    uuid.New(),
	}
	assert.NoError(t, valid.Validate())

	missingBatch := valid
	missingBatch.BatchID = uuid.Nil
	assert.Error(t, missingBatch.Validate())

	missingField := valid
	missingField.FieldName = ""
	assert.Error(t, missingField.Validate())

	missingEntity := valid
	missingEntity.EntityID = ""
	assert.Error(t, missingEntity.Validate())
}

func TestSecurityEvent_Validate_WithoutConfig(t *testing.T) {
	enumConfig = nil

	valid := SecurityEvent{EventType: "login_failed", Success: false}
	assert.NoError(t, valid.Validate())

	invalid := SecurityEvent{EventType: "not_a_real_event"}
	assert.Error(t, invalid.Validate())

	missing := SecurityEvent{}
	assert.Error(t, missing.Validate())
}

func TestDataAccessLog_Validate(t *testing.T) {
	valid := DataAccessLog{EntityType: "client", AccessType: AccessTypeSearch, RecordCount: 7}
	assert.NoError(t, valid.Validate())

	badAccess := DataAccessLog{EntityType: "client", AccessType: "steal"}
	assert.Error(t, badAccess.Validate())

	missingEntity := DataAccessLog{AccessType: AccessTypeView}
	assert.Error(t, missingEntity.Validate())
}

func TestSystemEvent_Validate_WithoutConfig(t *testing.T) {
	enumConfig = nil

	valid := SystemEvent{
		EventType: "startup",
		Component: "consumer",
		Severity:  SeverityInfo,
		Message:   "Stream consumer started",
	}
	assert.NoError(t, valid.Validate())

	missingComponent := SystemEvent{EventType: "startup", Severity: SeverityInfo, Message: "x"}
	assert.Error(t, missingComponent.Validate())
}

func strPtr(s string) *string {
	return &s
}
