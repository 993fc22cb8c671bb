package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mssp-stack/portal-backend/models"
)

// SetupTestDB creates an in-memory SQLite database for testing and migrates
// every model. Each test gets its own database, so no cross-test cleanup is
// needed beyond closing the handle.
// Note: the models generate UUIDs in BeforeCreate hooks rather than through
// postgres column defaults, so the same schema migrates on SQLite.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Every new connection to :memory: is a separate empty database, so the
	// pool must never grow past one connection
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	err = db.AutoMigrate(
		&models.Client{},
		&models.Contract{},
		&models.ServiceScope{},
		&models.Proposal{},
		&models.FinancialTransaction{},
		&models.ServiceAuthorizationForm{},
		&models.CertificateOfCompliance{},
		&models.Document{},
		&models.HardwareAsset{},
		&models.ClientHardwareAssignment{},
		&models.LicensePool{},
		&models.Service{},
		&models.User{},
		&models.AuditLog{},
		&models.ChangeHistory{},
		&models.SecurityEvent{},
		&models.DataAccessLog{},
		&models.SystemEvent{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// CreateTestClient inserts a client with sensible defaults, applying any
// overrides before the insert
func CreateTestClient(t *testing.T, db *gorm.DB, overrides ...func(*models.Client)) *models.Client {
	t.Helper()

	industry := "technology"
	client := &models.Client{
		Name:     "Acme Corp",
		Industry: &industry,
		Status:   models.ClientStatusActive,
	}
	for _, override := range overrides {
		override(client)
	}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("Failed to create test client: %v", err)
	}
	return client
}

// CreateTestContract inserts a contract belonging to the given client
func CreateTestContract(t *testing.T, db *gorm.DB, clientID uuid.UUID, overrides ...func(*models.Contract)) *models.Contract {
	t.Helper()

	contract := &models.Contract{
		ClientID:       clientID,
		ContractNumber: "CTR-" + uuid.NewString()[:8],
		Title:          "Managed Detection and Response",
		Status:         models.ContractStatusActive,
		Value:          120000,
	}
	for _, override := range overrides {
		override(contract)
	}
	if err := db.Create(contract).Error; err != nil {
		t.Fatalf("Failed to create test contract: %v", err)
	}
	return contract
}

// CreateTestServiceScope inserts a service scope under the given contract
func CreateTestServiceScope(t *testing.T, db *gorm.DB, contractID uuid.UUID, overrides ...func(*models.ServiceScope)) *models.ServiceScope {
	t.Helper()

	scope := &models.ServiceScope{
		ContractID:   contractID,
		Name:         "24/7 SOC Monitoring",
		Status:       "active",
		MonthlyValue: 5000,
	}
	for _, override := range overrides {
		override(scope)
	}
	if err := db.Create(scope).Error; err != nil {
		t.Fatalf("Failed to create test service scope: %v", err)
	}
	return scope
}

// CreateTestSAF inserts a service authorization form for the given client
func CreateTestSAF(t *testing.T, db *gorm.DB, clientID uuid.UUID, overrides ...func(*models.ServiceAuthorizationForm)) *models.ServiceAuthorizationForm {
	t.Helper()

	saf := &models.ServiceAuthorizationForm{
		ClientID:  clientID,
		SAFNumber: "SAF-" + uuid.NewString()[:8],
		Title:     "Penetration Test Authorization",
		Status:    models.SAFStatusApproved,
	}
	for _, override := range overrides {
		override(saf)
	}
	if err := db.Create(saf).Error; err != nil {
		t.Fatalf("Failed to create test SAF: %v", err)
	}
	return saf
}

// CreateTestCOC inserts a certificate of compliance for the given client
func CreateTestCOC(t *testing.T, db *gorm.DB, clientID uuid.UUID, overrides ...func(*models.CertificateOfCompliance)) *models.CertificateOfCompliance {
	t.Helper()

	coc := &models.CertificateOfCompliance{
		ClientID:          clientID,
		CertificateNumber: "COC-" + uuid.NewString()[:8],
		Title:             "SOC 2 Type II Attestation",
		Status:            models.COCStatusValid,
	}
	for _, override := range overrides {
		override(coc)
	}
	if err := db.Create(coc).Error; err != nil {
		t.Fatalf("Failed to create test COC: %v", err)
	}
	return coc
}

// CreateTestHardwareAsset inserts a hardware asset
func CreateTestHardwareAsset(t *testing.T, db *gorm.DB, overrides ...func(*models.HardwareAsset)) *models.HardwareAsset {
	t.Helper()

	manufacturer := "Fortinet"
	asset := &models.HardwareAsset{
		AssetTag:     "HW-" + uuid.NewString()[:8],
		Manufacturer: &manufacturer,
		Status:       models.AssetStatusInStock,
	}
	for _, override := range overrides {
		override(asset)
	}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("Failed to create test hardware asset: %v", err)
	}
	return asset
}

// CreateTestAssignment links a hardware asset to a client
func CreateTestAssignment(t *testing.T, db *gorm.DB, clientID, assetID uuid.UUID, overrides ...func(*models.ClientHardwareAssignment)) *models.ClientHardwareAssignment {
	t.Helper()

	assignment := &models.ClientHardwareAssignment{
		ClientID:        clientID,
		HardwareAssetID: assetID,
		AssignedAt:      time.Now().UTC(),
	}
	for _, override := range overrides {
		override(assignment)
	}
	if err := db.Create(assignment).Error; err != nil {
		t.Fatalf("Failed to create test assignment: %v", err)
	}
	return assignment
}

// CreateTestProposal inserts a proposal under the given contract
func CreateTestProposal(t *testing.T, db *gorm.DB, contractID uuid.UUID, overrides ...func(*models.Proposal)) *models.Proposal {
	t.Helper()

	proposal := &models.Proposal{
		ContractID: contractID,
		Title:      "Scope Expansion Proposal",
		Status:     "draft",
		Amount:     25000,
	}
	for _, override := range overrides {
		override(proposal)
	}
	if err := db.Create(proposal).Error; err != nil {
		t.Fatalf("Failed to create test proposal: %v", err)
	}
	return proposal
}

// CreateTestTransaction inserts a financial transaction under the given contract
func CreateTestTransaction(t *testing.T, db *gorm.DB, contractID uuid.UUID, overrides ...func(*models.FinancialTransaction)) *models.FinancialTransaction {
	t.Helper()

	txn := &models.FinancialTransaction{
		ContractID:      contractID,
		TransactionType: "invoice",
		Amount:          10000,
		Currency:        "USD",
		Status:          "pending",
		OccurredAt:      time.Now().UTC(),
	}
	for _, override := range overrides {
		override(txn)
	}
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}
	return txn
}

// CreateTestUser inserts an operator account
func CreateTestUser(t *testing.T, db *gorm.DB, overrides ...func(*models.User)) *models.User {
	t.Helper()

	user := &models.User{
		Email:     uuid.NewString()[:8] + "@example.com",
		FirstName: "Jane",
		LastName:  "Smith",
		Role:      "analyst",
		Active:    true,
	}
	for _, override := range overrides {
		override(user)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}
