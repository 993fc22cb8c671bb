package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mssp-stack/portal-backend/audit"
	"github.com/mssp-stack/portal-backend/models"
	"github.com/mssp-stack/portal-backend/monitoring"
	"github.com/mssp-stack/portal-backend/registry"
)

// ContractService manages service agreements under client accounts
type ContractService struct {
	db       *gorm.DB
	redactor *Redactor
}

// NewContractService creates a new contract service
func NewContractService(db *gorm.DB) *ContractService {
	return &ContractService{db: db, redactor: NewRedactor()}
}

// CreateContract creates a new contract under an existing client
func (s *ContractService) CreateContract(ctx context.Context, logger *audit.Logger, req *models.CreateContractRequest) (*models.Contract, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid clientId: %s", ErrValidation, req.ClientID)
	}
	if strings.TrimSpace(req.ContractNumber) == "" {
		return nil, fmt.Errorf("%w: contractNumber is required", ErrValidation)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	status := req.Status
	if status == "" {
		status = models.ContractStatusDraft
	}
	if err := validateContractStatus(status); err != nil {
		return nil, err
	}

	var clientCount int64
	if err := s.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", clientID).Count(&clientCount).Error; err != nil {
		return nil, fmt.Errorf("failed to check client: %w", err)
	}
	if clientCount == 0 {
		return nil, fmt.Errorf("%w: client %s does not exist", ErrValidation, clientID)
	}

	number := strings.TrimSpace(req.ContractNumber)
	var numberCount int64
	if err := s.db.WithContext(ctx).Model(&models.Contract{}).Where("contract_number = ?", number).Count(&numberCount).Error; err != nil {
		return nil, fmt.Errorf("failed to check contract number: %w", err)
	}
	if numberCount > 0 {
		return nil, fmt.Errorf("%w: contract number %s already exists", ErrConflict, number)
	}

	contract := &models.Contract{
		ClientID:       clientID,
		ContractNumber: number,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Value:          req.Value,
		Status:         status,
		AutoRenew:      req.AutoRenew,
		Notes:          req.Notes,
	}
	if err := s.db.WithContext(ctx).Create(contract).Error; err != nil {
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}

	monitoring.RecordBusinessEvent(ctx, "contract_created", true)
	if logger != nil {
		snapshot := s.redactor.Redact(audit.Snapshot(contract))
		logger.LogCreate(ctx, string(registry.EntityContract), contract.ID.String(), contract.Title, snapshot)
	}
	return contract, nil
}

// GetContract fetches a contract by ID. Returns nil without error when the
// contract does not exist.
func (s *ContractService) GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := s.db.WithContext(ctx).First(&contract, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch contract: %w", err)
	}
	return &contract, nil
}

// ListContracts retrieves contracts with optional filtering
func (s *ContractService) ListContracts(ctx context.Context, filter *models.ContractFilter) (*models.ContractListResponse, error) {
	var contracts []models.Contract
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Contract{})

	if filter.ClientID != nil {
		clientID, err := uuid.Parse(*filter.ClientID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid clientId: %s", ErrValidation, *filter.ClientID)
		}
		query = query.Where("client_id = ?", clientID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count contracts: %w", err)
	}

	query = query.Order("created_at DESC")

	limit := filter.Limit
	if limit == 0 {
		limit = 50 // Default limit
	}
	query = query.Limit(limit)

	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&contracts).Error; err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}

	return &models.ContractListResponse{
		Contracts: contracts,
		Total:     total,
		Limit:     limit,
		Offset:    filter.Offset,
	}, nil
}

// UpdateContract applies the non-nil fields of the request to an existing
// contract. The contract number and owning client are immutable. When nothing
// actually changes, neither the row nor the audit trail is written. Returns
// nil without error when the contract does not exist.
func (s *ContractService) UpdateContract(ctx context.Context, logger *audit.Logger, id uuid.UUID, req *models.UpdateContractRequest) (*models.Contract, error) {
	var contract models.Contract
	if err := s.db.WithContext(ctx).First(&contract, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch contract: %w", err)
	}

	oldSnapshot := audit.Snapshot(contract)

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		contract.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		contract.Description = req.Description
	}
	if req.StartDate != nil {
		contract.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		contract.EndDate = req.EndDate
	}
	if req.Value != nil {
		contract.Value = *req.Value
	}
	if req.Status != nil {
		if err := validateContractStatus(*req.Status); err != nil {
			return nil, err
		}
		contract.Status = *req.Status
	}
	if req.AutoRenew != nil {
		contract.AutoRenew = *req.AutoRenew
	}
	if req.Notes != nil {
		contract.Notes = req.Notes
	}

	changes := audit.DetectChanges(oldSnapshot, audit.Snapshot(contract))
	if len(changes) == 0 {
		return &contract, nil
	}

	if err := s.db.WithContext(ctx).Save(&contract).Error; err != nil {
		return nil, fmt.Errorf("failed to update contract: %w", err)
	}

	monitoring.RecordBusinessEvent(ctx, "contract_updated", true)
	if logger != nil {
		logger.LogUpdate(ctx, string(registry.EntityContract), contract.ID.String(), contract.Title,
			s.redactor.RedactChanges(changes), s.redactor.Redact(oldSnapshot))
	}
	return &contract, nil
}

// DeleteContract removes a contract that has no dependent records. Contracts
// with service scopes or financial transactions cannot be deleted.
func (s *ContractService) DeleteContract(ctx context.Context, logger *audit.Logger, id uuid.UUID) error {
	var contract models.Contract
	if err := s.db.WithContext(ctx).First(&contract, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("contract %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to fetch contract: %w", err)
	}

	var scopes int64
	if err := s.db.WithContext(ctx).Model(&models.ServiceScope{}).Where("contract_id = ?", id).Count(&scopes).Error; err != nil {
		return fmt.Errorf("failed to check service scopes: %w", err)
	}
	if scopes > 0 {
		return fmt.Errorf("%w: contract has %d service scopes", ErrConflict, scopes)
	}

	var transactions int64
	if err := s.db.WithContext(ctx).Model(&models.FinancialTransaction{}).Where("contract_id = ?", id).Count(&transactions).Error; err != nil {
		return fmt.Errorf("failed to check financial transactions: %w", err)
	}
	if transactions > 0 {
		return fmt.Errorf("%w: contract has %d financial transactions", ErrConflict, transactions)
	}

	snapshot := audit.Snapshot(contract)
	if err := s.db.WithContext(ctx).Delete(&contract).Error; err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}

	monitoring.RecordBusinessEvent(ctx, "contract_deleted", true)
	if logger != nil {
		logger.LogDelete(ctx, string(registry.EntityContract), contract.ID.String(), contract.Title, s.redactor.Redact(snapshot))
	}
	return nil
}

func validateContractStatus(status string) error {
	switch status {
	case models.ContractStatusDraft, models.ContractStatusActive,
		models.ContractStatusExpired, models.ContractStatusTerminated:
		return nil
	default:
		return fmt.Errorf("%w: invalid status: %s. Must be %s, %s, %s, or %s", ErrValidation,
			status, models.ContractStatusDraft, models.ContractStatusActive,
			models.ContractStatusExpired, models.ContractStatusTerminated)
	}
}
