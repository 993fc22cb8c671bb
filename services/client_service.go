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

// ClientService manages customer accounts. Mutations take a request-scoped
// audit logger; a failed audit write never fails the mutation itself.
type ClientService struct {
	db       *gorm.DB
	redactor *Redactor
}

// NewClientService creates a new client service
func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{db: db, redactor: NewRedactor()}
}

// CreateClient creates a new client account
func (s *ClientService) CreateClient(ctx context.Context, logger *audit.Logger, req *models.CreateClientRequest) (*models.Client, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	status := req.Status
	if status == "" {
		status = models.ClientStatusProspect
	}
	if err := validateClientStatus(status); err != nil {
		return nil, err
	}

	client := &models.Client{
		Name:         strings.TrimSpace(req.Name),
		Industry:     req.Industry,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		Phone:        req.Phone,
		Address:      req.Address,
		Status:       status,
		Source:       req.Source,
		Notes:        req.Notes,
		Metadata:     req.Metadata,
	}
	if err := s.db.WithContext(ctx).Create(client).Error; err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	monitoring.RecordBusinessEvent(ctx, "client_created", true)
	if logger != nil {
		snapshot := s.redactor.Redact(audit.Snapshot(client))
		logger.LogCreate(ctx, string(registry.EntityClient), client.ID.String(), client.Name, snapshot)
	}
	return client, nil
}

// GetClient fetches a client by ID. Returns nil without error when the
// client does not exist.
func (s *ClientService) GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}
	return &client, nil
}

// ListClients retrieves clients with optional filtering
func (s *ClientService) ListClients(ctx context.Context, filter *models.ClientFilter) (*models.ClientListResponse, error) {
	var clients []models.Client
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Client{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Industry != nil {
		query = query.Where("industry = ?", *filter.Industry)
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(contact_name) LIKE ? OR LOWER(contact_email) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
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

	if err := query.Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}

	return &models.ClientListResponse{
		Clients: clients,
		Total:   total,
		Limit:   limit,
		Offset:  filter.Offset,
	}, nil
}

// UpdateClient applies the non-nil fields of the request to an existing
// client. When nothing actually changes, neither the row nor the audit trail
// is written. Returns nil without error when the client does not exist.
func (s *ClientService) UpdateClient(ctx context.Context, logger *audit.Logger, id uuid.UUID, req *models.UpdateClientRequest) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}

	oldSnapshot := audit.Snapshot(client)

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		client.Name = strings.TrimSpace(*req.Name)
	}
	if req.Industry != nil {
		client.Industry = req.Industry
	}
	if req.ContactName != nil {
		client.ContactName = req.ContactName
	}
	if req.ContactEmail != nil {
		client.ContactEmail = req.ContactEmail
	}
	if req.Phone != nil {
		client.Phone = req.Phone
	}
	if req.Address != nil {
		client.Address = req.Address
	}
	if req.Status != nil {
		if err := validateClientStatus(*req.Status); err != nil {
			return nil, err
		}
		client.Status = *req.Status
	}
	if req.Source != nil {
		client.Source = req.Source
	}
	if req.Notes != nil {
		client.Notes = req.Notes
	}
	if req.Metadata != nil {
		client.Metadata = req.Metadata
	}

	changes := audit.DetectChanges(oldSnapshot, audit.Snapshot(client))
	if len(changes) == 0 {
		return &client, nil
	}

	if err := s.db.WithContext(ctx).Save(&client).Error; err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}

	monitoring.RecordBusinessEvent(ctx, "client_updated", true)
	if logger != nil {
		logger.LogUpdate(ctx, string(registry.EntityClient), client.ID.String(), client.Name,
			s.redactor.RedactChanges(changes), s.redactor.Redact(oldSnapshot))
	}
	return &client, nil
}

// DeleteClient removes a client that has no contracts. Clients owning
// contracts cannot be deleted; terminate the contracts first.
func (s *ClientService) DeleteClient(ctx context.Context, logger *audit.Logger, id uuid.UUID) error {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("client %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to fetch client: %w", err)
	}

	var contracts int64
	if err := s.db.WithContext(ctx).Model(&models.Contract{}).Where("client_id = ?", id).Count(&contracts).Error; err != nil {
		return fmt.Errorf("failed to check client contracts: %w", err)
	}
	if contracts > 0 {
		return fmt.Errorf("%w: client has %d contracts", ErrConflict, contracts)
	}

	snapshot := audit.Snapshot(client)
	if err := s.db.WithContext(ctx).Delete(&client).Error; err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}

	monitoring.RecordBusinessEvent(ctx, "client_deleted", true)
	if logger != nil {
		logger.LogDelete(ctx, string(registry.EntityClient), client.ID.String(), client.Name, s.redactor.Redact(snapshot))
	}
	return nil
}

func validateClientStatus(status string) error {
	switch status {
	case models.ClientStatusProspect, models.ClientStatusActive, models.ClientStatusInactive:
		return nil
	default:
		return fmt.Errorf("%w: invalid status: %s. Must be %s, %s, or %s", ErrValidation,
			status, models.ClientStatusProspect, models.ClientStatusActive, models.ClientStatusInactive)
	}
}
