package models

import (
	"time"

	"github.com/google/uuid"
)

// Contract statuses (core system constants, validated in the service layer)
const (
	ContractStatusDraft      = "draft"
	ContractStatusActive     = "active"
	ContractStatusExpired    = "expired"
	ContractStatusTerminated = "terminated"
)

// Contract represents a service agreement owned by a client
type Contract struct {
	BaseModel
	ClientID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_contracts_client_id" json:"clientId"`
	ContractNumber string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_contracts_number" json:"contractNumber"`
	Title          string     `gorm:"type:varchar(255);not null" json:"title"`
	Description    *string    `gorm:"type:text" json:"description,omitempty"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	Value          float64    `gorm:"not null;default:0" json:"value"`
	Status         string     `gorm:"type:varchar(20);not null;default:draft;index:idx_contracts_status" json:"status"`
	AutoRenew      bool       `gorm:"not null;default:false" json:"autoRenew"`
	Notes          *string    `gorm:"type:text" json:"notes,omitempty"`
}

// TableName specifies the table name for Contract
func (Contract) TableName() string {
	return "contracts"
}

// ServiceScope represents a scope of work delivered under a contract,
// optionally authorized by a service authorization form
type ServiceScope struct {
	BaseModel
	ContractID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_service_scopes_contract_id" json:"contractId"`
	SAFID        *uuid.UUID `gorm:"column:saf_id;type:uuid;index:idx_service_scopes_saf_id" json:"safId,omitempty"`
	ServiceID    *uuid.UUID `gorm:"type:uuid" json:"serviceId,omitempty"`
	Name         string     `gorm:"type:varchar(255);not null" json:"name"`
	Description  *string    `gorm:"type:text" json:"description,omitempty"`
	Status       string     `gorm:"type:varchar(20);not null;default:active" json:"status"`
	MonthlyValue float64    `gorm:"not null;default:0" json:"monthlyValue"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
}

// TableName specifies the table name for ServiceScope
func (ServiceScope) TableName() string {
	return "service_scopes"
}

// Proposal represents a quoted piece of work attached to a contract
type Proposal struct {
	BaseModel
	ContractID uuid.UUID  `gorm:"type:uuid;not null;index:idx_proposals_contract_id" json:"contractId"`
	Title      string     `gorm:"type:varchar(255);not null" json:"title"`
	Status     string     `gorm:"type:varchar(20);not null;default:draft" json:"status"`
	Amount     float64    `gorm:"not null;default:0" json:"amount"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
	Notes      *string    `gorm:"type:text" json:"notes,omitempty"`
}

// TableName specifies the table name for Proposal
func (Proposal) TableName() string {
	return "proposals"
}

// FinancialTransaction represents an invoice, payment, or credit
// recorded against a contract
type FinancialTransaction struct {
	BaseModel
	ContractID      uuid.UUID `gorm:"type:uuid;not null;index:idx_financial_transactions_contract_id" json:"contractId"`
	TransactionType string    `gorm:"type:varchar(20);not null" json:"transactionType"`
	Amount          float64   `gorm:"not null" json:"amount"`
	Currency        string    `gorm:"type:varchar(10);not null;default:USD" json:"currency"`
	Status          string    `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	Reference       *string   `gorm:"type:varchar(100)" json:"reference,omitempty"`
	OccurredAt      time.Time `gorm:"not null;index:idx_financial_transactions_occurred_at" json:"occurredAt"`
	Description     *string   `gorm:"type:text" json:"description,omitempty"`
}

// TableName specifies the table name for FinancialTransaction
func (FinancialTransaction) TableName() string {
	return "financial_transactions"
}

// CreateContractRequest represents the request payload for creating a contract
type CreateContractRequest struct {
	ClientID       string     `json:"clientId"`
	ContractNumber string     `json:"contractNumber"`
	Title          string     `json:"title"`
	Description    *string    `json:"description,omitempty"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	Value          float64    `json:"value"`
	Status         string     `json:"status,omitempty"`
	AutoRenew      bool       `json:"autoRenew"`
	Notes          *string    `json:"notes,omitempty"`
}

// UpdateContractRequest represents the request payload for updating a contract
// Nil fields are left unchanged
type UpdateContractRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Value       *float64   `json:"value,omitempty"`
	Status      *string    `json:"status,omitempty"`
	AutoRenew   *bool      `json:"autoRenew,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// ContractFilter represents filter parameters for querying contracts
type ContractFilter struct {
	ClientID *string `json:"clientId,omitempty"`
	Status   *string `json:"status,omitempty"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
}

// ContractListResponse represents the API response for listing contracts
type ContractListResponse struct {
	Contracts []Contract `json:"contracts"`
	Total     int64      `json:"total"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}
