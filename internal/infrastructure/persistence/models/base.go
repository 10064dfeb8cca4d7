package models

import (
	"time"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// OrganizationAggregateModel holds the columns every organization-scoped
// aggregate root carries: identity, scope and the optimistic lock version.
type OrganizationAggregateModel struct {
	BaseModel
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index"`
	BranchID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Version        int       `gorm:"not null"`
}

// FromDomainAggregateRoot populates the model from an OrganizationAggregateRoot
func (m *OrganizationAggregateModel) FromDomainAggregateRoot(a shared.OrganizationAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.OrganizationID = a.OrganizationID
	m.BranchID = a.BranchID
	m.Version = a.Version
}
