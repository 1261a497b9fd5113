package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)

// Project is something hours can be booked against.
type Project struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code        string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Status      string          `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	ManagerID   *uuid.UUID      `gorm:"type:uuid;index" json:"manager_id"`
	Manager     *User           `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	StartDate   *time.Time      `gorm:"type:date" json:"start_date"`
	EndDate     *time.Time      `gorm:"type:date" json:"end_date"`
	BudgetHours decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"budget_hours"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func IsValidProjectStatus(s string) bool {
	switch s {
	case ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}
