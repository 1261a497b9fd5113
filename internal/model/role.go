package model

import (
	"time"

	"github.com/google/uuid"
)

// Permission codes checked by RequirePermission.
const (
	PermTimesheetsRead    = "timesheets.read"
	PermTimesheetsWrite   = "timesheets.write"
	PermTimesheetsReadAll = "timesheets.read_all"
	PermTimesheetsApprove = "timesheets.approve"
	PermProjectsRead      = "projects.read"
	PermProjectsWrite     = "projects.write"
	PermHolidaysRead      = "holidays.read"
	PermHolidaysWrite     = "holidays.write"
	PermWorkTypesWrite    = "work_types.write"
	PermUsersRead         = "users.read"
	PermUsersWrite        = "users.write"
	PermUsersDelete       = "users.delete"
	PermRolesManage       = "roles.manage"
	PermReportsRead       = "reports.read"
	PermAuditRead         = "audit.read"
)

// Role represents a user role with associated permissions
type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	IsSystem    bool         `gorm:"default:false" json:"is_system"` // built-in roles cannot be deleted or renamed
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Permission represents a single permission that can be assigned to roles
type Permission struct {
	ID    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code  string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"` // e.g. "timesheets.approve"
	Name  string    `gorm:"type:varchar(255);not null" json:"name"`
	Group string    `gorm:"type:varchar(50);not null;index" json:"group"` // "timesheets", "projects", "users"...
}
