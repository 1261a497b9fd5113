package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateUser        = "CREATE_USER"
	ActionUpdateUser        = "UPDATE_USER"
	ActionDeleteUser        = "DELETE_USER"
	ActionChangePassword    = "CHANGE_PASSWORD"
	ActionCreateRole        = "CREATE_ROLE"
	ActionUpdateRole        = "UPDATE_ROLE"
	ActionDeleteRole        = "DELETE_ROLE"
	ActionUpdatePermissions = "UPDATE_ROLE_PERMISSIONS"
	ActionCreateProject     = "CREATE_PROJECT"
	ActionUpdateProject     = "UPDATE_PROJECT"
	ActionDeleteProject     = "DELETE_PROJECT"
	ActionCreateHoliday     = "CREATE_HOLIDAY"
	ActionUpdateHoliday     = "UPDATE_HOLIDAY"
	ActionDeleteHoliday     = "DELETE_HOLIDAY"
	ActionImportHolidays    = "IMPORT_HOLIDAYS"
	ActionCreateWorkType    = "CREATE_WORK_TYPE"
	ActionDeleteWorkType    = "DELETE_WORK_TYPE"
	ActionCreateSubWorkType = "CREATE_SUB_WORK_TYPE"
	ActionDeleteSubWorkType = "DELETE_SUB_WORK_TYPE"
	ActionCreateActivity    = "CREATE_ACTIVITY"
	ActionDeleteActivity    = "DELETE_ACTIVITY"
)

// AuditLog tracks who changed what in the administrative tables.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for seeding and other automated writes
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
