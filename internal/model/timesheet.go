package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TimesheetStatusDraft     = "draft"
	TimesheetStatusSubmitted = "submitted"
	TimesheetStatusApproved  = "approved"
	TimesheetStatusRejected  = "rejected"
)

// Edit history actions.
const (
	HistoryActionCreated   = "created"
	HistoryActionUpdated   = "updated"
	HistoryActionDeleted   = "deleted"
	HistoryActionSubmitted = "submitted"
	HistoryActionApproved  = "approved"
	HistoryActionRejected  = "rejected"
)

// transitions lists every allowed status change. Anything absent is rejected.
var transitions = map[string][]string{
	TimesheetStatusDraft:     {TimesheetStatusSubmitted},
	TimesheetStatusSubmitted: {TimesheetStatusApproved, TimesheetStatusRejected},
}

// CanTransition reports whether a timesheet may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus is true for approved and rejected.
func IsTerminalStatus(status string) bool {
	return status == TimesheetStatusApproved || status == TimesheetStatusRejected
}

func IsValidTimesheetStatus(s string) bool {
	switch s {
	case TimesheetStatusDraft, TimesheetStatusSubmitted, TimesheetStatusApproved, TimesheetStatusRejected:
		return true
	}
	return false
}

// Timesheet is one unit of reported work for a user on a date.
// WorkType, SubWorkType and Activity hold codes from the work type tree; empty means not set.
type Timesheet struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	User            *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ProjectID       *uuid.UUID       `gorm:"type:uuid;index" json:"project_id"`
	Project         *Project         `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	WorkType        string           `gorm:"type:varchar(50);not null" json:"work_type"`
	SubWorkType     string           `gorm:"type:varchar(50);not null;default:''" json:"sub_work_type"`
	Activity        string           `gorm:"type:varchar(50);not null;default:''" json:"activity"`
	WorkDate        time.Time        `gorm:"type:date;not null;index" json:"work_date"`
	StartTime       string           `gorm:"type:varchar(5)" json:"start_time"`
	EndTime         string           `gorm:"type:varchar(5)" json:"end_time"`
	HoursWorked     decimal.Decimal  `gorm:"type:decimal(5,2);not null;default:0" json:"hours_worked"`
	OvertimeHours   decimal.Decimal  `gorm:"type:decimal(5,2);not null;default:0" json:"overtime_hours"`
	Description     string           `gorm:"type:text" json:"description"`
	Billable        bool             `gorm:"not null;default:false" json:"billable"`
	HourlyRate      *decimal.Decimal `gorm:"type:decimal(12,2)" json:"hourly_rate"`
	Status          string           `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	SubmittedAt     *time.Time       `json:"submitted_at"`
	ApprovedBy      *uuid.UUID       `gorm:"type:uuid" json:"approved_by"`
	Approver        *User            `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	DecidedAt       *time.Time       `json:"decided_at"`
	RejectionReason string           `gorm:"type:text" json:"rejection_reason"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TotalHours is regular plus overtime.
func (t *Timesheet) TotalHours() decimal.Decimal {
	return t.HoursWorked.Add(t.OvertimeHours)
}

// BillableAmount is total hours times the hourly rate, zero when not billable or unpriced.
func (t *Timesheet) BillableAmount() decimal.Decimal {
	if !t.Billable || t.HourlyRate == nil {
		return decimal.Zero
	}
	return t.TotalHours().Mul(*t.HourlyRate).Round(2)
}

// TimesheetHistory is an append-only record of a change to a timesheet.
// OldValues and NewValues are JSON snapshots; OldValues is nil on create, NewValues is nil on delete.
type TimesheetHistory struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TimesheetID   uuid.UUID `gorm:"type:uuid;not null;index" json:"timesheet_id"`
	Action        string    `gorm:"type:varchar(20);not null" json:"action"`
	OldValues     *string   `gorm:"type:jsonb" json:"old_values"`
	NewValues     *string   `gorm:"type:jsonb" json:"new_values"`
	ChangedBy     uuid.UUID `gorm:"type:uuid;not null;index" json:"changed_by"`
	ChangedByUser *User     `gorm:"foreignKey:ChangedBy" json:"changed_by_user,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (TimesheetHistory) TableName() string {
	return "timesheet_history"
}
