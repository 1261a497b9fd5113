package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportFilter narrows the timesheets a report aggregates over.
type ReportFilter struct {
	From      time.Time
	To        time.Time
	Statuses  []string
	ProjectID string
	UserID    string
}

// ProjectHours aggregates hours for one project. ProjectID is empty for entries without a project.
type ProjectHours struct {
	ProjectID      string          `json:"project_id"`
	ProjectCode    string          `json:"project_code"`
	ProjectName    string          `json:"project_name"`
	RegularHours   decimal.Decimal `json:"regular_hours"`
	OvertimeHours  decimal.Decimal `json:"overtime_hours"`
	BillableHours  decimal.Decimal `json:"billable_hours"`
	BillableAmount decimal.Decimal `json:"billable_amount"`
	EntryCount     int             `json:"entry_count"`
}

// UserHours aggregates hours for one user.
type UserHours struct {
	UserID         string          `json:"user_id"`
	Username       string          `json:"username"`
	FullName       string          `json:"full_name"`
	Department     string          `json:"department"`
	RegularHours   decimal.Decimal `json:"regular_hours"`
	OvertimeHours  decimal.Decimal `json:"overtime_hours"`
	BillableHours  decimal.Decimal `json:"billable_hours"`
	BillableAmount decimal.Decimal `json:"billable_amount"`
	EntryCount     int             `json:"entry_count"`
}

// DailyHours is the total booked on one date.
type DailyHours struct {
	WorkDate      time.Time       `json:"work_date"`
	RegularHours  decimal.Decimal `json:"regular_hours"`
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
}
