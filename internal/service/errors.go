package service

import (
	"errors"
	"fmt"
)

// Generic input errors
var (
	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrForbidden        = errors.New("access denied")
)

// Timesheet errors
var (
	ErrTimesheetNotFound       = errors.New("timesheet not found")
	ErrDuplicateTimesheet      = errors.New("a timesheet already exists for this user, project, date, work type and sub work type")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrConcurrentUpdate        = errors.New("timesheet was modified concurrently, reload and retry")
	ErrNotOwner                = errors.New("only the owner can modify this timesheet")
	ErrSelfApproval            = errors.New("approvers cannot decide on their own timesheets")
	ErrHoursOutOfRange         = errors.New("hours must be between 0 and 24")
	ErrInvalidHours            = errors.New("hours must be a decimal number")
	ErrIncompleteTimeRange     = errors.New("start_time and end_time must be provided together")
	ErrInvalidWorkType         = errors.New("unknown work type, sub work type or activity")
	ErrRejectionReasonRequired = errors.New("a rejection reason is required")
	ErrInvalidStatus           = errors.New("invalid timesheet status")
)

// Project errors
var (
	ErrProjectNotFound      = errors.New("project not found")
	ErrProjectInactive      = errors.New("project is not active")
	ErrProjectCodeExists    = errors.New("project code already exists")
	ErrProjectInUse         = errors.New("project has timesheets and cannot be deleted")
	ErrInvalidProjectStatus = errors.New("invalid project status")
)

// Holiday errors
var (
	ErrHolidayNotFound    = errors.New("holiday not found")
	ErrHolidayExists      = errors.New("a holiday already exists on this date")
	ErrInvalidHolidayFile = errors.New("invalid holiday spreadsheet")
)

// Work type errors
var (
	ErrWorkTypeNotFound = errors.New("work type node not found")
	ErrWorkTypeExists   = errors.New("a node with this code already exists at this level")
)

// User, auth and role errors
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUsernameExists      = errors.New("username already exists")
	ErrEmailExists         = errors.New("email already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUserInactive        = errors.New("user account is disabled")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrInvalidRole         = errors.New("role does not exist")
	ErrRoleNotFound        = errors.New("role not found")
	ErrRoleExists          = errors.New("role already exists")
	ErrRoleProtected       = errors.New("system roles cannot be deleted or renamed")
	ErrRoleInUse           = errors.New("role is assigned to users")
	ErrUnknownPermission   = errors.New("unknown permission")
	ErrWrongPassword       = errors.New("current password is incorrect")
)

// StatusError reports a status precondition failure with the current and required states.
type StatusError struct {
	Current  string
	Required string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("timesheet is %s, must be %s", e.Current, e.Required)
}

func (e *StatusError) Unwrap() error {
	return ErrInvalidStatusTransition
}

func statusError(current, required string) error {
	return &StatusError{Current: current, Required: required}
}
