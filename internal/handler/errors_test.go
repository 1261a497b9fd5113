package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"painai/internal/service"
	"painai/pkg/worktime"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("start: %w", worktime.ErrInvalidTime), http.StatusBadRequest},
		{service.ErrHoursOutOfRange, http.StatusBadRequest},
		{service.ErrRejectionReasonRequired, http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrSelfApproval, http.StatusForbidden},
		{service.ErrNotOwner, http.StatusForbidden},
		{service.ErrRoleProtected, http.StatusForbidden},
		{fmt.Errorf("lookup: %w", service.ErrTimesheetNotFound), http.StatusNotFound},
		{service.ErrWorkTypeNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: timesheet is approved, must be submitted", service.ErrInvalidStatusTransition), http.StatusConflict},
		{service.ErrDuplicateTimesheet, http.StatusConflict},
		{service.ErrHolidayExists, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestFormatBindingError(t *testing.T) {
	assert.Equal(t, "", FormatBindingError(nil))
	assert.Equal(t, "something odd", FormatBindingError(errors.New("something odd")))
}
