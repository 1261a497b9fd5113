package service

import (
	"context"
	"errors"
	"testing"

	"painai/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *timesheetFixture) submitted(t *testing.T, date string) *TimesheetResponse {
	t.Helper()
	created := f.createDraft(t, date)
	resp, err := f.svc.Submit(context.Background(), f.owner, created.ID)
	require.NoError(t, err)
	return resp
}

func TestApprovalService_Approve(t *testing.T) {
	ctx := context.Background()
	f := newTimesheetFixture(t)
	ts := f.submitted(t, "2024-03-15")

	resp, err := f.approvals.Approve(ctx, f.manager, ts.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TimesheetStatusApproved, resp.Status)
	require.NotNil(t, resp.ApprovedBy)
	assert.Equal(t, f.manager.UserID.String(), *resp.ApprovedBy)
	require.NotNil(t, resp.DecidedAt)

	assert.Equal(t,
		[]string{model.HistoryActionCreated, model.HistoryActionSubmitted, model.HistoryActionApproved},
		f.history.actions(uuid.MustParse(ts.ID)))
	assert.Equal(t, []string{EventTimesheetSubmitted, EventTimesheetApproved}, f.events.types())

	// Terminal: a second decision fails and names the current status.
	_, err = f.approvals.Reject(ctx, f.manager, ts.ID, RejectTimesheetRequest{Reason: "too late"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, model.TimesheetStatusApproved, statusErr.Current)
	assert.Equal(t, model.TimesheetStatusSubmitted, statusErr.Required)

	_, err = f.approvals.Approve(ctx, f.manager, ts.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = f.svc.Submit(ctx, f.owner, ts.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	assert.Equal(t, model.TimesheetStatusApproved, f.timesheets.get(uuid.MustParse(ts.ID)).Status)
	assert.Equal(t, []string{EventTimesheetSubmitted, EventTimesheetApproved}, f.events.types())
}

func TestApprovalService_Reject(t *testing.T) {
	ctx := context.Background()
	f := newTimesheetFixture(t)
	ts := f.submitted(t, "2024-03-15")

	_, err := f.approvals.Reject(ctx, f.manager, ts.ID, RejectTimesheetRequest{Reason: "   "})
	assert.ErrorIs(t, err, ErrRejectionReasonRequired)

	resp, err := f.approvals.Reject(ctx, f.manager, ts.ID, RejectTimesheetRequest{Reason: "Wrong project"})
	require.NoError(t, err)
	assert.Equal(t, model.TimesheetStatusRejected, resp.Status)
	assert.Equal(t, "Wrong project", resp.RejectionReason)
	assert.Contains(t, f.events.types(), EventTimesheetRejected)

	// Rejected entries stay locked for the owner too.
	desc := "fixed"
	_, err = f.svc.Update(ctx, f.owner, ts.ID, UpdateTimesheetRequest{Description: &desc})
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestApprovalService_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("Self approval is forbidden", func(t *testing.T) {
		f := newTimesheetFixture(t)
		resp, err := f.svc.Create(ctx, f.manager, CreateTimesheetRequest{WorkType: "LEAVE", WorkDate: "2024-03-15", HoursWorked: dec("8")})
		require.NoError(t, err)
		_, err = f.svc.Submit(ctx, f.manager, resp.ID)
		require.NoError(t, err)

		_, err = f.approvals.Approve(ctx, f.manager, resp.ID)
		assert.ErrorIs(t, err, ErrSelfApproval)
		assert.Equal(t, model.TimesheetStatusSubmitted, f.timesheets.get(uuid.MustParse(resp.ID)).Status)
	})

	t.Run("Draft cannot be approved", func(t *testing.T) {
		f := newTimesheetFixture(t)
		draft := f.createDraft(t, "2024-03-15")

		_, err := f.approvals.Approve(ctx, f.manager, draft.ID)
		require.Error(t, err)
		assert.Equal(t, "timesheet is draft, must be submitted", err.Error())
	})

	t.Run("Unknown timesheet", func(t *testing.T) {
		f := newTimesheetFixture(t)
		_, err := f.approvals.Approve(ctx, f.manager, uuid.NewString())
		assert.ErrorIs(t, err, ErrTimesheetNotFound)
	})

	t.Run("Concurrent decision loses the race", func(t *testing.T) {
		f := newTimesheetFixture(t)
		ts := f.submitted(t, "2024-03-15")
		id := uuid.MustParse(ts.ID)

		f.timesheets.beforeStatusUpdate = func(rows map[uuid.UUID]model.Timesheet) {
			row := rows[id]
			row.Status = model.TimesheetStatusRejected
			rows[id] = row
		}

		_, err := f.approvals.Approve(ctx, f.manager, ts.ID)
		assert.ErrorIs(t, err, ErrConcurrentUpdate)
		assert.NotContains(t, f.history.actions(id), model.HistoryActionApproved)
	})
}

func TestApprovalService_ListPending(t *testing.T) {
	ctx := context.Background()
	f := newTimesheetFixture(t)

	f.submitted(t, "2024-03-15")
	f.createDraft(t, "2024-03-16")

	own, err := f.svc.Create(ctx, f.manager, CreateTimesheetRequest{WorkType: "LEAVE", WorkDate: "2024-03-15", HoursWorked: dec("8")})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.manager, own.ID)
	require.NoError(t, err)

	pending, total, err := f.approvals.ListPending(ctx, f.manager, PendingFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, pending, 1)
	assert.Equal(t, f.owner.UserID.String(), pending[0].UserID)

	_, _, err = f.approvals.ListPending(ctx, f.manager, PendingFilter{From: "bad"})
	assert.ErrorIs(t, err, ErrInvalidDate)
}
