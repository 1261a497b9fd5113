package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"painai/internal/model"
	"painai/pkg/worktime"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type timesheetFixture struct {
	svc        *timesheetService
	approvals  *approvalService
	timesheets *fakeTimesheetRepo
	history    *fakeHistoryRepo
	projects   *fakeProjectRepo
	events     *recordingPublisher

	owner    Actor
	manager  Actor
	other    Actor
	project  model.Project
	onHold   model.Project
	fixedNow time.Time
}

func newTimesheetFixture(t *testing.T) *timesheetFixture {
	t.Helper()

	f := &timesheetFixture{
		timesheets: newFakeTimesheetRepo(),
		history:    &fakeHistoryRepo{},
		projects:   newFakeProjectRepo(),
		events:     &recordingPublisher{},
		owner:      Actor{UserID: uuid.New(), Role: model.RoleEmployee, Permissions: []string{model.PermTimesheetsRead, model.PermTimesheetsWrite}},
		other:      Actor{UserID: uuid.New(), Role: model.RoleEmployee, Permissions: []string{model.PermTimesheetsRead, model.PermTimesheetsWrite}},
		manager: Actor{UserID: uuid.New(), Role: model.RoleManager, Permissions: []string{
			model.PermTimesheetsRead, model.PermTimesheetsWrite, model.PermTimesheetsReadAll, model.PermTimesheetsApprove,
		}},
		fixedNow: time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC),
	}

	f.project = model.Project{ID: uuid.New(), Code: "PRJ-001", Name: "Portal", Status: model.ProjectStatusActive}
	f.onHold = model.Project{ID: uuid.New(), Code: "PRJ-002", Name: "Archive", Status: model.ProjectStatusOnHold}
	require.NoError(t, f.projects.Create(context.Background(), &f.project))
	require.NoError(t, f.projects.Create(context.Background(), &f.onHold))

	workTypes := &fakeWorkTypeRepo{tree: sampleWorkTypeTree()}
	log := zap.NewNop()

	f.svc = NewTimesheetService(passThroughTx{}, f.timesheets, f.history, f.projects, workTypes, f.events, log).(*timesheetService)
	f.svc.now = func() time.Time { return f.fixedNow }
	f.approvals = NewApprovalService(passThroughTx{}, f.timesheets, f.history, f.events, log).(*approvalService)
	f.approvals.now = func() time.Time { return f.fixedNow }
	return f
}

func (f *timesheetFixture) createDraft(t *testing.T, date string) *TimesheetResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), f.owner, CreateTimesheetRequest{
		ProjectID:   f.project.ID.String(),
		WorkType:    "PROJECT",
		SubWorkType: "DEV",
		Activity:    "CODING",
		WorkDate:    date,
		StartTime:   "09:00",
		EndTime:     "18:00",
	})
	require.NoError(t, err)
	return resp
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestTimesheetService_Apportion(t *testing.T) {
	f := newTimesheetFixture(t)

	resp, err := f.svc.Apportion(context.Background(), ApportionRequest{StartTime: "22:00", EndTime: "02:00"})
	require.NoError(t, err)
	assert.Equal(t, "2.00", resp.RegularHours)
	assert.Equal(t, "2.00", resp.OvertimeHours)
	assert.Equal(t, 240, resp.ElapsedMinutes)

	_, err = f.svc.Apportion(context.Background(), ApportionRequest{StartTime: "25:00", EndTime: "02:00"})
	assert.ErrorIs(t, err, worktime.ErrInvalidTime)
}

func TestTimesheetService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Derives hours from start and end", func(t *testing.T) {
		f := newTimesheetFixture(t)
		resp, err := f.svc.Create(ctx, f.owner, CreateTimesheetRequest{
			ProjectID:     f.project.ID.String(),
			WorkType:      "PROJECT",
			SubWorkType:   "DEV",
			WorkDate:      "2024-03-15",
			StartTime:     "09:00",
			EndTime:       "20:00",
			HoursWorked:   dec("3"),
			OvertimeHours: dec("0"),
		})
		require.NoError(t, err)
		assert.Equal(t, "8.50", resp.HoursWorked)
		assert.Equal(t, "1.50", resp.OvertimeHours)
		assert.Equal(t, "10.00", resp.TotalHours)
		assert.Equal(t, model.TimesheetStatusDraft, resp.Status)
		assert.Equal(t, f.owner.UserID.String(), resp.UserID)
	})

	t.Run("Stores the trimmed times the hours came from", func(t *testing.T) {
		f := newTimesheetFixture(t)
		resp, err := f.svc.Create(ctx, f.owner, CreateTimesheetRequest{
			WorkType:  "LEAVE",
			WorkDate:  "2024-03-15",
			StartTime: " 22:00",
			EndTime:   "02:00 ",
		})
		require.NoError(t, err)
		assert.Equal(t, "22:00", resp.StartTime)
		assert.Equal(t, "02:00", resp.EndTime)
		assert.Equal(t, "2.00", resp.HoursWorked)
		assert.Equal(t, "2.00", resp.OvertimeHours)

		stored := f.timesheets.get(uuid.MustParse(resp.ID))
		assert.Equal(t, "22:00", stored.StartTime)
		assert.Equal(t, "02:00", stored.EndTime)
	})

	t.Run("Uses submitted hours without a time range", func(t *testing.T) {
		f := newTimesheetFixture(t)
		resp, err := f.svc.Create(ctx, f.owner, CreateTimesheetRequest{
			WorkType:    "LEAVE",
			WorkDate:    "2024-03-15",
			HoursWorked: dec("7.5"),
		})
		require.NoError(t, err)
		assert.Equal(t, "7.50", resp.HoursWorked)
		assert.Equal(t, "0.00", resp.OvertimeHours)
		assert.Nil(t, resp.ProjectID)
	})

	t.Run("Records a created history entry", func(t *testing.T) {
		f := newTimesheetFixture(t)
		resp := f.createDraft(t, "2024-03-15")

		entries, err := f.history.ListByTimesheet(ctx, uuid.MustParse(resp.ID))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, model.HistoryActionCreated, entries[0].Action)
		assert.Nil(t, entries[0].OldValues)
		require.NotNil(t, entries[0].NewValues)
		assert.Equal(t, f.owner.UserID, entries[0].ChangedBy)
	})

	t.Run("Rejects duplicates", func(t *testing.T) {
		f := newTimesheetFixture(t)
		f.createDraft(t, "2024-03-15")

		_, err := f.svc.Create(ctx, f.owner, CreateTimesheetRequest{
			ProjectID:   f.project.ID.String(),
			WorkType:    "PROJECT",
			SubWorkType: "DEV",
			WorkDate:    "2024-03-15",
			HoursWorked: dec("1"),
		})
		assert.ErrorIs(t, err, ErrDuplicateTimesheet)
		assert.Len(t, f.history.entries, 1)
	})

	t.Run("Same key for another user is allowed", func(t *testing.T) {
		f := newTimesheetFixture(t)
		f.createDraft(t, "2024-03-15")

		_, err := f.svc.Create(ctx, f.other, CreateTimesheetRequest{
			ProjectID:   f.project.ID.String(),
			WorkType:    "PROJECT",
			SubWorkType: "DEV",
			WorkDate:    "2024-03-15",
			HoursWorked: dec("1"),
		})
		assert.NoError(t, err)
	})

	invalid := []struct {
		name string
		req  func(f *timesheetFixture) CreateTimesheetRequest
		want error
	}{
		{
			name: "Only start time",
			req: func(*timesheetFixture) CreateTimesheetRequest {
				return CreateTimesheetRequest{WorkType: "LEAVE", WorkDate: "2024-03-15", StartTime: "09:00"}
			},
			want: ErrIncompleteTimeRange,
		},
		{
			name: "Malformed time",
			req: func(*timesheetFixture) CreateTimesheetRequest {
				return CreateTimesheetRequest{WorkType: "LEAVE", WorkDate: "2024-03-15", StartTime: "9am", EndTime: "17:00"}
			},
			want: worktime.ErrInvalidTime,
		},
		{
			name: "Hours above 24",
			req: func(*timesheetFixture) CreateTimesheetRequest {
				return CreateTimesheetRequest{WorkType: "LEAVE", WorkDate: "2024-03-15", HoursWorked: dec("24.5")}
			},
			want: ErrHoursOutOfRange,
		},
		{
			name: "Negative overtime",
			req: func(*timesheetFixture) CreateTimesheetRequest {
				return CreateTimesheetRequest{WorkType: "LEAVE", WorkDate: "2024-03-15", OvertimeHours: dec("-1")}
			},
			want: ErrHoursOutOfRange,
		},
		{
			name: "Bad date",
			req: func(*timesheetFixture) CreateTimesheetRequest {
				return CreateTimesheetRequest{WorkType: "LEAVE", WorkDate: "15/03/2024"}
			},
			want: ErrInvalidDate,
		},
		{
			name: "Unknown project",
			req: func(*timesheetFixture) CreateTimesheetRequest {
				return CreateTimesheetRequest{ProjectID: uuid.NewString(), WorkType: "LEAVE", WorkDate: "2024-03-15"}
			},
			want: ErrProjectNotFound,
		},
		{
			name: "Inactive project",
			req: func(f *timesheetFixture) CreateTimesheetRequest {
				return CreateTimesheetRequest{ProjectID: f.onHold.ID.String(), WorkType: "LEAVE", WorkDate: "2024-03-15"}
			},
			want: ErrProjectInactive,
		},
		{
			name: "Unknown work type",
			req: func(*timesheetFixture) CreateTimesheetRequest {
				return CreateTimesheetRequest{WorkType: "TRAVEL", WorkDate: "2024-03-15"}
			},
			want: ErrInvalidWorkType,
		},
		{
			name: "Missing required sub work type",
			req: func(*timesheetFixture) CreateTimesheetRequest {
				return CreateTimesheetRequest{WorkType: "PROJECT", WorkDate: "2024-03-15"}
			},
			want: ErrInvalidWorkType,
		},
		{
			name: "Activity from another branch",
			req: func(*timesheetFixture) CreateTimesheetRequest {
				return CreateTimesheetRequest{WorkType: "PROJECT", SubWorkType: "MEETING", Activity: "CODING", WorkDate: "2024-03-15"}
			},
			want: ErrInvalidWorkType,
		},
		{
			name: "Negative hourly rate",
			req: func(*timesheetFixture) CreateTimesheetRequest {
				return CreateTimesheetRequest{WorkType: "LEAVE", WorkDate: "2024-03-15", HourlyRate: dec("-5")}
			},
			want: ErrInvalidHours,
		},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			f := newTimesheetFixture(t)
			_, err := f.svc.Create(ctx, f.owner, tt.req(f))
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.timesheets.rows)
		})
	}
}

func TestTimesheetService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Recomputes hours when the range changes", func(t *testing.T) {
		f := newTimesheetFixture(t)
		created := f.createDraft(t, "2024-03-15")

		end := "20:00"
		desc := "Release prep"
		resp, err := f.svc.Update(ctx, f.owner, created.ID, UpdateTimesheetRequest{EndTime: &end, Description: &desc})
		require.NoError(t, err)
		assert.Equal(t, "8.50", resp.HoursWorked)
		assert.Equal(t, "1.50", resp.OvertimeHours)
		assert.Equal(t, "Release prep", resp.Description)

		entries, _ := f.history.ListByTimesheet(ctx, uuid.MustParse(created.ID))
		require.Len(t, entries, 2)
		last := entries[1]
		assert.Equal(t, model.HistoryActionUpdated, last.Action)

		var before, after timesheetSnapshot
		require.NoError(t, json.Unmarshal([]byte(*last.OldValues), &before))
		require.NoError(t, json.Unmarshal([]byte(*last.NewValues), &after))
		assert.Equal(t, "18:00", before.EndTime)
		assert.Equal(t, "20:00", after.EndTime)
		assert.Equal(t, "1.50", after.OvertimeHours)
	})

	t.Run("Clearing the range falls back to submitted hours", func(t *testing.T) {
		f := newTimesheetFixture(t)
		created := f.createDraft(t, "2024-03-15")

		empty := ""
		resp, err := f.svc.Update(ctx, f.owner, created.ID, UpdateTimesheetRequest{
			StartTime: &empty, EndTime: &empty, HoursWorked: dec("6"),
		})
		require.NoError(t, err)
		assert.Equal(t, "6.00", resp.HoursWorked)
		assert.Equal(t, "", resp.StartTime)
	})

	t.Run("Only the owner may edit", func(t *testing.T) {
		f := newTimesheetFixture(t)
		created := f.createDraft(t, "2024-03-15")

		desc := "hijack"
		_, err := f.svc.Update(ctx, f.manager, created.ID, UpdateTimesheetRequest{Description: &desc})
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("Submitted entries are locked", func(t *testing.T) {
		f := newTimesheetFixture(t)
		created := f.createDraft(t, "2024-03-15")
		_, err := f.svc.Submit(ctx, f.owner, created.ID)
		require.NoError(t, err)

		desc := "late edit"
		_, err = f.svc.Update(ctx, f.owner, created.ID, UpdateTimesheetRequest{Description: &desc})
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, model.TimesheetStatusSubmitted, statusErr.Current)
		assert.Equal(t, model.TimesheetStatusDraft, statusErr.Required)
	})

	t.Run("Moving onto an existing key is a duplicate", func(t *testing.T) {
		f := newTimesheetFixture(t)
		f.createDraft(t, "2024-03-15")
		second := f.createDraft(t, "2024-03-16")

		date := "2024-03-15"
		_, err := f.svc.Update(ctx, f.owner, second.ID, UpdateTimesheetRequest{WorkDate: &date})
		assert.ErrorIs(t, err, ErrDuplicateTimesheet)
	})

	t.Run("Unknown id", func(t *testing.T) {
		f := newTimesheetFixture(t)
		_, err := f.svc.Update(ctx, f.owner, uuid.NewString(), UpdateTimesheetRequest{})
		assert.ErrorIs(t, err, ErrTimesheetNotFound)

		_, err = f.svc.Update(ctx, f.owner, "not-a-uuid", UpdateTimesheetRequest{})
		assert.ErrorIs(t, err, ErrInvalidID)
	})
}

func TestTimesheetService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newTimesheetFixture(t)
	created := f.createDraft(t, "2024-03-15")

	assert.ErrorIs(t, f.svc.Delete(ctx, f.other, created.ID), ErrNotOwner)
	require.NoError(t, f.svc.Delete(ctx, f.owner, created.ID))

	_, err := f.svc.Get(ctx, f.owner, created.ID)
	assert.ErrorIs(t, err, ErrTimesheetNotFound)

	history, err := f.svc.History(ctx, f.owner, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.HistoryActionDeleted, history[1].Action)
	assert.Equal(t, "null", string(history[1].NewValues))

	// The slot is free again once the entry is gone.
	f.createDraft(t, "2024-03-15")
}

func TestTimesheetService_DeleteAfterDraft(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		advance func(t *testing.T, f *timesheetFixture, id string)
		status  string
	}{
		{
			name:    "Submitted",
			advance: func(t *testing.T, f *timesheetFixture, id string) {},
			status:  model.TimesheetStatusSubmitted,
		},
		{
			name: "Approved",
			advance: func(t *testing.T, f *timesheetFixture, id string) {
				_, err := f.approvals.Approve(ctx, f.manager, id)
				require.NoError(t, err)
			},
			status: model.TimesheetStatusApproved,
		},
		{
			name: "Rejected",
			advance: func(t *testing.T, f *timesheetFixture, id string) {
				_, err := f.approvals.Reject(ctx, f.manager, id, RejectTimesheetRequest{Reason: "Wrong date"})
				require.NoError(t, err)
			},
			status: model.TimesheetStatusRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTimesheetFixture(t)
			ts := f.submitted(t, "2024-03-15")
			tt.advance(t, f, ts.ID)

			err := f.svc.Delete(ctx, f.owner, ts.ID)
			assert.ErrorIs(t, err, ErrInvalidStatusTransition)

			stored := f.timesheets.get(uuid.MustParse(ts.ID))
			assert.Equal(t, tt.status, stored.Status)
		})
	}
}

func TestTimesheetService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("Draft to submitted", func(t *testing.T) {
		f := newTimesheetFixture(t)
		created := f.createDraft(t, "2024-03-15")

		resp, err := f.svc.Submit(ctx, f.owner, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TimesheetStatusSubmitted, resp.Status)
		require.NotNil(t, resp.SubmittedAt)
		assert.Equal(t, f.fixedNow.Format(timestampLayout), *resp.SubmittedAt)
		assert.Equal(t, []string{EventTimesheetSubmitted}, f.events.types())
		assert.Equal(t, []string{model.HistoryActionCreated, model.HistoryActionSubmitted}, f.history.actions(uuid.MustParse(created.ID)))
	})

	t.Run("Second submit names both statuses", func(t *testing.T) {
		f := newTimesheetFixture(t)
		created := f.createDraft(t, "2024-03-15")
		_, err := f.svc.Submit(ctx, f.owner, created.ID)
		require.NoError(t, err)

		_, err = f.svc.Submit(ctx, f.owner, created.ID)
		require.Error(t, err)
		assert.Equal(t, "timesheet is submitted, must be draft", err.Error())
	})

	t.Run("Not owner", func(t *testing.T) {
		f := newTimesheetFixture(t)
		created := f.createDraft(t, "2024-03-15")

		_, err := f.svc.Submit(ctx, f.manager, created.ID)
		assert.ErrorIs(t, err, ErrNotOwner)
		assert.Equal(t, model.TimesheetStatusDraft, f.timesheets.get(uuid.MustParse(created.ID)).Status)
	})

	t.Run("Concurrent status change loses the race", func(t *testing.T) {
		f := newTimesheetFixture(t)
		created := f.createDraft(t, "2024-03-15")
		id := uuid.MustParse(created.ID)

		f.timesheets.beforeStatusUpdate = func(rows map[uuid.UUID]model.Timesheet) {
			row := rows[id]
			row.Status = model.TimesheetStatusSubmitted
			rows[id] = row
		}

		_, err := f.svc.Submit(ctx, f.owner, created.ID)
		assert.ErrorIs(t, err, ErrConcurrentUpdate)
		assert.Empty(t, f.events.types())
	})
}

func TestTimesheetService_BulkSubmit(t *testing.T) {
	ctx := context.Background()
	f := newTimesheetFixture(t)

	first := f.createDraft(t, "2024-03-01")
	second := f.createDraft(t, "2024-03-02")
	outside := f.createDraft(t, "2024-04-01")
	already := f.createDraft(t, "2024-03-03")
	_, err := f.svc.Submit(ctx, f.owner, already.ID)
	require.NoError(t, err)

	resp, err := f.svc.BulkSubmit(ctx, f.owner, BulkSubmitRequest{From: "2024-03-01", To: "2024-03-31"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, resp.Submitted)
	assert.Empty(t, resp.Failed)
	assert.Equal(t, model.TimesheetStatusDraft, f.timesheets.get(uuid.MustParse(outside.ID)).Status)

	_, err = f.svc.BulkSubmit(ctx, f.owner, BulkSubmitRequest{From: "2024-03-31", To: "2024-03-01"})
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestTimesheetService_ReadAccess(t *testing.T) {
	ctx := context.Background()
	f := newTimesheetFixture(t)
	created := f.createDraft(t, "2024-03-15")

	_, err := f.svc.Get(ctx, f.other, created.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	resp, err := f.svc.Get(ctx, f.manager, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, resp.ID)

	_, err = f.svc.History(ctx, f.other, created.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = f.svc.List(ctx, f.other, TimesheetListFilter{Scope: "all"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = f.svc.List(ctx, f.other, TimesheetListFilter{UserID: f.owner.UserID.String()})
	assert.ErrorIs(t, err, ErrForbidden)

	own, total, err := f.svc.List(ctx, f.other, TimesheetListFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, own)

	all, total, err := f.svc.List(ctx, f.manager, TimesheetListFilter{Scope: "all", Status: model.TimesheetStatusDraft})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, all, 1)

	_, _, err = f.svc.List(ctx, f.manager, TimesheetListFilter{Scope: "all", Status: "pending"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestResolveHours(t *testing.T) {
	regular, overtime, err := resolveHours("09:00", "09:00", dec("8"), nil)
	require.NoError(t, err)
	assert.True(t, regular.IsZero())
	assert.True(t, overtime.IsZero())

	regular, _, err = resolveHours("", "", dec("24"), nil)
	require.NoError(t, err)
	assert.Equal(t, "24.00", regular.StringFixed(2))

	regular, _, err = resolveHours("", "", dec("7.456"), nil)
	require.NoError(t, err)
	assert.Equal(t, "7.46", regular.StringFixed(2))

	_, _, err = resolveHours("", "17:00", nil, nil)
	assert.ErrorIs(t, err, ErrIncompleteTimeRange)
}
