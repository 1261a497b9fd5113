package handler

import (
	"fmt"
	"net/http"
	"testing"

	"painai/internal/model"
	"painai/internal/service"
	"painai/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTimesheetRouter(svc *stubTimesheetService) *gin.Engine {
	r := testutil.SetupRouter()
	NewTimesheetHandler(svc, testutil.NewAuth(testPermissions)).RegisterRoutes(&r.RouterGroup)
	return r
}

func TestTimesheetHandler_Create(t *testing.T) {
	owner := uuid.New()
	svc := &stubTimesheetService{result: &service.TimesheetResponse{ID: "ts-1", Status: model.TimesheetStatusDraft}}
	r := setupTimesheetRouter(svc)
	token := testutil.GenerateTestToken(t, owner, model.RoleEmployee)

	body := map[string]interface{}{
		"work_type":    "PROJECT",
		"work_date":    "2024-03-15",
		"start_time":   "09:00",
		"end_time":     "20:00",
		"hours_worked": 3,
		"billable":     true,
	}
	w := testutil.DoRequest(r, http.MethodPost, "/api/timesheets", body, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got service.TimesheetResponse
	testutil.DecodeData(t, w, &got)
	assert.Equal(t, "ts-1", got.ID)

	assert.Equal(t, owner, svc.lastActor.UserID)
	assert.Equal(t, model.RoleEmployee, svc.lastActor.Role)
	assert.Contains(t, svc.lastActor.Permissions, model.PermTimesheetsWrite)
	assert.Equal(t, "09:00", svc.lastCreate.StartTime)
	require.NotNil(t, svc.lastCreate.HoursWorked)
	assert.Equal(t, "3", svc.lastCreate.HoursWorked.String())
	assert.True(t, svc.lastCreate.Billable)
}

func TestTimesheetHandler_CreateValidation(t *testing.T) {
	r := setupTimesheetRouter(&stubTimesheetService{})
	token := testutil.GenerateTestToken(t, uuid.New(), model.RoleEmployee)

	tests := []struct {
		name    string
		body    interface{}
		message string
	}{
		{
			name:    "Missing required fields",
			body:    map[string]interface{}{},
			message: "Field 'work_type' is required",
		},
		{
			name:    "Malformed start time",
			body:    map[string]interface{}{"work_type": "PROJECT", "work_date": "2024-03-15", "start_time": "25:00", "end_time": "18:00"},
			message: "Field 'start_time' must be a time of day in HH:MM format",
		},
		{
			name:    "Wrong type",
			body:    map[string]interface{}{"work_type": "PROJECT", "work_date": "2024-03-15", "billable": "yes"},
			message: "should be of type bool",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.DoRequest(r, http.MethodPost, "/api/timesheets", tt.body, token)
			require.Equal(t, http.StatusBadRequest, w.Code)
			res, _ := testutil.ParseResponse(t, w)
			assert.Equal(t, "error", res.Status)
			assert.Contains(t, res.Error, tt.message)
		})
	}
}

func TestTimesheetHandler_RequiresAuthentication(t *testing.T) {
	r := setupTimesheetRouter(&stubTimesheetService{})

	w := testutil.DoRequest(r, http.MethodGet, "/api/timesheets", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutil.DoRequest(r, http.MethodGet, "/api/timesheets", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTimesheetHandler_ErrorMapping(t *testing.T) {
	token := testutil.GenerateTestToken(t, uuid.New(), model.RoleEmployee)

	tests := []struct {
		name   string
		err    error
		method string
		path   string
		body   interface{}
		status int
	}{
		{"Not found", service.ErrTimesheetNotFound, http.MethodGet, "/api/timesheets/" + uuid.NewString(), nil, http.StatusNotFound},
		{"Status precondition", fmt.Errorf("%w: timesheet is submitted, must be draft", service.ErrInvalidStatusTransition), http.MethodPut, "/api/timesheets/" + uuid.NewString(), map[string]interface{}{}, http.StatusConflict},
		{"Not owner", service.ErrNotOwner, http.MethodDelete, "/api/timesheets/" + uuid.NewString(), nil, http.StatusForbidden},
		{"Duplicate", service.ErrDuplicateTimesheet, http.MethodPost, "/api/timesheets", map[string]interface{}{"work_type": "PROJECT", "work_date": "2024-03-15"}, http.StatusConflict},
		{"Bad id", service.ErrInvalidID, http.MethodPost, "/api/timesheets/abc/submit", nil, http.StatusBadRequest},
		{"Unexpected", fmt.Errorf("connection reset"), http.MethodGet, "/api/timesheets/" + uuid.NewString() + "/history", nil, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupTimesheetRouter(&stubTimesheetService{err: tt.err})
			w := testutil.DoRequest(r, tt.method, tt.path, tt.body, token)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			res, _ := testutil.ParseResponse(t, w)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "Internal server error", res.Error)
			} else {
				assert.Equal(t, tt.err.Error(), res.Error)
			}
		})
	}
}

func TestTimesheetHandler_List(t *testing.T) {
	svc := &stubTimesheetService{list: []service.TimesheetResponse{{ID: "a"}, {ID: "b"}}, total: 12}
	r := setupTimesheetRouter(svc)
	token := testutil.GenerateTestToken(t, uuid.New(), model.RoleManager)

	w := testutil.DoRequest(r, http.MethodGet, "/api/timesheets?scope=all&status=submitted&from=2024-03-01&to=2024-03-31&page=2&limit=5", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Items []service.TimesheetResponse `json:"items"`
		Total int64                       `json:"total"`
		Page  int                         `json:"page"`
		Limit int                         `json:"limit"`
	}
	testutil.DecodeData(t, w, &page)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(12), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 5, page.Limit)

	assert.Equal(t, service.TimesheetListFilter{
		Scope: "all", Status: "submitted", From: "2024-03-01", To: "2024-03-31", Page: 2, Limit: 5,
	}, svc.lastFilter)
}

func TestTimesheetHandler_SubmitRoutes(t *testing.T) {
	svc := &stubTimesheetService{result: &service.TimesheetResponse{ID: "ts-1", Status: model.TimesheetStatusSubmitted}}
	r := setupTimesheetRouter(svc)
	token := testutil.GenerateTestToken(t, uuid.New(), model.RoleEmployee)

	id := uuid.NewString()
	w := testutil.DoRequest(r, http.MethodPost, "/api/timesheets/"+id+"/submit", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, svc.lastID)

	w = testutil.DoRequest(r, http.MethodPost, "/api/timesheets/submit", map[string]string{"from": "2024-03-01", "to": "2024-03-31"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "2024-03-31", svc.lastBulk.To)

	var res service.BulkSubmitResponse
	testutil.DecodeData(t, w, &res)
	assert.Equal(t, []string{"a", "b"}, res.Submitted)
}

func TestTimesheetHandler_Apportion(t *testing.T) {
	r := setupTimesheetRouter(&stubTimesheetService{})
	token := testutil.GenerateTestToken(t, uuid.New(), model.RoleEmployee)

	w := testutil.DoRequest(r, http.MethodPost, "/api/timesheets/apportion", map[string]string{"start_time": "09:00", "end_time": "20:00"}, token)
	require.Equal(t, http.StatusOK, w.Code)
	var split service.ApportionResponse
	testutil.DecodeData(t, w, &split)
	assert.Equal(t, "8.50", split.RegularHours)

	w = testutil.DoRequest(r, http.MethodPost, "/api/timesheets/apportion", map[string]string{"start_time": "9am", "end_time": "20:00"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
