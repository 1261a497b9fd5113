package handler

import (
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

func setupApprovalRouter(svc *stubApprovalService) *gin.Engine {
	r := testutil.SetupRouter()
	NewApprovalHandler(svc, testutil.NewAuth(testPermissions)).RegisterRoutes(&r.RouterGroup)
	return r
}

func TestApprovalHandler_RequiresApprovePermission(t *testing.T) {
	r := setupApprovalRouter(&stubApprovalService{})
	token := testutil.GenerateTestToken(t, uuid.New(), model.RoleEmployee)

	for _, path := range []string{"/api/timesheets/" + uuid.NewString() + "/approve", "/api/timesheets/" + uuid.NewString() + "/reject"} {
		w := testutil.DoRequest(r, http.MethodPost, path, map[string]string{"reason": "x"}, token)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
	w := testutil.DoRequest(r, http.MethodGet, "/api/approvals/pending", nil, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestApprovalHandler_Approve(t *testing.T) {
	approver := uuid.New()
	svc := &stubApprovalService{result: &service.TimesheetResponse{ID: "ts-1", Status: model.TimesheetStatusApproved}}
	r := setupApprovalRouter(svc)
	token := testutil.GenerateTestToken(t, approver, model.RoleManager)

	id := uuid.NewString()
	w := testutil.DoRequest(r, http.MethodPost, "/api/timesheets/"+id+"/approve", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got service.TimesheetResponse
	testutil.DecodeData(t, w, &got)
	assert.Equal(t, model.TimesheetStatusApproved, got.Status)
	assert.Equal(t, id, svc.lastID)
	assert.Equal(t, approver, svc.lastActor.UserID)
}

func TestApprovalHandler_Reject(t *testing.T) {
	svc := &stubApprovalService{result: &service.TimesheetResponse{ID: "ts-1", Status: model.TimesheetStatusRejected}}
	r := setupApprovalRouter(svc)
	token := testutil.GenerateTestToken(t, uuid.New(), model.RoleManager)
	path := "/api/timesheets/" + uuid.NewString() + "/reject"

	w := testutil.DoRequest(r, http.MethodPost, path, map[string]string{}, token)
	require.Equal(t, http.StatusBadRequest, w.Code)
	res, _ := testutil.ParseResponse(t, w)
	assert.Contains(t, res.Error, "Field 'reason' is required")

	w = testutil.DoRequest(r, http.MethodPost, path, map[string]string{"reason": "Wrong project"}, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Wrong project", svc.lastReason)
}

func TestApprovalHandler_DecisionErrors(t *testing.T) {
	token := testutil.GenerateTestToken(t, uuid.New(), model.RoleManager)

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"Self approval", service.ErrSelfApproval, http.StatusForbidden},
		{"Already decided", service.ErrInvalidStatusTransition, http.StatusConflict},
		{"Lost race", service.ErrConcurrentUpdate, http.StatusConflict},
		{"Missing", service.ErrTimesheetNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupApprovalRouter(&stubApprovalService{err: tt.err})
			w := testutil.DoRequest(r, http.MethodPost, "/api/timesheets/"+uuid.NewString()+"/approve", nil, token)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestApprovalHandler_ListPending(t *testing.T) {
	svc := &stubApprovalService{}
	r := setupApprovalRouter(svc)
	token := testutil.GenerateTestToken(t, uuid.New(), model.RoleManager)

	projectID := uuid.NewString()
	w := testutil.DoRequest(r, http.MethodGet, "/api/approvals/pending?project_id="+projectID+"&limit=500", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, projectID, svc.lastFilter.ProjectID)
	assert.Equal(t, 100, svc.lastFilter.Limit)
	assert.Equal(t, 1, svc.lastFilter.Page)
}
