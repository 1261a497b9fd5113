package handler

import (
	"bytes"
	"net/http"
	"testing"

	"painai/internal/model"
	"painai/internal/service"
	"painai/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setupReportRouter(svc *stubReportService) *gin.Engine {
	r := testutil.SetupRouter()
	NewReportHandler(svc, testutil.NewAuth(testPermissions)).RegisterRoutes(&r.RouterGroup)
	return r
}

func TestReportHandler_RequiresReportsPermission(t *testing.T) {
	r := setupReportRouter(&stubReportService{})
	token := testutil.GenerateTestToken(t, uuid.New(), model.RoleEmployee)

	for _, path := range []string{"/api/reports/summary", "/api/reports/s-curve", "/api/reports/workload", "/api/reports/export"} {
		w := testutil.DoRequest(r, http.MethodGet, path, nil, token)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
}

func TestReportHandler_BindsQuery(t *testing.T) {
	svc := &stubReportService{}
	r := setupReportRouter(svc)
	token := testutil.GenerateTestToken(t, uuid.New(), model.RoleManager)

	projectID := uuid.NewString()
	w := testutil.DoRequest(r, http.MethodGet, "/api/reports/summary?from=2024-04-01&to=2024-04-30&project_id="+projectID+"&status=submitted,approved", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ReportQuery{From: "2024-04-01", To: "2024-04-30", ProjectID: projectID, Status: "submitted,approved"}, svc.lastQuery)

	var got service.SummaryReport
	testutil.DecodeData(t, w, &got)
	assert.Equal(t, "2024-04-01", got.From)
}

func TestReportHandler_ErrorMapping(t *testing.T) {
	token := testutil.GenerateTestToken(t, uuid.New(), model.RoleManager)

	r := setupReportRouter(&stubReportService{err: service.ErrInvalidDateRange})
	w := testutil.DoRequest(r, http.MethodGet, "/api/reports/workload?from=2024-05-01&to=2024-04-01", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r = setupReportRouter(&stubReportService{err: service.ErrProjectNotFound})
	w = testutil.DoRequest(r, http.MethodGet, "/api/reports/s-curve?project_id="+uuid.NewString(), nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.DoRequest(r, http.MethodGet, "/api/reports/export", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

func TestReportHandler_ExportStreamsWorkbook(t *testing.T) {
	r := setupReportRouter(&stubReportService{})
	token := testutil.GenerateTestToken(t, uuid.New(), model.RoleManager)

	w := testutil.DoRequest(r, http.MethodGet, "/api/reports/export?from=2024-04-01&to=2024-04-30", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="timesheets_20240401_20240430.xlsx"`, w.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Date", v)
}
