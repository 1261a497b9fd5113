package handler

import (
	"net/http"

	"painai/internal/middleware"
	"painai/internal/model"
	"painai/internal/service"
	"painai/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
	auth          *middleware.AuthMiddleware
}

func NewReportHandler(reportService service.ReportService, auth *middleware.AuthMiddleware) *ReportHandler {
	return &ReportHandler{reportService: reportService, auth: auth}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports")
	reports.Use(h.auth.RequirePermission(model.PermReportsRead))
	{
		reports.GET("/summary", h.Summary)
		reports.GET("/s-curve", h.SCurve)
		reports.GET("/workload", h.Workload)
		reports.GET("/export", h.Export)
	}
}

// Summary godoc
// @Summary      Hours summary
// @Description  Regular, overtime and billable totals grouped by project and by user. Status defaults to approved; "all" disables the filter.
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        from        query     string  false  "From date (YYYY-MM-DD, default first of month)"
// @Param        to          query     string  false  "To date (YYYY-MM-DD, default end of month)"
// @Param        project_id  query     string  false  "Project ID"
// @Param        user_id     query     string  false  "User ID"
// @Param        status      query     string  false  "Comma separated statuses or all"
// @Success      200  {object}  response.Response{data=service.SummaryReport}
// @Failure      400  {object}  response.Response
// @Router       /api/reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	q, ok := bindReportQuery(c)
	if !ok {
		return
	}
	report, err := h.reportService.Summary(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// SCurve godoc
// @Summary      Project S-curve
// @Description  Daily and cumulative actual hours against a linear planned curve of the budget over the project's working days
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  query     string  true   "Project ID"
// @Param        from        query     string  false  "From date (default project start)"
// @Param        to          query     string  false  "To date (default project end)"
// @Param        status      query     string  false  "Comma separated statuses or all"
// @Success      200  {object}  response.Response{data=service.SCurveReport}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/reports/s-curve [get]
func (h *ReportHandler) SCurve(c *gin.Context) {
	q, ok := bindReportQuery(c)
	if !ok {
		return
	}
	report, err := h.reportService.SCurve(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// Workload godoc
// @Summary      Workload per user
// @Description  Expected hours (working days excluding weekends and holidays times standard daily hours) against logged hours
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        from     query     string  false  "From date (YYYY-MM-DD)"
// @Param        to       query     string  false  "To date (YYYY-MM-DD)"
// @Param        user_id  query     string  false  "User ID"
// @Param        status   query     string  false  "Comma separated statuses or all"
// @Success      200  {object}  response.Response{data=service.WorkloadReport}
// @Failure      400  {object}  response.Response
// @Router       /api/reports/workload [get]
func (h *ReportHandler) Workload(c *gin.Context) {
	q, ok := bindReportQuery(c)
	if !ok {
		return
	}
	report, err := h.reportService.Workload(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// Export godoc
// @Summary      Export timesheets to Excel
// @Tags         reports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        from        query     string  false  "From date (YYYY-MM-DD)"
// @Param        to          query     string  false  "To date (YYYY-MM-DD)"
// @Param        project_id  query     string  false  "Project ID"
// @Param        user_id     query     string  false  "User ID"
// @Param        status      query     string  false  "Comma separated statuses or all"
// @Success      200  {file}    file
// @Failure      400  {object}  response.Response
// @Router       /api/reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	q, ok := bindReportQuery(c)
	if !ok {
		return
	}
	f, filename, err := h.reportService.Export(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	writeWorkbook(c, f, filename)
}

func bindReportQuery(c *gin.Context) (service.ReportQuery, bool) {
	var q service.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return q, false
	}
	return q, true
}
