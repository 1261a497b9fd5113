package handler

import (
	"net/http"

	"painai/internal/middleware"
	"painai/internal/model"
	"painai/internal/service"
	"painai/pkg/pagination"
	"painai/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
	auth            *middleware.AuthMiddleware
}

func NewApprovalHandler(approvalService service.ApprovalService, auth *middleware.AuthMiddleware) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService, auth: auth}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	approve := h.auth.RequirePermission(model.PermTimesheetsApprove)

	router.GET("/api/approvals/pending", approve, h.ListPending)
	router.POST("/api/timesheets/:id/approve", approve, h.Approve)
	router.POST("/api/timesheets/:id/reject", approve, h.Reject)
}

// ListPending returns submitted timesheets awaiting a decision, excluding the approver's own
// @Summary      Pending approvals
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Param        user_id     query     string  false  "Owner"
// @Param        project_id  query     string  false  "Project ID"
// @Param        from        query     string  false  "From date (YYYY-MM-DD)"
// @Param        to          query     string  false  "To date (YYYY-MM-DD)"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=response.Page{items=[]service.TimesheetResponse}}
// @Failure      400  {object}  response.Response
// @Router       /api/approvals/pending [get]
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	items, total, err := h.approvalService.ListPending(c.Request.Context(), actor, service.PendingFilter{
		UserID:    c.Query("user_id"),
		ProjectID: c.Query("project_id"),
		From:      c.Query("from"),
		To:        c.Query("to"),
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, items, total, p.Page, p.Limit))
}

// Approve moves a submitted timesheet to approved
// @Summary      Approve timesheet
// @Description  Only submitted entries can be approved, and never by their owner
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Timesheet ID"
// @Success      200  {object}  response.Response{data=service.TimesheetResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/timesheets/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	ts, err := h.approvalService.Approve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ts))
}

// Reject moves a submitted timesheet to rejected with a reason
// @Summary      Reject timesheet
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true  "Timesheet ID"
// @Param        payload  body      service.RejectTimesheetRequest  true  "Reason"
// @Success      200      {object}  response.Response{data=service.TimesheetResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/timesheets/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.RejectTimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ts, err := h.approvalService.Reject(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ts))
}
