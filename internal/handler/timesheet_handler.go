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

type TimesheetHandler struct {
	timesheetService service.TimesheetService
	auth             *middleware.AuthMiddleware
}

func NewTimesheetHandler(timesheetService service.TimesheetService, auth *middleware.AuthMiddleware) *TimesheetHandler {
	return &TimesheetHandler{timesheetService: timesheetService, auth: auth}
}

func (h *TimesheetHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := h.auth.RequirePermission(model.PermTimesheetsRead)
	write := h.auth.RequirePermission(model.PermTimesheetsWrite)

	timesheets := router.Group("/api/timesheets")
	{
		timesheets.POST("/apportion", h.auth.RequireAuth(), h.Apportion)
		timesheets.POST("/submit", write, h.BulkSubmit)

		timesheets.GET("", read, h.List)
		timesheets.GET("/:id", read, h.Get)
		timesheets.GET("/:id/history", read, h.History)
		timesheets.POST("", write, h.Create)
		timesheets.PUT("/:id", write, h.Update)
		timesheets.DELETE("/:id", write, h.Delete)
		timesheets.POST("/:id/submit", write, h.Submit)
	}
}

// Apportion godoc
// @Summary      Split a start/end pair into regular and overtime hours
// @Description  Minutes before 17:30 are regular, from 18:30 overtime; the hour in between is an unpaid break. End before start wraps past midnight.
// @Tags         timesheets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ApportionRequest  true  "Clock times"
// @Success      200      {object}  response.Response{data=service.ApportionResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/timesheets/apportion [post]
func (h *TimesheetHandler) Apportion(c *gin.Context) {
	var req service.ApportionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	split, err := h.timesheetService.Apportion(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, split))
}

// List godoc
// @Summary      List timesheets
// @Description  Own entries by default; scope=all lists everyone's and requires timesheets.read_all
// @Tags         timesheets
// @Produce      json
// @Security     BearerAuth
// @Param        scope       query     string  false  "all"
// @Param        user_id     query     string  false  "Owner (scope=all only)"
// @Param        project_id  query     string  false  "Project ID"
// @Param        status      query     string  false  "draft, submitted, approved or rejected"
// @Param        from        query     string  false  "From date (YYYY-MM-DD)"
// @Param        to          query     string  false  "To date (YYYY-MM-DD)"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=response.Page{items=[]service.TimesheetResponse}}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/timesheets [get]
func (h *TimesheetHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	items, total, err := h.timesheetService.List(c.Request.Context(), actor, service.TimesheetListFilter{
		Scope:     c.Query("scope"),
		UserID:    c.Query("user_id"),
		ProjectID: c.Query("project_id"),
		Status:    c.Query("status"),
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

// Get godoc
// @Summary      Get timesheet
// @Tags         timesheets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Timesheet ID"
// @Success      200  {object}  response.Response{data=service.TimesheetResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/timesheets/{id} [get]
func (h *TimesheetHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	ts, err := h.timesheetService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ts))
}

// Create godoc
// @Summary      Create draft timesheet
// @Description  When start_time and end_time are given, hours_worked and overtime_hours are derived from them
// @Tags         timesheets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateTimesheetRequest  true  "Timesheet"
// @Success      201      {object}  response.Response{data=service.TimesheetResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/timesheets [post]
func (h *TimesheetHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.CreateTimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ts, err := h.timesheetService.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, ts))
}

// Update godoc
// @Summary      Update draft timesheet
// @Description  Only the owner may edit, and only while the entry is a draft
// @Tags         timesheets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true  "Timesheet ID"
// @Param        payload  body      service.UpdateTimesheetRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.TimesheetResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/timesheets/{id} [put]
func (h *TimesheetHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.UpdateTimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ts, err := h.timesheetService.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ts))
}

// Delete godoc
// @Summary      Delete draft timesheet
// @Tags         timesheets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Timesheet ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/timesheets/{id} [delete]
func (h *TimesheetHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := h.timesheetService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Timesheet deleted successfully"))
}

// Submit godoc
// @Summary      Submit timesheet for approval
// @Tags         timesheets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Timesheet ID"
// @Success      200  {object}  response.Response{data=service.TimesheetResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/timesheets/{id}/submit [post]
func (h *TimesheetHandler) Submit(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	ts, err := h.timesheetService.Submit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ts))
}

// BulkSubmit godoc
// @Summary      Submit own drafts in a date range
// @Description  Each draft is submitted independently; failures are reported per entry
// @Tags         timesheets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.BulkSubmitRequest  true  "Date range"
// @Success      200      {object}  response.Response{data=service.BulkSubmitResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/timesheets/submit [post]
func (h *TimesheetHandler) BulkSubmit(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.BulkSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.timesheetService.BulkSubmit(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// History godoc
// @Summary      Timesheet edit history
// @Description  Append-only change records, oldest first
// @Tags         timesheets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Timesheet ID"
// @Success      200  {object}  response.Response{data=[]service.TimesheetHistoryResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/timesheets/{id}/history [get]
func (h *TimesheetHandler) History(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	entries, err := h.timesheetService.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}
