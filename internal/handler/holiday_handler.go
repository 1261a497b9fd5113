package handler

import (
	"net/http"
	"strconv"

	"painai/internal/middleware"
	"painai/internal/model"
	"painai/internal/service"
	"painai/pkg/response"

	"github.com/gin-gonic/gin"
)

type HolidayHandler struct {
	holidayService service.HolidayService
	auth           *middleware.AuthMiddleware
}

func NewHolidayHandler(holidayService service.HolidayService, auth *middleware.AuthMiddleware) *HolidayHandler {
	return &HolidayHandler{holidayService: holidayService, auth: auth}
}

func (h *HolidayHandler) RegisterRoutes(router *gin.RouterGroup) {
	holidays := router.Group("/api/holidays")
	{
		holidays.GET("", h.auth.RequirePermission(model.PermHolidaysRead), h.ListHolidays)
		holidays.GET("/template", h.auth.RequirePermission(model.PermHolidaysWrite), h.DownloadTemplate)
		holidays.POST("", h.auth.RequirePermission(model.PermHolidaysWrite), h.CreateHoliday)
		holidays.POST("/import", h.auth.RequirePermission(model.PermHolidaysWrite), h.ImportHolidays)
		holidays.PUT("/:id", h.auth.RequirePermission(model.PermHolidaysWrite), h.UpdateHoliday)
		holidays.DELETE("/:id", h.auth.RequirePermission(model.PermHolidaysWrite), h.DeleteHoliday)
	}
}

// ListHolidays godoc
// @Summary      List holidays of a year
// @Tags         holidays
// @Produce      json
// @Security     BearerAuth
// @Param        year  query     int  false  "Calendar year (default current year)"
// @Success      200   {object}  response.Response{data=[]service.HolidayResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/holidays [get]
func (h *HolidayHandler) ListHolidays(c *gin.Context) {
	year := 0
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 || y > 9999 {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid year"))
			return
		}
		year = y
	}

	holidays, err := h.holidayService.ListHolidays(c.Request.Context(), year)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, holidays))
}

// CreateHoliday godoc
// @Summary      Create holiday
// @Tags         holidays
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateHolidayRequest  true  "Holiday"
// @Success      201      {object}  response.Response{data=service.HolidayResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/holidays [post]
func (h *HolidayHandler) CreateHoliday(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	holiday, err := h.holidayService.CreateHoliday(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, holiday))
}

// UpdateHoliday godoc
// @Summary      Update holiday
// @Tags         holidays
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Holiday ID"
// @Param        payload  body      service.UpdateHolidayRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.HolidayResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/holidays/{id} [put]
func (h *HolidayHandler) UpdateHoliday(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.UpdateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	holiday, err := h.holidayService.UpdateHoliday(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, holiday))
}

// DeleteHoliday godoc
// @Summary      Delete holiday
// @Tags         holidays
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Holiday ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/holidays/{id} [delete]
func (h *HolidayHandler) DeleteHoliday(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := h.holidayService.DeleteHoliday(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Holiday deleted successfully"))
}

// ImportHolidays godoc
// @Summary      Import holidays from Excel
// @Description  Upserts holidays by date from the first sheet (date | name | description | type, header row)
// @Tags         holidays
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "xlsx workbook"
// @Success      200   {object}  response.Response{data=service.HolidayImportResult}
// @Failure      400   {object}  response.Response
// @Router       /api/holidays/import [post]
func (h *HolidayHandler) ImportHolidays(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	f, ok := readUploadedWorkbook(c)
	if !ok {
		return
	}
	defer f.Close()

	result, err := h.holidayService.ImportHolidays(c.Request.Context(), actor, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// DownloadTemplate godoc
// @Summary      Holiday import template
// @Tags         holidays
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Success      200  {file}  file
// @Router       /api/holidays/template [get]
func (h *HolidayHandler) DownloadTemplate(c *gin.Context) {
	f, err := h.holidayService.GenerateTemplate()
	if err != nil {
		respondError(c, err)
		return
	}
	writeWorkbook(c, f, "holiday_import_template.xlsx")
}
