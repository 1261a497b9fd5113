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

type ProjectHandler struct {
	projectService service.ProjectService
	auth           *middleware.AuthMiddleware
}

func NewProjectHandler(projectService service.ProjectService, auth *middleware.AuthMiddleware) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, auth: auth}
}

func (h *ProjectHandler) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/api/projects")
	{
		projects.GET("", h.auth.RequirePermission(model.PermProjectsRead), h.ListProjects)
		projects.GET("/:id", h.auth.RequirePermission(model.PermProjectsRead), h.GetProject)
		projects.POST("", h.auth.RequirePermission(model.PermProjectsWrite), h.CreateProject)
		projects.PUT("/:id", h.auth.RequirePermission(model.PermProjectsWrite), h.UpdateProject)
		projects.DELETE("/:id", h.auth.RequirePermission(model.PermProjectsWrite), h.DeleteProject)
	}
}

// ListProjects godoc
// @Summary      List projects
// @Description  Paginated projects filterable by status, manager and code/name search
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Param        status      query     string  false  "active, on_hold, completed or cancelled"
// @Param        search      query     string  false  "Code or name contains"
// @Param        manager_id  query     string  false  "Manager user ID"
// @Success      200  {object}  response.Response{data=response.Page{items=[]service.ProjectResponse}}
// @Failure      400  {object}  response.Response
// @Router       /api/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	p := pagination.Parse(c)

	projects, total, err := h.projectService.ListProjects(c.Request.Context(), service.ProjectListFilter{
		Status:    c.Query("status"),
		Search:    c.Query("search"),
		ManagerID: c.Query("manager_id"),
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, projects, total, p.Page, p.Limit))
}

// GetProject godoc
// @Summary      Get project
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response{data=service.ProjectResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/projects/{id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectService.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// CreateProject godoc
// @Summary      Create project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateProjectRequest  true  "Project"
// @Success      201      {object}  response.Response{data=service.ProjectResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, project))
}

// UpdateProject godoc
// @Summary      Update project
// @Description  Partial update; the project code is immutable
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Project ID"
// @Param        payload  body      service.UpdateProjectRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.ProjectResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/projects/{id} [put]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	project, err := h.projectService.UpdateProject(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// DeleteProject godoc
// @Summary      Delete project
// @Description  Soft deletes a project that no timesheet references
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/projects/{id} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := h.projectService.DeleteProject(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Project deleted successfully"))
}
