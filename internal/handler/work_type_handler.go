package handler

import (
	"context"
	"net/http"

	"painai/internal/middleware"
	"painai/internal/model"
	"painai/internal/service"
	"painai/pkg/response"

	"github.com/gin-gonic/gin"
)

type WorkTypeHandler struct {
	workTypeService service.WorkTypeService
	auth            *middleware.AuthMiddleware
}

func NewWorkTypeHandler(workTypeService service.WorkTypeService, auth *middleware.AuthMiddleware) *WorkTypeHandler {
	return &WorkTypeHandler{workTypeService: workTypeService, auth: auth}
}

func (h *WorkTypeHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/work-types", h.auth.RequireAuth(), h.Tree)

	write := router.Group("/api")
	write.Use(h.auth.RequirePermission(model.PermWorkTypesWrite))
	{
		write.POST("/work-types", h.CreateWorkType)
		write.DELETE("/work-types/:id", h.DeleteWorkType)
		write.POST("/work-types/:id/sub-work-types", h.CreateSubWorkType)
		write.DELETE("/sub-work-types/:id", h.DeleteSubWorkType)
		write.POST("/sub-work-types/:id/activities", h.CreateActivity)
		write.DELETE("/activities/:id", h.DeleteActivity)
	}
}

// Tree godoc
// @Summary      Work type tree
// @Description  Work types with their sub work types and activities, ordered by sort order
// @Tags         work-types
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.WorkTypeNode}
// @Router       /api/work-types [get]
func (h *WorkTypeHandler) Tree(c *gin.Context) {
	tree, err := h.workTypeService.Tree(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tree))
}

// CreateWorkType godoc
// @Summary      Create work type
// @Tags         work-types
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateWorkTypeNodeRequest  true  "Node"
// @Success      201      {object}  response.Response{data=service.WorkTypeNode}
// @Failure      409      {object}  response.Response
// @Router       /api/work-types [post]
func (h *WorkTypeHandler) CreateWorkType(c *gin.Context) {
	h.createNode(c, func(actor service.Actor, req service.CreateWorkTypeNodeRequest) (*service.WorkTypeNode, error) {
		return h.workTypeService.CreateWorkType(c.Request.Context(), actor, req)
	})
}

// CreateSubWorkType godoc
// @Summary      Create sub work type
// @Tags         work-types
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                             true  "Work type ID"
// @Param        payload  body      service.CreateWorkTypeNodeRequest  true  "Node"
// @Success      201      {object}  response.Response{data=service.WorkTypeNode}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/work-types/{id}/sub-work-types [post]
func (h *WorkTypeHandler) CreateSubWorkType(c *gin.Context) {
	h.createNode(c, func(actor service.Actor, req service.CreateWorkTypeNodeRequest) (*service.WorkTypeNode, error) {
		return h.workTypeService.CreateSubWorkType(c.Request.Context(), actor, c.Param("id"), req)
	})
}

// CreateActivity godoc
// @Summary      Create activity
// @Tags         work-types
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                             true  "Sub work type ID"
// @Param        payload  body      service.CreateWorkTypeNodeRequest  true  "Node"
// @Success      201      {object}  response.Response{data=service.WorkTypeNode}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/sub-work-types/{id}/activities [post]
func (h *WorkTypeHandler) CreateActivity(c *gin.Context) {
	h.createNode(c, func(actor service.Actor, req service.CreateWorkTypeNodeRequest) (*service.WorkTypeNode, error) {
		return h.workTypeService.CreateActivity(c.Request.Context(), actor, c.Param("id"), req)
	})
}

// DeleteWorkType godoc
// @Summary      Delete work type
// @Description  Removes the work type together with its sub work types and activities
// @Tags         work-types
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Work type ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/work-types/{id} [delete]
func (h *WorkTypeHandler) DeleteWorkType(c *gin.Context) {
	h.deleteNode(c, h.workTypeService.DeleteWorkType)
}

// DeleteSubWorkType godoc
// @Summary      Delete sub work type
// @Tags         work-types
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Sub work type ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/sub-work-types/{id} [delete]
func (h *WorkTypeHandler) DeleteSubWorkType(c *gin.Context) {
	h.deleteNode(c, h.workTypeService.DeleteSubWorkType)
}

// DeleteActivity godoc
// @Summary      Delete activity
// @Tags         work-types
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Activity ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/activities/{id} [delete]
func (h *WorkTypeHandler) DeleteActivity(c *gin.Context) {
	h.deleteNode(c, h.workTypeService.DeleteActivity)
}

func (h *WorkTypeHandler) createNode(c *gin.Context, create func(service.Actor, service.CreateWorkTypeNodeRequest) (*service.WorkTypeNode, error)) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.CreateWorkTypeNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	node, err := create(actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, node))
}

func (h *WorkTypeHandler) deleteNode(c *gin.Context, remove func(ctx context.Context, actor service.Actor, id string) error) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := remove(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Deleted successfully"))
}
