package handler

import (
	"painai/internal/middleware"
	"painai/internal/model"
	"painai/internal/websocket"

	"github.com/gin-gonic/gin"
)

// WebsocketHandler upgrades authenticated clients onto the notification hub.
type WebsocketHandler struct {
	hub  *websocket.Hub
	auth *middleware.AuthMiddleware
}

func NewWebsocketHandler(hub *websocket.Hub, auth *middleware.AuthMiddleware) *WebsocketHandler {
	return &WebsocketHandler{hub: hub, auth: auth}
}

func (h *WebsocketHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", h.auth.RequireAuth(), h.Serve)
}

// Serve godoc
// @Summary      Timesheet status notifications
// @Description  Upgrades to a websocket. Browsers pass the access token as ?token=. Approvers and timesheets.read_all holders receive every event; other users only events about their own entries.
// @Tags         websocket
// @Param        token  query  string  false  "Access token"
// @Success      101  {string}  string  "Switching Protocols"
// @Failure      401  {object}  response.Response
// @Router       /ws [get]
func (h *WebsocketHandler) Serve(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	privileged := actor.Has(model.PermTimesheetsReadAll) || actor.Has(model.PermTimesheetsApprove)
	h.hub.ServeWs(c, actor.UserID.String(), privileged)
}
