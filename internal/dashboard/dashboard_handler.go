package dashboard

import (
	"context"
	"net/http"

	"github.com/novozhilovsergeydisk/tool-system/internal/core/response"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/gin-gonic/gin"
)

type Service interface {
	Summary(ctx context.Context, actor roles.Actor) (*models.Dashboard, error)
}

type DashboardHandler struct {
	service Service
}

func NewHandler(s Service) *DashboardHandler {
	return &DashboardHandler{service: s}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard", h.GetDashboard)
}

func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err, "Failed to build dashboard")
		return
	}
	c.JSON(http.StatusOK, summary)
}
