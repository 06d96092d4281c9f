package locations

import (
	"context"
	"net/http"

	"github.com/novozhilovsergeydisk/tool-system/internal/core/response"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/gin-gonic/gin"
)

type Service interface {
	List(ctx context.Context, actor roles.Actor) ([]models.Warehouse, error)
	Get(ctx context.Context, actor roles.Actor, id int) (*models.Warehouse, error)
	Items(ctx context.Context, actor roles.Actor, id int) (*models.WarehouseItems, error)
	Create(ctx context.Context, actor roles.Actor, req models.WarehouseRequest) (*models.Warehouse, error)
	Update(ctx context.Context, actor roles.Actor, id int, req models.WarehouseRequest) (*models.Warehouse, error)
	Delete(ctx context.Context, actor roles.Actor, id int) error
}

type LocationHandler struct {
	service Service
}

func NewLocationHandler(s Service) *LocationHandler {
	return &LocationHandler{service: s}
}

func (h *LocationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/warehouses", h.CreateWarehouse)
	router.GET("/warehouses", h.GetWarehouses)
	router.GET("/warehouses/:id", h.GetWarehouse)
	router.GET("/warehouses/:id/items", h.GetWarehouseItems)
	router.PUT("/warehouses/:id", h.UpdateWarehouse)
	router.DELETE("/warehouses/:id", h.RemoveWarehouse)
}

func (h *LocationHandler) GetWarehouses(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}

	warehouses, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err, "Could not list warehouses")
		return
	}
	c.JSON(http.StatusOK, warehouses)
}

func (h *LocationHandler) GetWarehouse(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}

	w, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err, "Could not get warehouse")
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *LocationHandler) GetWarehouseItems(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}

	items, err := h.service.Items(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err, "Could not get warehouse items")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *LocationHandler) CreateWarehouse(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	var req models.WarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	w, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err, "Could not insert warehouse")
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *LocationHandler) UpdateWarehouse(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	var req models.WarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	w, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err, "Could not update warehouse")
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *LocationHandler) RemoveWarehouse(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err, "Could not delete warehouse")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Warehouse deleted successfully"})
}
