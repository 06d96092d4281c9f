package kits

import (
	"context"
	"net/http"

	"github.com/novozhilovsergeydisk/tool-system/internal/core/response"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/gin-gonic/gin"
)

type Service interface {
	Create(ctx context.Context, actor roles.Actor, req models.KitRequest) (*models.ToolKit, error)
	Update(ctx context.Context, actor roles.Actor, id int, req models.KitRequest) (*models.ToolKit, error)
	Delete(ctx context.Context, actor roles.Actor, id int) error
	Get(ctx context.Context, actor roles.Actor, id int) (*models.KitContents, error)
	List(ctx context.Context, actor roles.Actor, filter models.KitFilter) ([]models.ToolKit, error)
	Available(ctx context.Context, actor roles.Actor, id int) (*models.KitContents, error)
	AddTool(ctx context.Context, actor roles.Actor, kitID, toolID int) (*models.MovementLog, error)
	RemoveTool(ctx context.Context, actor roles.Actor, kitID, toolID int) (*models.MovementLog, error)
	AddConsumable(ctx context.Context, actor roles.Actor, kitID, balanceID, qty int) (*models.MovementLog, error)
	RemoveConsumable(ctx context.Context, actor roles.Actor, kitID, balanceID, qty int) (*models.MovementLog, error)
	Issue(ctx context.Context, actor roles.Actor, kitID int, req models.KitIssueRequest) (*models.MovementLog, error)
	Return(ctx context.Context, actor roles.Actor, kitID int, comment string) (*models.MovementLog, error)
}

type KitHandler struct {
	service Service
}

func NewHandler(s Service) *KitHandler {
	return &KitHandler{service: s}
}

func (h *KitHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/kits", h.List)
	router.POST("/kits", h.Create)
	router.GET("/kits/:id", h.Get)
	router.PUT("/kits/:id", h.Update)
	router.DELETE("/kits/:id", h.Delete)
	router.GET("/kits/:id/available", h.Available)
	router.POST("/kits/:id/tools", h.AddTool)
	router.DELETE("/kits/:id/tools/:toolId", h.RemoveTool)
	router.POST("/kits/:id/consumables", h.AddConsumable)
	router.POST("/kits/:id/consumables/remove", h.RemoveConsumable)
	router.POST("/kits/:id/issue", h.Issue)
	router.POST("/kits/:id/return", h.Return)
}

func (h *KitHandler) List(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}

	var filter models.KitFilter
	var warehouseID *int
	if !response.OptionalInts(c, map[string]**int{"holder_id": &filter.HolderID, "warehouse_id": &warehouseID}) {
		return
	}
	if warehouseID != nil {
		filter.WarehouseIDs = []int{*warehouseID}
	}
	if status := c.Query("status"); status != "" {
		s, err := metadata.NewKitStatus(status)
		if err != nil {
			response.InvalidPayload(c, err)
			return
		}
		filter.Status = &s
	}

	kits, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err, "Unable to list kits")
		return
	}
	c.JSON(http.StatusOK, kits)
}

func (h *KitHandler) Create(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	var req models.KitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	kit, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err, "Unable to create kit")
		return
	}
	c.JSON(http.StatusCreated, kit)
}

func (h *KitHandler) Get(c *gin.Context) {
	h.contents(c, h.service.Get, "Unable to get kit")
}

func (h *KitHandler) Available(c *gin.Context) {
	h.contents(c, h.service.Available, "Unable to list free stock for kit")
}

func (h *KitHandler) contents(c *gin.Context, load func(context.Context, roles.Actor, int) (*models.KitContents, error), message string) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}

	kit, err := load(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err, message)
		return
	}
	c.JSON(http.StatusOK, kit)
}

func (h *KitHandler) Update(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	var req models.KitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	kit, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err, "Unable to update kit")
		return
	}
	c.JSON(http.StatusOK, kit)
}

func (h *KitHandler) Delete(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err, "Unable to delete kit")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *KitHandler) AddTool(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	var req models.KitToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	entry, err := h.service.AddTool(c.Request.Context(), actor, id, req.ToolID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"movement": entry})
}

func (h *KitHandler) RemoveTool(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	toolID, ok := response.IntParam(c, "toolId")
	if !ok {
		return
	}

	entry, err := h.service.RemoveTool(c.Request.Context(), actor, id, toolID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"movement": entry})
}

func (h *KitHandler) AddConsumable(c *gin.Context) {
	h.changeConsumable(c, h.service.AddConsumable)
}

func (h *KitHandler) RemoveConsumable(c *gin.Context) {
	h.changeConsumable(c, h.service.RemoveConsumable)
}

func (h *KitHandler) changeConsumable(c *gin.Context, op func(context.Context, roles.Actor, int, int, int) (*models.MovementLog, error)) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	var req models.KitConsumableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	entry, err := op(c.Request.Context(), actor, id, req.BalanceID, req.Quantity)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"movement": entry})
}

func (h *KitHandler) Issue(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	var req models.KitIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	entry, err := h.service.Issue(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"movement": entry})
}

func (h *KitHandler) Return(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	var req models.KitReturnRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.InvalidPayload(c, err)
			return
		}
	}

	entry, err := h.service.Return(c.Request.Context(), actor, id, req.Comment)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"movement": entry})
}
