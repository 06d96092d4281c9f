package movements

import (
	"context"
	"strings"

	"github.com/novozhilovsergeydisk/tool-system/internal/core/response"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/gin-gonic/gin"
)

type Service interface {
	GetTool(ctx context.Context, actor roles.Actor, id int) (*models.ToolInstance, error)
	ListTools(ctx context.Context, actor roles.Actor, filter models.ToolFilter) ([]models.ToolInstance, error)
	ListBalances(ctx context.Context, actor roles.Actor, filter models.BalanceFilter) ([]models.ConsumableBalance, error)
	ReceiveTool(ctx context.Context, actor roles.Actor, req models.ReceiveToolRequest) (*models.ToolInstance, *models.MovementLog, error)
	IssueTool(ctx context.Context, actor roles.Actor, req models.IssueToolRequest) (*models.MovementLog, error)
	ReturnTool(ctx context.Context, actor roles.Actor, req models.ReturnToolRequest) (*models.MovementLog, error)
	WriteOffTool(ctx context.Context, actor roles.Actor, toolID int, comment string) (*models.MovementLog, error)
	RelocateTool(ctx context.Context, actor roles.Actor, toolID int, dest models.Location, comment string) (*models.MovementLog, error)
	EditTool(ctx context.Context, actor roles.Actor, toolID int, req models.EditToolRequest) (*models.ToolInstance, error)
	ReceiveConsumable(ctx context.Context, actor roles.Actor, req models.ReceiveConsumableRequest) (*models.ConsumableBalance, *models.MovementLog, error)
	IssueConsumable(ctx context.Context, actor roles.Actor, req models.IssueConsumableRequest) (*models.MovementLog, error)
	ReturnConsumable(ctx context.Context, actor roles.Actor, req models.ReturnConsumableRequest) (*models.MovementLog, error)
	WriteOffConsumable(ctx context.Context, actor roles.Actor, balanceID int, req models.WriteOffRequest) (*models.MovementLog, error)
	RelocateConsumable(ctx context.Context, actor roles.Actor, balanceID int, dest models.Location, qty int, comment string) (*models.MovementLog, error)
	BulkIssue(ctx context.Context, actor roles.Actor, req models.BulkIssueRequest) ([]*models.MovementLog, error)
	QuickReturn(ctx context.Context, actor roles.Actor, req models.QuickReturnRequest) (*models.QuickReturnResult, error)
	TakeSelf(ctx context.Context, actor roles.Actor, req models.SelfServiceRequest) ([]*models.MovementLog, error)
	ReturnSelf(ctx context.Context, actor roles.Actor, req models.SelfServiceRequest) ([]*models.MovementLog, error)
	HolderItems(ctx context.Context, actor roles.Actor, userID int) (*models.HolderItems, error)
}

type MovementHandler struct {
	service Service
}

func NewHandler(s Service) *MovementHandler {
	return &MovementHandler{service: s}
}

func (h *MovementHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/tools", h.ListTools)
	router.GET("/tools/:id", h.GetTool)
	router.PATCH("/tools/:id", h.EditTool)
	router.POST("/tools/receive", h.ReceiveTool)
	router.POST("/tools/issue", h.IssueTool)
	router.POST("/tools/return", h.ReturnTool)
	router.POST("/tools/:id/relocate", h.RelocateTool)
	router.POST("/tools/:id/writeoff", h.WriteOffTool)

	router.GET("/consumables", h.ListBalances)
	router.POST("/consumables/receive", h.ReceiveConsumable)
	router.POST("/consumables/issue", h.IssueConsumable)
	router.POST("/consumables/return", h.ReturnConsumable)
	router.POST("/consumables/:id/relocate", h.RelocateConsumable)
	router.POST("/consumables/:id/writeoff", h.WriteOffConsumable)

	router.POST("/movements/bulk-issue", h.BulkIssue)
	router.POST("/movements/quick-return", h.QuickReturn)
	router.POST("/self/take", h.TakeSelf)
	router.POST("/self/return", h.ReturnSelf)
	router.GET("/holders/:id/items", h.HolderItems)
	router.GET("/me/items", h.MyItems)
}

func (h *MovementHandler) ListTools(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}

	filter := models.ToolFilter{
		FreeOnly: c.Query("free") == "true",
		Search:   strings.TrimSpace(c.Query("search")),
	}
	var warehouseID *int
	if !response.OptionalInts(c, map[string]**int{
		"holder_id":       &filter.HolderID,
		"car_id":          &filter.CarID,
		"kit_id":          &filter.KitID,
		"nomenclature_id": &filter.NomenclatureID,
		"warehouse_id":    &warehouseID,
	}) {
		return
	}
	if warehouseID != nil {
		filter.WarehouseIDs = []int{*warehouseID}
	}
	if status := c.Query("status"); status != "" {
		s, err := metadata.NewToolStatus(status)
		if err != nil {
			response.InvalidPayload(c, err)
			return
		}
		filter.Status = &s
	}
	if condition := c.Query("condition"); condition != "" {
		cond, err := metadata.NewCondition(condition)
		if err != nil {
			response.InvalidPayload(c, err)
			return
		}
		filter.Condition = &cond
	}

	tools, err := h.service.ListTools(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err, "Unable to list tools")
		return
	}
	c.JSON(200, tools)
}

func (h *MovementHandler) GetTool(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}

	tool, err := h.service.GetTool(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err, "Unable to get tool")
		return
	}
	c.JSON(200, tool)
}

func (h *MovementHandler) EditTool(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	var req models.EditToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	tool, err := h.service.EditTool(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err, "Unable to update tool")
		return
	}
	c.JSON(200, tool)
}

func (h *MovementHandler) ReceiveTool(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	var req models.ReceiveToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	tool, entry, err := h.service.ReceiveTool(c.Request.Context(), actor, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"tool": tool, "movement": entry})
}

func (h *MovementHandler) IssueTool(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	var req models.IssueToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	entry, err := h.service.IssueTool(c.Request.Context(), actor, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"movement": entry})
}

func (h *MovementHandler) ReturnTool(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	var req models.ReturnToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	entry, err := h.service.ReturnTool(c.Request.Context(), actor, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"movement": entry})
}

func (h *MovementHandler) RelocateTool(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	req, dest, ok := bindRelocation(c)
	if !ok {
		return
	}

	entry, err := h.service.RelocateTool(c.Request.Context(), actor, id, dest, req.Comment)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"movement": entry})
}

func bindRelocation(c *gin.Context) (models.RelocateRequest, models.Location, bool) {
	var req models.RelocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return req, models.Location{}, false
	}
	dest, err := req.Target.Location()
	if err != nil {
		response.InvalidPayload(c, err)
		return req, models.Location{}, false
	}
	return req, dest, true
}

func (h *MovementHandler) WriteOffTool(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	var req models.WriteOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	entry, err := h.service.WriteOffTool(c.Request.Context(), actor, id, req.Comment)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"movement": entry})
}

func (h *MovementHandler) ListBalances(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}

	filter := models.BalanceFilter{
		FreeOnly: c.Query("free") == "true",
		Search:   strings.TrimSpace(c.Query("search")),
	}
	var warehouseID *int
	if !response.OptionalInts(c, map[string]**int{
		"holder_id":       &filter.HolderID,
		"kit_id":          &filter.KitID,
		"nomenclature_id": &filter.NomenclatureID,
		"warehouse_id":    &warehouseID,
	}) {
		return
	}
	if warehouseID != nil {
		filter.WarehouseIDs = []int{*warehouseID}
	}

	balances, err := h.service.ListBalances(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err, "Unable to list consumables")
		return
	}
	c.JSON(200, balances)
}

func (h *MovementHandler) ReceiveConsumable(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	var req models.ReceiveConsumableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	balance, entry, err := h.service.ReceiveConsumable(c.Request.Context(), actor, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"balance": balance, "movement": entry})
}

func (h *MovementHandler) IssueConsumable(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	var req models.IssueConsumableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	entry, err := h.service.IssueConsumable(c.Request.Context(), actor, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"movement": entry})
}

func (h *MovementHandler) ReturnConsumable(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	var req models.ReturnConsumableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	entry, err := h.service.ReturnConsumable(c.Request.Context(), actor, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"movement": entry})
}

func (h *MovementHandler) RelocateConsumable(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	req, dest, ok := bindRelocation(c)
	if !ok {
		return
	}

	entry, err := h.service.RelocateConsumable(c.Request.Context(), actor, id, dest, req.Quantity, req.Comment)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"movement": entry})
}

func (h *MovementHandler) WriteOffConsumable(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	var req models.WriteOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	entry, err := h.service.WriteOffConsumable(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"movement": entry})
}

func (h *MovementHandler) BulkIssue(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	var req models.BulkIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	entries, err := h.service.BulkIssue(c.Request.Context(), actor, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"movements": entries})
}

func (h *MovementHandler) QuickReturn(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	var req models.QuickReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	result, err := h.service.QuickReturn(c.Request.Context(), actor, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"returned": result.Returned, "skipped": result.Skipped})
}

func (h *MovementHandler) TakeSelf(c *gin.Context) {
	h.selfService(c, h.service.TakeSelf)
}

func (h *MovementHandler) ReturnSelf(c *gin.Context) {
	h.selfService(c, h.service.ReturnSelf)
}

func (h *MovementHandler) selfService(c *gin.Context, op func(context.Context, roles.Actor, models.SelfServiceRequest) ([]*models.MovementLog, error)) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	var req models.SelfServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	entries, err := op(c.Request.Context(), actor, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"movements": entries})
}

func (h *MovementHandler) HolderItems(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	userID, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	h.writeHolderItems(c, actor, userID)
}

func (h *MovementHandler) MyItems(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	h.writeHolderItems(c, actor, actor.UserID)
}

func (h *MovementHandler) writeHolderItems(c *gin.Context, actor roles.Actor, userID int) {
	items, err := h.service.HolderItems(c.Request.Context(), actor, userID)
	if err != nil {
		response.Error(c, err, "Unable to list held items")
		return
	}
	c.JSON(200, items)
}
