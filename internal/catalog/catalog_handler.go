package catalog

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
	List(ctx context.Context, filter models.NomenclatureFilter) ([]models.Nomenclature, error)
	Get(ctx context.Context, id int) (*models.Nomenclature, error)
	Create(ctx context.Context, actor roles.Actor, req models.NomenclatureRequest) (*models.Nomenclature, error)
	Update(ctx context.Context, actor roles.Actor, id int, req models.NomenclatureRequest) (*models.Nomenclature, error)
	Delete(ctx context.Context, actor roles.Actor, id int) error
}

type CatalogHandler struct {
	service Service
}

func NewHandler(s Service) *CatalogHandler {
	return &CatalogHandler{service: s}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/nomenclatures", h.List)
	router.POST("/nomenclatures", h.Create)
	router.GET("/nomenclatures/:id", h.Get)
	router.PUT("/nomenclatures/:id", h.Update)
	router.DELETE("/nomenclatures/:id", h.Delete)
}

func (h *CatalogHandler) List(c *gin.Context) {
	filter := models.NomenclatureFilter{Search: c.Query("search")}
	if value := c.Query("item_type"); value != "" {
		itemType, err := metadata.NewItemType(value)
		if err != nil {
			response.InvalidPayload(c, err)
			return
		}
		filter.ItemType = &itemType
	}

	nomenclatures, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err, "Unable to list nomenclatures")
		return
	}
	c.JSON(http.StatusOK, nomenclatures)
}

func (h *CatalogHandler) Get(c *gin.Context) {
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}

	n, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "Unable to get nomenclature")
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *CatalogHandler) Create(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	var req models.NomenclatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	n, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err, "Unable to create nomenclature")
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (h *CatalogHandler) Update(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	var req models.NomenclatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	n, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err, "Unable to update nomenclature")
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *CatalogHandler) Delete(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err, "Unable to delete nomenclature")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Nomenclature deleted successfully"})
}
