package users

import (
	"context"
	"net/http"

	"github.com/novozhilovsergeydisk/tool-system/internal/core/response"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"
	"github.com/novozhilovsergeydisk/tool-system/pkg/security"

	"github.com/gin-gonic/gin"
)

type Service interface {
	List(ctx context.Context, actor roles.Actor) ([]models.User, error)
	Get(ctx context.Context, actor roles.Actor, id int) (*models.User, error)
	Me(ctx context.Context, actor roles.Actor) (*models.User, error)
	Create(ctx context.Context, actor roles.Actor, req models.CreateUserRequest) (*models.User, error)
	Update(ctx context.Context, actor roles.Actor, id int, req models.UpdateUserRequest) (*models.User, error)
	SetGrants(ctx context.Context, actor roles.Actor, id int, req models.UserGrantsRequest) (*models.User, error)
	SetWarehouses(ctx context.Context, actor roles.Actor, id int, req models.UserWarehousesRequest) (*models.User, error)
}

type UsersHandler struct {
	service Service
}

func NewHandler(s Service) *UsersHandler {
	return &UsersHandler{service: s}
}

func (h *UsersHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/users", security.Authorize(roles.Admin), h.RegisterUser)
	router.GET("/users", security.Authorize(roles.Moderator), h.GetUserList)
	router.GET("/users/me", h.GetMe)
	router.GET("/users/:id", h.GetUser)
	router.PATCH("/users/:id", h.UpdateUser)
	router.PUT("/users/:id/capabilities", security.Authorize(roles.Admin), h.SetGrants)
	router.PUT("/users/:id/warehouses", security.Authorize(roles.Admin), h.SetWarehouses)
}

func (h *UsersHandler) RegisterUser(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	user, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err, "Failed to create user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UsersHandler) GetUserList(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}

	users, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err, "Failed to list users")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UsersHandler) GetMe(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}

	user, err := h.service.Me(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err, "Unable to find user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) GetUser(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	userID, ok := response.IntParam(c, "id")
	if !ok {
		return
	}

	user, err := h.service.Get(c.Request.Context(), actor, userID)
	if err != nil {
		response.Error(c, err, "Unable to find user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) UpdateUser(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	userID, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	user, err := h.service.Update(c.Request.Context(), actor, userID, req)
	if err != nil {
		response.Error(c, err, "Failed to update user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) SetGrants(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	userID, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	var req models.UserGrantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	user, err := h.service.SetGrants(c.Request.Context(), actor, userID, req)
	if err != nil {
		response.Error(c, err, "Failed to update capabilities")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) SetWarehouses(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	userID, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	var req models.UserWarehousesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	user, err := h.service.SetWarehouses(c.Request.Context(), actor, userID, req)
	if err != nil {
		response.Error(c, err, "Failed to update warehouse access")
		return
	}
	c.JSON(http.StatusOK, user)
}
