package fleet

import (
	"context"
	"net/http"
	"strconv"

	"github.com/novozhilovsergeydisk/tool-system/internal/core/response"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/gin-gonic/gin"
)

type Service interface {
	Issue(ctx context.Context, actor roles.Actor, carID int, req models.CarIssueRequest) (*models.MovementLog, error)
	Return(ctx context.Context, actor roles.Actor, carID int, req models.CarTripRequest) (*models.MovementLog, error)
	StartMaintenance(ctx context.Context, actor roles.Actor, carID int, comment string) (*models.MovementLog, error)
	FinishMaintenance(ctx context.Context, actor roles.Actor, carID int, req models.CarTripRequest) (*models.MovementLog, error)
	StartInspection(ctx context.Context, actor roles.Actor, carID int, comment string) (*models.MovementLog, error)
	FinishInspection(ctx context.Context, actor roles.Actor, carID int, req models.CarTripRequest) (*models.MovementLog, error)
	MarkBroken(ctx context.Context, actor roles.Actor, carID int, comment string) (*models.MovementLog, error)
	MarkFixed(ctx context.Context, actor roles.Actor, carID int, req models.CarTripRequest) (*models.MovementLog, error)
	Create(ctx context.Context, actor roles.Actor, req models.CarRequest) (*models.Car, error)
	Update(ctx context.Context, actor roles.Actor, id int, req models.CarRequest) (*models.Car, error)
	Delete(ctx context.Context, actor roles.Actor, id int) error
	Get(ctx context.Context, id int) (*models.Car, error)
	List(ctx context.Context, filter models.CarFilter) ([]models.Car, error)
	History(ctx context.Context, actor roles.Actor, carID int, kind models.CarHistoryKind, page int) (*models.HistoryPage, error)
	Alerts(ctx context.Context, actor roles.Actor) ([]models.CarAlert, error)
}

type FleetHandler struct {
	service Service
}

func NewHandler(s Service) *FleetHandler {
	return &FleetHandler{service: s}
}

func (h *FleetHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/cars", h.List)
	router.POST("/cars", h.Create)
	router.GET("/cars/alerts", h.Alerts)
	router.GET("/cars/:id", h.Get)
	router.PUT("/cars/:id", h.Update)
	router.DELETE("/cars/:id", h.Delete)
	router.GET("/cars/:id/history", h.History)
	router.POST("/cars/:id/issue", h.Issue)
	router.POST("/cars/:id/return", h.trip(Service.Return))
	router.POST("/cars/:id/maintenance", h.status(Service.StartMaintenance))
	router.POST("/cars/:id/maintenance/finish", h.trip(Service.FinishMaintenance))
	router.POST("/cars/:id/inspection", h.status(Service.StartInspection))
	router.POST("/cars/:id/inspection/finish", h.trip(Service.FinishInspection))
	router.POST("/cars/:id/broken", h.status(Service.MarkBroken))
	router.POST("/cars/:id/fixed", h.trip(Service.MarkFixed))
}

func (h *FleetHandler) List(c *gin.Context) {
	driverID, ok := response.OptionalInt(c, "driver_id")
	if !ok {
		return
	}
	filter := models.CarFilter{DriverID: driverID}
	if status := c.Query("status"); status != "" {
		s, err := metadata.NewCarStatus(status)
		if err != nil {
			response.InvalidPayload(c, err)
			return
		}
		filter.Status = &s
	}

	cars, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err, "Unable to list cars")
		return
	}
	c.JSON(http.StatusOK, cars)
}

func (h *FleetHandler) Get(c *gin.Context) {
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}

	car, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "Unable to get car")
		return
	}
	c.JSON(http.StatusOK, car)
}

func (h *FleetHandler) Create(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	var req models.CarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	car, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err, "Unable to create car")
		return
	}
	c.JSON(http.StatusCreated, car)
}

func (h *FleetHandler) Update(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	var req models.CarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidPayload(c, err)
		return
	}

	car, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err, "Unable to update car")
		return
	}
	c.JSON(http.StatusOK, car)
}

func (h *FleetHandler) Delete(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err, "Unable to delete car")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FleetHandler) History(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	kind, err := models.NewCarHistoryKind(c.Query("kind"))
	if err != nil {
		response.InvalidPayload(c, err)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	history, err := h.service.History(c.Request.Context(), actor, id, kind, page)
	if err != nil {
		response.Error(c, err, "Unable to load car history")
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *FleetHandler) Alerts(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}

	alerts, err := h.service.Alerts(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err, "Unable to load fleet alerts")
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *FleetHandler) Issue(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	id, ok := response.IntParam(c, "id")
	if !ok {
		return
	}
	var req models.CarIssueRequest
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

// bindOptional accepts an empty body for transitions whose fields all have defaults.
func bindOptional(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		response.InvalidPayload(c, err)
		return false
	}
	return true
}

func (h *FleetHandler) trip(op func(Service, context.Context, roles.Actor, int, models.CarTripRequest) (*models.MovementLog, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := response.Actor(c)
		if !ok {
			return
		}
		id, ok := response.IntParam(c, "id")
		if !ok {
			return
		}
		var req models.CarTripRequest
		if !bindOptional(c, &req) {
			return
		}

		entry, err := op(h.service, c.Request.Context(), actor, id, req)
		if err != nil {
			response.Fail(c, err)
			return
		}
		response.OK(c, gin.H{"movement": entry})
	}
}

func (h *FleetHandler) status(op func(Service, context.Context, roles.Actor, int, string) (*models.MovementLog, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := response.Actor(c)
		if !ok {
			return
		}
		id, ok := response.IntParam(c, "id")
		if !ok {
			return
		}
		var req models.CarStatusRequest
		if !bindOptional(c, &req) {
			return
		}

		entry, err := op(h.service, c.Request.Context(), actor, id, req.Comment)
		if err != nil {
			response.Fail(c, err)
			return
		}
		response.OK(c, gin.H{"movement": entry})
	}
}
