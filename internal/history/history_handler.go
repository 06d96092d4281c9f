package history

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/internal/core/response"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/gin-gonic/gin"
)

type Service interface {
	List(ctx context.Context, actor roles.Actor, filter models.HistoryFilter) (*models.HistoryPage, error)
	Export(ctx context.Context, actor roles.Actor, filter models.HistoryFilter, w io.Writer) error
	SyncToSheets(ctx context.Context, actor roles.Actor, filter models.HistoryFilter) (int, error)
}

type HistoryHandler struct {
	service Service
	now     func() time.Time
}

func NewHandler(s Service) *HistoryHandler {
	return &HistoryHandler{service: s, now: time.Now}
}

func (h *HistoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/history", h.List)
	router.GET("/history/export", h.Export)
	router.POST("/history/sheets", h.SyncToSheets)
}

func (h *HistoryHandler) List(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	page, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err, "Unable to load history")
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *HistoryHandler) Export(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), actor, filter, &buf); err != nil {
		response.Error(c, err, "Unable to export history")
		return
	}

	filename := fmt.Sprintf("history-%s.xlsx", h.now().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *HistoryHandler) SyncToSheets(c *gin.Context) {
	actor, ok := response.Actor(c)
	if !ok {
		return
	}
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	appended, err := h.service.SyncToSheets(c.Request.Context(), actor, filter)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"rows": appended})
}

// parseFilter reads search, employee and an inclusive from/to date range from the query.
func parseFilter(c *gin.Context) (models.HistoryFilter, bool) {
	filter := models.HistoryFilter{Search: c.Query("search")}
	var page *int
	if !response.OptionalInts(c, map[string]**int{"employee": &filter.UserID, "page": &page}) {
		return filter, false
	}
	if page != nil {
		filter.Page = *page
	}

	if value := c.Query("from"); value != "" {
		from, err := time.Parse(time.DateOnly, value)
		if err != nil {
			response.InvalidPayload(c, fmt.Errorf("from must be YYYY-MM-DD"))
			return filter, false
		}
		filter.From = &from
	}
	if value := c.Query("to"); value != "" {
		to, err := time.Parse(time.DateOnly, value)
		if err != nil {
			response.InvalidPayload(c, fmt.Errorf("to must be YYYY-MM-DD"))
			return filter, false
		}
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}
	return filter, true
}
