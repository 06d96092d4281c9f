package history

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/ledger"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/history?search=drill&employee=4&from=2026-03-01&to=2026-03-10&page=3", nil)

	filter, ok := parseFilter(c)

	require.True(t, ok)
	assert.Equal(t, "drill", filter.Search)
	assert.Equal(t, 4, *filter.UserID)
	assert.Equal(t, 3, filter.Page)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *filter.From)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), *filter.To)
}

func TestParseFilterRejectsBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/history?from=01.03.2026", nil)

	_, ok := parseFilter(c)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseFilterRejectsMalformedEmployee(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/history?employee=abc", nil)

	_, ok := parseFilter(c)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newStore()
	seed(t, store, models.MovementLog{ActionType: metadata.ActionReceipt, NomenclatureName: "Gloves", Quantity: 5})
	handler := NewHandler(NewService(ledger.New(store, nil, zap.NewNop()), nil, zap.NewNop()))
	handler.now = func() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) }

	router := gin.New()
	group := router.Group("/api", func(c *gin.Context) {
		security.SetActor(c, moderator)
		c.Next()
	})
	handler.RegisterRoutes(group)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
		check          func(t *testing.T, w *httptest.ResponseRecorder)
	}{
		{
			name: "list", method: http.MethodGet, path: "/api/history", expectedStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Contains(t, w.Body.String(), `"total":1`)
			},
		},
		{
			name: "export", method: http.MethodGet, path: "/api/history/export", expectedStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, "attachment; filename=history-2026-03-10.xlsx", w.Header().Get("Content-Disposition"))
				assert.NotZero(t, w.Body.Len())
			},
		},
		{
			name: "sheets not configured", method: http.MethodPost, path: "/api/history/sheets", expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Contains(t, w.Body.String(), `"status":"error"`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(tt.method, tt.path, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			tt.check(t, w)
		})
	}
}
