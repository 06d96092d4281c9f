package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetDashboard(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("counters", func(t *testing.T) {
		repo := new(MockRepository)
		expectCounters(repo)
		router := gin.New()
		group := router.Group("/", func(c *gin.Context) {
			security.SetActor(c, worker)
			c.Next()
		})
		NewHandler(newService(repo, &fakeFleet{}, NewInMemoryCache())).RegisterRoutes(group)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/dashboard", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body models.Dashboard
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 7, body.OperationsToday)
		assert.NotContains(t, w.Body.String(), "low_stock")
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("CountMovements", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(0, errors.New("db down"))
		router := gin.New()
		group := router.Group("/", func(c *gin.Context) {
			security.SetActor(c, moderator)
			c.Next()
		})
		NewHandler(newService(repo, &fakeFleet{}, NewInMemoryCache())).RegisterRoutes(group)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/dashboard", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "db down")
	})

	t.Run("anonymous", func(t *testing.T) {
		router := gin.New()
		NewHandler(newService(new(MockRepository), &fakeFleet{}, NewInMemoryCache())).RegisterRoutes(&router.RouterGroup)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/dashboard", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
