package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/internal/core/config"
	"github.com/novozhilovsergeydisk/tool-system/internal/core/container"
	"github.com/novozhilovsergeydisk/tool-system/internal/middleware"
	"github.com/novozhilovsergeydisk/tool-system/internal/rate_limiter"
	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"
	"github.com/novozhilovsergeydisk/tool-system/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

type userStore map[int]*models.User

func (s userStore) GetUser(_ context.Context, id int) (*models.User, error) {
	if user, ok := s[id]; ok {
		return user, nil
	}
	return nil, custom_error.NotFound("user %d not found", id)
}

func (s userStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, user := range s {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, custom_error.NotFound("user %s not found", username)
}

type whoAmI struct{}

func (whoAmI) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/whoami", func(c *gin.Context) {
		actor, _ := security.CurrentActor(c)
		c.JSON(http.StatusOK, gin.H{"username": actor.Username})
	})
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, security.Configure("test-secret"))

	store := userStore{
		1: {ID: 1, Username: "keeper", Role: roles.Moderator, IsActive: true},
		2: {ID: 2, Username: "gone", Role: roles.User, IsActive: false},
	}
	app := &container.Container{
		Users:        store,
		LoginHandler: security.NewLoginHandler(store, rate_limiter.NewRateLimiter(10, time.Minute), zap.NewNop()),
		Health:       middleware.NewHealthCheck(okPinger{}, container.Version),
		Handlers:     []container.RouteRegistrar{whoAmI{}},
	}
	cfg := &config.Config{Environment: "test", RequestTimeout: time.Second}
	return NewRouter(cfg, app, zap.NewNop())
}

func TestHealthIsPublic(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), container.Version)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestProtectedRoutes(t *testing.T) {
	router := newTestRouter(t)
	active, err := security.GenerateJWT(1, "moderator", "keeper")
	require.NoError(t, err)
	inactive, err := security.GenerateJWT(2, "user", "gone")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "no token", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "inactive user", header: "Bearer " + inactive, want: http.StatusUnauthorized},
		{name: "active user", header: "Bearer " + active, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Contains(t, w.Body.String(), "keeper")
			}
		})
	}
}
