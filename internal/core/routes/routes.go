package routes

import (
	"os"

	"github.com/novozhilovsergeydisk/tool-system/internal/core/config"
	"github.com/novozhilovsergeydisk/tool-system/internal/core/container"
	"github.com/novozhilovsergeydisk/tool-system/internal/core/logger"
	"github.com/novozhilovsergeydisk/tool-system/internal/middleware"
	"github.com/novozhilovsergeydisk/tool-system/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(cfg *config.Config, c *container.Container, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.CORSMiddleware(cfg.CORSOrigins, cfg.IsProduction()),
		middleware.RequestIDMiddleware(),
		logger.GinMiddleware(log),
		middleware.RecoveryMiddleware(log),
		middleware.TimeoutMiddleware(cfg.RequestTimeout),
	)

	RegisterUtilityRoutes(router, c, log)
	RegisterPublicRoutes(router, c)
	RegisterProtectedRoutes(router, c)
	return router
}

func RegisterPublicRoutes(router *gin.Engine, c *container.Container) {
	c.LoginHandler.RegisterRoutes(router)
}

func RegisterProtectedRoutes(router *gin.Engine, c *container.Container) {
	protectedRoutes := router.Group("")
	protectedRoutes.Use(security.JWTMiddleware(), security.ActorMiddleware(c.Users))

	for _, handler := range c.Handlers {
		handler.RegisterRoutes(protectedRoutes)
	}
}

func RegisterUtilityRoutes(router *gin.Engine, c *container.Container, log *zap.Logger) {
	router.GET("/health", c.Health.Handler())

	openapiFilePath := "./docs/index.html"
	if _, err := os.Stat(openapiFilePath); err == nil {
		router.GET("/openapi.html", func(c *gin.Context) {
			c.File(openapiFilePath)
		})
		log.Info("Route /openapi.html registered")
	} else {
		log.Debug("OpenAPI page not found, /openapi.html is not registered", zap.String("path", openapiFilePath))
	}
}
