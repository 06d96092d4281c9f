package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the listed origins, or every origin when none are configured
// outside production. Production without a list allows none.
func CORSMiddleware(origins []string, production bool) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	switch {
	case len(origins) > 0:
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	case production:
		corsConfig.AllowOrigins = []string{}
		corsConfig.AllowOriginFunc = func(string) bool { return false }
	default:
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowHeaders("Authorization", RequestIDHeader)
	corsConfig.AddExposeHeaders("Content-Disposition", RequestIDHeader)
	return cors.New(corsConfig)
}
