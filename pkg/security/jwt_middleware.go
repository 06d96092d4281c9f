package security

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// JWTMiddleware validates JWT and extracts claims.
func JWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			return
		}

		claims, err := parseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("userID", claims["userID"])
		c.Set("role", claims["role"])
		c.Next()
	}
}

type ActorLoader interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
}

// ActorMiddleware loads the authenticated user with grants and warehouse scope, so that
// capability checks see the current state instead of what the token was issued with.
func ActorMiddleware(loader ActorLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, _ := c.Get("userID")
		userID, err := strconv.Atoi(toString(raw))
		if err != nil || userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token subject"})
			return
		}

		user, err := loader.GetUser(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrInactiveUser.Error()})
			return
		}

		c.Set(actorKey, user.Actor())
		c.Set("role", string(user.Role))
		c.Next()
	}
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// CurrentActor returns the actor stored by ActorMiddleware.
func CurrentActor(c *gin.Context) (roles.Actor, bool) {
	value, exists := c.Get(actorKey)
	if !exists {
		return roles.Actor{}, false
	}
	actor, ok := value.(roles.Actor)
	return actor, ok
}

// SetActor is used by ActorMiddleware and by handler tests.
func SetActor(c *gin.Context, actor roles.Actor) {
	c.Set(actorKey, actor)
	c.Set("role", string(actor.Role))
}

// Authorize ensures the user has the required role.
func Authorize(requiredRole roles.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAllowed(c, requiredRole) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient permissions"})
			return
		}
		c.Next()
	}
}

func IsAllowed(c *gin.Context, requiredRole roles.Role) bool {
	role, exists := c.Get("role")
	if !exists {
		return false
	}
	userRole := roles.Role(toString(role))
	return userRole.IsValid() && userRole.HasPermission(requiredRole)
}
