// Package response writes the JSON envelopes shared by all handlers. Transition
// endpoints answer {"status":"ok",...} or {"status":"error","message":...}; CRUD
// endpoints keep the {"error":...,"details":...} shape.
package response

import (
	"net/http"
	"strconv"

	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"
	"github.com/novozhilovsergeydisk/tool-system/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func OK(c *gin.Context, payload gin.H) {
	body := gin.H{"status": "ok"}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Fail reports a failed transition. Infrastructure errors are logged and replaced by a
// generic message.
func Fail(c *gin.Context, err error) {
	status := custom_error.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("Operation failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"status": "error", "message": custom_error.PublicMessage(err)})
}

func InvalidPayload(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid request payload: " + err.Error()})
}

// Error reports a failed CRUD call.
func Error(c *gin.Context, err error, message string) {
	status := custom_error.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		zap.L().Error(message, zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message, "details": custom_error.PublicMessage(err)})
}

// Actor returns the authenticated actor or aborts with 401.
func Actor(c *gin.Context) (roles.Actor, bool) {
	actor, ok := security.CurrentActor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	}
	return actor, ok
}

// IntParam parses a positive path parameter or aborts with 400.
func IntParam(c *gin.Context, name string) (int, bool) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil || value <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name, "details": c.Param(name)})
		return 0, false
	}
	return value, true
}

// OptionalInt parses an optional positive query parameter. A missing or empty value yields
// nil; anything else that is not a positive integer aborts with 400.
func OptionalInt(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name, "details": raw})
		return nil, false
	}
	return &value, true
}

// OptionalInts fills each target from its query parameter and stops at the first invalid one.
func OptionalInts(c *gin.Context, targets map[string]**int) bool {
	for name, target := range targets {
		value, ok := OptionalInt(c, name)
		if !ok {
			return false
		}
		*target = value
	}
	return true
}
