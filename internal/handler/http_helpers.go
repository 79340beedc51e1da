package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quickblog/internal/service"
	"go.uber.org/zap"
)

const (
	msgServerError   = "Server error"
	msgUpstreamError = "An upstream service is unavailable, please try again later"
	msgUnauthorized  = "Unauthorized"
)

func respond(c *gin.Context, status int, payload gin.H) {
	if payload == nil {
		payload = gin.H{}
	}
	payload["success"] = true
	c.JSON(status, payload)
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// respondServiceError maps service error kinds to HTTP statuses.
// Store and upstream failures are logged in full and answered with a generic message.
func (a *API) respondServiceError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			respondError(c, http.StatusBadRequest, verr.Message)
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrBlogNotFound):
		respondError(c, http.StatusNotFound, "Blog not found")
	case errors.Is(err, service.ErrCommentNotFound):
		respondError(c, http.StatusNotFound, "Comment not found")
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, service.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, service.ErrUpstream):
		a.logFailure(c, op, err)
		respondError(c, http.StatusBadGateway, msgUpstreamError)
	default:
		a.logFailure(c, op, err)
		respondError(c, http.StatusInternalServerError, msgServerError)
	}
}

func (a *API) logFailure(c *gin.Context, op string, err error) {
	a.logger.Error("request failed",
		zap.String("op", op),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err),
	)
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parsePositiveQuery(c *gin.Context, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// entityID accepts both 12 and "12" in JSON bodies.
type entityID uint

func (id *entityID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(strings.Trim(string(data), `"`))
	if raw == "" || raw == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid id %q", raw)
	}
	*id = entityID(v)
	return nil
}

type idRequest struct {
	ID entityID `json:"id"`
}

// bindID reads {"id": ...} and rejects a missing or malformed id.
func bindID(c *gin.Context, message string) (uint, bool) {
	var req idRequest
	if !bindJSON(c, &req, message) {
		return 0, false
	}
	if req.ID == 0 {
		respondError(c, http.StatusBadRequest, message)
		return 0, false
	}
	return uint(req.ID), true
}
