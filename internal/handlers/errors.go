package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"familyphotos/api/internal/service"
)

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{service.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrConflict, http.StatusConflict, "conflict"},
	{service.ErrTooManyRequests, http.StatusTooManyRequests, "too_many_requests"},
}

// respondError maps service errors to a status and a stable code. Anything
// unclassified is logged and reported without detail.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			c.JSON(ec.status, gin.H{
				"error":   ec.code,
				"message": publicMessage(err, ec.err),
			})
			return
		}
	}

	h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": message})
}

// publicMessage strips the category prefix added by fmt.Errorf("%w: ...").
func publicMessage(err, category error) string {
	msg := strings.TrimPrefix(err.Error(), category.Error()+": ")
	if msg == category.Error() {
		return ""
	}
	return msg
}
