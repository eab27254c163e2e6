package server

import (
	"net/http"
	"strconv"
	"strings"

	"market-simulator/src/helpers"
	"market-simulator/src/models"

	"github.com/gin-gonic/gin"
)

const (
	defaultTradesLimit = 50
	maxTradesLimit     = 1000
)

// -----------------------------------------------------------------------------

// statusFor maps typed errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case helpers.IsNotFound(err):
		return http.StatusNotFound
	case helpers.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *MarketServer) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.Logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// -----------------------------------------------------------------------------

// queryWindow reads ?window=, defaulting to 1H.
func queryWindow(c *gin.Context) models.MTimeWindow {
	w := strings.TrimSpace(c.Query("window"))
	if w == "" {
		return models.Window1H
	}
	return models.MTimeWindow(strings.ToUpper(w))
}

// -----------------------------------------------------------------------------

// queryInt reads a non-negative integer parameter.
func queryInt(c *gin.Context, key string, def int64) (int64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, helpers.NewValidationError("%s must be a non-negative integer, got %q", key, raw)
	}
	return v, nil
}
