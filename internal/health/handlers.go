package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler serves the aggregated report. A critical failure answers 503.
func Handler(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := m.Check(c.Request.Context())

		status := http.StatusOK
		if report.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	}
}
