package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetHealth reports the consumer state. Only a starting or running consumer is healthy.
func (h *Handler) GetHealth(c *gin.Context) {
	if h.state == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"state": "unknown"})
		return
	}

	st := h.state.State()
	status := http.StatusOK
	if !st.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"state": st.String()})
}
