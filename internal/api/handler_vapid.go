package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"museum-stream-backend/internal/parse"
)

// GetVAPIDPublicKey returns the key staff devices subscribe with, and the alert
// kinds a subscription may ask for.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "staff alerts are disabled"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"public_key": h.webpush.VAPIDPublicKey,
		"kinds":      []string{parse.KindAssistance.String(), parse.KindEmergency.String()},
	})
}
