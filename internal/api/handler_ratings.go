package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ratingResponse struct {
	RatingID int64  `json:"rating_id"`
	Rating   int    `json:"rating"`
	Meaning  string `json:"meaning"`
}

// GetRatings returns the rating lookup as the consumer currently sees it.
func (h *Handler) GetRatings(c *gin.Context) {
	ratings, err := h.ratings.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]ratingResponse, 0, len(ratings))
	for _, r := range ratings {
		resp = append(resp, ratingResponse{RatingID: r.RatingID, Rating: r.Rating, Meaning: r.Meaning})
	}
	c.JSON(http.StatusOK, resp)
}

// RefreshRatings reloads the rating lookup from the database.
func (h *Handler) RefreshRatings(c *gin.Context) {
	ratings, err := h.ratings.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": len(ratings)})
}
