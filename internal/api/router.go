package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"museum-stream-backend/config"
	"museum-stream-backend/internal/mw"
	"museum-stream-backend/internal/store"
)

// NewRouter creates and configures the operational HTTP router.
func NewRouter(cfg *config.ServerConfig, s store.Store, ratings RatingView, state StateSource, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	handler := NewHandler(s, ratings, state, webpushOptions)

	r.GET("/healthz", handler.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst))
	{
		api.GET("/ratings", handler.GetRatings)
		api.POST("/ratings/refresh", handler.RefreshRatings)

		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
