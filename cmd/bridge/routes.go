package main

import (
	"voice-bridge/internal/httpapi"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, dispatchMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Twilio voice webhooks. Signature validation is deliberately not applied.
	r.POST("/", h.HandleTurn)
	r.POST("/:phone", h.HandleTurn)

	// Engine-triggered outbound calls. The bare path must be registered so
	// "/outbound_call?phone=..." does not fall through to "/:phone".
	r.POST(httpapi.OutboundPath, dispatchMW, h.HandleOutbound)
	r.POST(httpapi.OutboundPath+"/*target", dispatchMW, h.HandleOutbound)
}
