// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package complete

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/AleutianComplete/services/complete/telemetry"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// ServiceName names the otelgin server spans.
	ServiceName string

	// RateLimit is the allowed requests per second. Zero disables limiting.
	RateLimit float64

	// RateBurst is the limiter burst size.
	RateBurst int
}

// RegisterRoutes registers all completion routes with the router.
//
// Description:
//
//	Registers all /v1/complete/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST   /v1/complete/snapshots - Load a snapshot file
//	GET    /v1/complete/snapshots - List loaded snapshots
//	DELETE /v1/complete/snapshots/:id - Unload a snapshot
//	POST   /v1/complete/chains - Find call chains
//	GET    /v1/complete/members - List members of a type
//	GET    /v1/complete/health - Health check
//	GET    /v1/complete/ready - Readiness check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	complete := rg.Group("/complete")
	{
		// Snapshot lifecycle
		complete.POST("/snapshots", handlers.HandleLoadSnapshot)
		complete.GET("/snapshots", handlers.HandleListSnapshots)
		complete.DELETE("/snapshots/:id", handlers.HandleDeleteSnapshot)

		// Search
		complete.POST("/chains", handlers.HandleChains)

		// Model inspection
		complete.GET("/members", handlers.HandleMembers)

		// Health checks
		complete.GET("/health", handlers.HandleHealth)
		complete.GET("/ready", handlers.HandleReady)
	}
}

// NewRouter builds the gin engine: recovery, tracing, rate limiting,
// /metrics, and the /v1 routes.
func NewRouter(handlers *Handlers, opts RouterOptions) *gin.Engine {
	if opts.ServiceName == "" {
		opts.ServiceName = "aleutian-complete"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(opts.ServiceName))

	router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))

	v1 := router.Group("/v1")
	v1.Use(RateLimit(opts.RateLimit, opts.RateBurst))
	RegisterRoutes(v1, handlers)
	return router
}
