// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package taste

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all taste routes with the router.
//
// Description:
//
//	Registers all /v1/taste/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/taste/check - Check files against the enabled rule set
//	POST /v1/taste/acquire - Learn rules from before/after diffs
//	GET  /v1/taste/rules - List rules
//	POST /v1/taste/rules - Store a fully specified rule
//	GET  /v1/taste/rules/:id - Get a rule by ID
//	POST /v1/taste/rules/:id/disable - Disable a rule (ID stays reserved)
//	GET  /v1/taste/health - Health check
//
// Example:
//
//	svc, err := taste.NewService(taste.DefaultServiceConfig())
//	handlers := taste.NewHandlers(svc)
//
//	v1 := router.Group("/v1")
//	taste.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	t := rg.Group("/taste")
	{
		// Checking
		t.POST("/check", handlers.HandleCheck)

		// Learning
		t.POST("/acquire", handlers.HandleAcquire)

		// Rule management
		t.GET("/rules", handlers.HandleListRules)
		t.POST("/rules", handlers.HandleCreateRule)
		t.GET("/rules/:id", handlers.HandleGetRule)
		t.POST("/rules/:id/disable", handlers.HandleDisableRule)

		// Health checks
		t.GET("/health", handlers.HandleHealth)
	}
}
