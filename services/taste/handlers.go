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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alexdong/high-taste/pkg/validation"
	"github.com/alexdong/high-taste/services/taste/check"
	"github.com/alexdong/high-taste/services/taste/learn"
	"github.com/alexdong/high-taste/services/taste/rules"
)

// Handlers contains the HTTP handlers for the taste service.
//
// Thread Safety: Handlers is safe for concurrent use.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the taste service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// getOrCreateRequestID extracts or generates a request ID and reflects
// it in the response headers.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// HandleCheck handles POST /v1/taste/check.
//
// Description:
//
//	Checks the submitted files against every enabled rule. Files with
//	changed-line ranges are checked incrementally: only violations
//	overlapping a changed range are reported. A file that fails to
//	parse yields a single PARSE violation; checking continues for the
//	remaining files.
//
// Response:
//
//	200 OK: CheckResponse
//	400 Bad Request: Validation error
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleCheck(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCheck")

	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if len(req.Files) == 0 {
		logger.Warn("Empty file list")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "At least one file is required",
			Code:  "EMPTY_FILES",
		})
		return
	}

	files := make([]check.FileInput, len(req.Files))
	for i, f := range req.Files {
		files[i] = check.FileInput{
			Path:         f.Path,
			Content:      []byte(f.Content),
			ChangedLines: f.ChangedLines,
		}
	}

	violations, err := h.svc.Checker().Check(c.Request.Context(), files)
	if err != nil {
		logger.Error("Check failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "CHECK_FAILED",
		})
		return
	}
	if violations == nil {
		violations = []check.Violation{}
	}

	summary := make(map[string]int, len(violations))
	for _, v := range violations {
		summary[v.RuleID]++
	}

	c.JSON(http.StatusOK, CheckResponse{
		Violations:    violations,
		Files:         len(files),
		SummaryByRule: summary,
	})
}

// HandleAcquire handles POST /v1/taste/acquire.
//
// Description:
//
//	Learns rules from a unified diff or explicit before/after pairs.
//	Per-diff parse failures are reported in the response and never
//	abort the batch; a corrupt rule store aborts with 500.
//
// Response:
//
//	200 OK: AcquireResponse
//	400 Bad Request: Validation error
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleAcquire(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAcquire")

	var req AcquireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	diffs := req.Pairs
	if req.Diff != "" {
		parsed, err := learn.ParseUnifiedDiff(req.Diff)
		if err != nil {
			logger.Warn("Invalid unified diff", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: err.Error(),
				Code:  "INVALID_DIFF",
			})
			return
		}
		diffs = append(diffs, parsed...)
	}
	if len(diffs) == 0 {
		logger.Warn("No diffs provided")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Either diff or pairs is required",
			Code:  "EMPTY_DIFFS",
		})
		return
	}

	result, err := h.svc.Learner().Acquire(c.Request.Context(), learn.AcquireRequest{
		Category: req.Category,
		Title:    req.Title,
		Diffs:    diffs,
	})
	if err != nil {
		logger.Error("Acquire failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "ACQUIRE_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, AcquireResponse{Groups: result.Groups, Skipped: result.Skipped})
}

// HandleListRules handles GET /v1/taste/rules.
//
// Query Parameters:
//
//	category - filter by category
//	severity - filter by severity
//	status - filter by status (enabled/disabled)
func (h *Handlers) HandleListRules(c *gin.Context) {
	getOrCreateRequestID(c)

	filter := rules.Filter{
		Category: c.Query("category"),
		Severity: rules.Severity(c.Query("severity")),
		Status:   rules.Status(c.Query("status")),
	}
	list := h.svc.Store().List(filter)
	c.JSON(http.StatusOK, ListRulesResponse{Rules: list, Count: len(list)})
}

// HandleGetRule handles GET /v1/taste/rules/:id.
func (h *Handlers) HandleGetRule(c *gin.Context) {
	getOrCreateRequestID(c)

	id, err := validation.SanitizeRuleID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_RULE_ID",
		})
		return
	}

	rule, err := h.svc.Store().Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "RULE_NOT_FOUND",
		})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// HandleCreateRule handles POST /v1/taste/rules.
//
// Description:
//
//	Stores a fully specified rule. The rule is validated (the pattern
//	must compile) and the ID must be unused; disabled IDs count as
//	used and are never reassigned.
//
// Response:
//
//	201 Created: the stored rule
//	400 Bad Request: validation failure
//	409 Conflict: duplicate ID
func (h *Handlers) HandleCreateRule(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCreateRule")

	var rule rules.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	stored, err := h.svc.Store().Put(&rule)
	if err != nil {
		if errors.Is(err, rules.ErrDuplicateID) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error: err.Error(),
				Code:  "DUPLICATE_ID",
			})
			return
		}
		logger.Warn("Rule rejected", "rule_id", rule.ID, "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_RULE",
		})
		return
	}

	if p := h.svc.Persistence(); p != nil {
		if err := p.Save(stored); err != nil {
			logger.Error("Persisting rule failed", "rule_id", stored.ID, "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: err.Error(),
				Code:  "PERSIST_FAILED",
			})
			return
		}
	}

	c.JSON(http.StatusCreated, stored)
}

// HandleDisableRule handles POST /v1/taste/rules/:id/disable.
//
// Disabling is a status flip: the rule and its ID remain reserved so
// the ID is never reassigned.
func (h *Handlers) HandleDisableRule(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDisableRule")

	id, err := validation.SanitizeRuleID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_RULE_ID",
		})
		return
	}

	if err := h.svc.Store().Disable(id); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "RULE_NOT_FOUND",
		})
		return
	}

	rule, err := h.svc.Store().Get(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "STORE_ERROR",
		})
		return
	}
	if p := h.svc.Persistence(); p != nil {
		if err := p.Save(rule); err != nil {
			logger.Error("Persisting rule failed", "rule_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: err.Error(),
				Code:  "PERSIST_FAILED",
			})
			return
		}
	}

	c.JSON(http.StatusOK, rule)
}

// HandleHealth handles GET /v1/taste/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Rules:     h.svc.Store().Len(),
		Languages: h.svc.Registry().Languages(),
	})
}
