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
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianComplete/services/complete/completer"
	"github.com/AleutianAI/AleutianComplete/services/complete/symbols"
)

// Handlers contains the HTTP handlers for the completion service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleLoadSnapshot handles POST /v1/complete/snapshots.
//
// Description:
//
//	Loads a symbol snapshot from an absolute file path. Loading the same
//	path twice returns the cached snapshot.
//
// Request Body:
//
//	LoadSnapshotRequest
//
// Response:
//
//	200 OK: SnapshotResponse
//	400 Bad Request: Invalid body or path
//	404 Not Found: File does not exist
//	422 Unprocessable Entity: File is not a valid snapshot
func (h *Handlers) HandleLoadSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleLoadSnapshot")

	var req LoadSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	resp, err := h.svc.LoadSnapshot(c.Request.Context(), req.Path)
	if err != nil {
		statusCode := http.StatusUnprocessableEntity
		errCode := "INVALID_SNAPSHOT"

		switch {
		case errors.Is(err, ErrRelativePath):
			statusCode = http.StatusBadRequest
			errCode = "INVALID_PATH"
		case errors.Is(err, ErrPathTraversal):
			statusCode = http.StatusBadRequest
			errCode = "PATH_TRAVERSAL"
		case errors.Is(err, fs.ErrNotExist):
			statusCode = http.StatusNotFound
			errCode = "FILE_NOT_FOUND"
		case errors.Is(err, fs.ErrPermission):
			statusCode = http.StatusForbidden
			errCode = "FILE_NOT_READABLE"
		case errors.Is(err, ErrServiceClosed):
			statusCode = http.StatusServiceUnavailable
			errCode = "SERVICE_CLOSED"
		}

		logger.Error("Snapshot load failed", "path", req.Path, "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("Snapshot loaded",
		"snapshot_id", resp.ID,
		"types", resp.Types,
		"symbols", resp.Symbols)

	c.JSON(http.StatusOK, resp)
}

// HandleListSnapshots handles GET /v1/complete/snapshots.
func (h *Handlers) HandleListSnapshots(c *gin.Context) {
	getOrCreateRequestID(c)

	snapshots := h.svc.ListSnapshots()
	c.JSON(http.StatusOK, ListSnapshotsResponse{
		Snapshots: snapshots,
		Count:     len(snapshots),
	})
}

// HandleDeleteSnapshot handles DELETE /v1/complete/snapshots/:id.
//
// Response:
//
//	204 No Content: Snapshot unloaded
//	404 Not Found: Unknown snapshot ID
func (h *Handlers) HandleDeleteSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDeleteSnapshot")

	id := c.Param("id")
	if err := h.svc.RemoveSnapshot(id); err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: err.Error(),
				Code:  "SNAPSHOT_NOT_FOUND",
			})
			return
		}
		logger.Error("Snapshot removal failed", "snapshot_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "REMOVE_FAILED",
		})
		return
	}

	logger.Info("Snapshot removed", "snapshot_id", id)
	c.Status(http.StatusNoContent)
}

// HandleChains handles POST /v1/complete/chains.
//
// Description:
//
//	Finds call chains over the snapshot that produce one of the expected
//	types. A search that runs out of time returns the chains found so far
//	with timed_out set, not an error.
//
// Request Body:
//
//	ChainsRequest
//
// Response:
//
//	200 OK: ChainsResponse
//	400 Bad Request: Validation error
//	404 Not Found: Unknown snapshot ID
//	410 Gone: Snapshot file was removed
//	503 Service Unavailable: Too many concurrent searches
func (h *Handlers) HandleChains(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleChains")

	var req ChainsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	resp, err := h.svc.Chains(c.Request.Context(), req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "SEARCH_FAILED"

		switch {
		case errors.Is(err, ErrSnapshotNotFound):
			statusCode = http.StatusNotFound
			errCode = "SNAPSHOT_NOT_FOUND"
		case errors.Is(err, ErrSnapshotStale):
			statusCode = http.StatusGone
			errCode = "SNAPSHOT_STALE"
		case errors.Is(err, completer.ErrOverloaded):
			statusCode = http.StatusServiceUnavailable
			errCode = "OVERLOADED"
		case errors.Is(err, ErrServiceClosed):
			statusCode = http.StatusServiceUnavailable
			errCode = "SERVICE_CLOSED"
		}

		logger.Warn("Chain search failed", "snapshot_id", req.SnapshotID, "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("Chain search complete",
		"snapshot_id", req.SnapshotID,
		"chains", resp.Count,
		"timed_out", resp.TimedOut,
		"duration_ms", resp.DurationMs)

	c.JSON(http.StatusOK, resp)
}

// HandleMembers handles GET /v1/complete/members.
//
// Query Parameters:
//
//	snapshot_id - Snapshot ID (required)
//	type - Type name, e.g. "pkg.Foo" (required)
//	static - Only static members (optional)
//
// Response:
//
//	200 OK: MembersResponse
//	400 Bad Request: Missing parameters
//	404 Not Found: Unknown snapshot or type
func (h *Handlers) HandleMembers(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleMembers")

	var req MembersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "snapshot_id and type are required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	resp, err := h.svc.Members(req.SnapshotID, req.Type, req.Static)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "MEMBERS_FAILED"

		switch {
		case errors.Is(err, ErrSnapshotNotFound), errors.Is(err, ErrSnapshotStale):
			statusCode = http.StatusNotFound
			errCode = "SNAPSHOT_NOT_FOUND"
		case errors.Is(err, symbols.ErrUnknownType):
			statusCode = http.StatusNotFound
			errCode = "UNKNOWN_TYPE"
		}

		logger.Debug("Member lookup failed", "type", req.Type, "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/complete/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/complete/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	resp := h.svc.Ready()
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// getOrCreateRequestID returns the X-Request-ID header or a new UUID, and
// echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
