package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Aidin1998/tradewatch/internal/coordinator"
	"github.com/Aidin1998/tradewatch/internal/model"
)

// handleDetect runs a single named detector over the posted batch. The
// posted fingerprint must match the batch contents; a mismatch is an
// input validation error, not a detector failure.
func (s *Server) handleDetect(c *gin.Context) {
	name := c.Param("detector")
	det, ok := s.detectors[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown detector: " + name})
		return
	}

	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	events := toModelEvents(req.Events)
	if fp := model.Fingerprint(events); fp != req.EventFingerprint {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "event fingerprint does not match batch contents",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.callTimeout)
	defer cancel()

	results, err := det.Detect(ctx, events)
	resp := DetectResponse{
		RequestID:    req.RequestID,
		DetectorName: name,
		FinalStatus:  true,
	}
	switch {
	case err == nil:
		resp.Status = detectStatusSuccess
		resp.Results = results
	case errors.Is(err, context.DeadlineExceeded):
		resp.Status = detectStatusTimeout
		resp.Error = err.Error()
	default:
		resp.Status = detectStatusFailure
		resp.Error = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// handleAggregate validates completion of externally collected outcomes
// and merges them.
func (s *Server) handleAggregate(c *gin.Context) {
	var req AggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	result, err := s.agg.Aggregate(req.Outcomes, req.ExpectedDetectorNames)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, AggregateResponse{
			RequestID: req.RequestID,
			Status:    aggregateStatusValidationFailed,
			Error:     err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, AggregateResponse{
		RequestID:           req.RequestID,
		Status:              aggregateStatusCompleted,
		MergedCount:         result.MergedCount,
		FailedDetectorNames: result.FailedDetectors,
	})
}

// handleScan runs the full pipeline over one batch: fan out to every
// registered detector, validate completion, merge, then persist if a
// store is configured.
func (s *Server) handleScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	events := toModelEvents(req.Events)
	detectors := make([]coordinator.Detector, 0, len(s.order))
	for _, name := range s.order {
		detectors = append(detectors, s.detectors[name])
	}

	outcomes := s.coord.Run(c.Request.Context(), req.RequestID, events, detectors)

	// Completion failure here means the coordinator broke its own join
	// contract; it aborts the request before any output is produced.
	result, err := s.agg.Aggregate(outcomes, s.order)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if s.detStore != nil && len(result.Detections) > 0 {
		if err := s.detStore.SaveDetections(c.Request.Context(), req.RequestID, result.Detections); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	s.sugar.Infow("scan complete",
		"request_id", req.RequestID,
		"events", len(events),
		"merged", result.MergedCount,
		"failed_detectors", result.FailedDetectors)

	c.JSON(http.StatusOK, ScanResponse{
		RequestID:           req.RequestID,
		Status:              aggregateStatusCompleted,
		Detections:          result.Detections,
		MergedCount:         result.MergedCount,
		FailedDetectorNames: result.FailedDetectors,
	})
}
