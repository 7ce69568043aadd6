// Package aggregator merges detector outcomes into one deduplicated
// detection list and reports per-detector failure status. It is the single
// deduplication authority for the pipeline; detectors may emit overlapping
// windows freely.
package aggregator

import (
	"go.uber.org/zap"

	"github.com/Aidin1998/tradewatch/internal/model"
)

// Result is the merged output of one surveillance run
type Result struct {
	Detections      []model.SuspiciousSequence `json:"detections"`
	MergedCount     int                        `json:"merged_count"`
	FailedDetectors []string                   `json:"failed_detectors"`
}

// Aggregator validates completion and merges detector outcomes
type Aggregator struct {
	logger *zap.SugaredLogger
}

// New creates an aggregator
func New(logger *zap.SugaredLogger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Aggregate validates that every expected detector completed, then merges
// the successful outcomes' detections with overlap deduplication.
// Exhausted detectors contribute their name to FailedDetectors and nothing
// else. A completion failure aborts before any output is produced.
func (a *Aggregator) Aggregate(outcomes map[string]model.ServiceOutcome, expected []string) (Result, error) {
	if err := ValidateCompletion(outcomes, expected); err != nil {
		return Result{}, err
	}

	var collected []model.SuspiciousSequence
	var failed []string
	for _, name := range expected {
		outcome := outcomes[name]
		if outcome.Status != model.OutcomeSuccess {
			failed = append(failed, name)
			continue
		}
		collected = append(collected, outcome.Result...)
	}

	merged := deduplicate(collected)
	a.logger.Infow("aggregation complete",
		"collected", len(collected), "merged", len(merged), "failed_detectors", failed)

	return Result{
		Detections:      merged,
		MergedCount:     len(merged),
		FailedDetectors: failed,
	}, nil
}

// deduplicate walks detections in collection order. A detection is dropped
// iff an earlier kept one has the same account and an overlapping
// [start, end] window; the first-seen detection of an overlap group is
// kept unchanged, fields and type included.
func deduplicate(detections []model.SuspiciousSequence) []model.SuspiciousSequence {
	var kept []model.SuspiciousSequence
	for _, det := range detections {
		duplicate := false
		for _, k := range kept {
			if k.AccountID == det.AccountID && k.Overlaps(det) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, det)
		}
	}
	return kept
}
