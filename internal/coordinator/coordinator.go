// Package coordinator fans out one event batch to N independent detectors,
// applying per-detector retry with exponential backoff, fault isolation
// and idempotency caching, and joins all of them into one outcome map.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Aidin1998/tradewatch/internal/model"
	"github.com/Aidin1998/tradewatch/pkg/metrics"
)

// Detector is one independent pattern-detection unit. Detect must be safe
// for concurrent use with other detectors over the same (immutable) batch.
type Detector interface {
	Name() string
	Detect(ctx context.Context, events []model.TransactionEvent) ([]model.SuspiciousSequence, error)
}

// Config controls retry, timeout and idempotency caching
type Config struct {
	MaxRetries    int
	CallTimeout   time.Duration
	BackoffBase   time.Duration
	CacheCapacity int
}

// Validate rejects unusable settings
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got %d", c.MaxRetries)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call timeout must be strictly positive, got %s", c.CallTimeout)
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("backoff base must be strictly positive, got %s", c.BackoffBase)
	}
	if c.CacheCapacity <= 0 {
		return fmt.Errorf("cache capacity must be positive, got %d", c.CacheCapacity)
	}
	return nil
}

// Coordinator runs detectors concurrently and produces one terminal
// ServiceOutcome per detector.
type Coordinator struct {
	cfg    Config
	logger *zap.SugaredLogger
	cache  *ResultCache

	// sleep is swapped out in tests to observe backoff without waiting
	sleep func(time.Duration)
}

// New creates a coordinator with its own idempotency cache
func New(cfg Config, logger *zap.SugaredLogger) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Coordinator{
		cfg:    cfg,
		logger: logger,
		cache:  NewResultCache(cfg.CacheCapacity),
		sleep:  time.Sleep,
	}, nil
}

// Run fans the batch out to every detector and blocks until each has
// reached a terminal state. This is a join, not a race: the returned map
// is complete, every outcome has FinalStatus set, and no partial state is
// ever observable. One detector exhausting never cancels another.
func (c *Coordinator) Run(ctx context.Context, requestID string, events []model.TransactionEvent, detectors []Detector) map[string]model.ServiceOutcome {
	fingerprint := model.Fingerprint(events)

	outcomes := make([]model.ServiceOutcome, len(detectors))
	var wg sync.WaitGroup
	for i, det := range detectors {
		wg.Add(1)
		go func(slot int, det Detector) {
			defer wg.Done()
			outcomes[slot] = c.callWithRetry(ctx, requestID, fingerprint, events, det)
		}(i, det)
	}
	wg.Wait()

	result := make(map[string]model.ServiceOutcome, len(detectors))
	for i, det := range detectors {
		result[det.Name()] = outcomes[i]
	}
	return result
}

// callWithRetry drives one detector through its retry budget. Backoff is
// exponential in powers of two of the base delay and is slept only before
// a retry, never after the final attempt.
func (c *Coordinator) callWithRetry(ctx context.Context, requestID, fingerprint string, events []model.TransactionEvent, det Detector) model.ServiceOutcome {
	cacheKey := det.Name() + "|" + requestID + "|" + fingerprint
	if cached, ok := c.cache.Get(cacheKey); ok {
		c.logger.Debugw("idempotency cache hit",
			"detector", det.Name(), "request_id", requestID)
		return model.ServiceOutcome{
			Status:      model.OutcomeSuccess,
			FinalStatus: true,
			Result:      cached,
		}
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(c.cfg.BackoffBase << (attempt - 1))
			metrics.DetectorRetries.WithLabelValues(det.Name()).Inc()
		}
		attempts++

		start := time.Now()
		result, err := c.callOnce(ctx, events, det)
		metrics.DetectionLatency.WithLabelValues(det.Name()).Observe(time.Since(start).Seconds())

		if err == nil {
			c.cache.Put(cacheKey, result)
			metrics.DetectionsEmitted.WithLabelValues(det.Name()).Add(float64(len(result)))
			return model.ServiceOutcome{
				Status:      model.OutcomeSuccess,
				FinalStatus: true,
				Result:      result,
				RetryCount:  attempt,
			}
		}

		lastErr = err
		class := Classify(err)
		c.logger.Warnw("detector attempt failed",
			"detector", det.Name(), "attempt", attempt, "class", class, "error", err)
		if class == FailurePermanent {
			break
		}
	}

	metrics.DetectorFailures.WithLabelValues(det.Name(), string(Classify(lastErr))).Inc()
	return model.ServiceOutcome{
		Status:      model.OutcomeExhausted,
		FinalStatus: true,
		Error:       lastErr.Error(),
		RetryCount:  attempts,
	}
}

// callOnce bounds a single attempt with the per-call timeout. The timeout
// applies to this detector alone; siblings are unaffected.
func (c *Coordinator) callOnce(ctx context.Context, events []model.TransactionEvent, det Detector) ([]model.SuspiciousSequence, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()
	return det.Detect(callCtx, events)
}
