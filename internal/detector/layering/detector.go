// Package layering detects the three-phase layering pattern: a burst of
// same-side orders creating false pressure, their cancellation, then a
// single opposite-side execution at the moved price.
package layering

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Aidin1998/tradewatch/internal/index"
	"github.com/Aidin1998/tradewatch/internal/model"
)

// Name is the detector's registry name
const Name = "layering"

// minOrdersInRun and minCancellations are the pattern thresholds: at least
// three orders placed within the window and at least three cancellations.
const (
	minOrdersInRun   = 3
	minCancellations = 3
)

// Config holds the three detection windows. All must be strictly positive.
type Config struct {
	OrdersWindow        time.Duration
	CancelWindow        time.Duration
	OppositeTradeWindow time.Duration
}

// NewConfig validates and returns a detection config
func NewConfig(ordersWindow, cancelWindow, oppositeTradeWindow time.Duration) (Config, error) {
	cfg := Config{
		OrdersWindow:        ordersWindow,
		CancelWindow:        cancelWindow,
		OppositeTradeWindow: oppositeTradeWindow,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects non-positive windows
func (c Config) Validate() error {
	if c.OrdersWindow <= 0 {
		return fmt.Errorf("orders window must be strictly positive, got %s", c.OrdersWindow)
	}
	if c.CancelWindow <= 0 {
		return fmt.Errorf("cancel window must be strictly positive, got %s", c.CancelWindow)
	}
	if c.OppositeTradeWindow <= 0 {
		return fmt.Errorf("opposite trade window must be strictly positive, got %s", c.OppositeTradeWindow)
	}
	return nil
}

// Detector scans event batches for layering sequences
type Detector struct {
	cfg    Config
	logger *zap.SugaredLogger
}

// New creates a layering detector. The config must already be validated.
func New(cfg Config, logger *zap.SugaredLogger) *Detector {
	return &Detector{cfg: cfg, logger: logger}
}

// Name implements the coordinator's Detector interface
func (d *Detector) Name() string {
	return Name
}

// Detect finds at most one layering sequence per (account, product) group.
// Groups with no qualifying pattern contribute nothing; that is not an
// error. The input batch is not modified.
func (d *Detector) Detect(ctx context.Context, events []model.TransactionEvent) ([]model.SuspiciousSequence, error) {
	if err := model.ValidateEvents(events); err != nil {
		return nil, err
	}

	groups := groupByAccountProduct(events)
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sequences []model.SuspiciousSequence
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seq, ok := d.detectGroup(groups[key]); ok {
			sequences = append(sequences, seq)
		}
	}

	d.logger.Debugw("layering scan complete",
		"groups", len(groups), "sequences", len(sequences))
	return sequences, nil
}

// detectGroup runs the three-phase scan over one (account, product) group.
// Boundaries are inclusive in every phase.
func (d *Detector) detectGroup(events []model.TransactionEvent) (model.SuspiciousSequence, bool) {
	ix := index.Build(events)

	for _, side := range []model.Side{model.SideBuy, model.SideSell} {
		orders := ix.All(model.EventOrderPlaced, side)
		if len(orders) < minOrdersInRun {
			continue
		}

		for i := 0; i < len(orders); i++ {
			run := orderRun(orders, i, d.cfg.OrdersWindow)
			if len(run) < minOrdersInRun {
				continue
			}

			runStart := run[0].Timestamp
			lastOrder := run[len(run)-1].Timestamp

			cancels := ix.Query(model.EventOrderCancelled, side,
				runStart, lastOrder.Add(d.cfg.CancelWindow))
			if len(cancels) < minCancellations {
				continue
			}

			lastCancel := cancels[len(cancels)-1].Timestamp
			trades := ix.Query(model.EventTradeExecuted, side.Opposite(),
				lastCancel, lastCancel.Add(d.cfg.OppositeTradeWindow))
			if len(trades) == 0 {
				continue
			}
			// One opposite-side trade completes the pattern; the earliest
			// in the window anchors the sequence end.
			trade := trades[0]

			return d.buildSequence(side, run, cancels, trade), true
		}
	}
	return model.SuspiciousSequence{}, false
}

// orderRun returns the maximal run of orders starting at index i whose
// timestamps all fall within window of the first order (inclusive).
func orderRun(orders []model.TransactionEvent, i int, window time.Duration) []model.TransactionEvent {
	limit := orders[i].Timestamp.Add(window)
	j := i
	for j < len(orders) && !orders[j].Timestamp.After(limit) {
		j++
	}
	return orders[i:j]
}

func (d *Detector) buildSequence(side model.Side, run, cancels []model.TransactionEvent, trade model.TransactionEvent) model.SuspiciousSequence {
	var cancelledQty int64
	for _, c := range cancels {
		cancelledQty += c.Quantity
	}

	orderTimestamps := make([]time.Time, len(run))
	for i, o := range run {
		orderTimestamps[i] = o.Timestamp
	}

	seq := model.SuspiciousSequence{
		AccountID:          run[0].AccountID,
		ProductID:          run[0].ProductID,
		StartTimestamp:     run[0].Timestamp,
		EndTimestamp:       trade.Timestamp,
		DetectionType:      model.DetectionLayering,
		Side:               side,
		NumCancelledOrders: len(cancels),
		OrderTimestamps:    orderTimestamps,
	}
	if side == model.SideBuy {
		seq.TotalBuyQty = cancelledQty
		seq.TotalSellQty = trade.Quantity
	} else {
		seq.TotalSellQty = cancelledQty
		seq.TotalBuyQty = trade.Quantity
	}
	return seq
}

func groupByAccountProduct(events []model.TransactionEvent) map[string][]model.TransactionEvent {
	groups := make(map[string][]model.TransactionEvent)
	for _, ev := range events {
		key := ev.GroupKey()
		groups[key] = append(groups[key], ev)
	}
	return groups
}
