// Package washtrade detects wash trading: alternating buy/sell executions
// on the same account and product that inflate volume without any real
// transfer of risk.
package washtrade

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/tradewatch/internal/model"
)

// Name is the detector's registry name
const Name = "wash_trading"

const (
	minBuys  = 3
	minSells = 3
)

var (
	minTotalQuantity = int64(10000)
	// Alternation of 60% is the inclusive qualification minimum.
	minAlternationPct = decimal.NewFromInt(60)
	// Price moves under 1% are omitted from the sequence, not reported as zero.
	minPriceChangePct = decimal.NewFromInt(1)
	hundred           = decimal.NewFromInt(100)
)

// Config holds the sliding window duration
type Config struct {
	Window time.Duration
}

// NewConfig validates and returns a detection config
func NewConfig(window time.Duration) (Config, error) {
	if window <= 0 {
		return Config{}, fmt.Errorf("wash trading window must be strictly positive, got %s", window)
	}
	return Config{Window: window}, nil
}

// Detector scans trade executions for wash trading windows
type Detector struct {
	cfg    Config
	logger *zap.SugaredLogger
}

// New creates a wash trading detector. The config must already be validated.
func New(cfg Config, logger *zap.SugaredLogger) *Detector {
	return &Detector{cfg: cfg, logger: logger}
}

// Name implements the coordinator's Detector interface
func (d *Detector) Name() string {
	return Name
}

// Detect slides a fixed window anchored at each trade of every
// (account, product) group. Overlapping anchors may each qualify and each
// emit their own sequence; cross-window deduplication is the aggregator's
// responsibility.
func (d *Detector) Detect(ctx context.Context, events []model.TransactionEvent) ([]model.SuspiciousSequence, error) {
	if err := model.ValidateEvents(events); err != nil {
		return nil, err
	}

	groups := make(map[string][]model.TransactionEvent)
	for _, ev := range events {
		if ev.EventType != model.EventTradeExecuted {
			continue
		}
		key := ev.GroupKey()
		groups[key] = append(groups[key], ev)
	}

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
		trades := groups[key]
		sort.SliceStable(trades, func(i, j int) bool {
			return trades[i].Timestamp.Before(trades[j].Timestamp)
		})
		sequences = append(sequences, d.detectGroup(trades)...)
	}

	d.logger.Debugw("wash trading scan complete",
		"groups", len(groups), "sequences", len(sequences))
	return sequences, nil
}

func (d *Detector) detectGroup(trades []model.TransactionEvent) []model.SuspiciousSequence {
	var sequences []model.SuspiciousSequence
	for anchor := 0; anchor < len(trades); anchor++ {
		limit := trades[anchor].Timestamp.Add(d.cfg.Window)
		end := anchor
		for end < len(trades) && !trades[end].Timestamp.After(limit) {
			end++
		}
		window := trades[anchor:end]
		if seq, ok := d.evaluateWindow(window); ok {
			sequences = append(sequences, seq)
		}
	}
	return sequences
}

// evaluateWindow applies the qualification rules to one anchored window:
// at least three trades per side, total quantity at or above the floor,
// and alternation at or above 60%.
func (d *Detector) evaluateWindow(window []model.TransactionEvent) (model.SuspiciousSequence, bool) {
	if len(window) < minBuys+minSells {
		return model.SuspiciousSequence{}, false
	}

	var buys, sells, switches int
	var buyQty, sellQty int64
	for i, t := range window {
		if t.Side == model.SideBuy {
			buys++
			buyQty += t.Quantity
		} else {
			sells++
			sellQty += t.Quantity
		}
		if i > 0 && t.Side != window[i-1].Side {
			switches++
		}
	}

	if buys < minBuys || sells < minSells {
		return model.SuspiciousSequence{}, false
	}
	if buyQty+sellQty < minTotalQuantity {
		return model.SuspiciousSequence{}, false
	}

	alternation := decimal.NewFromInt(int64(switches)).
		Div(decimal.NewFromInt(int64(len(window) - 1))).
		Mul(hundred)
	if alternation.LessThan(minAlternationPct) {
		return model.SuspiciousSequence{}, false
	}

	first := window[0]
	last := window[len(window)-1]

	seq := model.SuspiciousSequence{
		AccountID:             first.AccountID,
		ProductID:             first.ProductID,
		StartTimestamp:        first.Timestamp,
		EndTimestamp:          last.Timestamp,
		TotalBuyQty:           buyQty,
		TotalSellQty:          sellQty,
		DetectionType:         model.DetectionWashTrading,
		AlternationPercentage: alternation,
	}

	priceChange := last.Price.Sub(first.Price).Abs().Div(first.Price).Mul(hundred)
	if priceChange.GreaterThanOrEqual(minPriceChangePct) {
		seq.PriceChangePercentage = &priceChange
	}

	return seq, true
}
