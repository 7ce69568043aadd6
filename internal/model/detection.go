package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DetectionType identifies which detector produced a suspicious sequence
type DetectionType string

const (
	DetectionLayering    DetectionType = "LAYERING"
	DetectionWashTrading DetectionType = "WASH_TRADING"
)

// SuspiciousSequence is one detected manipulation window for an
// (account, product) pair. The layering-only and wash-trading-only
// field groups are mutually exclusive by DetectionType.
type SuspiciousSequence struct {
	AccountID      string        `json:"account_id"`
	ProductID      string        `json:"product_id"`
	StartTimestamp time.Time     `json:"start_timestamp"`
	EndTimestamp   time.Time     `json:"end_timestamp"`
	TotalBuyQty    int64         `json:"total_buy_qty"`
	TotalSellQty   int64         `json:"total_sell_qty"`
	DetectionType  DetectionType `json:"detection_type"`

	// Layering only
	Side               Side        `json:"side,omitempty"`
	NumCancelledOrders int         `json:"num_cancelled_orders,omitempty"`
	OrderTimestamps    []time.Time `json:"order_timestamps,omitempty"`

	// Wash trading only
	AlternationPercentage decimal.Decimal  `json:"alternation_percentage,omitempty"`
	PriceChangePercentage *decimal.Decimal `json:"price_change_percentage,omitempty"`
}

// Validate checks the sequence invariants, including that the two
// detector-specific field groups are not mixed.
func (s SuspiciousSequence) Validate() error {
	if s.AccountID == "" {
		return fmt.Errorf("sequence account_id must be non-empty")
	}
	if s.ProductID == "" {
		return fmt.Errorf("sequence product_id must be non-empty")
	}
	if s.EndTimestamp.Before(s.StartTimestamp) {
		return fmt.Errorf("sequence end %s precedes start %s", s.EndTimestamp, s.StartTimestamp)
	}
	if s.TotalBuyQty < 0 || s.TotalSellQty < 0 {
		return fmt.Errorf("sequence quantities must be non-negative")
	}

	hasLayeringFields := s.Side != "" || s.NumCancelledOrders != 0 || len(s.OrderTimestamps) > 0
	hasWashFields := !s.AlternationPercentage.IsZero() || s.PriceChangePercentage != nil

	switch s.DetectionType {
	case DetectionLayering:
		if hasWashFields {
			return fmt.Errorf("layering sequence carries wash-trading fields")
		}
		if !s.Side.Valid() {
			return fmt.Errorf("layering sequence side %q is not one of BUY, SELL", s.Side)
		}
	case DetectionWashTrading:
		if hasLayeringFields {
			return fmt.Errorf("wash-trading sequence carries layering fields")
		}
		if s.AlternationPercentage.IsNegative() || s.AlternationPercentage.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("alternation percentage %s outside [0,100]", s.AlternationPercentage)
		}
	default:
		return fmt.Errorf("unknown detection type %q", s.DetectionType)
	}
	return nil
}

// Overlaps reports whether two sequences' inclusive time windows intersect
func (s SuspiciousSequence) Overlaps(other SuspiciousSequence) bool {
	return !s.StartTimestamp.After(other.EndTimestamp) && !other.StartTimestamp.After(s.EndTimestamp)
}
