package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the order or trade side
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the other side
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Valid reports whether the side is a known value
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// EventType classifies a transaction event
type EventType string

const (
	EventOrderPlaced    EventType = "ORDER_PLACED"
	EventOrderCancelled EventType = "ORDER_CANCELLED"
	EventTradeExecuted  EventType = "TRADE_EXECUTED"
)

// Valid reports whether the event type is a known value
func (t EventType) Valid() bool {
	switch t {
	case EventOrderPlaced, EventOrderCancelled, EventTradeExecuted:
		return true
	}
	return false
}

// TransactionEvent is one immutable record in a surveillance batch.
// Instances are created by ingestion and read-only afterwards.
type TransactionEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	AccountID string          `json:"account_id"`
	ProductID string          `json:"product_id"`
	Side      Side            `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	EventType EventType       `json:"event_type"`
}

// Validate checks the event invariants
func (e TransactionEvent) Validate() error {
	if e.Timestamp.IsZero() {
		return fmt.Errorf("event timestamp must be set")
	}
	if e.AccountID == "" {
		return fmt.Errorf("event account_id must be non-empty")
	}
	if e.ProductID == "" {
		return fmt.Errorf("event product_id must be non-empty")
	}
	if !e.Side.Valid() {
		return fmt.Errorf("event side %q is not one of BUY, SELL", e.Side)
	}
	if !e.Price.IsPositive() {
		return fmt.Errorf("event price must be positive, got %s", e.Price)
	}
	if e.Quantity <= 0 {
		return fmt.Errorf("event quantity must be positive, got %d", e.Quantity)
	}
	if !e.EventType.Valid() {
		return fmt.Errorf("event type %q is not one of ORDER_PLACED, ORDER_CANCELLED, TRADE_EXECUTED", e.EventType)
	}
	return nil
}

// GroupKey identifies the (account, product) group an event belongs to
func (e TransactionEvent) GroupKey() string {
	return e.AccountID + "|" + e.ProductID
}

// ValidateEvents validates a whole batch, reporting the first bad event
func ValidateEvents(events []TransactionEvent) error {
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}
