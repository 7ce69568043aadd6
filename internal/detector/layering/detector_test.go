package layering

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/tradewatch/internal/model"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := NewConfig(10*time.Second, 30*time.Second, 60*time.Second)
	if err != nil {
		t.Fatalf("Failed to build config: %v", err)
	}
	return cfg
}

func layeringEvent(offset time.Duration, account string, side model.Side, et model.EventType, qty int64) model.TransactionEvent {
	return model.TransactionEvent{
		Timestamp: t0.Add(offset),
		AccountID: account,
		ProductID: "BTC-USD",
		Side:      side,
		Price:     decimal.NewFromInt(100),
		Quantity:  qty,
		EventType: et,
	}
}

// fullPattern is a complete buy-side layering sequence for one account:
// three orders inside the orders window, three cancellations inside the
// cancel window, one opposite-side execution after the last cancel.
func fullPattern(account string) []model.TransactionEvent {
	return []model.TransactionEvent{
		layeringEvent(0, account, model.SideBuy, model.EventOrderPlaced, 100),
		layeringEvent(2*time.Second, account, model.SideBuy, model.EventOrderPlaced, 100),
		layeringEvent(5*time.Second, account, model.SideBuy, model.EventOrderPlaced, 100),
		layeringEvent(6*time.Second, account, model.SideBuy, model.EventOrderCancelled, 100),
		layeringEvent(8*time.Second, account, model.SideBuy, model.EventOrderCancelled, 100),
		layeringEvent(20*time.Second, account, model.SideBuy, model.EventOrderCancelled, 100),
		layeringEvent(25*time.Second, account, model.SideSell, model.EventTradeExecuted, 50),
	}
}

func TestDetect_FullPattern(t *testing.T) {
	d := New(testConfig(t), zap.NewNop().Sugar())

	got, err := d.Detect(context.Background(), fullPattern("acct-1"))
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 sequence, got %d", len(got))
	}

	seq := got[0]
	if seq.DetectionType != model.DetectionLayering {
		t.Errorf("Expected LAYERING, got %s", seq.DetectionType)
	}
	if seq.Side != model.SideBuy {
		t.Errorf("Expected BUY side, got %s", seq.Side)
	}
	if !seq.StartTimestamp.Equal(t0) {
		t.Errorf("Expected start at first order, got %s", seq.StartTimestamp)
	}
	if !seq.EndTimestamp.Equal(t0.Add(25 * time.Second)) {
		t.Errorf("Expected end at trade, got %s", seq.EndTimestamp)
	}
	if seq.TotalBuyQty != 300 {
		t.Errorf("Expected cancelled buy qty 300, got %d", seq.TotalBuyQty)
	}
	if seq.TotalSellQty != 50 {
		t.Errorf("Expected executed sell qty 50, got %d", seq.TotalSellQty)
	}
	if seq.NumCancelledOrders != 3 {
		t.Errorf("Expected 3 cancellations, got %d", seq.NumCancelledOrders)
	}
	if len(seq.OrderTimestamps) != 3 {
		t.Errorf("Expected 3 order timestamps, got %d", len(seq.OrderTimestamps))
	}
	if err := seq.Validate(); err != nil {
		t.Errorf("Emitted sequence failed validation: %v", err)
	}
}

func TestDetect_OrdersWindowBoundaryInclusive(t *testing.T) {
	d := New(testConfig(t), zap.NewNop().Sugar())

	// Third order exactly at the 10s window edge: included.
	events := []model.TransactionEvent{
		layeringEvent(0, "acct-1", model.SideBuy, model.EventOrderPlaced, 100),
		layeringEvent(2*time.Second, "acct-1", model.SideBuy, model.EventOrderPlaced, 100),
		layeringEvent(10*time.Second, "acct-1", model.SideBuy, model.EventOrderPlaced, 100),
		layeringEvent(11*time.Second, "acct-1", model.SideBuy, model.EventOrderCancelled, 100),
		layeringEvent(12*time.Second, "acct-1", model.SideBuy, model.EventOrderCancelled, 100),
		layeringEvent(13*time.Second, "acct-1", model.SideBuy, model.EventOrderCancelled, 100),
		layeringEvent(14*time.Second, "acct-1", model.SideSell, model.EventTradeExecuted, 50),
	}
	got, err := d.Detect(context.Background(), events)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected order at exact window edge to be included, got %d sequences", len(got))
	}

	// Just past the edge: excluded, run never reaches three orders.
	events[2].Timestamp = t0.Add(10*time.Second + 100*time.Microsecond)
	got, err = d.Detect(context.Background(), events)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Expected order past window edge to break the run, got %d sequences", len(got))
	}
}

func TestDetect_RequiresThreeCancellations(t *testing.T) {
	d := New(testConfig(t), zap.NewNop().Sugar())

	events := fullPattern("acct-1")[:5] // only two cancellations, no trade
	got, err := d.Detect(context.Background(), events)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no sequence with two cancellations, got %d", len(got))
	}
}

func TestDetect_RequiresOppositeTrade(t *testing.T) {
	d := New(testConfig(t), zap.NewNop().Sugar())

	events := fullPattern("acct-1")[:6] // pattern minus the opposite trade
	got, err := d.Detect(context.Background(), events)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no sequence without an opposite trade, got %d", len(got))
	}

	// Same-side trade does not satisfy phase three.
	events = append(events, layeringEvent(25*time.Second, "acct-1", model.SideBuy, model.EventTradeExecuted, 50))
	got, err = d.Detect(context.Background(), events)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no sequence for same-side trade, got %d", len(got))
	}
}

func TestDetect_AtMostOneSequencePerGroup(t *testing.T) {
	d := New(testConfig(t), zap.NewNop().Sugar())

	// Two full patterns for the same account, well separated in time.
	events := fullPattern("acct-1")
	for _, ev := range fullPattern("acct-1") {
		ev.Timestamp = ev.Timestamp.Add(time.Hour)
		events = append(events, ev)
	}
	got, err := d.Detect(context.Background(), events)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Expected at most one sequence per group, got %d", len(got))
	}
}

func TestDetect_IndependentGroups(t *testing.T) {
	d := New(testConfig(t), zap.NewNop().Sugar())

	events := append(fullPattern("acct-1"), fullPattern("acct-2")...)
	got, err := d.Detect(context.Background(), events)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected one sequence per account group, got %d", len(got))
	}
}

func TestDetect_RejectsInvalidEvents(t *testing.T) {
	d := New(testConfig(t), zap.NewNop().Sugar())

	events := fullPattern("acct-1")
	events[0].Quantity = 0
	if _, err := d.Detect(context.Background(), events); err == nil {
		t.Errorf("Expected validation error for malformed event")
	}
}

func TestNewConfig_RejectsNonPositiveWindows(t *testing.T) {
	if _, err := NewConfig(0, time.Second, time.Second); err == nil {
		t.Errorf("Expected error for zero orders window")
	}
	if _, err := NewConfig(time.Second, -time.Second, time.Second); err == nil {
		t.Errorf("Expected error for negative cancel window")
	}
	if _, err := NewConfig(time.Second, time.Second, 0); err == nil {
		t.Errorf("Expected error for zero opposite trade window")
	}
}
