package washtrade

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aidin1998/tradewatch/internal/model"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newDetector(t *testing.T) *Detector {
	t.Helper()
	cfg, err := NewConfig(30 * time.Minute)
	require.NoError(t, err)
	return New(cfg, zap.NewNop().Sugar())
}

func trade(offset time.Duration, side model.Side, qty int64, price string) model.TransactionEvent {
	return model.TransactionEvent{
		Timestamp: t0.Add(offset),
		AccountID: "acct-1",
		ProductID: "BTC-USD",
		Side:      side,
		Price:     decimal.RequireFromString(price),
		Quantity:  qty,
		EventType: model.EventTradeExecuted,
	}
}

func sides(pattern ...model.Side) []model.TransactionEvent {
	events := make([]model.TransactionEvent, len(pattern))
	for i, side := range pattern {
		events[i] = trade(time.Duration(i)*time.Minute, side, 2000, "100")
	}
	return events
}

func TestDetect_PerfectAlternation(t *testing.T) {
	d := newDetector(t)

	events := sides(model.SideBuy, model.SideSell, model.SideBuy, model.SideSell, model.SideBuy, model.SideSell)
	got, err := d.Detect(context.Background(), events)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	seq := got[0]
	assert.True(t, seq.AlternationPercentage.Equal(decimal.NewFromInt(100)),
		"expected 100%% alternation, got %s", seq.AlternationPercentage)
	assert.Equal(t, model.DetectionWashTrading, seq.DetectionType)
	assert.Equal(t, int64(6000), seq.TotalBuyQty)
	assert.Equal(t, int64(6000), seq.TotalSellQty)
	assert.True(t, seq.StartTimestamp.Equal(t0))
	assert.True(t, seq.EndTimestamp.Equal(t0.Add(5*time.Minute)))
	assert.Nil(t, seq.PriceChangePercentage, "flat prices must omit price change, not report zero")
	require.NoError(t, seq.Validate())
}

func TestDetect_SixtyPercentAlternationQualifies(t *testing.T) {
	d := newDetector(t)

	// BUY,BUY,SELL,BUY,SELL,SELL: 3 switches over 5 transitions = 60%,
	// the inclusive qualification minimum.
	events := sides(model.SideBuy, model.SideBuy, model.SideSell, model.SideBuy, model.SideSell, model.SideSell)
	got, err := d.Detect(context.Background(), events)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.True(t, got[0].AlternationPercentage.Equal(decimal.NewFromInt(60)),
		"expected exactly 60%%, got %s", got[0].AlternationPercentage)
}

func TestDetect_BelowSixtyPercentRejected(t *testing.T) {
	d := newDetector(t)

	// BUY,BUY,BUY,SELL,SELL,SELL: 1 switch over 5 transitions = 20%.
	events := sides(model.SideBuy, model.SideBuy, model.SideBuy, model.SideSell, model.SideSell, model.SideSell)
	got, err := d.Detect(context.Background(), events)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetect_QuantityFloor(t *testing.T) {
	d := newDetector(t)

	events := sides(model.SideBuy, model.SideSell, model.SideBuy, model.SideSell, model.SideBuy, model.SideSell)
	for i := range events {
		events[i].Quantity = 1666 // total 9996, below the 10,000 floor
	}
	got, err := d.Detect(context.Background(), events)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetect_RequiresThreePerSide(t *testing.T) {
	d := newDetector(t)

	// Six trades, only two sells.
	events := sides(model.SideBuy, model.SideSell, model.SideBuy, model.SideSell, model.SideBuy, model.SideBuy)
	got, err := d.Detect(context.Background(), events)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetect_PriceChangeIncludedAtOnePercent(t *testing.T) {
	d := newDetector(t)

	events := sides(model.SideBuy, model.SideSell, model.SideBuy, model.SideSell, model.SideBuy, model.SideSell)
	events[len(events)-1].Price = decimal.RequireFromString("102")
	got, err := d.Detect(context.Background(), events)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	require.NotNil(t, got[0].PriceChangePercentage)
	assert.True(t, got[0].PriceChangePercentage.Equal(decimal.NewFromInt(2)),
		"expected 2%% change, got %s", got[0].PriceChangePercentage)
}

func TestDetect_SubOnePercentPriceChangeOmitted(t *testing.T) {
	d := newDetector(t)

	events := sides(model.SideBuy, model.SideSell, model.SideBuy, model.SideSell, model.SideBuy, model.SideSell)
	events[len(events)-1].Price = decimal.RequireFromString("100.5")
	got, err := d.Detect(context.Background(), events)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Nil(t, got[0].PriceChangePercentage)
}

func TestDetect_OverlappingAnchorsEachEmit(t *testing.T) {
	d := newDetector(t)

	// Seven alternating trades: the windows anchored at the first and
	// second trades both qualify. Dedup is the aggregator's job.
	events := sides(model.SideBuy, model.SideSell, model.SideBuy, model.SideSell,
		model.SideBuy, model.SideSell, model.SideBuy)
	got, err := d.Detect(context.Background(), events)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDetect_IgnoresNonTradeEvents(t *testing.T) {
	d := newDetector(t)

	events := sides(model.SideBuy, model.SideSell, model.SideBuy, model.SideSell, model.SideBuy, model.SideSell)
	order := trade(30*time.Second, model.SideBuy, 2000, "100")
	order.EventType = model.EventOrderPlaced
	events = append(events, order)

	got, err := d.Detect(context.Background(), events)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	// The order between trades must not break the alternation count.
	assert.True(t, got[0].AlternationPercentage.Equal(decimal.NewFromInt(100)))
}

func TestNewConfig_RejectsNonPositiveWindow(t *testing.T) {
	_, err := NewConfig(0)
	assert.Error(t, err)
	_, err = NewConfig(-time.Minute)
	assert.Error(t, err)
}
