package store

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

func openTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:", zap.NewNop().Sugar())
	require.NoError(t, err)
	return s
}

func layeringDetection() model.SuspiciousSequence {
	return model.SuspiciousSequence{
		AccountID:          "acct-1",
		ProductID:          "BTC-USD",
		StartTimestamp:     t0,
		EndTimestamp:       t0.Add(90 * time.Second),
		TotalBuyQty:        300,
		TotalSellQty:       50,
		DetectionType:      model.DetectionLayering,
		Side:               model.SideBuy,
		NumCancelledOrders: 3,
		OrderTimestamps: []time.Time{
			t0, t0.Add(2 * time.Second), t0.Add(5 * time.Second),
		},
	}
}

func washDetection() model.SuspiciousSequence {
	priceChange := decimal.NewFromInt(2)
	return model.SuspiciousSequence{
		AccountID:             "acct-2",
		ProductID:             "ETH-USD",
		StartTimestamp:        t0,
		EndTimestamp:          t0.Add(5 * time.Minute),
		TotalBuyQty:           6000,
		TotalSellQty:          6000,
		DetectionType:         model.DetectionWashTrading,
		AlternationPercentage: decimal.NewFromInt(100),
		PriceChangePercentage: &priceChange,
	}
}

func TestSaveDetections_WritesRecordsAndOrderLogs(t *testing.T) {
	s := openTestStore(t)

	err := s.SaveDetections(context.Background(), "req-1", []model.SuspiciousSequence{
		layeringDetection(),
		washDetection(),
	})
	require.NoError(t, err)

	var records []DetectionRecord
	require.NoError(t, s.db.Order("id").Find(&records).Error)
	require.Len(t, records, 2)

	layering := records[0]
	assert.Equal(t, "req-1", layering.RequestID)
	assert.Equal(t, "acct-1", layering.AccountID)
	assert.Equal(t, string(model.DetectionLayering), layering.DetectionType)
	assert.Equal(t, "BUY", layering.Side)
	assert.Equal(t, 3, layering.NumCancelledOrders)
	assert.Empty(t, layering.AlternationPercentage)

	wash := records[1]
	assert.Equal(t, string(model.DetectionWashTrading), wash.DetectionType)
	assert.Equal(t, "100", wash.AlternationPercentage)
	assert.Equal(t, "2", wash.PriceChangePercentage)

	var logs []DetectionOrderLog
	require.NoError(t, s.db.Order("id").Find(&logs).Error)
	require.Len(t, logs, 3, "one order log row per layering order timestamp")
	for _, log := range logs {
		assert.Equal(t, layering.ID, log.DetectionRecordID)
		assert.Equal(t, 90.0, log.DurationSeconds)
	}
	assert.True(t, logs[1].OrderTimestamp.Equal(t0.Add(2*time.Second)))
}

func TestSaveDetections_EmptySliceWritesNothing(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveDetections(context.Background(), "req-1", nil))

	var count int64
	require.NoError(t, s.db.Model(&DetectionRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSaveDetections_WriteFailureReturnsGenericError(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.db.Exec("DROP TABLE detection_records").Error)

	err := s.SaveDetections(context.Background(), "req-1", []model.SuspiciousSequence{
		layeringDetection(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, ErrPersistence.Error(), err.Error(),
		"callers see the generic message, not driver detail")
}
