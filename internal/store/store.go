// Package store persists merged detections. The pipeline itself only
// depends on the DetectionStore interface; the gorm-backed writer here is
// the default implementation.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Aidin1998/tradewatch/internal/model"
)

// ErrPersistence is returned to callers on any write failure. The message
// is deliberately generic; full detail is logged internally only.
var ErrPersistence = errors.New("failed to persist detections")

// DetectionStore writes merged detections for a completed request
type DetectionStore interface {
	SaveDetections(ctx context.Context, requestID string, detections []model.SuspiciousSequence) error
}

// DetectionRecord is one persisted row per merged detection
type DetectionRecord struct {
	ID                    uint   `gorm:"primaryKey"`
	RequestID             string `gorm:"index"`
	AccountID             string `gorm:"index"`
	ProductID             string
	DetectionType         string
	StartTimestamp        time.Time
	EndTimestamp          time.Time
	TotalBuyQty           int64
	TotalSellQty          int64
	Side                  string
	NumCancelledOrders    int
	AlternationPercentage string
	PriceChangePercentage string
	CreatedAt             time.Time
}

// DetectionOrderLog records the triggering order timestamps and total
// duration of a layering detection.
type DetectionOrderLog struct {
	ID                uint `gorm:"primaryKey"`
	DetectionRecordID uint `gorm:"index"`
	OrderTimestamp    time.Time
	DurationSeconds   float64
}

// GormStore persists detections through gorm
type GormStore struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

var _ DetectionStore = (*GormStore)(nil)

// NewSQLiteStore opens (or creates) a sqlite-backed store at path
func NewSQLiteStore(path string, logger *zap.SugaredLogger) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open detection store: %w", err)
	}
	if err := db.AutoMigrate(&DetectionRecord{}, &DetectionOrderLog{}); err != nil {
		return nil, fmt.Errorf("failed to migrate detection store: %w", err)
	}
	return &GormStore{db: db, logger: logger}, nil
}

// SaveDetections writes one row per detection plus a per-detection order
// timestamp log, in a single transaction.
func (s *GormStore) SaveDetections(ctx context.Context, requestID string, detections []model.SuspiciousSequence) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, det := range detections {
			record := recordFromDetection(requestID, det)
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			duration := det.EndTimestamp.Sub(det.StartTimestamp).Seconds()
			for _, ts := range det.OrderTimestamps {
				log := DetectionOrderLog{
					DetectionRecordID: record.ID,
					OrderTimestamp:    ts,
					DurationSeconds:   duration,
				}
				if err := tx.Create(&log).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Errorw("detection store write failed",
			"request_id", requestID, "detections", len(detections), "error", err)
		return ErrPersistence
	}
	return nil
}

func recordFromDetection(requestID string, det model.SuspiciousSequence) DetectionRecord {
	record := DetectionRecord{
		RequestID:          requestID,
		AccountID:          det.AccountID,
		ProductID:          det.ProductID,
		DetectionType:      string(det.DetectionType),
		StartTimestamp:     det.StartTimestamp,
		EndTimestamp:       det.EndTimestamp,
		TotalBuyQty:        det.TotalBuyQty,
		TotalSellQty:       det.TotalSellQty,
		Side:               string(det.Side),
		NumCancelledOrders: det.NumCancelledOrders,
	}
	if det.DetectionType == model.DetectionWashTrading {
		record.AlternationPercentage = det.AlternationPercentage.String()
		if det.PriceChangePercentage != nil {
			record.PriceChangePercentage = det.PriceChangePercentage.String()
		}
	}
	return record
}
