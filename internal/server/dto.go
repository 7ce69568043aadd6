package server

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Aidin1998/tradewatch/internal/model"
)

// EventDTO is the wire form of a transaction event
type EventDTO struct {
	Timestamp time.Time       `json:"timestamp" binding:"required"`
	AccountID string          `json:"account_id" binding:"required"`
	ProductID string          `json:"product_id" binding:"required"`
	Side      string          `json:"side" binding:"required,oneof=BUY SELL"`
	Price     decimal.Decimal `json:"price" binding:"decimalpositive"`
	Quantity  int64           `json:"quantity" binding:"required,gt=0"`
	EventType string          `json:"event_type" binding:"required,oneof=ORDER_PLACED ORDER_CANCELLED TRADE_EXECUTED"`
}

func (dto EventDTO) toModel() model.TransactionEvent {
	return model.TransactionEvent{
		Timestamp: dto.Timestamp,
		AccountID: dto.AccountID,
		ProductID: dto.ProductID,
		Side:      model.Side(dto.Side),
		Price:     dto.Price,
		Quantity:  dto.Quantity,
		EventType: model.EventType(dto.EventType),
	}
}

func toModelEvents(dtos []EventDTO) []model.TransactionEvent {
	events := make([]model.TransactionEvent, len(dtos))
	for i, dto := range dtos {
		events[i] = dto.toModel()
	}
	return events
}

// DetectRequest is the per-detector call consumed by a coordinator
type DetectRequest struct {
	RequestID        string     `json:"request_id"`
	EventFingerprint string     `json:"event_fingerprint" binding:"required,len=64,hexadecimal"`
	Events           []EventDTO `json:"events" binding:"required,dive"`
}

// DetectResponse carries one detector's result. Results and Error are
// mutually exclusive and determined by Status.
type DetectResponse struct {
	RequestID    string                     `json:"request_id"`
	DetectorName string                     `json:"detector_name"`
	Status       string                     `json:"status"`
	Results      []model.SuspiciousSequence `json:"results,omitempty"`
	Error        string                     `json:"error,omitempty"`
	FinalStatus  bool                       `json:"final_status"`
}

const (
	detectStatusSuccess = "success"
	detectStatusFailure = "failure"
	detectStatusTimeout = "timeout"
)

// AggregateRequest validates and merges externally collected outcomes
type AggregateRequest struct {
	RequestID             string                          `json:"request_id"`
	ExpectedDetectorNames []string                        `json:"expected_detector_names" binding:"required,min=1,unique"`
	Outcomes              map[string]model.ServiceOutcome `json:"outcomes"`
}

// AggregateResponse reports the merge result. Error is present iff the
// status is validation_failed.
type AggregateResponse struct {
	RequestID           string   `json:"request_id"`
	Status              string   `json:"status"`
	MergedCount         int      `json:"merged_count"`
	FailedDetectorNames []string `json:"failed_detector_names"`
	Error               string   `json:"error,omitempty"`
}

const (
	aggregateStatusCompleted        = "completed"
	aggregateStatusValidationFailed = "validation_failed"
)

// ScanRequest runs the whole pipeline over one batch
type ScanRequest struct {
	RequestID string     `json:"request_id"`
	Events    []EventDTO `json:"events" binding:"required,dive"`
}

// ScanResponse is the pipeline's merged output
type ScanResponse struct {
	RequestID           string                     `json:"request_id"`
	Status              string                     `json:"status"`
	Detections          []model.SuspiciousSequence `json:"detections"`
	MergedCount         int                        `json:"merged_count"`
	FailedDetectorNames []string                   `json:"failed_detector_names"`
}
