// Package server exposes the surveillance pipeline over HTTP: a
// per-detector call surface, an aggregation surface, and a full-pipeline
// scan endpoint.
package server

import (
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/tradewatch/internal/aggregator"
	"github.com/Aidin1998/tradewatch/internal/coordinator"
	"github.com/Aidin1998/tradewatch/internal/store"
)

// Server wires the pipeline components behind gin handlers
type Server struct {
	logger      *zap.Logger
	sugar       *zap.SugaredLogger
	coord       *coordinator.Coordinator
	agg         *aggregator.Aggregator
	detectors   map[string]coordinator.Detector
	order       []string
	callTimeout time.Duration
	detStore    store.DetectionStore
}

// New creates a server. detectors defines both the per-detector call
// surface and the expected set for full scans; detStore may be nil to
// disable persistence.
func New(
	logger *zap.Logger,
	coord *coordinator.Coordinator,
	agg *aggregator.Aggregator,
	detectors []coordinator.Detector,
	callTimeout time.Duration,
	detStore store.DetectionStore,
) *Server {
	byName := make(map[string]coordinator.Detector, len(detectors))
	order := make([]string, 0, len(detectors))
	for _, det := range detectors {
		byName[det.Name()] = det
		order = append(order, det.Name())
	}
	return &Server{
		logger:      logger,
		sugar:       logger.Sugar(),
		coord:       coord,
		agg:         agg,
		detectors:   byName,
		order:       order,
		callTimeout: callTimeout,
		detStore:    detStore,
	}
}

// Router builds the gin engine with logging, recovery and all routes
func (s *Server) Router() *gin.Engine {
	registerValidations()

	router := gin.New()
	router.Use(ginzap.Ginzap(s.logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/detect/:detector", s.handleDetect)
		v1.POST("/aggregate", s.handleAggregate)
		v1.POST("/scan", s.handleScan)
	}
	return router
}

// registerValidations installs custom binding validations on gin's
// validator engine. Safe to call more than once.
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("decimalpositive", func(fl validator.FieldLevel) bool {
			d, ok := fl.Field().Interface().(decimal.Decimal)
			return ok && d.IsPositive()
		})
	}
}
