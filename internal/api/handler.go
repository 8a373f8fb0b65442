package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"pos-service/internal/service"
	"pos-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// IdempotencyStore remembers which sale a client request key produced
type IdempotencyStore interface {
	LookupSale(ctx context.Context, key string) (string, bool, error)
	RememberSale(ctx context.Context, key, saleRef string, ttl time.Duration) error
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	ledger         *service.Ledger
	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
	bootID         string
	readiness      []Pinger
	logger         *zap.Logger
}

// Option configures a Handler
type Option func(*Handler)

// WithIdempotency enables Idempotency-Key handling on sale creation
func WithIdempotency(store IdempotencyStore, ttl time.Duration) Option {
	return func(h *Handler) {
		h.idempotency = store
		h.idempotencyTTL = ttl
	}
}

// WithReadinessCheck adds a dependency checked by /ready
func WithReadinessCheck(p Pinger) Option {
	return func(h *Handler) {
		h.readiness = append(h.readiness, p)
	}
}

// NewHandler creates a new HTTP handler
func NewHandler(ledger *service.Ledger, opts ...Option) *Handler {
	h := &Handler{
		ledger: ledger,
		bootID: uuid.New().String(),
		logger: util.GetLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/items", h.listItems)
		v1.POST("/items", h.addItem)
		v1.GET("/items/:id", h.getItem)
		v1.PATCH("/items/:id", h.updateItem)

		v1.GET("/customers", h.listCustomers)
		v1.POST("/customers", h.addCustomer)
		v1.GET("/customers/:id", h.getCustomer)

		v1.POST("/sales", h.createSale)
		v1.GET("/sales", h.listSales)
		v1.GET("/sales/:id", h.getSale)
		v1.GET("/sales/:id/receipt", h.getReceipt)

		v1.GET("/reports/sales", h.salesReport)

		v1.POST("/snapshot", h.saveSnapshot)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for _, p := range h.readiness {
		if err := p.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unavailable",
				"details": err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// saveSnapshot persists items and customers on demand
func (h *Handler) saveSnapshot(c *gin.Context) {
	if err := h.ledger.Save(c.Request.Context()); err != nil {
		h.logger.Error("Snapshot save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save snapshot",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
