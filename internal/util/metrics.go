package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_completed_total",
		Help: "Total number of sales recorded as transactions",
	})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sales_failed_total",
		Help: "Total number of sales that produced no transaction",
	}, []string{"reason"})

	SaleLinesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sale_lines_skipped_total",
		Help: "Total number of cart lines dropped during a sale",
	}, []string{"reason"})

	SaleAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_sale_total_amount",
		Help:    "Tax-inclusive total of completed sales",
		Buckets: prometheus.ExponentialBuckets(1, 2.5, 10),
	})

	SaleProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_sale_processing_latency_seconds",
		Help:    "Latency of the sale workflow",
		Buckets: prometheus.DefBuckets,
	})

	StockAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_stock_adjustments_total",
		Help: "Total number of stock quantity changes",
	}, []string{"reason"})

	SnapshotSaveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_snapshot_save_latency_seconds",
		Help:    "Latency of saving items and customers",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
