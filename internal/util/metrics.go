package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DealsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deals_created_total",
		Help: "Total number of deals created",
	})

	DealsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deals_completed_total",
		Help: "Total number of deals completed",
	})

	DealsDisputedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deals_disputed_total",
		Help: "Total number of deals moved to dispute",
	})

	DealsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deals_failed_total",
		Help: "Total number of rejected deal transitions",
	}, []string{"reason"})

	FundsFrozenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "funds_frozen_total",
		Help: "Total amount of funds frozen for deals",
	})

	FundsReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "funds_released_total",
		Help: "Total amount of funds released to sellers",
	})

	ImportRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_runs_total",
		Help: "Total number of catalog import runs",
	})

	ImportItemsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_items_created_total",
		Help: "Total number of items created by imports",
	})

	ImportItemsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_items_skipped_total",
		Help: "Total number of import candidates skipped",
	}, []string{"reason"})

	ImportRunLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "import_run_latency_seconds",
		Help:    "Latency of full catalog import runs",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	ImageDownloadsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "image_downloads_failed_total",
		Help: "Total number of failed candidate image downloads",
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
