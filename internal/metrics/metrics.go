package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecoscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoscan_scans_total",
			Help: "Total number of processed waste scans",
		},
		[]string{"waste_type", "duplicate"},
	)

	PointsAwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecoscan_points_awarded_total",
			Help: "Total points awarded for scans",
		},
	)

	DailyLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecoscan_daily_limit_rejections_total",
			Help: "Total number of scans refused by the daily limit",
		},
	)

	RedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoscan_redemptions_total",
			Help: "Total number of reward redemption attempts",
		},
		[]string{"status"},
	)

	BlobUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoscan_blob_uploads_total",
			Help: "Total number of proof image uploads",
		},
		[]string{"status"},
	)

	ReconcileRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecoscan_reconcile_runs_total",
			Help: "Total number of balance reconciliation runs",
		},
	)

	OrphanRedemptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecoscan_orphan_redemptions",
			Help: "Redemptions without a matching point deduction, found by the last reconciliation run",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordScan(wasteType string, duplicate bool) {
	label := "false"
	if duplicate {
		label = "true"
	}
	ScansTotal.WithLabelValues(wasteType, label).Inc()
}

func RecordPointsAwarded(points int64) {
	PointsAwardedTotal.Add(float64(points))
}

func RecordRedemption(status string) {
	RedemptionsTotal.WithLabelValues(status).Inc()
}

func RecordBlobUpload(status string) {
	BlobUploadsTotal.WithLabelValues(status).Inc()
}
