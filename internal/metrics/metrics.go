package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EndorsementDuration tracks the latency of endorsement submissions
	EndorsementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "endorsement_submit_duration_seconds",
			Help: "Duration of endorsement submission requests in seconds",
			Buckets: []float64{
				0.001, // 1ms
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
				5.0,   // 5s
			},
		},
		[]string{"status"}, // success or a rejection kind
	)

	// RedemptionsTotal counts redemption attempts by outcome
	RedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_redemptions_total",
			Help: "Promo code redemption attempts by result",
		},
		[]string{"result"},
	)

	// CampaignsCompletedTotal counts campaigns that crossed their threshold
	CampaignsCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaigns_completed_total",
			Help: "Campaigns that reached their endorsement threshold",
		},
	)
)

// RecordEndorsementDuration records the duration of an endorsement submission
func RecordEndorsementDuration(status string, duration float64) {
	EndorsementDuration.WithLabelValues(status).Observe(duration)
}

// RecordRedemption counts one redemption attempt outcome
func RecordRedemption(result string) {
	RedemptionsTotal.WithLabelValues(result).Inc()
}
