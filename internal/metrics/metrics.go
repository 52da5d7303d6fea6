package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP метрики ops API
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)

	// Метрики подписок
	PaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Total number of successful payments by plan",
		},
		[]string{"plan"},
	)
	InvitesIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invites_issued_total",
			Help: "Total number of invite links issued",
		},
	)
	InviteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invite_failures_total",
			Help: "Total number of failed invite link creations",
		},
	)
	PromoRedemptionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promo_redemptions_total",
			Help: "Total number of redeemed promo codes",
		},
	)

	// Метрики свипера
	SweepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sweeps_total",
			Help: "Total number of expiry sweeps executed",
		},
	)
	MembersRevokedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "members_revoked_total",
			Help: "Total number of memberships revoked by the sweeper",
		},
	)
	EvictionFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eviction_failures_total",
			Help: "Total number of eviction attempts that failed",
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestsInFlight)

	prometheus.MustRegister(PaymentsTotal)
	prometheus.MustRegister(InvitesIssuedTotal)
	prometheus.MustRegister(InviteFailuresTotal)
	prometheus.MustRegister(PromoRedemptionsTotal)

	prometheus.MustRegister(SweepsTotal)
	prometheus.MustRegister(MembersRevokedTotal)
	prometheus.MustRegister(EvictionFailuresTotal)
}
