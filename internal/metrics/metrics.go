package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingsCreated - количество созданных бронирований
	BookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Количество созданных бронирований",
		},
	)

	// BookingsConfirmed - количество подтвержденных бронирований
	BookingsConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_confirmed_total",
			Help: "Количество подтвержденных бронирований",
		},
	)

	// BookingsCancelled - количество отмененных бронирований по причине
	BookingsCancelled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_cancelled_total",
			Help: "Количество отмененных бронирований",
		},
		[]string{"reason"},
	)

	SweepRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_sweep_runs_total",
			Help: "Количество запусков очистки просроченных бронирований",
		},
	)

	SweepExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_sweep_expired_total",
			Help: "Количество бронирований, отмененных по истечении срока",
		},
	)

	SweepFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_sweep_failures_total",
			Help: "Количество ошибок при отмене просроченных бронирований",
		},
	)

	// GatewayRequestsTotal - запросы к платежному шлюзу
	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_requests_total",
			Help: "Общее количество запросов к платежному шлюзу",
		},
		[]string{"endpoint", "status"},
	)

	// GatewayRequestDuration - длительность запросов к платежному шлюзу
	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_request_duration_seconds",
			Help:    "Длительность запросов к платежному шлюзу в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

// TrackGatewayRequest отслеживает запрос к платежному шлюзу. status 0 означает сетевую ошибку.
func TrackGatewayRequest(endpoint string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	GatewayRequestsTotal.WithLabelValues(endpoint, label).Inc()
	GatewayRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
