// Package metrics содержит счётчики Prometheus и HTTP-middleware для их сбора.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Исходы операций бронирования.
const (
	OutcomeReserved      = "reserved"
	OutcomeCancelled     = "cancelled"
	OutcomeAlreadyBooked = "already_reserved"
	OutcomeNoPlaces      = "no_places"
	OutcomeNotFound      = "not_found"
	OutcomeError         = "error"
)

// Metrics набор счётчиков сервиса.
type Metrics struct {
	Reservations  *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Requests      *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
}

// New создаёт счётчики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carpool",
			Name:      "reservations_total",
			Help:      "Reserve and cancel attempts by outcome.",
		}, []string{"outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carpool",
			Name:      "notifications_total",
			Help:      "Published notification events by routing key and result.",
		}, []string{"kind", "result"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carpool",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carpool",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	reg.MustRegister(m.Reservations, m.Notifications, m.Requests, m.Duration)
	return m
}

// ReservationOutcome увеличивает счётчик бронирований с исходом outcome.
func (m *Metrics) ReservationOutcome(outcome string) {
	m.Reservations.WithLabelValues(outcome).Inc()
}

// NotificationPublished отмечает результат публикации события kind.
func (m *Metrics) NotificationPublished(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.Notifications.WithLabelValues(kind, result).Inc()
}

// Middleware считает запросы и их длительность по шаблону маршрута chi.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.Duration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
