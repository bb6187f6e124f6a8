// Package metrics provides Prometheus instrumentation for the game service
// and its HTTP surface.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"marketmasters/internal/game"
)

var (
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mm_trades_total",
		Help: "Total number of trades executed",
	}, []string{"side"})

	TickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mm_tick_duration_seconds",
		Help:    "Time spent inside a scheduler tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"kind"})

	PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mm_persist_failures_total",
		Help: "Save slot writes that failed",
	}, []string{"slot"})

	NetWorth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mm_net_worth",
		Help: "Current portfolio value (cash plus holdings)",
	})

	PlayerLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mm_player_level",
		Help: "Current player level",
	})

	// WebSocketClients tracks connected live-feed clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mm_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mm_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mm_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Observer feeds game.Service events into the collectors above.
type Observer struct{}

var _ game.Observer = Observer{}

func (Observer) TradeExecuted(side game.Side) {
	TradesTotal.WithLabelValues(string(side)).Inc()
}

func (Observer) TickCompleted(kind string, took time.Duration) {
	TickDuration.WithLabelValues(kind).Observe(took.Seconds())
}

func (Observer) PersistFailed(slot string) {
	PersistFailures.WithLabelValues(slot).Inc()
}

func (Observer) PortfolioValued(netWorth decimal.Decimal, level int) {
	NetWorth.Set(netWorth.InexactFloat64())
	PlayerLevel.Set(float64(level))
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency, labelled by chi route
// pattern so path parameters don't explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				path = p
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrade pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
