package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"marketmasters/internal/game"
)

func TestObserverUpdatesCollectors(t *testing.T) {
	var o Observer
	before := testutil.ToFloat64(TradesTotal.WithLabelValues("buy"))
	o.TradeExecuted(game.SideBuy)
	if got := testutil.ToFloat64(TradesTotal.WithLabelValues("buy")); got != before+1 {
		t.Fatalf("trades = %v, want %v", got, before+1)
	}

	o.PortfolioValued(decimal.RequireFromString("10250.50"), 3)
	if got := testutil.ToFloat64(NetWorth); got != 10250.50 {
		t.Fatalf("net worth = %v", got)
	}
	if got := testutil.ToFloat64(PlayerLevel); got != 3 {
		t.Fatalf("level = %v", got)
	}

	failBefore := testutil.ToFloat64(PersistFailures.WithLabelValues("slot"))
	o.PersistFailed("slot")
	if got := testutil.ToFloat64(PersistFailures.WithLabelValues("slot")); got != failBefore+1 {
		t.Fatalf("persist failures = %v", got)
	}
	o.TickCompleted("price", 2*time.Millisecond)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/v1/stocks/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/v1/stocks/{symbol}", "404"))
	req := httptest.NewRequest(http.MethodGet, "/v1/stocks/ZMX", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/v1/stocks/{symbol}", "404"))
	if got != before+1 {
		t.Fatalf("requests = %v, want %v", got, before+1)
	}
}
