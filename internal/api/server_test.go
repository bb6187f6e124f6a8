package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	mathrand "math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketmasters/internal/game"
	"marketmasters/internal/store"
)

func newTestServer(t *testing.T) (*Server, *game.Service) {
	t.Helper()
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := game.NewService(store.NewMemory(), logger,
		game.WithClock(func() time.Time { return now }),
		game.WithRand(mathrand.New(mathrand.NewSource(7))),
	)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(svc.Close)
	return New(logger, svc, nil), svc
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	if rec := do(t, s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	rec := do(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "mm_http_requests_total") {
		t.Fatalf("metrics = %d %q", rec.Code, rec.Body.String())
	}
}

func TestOrderFlow(t *testing.T) {
	s, svc := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/orders", `{"symbol":"zoomx","side":"buy","quantity":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("buy = %d %s", rec.Code, rec.Body.String())
	}
	var res game.OrderResult
	decode(t, rec, &res)
	if res.Order.Symbol != "ZOOMX" || res.Order.Quantity != 2 || res.Message == "" {
		t.Fatalf("result = %+v", res)
	}
	if got := svc.Dashboard().Holdings; len(got) != 1 || got[0].Shares != 2 {
		t.Fatalf("holdings = %+v", got)
	}

	rec = do(t, s, http.MethodPost, "/v1/orders/sell-all", `{"symbol":"ZOOMX"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("sell-all = %d %s", rec.Code, rec.Body.String())
	}
	if got := svc.Dashboard().Holdings; len(got) != 0 {
		t.Fatalf("holdings after sell-all = %+v", got)
	}

	rec = do(t, s, http.MethodGet, "/v1/orders?limit=1", "")
	var orders struct {
		Orders []game.Order `json:"orders"`
	}
	decode(t, rec, &orders)
	if len(orders.Orders) != 1 || orders.Orders[0].Side != game.SideSell {
		t.Fatalf("orders = %+v", orders.Orders)
	}
}

func TestDomainErrorStatus(t *testing.T) {
	s, _ := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"sell without shares", http.MethodPost, "/v1/orders", `{"symbol":"ZOOMX","side":"sell","quantity":5}`, http.StatusBadRequest},
		{"bad side", http.MethodPost, "/v1/orders", `{"symbol":"ZOOMX","side":"hold","quantity":1}`, http.StatusBadRequest},
		{"bad symbol", http.MethodPost, "/v1/orders", `{"symbol":"Z1","side":"buy","quantity":1}`, http.StatusBadRequest},
		{"unknown symbol", http.MethodPost, "/v1/orders", `{"symbol":"NOPEX","side":"buy","quantity":1}`, http.StatusNotFound},
		{"unknown field", http.MethodPost, "/v1/orders", `{"ticker":"ZOOMX"}`, http.StatusBadRequest},
		{"missing mission", http.MethodPost, "/v1/missions/99/claim", "", http.StatusNotFound},
		{"non-numeric mission", http.MethodPost, "/v1/missions/first/claim", "", http.StatusBadRequest},
		{"unknown item", http.MethodPost, "/v1/shop/golden_goose/purchase", "", http.StatusNotFound},
		{"too poor for item", http.MethodPost, "/v1/shop/auto_rebuy/purchase", "", http.StatusBadRequest},
		{"prestige too early", http.MethodPost, "/v1/prestige", "", http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			var body map[string]string
			decode(t, rec, &body)
			if body["error"] == "" {
				t.Fatalf("missing error message: %s", rec.Body.String())
			}
		})
	}
}

func TestStockDetailFuzzy(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/v1/stocks/water", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body.String())
	}
	var view game.StockView
	decode(t, rec, &view)
	if view.Symbol != "AQUIX" {
		t.Fatalf("symbol = %q", view.Symbol)
	}
}

func TestWatchlistRoutes(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/v1/watchlist", `{"symbol":"robix"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add = %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodGet, "/v1/stocks?watched=1", "")
	var list struct {
		Stocks []game.StockView `json:"stocks"`
	}
	decode(t, rec, &list)
	if len(list.Stocks) != 1 || list.Stocks[0].Symbol != "ROBIX" {
		t.Fatalf("watched stocks = %+v", list.Stocks)
	}
	rec = do(t, s, http.MethodDelete, "/v1/watchlist/ROBIX", "")
	var syms struct {
		Symbols []string `json:"symbols"`
	}
	decode(t, rec, &syms)
	if len(syms.Symbols) != 0 {
		t.Fatalf("symbols = %v", syms.Symbols)
	}
}

func TestLeaderboardSaveAndRead(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/v1/leaderboard", `{"name":"  Ada  "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("save = %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodGet, "/v1/leaderboard", "")
	var out struct {
		Entries []game.LeaderboardEntry `json:"entries"`
	}
	decode(t, rec, &out)
	if len(out.Entries) != 1 || out.Entries[0].Name != "Ada" || out.Entries[0].Season != "2026-W42" {
		t.Fatalf("entries = %+v", out.Entries)
	}
}

func TestResetRestoresStarterCash(t *testing.T) {
	s, svc := newTestServer(t)
	do(t, s, http.MethodPost, "/v1/orders", `{"symbol":"ZOOMX","side":"buy","quantity":1}`)
	rec := do(t, s, http.MethodPost, "/v1/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset = %d", rec.Code)
	}
	if d := svc.Dashboard(); !d.Cash.Equal(game.StarterCash) || len(d.Holdings) != 0 {
		t.Fatalf("dashboard after reset = %+v", d)
	}
}

func TestReadModels(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{
		"/v1/dashboard", "/v1/season", "/v1/stocks", "/v1/movers?n=3", "/v1/missions",
		"/v1/achievements", "/v1/shop", "/v1/news", "/v1/chart", "/v1/watchlist",
	} {
		if rec := do(t, s, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Fatalf("GET %s = %d %s", path, rec.Code, rec.Body.String())
		}
	}
}
