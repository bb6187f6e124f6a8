package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketmasters/internal/game"
)

// APIError is a non-2xx answer from mm-api.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Dashboard(ctx context.Context) (game.Dashboard, error) {
	var out game.Dashboard
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/dashboard", nil, &out)
	return out, err
}

func (c *Client) ListStocks(ctx context.Context, watchedOnly bool) ([]game.StockView, error) {
	path := "/v1/stocks"
	if watchedOnly {
		path += "?watched=1"
	}
	var out struct {
		Stocks []game.StockView `json:"stocks"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out)
	return out.Stocks, err
}

func (c *Client) StockDetail(ctx context.Context, query string) (game.StockView, error) {
	var out game.StockView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/stocks/"+url.PathEscape(query), nil, &out)
	return out, err
}

func (c *Client) TopMovers(ctx context.Context, n int) ([]game.StockView, error) {
	var out struct {
		Stocks []game.StockView `json:"stocks"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/movers?n=%d", n), nil, &out)
	return out.Stocks, err
}

func (c *Client) Orders(ctx context.Context, limit int) ([]game.Order, error) {
	var out struct {
		Orders []game.Order `json:"orders"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/orders?limit=%d", limit), nil, &out)
	return out.Orders, err
}

func (c *Client) PlaceOrder(ctx context.Context, symbol string, side game.Side, qty int64) (game.OrderResult, error) {
	var out game.OrderResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/orders", game.OrderInput{
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
	}, &out)
	return out, err
}

func (c *Client) SellAll(ctx context.Context, symbol string) (game.OrderResult, error) {
	var out game.OrderResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/orders/sell-all", map[string]any{"symbol": symbol}, &out)
	return out, err
}

func (c *Client) Missions(ctx context.Context) ([]game.MissionView, error) {
	var out struct {
		Missions []game.MissionView `json:"missions"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/missions", nil, &out)
	return out.Missions, err
}

func (c *Client) ClaimMission(ctx context.Context, index int) (game.ClaimResult, error) {
	var out game.ClaimResult
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/missions/%d/claim", index), nil, &out)
	return out, err
}

func (c *Client) Achievements(ctx context.Context) ([]game.AchievementView, error) {
	var out struct {
		Achievements []game.AchievementView `json:"achievements"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/achievements", nil, &out)
	return out.Achievements, err
}

func (c *Client) Shop(ctx context.Context) ([]game.ShopItemView, error) {
	var out struct {
		Items []game.ShopItemView `json:"items"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/shop", nil, &out)
	return out.Items, err
}

func (c *Client) Purchase(ctx context.Context, id string) (game.PurchaseResult, error) {
	var out game.PurchaseResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/shop/"+url.PathEscape(id)+"/purchase", nil, &out)
	return out, err
}

func (c *Client) Prestige(ctx context.Context) (game.PrestigeResult, error) {
	var out game.PrestigeResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/prestige", nil, &out)
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context) ([]game.LeaderboardEntry, error) {
	var out struct {
		Entries []game.LeaderboardEntry `json:"entries"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/leaderboard", nil, &out)
	return out.Entries, err
}

func (c *Client) SaveScore(ctx context.Context, name string) (game.LeaderboardEntry, error) {
	var out game.LeaderboardEntry
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/leaderboard", map[string]any{"name": name}, &out)
	return out, err
}

func (c *Client) News(ctx context.Context) ([]game.RecentEvent, error) {
	var out struct {
		Events []game.RecentEvent `json:"events"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/news", nil, &out)
	return out.Events, err
}

func (c *Client) Chart(ctx context.Context) ([]game.ChartSample, error) {
	var out struct {
		Samples []game.ChartSample `json:"samples"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/chart", nil, &out)
	return out.Samples, err
}

func (c *Client) Reset(ctx context.Context) (game.Dashboard, error) {
	var out game.Dashboard
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/reset", nil, &out)
	return out, err
}

func (c *Client) Watchlist(ctx context.Context) ([]string, error) {
	var out struct {
		Symbols []string `json:"symbols"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/watchlist", nil, &out)
	return out.Symbols, err
}

func (c *Client) Watch(ctx context.Context, symbol string) ([]string, error) {
	var out struct {
		Symbols []string `json:"symbols"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/watchlist", map[string]any{"symbol": symbol}, &out)
	return out.Symbols, err
}

func (c *Client) Unwatch(ctx context.Context, symbol string) ([]string, error) {
	var out struct {
		Symbols []string `json:"symbols"`
	}
	err := c.jsonRequest(ctx, http.MethodDelete, "/v1/watchlist/"+url.PathEscape(symbol), nil, &out)
	return out.Symbols, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
