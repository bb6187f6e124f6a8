package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"marketmasters/internal/game"
	"marketmasters/internal/metrics"
)

type Server struct {
	log  *slog.Logger
	game *game.Service
	hub  *Hub
	mux  *chi.Mux
}

// New builds the router. hub may be nil, in which case /v1/ws is not served.
func New(logger *slog.Logger, gameSvc *game.Service, hub *Hub) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:  logger,
		game: gameSvc,
		hub:  hub,
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if s.hub != nil {
			r.Get("/ws", s.hub.HandleWS)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/season", s.handleSeason)
			r.Get("/stocks", s.handleStocksList)
			r.Get("/stocks/{symbol}", s.handleStockDetail)
			r.Get("/movers", s.handleMovers)
			r.Get("/orders", s.handleOrdersList)
			r.Post("/orders", s.handleOrder)
			r.Post("/orders/sell-all", s.handleSellAll)

			r.Get("/missions", s.handleMissions)
			r.Post("/missions/{index}/claim", s.handleClaimMission)
			r.Get("/achievements", s.handleAchievements)
			r.Get("/shop", s.handleShop)
			r.Post("/shop/{id}/purchase", s.handlePurchase)
			r.Post("/prestige", s.handlePrestige)

			r.Get("/leaderboard", s.handleLeaderboard)
			r.Post("/leaderboard", s.handleLeaderboardSave)
			r.Get("/news", s.handleNews)
			r.Get("/chart", s.handleChart)
			r.Post("/reset", s.handleReset)

			r.Get("/watchlist", s.handleWatchlist)
			r.Post("/watchlist", s.handleWatchlistAdd)
			r.Delete("/watchlist/{symbol}", s.handleWatchlistRemove)
		})
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Dashboard())
}

func (s *Server) handleSeason(w http.ResponseWriter, _ *http.Request) {
	d := s.game.SeasonCountdown()
	writeJSON(w, http.StatusOK, map[string]any{
		"season_id":    s.game.Dashboard().SeasonID,
		"ends_in":      d.Truncate(time.Second).String(),
		"ends_in_secs": int64(d.Seconds()),
	})
}

func (s *Server) handleStocksList(w http.ResponseWriter, r *http.Request) {
	stocks := s.game.Stocks()
	if r.URL.Query().Get("watched") == "1" {
		filtered := stocks[:0]
		for _, st := range stocks {
			if st.Watched {
				filtered = append(filtered, st)
			}
		}
		stocks = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"stocks": stocks})
}

// handleStockDetail accepts an exact symbol or a fuzzy name ("zoom").
func (s *Server) handleStockDetail(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "symbol")
	out, err := s.game.Stock(query)
	if err != nil {
		inst, lookupErr := game.LookupInstrument(query)
		if lookupErr != nil {
			writeDomainError(w, err)
			return
		}
		if out, err = s.game.Stock(inst.Symbol); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMovers(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "n", 5)
	writeJSON(w, http.StatusOK, map[string]any{"stocks": s.game.TopMovers(n)})
}

func (s *Server) handleOrdersList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	writeJSON(w, http.StatusOK, map[string]any{"orders": s.game.Orders(limit)})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var in game.OrderInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.game.PlaceOrder(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSellAll(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Symbol string `json:"symbol"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.game.SellAll(r.Context(), in.Symbol)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMissions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"missions": s.game.Missions()})
}

func (s *Server) handleClaimMission(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "mission index must be a number")
		return
	}
	result, err := s.game.ClaimMission(r.Context(), index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAchievements(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"achievements": s.game.Achievements()})
}

func (s *Server) handleShop(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.game.Shop()})
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	result, err := s.game.PurchaseShopItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePrestige(w http.ResponseWriter, r *http.Request) {
	result, err := s.game.Prestige(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"entries": s.game.Leaderboard()})
}

func (s *Server) handleLeaderboardSave(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := s.game.SaveLeaderboardEntry(r.Context(), in.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleNews(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": s.game.RecentEvents()})
}

func (s *Server) handleChart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"samples": s.game.Chart()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.game.ResetToNewGame(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.game.Dashboard())
}

func (s *Server) handleWatchlist(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"symbols": s.game.Watchlist()})
}

func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Symbol string `json:"symbol"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.AddToWatchlist(in.Symbol); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbols": s.game.Watchlist()})
}

func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request) {
	s.game.RemoveFromWatchlist(chi.URLParam(r, "symbol"))
	writeJSON(w, http.StatusOK, map[string]any{"symbols": s.game.Watchlist()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrInsufficientFunds), errors.Is(err, game.ErrInsufficientShares),
		errors.Is(err, game.ErrInsufficientCoins):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrInvalidSymbol), errors.Is(err, game.ErrInvalidSide):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrUnknownSymbol), errors.Is(err, game.ErrUnknownItem),
		errors.Is(err, game.ErrMissionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrAlreadyOwned), errors.Is(err, game.ErrMissionNotComplete),
		errors.Is(err, game.ErrPrestigeNotEligible):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
