// Package api exposes the backend HTTP surface: accounts, balances,
// portfolios, the leaderboard and the read-only market endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"stockkidz/internal/account"
	"stockkidz/internal/config"
	"stockkidz/internal/market"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	cfg      config.APIConfig
	log      *slog.Logger
	accounts *account.Store
	market   *market.Service
	mux      *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, accounts *account.Store, marketSvc *market.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		log:      logger,
		accounts: accounts,
		market:   marketSvc,
		mux:      chi.NewRouter(),
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
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", s.handleSignup)
		r.Post("/login", s.handleLogin)
		r.Post("/update-balance", s.handleUpdateBalance)
		r.Get("/user/{username}", s.handleUser)
		r.Get("/leaderboard", s.handleLeaderboard)

		r.Get("/portfolio/{username}", s.handlePortfolioGet)
		r.Put("/portfolio/{username}", s.handlePortfolioPut)

		r.Get("/stocks", s.handleStocksList)
		r.Get("/stocks/{ticker}", s.handleStockDetail)
		r.Get("/prices", s.handlePrices)
		r.Get("/news", s.handleNews)
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username  string           `json:"username"`
		Password  string           `json:"password"`
		Balance   float64          `json:"balance"`
		Portfolio map[string]int64 `json:"portfolio"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := account.ValidateBalanceDollars(in.Balance); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	username := strings.TrimSpace(in.Username)
	if err := s.accounts.Create(r.Context(), username, in.Password, account.DollarsToCents(in.Balance), in.Portfolio); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Account created",
		"username": username,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	username := strings.TrimSpace(in.Username)
	if _, err := s.accounts.Authenticate(r.Context(), username, in.Password); err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			// Unknown users and wrong passwords get the same answer.
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			return
		}
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Success",
		"username": username,
	})
}

func (s *Server) handleUpdateBalance(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username   string  `json:"username"`
		NewBalance float64 `json:"newBalance"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := account.ValidateBalanceDollars(in.NewBalance); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cents := account.DollarsToCents(in.NewBalance)
	if err := s.accounts.UpdateBalance(r.Context(), strings.TrimSpace(in.Username), cents); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Bank updated!"})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	balanceCents, err := s.accounts.FetchBalance(r.Context(), username)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance": account.CentsToDollars(balanceCents),
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.accounts.ListLeaderboard(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []account.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handlePortfolioGet(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	portfolio, err := s.accounts.FetchPortfolio(r.Context(), username)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if portfolio == nil {
		portfolio = map[string]int64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"username":  username,
		"portfolio": portfolio,
	})
}

func (s *Server) handlePortfolioPut(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	var in struct {
		Portfolio map[string]int64 `json:"portfolio"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.accounts.ReplacePortfolio(r.Context(), username, in.Portfolio); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Portfolio saved"})
}

func (s *Server) handleStocksList(w http.ResponseWriter, r *http.Request) {
	stocks, err := s.market.ListStocks(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if stocks == nil {
		stocks = []market.Stock{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"stocks": stocks})
}

func (s *Server) handleStockDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.market.StockDetail(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	prices, err := s.market.PriceMap(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

func (s *Server) handleNews(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, market.News())
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, account.ErrInvalidUsername),
		errors.Is(err, account.ErrInvalidPassword),
		errors.Is(err, account.ErrInvalidPortfolio),
		errors.Is(err, account.ErrInvalidBalance):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrDuplicateUser):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, account.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, market.ErrStockNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
