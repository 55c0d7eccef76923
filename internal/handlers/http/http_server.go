package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tradeapt/internal/app/dto"
	"tradeapt/internal/domain/model"
	"tradeapt/internal/domain/service"
	"tradeapt/internal/domain/useCases"
)

// Server represents an HTTP server with all routes configured
type Server struct {
	trades      *service.TradeEngine
	alerts      *service.AlertEngine
	feed        useCases.PriceFeed
	broadcaster useCases.Broadcaster
	staleAfter  time.Duration
	logger      *slog.Logger
	mux         *http.ServeMux
	server      *http.Server
}

// NewServer creates a new HTTP server with configured routes
func NewServer(addr string, trades *service.TradeEngine, alerts *service.AlertEngine, feed useCases.PriceFeed, broadcaster useCases.Broadcaster, staleAfter time.Duration, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	server := &Server{
		trades:      trades,
		alerts:      alerts,
		feed:        feed,
		broadcaster: broadcaster,
		staleAfter:  staleAfter,
		logger:      logger,
		mux:         mux,
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	// Register routes
	server.registerRoutes()

	return server
}

// registerRoutes configures all HTTP routes
func (s *Server) registerRoutes() {
	// Trade endpoints
	s.mux.HandleFunc("POST /trades", s.handleSubmitTrade)
	s.mux.HandleFunc("GET /trades/pending", s.handleListPending)
	s.mux.HandleFunc("DELETE /trades/{id}", s.handleCancelTrade)

	// Alert endpoints
	s.mux.HandleFunc("POST /alerts", s.handleCreateAlert)
	s.mux.HandleFunc("GET /alerts", s.handleListAlerts)
	s.mux.HandleFunc("GET /alerts/{id}", s.handleGetAlert)
	s.mux.HandleFunc("POST /alerts/{id}/cancel", s.handleCancelAlert)
	s.mux.HandleFunc("DELETE /alerts/{id}", s.handleDeleteAlert)

	// Price endpoints
	s.mux.HandleFunc("GET /prices", s.handleAllPrices)
	s.mux.HandleFunc("GET /prices/{symbol}", s.handleGetPrice)

	// Health check endpoint
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// WebSocket endpoint
	if s.broadcaster != nil {
		s.mux.HandleFunc("/ws", s.broadcaster.Handler())
	}
}

// Mux exposes the route table for tests.
func (s *Server) Mux() *http.ServeMux {
	return s.mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// handleSubmitTrade accepts a trade order and returns the evaluation
// outcome. The order is evaluated immediately; unmet price triggers park it
// in the pending book and report status pending.
func (s *Server) handleSubmitTrade(w http.ResponseWriter, r *http.Request) {
	var req dto.TradeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := req.ToModel()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.trades.Submit(r.Context(), order)
	status := http.StatusOK
	if result.Status == model.StatusPending {
		status = http.StatusAccepted
	}
	s.writeJSON(w, status, dto.FromTradeResult(result))
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, dto.FromPendingOrders(s.trades.ListPending()))
}

func (s *Server) handleCancelTrade(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.trades.Cancel(id) {
		s.writeError(w, http.StatusNotFound, "no pending trade with id "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "cancelled"})
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req dto.AlertRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	alert, err := s.alerts.Create(req.Token, model.AlertOperator(req.Operator), req.TargetPrice, req.Message)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, dto.FromAlert(*alert))
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	s.writeJSON(w, http.StatusOK, dto.FromAlerts(s.alerts.List(activeOnly)))
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	alert, ok := s.alerts.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no alert with id "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, dto.FromAlert(*alert))
}

func (s *Server) handleCancelAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.alerts.Cancel(id) {
		s.writeError(w, http.StatusNotFound, "no active alert with id "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "cancelled"})
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.alerts.Delete(id) {
		s.writeError(w, http.StatusNotFound, "no alert with id "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAllPrices(w http.ResponseWriter, r *http.Request) {
	quotes := s.feed.GetAllQuotes()
	out := make(map[string]dto.QuoteDTO, len(quotes))
	for symbol, q := range quotes {
		out[symbol] = dto.FromQuote(q, s.staleAfter)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	quote, ok := s.feed.GetQuote(symbol)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no price for "+symbol)
		return
	}
	s.writeJSON(w, http.StatusOK, dto.FromQuote(quote, s.staleAfter))
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"tracked_quotes": len(s.feed.GetAllQuotes()),
		"pending_trades": len(s.trades.ListPending()),
	})
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
