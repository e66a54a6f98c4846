package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mingzhao/fundv/internal/contracts"
	"github.com/mingzhao/fundv/internal/valuation"
	"github.com/mingzhao/fundv/pkg/logger"
)

// ValuationHandler handles valuation API endpoints
type ValuationHandler struct {
	engine   *valuation.Engine
	provider contracts.SnapshotProvider
	repo     contracts.RunRepository
	logger   *logger.Logger
}

// NewValuationHandler creates a new valuation handler. provider and repo
// may be nil; the endpoints needing them respond 503.
func NewValuationHandler(engine *valuation.Engine, provider contracts.SnapshotProvider, repo contracts.RunRepository, log *logger.Logger) *ValuationHandler {
	return &ValuationHandler{
		engine:   engine,
		provider: provider,
		repo:     repo,
		logger:   log,
	}
}

// ValuateRequest is the payload for an inline valuation
type ValuateRequest struct {
	Snapshot     contracts.FinancialSnapshot `json:"snapshot"`
	MarketCap    float64                     `json:"market_cap"`
	IndustryName string                      `json:"industry_name"`
}

// ValuateSnapshot runs a valuation on a caller-supplied snapshot
// POST /api/valuation
func (h *ValuationHandler) ValuateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req ValuateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Snapshot.Ticker == "" {
		respondError(w, http.StatusBadRequest, "snapshot.ticker is required")
		return
	}

	mkt := &contracts.MarketContext{
		MarketCap:    req.MarketCap,
		IndustryName: req.IndustryName,
	}

	run := h.engine.Valuate(&req.Snapshot, mkt)
	respondJSON(w, http.StatusOK, run)
}

// ValuateTicker fetches market data for a ticker, runs a valuation and
// persists the run when a repository is configured
// GET /api/valuation/{ticker}
func (h *ValuationHandler) ValuateTicker(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticker := mux.Vars(r)["ticker"]

	if ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	if h.provider == nil {
		respondError(w, http.StatusServiceUnavailable, "market data source not configured")
		return
	}

	snap, mkt, err := h.provider.Snapshot(ctx, ticker)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to fetch snapshot")
		respondError(w, http.StatusBadGateway, "failed to fetch market data")
		return
	}

	run := h.engine.Valuate(snap, mkt)

	if h.repo != nil {
		if err := h.repo.SaveRun(ctx, run); err != nil {
			// Persistence failure does not fail the response
			h.logger.WithError(err).WithField("ticker", ticker).Warn("Failed to persist valuation run")
		}
	}

	respondJSON(w, http.StatusOK, run)
}

// GetLatestRun returns the most recent stored run for a ticker
// GET /api/valuation/{ticker}/latest
func (h *ValuationHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticker := mux.Vars(r)["ticker"]

	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "run storage not configured")
		return
	}

	run, err := h.repo.LatestRun(ctx, ticker)
	if err != nil {
		respondError(w, http.StatusNotFound, "no valuation run found")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// GetRunHistory returns recent stored runs for a ticker
// GET /api/valuation/{ticker}/history?limit=20
func (h *ValuationHandler) GetRunHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticker := mux.Vars(r)["ticker"]

	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "run storage not configured")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.repo.RunsByTicker(ctx, ticker, limit)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to get run history")
		respondError(w, http.StatusInternalServerError, "failed to retrieve run history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": ticker,
		"count":  len(runs),
		"runs":   runs,
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
