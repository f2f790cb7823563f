package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/trogers1052/quant-sim/internal/backtest"
	"github.com/trogers1052/quant-sim/internal/combiner"
	"github.com/trogers1052/quant-sim/internal/database"
	"github.com/trogers1052/quant-sim/internal/live"
	"github.com/trogers1052/quant-sim/internal/strategy"
)

const dateLayout = "2006-01-02"

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db         *database.DB
	engine     *live.Engine
	backtester *backtest.Engine
	combiner   *combiner.Combiner
}

// NewHandler creates a new Handler. The live engine may be nil when
// the service runs in backtest-only mode.
func NewHandler(db *database.DB, engine *live.Engine, backtester *backtest.Engine, comb *combiner.Combiner) *Handler {
	return &Handler{
		db:         db,
		engine:     engine,
		backtester: backtester,
		combiner:   comb,
	}
}

// GetPortfolio handles GET /api/v1/portfolio
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		http.Error(w, "live engine not running", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, http.StatusOK, h.engine.Status())
}

// GetPositions handles GET /api/v1/portfolio/positions
func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		http.Error(w, "live engine not running", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, http.StatusOK, h.engine.Status().Positions)
}

// GetPortfolioHistory handles GET /api/v1/portfolio/history?days=30
func (h *Handler) GetPortfolioHistory(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)
	history, err := h.db.GetSnapshotHistory(days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// GetRecentTrades handles GET /api/v1/trades?limit=50
func (h *Handler) GetRecentTrades(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	trades, err := h.db.GetRecentTrades(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, trades)
}

// GetTradesBySymbol handles GET /api/v1/trades/{symbol}
func (h *Handler) GetTradesBySymbol(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	symbol := vars["symbol"]
	limit := queryInt(r, "limit", 50)

	trades, err := h.db.GetTradesBySymbol(symbol, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, trades)
}

// GetRecentSignals handles GET /api/v1/signals?limit=50
func (h *Handler) GetRecentSignals(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	signals, err := h.db.GetRecentSignals(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, signals)
}

// GetWeights handles GET /api/v1/combiner/weights
func (h *Handler) GetWeights(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.combiner.Weights())
}

// UpdateWeights handles PUT /api/v1/combiner/weights
func (h *Handler) UpdateWeights(w http.ResponseWriter, r *http.Request) {
	var req map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.combiner.UpdateWeights(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.combiner.Weights())
}

// backtestRequest is the body of POST /api/v1/backtest.
type backtestRequest struct {
	Strategy    string   `json:"strategy"`
	Symbols     []string `json:"symbols"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	ShortPeriod int      `json:"short_period,omitempty"`
	LongPeriod  int      `json:"long_period,omitempty"`
	Period      int      `json:"period,omitempty"`
	Oversold    float64  `json:"oversold,omitempty"`
	Overbought  float64  `json:"overbought,omitempty"`
	Benchmark   string   `json:"benchmark,omitempty"`
}

// RunBacktest handles POST /api/v1/backtest
func (h *Handler) RunBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start, err := time.Parse(dateLayout, req.Start)
	if err != nil {
		http.Error(w, "invalid start date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(dateLayout, req.End)
	if err != nil {
		http.Error(w, "invalid end date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	strat, err := buildStrategy(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	btReq := backtest.Request{
		Strategy: strat,
		Symbols:  req.Symbols,
		Start:    start,
		End:      end,
		Fetcher:  h.db,
	}
	if req.Benchmark != "" {
		bars, err := h.db.GetSeries(r.Context(), req.Benchmark, start, end)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		btReq.Benchmark = bars
	}

	result, err := h.backtester.Run(r.Context(), btReq)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// buildStrategy maps a backtest request to a concrete strategy with
// the request's parameters, falling back to each strategy's defaults.
func buildStrategy(req backtestRequest) (strategy.Strategy, error) {
	switch req.Strategy {
	case "double_ma":
		short, long := req.ShortPeriod, req.LongPeriod
		if short == 0 {
			short = 5
		}
		if long == 0 {
			long = 20
		}
		return strategy.NewDoubleMA(short, long)
	case "rsi":
		period := req.Period
		if period == 0 {
			period = 14
		}
		oversold, overbought := req.Oversold, req.Overbought
		if oversold == 0 {
			oversold = 30
		}
		if overbought == 0 {
			overbought = 70
		}
		return strategy.NewRSIStrategy(period, oversold, overbought)
	default:
		return nil, fmt.Errorf("unknown strategy: %q", req.Strategy)
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
