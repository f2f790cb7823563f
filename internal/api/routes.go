package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Portfolio snapshot stream
	r.HandleFunc("/ws/portfolio", handler.StreamPortfolio)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Portfolio routes
	api.HandleFunc("/portfolio", handler.GetPortfolio).Methods("GET")
	api.HandleFunc("/portfolio/positions", handler.GetPositions).Methods("GET")
	api.HandleFunc("/portfolio/history", handler.GetPortfolioHistory).Methods("GET")

	// Trade and signal routes
	api.HandleFunc("/trades", handler.GetRecentTrades).Methods("GET")
	api.HandleFunc("/trades/{symbol}", handler.GetTradesBySymbol).Methods("GET")
	api.HandleFunc("/signals", handler.GetRecentSignals).Methods("GET")

	// Combiner routes
	api.HandleFunc("/combiner/weights", handler.GetWeights).Methods("GET")
	api.HandleFunc("/combiner/weights", handler.UpdateWeights).Methods("PUT")

	// Backtest routes
	api.HandleFunc("/backtest", handler.RunBacktest).Methods("POST")

	return r
}
