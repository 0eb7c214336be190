package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"costbook/pkg/costbook"
)

// NewRouter builds the HTTP API router.
func NewRouter(core *costbook.Core) http.Handler {
	logger := core.Logger()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{core: core}

	r.Get("/api/health", h.health)

	r.Route("/api/portfolios", func(r chi.Router) {
		r.Get("/", h.getPortfolios)
		r.Post("/", h.addPortfolio)
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", h.getPortfolio)
			r.Get("/positions", h.getPositions)
			r.Get("/performance", h.getPerformance)
			r.Get("/valuations", h.getValuations)
			r.Post("/valuations", h.recordValuation)
			r.Get("/valuations/{date}/positions", h.getSnapshotPositions)
		})
	})

	// Transactions
	r.Get("/api/transactions", h.getTransactions)
	r.Post("/api/transactions", h.addTransaction)
	r.Delete("/api/transactions/{id}", h.deleteTransaction)

	// FX
	r.Get("/api/fx/rates", h.getRateTable)
	r.Post("/api/fx/rates", h.setExchangeRate)
	r.Get("/api/fx/cross-rates", h.getCrossRates)

	// Prices
	r.Post("/api/prices", h.setPrice)
	r.Get("/api/prices/{market}/{code}", h.getLatestPrice)

	// Stateless calculators
	r.Post("/api/calc/irr", h.calculateIrr)
	r.Post("/api/calc/twr", h.calculateTwr)

	// Operation logs
	r.Get("/api/operation-logs", h.getOperationLogs)

	return r
}

type handler struct {
	core *costbook.Core
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
