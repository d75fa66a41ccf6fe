/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer connecting URLs to handlers; the handlers in
  turn only translate between DTOs and engine calls.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

SECURITY NOTE:
  Authentication is an external capability: the engine is constructed with
  an opaque user identity at startup and this server carries no session
  handling of its own.
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all ledger routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Query surface
		r.Get("/ledger", h.GetLedger)
		r.Get("/audit", h.GetAuditLog)
		r.Get("/export", h.ExportTransactions)

		// Transactions
		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", h.CreateTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
			r.Post("/merge", h.MergeTransactions)
			r.Post("/bulk", h.BulkOperation)
			r.Post("/bulk/undo", h.UndoBulk)
		})

		// Trash lifecycle
		r.Route("/trash", func(r chi.Router) {
			r.Get("/", h.GetTrash)
			r.Post("/{id}/restore", h.RestoreTransaction)
			r.Delete("/{id}", h.PermanentlyDeleteTransaction)
		})

		// Multi-row operations
		r.Post("/transfers", h.Transfer)
		r.Post("/months/clone", h.CloneMonth)

		// Goals and debts
		r.Route("/goals", func(r chi.Router) {
			r.Post("/", h.CreateGoal)
			r.Put("/{id}", h.UpdateGoal)
			r.Delete("/{id}", h.DeleteGoal)
			r.Post("/{id}/contributions", h.ContributeToGoal)
		})
		r.Route("/debts", func(r chi.Router) {
			r.Post("/", h.CreateDebt)
			r.Delete("/{id}", h.DeleteDebt)
			r.Post("/{id}/payments", h.PayDebt)
		})

		// Scheduled transactions
		r.Route("/scheduled", func(r chi.Router) {
			r.Post("/", h.CreateScheduled)
			r.Put("/{id}", h.UpdateScheduled)
			r.Post("/{id}/advance", h.AdvanceScheduled)
			r.Delete("/{id}", h.DeleteScheduled)
		})

		// Reference entities
		r.Post("/accounts", h.CreateAccount)
		r.Post("/categories", h.CreateCategory)
		r.Post("/budgets", h.CreateBudget)
		r.Post("/investments", h.CreateInvestment)
	})

	return r
}
