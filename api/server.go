/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for operator tooling

SECURITY NOTE:
  No authentication middleware. The X-Caller-Account header is trusted:
  an upstream gateway is expected to authenticate callers and set it.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", callerHeader},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Account routes
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.RegisterAccount)
			r.Get("/{id}", h.GetAccount)
			r.Get("/{id}/transfers", h.GetAccountTransfers)
		})

		// Transfer routes
		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", h.InitTransfer)
			r.Post("/direct", h.SendDirect)
			r.Get("/{key}", h.GetTransfer)
			r.Post("/{key}/claim", h.ClaimTransfer)
			r.Post("/{key}/reject", h.RejectTransfer)
			r.Post("/{key}/refund", h.RefundTransfer)
		})

		// Payroll routes
		r.Route("/payrolls", func(r chi.Router) {
			r.Get("/", h.ListPayrolls)
			r.Post("/", h.CreatePayroll)
			r.Get("/{name}", h.GetPayroll)
			r.Post("/{name}/execute", h.ExecutePayroll)
		})

		// Bulk transfer projections
		r.Get("/bulk-transfers/{key}", h.GetBulkTransfer)

		// Pool balances
		r.Get("/pool", h.GetPoolBalances)
	})

	return r
}
