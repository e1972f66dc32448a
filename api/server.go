/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/orders/*      Orders and the revision lifecycle
  /api/users/*       Roster management
  /api/workflow      Workflow configuration
  /api/scenarios/*   Demo scenarios

SECURITY NOTE:
  No authentication middleware. The X-User-ID header is trusted as-is.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Order routes
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.CreateOrder)

			r.Route("/{number}", func(r chi.Router) {
				r.Get("/", h.GetOrder)

				// Draft lifecycle
				r.Route("/draft", func(r chi.Router) {
					r.Post("/", h.CreateDraft)
					r.Get("/", h.GetDraft)
					r.Delete("/", h.DiscardDraft)
					r.Put("/lines", h.UpdateLines)
					r.Post("/changes", h.RecordChange)
					r.Post("/submit", h.SubmitForApproval)
					r.Post("/approve", h.Approve)
					r.Post("/reject", h.Reject)
					r.Post("/request-changes", h.RequestChanges)
					r.Post("/send", h.SendOnward)
					r.Post("/skip-approval", h.SkipApprovalAndSend)
					r.Post("/confirm", h.Confirm)
				})

				// Reads
				r.Get("/active", h.GetActive)
				r.Get("/history", h.GetHistory)
				r.Get("/permissions", h.GetPermissions)
				r.Get("/delta", h.GetCostDelta)
				r.Get("/timeline", h.GetTimeline)
			})
		})

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
		})

		// Workflow routes
		r.Route("/workflow", func(r chi.Router) {
			r.Get("/", h.GetWorkflow)
			r.Put("/", h.UpdateWorkflow)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	// Minimal index for anyone poking at the root
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Revision Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Order Revision Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/orders">/api/orders</a> - List orders</li>
<li><a href="/api/users">/api/users</a> - List users</li>
<li><a href="/api/workflow">/api/workflow</a> - Workflow configuration</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
