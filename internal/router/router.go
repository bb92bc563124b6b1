package router

import (
	"net/http"

	"github.com/EcosystemNetwork/Conductor/internal/auth"
	"github.com/EcosystemNetwork/Conductor/internal/handlers"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Deps carries the handlers and guards the router mounts.
type Deps struct {
	Agents *handlers.AgentHandler
	Tasks  *handlers.TaskHandler
	Ledger *handlers.LedgerHandler
	Keys   *handlers.KeyHandler
	Auth   *auth.Handler

	// APIKey authenticates callers by API key. Required for /api/v1/agents/me.
	APIKey Middleware
	// Operator guards API-key management. Nil leaves those routes unmounted.
	Operator Middleware
	// RequireAPIKey puts APIKey in front of every write endpoint.
	RequireAPIKey bool
}

// New returns the Conductor HTTP handler.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	write := func(h http.HandlerFunc) http.Handler {
		if d.RequireAPIKey && d.APIKey != nil {
			return d.APIKey(h)
		}
		return h
	}

	mux.Handle("POST /api/agents/register", write(d.Agents.Register))
	mux.HandleFunc("GET /api/agents", d.Agents.List)
	mux.Handle("POST /api/agents/{id}/heartbeat", write(d.Agents.Heartbeat))

	mux.HandleFunc("GET /api/tasks", d.Tasks.List)
	mux.Handle("POST /api/tasks", write(d.Tasks.Create))
	mux.Handle("POST /api/tasks/complete", write(d.Tasks.Complete))
	mux.HandleFunc("GET /api/tasks/history", d.Tasks.History)

	mux.HandleFunc("GET /api/payouts", d.Ledger.Payouts)
	mux.HandleFunc("GET /api/stats", d.Ledger.Stats)

	if d.APIKey != nil {
		mux.Handle("GET /api/v1/agents/me", d.APIKey(http.HandlerFunc(d.Agents.Me)))
	}

	if d.Operator != nil && d.Keys != nil {
		mux.Handle("GET /api/v1/keys", d.Operator(http.HandlerFunc(d.Keys.List)))
		mux.Handle("POST /api/v1/keys", d.Operator(http.HandlerFunc(d.Keys.Create)))
		mux.Handle("DELETE /api/v1/keys/{id}", d.Operator(http.HandlerFunc(d.Keys.Revoke)))
	}
	if d.Auth != nil {
		mux.HandleFunc("POST /api/admin/login", d.Auth.Login)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
