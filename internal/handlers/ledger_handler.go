package handlers

import (
	"context"
	"net/http"

	"github.com/EcosystemNetwork/Conductor/internal/models"
	"github.com/EcosystemNetwork/Conductor/internal/services"
)

// LedgerEngine exposes the read-only projections.
type LedgerEngine interface {
	Payouts(ctx context.Context) []models.Payout
	Stats(ctx context.Context) services.Stats
}

// LedgerHandler serves payouts and stats.
type LedgerHandler struct {
	Engine LedgerEngine
}

// Payouts handles GET /api/payouts, newest first.
func (h *LedgerHandler) Payouts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"payouts": h.Engine.Payouts(r.Context())})
}

// Stats handles GET /api/stats.
func (h *LedgerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Stats(r.Context()))
}
