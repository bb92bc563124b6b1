package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/EcosystemNetwork/Conductor/internal/models"
	"github.com/EcosystemNetwork/Conductor/internal/services"
)

// KeyManager issues and revokes API keys.
type KeyManager interface {
	Create(ctx context.Context, req services.CreateAPIKeyRequest) (string, *models.APIKey, error)
	List(ctx context.Context) []models.APIKey
	Revoke(ctx context.Context, id string) error
}

// KeyHandler serves /api/v1/keys. Routes are expected behind the operator guard.
type KeyHandler struct {
	Keys      KeyManager
	Validator *services.Validator
	Logger    *slog.Logger
}

type createKeyResponse struct {
	Key    string         `json:"key"`
	ID     string         `json:"id"`
	Record *models.APIKey `json:"record"`
}

// Create handles POST /api/v1/keys. The raw key is returned only here.
func (h *KeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateAPIKeyRequest
	if err := decodeBody(r, h.Validator, services.SchemaCreateAPIKey, &req); err != nil {
		writeError(w, h.Logger, "decode create key request", err)
		return
	}
	raw, key, err := h.Keys.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.Logger, "create api key", err)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("api key created", "key_id", key.ID, "prefix", key.KeyPrefix)
	}
	writeJSON(w, http.StatusCreated, createKeyResponse{Key: raw, ID: key.ID, Record: key})
}

// List handles GET /api/v1/keys.
func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"keys": h.Keys.List(r.Context())})
}

// Revoke handles DELETE /api/v1/keys/{id}.
func (h *KeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.Keys.Revoke(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.Logger, "revoke api key", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
