package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/EcosystemNetwork/Conductor/internal/middleware"
	"github.com/EcosystemNetwork/Conductor/internal/models"
	"github.com/EcosystemNetwork/Conductor/internal/services"
)

// AgentEngine is the subset of the engine the agent endpoints need.
type AgentEngine interface {
	RegisterAgent(ctx context.Context, req services.RegisterAgentRequest) (*models.Agent, error)
	ListAgents(ctx context.Context) []models.Agent
	Heartbeat(ctx context.Context, agentID string) (*services.HeartbeatResult, error)
}

// AgentHandler serves /api/agents endpoints.
type AgentHandler struct {
	Engine    AgentEngine
	Validator *services.Validator
	Logger    *slog.Logger
}

// Register handles POST /api/agents/register.
func (h *AgentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterAgentRequest
	if err := decodeBody(r, h.Validator, services.SchemaRegisterAgent, &req); err != nil {
		writeError(w, h.Logger, "decode register request", err)
		return
	}
	agent, err := h.Engine.RegisterAgent(r.Context(), req)
	if err != nil {
		writeError(w, h.Logger, "register agent", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"agent": agent})
}

// List handles GET /api/agents.
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"agents": h.Engine.ListAgents(r.Context())})
}

// Heartbeat handles POST /api/agents/{id}/heartbeat.
func (h *AgentHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	res, err := h.Engine.Heartbeat(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.Logger, "heartbeat", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Me handles GET /api/v1/agents/me: the agent bound to the calling API key.
func (h *AgentHandler) Me(w http.ResponseWriter, r *http.Request) {
	key := middleware.APIKeyFromCtx(r.Context())
	if key == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	agent, ok := services.AgentForKey(h.Engine.ListAgents(r.Context()), key)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "Profile not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "agent": agent})
}
