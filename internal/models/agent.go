package models

import (
	"slices"
	"time"
)

// Agent status and health enums.
const (
	AgentStatusIdle = "idle"
	AgentStatusBusy = "busy"

	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// AgentIDPrefix is prepended to the uuid of every registered agent.
const AgentIDPrefix = "agent-"

type Agent struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Skills         []string  `json:"skills"`
	WalletAddress  string    `json:"walletAddress,omitempty"`
	Status         string    `json:"status"`
	Health         string    `json:"health"`
	LastHeartbeat  time.Time `json:"lastHeartbeat"`
	RegisteredAt   time.Time `json:"registeredAt"`
	TasksCompleted int       `json:"tasksCompleted"`
	TotalEarned    float64   `json:"totalEarned"`
}

// Clone returns a deep copy that shares no slices with a.
func (a *Agent) Clone() *Agent {
	c := *a
	c.Skills = slices.Clone(a.Skills)
	return &c
}

// HasSkills reports whether every required skill is offered by the agent.
// Comparison is exact and case-sensitive; an empty requirement always matches.
func (a *Agent) HasSkills(required []string) bool {
	for _, s := range required {
		if !slices.Contains(a.Skills, s) {
			return false
		}
	}
	return true
}
