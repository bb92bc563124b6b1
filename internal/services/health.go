package services

import (
	"time"

	"github.com/EcosystemNetwork/Conductor/internal/models"
)

// Heartbeat age thresholds.
const (
	HealthyWindow  = 30 * time.Second
	DegradedWindow = 60 * time.Second
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// ComputeHealth classifies an agent by how long ago it last checked in.
func ComputeHealth(lastHeartbeat, now time.Time) string {
	age := now.Sub(lastHeartbeat)
	switch {
	case age < HealthyWindow:
		return models.HealthHealthy
	case age < DegradedWindow:
		return models.HealthDegraded
	default:
		return models.HealthUnhealthy
	}
}
