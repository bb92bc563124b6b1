package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/EcosystemNetwork/Conductor/internal/models"
)

// RankingStrategy decides which eligible agent wins a task.
type RankingStrategy string

const (
	// RankFirstMatch picks the earliest registered eligible agent.
	RankFirstMatch RankingStrategy = "first_match"
	// RankLeastLoaded prefers the agent with the fewest completed tasks.
	RankLeastLoaded RankingStrategy = "least_loaded"
	// RankFreshestHeartbeat prefers the agent that checked in most recently.
	RankFreshestHeartbeat RankingStrategy = "most_recent_heartbeat"
)

// ParseRankingStrategy maps a config value to a strategy. Empty means first_match.
func ParseRankingStrategy(s string) (RankingStrategy, error) {
	switch RankingStrategy(s) {
	case "", RankFirstMatch:
		return RankFirstMatch, nil
	case RankLeastLoaded, RankFreshestHeartbeat:
		return RankingStrategy(s), nil
	}
	return "", fmt.Errorf("unknown ranking strategy %q", s)
}

// Matcher selects an agent for a task from a snapshot of the agent set.
// It never mutates what it is given.
type Matcher struct {
	Strategy RankingStrategy
}

func NewMatcher(strategy RankingStrategy) *Matcher {
	return &Matcher{Strategy: strategy}
}

// eligible: idle, not unhealthy as of now, and offering every required skill.
func eligible(a *models.Agent, task *models.Task, now time.Time) bool {
	if a.Status != models.AgentStatusIdle {
		return false
	}
	if ComputeHealth(a.LastHeartbeat, now) == models.HealthUnhealthy {
		return false
	}
	return a.HasSkills(task.RequiredSkills)
}

// buildCandidates keeps the eligible agents in their original order.
func buildCandidates(agents []*models.Agent, task *models.Task, now time.Time) []*models.Agent {
	var candidates []*models.Agent
	for _, a := range agents {
		if eligible(a, task, now) {
			candidates = append(candidates, a)
		}
	}
	return candidates
}

// rank orders candidates best first. Ties keep store order.
func (m *Matcher) rank(candidates []*models.Agent) {
	switch m.Strategy {
	case RankLeastLoaded:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].TasksCompleted < candidates[j].TasksCompleted
		})
	case RankFreshestHeartbeat:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].LastHeartbeat.After(candidates[j].LastHeartbeat)
		})
	}
}

// FindMatchingAgent returns the best eligible agent for task, or nil when no
// agent qualifies. A nil result is the normal "no capacity" outcome.
func (m *Matcher) FindMatchingAgent(agents []*models.Agent, task *models.Task, now time.Time) *models.Agent {
	candidates := buildCandidates(agents, task, now)
	if len(candidates) == 0 {
		return nil
	}
	m.rank(candidates)
	return candidates[0]
}
