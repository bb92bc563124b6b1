package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/EcosystemNetwork/Conductor/internal/events"
	"github.com/EcosystemNetwork/Conductor/internal/models"
	"github.com/EcosystemNetwork/Conductor/internal/store"
)

const DefaultWatchdogInterval = 15 * time.Second

// SweepResult summarizes one watchdog pass.
type SweepResult struct {
	Reclaimed  int `json:"reclaimed"`
	Requeued   int `json:"requeued"`
	Failed     int `json:"failed"`
	Dispatched int `json:"dispatched"`
}

// Watchdog reclaims tasks held by agents that stopped heartbeating and
// drains the pending queue. A reclaimed task goes through the same
// retry-or-fail transition as an explicit failure report.
type Watchdog struct {
	completer *Completer
	interval  time.Duration
	logger    *slog.Logger
}

func NewWatchdog(c *Completer, interval time.Duration, logger *slog.Logger) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{completer: c, interval: interval, logger: logger}
}

// Run sweeps every interval until ctx is cancelled. A non-positive interval
// disables the loop.
func (w *Watchdog) Run(ctx context.Context) {
	if w.interval <= 0 {
		w.logger.Info("watchdog disabled")
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res := w.Sweep(ctx)
			if res.Reclaimed > 0 || res.Dispatched > 0 {
				w.logger.Info("watchdog sweep",
					"reclaimed", res.Reclaimed, "requeued", res.Requeued,
					"failed", res.Failed, "dispatched", res.Dispatched)
			}
		}
	}
}

// Sweep runs one pass under a single store update.
func (w *Watchdog) Sweep(ctx context.Context) SweepResult {
	c := w.completer
	var fx effects
	var res SweepResult
	_ = c.Store.Update(func(tx *store.Tx) error {
		now := c.Clock()
		for _, a := range tx.Agents() {
			a.Health = ComputeHealth(a.LastHeartbeat, now)
		}
		for _, task := range tx.Tasks() {
			if task.Status != models.TaskStatusAssigned {
				continue
			}
			agent, ok := tx.Agent(task.AssignedTo)
			if !ok || agent.Health != models.HealthUnhealthy {
				continue
			}
			res.Reclaimed++
			fx.emit(events.Event{Type: events.TaskReclaimed, TaskID: task.ID, AgentID: agent.ID, At: now})
			retried, redispatched := c.failLocked(tx, task, agent, now, &fx)
			switch {
			case !retried:
				res.Failed++
			case redispatched:
				res.Requeued++
				res.Dispatched++
			default:
				res.Requeued++
			}
		}
		res.Dispatched += c.Dispatcher.processQueueLocked(tx, now, &fx)
		return nil
	})
	c.Hooks.apply(ctx, &fx)
	return res
}
