package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/EcosystemNetwork/Conductor/internal/events"
	"github.com/EcosystemNetwork/Conductor/internal/models"
	"github.com/EcosystemNetwork/Conductor/internal/store"
)

type CompleteRequest struct {
	TaskID  string `json:"taskId"`
	AgentID string `json:"agentId"`
	Success bool   `json:"success"`
}

// CompletionResult describes the outcome of one completion report.
// Payout is set on success. Retried is set when a failure was absorbed by the
// retry budget; Redispatched tells whether the retry found an agent at once.
type CompletionResult struct {
	Task         models.Task    `json:"task"`
	Payout       *models.Payout `json:"payout,omitempty"`
	Retried      bool           `json:"retried"`
	Redispatched bool           `json:"redispatched"`
}

// Completer finalizes assigned tasks.
type Completer struct {
	Store      *store.Store
	Dispatcher *Dispatcher
	Clock      Clock
	Hooks      *Collaborators
}

func NewCompleter(st *store.Store, dispatcher *Dispatcher, clock Clock, hooks *Collaborators) *Completer {
	if clock == nil {
		clock = systemClock
	}
	return &Completer{Store: st, Dispatcher: dispatcher, Clock: clock, Hooks: hooks}
}

// CompleteTask applies a success or failure report from the agent holding the task.
func (c *Completer) CompleteTask(ctx context.Context, req CompleteRequest) (*CompletionResult, error) {
	if req.TaskID == "" || req.AgentID == "" {
		return nil, fmt.Errorf("%w: taskId and agentId are required", ErrValidation)
	}

	var fx effects
	var res CompletionResult
	err := c.Store.Update(func(tx *store.Tx) error {
		task, ok := tx.Task(req.TaskID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, req.TaskID)
		}
		agent, ok := tx.Agent(req.AgentID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrAgentNotFound, req.AgentID)
		}
		if task.Status != models.TaskStatusAssigned || task.AssignedTo != agent.ID {
			return fmt.Errorf("%w: %s", ErrNotAssigned, task.ID)
		}

		now := c.Clock()
		if req.Success {
			p := c.succeedLocked(tx, task, agent, now, &fx)
			res.Payout = &p
		} else {
			res.Retried, res.Redispatched = c.failLocked(tx, task, agent, now, &fx)
		}
		res.Task = *task.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.Hooks.apply(ctx, &fx)
	return &res, nil
}

// succeedLocked must run inside Store.Update.
func (c *Completer) succeedLocked(tx *store.Tx, task *models.Task, agent *models.Agent, now time.Time, fx *effects) models.Payout {
	agent.Status = models.AgentStatusIdle
	agent.TasksCompleted++
	agent.TotalEarned += task.Reward

	task.Status = models.TaskStatusCompleted
	task.AssignedTo = ""
	task.UpdatedAt = now
	task.CompletedAt = &now

	payout := models.Payout{
		ID:        models.PayoutIDPrefix + uuid.NewString(),
		AgentID:   agent.ID,
		TaskID:    task.ID,
		Amount:    task.Reward,
		Status:    models.PayoutStatusCompleted,
		CreatedAt: now,
	}
	tx.AddPayout(payout)
	tx.AppendHistory(*task)
	tx.RemoveTask(task.ID)

	fx.emit(events.Event{Type: events.TaskCompleted, TaskID: task.ID, AgentID: agent.ID, At: now})
	fx.emit(events.Event{Type: events.PayoutCreated, TaskID: task.ID, AgentID: agent.ID, PayoutID: payout.ID, Amount: payout.Amount, At: now})
	fx.payouts = append(fx.payouts, pendingPayout{payout: payout, wallet: agent.WalletAddress})
	fx.terminal = append(fx.terminal, *task.Clone())
	return payout
}

// failLocked releases the agent and either requeues the task, trying an
// immediate re-dispatch, or moves it to history as failed. It must run
// inside Store.Update.
func (c *Completer) failLocked(tx *store.Tx, task *models.Task, agent *models.Agent, now time.Time, fx *effects) (retried, redispatched bool) {
	agent.Status = models.AgentStatusIdle

	task.AssignedTo = ""
	task.UpdatedAt = now

	if task.CanRetry() {
		task.RetryCount++
		task.Status = models.TaskStatusPending
		fx.emit(events.Event{Type: events.TaskRetried, TaskID: task.ID, AgentID: agent.ID, RetryCount: task.RetryCount, At: now})
		return true, c.Dispatcher.dispatchLocked(tx, task, now, fx)
	}

	task.Status = models.TaskStatusFailed
	task.CompletedAt = &now
	tx.AppendHistory(*task)
	tx.RemoveTask(task.ID)

	fx.emit(events.Event{Type: events.TaskFailed, TaskID: task.ID, AgentID: agent.ID, RetryCount: task.RetryCount, At: now})
	fx.terminal = append(fx.terminal, *task.Clone())
	return false, false
}
