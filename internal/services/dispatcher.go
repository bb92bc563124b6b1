package services

import (
	"context"
	"sort"
	"time"

	"github.com/EcosystemNetwork/Conductor/internal/events"
	"github.com/EcosystemNetwork/Conductor/internal/models"
	"github.com/EcosystemNetwork/Conductor/internal/store"
)

// Dispatcher assigns pending tasks to eligible agents. The match and the
// resulting state change happen inside one store update, so an agent seen
// idle by one dispatcher is already busy for the next.
type Dispatcher struct {
	Store   *store.Store
	Matcher *Matcher
	Clock   Clock
	Hooks   *Collaborators
}

func NewDispatcher(st *store.Store, matcher *Matcher, clock Clock, hooks *Collaborators) *Dispatcher {
	if clock == nil {
		clock = systemClock
	}
	return &Dispatcher{Store: st, Matcher: matcher, Clock: clock, Hooks: hooks}
}

// DispatchTask tries to assign one task. It reports false, with no error,
// when the task is not pending or no agent qualifies.
func (d *Dispatcher) DispatchTask(ctx context.Context, taskID string) (bool, error) {
	var fx effects
	var dispatched bool
	err := d.Store.Update(func(tx *store.Tx) error {
		task, ok := tx.Task(taskID)
		if !ok {
			return ErrTaskNotFound
		}
		dispatched = d.dispatchLocked(tx, task, d.Clock(), &fx)
		return nil
	})
	if err != nil {
		return false, err
	}
	d.Hooks.apply(ctx, &fx)
	return dispatched, nil
}

// ProcessQueue sweeps every pending task, highest priority first, and
// returns how many were assigned.
func (d *Dispatcher) ProcessQueue(ctx context.Context) int {
	var fx effects
	var n int
	_ = d.Store.Update(func(tx *store.Tx) error {
		n = d.processQueueLocked(tx, d.Clock(), &fx)
		return nil
	})
	d.Hooks.apply(ctx, &fx)
	return n
}

// dispatchLocked must run inside Store.Update.
func (d *Dispatcher) dispatchLocked(tx *store.Tx, task *models.Task, now time.Time, fx *effects) bool {
	if task.Status != models.TaskStatusPending {
		return false
	}
	agent := d.Matcher.FindMatchingAgent(tx.Agents(), task, now)
	if agent == nil {
		return false
	}

	agent.Status = models.AgentStatusBusy
	agent.Health = ComputeHealth(agent.LastHeartbeat, now)

	task.Status = models.TaskStatusAssigned
	task.AssignedTo = agent.ID
	task.UpdatedAt = now

	fx.emit(events.Event{
		Type:       events.TaskDispatched,
		TaskID:     task.ID,
		AgentID:    agent.ID,
		RetryCount: task.RetryCount,
		At:         now,
	})
	return true
}

// processQueueLocked must run inside Store.Update.
func (d *Dispatcher) processQueueLocked(tx *store.Tx, now time.Time, fx *effects) int {
	var pending []*models.Task
	for _, t := range tx.Tasks() {
		if t.Status == models.TaskStatusPending {
			pending = append(pending, t)
		}
	}
	// Stable: equal priorities keep creation order.
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Priority > pending[j].Priority
	})

	n := 0
	for _, t := range pending {
		if d.dispatchLocked(tx, t, now, fx) {
			n++
		}
	}
	return n
}
