// Package events fans committed lifecycle transitions out to observers.
// Publishing happens after the store lock is released; a failed publish is
// logged by the caller and never undoes the transition it describes.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Event types.
const (
	AgentRegistered = "agent.registered"
	TaskCreated     = "task.created"
	TaskDispatched  = "task.dispatched"
	TaskRetried     = "task.retried"
	TaskCompleted   = "task.completed"
	TaskFailed      = "task.failed"
	TaskReclaimed   = "task.reclaimed"
	PayoutCreated   = "payout.created"
)

type Event struct {
	Type       string    `json:"type"`
	TaskID     string    `json:"taskId,omitempty"`
	AgentID    string    `json:"agentId,omitempty"`
	PayoutID   string    `json:"payoutId,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	RetryCount int       `json:"retryCount,omitempty"`
	At         time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// LogPublisher writes every event to a structured logger.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, ev Event) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "lifecycle event",
		"type", ev.Type, "task_id", ev.TaskID, "agent_id", ev.AgentID, "payout_id", ev.PayoutID)
	return nil
}

func (LogPublisher) Close() error { return nil }

// Multi publishes to every member and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
