package models

import (
	"slices"
	"time"
)

// Task status enums.
const (
	TaskStatusPending   = "pending"
	TaskStatusAssigned  = "assigned"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// Task priority bounds. Values outside the range are clamped at creation.
const (
	MinPriority     = 1
	MaxPriority     = 5
	DefaultPriority = 3
)

const TaskIDPrefix = "task-"

type Task struct {
	ID             string     `json:"id"`
	Description    string     `json:"description"`
	RequiredSkills []string   `json:"requiredSkills"`
	Reward         float64    `json:"reward"`
	Priority       int        `json:"priority"`
	MaxRetries     int        `json:"maxRetries"`
	RetryCount     int        `json:"retryCount"`
	Status         string     `json:"status"`
	AssignedTo     string     `json:"assignedTo,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

func (t *Task) Clone() *Task {
	c := *t
	c.RequiredSkills = slices.Clone(t.RequiredSkills)
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// IsTerminal reports whether the task has reached completed or failed.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// CanRetry reports whether a failed attempt still fits in the retry budget.
func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

// ClampPriority maps an arbitrary requested priority onto [MinPriority, MaxPriority].
// Zero means "not given" and yields DefaultPriority.
func ClampPriority(p int) int {
	if p == 0 {
		return DefaultPriority
	}
	return min(max(p, MinPriority), MaxPriority)
}
