package models

import "time"

const (
	PayoutStatusCompleted = "completed"

	PayoutIDPrefix = "payout-"
)

// Payout records the reward owed for one successfully completed task.
// It is created once and never mutated; settlement references live in the
// archive, not on the record.
type Payout struct {
	ID              string    `json:"id"`
	AgentID         string    `json:"agentId"`
	TaskID          string    `json:"taskId"`
	Amount          float64   `json:"amount"`
	Status          string    `json:"status"`
	TransactionHash string    `json:"transactionHash,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
