package models

import "time"

const (
	SettlementStatusSettled = "settled"
	SettlementStatusFailed  = "failed"
)

// Settlement is the outcome of handing a payout to the settlement webhook.
type Settlement struct {
	PayoutID        string    `json:"payoutId"`
	Status          string    `json:"status"`
	TransactionHash string    `json:"transactionHash,omitempty"`
	Detail          string    `json:"detail,omitempty"`
	RecordedAt      time.Time `json:"recordedAt"`
}
