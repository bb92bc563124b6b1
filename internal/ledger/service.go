package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/EcosystemNetwork/Conductor/internal/execution"
	"github.com/EcosystemNetwork/Conductor/internal/models"
)

// Settler hands a freshly created payout to whatever moves the money.
type Settler interface {
	Settle(ctx context.Context, payout models.Payout, walletAddress string) error
}

// InsertSettlePayoutFunc enqueues a settlement job. It is bound to the river
// client after the client exists.
type InsertSettlePayoutFunc func(ctx context.Context, args execution.SettlePayoutArgs) error

type queueSettler struct {
	insert     InsertSettlePayoutFunc
	webhookURL string
}

// NewQueueSettler returns a Settler that enqueues one settle_payout job per payout.
func NewQueueSettler(insert InsertSettlePayoutFunc, webhookURL string) (Settler, error) {
	if insert == nil {
		return nil, errors.New("insert func is required")
	}
	if webhookURL == "" {
		return nil, errors.New("settlement webhook url is required")
	}
	return &queueSettler{insert: insert, webhookURL: webhookURL}, nil
}

var _ Settler = (*queueSettler)(nil)

func (s *queueSettler) Settle(ctx context.Context, p models.Payout, walletAddress string) error {
	err := s.insert(ctx, execution.SettlePayoutArgs{
		PayoutID:      p.ID,
		AgentID:       p.AgentID,
		TaskID:        p.TaskID,
		Amount:        p.Amount,
		WalletAddress: walletAddress,
		WebhookURL:    s.webhookURL,
		CreatedAt:     p.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("enqueue settlement for %s: %w", p.ID, err)
	}
	return nil
}

// NopSettler leaves payouts unsettled. Used when no settlement backend is configured.
type NopSettler struct{}

func (NopSettler) Settle(context.Context, models.Payout, string) error { return nil }
