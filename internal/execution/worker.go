package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/riverqueue/river"

	"github.com/EcosystemNetwork/Conductor/internal/models"
)

// SettlePayoutArgs carries one payout to the external settlement webhook.
type SettlePayoutArgs struct {
	PayoutID      string    `json:"payout_id"`
	AgentID       string    `json:"agent_id"`
	TaskID        string    `json:"task_id"`
	Amount        float64   `json:"amount"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	WebhookURL    string    `json:"webhook_url"`
	CreatedAt     time.Time `json:"created_at"`
}

func (SettlePayoutArgs) Kind() string { return "settle_payout" }

// SettlementRecorder persists the webhook outcome.
type SettlementRecorder interface {
	RecordSettlement(ctx context.Context, s models.Settlement) error
}

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

type SettlePayoutWorker struct {
	river.WorkerDefaults[SettlePayoutArgs]
	recorder   SettlementRecorder
	httpClient *http.Client
}

func NewSettlePayoutWorker(rec SettlementRecorder) *SettlePayoutWorker {
	return &SettlePayoutWorker{
		recorder:   rec,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type settlementPayload struct {
	PayoutID      string  `json:"payoutId"`
	AgentID       string  `json:"agentId"`
	TaskID        string  `json:"taskId"`
	Amount        float64 `json:"amount"`
	WalletAddress string  `json:"walletAddress,omitempty"`
}

type settlementResponse struct {
	TransactionHash string `json:"transactionHash"`
}

func (w *SettlePayoutWorker) Work(ctx context.Context, job *river.Job[SettlePayoutArgs]) error {
	args := job.Args

	body, err := json.Marshal(settlementPayload{
		PayoutID:      args.PayoutID,
		AgentID:       args.AgentID,
		TaskID:        args.TaskID,
		Amount:        args.Amount,
		WalletAddress: args.WalletAddress,
	})
	if err != nil {
		return w.fail(ctx, args.PayoutID, fmt.Sprintf("marshal payload: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, args.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return w.fail(ctx, args.PayoutID, fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", args.PayoutID)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		// Transport errors go back to river for another attempt.
		return fmt.Errorf("network error calling settlement webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("settlement webhook returned %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return w.fail(ctx, args.PayoutID, fmt.Sprintf("settlement webhook rejected payout: %d", resp.StatusCode))
	}

	var out settlementResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return w.fail(ctx, args.PayoutID, "settlement webhook returned invalid JSON")
	}
	if out.TransactionHash != "" && !txHashPattern.MatchString(out.TransactionHash) {
		return w.fail(ctx, args.PayoutID, "settlement webhook returned malformed transaction hash")
	}

	s := models.Settlement{
		PayoutID:   args.PayoutID,
		Status:     models.SettlementStatusSettled,
		RecordedAt: time.Now().UTC(),
	}
	if out.TransactionHash != "" {
		s.TransactionHash = common.HexToHash(out.TransactionHash).Hex()
	}
	if err := w.recorder.RecordSettlement(ctx, s); err != nil {
		return fmt.Errorf("record settlement: %w", err)
	}
	return nil
}

func (w *SettlePayoutWorker) fail(ctx context.Context, payoutID, reason string) error {
	err := w.recorder.RecordSettlement(ctx, models.Settlement{
		PayoutID:   payoutID,
		Status:     models.SettlementStatusFailed,
		Detail:     reason,
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("settlement failed (%s) AND failed to record it: %w", reason, err)
	}
	return nil
}
