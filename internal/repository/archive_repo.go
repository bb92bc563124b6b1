package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EcosystemNetwork/Conductor/internal/models"
)

// ArchiveRepo keeps an append-only audit copy of terminal tasks, payouts and
// settlement outcomes. The live marketplace state stays in memory; this is
// what survives a restart.
type ArchiveRepo struct {
	pool *pgxpool.Pool
}

func NewArchiveRepo(pool *pgxpool.Pool) *ArchiveRepo {
	return &ArchiveRepo{pool: pool}
}

var archiveSchema = []string{
	`CREATE TABLE IF NOT EXISTS task_history (
		id              TEXT PRIMARY KEY,
		description     TEXT NOT NULL,
		required_skills TEXT[] NOT NULL,
		reward          DOUBLE PRECISION NOT NULL,
		priority        SMALLINT NOT NULL,
		max_retries     INTEGER NOT NULL,
		retry_count     INTEGER NOT NULL,
		status          TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		completed_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payouts (
		id         TEXT PRIMARY KEY,
		agent_id   TEXT NOT NULL,
		task_id    TEXT NOT NULL,
		amount     DOUBLE PRECISION NOT NULL,
		status     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS payouts_agent_id_idx ON payouts (agent_id)`,
	`CREATE TABLE IF NOT EXISTS payout_settlements (
		id               BIGSERIAL PRIMARY KEY,
		payout_id        TEXT NOT NULL,
		status           TEXT NOT NULL,
		transaction_hash TEXT,
		detail           TEXT,
		recorded_at      TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the archive tables when missing.
func (r *ArchiveRepo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range archiveSchema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply archive schema: %w", err)
		}
	}
	return nil
}

// ArchiveTask stores a terminal task snapshot. Replays of the same id are ignored.
func (r *ArchiveRepo) ArchiveTask(ctx context.Context, t models.Task) error {
	if t.CompletedAt == nil {
		return fmt.Errorf("archive task %s: not terminal", t.ID)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO task_history (id, description, required_skills, reward, priority, max_retries, retry_count, status, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, t.ID, t.Description, t.RequiredSkills, t.Reward, t.Priority, t.MaxRetries, t.RetryCount, t.Status, t.CreatedAt, *t.CompletedAt)
	return err
}

func (r *ArchiveRepo) ArchivePayout(ctx context.Context, p models.Payout) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payouts (id, agent_id, task_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, p.ID, p.AgentID, p.TaskID, p.Amount, p.Status, p.CreatedAt)
	return err
}

// RecordSettlement appends a settlement outcome; a payout may collect several.
func (r *ArchiveRepo) RecordSettlement(ctx context.Context, s models.Settlement) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payout_settlements (payout_id, status, transaction_hash, detail, recorded_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
	`, s.PayoutID, s.Status, s.TransactionHash, s.Detail, s.RecordedAt)
	return err
}
