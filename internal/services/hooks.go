package services

import (
	"context"
	"log/slog"

	"github.com/EcosystemNetwork/Conductor/internal/events"
	"github.com/EcosystemNetwork/Conductor/internal/ledger"
	"github.com/EcosystemNetwork/Conductor/internal/models"
)

// Archiver keeps terminal records outside the process.
type Archiver interface {
	ArchiveTask(ctx context.Context, t models.Task) error
	ArchivePayout(ctx context.Context, p models.Payout) error
}

// Collaborators receive transitions after they commit. Any field may be nil.
type Collaborators struct {
	Events  events.Publisher
	Settler ledger.Settler
	Archive Archiver
	Logger  *slog.Logger
}

type pendingPayout struct {
	payout models.Payout
	wallet string
}

// effects collects, under the store lock, what must be announced once the
// lock is released.
type effects struct {
	events   []events.Event
	payouts  []pendingPayout
	terminal []models.Task
}

func (fx *effects) emit(ev events.Event) {
	fx.events = append(fx.events, ev)
}

func (c *Collaborators) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// apply runs the side effects in commit order. Failures are logged; the
// transition they describe stands.
func (c *Collaborators) apply(ctx context.Context, fx *effects) {
	if c == nil {
		return
	}
	log := c.logger()
	if c.Events != nil {
		for _, ev := range fx.events {
			if err := c.Events.Publish(ctx, ev); err != nil {
				log.Error("publish event", "type", ev.Type, "task_id", ev.TaskID, "error", err)
			}
		}
	}
	for _, p := range fx.payouts {
		if c.Archive != nil {
			if err := c.Archive.ArchivePayout(ctx, p.payout); err != nil {
				log.Error("archive payout", "payout_id", p.payout.ID, "error", err)
			}
		}
		if c.Settler != nil {
			if err := c.Settler.Settle(ctx, p.payout, p.wallet); err != nil {
				log.Error("settle payout", "payout_id", p.payout.ID, "error", err)
			}
		}
	}
	if c.Archive != nil {
		for _, t := range fx.terminal {
			if err := c.Archive.ArchiveTask(ctx, t); err != nil {
				log.Error("archive task", "task_id", t.ID, "error", err)
			}
		}
	}
}
