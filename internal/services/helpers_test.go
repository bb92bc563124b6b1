package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/EcosystemNetwork/Conductor/internal/events"
	"github.com/EcosystemNetwork/Conductor/internal/models"
	"github.com/EcosystemNetwork/Conductor/internal/store"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) ofType(typ string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type fakeArchive struct {
	mu      sync.Mutex
	tasks   []models.Task
	payouts []models.Payout
}

func (f *fakeArchive) ArchiveTask(_ context.Context, t models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, t)
	return nil
}

func (f *fakeArchive) ArchivePayout(_ context.Context, p models.Payout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payouts = append(f.payouts, p)
	return nil
}

type fakeSettler struct {
	mu      sync.Mutex
	settled []models.Payout
	wallets []string
}

func (f *fakeSettler) Settle(_ context.Context, p models.Payout, wallet string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, p)
	f.wallets = append(f.wallets, wallet)
	return nil
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type harness struct {
	engine  *Engine
	store   *store.Store
	clock   *fakeClock
	events  *recordingPublisher
	archive *fakeArchive
	settler *fakeSettler
}

func newHarness(t *testing.T, strategy RankingStrategy) *harness {
	t.Helper()
	h := &harness{
		store:   store.New(),
		clock:   newFakeClock(),
		events:  &recordingPublisher{},
		archive: &fakeArchive{},
		settler: &fakeSettler{},
	}
	h.engine = NewEngine(h.store, EngineConfig{
		Ranking: strategy,
		Clock:   h.clock.Now,
		Events:  h.events,
		Settler: h.settler,
		Archive: h.archive,
	})
	return h
}

func (h *harness) register(t *testing.T, name string, skills ...string) *models.Agent {
	t.Helper()
	a, err := h.engine.RegisterAgent(context.Background(), RegisterAgentRequest{Name: name, Skills: skills})
	if err != nil {
		t.Fatalf("RegisterAgent(%s): %v", name, err)
	}
	return a
}

func (h *harness) createTask(t *testing.T, req CreateTaskRequest) *models.Task {
	t.Helper()
	if req.Description == "" {
		req.Description = "do the thing"
	}
	task, err := h.engine.CreateTask(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

// seedAgent inserts an agent directly, bypassing the queue sweep.
func (h *harness) seedAgent(t *testing.T, id string, skills ...string) {
	t.Helper()
	now := h.clock.Now()
	err := h.store.Update(func(tx *store.Tx) error {
		return tx.InsertAgent(&models.Agent{
			ID: id, Name: id, Skills: skills,
			Status: models.AgentStatusIdle, Health: models.HealthHealthy,
			LastHeartbeat: now, RegisteredAt: now,
		})
	})
	if err != nil {
		t.Fatalf("seed agent %s: %v", id, err)
	}
}

// seedTask inserts a pending task directly, bypassing dispatch.
func (h *harness) seedTask(t *testing.T, id string, priority int, skills ...string) {
	t.Helper()
	now := h.clock.Now()
	err := h.store.Update(func(tx *store.Tx) error {
		return tx.InsertTask(&models.Task{
			ID: id, Description: id, RequiredSkills: skills,
			Priority: priority, Status: models.TaskStatusPending,
			CreatedAt: now, UpdatedAt: now,
		})
	})
	if err != nil {
		t.Fatalf("seed task %s: %v", id, err)
	}
}

func (h *harness) task(t *testing.T, id string) (models.Task, bool) {
	t.Helper()
	var out models.Task
	var ok bool
	_ = h.store.View(func(tx *store.ReadTx) error {
		var tp *models.Task
		tp, ok = tx.Task(id)
		if ok {
			out = *tp.Clone()
		}
		return nil
	})
	return out, ok
}

func (h *harness) agent(t *testing.T, id string) models.Agent {
	t.Helper()
	a, err := h.engine.GetAgent(context.Background(), id)
	if err != nil {
		t.Fatalf("GetAgent(%s): %v", id, err)
	}
	return *a
}

// checkInvariants asserts the busy/assigned pairing and the retry budget.
func checkInvariants(t *testing.T, st *store.Store) {
	t.Helper()
	_ = st.View(func(tx *store.ReadTx) error {
		holders := map[string]int{}
		for _, task := range tx.Tasks() {
			if task.RetryCount < 0 || task.RetryCount > task.MaxRetries {
				t.Errorf("task %s: retryCount %d outside [0,%d]", task.ID, task.RetryCount, task.MaxRetries)
			}
			if task.IsTerminal() {
				t.Errorf("terminal task %s still active", task.ID)
			}
			switch task.Status {
			case models.TaskStatusAssigned:
				if task.AssignedTo == "" {
					t.Errorf("assigned task %s has no assignee", task.ID)
				}
				holders[task.AssignedTo]++
			default:
				if task.AssignedTo != "" {
					t.Errorf("%s task %s still names assignee %s", task.Status, task.ID, task.AssignedTo)
				}
			}
		}
		for _, a := range tx.Agents() {
			busy := a.Status == models.AgentStatusBusy
			if busy && holders[a.ID] != 1 {
				t.Errorf("busy agent %s holds %d tasks, want 1", a.ID, holders[a.ID])
			}
			if !busy && holders[a.ID] != 0 {
				t.Errorf("idle agent %s holds %d tasks", a.ID, holders[a.ID])
			}
		}
		return nil
	})
}
