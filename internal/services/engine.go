package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/EcosystemNetwork/Conductor/internal/events"
	"github.com/EcosystemNetwork/Conductor/internal/ledger"
	"github.com/EcosystemNetwork/Conductor/internal/models"
	"github.com/EcosystemNetwork/Conductor/internal/store"
)

type RegisterAgentRequest struct {
	Name          string   `json:"name"`
	Skills        []string `json:"skills"`
	WalletAddress string   `json:"walletAddress,omitempty"`
}

// CreateTaskRequest carries a new task. Zero Priority means "not given".
type CreateTaskRequest struct {
	Description    string   `json:"description"`
	RequiredSkills []string `json:"requiredSkills"`
	Reward         float64  `json:"reward"`
	Priority       int      `json:"priority,omitempty"`
	MaxRetries     int      `json:"maxRetries,omitempty"`
}

type HeartbeatResult struct {
	AgentID       string    `json:"agentId"`
	Health        string    `json:"health"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
}

type EngineConfig struct {
	Ranking RankingStrategy
	Clock   Clock
	Events  events.Publisher
	Settler ledger.Settler
	Archive Archiver
	Logger  *slog.Logger
}

// Engine is the entry point for every marketplace operation. All state
// lives in the store it was built with.
type Engine struct {
	store      *store.Store
	clock      Clock
	hooks      *Collaborators
	dispatcher *Dispatcher
	completer  *Completer
}

func NewEngine(st *store.Store, cfg EngineConfig) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = systemClock
	}
	strategy := cfg.Ranking
	if strategy == "" {
		strategy = RankFirstMatch
	}
	hooks := &Collaborators{
		Events:  cfg.Events,
		Settler: cfg.Settler,
		Archive: cfg.Archive,
		Logger:  cfg.Logger,
	}
	d := NewDispatcher(st, NewMatcher(strategy), clock, hooks)
	return &Engine{
		store:      st,
		clock:      clock,
		hooks:      hooks,
		dispatcher: d,
		completer:  NewCompleter(st, d, clock, hooks),
	}
}

// Watchdog returns a reclaim loop bound to this engine.
func (e *Engine) Watchdog(interval time.Duration) *Watchdog {
	return NewWatchdog(e.completer, interval, e.hooks.logger())
}

// RegisterAgent adds an idle, healthy agent and sweeps the pending queue so
// the new capacity can absorb backlog. The returned agent reflects the sweep.
func (e *Engine) RegisterAgent(ctx context.Context, req RegisterAgentRequest) (*models.Agent, error) {
	req, err := normalizeRegister(req)
	if err != nil {
		return nil, err
	}
	now := e.clock()
	agent := &models.Agent{
		ID:            models.AgentIDPrefix + uuid.NewString(),
		Name:          req.Name,
		Skills:        req.Skills,
		WalletAddress: req.WalletAddress,
		Status:        models.AgentStatusIdle,
		Health:        models.HealthHealthy,
		LastHeartbeat: now,
		RegisteredAt:  now,
	}

	var fx effects
	var out *models.Agent
	err = e.store.Update(func(tx *store.Tx) error {
		if err := tx.InsertAgent(agent); err != nil {
			return err
		}
		fx.emit(events.Event{Type: events.AgentRegistered, AgentID: agent.ID, At: now})
		e.dispatcher.processQueueLocked(tx, now, &fx)
		out = agent.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("register agent: %w", err)
	}
	e.hooks.apply(ctx, &fx)
	return out, nil
}

// CreateTask queues a task and tries to dispatch it in the same step. The
// returned task reflects that attempt.
func (e *Engine) CreateTask(ctx context.Context, req CreateTaskRequest) (*models.Task, error) {
	req, err := normalizeTask(req)
	if err != nil {
		return nil, err
	}
	now := e.clock()
	task := &models.Task{
		ID:             models.TaskIDPrefix + uuid.NewString(),
		Description:    req.Description,
		RequiredSkills: req.RequiredSkills,
		Reward:         req.Reward,
		Priority:       req.Priority,
		MaxRetries:     req.MaxRetries,
		Status:         models.TaskStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var fx effects
	var out *models.Task
	err = e.store.Update(func(tx *store.Tx) error {
		if err := tx.InsertTask(task); err != nil {
			return err
		}
		fx.emit(events.Event{Type: events.TaskCreated, TaskID: task.ID, Amount: task.Reward, At: now})
		e.dispatcher.dispatchLocked(tx, task, now, &fx)
		out = task.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	e.hooks.apply(ctx, &fx)
	return out, nil
}

// Heartbeat records that the agent is alive.
func (e *Engine) Heartbeat(_ context.Context, agentID string) (*HeartbeatResult, error) {
	var res HeartbeatResult
	err := e.store.Update(func(tx *store.Tx) error {
		agent, ok := tx.Agent(agentID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
		}
		now := e.clock()
		agent.LastHeartbeat = now
		agent.Health = ComputeHealth(now, now)
		res = HeartbeatResult{AgentID: agent.ID, Health: agent.Health, LastHeartbeat: now}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (e *Engine) CompleteTask(ctx context.Context, req CompleteRequest) (*CompletionResult, error) {
	return e.completer.CompleteTask(ctx, req)
}

func (e *Engine) DispatchTask(ctx context.Context, taskID string) (bool, error) {
	return e.dispatcher.DispatchTask(ctx, taskID)
}

func (e *Engine) ProcessQueue(ctx context.Context) int {
	return e.dispatcher.ProcessQueue(ctx)
}

// ListAgents returns every agent with health recomputed from its heartbeat.
func (e *Engine) ListAgents(_ context.Context) []models.Agent {
	now := e.clock()
	var out []models.Agent
	_ = e.store.View(func(tx *store.ReadTx) error {
		out = make([]models.Agent, 0, len(tx.Agents()))
		for _, a := range tx.Agents() {
			c := a.Clone()
			c.Health = ComputeHealth(c.LastHeartbeat, now)
			out = append(out, *c)
		}
		return nil
	})
	return out
}

// GetAgent returns one agent with current health.
func (e *Engine) GetAgent(_ context.Context, id string) (*models.Agent, error) {
	var out *models.Agent
	err := e.store.View(func(tx *store.ReadTx) error {
		a, ok := tx.Agent(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
		}
		out = a.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Health = ComputeHealth(out.LastHeartbeat, e.clock())
	return out, nil
}

// ListTasks returns the active tasks in creation order.
func (e *Engine) ListTasks(_ context.Context) []models.Task {
	var out []models.Task
	_ = e.store.View(func(tx *store.ReadTx) error {
		out = make([]models.Task, 0, len(tx.Tasks()))
		for _, t := range tx.Tasks() {
			out = append(out, *t.Clone())
		}
		return nil
	})
	return out
}

// History returns terminal tasks, oldest first. A status of completed or
// failed filters; anything else returns everything.
func (e *Engine) History(_ context.Context, status string) []models.Task {
	filter := status == models.TaskStatusCompleted || status == models.TaskStatusFailed
	out := []models.Task{}
	_ = e.store.View(func(tx *store.ReadTx) error {
		for _, t := range tx.History() {
			if filter && t.Status != status {
				continue
			}
			out = append(out, *t.Clone())
		}
		return nil
	})
	return out
}

// Payouts returns all payouts, newest first.
func (e *Engine) Payouts(_ context.Context) []models.Payout {
	var out []models.Payout
	_ = e.store.View(func(tx *store.ReadTx) error {
		src := tx.Payouts()
		out = make([]models.Payout, len(src))
		for i, p := range src {
			out[len(src)-1-i] = p
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

type AgentStats struct {
	Total     int `json:"total"`
	Idle      int `json:"idle"`
	Busy      int `json:"busy"`
	Healthy   int `json:"healthy"`
	Degraded  int `json:"degraded"`
	Unhealthy int `json:"unhealthy"`
}

type TaskStats struct {
	Pending   int `json:"pending"`
	Assigned  int `json:"assigned"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

type PayoutStats struct {
	Count       int     `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
}

type Stats struct {
	Agents  AgentStats  `json:"agents"`
	Tasks   TaskStats   `json:"tasks"`
	Payouts PayoutStats `json:"payouts"`
}

// Stats aggregates the current store contents.
func (e *Engine) Stats(_ context.Context) Stats {
	now := e.clock()
	var s Stats
	_ = e.store.View(func(tx *store.ReadTx) error {
		for _, a := range tx.Agents() {
			s.Agents.Total++
			if a.Status == models.AgentStatusBusy {
				s.Agents.Busy++
			} else {
				s.Agents.Idle++
			}
			switch ComputeHealth(a.LastHeartbeat, now) {
			case models.HealthHealthy:
				s.Agents.Healthy++
			case models.HealthDegraded:
				s.Agents.Degraded++
			default:
				s.Agents.Unhealthy++
			}
		}
		for _, t := range tx.Tasks() {
			if t.Status == models.TaskStatusAssigned {
				s.Tasks.Assigned++
			} else {
				s.Tasks.Pending++
			}
		}
		for _, t := range tx.History() {
			if t.Status == models.TaskStatusCompleted {
				s.Tasks.Completed++
			} else {
				s.Tasks.Failed++
			}
		}
		for _, p := range tx.Payouts() {
			s.Payouts.Count++
			s.Payouts.TotalAmount += p.Amount
		}
		return nil
	})
	return s
}

// ---------------------------------------------------------------------------
// input normalization
// ---------------------------------------------------------------------------

func normalizeRegister(req RegisterAgentRequest) (RegisterAgentRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return req, fmt.Errorf("%w: name is required", ErrValidation)
	}
	skills, err := normalizeSkills(req.Skills)
	if err != nil {
		return req, err
	}
	if len(skills) == 0 {
		return req, fmt.Errorf("%w: skills must be a non-empty array", ErrValidation)
	}
	req.Skills = skills
	wallet, err := normalizeWallet(req.WalletAddress)
	if err != nil {
		return req, err
	}
	req.WalletAddress = wallet
	return req, nil
}

func normalizeTask(req CreateTaskRequest) (CreateTaskRequest, error) {
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		return req, fmt.Errorf("%w: description is required", ErrValidation)
	}
	skills, err := normalizeSkills(req.RequiredSkills)
	if err != nil {
		return req, err
	}
	req.RequiredSkills = skills
	if math.IsNaN(req.Reward) || math.IsInf(req.Reward, 0) || req.Reward < 0 {
		return req, fmt.Errorf("%w: reward must be a non-negative number", ErrValidation)
	}
	req.Priority = models.ClampPriority(req.Priority)
	req.MaxRetries = max(req.MaxRetries, 0)
	return req, nil
}

// normalizeSkills drops duplicates, keeping first occurrences. Skills match
// exactly, so no case folding or trimming is applied.
func normalizeSkills(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if s == "" {
			return nil, fmt.Errorf("%w: skills must be non-empty strings", ErrValidation)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

// normalizeWallet returns the EIP-55 form of an optional EVM address.
func normalizeWallet(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", nil
	}
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("%w: walletAddress is not a valid hex address", ErrValidation)
	}
	return common.HexToAddress(addr).Hex(), nil
}
