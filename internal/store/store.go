// Package store holds the canonical in-memory collections of agents, tasks,
// payouts, task history and API keys.
//
// Every read and write goes through View or Update, which run the callback
// under a single store-wide lock. A dispatcher that finds an idle agent and
// marks it busy inside one Update can never race another dispatcher for the
// same agent. Records handed to callbacks are live; callers copy anything
// that must outlive the callback.
package store

import (
	"errors"
	"slices"
	"sync"

	"github.com/EcosystemNetwork/Conductor/internal/models"
)

var ErrConflict = errors.New("record already exists")

type Store struct {
	mu sync.RWMutex

	agents     map[string]*models.Agent
	agentOrder []string

	tasks     map[string]*models.Task
	taskOrder []string

	payouts []models.Payout
	history []models.Task

	keys      map[string]*models.APIKey
	keyOrder  []string
	keyByHash map[string]string
}

func New() *Store {
	return &Store{
		agents:    make(map[string]*models.Agent),
		tasks:     make(map[string]*models.Task),
		keys:      make(map[string]*models.APIKey),
		keyByHash: make(map[string]string),
	}
}

// View runs fn with shared access. fn must not retain the records it sees.
func (s *Store) View(fn func(tx *ReadTx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&ReadTx{s: s})
}

// Update runs fn with exclusive access. Mutations made through tx, or
// directly on records obtained from it, are visible to the next caller once
// fn returns. There is no rollback: fn validates before it mutates.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&Tx{ReadTx{s: s}})
}

// ReadTx exposes lookups in insertion order.
type ReadTx struct {
	s *Store
}

func (r *ReadTx) Agent(id string) (*models.Agent, bool) {
	a, ok := r.s.agents[id]
	return a, ok
}

// Agents returns every agent in registration order.
func (r *ReadTx) Agents() []*models.Agent {
	out := make([]*models.Agent, 0, len(r.s.agentOrder))
	for _, id := range r.s.agentOrder {
		out = append(out, r.s.agents[id])
	}
	return out
}

func (r *ReadTx) Task(id string) (*models.Task, bool) {
	t, ok := r.s.tasks[id]
	return t, ok
}

// Tasks returns the active tasks in creation order.
func (r *ReadTx) Tasks() []*models.Task {
	out := make([]*models.Task, 0, len(r.s.taskOrder))
	for _, id := range r.s.taskOrder {
		out = append(out, r.s.tasks[id])
	}
	return out
}

// History returns the terminal task snapshots, oldest first.
func (r *ReadTx) History() []models.Task {
	return r.s.history
}

// Payouts returns payouts in creation order.
func (r *ReadTx) Payouts() []models.Payout {
	return r.s.payouts
}

func (r *ReadTx) APIKey(id string) (*models.APIKey, bool) {
	k, ok := r.s.keys[id]
	return k, ok
}

func (r *ReadTx) APIKeyByHash(hash string) (*models.APIKey, bool) {
	id, ok := r.s.keyByHash[hash]
	if !ok {
		return nil, false
	}
	return r.s.keys[id], true
}

func (r *ReadTx) APIKeys() []*models.APIKey {
	out := make([]*models.APIKey, 0, len(r.s.keyOrder))
	for _, id := range r.s.keyOrder {
		out = append(out, r.s.keys[id])
	}
	return out
}

// Tx adds mutations to ReadTx. It is only handed out by Update.
type Tx struct {
	ReadTx
}

func (t *Tx) InsertAgent(a *models.Agent) error {
	if _, ok := t.s.agents[a.ID]; ok {
		return ErrConflict
	}
	t.s.agents[a.ID] = a
	t.s.agentOrder = append(t.s.agentOrder, a.ID)
	return nil
}

func (t *Tx) InsertTask(task *models.Task) error {
	if _, ok := t.s.tasks[task.ID]; ok {
		return ErrConflict
	}
	t.s.tasks[task.ID] = task
	t.s.taskOrder = append(t.s.taskOrder, task.ID)
	return nil
}

// RemoveTask drops a task from the active set. Unknown ids are ignored.
func (t *Tx) RemoveTask(id string) {
	if _, ok := t.s.tasks[id]; !ok {
		return
	}
	delete(t.s.tasks, id)
	if i := slices.Index(t.s.taskOrder, id); i >= 0 {
		t.s.taskOrder = slices.Delete(t.s.taskOrder, i, i+1)
	}
}

// AppendHistory stores a value snapshot; later changes to the live task do
// not reach it.
func (t *Tx) AppendHistory(task models.Task) {
	t.s.history = append(t.s.history, *task.Clone())
}

func (t *Tx) AddPayout(p models.Payout) {
	t.s.payouts = append(t.s.payouts, p)
}

func (t *Tx) InsertAPIKey(k *models.APIKey) error {
	if _, ok := t.s.keys[k.ID]; ok {
		return ErrConflict
	}
	if _, ok := t.s.keyByHash[k.KeyHash]; ok {
		return ErrConflict
	}
	t.s.keys[k.ID] = k
	t.s.keyOrder = append(t.s.keyOrder, k.ID)
	t.s.keyByHash[k.KeyHash] = k.ID
	return nil
}
