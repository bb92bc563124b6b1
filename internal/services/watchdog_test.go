package services

import (
	"context"
	"testing"
	"time"

	"github.com/EcosystemNetwork/Conductor/internal/events"
	"github.com/EcosystemNetwork/Conductor/internal/models"
)

func TestWatchdog_ReclaimsFromSilentAgent(t *testing.T) {
	h := newHarness(t, RankFirstMatch)
	silent := h.register(t, "silent", "x")
	task := h.createTask(t, CreateTaskRequest{RequiredSkills: []string{"x"}, MaxRetries: 1})
	if task.AssignedTo != silent.ID {
		t.Fatalf("setup: task assigned to %q", task.AssignedTo)
	}

	h.clock.Advance(50 * time.Second)
	backup := h.register(t, "backup", "x")
	h.clock.Advance(20 * time.Second)

	res := h.engine.Watchdog(time.Second).Sweep(context.Background())
	if res.Reclaimed != 1 || res.Requeued != 1 || res.Dispatched != 1 || res.Failed != 0 {
		t.Errorf("sweep = %+v", res)
	}

	got, _ := h.task(t, task.ID)
	if got.Status != models.TaskStatusAssigned || got.AssignedTo != backup.ID || got.RetryCount != 1 {
		t.Errorf("task after sweep = %s/%s retry=%d", got.Status, got.AssignedTo, got.RetryCount)
	}
	if a := h.agent(t, silent.ID); a.Status != models.AgentStatusIdle || a.Health != models.HealthUnhealthy {
		t.Errorf("silent agent = %s/%s", a.Status, a.Health)
	}
	if len(h.events.ofType(events.TaskReclaimed)) != 1 {
		t.Error("expected task.reclaimed event")
	}
	checkInvariants(t, h.store)
}

func TestWatchdog_ExhaustedBudgetFails(t *testing.T) {
	h := newHarness(t, RankFirstMatch)
	h.register(t, "silent", "x")
	task := h.createTask(t, CreateTaskRequest{RequiredSkills: []string{"x"}})

	h.clock.Advance(time.Minute)
	res := h.engine.Watchdog(time.Second).Sweep(context.Background())
	if res.Reclaimed != 1 || res.Failed != 1 {
		t.Errorf("sweep = %+v", res)
	}
	if _, ok := h.task(t, task.ID); ok {
		t.Error("failed task still active")
	}
	if hist := h.engine.History(context.Background(), models.TaskStatusFailed); len(hist) != 1 {
		t.Errorf("failed history = %d entries", len(hist))
	}
	checkInvariants(t, h.store)
}

func TestWatchdog_LeavesDegradedAgentsAlone(t *testing.T) {
	h := newHarness(t, RankFirstMatch)
	agent := h.register(t, "slow", "x")
	task := h.createTask(t, CreateTaskRequest{RequiredSkills: []string{"x"}})

	h.clock.Advance(45 * time.Second)
	res := h.engine.Watchdog(time.Second).Sweep(context.Background())
	if res.Reclaimed != 0 {
		t.Errorf("degraded agent lost its task: %+v", res)
	}
	got, _ := h.task(t, task.ID)
	if got.AssignedTo != agent.ID {
		t.Errorf("task reassigned to %q", got.AssignedTo)
	}
	if a := h.agent(t, agent.ID); a.Health != models.HealthDegraded {
		t.Errorf("health = %s, want degraded", a.Health)
	}
}

func TestWatchdog_DrainsBacklog(t *testing.T) {
	h := newHarness(t, RankFirstMatch)
	h.seedTask(t, "task-1", 3)
	h.seedAgent(t, "agent-1")

	res := h.engine.Watchdog(time.Second).Sweep(context.Background())
	if res.Dispatched != 1 {
		t.Errorf("sweep dispatched %d, want 1", res.Dispatched)
	}
}

func TestWatchdog_RunStopsOnCancel(t *testing.T) {
	h := newHarness(t, RankFirstMatch)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.engine.Watchdog(time.Millisecond).Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not stop after cancel")
	}
}

func TestWatchdog_DisabledReturnsImmediately(t *testing.T) {
	h := newHarness(t, RankFirstMatch)
	done := make(chan struct{})
	go func() {
		h.engine.Watchdog(0).Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled watchdog should return")
	}
}
