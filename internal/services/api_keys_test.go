package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/EcosystemNetwork/Conductor/internal/models"
	"github.com/EcosystemNetwork/Conductor/internal/store"
)

func TestAPIKeyLifecycle(t *testing.T) {
	clock := newFakeClock()
	svc := NewAPIKeyService(store.New(), clock.Now)
	ctx := context.Background()

	raw, key, err := svc.Create(ctx, CreateAPIKeyRequest{Name: "scout"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(raw, models.APIKeyPrefix) || len(raw) != len(models.APIKeyPrefix)+32 {
		t.Errorf("raw key %q has wrong shape", raw)
	}
	if key.KeyHash != HashAPIKey(raw) || !strings.HasPrefix(raw, key.KeyPrefix) {
		t.Errorf("stored key does not match raw: %+v", key)
	}
	if !key.IsActive || key.LastUsedAt != nil {
		t.Errorf("fresh key = %+v", key)
	}

	clock.Advance(time.Minute)
	got, err := svc.Authenticate(ctx, raw)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != key.ID || got.LastUsedAt == nil || !got.LastUsedAt.Equal(clock.Now()) {
		t.Errorf("authenticated key = %+v", got)
	}

	if err := svc.Revoke(ctx, key.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := svc.Authenticate(ctx, raw); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("revoked key: got %v, want ErrInvalidAPIKey", err)
	}
	list := svc.List(ctx)
	if len(list) != 1 || list[0].IsActive {
		t.Errorf("list after revoke = %+v", list)
	}
}

func TestAPIKeyErrors(t *testing.T) {
	svc := NewAPIKeyService(store.New(), nil)
	ctx := context.Background()
	if _, _, err := svc.Create(ctx, CreateAPIKeyRequest{Name: " "}); !errors.Is(err, ErrValidation) {
		t.Errorf("blank name: got %v", err)
	}
	if _, _, err := svc.Create(ctx, CreateAPIKeyRequest{Name: "x", OwnerWallet: "0x12"}); !errors.Is(err, ErrValidation) {
		t.Errorf("bad wallet: got %v", err)
	}
	if err := svc.Revoke(ctx, "missing"); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Errorf("revoke missing: got %v", err)
	}
	if _, err := svc.Authenticate(ctx, ""); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("empty key: got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "cnd_unknown"); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("unknown key: got %v", err)
	}
}

func TestAgentForKey(t *testing.T) {
	agents := []models.Agent{
		{ID: "agent-1", Name: "alpha"},
		{ID: "agent-2", Name: "beta", WalletAddress: "0x52908400098527886E0F7030069857D2E4169EE7"},
	}
	byWallet := &models.APIKey{Name: "unrelated", OwnerWallet: "0x52908400098527886e0f7030069857d2e4169ee7"}
	if a, ok := AgentForKey(agents, byWallet); !ok || a.ID != "agent-2" {
		t.Errorf("wallet lookup = %v, %v", a, ok)
	}
	byName := &models.APIKey{Name: "alpha"}
	if a, ok := AgentForKey(agents, byName); !ok || a.ID != "agent-1" {
		t.Errorf("name lookup = %v, %v", a, ok)
	}
	if _, ok := AgentForKey(agents, &models.APIKey{Name: "gamma"}); ok {
		t.Error("expected no match")
	}
}
