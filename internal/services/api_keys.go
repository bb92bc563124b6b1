package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/EcosystemNetwork/Conductor/internal/models"
	"github.com/EcosystemNetwork/Conductor/internal/store"
)

var defaultKeyPermissions = []string{"read", "write"}

// APIKeyService issues and checks the keys agents use to identify themselves.
// Only the SHA-256 of a key is stored; the raw key is returned once.
type APIKeyService struct {
	store *store.Store
	clock Clock
}

func NewAPIKeyService(st *store.Store, clock Clock) *APIKeyService {
	if clock == nil {
		clock = systemClock
	}
	return &APIKeyService{store: st, clock: clock}
}

type CreateAPIKeyRequest struct {
	Name        string `json:"name"`
	OwnerWallet string `json:"ownerWallet,omitempty"`
}

// HashAPIKey returns the lookup hash for a raw key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Create returns the raw key and its stored record.
func (s *APIKeyService) Create(_ context.Context, req CreateAPIKeyRequest) (string, *models.APIKey, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	wallet, err := normalizeWallet(req.OwnerWallet)
	if err != nil {
		return "", nil, err
	}

	raw := models.APIKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	k := &models.APIKey{
		ID:          uuid.NewString(),
		Name:        name,
		OwnerWallet: wallet,
		KeyHash:     HashAPIKey(raw),
		KeyPrefix:   raw[:len(models.APIKeyPrefix)+6],
		Permissions: append([]string(nil), defaultKeyPermissions...),
		IsActive:    true,
		CreatedAt:   s.clock(),
	}
	var out *models.APIKey
	err = s.store.Update(func(tx *store.Tx) error {
		if err := tx.InsertAPIKey(k); err != nil {
			return err
		}
		out = k.Clone()
		return nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("create api key: %w", err)
	}
	return raw, out, nil
}

// List returns every key, revoked ones included.
func (s *APIKeyService) List(_ context.Context) []models.APIKey {
	out := []models.APIKey{}
	_ = s.store.View(func(tx *store.ReadTx) error {
		for _, k := range tx.APIKeys() {
			out = append(out, *k.Clone())
		}
		return nil
	})
	return out
}

// Revoke deactivates a key. Revoked keys stay listed.
func (s *APIKeyService) Revoke(_ context.Context, id string) error {
	return s.store.Update(func(tx *store.Tx) error {
		k, ok := tx.APIKey(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrAPIKeyNotFound, id)
		}
		k.IsActive = false
		return nil
	})
}

// Authenticate resolves an active key from its raw value and stamps its last use.
func (s *APIKeyService) Authenticate(_ context.Context, raw string) (*models.APIKey, error) {
	if raw == "" {
		return nil, ErrInvalidAPIKey
	}
	var out *models.APIKey
	err := s.store.Update(func(tx *store.Tx) error {
		k, ok := tx.APIKeyByHash(HashAPIKey(raw))
		if !ok || !k.IsActive {
			return ErrInvalidAPIKey
		}
		now := s.clock()
		k.LastUsedAt = &now
		out = k.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AgentForKey finds the agent a key belongs to: by wallet when the key
// carries one, otherwise by matching the key name to the agent name.
func AgentForKey(agents []models.Agent, key *models.APIKey) (*models.Agent, bool) {
	for i := range agents {
		a := &agents[i]
		if key.OwnerWallet != "" && strings.EqualFold(a.WalletAddress, key.OwnerWallet) {
			return a, true
		}
		if a.Name == key.Name {
			return a, true
		}
	}
	return nil, false
}
