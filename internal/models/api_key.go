package models

import (
	"slices"
	"time"
)

// APIKeyPrefix marks raw keys handed out to agent operators.
const APIKeyPrefix = "cnd_"

type APIKey struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	OwnerWallet string     `json:"ownerWallet,omitempty"`
	KeyHash     string     `json:"-"`
	KeyPrefix   string     `json:"keyPrefix"`
	Permissions []string   `json:"permissions"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
}

func (k *APIKey) Clone() *APIKey {
	c := *k
	c.Permissions = slices.Clone(k.Permissions)
	if k.LastUsedAt != nil {
		at := *k.LastUsedAt
		c.LastUsedAt = &at
	}
	return &c
}
