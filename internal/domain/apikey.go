package domain

import (
	"fmt"
	"time"
)

// APIKeyRole controls which files a key can read
type APIKeyRole string

const (
	// RoleAdmin keys see every file in the tenant.
	RoleAdmin APIKeyRole = "admin"
	// RoleMember keys are limited to files granted via file permissions.
	RoleMember APIKeyRole = "member"
)

// APIKey represents an API key for authentication
type APIKey struct {
	ID        string
	TenantID  string
	Name      string
	Role      APIKeyRole
	KeyHash   string // Never store plaintext keys
	CreatedAt time.Time
	RevokedAt *time.Time
}

// NewAPIKey creates a new APIKey instance
func NewAPIKey(id, tenantID, name string, role APIKeyRole, keyHash string, createdAt time.Time, revokedAt *time.Time) *APIKey {
	return &APIKey{
		ID:        id,
		TenantID:  tenantID,
		Name:      name,
		Role:      role,
		KeyHash:   keyHash,
		CreatedAt: createdAt,
		RevokedAt: revokedAt,
	}
}

// IsRevoked returns true if the API key has been revoked
func (a *APIKey) IsRevoked() bool {
	return a.RevokedAt != nil
}

// IsAdmin returns true if the key carries the admin role
func (a *APIKey) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ValidateAPIKey validates an APIKey instance
func ValidateAPIKey(a *APIKey) error {
	if a == nil {
		return fmt.Errorf("api key cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("api key ID is required")
	}

	if a.TenantID == "" {
		return fmt.Errorf("api key TenantID is required")
	}

	if a.Name == "" {
		return fmt.Errorf("api key Name is required")
	}

	if a.Role != RoleAdmin && a.Role != RoleMember {
		return fmt.Errorf("api key Role is invalid: %s", a.Role)
	}

	if a.KeyHash == "" {
		return fmt.Errorf("api key KeyHash is required")
	}

	return nil
}
