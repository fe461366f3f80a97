package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTenant(t *testing.T) {
	now := time.Now()
	tenant := NewTenant("tenant1", "Acme Corp", now)

	assert.Equal(t, "tenant1", tenant.ID)
	assert.Equal(t, "Acme Corp", tenant.Name)
	assert.Equal(t, now, tenant.CreatedAt)
}

func TestValidateTenant(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		tenant  *Tenant
		wantErr bool
	}{
		{name: "valid tenant", tenant: NewTenant("tenant1", "Acme Corp", now), wantErr: false},
		{name: "missing ID", tenant: &Tenant{Name: "Acme Corp"}, wantErr: true},
		{name: "missing Name", tenant: &Tenant{ID: "tenant1"}, wantErr: true},
		{name: "nil tenant", tenant: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTenant(tt.tenant)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
