package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeIsRestricted(t *testing.T) {
	assert.False(t, Scope{TenantID: "t1"}.IsRestricted())
	assert.True(t, Scope{TenantID: "t1", FileIDs: []string{"f1"}}.IsRestricted())
}

func TestScopeIsSingleFile(t *testing.T) {
	assert.False(t, Scope{TenantID: "t1"}.IsSingleFile())
	assert.True(t, Scope{TenantID: "t1", FileIDs: []string{"f1"}}.IsSingleFile())
	assert.False(t, Scope{TenantID: "t1", FileIDs: []string{"f1", "f2"}}.IsSingleFile())
}

func TestScopeContains(t *testing.T) {
	unrestricted := Scope{TenantID: "t1"}
	assert.True(t, unrestricted.Contains("anything"))

	restricted := Scope{TenantID: "t1", FileIDs: []string{"f1", "f2"}}
	assert.True(t, restricted.Contains("f1"))
	assert.False(t, restricted.Contains("f3"))
}

func TestScopeRestrict(t *testing.T) {
	tests := []struct {
		name    string
		scope   Scope
		allowed []string
		want    []string
	}{
		{
			name:    "unrestricted scope narrows to allowlist",
			scope:   Scope{TenantID: "t1"},
			allowed: []string{"f1", "f2"},
			want:    []string{"f1", "f2"},
		},
		{
			name:    "restricted scope intersects with allowlist",
			scope:   Scope{TenantID: "t1", FileIDs: []string{"f1", "f3"}},
			allowed: []string{"f1", "f2"},
			want:    []string{"f1"},
		},
		{
			name:    "disjoint sets yield nothing",
			scope:   Scope{TenantID: "t1", FileIDs: []string{"f3"}},
			allowed: []string{"f1"},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.scope.Restrict(tt.allowed)
			assert.Equal(t, tt.want, got.FileIDs)
			assert.Equal(t, tt.scope.TenantID, got.TenantID)
		})
	}
}

func TestScopeRestrictPreservesExcludeMail(t *testing.T) {
	s := Scope{TenantID: "t1", ExcludeMail: true}
	got := s.Restrict([]string{"f1"})
	assert.True(t, got.ExcludeMail)
}
