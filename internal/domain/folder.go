package domain

import (
	"fmt"
	"time"
)

// Folder represents a named grouping of files within a tenant. Folders
// nest; an empty ParentID marks a root folder.
type Folder struct {
	ID        string
	TenantID  string
	ParentID  string
	Name      string
	CreatedAt time.Time
}

// NewFolder creates a new Folder instance
func NewFolder(id, tenantID, parentID, name string, createdAt time.Time) *Folder {
	return &Folder{
		ID:        id,
		TenantID:  tenantID,
		ParentID:  parentID,
		Name:      name,
		CreatedAt: createdAt,
	}
}

// ValidateFolder validates a Folder instance
func ValidateFolder(f *Folder) error {
	if f == nil {
		return fmt.Errorf("folder cannot be nil")
	}

	if f.ID == "" {
		return fmt.Errorf("folder ID is required")
	}

	if f.TenantID == "" {
		return fmt.Errorf("folder TenantID is required")
	}

	if f.Name == "" {
		return fmt.Errorf("folder Name is required")
	}

	if f.ParentID == f.ID {
		return fmt.Errorf("folder cannot be its own parent")
	}

	return nil
}
