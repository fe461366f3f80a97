package domain

import (
	"fmt"
	"strings"
	"time"
)

// MailFilePrefix marks files ingested from mailbox sync. Searches can
// exclude these wholesale without a join against file metadata.
const MailFilePrefix = "mail_"

// FileStatus represents the indexing lifecycle of a file
type FileStatus string

const (
	FileStatusPending  FileStatus = "pending"
	FileStatusIndexing FileStatus = "indexing"
	FileStatusReady    FileStatus = "ready"
	FileStatusFailed   FileStatus = "failed"
)

// File represents an uploaded document owned by a tenant
type File struct {
	ID         string
	TenantID   string
	FolderID   string
	Filename   string
	MimeType   string
	SHA256     string
	StorageKey string
	Status     FileStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewFile creates a new File instance
func NewFile(
	id, tenantID, folderID string,
	filename, mimeType, sha256, storageKey string,
	status FileStatus,
	createdAt time.Time,
) *File {
	return &File{
		ID:         id,
		TenantID:   tenantID,
		FolderID:   folderID,
		Filename:   filename,
		MimeType:   mimeType,
		SHA256:     sha256,
		StorageKey: storageKey,
		Status:     status,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

// IsMail returns true if the file originated from mailbox sync
func (f *File) IsMail() bool {
	return strings.HasPrefix(f.ID, MailFilePrefix)
}

// ValidateFile validates a File instance
func ValidateFile(f *File) error {
	if f == nil {
		return fmt.Errorf("file cannot be nil")
	}

	if f.ID == "" {
		return fmt.Errorf("file ID is required")
	}

	if f.TenantID == "" {
		return fmt.Errorf("file TenantID is required")
	}

	if f.Filename == "" {
		return fmt.Errorf("file Filename is required")
	}

	if f.MimeType == "" {
		return fmt.Errorf("file MimeType is required")
	}

	if f.SHA256 == "" {
		return fmt.Errorf("file SHA256 is required")
	}

	if f.StorageKey == "" {
		return fmt.Errorf("file StorageKey is required")
	}

	if !isValidFileStatus(f.Status) {
		return fmt.Errorf("file Status is invalid: %s", f.Status)
	}

	return nil
}

func isValidFileStatus(s FileStatus) bool {
	switch s {
	case FileStatusPending, FileStatusIndexing, FileStatusReady, FileStatusFailed:
		return true
	}
	return false
}
