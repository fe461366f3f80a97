package domain

import (
	"strings"
	"time"
)

// Chunk represents a contiguous segment of a file's text for search.
// Filename and FolderID are denormalized from the owning file so search
// results carry enough metadata for assembly without extra lookups.
type Chunk struct {
	ID         string
	FileID     string
	TenantID   string
	FolderID   string
	Filename   string
	ChunkIndex int
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsMail returns true if the chunk's owning file originated from mailbox sync.
func (c *Chunk) IsMail() bool {
	return strings.HasPrefix(c.FileID, MailFilePrefix)
}
