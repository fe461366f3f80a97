package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeUnavailable      = "DEPENDENCY_UNAVAILABLE"
)

// Validation errors
var (
	ErrInvalidFileStatus     = NewDomainError(ErrCodeValidation, "invalid file status")
	ErrInvalidIndexJobStatus = NewDomainError(ErrCodeValidation, "invalid index job status")
	ErrInvalidAPIKeyRole     = NewDomainError(ErrCodeValidation, "invalid api key role")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuestion         = NewDomainError(ErrCodeValidation, "question cannot be empty")
)

// Not found errors
var (
	ErrFileNotFound   = NewDomainError(ErrCodeNotFound, "file not found")
	ErrFolderNotFound = NewDomainError(ErrCodeNotFound, "folder not found")
	ErrTenantNotFound = NewDomainError(ErrCodeNotFound, "tenant not found")
	ErrAPIKeyNotFound = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrFileAlreadyExists   = NewDomainError(ErrCodeAlreadyExists, "file already exists")
	ErrFolderAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "folder already exists")
	ErrTenantAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "tenant already exists")
	ErrAPIKeyAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	// ErrNoSearchSurface is the hard stop for callers who request a
	// tenant-wide search while holding a key that grants zero files.
	ErrNoSearchSurface = NewDomainError(ErrCodeForbidden, "no authorized search surface")
	ErrScopeMismatch   = NewDomainError(ErrCodeForbidden, "requested files are outside the caller's tenant")
)

// Operation errors
var (
	ErrFileNotReady = NewDomainError(ErrCodeInvalidOperation, "file has not finished indexing")
)

// Storage and upload errors
var (
	ErrSHA256Mismatch       = NewDomainError(ErrCodeValidation, "SHA256 hash does not match uploaded file")
	ErrUploadNotFound       = NewDomainError(ErrCodeNotFound, "pending file upload not found")
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)

// Retrieval dependency errors. These mark degraded-path causes; the
// search engine recovers from them locally and records the degradation.
var (
	ErrEmbedderUnavailable = NewDomainError(ErrCodeUnavailable, "embedding service unavailable")
	ErrRerankerUnavailable = NewDomainError(ErrCodeUnavailable, "reranker service unavailable")
	ErrSparseUnavailable   = NewDomainError(ErrCodeUnavailable, "sparse index unavailable")
)
