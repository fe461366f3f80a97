package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/knowvex/knowvex/internal/domain"
	"github.com/knowvex/knowvex/internal/pagination"
)

const apiKeyPrefix = "knv_"

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

var _ UUIDGenerator = (*DefaultUUIDGenerator)(nil)

type TenantPageResult struct {
	Items      []*domain.Tenant
	NextCursor string
	HasMore    bool
}

type APIKeyPageResult struct {
	Items      []*domain.APIKey
	NextCursor string
	HasMore    bool
}

type TenantRepositoryInterface interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetByName(ctx context.Context, name string) (*domain.Tenant, error)
	List(ctx context.Context) ([]*domain.Tenant, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*TenantPageResult, error)
	Update(ctx context.Context, tenant *domain.Tenant) error
	Delete(ctx context.Context, id string) error
}

type APIKeyRepositoryInterface interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id string) (*domain.APIKey, error)
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	GetByTenantID(ctx context.Context, tenantID string) ([]*domain.APIKey, error)
	ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*APIKeyPageResult, error)
	Revoke(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	GrantFileAccess(ctx context.Context, apiKeyID, fileID string) error
	RevokeFileAccess(ctx context.Context, apiKeyID, fileID string) error
	ListAccessibleFileIDs(ctx context.Context, tenantID, apiKeyID string) ([]string, error)
}

// AuthFileReader is the slice of file persistence the auth service needs
// to validate permission grants.
type AuthFileReader interface {
	GetByID(ctx context.Context, id string) (*domain.File, error)
}

// AuthService manages tenants, API keys and per-key file grants.
type AuthService struct {
	tenantRepo TenantRepositoryInterface
	keyRepo    APIKeyRepositoryInterface
	fileRepo   AuthFileReader
	uuidGen    UUIDGenerator
}

func NewAuthService(tenantRepo TenantRepositoryInterface, keyRepo APIKeyRepositoryInterface, fileRepo AuthFileReader, uuidGen UUIDGenerator) *AuthService {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &AuthService{
		tenantRepo: tenantRepo,
		keyRepo:    keyRepo,
		fileRepo:   fileRepo,
		uuidGen:    uuidGen,
	}
}

func (s *AuthService) CreateTenant(ctx context.Context, name string) (*domain.Tenant, error) {
	if name == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant name is required")
	}

	tenant := &domain.Tenant{
		ID:        s.uuidGen.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	if err := domain.ValidateTenant(tenant); err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	return tenant, nil
}

func (s *AuthService) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	return s.tenantRepo.GetByID(ctx, id)
}

func (s *AuthService) GetTenantByName(ctx context.Context, name string) (*domain.Tenant, error) {
	return s.tenantRepo.GetByName(ctx, name)
}

type ListTenantsOutput struct {
	Items   []*domain.Tenant
	Cursor  string
	HasMore bool
}

func (s *AuthService) ListTenants(ctx context.Context, cursorStr string, limit int) (*ListTenantsOutput, error) {
	cursor, _ := pagination.DecodeCursor(cursorStr)
	if limit <= 0 {
		limit = 20
	}

	result, err := s.tenantRepo.ListWithCursor(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListTenantsOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

func (s *AuthService) DeleteTenant(ctx context.Context, id string) error {
	if id == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	return s.tenantRepo.Delete(ctx, id)
}

// CreateAPIKey mints a new key for the tenant and returns the plaintext
// token. The token is shown once; only its hash is stored.
func (s *AuthService) CreateAPIKey(ctx context.Context, tenantID, name string, role domain.APIKeyRole) (string, *domain.APIKey, error) {
	if tenantID == "" {
		return "", nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	if name == "" {
		return "", nil, domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}
	if role == "" {
		role = domain.RoleMember
	}

	if _, err := s.tenantRepo.GetByID(ctx, tenantID); err != nil {
		return "", nil, err
	}

	token, err := generateAPIToken()
	if err != nil {
		return "", nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}

	key := domain.NewAPIKey(s.uuidGen.NewString(), tenantID, name, role, hashToken(token), time.Now().UTC(), nil)

	if err := domain.ValidateAPIKey(key); err != nil {
		return "", nil, err
	}

	if err := s.keyRepo.Create(ctx, key); err != nil {
		return "", nil, err
	}

	return token, key, nil
}

// CreateAPIKeyWithToken registers a caller-supplied token. Used by the
// bootstrap path so a deployment can pin its initial admin key.
func (s *AuthService) CreateAPIKeyWithToken(ctx context.Context, tenantID, name string, role domain.APIKeyRole, token string) error {
	if tenantID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	if name == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}
	if !IsValidAPIToken(token) {
		return domain.NewDomainError(domain.ErrCodeValidation, "invalid API key format (expected knv_<64 hex chars>)")
	}
	if role == "" {
		role = domain.RoleMember
	}

	if _, err := s.tenantRepo.GetByID(ctx, tenantID); err != nil {
		return err
	}

	key := domain.NewAPIKey(s.uuidGen.NewString(), tenantID, name, role, hashToken(token), time.Now().UTC(), nil)

	if err := domain.ValidateAPIKey(key); err != nil {
		return err
	}

	return s.keyRepo.Create(ctx, key)
}

// Authenticate resolves a plaintext token to its API key. Revoked and
// unknown keys both surface as unauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.APIKey, error) {
	if !IsValidAPIToken(token) {
		return nil, domain.ErrInvalidAPIKey
	}

	key, err := s.keyRepo.GetByHash(ctx, hashToken(token))
	if err != nil {
		if err == domain.ErrAPIKeyNotFound {
			return nil, domain.ErrInvalidAPIKey
		}
		return nil, err
	}

	if key.IsRevoked() {
		return nil, domain.ErrAPIKeyRevoked
	}

	return key, nil
}

func (s *AuthService) RevokeAPIKey(ctx context.Context, tenantID, keyID string) error {
	if keyID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key ID is required")
	}
	key, err := s.keyRepo.GetByID(ctx, keyID)
	if err != nil {
		return err
	}
	if key.TenantID != tenantID {
		return domain.ErrScopeMismatch
	}
	return s.keyRepo.Revoke(ctx, keyID)
}

func (s *AuthService) ListAPIKeys(ctx context.Context, tenantID string) ([]*domain.APIKey, error) {
	if tenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	return s.keyRepo.GetByTenantID(ctx, tenantID)
}

// GrantFileAccess allows a member key to read a file. Both the key and
// the file must belong to the same tenant.
func (s *AuthService) GrantFileAccess(ctx context.Context, tenantID, apiKeyID, fileID string) error {
	key, err := s.keyRepo.GetByID(ctx, apiKeyID)
	if err != nil {
		return err
	}
	if key.TenantID != tenantID {
		return domain.ErrScopeMismatch
	}

	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if file.TenantID != tenantID {
		return domain.ErrScopeMismatch
	}

	return s.keyRepo.GrantFileAccess(ctx, apiKeyID, fileID)
}

func (s *AuthService) RevokeFileAccess(ctx context.Context, tenantID, apiKeyID, fileID string) error {
	key, err := s.keyRepo.GetByID(ctx, apiKeyID)
	if err != nil {
		return err
	}
	if key.TenantID != tenantID {
		return domain.ErrScopeMismatch
	}

	return s.keyRepo.RevokeFileAccess(ctx, apiKeyID, fileID)
}

// AccessibleFileIDs returns the file allowlist for a member key. Admin
// keys have the whole tenant; callers should not consult this for them.
func (s *AuthService) AccessibleFileIDs(ctx context.Context, tenantID, apiKeyID string) ([]string, error) {
	return s.keyRepo.ListAccessibleFileIDs(ctx, tenantID, apiKeyID)
}

func generateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func IsValidAPIToken(token string) bool {
	if !strings.HasPrefix(token, apiKeyPrefix) {
		return false
	}
	hexPart := token[len(apiKeyPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
