package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/knowvex/knowvex/internal/domain"
	"github.com/knowvex/knowvex/internal/pagination"
	"github.com/knowvex/knowvex/internal/repository"
	"github.com/knowvex/knowvex/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func resolveTenantID(ctx context.Context, tenantRepo *repository.TenantRepository, tenantRef string) (string, error) {
	if _, err := uuid.Parse(tenantRef); err == nil {
		tenant, err := tenantRepo.GetByID(ctx, tenantRef)
		if err != nil {
			return "", fmt.Errorf("tenant not found: %s", tenantRef)
		}
		return tenant.ID, nil
	}

	tenant, err := tenantRepo.GetByName(ctx, tenantRef)
	if err != nil {
		if err == domain.ErrTenantNotFound {
			return "", fmt.Errorf("tenant not found: %s", tenantRef)
		}
		return "", err
	}
	return tenant.ID, nil
}

func APIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		Long:  "Create, list, revoke, and grant file access to API keys",
	}

	cmd.AddCommand(APIKeyCreateCmd())
	cmd.AddCommand(APIKeyListCmd())
	cmd.AddCommand(APIKeyRevokeCmd())
	cmd.AddCommand(APIKeyGrantCmd())
	cmd.AddCommand(APIKeyRevokeGrantCmd())

	return cmd
}

func APIKeyCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Create a new API key for a tenant",
		RunE:  runAPIKeyCreate,
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant ID or name (required)")
	cmd.Flags().StringP("name", "n", "", "API key name (required)")
	cmd.Flags().StringP("role", "r", "member", "Key role (admin or member)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("name")

	return cmd
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	tenantRef, _ := cmd.Flags().GetString("tenant")
	name, _ := cmd.Flags().GetString("name")
	roleStr, _ := cmd.Flags().GetString("role")
	outputFormat, _ := cmd.Flags().GetString("output")

	role := domain.APIKeyRole(roleStr)
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return fmt.Errorf("invalid role %q (expected admin or member)", roleStr)
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repository.NewTenantRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(tenantRepo, apiKeyRepo, nil, uuidGen)

	tenantID, err := resolveTenantID(ctx, tenantRepo, tenantRef)
	if err != nil {
		return err
	}

	token, key, err := authSvc.CreateAPIKey(ctx, tenantID, name, role)
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":     key.ID,
			"name":   key.Name,
			"tenant": tenantID,
			"role":   string(key.Role),
			"token":  token,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("API key created for tenant %s\n", tenantID)
		fmt.Printf("Key ID: %s\n", key.ID)
		fmt.Printf("Key Name: %s\n", key.Name)
		fmt.Printf("Role: %s\n", key.Role)
		fmt.Printf("Token: %s\n", token)
		fmt.Println("\n⚠️  Save this token now. You won't be able to see it again!")
	}

	return nil
}

func APIKeyListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for a tenant",
		Long:  "List all API keys for a specific tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantRef, _ := cmd.Flags().GetString("tenant")
			outputFormat, _ := cmd.Flags().GetString("output")
			return runAPIKeyList(tenantRef, outputFormat, limit, cursor)
		},
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant ID or name (required)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.MarkFlagRequired("tenant")

	return cmd
}

func runAPIKeyList(tenantRef, outputFormat string, limit int, cursorStr string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repository.NewTenantRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)

	tenantID, err := resolveTenantID(ctx, tenantRepo, tenantRef)
	if err != nil {
		return err
	}

	cursor, _ := pagination.DecodeCursor(cursorStr)
	result, err := apiKeyRepo.ListByTenantWithCursor(ctx, tenantID, cursor, limit)
	if err != nil {
		return fmt.Errorf("failed to list API keys: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(result.Items))
		for i, key := range result.Items {
			data[i] = map[string]interface{}{
				"id":         key.ID,
				"name":       key.Name,
				"tenant_id":  key.TenantID,
				"role":       string(key.Role),
				"created_at": key.CreatedAt,
				"revoked_at": key.RevokedAt,
				"revoked":    key.IsRevoked(),
			}
		}
		output := map[string]interface{}{
			"items":    data,
			"cursor":   result.NextCursor,
			"has_more": result.HasMore,
		}
		jsonBytes, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(result.Items) == 0 {
			fmt.Printf("No API keys found for tenant %s\n", tenantID)
			return nil
		}
		fmt.Printf("API keys for tenant %s:\n", tenantID)
		for _, key := range result.Items {
			status := "active"
			if key.IsRevoked() {
				status = "revoked"
			}
			fmt.Printf("  %s: %s (%s, %s, created: %s)\n", key.ID, key.Name, key.Role, status, key.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		if result.HasMore && result.NextCursor != "" {
			fmt.Printf("\nMore results available. Use --cursor %s\n", result.NextCursor)
		}
	}

	return nil
}

func APIKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Long:  "Revoke an API key by its ID",
		Args:  cobra.ExactArgs(1),
		RunE:  runAPIKeyRevoke,
	}

	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	keyID := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	err = apiKeyRepo.Revoke(ctx, keyID)
	if err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":      keyID,
			"revoked": true,
			"message": "API key revoked successfully",
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("API key %s revoked successfully\n", keyID)
	}

	return nil
}

func APIKeyGrantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant <key-id> <file-id>",
		Short: "Grant a member key access to a file",
		Long:  "Grant a member API key read access to a specific file",
		Args:  cobra.ExactArgs(2),
		RunE:  runAPIKeyGrant,
	}

	return cmd
}

func runAPIKeyGrant(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	keyID, fileID := args[0], args[1]

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	key, err := apiKeyRepo.GetByID(ctx, keyID)
	if err != nil {
		return fmt.Errorf("API key not found: %s", keyID)
	}

	if err := apiKeyRepo.GrantFileAccess(ctx, key.ID, fileID); err != nil {
		return fmt.Errorf("failed to grant file access: %w", err)
	}

	fmt.Printf("Granted key %s access to file %s\n", keyID, fileID)
	return nil
}

func APIKeyRevokeGrantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke-grant <key-id> <file-id>",
		Short: "Revoke a key's access to a file",
		Long:  "Remove a member API key's read access to a specific file",
		Args:  cobra.ExactArgs(2),
		RunE:  runAPIKeyRevokeGrant,
	}

	return cmd
}

func runAPIKeyRevokeGrant(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	keyID, fileID := args[0], args[1]

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	if err := apiKeyRepo.RevokeFileAccess(ctx, keyID, fileID); err != nil {
		return fmt.Errorf("failed to revoke file access: %w", err)
	}

	fmt.Printf("Revoked key %s access to file %s\n", keyID, fileID)
	return nil
}
