package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const envFile = ".env"

// InitCmd bootstraps a tenant and admin key against a fresh server.
func InitCmd() *cobra.Command {
	var tenantName string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a tenant and admin API key",
		Long:  "Creates a tenant and an admin API key on the server, then writes credentials to .env.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runInit(tenantName, apiURL, outputJSON)
		},
	}

	cmd.Flags().StringVar(&tenantName, "tenant", "", "Tenant name (prompted if not provided)")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL (default: http://localhost:8080)")

	return cmd
}

func runInit(tenantName, apiURL string, outputJSON bool) error {
	if _, err := os.Stat(envFile); err == nil {
		return fmt.Errorf(".env already exists (remove it first to re-initialize)")
	}

	if apiURL == "" {
		apiURL = os.Getenv(envAPIURL)
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	if tenantName == "" {
		fmt.Print("Enter tenant name: ")
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read tenant name: %w", err)
		}
		tenantName = strings.TrimSpace(input)
		if tenantName == "" {
			return fmt.Errorf("tenant name is required")
		}
	}

	// Tenant and key creation are the only unauthenticated endpoints,
	// so an empty API key works here.
	api, err := NewAPIClientWithConfig("", apiURL)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	tenantResp, err := api.Post("/tenants", map[string]string{"name": tenantName})
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	var tenant struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(tenantResp.Data, &tenant); err != nil {
		return fmt.Errorf("failed to parse tenant response: %w", err)
	}

	keyResp, err := api.Post("/apikeys", map[string]string{
		"tenant_id": tenant.ID,
		"name":      "admin",
		"role":      "admin",
	})
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	var key struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(keyResp.Data, &key); err != nil {
		return fmt.Errorf("failed to parse API key response: %w", err)
	}

	envData := fmt.Sprintf("KNOWVEX_API_KEY=%s\nKNOWVEX_API_URL=%s\n", key.Token, apiURL)
	if err := os.WriteFile(envFile, []byte(envData), 0600); err != nil {
		return fmt.Errorf("failed to create .env: %w", err)
	}

	if outputJSON {
		result := map[string]interface{}{
			"success":     true,
			"tenant_id":   tenant.ID,
			"tenant_name": tenant.Name,
			"api_key_id":  key.ID,
			"env":         envFile,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Initialized tenant '%s'\n", tenant.Name)
		fmt.Printf("Tenant ID: %s\n", tenant.ID)
		fmt.Printf("Admin API key saved to %s\n", envFile)
	}

	return nil
}
