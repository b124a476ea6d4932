package internal

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/flexprice/tiersync/internal/auth"
	"github.com/flexprice/tiersync/internal/config"
	ierr "github.com/flexprice/tiersync/internal/errors"
)

// GenerateNewAPIKey prints a raw key for the caller and the hashed entry
// that goes into auth.api_key.keys
func GenerateNewAPIKey() error {
	details := config.APIKeyDetails{
		TenantID: os.Getenv("TENANT_ID"),
		UserID:   os.Getenv("USER_ID"),
		Name:     os.Getenv("KEY_NAME"),
		IsActive: true,
		Operator: os.Getenv("OPERATOR") == "true",
	}
	if details.TenantID == "" && !details.Operator {
		return ierr.NewError("tenant id is required").
			WithHint("Pass -tenant-id, or -operator for an operator key").
			Mark(ierr.ErrValidation)
	}
	if details.Name == "" {
		details.Name = "api key"
	}

	rawKey := auth.GenerateAPIKey()
	hashedKey := auth.HashAPIKey(rawKey)

	jsonBytes, err := json.Marshal(map[string]config.APIKeyDetails{hashedKey: details})
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrSystem)
	}

	fmt.Printf("\nNew API Key Generated:\n")
	fmt.Printf("Raw Key (hand this to the key owner): %s\n", rawKey)
	fmt.Printf("\nAdd this to config.yaml under auth.api_key.keys:\n")
	fmt.Printf("%s:\n", hashedKey)
	fmt.Printf("  tenant_id: %s\n", details.TenantID)
	fmt.Printf("  user_id: %s\n", details.UserID)
	fmt.Printf("  name: %s\n", details.Name)
	fmt.Printf("  is_active: %v\n", details.IsActive)
	fmt.Printf("  operator: %v\n", details.Operator)
	fmt.Printf("\nOr set this environment variable:\n")
	fmt.Printf("TIERSYNC_AUTH_API_KEY_KEYS='%s'\n", string(jsonBytes))
	return nil
}
