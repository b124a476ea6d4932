package internal

import (
	"fmt"
	"os"
	"time"

	"github.com/flexprice/tiersync/internal/auth"
	"github.com/flexprice/tiersync/internal/config"
	ierr "github.com/flexprice/tiersync/internal/errors"
)

// GenerateSessionToken signs a 24h token for local testing of the API
func GenerateSessionToken() error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		return ierr.NewError("auth secret is not configured").
			WithHint("Set auth.secret before signing tokens").
			Mark(ierr.ErrValidation)
	}

	userID := os.Getenv("USER_ID")
	if userID == "" {
		userID = "script"
	}
	role := ""
	if os.Getenv("OPERATOR") == "true" {
		role = auth.RoleOperator
	}

	token, err := auth.NewTokenValidator(cfg).GenerateToken(userID, os.Getenv("TENANT_ID"), role, 24*time.Hour)
	if err != nil {
		return err
	}

	fmt.Printf("Authorization: Bearer %s\n", token)
	return nil
}
