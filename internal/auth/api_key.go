package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/flexprice/tiersync/internal/config"
)

// HashAPIKey creates a SHA-256 hash of the API key
func HashAPIKey(key string) string {
	hasher := sha256.New()
	hasher.Write([]byte(key))
	return hex.EncodeToString(hasher.Sum(nil))
}

// GenerateAPIKey generates a new API key
// The key is returned in its raw form, it should be hashed before storing in config
func GenerateAPIKey() string {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return hex.EncodeToString(key)
}

// ValidateAPIKey looks the key up in the configuration. Inactive keys and
// keys bound to no tenant are rejected unless they carry operator rights.
func ValidateAPIKey(cfg *config.Configuration, key string) (*Claims, bool) {
	details, exists := cfg.Auth.APIKey.Keys[HashAPIKey(key)]
	if !exists || !details.IsActive {
		return nil, false
	}
	if details.TenantID == "" && !details.Operator {
		return nil, false
	}

	userID := details.UserID
	if userID == "" {
		userID = "api_key:" + details.Name
	}
	return &Claims{
		UserID:   userID,
		TenantID: details.TenantID,
		Operator: details.Operator,
	}, true
}
