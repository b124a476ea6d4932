package config

// AuthConfig configures request authentication. Either an API key or a
// signed session JWT identifies the caller's tenant.
type AuthConfig struct {
	Secret string       `mapstructure:"secret"`
	APIKey APIKeyConfig `mapstructure:"api_key"`
}

type APIKeyConfig struct {
	Header string `mapstructure:"header" default:"x-api-key"`
	// Keys maps the sha256 hex of an API key to its owner
	Keys map[string]APIKeyDetails `mapstructure:"keys"`
}

type APIKeyDetails struct {
	TenantID string `mapstructure:"tenant_id"`
	UserID   string `mapstructure:"user_id"`
	Name     string `mapstructure:"name"`
	IsActive bool   `mapstructure:"is_active"`
	// Operator keys may act on any tenant and use the admin endpoints
	Operator bool `mapstructure:"operator"`
}
