package config

import (
	"time"

	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/types"
)

// BillingConfig holds the billing provider credentials and the plan catalog
type BillingConfig struct {
	Stripe StripeConfig `mapstructure:"stripe" validate:"required"`
	// Plans is the single source list the tier catalog is derived from
	Plans []PlanConfig `mapstructure:"plans"`
	// DefaultBonusTier applies to bonus windows that do not name a tier
	DefaultBonusTier types.Tier     `mapstructure:"default_bonus_tier"`
	Checkout         CheckoutConfig `mapstructure:"checkout"`
	Portal           PortalConfig   `mapstructure:"portal"`
	Sync             SyncConfig     `mapstructure:"sync"`
	// ReadCacheTTL bounds the staleness of getCurrentTier responses
	ReadCacheTTL time.Duration `mapstructure:"read_cache_ttl"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	// Timeout bounds each provider call, retries included
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRateLimitRetries bounds retries on provider rate-limit responses
	MaxRateLimitRetries uint64        `mapstructure:"max_rate_limit_retries"`
	InitialBackoff      time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff          time.Duration `mapstructure:"max_backoff"`
}

// PlanConfig maps billing provider identifiers to one tier
type PlanConfig struct {
	Tier       types.Tier `mapstructure:"tier" validate:"required"`
	PriceIDs   []string   `mapstructure:"price_ids"`
	ProductIDs []string   `mapstructure:"product_ids"`
}

type CheckoutConfig struct {
	SuccessURL string `mapstructure:"success_url"`
	CancelURL  string `mapstructure:"cancel_url"`
}

type PortalConfig struct {
	ReturnURL string `mapstructure:"return_url"`
}

// SyncConfig rate limits the on-demand sync endpoint per tenant
type SyncConfig struct {
	RatePerMinute int `mapstructure:"rate_per_minute"`
	Burst         int `mapstructure:"burst"`
}

func (c *BillingConfig) applyDefaults() {
	if c.Stripe.Timeout == 0 {
		c.Stripe.Timeout = 10 * time.Second
	}
	if c.Stripe.MaxRateLimitRetries == 0 {
		c.Stripe.MaxRateLimitRetries = 3
	}
	if c.Stripe.InitialBackoff == 0 {
		c.Stripe.InitialBackoff = 250 * time.Millisecond
	}
	if c.Stripe.MaxBackoff == 0 {
		c.Stripe.MaxBackoff = 2 * time.Second
	}
	if c.DefaultBonusTier == "" {
		c.DefaultBonusTier = types.TierPro
	}
	if c.Sync.RatePerMinute == 0 {
		c.Sync.RatePerMinute = 6
	}
	if c.Sync.Burst == 0 {
		c.Sync.Burst = 3
	}
	if c.ReadCacheTTL == 0 {
		c.ReadCacheTTL = 30 * time.Second
	}
}

func (c BillingConfig) Validate() error {
	if err := c.DefaultBonusTier.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("billing.default_bonus_tier must name a known tier").
			Mark(ierr.ErrValidation)
	}
	return nil
}
