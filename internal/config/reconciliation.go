package config

import (
	"time"

	"github.com/flexprice/tiersync/internal/types"
)

// ReconciliationConfig controls how webhook-triggered reconciliations run.
// When Async is false they run inline within the webhook request.
type ReconciliationConfig struct {
	Async            bool             `mapstructure:"async"`
	Topic            string           `mapstructure:"topic" default:"tier_reconciliation"`
	PubSub           types.PubSubType `mapstructure:"pubsub" default:"memory" validate:"omitempty,oneof=memory kafka"`
	MaxRetries       int              `mapstructure:"max_retries" default:"3"`
	InitialInterval  time.Duration    `mapstructure:"initial_interval" default:"1s"`
	MaxInterval      time.Duration    `mapstructure:"max_interval" default:"10s"`
	Multiplier       float64          `mapstructure:"multiplier" default:"2.0"`
	MaxElapsedTime   time.Duration    `mapstructure:"max_elapsed_time" default:"2m"`
	DeadLetterTopic  string           `mapstructure:"dead_letter_topic" default:"tier_reconciliation_dlq"`
	ConsumerPoolSize int              `mapstructure:"consumer_pool_size" default:"4"`
}

// SweepConfig controls the periodic reconciliation of stale paid tenants
type SweepConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval" default:"1h"`
	StaleAfter  time.Duration `mapstructure:"stale_after" default:"24h"`
	BatchSize   int           `mapstructure:"batch_size" default:"200"`
	Concurrency int           `mapstructure:"concurrency" default:"4"`
}

func (c *ReconciliationConfig) applyDefaults() {
	if c.Topic == "" {
		c.Topic = "tier_reconciliation"
	}
	if c.PubSub == "" {
		c.PubSub = types.MemoryPubSub
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.InitialInterval == 0 {
		c.InitialInterval = time.Second
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = 10 * time.Second
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	if c.MaxElapsedTime == 0 {
		c.MaxElapsedTime = 2 * time.Minute
	}
	if c.DeadLetterTopic == "" {
		c.DeadLetterTopic = c.Topic + "_dlq"
	}
}

func (c *SweepConfig) applyDefaults() {
	if c.Interval == 0 {
		c.Interval = time.Hour
	}
	if c.StaleAfter == 0 {
		c.StaleAfter = 24 * time.Hour
	}
	if c.BatchSize == 0 {
		c.BatchSize = 200
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
}
