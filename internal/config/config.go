package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Queue     QueueConfig     `mapstructure:"queue"     validate:"required"`
	Worker    WorkerConfig    `mapstructure:"worker"    validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache"     validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Inference InferenceConfig `mapstructure:"inference" validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// MaxTextLength bounds submitted review text; longer submissions
	// are rejected as invalid input before any pipeline work.
	MaxTextLength int `mapstructure:"max_text_length" validate:"required,gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains authentication settings for the API surface.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`

	// TokenLifetimeMinutes bounds how long issued bearer tokens stay
	// valid.
	TokenLifetimeMinutes int `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// QueueConfig contains broker queue settings.
type QueueConfig struct {
	// Size is the buffer capacity of the in-memory broker.
	Size int `mapstructure:"size" validate:"required,gt=0"`

	// VisibilityTimeout is how long a dequeued message stays invisible
	// before it is redelivered if neither acked nor nacked.
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout" validate:"required"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	Count       int `mapstructure:"count"        validate:"required,gt=0"`
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,gt=0"`

	// InferenceTimeout is the hard per-attempt bound on the classifier
	// call, enforced by the worker rather than the classifier.
	InferenceTimeout time.Duration `mapstructure:"inference_timeout" validate:"required"`

	// BackoffInitial and BackoffMax bound the exponential retry delay.
	BackoffInitial time.Duration `mapstructure:"backoff_initial" validate:"required"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"     validate:"required"`
}

// CacheConfig contains result cache settings.
type CacheConfig struct {
	// ResultTTL is how long a computed result stays authoritative for
	// its fingerprint.
	ResultTTL time.Duration `mapstructure:"result_ttl" validate:"required"`
}

// SchedulerConfig contains periodic maintenance settings.
type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"required"`

	// StaleTaskAge is how long a non-terminal task may go untouched
	// before the maintenance reaper recovers it (resets dead workers'
	// running tasks, re-enqueues pending tasks whose message was lost).
	StaleTaskAge time.Duration `mapstructure:"stale_task_age" validate:"required"`

	// TaskRetention is how long terminal tasks are kept before purging.
	TaskRetention time.Duration `mapstructure:"task_retention" validate:"required"`
}

// InferenceConfig contains settings for the classification backend.
type InferenceConfig struct {
	// Provider selects the classifier implementation: "gemini" for the
	// hosted model, "lexicon" for the deterministic local classifier.
	Provider string `mapstructure:"provider" validate:"required,oneof=gemini lexicon"`

	// GeminiAPIKey is required when Provider is "gemini".
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`

	// Model names the hosted model used for classification.
	Model string `mapstructure:"model"`
}
