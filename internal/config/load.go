package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables use the CLASSIFIER_ prefix with
// underscores for nesting (e.g., CLASSIFIER_SERVER_PORT) and take
// precedence over values from the config file.
// Returns a populated Config struct or an error if loading or
// validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file: config.yaml in the working directory.
	// A missing file is fine; a malformed one is not.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("CLASSIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values so the service runs locally with
// only CLASSIFIER_DATABASE_URL and CLASSIFIER_AUTH_JWT_SECRET set.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.max_text_length", 10000)

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("queue.size", 1024)
	v.SetDefault("queue.visibility_timeout", "30s")

	v.SetDefault("worker.count", 4)
	v.SetDefault("worker.max_attempts", 3)
	v.SetDefault("worker.inference_timeout", "10s")
	v.SetDefault("worker.backoff_initial", "500ms")
	v.SetDefault("worker.backoff_max", "30s")

	v.SetDefault("cache.result_ttl", "24h")

	v.SetDefault("scheduler.interval", "1m")
	v.SetDefault("scheduler.stale_task_age", "5m")
	v.SetDefault("scheduler.task_retention", "168h")

	v.SetDefault("inference.provider", "lexicon")
	v.SetDefault("inference.model", "gemini-2.0-flash")
}
