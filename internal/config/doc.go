// Package config loads and validates application configuration from
// environment variables (prefix CLASSIFIER_) and an optional config
// file, using viper for loading and go-playground/validator for
// struct-level validation.
package config
