package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"repo-sync/core/database"
	"repo-sync/core/logger"
	"repo-sync/core/server"
	"repo-sync/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage used for manifests.
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the record store.
	Database database.Config `mapstructure:"database"`
	// Providers holds configuration for the repository providers.
	Providers ProvidersConfig `mapstructure:"providers"`
	// Reconcile holds configuration for the reconciliation engine.
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
}

// ProvidersConfig holds the enabled provider set and provider credentials.
type ProvidersConfig struct {
	// Enabled is the ordered list of enabled provider kinds.
	Enabled []string `mapstructure:"enabled" default:"github,yml_remote"`
	// TimeoutSeconds bounds a single fetch.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// GitHub configures the github provider.
	GitHub HostedGitConfig `mapstructure:"github"`
	// GitLab configures the gitlab provider.
	GitLab HostedGitConfig `mapstructure:"gitlab"`
}

// HostedGitConfig holds credentials for a hosted git API.
type HostedGitConfig struct {
	// Token is the API token. Supports ${ENV} expansion.
	Token string `mapstructure:"token" default:""`
	// TokenFile is a file containing the API token, used when Token is empty.
	TokenFile string `mapstructure:"token_file" default:""`
	// BaseURL overrides the API endpoint (enterprise installations).
	BaseURL string `mapstructure:"base_url" default:""`
}

// ReconcileConfig controls reconciliation passes.
type ReconcileConfig struct {
	// DryRun computes plans without applying them.
	DryRun bool `mapstructure:"dry_run" default:"false"`
	// Workers bounds concurrent fetches within one pass.
	Workers int `mapstructure:"workers" default:"4"`
	// Interval is the period of the scheduled pass over all owners. Zero disables it.
	Interval time.Duration `mapstructure:"interval" default:"1h"`
}

// Timeout returns the fetch timeout as a duration.
func (c ProvidersConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// An empty PROVIDERS_ENABLED is a valid, distinct configuration
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Providers.Enabled = cleanList(config.Providers.Enabled)

	return &config, nil
}

// ResolveSecret returns the secret configured inline (with ${ENV} expansion)
// or, when empty, the trimmed content of file.
func ResolveSecret(value, file string) (string, error) {
	if value = strings.TrimSpace(os.ExpandEnv(value)); value != "" {
		return value, nil
	}
	if file == "" {
		return "", nil
	}
	data, err := os.ReadFile(os.ExpandEnv(file))
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// cleanList trims entries and drops blanks. Entries may themselves contain
// commas when the list came from a single environment variable.
func cleanList(in []string) []string {
	out := []string{}
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
