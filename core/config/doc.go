// Package config provides configuration management for repo-sync.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file. Defaults are declared on the struct fields through
// the `default` tag.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key)
//   - Database: record store connection details (mysql or sqlite)
//   - Storage: S3/MinIO credentials for s3:// manifests
//   - Log: Logging level and format
//   - Providers: enabled provider kinds, fetch timeout and API credentials
//   - Reconcile: dry-run, worker count and schedule interval
//
// Nested keys map to environment variables by replacing dots with underscores,
// e.g. providers.github.token is read from PROVIDERS_GITHUB_TOKEN and
// providers.enabled from PROVIDERS_ENABLED (comma separated).
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Providers.Enabled)
package config
