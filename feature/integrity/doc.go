// Package integrity provides system health checks.
//
// Unlike the 'repository' package which reconciles repository records, this
// package validates the infrastructure the reconciliation depends on.
//
// # Checks Provided
//
//   - Server: Validates that the connected database schema matches the repository models (columns, types).
//   - Storage: Checks that the manifest bucket and its manifests/ folder exist (only when storage is enabled).
//   - Providers: Verifies that every enabled provider kind is registered and can be built.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/server : Runs server schema check.
//   - GET /integrity/storage : Runs storage check (supports ?fix=true).
//   - GET /integrity/providers : Runs providers check.
package integrity
