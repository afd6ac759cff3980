// Package repository implements the repository synchronization feature.
//
// Owners declare a list of repository URLs. The feature validates them against
// the enabled providers, stores them, and keeps one repository record per
// fetched repository through the core/reconcile engine.
//
// # Components
//
//   - GormStore: record and declared URL persistence (implements reconcile.Store).
//   - Service: validation, URL submission, per-owner passes and the scheduler.
//   - Handler: HTTP endpoints.
//   - RegisterProviders: wires the github, gitlab and yml_remote providers.
//
// # HTTP Endpoints
//
//   - GET  /repositories/formats : Accepted URL formats.
//   - POST /repositories/validate : Validate URLs without saving.
//   - GET  /owners/:owner/urls : Declared URLs.
//   - PUT  /owners/:owner/urls : Replace declared URLs and reconcile.
//   - GET  /owners/:owner/repositories : Stored repositories.
//   - POST /owners/:owner/reconcile : Run a pass (supports ?dry_run=true).
//   - GET  /events : Recent created/updated/deleted events.
package repository
