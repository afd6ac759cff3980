// Package server holds the HTTP server configuration.
//
// While the start command handles the server startup, this package defines the
// configuration structure for the HTTP surface: listen port, API key and the
// number of recent notification events exposed by the API.
//
// # Usage
//
// This package is primarily used by the core/config package to embed server
// settings and by the start command to build the listen address.
package server
