// Package utils provides common utility functions for repo-sync.
// It includes helpers for loose type conversion, used when decoding
// hand-written manifest files and query parameters.
package utils
