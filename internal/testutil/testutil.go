// Package testutil provides shared fixtures for unit tests:
//   - a small maintenance dataset and a pipeline built over it (maintenance.go)
//   - miniredis helpers for cache tests (miniredis.go)
package testutil
