// Package logging provides a minimal logging interface and adapters for AutoMesh.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the engine, tenant registry and loader use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - AutoMeshLogger with contextual helpers (tenant, execution, component)
//     and domain specific logging helpers for actions, automation runs and
//     quota breaches
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	engine := automation.New(func(o *automation.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
