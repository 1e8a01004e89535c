// Package shutdown provides graceful shutdown for Snapfold.
//
// This package handles process termination signals:
//
//   - Signal handling (SIGINT, SIGTERM)
//   - Timeout-based forced shutdown
//   - Cleanup callback registration
//   - Shutdown coordination
//
// Usage:
//
//	h := shutdown.NewHandler(30 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return srv.Stop(ctx) })
//	err := h.Wait() // blocks until SIGINT/SIGTERM or Trigger
package shutdown
