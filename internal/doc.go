// Package internal holds helpers private to fitAuth, currently reset token
// generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - logging: structured logger interface and slog adapter
//   - rate: Redis fixed-window counters
//
// # What this package must NOT do
//
//   - Export types that appear in the public fitAuth API.
package internal
