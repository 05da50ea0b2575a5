// Package audit dispatches auth workflow events to a sink asynchronously.
//
// # Components
//
//   - [Sink]: event consumer (logger, JSON writer, channel, no-op).
//   - [Dispatcher]: buffered relay with drop-if-full or block-if-full semantics.
//   - [Event]: timestamped record of one register, login, logout or reset outcome.
//
// # What this package must NOT do
//
//   - Decide which events to emit. The Engine does that.
//   - Import fitAuth.
//   - Receive secrets. Events carry identifiers only.
package audit
