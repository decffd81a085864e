// Package audit implements async dispatching of diagnostic events: backend
// exchanges with redacted payloads and auth/wishlist outcomes.
//
// # Components
//
//   - [Sink]: interface for event consumers.
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: one structured record per emitted event.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the client and flow functions do.
//
// # What this package must NOT do
//
//   - Block the caller when DropIfFull is set.
//   - Import goShop or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
