// Package goShop is a client for the storefront backend: persisted session,
// device identity, sign-in/sign-up with OTP verification, wishlist toggling,
// and the banner and product catalog.
//
// A [Client] is assembled with [New] and [Builder.Build]. Client methods are
// safe to call from multiple goroutines; flows returned by the client
// ([AuthFlow], [Wishlist]) guard their own state.
//
// # Architecture boundaries
//
// goShop is the public surface. It exposes [Client], [Builder], [Config], and
// value types (Session, Product, MetricsSnapshot, etc.). Transport, flow state
// machines, audit dispatch and counters live under internal/ and are
// re-exported here as type aliases where callers need them.
//
// # What this package must NOT do
//
//   - Expose the HTTP client, Redis client or storage encoding in its public API.
//   - Perform I/O in Build other than creating the storage directory.
//   - Refresh access tokens; the refresh token is stored and never sent.
package goShop
