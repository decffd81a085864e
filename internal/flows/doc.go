// Package flows contains the client-side state machines behind the storefront:
// the sign-in/sign-up flow with OTP verification, the wishlist toggle, and the
// catalog fetchers.
//
// Flows take a typed dependency struct and never perform I/O directly; the
// backend, session and device identity are reached through the interfaces in
// deps.go. Timers go through Clock so tests can drive countdowns with
// ManualClock.
//
// # What this package must NOT do
//
//   - Import goShop (to avoid import cycles).
//   - Hold the flow lock across a network call.
//   - Update the wishlist index before the backend confirmed the change.
package flows
