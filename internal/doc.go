// Package internal holds helpers private to goShop, currently the device id
// fingerprint used to tag audit events.
//
// # Sub-packages
//
//   - api: backend HTTP client, wire types and response decoding
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - cliconfig: viper configuration for the goshop command
//   - flows: auth, wishlist and catalog controllers
//   - metrics: lock-free counters and the request latency histogram
//   - output: terminal printer and tables for the goshop command
//
// # What this package must NOT do
//
//   - Export types that appear in the public goShop API.
//   - Be imported by any package outside the goShop module.
package internal
