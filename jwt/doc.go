// Package jwt inspects access tokens issued by the storefront backend.
//
// The client does not own the signing key, so tokens are decoded without
// verification unless a verification key is configured. Decoded claims are
// used for display (subject, expiry) only and never to grant access.
package jwt
