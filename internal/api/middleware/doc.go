// Package middleware provides the HTTP middleware stack: CORS for
// extension-origin requests and per-IP token bucket rate limiting.
package middleware
