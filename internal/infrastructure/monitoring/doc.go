// Package monitoring collects Prometheus metrics: HTTP requests, session
// lifecycle, resolve outcomes and stage durations, relay state, search
// cache hits, and WebSocket traffic. Expose them with promhttp on /metrics.
package monitoring
