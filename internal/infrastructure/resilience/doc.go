// Package resilience provides the circuit breaker guarding the engine's
// remote collaborators: the capture and reasoning endpoints, the notebook
// sink, and the scraped search providers.
//
// The breaker never retries; retry policy for the dwell pipeline is "the
// next qualifying dwell event". Its job is purely to fail fast during
// sustained outages so the cooperative loop never queues up doomed calls.
package resilience
