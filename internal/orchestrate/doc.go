// Package orchestrate drives the two-stage remote reasoning chain that
// follows a resolved dwell.
//
// Each run is a short-lived state machine: Capturing -> Reasoning ->
// Done/Failed. Both stages carry their own hard deadline (capture ~10s,
// reasoning ~30s) and success requires the transport to succeed, the
// envelope to be explicitly flagged successful, and the payload to carry
// the expected structure. Either stage failing aborts the chain with one
// surfaced status message; the next qualifying dwell event is the only
// retry path.
//
// On success the orchestrator derives a secondary query from the
// reasoning output, fetches supporting links through the search fallback
// client, renders the tabbed result, and persists a structured notebook
// entry asynchronously. The persist is fire-and-forget: its failure
// produces a status message and nothing else.
package orchestrate
