// Package dwell detects sustained attention at a point.
//
// The Detector is a three-state machine (Idle -> Anchored -> Resolved) fed
// one fused position per tick. An anchor survives only while every sample
// stays within the configured radius; a resolve requires both the dwell
// duration and a velocity below the rest threshold. Scroll, text-input
// focus, overlay hover, and disable are hard resets regardless of radius.
//
// The CooldownRegistry is deliberately separate from the state machine: it
// suppresses repeat resolves for the same region bucket or anchor element
// across anchor resets, and doubles as the re-entry guard while an
// orchestration chain is in flight.
package dwell
