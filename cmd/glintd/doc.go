// Package main is the entry point for the glint context-resolution daemon.
//
// The daemon accepts websocket sessions from browser clients, fuses pointer
// and gaze positions, detects dwell, extracts page context at the dwell
// point, and drives the two-stage capture/reasoning chain against the
// remote orchestration endpoints.
//
// Configuration:
//   - Environment variables (GLINT_ prefix)
//   - CLI flags (override env vars)
//   - Defaults for local development
//
// Usage:
//
//	./glintd -port 8400 -gaze ws://localhost:9100/gaze
//
//	# Development mode (colored logs, debug level)
//	./glintd -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
