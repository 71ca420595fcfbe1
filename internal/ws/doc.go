// Package ws is the session socket layer. Each connection upgrades to
// WebSocket, opens a session, and runs one engine loop. Inbound messages
// carry pointer samples, host events, document snapshots, raster capture
// responses, and control changes; outbound messages carry resolve results,
// status updates, and capture requests.
package ws
