// Package session owns per-connection context: the session identity, the
// enable/dock flags, the active tab, and the gaze inbox the relay feeds.
// Durable fields (enabled, docked) persist per user through a small
// key-value store so a reconnecting client resumes where it left off.
package session
