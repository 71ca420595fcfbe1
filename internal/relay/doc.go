// Package relay keeps one live gaze channel open for the whole process and
// broadcasts accepted frames to every registered session. When the channel
// drops the relay polls an HTTP fallback at a fixed interval until the next
// reconnect attempt succeeds, so consumers keep receiving samples through
// outages. Delivery is best effort and unbuffered losses are expected; only
// the most recent frame matters.
package relay
