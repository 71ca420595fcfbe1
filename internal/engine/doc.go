// Package engine runs one cooperative loop per session. The loop folds
// pointer samples and relayed gaze frames into the fusion tracker, ticks
// the dwell detector at a fixed interval, and on a resolved dwell gates the
// event through the cooldown registry, extracts context at the point, and
// drives the remote orchestration chain. At most one chain is in flight per
// session; the loop itself never blocks on network calls.
package engine
