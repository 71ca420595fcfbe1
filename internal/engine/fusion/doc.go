// Package fusion smooths raw pointer and gaze input into a single position
// and velocity estimate.
//
// The tracker keeps two exponential moving averages: one over position and
// one over the instantaneous speed derived from consecutive raw deltas.
// When input goes quiet the velocity estimate is decayed on each tick so a
// motionless pointer is eventually recognized as at rest even though no
// events arrive. A healthy gaze stream supersedes pointer input entirely;
// it is latched unavailable on malformed or low-confidence frames.
package fusion
