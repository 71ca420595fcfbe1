// Package types provides shared data structures for the glint engine.
//
// This package defines the core geometry and signal types used across
// engine components, keeping leaf packages free of cross-dependencies.
//
// Core Types:
//   - Point, Rect, Size: viewport geometry in CSS pixels
//   - PointerSample: raw pointer input, folded and discarded
//   - GazeFrame: relay-broadcast gaze sample, most-recent-wins
//   - FusedPosition: smoothed position + velocity, one per tick
package types
