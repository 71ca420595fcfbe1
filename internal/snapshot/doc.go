// Package snapshot crops full-viewport rasters to the region around a
// dwell point. Pixel capture itself belongs to the privileged host
// surface; this package only receives the raster, measures the true
// pixels-per-CSS-pixel ratio from it, and cuts out a pixel-correct region.
// A capture or permission failure upstream simply yields no snapshot and
// the resolve continues text-only.
package snapshot
