// Package extract resolves the content around a dwell point.
//
// The Dispatcher classifies the active content host once per session
// (URL-pattern rules, then payload shape) into one of four profiles and
// pins the matching Strategy:
//
//   - Generic: centered window of visible leaf text lines, block fallback
//   - DocViewer: text-layer rows on the page under the point, plus
//     annotation summaries and outline section titles
//   - Editor: paragraph under the point with neighbors, selection, and
//     input-relay text
//   - Slides: nearest shape's embedded text and presenter notes
//
// Every strategy caps output, de-duplicates repeated fragments, bounds its
// spatial searches, and returns nil instead of an error when nothing
// usable is found: an empty extraction is a normal outcome.
package extract
