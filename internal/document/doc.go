// Package document defines the client-shipped view of the active content
// host: positioned text nodes, raw markup, and the profile-specific
// payloads (viewer pages, editor paragraphs, slide shapes) that extraction
// strategies read. Snapshots are transient; they live for the duration of
// one resolve attempt and are replaced wholesale by the next one.
package document
