// Package search turns extracted text into a short query and fetches
// supporting links from scraped search providers.
//
// Queries come from the highest keyword-density sentence of the input,
// stripped of URLs and structural markers and truncated to a word budget.
// The primary provider is tried first; a blocked or empty response falls
// through to the secondary. Non-empty result sets are cached per
// normalized query with a TTL; overflow evicts the entry with the lowest
// combined frequency-and-recency score rather than the oldest insertion.
package search
