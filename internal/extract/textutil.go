package extract

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeWhitespace collapses runs of whitespace into single spaces and
// trims the result.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// normalizeKey lowers and collapses a line for near-duplicate comparison.
func normalizeKey(s string) string {
	return strings.ToLower(NormalizeWhitespace(s))
}

// DedupeLines removes repeated and near-identical lines while preserving
// order. Two lines are near-identical when their normalized forms match or
// one is a prefix of the other within a few characters.
func DedupeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	var prevKey string
	for _, line := range lines {
		key := normalizeKey(line)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		if prevKey != "" && nearIdentical(prevKey, key) {
			continue
		}
		seen[key] = struct{}{}
		prevKey = key
		out = append(out, NormalizeWhitespace(line))
	}
	return out
}

func nearIdentical(a, b string) bool {
	if a == b {
		return true
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) < 8 {
		return false
	}
	return strings.HasPrefix(longer, shorter) && len(longer)-len(shorter) <= 3
}

// CapText truncates text to max characters at a word boundary.
func CapText(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndexByte(cut, ' '); idx > max/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

// WindowAround returns lines[center-before : center+after+1] clamped to
// the slice bounds.
func WindowAround(lines []string, center, before, after int) []string {
	if len(lines) == 0 {
		return nil
	}
	if center < 0 {
		center = 0
	}
	if center >= len(lines) {
		center = len(lines) - 1
	}
	lo := center - before
	if lo < 0 {
		lo = 0
	}
	hi := center + after + 1
	if hi > len(lines) {
		hi = len(lines)
	}
	return lines[lo:hi]
}
