package search

import (
	"regexp"
	"strings"
)

// MaxQueryWords is the word budget for generated queries.
const MaxQueryWords = 12

var (
	urlRe       = regexp.MustCompile(`https?://\S+|www\.\S+`)
	markerRe    = regexp.MustCompile("[#*_`>|\\[\\]{}<>]+")
	sentenceRe  = regexp.MustCompile(`[.!?\n]+`)
	queryWsRe   = regexp.MustCompile(`\s+`)
	nonLetterRe = regexp.MustCompile(`^[^\p{L}\p{N}]+$`)
)

// stopwords is the token set excluded from keyword-density scoring.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"a an and are as at be but by for from has have i in is it its of on " +
			"or that the this to was were will with you your we they he she them " +
			"his her our us not no do does did so if then than there here what " +
			"which who whom when where why how all any both each more most other " +
			"some such only own same can could should would may might must shall") {
		stopwords[w] = struct{}{}
	}
}

// BuildQuery turns extracted text into a short search query: structural
// markers and URLs stripped, sentences scored by keyword density, and the
// best sentence truncated to the word budget. Empty when nothing scoreable
// remains.
func BuildQuery(text string) string {
	cleaned := urlRe.ReplaceAllString(text, " ")
	cleaned = markerRe.ReplaceAllString(cleaned, " ")
	cleaned = queryWsRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return ""
	}

	best := ""
	bestScore := -1.0
	for _, sentence := range sentenceRe.Split(cleaned, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if score := keywordDensity(sentence); score > bestScore {
			best, bestScore = sentence, score
		}
	}
	if best == "" {
		return ""
	}

	words := strings.Fields(best)
	if len(words) > MaxQueryWords {
		words = words[:MaxQueryWords]
	}
	return strings.Join(words, " ")
}

// keywordDensity is the ratio of non-stopword tokens to total tokens,
// lightly weighted toward sentences with enough substance to search on.
func keywordDensity(sentence string) float64 {
	tokens := strings.Fields(strings.ToLower(sentence))
	if len(tokens) == 0 {
		return 0
	}
	keywords := 0
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,;:!?()\"'")
		if tok == "" || nonLetterRe.MatchString(tok) {
			continue
		}
		if _, stop := stopwords[tok]; !stop {
			keywords++
		}
	}
	density := float64(keywords) / float64(len(tokens))
	if len(tokens) < 3 {
		// Single-word fragments score high on density but make poor
		// queries; scale them down.
		density *= 0.5
	}
	return density
}

// NormalizeQuery canonicalizes query text for cache keying.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}
