package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/glintlabs/glint/internal/document"
	"github.com/glintlabs/glint/internal/shared/types"
)

// Generic extracts a centered window of visible text lines from an
// ordinary web page, with a block-level fallback when the window is too
// short to be useful.
type Generic struct {
	cfg       Config
	sanitizer *bluemonday.Policy
}

// NewGeneric creates the generic page strategy.
func NewGeneric(cfg Config) *Generic {
	return &Generic{cfg: cfg, sanitizer: bluemonday.StrictPolicy()}
}

// Profile implements Strategy.
func (g *Generic) Profile() document.Profile {
	return document.ProfileGeneric
}

type line struct {
	text string
	midY float64
	rect types.Rect
	idx  int
}

// Resolve implements Strategy.
func (g *Generic) Resolve(doc *document.Snapshot, pt types.Point) *Result {
	lines := g.visibleLines(doc)
	if len(lines) == 0 {
		return g.fallbackBlock(doc)
	}

	center := nearestLine(lines, pt.Y)
	window := windowLines(lines, center, g.cfg.WindowLines)

	texts := make([]string, len(window))
	for i, l := range window {
		texts[i] = l.text
	}
	texts = DedupeLines(texts)
	joined := strings.Join(texts, "\n")

	if len(joined) < g.cfg.MinWindowChars {
		if fb := g.fallbackBlock(doc); fb != nil {
			fb.ContainerRef = containerRefFor(lines, center, pt)
			return fb
		}
	}
	if joined == "" {
		return nil
	}
	return &Result{
		ContainerRef: containerRefFor(lines, center, pt),
		Text:         joined,
	}
}

// visibleLines collects viewport-visible leaf nodes sorted by vertical
// midpoint, with near-duplicates removed.
func (g *Generic) visibleLines(doc *document.Snapshot) []line {
	viewport := doc.ViewportRect()
	lines := make([]line, 0, len(doc.Nodes))
	for i, n := range doc.Nodes {
		text := NormalizeWhitespace(n.Text)
		if text == "" || !n.Rect.Intersects(viewport) {
			continue
		}
		lines = append(lines, line{
			text: text,
			midY: n.Rect.Y + n.Rect.H/2,
			rect: n.Rect,
			idx:  i,
		})
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].midY < lines[j].midY })

	// Drop adjacent near-duplicates after sorting so repeated nav/footer
	// fragments collapse.
	out := lines[:0]
	var prev string
	for _, l := range lines {
		key := normalizeKey(l.text)
		if prev != "" && nearIdentical(prev, key) {
			continue
		}
		prev = key
		out = append(out, l)
	}
	return out
}

// fallbackBlock extracts the nearest large containing block's full text
// from the raw markup.
func (g *Generic) fallbackBlock(doc *document.Snapshot) *Result {
	if doc.HTML == "" {
		return nil
	}
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc.HTML))
	if err != nil {
		return nil
	}
	parsed.Find("script, style, nav, header, footer, aside, iframe").Remove()

	var sel *goquery.Selection
	if main := parsed.Find("main, article").First(); main.Length() > 0 {
		sel = main
	} else if role := parsed.Find("[role='main'], [role='article']").First(); role.Length() > 0 {
		sel = role
	} else if content := parsed.Find("#content, #main, .content, .main").First(); content.Length() > 0 {
		sel = content
	} else {
		sel = parsed.Find("body")
	}

	text := NormalizeWhitespace(g.sanitizer.Sanitize(sel.Text()))
	if text == "" {
		return nil
	}
	return &Result{
		ContainerRef: "block:main",
		Text:         CapText(text, g.cfg.MaxChars),
	}
}

func nearestLine(lines []line, y float64) int {
	best, bestDist := 0, -1.0
	for i, l := range lines {
		d := l.midY - y
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func windowLines(lines []line, center, span int) []line {
	lo := center - span
	if lo < 0 {
		lo = 0
	}
	hi := center + span + 1
	if hi > len(lines) {
		hi = len(lines)
	}
	return lines[lo:hi]
}

func containerRefFor(lines []line, center int, pt types.Point) string {
	// Prefer the node actually under the point; fall back to the nearest
	// line's node.
	for _, l := range lines {
		if l.rect.Contains(pt) {
			return fmt.Sprintf("node:%d", l.idx)
		}
	}
	return fmt.Sprintf("node:%d", lines[center].idx)
}
