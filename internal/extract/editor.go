package extract

import (
	"fmt"
	"strings"

	"github.com/glintlabs/glint/internal/document"
	"github.com/glintlabs/glint/internal/shared/types"
)

// Editor extracts the paragraph under the point plus its neighbors from a
// structured-document editor, supplemented with the live selection and any
// hidden input-relay text.
type Editor struct {
	cfg Config
}

// NewEditor creates the structured-editor strategy.
func NewEditor(cfg Config) *Editor {
	return &Editor{cfg: cfg}
}

// Profile implements Strategy.
func (e *Editor) Profile() document.Profile {
	return document.ProfileEditor
}

// Resolve implements Strategy.
func (e *Editor) Resolve(doc *document.Snapshot, pt types.Point) *Result {
	if doc.Editor == nil || len(doc.Editor.Paragraphs) == 0 {
		return nil
	}
	paras := doc.Editor.Paragraphs

	target := paragraphAt(paras, pt, e.cfg.SearchRadius)
	if target < 0 {
		return nil
	}

	lo := target - e.cfg.NeighborParagraphs
	if lo < 0 {
		lo = 0
	}
	hi := target + e.cfg.NeighborParagraphs + 1
	if hi > len(paras) {
		hi = len(paras)
	}

	texts := make([]string, 0, hi-lo)
	for _, p := range paras[lo:hi] {
		if t := NormalizeWhitespace(p.Text); t != "" {
			texts = append(texts, t)
		}
	}
	texts = DedupeLines(texts)
	if len(texts) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(texts, "\n"))
	if sel := NormalizeWhitespace(doc.Selection); sel != "" {
		sb.WriteString("\nSelection: ")
		sb.WriteString(sel)
	}
	if relay := NormalizeWhitespace(doc.Editor.InputRelay); relay != "" {
		sb.WriteString("\nComposing: ")
		sb.WriteString(relay)
	}

	return &Result{
		ContainerRef: fmt.Sprintf("para:%d", paras[target].Index),
		Text:         sb.String(),
	}
}

// paragraphAt resolves the paragraph by containment first, then by nearest
// distance within the bounded search radius. Returns -1 when nothing is
// close enough.
func paragraphAt(paras []document.Paragraph, pt types.Point, radius float64) int {
	for i, p := range paras {
		if p.Rect.Contains(pt) {
			return i
		}
	}
	best, bestDist := -1, radius
	for i, p := range paras {
		if d := p.Rect.DistanceTo(pt); d <= bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
