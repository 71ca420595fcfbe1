package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antchfx/htmlquery"

	"github.com/glintlabs/glint/internal/document"
	"github.com/glintlabs/glint/internal/shared/types"
)

// DocViewer extracts a centered window of text-layer lines from a
// paginated document viewer, supplemented with annotation summaries and
// outline-derived section titles.
type DocViewer struct {
	cfg Config
}

// NewDocViewer creates the paginated-viewer strategy.
func NewDocViewer(cfg Config) *DocViewer {
	return &DocViewer{cfg: cfg}
}

// Profile implements Strategy.
func (v *DocViewer) Profile() document.Profile {
	return document.ProfileDocViewer
}

// Resolve implements Strategy.
func (v *DocViewer) Resolve(doc *document.Snapshot, pt types.Point) *Result {
	if doc.Viewer == nil {
		return v.fallback(doc, nil)
	}

	page := pageAt(doc.Viewer.Pages, pt)
	if page == nil {
		return v.fallback(doc, doc.Viewer)
	}

	rows := groupRows(page.Fragments, v.cfg.RowTolerance)
	if len(rows) == 0 {
		return v.fallback(doc, doc.Viewer)
	}

	center := nearestRow(rows, pt.Y)
	lo := center - v.cfg.WindowLines
	if lo < 0 {
		lo = 0
	}
	hi := center + v.cfg.WindowLines + 1
	if hi > len(rows) {
		hi = len(rows)
	}

	texts := make([]string, 0, hi-lo)
	for _, r := range rows[lo:hi] {
		texts = append(texts, r.text)
	}
	texts = DedupeLines(texts)
	if len(texts) == 0 {
		return v.fallback(doc, doc.Viewer)
	}

	var sb strings.Builder
	if title := sectionTitle(doc, page.Number); title != "" {
		sb.WriteString("Section: ")
		sb.WriteString(title)
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Join(texts, "\n"))
	if summary := annotationSummary(doc.Viewer.Annotations, page.Number); summary != "" {
		sb.WriteString("\n")
		sb.WriteString(summary)
	}

	return &Result{
		ContainerRef: fmt.Sprintf("page:%d:row:%d", page.Number, center),
		Text:         sb.String(),
	}
}

// fallback walks the degradation chain: selection, document metadata,
// page title. Nil when nothing usable remains.
func (v *DocViewer) fallback(doc *document.Snapshot, viewer *document.ViewerPayload) *Result {
	if sel := NormalizeWhitespace(doc.Selection); sel != "" {
		return &Result{ContainerRef: "selection", Text: sel}
	}
	if viewer != nil {
		if meta := metadataSummary(viewer.Metadata); meta != "" {
			return &Result{ContainerRef: "metadata", Text: meta}
		}
	}
	if title := NormalizeWhitespace(doc.Title); title != "" {
		return &Result{ContainerRef: "title", Text: title}
	}
	return nil
}

type row struct {
	text string
	midY float64
}

// groupRows merges fragments whose vertical midpoints fall within the row
// tolerance into single lines, ordered top to bottom.
func groupRows(frags []document.PageFragment, tolerance float64) []row {
	type frag struct {
		text string
		x    float64
		midY float64
	}
	fs := make([]frag, 0, len(frags))
	for _, f := range frags {
		text := NormalizeWhitespace(f.Text)
		if text == "" {
			continue
		}
		fs = append(fs, frag{text: text, x: f.Rect.X, midY: f.Rect.Y + f.Rect.H/2})
	}
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].midY != fs[j].midY {
			return fs[i].midY < fs[j].midY
		}
		return fs[i].x < fs[j].x
	})

	var rows []row
	for _, f := range fs {
		if n := len(rows); n > 0 && f.midY-rows[n-1].midY <= tolerance {
			rows[n-1].text += " " + f.text
			continue
		}
		rows = append(rows, row{text: f.text, midY: f.midY})
	}
	return rows
}

func nearestRow(rows []row, y float64) int {
	best, bestDist := 0, -1.0
	for i, r := range rows {
		d := r.midY - y
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func pageAt(pages []document.PageView, pt types.Point) *document.PageView {
	for i := range pages {
		if pages[i].Rect.Contains(pt) {
			return &pages[i]
		}
	}
	return nil
}

// sectionTitle returns the outline entry governing the page: the nearest
// entry at or before it. When the payload carries no outline, the viewer
// markup's outline panel is consulted.
func sectionTitle(doc *document.Snapshot, pageNum int) string {
	if doc.Viewer != nil && len(doc.Viewer.Outline) > 0 {
		var best *document.OutlineEntry
		for i := range doc.Viewer.Outline {
			e := &doc.Viewer.Outline[i]
			if e.Page <= pageNum && (best == nil || e.Page >= best.Page) {
				best = e
			}
		}
		if best != nil {
			return NormalizeWhitespace(best.Title)
		}
	}
	return outlineTitleFromHTML(doc.HTML)
}

// outlineTitleFromHTML recovers the first outline item from the viewer's
// sidebar markup when the structured payload is missing.
func outlineTitleFromHTML(html string) string {
	if html == "" {
		return ""
	}
	root, err := htmlquery.Parse(strings.NewReader(html))
	if err != nil {
		return ""
	}
	node := htmlquery.FindOne(root, "//*[contains(@class,'outlineItem')]//a")
	if node == nil {
		return ""
	}
	return NormalizeWhitespace(htmlquery.InnerText(node))
}

func annotationSummary(anns []document.Annotation, pageNum int) string {
	var parts []string
	for _, a := range anns {
		if a.Page != pageNum {
			continue
		}
		label := NormalizeWhitespace(a.Label)
		if label == "" {
			continue
		}
		if a.URL != "" {
			parts = append(parts, label+" ("+a.URL+")")
		} else {
			parts = append(parts, label)
		}
		if len(parts) >= 5 {
			break
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Links: " + strings.Join(parts, "; ")
}

func metadataSummary(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	var parts []string
	for _, key := range []string{"title", "subject", "author"} {
		if v := NormalizeWhitespace(meta[key]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " - ")
}
