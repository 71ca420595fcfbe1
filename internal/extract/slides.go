package extract

import (
	"strings"

	"github.com/glintlabs/glint/internal/document"
	"github.com/glintlabs/glint/internal/shared/types"
)

// Slides extracts the nearest shape's embedded text plus presenter notes
// from a slide editor canvas.
type Slides struct {
	cfg Config
}

// NewSlides creates the slide-editor strategy.
func NewSlides(cfg Config) *Slides {
	return &Slides{cfg: cfg}
}

// Profile implements Strategy.
func (s *Slides) Profile() document.Profile {
	return document.ProfileSlides
}

// Resolve implements Strategy.
func (s *Slides) Resolve(doc *document.Snapshot, pt types.Point) *Result {
	if doc.Slides == nil || len(doc.Slides.Shapes) == 0 {
		return nil
	}

	shape := shapeAt(doc.Slides.Shapes, pt, s.cfg.SearchRadius)
	if shape == nil {
		return nil
	}

	texts := make([]string, 0, len(shape.Texts))
	for _, t := range shape.Texts {
		if n := NormalizeWhitespace(t); n != "" {
			texts = append(texts, n)
		}
	}
	texts = DedupeLines(texts)
	if len(texts) == 0 && NormalizeWhitespace(doc.Slides.Notes) == "" {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(texts, "\n"))
	if notes := NormalizeWhitespace(doc.Slides.Notes); notes != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Notes: ")
		sb.WriteString(notes)
	}

	return &Result{
		ContainerRef: "shape:" + shape.ID,
		Text:         sb.String(),
	}
}

func shapeAt(shapes []document.Shape, pt types.Point, radius float64) *document.Shape {
	for i := range shapes {
		if shapes[i].Rect.Contains(pt) {
			return &shapes[i]
		}
	}
	var best *document.Shape
	bestDist := radius
	for i := range shapes {
		if d := shapes[i].Rect.DistanceTo(pt); d <= bestDist {
			best, bestDist = &shapes[i], d
		}
	}
	return best
}
