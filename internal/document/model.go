package document

import (
	"github.com/glintlabs/glint/internal/shared/types"
)

// Profile identifies the kind of content host a session is attached to.
// Classification happens once per session.
type Profile string

const (
	ProfileGeneric   Profile = "generic"
	ProfileDocViewer Profile = "docviewer"
	ProfileEditor    Profile = "editor"
	ProfileSlides    Profile = "slides"
)

// NodeKind tags positioned text nodes by role.
type NodeKind string

const (
	KindText    NodeKind = "text"
	KindLink    NodeKind = "link"
	KindHeading NodeKind = "heading"
)

// TextNode is one visible leaf text node with its viewport-relative
// bounding rectangle.
type TextNode struct {
	Text string     `json:"text"`
	Rect types.Rect `json:"rect"`
	Kind NodeKind   `json:"kind,omitempty"`
}

// PageFragment is one text-layer fragment on a rendered viewer page.
type PageFragment struct {
	Text string     `json:"text"`
	Rect types.Rect `json:"rect"`
}

// PageView is one rendered page of a paginated viewer.
type PageView struct {
	Number    int            `json:"number"`
	Rect      types.Rect     `json:"rect"`
	Fragments []PageFragment `json:"fragments"`
}

// OutlineEntry is one entry of the viewer's document outline.
type OutlineEntry struct {
	Title string `json:"title"`
	Page  int    `json:"page"`
	Level int    `json:"level"`
}

// Annotation is a link or note annotation on a viewer page.
type Annotation struct {
	Label string     `json:"label"`
	URL   string     `json:"url,omitempty"`
	Page  int        `json:"page"`
	Rect  types.Rect `json:"rect"`
}

// ViewerPayload carries paginated-viewer structure alongside the page HTML.
type ViewerPayload struct {
	Pages       []PageView        `json:"pages"`
	Outline     []OutlineEntry    `json:"outline,omitempty"`
	Annotations []Annotation      `json:"annotations,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Paragraph is one paragraph-level node of a structured-document editor.
type Paragraph struct {
	Index int        `json:"index"`
	Text  string     `json:"text"`
	Rect  types.Rect `json:"rect"`
}

// EditorPayload carries structured-editor content.
type EditorPayload struct {
	Paragraphs []Paragraph `json:"paragraphs"`
	// InputRelay is text mirrored from the editor's hidden input relay,
	// when the host exposes one.
	InputRelay string `json:"input_relay,omitempty"`
}

// Shape is one shape or text container on a slide canvas.
type Shape struct {
	ID    string     `json:"id"`
	Rect  types.Rect `json:"rect"`
	Texts []string   `json:"texts"`
}

// SlidesPayload carries slide-editor content.
type SlidesPayload struct {
	Shapes []Shape `json:"shapes"`
	Notes  string  `json:"notes,omitempty"`
}

// Snapshot is the client-shipped view of the active document at a moment
// in time. Strategies read it; nothing here is persisted.
type Snapshot struct {
	URL      string     `json:"url"`
	Title    string     `json:"title"`
	Viewport types.Size `json:"viewport"`
	ScrollX  float64    `json:"scroll_x"`
	ScrollY  float64    `json:"scroll_y"`

	// HTML is the raw serialized markup of the active document, used for
	// block-level fallbacks and outline recovery.
	HTML string `json:"html,omitempty"`

	// Nodes are the positioned visible leaf text nodes.
	Nodes []TextNode `json:"nodes,omitempty"`

	// Selection is the live text selection, if any.
	Selection string `json:"selection,omitempty"`

	Viewer *ViewerPayload `json:"viewer,omitempty"`
	Editor *EditorPayload `json:"editor,omitempty"`
	Slides *SlidesPayload `json:"slides,omitempty"`
}

// ViewportRect returns the viewport as a rectangle at origin.
func (s *Snapshot) ViewportRect() types.Rect {
	return types.Rect{X: 0, Y: 0, W: s.Viewport.Width, H: s.Viewport.Height}
}
