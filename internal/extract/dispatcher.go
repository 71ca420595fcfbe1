package extract

import (
	"time"

	"go.uber.org/zap"

	"github.com/glintlabs/glint/internal/document"
	"github.com/glintlabs/glint/internal/logging"
	"github.com/glintlabs/glint/internal/shared/types"
)

// Result is the outcome of one resolve attempt. A nil Result is the normal
// empty outcome, never an error.
type Result struct {
	// ContainerRef identifies the anchoring container (node index,
	// paragraph index, page/row, shape id). Used for cooldown keying.
	ContainerRef string
	Text         string
	Profile      document.Profile
}

// Strategy extracts content around a point for one content-host profile.
type Strategy interface {
	Profile() document.Profile
	Resolve(doc *document.Snapshot, pt types.Point) *Result
}

// Config tunes the extraction strategies.
type Config struct {
	// WindowLines is the number of context lines kept on each side of the
	// line nearest the point.
	WindowLines int
	// MinWindowChars triggers the block-level fallback when the centered
	// window comes up shorter.
	MinWindowChars int
	// MaxChars caps every strategy's output.
	MaxChars int
	// NeighborParagraphs is the editor strategy's context on each side.
	NeighborParagraphs int
	// SearchRadius bounds nearest-container searches, in CSS pixels.
	SearchRadius float64
	// RowTolerance groups same-row viewer fragments, in CSS pixels.
	RowTolerance float64
}

// DefaultConfig returns the production extraction settings.
func DefaultConfig() Config {
	return Config{
		WindowLines:        6,
		MinWindowChars:     80,
		MaxChars:           2000,
		NeighborParagraphs: 2,
		SearchRadius:       200,
		RowTolerance:       4,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WindowLines <= 0 {
		c.WindowLines = def.WindowLines
	}
	if c.MinWindowChars <= 0 {
		c.MinWindowChars = def.MinWindowChars
	}
	if c.MaxChars <= 0 {
		c.MaxChars = def.MaxChars
	}
	if c.NeighborParagraphs <= 0 {
		c.NeighborParagraphs = def.NeighborParagraphs
	}
	if c.SearchRadius <= 0 {
		c.SearchRadius = def.SearchRadius
	}
	if c.RowTolerance <= 0 {
		c.RowTolerance = def.RowTolerance
	}
	return c
}

// Dispatcher classifies the content host once per session and delegates
// every resolve to the matching strategy.
type Dispatcher struct {
	cfg      Config
	rules    *Ruleset
	log      *logging.Logger
	strategy Strategy
}

// NewDispatcher creates a dispatcher with the given rules. A nil ruleset
// uses the embedded default.
func NewDispatcher(cfg Config, rules *Ruleset, log *logging.Logger) *Dispatcher {
	if rules == nil {
		rules = DefaultRules()
	}
	if log == nil {
		log = logging.NewDefault()
	}
	return &Dispatcher{cfg: cfg.withDefaults(), rules: rules, log: log}
}

// Profile returns the classified profile, or empty before classification.
func (d *Dispatcher) Profile() document.Profile {
	if d.strategy == nil {
		return ""
	}
	return d.strategy.Profile()
}

// Resolve extracts content around the point. The first call classifies the
// host and pins the strategy for the session lifetime.
func (d *Dispatcher) Resolve(doc *document.Snapshot, pt types.Point) *Result {
	if doc == nil || !pt.Valid() {
		return nil
	}
	if d.strategy == nil {
		profile := d.rules.Classify(doc)
		d.strategy = d.newStrategy(profile)
		d.log.Info("content host classified",
			zap.String("profile", string(profile)),
			zap.String("url", doc.URL))
	}

	start := time.Now()
	res := d.strategy.Resolve(doc, pt)
	if res == nil {
		d.log.Debug("extraction empty",
			zap.String("profile", string(d.strategy.Profile())),
			zap.Duration("took", time.Since(start)))
		return nil
	}
	res.Text = CapText(res.Text, d.cfg.MaxChars)
	res.Profile = d.strategy.Profile()
	return res
}

func (d *Dispatcher) newStrategy(profile document.Profile) Strategy {
	switch profile {
	case document.ProfileDocViewer:
		return NewDocViewer(d.cfg)
	case document.ProfileEditor:
		return NewEditor(d.cfg)
	case document.ProfileSlides:
		return NewSlides(d.cfg)
	default:
		return NewGeneric(d.cfg)
	}
}
