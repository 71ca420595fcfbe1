package extract

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/glintlabs/glint/internal/document"
)

//go:embed rules.yaml
var defaultRules []byte

// Ruleset maps URL patterns to content-host profiles. Anything unmatched
// classifies as the generic page profile.
type Ruleset struct {
	Profiles []ProfileRule `yaml:"profiles"`
}

// ProfileRule binds one profile to its URL substring patterns.
type ProfileRule struct {
	Profile  document.Profile `yaml:"profile"`
	Patterns []string         `yaml:"patterns"`
}

// LoadRules parses a ruleset from YAML.
func LoadRules(data []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse classification rules: %w", err)
	}
	return &rs, nil
}

// DefaultRules returns the embedded ruleset.
func DefaultRules() *Ruleset {
	rs, err := LoadRules(defaultRules)
	if err != nil {
		// The embedded ruleset is validated by tests; an unparsable one is
		// a build defect. Fall back to generic-only classification.
		return &Ruleset{}
	}
	return rs
}

// RulesFromFile loads an override ruleset from disk, falling back to the
// embedded default when path is empty.
func RulesFromFile(path string) (*Ruleset, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classification rules: %w", err)
	}
	return LoadRules(data)
}

// Classify resolves a profile for the document. URL patterns win; when
// none match, the presence of a profile payload decides; otherwise the
// document is a generic page.
func (rs *Ruleset) Classify(doc *document.Snapshot) document.Profile {
	url := strings.ToLower(doc.URL)
	for _, rule := range rs.Profiles {
		for _, pat := range rule.Patterns {
			if pat != "" && strings.Contains(url, strings.ToLower(pat)) {
				return rule.Profile
			}
		}
	}

	switch {
	case doc.Viewer != nil && len(doc.Viewer.Pages) > 0:
		return document.ProfileDocViewer
	case doc.Editor != nil && len(doc.Editor.Paragraphs) > 0:
		return document.ProfileEditor
	case doc.Slides != nil && len(doc.Slides.Shapes) > 0:
		return document.ProfileSlides
	}
	return document.ProfileGeneric
}
