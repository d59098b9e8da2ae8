package schema

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var registryYAML []byte

// SectionRules lists the required and recommended fields of one sidecar
// section for a given category.
type SectionRules struct {
	Required    []string `yaml:"required"`
	Recommended []string `yaml:"recommended"`
}

// Category describes one data category: its file extensions, whether a
// sidecar must be resolvable, whether its files carry a single observation
// row, and its per-section field rules.
type Category struct {
	Extensions        []string                `yaml:"extensions"`
	SidecarRequired   bool                    `yaml:"sidecar_required"`
	SingleObservation bool                    `yaml:"single_observation"`
	Sections          map[string]SectionRules `yaml:"sections"`
}

// Registry is the versioned, immutable rule set the validation engine
// evaluates against. Build one with Load; do not construct literals outside
// tests.
type Registry struct {
	Version             string              `yaml:"version"`
	DefaultLanguage     string              `yaml:"default_language"`
	ParticipantPattern  string              `yaml:"participant_pattern"`
	RootFiles           []string            `yaml:"root_files"`
	DescriptionRequired []string            `yaml:"description_required"`
	Sections            []string            `yaml:"sections"`
	Categories          map[string]Category `yaml:"categories"`
	Datatypes           []string            `yaml:"datatypes"`

	participantRe *regexp.Regexp
}

// Load parses the embedded rule document into a Registry.
func Load() (*Registry, error) {
	return Parse(registryYAML)
}

// MustLoad is Load for program initialization paths where the embedded
// document is known-good. Panics on parse failure.
func MustLoad() *Registry {
	r, err := Load()
	if err != nil {
		panic(fmt.Sprintf("schema: embedded registry invalid: %v", err))
	}
	return r
}

// Parse builds a Registry from a YAML rule document.
func Parse(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	if r.Version == "" {
		return nil, fmt.Errorf("parse registry: version is required")
	}
	if len(r.RootFiles) == 0 {
		return nil, fmt.Errorf("parse registry: at least one root file is required")
	}

	re, err := regexp.Compile(r.ParticipantPattern)
	if err != nil {
		return nil, fmt.Errorf("parse registry: participant_pattern: %w", err)
	}
	r.participantRe = re

	return &r, nil
}

// ValidParticipantID reports whether an identifier matches the participant
// pattern.
func (r *Registry) ValidParticipantID(id string) bool {
	return r.participantRe.MatchString(id)
}

// LookupCategory returns the category rules for a filename suffix.
func (r *Registry) LookupCategory(suffix string) (Category, bool) {
	cat, ok := r.Categories[suffix]
	return cat, ok
}

// CategorySuffixes returns the known category suffixes in sorted order.
func (r *Registry) CategorySuffixes() []string {
	suffixes := make([]string, 0, len(r.Categories))
	for s := range r.Categories {
		suffixes = append(suffixes, s)
	}
	sort.Strings(suffixes)
	return suffixes
}

// ValidDatatype reports whether a declared item datatype is in the
// vocabulary. An empty declaration is valid (type checking is skipped).
func (r *Registry) ValidDatatype(t string) bool {
	if t == "" {
		return true
	}
	for _, known := range r.Datatypes {
		if known == t {
			return true
		}
	}
	return false
}

// ValidExtension reports whether ext is allowed for the category.
func (c Category) ValidExtension(ext string) bool {
	for _, e := range c.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
