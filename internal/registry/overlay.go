package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chemo-dose-safety/internal/domain"
)

// Overlay is a data-only addition to the built-in tables. Contraindication
// predicates are code and cannot be supplied this way.
type Overlay struct {
	Aliases        map[string]string              `yaml:"aliases"`
	SolventAliases map[string]string              `yaml:"solvent_aliases"`
	Limits         []domain.DoseLimit             `yaml:"limits"`
	Concentration  []domain.ConcentrationRule     `yaml:"concentration"`
	Solvents       []domain.SolventRule           `yaml:"solvents"`
	Interactions   []domain.DrugInteraction       `yaml:"interactions"`
	Prerequisites  []domain.BiomarkerPrerequisite `yaml:"prerequisites"`
	AgeSensitive   []string                       `yaml:"age_sensitive"`
	Cardiotoxic    []string                       `yaml:"cardiotoxic"`
	Nephrotoxic    map[string]float64             `yaml:"nephrotoxic"`
}

// LoadOverlay reads an overlay file. Unknown keys are rejected so a misspelt
// table name does not silently drop data.
func LoadOverlay(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry overlay: %w", err)
	}
	return ParseOverlay(data)
}

// ParseOverlay decodes overlay YAML.
func ParseOverlay(data []byte) (*Overlay, error) {
	var ov Overlay
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ov); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse registry overlay: %w", err)
	}
	return &ov, nil
}

// Apply folds an overlay into the builder. Aliases are applied first so the
// remaining entries resolve to canonical names.
func (b *Builder) Apply(ov *Overlay) *Builder {
	if ov == nil {
		return b
	}
	for alias, canonical := range ov.Aliases {
		b.Alias(alias, canonical)
	}
	for alias, canonical := range ov.SolventAliases {
		b.SolventAlias(alias, canonical)
	}
	for _, l := range ov.Limits {
		b.Limit(l)
	}
	for _, c := range ov.Concentration {
		b.Concentration(c)
	}
	for _, s := range ov.Solvents {
		b.Solvent(s)
	}
	for _, d := range ov.Interactions {
		b.Interaction(d)
	}
	for _, p := range ov.Prerequisites {
		b.Prerequisite(p)
	}
	b.AgeSensitive(ov.AgeSensitive...)
	b.Cardiotoxic(ov.Cardiotoxic...)
	for drug, threshold := range ov.Nephrotoxic {
		b.Nephrotoxic(drug, threshold)
	}
	return b
}

// Load returns the built-in registry, extended by the overlay at path when
// path is not empty.
func Load(overlayPath string) (*Registry, error) {
	if overlayPath == "" {
		return Default(), nil
	}
	ov, err := LoadOverlay(overlayPath)
	if err != nil {
		return nil, err
	}
	reg, err := NewBuilder().WithDefaults().Apply(ov).Build()
	if err != nil {
		return nil, fmt.Errorf("invalid registry overlay %s: %w", overlayPath, err)
	}
	return reg, nil
}
