// Package catalog ingests caller-supplied regimen and case files. Dosing text is
// converted into tagged domain.DoseFormula values here, once, so nothing
// downstream parses text.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chemo-dose-safety/internal/domain"
	"github.com/chemo-dose-safety/pkg/dosetext"
)

// Format of an input document
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the decoder from the file extension. Anything that is
// not .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// DrugEntry is one drug line as written in a regimen file
type DrugEntry struct {
	Drug     string    `json:"drug" yaml:"drug"`
	Dose     string    `json:"dose" yaml:"dose"`
	Unit     string    `json:"unit" yaml:"unit"`
	Route    string    `json:"route,omitempty" yaml:"route,omitempty"`
	Solvents []string  `json:"solvents,omitempty" yaml:"solvents,omitempty"`
	Volumes  []float64 `json:"volumes,omitempty" yaml:"volumes,omitempty"`
	Schedule string    `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// Regimen is a named list of drug entries. Schedule applies to entries that do
// not carry their own.
type Regimen struct {
	Name       string      `json:"name" yaml:"name"`
	Indication string      `json:"indication,omitempty" yaml:"indication,omitempty"`
	Schedule   string      `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Cycles     int         `json:"cycles,omitempty" yaml:"cycles,omitempty"`
	Drugs      []DrugEntry `json:"drugs" yaml:"drugs"`
}

// Validate checks the structural fields. Dosing text is not validated here:
// bad text becomes an invalid formula with an attached message.
func (r Regimen) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return domain.NewValidationError("name", "regimen name is required", r.Name)
	}
	if len(r.Drugs) == 0 {
		return domain.NewValidationError("drugs", "regimen has no drugs", r.Name)
	}
	for i, d := range r.Drugs {
		if strings.TrimSpace(d.Drug) == "" {
			return domain.NewValidationError(fmt.Sprintf("drugs[%d].drug", i), "drug name is required", r.Name)
		}
		if strings.TrimSpace(d.Unit) == "" && !strings.HasPrefix(strings.ToLower(strings.TrimSpace(d.Dose)), "auc") {
			return domain.NewValidationError(fmt.Sprintf("drugs[%d].unit", i), "unit is required", d.Drug)
		}
	}
	return nil
}

// Specifications converts the entries into dose specifications
func (r Regimen) Specifications() []domain.DoseSpecification {
	specs := make([]domain.DoseSpecification, 0, len(r.Drugs))
	for _, d := range r.Drugs {
		schedule := d.Schedule
		if schedule == "" {
			schedule = r.Schedule
		}
		specs = append(specs, domain.DoseSpecification{
			Drug:     strings.TrimSpace(d.Drug),
			Formula:  dosetext.Parse(d.Drug, d.Dose, domain.DoseUnit(strings.TrimSpace(d.Unit))),
			Route:    d.Route,
			Solvents: append([]string(nil), d.Solvents...),
			Volumes:  append([]float64(nil), d.Volumes...),
			Schedule: schedule,
		})
	}
	return specs
}

// document is the on-disk layout of a regimen file
type document struct {
	Regimens []Regimen `json:"regimens" yaml:"regimens"`
}

// Catalog is a read-only set of regimens keyed by normalized name
type Catalog struct {
	regimens map[string]Regimen
}

// Load reads a regimen file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read regimen catalog: %w", err)
	}
	return Parse(data, FormatFromPath(path))
}

// Parse decodes and validates a regimen document
func Parse(data []byte, format Format) (*Catalog, error) {
	var doc document
	if err := decode(data, format, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse regimen catalog: %w", err)
	}

	c := &Catalog{regimens: make(map[string]Regimen, len(doc.Regimens))}
	for _, r := range doc.Regimens {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("invalid regimen %q: %w", r.Name, err)
		}
		key := domain.NormalizeKey(r.Name)
		if _, dup := c.regimens[key]; dup {
			return nil, fmt.Errorf("duplicate regimen %q", r.Name)
		}
		c.regimens[key] = r
	}
	return c, nil
}

// Get returns a regimen by name, ignoring case and punctuation
func (c *Catalog) Get(name string) (Regimen, bool) {
	r, ok := c.regimens[domain.NormalizeKey(name)]
	return r, ok
}

// Names lists the regimen names, sorted
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.regimens))
	for _, r := range c.regimens {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of regimens
func (c *Catalog) Len() int { return len(c.regimens) }

func decode(data []byte, format Format, out any) error {
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(out)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(out)
	}
}
