// Package override stores clinician dose overrides. When a clinician overrides
// a calculated dose, the override record holds the amount actually given for
// that patient, drug and cycle.
package override

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chemo-dose-safety/internal/domain"
	"github.com/chemo-dose-safety/internal/registry"
)

// DoseOverride is a clinician's replacement for a calculated final dose
type DoseOverride struct {
	ID             string    `json:"id,omitempty"`
	PatientRef     string    `json:"patient_ref"`
	Drug           string    `json:"drug"`
	Cycle          int       `json:"cycle"`
	CalculatedDose float64   `json:"calculated_dose"` // finalDose at the time of override
	OverrideDose   float64   `json:"override_dose"`
	Unit           string    `json:"unit"`
	Reason         string    `json:"reason"`
	Clinician      string    `json:"clinician"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks the fields a store needs before writing
func (o *DoseOverride) Validate() error {
	switch {
	case strings.TrimSpace(o.PatientRef) == "":
		return domain.NewValidationError("patient_ref", "patient reference is required", o.PatientRef)
	case strings.TrimSpace(o.Drug) == "":
		return domain.NewValidationError("drug", "drug is required", o.Drug)
	case o.Cycle < 1:
		return domain.NewValidationError("cycle", "cycle must be 1 or greater", o.Cycle)
	case o.OverrideDose < 0:
		return domain.NewValidationError("override_dose", "override dose cannot be negative", o.OverrideDose)
	case strings.TrimSpace(o.Reason) == "":
		return domain.NewValidationError("reason", "a documented reason is required", o.Reason)
	case strings.TrimSpace(o.Clinician) == "":
		return domain.NewValidationError("clinician", "clinician is required", o.Clinician)
	}
	return nil
}

// drugKey is the form drugs are stored and matched under: the canonical
// registry name, so brand names and abbreviations such as "5-FU" resolve to
// the same record as the generic name
func drugKey(drug string) string {
	return registry.Default().Canonical(strings.TrimSpace(drug))
}

// Store defines the interface for override storage operations.
type Store interface {
	// Save stores or updates an override. An existing record for the same
	// patient, drug and cycle is replaced and keeps its ID.
	Save(ctx context.Context, o *DoseOverride) error

	// Get returns the override for a patient, drug and cycle, or nil.
	Get(ctx context.Context, patientRef, drug string, cycle int) (*DoseOverride, error)

	// List returns overrides newest first with pagination.
	List(ctx context.Context, limit, offset int) ([]*DoseOverride, error)

	// Count returns the total number of overrides.
	Count(ctx context.Context) (int64, error)

	// Delete removes an override by ID.
	Delete(ctx context.Context, id string) error

	// ExportJSON writes all overrides to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON reads an export and saves the records not already present.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	Close() error
}

// Export is the JSON export format
type Export struct {
	Version    string          `json:"version"`
	ExportedAt time.Time       `json:"exported_at"`
	Count      int             `json:"count"`
	Overrides  []*DoseOverride `json:"overrides"`
}

const exportVersion = "1.0"

// maxExportLimit bounds a single export
const maxExportLimit = 1000000

// AdministeredDose returns the authoritative amount for a calculated drug: the
// override dose when o applies to the result's drug, otherwise FinalDose.
func AdministeredDose(result domain.DoseCalculationResult, o *DoseOverride) float64 {
	if o == nil || drugKey(o.Drug) != drugKey(result.Drug) {
		return result.FinalDose
	}
	return o.OverrideDose
}

// Administration pairs a calculated result with any override in force
type Administration struct {
	Drug             string        `json:"drug"`
	Unit             string        `json:"unit"`
	FinalDose        float64       `json:"final_dose"`
	AdministeredDose float64       `json:"administered_dose"`
	Override         *DoseOverride `json:"override,omitempty"`
}

// Resolve looks up overrides for each result and returns the administered
// amounts in result order.
func Resolve(ctx context.Context, store Store, patientRef string, cycle int, results []domain.DoseCalculationResult) ([]Administration, error) {
	out := make([]Administration, 0, len(results))
	for _, r := range results {
		a := Administration{Drug: r.Drug, Unit: r.Unit, FinalDose: r.FinalDose, AdministeredDose: r.FinalDose}
		if store != nil && patientRef != "" {
			o, err := store.Get(ctx, patientRef, r.Drug, cycle)
			if err != nil {
				return nil, fmt.Errorf("failed to look up override for %s: %w", r.Drug, err)
			}
			a.Override = o
			a.AdministeredDose = AdministeredDose(r, o)
		}
		out = append(out, a)
	}
	return out, nil
}
