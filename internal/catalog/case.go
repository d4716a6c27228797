package catalog

import (
	"fmt"
	"os"

	"github.com/chemo-dose-safety/internal/domain"
)

// Case is one treatment-planning request: the patient, the regimen (by catalog
// name or inline) and the context the safety engine needs.
type Case struct {
	PatientRef         string                `json:"patient_ref,omitempty" yaml:"patient_ref,omitempty"`
	Patient            domain.PatientProfile `json:"patient" yaml:"patient"`
	Clinical           domain.ClinicalData   `json:"clinical,omitempty" yaml:"clinical,omitempty"`
	RegimenName        string                `json:"regimen_name,omitempty" yaml:"regimen_name,omitempty"`
	Regimen            *Regimen              `json:"regimen,omitempty" yaml:"regimen,omitempty"`
	BiomarkerStatus    map[string]string     `json:"biomarker_status,omitempty" yaml:"biomarker_status,omitempty"`
	CurrentMedications []string              `json:"current_medications,omitempty" yaml:"current_medications,omitempty"`
	CyclesCompleted    int                   `json:"cycles_completed,omitempty" yaml:"cycles_completed,omitempty"`
}

// LoadCase reads a case file
func LoadCase(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case: %w", err)
	}
	return ParseCase(data, FormatFromPath(path))
}

// ParseCase decodes a case document
func ParseCase(data []byte, format Format) (*Case, error) {
	var c Case
	if err := decode(data, format, &c); err != nil {
		return nil, fmt.Errorf("failed to parse case: %w", err)
	}
	if c.Regimen == nil && c.RegimenName == "" {
		return nil, domain.NewValidationError("regimen", "either regimen or regimen_name is required", nil)
	}
	if c.Regimen != nil {
		if err := c.Regimen.Validate(); err != nil {
			return nil, fmt.Errorf("invalid inline regimen: %w", err)
		}
	}
	return &c, nil
}

// ResolveRegimen returns the inline regimen, or looks the named one up in cat
func (c *Case) ResolveRegimen(cat *Catalog) (Regimen, error) {
	if c.Regimen != nil {
		return *c.Regimen, nil
	}
	if cat == nil {
		return Regimen{}, fmt.Errorf("case names regimen %q but no catalog was given", c.RegimenName)
	}
	r, ok := cat.Get(c.RegimenName)
	if !ok {
		return Regimen{}, fmt.Errorf("regimen %q not found in catalog", c.RegimenName)
	}
	return r, nil
}

// SafetyRequest assembles the safety engine input for this case
func (c *Case) SafetyRequest(specs []domain.DoseSpecification, results []domain.DoseCalculationResult) domain.SafetyCheckRequest {
	return domain.SafetyCheckRequest{
		Regimen:            specs,
		Patient:            c.Patient,
		CalculatedDoses:    results,
		BiomarkerStatus:    c.BiomarkerStatus,
		CurrentMedications: c.CurrentMedications,
		ClinicalData:       c.Clinical,
		CyclesCompleted:    c.CyclesCompleted,
	}
}
