package domain

import "context"

// DoseCalculator runs the full per-drug pipeline: base dose, adjustments,
// limit and concentration validation.
type DoseCalculator interface {
	Calculate(spec DoseSpecification, patient PatientProfile) DoseCalculationResult
	CalculateRegimen(ctx context.Context, specs []DoseSpecification, patient PatientProfile) ([]DoseCalculationResult, error)
}

// SafetyChecker aggregates safety alerts over a whole regimen.
type SafetyChecker interface {
	PerformComprehensiveSafetyCheck(req SafetyCheckRequest) []SafetyAlert
}

// SafetyCheckRequest bundles the inputs of a comprehensive safety check.
type SafetyCheckRequest struct {
	Regimen            []DoseSpecification     `json:"regimen"`
	Patient            PatientProfile          `json:"patient"`
	CalculatedDoses    []DoseCalculationResult `json:"calculated_doses,omitempty"`
	BiomarkerStatus    map[string]string       `json:"biomarker_status,omitempty"`
	CurrentMedications []string                `json:"current_medications,omitempty"`
	ClinicalData       ClinicalData            `json:"clinical_data"`
	// CyclesCompleted counts cycles already given. When positive, each
	// calculated dose is also checked against its lifetime limit as if given
	// once more.
	CyclesCompleted int `json:"cycles_completed,omitempty"`
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDosingConfig() *DosingConfig
	GetStoreConfig() *StoreConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
