// Package domain contains the value types shared by the dose calculation and
// safety-validation engine: patient physiology, dosing formulas, per-drug limits,
// calculation results and safety alerts.
//
// Every type here is a plain value. Nothing in this package performs I/O or keeps
// state between calls.
package domain

import (
	"errors"
	"strings"
)

// Severity ranks a safety alert. The engine uses a single five-level taxonomy
// with a total order: CRITICAL > HIGH > MODERATE > LOW > INFO.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityModerate Severity = "moderate"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Rank returns the position of the severity in the total order, 0 being the most
// severe. Unknown severities sort after INFO so they never hide a real alert.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityModerate:
		return 2
	case SeverityLow:
		return 3
	case SeverityInfo:
		return 4
	default:
		return 5
	}
}

// IsValid reports whether s belongs to the taxonomy.
func (s Severity) IsValid() bool {
	return s.Rank() < 5
}

func (s Severity) String() string {
	return string(s)
}

// AlertType is the category of a safety alert.
type AlertType string

const (
	AlertInteraction      AlertType = "interaction"
	AlertContraindication AlertType = "contraindication"
	AlertPrerequisite     AlertType = "prerequisite"
	AlertMonitoring       AlertType = "monitoring"
	AlertDosing           AlertType = "dosing"
)

// IsValid reports whether t is one of the known alert categories.
func (t AlertType) IsValid() bool {
	switch t {
	case AlertInteraction, AlertContraindication, AlertPrerequisite, AlertMonitoring, AlertDosing:
		return true
	default:
		return false
	}
}

// DoseUnit is the unit tag attached to a dosing value by the regimen catalog.
type DoseUnit string

const (
	UnitMgPerM2 DoseUnit = "mg/m2"
	UnitGPerM2  DoseUnit = "g/m2"
	UnitMgPerKg DoseUnit = "mg/kg"
	UnitAUC     DoseUnit = "AUC"
	UnitMg      DoseUnit = "mg"
	UnitFixed   DoseUnit = "fixed"
)

// FormulaKind returns the dosing formula class implied by the unit tag.
// Anything that is not per-m², per-kg or AUC is a fixed dose.
func (u DoseUnit) FormulaKind() FormulaKind {
	n := strings.ToLower(strings.ReplaceAll(string(u), " ", ""))
	switch {
	case n == strings.ToLower(string(UnitAUC)):
		return FormulaAUCTarget
	case n == string(UnitMgPerKg):
		return FormulaBodyWeight
	case strings.HasSuffix(n, "/m2"), strings.HasSuffix(n, "/m²"):
		return FormulaBodySurfaceArea
	default:
		return FormulaFixed
	}
}

// MassUnit returns the mass unit of a dose produced from this unit tag:
// "g" for gram-per-m² tags, "mg" otherwise.
func (u DoseUnit) MassUnit() string {
	n := strings.ToLower(strings.ReplaceAll(string(u), " ", ""))
	if n == string(UnitGPerM2) || n == "g/m²" {
		return "g"
	}
	return "mg"
}

// FormulaKind tags the dosing formula class.
type FormulaKind string

const (
	FormulaBodySurfaceArea FormulaKind = "bsa"
	FormulaBodyWeight      FormulaKind = "weight"
	FormulaAUCTarget       FormulaKind = "auc"
	FormulaFixed           FormulaKind = "fixed"
	// FormulaInvalid marks dosing text rejected at ingestion (e.g. an AUC range).
	FormulaInvalid FormulaKind = "invalid"
)

// InteractionSeverity is the documented tier of a drug-drug interaction.
type InteractionSeverity string

const (
	InteractionContraindicated InteractionSeverity = "contraindicated"
	InteractionMajor           InteractionSeverity = "major"
	InteractionModerate        InteractionSeverity = "moderate"
	InteractionMinor           InteractionSeverity = "minor"
)

// AlertSeverity maps the interaction tier onto the alert taxonomy.
func (s InteractionSeverity) AlertSeverity() Severity {
	switch s {
	case InteractionContraindicated:
		return SeverityCritical
	case InteractionMajor:
		return SeverityHigh
	case InteractionModerate:
		return SeverityModerate
	case InteractionMinor:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// IsValid reports whether s is a documented interaction tier.
func (s InteractionSeverity) IsValid() bool {
	switch s {
	case InteractionContraindicated, InteractionMajor, InteractionModerate, InteractionMinor:
		return true
	default:
		return false
	}
}

// ContraindicationKind separates absolute from relative contraindications.
type ContraindicationKind string

const (
	ContraindicationAbsolute ContraindicationKind = "absolute"
	ContraindicationRelative ContraindicationKind = "relative"
)

// Sex of the patient as used by Cockcroft-Gault.
type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = ""
)

// ParseSex folds common spellings onto the Sex values.
func ParseSex(s string) Sex {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male", "man":
		return SexMale
	case "f", "female", "woman":
		return SexFemale
	default:
		return SexUnknown
	}
}

// Schedule buckets recognised by schedule-keyed dose limits.
const (
	ScheduleWeekly      = "weekly"
	ScheduleEvery3Weeks = "q3w"
	ScheduleEvery14Days = "q14d"
)

var (
	ErrUnknownDrug        = errors.New("unknown drug")
	ErrInvalidSeverity    = errors.New("invalid severity")
	ErrInvalidInteraction = errors.New("invalid interaction record")
	ErrInvalidRule        = errors.New("invalid contraindication rule")
	ErrInvalidLimit       = errors.New("invalid dose limit")
)
