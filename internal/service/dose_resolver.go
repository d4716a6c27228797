package service

import (
	"github.com/chemo-dose-safety/internal/domain"
)

// DefaultMaxGFR is the Calvert GFR cap in mL/min
const DefaultMaxGFR = 125.0

// calvertOffset is the non-renal clearance term of the Calvert formula
const calvertOffset = 25.0

// ResolverOptions controls the Calvert formula
type ResolverOptions struct {
	// CapGFR limits GFR to MaxGFR before the Calvert formula is applied.
	CapGFR bool
	MaxGFR float64
}

// DefaultResolverOptions returns the capped Calvert configuration
func DefaultResolverOptions() ResolverOptions {
	return ResolverOptions{CapGFR: true, MaxGFR: DefaultMaxGFR}
}

// BaseDoseResolver computes the unadjusted dose for one drug from its tagged
// formula and the patient's physiology
type BaseDoseResolver struct {
	opts ResolverOptions
}

// NewBaseDoseResolver creates a resolver. A non-positive MaxGFR falls back to
// DefaultMaxGFR
func NewBaseDoseResolver(opts ResolverOptions) *BaseDoseResolver {
	if opts.MaxGFR <= 0 {
		opts.MaxGFR = DefaultMaxGFR
	}
	return &BaseDoseResolver{opts: opts}
}

// Resolve returns the base dose, never negative. Invalid formulas resolve to 0.
// The result is in the mass unit of the formula: grams for g/m² formulas,
// milligrams otherwise
func (r *BaseDoseResolver) Resolve(f domain.DoseFormula, patient domain.PatientProfile) float64 {
	p := patient.Normalized()
	value := domain.NonNegative(f.Value)

	switch f.Kind {
	case domain.FormulaAUCTarget:
		return Calvert(value, p.CreatinineClearance, r.opts.CapGFR, r.opts.MaxGFR)
	case domain.FormulaBodyWeight:
		return value * p.WeightKg
	case domain.FormulaBodySurfaceArea:
		return value * p.BSA
	case domain.FormulaFixed:
		return value
	default:
		return 0
	}
}

// Calvert converts a target AUC into a dose: AUC × (GFR + 25). When capped, GFR
// is limited to maxGFR first
func Calvert(targetAUC, gfr float64, capped bool, maxGFR float64) float64 {
	auc, g := domain.NonNegative(targetAUC), domain.NonNegative(gfr)
	if capped && maxGFR > 0 && g > maxGFR {
		g = maxGFR
	}
	return auc * (g + calvertOffset)
}
