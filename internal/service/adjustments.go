package service

import (
	"github.com/chemo-dose-safety/internal/domain"
	"github.com/chemo-dose-safety/internal/registry"
)

const (
	// ElderlyAgeThreshold is exclusive: the reduction starts above this age.
	ElderlyAgeThreshold = 70.0
	ElderlyDoseFactor   = 0.85
)

// Adjustment reason codes recorded on the result trail
const (
	reasonElderly = "age_over_70_age_sensitive_agent"
	reasonRenal   = "renal_impairment"
)

// AdjustmentOutcome is the adjusted dose plus the trail of applied factors
type AdjustmentOutcome struct {
	Dose            float64
	Applied         []domain.AppliedAdjustment
	Contraindicated bool
	// Alert explains a dose forced to zero.
	Alert *domain.Message
}

// adjustmentStep returns the factor to apply and whether the step fired
type adjustmentStep struct {
	stage domain.AdjustmentStage
	apply func(p domain.PatientProfile, drug string) (factor float64, reason string, fired bool)
}

// AdjustmentPipeline applies the clinical dose adjustments in a fixed order:
// age first, then renal function. The factors multiply, so reordering the
// steps changes results
type AdjustmentPipeline struct {
	registry *registry.Registry
	steps    []adjustmentStep
}

// NewAdjustmentPipeline creates the pipeline over a registry
func NewAdjustmentPipeline(reg *registry.Registry) *AdjustmentPipeline {
	p := &AdjustmentPipeline{registry: reg}
	p.steps = []adjustmentStep{
		{stage: domain.StageAge, apply: p.ageFactor},
		{stage: domain.StageRenal, apply: p.renalFactor},
	}
	return p
}

// Adjust returns only the adjusted dose
func (p *AdjustmentPipeline) Adjust(baseDose float64, patient domain.PatientProfile, drug string) float64 {
	return p.Apply(baseDose, patient, drug).Dose
}

// Apply runs every step against baseDose and records what fired. A zero renal
// factor marks the drug as contraindicated and forces the dose to 0
func (p *AdjustmentPipeline) Apply(baseDose float64, patient domain.PatientProfile, drug string) AdjustmentOutcome {
	pt := patient.Normalized()
	out := AdjustmentOutcome{Dose: domain.NonNegative(baseDose)}

	for _, step := range p.steps {
		factor, reason, fired := step.apply(pt, drug)
		if !fired {
			continue
		}
		out.Dose *= factor
		out.Applied = append(out.Applied, domain.AppliedAdjustment{Stage: step.stage, Factor: factor, Reason: reason})

		if step.stage == domain.StageRenal && factor == 0 {
			out.Contraindicated = true
			out.Alert = domain.NewMessage(domain.MsgRenalContraindicated, drug,
				"crcl", domain.Round(pt.CreatinineClearance, 1),
				"threshold", p.renalThreshold(drug),
			)
		}
	}

	out.Dose = domain.NonNegative(out.Dose)
	return out
}

func (p *AdjustmentPipeline) ageFactor(pt domain.PatientProfile, drug string) (float64, string, bool) {
	if pt.AgeYears > ElderlyAgeThreshold && p.registry.IsAgeSensitive(drug) {
		return ElderlyDoseFactor, reasonElderly, true
	}
	return 1, "", false
}

func (p *AdjustmentPipeline) renalFactor(pt domain.PatientProfile, drug string) (float64, string, bool) {
	limit, ok := p.registry.Limit(drug)
	if !ok || limit.Renal == nil {
		return 1, "", false
	}
	factor, matched := limit.Renal.Factor(pt.CreatinineClearance)
	if !matched {
		return 1, "", false
	}
	reason := reasonRenal
	if limit.Renal.Effect != "" {
		reason = limit.Renal.Effect
	}
	return factor, reason, true
}

func (p *AdjustmentPipeline) renalThreshold(drug string) float64 {
	if limit, ok := p.registry.Limit(drug); ok && limit.Renal != nil {
		return limit.Renal.Threshold
	}
	return 0
}
