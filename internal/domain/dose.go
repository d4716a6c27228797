package domain

import "sort"

// DoseFormula is the dosing value tagged with its formula class. It is decided
// once when a regimen is ingested so calculation never parses text.
type DoseFormula struct {
	Kind  FormulaKind `json:"kind"`
	Value float64     `json:"value"`
	Unit  DoseUnit    `json:"unit"`
	// Source is the original dosing text, kept for documents and audit.
	Source string `json:"source,omitempty"`
	// Issue is set when Kind is FormulaInvalid, or when the text could be
	// read two ways and Value holds the reading that was taken.
	Issue *Message `json:"issue,omitempty"`
}

// BodySurfaceArea builds a per-m² formula.
func BodySurfaceArea(value float64) DoseFormula {
	return DoseFormula{Kind: FormulaBodySurfaceArea, Value: NonNegative(value), Unit: UnitMgPerM2}
}

// BodyWeight builds a per-kg formula.
func BodyWeight(value float64) DoseFormula {
	return DoseFormula{Kind: FormulaBodyWeight, Value: NonNegative(value), Unit: UnitMgPerKg}
}

// AUCTarget builds a Calvert formula for the given target AUC.
func AUCTarget(value float64) DoseFormula {
	return DoseFormula{Kind: FormulaAUCTarget, Value: NonNegative(value), Unit: UnitAUC}
}

// Fixed builds a flat-dose formula.
func Fixed(value float64) DoseFormula {
	return DoseFormula{Kind: FormulaFixed, Value: NonNegative(value), Unit: UnitMg}
}

// DoseSpecification is one drug line of a regimen.
type DoseSpecification struct {
	Drug     string      `json:"drug"`
	Formula  DoseFormula `json:"formula"`
	Route    string      `json:"route,omitempty"`
	Solvents []string    `json:"solvents,omitempty"`
	Volumes  []float64   `json:"volumes,omitempty"` // mL
	Schedule string      `json:"schedule,omitempty"`
}

// RenalTier applies Factor when creatinine clearance is at or above MinCrCl.
// A zero factor marks the tier as contraindicated.
type RenalTier struct {
	MinCrCl float64 `json:"min_crcl" yaml:"min_crcl"`
	Factor  float64 `json:"factor" yaml:"factor"`
}

// RenalRule is evaluated only when creatinine clearance is below Threshold.
// Tiers are checked from the highest MinCrCl down; no matching tier leaves the
// dose unchanged.
type RenalRule struct {
	Threshold float64     `json:"threshold" yaml:"threshold"`
	Tiers     []RenalTier `json:"tiers" yaml:"tiers"`
	Effect    string      `json:"effect" yaml:"effect"`
}

// Factor returns the multiplicative renal factor for crcl and whether a rule
// tier matched.
func (r RenalRule) Factor(crcl float64) (float64, bool) {
	if crcl >= r.Threshold {
		return 1, false
	}
	tiers := make([]RenalTier, len(r.Tiers))
	copy(tiers, r.Tiers)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].MinCrCl > tiers[j].MinCrCl })
	for _, t := range tiers {
		if crcl >= t.MinCrCl {
			return t.Factor, true
		}
	}
	return 1, false
}

// HepaticRule flags a hepatic dose consideration above a bilirubin threshold.
type HepaticRule struct {
	BilirubinXULN float64 `json:"bilirubin_xuln" yaml:"bilirubin_xuln"`
	Effect        string  `json:"effect" yaml:"effect"`
}

// DoseLimit is the per-drug limit descriptor held by the registry. Either
// MaxPerCycle or ScheduleMax is set; a zero CumulativeMax means no lifetime cap.
type DoseLimit struct {
	Drug          string             `json:"drug" yaml:"drug"`
	MaxPerCycle   float64            `json:"max_per_cycle,omitempty" yaml:"max_per_cycle,omitempty"`
	ScheduleMax   map[string]float64 `json:"schedule_max,omitempty" yaml:"schedule_max,omitempty"`
	CumulativeMax float64            `json:"cumulative_max,omitempty" yaml:"cumulative_max,omitempty"`
	Unit          string             `json:"unit" yaml:"unit"`
	WarningNote   string             `json:"warning_note,omitempty" yaml:"warning_note,omitempty"`
	Renal         *RenalRule         `json:"renal,omitempty" yaml:"renal,omitempty"`
	Hepatic       *HepaticRule       `json:"hepatic,omitempty" yaml:"hepatic,omitempty"`
}

// Clone returns a deep copy so registry internals never leak to callers.
func (l DoseLimit) Clone() DoseLimit {
	out := l
	if l.ScheduleMax != nil {
		out.ScheduleMax = make(map[string]float64, len(l.ScheduleMax))
		for k, v := range l.ScheduleMax {
			out.ScheduleMax[k] = v
		}
	}
	if l.Renal != nil {
		r := *l.Renal
		r.Tiers = append([]RenalTier(nil), l.Renal.Tiers...)
		out.Renal = &r
	}
	if l.Hepatic != nil {
		h := *l.Hepatic
		out.Hepatic = &h
	}
	return out
}

// Validate checks the descriptor is usable by the limit validator.
func (l DoseLimit) Validate() error {
	if l.Drug == "" {
		return NewValidationError("drug", "drug name is required", l.Drug)
	}
	if l.MaxPerCycle < 0 || l.CumulativeMax < 0 {
		return NewValidationError("max_per_cycle", "limits must not be negative", l.MaxPerCycle)
	}
	for k, v := range l.ScheduleMax {
		if v <= 0 {
			return NewValidationError("schedule_max."+k, "schedule limit must be positive", v)
		}
	}
	if l.Renal != nil {
		for _, t := range l.Renal.Tiers {
			if t.Factor < 0 || t.MinCrCl < 0 {
				return NewValidationError("renal.tiers", "renal tier values must not be negative", t)
			}
		}
	}
	return nil
}

// AdjustmentStage names a step of the adjustment pipeline.
type AdjustmentStage string

const (
	StageAge   AdjustmentStage = "age"
	StageRenal AdjustmentStage = "renal"
)

// AppliedAdjustment records one multiplicative factor applied to a dose.
type AppliedAdjustment struct {
	Stage  AdjustmentStage `json:"stage"`
	Factor float64         `json:"factor"`
	Reason string          `json:"reason"`
}

// DoseCalculationResult is the outcome of calculating one drug. FinalDose is the
// authoritative administered amount unless a clinician override exists.
type DoseCalculationResult struct {
	Drug               string              `json:"drug"`
	Formula            FormulaKind         `json:"formula"`
	Unit               string              `json:"unit"`
	BaseDose           float64             `json:"base_dose"`
	CalculatedDose     float64             `json:"calculated_dose"`
	FinalDose          float64             `json:"final_dose"`
	Contraindicated    bool                `json:"contraindicated,omitempty"`
	Adjustments        []AppliedAdjustment `json:"adjustments,omitempty"`
	LimitAlert         *Message            `json:"limit_alert,omitempty"`
	ConcentrationAlert *Message            `json:"concentration_alert,omitempty"`
	FormulaAlert       *Message            `json:"formula_alert,omitempty"`
	AdjustmentAlert    *Message            `json:"adjustment_alert,omitempty"`
}

// Clone returns a deep copy of the result.
func (r DoseCalculationResult) Clone() DoseCalculationResult {
	out := r
	if r.Adjustments != nil {
		out.Adjustments = append([]AppliedAdjustment(nil), r.Adjustments...)
	}
	out.LimitAlert = r.LimitAlert.Clone()
	out.ConcentrationAlert = r.ConcentrationAlert.Clone()
	out.FormulaAlert = r.FormulaAlert.Clone()
	out.AdjustmentAlert = r.AdjustmentAlert.Clone()
	return out
}

// LimitCheck is the outcome of a per-cycle limit check.
type LimitCheck struct {
	IsExceeded      bool     `json:"is_exceeded"`
	Limit           float64  `json:"limit,omitempty"`
	Warning         *Message `json:"warning,omitempty"`
	SuggestedAction *Message `json:"suggested_action,omitempty"`
}

// CumulativeCheck is the outcome of a lifetime cumulative dose check.
type CumulativeCheck struct {
	CumulativeDose  float64  `json:"cumulative_dose"`
	Limit           float64  `json:"limit,omitempty"`
	IsLimitExceeded bool     `json:"is_limit_exceeded"`
	Warning         *Message `json:"warning,omitempty"`
}

// ConcentrationRule bounds the dose/volume ratio (mg/mL) of an infusion. Zero
// bounds are not checked. MinVolume (mL) is checked independently.
type ConcentrationRule struct {
	Drug      string  `json:"drug" yaml:"drug"`
	Min       float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MinVolume float64 `json:"min_volume,omitempty" yaml:"min_volume,omitempty"`
}

// SolventRule lists the diluents a drug may be prepared in. DextroseOnly marks
// agents that are incompatible with chloride-containing solutions.
type SolventRule struct {
	Drug         string   `json:"drug" yaml:"drug"`
	Allowed      []string `json:"allowed" yaml:"allowed"`
	DextroseOnly bool     `json:"dextrose_only,omitempty" yaml:"dextrose_only,omitempty"`
}

// Clone returns a deep copy.
func (s SolventRule) Clone() SolventRule {
	out := s
	out.Allowed = append([]string(nil), s.Allowed...)
	return out
}
