package domain

import "sort"

// SafetyAlert is an immutable advisory produced by the safety engine.
type SafetyAlert struct {
	ID                    string    `json:"id"`
	Severity              Severity  `json:"severity"`
	Type                  AlertType `json:"type"`
	Drugs                 []string  `json:"drugs,omitempty"`
	Message               Message   `json:"message"`
	Recommendation        Message   `json:"recommendation"`
	CanOverride           bool      `json:"can_override"`
	RequiresJustification bool      `json:"requires_justification"`
	References            []string  `json:"references,omitempty"`
}

// SortAlerts orders alerts most severe first. The sort is stable, so alerts of
// equal severity keep the order in which the checks produced them.
func SortAlerts(alerts []SafetyAlert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})
}

// PatientFacing drops the alerts that belong only on the clinician sheet:
// anything that cannot be overridden or needs a documented justification.
func PatientFacing(alerts []SafetyAlert) []SafetyAlert {
	out := make([]SafetyAlert, 0, len(alerts))
	for _, a := range alerts {
		if !a.CanOverride || a.RequiresJustification {
			continue
		}
		out = append(out, a)
	}
	return out
}

// CountBySeverity tallies alerts per severity for logging.
func CountBySeverity(alerts []SafetyAlert) map[Severity]int {
	counts := make(map[Severity]int)
	for _, a := range alerts {
		counts[a.Severity]++
	}
	return counts
}

// DrugInteraction is a static drug-drug interaction record. The pair is
// unordered.
type DrugInteraction struct {
	DrugA      string              `json:"drug_a" yaml:"drug_a"`
	DrugB      string              `json:"drug_b" yaml:"drug_b"`
	Severity   InteractionSeverity `json:"severity" yaml:"severity"`
	Effect     string              `json:"effect" yaml:"effect"`
	Management string              `json:"management" yaml:"management"`
	References []string            `json:"references,omitempty" yaml:"references,omitempty"`
}

// Validate checks the record can be used for lookup.
func (d DrugInteraction) Validate() error {
	if NormalizeKey(d.DrugA) == "" || NormalizeKey(d.DrugB) == "" {
		return NewValidationError("drug_a", "both drug names are required", d)
	}
	if NormalizeKey(d.DrugA) == NormalizeKey(d.DrugB) {
		return NewValidationError("drug_b", "interaction must name two different drugs", d)
	}
	if !d.Severity.IsValid() {
		return NewValidationError("severity", "unknown interaction severity", d.Severity)
	}
	return nil
}

// ConditionFunc is a pure predicate over the patient and clinical findings.
type ConditionFunc func(p PatientProfile, c ClinicalData) bool

// ContraindicationRule ties a drug to a condition predicate.
type ContraindicationRule struct {
	Drug       string
	Condition  string
	Kind       ContraindicationKind
	Predicate  ConditionFunc
	References []string
}

// Validate checks the rule is complete.
func (r ContraindicationRule) Validate() error {
	if NormalizeKey(r.Drug) == "" {
		return NewValidationError("drug", "drug name is required", r.Drug)
	}
	if r.Condition == "" {
		return NewValidationError("condition", "condition code is required", r.Drug)
	}
	if r.Kind != ContraindicationAbsolute && r.Kind != ContraindicationRelative {
		return NewValidationError("kind", "kind must be absolute or relative", r.Kind)
	}
	if r.Predicate == nil {
		return NewValidationError("predicate", "predicate is required", r.Condition)
	}
	return nil
}

// BiomarkerPrerequisite requires a biomarker to be tested with one of the
// accepted statuses before the drug is given.
type BiomarkerPrerequisite struct {
	Drug             string   `json:"drug" yaml:"drug"`
	Biomarker        string   `json:"biomarker" yaml:"biomarker"`
	AcceptedStatuses []string `json:"accepted_statuses" yaml:"accepted_statuses"`
	References       []string `json:"references,omitempty" yaml:"references,omitempty"`
}

// Validate checks the prerequisite is complete.
func (b BiomarkerPrerequisite) Validate() error {
	if NormalizeKey(b.Drug) == "" || NormalizeKey(b.Biomarker) == "" {
		return NewValidationError("biomarker", "drug and biomarker are required", b)
	}
	if len(b.AcceptedStatuses) == 0 {
		return NewValidationError("accepted_statuses", "at least one accepted status is required", b.Biomarker)
	}
	return nil
}

// Accepts reports whether a normalized status satisfies the prerequisite.
func (b BiomarkerPrerequisite) Accepts(status string) bool {
	s := NormalizeKey(status)
	for _, a := range b.AcceptedStatuses {
		if NormalizeKey(a) == s {
			return true
		}
	}
	return false
}
