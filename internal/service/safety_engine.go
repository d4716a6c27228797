package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chemo-dose-safety/internal/domain"
	"github.com/chemo-dose-safety/internal/registry"
)

// alertNamespace seeds the name-based alert identifiers, so the same alert for
// the same input always carries the same id
var alertNamespace = uuid.MustParse("5b0c8d52-6a3e-4f0e-9b8e-2f4c1d7a9e31")

// BSACapThreshold is the body-surface area above which capping is suggested
const BSACapThreshold = 2.0

// CardiacMonitoringAge is the inclusive age for the cardiotoxicity monitoring note
const CardiacMonitoringAge = 65.0

// biomarker statuses that mean the test has not been resulted yet
var untestedStatuses = map[string]bool{
	"":          true,
	"unknown":   true,
	"pending":   true,
	"nottested": true,
	"na":        true,
}

// safetyCheck is one independent family of checks
type safetyCheck struct {
	Name string
	Run  func(in *safetyInput) ([]domain.SafetyAlert, error)
}

// safetyInput is the normalized request shared by every check
type safetyInput struct {
	drugs    []string // canonical regimen drugs, first occurrence order
	meds     []string // canonical current medications not in the regimen
	patient  domain.PatientProfile
	clinical domain.ClinicalData
	doses    []domain.DoseCalculationResult
	formulas map[string]domain.FormulaKind
	cycles   int // completed before this one
}

var _ domain.SafetyChecker = (*SafetyEngine)(nil)

// SafetyEngine aggregates safety alerts over a regimen and patient. It holds
// no per-call state and is safe for concurrent use
type SafetyEngine struct {
	logger   *logrus.Logger
	registry *registry.Registry
	limits   *LimitValidator
	checks   []safetyCheck
}

// NewSafetyEngine creates a safety engine over reg
func NewSafetyEngine(reg *registry.Registry, logger *logrus.Logger) *SafetyEngine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	engine := &SafetyEngine{
		logger:   logger,
		registry: reg,
		limits:   NewLimitValidator(reg),
	}

	// Check order fixes the order of equal-severity alerts in the output.
	engine.addCheck("interactions", engine.checkInteractions)
	engine.addCheck("contraindications", engine.checkContraindications)
	engine.addCheck("prerequisites", engine.checkPrerequisites)
	engine.addCheck("dosing", engine.checkDosing)

	return engine
}

func (e *SafetyEngine) addCheck(name string, run func(in *safetyInput) ([]domain.SafetyAlert, error)) {
	e.checks = append(e.checks, safetyCheck{Name: name, Run: run})
}

// PerformComprehensiveSafetyCheck runs every check family and returns the
// alerts most severe first. An internal fault never escapes: it is replaced by
// a single critical alert asking for manual verification
func (e *SafetyEngine) PerformComprehensiveSafetyCheck(req domain.SafetyCheckRequest) (alerts []domain.SafetyAlert) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithField("panic", fmt.Sprint(r)).Error("Safety check orchestration failed")
			alerts = []domain.SafetyAlert{manualVerificationAlert()}
		}
	}()

	if e.registry == nil {
		e.logger.Error("Safety check run without a registry")
		return []domain.SafetyAlert{manualVerificationAlert()}
	}

	in := e.prepare(req)
	alerts = make([]domain.SafetyAlert, 0)
	seen := make(map[string]bool)

	for _, check := range e.checks {
		found, err := check.Run(in)
		if err != nil {
			e.logger.WithError(err).WithField("check", check.Name).Error("Safety check failed")
			return []domain.SafetyAlert{manualVerificationAlert()}
		}
		for _, a := range found {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			alerts = append(alerts, a)
		}
		e.logger.WithFields(logrus.Fields{
			"check":  check.Name,
			"alerts": len(found),
		}).Debug("Completed safety check")
	}

	domain.SortAlerts(alerts)

	counts := domain.CountBySeverity(alerts)
	e.logger.WithFields(logrus.Fields{
		"drugs":    len(in.drugs),
		"alerts":   len(alerts),
		"critical": counts[domain.SeverityCritical],
		"high":     counts[domain.SeverityHigh],
	}).Info("Completed comprehensive safety check")

	return alerts
}

func (e *SafetyEngine) prepare(req domain.SafetyCheckRequest) *safetyInput {
	patient := req.Patient.Normalized()
	merged := make(map[string]string, len(patient.Biomarkers)+len(req.BiomarkerStatus))
	for k, v := range patient.Biomarkers {
		merged[k] = v
	}
	for k, v := range req.BiomarkerStatus {
		merged[domain.NormalizeKey(k)] = domain.NormalizeKey(v)
	}
	patient.Biomarkers = merged

	in := &safetyInput{
		patient:  patient,
		clinical: req.ClinicalData,
		doses:    req.CalculatedDoses,
		formulas: make(map[string]domain.FormulaKind),
		cycles:   req.CyclesCompleted,
	}

	seen := make(map[string]bool)
	for _, spec := range req.Regimen {
		name := e.registry.Canonical(spec.Drug)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		in.drugs = append(in.drugs, name)
		in.formulas[name] = spec.Formula.Kind
	}
	for _, med := range req.CurrentMedications {
		name := e.registry.Canonical(med)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		in.meds = append(in.meds, name)
	}
	return in
}

// checkInteractions looks up every unordered pair of regimen drugs and current
// medications
func (e *SafetyEngine) checkInteractions(in *safetyInput) ([]domain.SafetyAlert, error) {
	names := make([]string, 0, len(in.drugs)+len(in.meds))
	names = append(names, in.drugs...)
	names = append(names, in.meds...)

	var alerts []domain.SafetyAlert
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			ix, ok := e.registry.Interaction(names[i], names[j])
			if !ok {
				continue
			}
			if !ix.Severity.IsValid() {
				return nil, fmt.Errorf("%w: %s/%s severity %q", domain.ErrInvalidInteraction, names[i], names[j], ix.Severity)
			}

			recommendation := domain.MsgReviewRecommendation
			switch ix.Severity {
			case domain.InteractionContraindicated:
				recommendation = domain.MsgDoNotAdminister
			case domain.InteractionMajor:
				recommendation = domain.MsgJustificationRequired
			}

			alerts = append(alerts, newAlert(
				ix.Severity.AlertSeverity(),
				domain.AlertInteraction,
				[]string{names[i], names[j]},
				domain.NewMessage(domain.MsgInteraction, "",
					"drug_a", names[i],
					"drug_b", names[j],
					"tier", string(ix.Severity),
					"effect", ix.Effect,
				),
				domain.NewMessage(recommendation, "", "management", ix.Management),
				ix.Severity != domain.InteractionContraindicated,
				ix.Severity == domain.InteractionMajor,
				ix.References,
			))
		}
	}
	return alerts, nil
}

// checkContraindications evaluates the registry predicates per regimen drug.
// Absolute contraindications cannot be overridden; relative ones can, with a
// documented justification
func (e *SafetyEngine) checkContraindications(in *safetyInput) ([]domain.SafetyAlert, error) {
	var alerts []domain.SafetyAlert
	for _, drug := range in.drugs {
		for _, rule := range e.registry.Contraindications(drug) {
			if rule.Predicate == nil {
				return nil, fmt.Errorf("%w: %s/%s has no predicate", domain.ErrInvalidRule, drug, rule.Condition)
			}
			if !rule.Predicate(in.patient, in.clinical) {
				continue
			}

			absolute := rule.Kind == domain.ContraindicationAbsolute
			severity, recommendation := domain.SeverityHigh, domain.MsgJustificationRequired
			if absolute {
				severity, recommendation = domain.SeverityCritical, domain.MsgDoNotAdminister
			}

			alerts = append(alerts, newAlert(
				severity,
				domain.AlertContraindication,
				[]string{drug},
				domain.NewMessage(domain.MsgContraindication, drug,
					"condition", rule.Condition,
					"kind", string(rule.Kind),
				),
				domain.NewMessage(recommendation, drug),
				!absolute,
				!absolute,
				rule.References,
			))
		}
	}
	return alerts, nil
}

// checkPrerequisites requires every registered biomarker to be resulted with an
// accepted status. Both failures are critical and cannot be overridden
func (e *SafetyEngine) checkPrerequisites(in *safetyInput) ([]domain.SafetyAlert, error) {
	var alerts []domain.SafetyAlert
	for _, drug := range in.drugs {
		for _, pr := range e.registry.Prerequisites(drug) {
			marker := domain.NormalizeKey(pr.Biomarker)
			status := in.patient.Biomarkers[marker]

			var msg, rec *domain.Message
			switch {
			case untestedStatuses[status]:
				msg = domain.NewMessage(domain.MsgBiomarkerMissing, drug, "biomarker", marker)
				rec = domain.NewMessage(domain.MsgOrderBiomarkerTest, drug, "biomarker", marker)
			case !pr.Accepts(status):
				msg = domain.NewMessage(domain.MsgBiomarkerMismatch, drug,
					"biomarker", marker,
					"status", status,
					"accepted", pr.AcceptedStatuses,
				)
				rec = domain.NewMessage(domain.MsgDoNotAdminister, drug)
			default:
				continue
			}

			alerts = append(alerts, newAlert(
				domain.SeverityCritical,
				domain.AlertPrerequisite,
				[]string{drug},
				msg, rec,
				false, false,
				pr.References,
			))
		}
	}
	return alerts, nil
}

// checkDosing covers the dosing heuristics and the alerts already attached to
// caller-supplied calculation results
func (e *SafetyEngine) checkDosing(in *safetyInput) ([]domain.SafetyAlert, error) {
	var alerts []domain.SafetyAlert
	p := in.patient

	if p.BSA > BSACapThreshold {
		var scaled []string
		for _, drug := range in.drugs {
			if in.formulas[drug] == domain.FormulaBodySurfaceArea {
				scaled = append(scaled, drug)
			}
		}
		if len(scaled) > 0 {
			alerts = append(alerts, newAlert(
				domain.SeverityModerate,
				domain.AlertDosing,
				scaled,
				domain.NewMessage(domain.MsgBSACapConsideration, "", "bsa", p.BSA, "threshold", BSACapThreshold),
				domain.NewMessage(domain.MsgConsiderCapping, "", "cap", BSACapThreshold),
				true, false, nil,
			))
		}
	}

	for _, drug := range in.drugs {
		if threshold, ok := e.registry.NephrotoxicThreshold(drug); ok && p.CreatinineClearance > 0 && p.CreatinineClearance < threshold {
			alerts = append(alerts, newAlert(
				domain.SeverityHigh,
				domain.AlertDosing,
				[]string{drug},
				domain.NewMessage(domain.MsgRenalAdjustmentNeeded, drug,
					"crcl", domain.Round(p.CreatinineClearance, 1),
					"threshold", threshold,
				),
				domain.NewMessage(domain.MsgAdjustDose, drug),
				true, false, nil,
			))
		}

		if limit, ok := e.registry.Limit(drug); ok && limit.Hepatic != nil && in.clinical.BilirubinXULN != nil &&
			*in.clinical.BilirubinXULN > limit.Hepatic.BilirubinXULN {
			alerts = append(alerts, newAlert(
				domain.SeverityHigh,
				domain.AlertDosing,
				[]string{drug},
				domain.NewMessage(domain.MsgHepaticAdjustment, drug,
					"bilirubin_xuln", *in.clinical.BilirubinXULN,
					"threshold", limit.Hepatic.BilirubinXULN,
					"effect", limit.Hepatic.Effect,
				),
				domain.NewMessage(domain.MsgAdjustDose, drug),
				true, false, nil,
			))
		}

		if p.AgeYears >= CardiacMonitoringAge && e.registry.IsCardiotoxic(drug) {
			alerts = append(alerts, newAlert(
				domain.SeverityInfo,
				domain.AlertMonitoring,
				[]string{drug},
				domain.NewMessage(domain.MsgCardiacMonitoring, drug, "age", p.AgeYears),
				domain.NewMessage(domain.MsgScheduleCardiacImaging, drug),
				true, false, nil,
			))
		}
	}

	for _, r := range in.doses {
		alerts = append(alerts, e.doseResultAlerts(r)...)
		if a, ok := e.cumulativeAlert(r, in.cycles); ok {
			alerts = append(alerts, a)
		}
	}
	return alerts, nil
}

// doseResultAlerts lifts the messages of one calculation result into alerts
func (e *SafetyEngine) doseResultAlerts(r domain.DoseCalculationResult) []domain.SafetyAlert {
	drug := e.registry.Canonical(r.Drug)
	var alerts []domain.SafetyAlert

	if r.FormulaAlert != nil {
		alerts = append(alerts, newAlert(
			domain.SeverityHigh, domain.AlertDosing, []string{drug},
			r.FormulaAlert, domain.NewMessage(domain.MsgManualVerification, drug),
			true, true, nil,
		))
	}
	if r.Contraindicated || r.AdjustmentAlert != nil {
		msg := r.AdjustmentAlert
		if msg == nil {
			msg = domain.NewMessage(domain.MsgRenalContraindicated, drug)
		}
		alerts = append(alerts, newAlert(
			domain.SeverityCritical, domain.AlertDosing, []string{drug},
			msg, domain.NewMessage(domain.MsgDoNotAdminister, drug),
			false, false, nil,
		))
	}
	if r.LimitAlert != nil {
		alerts = append(alerts, newAlert(
			domain.SeverityHigh, domain.AlertDosing, []string{drug},
			r.LimitAlert, domain.NewMessage(domain.MsgCalculatedDoseFlag, drug, "final_dose", r.FinalDose),
			true, true, nil,
		))
	}
	if r.ConcentrationAlert != nil {
		alerts = append(alerts, newAlert(
			domain.SeverityModerate, domain.AlertDosing, []string{drug},
			r.ConcentrationAlert, domain.NewMessage(domain.MsgReviewRecommendation, drug),
			true, false, nil,
		))
	}
	return alerts
}

// cumulativeAlert checks the lifetime total after this cycle, assuming every
// completed cycle was given at the same final dose
func (e *SafetyEngine) cumulativeAlert(r domain.DoseCalculationResult, completed int) (domain.SafetyAlert, bool) {
	if completed <= 0 || r.Contraindicated || r.FinalDose <= 0 {
		return domain.SafetyAlert{}, false
	}
	doseMg := r.FinalDose
	if r.Unit == "g" {
		doseMg = r.FinalDose * 1000
	}

	drug := e.registry.Canonical(r.Drug)
	check := e.limits.CheckCumulative(drug, doseMg, completed+1)
	if !check.IsLimitExceeded {
		return domain.SafetyAlert{}, false
	}
	return newAlert(
		domain.SeverityHigh, domain.AlertDosing, []string{drug},
		check.Warning, domain.NewMessage(domain.MsgJustificationRequired, drug),
		true, true, nil,
	), true
}

// newAlert builds an alert whose id is derived from its content
func newAlert(
	severity domain.Severity,
	alertType domain.AlertType,
	drugs []string,
	msg, rec *domain.Message,
	canOverride, requiresJustification bool,
	references []string,
) domain.SafetyAlert {
	a := domain.SafetyAlert{
		Severity:              severity,
		Type:                  alertType,
		Drugs:                 append([]string(nil), drugs...),
		CanOverride:           canOverride,
		RequiresJustification: requiresJustification,
		References:            append([]string(nil), references...),
	}
	if m := msg.Clone(); m != nil {
		a.Message = *m
	}
	if r := rec.Clone(); r != nil {
		a.Recommendation = *r
	}
	a.ID = alertID(string(alertType), strings.Join(a.Drugs, "+"), a.Message.String())
	return a
}

func manualVerificationAlert() domain.SafetyAlert {
	msg := domain.NewMessage(domain.MsgManualVerification, "", "reason", "internal_fault")
	return domain.SafetyAlert{
		ID:             alertID("fault", string(domain.MsgManualVerification)),
		Severity:       domain.SeverityCritical,
		Type:           domain.AlertDosing,
		Message:        *msg,
		Recommendation: *domain.NewMessage(domain.MsgManualVerification, ""),
		CanOverride:    false,
	}
}

func alertID(parts ...string) string {
	return uuid.NewSHA1(alertNamespace, []byte(strings.Join(parts, "|"))).String()
}
