// Package dosetext converts the dosing text found in regimen catalogs into
// tagged dose formulas. Parsing happens once at ingestion; the calculation
// path only ever sees domain.DoseFormula values.
package dosetext

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/chemo-dose-safety/internal/domain"
)

var (
	// "AUC 5", "auc=5", "AUC:5.5", "5"
	aucPattern = regexp.MustCompile(`(?i)^\s*(?:auc\s*[=:]?\s*)?(\d+(?:[.,]\d+)?)\s*$`)
	// two numbers joined by a dash, tilde or "to"
	rangePattern = regexp.MustCompile(`(?i)\d\s*(?:-|–|—|~|to)\s*\d`)
	// "85", "85.5 mg/m2", "1,5 g/m²", "1,250 mg/m2", "2,500.5 mg"
	numericPattern = regexp.MustCompile(`^\s*(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:[.,]\d+)?)(?:\s*[a-zA-Z/²%][a-zA-Z0-9/²%.]*)?\s*$`)
	// "1,000": thousands grouping or a decimal comma
	groupedPattern = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
	aucMarker      = regexp.MustCompile(`(?i)^\s*auc`)
)

// Parse turns dosing text and its unit tag into a DoseFormula. It never fails:
// an AUC range yields a FormulaInvalid formula, and unparseable text yields a
// zero-valued formula of the unit's class. Both carry an Issue message.
//
// A comma followed by exactly three digits is read as thousands grouping, so
// "1,250" is 1250. Without a decimal point that reading could also be a
// decimal comma, so the formula keeps its value and carries an Issue.
func Parse(drug, text string, unit domain.DoseUnit) domain.DoseFormula {
	kind := unit.FormulaKind()
	if aucMarker.MatchString(text) {
		kind = domain.FormulaAUCTarget
	}

	formula := domain.DoseFormula{Kind: kind, Unit: unit, Source: text}
	if kind == domain.FormulaAUCTarget {
		formula.Unit = domain.UnitAUC
		return parseAUC(drug, text, formula)
	}

	m := numericPattern.FindStringSubmatch(text)
	if m == nil {
		formula.Issue = domain.NewMessage(domain.MsgDoseTextUnparseable, drug, "text", text)
		return formula
	}
	formula.Value = parseNumber(m[1])
	if groupedPattern.MatchString(m[1]) {
		formula.Issue = domain.NewMessage(domain.MsgDoseTextAmbiguous, drug,
			"text", text, "interpreted", formula.Value)
	}
	return formula
}

func parseAUC(drug, text string, formula domain.DoseFormula) domain.DoseFormula {
	if rangePattern.MatchString(text) {
		formula.Kind = domain.FormulaInvalid
		formula.Issue = domain.NewMessage(domain.MsgAUCRangeNotAllowed, drug, "text", text)
		return formula
	}
	m := aucPattern.FindStringSubmatch(text)
	if m == nil {
		formula.Issue = domain.NewMessage(domain.MsgDoseTextUnparseable, drug, "text", text)
		return formula
	}
	formula.Value = parseNumber(m[1])
	return formula
}

// ValidAUC reports whether text is a single AUC target, optionally preceded by
// the AUC marker. Ranges such as "AUC 5-6" are rejected.
func ValidAUC(text string) bool {
	if rangePattern.MatchString(text) {
		return false
	}
	return aucPattern.MatchString(text)
}

func parseNumber(s string) float64 {
	if strings.Count(s, ",") > 1 || strings.Contains(s, ".") || groupedPattern.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return domain.NonNegative(v)
}
