package dosetext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemo-dose-safety/internal/domain"
)

func TestParse_FormulaClasses(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		unit  domain.DoseUnit
		kind  domain.FormulaKind
		value float64
	}{
		{"bsa mg", "85", domain.UnitMgPerM2, domain.FormulaBodySurfaceArea, 85},
		{"bsa grams", "1,5", domain.UnitGPerM2, domain.FormulaBodySurfaceArea, 1.5},
		{"bsa with unit suffix", "175 mg/m2", domain.UnitMgPerM2, domain.FormulaBodySurfaceArea, 175},
		{"bsa with superscript suffix", "175 mg/m²", domain.UnitMgPerM2, domain.FormulaBodySurfaceArea, 175},
		{"bsa suffix without space", "85mg/m2", domain.UnitMgPerM2, domain.FormulaBodySurfaceArea, 85},
		{"decimal with suffix", "1.5 g/m2", domain.UnitGPerM2, domain.FormulaBodySurfaceArea, 1.5},
		{"decimal comma with suffix", "2,5 mg/kg", domain.UnitMgPerKg, domain.FormulaBodyWeight, 2.5},
		{"grouped with decimals", "1,250.5 mg/m2", domain.UnitMgPerM2, domain.FormulaBodySurfaceArea, 1250.5},
		{"fixed with suffix", "600 mg", domain.UnitMg, domain.FormulaFixed, 600},
		{"weight", "5", domain.UnitMgPerKg, domain.FormulaBodyWeight, 5},
		{"fixed", "200", domain.UnitMg, domain.FormulaFixed, 200},
		{"auc bare", "5", domain.UnitAUC, domain.FormulaAUCTarget, 5},
		{"auc marker", "AUC 6", domain.UnitAUC, domain.FormulaAUCTarget, 6},
		{"auc marker equals", "auc=4.5", domain.UnitAUC, domain.FormulaAUCTarget, 4.5},
		{"auc marker on fixed unit", "AUC5", domain.UnitFixed, domain.FormulaAUCTarget, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Parse("drug", tt.text, tt.unit)
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.value, f.Value)
			assert.Nil(t, f.Issue)
			assert.Equal(t, tt.text, f.Source)
		})
	}
}

func TestParse_AUCRangeIsInvalid(t *testing.T) {
	for _, text := range []string{"AUC 5-6", "5 - 6", "AUC 5 to 6", "AUC5~6"} {
		t.Run(text, func(t *testing.T) {
			f := Parse("carboplatin", text, domain.UnitAUC)
			assert.Equal(t, domain.FormulaInvalid, f.Kind)
			require.NotNil(t, f.Issue)
			assert.Equal(t, domain.MsgAUCRangeNotAllowed, f.Issue.Code)
			assert.Equal(t, "carboplatin", f.Issue.Drug)
		})
	}
}

func TestParse_UnparseableResolvesToZero(t *testing.T) {
	for _, text := range []string{"", "abc", "80-100", "see protocol"} {
		t.Run(text, func(t *testing.T) {
			f := Parse("oxaliplatin", text, domain.UnitMgPerM2)
			assert.Equal(t, domain.FormulaBodySurfaceArea, f.Kind)
			assert.Zero(t, f.Value)
			require.NotNil(t, f.Issue)
			assert.Equal(t, domain.MsgDoseTextUnparseable, f.Issue.Code)
		})
	}
}

func TestParse_ThousandsGroupingIsFlagged(t *testing.T) {
	tests := []struct {
		text  string
		value float64
	}{
		{"1,000", 1000},
		{"1,250", 1250},
		{"1,250 mg/m2", 1250},
		{"2,400 mg/m²", 2400},
		{"1,000,000", 1000000},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			f := Parse("capecitabine", tt.text, domain.UnitMgPerM2)
			assert.Equal(t, domain.FormulaBodySurfaceArea, f.Kind)
			assert.Equal(t, tt.value, f.Value)
			require.NotNil(t, f.Issue)
			assert.Equal(t, domain.MsgDoseTextAmbiguous, f.Issue.Code)
			assert.Equal(t, "capecitabine", f.Issue.Drug)
			assert.Equal(t, tt.text, f.Issue.Param("text"))
		})
	}
}

func TestParse_UnitSuffixDoesNotSwallowDigits(t *testing.T) {
	for _, text := range []string{"175 2", "80 - 100 mg/m2", "85 mg/m2 d1-d3", "mg/m2 85"} {
		t.Run(text, func(t *testing.T) {
			f := Parse("paclitaxel", text, domain.UnitMgPerM2)
			assert.Zero(t, f.Value)
			require.NotNil(t, f.Issue)
			assert.Equal(t, domain.MsgDoseTextUnparseable, f.Issue.Code)
		})
	}
}

func TestValidAUC(t *testing.T) {
	valid := []string{"5", "AUC 5", "auc5", "AUC=6", "AUC: 4.5"}
	invalid := []string{"AUC 5-6", "5-6", "AUC 5 to 6", "AUC", "", "five"}

	for _, s := range valid {
		assert.True(t, ValidAUC(s), s)
	}
	for _, s := range invalid {
		assert.False(t, ValidAUC(s), s)
	}
}
