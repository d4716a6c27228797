package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatientProfile_NormalizedClampsNegatives(t *testing.T) {
	p := PatientProfile{
		WeightKg:            -70,
		HeightCm:            math.NaN(),
		AgeYears:            -1,
		SerumCreatinine:     math.Inf(1),
		CreatinineClearance: -20,
		BSA:                 -1.8,
	}

	n := p.Normalized()

	assert.Zero(t, n.WeightKg)
	assert.Zero(t, n.HeightCm)
	assert.Zero(t, n.AgeYears)
	assert.Zero(t, n.SerumCreatinine)
	assert.Zero(t, n.CreatinineClearance)
	assert.Zero(t, n.BSA)
}

func TestPatientProfile_NormalizedDerivesBSAAndCrCl(t *testing.T) {
	p := PatientProfile{
		WeightKg:        72,
		HeightCm:        180,
		AgeYears:        60,
		Sex:             SexMale,
		SerumCreatinine: 1.0,
	}

	n := p.Normalized()

	assert.Equal(t, 1.9, n.BSA)
	assert.Equal(t, 80.0, n.CreatinineClearance)
}

func TestPatientProfile_NormalizedKeepsSuppliedValues(t *testing.T) {
	p := PatientProfile{WeightKg: 72, HeightCm: 180, BSA: 1.8, CreatinineClearance: 95}

	n := p.Normalized()

	assert.Equal(t, 1.8, n.BSA)
	assert.Equal(t, 95.0, n.CreatinineClearance)
}

func TestPatientProfile_NormalizedBiomarkerKeys(t *testing.T) {
	p := PatientProfile{Biomarkers: map[string]string{"HER2": " Positive ", "RAS": "Wild-Type"}}

	n := p.Normalized()

	assert.Equal(t, "positive", n.Biomarkers["her2"])
	assert.Equal(t, "wildtype", n.Biomarkers["ras"])
	assert.Equal(t, " Positive ", p.Biomarkers["HER2"], "input map must not be mutated")
}

func TestCockcroftGault(t *testing.T) {
	assert.Equal(t, 80.0, CockcroftGault(60, 72, 1.0, SexMale))
	assert.Equal(t, 68.0, CockcroftGault(60, 72, 1.0, SexFemale))
	assert.Zero(t, CockcroftGault(60, 72, 0, SexMale))
	assert.Zero(t, CockcroftGault(60, 0, 1.0, SexMale))
	assert.Zero(t, CockcroftGault(150, 72, 1.0, SexMale))
}

func TestMostellerBSA(t *testing.T) {
	assert.Equal(t, 1.9, MostellerBSA(180, 72))
	assert.Zero(t, MostellerBSA(0, 72))
	assert.Zero(t, MostellerBSA(180, -5))
}

func TestParseMeasurement(t *testing.T) {
	tests := []struct {
		in       string
		expected float64
	}{
		{"72.5", 72.5},
		{" 72,5 ", 72.5},
		{"", 0},
		{"abc", 0},
		{"-3", 0},
		{"NaN", 0},
		{"Inf", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseMeasurement(tt.in))
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "dextrose5", NormalizeKey("Dextrose 5%"))
	assert.Equal(t, "ns", NormalizeKey("N.S."))
	assert.Equal(t, "5fluorouracil", NormalizeKey("5-Fluorouracil"))
}
