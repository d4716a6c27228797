package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenalRule_Factor(t *testing.T) {
	rule := RenalRule{
		Threshold: 60,
		Tiers:     []RenalTier{{MinCrCl: 0, Factor: 0}, {MinCrCl: 30, Factor: 0.5}},
	}

	tests := []struct {
		name    string
		crcl    float64
		factor  float64
		matched bool
	}{
		{"normal function", 90, 1, false},
		{"at threshold", 60, 1, false},
		{"moderate impairment", 45, 0.5, true},
		{"tier boundary", 30, 0.5, true},
		{"severe impairment", 25, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := rule.Factor(tt.crcl)
			assert.Equal(t, tt.factor, f)
			assert.Equal(t, tt.matched, ok)
		})
	}
}

func TestRenalRule_NoMatchingTierLeavesDose(t *testing.T) {
	rule := RenalRule{Threshold: 50, Tiers: []RenalTier{{MinCrCl: 30, Factor: 0.75}}}

	f, ok := rule.Factor(20)

	assert.Equal(t, 1.0, f)
	assert.False(t, ok)
}

func TestDoseLimit_CloneIsDeep(t *testing.T) {
	l := DoseLimit{
		Drug:        "paclitaxel",
		ScheduleMax: map[string]float64{ScheduleWeekly: 160},
		Renal:       &RenalRule{Threshold: 60, Tiers: []RenalTier{{MinCrCl: 30, Factor: 0.5}}},
	}

	c := l.Clone()
	c.ScheduleMax[ScheduleWeekly] = 1
	c.Renal.Tiers[0].Factor = 1

	assert.Equal(t, 160.0, l.ScheduleMax[ScheduleWeekly])
	assert.Equal(t, 0.5, l.Renal.Tiers[0].Factor)
}

func TestDoseLimit_Validate(t *testing.T) {
	assert.NoError(t, DoseLimit{Drug: "cisplatin", MaxPerCycle: 200}.Validate())
	assert.Error(t, DoseLimit{}.Validate())
	assert.Error(t, DoseLimit{Drug: "x", MaxPerCycle: -1}.Validate())
	assert.Error(t, DoseLimit{Drug: "x", ScheduleMax: map[string]float64{"weekly": 0}}.Validate())
}

func TestFormulaConstructorsClampNegative(t *testing.T) {
	assert.Zero(t, BodySurfaceArea(-85).Value)
	assert.Equal(t, FormulaAUCTarget, AUCTarget(5).Kind)
	assert.Equal(t, FormulaFixed, Fixed(80).Kind)
	assert.Equal(t, FormulaBodyWeight, BodyWeight(5).Kind)
}
