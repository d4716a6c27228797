package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemo-dose-safety/internal/domain"
	"github.com/chemo-dose-safety/internal/registry"
)

func TestAdjustmentPipeline_Age(t *testing.T) {
	p := NewAdjustmentPipeline(registry.Default())

	tests := []struct {
		name string
		drug string
		age  float64
		want float64
	}{
		{"elderly age-sensitive", "doxorubicin", 75, 91.8},
		{"younger age-sensitive", "doxorubicin", 50, 108},
		{"exactly 70 is not reduced", "doxorubicin", 70, 108},
		{"elderly not age-sensitive", "gemcitabine", 80, 108},
		{"brand name resolves", "Taxol", 72, 91.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Adjust(108, withAge(adultPatient(), tt.age), tt.drug)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestAdjustmentPipeline_Renal(t *testing.T) {
	p := NewAdjustmentPipeline(registry.Default())

	tests := []struct {
		name            string
		drug            string
		crcl            float64
		want            float64
		contraindicated bool
	}{
		{"cisplatin moderate impairment", "cisplatin", 45, 50, false},
		{"cisplatin lower tier bound", "cisplatin", 30, 50, false},
		{"cisplatin severe impairment", "cisplatin", 25, 0, true},
		{"cisplatin at threshold", "cisplatin", 60, 100, false},
		{"cisplatin normal", "cisplatin", 90, 100, false},
		{"capecitabine moderate impairment", "capecitabine", 40, 75, false},
		{"capecitabine below tier", "capecitabine", 25, 100, false},
		{"capecitabine normal", "capecitabine", 55, 100, false},
		{"pemetrexed below threshold", "pemetrexed", 40, 0, true},
		{"pemetrexed above threshold", "pemetrexed", 50, 100, false},
		{"irinotecan moderate impairment", "irinotecan", 50, 75, false},
		{"irinotecan below tier", "irinotecan", 35, 100, false},
		{"no renal rule", "paclitaxel", 20, 100, false},
		{"unknown drug", "aspirin", 20, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := p.Apply(100, withCrCl(adultPatient(), tt.crcl), tt.drug)
			assert.InDelta(t, tt.want, out.Dose, 1e-9)
			assert.Equal(t, tt.contraindicated, out.Contraindicated)
			if tt.contraindicated {
				require.NotNil(t, out.Alert)
				assert.Equal(t, domain.MsgRenalContraindicated, out.Alert.Code)
				assert.Equal(t, tt.drug, out.Alert.Drug)
			} else {
				assert.Nil(t, out.Alert)
			}
		})
	}
}

func TestAdjustmentPipeline_OrderAndTrail(t *testing.T) {
	p := NewAdjustmentPipeline(registry.Default())
	patient := withCrCl(withAge(adultPatient(), 75), 50)

	out := p.Apply(100, patient, "irinotecan")

	assert.InDelta(t, 63.75, out.Dose, 1e-9)
	require.Len(t, out.Applied, 2)
	assert.Equal(t, domain.StageAge, out.Applied[0].Stage)
	assert.Equal(t, 0.85, out.Applied[0].Factor)
	assert.Equal(t, domain.StageRenal, out.Applied[1].Stage)
	assert.Equal(t, 0.75, out.Applied[1].Factor)
	assert.Equal(t, "reduce_25_percent", out.Applied[1].Reason)
}

func TestAdjustmentPipeline_NeverNegative(t *testing.T) {
	p := NewAdjustmentPipeline(registry.Default())

	out := p.Apply(-100, adultPatient(), "cisplatin")
	assert.Zero(t, out.Dose)
	assert.Empty(t, out.Applied)
}

func TestAdjustmentPipeline_CustomRegistry(t *testing.T) {
	reg := registry.NewBuilder().
		Limit(domain.DoseLimit{
			Drug:        "vinorelbine",
			MaxPerCycle: 60,
			Renal: &domain.RenalRule{
				Threshold: 50,
				Tiers:     []domain.RenalTier{{MinCrCl: 10, Factor: 0}, {MinCrCl: 30, Factor: 0.5}},
			},
		}).
		MustBuild()
	p := NewAdjustmentPipeline(reg)

	assert.InDelta(t, 10.0, p.Adjust(20, withCrCl(adultPatient(), 40), "vinorelbine"), 1e-9)
	assert.Zero(t, p.Adjust(20, withCrCl(adultPatient(), 20), "vinorelbine"))
	assert.InDelta(t, 20.0, p.Adjust(20, withCrCl(adultPatient(), 5), "vinorelbine"), 1e-9)
}
