package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemo-dose-safety/internal/domain"
)

func TestDefaultRegistryBuilds(t *testing.T) {
	reg, err := NewBuilder().WithDefaults().Build()
	require.NoError(t, err)
	require.NotNil(t, reg)

	stats := reg.Stats()
	assert.Equal(t, 16, stats["limits"])
	assert.Equal(t, 19, stats["interactions"])
	assert.Equal(t, 18, stats["contraindications"])
	assert.Equal(t, 8, stats["prerequisites"])

	assert.Same(t, Default(), Default())
}

func TestCanonical(t *testing.T) {
	reg := Default()
	tests := []struct {
		in   string
		want string
	}{
		{"5-FU", "fluorouracil"},
		{"Adriamycin", "doxorubicin"},
		{"CPT-11", "irinotecan"},
		{"St. John's Wort", "hypericum"},
		{"Cisplatin", "cisplatin"},
		{"unknown-drug", "unknowndrug"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, reg.Canonical(tt.in))
		})
	}
}

func TestLimitLookup(t *testing.T) {
	reg := Default()

	l, ok := reg.Limit("Doxorubicin")
	require.True(t, ok)
	assert.Equal(t, 150.0, l.MaxPerCycle)
	assert.Equal(t, 550.0, l.CumulativeMax)
	require.NotNil(t, l.Hepatic)

	l, ok = reg.Limit("cisplatin")
	require.True(t, ok)
	assert.Equal(t, 200.0, l.ScheduleMax[domain.ScheduleEvery3Weeks])
	require.NotNil(t, l.Renal)
	assert.Equal(t, 60.0, l.Renal.Threshold)

	_, ok = reg.Limit("aspirin")
	assert.False(t, ok)
}

func TestAccessorsReturnCopies(t *testing.T) {
	reg := Default()

	l, _ := reg.Limit("cisplatin")
	l.ScheduleMax[domain.ScheduleWeekly] = 1
	l.Renal.Tiers[0].Factor = 9

	again, _ := reg.Limit("cisplatin")
	assert.Equal(t, 80.0, again.ScheduleMax[domain.ScheduleWeekly])
	assert.Equal(t, 0.5, again.Renal.Tiers[0].Factor)

	prs := reg.Prerequisites("trastuzumab")
	require.Len(t, prs, 1)
	prs[0].AcceptedStatuses[0] = "changed"
	assert.Equal(t, "positive", reg.Prerequisites("trastuzumab")[0].AcceptedStatuses[0])

	s, _ := reg.Solvent("oxaliplatin")
	s.Allowed[0] = "NS"
	s2, _ := reg.Solvent("oxaliplatin")
	assert.Equal(t, "Dextrose 5%", s2.Allowed[0])
}

func TestInteractionIsUnordered(t *testing.T) {
	reg := Default()

	ab, ok := reg.Interaction("irinotecan", "ketoconazole")
	require.True(t, ok)
	ba, ok := reg.Interaction("Ketoconazole", "CPT-11")
	require.True(t, ok)
	assert.Equal(t, ab.Severity, ba.Severity)
	assert.Equal(t, domain.InteractionContraindicated, ab.Severity)

	_, ok = reg.Interaction("paclitaxel", "carboplatin")
	assert.False(t, ok)
}

func TestClassSets(t *testing.T) {
	reg := Default()

	assert.True(t, reg.IsAgeSensitive("doxorubicin"))
	assert.True(t, reg.IsAgeSensitive("Taxol"))
	assert.True(t, reg.IsAgeSensitive("irinotecan"))
	assert.False(t, reg.IsAgeSensitive("gemcitabine"))

	assert.True(t, reg.IsCardiotoxic("trastuzumab"))
	assert.False(t, reg.IsCardiotoxic("cisplatin"))

	th, ok := reg.NephrotoxicThreshold("cisplatin")
	assert.True(t, ok)
	assert.Equal(t, 60.0, th)
	_, ok = reg.NephrotoxicThreshold("paclitaxel")
	assert.False(t, ok)
}

func TestCanonicalSolvent(t *testing.T) {
	reg := Default()
	assert.Equal(t, "nacl09", reg.CanonicalSolvent("NS"))
	assert.Equal(t, "nacl09", reg.CanonicalSolvent("NaCl 0.9%"))
	assert.Equal(t, "nacl09", reg.CanonicalSolvent("0.9% NaCl"))
	assert.Equal(t, "dextrose5", reg.CanonicalSolvent("D5W"))
	assert.Equal(t, "dextrose5", reg.CanonicalSolvent("Dextrose 5%"))
	assert.Equal(t, "ringerlactate", reg.CanonicalSolvent("Ringer-Lactate"))
}

func TestContraindicationPredicates(t *testing.T) {
	reg := Default()
	lvef := func(v float64) *float64 { return &v }

	rules := reg.Contraindications("trastuzumab")
	require.Len(t, rules, 2)

	tests := []struct {
		name     string
		clinical domain.ClinicalData
		want     []bool
	}{
		{"unknown lvef", domain.ClinicalData{}, []bool{false, false}},
		{"severe", domain.ClinicalData{LVEFPercent: lvef(35)}, []bool{true, false}},
		{"borderline", domain.ClinicalData{LVEFPercent: lvef(45)}, []bool{false, true}},
		{"normal", domain.ClinicalData{LVEFPercent: lvef(60)}, []bool{false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, r := range rules {
				assert.Equal(t, tt.want[i], r.Predicate(domain.PatientProfile{}, tt.clinical), r.Condition)
			}
		})
	}

	cis := reg.Contraindications("cisplatin")
	require.Len(t, cis, 2)
	assert.False(t, cis[0].Predicate(domain.PatientProfile{}, domain.ClinicalData{}), "unknown clearance never fires")
	assert.True(t, cis[0].Predicate(domain.PatientProfile{CreatinineClearance: 25}, domain.ClinicalData{}))
	assert.Equal(t, domain.ContraindicationAbsolute, cis[0].Kind)

	tam := reg.Contraindications("tamoxifen")
	require.Len(t, tam, 1)
	assert.True(t, tam[0].Predicate(domain.PatientProfile{Biomarkers: map[string]string{"er": "negative"}}, domain.ClinicalData{}))
	assert.False(t, tam[0].Predicate(domain.PatientProfile{}, domain.ClinicalData{}))
}

func TestBuilderRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name  string
		apply func(b *Builder)
	}{
		{"negative limit", func(b *Builder) { b.Limit(domain.DoseLimit{Drug: "x", MaxPerCycle: -1}) }},
		{"self interaction", func(b *Builder) {
			b.Interaction(domain.DrugInteraction{DrugA: "x", DrugB: "X", Severity: domain.InteractionMajor})
		}},
		{"unknown severity", func(b *Builder) {
			b.Interaction(domain.DrugInteraction{DrugA: "x", DrugB: "y", Severity: "severe"})
		}},
		{"nil predicate", func(b *Builder) {
			b.Contraindication(domain.ContraindicationRule{Drug: "x", Condition: "c", Kind: domain.ContraindicationAbsolute})
		}},
		{"empty prerequisite", func(b *Builder) { b.Prerequisite(domain.BiomarkerPrerequisite{Drug: "x", Biomarker: "y"}) }},
		{"inverted concentration", func(b *Builder) { b.Concentration(domain.ConcentrationRule{Drug: "x", Min: 2, Max: 1}) }},
		{"empty solvent list", func(b *Builder) { b.Solvent(domain.SolventRule{Drug: "x"}) }},
		{"zero nephrotoxic threshold", func(b *Builder) { b.Nephrotoxic("x", 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			tt.apply(b)
			reg, err := b.Build()
			assert.Error(t, err)
			assert.Nil(t, reg)
		})
	}

	assert.Panics(t, func() { NewBuilder().Nephrotoxic("x", -1).MustBuild() })
}

const overlayYAML = `
aliases:
  ara-c: cytarabine
limits:
  - drug: vinorelbine
    max_per_cycle: 60
    unit: mg
    warning_note: note.monitor_blood_counts
  - drug: cytarabine
    max_per_cycle: 3000
    unit: mg
interactions:
  - drug_a: vinorelbine
    drug_b: itraconazole
    severity: major
    effect: cyp3a4_inhibition
    management: avoid_combination
prerequisites:
  - drug: trastuzumab deruxtecan
    biomarker: HER2
    accepted_statuses: [low, positive]
age_sensitive: [vinorelbine]
nephrotoxic:
  ifosfamide: 60
`

func TestOverlay(t *testing.T) {
	ov, err := ParseOverlay([]byte(overlayYAML))
	require.NoError(t, err)

	reg, err := NewBuilder().WithDefaults().Apply(ov).Build()
	require.NoError(t, err)

	l, ok := reg.Limit("Vinorelbine")
	require.True(t, ok)
	assert.Equal(t, 60.0, l.MaxPerCycle)

	l, ok = reg.Limit("Ara-C")
	require.True(t, ok)
	assert.Equal(t, 3000.0, l.MaxPerCycle, "overlay replaces the built-in entry")

	d, ok := reg.Interaction("itraconazole", "vinorelbine")
	require.True(t, ok)
	assert.Equal(t, domain.InteractionMajor, d.Severity)

	assert.Len(t, reg.Prerequisites("trastuzumab deruxtecan"), 1)
	assert.True(t, reg.IsAgeSensitive("vinorelbine"))
	th, ok := reg.NephrotoxicThreshold("ifosfamide")
	assert.True(t, ok)
	assert.Equal(t, 60.0, th)

	base, _ := Default().Limit("cytarabine")
	assert.Equal(t, 6000.0, base.MaxPerCycle, "default registry is not affected")
}

func TestOverlayRejectsUnknownKeys(t *testing.T) {
	_, err := ParseOverlay([]byte("limitz: []\n"))
	assert.Error(t, err)
}

func TestOverlayInvalidEntryFailsBuild(t *testing.T) {
	ov, err := ParseOverlay([]byte("interactions:\n  - drug_a: a\n    drug_b: b\n    severity: lethal\n"))
	require.NoError(t, err)
	_, err = NewBuilder().WithDefaults().Apply(ov).Build()
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)
	assert.Same(t, Default(), reg)

	path := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(overlayYAML), 0o600))
	reg, err = Load(path)
	require.NoError(t, err)
	_, ok := reg.Limit("vinorelbine")
	assert.True(t, ok)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
