package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemo-dose-safety/internal/domain"
)

const folfoxYAML = `
regimens:
  - name: FOLFOX-6
    indication: colorectal
    schedule: q14d
    cycles: 12
    drugs:
      - drug: oxaliplatin
        dose: "85"
        unit: mg/m2
        solvents: [D5W]
        volumes: [500]
      - drug: fluorouracil
        dose: "400"
        unit: mg/m2
      - drug: leucovorin
        dose: "400"
        unit: mg/m2
        schedule: q2w
  - name: Carboplatin-Paclitaxel
    schedule: q3w
    drugs:
      - drug: carboplatin
        dose: AUC 5
      - drug: paclitaxel
        dose: "175"
        unit: mg/m2
`

func TestParse_YAML(t *testing.T) {
	cat, err := Parse([]byte(folfoxYAML), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())
	assert.Equal(t, []string{"Carboplatin-Paclitaxel", "FOLFOX-6"}, cat.Names())

	r, ok := cat.Get("folfox 6")
	require.True(t, ok, "lookup ignores case and punctuation")
	assert.Equal(t, 12, r.Cycles)

	specs := r.Specifications()
	require.Len(t, specs, 3)
	assert.Equal(t, domain.FormulaBodySurfaceArea, specs[0].Formula.Kind)
	assert.Equal(t, 85.0, specs[0].Formula.Value)
	assert.Equal(t, []string{"D5W"}, specs[0].Solvents)
	assert.Equal(t, []float64{500}, specs[0].Volumes)
	assert.Equal(t, "q14d", specs[0].Schedule, "entries inherit the regimen schedule")
	assert.Equal(t, "q2w", specs[2].Schedule, "an entry schedule wins")

	_, ok = cat.Get("FLOT")
	assert.False(t, ok)
}

func TestRegimen_SpecificationsAUC(t *testing.T) {
	cat, err := Parse([]byte(folfoxYAML), FormatYAML)
	require.NoError(t, err)
	r, ok := cat.Get("Carboplatin-Paclitaxel")
	require.True(t, ok)

	specs := r.Specifications()
	require.Len(t, specs, 2)
	assert.Equal(t, domain.FormulaAUCTarget, specs[0].Formula.Kind)
	assert.Equal(t, domain.UnitAUC, specs[0].Formula.Unit)
	assert.Equal(t, 5.0, specs[0].Formula.Value)
	assert.Nil(t, specs[0].Formula.Issue)
}

func TestRegimen_SpecificationsAUCRange(t *testing.T) {
	r := Regimen{
		Name:  "carbo",
		Drugs: []DrugEntry{{Drug: "carboplatin", Dose: "AUC 5-6"}},
	}
	require.NoError(t, r.Validate())

	specs := r.Specifications()
	require.Len(t, specs, 1)
	assert.Equal(t, domain.FormulaInvalid, specs[0].Formula.Kind)
	require.NotNil(t, specs[0].Formula.Issue)
	assert.Equal(t, domain.MsgAUCRangeNotAllowed, specs[0].Formula.Issue.Code)
}

func TestParse_JSON(t *testing.T) {
	data := `{"regimens":[{"name":"Gem","schedule":"weekly","drugs":[{"drug":"gemcitabine","dose":"1000","unit":"mg/m2"}]}]}`
	cat, err := Parse([]byte(data), FormatJSON)
	require.NoError(t, err)

	r, ok := cat.Get("gem")
	require.True(t, ok)
	specs := r.Specifications()
	require.Len(t, specs, 1)
	assert.Equal(t, 1000.0, specs[0].Formula.Value)
	assert.Equal(t, "weekly", specs[0].Schedule)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"duplicate names", `
regimens:
  - name: AC
    drugs: [{drug: doxorubicin, dose: "60", unit: mg/m2}]
  - name: ac
    drugs: [{drug: cyclophosphamide, dose: "600", unit: mg/m2}]
`, FormatYAML},
		{"missing name", `
regimens:
  - drugs: [{drug: doxorubicin, dose: "60", unit: mg/m2}]
`, FormatYAML},
		{"no drugs", `
regimens:
  - name: empty
`, FormatYAML},
		{"missing unit", `
regimens:
  - name: AC
    drugs: [{drug: doxorubicin, dose: "60"}]
`, FormatYAML},
		{"unknown yaml key", `
regimens:
  - name: AC
    dosage: high
    drugs: [{drug: doxorubicin, dose: "60", unit: mg/m2}]
`, FormatYAML},
		{"unknown json key", `{"regimens":[{"name":"AC","extra":1,"drugs":[{"drug":"doxorubicin","dose":"60","unit":"mg/m2"}]}]}`, FormatJSON},
		{"malformed json", `{"regimens":[`, FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			assert.Error(t, err)
		})
	}
}

func TestRegimen_ValidateReturnsValidationError(t *testing.T) {
	err := Regimen{Name: "AC", Drugs: []DrugEntry{{Dose: "60", Unit: "mg/m2"}}}.Validate()
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "drugs[0].drug", verr.Field)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromPath("regimens.JSON"))
	assert.Equal(t, FormatYAML, FormatFromPath("regimens.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("regimens.yml"))
	assert.Equal(t, FormatYAML, FormatFromPath("regimens"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regimens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(folfoxYAML), 0o600))

	cat, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

const caseWithUnknownKey = `
patient_ref: MRN-0042
regimen_name: AC
patient:
  weight_kg: 70
  height_cm: 170
  age_years: 62
  sex: female
  serum_creatinine: 0.9
diagnosis: colorectal
`

func TestParseCase_UnknownKey(t *testing.T) {
	_, err := ParseCase([]byte(caseWithUnknownKey), FormatYAML)
	assert.Error(t, err)
}

func TestParseCase_Named(t *testing.T) {
	data := `
patient_ref: MRN-0042
regimen_name: folfox6
patient:
  weight_kg: 70
  height_cm: 170
  age_years: 62
  sex: female
  serum_creatinine: 0.9
clinical:
  lvef_percent: 55
  neuropathy_grade: 1
biomarker_status:
  HER2: positive
current_medications: [warfarin]
cycles_completed: 3
`
	c, err := ParseCase([]byte(data), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "MRN-0042", c.PatientRef)
	assert.Equal(t, domain.SexFemale, c.Patient.Sex)
	require.NotNil(t, c.Clinical.LVEFPercent)
	assert.Equal(t, 55.0, *c.Clinical.LVEFPercent)
	assert.Nil(t, c.Clinical.BilirubinXULN)
	assert.Equal(t, 3, c.CyclesCompleted)

	cat, err := Parse([]byte(folfoxYAML), FormatYAML)
	require.NoError(t, err)
	r, err := c.ResolveRegimen(cat)
	require.NoError(t, err)
	assert.Equal(t, "FOLFOX-6", r.Name)

	_, err = c.ResolveRegimen(nil)
	assert.Error(t, err)

	c.RegimenName = "FLOT"
	_, err = c.ResolveRegimen(cat)
	assert.Error(t, err)
}

func TestParseCase_InlineJSON(t *testing.T) {
	data := `{
  "patient": {"weight_kg": 80, "height_cm": 180, "age_years": 50, "creatinine_clearance": 95},
  "regimen": {"name": "single", "drugs": [{"drug": "carboplatin", "dose": "AUC 6"}]}
}`
	c, err := ParseCase([]byte(data), FormatJSON)
	require.NoError(t, err)

	r, err := c.ResolveRegimen(nil)
	require.NoError(t, err, "an inline regimen needs no catalog")
	assert.Equal(t, "single", r.Name)
	assert.Equal(t, 95.0, c.Patient.CreatinineClearance)
}

func TestParseCase_Rejects(t *testing.T) {
	_, err := ParseCase([]byte(`patient: {weight_kg: 70, height_cm: 170, age_years: 50}`), FormatYAML)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "regimen", verr.Field)

	_, err = ParseCase([]byte(`
patient: {weight_kg: 70, height_cm: 170, age_years: 50}
regimen: {name: bad, drugs: []}
`), FormatYAML)
	assert.Error(t, err)
}

func TestCase_SafetyRequest(t *testing.T) {
	lvef := 45.0
	c := &Case{
		Patient:            domain.PatientProfile{WeightKg: 70, HeightCm: 170, AgeYears: 60},
		Clinical:           domain.ClinicalData{LVEFPercent: &lvef},
		BiomarkerStatus:    map[string]string{"HER2": "positive"},
		CurrentMedications: []string{"warfarin"},
	}
	specs := []domain.DoseSpecification{{Drug: "trastuzumab", Formula: domain.BodyWeight(6)}}
	results := []domain.DoseCalculationResult{{Drug: "trastuzumab", FinalDose: 420}}

	req := c.SafetyRequest(specs, results)
	assert.Equal(t, specs, req.Regimen)
	assert.Equal(t, results, req.CalculatedDoses)
	assert.Equal(t, c.Patient, req.Patient)
	assert.Equal(t, "positive", req.BiomarkerStatus["HER2"])
	assert.Equal(t, []string{"warfarin"}, req.CurrentMedications)
	require.NotNil(t, req.ClinicalData.LVEFPercent)
	assert.Equal(t, 45.0, *req.ClinicalData.LVEFPercent)
}

func TestLoadCase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "case.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"patient":{"weight_kg":70,"height_cm":170,"age_years":50},"regimen_name":"AC"}`), 0o600))

	c, err := LoadCase(path)
	require.NoError(t, err)
	assert.Equal(t, "AC", c.RegimenName)
}
