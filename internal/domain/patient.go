package domain

import (
	"math"
	"strconv"
	"strings"
)

// PatientProfile holds the physiologic parameters that feed dose calculation.
// Identity fields are deliberately absent: only physiology enters the engine.
type PatientProfile struct {
	WeightKg            float64           `json:"weight_kg" yaml:"weight_kg"`
	HeightCm            float64           `json:"height_cm" yaml:"height_cm"`
	AgeYears            float64           `json:"age_years" yaml:"age_years"`
	Sex                 Sex               `json:"sex,omitempty" yaml:"sex,omitempty"`
	SerumCreatinine     float64           `json:"serum_creatinine,omitempty" yaml:"serum_creatinine,omitempty"` // mg/dL
	CreatinineClearance float64           `json:"creatinine_clearance,omitempty" yaml:"creatinine_clearance,omitempty"` // mL/min
	BSA                 float64           `json:"bsa,omitempty" yaml:"bsa,omitempty"` // m²
	Biomarkers          map[string]string `json:"biomarkers,omitempty" yaml:"biomarkers,omitempty"`
}

// ClinicalData carries optional findings used only by contraindication predicates.
// A nil pointer means the finding is unknown, which never triggers a predicate.
type ClinicalData struct {
	LVEFPercent        *float64 `json:"lvef_percent,omitempty" yaml:"lvef_percent,omitempty"`
	BilirubinXULN      *float64 `json:"bilirubin_xuln,omitempty" yaml:"bilirubin_xuln,omitempty"`
	NeuropathyGrade    int      `json:"neuropathy_grade,omitempty" yaml:"neuropathy_grade,omitempty"`
	HearingImpairment  bool     `json:"hearing_impairment,omitempty" yaml:"hearing_impairment,omitempty"`
	RecentMajorSurgery bool     `json:"recent_major_surgery,omitempty" yaml:"recent_major_surgery,omitempty"`
	Pregnant           bool     `json:"pregnant,omitempty" yaml:"pregnant,omitempty"`
}

// Normalized returns a copy of the profile with every numeric field clamped to
// zero or above and the derived fields (BSA, creatinine clearance) filled in
// when the caller did not supply them.
func (p PatientProfile) Normalized() PatientProfile {
	out := p
	out.WeightKg = NonNegative(p.WeightKg)
	out.HeightCm = NonNegative(p.HeightCm)
	out.AgeYears = NonNegative(p.AgeYears)
	out.SerumCreatinine = NonNegative(p.SerumCreatinine)
	out.CreatinineClearance = NonNegative(p.CreatinineClearance)
	out.BSA = NonNegative(p.BSA)

	if out.BSA == 0 {
		out.BSA = MostellerBSA(out.HeightCm, out.WeightKg)
	}
	if out.CreatinineClearance == 0 {
		out.CreatinineClearance = CockcroftGault(out.AgeYears, out.WeightKg, out.SerumCreatinine, out.Sex)
	}

	if p.Biomarkers != nil {
		out.Biomarkers = make(map[string]string, len(p.Biomarkers))
		for k, v := range p.Biomarkers {
			out.Biomarkers[NormalizeKey(k)] = NormalizeKey(v)
		}
	}
	return out
}

// MostellerBSA computes body-surface area in m², rounded to two decimals.
func MostellerBSA(heightCm, weightKg float64) float64 {
	h, w := NonNegative(heightCm), NonNegative(weightKg)
	if h == 0 || w == 0 {
		return 0
	}
	return Round(math.Sqrt(h*w/3600), 2)
}

// CockcroftGault estimates creatinine clearance in mL/min. It returns 0 when any
// input needed by the formula is missing.
func CockcroftGault(ageYears, weightKg, serumCreatinine float64, sex Sex) float64 {
	age, w, scr := NonNegative(ageYears), NonNegative(weightKg), NonNegative(serumCreatinine)
	if scr == 0 || w == 0 || age >= 140 {
		return 0
	}
	crcl := (140 - age) * w / (72 * scr)
	if sex == SexFemale {
		crcl *= 0.85
	}
	return Round(crcl, 1)
}

// NonNegative clamps v to zero or above. NaN and infinities become zero.
func NonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// ParseMeasurement reads a numeric field supplied as text. Anything that is not
// a finite number resolves to 0; a decimal comma is accepted.
func ParseMeasurement(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return NonNegative(v)
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// NormalizeKey case-folds a lookup key and strips everything that is not a
// letter or digit, so "Dextrose 5%", "dextrose-5" and "DEXTROSE5" collide.
func NormalizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
