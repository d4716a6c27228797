package registry

import "github.com/chemo-dose-safety/internal/domain"

// WithDefaults loads the built-in reference tables.
func (b *Builder) WithDefaults() *Builder {
	for alias, canonical := range defaultAliases {
		b.Alias(alias, canonical)
	}
	for alias, canonical := range defaultSolventAliases {
		b.SolventAlias(alias, canonical)
	}
	for _, l := range defaultLimits() {
		b.Limit(l)
	}
	for _, c := range defaultConcentration {
		b.Concentration(c)
	}
	for _, s := range defaultSolvents {
		b.Solvent(s)
	}
	for _, d := range defaultInteractions {
		b.Interaction(d)
	}
	for _, r := range defaultContraindications() {
		b.Contraindication(r)
	}
	for _, p := range defaultPrerequisites {
		b.Prerequisite(p)
	}
	b.AgeSensitive(ageSensitiveDrugs...)
	b.Cardiotoxic(cardiotoxicDrugs...)
	for drug, threshold := range nephrotoxicThresholds {
		b.Nephrotoxic(drug, threshold)
	}
	return b
}

var defaultAliases = map[string]string{
	"5fu":           "fluorouracil",
	"5fluorouracil": "fluorouracil",
	"adriamycin":    "doxorubicin",
	"taxol":         "paclitaxel",
	"taxotere":      "docetaxel",
	"xeloda":        "capecitabine",
	"alimta":        "pemetrexed",
	"herceptin":     "trastuzumab",
	"perjeta":       "pertuzumab",
	"avastin":       "bevacizumab",
	"stjohnswort":   "hypericum",
	"stjohnsworth":  "hypericum",
	"rifampin":      "rifampicin",
	"cpt11":         "irinotecan",
	"cddp":          "cisplatin",
	"eloxatin":      "oxaliplatin",
	"paraplatin":    "carboplatin",
	"gemzar":        "gemcitabine",
	"coumadin":      "warfarin",
	"erbitux":       "cetuximab",
	"tagrisso":      "osimertinib",
	"lynparza":      "olaparib",
	"vectibix":      "panitumumab",
	"nolvadex":      "tamoxifen",
}

var defaultSolventAliases = map[string]string{
	"ns":               "nacl09",
	"normalsaline":     "nacl09",
	"saline":           "nacl09",
	"nacl":             "nacl09",
	"nacl09":           "nacl09",
	"09nacl":           "nacl09",
	"sodiumchloride09": "nacl09",
	"09sodiumchloride": "nacl09",
	"d5w":              "dextrose5",
	"d5":               "dextrose5",
	"dextrose5":        "dextrose5",
	"5dextrose":        "dextrose5",
	"glucose5":         "dextrose5",
	"5glucose":         "dextrose5",
	"g5":               "dextrose5",
}

const (
	noteCumulativeAnthracycline = "note.track_cumulative_anthracycline_dose"
	noteNephrotoxicity          = "note.monitor_renal_function_and_hydration"
	noteNeurotoxicity           = "note.monitor_peripheral_neuropathy"
	noteMyelosuppression        = "note.monitor_blood_counts"
	noteCardiotoxicity          = "note.monitor_cardiac_function"
	noteCarboplatinCap          = "note.cap_carboplatin_at_gfr_125"
	noteDiarrhea                = "note.monitor_delayed_diarrhea"
	noteHandFoot                = "note.monitor_hand_foot_syndrome"
	noteFolateB12               = "note.folate_and_b12_supplementation"
	noteHemorrhagicCystitis     = "note.mesna_and_hydration"
	noteHypersensitivity        = "note.premedicate_for_hypersensitivity"
)

func defaultLimits() []domain.DoseLimit {
	return []domain.DoseLimit{
		{
			Drug: "cisplatin",
			ScheduleMax: map[string]float64{
				domain.ScheduleWeekly:      80,
				domain.ScheduleEvery3Weeks: 200,
				domain.ScheduleEvery14Days: 150,
			},
			Unit:        "mg",
			WarningNote: noteNephrotoxicity,
			Renal: &domain.RenalRule{
				Threshold: 60,
				Tiers:     []domain.RenalTier{{MinCrCl: 30, Factor: 0.5}, {MinCrCl: 0, Factor: 0}},
				Effect:    "reduce_50_percent_or_contraindicated",
			},
		},
		{Drug: "carboplatin", MaxPerCycle: 900, Unit: "mg", WarningNote: noteCarboplatinCap},
		{Drug: "oxaliplatin", MaxPerCycle: 260, Unit: "mg", WarningNote: noteNeurotoxicity},
		{
			Drug: "doxorubicin", MaxPerCycle: 150, CumulativeMax: 550, Unit: "mg",
			WarningNote: noteCumulativeAnthracycline,
			Hepatic:     &domain.HepaticRule{BilirubinXULN: 1.5, Effect: "reduce_for_hyperbilirubinemia"},
		},
		{Drug: "epirubicin", MaxPerCycle: 250, CumulativeMax: 900, Unit: "mg", WarningNote: noteCumulativeAnthracycline},
		{
			Drug:        "paclitaxel",
			ScheduleMax: map[string]float64{domain.ScheduleWeekly: 180, domain.ScheduleEvery3Weeks: 400},
			Unit:        "mg",
			WarningNote: noteHypersensitivity,
		},
		{
			Drug: "docetaxel", MaxPerCycle: 200, Unit: "mg", WarningNote: noteMyelosuppression,
			Hepatic: &domain.HepaticRule{BilirubinXULN: 1.0, Effect: "withhold_for_hyperbilirubinemia"},
		},
		{
			Drug: "irinotecan",
			ScheduleMax: map[string]float64{
				domain.ScheduleWeekly:      250,
				domain.ScheduleEvery14Days: 400,
				domain.ScheduleEvery3Weeks: 700,
			},
			Unit:        "mg",
			WarningNote: noteDiarrhea,
			Renal: &domain.RenalRule{
				Threshold: 60,
				Tiers:     []domain.RenalTier{{MinCrCl: 40, Factor: 0.75}},
				Effect:    "reduce_25_percent",
			},
		},
		{
			Drug: "capecitabine", MaxPerCycle: 2500, Unit: "mg", WarningNote: noteHandFoot,
			Renal: &domain.RenalRule{
				Threshold: 50,
				Tiers:     []domain.RenalTier{{MinCrCl: 30, Factor: 0.75}},
				Effect:    "reduce_25_percent",
			},
		},
		{
			Drug: "pemetrexed", MaxPerCycle: 1100, Unit: "mg", WarningNote: noteFolateB12,
			Renal: &domain.RenalRule{
				Threshold: 45,
				Tiers:     []domain.RenalTier{{MinCrCl: 0, Factor: 0}},
				Effect:    "contraindicated",
			},
		},
		{
			Drug:        "fluorouracil",
			ScheduleMax: map[string]float64{domain.ScheduleEvery14Days: 5500, domain.ScheduleWeekly: 1500},
			Unit:        "mg",
			WarningNote: noteMyelosuppression,
		},
		{Drug: "gemcitabine", MaxPerCycle: 2500, Unit: "mg", WarningNote: noteMyelosuppression},
		{Drug: "cyclophosphamide", MaxPerCycle: 2000, Unit: "mg", WarningNote: noteHemorrhagicCystitis},
		{Drug: "bevacizumab", MaxPerCycle: 1500, Unit: "mg"},
		{Drug: "trastuzumab", MaxPerCycle: 900, Unit: "mg", WarningNote: noteCardiotoxicity},
		{Drug: "cytarabine", MaxPerCycle: 6000, Unit: "mg", WarningNote: noteMyelosuppression},
	}
}

var defaultConcentration = []domain.ConcentrationRule{
	{Drug: "paclitaxel", Min: 0.3, Max: 1.2},
	{Drug: "docetaxel", Min: 0.3, Max: 0.74},
	{Drug: "oxaliplatin", MinVolume: 250},
	{Drug: "etoposide", Max: 0.4},
}

var defaultSolvents = []domain.SolventRule{
	{Drug: "oxaliplatin", Allowed: []string{"Dextrose 5%"}, DextroseOnly: true},
	{Drug: "paclitaxel", Allowed: []string{"NaCl 0.9%", "Dextrose 5%"}},
	{Drug: "docetaxel", Allowed: []string{"NaCl 0.9%", "Dextrose 5%"}},
	{Drug: "doxorubicin", Allowed: []string{"NaCl 0.9%", "Dextrose 5%"}},
	{Drug: "etoposide", Allowed: []string{"NaCl 0.9%", "Dextrose 5%"}},
	{Drug: "carboplatin", Allowed: []string{"Dextrose 5%", "NaCl 0.9%"}},
	{Drug: "irinotecan", Allowed: []string{"Dextrose 5%", "NaCl 0.9%"}},
	{Drug: "cisplatin", Allowed: []string{"NaCl 0.9%"}},
	{Drug: "gemcitabine", Allowed: []string{"NaCl 0.9%"}},
	{Drug: "pemetrexed", Allowed: []string{"NaCl 0.9%"}},
	{Drug: "trastuzumab", Allowed: []string{"NaCl 0.9%"}},
	{Drug: "bevacizumab", Allowed: []string{"NaCl 0.9%"}},
}

var defaultInteractions = []domain.DrugInteraction{
	{
		DrugA: "irinotecan", DrugB: "ketoconazole", Severity: domain.InteractionContraindicated,
		Effect: "cyp3a4_inhibition_increases_sn38_exposure", Management: "avoid_combination",
	},
	{
		DrugA: "irinotecan", DrugB: "hypericum", Severity: domain.InteractionContraindicated,
		Effect: "cyp3a4_induction_reduces_sn38_exposure", Management: "stop_st_johns_wort_2_weeks_before",
	},
	{
		DrugA: "fluorouracil", DrugB: "brivudine", Severity: domain.InteractionContraindicated,
		Effect: "dpd_inhibition_fatal_fluoropyrimidine_toxicity", Management: "wait_4_weeks_after_brivudine",
	},
	{
		DrugA: "capecitabine", DrugB: "brivudine", Severity: domain.InteractionContraindicated,
		Effect: "dpd_inhibition_fatal_fluoropyrimidine_toxicity", Management: "wait_4_weeks_after_brivudine",
	},
	{
		DrugA: "capecitabine", DrugB: "warfarin", Severity: domain.InteractionMajor,
		Effect: "increased_inr_and_bleeding", Management: "monitor_inr_closely",
	},
	{
		DrugA: "fluorouracil", DrugB: "warfarin", Severity: domain.InteractionMajor,
		Effect: "increased_inr_and_bleeding", Management: "monitor_inr_closely",
	},
	{
		DrugA: "cisplatin", DrugB: "gentamicin", Severity: domain.InteractionMajor,
		Effect: "additive_nephrotoxicity_and_ototoxicity", Management: "avoid_or_monitor_renal_function",
	},
	{
		DrugA: "doxorubicin", DrugB: "trastuzumab", Severity: domain.InteractionMajor,
		Effect: "additive_cardiotoxicity", Management: "avoid_concurrent_use_monitor_lvef",
	},
	{
		DrugA: "docetaxel", DrugB: "ketoconazole", Severity: domain.InteractionMajor,
		Effect: "cyp3a4_inhibition_increases_docetaxel_exposure", Management: "avoid_or_reduce_docetaxel",
	},
	{
		DrugA: "methotrexate", DrugB: "trimethoprim", Severity: domain.InteractionMajor,
		Effect: "additive_antifolate_myelosuppression", Management: "avoid_combination",
	},
	{
		DrugA: "tamoxifen", DrugB: "paroxetine", Severity: domain.InteractionMajor,
		Effect: "cyp2d6_inhibition_reduces_endoxifen", Management: "switch_antidepressant",
	},
	{
		DrugA: "tamoxifen", DrugB: "fluoxetine", Severity: domain.InteractionMajor,
		Effect: "cyp2d6_inhibition_reduces_endoxifen", Management: "switch_antidepressant",
	},
	{
		DrugA: "olaparib", DrugB: "ketoconazole", Severity: domain.InteractionMajor,
		Effect: "cyp3a4_inhibition_increases_olaparib_exposure", Management: "reduce_olaparib_dose",
	},
	{
		DrugA: "osimertinib", DrugB: "rifampicin", Severity: domain.InteractionMajor,
		Effect: "cyp3a4_induction_reduces_osimertinib_exposure", Management: "avoid_strong_inducers",
	},
	{
		DrugA: "cisplatin", DrugB: "furosemide", Severity: domain.InteractionModerate,
		Effect: "additive_ototoxicity", Management: "monitor_hearing_and_electrolytes",
	},
	{
		DrugA: "paclitaxel", DrugB: "clopidogrel", Severity: domain.InteractionModerate,
		Effect: "cyp2c8_inhibition_increases_neuropathy", Management: "monitor_neuropathy",
	},
	{
		DrugA: "pemetrexed", DrugB: "ibuprofen", Severity: domain.InteractionModerate,
		Effect: "reduced_pemetrexed_clearance", Management: "pause_nsaid_around_dose",
	},
	{
		DrugA: "capecitabine", DrugB: "phenytoin", Severity: domain.InteractionModerate,
		Effect: "increased_phenytoin_levels", Management: "monitor_phenytoin_levels",
	},
	{
		DrugA: "cyclophosphamide", DrugB: "allopurinol", Severity: domain.InteractionMinor,
		Effect: "possible_increased_myelosuppression", Management: "monitor_blood_counts",
	},
}

var ageSensitiveDrugs = []string{
	"doxorubicin", "epirubicin", "daunorubicin", "idarubicin",
	"cisplatin", "carboplatin", "oxaliplatin",
	"irinotecan",
	"paclitaxel", "docetaxel", "cabazitaxel",
}

var cardiotoxicDrugs = []string{
	"doxorubicin", "epirubicin", "daunorubicin", "idarubicin",
	"trastuzumab", "pertuzumab",
}

var nephrotoxicThresholds = map[string]float64{
	"cisplatin":    60,
	"pemetrexed":   45,
	"methotrexate": 60,
}

func lvefBelow(limit float64) domain.ConditionFunc {
	return func(_ domain.PatientProfile, c domain.ClinicalData) bool {
		return c.LVEFPercent != nil && *c.LVEFPercent < limit
	}
}

func lvefBetween(low, high float64) domain.ConditionFunc {
	return func(_ domain.PatientProfile, c domain.ClinicalData) bool {
		return c.LVEFPercent != nil && *c.LVEFPercent >= low && *c.LVEFPercent < high
	}
}

// crclBelow ignores an unknown (zero) clearance.
func crclBelow(limit float64) domain.ConditionFunc {
	return func(p domain.PatientProfile, _ domain.ClinicalData) bool {
		return p.CreatinineClearance > 0 && p.CreatinineClearance < limit
	}
}

func bilirubinAbove(xuln float64) domain.ConditionFunc {
	return func(_ domain.PatientProfile, c domain.ClinicalData) bool {
		return c.BilirubinXULN != nil && *c.BilirubinXULN > xuln
	}
}

func neuropathyAtLeast(grade int) domain.ConditionFunc {
	return func(_ domain.PatientProfile, c domain.ClinicalData) bool {
		return c.NeuropathyGrade >= grade
	}
}

func hearingImpaired(_ domain.PatientProfile, c domain.ClinicalData) bool { return c.HearingImpairment }

func recentSurgery(_ domain.PatientProfile, c domain.ClinicalData) bool { return c.RecentMajorSurgery }

func pregnant(_ domain.PatientProfile, c domain.ClinicalData) bool { return c.Pregnant }

// receptorNegative fires only on an explicit negative result for the hormone
// receptor (HR) or estrogen receptor (ER). Keys and values are expected in
// normalized form.
func receptorNegative(p domain.PatientProfile, _ domain.ClinicalData) bool {
	return p.Biomarkers["hr"] == "negative" || p.Biomarkers["er"] == "negative"
}

const (
	condLowLVEF        = "low_lvef"
	condBorderlineLVEF = "borderline_lvef"
	condSevereRenal    = "severe_renal_impairment"
	condHearing        = "hearing_impairment"
	condHepatic        = "hyperbilirubinemia"
	condNeuropathy     = "peripheral_neuropathy_grade_2_plus"
	condSurgery        = "recent_major_surgery"
	condReceptorNeg    = "hormone_receptor_negative"
	condPregnancy      = "pregnancy"
)

func defaultContraindications() []domain.ContraindicationRule {
	abs, rel := domain.ContraindicationAbsolute, domain.ContraindicationRelative
	return []domain.ContraindicationRule{
		{Drug: "doxorubicin", Condition: condLowLVEF, Kind: abs, Predicate: lvefBelow(50)},
		{Drug: "epirubicin", Condition: condLowLVEF, Kind: abs, Predicate: lvefBelow(50)},
		{Drug: "trastuzumab", Condition: condLowLVEF, Kind: abs, Predicate: lvefBelow(40)},
		{Drug: "trastuzumab", Condition: condBorderlineLVEF, Kind: rel, Predicate: lvefBetween(40, 50)},
		{Drug: "pertuzumab", Condition: condLowLVEF, Kind: rel, Predicate: lvefBelow(50)},
		{Drug: "cisplatin", Condition: condSevereRenal, Kind: abs, Predicate: crclBelow(30)},
		{Drug: "cisplatin", Condition: condHearing, Kind: rel, Predicate: hearingImpaired},
		{Drug: "capecitabine", Condition: condSevereRenal, Kind: abs, Predicate: crclBelow(30)},
		{Drug: "pemetrexed", Condition: condSevereRenal, Kind: abs, Predicate: crclBelow(45)},
		{Drug: "irinotecan", Condition: condHepatic, Kind: abs, Predicate: bilirubinAbove(3)},
		{Drug: "docetaxel", Condition: condHepatic, Kind: abs, Predicate: bilirubinAbove(1)},
		{Drug: "oxaliplatin", Condition: condNeuropathy, Kind: rel, Predicate: neuropathyAtLeast(2)},
		{Drug: "paclitaxel", Condition: condNeuropathy, Kind: rel, Predicate: neuropathyAtLeast(2)},
		{Drug: "bevacizumab", Condition: condSurgery, Kind: rel, Predicate: recentSurgery},
		{Drug: "tamoxifen", Condition: condReceptorNeg, Kind: rel, Predicate: receptorNegative},
		{Drug: "letrozole", Condition: condReceptorNeg, Kind: rel, Predicate: receptorNegative},
		{Drug: "anastrozole", Condition: condReceptorNeg, Kind: rel, Predicate: receptorNegative},
		{Drug: "methotrexate", Condition: condPregnancy, Kind: abs, Predicate: pregnant},
	}
}

var defaultPrerequisites = []domain.BiomarkerPrerequisite{
	{Drug: "trastuzumab", Biomarker: "her2", AcceptedStatuses: []string{"positive", "3+", "amplified"}},
	{Drug: "pertuzumab", Biomarker: "her2", AcceptedStatuses: []string{"positive", "3+", "amplified"}},
	{Drug: "cetuximab", Biomarker: "ras", AcceptedStatuses: []string{"wildtype", "wild-type"}},
	{Drug: "panitumumab", Biomarker: "ras", AcceptedStatuses: []string{"wildtype", "wild-type"}},
	{Drug: "osimertinib", Biomarker: "egfr", AcceptedStatuses: []string{"mutated", "positive", "exon19del", "l858r", "t790m"}},
	{Drug: "olaparib", Biomarker: "brca", AcceptedStatuses: []string{"mutated", "positive", "pathogenic"}},
	{Drug: "fluorouracil", Biomarker: "dpyd", AcceptedStatuses: []string{"normal", "normal metabolizer", "wildtype"}},
	{Drug: "capecitabine", Biomarker: "dpyd", AcceptedStatuses: []string{"normal", "normal metabolizer", "wildtype"}},
}
