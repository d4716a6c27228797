package service

import (
	"github.com/chemo-dose-safety/internal/domain"
	"github.com/chemo-dose-safety/internal/registry"
)

// dextrose5 is the canonical key of 5% dextrose in the solvent alias table
const dextrose5 = "dextrose5"

// requiredDextroseLabel names the solvent in dextrose-only messages
const requiredDextroseLabel = "Dextrose 5%"

// ConcentrationValidator checks infusion preparation against the per-drug
// physical and chemical constraints in the registry. A nil message means no
// issue was found
type ConcentrationValidator struct {
	registry *registry.Registry
}

// NewConcentrationValidator creates a concentration and solvent validator
func NewConcentrationValidator(reg *registry.Registry) *ConcentrationValidator {
	return &ConcentrationValidator{registry: reg}
}

// ValidateConcentration checks dose (mg) in volume (mL). It returns nil when the
// volume is not positive or the drug has no rule. The minimum volume is checked
// before the concentration bounds
func (v *ConcentrationValidator) ValidateConcentration(drug string, dose, volume float64) *domain.Message {
	if volume <= 0 {
		return nil
	}
	rule, ok := v.registry.Concentration(drug)
	if !ok {
		return nil
	}

	if rule.MinVolume > 0 && volume < rule.MinVolume {
		return domain.NewMessage(domain.MsgVolumeTooLow, drug,
			"volume", domain.Round(volume, 1),
			"min_volume", rule.MinVolume,
		)
	}

	dose = domain.NonNegative(dose)
	if dose == 0 {
		return nil
	}
	concentration := dose / volume
	switch {
	case rule.Max > 0 && concentration > rule.Max:
		return domain.NewMessage(domain.MsgConcentrationTooHigh, drug,
			"concentration", domain.Round(concentration, 3),
			"max", rule.Max,
			"dose", domain.Round(dose, 1),
			"volume", domain.Round(volume, 1),
		)
	case rule.Min > 0 && concentration < rule.Min:
		return domain.NewMessage(domain.MsgConcentrationTooLow, drug,
			"concentration", domain.Round(concentration, 3),
			"min", rule.Min,
			"dose", domain.Round(dose, 1),
			"volume", domain.Round(volume, 1),
		)
	}
	return nil
}

// ValidateSolventCompatibility checks the chosen diluent. Names are compared
// after case-folding, stripping non-alphanumerics and resolving synonyms such as
// "NS" and "D5W". Dextrose-only drugs get a dedicated message naming 5%
// dextrose whatever their allowed list says
func (v *ConcentrationValidator) ValidateSolventCompatibility(drug, solvent string) *domain.Message {
	chosen := v.registry.CanonicalSolvent(solvent)
	if chosen == "" {
		return nil
	}
	rule, ok := v.registry.Solvent(drug)
	if !ok {
		return nil
	}

	if rule.DextroseOnly {
		if chosen == dextrose5 {
			return nil
		}
		return domain.NewMessage(domain.MsgSolventDextroseOnly, drug,
			"solvent", solvent,
			"required", requiredDextroseLabel,
		)
	}

	for _, allowed := range rule.Allowed {
		if v.registry.CanonicalSolvent(allowed) == chosen {
			return nil
		}
	}
	return domain.NewMessage(domain.MsgSolventIncompatible, drug,
		"solvent", solvent,
		"allowed", rule.Allowed,
	)
}
