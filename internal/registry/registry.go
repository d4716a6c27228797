// Package registry holds the reference data the dose engine consults: per-drug
// limits and adjustment rules, concentration and solvent constraints, drug-drug
// interactions, contraindication predicates and biomarker prerequisites.
//
// A Registry is assembled by a Builder, validated once, and is read-only from
// then on. Every accessor returns a copy, so callers cannot mutate shared state
// and concurrent reads need no locking.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/chemo-dose-safety/internal/domain"
)

// Registry is an immutable set of reference tables keyed by canonical drug name.
type Registry struct {
	aliases           map[string]string
	limits            map[string]domain.DoseLimit
	concentration     map[string]domain.ConcentrationRule
	solvents          map[string]domain.SolventRule
	interactions      map[pairKey]domain.DrugInteraction
	contraindications map[string][]domain.ContraindicationRule
	prerequisites     map[string][]domain.BiomarkerPrerequisite
	ageSensitive      map[string]bool
	cardiotoxic       map[string]bool
	nephrotoxic       map[string]float64
	solventAliases    map[string]string
}

type pairKey struct{ a, b string }

func newPairKey(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide built-in registry. It is built on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewBuilder().WithDefaults().MustBuild()
	})
	return defaultRegistry
}

// Canonical resolves brand names and abbreviations to the canonical drug key.
func (r *Registry) Canonical(name string) string {
	key := domain.NormalizeKey(name)
	if c, ok := r.aliases[key]; ok {
		return c
	}
	return key
}

// Limit returns the dose limit descriptor for a drug.
func (r *Registry) Limit(drug string) (domain.DoseLimit, bool) {
	l, ok := r.limits[r.Canonical(drug)]
	if !ok {
		return domain.DoseLimit{}, false
	}
	return l.Clone(), true
}

// Concentration returns the infusion concentration rule for a drug.
func (r *Registry) Concentration(drug string) (domain.ConcentrationRule, bool) {
	c, ok := r.concentration[r.Canonical(drug)]
	return c, ok
}

// Solvent returns the diluent rule for a drug.
func (r *Registry) Solvent(drug string) (domain.SolventRule, bool) {
	s, ok := r.solvents[r.Canonical(drug)]
	if !ok {
		return domain.SolventRule{}, false
	}
	return s.Clone(), true
}

// CanonicalSolvent folds diluent spellings ("NS", "0.9% NaCl", "Normal saline")
// onto one key after case-folding and stripping non-alphanumerics.
func (r *Registry) CanonicalSolvent(name string) string {
	key := domain.NormalizeKey(name)
	if c, ok := r.solventAliases[key]; ok {
		return c
	}
	return key
}

// Interaction looks up the unordered pair (a, b).
func (r *Registry) Interaction(a, b string) (domain.DrugInteraction, bool) {
	d, ok := r.interactions[newPairKey(r.Canonical(a), r.Canonical(b))]
	if !ok {
		return domain.DrugInteraction{}, false
	}
	d.References = append([]string(nil), d.References...)
	return d, true
}

// Contraindications returns the rules registered for a drug, in registration order.
func (r *Registry) Contraindications(drug string) []domain.ContraindicationRule {
	rules := r.contraindications[r.Canonical(drug)]
	out := make([]domain.ContraindicationRule, len(rules))
	copy(out, rules)
	return out
}

// Prerequisites returns the biomarker prerequisites of a drug.
func (r *Registry) Prerequisites(drug string) []domain.BiomarkerPrerequisite {
	prs := r.prerequisites[r.Canonical(drug)]
	out := make([]domain.BiomarkerPrerequisite, len(prs))
	for i, p := range prs {
		p.AcceptedStatuses = append([]string(nil), p.AcceptedStatuses...)
		out[i] = p
	}
	return out
}

// IsAgeSensitive reports whether the drug takes the elderly dose reduction.
func (r *Registry) IsAgeSensitive(drug string) bool {
	return r.ageSensitive[r.Canonical(drug)]
}

// IsCardiotoxic reports whether the drug warrants cardiac monitoring.
func (r *Registry) IsCardiotoxic(drug string) bool {
	return r.cardiotoxic[r.Canonical(drug)]
}

// NephrotoxicThreshold returns the creatinine clearance below which the drug
// needs a renal dose review.
func (r *Registry) NephrotoxicThreshold(drug string) (float64, bool) {
	t, ok := r.nephrotoxic[r.Canonical(drug)]
	return t, ok
}

// Drugs lists every drug with a limit descriptor, sorted.
func (r *Registry) Drugs() []string {
	out := make([]string, 0, len(r.limits))
	for k := range r.limits {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Stats summarises table sizes for logging.
func (r *Registry) Stats() map[string]int {
	rules := 0
	for _, rs := range r.contraindications {
		rules += len(rs)
	}
	prereqs := 0
	for _, ps := range r.prerequisites {
		prereqs += len(ps)
	}
	return map[string]int{
		"limits":            len(r.limits),
		"interactions":      len(r.interactions),
		"contraindications": rules,
		"prerequisites":     prereqs,
		"concentration":     len(r.concentration),
		"solvents":          len(r.solvents),
	}
}

// Builder accumulates reference data before it is frozen into a Registry.
// A Builder is not safe for concurrent use.
type Builder struct {
	r    *Registry
	errs []error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{r: &Registry{
		aliases:           make(map[string]string),
		limits:            make(map[string]domain.DoseLimit),
		concentration:     make(map[string]domain.ConcentrationRule),
		solvents:          make(map[string]domain.SolventRule),
		interactions:      make(map[pairKey]domain.DrugInteraction),
		contraindications: make(map[string][]domain.ContraindicationRule),
		prerequisites:     make(map[string][]domain.BiomarkerPrerequisite),
		ageSensitive:      make(map[string]bool),
		cardiotoxic:       make(map[string]bool),
		nephrotoxic:       make(map[string]float64),
		solventAliases:    make(map[string]string),
	}}
}

// Alias maps an alternative drug name onto a canonical one.
func (b *Builder) Alias(alias, canonical string) *Builder {
	b.r.aliases[domain.NormalizeKey(alias)] = domain.NormalizeKey(canonical)
	return b
}

// SolventAlias maps a diluent spelling onto a canonical diluent key.
func (b *Builder) SolventAlias(alias, canonical string) *Builder {
	b.r.solventAliases[domain.NormalizeKey(alias)] = domain.NormalizeKey(canonical)
	return b
}

// Limit registers or replaces a dose limit.
func (b *Builder) Limit(l domain.DoseLimit) *Builder {
	if err := l.Validate(); err != nil {
		b.errs = append(b.errs, fmt.Errorf("limit %q: %w", l.Drug, err))
		return b
	}
	b.r.limits[b.r.Canonical(l.Drug)] = l.Clone()
	return b
}

// Concentration registers or replaces an infusion concentration rule.
func (b *Builder) Concentration(c domain.ConcentrationRule) *Builder {
	if domain.NormalizeKey(c.Drug) == "" || c.Min < 0 || c.Max < 0 || c.MinVolume < 0 || (c.Max > 0 && c.Min > c.Max) {
		b.errs = append(b.errs, fmt.Errorf("concentration %q: %w", c.Drug, domain.ErrInvalidLimit))
		return b
	}
	b.r.concentration[b.r.Canonical(c.Drug)] = c
	return b
}

// Solvent registers or replaces a diluent rule.
func (b *Builder) Solvent(s domain.SolventRule) *Builder {
	if domain.NormalizeKey(s.Drug) == "" || len(s.Allowed) == 0 {
		b.errs = append(b.errs, fmt.Errorf("solvent %q: %w", s.Drug, domain.ErrInvalidLimit))
		return b
	}
	b.r.solvents[b.r.Canonical(s.Drug)] = s.Clone()
	return b
}

// Interaction registers or replaces an interaction for the unordered pair.
func (b *Builder) Interaction(d domain.DrugInteraction) *Builder {
	if err := d.Validate(); err != nil {
		b.errs = append(b.errs, fmt.Errorf("interaction %s/%s: %w", d.DrugA, d.DrugB, err))
		return b
	}
	d.References = append([]string(nil), d.References...)
	b.r.interactions[newPairKey(b.r.Canonical(d.DrugA), b.r.Canonical(d.DrugB))] = d
	return b
}

// Contraindication appends a predicate rule for a drug.
func (b *Builder) Contraindication(rule domain.ContraindicationRule) *Builder {
	if err := rule.Validate(); err != nil {
		b.errs = append(b.errs, fmt.Errorf("contraindication %s/%s: %w", rule.Drug, rule.Condition, err))
		return b
	}
	key := b.r.Canonical(rule.Drug)
	b.r.contraindications[key] = append(b.r.contraindications[key], rule)
	return b
}

// Prerequisite appends a biomarker prerequisite for a drug.
func (b *Builder) Prerequisite(p domain.BiomarkerPrerequisite) *Builder {
	if err := p.Validate(); err != nil {
		b.errs = append(b.errs, fmt.Errorf("prerequisite %s/%s: %w", p.Drug, p.Biomarker, err))
		return b
	}
	key := b.r.Canonical(p.Drug)
	p.AcceptedStatuses = append([]string(nil), p.AcceptedStatuses...)
	b.r.prerequisites[key] = append(b.r.prerequisites[key], p)
	return b
}

// AgeSensitive adds drugs to the elderly dose-reduction allow-list.
func (b *Builder) AgeSensitive(drugs ...string) *Builder {
	for _, d := range drugs {
		b.r.ageSensitive[b.r.Canonical(d)] = true
	}
	return b
}

// Cardiotoxic adds drugs to the cardiac-monitoring list.
func (b *Builder) Cardiotoxic(drugs ...string) *Builder {
	for _, d := range drugs {
		b.r.cardiotoxic[b.r.Canonical(d)] = true
	}
	return b
}

// Nephrotoxic records the renal review threshold for a drug.
func (b *Builder) Nephrotoxic(drug string, crclThreshold float64) *Builder {
	if crclThreshold <= 0 {
		b.errs = append(b.errs, fmt.Errorf("nephrotoxic %q: %w", drug, domain.ErrInvalidLimit))
		return b
	}
	b.r.nephrotoxic[b.r.Canonical(drug)] = crclThreshold
	return b
}

// Build freezes the accumulated data. The builder must not be used afterwards.
func (b *Builder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("registry has %d invalid entries: %w", len(b.errs), b.errs[0])
	}
	r := b.r
	b.r = nil
	return r, nil
}

// MustBuild is Build for data known to be valid, such as the built-in tables.
func (b *Builder) MustBuild() *Registry {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}
