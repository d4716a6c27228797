package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"runtime"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/chemo-dose-safety/internal/domain"
	"github.com/chemo-dose-safety/internal/registry"
)

// CalculatorOptions configures a Calculator
type CalculatorOptions struct {
	CapGFR        bool
	MaxGFR        float64
	RoundDecimals int
	// CacheSize bounds the memoised results. Zero disables the cache.
	CacheSize int
}

// DefaultCalculatorOptions returns capped Calvert dosing, one-decimal rounding
// and a 1024 entry cache
func DefaultCalculatorOptions() CalculatorOptions {
	return CalculatorOptions{CapGFR: true, MaxGFR: DefaultMaxGFR, RoundDecimals: 1, CacheSize: 1024}
}

// CalculatorOptionsFromConfig maps the dosing and cache configuration
func CalculatorOptionsFromConfig(cfg *domain.Config) CalculatorOptions {
	return CalculatorOptions{
		CapGFR:        cfg.Dosing.CapGFR,
		MaxGFR:        cfg.Dosing.MaxGFR,
		RoundDecimals: cfg.Dosing.RoundDecimals,
		CacheSize:     cfg.Cache.MaxEntries,
	}
}

var _ domain.DoseCalculator = (*Calculator)(nil)

// Calculator runs the per-drug pipeline: base dose, adjustments, then limit and
// preparation checks. It is safe for concurrent use
type Calculator struct {
	logger        *logrus.Logger
	registry      *registry.Registry
	resolver      *BaseDoseResolver
	pipeline      *AdjustmentPipeline
	limits        *LimitValidator
	concentration *ConcentrationValidator
	decimals      int
	cache         *lru.Cache[string, domain.DoseCalculationResult]
}

// NewCalculator creates a calculator over reg
func NewCalculator(reg *registry.Registry, opts CalculatorOptions, logger *logrus.Logger) (*Calculator, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if opts.RoundDecimals < 0 {
		opts.RoundDecimals = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	c := &Calculator{
		logger:        logger,
		registry:      reg,
		resolver:      NewBaseDoseResolver(ResolverOptions{CapGFR: opts.CapGFR, MaxGFR: opts.MaxGFR}),
		pipeline:      NewAdjustmentPipeline(reg),
		limits:        NewLimitValidator(reg),
		concentration: NewConcentrationValidator(reg),
		decimals:      opts.RoundDecimals,
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[string, domain.DoseCalculationResult](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create calculation cache: %w", err)
		}
		c.cache = cache
	}

	return c, nil
}

// Registry returns the registry the calculator reads
func (c *Calculator) Registry() *registry.Registry { return c.registry }

// Limits returns the limit validator, used for cumulative checks
func (c *Calculator) Limits() *LimitValidator { return c.limits }

// Calculate computes the result for one drug. It never fails: problems are
// reported through the alert fields of the result and a contraindicated drug
// gets a final dose of 0
func (c *Calculator) Calculate(spec domain.DoseSpecification, patient domain.PatientProfile) domain.DoseCalculationResult {
	p := patient.Normalized()

	key, keyed := c.cacheKey(spec, p)
	if keyed {
		if cached, ok := c.cache.Get(key); ok {
			c.logger.WithField("drug", spec.Drug).Debug("Dose calculation served from cache")
			return cached.Clone()
		}
	}

	result := c.calculate(spec, p)

	if keyed {
		c.cache.Add(key, result.Clone())
	}
	return result
}

func (c *Calculator) calculate(spec domain.DoseSpecification, p domain.PatientProfile) domain.DoseCalculationResult {
	f := spec.Formula
	result := domain.DoseCalculationResult{
		Drug:    spec.Drug,
		Formula: f.Kind,
		Unit:    f.Unit.MassUnit(),
	}

	if f.Kind == domain.FormulaInvalid {
		result.FormulaAlert = f.Issue.Clone()
		if result.FormulaAlert == nil {
			result.FormulaAlert = domain.NewMessage(domain.MsgDoseTextUnparseable, spec.Drug, "text", f.Source)
		}
		c.logger.WithFields(logrus.Fields{
			"drug":  spec.Drug,
			"issue": result.FormulaAlert.Code,
		}).Warn("Invalid dosing formula, dose set to 0")
		return result
	}
	if f.Issue != nil {
		result.FormulaAlert = f.Issue.Clone()
	}

	result.BaseDose = c.resolver.Resolve(f, p)

	adjusted := c.pipeline.Apply(result.BaseDose, p, spec.Drug)
	result.CalculatedDose = adjusted.Dose
	result.FinalDose = domain.NonNegative(domain.Round(adjusted.Dose, c.decimals))
	result.Adjustments = adjusted.Applied
	result.Contraindicated = adjusted.Contraindicated
	result.AdjustmentAlert = adjusted.Alert

	if result.Contraindicated {
		c.logger.WithFields(logrus.Fields{
			"drug": spec.Drug,
			"crcl": p.CreatinineClearance,
		}).Warn("Drug contraindicated by renal function, dose set to 0")
		return result
	}

	doseMg := result.FinalDose
	if result.Unit == "g" {
		doseMg = domain.Round(result.FinalDose*1000, c.decimals)
	}

	if check := c.limits.CheckLimit(spec.Drug, doseMg, spec.Schedule); check.IsExceeded {
		result.LimitAlert = check.Warning
	}

	if len(spec.Volumes) > 0 {
		result.ConcentrationAlert = c.concentration.ValidateConcentration(spec.Drug, doseMg, spec.Volumes[0])
	}
	if result.ConcentrationAlert == nil && len(spec.Solvents) > 0 {
		result.ConcentrationAlert = c.concentration.ValidateSolventCompatibility(spec.Drug, spec.Solvents[0])
	}

	c.logger.WithFields(logrus.Fields{
		"drug":       spec.Drug,
		"formula":    f.Kind,
		"base_dose":  result.BaseDose,
		"final_dose": result.FinalDose,
		"unit":       result.Unit,
	}).Debug("Calculated dose")

	return result
}

// CalculateRegimen calculates every drug of a regimen in parallel. Results are
// returned in the order of specs
func (c *Calculator) CalculateRegimen(ctx context.Context, specs []domain.DoseSpecification, patient domain.PatientProfile) ([]domain.DoseCalculationResult, error) {
	results := make([]domain.DoseCalculationResult, len(specs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = c.Calculate(spec, patient)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("regimen calculation interrupted: %w", err)
	}

	c.logger.WithField("drugs", len(results)).Info("Calculated regimen doses")
	return results, nil
}

// cacheKey hashes the canonical JSON of the inputs. Maps marshal with sorted
// keys, so equal inputs always hash equally
func (c *Calculator) cacheKey(spec domain.DoseSpecification, p domain.PatientProfile) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	data, err := json.Marshal(struct {
		Spec    domain.DoseSpecification `json:"spec"`
		Patient domain.PatientProfile    `json:"patient"`
	}{spec, p})
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), true
}
