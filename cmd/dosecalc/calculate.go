package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chemo-dose-safety/internal/catalog"
	"github.com/chemo-dose-safety/internal/domain"
	"github.com/chemo-dose-safety/internal/override"
	"github.com/chemo-dose-safety/internal/service"
)

// plan is one case resolved against its regimen and calculated
type plan struct {
	kase    *catalog.Case
	regimen catalog.Regimen
	specs   []domain.DoseSpecification
	results []domain.DoseCalculationResult
	calc    *service.Calculator
}

func (a *app) buildPlan(ctx context.Context, casePath, catalogPath string) (*plan, error) {
	kase, err := catalog.LoadCase(casePath)
	if err != nil {
		return nil, domain.WrapEngineError(domain.ErrInvalidInput, "failed to load case", err)
	}

	var cat *catalog.Catalog
	if catalogPath != "" {
		if cat, err = catalog.Load(catalogPath); err != nil {
			return nil, domain.WrapEngineError(domain.ErrInvalidInput, "failed to load regimen catalog", err)
		}
	}

	regimen, err := kase.ResolveRegimen(cat)
	if err != nil {
		return nil, domain.WrapEngineError(domain.ErrInvalidInput, "failed to resolve regimen", err)
	}

	calc, err := a.calculator()
	if err != nil {
		return nil, err
	}

	specs := regimen.Specifications()
	results, err := calc.CalculateRegimen(ctx, specs, kase.Patient)
	if err != nil {
		return nil, domain.WrapEngineError(domain.ErrInternal, "regimen calculation failed", err)
	}

	a.logger.WithFields(logrus.Fields{
		"regimen": regimen.Name,
		"drugs":   len(results),
	}).Info("Regimen calculated")

	return &plan{kase: kase, regimen: regimen, specs: specs, results: results, calc: calc}, nil
}

type calculationReport struct {
	Regimen        string                         `json:"regimen"`
	PatientRef     string                         `json:"patient_ref,omitempty"`
	Cycle          int                            `json:"cycle,omitempty"`
	Patient        domain.PatientProfile          `json:"patient"`
	Results        []domain.DoseCalculationResult `json:"results"`
	Administration []override.Administration      `json:"administration,omitempty"`
}

func (a *app) calculateCmd() *cobra.Command {
	var casePath, catalogPath string
	var withOverrides bool
	var cycle int

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Calculate every drug dose of a case's regimen",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.buildPlan(ctx, casePath, catalogPath)
			if err != nil {
				return err
			}

			report := calculationReport{
				Regimen:    p.regimen.Name,
				PatientRef: p.kase.PatientRef,
				Patient:    p.kase.Patient.Normalized(),
				Results:    p.results,
			}

			if withOverrides {
				if cycle <= 0 {
					cycle = p.kase.CyclesCompleted + 1
				}
				store, err := a.store()
				if err != nil {
					return err
				}
				defer store.Close()

				admin, err := override.Resolve(ctx, store, p.kase.PatientRef, cycle, p.results)
				if err != nil {
					return domain.WrapEngineError(domain.ErrStore, "failed to resolve overrides", err)
				}
				report.Cycle = cycle
				report.Administration = admin
			}

			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&casePath, "case", "", "case file (YAML or JSON)")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "regimen catalog used when the case names its regimen")
	cmd.Flags().BoolVar(&withOverrides, "with-overrides", false, "report administered doses using stored clinician overrides")
	cmd.Flags().IntVar(&cycle, "cycle", 0, "cycle for override lookup (default: cycles_completed + 1)")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

type safetyReport struct {
	Regimen  string                  `json:"regimen"`
	Audience string                  `json:"audience"`
	Summary  map[domain.Severity]int `json:"summary"`
	Alerts   []domain.SafetyAlert    `json:"alerts"`
}

const (
	audienceClinician = "clinician"
	audiencePatient   = "patient"
)

func (a *app) checkCmd() *cobra.Command {
	var casePath, catalogPath, failOn string
	var patientFacing bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the comprehensive safety check for a case",
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold := domain.Severity(strings.ToLower(failOn))
			if failOn != "" && !threshold.IsValid() {
				return domain.NewEngineError(domain.ErrInvalidInput, "unknown severity for --fail-on", failOn)
			}

			p, err := a.buildPlan(cmd.Context(), casePath, catalogPath)
			if err != nil {
				return err
			}

			engine := service.NewSafetyEngine(p.calc.Registry(), a.logger)
			alerts := engine.PerformComprehensiveSafetyCheck(p.kase.SafetyRequest(p.specs, p.results))

			report := safetyReport{
				Regimen:  p.regimen.Name,
				Audience: audienceClinician,
				Alerts:   alerts,
			}
			if patientFacing {
				report.Audience = audiencePatient
				report.Alerts = domain.PatientFacing(alerts)
			}
			if report.Alerts == nil {
				report.Alerts = []domain.SafetyAlert{}
			}
			report.Summary = domain.CountBySeverity(report.Alerts)

			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}

			if failOn != "" {
				for _, alert := range alerts {
					if alert.Severity.Rank() <= threshold.Rank() {
						return fmt.Errorf("safety check found %s alert %s", alert.Severity, alert.Message.Code)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&casePath, "case", "", "case file (YAML or JSON)")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "regimen catalog used when the case names its regimen")
	cmd.Flags().BoolVar(&patientFacing, "patient-facing", false, "omit alerts that belong only on the clinician sheet")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "exit non-zero when an alert at or above this severity is found")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

func (a *app) cumulativeCmd() *cobra.Command {
	var drug string
	var dosePerCycle float64
	var cycles int

	cmd := &cobra.Command{
		Use:   "cumulative",
		Short: "Check a lifetime cumulative dose against the drug's limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			check := service.NewLimitValidator(reg).CheckCumulative(drug, dosePerCycle, cycles)
			return writeJSON(cmd.OutOrStdout(), check)
		},
	}

	cmd.Flags().StringVar(&drug, "drug", "", "drug name")
	cmd.Flags().Float64Var(&dosePerCycle, "dose-per-cycle", 0, "dose given each cycle, in the limit's unit")
	cmd.Flags().IntVar(&cycles, "cycles", 0, "cycles completed")
	_ = cmd.MarkFlagRequired("drug")
	return cmd
}
