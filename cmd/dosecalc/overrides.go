package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chemo-dose-safety/internal/domain"
	"github.com/chemo-dose-safety/internal/override"
)

func (a *app) overridesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overrides",
		Short: "Manage clinician dose overrides",
	}
	cmd.AddCommand(a.overridesSetCmd())
	cmd.AddCommand(a.overridesGetCmd())
	cmd.AddCommand(a.overridesListCmd())
	cmd.AddCommand(a.overridesDeleteCmd())
	cmd.AddCommand(a.overridesExportCmd())
	cmd.AddCommand(a.overridesImportCmd())
	return cmd
}

// withStore opens the configured store for the duration of fn
func (a *app) withStore(fn func(store override.Store) error) error {
	store, err := a.store()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func (a *app) overridesSetCmd() *cobra.Command {
	o := &override.DoseOverride{}

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Record or replace the override for a patient, drug and cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Validate(); err != nil {
				return domain.WrapEngineError(domain.ErrInvalidInput, "invalid override", err)
			}
			return a.withStore(func(store override.Store) error {
				if err := store.Save(cmd.Context(), o); err != nil {
					return domain.WrapEngineError(domain.ErrStore, "failed to save override", err)
				}
				a.logger.WithFields(logrus.Fields{
					"id":        o.ID,
					"drug":      o.Drug,
					"cycle":     o.Cycle,
					"clinician": o.Clinician,
				}).Info("Dose override saved")
				return writeJSON(cmd.OutOrStdout(), o)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.PatientRef, "patient-ref", "", "patient reference")
	f.StringVar(&o.Drug, "drug", "", "drug name")
	f.IntVar(&o.Cycle, "cycle", 0, "treatment cycle (1-based)")
	f.Float64Var(&o.OverrideDose, "dose", 0, "dose to administer")
	f.Float64Var(&o.CalculatedDose, "calculated", 0, "calculated final dose being replaced")
	f.StringVar(&o.Unit, "unit", "mg", "unit of the dose")
	f.StringVar(&o.Reason, "reason", "", "documented clinical justification")
	f.StringVar(&o.Clinician, "clinician", "", "clinician responsible for the override")
	for _, name := range []string{"patient-ref", "drug", "cycle", "dose", "reason", "clinician"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (a *app) overridesGetCmd() *cobra.Command {
	var patientRef, drug string
	var cycle int

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the override for a patient, drug and cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store override.Store) error {
				o, err := store.Get(cmd.Context(), patientRef, drug, cycle)
				if err != nil {
					return domain.WrapEngineError(domain.ErrStore, "failed to read override", err)
				}
				if o == nil {
					return domain.NewEngineError(domain.ErrInvalidInput, "no override found",
						fmt.Sprintf("patient_ref=%s drug=%s cycle=%d", patientRef, drug, cycle))
				}
				return writeJSON(cmd.OutOrStdout(), o)
			})
		},
	}

	cmd.Flags().StringVar(&patientRef, "patient-ref", "", "patient reference")
	cmd.Flags().StringVar(&drug, "drug", "", "drug name")
	cmd.Flags().IntVar(&cycle, "cycle", 0, "treatment cycle")
	for _, name := range []string{"patient-ref", "drug", "cycle"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (a *app) overridesListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List overrides, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store override.Store) error {
				list, err := store.List(cmd.Context(), limit, offset)
				if err != nil {
					return domain.WrapEngineError(domain.ErrStore, "failed to list overrides", err)
				}
				total, err := store.Count(cmd.Context())
				if err != nil {
					return domain.WrapEngineError(domain.ErrStore, "failed to count overrides", err)
				}
				if list == nil {
					list = []*override.DoseOverride{}
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"total":     total,
					"overrides": list,
				})
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func (a *app) overridesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an override by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store override.Store) error {
				if err := store.Delete(cmd.Context(), args[0]); err != nil {
					return domain.WrapEngineError(domain.ErrStore, "failed to delete override", err)
				}
				a.logger.WithField("id", args[0]).Info("Dose override deleted")
				return nil
			})
		},
	}
}

func (a *app) overridesExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all overrides as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store override.Store) error {
				w := cmd.OutOrStdout()
				if out != "" {
					f, err := os.Create(out)
					if err != nil {
						return domain.WrapEngineError(domain.ErrInvalidInput, "failed to create export file", err)
					}
					defer f.Close()
					w = f
				}
				if err := store.ExportJSON(cmd.Context(), w); err != nil {
					return domain.WrapEngineError(domain.ErrStore, "failed to export overrides", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func (a *app) overridesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import overrides from an export, skipping ones already stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return domain.WrapEngineError(domain.ErrInvalidInput, "failed to open import file", err)
			}
			defer f.Close()

			return a.withStore(func(store override.Store) error {
				imported, skipped, err := store.ImportJSON(cmd.Context(), f)
				if err != nil {
					return domain.WrapEngineError(domain.ErrStore, "failed to import overrides", err)
				}
				a.logger.WithFields(logrus.Fields{
					"imported": imported,
					"skipped":  skipped,
				}).Info("Dose overrides imported")
				return writeJSON(cmd.OutOrStdout(), map[string]int{
					"imported": imported,
					"skipped":  skipped,
				})
			})
		},
	}
}
