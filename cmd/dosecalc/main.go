// Package main is the dosecalc command line: dose calculation, safety checks,
// clinician overrides and override-database administration over local files.
package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chemo-dose-safety/internal/config"
	"github.com/chemo-dose-safety/internal/domain"
	"github.com/chemo-dose-safety/internal/logging"
	"github.com/chemo-dose-safety/internal/override"
	"github.com/chemo-dose-safety/internal/registry"
	"github.com/chemo-dose-safety/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every subcommand needs once configuration is loaded
type app struct {
	configFile string
	cfg        *domain.Config
	logger     *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "dosecalc",
		Short:        "Chemotherapy dose calculation and safety validation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "",
		"config file (default: dosecalc.yaml in ., ./config or /etc/chemo-dose-safety)")

	root.AddCommand(a.calculateCmd())
	root.AddCommand(a.checkCmd())
	root.AddCommand(a.cumulativeCmd())
	root.AddCommand(a.overridesCmd())
	root.AddCommand(a.dbCmd())
	root.AddCommand(a.registryCmd())
	root.AddCommand(a.configCmd())

	return root
}

func (a *app) load(logOutput io.Writer) error {
	mgr, err := config.NewManagerFromFile(a.configFile)
	if err != nil {
		return domain.WrapEngineError(domain.ErrConfig, "failed to load configuration", err)
	}
	if err := mgr.Validate(); err != nil {
		return domain.WrapEngineError(domain.ErrConfig, "invalid configuration", err)
	}
	a.cfg = mgr.GetConfig()
	a.logger = logging.NewWithOutput(a.cfg.Logging, logOutput)

	a.logger.WithFields(logrus.Fields{
		"config_file": mgr.ConfigFileUsed(),
		"environment": a.cfg.Environment,
	}).Debug("Configuration loaded")
	return nil
}

func (a *app) registry() (*registry.Registry, error) {
	reg, err := registry.Load(a.cfg.Registry.OverlayPath)
	if err != nil {
		return nil, domain.WrapEngineError(domain.ErrRegistry, "failed to load reference registry", err)
	}
	return reg, nil
}

func (a *app) calculator() (*service.Calculator, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	calc, err := service.NewCalculator(reg, service.CalculatorOptionsFromConfig(a.cfg), a.logger)
	if err != nil {
		return nil, domain.WrapEngineError(domain.ErrInternal, "failed to create calculator", err)
	}
	return calc, nil
}

func (a *app) store() (override.Store, error) {
	store, err := override.Open(a.cfg.Store)
	if err != nil {
		return nil, domain.WrapEngineError(domain.ErrStore, "failed to open override store", err)
	}
	return store, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
