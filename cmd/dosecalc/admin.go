package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/chemo-dose-safety/internal/database"
	"github.com/chemo-dose-safety/internal/domain"
)

func (a *app) dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Administer the PostgreSQL override database",
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrations(func(mr *database.MigrationRunner) error {
				return mr.Up(cmd.Context())
			})
		},
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrations(func(mr *database.MigrationRunner) error {
				return mr.Down(cmd.Context())
			})
		},
	})
	cmd.AddCommand(migrateCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report connectivity, schema version and override count",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			report := map[string]any{}

			err := a.withMigrations(func(mr *database.MigrationRunner) error {
				status, err := mr.Status()
				report["migration"] = status
				return err
			})
			if err != nil {
				return err
			}

			db, err := database.NewConnection(ctx, database.ConfigFromDomain(a.cfg), a.logger)
			if err != nil {
				return domain.WrapEngineError(domain.ErrStore, "failed to connect", err)
			}
			defer db.Close()

			if err := db.Health(ctx); err != nil {
				return domain.WrapEngineError(domain.ErrStore, "health check failed", err)
			}
			stats := db.Stats()
			report["pool"] = map[string]int32{
				"total":    stats.TotalConns(),
				"idle":     stats.IdleConns(),
				"acquired": stats.AcquiredConns(),
			}
			if count, err := db.OverrideCount(ctx); err == nil {
				report["overrides"] = count
			} else {
				a.logger.WithError(err).Warn("Override table not readable")
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	})

	return cmd
}

func (a *app) withMigrations(fn func(mr *database.MigrationRunner) error) error {
	if a.cfg.Store.PostgresURL == "" {
		return domain.NewEngineError(domain.ErrConfig, "store.postgres_url is not set", "")
	}
	mr, err := database.NewMigrationRunner(a.cfg.Store.PostgresURL, a.cfg.Database.MigrationsPath, a.logger)
	if err != nil {
		return domain.WrapEngineError(domain.ErrStore, "failed to prepare migrations", err)
	}
	defer func() {
		if err := mr.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close migration runner")
		}
	}()
	return fn(mr)
}

func (a *app) registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the reference registries",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show registry table sizes and known drugs",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"overlay": a.cfg.Registry.OverlayPath,
				"stats":   reg.Stats(),
				"drugs":   reg.Drugs(),
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "drug NAME",
		Short: "Show everything the registry holds for one drug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			name := reg.Canonical(args[0])
			out := map[string]any{"drug": name}
			if l, ok := reg.Limit(name); ok {
				out["limit"] = l
			}
			if c, ok := reg.Concentration(name); ok {
				out["concentration"] = c
			}
			if s, ok := reg.Solvent(name); ok {
				out["solvent"] = s
			}
			if p := reg.Prerequisites(name); len(p) > 0 {
				out["prerequisites"] = p
			}
			conditions := make([]string, 0)
			for _, c := range reg.Contraindications(name) {
				conditions = append(conditions, string(c.Kind)+":"+c.Condition)
			}
			sort.Strings(conditions)
			out["contraindications"] = conditions
			out["age_sensitive"] = reg.IsAgeSensitive(name)
			out["cardiotoxic"] = reg.IsCardiotoxic(name)
			return writeJSON(cmd.OutOrStdout(), out)
		},
	})

	return cmd
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if cfg.Store.PostgresURL != "" {
				cfg.Store.PostgresURL = "[redacted]"
			}
			return writeJSON(cmd.OutOrStdout(), cfg)
		},
	}
}
