package database

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/chemo-dose-safety/internal/domain"
	"github.com/chemo-dose-safety/internal/override"
)

const migrationsPath = "../../migrations"

func TestNewConnection_RequiresURL(t *testing.T) {
	_, err := NewConnection(context.Background(), Config{}, logrus.New())
	assert.Error(t, err)

	_, err = NewConnection(context.Background(), Config{URL: "postgres://%zz"}, logrus.New())
	assert.ErrorContains(t, err, "parsing database config")
}

func TestConfigFromDomain(t *testing.T) {
	cfg := &domain.Config{
		Store:    domain.StoreConfig{Driver: "postgres", PostgresURL: "postgres://u:p@db:5432/chemo"},
		Database: domain.DatabaseConfig{MaxConns: 8, MinConns: 1},
	}
	c := ConfigFromDomain(cfg)
	assert.Equal(t, "postgres://u:p@db:5432/chemo", c.URL)
	assert.Equal(t, int32(8), c.MaxConns)
	assert.Equal(t, int32(1), c.MinConns)
	assert.Equal(t, time.Hour, c.MaxConnLife)
}

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("chemo"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	url, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

func TestDatabaseMigrationsAndOverrideStore(t *testing.T) {
	url := startPostgres(t)
	ctx := context.Background()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	runner, err := NewMigrationRunner(url, migrationsPath, logger)
	require.NoError(t, err)
	defer runner.Close()

	status, err := runner.Status()
	require.NoError(t, err)
	assert.False(t, status.Applied)

	require.NoError(t, runner.Up(ctx))
	require.NoError(t, runner.Up(ctx), "a second up is a no-op")

	status, err = runner.Status()
	require.NoError(t, err)
	assert.True(t, status.Applied)
	assert.Equal(t, uint(1), status.Version)
	assert.False(t, status.Dirty)

	db, err := NewConnection(ctx, Config{URL: url, MaxConns: 4, MinConns: 1}, logger)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Health(ctx))
	assert.NotZero(t, db.Stats().TotalConns())

	store, err := override.NewPostgresStoreFromURL(url)
	require.NoError(t, err)
	defer store.Close()

	first := &override.DoseOverride{
		PatientRef: "MRN-1", Drug: "Carboplatin", Cycle: 1,
		CalculatedDose: 600, OverrideDose: 500, Unit: "mg",
		Reason: "thrombocytopenia", Clinician: "dr.okafor",
	}
	require.NoError(t, store.Save(ctx, first))

	second := &override.DoseOverride{
		PatientRef: "MRN-1", Drug: "carboplatin", Cycle: 1,
		CalculatedDose: 600, OverrideDose: 450, Unit: "mg",
		Reason: "platelets still low", Clinician: "dr.okafor",
	}
	require.NoError(t, store.Save(ctx, second))
	assert.Equal(t, first.ID, second.ID, "upsert keeps the original id")

	got, err := store.Get(ctx, "MRN-1", "CARBOPLATIN", 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 450.0, got.OverrideDose)

	count, err := db.OverrideCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, runner.Down(ctx))
	_, err = db.OverrideCount(ctx)
	assert.Error(t, err, "table is gone after rolling back")
}
