package override

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store on PostgreSQL. The dose_overrides table is
// created by the migrations in the database package.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection and verifies it
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL opens a pooled connection from a URL
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Save upserts on (patient_ref, drug, cycle). The first record's id and
// created_at survive updates.
func (s *PostgresStore) Save(ctx context.Context, o *DoseOverride) error {
	if err := o.Validate(); err != nil {
		return err
	}
	drug := drugKey(o.Drug)
	now := time.Now().UTC()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	query := `
		INSERT INTO dose_overrides (
			id, patient_ref, drug, cycle,
			calculated_dose, override_dose, unit,
			reason, clinician, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (patient_ref, drug, cycle) DO UPDATE SET
			calculated_dose = EXCLUDED.calculated_dose,
			override_dose = EXCLUDED.override_dose,
			unit = EXCLUDED.unit,
			reason = EXCLUDED.reason,
			clinician = EXCLUDED.clinician,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		o.ID,
		o.PatientRef,
		drug,
		o.Cycle,
		o.CalculatedDose,
		o.OverrideDose,
		o.Unit,
		o.Reason,
		o.Clinician,
		createdAt,
		now,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save override: %w", err)
	}

	o.UpdatedAt = now
	return nil
}

// Get returns the override for a patient, drug and cycle
func (s *PostgresStore) Get(ctx context.Context, patientRef, drug string, cycle int) (*DoseOverride, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM dose_overrides
		WHERE patient_ref = $1 AND drug = $2 AND cycle = $3
		LIMIT 1
	`

	o, err := scanOverride(s.db.QueryRowContext(ctx, query, patientRef, drugKey(drug), cycle))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get override: %w", err)
	}
	return o, nil
}

// List returns overrides newest first
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*DoseOverride, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM dose_overrides
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	defer rows.Close()

	var result []*DoseOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

// Count returns the number of stored overrides
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dose_overrides").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count overrides: %w", err)
	}
	return count, nil
}

// Delete removes an override by ID
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM dose_overrides WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	return nil
}

// ExportJSON writes all overrides as JSON
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON loads overrides from an export, skipping ones already stored
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return importJSON(ctx, s, reader)
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
