package override

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is the embedded override store
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens the database at dbPath, creating the file, its
// directory and the schema when missing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file location
func (s *SQLiteStore) Path() string { return s.dbPath }

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOverride(s scanner) (*DoseOverride, error) {
	o := &DoseOverride{}
	err := s.Scan(
		&o.ID, &o.PatientRef, &o.Drug, &o.Cycle,
		&o.CalculatedDose, &o.OverrideDose, &o.Unit,
		&o.Reason, &o.Clinician, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

const selectColumns = `id, patient_ref, drug, cycle,
			calculated_dose, override_dose, unit,
			reason, clinician, created_at, updated_at`

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS dose_overrides (
		id TEXT PRIMARY KEY,
		patient_ref TEXT NOT NULL,
		drug TEXT NOT NULL,
		cycle INTEGER NOT NULL,
		calculated_dose REAL NOT NULL DEFAULT 0,
		override_dose REAL NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL,
		clinician TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(patient_ref, drug, cycle)
	);

	CREATE INDEX IF NOT EXISTS idx_dose_overrides_patient ON dose_overrides(patient_ref);
	CREATE INDEX IF NOT EXISTS idx_dose_overrides_created_at ON dose_overrides(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates an override
func (s *SQLiteStore) Save(ctx context.Context, o *DoseOverride) error {
	if err := o.Validate(); err != nil {
		return err
	}
	drug := drugKey(o.Drug)
	now := time.Now().UTC()

	var existingID string
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM dose_overrides WHERE patient_ref = ? AND drug = ? AND cycle = ?",
		o.PatientRef, drug, o.Cycle,
	).Scan(&existingID, &createdAt)

	if err == nil {
		_, err = s.db.ExecContext(ctx, `
			UPDATE dose_overrides SET
				calculated_dose = ?,
				override_dose = ?,
				unit = ?,
				reason = ?,
				clinician = ?,
				updated_at = ?
			WHERE id = ?
		`,
			o.CalculatedDose,
			o.OverrideDose,
			o.Unit,
			o.Reason,
			o.Clinician,
			now,
			existingID,
		)
		if err != nil {
			return fmt.Errorf("failed to update: %w", err)
		}
		o.ID = existingID
		o.CreatedAt = createdAt
		o.UpdatedAt = now
		return nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dose_overrides (
			id, patient_ref, drug, cycle,
			calculated_dose, override_dose, unit,
			reason, clinician, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.ID,
		o.PatientRef,
		drug,
		o.Cycle,
		o.CalculatedDose,
		o.OverrideDose,
		o.Unit,
		o.Reason,
		o.Clinician,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// Get returns the override for a patient, drug and cycle
func (s *SQLiteStore) Get(ctx context.Context, patientRef, drug string, cycle int) (*DoseOverride, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM dose_overrides
		WHERE patient_ref = ? AND drug = ? AND cycle = ?
		LIMIT 1
	`, patientRef, drugKey(drug), cycle)

	o, err := scanOverride(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return o, nil
}

// List returns overrides newest first
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*DoseOverride, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM dose_overrides
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
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
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dose_overrides").Scan(&count)
	return count, err
}

// Delete removes an override by ID
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM dose_overrides WHERE id = ?", id)
	return err
}

// ExportJSON writes all overrides as JSON
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON loads overrides from an export, skipping ones already stored
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return importJSON(ctx, s, reader)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
