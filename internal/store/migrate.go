package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/nyashahama/vitalwatch-backend/internal/patient"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies the embedded SQL migrations via goose.
func Migrate(ctx context.Context, pool *sql.DB) error {
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	if err := goose.UpContext(ctx, pool, "migrations"); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Seed loads ps into an empty registry, keeping their ids, avatars and
// creation times. It returns the number of rows inserted, which is zero when
// the registry already holds patients.
func (s *Postgres) Seed(ctx context.Context, ps []patient.Patient) (int, error) {
	inserted := 0

	err := s.withTx(ctx, func(ctx context.Context, q querier) error {
		var count int
		if err := q.QueryRowContext(ctx, countPatientsSQL).Scan(&count); err != nil {
			return fmt.Errorf("Seed: count patients: %w", err)
		}
		if count > 0 {
			return nil
		}

		for _, p := range ps {
			_, err := q.ExecContext(ctx, seedPatientSQL,
				p.ID, p.Name, p.Age, p.Gender, p.SugarLevel,
				p.BPSystolic, p.BPDiastolic, p.BMI, p.RiskLevel, p.Avatar, p.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("Seed: insert %s: %w", p.ID, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

const seedPatientSQL = `INSERT INTO patients (id, name, age, gender, sugar_level, bp_systolic, bp_diastolic, bmi, risk_level, avatar, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
