package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // postgres driver
	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/vitalwatch-backend/internal/assessment"
	"github.com/nyashahama/vitalwatch-backend/internal/patient"
)

// querier is the subset of *sql.DB and *sql.Tx the queries below need, so the
// same helpers run inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres is the Repository backed by a *sql.DB using lib/pq. The schema is
// created by the goose migrations embedded in this package.
type Postgres struct {
	pool *sql.DB
}

// NewPostgres wraps an open, verified pool.
func NewPostgres(pool *sql.DB) *Postgres {
	return &Postgres{pool: pool}
}

// Open opens and pings a lib/pq connection pool with the server's pool
// settings.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return pool, nil
}

// txFunc receives a querier scoped to the transaction. Returning a non-nil
// error rolls the transaction back.
type txFunc func(ctx context.Context, q querier) error

// withTx begins a transaction, passes it to fn, and commits on success or
// rolls back on any error (including panics).
//
// Serializable isolation is used because patient creation and assessment
// recording both read before they write: the id and avatar derive from the
// current row count, and the risk level update depends on the patient row.
func (s *Postgres) withTx(ctx context.Context, fn txFunc) error {
	tx, err := s.pool.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("store: fn error: %w; rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit transaction: %w", err)
	}
	return nil
}

// ─── QUERIES ─────────────────────────────────────────────────────────────────

const patientColumns = `id, name, age, gender, sugar_level, bp_systolic, bp_diastolic, bmi, risk_level, avatar, created_at`

// listPatientsSQL applies patient.Filter in SQL. The condition thresholds
// match patient.DashboardCondition.Matches.
const listPatientsSQL = `SELECT ` + patientColumns + `
FROM patients
WHERE ($1 = '' OR risk_level = $1)
  AND ($2 = '' OR position(lower($2) in lower(name)) > 0 OR position(lower($2) in lower(id)) > 0)
  AND ($3 = ''
       OR ($3 = 'hypertension' AND bp_systolic > 140)
       OR ($3 = 'diabetes' AND sugar_level > 125)
       OR ($3 = 'obesity' AND bmi > 30))
ORDER BY created_at DESC, id DESC`

const getPatientSQL = `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`

const countPatientsSQL = `SELECT count(*) FROM patients`

const insertPatientSQL = `INSERT INTO patients (id, name, age, gender, sugar_level, bp_systolic, bp_diastolic, bmi, risk_level, avatar)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + patientColumns

const insertAssessmentSQL = `INSERT INTO assessments (id, patient_id, condition, risk_score, risk_level, explanation, provider, result_json)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at`

const updateRiskLevelSQL = `UPDATE patients SET risk_level = $2 WHERE id = $1 RETURNING ` + patientColumns

const listAssessmentsSQL = `SELECT id, patient_id, condition, risk_score, risk_level, explanation, provider, created_at
FROM assessments
WHERE patient_id = $1
ORDER BY created_at DESC, id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (patient.Patient, error) {
	var p patient.Patient
	err := row.Scan(
		&p.ID, &p.Name, &p.Age, &p.Gender, &p.SugarLevel,
		&p.BPSystolic, &p.BPDiastolic, &p.BMI, &p.RiskLevel, &p.Avatar, &p.CreatedAt,
	)
	return p, err
}

// ─── METHODS ─────────────────────────────────────────────────────────────────

func (s *Postgres) ListPatients(ctx context.Context, f patient.Filter) ([]patient.Patient, error) {
	rows, err := s.pool.QueryContext(ctx, listPatientsSQL, f.Risk, f.Query, string(f.Condition))
	if err != nil {
		return nil, fmt.Errorf("store: list patients: %w", err)
	}
	defer rows.Close()

	out := []patient.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan patient: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list patients: %w", err)
	}
	return out, nil
}

func (s *Postgres) GetPatient(ctx context.Context, id string) (patient.Patient, error) {
	p, err := scanPatient(s.pool.QueryRowContext(ctx, getPatientSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return patient.Patient{}, ErrNotFound
	}
	if err != nil {
		return patient.Patient{}, fmt.Errorf("store: get patient: %w", err)
	}
	return p, nil
}

func (s *Postgres) CreatePatient(ctx context.Context, n patient.NewPatient) (patient.Patient, error) {
	var created patient.Patient

	err := s.withTx(ctx, func(ctx context.Context, q querier) error {
		p, err := insertNextPatient(ctx, q, n)
		if err != nil {
			return fmt.Errorf("CreatePatient: %w", err)
		}
		created = p
		return nil
	})
	if err != nil {
		return patient.Patient{}, err
	}
	return created, nil
}

// insertNextPatient assigns the next USR id and avatar from the current row
// count. It must run inside a serializable transaction.
func insertNextPatient(ctx context.Context, q querier, n patient.NewPatient) (patient.Patient, error) {
	var count int
	if err := q.QueryRowContext(ctx, countPatientsSQL).Scan(&count); err != nil {
		return patient.Patient{}, fmt.Errorf("count patients: %w", err)
	}

	row := q.QueryRowContext(ctx, insertPatientSQL,
		patient.FormatID(count+1),
		n.Name,
		n.Age,
		n.Gender,
		n.SugarLevel,
		n.BPSystolic,
		n.BPDiastolic,
		n.BMI,
		n.RiskLevel,
		patient.AvatarFor(count),
	)
	p, err := scanPatient(row)
	if err != nil {
		return patient.Patient{}, fmt.Errorf("insert patient: %w", err)
	}
	return p, nil
}

func (s *Postgres) RecordAssessment(ctx context.Context, params RecordAssessmentParams) (Assessment, patient.Patient, error) {
	var (
		rec     Assessment
		updated patient.Patient
	)

	resultJSON, err := json.Marshal(params.Result)
	if err != nil {
		return Assessment{}, patient.Patient{}, fmt.Errorf("store: marshal result: %w", err)
	}

	err = s.withTx(ctx, func(ctx context.Context, q querier) error {
		// Update first so an unknown patient fails before anything is inserted.
		p, err := scanPatient(q.QueryRowContext(ctx, updateRiskLevelSQL,
			params.PatientID, params.Result.RiskLevel.Title()))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("RecordAssessment: update risk level: %w", err)
		}

		a := Assessment{
			ID:          uuid.New(),
			PatientID:   p.ID,
			Condition:   params.Condition,
			RiskScore:   params.Result.RiskScore,
			RiskLevel:   params.Result.RiskLevel,
			Explanation: params.Result.Explanation,
			Provider:    params.Provider,
		}
		err = q.QueryRowContext(ctx, insertAssessmentSQL,
			a.ID,
			a.PatientID,
			a.Condition,
			a.RiskScore,
			string(a.RiskLevel),
			a.Explanation,
			a.Provider,
			pqtype.NullRawMessage{RawMessage: resultJSON, Valid: true},
		).Scan(&a.CreatedAt)
		if err != nil {
			return fmt.Errorf("RecordAssessment: insert assessment: %w", err)
		}

		rec, updated = a, p
		return nil
	})
	if err != nil {
		return Assessment{}, patient.Patient{}, err
	}
	return rec, updated, nil
}

func (s *Postgres) ListAssessments(ctx context.Context, patientID string) ([]Assessment, error) {
	if _, err := s.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}

	rows, err := s.pool.QueryContext(ctx, listAssessmentsSQL, patientID)
	if err != nil {
		return nil, fmt.Errorf("store: list assessments: %w", err)
	}
	defer rows.Close()

	out := []Assessment{}
	for rows.Next() {
		var (
			a     Assessment
			level string
		)
		if err := rows.Scan(&a.ID, &a.PatientID, &a.Condition, &a.RiskScore, &level, &a.Explanation, &a.Provider, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan assessment: %w", err)
		}
		a.RiskLevel = assessment.RiskLevel(level)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list assessments: %w", err)
	}
	return out, nil
}

var _ Repository = (*Postgres)(nil)
