package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nyashahama/vitalwatch-backend/internal/assessment"
	"github.com/nyashahama/vitalwatch-backend/internal/patient"
	"github.com/nyashahama/vitalwatch-backend/internal/store"
)

// ─── TEST INFRASTRUCTURE ──────────────────────────────────────────────────────

var patientCols = []string{
	"id", "name", "age", "gender", "sugar_level", "bp_systolic", "bp_diastolic",
	"bmi", "risk_level", "avatar", "created_at",
}

func newMock(t *testing.T) (*store.Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return store.NewPostgres(db), mock
}

func patientRow(rows *sqlmock.Rows, p patient.Patient) *sqlmock.Rows {
	return rows.AddRow(p.ID, p.Name, p.Age, p.Gender, p.SugarLevel, p.BPSystolic,
		p.BPDiastolic, p.BMI, p.RiskLevel, p.Avatar, p.CreatedAt)
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

// ─── GetPatient / ListPatients ────────────────────────────────────────────────

func TestPostgres_GetPatient(t *testing.T) {
	pg, mock := newMock(t)
	want := patient.MockPatients()[0]

	mock.ExpectQuery("SELECT (.+) FROM patients WHERE id").
		WithArgs(want.ID).
		WillReturnRows(patientRow(sqlmock.NewRows(patientCols), want))

	got, err := pg.GetPatient(context.Background(), want.ID)
	if err != nil {
		t.Fatalf("GetPatient: %v", err)
	}
	if got.ID != want.ID || got.Name != want.Name || got.BMI != want.BMI {
		t.Errorf("got %+v, want %+v", got, want)
	}
	expectationsMet(t, mock)
}

func TestPostgres_GetPatient_NotFound(t *testing.T) {
	pg, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM patients WHERE id").
		WithArgs("USR999").
		WillReturnRows(sqlmock.NewRows(patientCols))

	_, err := pg.GetPatient(context.Background(), "USR999")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPostgres_ListPatients_PassesFilter(t *testing.T) {
	pg, mock := newMock(t)
	ps := patient.MockPatients()

	rows := sqlmock.NewRows(patientCols)
	patientRow(rows, ps[3])
	patientRow(rows, ps[0])

	mock.ExpectQuery("FROM patients").
		WithArgs("High", "a", "hypertension").
		WillReturnRows(rows)

	got, err := pg.ListPatients(context.Background(), patient.Filter{
		Risk:      patient.RiskHigh,
		Query:     "a",
		Condition: patient.Hypertension,
	})
	if err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if len(got) != 2 || got[0].ID != ps[3].ID {
		t.Errorf("unexpected result: %+v", got)
	}
	expectationsMet(t, mock)
}

func TestPostgres_ListPatients_EmptyIsNotNil(t *testing.T) {
	pg, mock := newMock(t)
	mock.ExpectQuery("FROM patients").
		WithArgs("", "", "").
		WillReturnRows(sqlmock.NewRows(patientCols))

	got, err := pg.ListPatients(context.Background(), patient.Filter{})
	if err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if got == nil {
		t.Error("expected empty slice, got nil")
	}
	expectationsMet(t, mock)
}

// ─── CreatePatient ────────────────────────────────────────────────────────────

func TestPostgres_CreatePatient_AssignsIDAndAvatarFromCount(t *testing.T) {
	pg, mock := newMock(t)
	n := patient.NewPatient{
		Name: "Grace Hopper", Age: 60, Gender: "Female", SugarLevel: 110,
		BPSystolic: 135, BPDiastolic: 85, BMI: 26, RiskLevel: patient.RiskLow,
	}
	created := patient.Patient{
		ID: "USR013", Name: n.Name, Age: n.Age, Gender: n.Gender, SugarLevel: n.SugarLevel,
		BPSystolic: n.BPSystolic, BPDiastolic: n.BPDiastolic, BMI: n.BMI,
		RiskLevel: n.RiskLevel, Avatar: "avatar-1", CreatedAt: time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery("INSERT INTO patients").
		WithArgs("USR013", n.Name, n.Age, n.Gender, n.SugarLevel, n.BPSystolic,
			n.BPDiastolic, n.BMI, n.RiskLevel, "avatar-1").
		WillReturnRows(patientRow(sqlmock.NewRows(patientCols), created))
	mock.ExpectCommit()

	got, err := pg.CreatePatient(context.Background(), n)
	if err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	if got.ID != "USR013" || got.Avatar != "avatar-1" {
		t.Errorf("got id=%s avatar=%s", got.ID, got.Avatar)
	}
	expectationsMet(t, mock)
}

func TestPostgres_CreatePatient_RollsBackOnError(t *testing.T) {
	pg, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("INSERT INTO patients").
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	_, err := pg.CreatePatient(context.Background(), patient.NewPatient{Name: "Al"})
	if err == nil {
		t.Fatal("expected error")
	}
	expectationsMet(t, mock)
}

// ─── RecordAssessment ─────────────────────────────────────────────────────────

func TestPostgres_RecordAssessment_UpdatesRiskLevelAtomically(t *testing.T) {
	pg, mock := newMock(t)
	p := patient.MockPatients()[1]
	updated := p
	updated.RiskLevel = patient.RiskHigh
	createdAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE patients SET risk_level").
		WithArgs(p.ID, "High").
		WillReturnRows(patientRow(sqlmock.NewRows(patientCols), updated))
	mock.ExpectQuery("INSERT INTO assessments").
		WithArgs(sqlmock.AnyArg(), p.ID, "diabetes", 81.5, "high", "Sugar is high.", "gemini", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))
	mock.ExpectCommit()

	rec, got, err := pg.RecordAssessment(context.Background(), store.RecordAssessmentParams{
		PatientID: p.ID,
		Condition: "diabetes",
		Provider:  "gemini",
		Result: assessment.Result{
			RiskScore:   81.5,
			RiskLevel:   assessment.RiskHigh,
			Explanation: "Sugar is high.",
		},
	})
	if err != nil {
		t.Fatalf("RecordAssessment: %v", err)
	}
	if got.RiskLevel != patient.RiskHigh {
		t.Errorf("patient risk level: got %q", got.RiskLevel)
	}
	if rec.PatientID != p.ID || !rec.CreatedAt.Equal(createdAt) || rec.RiskLevel != assessment.RiskHigh {
		t.Errorf("unexpected record: %+v", rec)
	}
	expectationsMet(t, mock)
}

func TestPostgres_RecordAssessment_UnknownPatient(t *testing.T) {
	pg, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE patients SET risk_level").
		WithArgs("USR404", "Low").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := pg.RecordAssessment(context.Background(), store.RecordAssessmentParams{
		PatientID: "USR404",
		Condition: "hypertension",
		Result:    assessment.Result{RiskScore: 5, RiskLevel: assessment.RiskLow, Explanation: "x"},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

// ─── ListAssessments ──────────────────────────────────────────────────────────

func TestPostgres_ListAssessments(t *testing.T) {
	pg, mock := newMock(t)
	p := patient.MockPatients()[0]
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM patients WHERE id").
		WithArgs(p.ID).
		WillReturnRows(patientRow(sqlmock.NewRows(patientCols), p))
	mock.ExpectQuery("FROM assessments").
		WithArgs(p.ID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "patient_id", "condition", "risk_score", "risk_level", "explanation", "provider", "created_at",
		}).
			AddRow("6f1c2b9e-3a7d-4e51-9a43-1f2d3c4b5a69", p.ID, "hypertension", 72.0, "high", "BP", "anthropic", now).
			AddRow("0b8d7c6e-5f4a-4b3c-8d2e-1a0f9e8d7c6b", p.ID, "diabetes", 40.0, "medium", "Sugar", "gemini", now.Add(-time.Hour)))

	got, err := pg.ListAssessments(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("ListAssessments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records", len(got))
	}
	if got[0].RiskLevel != assessment.RiskHigh || got[1].Condition != "diabetes" {
		t.Errorf("unexpected records: %+v", got)
	}
	if got[0].ID.String() != "6f1c2b9e-3a7d-4e51-9a43-1f2d3c4b5a69" {
		t.Errorf("id: got %s", got[0].ID)
	}
	expectationsMet(t, mock)
}

func TestPostgres_ListAssessments_UnknownPatient(t *testing.T) {
	pg, mock := newMock(t)
	mock.ExpectQuery("SELECT (.+) FROM patients WHERE id").
		WithArgs("USR404").
		WillReturnRows(sqlmock.NewRows(patientCols))

	if _, err := pg.ListAssessments(context.Background(), "USR404"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

// ─── Seed ─────────────────────────────────────────────────────────────────────

func TestPostgres_Seed_EmptyRegistry(t *testing.T) {
	pg, mock := newMock(t)
	ps := patient.MockPatients()[:2]

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	for _, p := range ps {
		mock.ExpectExec("INSERT INTO patients").
			WithArgs(p.ID, p.Name, p.Age, p.Gender, p.SugarLevel, p.BPSystolic,
				p.BPDiastolic, p.BMI, p.RiskLevel, p.Avatar, p.CreatedAt).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	n, err := pg.Seed(context.Background(), ps)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted: got %d, want 2", n)
	}
	expectationsMet(t, mock)
}

func TestPostgres_Seed_SkipsPopulatedRegistry(t *testing.T) {
	pg, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectCommit()

	n, err := pg.Seed(context.Background(), patient.MockPatients())
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if n != 0 {
		t.Errorf("inserted: got %d, want 0", n)
	}
	expectationsMet(t, mock)
}
