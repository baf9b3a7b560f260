package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/vitalwatch-backend/internal/patient"
)

// Memory is an in-process Repository guarded by a RWMutex. State is lost on
// restart.
type Memory struct {
	mu          sync.RWMutex
	patients    map[string]patient.Patient
	assessments map[string][]Assessment // patient id → history, oldest first
	now         func() time.Time
}

// NewMemory returns an empty Memory store pre-loaded with seed. Pass
// patient.MockPatients() for the demo dataset, or nil for an empty registry.
func NewMemory(seed []patient.Patient) *Memory {
	m := &Memory{
		patients:    make(map[string]patient.Patient, len(seed)),
		assessments: make(map[string][]Assessment),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, p := range seed {
		m.patients[p.ID] = p
	}
	return m
}

// WithClock replaces the time source. Intended for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
	return m
}

func (m *Memory) ListPatients(_ context.Context, f patient.Filter) ([]patient.Patient, error) {
	m.mu.RLock()
	all := make([]patient.Patient, 0, len(m.patients))
	for _, p := range m.patients {
		all = append(all, p)
	}
	m.mu.RUnlock()

	return f.Apply(all), nil
}

func (m *Memory) GetPatient(_ context.Context, id string) (patient.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.patients[id]
	if !ok {
		return patient.Patient{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) CreatePatient(_ context.Context, n patient.NewPatient) (patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := len(m.patients)
	p := patient.Patient{
		ID:          patient.FormatID(count + 1),
		Name:        n.Name,
		Age:         n.Age,
		Gender:      n.Gender,
		SugarLevel:  n.SugarLevel,
		BPSystolic:  n.BPSystolic,
		BPDiastolic: n.BPDiastolic,
		BMI:         n.BMI,
		RiskLevel:   n.RiskLevel,
		Avatar:      patient.AvatarFor(count),
		CreatedAt:   m.now(),
	}
	m.patients[p.ID] = p
	return p, nil
}

func (m *Memory) RecordAssessment(_ context.Context, params RecordAssessmentParams) (Assessment, patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.patients[params.PatientID]
	if !ok {
		return Assessment{}, patient.Patient{}, ErrNotFound
	}

	a := Assessment{
		ID:          uuid.New(),
		PatientID:   p.ID,
		Condition:   params.Condition,
		RiskScore:   params.Result.RiskScore,
		RiskLevel:   params.Result.RiskLevel,
		Explanation: params.Result.Explanation,
		Provider:    params.Provider,
		CreatedAt:   m.now(),
	}
	m.assessments[p.ID] = append(m.assessments[p.ID], a)

	p.RiskLevel = params.Result.RiskLevel.Title()
	m.patients[p.ID] = p

	return a, p, nil
}

func (m *Memory) ListAssessments(_ context.Context, patientID string) ([]Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.patients[patientID]; !ok {
		return nil, ErrNotFound
	}

	history := m.assessments[patientID]
	out := make([]Assessment, len(history))
	for i, a := range history {
		out[len(history)-1-i] = a
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

var _ Repository = (*Memory)(nil)
