// Package patient holds the registry's domain model: the Patient record,
// intake validation, and the filters the dashboard applies to the list.
//
// It is dependency-free. Persistence lives in store, aggregates in stats.
package patient

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nyashahama/vitalwatch-backend/internal/assessment"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Risk level labels as shown in the registry. They are the title-case form
// of assessment.RiskLevel.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// Patient is one registry entry.
type Patient struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Age         int       `json:"age"`
	Gender      string    `json:"gender"`
	SugarLevel  float64   `json:"sugarLevel"`
	BPSystolic  int       `json:"bpSystolic"`
	BPDiastolic int       `json:"bpDiastolic"`
	BMI         float64   `json:"bmi"`
	RiskLevel   string    `json:"riskLevel"`
	Avatar      string    `json:"avatar"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Screened reports whether all three screening vitals are on file.
func (p Patient) Screened() bool {
	return p.BPSystolic != 0 && p.SugarLevel != 0 && p.BMI != 0
}

// Profile builds the assessment input for condition from the stored vitals.
func (p Patient) Profile(condition string) assessment.HealthProfileRequest {
	return assessment.HealthProfileRequest{
		Age:         p.Age,
		Gender:      p.Gender,
		SugarLevel:  p.SugarLevel,
		BPSystolic:  p.BPSystolic,
		BPDiastolic: p.BPDiastolic,
		BMI:         p.BMI,
		Condition:   condition,
	}
}

// NewPatient is the intake form. ID, avatar and creation time are assigned
// by the store.
type NewPatient struct {
	Name        string  `json:"name" yaml:"name"`
	Age         int     `json:"age" yaml:"age"`
	Gender      string  `json:"gender" yaml:"gender"`
	SugarLevel  float64 `json:"sugarLevel" yaml:"sugarLevel"`
	BPSystolic  int     `json:"bpSystolic" yaml:"bpSystolic"`
	BPDiastolic int     `json:"bpDiastolic" yaml:"bpDiastolic"`
	BMI         float64 `json:"bmi" yaml:"bmi"`
	RiskLevel   string  `json:"riskLevel,omitempty" yaml:"riskLevel"`
}

// MinNameLength is the shortest accepted patient name, counted in runes
// after trimming.
const MinNameLength = 2

// Validate checks the intake form and returns it normalized: name trimmed,
// gender and risk level in display spelling, risk level defaulting to Low.
// Problems are reported with the same error type the assessment service uses.
func (n NewPatient) Validate() (NewPatient, error) {
	var problems []assessment.FieldProblem
	add := func(field, reason string) {
		problems = append(problems, assessment.FieldProblem{Field: field, Reason: reason})
	}

	n.Name = strings.TrimSpace(n.Name)
	if len([]rune(n.Name)) < MinNameLength {
		add("name", fmt.Sprintf("must be at least %d characters", MinNameLength))
	}
	if n.Age < assessment.MinAge || n.Age > assessment.MaxAge {
		add("age", fmt.Sprintf("must be between %d and %d", assessment.MinAge, assessment.MaxAge))
	}

	gender, ok := assessment.ParseGender(n.Gender)
	if !ok {
		add("gender", "must be one of Male, Female, Other")
	}
	if !positive(n.SugarLevel) {
		add("sugarLevel", "must be a finite number greater than 0")
	}
	if n.BPSystolic <= 0 {
		add("bpSystolic", "must be greater than 0")
	}
	if n.BPDiastolic <= 0 {
		add("bpDiastolic", "must be greater than 0")
	}
	if !positive(n.BMI) {
		add("bmi", "must be a finite number greater than 0")
	}

	risk := RiskLow
	if strings.TrimSpace(n.RiskLevel) != "" {
		level, ok := assessment.ParseRiskLevel(strings.TrimSpace(n.RiskLevel))
		if !ok {
			add("riskLevel", "must be one of Low, Medium, High")
		}
		risk = level.Title()
	}

	if len(problems) > 0 {
		return NewPatient{}, &assessment.ValidationError{Problems: problems}
	}

	n.Gender = string(gender)
	n.RiskLevel = risk
	return n, nil
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// FormatID renders the nth patient id (1-based): USR001, USR002, …
func FormatID(n int) string {
	return fmt.Sprintf("USR%03d", n)
}

// AvatarFor picks the placeholder avatar for a patient created when the
// registry already held count entries.
func AvatarFor(count int) string {
	return fmt.Sprintf("avatar-%d", count%6+1)
}
