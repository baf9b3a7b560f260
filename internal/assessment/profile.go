// Package assessment implements the risk assessment contract: validate a
// health profile, render it into a fixed prompt, submit it to a text
// generation model, and strictly parse the model's JSON answer.
//
// It holds no state between calls and never logs, retries, or falls back.
package assessment

import (
	"fmt"
	"math"
	"strings"
)

// Gender is the closed set of genders a profile may carry.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Genders lists every accepted Gender in display order.
var Genders = []Gender{GenderMale, GenderFemale, GenderOther}

// ParseGender matches s case-insensitively, ignoring surrounding whitespace,
// and returns the canonical spelling.
func ParseGender(s string) (Gender, bool) {
	s = strings.TrimSpace(s)
	for _, g := range Genders {
		if strings.EqualFold(s, string(g)) {
			return g, true
		}
	}
	return "", false
}

// Condition is the closed set of target conditions the model is asked about.
type Condition string

const (
	ConditionDiabetes     Condition = "diabetes"
	ConditionHypertension Condition = "hypertension"
	ConditionHeartDisease Condition = "heart disease"
)

// Conditions lists every accepted Condition.
var Conditions = []Condition{ConditionDiabetes, ConditionHypertension, ConditionHeartDisease}

// ParseCondition matches s case-insensitively, ignoring surrounding
// whitespace, and returns the canonical spelling.
func ParseCondition(s string) (Condition, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Conditions {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Age bounds match the plausible human range accepted by the intake form.
const (
	MinAge = 1
	MaxAge = 120
)

// HealthProfileRequest is one assessment input. It is a plain value: build
// it, pass it to Service.Assess, discard it.
type HealthProfileRequest struct {
	Age         int     `json:"age" yaml:"age"`
	Gender      string  `json:"gender" yaml:"gender"`
	SugarLevel  float64 `json:"sugarLevel" yaml:"sugarLevel"`   // mg/dL
	BPSystolic  int     `json:"bpSystolic" yaml:"bpSystolic"`   // mmHg
	BPDiastolic int     `json:"bpDiastolic" yaml:"bpDiastolic"` // mmHg
	BMI         float64 `json:"bmi" yaml:"bmi"`                 // kg/m²
	Condition   string  `json:"condition" yaml:"condition"`
}

// Validate checks every invariant and reports all violations at once.
// On success it returns the request with gender and condition in their
// canonical spelling.
func (r HealthProfileRequest) Validate() (HealthProfileRequest, error) {
	var problems []FieldProblem
	add := func(field, reason string) {
		problems = append(problems, FieldProblem{Field: field, Reason: reason})
	}

	if r.Age < MinAge || r.Age > MaxAge {
		add("age", fmt.Sprintf("must be between %d and %d", MinAge, MaxAge))
	}

	gender, ok := ParseGender(r.Gender)
	if !ok {
		add("gender", fmt.Sprintf("must be one of %s", joinGenders()))
	}

	if !positiveFinite(r.SugarLevel) {
		add("sugarLevel", "must be a finite number greater than 0")
	}
	if r.BPSystolic <= 0 {
		add("bpSystolic", "must be greater than 0")
	}
	if r.BPDiastolic <= 0 {
		add("bpDiastolic", "must be greater than 0")
	}
	if !positiveFinite(r.BMI) {
		add("bmi", "must be a finite number greater than 0")
	}

	condition, ok := ParseCondition(r.Condition)
	if !ok {
		add("condition", fmt.Sprintf("must be one of %s", joinConditions()))
	}

	if len(problems) > 0 {
		return HealthProfileRequest{}, &ValidationError{Problems: problems}
	}

	r.Gender = string(gender)
	r.Condition = string(condition)
	return r, nil
}

func positiveFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func joinGenders() string {
	parts := make([]string, len(Genders))
	for i, g := range Genders {
		parts[i] = string(g)
	}
	return strings.Join(parts, ", ")
}

func joinConditions() string {
	parts := make([]string, len(Conditions))
	for i, c := range Conditions {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
