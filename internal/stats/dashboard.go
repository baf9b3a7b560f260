package stats

import (
	"github.com/nyashahama/vitalwatch-backend/internal/assessment"
	"github.com/nyashahama/vitalwatch-backend/internal/patient"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Totals are the dashboard's headline cards.
type Totals struct {
	Patients   int `json:"patients"`
	HighRisk   int `json:"highRisk"`
	MediumRisk int `json:"mediumRisk"`
	LowRisk    int `json:"lowRisk"`
	Screenings int `json:"screenings"`
}

// Count is one labelled bar of a chart.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Dashboard is everything the dashboard page renders.
type Dashboard struct {
	Totals           Totals            `json:"totals"`
	AgeDistribution  []Count           `json:"ageDistribution"`
	Genders          []Count           `json:"genderDistribution"`
	Conditions       []Count           `json:"conditionDistribution"`
	HighRiskPatients []patient.Patient `json:"highRiskPatients"`
}

// ─── CORE FUNCTIONS ───────────────────────────────────────────────────────────

// Compute aggregates ps into a Dashboard. Every chart lists all of its bars,
// including empty ones, in a fixed order. HighRiskPatients is newest first.
func Compute(ps []patient.Patient) Dashboard {
	return Dashboard{
		Totals:           ComputeTotals(ps),
		AgeDistribution:  AgeDistribution(ps),
		Genders:          GenderDistribution(ps),
		Conditions:       ConditionDistribution(ps),
		HighRiskPatients: patient.Filter{Risk: patient.RiskHigh}.Apply(ps),
	}
}

// ComputeTotals counts patients by risk level and counts screenings.
func ComputeTotals(ps []patient.Patient) Totals {
	t := Totals{Patients: len(ps)}
	for _, p := range ps {
		switch p.RiskLevel {
		case patient.RiskHigh:
			t.HighRisk++
		case patient.RiskMedium:
			t.MediumRisk++
		case patient.RiskLow:
			t.LowRisk++
		}
		if p.Screened() {
			t.Screenings++
		}
	}
	return t
}

// AgeDistribution counts patients per AgeBuckets entry.
func AgeDistribution(ps []patient.Patient) []Count {
	out := make([]Count, len(AgeBuckets))
	for i, b := range AgeBuckets {
		out[i].Label = b.Label
	}
	for _, p := range ps {
		for i, b := range AgeBuckets {
			if b.Contains(p.Age) {
				out[i].Count++
				break
			}
		}
	}
	return out
}

// GenderDistribution counts patients per gender in Male, Female, Other order.
func GenderDistribution(ps []patient.Patient) []Count {
	out := make([]Count, len(assessment.Genders))
	idx := make(map[string]int, len(assessment.Genders))
	for i, g := range assessment.Genders {
		out[i].Label = string(g)
		idx[string(g)] = i
	}
	for _, p := range ps {
		if i, ok := idx[p.Gender]; ok {
			out[i].Count++
		}
	}
	return out
}

// ConditionDistribution counts patients above each dashboard condition's
// threshold. A patient may count toward several conditions.
func ConditionDistribution(ps []patient.Patient) []Count {
	out := make([]Count, len(patient.DashboardConditions))
	for i, c := range patient.DashboardConditions {
		out[i].Label = c.Label()
		for _, p := range ps {
			if c.Matches(p) {
				out[i].Count++
			}
		}
	}
	return out
}
