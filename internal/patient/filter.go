package patient

import (
	"fmt"
	"sort"
	"strings"
)

// Dashboard condition thresholds. A patient counts toward a condition when
// the vital is strictly above the threshold.
const (
	HypertensionSystolic = 140  // mmHg
	DiabetesSugar        = 125  // mg/dL
	ObesityBMI           = 30.0 // kg/m²
)

// DashboardCondition is one of the bars on the dashboard's condition chart.
type DashboardCondition string

const (
	Hypertension DashboardCondition = "hypertension"
	Diabetes     DashboardCondition = "diabetes"
	Obesity      DashboardCondition = "obesity"
)

// DashboardConditions lists every DashboardCondition in chart order.
var DashboardConditions = []DashboardCondition{Hypertension, Diabetes, Obesity}

// Label returns the chart label: "Hypertension", "Diabetes", "Obesity".
func (c DashboardCondition) Label() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// Matches reports whether p's vitals put it above c's threshold.
func (c DashboardCondition) Matches(p Patient) bool {
	switch c {
	case Hypertension:
		return p.BPSystolic > HypertensionSystolic
	case Diabetes:
		return p.SugarLevel > DiabetesSugar
	case Obesity:
		return p.BMI > ObesityBMI
	default:
		return false
	}
}

// Filter narrows the registry list. Zero values match everything.
type Filter struct {
	// Risk is a title-case risk level, or empty for the "all" tab.
	Risk string
	// Query is a case-insensitive substring matched against name and id.
	Query string
	// Condition is a dashboard condition, or empty.
	Condition DashboardCondition
}

// ParseFilter builds a Filter from the list endpoint's query parameters.
// risk accepts all|low|medium|high and condition accepts
// hypertension|diabetes|obesity, both case-insensitive.
func ParseFilter(risk, query, condition string) (Filter, error) {
	var f Filter

	switch r := strings.ToLower(strings.TrimSpace(risk)); r {
	case "", "all":
	case "low", "medium", "high":
		f.Risk = strings.ToUpper(r[:1]) + r[1:]
	default:
		return Filter{}, fmt.Errorf("patient: unknown risk filter %q", risk)
	}

	if c := strings.ToLower(strings.TrimSpace(condition)); c != "" {
		found := false
		for _, dc := range DashboardConditions {
			if string(dc) == c {
				f.Condition = dc
				found = true
				break
			}
		}
		if !found {
			return Filter{}, fmt.Errorf("patient: unknown condition filter %q", condition)
		}
	}

	f.Query = strings.TrimSpace(query)
	return f, nil
}

// Match reports whether p passes every set criterion.
func (f Filter) Match(p Patient) bool {
	if f.Risk != "" && p.RiskLevel != f.Risk {
		return false
	}
	if f.Condition != "" && !f.Condition.Matches(p) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.ID), q) {
			return false
		}
	}
	return true
}

// Apply returns the patients that match f, newest first. Ties on creation
// time fall back to descending id so the order is stable.
func (f Filter) Apply(all []Patient) []Patient {
	out := make([]Patient, 0, len(all))
	for _, p := range all {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders ps by creation time descending, then id descending.
func SortNewestFirst(ps []Patient) {
	sort.SliceStable(ps, func(i, j int) bool {
		if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].CreatedAt.After(ps[j].CreatedAt)
		}
		return ps[i].ID > ps[j].ID
	})
}
