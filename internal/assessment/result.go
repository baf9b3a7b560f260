package assessment

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// RiskLevel is the normalized, lowercase risk bucket.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel lowercases s and checks it against the three levels.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch l := RiskLevel(strings.ToLower(s)); l {
	case RiskLow, RiskMedium, RiskHigh:
		return l, true
	default:
		return "", false
	}
}

// Title returns the display form used by the patient registry: "Low",
// "Medium", "High".
func (l RiskLevel) Title() string {
	if l == "" {
		return ""
	}
	return strings.ToUpper(string(l[:1])) + string(l[1:])
}

// Score bounds.
const (
	MinRiskScore = 0
	MaxRiskScore = 100
)

// Result is a successful assessment. Every Result returned by this package
// satisfies: 0 <= RiskScore <= 100, RiskLevel is low/medium/high, and
// Explanation is non-empty after trimming.
type Result struct {
	RiskScore   float64   `json:"riskScore"`
	RiskLevel   RiskLevel `json:"riskLevel"`
	Explanation string    `json:"explanation"`
}

// ParseResult validates raw model output against the result shape. The body
// must be exactly one JSON object, optionally surrounded by whitespace.
// Markdown fences, prose, or trailing data are rejected, never scraped.
// Keys other than the three result fields are ignored.
func ParseResult(raw string) (Result, error) {
	fail := func(field, reason string, err error) (Result, error) {
		return Result{}, &SchemaError{Field: field, Reason: reason, Raw: raw, Err: err}
	}

	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return fail("", "empty response", nil)
	}
	if trimmed[0] != '{' {
		return fail("", "response is not a JSON object", nil)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return fail("", "response is not valid JSON", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fail("", "unexpected data after the JSON object", err)
	}

	score, err := parseScore(fields["riskScore"])
	if err != nil {
		return fail("riskScore", err.Error(), nil)
	}

	levelText, err := parseString(fields["riskLevel"])
	if err != nil {
		return fail("riskLevel", err.Error(), nil)
	}
	level, ok := ParseRiskLevel(levelText)
	if !ok {
		return fail("riskLevel", "must be one of low, medium, high", nil)
	}

	explanation, err := parseString(fields["explanation"])
	if err != nil {
		return fail("explanation", err.Error(), nil)
	}
	if strings.TrimSpace(explanation) == "" {
		return fail("explanation", "must not be empty", nil)
	}

	return Result{
		RiskScore:   score,
		RiskLevel:   level,
		Explanation: explanation,
	}, nil
}

var (
	errMissing     = errors.New("is missing")
	errNotNumber   = errors.New("must be a JSON number")
	errNotString   = errors.New("must be a JSON string")
	errScoreBounds = errors.New("must be between 0 and 100")
)

// parseScore accepts only a bare JSON number. Quoted numbers are rejected.
func parseScore(raw json.RawMessage) (float64, error) {
	if isAbsent(raw) {
		return 0, errMissing
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return 0, errNotNumber
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, errNotNumber
	}
	if v < MinRiskScore || v > MaxRiskScore {
		return 0, errScoreBounds
	}
	return v, nil
}

func parseString(raw json.RawMessage) (string, error) {
	if isAbsent(raw) {
		return "", errMissing
	}
	if raw[0] != '"' {
		return "", errNotString
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errNotString
	}
	return s, nil
}

// isAbsent treats a missing key and an explicit null the same way.
func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
