package assessment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nyashahama/vitalwatch-backend/internal/ai"
)

// systemPrompt sets the model's role. The user prompt carries the data and
// the output contract.
const systemPrompt = `You are an AI health assistant that predicts the risk of an individual developing a specific health condition based on their health data.`

// resultShape is the output contract handed to the provider alongside the
// prompt. Field names are the wire keys parsed by ParseResult.
var resultShape = ai.Shape{Fields: []ai.Field{
	{Name: "riskScore", Type: ai.FieldNumber, Description: "Risk score for the condition, between 0 and 100."},
	{Name: "riskLevel", Type: ai.FieldString, Description: "Risk level: low, medium, or high."},
	{Name: "explanation", Type: ai.FieldString, Description: "Explanation of the factors contributing to the risk."},
}}

// BuildPrompt renders a validated request into the fixed prompt template.
// Output is a pure function of the request: the same request always yields
// byte-identical text.
func BuildPrompt(r HealthProfileRequest) ai.Prompt {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analyze the following information to predict the risk of developing %s:\n\n", r.Condition)
	fmt.Fprintf(&sb, "Age: %d years\n", r.Age)
	fmt.Fprintf(&sb, "Gender: %s\n", r.Gender)
	fmt.Fprintf(&sb, "Sugar Level: %s mg/dL\n", formatDecimal(r.SugarLevel))
	fmt.Fprintf(&sb, "Blood Pressure: %d/%d mmHg (systolic/diastolic)\n", r.BPSystolic, r.BPDiastolic)
	fmt.Fprintf(&sb, "BMI: %s kg/m^2\n", formatDecimal(r.BMI))
	fmt.Fprintf(&sb, "Condition: %s\n\n", r.Condition)

	sb.WriteString("Provide a risk score between 0 and 100, a risk level (low, medium, or high), ")
	sb.WriteString("and an explanation of the factors contributing to the risk.\n\n")

	sb.WriteString("Respond ONLY with a single JSON object with exactly these three fields, ")
	sb.WriteString("no markdown fences, no preamble, no text after the object:\n")
	sb.WriteString(`{"riskScore": <number between 0 and 100>, "riskLevel": "low" | "medium" | "high", "explanation": "<text>"}`)

	return ai.Prompt{
		System: systemPrompt,
		User:   sb.String(),
		Shape:  resultShape,
	}
}

// formatDecimal renders v in plain decimal with no exponent and no trailing
// zeros: 140 → "140", 28.5 → "28.5".
func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
