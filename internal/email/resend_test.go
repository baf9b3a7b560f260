package email_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nyashahama/vitalwatch-backend/internal/email"
)

func alertParams() email.HighRiskAlertParams {
	return email.HighRiskAlertParams{
		To:          "oncall@clinic.test",
		PatientID:   "USR004",
		PatientName: "Sofia Rossi",
		Condition:   "heart disease",
		RiskScore:   87,
		Explanation: "Systolic BP of 158 <b>and</b> age 68.",
		AssessedAt:  time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestSendHighRiskAlert_RequestShape(t *testing.T) {
	var got struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		HTML    string   `json:"html"`
	}
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer srv.Close()

	s := email.NewResendClient("re_key", "alerts@vitalwatch.test", "VitalWatch", "https://app.vitalwatch.test/",
		email.WithEndpoint(srv.URL))

	if err := s.SendHighRiskAlert(context.Background(), alertParams()); err != nil {
		t.Fatalf("SendHighRiskAlert: %v", err)
	}

	if auth != "Bearer re_key" {
		t.Errorf("auth header: got %q", auth)
	}
	if got.From != "VitalWatch <alerts@vitalwatch.test>" {
		t.Errorf("from: got %q", got.From)
	}
	if len(got.To) != 1 || got.To[0] != "oncall@clinic.test" {
		t.Errorf("to: got %v", got.To)
	}
	if !strings.Contains(got.Subject, "heart disease") || !strings.Contains(got.Subject, "USR004") {
		t.Errorf("subject: got %q", got.Subject)
	}
	if !strings.Contains(got.HTML, "https://app.vitalwatch.test/patients/USR004") {
		t.Error("html should link to the patient record")
	}
	if strings.Contains(got.HTML, "<b>and</b>") {
		t.Error("model explanation must be escaped")
	}
	if !strings.Contains(got.HTML, "risk score of <strong>87</strong>") {
		t.Error("html should render the score without a trailing .0")
	}
}

func TestSendHighRiskAlert_ResendErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"name":"validation_error","message":"invalid from","statusCode":422}}`))
	}))
	defer srv.Close()

	s := email.NewResendClient("k", "a@b.test", "X", "http://x", email.WithEndpoint(srv.URL))
	err := s.SendHighRiskAlert(context.Background(), alertParams())
	if err == nil || !strings.Contains(err.Error(), "validation_error") {
		t.Fatalf("expected Resend error, got %v", err)
	}
}

func TestSendHighRiskAlert_NonJSONFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream down`))
	}))
	defer srv.Close()

	s := email.NewResendClient("k", "a@b.test", "X", "http://x", email.WithEndpoint(srv.URL))
	if err := s.SendHighRiskAlert(context.Background(), alertParams()); err == nil {
		t.Fatal("expected error")
	}
}
