package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultResendEndpoint = "https://api.resend.com/emails"

// resendClient is the concrete Sender backed by the Resend API.
type resendClient struct {
	apiKey     string
	fromAddr   string // e.g. "alerts@vitalwatch.health"
	fromName   string // e.g. "VitalWatch"
	baseURL    string // dashboard base, e.g. "https://app.vitalwatch.health"
	endpoint   string
	httpClient *http.Client
}

// Option customises the Resend client.
type Option func(*resendClient)

// WithEndpoint overrides the Resend API URL. Tests point it at httptest.
func WithEndpoint(url string) Option {
	return func(c *resendClient) { c.endpoint = url }
}

// NewResendClient returns a Sender that delivers email via Resend.
func NewResendClient(apiKey, fromAddr, fromName, baseURL string, opts ...Option) Sender {
	c := &resendClient{
		apiKey:   apiKey,
		fromAddr: fromAddr,
		fromName: fromName,
		baseURL:  strings.TrimRight(baseURL, "/"),
		endpoint: defaultResendEndpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ─── RESEND API SHAPES ────────────────────────────────────────────────────────

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Name       string `json:"name"`
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode"`
	} `json:"error"`
}

// ─── SENDER IMPLEMENTATION ────────────────────────────────────────────────────

// SendHighRiskAlert sends the clinician alert for a high-risk assessment.
func (c *resendClient) SendHighRiskAlert(ctx context.Context, p HighRiskAlertParams) error {
	subject := fmt.Sprintf("High risk of %s: %s (%s)", p.Condition, p.PatientName, p.PatientID)
	patientURL := fmt.Sprintf("%s/patients/%s", c.baseURL, p.PatientID)

	return c.send(ctx, p.To, subject, highRiskAlertHTML(p, patientURL))
}

// ─── HTTP SEND ────────────────────────────────────────────────────────────────

func (c *resendClient) send(ctx context.Context, to, subject, htmlBody string) error {
	from := fmt.Sprintf("%s <%s>", c.fromName, c.fromAddr)

	reqBody := resendRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("email: read response: %w", err)
	}

	var parsed resendResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return fmt.Errorf("email: unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if parsed.Error != nil {
		return fmt.Errorf("email: Resend error %s: %s", parsed.Error.Name, parsed.Error.Message)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	return nil
}

// ─── HTML TEMPLATES ───────────────────────────────────────────────────────────

func highRiskAlertHTML(p HighRiskAlertParams, patientURL string) string {
	e := html.EscapeString

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 24px;">
  <h2 style="margin-bottom: 8px; color: #b91c1c;">High Risk Detected</h2>
  <p><strong>%s</strong> (%s) was assessed at <strong>high</strong> risk of
  developing <strong>%s</strong>, with a risk score of <strong>%s</strong>.</p>
  <blockquote style="border-left: 3px solid #e5e7eb; margin: 16px 0; padding-left: 12px; color: #374151;">
    %s
  </blockquote>
  <p style="margin: 32px 0;">
    <a href="%s"
       style="background: #0f172a; color: #ffffff; padding: 12px 24px;
              border-radius: 6px; text-decoration: none; font-weight: 600;">
      Open Patient Record
    </a>
  </p>
  <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 32px 0;">
  <p style="color: #9ca3af; font-size: 12px;">
    VitalWatch · Assessed %s · AI-generated risk estimate, not a diagnosis
  </p>
</body>
</html>`,
		e(p.PatientName), e(p.PatientID), e(p.Condition),
		formatScore(p.RiskScore),
		e(p.Explanation),
		e(patientURL),
		p.AssessedAt.UTC().Format("2 Jan 2006 15:04 MST"),
	)
}

func formatScore(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	return strings.TrimSuffix(s, ".0")
}
