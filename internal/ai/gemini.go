package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com"

// geminiClient is the Generator backed by the Gemini generateContent API.
// Gemini accepts a response schema, so the output shape is enforced by the
// provider as well as described in the prompt.
type geminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient returns a Generator that calls the Gemini API.
//   - apiKey: your GEMINI_API_KEY
//   - model:  e.g. "gemini-2.0-flash"
func NewGeminiClient(apiKey, model string, opts ...Option) Generator {
	o := applyOptions(geminiBaseURL, opts)
	return &geminiClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    o.baseURL,
		httpClient: &http.Client{Timeout: o.timeout},
	}
}

// ─── GEMINI API SHAPES ────────────────────────────────────────────────────────

type geminiRequest struct {
	SystemInstruction *geminiContent        `json:"systemInstruction,omitempty"`
	Contents          []geminiContent       `json:"contents"`
	GenerationConfig  *geminiGenerationConf `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConf struct {
	ResponseMimeType string        `json:"responseMimeType,omitempty"`
	ResponseSchema   *geminiSchema `json:"responseSchema,omitempty"`
}

type geminiSchema struct {
	Type             string                  `json:"type"`
	Description      string                  `json:"description,omitempty"`
	Properties       map[string]geminiSchema `json:"properties,omitempty"`
	Required         []string                `json:"required,omitempty"`
	PropertyOrdering []string                `json:"propertyOrdering,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

func (c *geminiClient) Name() string { return "gemini" }

// Generate sends one generateContent request and returns the concatenated
// text parts of the first candidate.
func (c *geminiClient) Generate(ctx context.Context, p Prompt) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: p.User}}},
		},
	}
	if p.System != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: p.System}}}
	}
	if schema := schemaFromShape(p.Shape); schema != nil {
		reqBody.GenerationConfig = &geminiGenerationConf{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("gemini: read response body: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", &StatusError{Provider: "gemini", StatusCode: resp.StatusCode, Message: string(respBytes)}
		}
		return "", fmt.Errorf("gemini: unmarshal response: %w", err)
	}

	if parsed.Error != nil {
		return "", &StatusError{
			Provider:   "gemini",
			StatusCode: resp.StatusCode,
			Message:    parsed.Error.Status + ": " + parsed.Error.Message,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Provider: "gemini", StatusCode: resp.StatusCode, Message: string(respBytes)}
	}

	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates in response")
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// schemaFromShape maps a Shape onto Gemini's OpenAPI-subset schema. Every
// field is required. Returns nil for an empty shape.
func schemaFromShape(s Shape) *geminiSchema {
	if len(s.Fields) == 0 {
		return nil
	}
	schema := &geminiSchema{
		Type:       "OBJECT",
		Properties: make(map[string]geminiSchema, len(s.Fields)),
	}
	for _, f := range s.Fields {
		typ := "STRING"
		if f.Type == FieldNumber {
			typ = "NUMBER"
		}
		schema.Properties[f.Name] = geminiSchema{Type: typ, Description: f.Description}
		schema.Required = append(schema.Required, f.Name)
		schema.PropertyOrdering = append(schema.PropertyOrdering, f.Name)
	}
	return schema
}
