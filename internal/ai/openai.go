package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	openAIBaseURL   = "https://api.openai.com"
	deepSeekBaseURL = "https://api.deepseek.com"
)

// openAICompatClient is the Generator for any /v1/chat/completions endpoint.
// DeepSeek exposes the same request/response shapes as OpenAI, so one client
// serves both.
type openAICompatClient struct {
	name       string
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIClient returns a Generator that calls the OpenAI API.
//   - apiKey: your OPENAI_API_KEY
//   - model:  e.g. "gpt-4o-mini"
func NewOpenAIClient(apiKey, model string, opts ...Option) Generator {
	return newOpenAICompat("openai", openAIBaseURL, apiKey, model, opts)
}

// NewDeepSeekClient returns a Generator that calls the DeepSeek API.
//   - apiKey: your DEEPSEEK_API_KEY
//   - model:  e.g. "deepseek-chat"
func NewDeepSeekClient(apiKey, model string, opts ...Option) Generator {
	return newOpenAICompat("deepseek", deepSeekBaseURL, apiKey, model, opts)
}

func newOpenAICompat(name, defaultBaseURL, apiKey, model string, opts []Option) Generator {
	o := applyOptions(defaultBaseURL, opts)
	return &openAICompatClient{
		name:       name,
		apiKey:     apiKey,
		model:      model,
		baseURL:    o.baseURL,
		httpClient: &http.Client{Timeout: o.timeout},
	}
}

// ─── OPENAI-COMPATIBLE API SHAPES ────────────────────────────────────────────

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat instructs the model to return a JSON object.
type responseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

func (c *openAICompatClient) Name() string { return c.name }

// Generate sends one chat completion request and returns the content of the
// first choice. json_object mode is switched on whenever a shape is given.
func (c *openAICompatClient) Generate(ctx context.Context, p Prompt) (string, error) {
	reqBody := openAIRequest{
		Model:     c.model,
		MaxTokens: 1024,
	}
	if p.System != "" {
		reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: "system", Content: p.System})
	}
	reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: "user", Content: p.User})
	if len(p.Shape.Fields) > 0 {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", c.name, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: http request: %w", c.name, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%s: read response: %w", c.name, err)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", &StatusError{Provider: c.name, StatusCode: resp.StatusCode, Message: string(respBytes)}
		}
		return "", fmt.Errorf("%s: unmarshal response: %w", c.name, err)
	}

	if parsed.Error != nil {
		return "", &StatusError{
			Provider:   c.name,
			StatusCode: resp.StatusCode,
			Message:    parsed.Error.Type + ": " + parsed.Error.Message,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Provider: c.name, StatusCode: resp.StatusCode, Message: string(respBytes)}
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices in response", c.name)
	}

	return parsed.Choices[0].Message.Content, nil
}
