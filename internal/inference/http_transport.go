package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"personaquiz/internal/config"
)

const maxErrorBody = 2048

// HTTPTransport calls the generateContent REST endpoint directly
type HTTPTransport struct {
	config *config.AIConfig
	client *http.Client
}

// NewHTTPTransport creates a REST transport. A nil client uses http.DefaultClient;
// per-attempt timeouts come from the context.
func NewHTTPTransport(cfg *config.AIConfig, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{config: cfg, client: client}
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate implements Transport
func (t *HTTPTransport) Generate(ctx context.Context, req Request) (string, error) {
	jsonBody, err := json.Marshal(geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: req.Config,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.ModelEndpoint(req.Model), bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", t.config.APIKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return "", &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	switch {
	case len(parsed.Candidates) == 0:
		return "", fmt.Errorf("%w: no candidates", ErrEmptyResponse)
	case parsed.Candidates[0].Content == nil:
		return "", fmt.Errorf("%w: no content", ErrEmptyResponse)
	case len(parsed.Candidates[0].Content.Parts) == 0:
		return "", fmt.Errorf("%w: no parts", ErrEmptyResponse)
	case parsed.Candidates[0].Content.Parts[0].Text == "":
		return "", fmt.Errorf("%w: empty text", ErrEmptyResponse)
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
