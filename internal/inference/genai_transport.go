package inference

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"personaquiz/internal/config"
)

// GenAITransport sends requests through the Google GenAI SDK
type GenAITransport struct {
	client *genai.Client
}

// NewGenAITransport creates an SDK-backed transport
func NewGenAITransport(ctx context.Context, cfg *config.AIConfig) (*GenAITransport, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAITransport{client: client}, nil
}

// Generate implements Transport
func (t *GenAITransport) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := t.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Config.Temperature),
		TopP:            genai.Ptr(req.Config.TopP),
		TopK:            genai.Ptr(float32(req.Config.TopK)),
		MaxOutputTokens: req.Config.MaxOutputTokens,
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{Code: apiErr.Code, Body: apiErr.Message}
		}
		return "", err
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrEmptyResponse)
	}
	if resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no parts", ErrEmptyResponse)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty text", ErrEmptyResponse)
	}
	return text, nil
}
