// Package inference obtains generated text from Gemini, hiding transient
// failures behind a bounded retry loop.
package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// GenerationConfig holds the sampling parameters sent with every request
type GenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	TopP            float32 `json:"topP"`
	TopK            int32   `json:"topK"`
	MaxOutputTokens int32   `json:"maxOutputTokens"`
}

// Generation is fixed; callers cannot tune it.
var Generation = GenerationConfig{
	Temperature:     0.7,
	TopP:            0.8,
	TopK:            40,
	MaxOutputTokens: 4000,
}

// Request is a single generation call
type Request struct {
	Model  string
	Prompt string
	Config GenerationConfig
}

// Transport sends one request to the generation service. Implementations
// report HTTP-level failures as *StatusError and missing text as
// ErrEmptyResponse.
type Transport interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ErrEmptyResponse means the response carried no candidates, content, parts or text
var ErrEmptyResponse = errors.New("empty response from Gemini")

// StatusError is a non-2xx answer from the generation service
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini returned %d: %s", e.Code, e.Body)
}

// ServiceError is the terminal failure of Generate after local retries
type ServiceError struct {
	Attempts int
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("text generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

type failureClass int

const (
	classRateLimited failureClass = iota
	classBadRequest
	classUnexpected
	classFatal
)

func (c failureClass) String() string {
	switch c {
	case classRateLimited:
		return "rate_limited"
	case classBadRequest:
		return "bad_request"
	case classUnexpected:
		return "unexpected"
	}
	return "fatal"
}

// classify sorts a transport failure. 429 and 400 have their own backoff,
// 5xx and non-HTTP failures are retried as unexpected, other 4xx are fatal.
func classify(err error) failureClass {
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusTooManyRequests:
			return classRateLimited
		case se.Code == http.StatusBadRequest:
			return classBadRequest
		case se.Code >= 500:
			return classUnexpected
		default:
			return classFatal
		}
	}
	return classUnexpected
}
