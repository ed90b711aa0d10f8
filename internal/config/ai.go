package config

import (
	"time"

	"github.com/spf13/viper"
)

// Backend selects how generation requests reach Gemini
type Backend string

const (
	BackendHTTP  Backend = "http"  // raw generateContent REST calls
	BackendGenAI Backend = "genai" // google.golang.org/genai SDK
)

// GeminiModels defines which Gemini models to use for different tasks
type GeminiModels struct {
	// Chat answers user messages (needs to be fast)
	Chat string `json:"chat"`

	// Analysis produces the personality report (quality over speed)
	Analysis string `json:"analysis"`
}

// AIConfig holds all AI-related configuration
type AIConfig struct {
	APIKey    string       `json:"-"` // Never serialize
	BaseURL   string       `json:"baseUrl"`
	Backend   Backend      `json:"backend"`
	Models    GeminiModels `json:"models"`
	TimeoutMS int          `json:"timeoutMs"` // per attempt
	RPS       float64      `json:"rps"`       // client-side pacing, 0 disables
}

// DefaultAIConfig returns the AI configuration read from the environment
func DefaultAIConfig() *AIConfig {
	v := viper.New()
	v.AutomaticEnv()
	return loadAIConfig(v)
}

func loadAIConfig(v *viper.Viper) *AIConfig {
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models")
	v.SetDefault("GEMINI_BACKEND", string(BackendHTTP))
	v.SetDefault("GEMINI_MODEL_CHAT", "gemini-2.5-flash")
	v.SetDefault("GEMINI_MODEL_ANALYSIS", "gemini-2.5-flash")
	v.SetDefault("GEMINI_TIMEOUT_MS", 45000)
	v.SetDefault("GEMINI_RPS", 0)

	return &AIConfig{
		APIKey:  v.GetString("GEMINI_API_KEY"),
		BaseURL: v.GetString("GEMINI_BASE_URL"),
		Backend: Backend(v.GetString("GEMINI_BACKEND")),
		Models: GeminiModels{
			Chat:     v.GetString("GEMINI_MODEL_CHAT"),
			Analysis: v.GetString("GEMINI_MODEL_ANALYSIS"),
		},
		TimeoutMS: v.GetInt("GEMINI_TIMEOUT_MS"),
		RPS:       v.GetFloat64("GEMINI_RPS"),
	}
}

// IsEnabled returns true if the AI API is configured
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}

// ModelEndpoint returns the full endpoint for a given model
func (c *AIConfig) ModelEndpoint(model string) string {
	return c.BaseURL + "/" + model + ":generateContent"
}

// Timeout returns the per-attempt request timeout
func (c *AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
