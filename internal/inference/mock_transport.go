package inference

import (
	"context"
	"strings"
)

// MockTransport answers without calling out. It is used when no API key is
// configured: analysis prompts get a fixed report, everything else a short reply.
type MockTransport struct{}

const mockReport = `{
  "mbtiType": "INFJ",
  "discType": "S",
  "traits": {
    "extraversion": 4, "intuition": 7, "thinking": 5, "judging": 6,
    "dominance": 3, "influence": 5, "steadiness": 8, "compliance": 6
  },
  "keyTraits": ["Reflective", "Empathetic", "Organized", "Patient"],
  "suitableCareers": ["Counselor", "Teacher", "UX Researcher", "Writer", "HR Specialist"],
  "strengths": ["Listens carefully", "Plans ahead", "Loyal"],
  "weaknesses": ["Avoids conflict", "Overthinks", "Reluctant to delegate"],
  "analysis": "Mock analysis - enable Gemini for real insights.",
  "developmentSuggestions": ["Practice voicing disagreement early", "Set time limits on decisions"]
}`

// Generate implements Transport
func (MockTransport) Generate(_ context.Context, req Request) (string, error) {
	if strings.Contains(req.Prompt, `"mbtiType"`) {
		return mockReport, nil
	}
	return "Thanks for sharing! Tell me more about what you enjoy doing day to day.", nil
}
