package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"personaquiz/internal/model"
)

// flexString accepts a string, an array of strings joined with ", ", or null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			var s flexString
			if err := s.UnmarshalJSON(item); err != nil {
				return err
			}
			parts = append(parts, string(s))
		}
		*f = flexString(strings.Join(parts, ", "))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	// numbers and booleans keep their literal text
	*f = flexString(data)
	return nil
}

// flexList accepts an array of strings, a single string, or null.
type flexList []string

func (f *flexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var items []flexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, string(item))
		}
		*f = out
		return nil
	}
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*f = nil
		return nil
	}
	*f = flexList{string(s)}
	return nil
}

type analysisPayload struct {
	MBTIType               flexString                 `json:"mbtiType"`
	DISCType               flexString                 `json:"discType"`
	Traits                 map[string]json.RawMessage `json:"traits"`
	KeyTraits              flexList                   `json:"keyTraits"`
	SuitableCareers        flexList                   `json:"suitableCareers"`
	Strengths              flexList                   `json:"strengths"`
	Weaknesses             flexList                   `json:"weaknesses"`
	Analysis               flexString                 `json:"analysis"`
	DevelopmentSuggestions flexString                 `json:"developmentSuggestions"`
}

// ExtractAnalysis parses the JSON object embedded in raw model output: the
// text from the first '{' to the last '}'. Malformed JSON is not repaired.
func ExtractAnalysis(raw string) (*model.AnalysisResult, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrParse)
	}

	var p analysisPayload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	traits, err := p.traitScores()
	if err != nil {
		return nil, err
	}

	return &model.AnalysisResult{
		MBTIType:               strings.TrimSpace(string(p.MBTIType)),
		DISCType:               strings.TrimSpace(string(p.DISCType)),
		Traits:                 traits,
		KeyTraits:              nonNil(p.KeyTraits),
		SuitableCareers:        nonNil(p.SuitableCareers),
		Strengths:              nonNil(p.Strengths),
		Weaknesses:             nonNil(p.Weaknesses),
		Analysis:               string(p.Analysis),
		DevelopmentSuggestions: string(p.DevelopmentSuggestions),
	}, nil
}

func (p *analysisPayload) traitScores() (model.TraitScores, error) {
	var t model.TraitScores
	fields := []struct {
		name string
		dst  *int
	}{
		{"extraversion", &t.Extraversion},
		{"intuition", &t.Intuition},
		{"thinking", &t.Thinking},
		{"judging", &t.Judging},
		{"dominance", &t.Dominance},
		{"influence", &t.Influence},
		{"steadiness", &t.Steadiness},
		{"compliance", &t.Compliance},
	}
	for _, f := range fields {
		raw, ok := p.Traits[f.name]
		if !ok {
			continue
		}
		v, err := traitInt(raw)
		if err != nil {
			return t, fmt.Errorf("%w: trait %s: %v", ErrParse, f.name, err)
		}
		*f.dst = v
	}
	return t, nil
}

// traitInt reads a JSON number or numeric string. Fractions are truncated.
func traitInt(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, nil
		}
	}

	if n, err := strconv.Atoi(text); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	return int(f), nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
