package model

import "time"

// TraitScores holds the eight 1-10 trait ratings produced by the analysis
type TraitScores struct {
	Extraversion int `json:"extraversion" bson:"extraversion"`
	Intuition    int `json:"intuition" bson:"intuition"`
	Thinking     int `json:"thinking" bson:"thinking"`
	Judging      int `json:"judging" bson:"judging"`
	Dominance    int `json:"dominance" bson:"dominance"`
	Influence    int `json:"influence" bson:"influence"`
	Steadiness   int `json:"steadiness" bson:"steadiness"`
	Compliance   int `json:"compliance" bson:"compliance"`
}

// AnalysisResult is the stored, immutable analysis of one chat session.
// SessionID is unique.
type AnalysisResult struct {
	ID                     string      `json:"id" bson:"_id"`
	SessionID              string      `json:"sessionId" bson:"sessionId"`
	UserID                 string      `json:"userId" bson:"userId"`
	MBTIType               string      `json:"mbtiType" bson:"mbtiType"`
	DISCType               string      `json:"discType" bson:"discType"`
	Traits                 TraitScores `json:"traits" bson:"traits"`
	KeyTraits              []string    `json:"keyTraits" bson:"keyTraits"`
	SuitableCareers        []string    `json:"suitableCareers" bson:"suitableCareers"`
	Strengths              []string    `json:"strengths" bson:"strengths"`
	Weaknesses             []string    `json:"weaknesses" bson:"weaknesses"`
	Analysis               string      `json:"analysis" bson:"analysis"`
	DevelopmentSuggestions string      `json:"developmentSuggestions" bson:"developmentSuggestions"`
	CreatedAt              time.Time   `json:"createdAt" bson:"createdAt"`
}

// TraitDetail is the presentation form of one trait score
type TraitDetail struct {
	Name        string `json:"name"`
	Score       int    `json:"score"`
	Description string `json:"description"`
}

// AnalysisReport is returned by the analyze endpoint. When Error is set the
// report is a soft "insufficient data" result and carries no trait data.
type AnalysisReport struct {
	SessionID              string        `json:"sessionId,omitempty"`
	MBTIType               string        `json:"mbtiType,omitempty"`
	DISCType               string        `json:"discType,omitempty"`
	Traits                 []TraitDetail `json:"traits,omitempty"`
	KeyTraits              []string      `json:"keyTraits,omitempty"`
	SuitableCareers        []string      `json:"suitableCareers,omitempty"`
	Strengths              []string      `json:"strengths,omitempty"`
	Weaknesses             []string      `json:"weaknesses,omitempty"`
	Analysis               string        `json:"analysis,omitempty"`
	DevelopmentSuggestions string        `json:"developmentSuggestions,omitempty"`
	AnalyzedAt             time.Time     `json:"analyzedAt"`
	Error                  string        `json:"error,omitempty"`
}

var traitDescriptions = []struct {
	name string
	desc string
	get  func(TraitScores) int
}{
	{"Extraversion", "Reflects how you interact with others and where you get your energy.", func(t TraitScores) int { return t.Extraversion }},
	{"Intuition", "Describes how you perceive information and what you naturally notice.", func(t TraitScores) int { return t.Intuition }},
	{"Thinking", "Indicates your basis for making decisions and judgments.", func(t TraitScores) int { return t.Thinking }},
	{"Judging", "Shows your preference for structure and planning in the outer world.", func(t TraitScores) int { return t.Judging }},
	{"Dominance", "Measures how you handle problems and challenges.", func(t TraitScores) int { return t.Dominance }},
	{"Influence", "Pertains to your ability to persuade and interact with people.", func(t TraitScores) int { return t.Influence }},
	{"Steadiness", "Relates to your pace, patience, and thoughtfulness.", func(t TraitScores) int { return t.Steadiness }},
	{"Compliance", "Concerns how you approach rules and procedures set by others.", func(t TraitScores) int { return t.Compliance }},
}

// Report converts a stored result into its API form
func (r *AnalysisResult) Report() *AnalysisReport {
	details := make([]TraitDetail, 0, len(traitDescriptions))
	for _, td := range traitDescriptions {
		details = append(details, TraitDetail{Name: td.name, Score: td.get(r.Traits), Description: td.desc})
	}
	return &AnalysisReport{
		SessionID:              r.SessionID,
		MBTIType:               r.MBTIType,
		DISCType:               r.DISCType,
		Traits:                 details,
		KeyTraits:              r.KeyTraits,
		SuitableCareers:        r.SuitableCareers,
		Strengths:              r.Strengths,
		Weaknesses:             r.Weaknesses,
		Analysis:               r.Analysis,
		DevelopmentSuggestions: r.DevelopmentSuggestions,
		AnalyzedAt:             r.CreatedAt,
	}
}

// InsufficientData builds the soft result returned when a session is too short
func InsufficientData(sessionID, message string) *AnalysisReport {
	return &AnalysisReport{
		SessionID:  sessionID,
		AnalyzedAt: time.Now(),
		Error:      message,
	}
}
