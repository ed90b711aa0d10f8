package personality

import (
	"strings"

	"personaquiz/internal/model"
)

// Trait keys tracked per standard, in tie-break order.
var (
	MBTIKeys = []string{"E", "I", "S", "N", "T", "F", "J", "P"}
	DISCKeys = []string{"D", "I", "S", "C"}
)

// DefaultMBTICode is returned when every MBTI score is zero.
const DefaultMBTICode = "ISFJ"

// DetectStandard infers the scoring standard from quiz metadata. DISC wins when
// both keywords are present. ok is false for quizzes of neither kind.
func DetectStandard(title, description string) (model.Standard, bool) {
	t := strings.ToUpper(title)
	d := strings.ToUpper(description)
	switch {
	case strings.Contains(t, "DISC") || strings.Contains(d, "DISC"):
		return model.StandardDISC, true
	case strings.Contains(t, "MBTI") || strings.Contains(d, "MBTI") || strings.Contains(t, "MYERS"):
		return model.StandardMBTI, true
	}
	return "", false
}

// Keys returns the expected trait keys of a standard.
func Keys(std model.Standard) []string {
	switch std {
	case model.StandardMBTI:
		return MBTIKeys
	case model.StandardDISC:
		return DISCKeys
	}
	return nil
}

// weights maps each ScoreValue tag to its contribution under a standard.
var weights = map[model.Standard]map[model.ScoreValue]int{
	model.StandardMBTI: {
		model.ScoreNegativeOne: -1,
		model.ScoreZero:        0,
		model.ScorePositiveOne: 1,
		model.ScoreDiscTwo:     1,
	},
	model.StandardDISC: {
		model.ScoreDiscTwo:     2,
		model.ScorePositiveOne: 1,
		model.ScoreZero:        0,
		model.ScoreNegativeOne: 0,
	},
}

// Weight resolves the numeric contribution of a tag. Unknown tags weigh 0.
func Weight(std model.Standard, v model.ScoreValue) int {
	return weights[std][v]
}
