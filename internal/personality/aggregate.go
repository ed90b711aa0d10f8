package personality

import "personaquiz/internal/model"

// Aggregate folds answer selections into a per-trait score map. The map is
// seeded with every key of std; option trait keys outside that set are still
// accumulated. Questions without a selection, unknown options and options
// that belong to another question are skipped.
func Aggregate(std model.Standard, questions []model.QuizQuestion, answers map[string]string) map[string]int {
	scores := make(map[string]int, 8)
	for _, k := range Keys(std) {
		scores[k] = 0
	}

	for i := range questions {
		q := &questions[i]
		optionID, ok := answers[q.ID]
		if !ok || optionID == "" {
			continue
		}
		opt := q.Option(optionID)
		if opt == nil || (opt.QuestionID != "" && opt.QuestionID != q.ID) {
			continue
		}
		if opt.TargetTrait == "" {
			continue
		}
		scores[opt.TargetTrait] += Weight(std, opt.ScoreValue)
	}
	return scores
}
