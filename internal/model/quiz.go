package model

import "time"

// Standard identifies the personality typing scheme a quiz is scored against.
type Standard string

const (
	StandardMBTI Standard = "MBTI"
	StandardDISC Standard = "DISC"
)

// ScoreValue is the tag stored on an answer option. Its numeric weight depends
// on the standard the quiz is scored against (see personality.Weight).
type ScoreValue int

const (
	ScoreNegativeOne ScoreValue = -1
	ScoreZero        ScoreValue = 0
	ScorePositiveOne ScoreValue = 1
	ScoreDiscTwo     ScoreValue = 2
)

// Valid reports whether v is one of the known tags.
func (v ScoreValue) Valid() bool {
	switch v {
	case ScoreNegativeOne, ScoreZero, ScorePositiveOne, ScoreDiscTwo:
		return true
	}
	return false
}

func (v ScoreValue) String() string {
	switch v {
	case ScoreNegativeOne:
		return "NEGATIVE_ONE"
	case ScoreZero:
		return "ZERO"
	case ScorePositiveOne:
		return "POSITIVE_ONE"
	case ScoreDiscTwo:
		return "DISC_TWO"
	}
	return "UNKNOWN"
}

// Quiz is a persistent questionnaire definition
type Quiz struct {
	ID               string    `json:"id" bson:"_id,omitempty"`
	Title            string    `json:"title" bson:"title"`
	Description      string    `json:"description" bson:"description"`
	CategoryID       string    `json:"categoryId,omitempty" bson:"categoryId,omitempty"`
	QuestionQuantity int       `json:"questionQuantity" bson:"questionQuantity"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt"`
}

// QuizQuestion is one question of a quiz, ordered by OrderNumber
type QuizQuestion struct {
	ID          string       `json:"id" bson:"_id,omitempty"`
	QuizID      string       `json:"quizId" bson:"quizId"`
	Content     string       `json:"content" bson:"content"`
	OrderNumber int          `json:"orderNumber" bson:"orderNumber"`
	Dimension   string       `json:"dimension,omitempty" bson:"dimension,omitempty"` // e.g. "EI", "D"
	Options     []QuizOption `json:"options" bson:"options"`
}

// QuizOption is a selectable answer. TargetTrait is the single-letter trait key
// the option votes for.
type QuizOption struct {
	ID          string     `json:"id" bson:"id"`
	QuestionID  string     `json:"questionId" bson:"questionId"`
	Text        string     `json:"text" bson:"text"`
	TargetTrait string     `json:"targetTrait,omitempty" bson:"targetTrait,omitempty"`
	ScoreValue  ScoreValue `json:"scoreValue" bson:"scoreValue"`
}

// Option returns the option with the given id, or nil.
func (q *QuizQuestion) Option(id string) *QuizOption {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i]
		}
	}
	return nil
}

// QuizWithQuestions is returned by the "take quiz" endpoint
type QuizWithQuestions struct {
	Quiz
	Standard  Standard       `json:"standard,omitempty"`
	Questions []QuizQuestion `json:"questions"`
}

// PersonalityStandard is the catalogue entry describing one personality code
type PersonalityStandard struct {
	ID              string   `json:"id" bson:"_id,omitempty"`
	Standard        Standard `json:"standard" bson:"standard"`
	PersonalityCode string   `json:"personalityCode" bson:"personalityCode"`
	Nickname        string   `json:"nickname" bson:"nickname"`
	KeyTraits       string   `json:"keyTraits" bson:"keyTraits"`
	Description     string   `json:"description" bson:"description"`
	Careers         string   `json:"careers,omitempty" bson:"careers,omitempty"`
}
