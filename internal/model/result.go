package model

import "time"

// QuizSubmission is the validated input of the scoring entry point.
// Answers maps question id to the chosen option id.
type QuizSubmission struct {
	QuizID  string            `json:"quizId" validate:"required"`
	UserID  string            `json:"userId" validate:"required"`
	Answers map[string]string `json:"answers" validate:"required,min=1"`
}

// PersonalityResult is the outcome of one scoring run
type PersonalityResult struct {
	PersonalityCode string         `json:"personalityCode" bson:"personalityCode"`
	Standard        Standard       `json:"standard" bson:"standard"`
	Nickname        string         `json:"nickname" bson:"nickname"`
	KeyTraits       string         `json:"keyTraits" bson:"keyTraits"`
	Description     string         `json:"description" bson:"description"`
	Scores          map[string]int `json:"scores" bson:"scores"`
}

// QuizResult is a persisted quiz attempt
type QuizResult struct {
	ID           string            `json:"id" bson:"_id,omitempty"`
	QuizID       string            `json:"quizId" bson:"quizId"`
	QuizTitle    string            `json:"quizTitle,omitempty" bson:"quizTitle,omitempty"`
	UserID       string            `json:"userId" bson:"userId"`
	ResultType   Standard          `json:"resultType" bson:"resultType"`
	AttemptOrder int               `json:"attemptOrder" bson:"attemptOrder"`
	Result       PersonalityResult `json:"result" bson:"result"`
	SubmittedAt  time.Time         `json:"submittedAt" bson:"submittedAt"`
}

// UserQuizResults summarizes every attempt of one user
type UserQuizResults struct {
	UserID            string       `json:"userId"`
	TotalQuizzesTaken int          `json:"totalQuizzesTaken"`
	FirstQuizDate     *time.Time   `json:"firstQuizDate,omitempty"`
	LastQuizDate      *time.Time   `json:"lastQuizDate,omitempty"`
	QuizResults       []QuizResult `json:"quizResults"`
}

// CodeCount is one entry of a quiz's personality code distribution
type CodeCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}
