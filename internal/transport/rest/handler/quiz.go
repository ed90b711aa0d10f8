package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"personaquiz/internal/model"
	"personaquiz/internal/transport/rest/middleware"
)

// QuizAPI is the quiz service surface used by QuizHandler
type QuizAPI interface {
	SubmitQuiz(ctx context.Context, sub model.QuizSubmission) (*model.QuizResult, error)
	GetResult(ctx context.Context, userID, resultID string) (*model.QuizResult, error)
	ListMyResults(ctx context.Context, userID string) (*model.UserQuizResults, error)
	ListQuizzes(ctx context.Context) ([]*model.Quiz, error)
	GetQuiz(ctx context.Context, quizID string) (*model.QuizWithQuestions, error)
	Stats(ctx context.Context, quizID string) ([]model.CodeCount, error)
}

// QuizHandler handles quiz and result endpoints
type QuizHandler struct {
	quizzes QuizAPI
	logger  *zap.Logger
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(quizzes QuizAPI, logger *zap.Logger) *QuizHandler {
	return &QuizHandler{quizzes: quizzes, logger: logger.Named("http.quiz")}
}

// SubmitRequest is the request body for submitting a quiz
type SubmitRequest struct {
	Answers map[string]string `json:"answers"`
}

// List handles GET /v1/quizzes
func (h *QuizHandler) List(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.ListQuizzes(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

// Get handles GET /v1/quizzes/{quizId}
func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quizzes.GetQuiz(r.Context(), mux.Vars(r)["quizId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

// Submit handles POST /v1/quizzes/{quizId}/submit
func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.quizzes.SubmitQuiz(r.Context(), model.QuizSubmission{
		QuizID:  mux.Vars(r)["quizId"],
		UserID:  userID,
		Answers: req.Answers,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Stats handles GET /v1/quizzes/{quizId}/stats
func (h *QuizHandler) Stats(w http.ResponseWriter, r *http.Request) {
	quizID := mux.Vars(r)["quizId"]
	counts, err := h.quizzes.Stats(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"quizId":       quizID,
		"distribution": counts,
	})
}

// MyResults handles GET /v1/results/me
func (h *QuizHandler) MyResults(w http.ResponseWriter, r *http.Request) {
	summary, err := h.quizzes.ListMyResults(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetResult handles GET /v1/results/{resultId}
func (h *QuizHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.quizzes.GetResult(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["resultId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
