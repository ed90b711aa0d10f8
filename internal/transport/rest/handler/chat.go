package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"personaquiz/internal/model"
	"personaquiz/internal/service"
	"personaquiz/internal/transport/rest/middleware"
)

// ChatAPI is the chat service surface used by ChatHandler
type ChatAPI interface {
	CreateSession(ctx context.Context, userID string) (*model.ChatSession, error)
	ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error)
	PostMessage(ctx context.Context, userID, sessionID, content string) (*model.ChatReply, error)
	GetHistory(ctx context.Context, userID, sessionID string) ([]model.ChatMessage, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
}

// AnalysisAPI is the analysis surface used by ChatHandler
type AnalysisAPI interface {
	AnalyzeConversation(ctx context.Context, userID, sessionID string) (*model.AnalysisReport, error)
}

// ChatHandler handles chat session endpoints
type ChatHandler struct {
	chat     ChatAPI
	analysis AnalysisAPI
	validate *validator.Validate
	timeout  time.Duration
	logger   *zap.Logger
}

// NewChatHandler creates a new chat handler. timeout bounds the requests that
// call the text generator; 0 leaves them to the client's context.
func NewChatHandler(chat ChatAPI, analysis AnalysisAPI, timeout time.Duration, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chat:     chat,
		analysis: analysis,
		validate: validator.New(),
		timeout:  timeout,
		logger:   logger.Named("http.chat"),
	}
}

func (h *ChatHandler) generationContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

// CreateSession handles POST /v1/chat/sessions
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chat.CreateSession(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": session.ID})
}

// ListSessions handles GET /v1/chat/sessions
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.chat.ListSessions(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// PostMessage handles POST /v1/chat/sessions/{sessionId}/messages
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req model.PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeServiceError(w, h.logger, fmt.Errorf("%w: %v", service.ErrValidation, err))
		return
	}

	ctx, cancel := h.generationContext(r)
	defer cancel()

	reply, err := h.chat.PostMessage(ctx, middleware.GetUserID(r.Context()), mux.Vars(r)["sessionId"], req.Message)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// History handles GET /v1/chat/sessions/{sessionId}/messages
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chat.GetHistory(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["sessionId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// Analyze handles POST /v1/chat/sessions/{sessionId}/analysis. An
// insufficient-data result is a 200 with the error field set.
func (h *ChatHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.generationContext(r)
	defer cancel()

	report, err := h.analysis.AnalyzeConversation(ctx, middleware.GetUserID(r.Context()), mux.Vars(r)["sessionId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DeleteSession handles DELETE /v1/chat/sessions/{sessionId}
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.DeleteSession(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["sessionId"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
