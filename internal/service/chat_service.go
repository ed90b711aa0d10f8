package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"personaquiz/internal/cache"
	"personaquiz/internal/config"
	"personaquiz/internal/metrics"
	"personaquiz/internal/model"
	"personaquiz/internal/repository"
)

const (
	welcomeMessage = "Hi! I'm your personality advisor. Tell me a bit about yourself: " +
		"what you enjoy, how you spend your free time, or how you usually make decisions."
	analysisOffer = "I've learned quite a bit about you. Would you like me to analyze your personality now?"

	advisorPrompt = `You are a friendly personality advisor chatting with a user.
Ask open questions about their habits, preferences, work style and relationships so that their
MBTI and DISC profile can be inferred later. Keep replies short (2-4 sentences), warm, and end
with one question. Do not reveal a personality type unless asked for an analysis.`

	historyWindow = 20
)

// ChatService manages chat sessions and their message logs
type ChatService struct {
	guard       *sessionGuard
	chatRepo    repository.ChatRepo
	analysis    *AnalysisService
	generator   Generator
	broadcaster Broadcaster
	cfg         config.ChatConfig
	clock       *messageClock
	logger      *zap.Logger
}

// NewChatService creates a new chat service. sessionCache may be nil.
func NewChatService(
	chatRepo repository.ChatRepo,
	sessionCache cache.SessionCache,
	analysis *AnalysisService,
	generator Generator,
	cfg config.ChatConfig,
	logger *zap.Logger,
) *ChatService {
	logger = logger.Named("chat")
	return &ChatService{
		guard:       &sessionGuard{repo: chatRepo, cache: sessionCache, logger: logger},
		chatRepo:    chatRepo,
		analysis:    analysis,
		generator:   generator,
		broadcaster: noopBroadcaster{},
		cfg:         cfg,
		clock:       &messageClock{now: time.Now},
		logger:      logger,
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *ChatService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// CreateSession starts a session for userID with a welcome message. Users
// are capped at cfg.MaxSessions sessions; the count check and insert are not
// atomic, so concurrent creates may briefly overshoot the cap.
func (s *ChatService) CreateSession(ctx context.Context, userID string) (*model.ChatSession, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	count, err := s.chatRepo.CountSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	if count >= s.cfg.MaxSessions {
		metrics.ChatSessions.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: at most %d sessions per user, delete one to start another", ErrSessionLimit, s.cfg.MaxSessions)
	}

	createdAt, _ := s.clock.next()
	session := &model.ChatSession{
		ID:        "chat-" + uuid.NewString(),
		UserID:    userID,
		CreatedAt: createdAt,
	}
	if err := s.chatRepo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if _, err := s.append(ctx, session, model.SenderAssistant, welcomeMessage); err != nil {
		// a session without its welcome message must not count against the cap
		if derr := s.chatRepo.DeleteSession(ctx, session.ID); derr != nil {
			s.logger.Error("failed to remove incomplete session", zap.String("session", session.ID), zap.Error(derr))
		}
		return nil, err
	}

	metrics.ChatSessions.WithLabelValues("created").Inc()
	s.logger.Info("chat session created", zap.String("session", session.ID), zap.String("user", userID))
	return session, nil
}

// ListSessions returns the caller's sessions, newest first
func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error) {
	sessions, err := s.chatRepo.ListSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []model.ChatSession{}
	}
	return sessions, nil
}

// PostMessage appends a user message, generates and appends the assistant
// reply, and reports whether an analysis can be offered.
func (s *ChatService) PostMessage(ctx context.Context, userID, sessionID, content string) (*model.ChatReply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}

	session, err := s.guard.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.append(ctx, session, model.SenderUser, content); err != nil {
		return nil, err
	}

	history, err := s.chatRepo.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	reply, err := s.generator.Generate(ctx, buildChatPrompt(history))
	if err != nil {
		return nil, generationErr(err)
	}
	reply = strings.TrimSpace(reply)
	if _, err := s.append(ctx, session, model.SenderAssistant, reply); err != nil {
		return nil, err
	}

	eligible, err := s.IsEligibleForAnalysis(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := &model.ChatReply{
		SessionID:         sessionID,
		BotReply:          reply,
		AnalysisAvailable: eligible,
	}
	if eligible {
		out.AnalysisPrompt = analysisOffer
	}
	return out, nil
}

// AppendUserMessage appends a message authored by the session owner
func (s *ChatService) AppendUserMessage(ctx context.Context, userID, sessionID, content string) (*model.ChatMessage, error) {
	session, err := s.guard.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.append(ctx, session, model.SenderUser, content)
}

// AppendAssistantReply appends an assistant message to the owner's session
func (s *ChatService) AppendAssistantReply(ctx context.Context, userID, sessionID, content string) (*model.ChatMessage, error) {
	session, err := s.guard.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.append(ctx, session, model.SenderAssistant, content)
}

func (s *ChatService) append(ctx context.Context, session *model.ChatSession, sender model.Sender, content string) (*model.ChatMessage, error) {
	at, seq := s.clock.next()
	msg := &model.ChatMessage{
		SessionID: session.ID,
		UserID:    session.UserID,
		Sender:    sender,
		Content:   content,
		CreatedAt: at,
		Seq:       seq,
	}
	if err := s.chatRepo.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	s.broadcaster.PublishToUser(session.UserID, EventMessageAppended, msg)
	return msg, nil
}

// GetHistory returns the session's messages in append order
func (s *ChatService) GetHistory(ctx context.Context, userID, sessionID string) ([]model.ChatMessage, error) {
	if _, err := s.guard.owned(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	messages, err := s.chatRepo.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	return messages, nil
}

// IsEligibleForAnalysis is true when the session has no analysis yet and
// holds at least cfg.MinMessagesOffer user messages.
func (s *ChatService) IsEligibleForAnalysis(ctx context.Context, sessionID string) (bool, error) {
	has, err := s.analysis.HasAnalysis(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if has {
		return false, nil
	}
	n, err := s.chatRepo.CountMessages(ctx, sessionID, model.SenderUser)
	if err != nil {
		return false, fmt.Errorf("failed to count messages: %w", err)
	}
	return n >= s.cfg.MinMessagesOffer, nil
}

// DeleteSession removes a session, its messages and its analysis
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if _, err := s.guard.owned(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.analysis.Forget(ctx, sessionID); err != nil {
		return err
	}
	if err := s.chatRepo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.guard.forget(ctx, sessionID)

	metrics.ChatSessions.WithLabelValues("deleted").Inc()
	s.logger.Info("chat session deleted", zap.String("session", sessionID), zap.String("user", userID))
	s.broadcaster.PublishToUser(userID, EventSessionDeleted, map[string]string{"sessionId": sessionID})
	return nil
}

func buildChatPrompt(history []model.ChatMessage) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	var b strings.Builder
	b.WriteString(advisorPrompt)
	b.WriteString("\n\nConversation so far:\n")
	for _, m := range history {
		if m.Sender == model.SenderUser {
			b.WriteString("User: ")
		} else {
			b.WriteString("Advisor: ")
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("Advisor:")
	return b.String()
}

// messageClock hands out strictly increasing millisecond timestamps and
// sequence numbers, so messages appended by this process sort in append
// order even though Mongo stores milliseconds only.
type messageClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
	seq  int64
}

func (c *messageClock) next() (time.Time, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	c.seq++
	return t, c.seq
}
