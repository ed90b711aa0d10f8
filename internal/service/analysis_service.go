package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"personaquiz/internal/cache"
	"personaquiz/internal/metrics"
	"personaquiz/internal/model"
	"personaquiz/internal/repository"
)

// Generator produces text for a prompt. *inference.Client implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ComputeFunc turns a session transcript into an unsaved analysis
type ComputeFunc func(ctx context.Context, messages []model.ChatMessage) (*model.AnalysisResult, error)

const insufficientDataMessage = "Not enough conversation to analyze yet. Keep chatting and try again later."

// AnalysisService memoizes one analysis per chat session
type AnalysisService struct {
	guard        *sessionGuard
	chatRepo     repository.ChatRepo
	analysisRepo repository.AnalysisRepo
	cache        cache.AnalysisCache
	generator    Generator
	broadcaster  Broadcaster
	minMessages  int
	flight       singleflight.Group
	logger       *zap.Logger

	mu      sync.Mutex
	waiters map[string]*flightWaiters
}

// flightWaiters ties a computation's lifetime to the callers waiting on it:
// it is cancelled only when the last of them gives up.
type flightWaiters struct {
	ctx    context.Context
	cancel context.CancelFunc
	count  int
}

// NewAnalysisService creates a new analysis service. analysisCache and
// sessionCache may be nil.
func NewAnalysisService(
	chatRepo repository.ChatRepo,
	analysisRepo repository.AnalysisRepo,
	sessionCache cache.SessionCache,
	analysisCache cache.AnalysisCache,
	generator Generator,
	minMessages int,
	logger *zap.Logger,
) *AnalysisService {
	logger = logger.Named("analysis")
	return &AnalysisService{
		guard:        &sessionGuard{repo: chatRepo, cache: sessionCache, logger: logger},
		chatRepo:     chatRepo,
		analysisRepo: analysisRepo,
		cache:        analysisCache,
		generator:    generator,
		broadcaster:  noopBroadcaster{},
		minMessages:  minMessages,
		logger:       logger,
		waiters:      make(map[string]*flightWaiters),
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *AnalysisService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// AnalyzeConversation returns the session's analysis, computing it through
// the generator on first use.
func (s *AnalysisService) AnalyzeConversation(ctx context.Context, userID, sessionID string) (*model.AnalysisReport, error) {
	return s.GetOrCompute(ctx, userID, sessionID, s.compute)
}

// GetOrCompute returns the stored analysis of a session or computes and stores
// it. At most one analysis is ever stored per session: concurrent callers in
// this process share one computation, and a unique index on sessionId makes
// losers across processes read back the winner. A shared computation keeps
// running while any caller still waits for it.
func (s *AnalysisService) GetOrCompute(ctx context.Context, userID, sessionID string, compute ComputeFunc) (*model.AnalysisReport, error) {
	if _, err := s.guard.owned(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	existing, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.AnalysisOutcomes.WithLabelValues("cached").Inc()
		return existing.Report(), nil
	}

	messages, err := s.chatRepo.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	userMessages := 0
	for _, m := range messages {
		if m.UserID != userID {
			return nil, fmt.Errorf("%w: session %s contains messages from another user", ErrForbidden, sessionID)
		}
		if m.Sender == model.SenderUser {
			userMessages++
		}
	}
	if userMessages < s.minMessages {
		metrics.AnalysisOutcomes.WithLabelValues("insufficient").Inc()
		s.logger.Info("analysis skipped, not enough messages",
			zap.String("session", sessionID),
			zap.Int("userMessages", userMessages),
			zap.Int("required", s.minMessages))
		return model.InsufficientData(sessionID, insufficientDataMessage), nil
	}

	flightCtx := s.join(ctx, sessionID)
	defer s.leave(sessionID)

	ch := s.flight.DoChan(sessionID, func() (interface{}, error) {
		return s.computeAndStore(flightCtx, userID, sessionID, messages, compute)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.AnalysisOutcomes.WithLabelValues("failed").Inc()
			return nil, res.Err
		}
		return res.Val.(*model.AnalysisResult).Report(), nil
	}
}

func (s *AnalysisService) computeAndStore(ctx context.Context, userID, sessionID string, messages []model.ChatMessage, compute ComputeFunc) (*model.AnalysisResult, error) {
	// a previous flight may have stored it while this caller was loading messages
	stored, err := s.analysisRepo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	if stored != nil {
		metrics.AnalysisOutcomes.WithLabelValues("cached").Inc()
		return stored, nil
	}

	result, err := compute(ctx, messages)
	if err != nil {
		s.logger.Error("analysis failed", zap.String("session", sessionID), zap.Error(err))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.ID = uuid.NewString()
	result.SessionID = sessionID
	result.UserID = userID
	result.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	outcome := "computed"
	if err := s.analysisRepo.Insert(ctx, result); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("failed to save analysis: %w", err)
		}
		winner, err := s.analysisRepo.GetBySession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to read concurrent analysis: %w", err)
		}
		if winner == nil {
			return nil, fmt.Errorf("analysis for session %s vanished after duplicate insert", sessionID)
		}
		result = winner
		outcome = "raced"
	}
	// the session may have been deleted while the analysis was computed
	session, err := s.chatRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		if err := s.analysisRepo.DeleteBySession(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("failed to delete orphaned analysis: %w", err)
		}
		s.logger.Info("analysis dropped, session deleted", zap.String("session", sessionID))
		return nil, fmt.Errorf("%w: chat session %s", ErrNotFound, sessionID)
	}
	metrics.AnalysisOutcomes.WithLabelValues(outcome).Inc()

	if s.cache != nil {
		if err := s.cache.Set(ctx, result); err != nil {
			s.logger.Warn("analysis cache write failed", zap.String("session", sessionID), zap.Error(err))
		}
	}

	if outcome == "computed" {
		s.logger.Info("analysis stored",
			zap.String("session", sessionID),
			zap.String("mbti", result.MBTIType),
			zap.String("disc", result.DISCType))
		s.broadcaster.PublishToUser(userID, EventAnalysisReady, result.Report())
	}
	return result, nil
}

// join registers a caller waiting on the session's computation and returns
// the context the computation runs under. It carries the first caller's values
// but not its cancellation.
func (s *AnalysisService) join(ctx context.Context, sessionID string) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.waiters[sessionID]
	if w == nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		w = &flightWaiters{ctx: fctx, cancel: cancel}
		s.waiters[sessionID] = w
	}
	w.count++
	return w.ctx
}

// leave drops a waiter. The last one out cancels the computation and lets
// the next caller start a fresh one.
func (s *AnalysisService) leave(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.waiters[sessionID]
	if w == nil {
		return
	}
	w.count--
	if w.count > 0 {
		return
	}
	w.cancel()
	delete(s.waiters, sessionID)
	s.flight.Forget(sessionID)
}

// lookup reads the cache then Mongo
func (s *AnalysisService) lookup(ctx context.Context, sessionID string) (*model.AnalysisResult, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, sessionID)
		if err != nil {
			s.logger.Warn("analysis cache read failed", zap.String("session", sessionID), zap.Error(err))
		}
		if cached != nil {
			return cached, nil
		}
	}

	stored, err := s.analysisRepo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	if stored != nil && s.cache != nil {
		if err := s.cache.Set(ctx, stored); err != nil {
			s.logger.Warn("analysis cache write failed", zap.String("session", sessionID), zap.Error(err))
		}
	}
	return stored, nil
}

// HasAnalysis reports whether a session already has a stored analysis
func (s *AnalysisService) HasAnalysis(ctx context.Context, sessionID string) (bool, error) {
	existing, err := s.lookup(ctx, sessionID)
	return existing != nil, err
}

// Forget removes the stored analysis of a session
func (s *AnalysisService) Forget(ctx context.Context, sessionID string) error {
	if err := s.analysisRepo.DeleteBySession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, sessionID); err != nil {
			s.logger.Warn("analysis cache delete failed", zap.String("session", sessionID), zap.Error(err))
		}
	}
	return nil
}

func (s *AnalysisService) compute(ctx context.Context, messages []model.ChatMessage) (*model.AnalysisResult, error) {
	prompt := buildAnalysisPrompt(messages)
	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, generationErr(err)
	}
	return ExtractAnalysis(raw)
}

func buildAnalysisPrompt(messages []model.ChatMessage) string {
	var turns []string
	for _, m := range messages {
		if m.Sender == model.SenderUser {
			turns = append(turns, m.Content)
		}
	}

	// the transcript leads so a shortened retry prompt still carries it
	var b strings.Builder
	b.WriteString("User messages:\n")
	b.WriteString(strings.Join(turns, "\n---\n"))
	b.WriteString(`

You are an expert psychologist specializing in the MBTI and DISC personality models.
Analyze the user's messages above and infer their personality.

Instructions:
1. Determine the most likely MBTI type (mbtiType), e.g. "INTJ".
2. Determine the dominant DISC style (discType): one of "D", "I", "S", "C".
3. Rate each trait from 1 to 10: extraversion, intuition, thinking, judging, dominance, influence, steadiness, compliance.
4. List 4-5 key traits (keyTraits) as an array of strings.
5. Suggest 5 suitable careers (suitableCareers) as an array of strings.
6. List 3 strengths and 3 weaknesses as arrays of strings.
7. Write a short analysis paragraph (analysis).
8. Give concrete development suggestions (developmentSuggestions).

Respond with ONLY a JSON object in exactly this shape:
{
  "mbtiType": "...",
  "discType": "...",
  "traits": {
    "extraversion": 0, "intuition": 0, "thinking": 0, "judging": 0,
    "dominance": 0, "influence": 0, "steadiness": 0, "compliance": 0
  },
  "keyTraits": ["...", "..."],
  "suitableCareers": ["...", "..."],
  "strengths": ["...", "..."],
  "weaknesses": ["...", "..."],
  "analysis": "...",
  "developmentSuggestions": "..."
}`)
	return b.String()
}
