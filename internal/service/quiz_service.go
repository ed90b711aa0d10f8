package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"personaquiz/internal/cache"
	"personaquiz/internal/metrics"
	"personaquiz/internal/model"
	"personaquiz/internal/personality"
	"personaquiz/internal/repository"
)

// Fallbacks used when the catalogue has no entry for a code
const (
	unknownNickname    = "Unknown"
	unknownKeyTraits   = "No traits available"
	unknownDescription = "No description available"
)

// QuizService scores quiz submissions and serves the quiz catalogue
type QuizService struct {
	quizRepo     repository.QuizRepo
	standardRepo repository.StandardRepo
	resultRepo   repository.ResultRepo
	stats        cache.TypeStatsCache
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewQuizService creates a new quiz service
func NewQuizService(
	quizRepo repository.QuizRepo,
	standardRepo repository.StandardRepo,
	resultRepo repository.ResultRepo,
	stats cache.TypeStatsCache,
	logger *zap.Logger,
) *QuizService {
	return &QuizService{
		quizRepo:     quizRepo,
		standardRepo: standardRepo,
		resultRepo:   resultRepo,
		stats:        stats,
		validate:     validator.New(),
		logger:       logger.Named("quiz"),
	}
}

// CalculatePersonality scores answers against the quiz's standard and returns
// the enriched personality result. Nothing is persisted.
func (s *QuizService) CalculatePersonality(ctx context.Context, sub model.QuizSubmission) (*model.PersonalityResult, error) {
	result, _, err := s.calculate(ctx, sub)
	return result, err
}

func (s *QuizService) calculate(ctx context.Context, sub model.QuizSubmission) (*model.PersonalityResult, *model.Quiz, error) {
	if err := s.validate.Struct(sub); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	quiz, err := s.quizRepo.GetByID(ctx, sub.QuizID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz == nil {
		return nil, nil, fmt.Errorf("%w: quiz %s", ErrNotFound, sub.QuizID)
	}

	std, ok := personality.DetectStandard(quiz.Title, quiz.Description)
	if !ok {
		return nil, nil, fmt.Errorf("%w: unsupported quiz type %q", ErrValidation, quiz.Title)
	}

	questions, err := s.quizRepo.GetQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, nil, fmt.Errorf("%w: quiz %s has no questions", ErrNotFound, quiz.ID)
	}

	raw := personality.Aggregate(std, questions, sub.Answers)
	code, scores := personality.Classify(std, raw)
	metrics.Classifications.WithLabelValues(string(std), code).Inc()

	result := &model.PersonalityResult{
		PersonalityCode: code,
		Standard:        std,
		Scores:          scores,
	}
	if err := s.enrich(ctx, result); err != nil {
		return nil, nil, err
	}

	s.logger.Debug("quiz scored",
		zap.String("quiz", quiz.ID),
		zap.String("user", sub.UserID),
		zap.String("standard", string(std)),
		zap.String("code", code))
	return result, quiz, nil
}

func (s *QuizService) enrich(ctx context.Context, result *model.PersonalityResult) error {
	entry, err := s.standardRepo.GetByCode(ctx, result.Standard, result.PersonalityCode)
	if err != nil {
		return fmt.Errorf("failed to get personality standard: %w", err)
	}
	if entry == nil {
		result.Nickname = unknownNickname
		result.KeyTraits = unknownKeyTraits
		result.Description = unknownDescription
		return nil
	}
	result.Nickname = entry.Nickname
	result.KeyTraits = entry.KeyTraits
	result.Description = entry.Description
	return nil
}

// SubmitQuiz scores and stores one attempt
func (s *QuizService) SubmitQuiz(ctx context.Context, sub model.QuizSubmission) (*model.QuizResult, error) {
	result, quiz, err := s.calculate(ctx, sub)
	if err != nil {
		return nil, err
	}

	previous, err := s.resultRepo.CountAttempts(ctx, sub.UserID, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}

	stored := &model.QuizResult{
		QuizID:       quiz.ID,
		QuizTitle:    quiz.Title,
		UserID:       sub.UserID,
		ResultType:   result.Standard,
		AttemptOrder: previous + 1,
		Result:       *result,
	}
	if err := s.resultRepo.Create(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}

	if s.stats != nil {
		if err := s.stats.Increment(ctx, quiz.ID, result.PersonalityCode); err != nil {
			s.logger.Warn("type stats update failed", zap.String("quiz", quiz.ID), zap.Error(err))
		}
	}

	s.logger.Info("quiz submitted",
		zap.String("quiz", quiz.ID),
		zap.String("user", sub.UserID),
		zap.String("code", result.PersonalityCode),
		zap.Int("attempt", stored.AttemptOrder))
	return stored, nil
}

// GetResult returns one of the caller's stored results
func (s *QuizService) GetResult(ctx context.Context, userID, resultID string) (*model.QuizResult, error) {
	result, err := s.resultRepo.GetByID(ctx, resultID)
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: result %s", ErrNotFound, resultID)
	}
	if result.UserID != userID {
		return nil, fmt.Errorf("%w: result %s belongs to another user", ErrForbidden, resultID)
	}
	return result, nil
}

// ListMyResults summarizes every attempt of userID, oldest first
func (s *QuizService) ListMyResults(ctx context.Context, userID string) (*model.UserQuizResults, error) {
	results, err := s.resultRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	summary := &model.UserQuizResults{
		UserID:            userID,
		TotalQuizzesTaken: len(results),
		QuizResults:       results,
	}
	if summary.QuizResults == nil {
		summary.QuizResults = []model.QuizResult{}
	}
	if len(results) > 0 {
		first := results[0].SubmittedAt
		last := results[len(results)-1].SubmittedAt
		summary.FirstQuizDate = &first
		summary.LastQuizDate = &last
	}
	return summary, nil
}

// ListQuizzes returns the catalogue
func (s *QuizService) ListQuizzes(ctx context.Context) ([]*model.Quiz, error) {
	quizzes, err := s.quizRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	if quizzes == nil {
		quizzes = []*model.Quiz{}
	}
	return quizzes, nil
}

// GetQuiz returns a quiz with its ordered questions and options
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (*model.QuizWithQuestions, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz == nil {
		return nil, fmt.Errorf("%w: quiz %s", ErrNotFound, quizID)
	}

	questions, err := s.quizRepo.GetQuestions(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	if questions == nil {
		questions = []model.QuizQuestion{}
	}

	std, _ := personality.DetectStandard(quiz.Title, quiz.Description)
	return &model.QuizWithQuestions{Quiz: *quiz, Standard: std, Questions: questions}, nil
}

// Stats returns the personality code distribution of a quiz. Redis is
// authoritative while populated; on a miss the counts are rebuilt from Mongo.
func (s *QuizService) Stats(ctx context.Context, quizID string) ([]model.CodeCount, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz == nil {
		return nil, fmt.Errorf("%w: quiz %s", ErrNotFound, quizID)
	}

	if s.stats != nil {
		counts, err := s.stats.Top(ctx, quizID, 0)
		if err == nil && len(counts) > 0 {
			return counts, nil
		}
		if err != nil {
			s.logger.Warn("type stats read failed", zap.String("quiz", quizID), zap.Error(err))
		}
	}

	counts, err := s.resultRepo.CodeDistribution(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate results: %w", err)
	}
	if s.stats != nil {
		if err := s.stats.Seed(ctx, quizID, counts); err != nil {
			s.logger.Warn("type stats seed failed", zap.String("quiz", quizID), zap.Error(err))
		}
	}
	if counts == nil {
		counts = []model.CodeCount{}
	}
	return counts, nil
}
