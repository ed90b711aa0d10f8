package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"personaquiz/internal/inference"
	"personaquiz/internal/model"
)

const reportJSON = `Here you go: {"mbtiType": "INTJ", "discType": "C",
	"traits": {"extraversion": 3, "intuition": 8, "thinking": 9, "judging": 7,
	           "dominance": 6, "influence": 2, "steadiness": 5, "compliance": 8},
	"keyTraits": ["Strategic", "Independent"], "suitableCareers": ["Architect"],
	"strengths": ["Planning"], "weaknesses": ["Impatient"],
	"analysis": "Analytical.", "developmentSuggestions": ["Listen more"]}`

type analysisFixture struct {
	chats     *fakeChatRepo
	analyses  *fakeAnalysisRepo
	generator *fakeGenerator
	svc       *AnalysisService
}

func newAnalysisFixture() *analysisFixture {
	f := &analysisFixture{
		chats:     newFakeChatRepo(),
		analyses:  newFakeAnalysisRepo(),
		generator: &fakeGenerator{text: reportJSON},
	}
	f.svc = NewAnalysisService(f.chats, f.analyses, nil, nil, f.generator, 3, zap.NewNop())
	return f
}

// seedSession creates a session owned by userID holding n user messages
func (f *analysisFixture) seedSession(id, userID string, n int) {
	_ = f.chats.CreateSession(context.Background(), &model.ChatSession{ID: id, UserID: userID, CreatedAt: time.Now()})
	base := time.Now()
	f.chats.put(model.ChatMessage{SessionID: id, UserID: userID, Sender: model.SenderAssistant, Content: "welcome", CreatedAt: base})
	for i := 0; i < n; i++ {
		f.chats.put(model.ChatMessage{
			SessionID: id,
			UserID:    userID,
			Sender:    model.SenderUser,
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i+1) * time.Millisecond),
		})
	}
}

func TestAnalyze_ComputesAndStores(t *testing.T) {
	f := newAnalysisFixture()
	f.seedSession("s1", "u1", 3)

	report, err := f.svc.AnalyzeConversation(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, report.Error)
	assert.Equal(t, "INTJ", report.MBTIType)
	assert.Equal(t, "C", report.DISCType)
	assert.Equal(t, "Listen more", report.DevelopmentSuggestions)
	require.Len(t, report.Traits, 8)
	assert.Equal(t, model.TraitDetail{Name: "Thinking", Score: 9, Description: report.Traits[2].Description}, report.Traits[2])

	stored, err := f.analyses.GetBySession(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "u1", stored.UserID)
	assert.NotEmpty(t, stored.ID)

	prompt := f.generator.prompts[0]
	assert.Contains(t, prompt, "message 0\n---\nmessage 1\n---\nmessage 2")
	assert.NotContains(t, prompt, "welcome")
}

func TestAnalyze_SecondCallReturnsStoredResult(t *testing.T) {
	f := newAnalysisFixture()
	f.seedSession("s1", "u1", 4)

	first, err := f.svc.AnalyzeConversation(context.Background(), "u1", "s1")
	require.NoError(t, err)

	f.generator.text = `{"mbtiType": "ESFP"}`
	second, err := f.svc.AnalyzeConversation(context.Background(), "u1", "s1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.generator.callCount())
}

func TestAnalyze_ConcurrentCallsStoreOnce(t *testing.T) {
	f := newAnalysisFixture()
	f.seedSession("s1", "u1", 5)

	release := make(chan struct{})
	f.generator.hook = func(ctx context.Context) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	const callers = 8
	var wg sync.WaitGroup
	reports := make([]*model.AnalysisReport, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i], errs[i] = f.svc.AnalyzeConversation(context.Background(), "u1", "s1")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, reports[0], reports[i])
	}
	assert.Equal(t, 1, f.analyses.count())
	assert.EqualValues(t, 1, f.analyses.inserts.Load())
}

func TestAnalyze_RacingInstancesReadBackWinner(t *testing.T) {
	f := newAnalysisFixture()
	f.seedSession("s1", "u1", 3)

	// both instances must be inside compute before either inserts
	var mu sync.Mutex
	arrived := 0
	bothIn := make(chan struct{})
	barrier := func(ctx context.Context) error {
		mu.Lock()
		arrived++
		if arrived == 2 {
			close(bothIn)
		}
		mu.Unlock()
		select {
		case <-bothIn:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.generator.hook = barrier
	other := NewAnalysisService(f.chats, f.analyses, nil, nil, f.generator, 3, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var a, b *model.AnalysisReport
	var errA, errB error
	wg.Add(2)
	go func() { defer wg.Done(); a, errA = f.svc.AnalyzeConversation(ctx, "u1", "s1") }()
	go func() { defer wg.Done(); b, errB = other.AnalyzeConversation(ctx, "u1", "s1") }()
	wg.Wait()

	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, 2, f.generator.callCount())
	assert.Equal(t, 1, f.analyses.count())
	assert.Equal(t, a, b)
}

func TestAnalyze_InsufficientData(t *testing.T) {
	f := newAnalysisFixture()
	f.seedSession("s1", "u1", 2)

	report, err := f.svc.AnalyzeConversation(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, report.Error)
	assert.Empty(t, report.Traits)
	assert.Equal(t, 0, f.generator.callCount())
	assert.Equal(t, 0, f.analyses.count())
}

func TestAnalyze_ExactlyThreeMessagesComputes(t *testing.T) {
	f := newAnalysisFixture()
	f.seedSession("s1", "u1", 3)

	report, err := f.svc.AnalyzeConversation(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, report.Error)
	assert.Equal(t, 1, f.generator.callCount())
}

func TestAnalyze_Authorization(t *testing.T) {
	f := newAnalysisFixture()
	f.seedSession("s1", "owner", 5)

	_, err := f.svc.AnalyzeConversation(context.Background(), "intruder", "s1")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.AnalyzeConversation(context.Background(), "owner", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 0, f.generator.callCount())
}

func TestAnalyze_ForeignMessagesRejected(t *testing.T) {
	f := newAnalysisFixture()
	f.seedSession("s1", "u1", 3)
	f.chats.put(model.ChatMessage{SessionID: "s1", UserID: "u2", Sender: model.SenderUser, Content: "hi", CreatedAt: time.Now()})

	_, err := f.svc.AnalyzeConversation(context.Background(), "u1", "s1")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 0, f.analyses.count())
}

func TestAnalyze_ExternalServiceFailure(t *testing.T) {
	f := newAnalysisFixture()
	f.seedSession("s1", "u1", 3)
	f.generator.err = &inference.ServiceError{Attempts: 6, Err: &inference.StatusError{Code: 429}}

	_, err := f.svc.AnalyzeConversation(context.Background(), "u1", "s1")
	assert.ErrorIs(t, err, ErrExternalService)
	assert.NotErrorIs(t, err, ErrParse)

	var se *inference.ServiceError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, 0, f.analyses.count())
}

func TestAnalyze_MalformedOutputNotStored(t *testing.T) {
	f := newAnalysisFixture()
	f.seedSession("s1", "u1", 3)
	f.generator.text = "I'm sorry, I cannot do that."

	_, err := f.svc.AnalyzeConversation(context.Background(), "u1", "s1")
	assert.ErrorIs(t, err, ErrParse)
	assert.Equal(t, 0, f.analyses.count())

	// a later attempt may still succeed
	f.generator.text = reportJSON
	report, err := f.svc.AnalyzeConversation(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "INTJ", report.MBTIType)
}

func TestAnalyze_DeadlinePersistsNothing(t *testing.T) {
	f := newAnalysisFixture()
	f.seedSession("s1", "u1", 3)
	f.generator.hook = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.svc.AnalyzeConversation(ctx, "u1", "s1")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 0, f.analyses.count())
}

func TestAnalyze_PublishesReadyEvent(t *testing.T) {
	f := newAnalysisFixture()
	f.seedSession("s1", "u1", 3)
	events := &recordingBroadcaster{}
	f.svc.SetBroadcaster(events)

	_, err := f.svc.AnalyzeConversation(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.True(t, events.has(EventAnalysisReady))
}

func TestAnalysisPrompt_SimplifiedKeepsTranscript(t *testing.T) {
	messages := []model.ChatMessage{
		{Sender: model.SenderAssistant, Content: "welcome"},
		{Sender: model.SenderUser, Content: "I love planning trips months ahead."},
		{Sender: model.SenderUser, Content: "Crowds drain me, I prefer small dinners."},
		{Sender: model.SenderUser, Content: "I decide with spreadsheets, not gut feeling."},
	}

	prompt := buildAnalysisPrompt(messages)
	require.Greater(t, len([]rune(prompt)), 1000, "prompt must be long enough to be simplified")

	simplified := inference.Simplify(prompt)
	require.NotEqual(t, prompt, simplified)
	for _, m := range messages[1:] {
		assert.Contains(t, simplified, m.Content)
	}
	assert.Contains(t, prompt, `"mbtiType"`)
}

func (s *AnalysisService) waiting(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w := s.waiters[sessionID]; w != nil {
		return w.count
	}
	return 0
}

func TestAnalyze_CancelledCallerDoesNotFailOthers(t *testing.T) {
	f := newAnalysisFixture()
	f.seedSession("s1", "u1", 3)

	release := make(chan struct{})
	f.generator.hook = func(ctx context.Context) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.svc.AnalyzeConversation(firstCtx, "u1", "s1")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return f.generator.callCount() == 1 }, time.Second, time.Millisecond)

	type outcome struct {
		report *model.AnalysisReport
		err    error
	}
	second := make(chan outcome, 1)
	go func() {
		r, err := f.svc.AnalyzeConversation(context.Background(), "u1", "s1")
		second <- outcome{r, err}
	}()
	require.Eventually(t, func() bool { return f.svc.waiting("s1") == 2 }, time.Second, time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "INTJ", got.report.MBTIType)
	assert.Equal(t, 1, f.generator.callCount())
	assert.Equal(t, 1, f.analyses.count())
}

func TestAnalyze_AllCallersGoneCancelsComputation(t *testing.T) {
	f := newAnalysisFixture()
	f.seedSession("s1", "u1", 3)

	stopped := make(chan error, 1)
	f.generator.hook = func(ctx context.Context) error {
		<-ctx.Done()
		stopped <- ctx.Err()
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for f.generator.callCount() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	_, err := f.svc.AnalyzeConversation(ctx, "u1", "s1")
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case err := <-stopped:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("computation kept running after every caller left")
	}
	assert.Zero(t, f.svc.waiting("s1"))
	assert.Equal(t, 0, f.analyses.count())
}
