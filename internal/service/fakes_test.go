package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"personaquiz/internal/model"
	"personaquiz/internal/repository"
)

type fakeChatRepo struct {
	mu       sync.Mutex
	sessions map[string]model.ChatSession
	messages []model.ChatMessage
	nextID   int

	appendErr error
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{sessions: map[string]model.ChatSession{}}
}

func (r *fakeChatRepo) EnsureIndexes(context.Context) error { return nil }

func (r *fakeChatRepo) CreateSession(_ context.Context, s *model.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; ok {
		return repository.ErrDuplicate
	}
	r.sessions[s.ID] = *s
	return nil
}

func (r *fakeChatRepo) GetSession(_ context.Context, id string) (*model.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *fakeChatRepo) CountSessions(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *fakeChatRepo) ListSessions(_ context.Context, userID string) ([]model.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ChatSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeChatRepo) DeleteSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.messages[:0]
	for _, m := range r.messages {
		if m.SessionID != id {
			kept = append(kept, m)
		}
	}
	r.messages = kept
	delete(r.sessions, id)
	return nil
}

func (r *fakeChatRepo) AppendMessage(_ context.Context, msg *model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.nextID++
	if msg.ID == "" {
		msg.ID = "msg-" + strconv.Itoa(r.nextID)
	}
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeChatRepo) ListMessages(_ context.Context, sessionID string) ([]model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ChatMessage
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (r *fakeChatRepo) CountMessages(_ context.Context, sessionID string, sender model.Sender) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.SessionID == sessionID && m.Sender == sender {
			n++
		}
	}
	return n, nil
}

// put inserts a message directly, bypassing the service clock
func (r *fakeChatRepo) put(msg model.ChatMessage) {
	_ = r.AppendMessage(context.Background(), &msg)
}

type fakeAnalysisRepo struct {
	mu      sync.Mutex
	results map[string]model.AnalysisResult
	inserts atomic.Int32
}

func newFakeAnalysisRepo() *fakeAnalysisRepo {
	return &fakeAnalysisRepo{results: map[string]model.AnalysisResult{}}
}

func (r *fakeAnalysisRepo) EnsureIndexes(context.Context) error { return nil }

func (r *fakeAnalysisRepo) Insert(_ context.Context, res *model.AnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.results[res.SessionID]; ok {
		return repository.ErrDuplicate
	}
	r.inserts.Add(1)
	r.results[res.SessionID] = *res
	return nil
}

func (r *fakeAnalysisRepo) GetBySession(_ context.Context, sessionID string) (*model.AnalysisResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[sessionID]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (r *fakeAnalysisRepo) DeleteBySession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.results, sessionID)
	return nil
}

func (r *fakeAnalysisRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

type fakeQuizRepo struct {
	quizzes   map[string]*model.Quiz
	questions map[string][]model.QuizQuestion
}

func (r *fakeQuizRepo) Create(_ context.Context, q *model.Quiz) error {
	r.quizzes[q.ID] = q
	return nil
}

func (r *fakeQuizRepo) GetByID(_ context.Context, id string) (*model.Quiz, error) {
	return r.quizzes[id], nil
}

func (r *fakeQuizRepo) List(context.Context) ([]*model.Quiz, error) {
	var out []*model.Quiz
	for _, q := range r.quizzes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeQuizRepo) AddQuestions(_ context.Context, quizID string, qs []model.QuizQuestion) error {
	r.questions[quizID] = append(r.questions[quizID], qs...)
	return nil
}

func (r *fakeQuizRepo) GetQuestions(_ context.Context, quizID string) ([]model.QuizQuestion, error) {
	return r.questions[quizID], nil
}

type fakeStandardRepo struct {
	entries map[string]*model.PersonalityStandard
}

func (r *fakeStandardRepo) EnsureIndexes(context.Context) error { return nil }

func (r *fakeStandardRepo) Upsert(_ context.Context, s *model.PersonalityStandard) error {
	r.entries[string(s.Standard)+":"+s.PersonalityCode] = s
	return nil
}

func (r *fakeStandardRepo) GetByCode(_ context.Context, std model.Standard, code string) (*model.PersonalityStandard, error) {
	return r.entries[string(std)+":"+code], nil
}

func (r *fakeStandardRepo) ListByStandard(_ context.Context, std model.Standard) ([]*model.PersonalityStandard, error) {
	var out []*model.PersonalityStandard
	for _, e := range r.entries {
		if e.Standard == std {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeResultRepo struct {
	results []model.QuizResult
}

func (r *fakeResultRepo) EnsureIndexes(context.Context) error { return nil }

func (r *fakeResultRepo) Create(_ context.Context, res *model.QuizResult) error {
	res.ID = "result-" + strconv.Itoa(len(r.results)+1)
	r.results = append(r.results, *res)
	return nil
}

func (r *fakeResultRepo) GetByID(_ context.Context, id string) (*model.QuizResult, error) {
	for _, res := range r.results {
		if res.ID == id {
			return &res, nil
		}
	}
	return nil, nil
}

func (r *fakeResultRepo) ListByUser(_ context.Context, userID string) ([]model.QuizResult, error) {
	var out []model.QuizResult
	for _, res := range r.results {
		if res.UserID == userID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *fakeResultRepo) CountAttempts(_ context.Context, userID, quizID string) (int, error) {
	n := 0
	for _, res := range r.results {
		if res.UserID == userID && res.QuizID == quizID {
			n++
		}
	}
	return n, nil
}

func (r *fakeResultRepo) CodeDistribution(_ context.Context, quizID string) ([]model.CodeCount, error) {
	counts := map[string]int{}
	for _, res := range r.results {
		if res.QuizID == quizID {
			counts[res.Result.PersonalityCode]++
		}
	}
	var out []model.CodeCount
	for code, n := range counts {
		out = append(out, model.CodeCount{Code: code, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

type fakeTypeStats struct {
	counts map[string]map[string]int
	seeded int
}

func newFakeTypeStats() *fakeTypeStats {
	return &fakeTypeStats{counts: map[string]map[string]int{}}
}

func (c *fakeTypeStats) Increment(_ context.Context, quizID, code string) error {
	if c.counts[quizID] == nil {
		c.counts[quizID] = map[string]int{}
	}
	c.counts[quizID][code]++
	return nil
}

func (c *fakeTypeStats) Top(_ context.Context, quizID string, limit int) ([]model.CodeCount, error) {
	var out []model.CodeCount
	for code, n := range c.counts[quizID] {
		out = append(out, model.CodeCount{Code: code, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Code < out[j].Code
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *fakeTypeStats) Seed(_ context.Context, quizID string, counts []model.CodeCount) error {
	c.seeded++
	c.counts[quizID] = map[string]int{}
	for _, cc := range counts {
		c.counts[quizID][cc.Code] = cc.Count
	}
	return nil
}

// fakeGenerator returns text, or err when set, and counts calls
type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	calls   int
	prompts []string
	hook    func(ctx context.Context) error
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	hook, text, err := g.hook, g.text, g.err
	g.mu.Unlock()

	if hook != nil {
		if herr := hook(ctx); herr != nil {
			return "", herr
		}
	}
	return text, err
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBroadcaster) PublishToUser(_, msgType string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, msgType)
}

func (b *recordingBroadcaster) has(msgType string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if e == msgType {
			return true
		}
	}
	return false
}
