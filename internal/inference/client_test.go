package inference

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type result struct {
	text string
	err  error
}

// scripted replays results in order and repeats the last one
type scripted struct {
	mu      sync.Mutex
	results []result
	prompts []string
	onCall  func()
}

func (s *scripted) Generate(_ context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, req.Prompt)
	if s.onCall != nil {
		s.onCall()
	}
	i := len(s.prompts) - 1
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i].text, s.results[i].err
}

func (s *scripted) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

func status(code int) result { return result{err: &StatusError{Code: code, Body: "x"}} }

// newTestClient records the delays instead of sleeping
func newTestClient(tr Transport) (*Client, *[]time.Duration) {
	c := NewClient(tr, "test-model")
	var delays []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return c, &delays
}

func TestGenerate_FirstAttemptSucceeds(t *testing.T) {
	tr := &scripted{results: []result{{text: "hi"}}}
	c, delays := newTestClient(tr)

	out, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
	assert.Len(t, tr.calls(), 1)
	assert.Empty(t, *delays)
}

func TestGenerate_RateLimitedThenSucceeds(t *testing.T) {
	tr := &scripted{results: []result{status(429), status(429), {text: "ok"}}}
	c, delays := newTestClient(tr)

	out, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, []time.Duration{20 * time.Second, 40 * time.Second}, *delays)
	for _, p := range tr.calls() {
		assert.Equal(t, "prompt", p)
	}
}

func TestGenerate_BadRequestSimplifiesAfterSecondRetry(t *testing.T) {
	long := strings.Repeat("q", 2000)
	tr := &scripted{results: []result{status(400), status(400), status(400), {text: "ok"}}}
	c, delays := newTestClient(tr)

	_, err := c.Generate(context.Background(), long)
	require.NoError(t, err)

	calls := tr.calls()
	require.Len(t, calls, 4)
	assert.Equal(t, long, calls[0])
	assert.Equal(t, long, calls[1])
	assert.Equal(t, long, calls[2])
	assert.True(t, strings.HasPrefix(calls[3], briefPrefix))
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, *delays)
}

func TestGenerate_UnexpectedFailureSimplifies(t *testing.T) {
	long := strings.Repeat("q", 2000)
	tr := &scripted{results: []result{{err: errors.New("connection reset")}, {text: "ok"}}}
	c, _ := newTestClient(tr)

	_, err := c.Generate(context.Background(), long)
	require.NoError(t, err)
	calls := tr.calls()
	require.Len(t, calls, 2)
	assert.True(t, strings.HasPrefix(calls[1], briefPrefix))
}

func TestGenerate_FatalStatusStopsImmediately(t *testing.T) {
	tr := &scripted{results: []result{status(403)}}
	c, delays := newTestClient(tr)

	_, err := c.Generate(context.Background(), "prompt")
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Attempts)
	assert.Len(t, tr.calls(), 1)
	assert.Empty(t, *delays)
}

func TestGenerate_ExhaustsRetries(t *testing.T) {
	tr := &scripted{results: []result{status(503)}}
	c, delays := newTestClient(tr)

	_, err := c.Generate(context.Background(), "prompt")
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 6, se.Attempts)
	assert.Len(t, tr.calls(), 6)
	assert.Len(t, *delays, 5)

	var status *StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, 503, status.Code)
}

func TestGenerate_EmptyTextIsRetried(t *testing.T) {
	tr := &scripted{results: []result{{text: "  \n"}, {text: "answer"}}}
	c, _ := newTestClient(tr)

	out, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Len(t, tr.calls(), 2)
}

func TestGenerate_EmptyTextExhaustion(t *testing.T) {
	tr := &scripted{results: []result{{text: ""}}}
	c, _ := newTestClient(tr)

	_, err := c.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerate_TruncatesLongPrompt(t *testing.T) {
	tr := &scripted{results: []result{{text: "ok"}}}
	c, _ := newTestClient(tr)

	_, err := c.Generate(context.Background(), strings.Repeat("a", 3*MaxPromptLength))
	require.NoError(t, err)
	sent := tr.calls()[0]
	assert.LessOrEqual(t, len([]rune(sent)), MaxPromptLength)
	assert.Contains(t, sent, truncationMarker)
}

func TestGenerate_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := &scripted{results: []result{status(429)}}
	c := NewClient(tr, "test-model", WithPolicy(Policy{
		MaxRetries:      5,
		RateLimitBase:   time.Hour,
		MaxPromptLength: MaxPromptLength,
	}))

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Generate(ctx, "prompt")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, tr.calls(), 1)
}

func TestGenerate_CancelledDuringAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := &scripted{results: []result{{err: errors.New("aborted")}}, onCall: cancel}
	c, delays := newTestClient(tr)

	_, err := c.Generate(ctx, "prompt")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *delays)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want failureClass
	}{
		{&StatusError{Code: 429}, classRateLimited},
		{&StatusError{Code: 400}, classBadRequest},
		{&StatusError{Code: 500}, classUnexpected},
		{&StatusError{Code: 503}, classUnexpected},
		{&StatusError{Code: 401}, classFatal},
		{&StatusError{Code: 404}, classFatal},
		{errors.New("dial tcp: refused"), classUnexpected},
		{ErrEmptyResponse, classUnexpected},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.err), tt.err.Error())
	}
}
