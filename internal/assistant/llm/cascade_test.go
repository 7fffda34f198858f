package llm

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "widget-assistant/internal/common/errors"
	"widget-assistant/internal/common/logger"
)

// ==========================
// Fakes
// ==========================

type call struct {
	model     string
	maxTokens int
}

// scriptedGenerator returns responses in order; err entries fail the call.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []reply
	calls   []call
}

type reply struct {
	text string
	err  error
}

func (g *scriptedGenerator) Generate(_ context.Context, model, _ string, cfg GenerateConfig) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call{model: model, maxTokens: cfg.MaxTokens})
	if len(g.replies) == 0 {
		return "", stderrors.New("no scripted reply")
	}
	r := g.replies[0]
	if len(g.replies) > 1 {
		g.replies = g.replies[1:]
	}
	return r.text, r.err
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func testPolicy() Policy {
	return Policy{
		Models:         []string{"small", "medium", "large"},
		MaxAttempts:    4,
		BaseDelay:      100 * time.Millisecond,
		MaxDelay:       300 * time.Millisecond,
		CallTimeout:    time.Second,
		FinalMaxTokens: 256,
		Defaults:       GenerateConfig{Temperature: 0.2, MaxTokens: 1024},
	}
}

// ==========================
// Pure policy functions
// ==========================

func TestPolicy_Backoff(t *testing.T) {
	p := testPolicy()
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{-1, 100 * time.Millisecond},
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 300 * time.Millisecond},
		{10, 300 * time.Millisecond},
		{100, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
	assert.Equal(t, 600*time.Millisecond, p.MaxBackoffTotal())
}

func TestPolicy_ModelFor(t *testing.T) {
	p := testPolicy()
	assert.Equal(t, "small", p.ModelFor(0))
	assert.Equal(t, "medium", p.ModelFor(1))
	assert.Equal(t, "large", p.ModelFor(2))
	assert.Equal(t, "large", p.ModelFor(7))
	assert.Equal(t, "", Policy{}.ModelFor(0))
}

func TestMachine_Transitions(t *testing.T) {
	m := newMachine(testPolicy())
	assert.Equal(t, StateIdle, m.state)

	m.start()
	assert.Equal(t, StateAttempting, m.state)
	model, tokens := m.current()
	assert.Equal(t, "small", model)
	assert.Equal(t, 1024, tokens)

	var delays []time.Duration
	for {
		d, again := m.fail()
		if !again {
			break
		}
		delays = append(delays, d)
	}
	assert.Equal(t, StateExhausted, m.state)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}, delays)

	m.start()
	_, _ = m.fail()
	_, _ = m.fail()
	_, _ = m.fail()
	model, tokens = m.current()
	assert.Equal(t, "large", model)
	assert.Equal(t, 256, tokens, "final attempt caps output size")
	m.succeed()
	assert.Equal(t, StateSuccess, m.state)
}

// ==========================
// Cascade runs
// ==========================

func TestCascade_SucceedsFirstTry(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{text: "ahoj"}}}
	rec := &sleepRecorder{}
	c := NewCascade(gen, testPolicy(), logger.NewTestLogger(t), WithSleep(rec.sleep))

	res, err := c.Run(context.Background(), "prompt", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ahoj", res.Text)
	assert.Equal(t, "small", res.Model)
	assert.Equal(t, StateSuccess, res.State)
	assert.Empty(t, rec.delays)
}

func TestCascade_EscalatesAndRecovers(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{
		{err: stderrors.New("rate limited")},
		{text: "not json"},
		{text: `{"ok":true}`},
	}}
	rec := &sleepRecorder{}
	c := NewCascade(gen, testPolicy(), logger.NewTestLogger(t), WithSleep(rec.sleep))

	validate := func(text string) error {
		if text == "not json" {
			return stderrors.New("malformed")
		}
		return nil
	}
	res, err := c.Run(context.Background(), "prompt", nil, validate)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, res.Text)
	assert.Equal(t, "large", res.Model)
	require.Len(t, res.Attempts, 3)
	assert.True(t, apperrors.IsCode(res.Attempts[0].Err, apperrors.ErrCodeLLMGenerationFailed))
	assert.True(t, apperrors.IsCode(res.Attempts[1].Err, apperrors.ErrCodeLLMOutputInvalid))
	assert.Equal(t, []string{"small", "medium", "large"}, []string{gen.calls[0].model, gen.calls[1].model, gen.calls[2].model})
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, rec.delays)
}

func TestCascade_AlwaysFailingIsBounded(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{err: stderrors.New("boom")}}}
	rec := &sleepRecorder{}
	p := testPolicy()
	c := NewCascade(gen, p, logger.NewTestLogger(t), WithSleep(rec.sleep))

	res, err := c.Run(context.Background(), "prompt", nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeLLMExhausted))
	assert.Equal(t, StateExhausted, res.State)
	assert.Len(t, gen.calls, p.MaxAttempts)
	assert.Equal(t, 256, gen.calls[len(gen.calls)-1].maxTokens)
	assert.Equal(t, 1024, gen.calls[0].maxTokens)

	var slept time.Duration
	for _, d := range rec.delays {
		slept += d
	}
	assert.Equal(t, p.MaxBackoffTotal(), slept)
}

func TestCascade_RealSleepWithinBound(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{err: stderrors.New("boom")}}}
	p := testPolicy()
	p.BaseDelay, p.MaxDelay = 5*time.Millisecond, 10*time.Millisecond
	c := NewCascade(gen, p, nil)

	started := time.Now()
	_, err := c.Run(context.Background(), "prompt", nil, nil)
	require.Error(t, err)
	assert.Less(t, time.Since(started), time.Second)
}

func TestCascade_CallTimeout(t *testing.T) {
	gen := GeneratorFunc(func(ctx context.Context, _, _ string, _ GenerateConfig) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	p := testPolicy()
	p.MaxAttempts = 2
	p.CallTimeout = 10 * time.Millisecond
	rec := &sleepRecorder{}
	c := NewCascade(gen, p, nil, WithSleep(rec.sleep))

	res, err := c.Run(context.Background(), "prompt", nil, nil)
	require.Error(t, err)
	require.Len(t, res.Attempts, 2)
	assert.True(t, apperrors.IsCode(res.Attempts[0].Err, apperrors.ErrCodeLLMTimeout))
}

func TestCascade_CancelledContextStopsRetrying(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{err: stderrors.New("boom")}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCascade(gen, testPolicy(), nil, WithSleep(sleepContext))

	res, err := c.Run(ctx, "prompt", nil, nil)
	require.Error(t, err)
	assert.Equal(t, StateExhausted, res.State)
	assert.Len(t, gen.calls, 1)
}

func TestCascade_PanickingGeneratorIsAFailure(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, string, string, GenerateConfig) (string, error) {
		panic("nil map")
	})
	p := testPolicy()
	p.MaxAttempts = 1
	c := NewCascade(gen, p, nil)

	_, err := c.Run(context.Background(), "prompt", nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeLLMExhausted))
}

func TestCascade_NoGenerator(t *testing.T) {
	c := NewCascade(nil, testPolicy(), nil)
	res, err := c.Run(context.Background(), "prompt", nil, nil)
	require.Error(t, err)
	assert.Equal(t, StateExhausted, res.State)
}

func TestCascade_CustomConfig(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{text: "x"}}}
	c := NewCascade(gen, testPolicy(), nil)

	_, err := c.Run(context.Background(), "prompt", &GenerateConfig{MaxTokens: 64}, nil)
	require.NoError(t, err)
	assert.Equal(t, 64, gen.calls[0].maxTokens)
}

// ==========================
// Text helpers
// ==========================

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
		{"```json{\"a\":1}```", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripCodeFence(tt.in))
	}
	assert.Equal(t, `{"intent":"x"}`, ExtractJSONObject("Sure! Here it is: {\"intent\":\"x\"} Hope that helps."))
	assert.Equal(t, "no json", ExtractJSONObject("no json"))
}

func TestCascade_CallObserver(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{err: stderrors.New("boom")}, {text: "ok"}}}
	var seen []string
	observe := func(_ context.Context, model string, _ time.Duration, ok bool) {
		if ok {
			seen = append(seen, model+":ok")
		} else {
			seen = append(seen, model+":err")
		}
	}
	c := NewCascade(gen, testPolicy(), nil, WithSleep((&sleepRecorder{}).sleep), WithCallObserver(observe))

	_, err := c.Run(context.Background(), "prompt", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"small:err", "medium:ok"}, seen)
}
