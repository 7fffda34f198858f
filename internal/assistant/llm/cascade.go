// internal/assistant/llm/cascade.go

package llm

import (
	"context"
	stderrors "errors"
	"time"

	"widget-assistant/internal/common/errors"
	"widget-assistant/internal/common/logger"
	"widget-assistant/internal/common/metrics"
)

// State is a cascade run's position in Idle -> Attempting -> Success | Exhausted.
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateSuccess
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateSuccess:
		return "success"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// machine holds the transitions; it performs no I/O.
type machine struct {
	policy  Policy
	state   State
	attempt int
}

func newMachine(p Policy) *machine {
	return &machine{policy: p, state: StateIdle}
}

// start moves Idle to Attempting(0).
func (m *machine) start() {
	m.state = StateAttempting
	m.attempt = 0
}

// current returns the model and max tokens of the attempt in flight.
func (m *machine) current() (string, int) {
	maxTokens := m.policy.Defaults.MaxTokens
	if m.attempt == m.policy.attempts()-1 && m.policy.FinalMaxTokens > 0 &&
		(maxTokens == 0 || m.policy.FinalMaxTokens < maxTokens) {
		maxTokens = m.policy.FinalMaxTokens
	}
	return m.policy.ModelFor(m.attempt), maxTokens
}

func (m *machine) succeed() {
	m.state = StateSuccess
}

// fail either schedules the next attempt, returning the delay before it,
// or moves to Exhausted.
func (m *machine) fail() (time.Duration, bool) {
	if m.attempt+1 >= m.policy.attempts() {
		m.state = StateExhausted
		return 0, false
	}
	delay := m.policy.Backoff(m.attempt)
	m.attempt++
	return delay, true
}

func (m *machine) exhaust() {
	m.state = StateExhausted
}

// Validator rejects unusable output; a rejection is retried like a call failure.
type Validator func(text string) error

// Attempt records one model call.
type Attempt struct {
	Model     string
	MaxTokens int
	Duration  time.Duration
	Err       error
}

// Result is the outcome of a cascade run.
type Result struct {
	Text     string
	Model    string
	State    State
	Attempts []Attempt
}

// Cascade runs a prompt through the policy's retry ladder.
type Cascade struct {
	gen     Generator
	policy  Policy
	logger  logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error
	observe func(ctx context.Context, model string, d time.Duration, ok bool)
}

type CascadeOption func(*Cascade)

// WithSleep replaces the backoff sleep, for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) CascadeOption {
	return func(c *Cascade) { c.sleep = fn }
}

// WithCallObserver is told about every model call, e.g. to record latency.
func WithCallObserver(fn func(ctx context.Context, model string, d time.Duration, ok bool)) CascadeOption {
	return func(c *Cascade) { c.observe = fn }
}

func NewCascade(gen Generator, policy Policy, log logger.Logger, opts ...CascadeOption) *Cascade {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	c := &Cascade{
		gen:    gen,
		policy: policy,
		logger: log.With(map[string]interface{}{"component": "llm_cascade"}),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cascade) Policy() Policy {
	return c.policy
}

// Run calls the generator until validate accepts an output or the attempt
// budget is spent. The error is an LLM_EXHAUSTED StandardError carrying the
// last failure.
func (c *Cascade) Run(ctx context.Context, prompt string, cfg *GenerateConfig, validate Validator) (*Result, error) {
	base := c.policy.Defaults
	if cfg != nil {
		base = *cfg
	}
	m := newMachine(c.policy)
	m.policy.Defaults.MaxTokens = base.MaxTokens
	res := &Result{State: StateIdle}

	if c.gen == nil {
		res.State = StateExhausted
		return res, errors.NewLLMExhaustedError(0, stderrors.New("no generator configured"))
	}

	var lastErr error
	for m.start(); m.state == StateAttempting; {
		model, maxTokens := m.current()
		callCfg := base
		callCfg.MaxTokens = maxTokens

		started := time.Now()
		text, err := c.call(ctx, model, prompt, callCfg)
		if err == nil && validate != nil {
			if verr := validate(text); verr != nil {
				err = errors.NewLLMOutputInvalidError(model, verr.Error())
			}
		}
		elapsed := time.Since(started)
		res.Attempts = append(res.Attempts, Attempt{Model: model, MaxTokens: maxTokens, Duration: elapsed, Err: err})
		if c.observe != nil {
			c.observe(ctx, model, elapsed, err == nil)
		}

		if err == nil {
			m.succeed()
			metrics.LLMAttempts.WithLabelValues(model, "success").Inc()
			res.Text, res.Model = text, model
			break
		}

		lastErr = err
		metrics.LLMAttempts.WithLabelValues(model, outcome(err)).Inc()
		c.logger.Warn("model attempt failed", map[string]interface{}{
			"model":   model,
			"attempt": len(res.Attempts),
			"error":   err.Error(),
		})

		delay, again := m.fail()
		if !again {
			break
		}
		if err := c.sleep(ctx, delay); err != nil {
			lastErr = err
			m.exhaust()
		}
	}

	res.State = m.state
	if m.state == StateSuccess {
		return res, nil
	}
	return res, errors.NewLLMExhaustedError(len(res.Attempts), lastErr)
}

// call runs one attempt under its own timeout.
func (c *Cascade) call(ctx context.Context, model, prompt string, cfg GenerateConfig) (text string, err error) {
	callCtx := ctx
	if c.policy.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.policy.CallTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.NewLLMGenerationFailedError(model, stderrors.New("generator panicked"))
		}
	}()

	text, err = c.gen.Generate(callCtx, model, prompt, cfg)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", errors.NewLLMTimeoutError(model)
		}
		return "", errors.NewLLMGenerationFailedError(model, err)
	}
	return text, nil
}

func outcome(err error) string {
	switch {
	case errors.IsCode(err, errors.ErrCodeLLMTimeout):
		return "timeout"
	case errors.IsCode(err, errors.ErrCodeLLMOutputInvalid):
		return "invalid_output"
	default:
		return "error"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
