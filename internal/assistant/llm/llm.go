// internal/assistant/llm/llm.go

// Package llm calls an external generative model through a retrying,
// model-escalating cascade.
package llm

import (
	"context"
	"time"

	"widget-assistant/internal/common/config"
)

// GenerateConfig is passed to every model call.
type GenerateConfig struct {
	Temperature float32
	MaxTokens   int
	TopP        float32
	TopK        float32
	// JSON asks the backend for a JSON response body when it supports it.
	JSON bool
}

// Generator produces text for a prompt with the named model.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, cfg GenerateConfig) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, model, prompt string, cfg GenerateConfig) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, model, prompt string, cfg GenerateConfig) (string, error) {
	return f(ctx, model, prompt, cfg)
}

// Policy is the retry budget and model ladder of a cascade.
type Policy struct {
	Models         []string
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	CallTimeout    time.Duration
	FinalMaxTokens int
	Defaults       GenerateConfig
}

func DefaultPolicy() Policy {
	return Policy{
		Models:         []string{"gemini-2.0-flash-lite", "gemini-2.0-flash", "gemini-2.5-flash"},
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       4 * time.Second,
		CallTimeout:    15 * time.Second,
		FinalMaxTokens: 512,
		Defaults:       GenerateConfig{Temperature: 0.3, MaxTokens: 1024, TopP: 0.9, TopK: 40},
	}
}

// PolicyFromConfig builds a policy from the genai config section.
func PolicyFromConfig(cfg config.GenAIConfig) Policy {
	p := DefaultPolicy()
	if len(cfg.Models) > 0 {
		p.Models = cfg.Models
	}
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		p.BaseDelay = config.GetDuration(cfg.BaseDelay)
	}
	if cfg.MaxDelay > 0 {
		p.MaxDelay = config.GetDuration(cfg.MaxDelay)
	}
	if cfg.CallTimeout > 0 {
		p.CallTimeout = config.GetDuration(cfg.CallTimeout)
	}
	if cfg.FinalMaxTokens > 0 {
		p.FinalMaxTokens = cfg.FinalMaxTokens
	}
	if cfg.Temperature > 0 {
		p.Defaults.Temperature = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		p.Defaults.MaxTokens = cfg.MaxTokens
	}
	return p
}

// Backoff is the delay after failed attempt number attempt (0-based):
// min(BaseDelay * 2^attempt, MaxDelay).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// ModelFor returns models[min(attempt, len-1)], or "" without models.
func (p Policy) ModelFor(attempt int) string {
	if len(p.Models) == 0 {
		return ""
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(p.Models) {
		attempt = len(p.Models) - 1
	}
	return p.Models[attempt]
}

// MaxBackoffTotal bounds the time spent sleeping across a whole run.
func (p Policy) MaxBackoffTotal() time.Duration {
	var total time.Duration
	for i := 0; i < p.MaxAttempts-1; i++ {
		total += p.Backoff(i)
	}
	return total
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}
