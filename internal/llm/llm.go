// Package llm defines the text generation capability the bot depends on and
// composes concrete providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/devbot/internal/ratelimit"
)

// ErrEmptyResponse is returned when a provider answered without usable text.
var ErrEmptyResponse = errors.New("empty response from model")

// Generator produces text for a prompt. It may block and may fail.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Provider is a named Generator.
type Provider struct {
	Name string
	Generator
}

// Fallback tries providers in order and returns the first non-empty answer.
type Fallback struct {
	providers []Provider
	log       *slog.Logger
}

func NewFallback(log *slog.Logger, providers ...Provider) *Fallback {
	if log == nil {
		log = slog.Default()
	}
	return &Fallback{providers: providers, log: log}
}

func (f *Fallback) Generate(ctx context.Context, prompt string) (string, error) {
	if len(f.providers) == 0 {
		return "", errors.New("no text generator configured")
	}

	var errs []error
	for _, p := range f.providers {
		text, err := p.Generate(ctx, prompt)
		if err == nil && strings.TrimSpace(text) != "" {
			f.log.Debug("✅ generated", "provider", p.Name, "chars", len(text))
			return text, nil
		}
		if err == nil {
			err = ErrEmptyResponse
		}
		f.log.Warn("⚠️ generator failed", "provider", p.Name, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))

		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(errs...)
}

// Limited counts every call against the limiter under name and refuses calls
// once the budget is spent.
func Limited(name string, gen Generator, limiter *ratelimit.AIRateLimiter) Provider {
	return Provider{
		Name: name,
		Generator: GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
			if err := limiter.Use(name); err != nil {
				return "", err
			}
			return gen.Generate(ctx, prompt)
		}),
	}
}

// WithTimeout bounds every call to gen by d. A non-positive d returns gen.
func WithTimeout(gen Generator, d time.Duration) Generator {
	if d <= 0 {
		return gen
	}
	return GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return gen.Generate(ctx, prompt)
	})
}
