// Package generation obtains fresh content from a text generator with a
// bounded number of attempts and runs generation jobs under the per-chat
// guard.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deusflow/devbot/internal/ledger"
	"github.com/deusflow/devbot/internal/llm"
	"github.com/deusflow/devbot/internal/metrics"
)

// DefaultAttempts is how many generator calls a single request may spend.
const DefaultAttempts = 8

// ErrExhausted means every attempt produced empty, malformed or duplicate
// output.
var ErrExhausted = errors.New("no new content after all attempts")

// TopicLedger is the part of the topic history the producer needs.
type TopicLedger interface {
	IsDuplicate(candidate string) bool
	TryRecord(ctx context.Context, topic string) (bool, error)
}

type Producer struct {
	gen      llm.Generator
	ledger   TopicLedger
	attempts int
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func NewProducer(gen llm.Generator, l TopicLedger, attempts int, log *slog.Logger) (*Producer, error) {
	if gen == nil {
		return nil, errors.New("generation: generator must not be nil")
	}
	if l == nil {
		return nil, errors.New("generation: ledger must not be nil")
	}
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if log == nil {
		log = slog.Default()
	}
	return &Producer{gen: gen, ledger: l, attempts: attempts, metrics: metrics.Global, log: log}, nil
}

func (p *Producer) Attempts() int {
	return p.attempts
}

// Attempt calls the generator up to p.Attempts() times and returns the first
// output accepted by parse. Generator errors, blank output and rejected output
// all consume an attempt. Context cancellation stops early.
func Attempt[T any](ctx context.Context, p *Producer, prompt string, parse func(raw string) (T, bool)) (T, error) {
	var zero T
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		raw, err := p.gen.Generate(ctx, prompt)
		if err != nil {
			p.log.Warn("generation attempt failed", "attempt", attempt, "of", p.attempts, "err", err)
			continue
		}
		if v, ok := parse(raw); ok {
			return v, nil
		}
		p.log.Debug("generation attempt rejected", "attempt", attempt, "of", p.attempts)
	}

	p.metrics.IncrementAttemptsExhausted()
	return zero, fmt.Errorf("%w (%d attempts)", ErrExhausted, p.attempts)
}

// Unique produces one cleaned text that is not a near-duplicate of the
// history and records it. Exactly one record happens on success, none on
// ErrExhausted. A failed history write is logged and does not fail the call.
func (p *Producer) Unique(ctx context.Context, prompt string) (string, error) {
	return Attempt(ctx, p, prompt, func(raw string) (string, bool) {
		text := CleanText(raw)
		if len(ledger.Normalize(text)) == 0 {
			return "", false
		}
		if p.ledger.IsDuplicate(text) {
			p.metrics.IncrementDuplicatesFiltered()
			return "", false
		}

		recorded, err := p.ledger.TryRecord(ctx, text)
		if err != nil {
			p.metrics.IncrementLedgerSaveErrors()
			p.log.Warn("⚠️ topic history not persisted", "err", err)
		}
		if !recorded {
			// another chat recorded a near-identical text meanwhile
			p.metrics.IncrementDuplicatesFiltered()
			return "", false
		}
		return text, true
	})
}

// Text produces one cleaned, non-blank text without consulting the history.
// Used for posts written about a topic that is already fresh.
func (p *Producer) Text(ctx context.Context, prompt string) (string, error) {
	return Attempt(ctx, p, prompt, func(raw string) (string, bool) {
		text := CleanText(raw)
		return text, text != ""
	})
}

// Topics produces up to n fresh topic titles from a numbered list. Titles
// repeating the history or each other are dropped; an answer with no fresh
// title consumes an attempt. Topics are not recorded here: a topic becomes
// history once content for it has been delivered.
func (p *Producer) Topics(ctx context.Context, prompt string, n int) ([]string, error) {
	return Attempt(ctx, p, prompt, func(raw string) ([]string, bool) {
		var fresh []string
		for _, item := range ParseNumbered(raw) {
			if len(fresh) >= n {
				break
			}
			if p.ledger.IsDuplicate(item) || similarToAny(item, fresh) {
				p.metrics.IncrementDuplicatesFiltered()
				continue
			}
			fresh = append(fresh, item)
		}
		return fresh, len(fresh) > 0
	})
}

func similarToAny(candidate string, batch []string) bool {
	for _, t := range batch {
		if ledger.Similarity(candidate, t) > ledger.DuplicateThreshold {
			return true
		}
	}
	return false
}
