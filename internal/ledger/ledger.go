// Package ledger keeps the history of produced topics and answers whether a
// new candidate repeats one of them.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultMaxTopics bounds the retained history.
const DefaultMaxTopics = 500

// Store persists the whole topic list. Save always receives the complete
// ordered list, oldest first.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, topics []string) error
}

// Ledger is an append-only, bounded, insertion-ordered list of topics.
type Ledger struct {
	mu     sync.RWMutex
	saveMu sync.Mutex // orders store writes the same way as appends
	topics []string
	max    int
	store  Store
	log    *slog.Logger
}

// New loads the history from store. A missing or unreadable history is not
// fatal: the ledger starts empty and the problem is logged.
func New(ctx context.Context, store Store, max int, log *slog.Logger) *Ledger {
	if max <= 0 {
		max = DefaultMaxTopics
	}
	if log == nil {
		log = slog.Default()
	}

	l := &Ledger{max: max, store: store, log: log}

	if store == nil {
		return l
	}
	topics, err := store.Load(ctx)
	if err != nil {
		log.Warn("topic history unreadable, starting empty", "err", err)
		return l
	}
	if len(topics) > max {
		topics = topics[len(topics)-max:]
	}
	l.topics = append([]string(nil), topics...)
	log.Info("topic history loaded", "topics", len(l.topics))
	return l
}

// IsDuplicate reports whether candidate is more than DuplicateThreshold
// similar to any recorded topic.
func (l *Ledger) IsDuplicate(candidate string) bool {
	norm := Normalize(candidate)
	if len(norm) == 0 {
		return false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isDuplicateLocked(norm)
}

func (l *Ledger) isDuplicateLocked(norm []rune) bool {
	for _, old := range l.topics {
		if similarity(Normalize(old), norm) > DuplicateThreshold {
			return true
		}
	}
	return false
}

// Record appends topic as given, evicts the oldest entries beyond the bound
// and rewrites the store. On a save error the topic stays recorded in memory
// and the error is returned for the caller to log.
func (l *Ledger) Record(ctx context.Context, topic string) error {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	l.mu.Lock()
	snapshot := l.appendLocked(topic)
	l.mu.Unlock()

	return l.save(ctx, snapshot)
}

// TryRecord records topic only if it is not a duplicate, checking and
// appending under one lock. It reports whether the topic was recorded.
func (l *Ledger) TryRecord(ctx context.Context, topic string) (bool, error) {
	norm := Normalize(topic)

	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	l.mu.Lock()
	if len(norm) > 0 && l.isDuplicateLocked(norm) {
		l.mu.Unlock()
		return false, nil
	}
	snapshot := l.appendLocked(topic)
	l.mu.Unlock()

	return true, l.save(ctx, snapshot)
}

func (l *Ledger) appendLocked(topic string) []string {
	l.topics = append(l.topics, topic)
	if len(l.topics) > l.max {
		// copy so the dropped prefix can be collected
		l.topics = append([]string(nil), l.topics[len(l.topics)-l.max:]...)
	}
	return append([]string(nil), l.topics...)
}

func (l *Ledger) save(ctx context.Context, snapshot []string) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save topic history: %w", err)
	}
	return nil
}

// Topics returns a copy of the history, oldest first.
func (l *Ledger) Topics() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.topics...)
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.topics)
}

// Closest returns the most similar recorded topic and its score.
func (l *Ledger) Closest(candidate string) (string, float64) {
	norm := Normalize(candidate)

	l.mu.RLock()
	defer l.mu.RUnlock()

	best, score := "", 0.0
	for _, old := range l.topics {
		if s := similarity(Normalize(old), norm); s > score {
			best, score = old, s
		}
	}
	return best, score
}
