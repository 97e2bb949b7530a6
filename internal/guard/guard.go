// Package guard allows at most one running content generation per chat.
package guard

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultTimeout       = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Entry describes the generation currently running for a chat.
type Entry struct {
	Kind      string
	StartedAt time.Time

	seq uint64
}

// Guard tracks busy chats. A chat is idle when it has no entry; acquiring
// while busy is rejected, never queued.
type Guard struct {
	mu      sync.Mutex
	entries map[int64]Entry
	seq     uint64
	now     func() time.Time
	log     *slog.Logger

	// OnSweep is called with the number of entries removed by each sweep
	// that removed at least one.
	OnSweep func(removed int)
}

func New(log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{
		entries: make(map[int64]Entry),
		now:     time.Now,
		log:     log,
	}
}

// WithClock replaces the time source. Intended for tests.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.mu.Lock()
	g.now = now
	g.mu.Unlock()
	return g
}

// TryAcquire marks chatID busy and returns true, or returns false when a
// generation is already running there.
func (g *Guard) TryAcquire(chatID int64, kind string) bool {
	_, ok := g.Acquire(chatID, kind)
	return ok
}

// Acquire is TryAcquire returning a lease that releases only its own entry.
func (g *Guard) Acquire(chatID int64, kind string) (*Lease, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.entries[chatID]; busy {
		return nil, false
	}
	g.seq++
	g.entries[chatID] = Entry{Kind: kind, StartedAt: g.now(), seq: g.seq}
	return &Lease{g: g, chatID: chatID, seq: g.seq}, true
}

// Release unconditionally marks chatID idle.
func (g *Guard) Release(chatID int64) {
	g.mu.Lock()
	delete(g.entries, chatID)
	g.mu.Unlock()
}

// Busy reports whether chatID has a running generation.
func (g *Guard) Busy(chatID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.entries[chatID]
	return busy
}

// Get returns the entry for chatID, if any.
func (g *Guard) Get(chatID int64) (Entry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[chatID]
	return e, ok
}

func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// SweepStale removes entries older than timeout and returns how many were
// removed. Entries exactly timeout old are kept.
func (g *Guard) SweepStale(now time.Time, timeout time.Duration) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for chatID, e := range g.entries {
		if now.Sub(e.StartedAt) > timeout {
			delete(g.entries, chatID)
			removed++
			g.log.Warn("stale generation released", "chat_id", chatID, "kind", e.Kind, "age", now.Sub(e.StartedAt).Round(time.Second))
		}
	}
	return removed
}

// Run sweeps stale entries every interval until ctx is done.
func (g *Guard) Run(ctx context.Context, interval, timeout time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.mu.Lock()
			now := g.now()
			g.mu.Unlock()

			if n := g.SweepStale(now, timeout); n > 0 && g.OnSweep != nil {
				g.OnSweep(n)
			}
		}
	}
}

// Lease is the right to release one specific acquisition.
type Lease struct {
	g      *Guard
	chatID int64
	seq    uint64
	once   sync.Once
}

func (l *Lease) ChatID() int64 {
	return l.chatID
}

// Release marks the chat idle if the entry is still the one this lease
// created. After a sweep has removed it, or a newer generation took its
// place, Release is a no-op. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.g.mu.Lock()
		defer l.g.mu.Unlock()
		if e, ok := l.g.entries[l.chatID]; ok && e.seq == l.seq {
			delete(l.g.entries, l.chatID)
		}
	})
}
