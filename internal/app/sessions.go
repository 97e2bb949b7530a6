package app

import (
	"context"
	"slices"
	"time"

	"github.com/deusflow/devbot/internal/cache"
)

// session remembers which topic menu a chat is looking at.
type session struct {
	mode   *flow
	topics []string
}

func (s session) offers(text string) bool {
	return slices.Contains(s.topics, text)
}

// sessions wraps the TTL cache so abandoned menus expire on their own.
type sessions struct {
	c *cache.Cache[int64, session]
}

func newSessions(ttl time.Duration) *sessions {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &sessions{c: cache.New[int64, session](ttl)}
}

func (s *sessions) get(chatID int64) (session, bool) {
	return s.c.Get(chatID)
}

func (s *sessions) set(chatID int64, f *flow, topics []string) {
	s.c.Set(chatID, session{mode: f, topics: topics})
}

func (s *sessions) clear(chatID int64) {
	s.c.Delete(chatID)
}

func (s *sessions) run(ctx context.Context, interval time.Duration) {
	s.c.Run(ctx, interval)
}
