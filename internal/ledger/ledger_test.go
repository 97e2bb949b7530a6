package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	loaded  []string
	loadErr error
	saveErr error
	saves   [][]string
}

func (m *memStore) Load(_ context.Context) ([]string, error) {
	return m.loaded, m.loadErr
}

func (m *memStore) Save(_ context.Context, topics []string) error {
	m.saves = append(m.saves, topics)
	return m.saveErr
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSimilarity(t *testing.T) {
	require.InDelta(t, 2.0/3.0, Similarity("abc", "abd"), 1e-9)
	require.Equal(t, 1.0, Similarity("Hello!", "hello"))
	require.Equal(t, 0.0, Similarity("", "anything"))
	require.Equal(t, 0.0, Similarity("anything", ""))
	require.Equal(t, 0.0, Similarity("!!!", "???"))
}

func TestSimilarity_PositionalNotEditDistance(t *testing.T) {
	// one inserted rune shifts every following position
	require.Less(t, Similarity("xabcdef", "abcdef"), 0.2)
	// shared prefix on short strings dominates
	require.InDelta(t, 0.75, Similarity("abcd", "abce"), 1e-9)
	// divided by the longer length
	require.InDelta(t, 0.5, Similarity("ab", "abcd"), 1e-9)
}

func TestSimilarity_UnicodeAware(t *testing.T) {
	require.Equal(t, 1.0, Similarity("🌀 Ідея Б", "ідея б!!"))
	require.Equal(t, 1.0, Similarity("Задача №1", "задача 1"))
}

func TestIsDuplicate(t *testing.T) {
	ctx := context.Background()
	l := New(ctx, &memStore{}, 0, quietLogger())
	require.NoError(t, l.Record(ctx, "🌀 Idea B"))

	require.True(t, l.IsDuplicate("🌀 idea b!!"))
	require.False(t, l.IsDuplicate("🌀 Completely Different"))
	require.False(t, l.IsDuplicate(""))
	require.False(t, l.IsDuplicate("🌀🌀"))
}

func TestIsDuplicate_EmptyStoredTopicNeverMatches(t *testing.T) {
	ctx := context.Background()
	l := New(ctx, &memStore{loaded: []string{"", "💥"}}, 0, quietLogger())
	require.False(t, l.IsDuplicate("anything"))
}

func TestRecord_BoundedAndOrdered(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	l := New(ctx, store, DefaultMaxTopics, quietLogger())

	for i := 0; i <= DefaultMaxTopics; i++ {
		require.NoError(t, l.Record(ctx, fmt.Sprintf("topic %d", i)))
		require.LessOrEqual(t, l.Len(), DefaultMaxTopics)
	}

	topics := l.Topics()
	require.Len(t, topics, DefaultMaxTopics)
	require.NotContains(t, topics, "topic 0")
	for i, topic := range topics {
		require.Equal(t, fmt.Sprintf("topic %d", i+1), topic)
	}

	// every append rewrites the whole list
	require.Len(t, store.saves, DefaultMaxTopics+1)
	require.Equal(t, topics, store.saves[len(store.saves)-1])
}

func TestRecord_KeepsRawText(t *testing.T) {
	ctx := context.Background()
	l := New(ctx, &memStore{}, 0, quietLogger())
	require.NoError(t, l.Record(ctx, "  🌀 Idea A!  "))
	require.Equal(t, []string{"  🌀 Idea A!  "}, l.Topics())
}

func TestRecord_SaveFailureKeepsTopicInMemory(t *testing.T) {
	ctx := context.Background()
	store := &memStore{saveErr: errors.New("disk full")}
	l := New(ctx, store, 0, quietLogger())

	err := l.Record(ctx, "idea")
	require.Error(t, err)
	require.ErrorIs(t, err, store.saveErr)
	require.True(t, l.IsDuplicate("idea"))
}

func TestNew_LoadFailureStartsEmpty(t *testing.T) {
	l := New(context.Background(), &memStore{loadErr: errors.New("corrupt")}, 0, quietLogger())
	require.Zero(t, l.Len())
}

func TestNew_TrimsOversizedHistory(t *testing.T) {
	l := New(context.Background(), &memStore{loaded: []string{"a", "b", "c"}}, 2, quietLogger())
	require.Equal(t, []string{"b", "c"}, l.Topics())
}

func TestTryRecord(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	l := New(ctx, store, 0, quietLogger())

	ok, err := l.TryRecord(ctx, "Vue composables")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.TryRecord(ctx, "vue composables?")
	require.NoError(t, err)
	require.False(t, ok)
	require.Len(t, store.saves, 1)
}

func TestClosest(t *testing.T) {
	ctx := context.Background()
	l := New(ctx, &memStore{loaded: []string{"abcd", "wxyz"}}, 0, quietLogger())

	topic, score := l.Closest("abce")
	require.Equal(t, "abcd", topic)
	require.InDelta(t, 0.75, score, 1e-9)
}
