package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deusflow/devbot/internal/generation"
	"github.com/deusflow/devbot/internal/guard"
	"github.com/deusflow/devbot/internal/ledger"
	"github.com/deusflow/devbot/internal/llm"
	"github.com/deusflow/devbot/internal/prompts"
	"github.com/deusflow/devbot/internal/telegram"
)

const chat = int64(42)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sent struct {
	text string
	opts telegram.Options
}

type fakeMessenger struct {
	mu       sync.Mutex
	messages []sent
	polls    []telegram.Poll
	failNext int
}

func (m *fakeMessenger) Send(_ context.Context, _ int64, text string, opts telegram.Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext > 0 {
		m.failNext--
		return errors.New("telegram down")
	}
	m.messages = append(m.messages, sent{text: text, opts: opts})
	return nil
}

func (m *fakeMessenger) SendPoll(_ context.Context, _ int64, poll telegram.Poll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls = append(m.polls, poll)
	return nil
}

func (m *fakeMessenger) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.messages))
	for _, s := range m.messages {
		out = append(out, s.text)
	}
	return out
}

func (m *fakeMessenger) last() sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages[len(m.messages)-1]
}

// routes answers by a fragment of the rendered prompt.
type routes map[string]string

func (r routes) generator() llm.Generator {
	return llm.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		for fragment, answer := range r {
			if strings.Contains(prompt, fragment) {
				return answer, nil
			}
		}
		return "", errors.New("unexpected prompt: " + prompt)
	})
}

const (
	blogTopicsPrompt   = "креативних ідей"
	blogPostPrompt     = "великий телеграм-пост"
	taskTopicsPrompt   = "практичних задач"
	quizTopicsPrompt   = "для вікторин"
	quizQuestionPrompt = "QUESTION:"
	quizPostPrompt     = "навчального поста"
	quotePrompt        = "дотепну цитату"
)

type fixture struct {
	app       *App
	messenger *fakeMessenger
	ledger    *ledger.Ledger
	guard     *guard.Guard
}

func newFixture(t *testing.T, gen llm.Generator, opts ...func(*Deps)) *fixture {
	t.Helper()
	ctx := context.Background()

	l := ledger.New(ctx, nil, 0, quiet())
	g := guard.New(quiet())
	producer, err := generation.NewProducer(gen, l, 3, quiet())
	require.NoError(t, err)
	set, err := prompts.Default()
	require.NoError(t, err)

	m := &fakeMessenger{}
	d := Deps{
		Messenger: m,
		Producer:  producer,
		Runner:    generation.NewRunner(g, quiet()),
		History:   l,
		Prompts:   set,
		Log:       quiet(),
	}
	for _, o := range opts {
		o(&d)
	}
	a, err := New(d)
	require.NoError(t, err)
	return &fixture{app: a, messenger: m, ledger: l, guard: g}
}

func (f *fixture) send(t *testing.T, text string) *generation.Task {
	t.Helper()
	return f.app.HandleUpdate(context.Background(), telegram.Update{ChatID: chat, Username: "dev", Text: text})
}

func (f *fixture) run(t *testing.T, text string) error {
	t.Helper()
	task := f.send(t, text)
	require.NotNil(t, task, "expected %q to start a generation", text)
	return task.Wait()
}

func TestStart_ShowsMainMenu(t *testing.T) {
	f := newFixture(t, routes{}.generator())

	require.Nil(t, f.send(t, "/start"))
	last := f.messenger.last()
	require.Equal(t, msgGreeting, last.text)
	require.Equal(t, mainMenu(), last.opts.Keyboard)
}

func TestAccessDenied(t *testing.T) {
	f := newFixture(t, routes{}.generator(), func(d *Deps) {
		d.IsAllowed = func(u string) bool { return u == "owner" }
	})

	require.Nil(t, f.send(t, BtnQuote))
	require.Equal(t, []string{msgDenied}, f.messenger.texts())
	require.Zero(t, f.guard.Len())
}

func TestBlogFlow(t *testing.T) {
	f := newFixture(t, routes{
		blogTopicsPrompt: "1) 🚀 Vue 4 без болю\n2) 🧠 TypeScript для джунів\n",
		blogPostPrompt:   "**Vue 4** це просто\n\n\n\nПочнемо!",
	}.generator())

	require.NoError(t, f.run(t, BtnBlog))
	menu := f.messenger.last()
	require.Equal(t, blogFlow.choose, menu.text)
	require.Equal(t, [][]string{
		{"🚀 Vue 4 без болю", "🧠 TypeScript для джунів"},
		{BtnRegenBlog},
		{BtnBack},
	}, menu.opts.Keyboard)
	require.Zero(t, f.ledger.Len(), "offered topics are not history yet")

	require.NoError(t, f.run(t, "🚀 Vue 4 без болю"))
	post := f.messenger.last()
	require.Equal(t, "Vue 4 це просто\n\nПочнемо!", post.text)
	require.Equal(t, mainMenu(), post.opts.Keyboard)
	require.Equal(t, []string{"🚀 Vue 4 без болю"}, f.ledger.Topics())

	// the menu is gone once the post is delivered
	require.Nil(t, f.send(t, "🧠 TypeScript для джунів"))
	require.Zero(t, f.guard.Len())
}

func TestTopics_NothingFresh(t *testing.T) {
	f := newFixture(t, routes{taskTopicsPrompt: "1) 🧮 Сума масиву"}.generator())
	require.NoError(t, f.ledger.Record(context.Background(), "🧮 Сума масиву"))

	require.NoError(t, f.run(t, BtnTask))
	require.Equal(t, taskFlow.noTopics, f.messenger.last().text)

	_, ok := f.app.sessions.get(chat)
	require.False(t, ok)
}

func TestQuizFlow(t *testing.T) {
	f := newFixture(t, routes{
		quizTopicsPrompt: "1) ❓ Event loop",
		quizQuestionPrompt: "QUESTION: Що виведе typeof null?\nOPTIONS:\n1) null\n2) object\n3) undefined\n4) number\n" +
			"CORRECT: 2\nEXPLANATION: Історична помилка JS",
		quizPostPrompt: "typeof null повертає object",
	}.generator())

	require.NoError(t, f.run(t, BtnQuiz))
	keyboard := f.messenger.last().opts.Keyboard
	require.Equal(t, []string{"❓ Event loop", quizPlaceholders[0]}, keyboard[0])
	require.Len(t, keyboard, 5, "padded to five topics plus two control rows")

	require.NoError(t, f.run(t, quizPlaceholders[1]))
	require.Len(t, f.messenger.polls, 1)
	poll := f.messenger.polls[0]
	require.Equal(t, "Що виведе typeof null?", poll.Question)
	require.Equal(t, 1, poll.CorrectOption)
	require.Len(t, poll.Options, 4)
	require.Equal(t, "typeof null повертає object", f.messenger.last().text)
	require.Equal(t, []string{quizPlaceholders[1]}, f.ledger.Topics())
}

func TestQuizFlow_MalformedQuestion(t *testing.T) {
	f := newFixture(t, routes{
		quizTopicsPrompt:   "1) ❓ Event loop",
		quizQuestionPrompt: "QUESTION: Лише два варіанти\nOPTIONS:\n1) так\n2) ні\nCORRECT: 1",
	}.generator())

	require.NoError(t, f.run(t, BtnQuiz))
	require.NoError(t, f.run(t, "❓ Event loop"))
	require.Empty(t, f.messenger.polls)
	require.Equal(t, msgQuizFailed, f.messenger.last().text)
	require.Zero(t, f.ledger.Len())
}

func TestQuote_RecordedAndExhausted(t *testing.T) {
	f := newFixture(t, routes{quotePrompt: "☕ Спочатку кава, потім код"}.generator())

	require.NoError(t, f.run(t, BtnQuote))
	last := f.messenger.last()
	require.Equal(t, "💬 **Цитата розробника:**\n\n☕ Спочатку кава, потім код", last.text)
	require.True(t, last.opts.Markdown)
	require.Equal(t, 1, f.ledger.Len())

	require.NoError(t, f.run(t, BtnQuote))
	require.Equal(t, msgQuoteExhausted, f.messenger.last().text)
	require.Equal(t, 1, f.ledger.Len())
}

func TestBusyChatIsRejected(t *testing.T) {
	release := make(chan struct{})
	gen := llm.GeneratorFunc(func(ctx context.Context, _ string) (string, error) {
		<-release
		return "🌀 Idea", nil
	})
	f := newFixture(t, gen)

	first := f.send(t, BtnQuote)
	require.NotNil(t, first)
	require.Nil(t, f.send(t, BtnStory))

	close(release)
	require.NoError(t, first.Wait())
	require.Contains(t, f.messenger.texts(), msgBusy)

	// admitted again once the first generation is over
	require.NoError(t, f.run(t, BtnStory))
}

func TestFailedJobReportsAndReleases(t *testing.T) {
	f := newFixture(t, routes{quotePrompt: "🤖 Код без тестів"}.generator())
	f.messenger.failNext = 1

	require.Error(t, f.run(t, BtnQuote))
	require.Equal(t, msgCritical, f.messenger.last().text)
	require.False(t, f.guard.Busy(chat))
}

func TestRegenerateOnlyInMatchingMode(t *testing.T) {
	f := newFixture(t, routes{blogTopicsPrompt: "1) 🚀 Vue 4 без болю"}.generator())

	require.Nil(t, f.send(t, BtnRegenBlog), "no menu open yet")
	require.NoError(t, f.run(t, BtnBlog))
	require.Nil(t, f.send(t, BtnRegenTask))
	require.NoError(t, f.run(t, BtnRegenBlog))
}

func TestBack_ClearsSession(t *testing.T) {
	f := newFixture(t, routes{blogTopicsPrompt: "1) 🚀 Vue 4 без болю"}.generator())
	require.NoError(t, f.run(t, BtnBlog))

	require.Nil(t, f.send(t, BtnBack))
	require.Equal(t, msgMenu, f.messenger.last().text)
	require.Nil(t, f.send(t, "🚀 Vue 4 без болю"))
}

func TestHeadlinesFeedBlogPrompt(t *testing.T) {
	var seen string
	gen := llm.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		seen = prompt
		return "1) 🚀 Node 24", nil
	})
	f := newFixture(t, gen, func(d *Deps) { d.Headlines = staticHeadlines{"Node 24 LTS released"} })

	require.NoError(t, f.run(t, BtnBlog))
	require.Contains(t, seen, "Node 24 LTS released")
}

type staticHeadlines []string

func (s staticHeadlines) Latest(context.Context) []string { return s }

func TestTopicsMenu(t *testing.T) {
	require.Equal(t, [][]string{{"a", "b"}, {"c"}, {"r"}, {BtnBack}}, topicsMenu([]string{"a", "b", "c"}, "r"))
}

func TestPad(t *testing.T) {
	require.Equal(t, []string{"x", "a", "b"}, pad([]string{"x"}, []string{"a", "b", "c"}, 3))
	require.Equal(t, []string{"a"}, pad([]string{"a"}, []string{"a"}, 3))
	require.Equal(t, []string{"x"}, pad([]string{"x"}, nil, 3))
}
