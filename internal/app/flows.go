package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/deusflow/devbot/internal/generation"
	"github.com/deusflow/devbot/internal/metrics"
	"github.com/deusflow/devbot/internal/prompts"
	"github.com/deusflow/devbot/internal/quiz"
	"github.com/deusflow/devbot/internal/telegram"
)

// flow is a two-step content type: pick one of several offered topics, then
// get the content for it.
type flow struct {
	name         string
	topicsPrompt string
	postPrompt   string
	regenerate   string
	placeholders []string // pads a short topic list instead of giving up
	headlines    bool     // enrich the topics prompt with feed headlines

	working  string // %d = number of topics
	choose   string
	noTopics string
	picked   string // %s = topic
	writing  string
	failed   string
}

var (
	blogFlow = &flow{
		name:         "blog",
		topicsPrompt: prompts.BlogTopics,
		postPrompt:   prompts.BlogPost,
		regenerate:   BtnRegenBlog,
		headlines:    true,
		working:      "🌀 Генерую %d унікальних ідей для блогу...",
		choose:       "Обери тему для блогу:",
		noTopics:     "⚠️ Не вдалося знайти нових тем 😅",
		picked:       "✨ **Ідея для блогу:**\n\n%s",
		writing:      "✍️ Генерую повний блог-пост...",
		failed:       "⚠️ Не вдалося створити пост. Спробуй ще раз пізніше 😔",
	}
	taskFlow = &flow{
		name:         "task",
		topicsPrompt: prompts.TaskTopics,
		postPrompt:   prompts.TaskPost,
		regenerate:   BtnRegenTask,
		working:      "⚙️ Генерую %d унікальних JS-задач...",
		choose:       "Обери задачу:",
		noTopics:     "⚠️ Не вдалося знайти нових задач 😅",
		picked:       "🎯 **Вибрана задача:** %s",
		writing:      "🔧 Генерую деталі задачі...",
		failed:       "⚠️ Не вдалося створити задачу. Спробуй ще раз пізніше 😔",
	}
	quizFlow = &flow{
		name:         "quiz",
		topicsPrompt: prompts.QuizTopics,
		postPrompt:   prompts.QuizQuestion,
		regenerate:   BtnRegenQuiz,
		placeholders: quizPlaceholders,
		working:      "🔄 Генерую %d унікальних тем для вікторин...",
		choose:       "Обери тему вікторини:",
		picked:       msgQuizPick,
		writing:      msgQuizWorking,
		failed:       msgQuizFailed,
	}
)

func (f *flow) topicsKind() string { return f.name + "_topics" }
func (f *flow) postKind() string   { return f.name + "_post" }

// offerTopics asks for fresh topics and shows them as a keyboard.
func (a *App) offerTopics(ctx context.Context, chatID int64, f *flow) error {
	n := a.topicsPerBatch
	if err := a.say(ctx, chatID, fmt.Sprintf(f.working, n), telegram.Options{}); err != nil {
		return err
	}

	data := prompts.Data{Count: n}
	if f.headlines && a.headlines != nil {
		data.Headlines = a.headlines.Latest(ctx)
	}
	prompt, err := a.prompts.Render(f.topicsPrompt, data)
	if err != nil {
		return err
	}

	topics, err := a.producer.Topics(ctx, prompt, n)
	if err != nil && !errors.Is(err, generation.ErrExhausted) {
		return err
	}
	topics = pad(topics, f.placeholders, n)

	if len(topics) == 0 {
		a.log.Info("no fresh topics", "chat_id", chatID, "flow", f.name)
		return a.say(ctx, chatID, f.noTopics, withMenu(false))
	}

	a.sessions.set(chatID, f, topics)
	return a.say(ctx, chatID, f.choose, telegram.Options{Keyboard: topicsMenu(topics, f.regenerate)})
}

func pad(topics, placeholders []string, n int) []string {
	for _, p := range placeholders {
		if len(topics) >= n {
			break
		}
		if !slices.Contains(topics, p) {
			topics = append(topics, p)
		}
	}
	return topics
}

// writePost produces the content for a chosen topic. The topic enters the
// history only once the content has been delivered.
func (a *App) writePost(ctx context.Context, chatID int64, f *flow, topic string) error {
	if err := a.say(ctx, chatID, fmt.Sprintf(f.picked, topic), telegram.Options{Markdown: true}); err != nil {
		return err
	}
	if err := a.say(ctx, chatID, f.writing, telegram.Options{}); err != nil {
		return err
	}

	if f == quizFlow {
		return a.writeQuiz(ctx, chatID, topic)
	}

	prompt, err := a.prompts.Render(f.postPrompt, prompts.Data{Topic: topic})
	if err != nil {
		return err
	}
	post, err := a.producer.Text(ctx, prompt)
	if errors.Is(err, generation.ErrExhausted) {
		return a.say(ctx, chatID, f.failed, withMenu(false))
	}
	if err != nil {
		return err
	}

	a.remember(ctx, topic)
	a.sessions.clear(chatID)
	if err := a.say(ctx, chatID, post, withMenu(false)); err != nil {
		return err
	}
	metrics.Global.IncrementContentDelivered()
	return nil
}

// writeQuiz sends a quiz poll followed by a short educational post.
func (a *App) writeQuiz(ctx context.Context, chatID int64, topic string) error {
	prompt, err := a.prompts.Render(prompts.QuizQuestion, prompts.Data{Topic: topic})
	if err != nil {
		return err
	}
	q, err := generation.Attempt(ctx, a.producer, prompt, func(raw string) (quiz.Quiz, bool) {
		q, err := quiz.Parse(raw)
		if err != nil {
			a.log.Debug("quiz rejected", "chat_id", chatID, "err", err)
			return quiz.Quiz{}, false
		}
		return q, true
	})
	if errors.Is(err, generation.ErrExhausted) {
		return a.say(ctx, chatID, msgQuizFailed, withMenu(false))
	}
	if err != nil {
		return err
	}

	poll := telegram.Poll{Question: q.Question, Options: q.Options, CorrectOption: q.Correct, Explanation: q.Explanation}
	if err := a.messenger.SendPoll(ctx, chatID, poll); err != nil {
		return err
	}

	a.remember(ctx, topic)
	a.sessions.clear(chatID)
	metrics.Global.IncrementContentDelivered()

	postPrompt, err := a.prompts.Render(prompts.QuizPost, prompts.Data{Topic: topic, Question: q.Question})
	if err != nil {
		return err
	}
	post, err := a.producer.Text(ctx, postPrompt)
	if err != nil {
		if !errors.Is(err, generation.ErrExhausted) {
			a.log.Warn("quiz post not generated", "chat_id", chatID, "err", err)
		}
		return a.say(ctx, chatID, msgQuizCreated, withMenu(false))
	}
	return a.say(ctx, chatID, post, withMenu(false))
}

// single produces a one-shot text that must not repeat the history, such as
// a quote or a story.
func (a *App) single(ctx context.Context, chatID int64, promptName, working, format, exhausted string) error {
	if err := a.say(ctx, chatID, working, telegram.Options{}); err != nil {
		return err
	}
	prompt, err := a.prompts.Render(promptName, prompts.Data{})
	if err != nil {
		return err
	}

	text, err := a.producer.Unique(ctx, prompt)
	if errors.Is(err, generation.ErrExhausted) {
		return a.say(ctx, chatID, exhausted, telegram.Options{})
	}
	if err != nil {
		return err
	}

	if err := a.say(ctx, chatID, fmt.Sprintf(format, text), telegram.Options{Markdown: true}); err != nil {
		return err
	}
	metrics.Global.IncrementContentDelivered()
	return nil
}

// remember records a delivered topic. A failed write leaves the topic in
// memory and is only logged.
func (a *App) remember(ctx context.Context, topic string) {
	if err := a.history.Record(ctx, topic); err != nil {
		metrics.Global.IncrementLedgerSaveErrors()
		a.log.Warn("⚠️ topic history not persisted", "topic", topic, "err", err)
	}
}
