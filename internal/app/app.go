// Package app is the chat flow of the bot: menus, access control and the
// generation jobs started from them.
package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/devbot/internal/generation"
	"github.com/deusflow/devbot/internal/prompts"
	"github.com/deusflow/devbot/internal/telegram"
)

// Messenger is the chat output.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, opts telegram.Options) error
	SendPoll(ctx context.Context, chatID int64, poll telegram.Poll) error
}

// History records topics whose content has been delivered.
type History interface {
	Record(ctx context.Context, topic string) error
}

// Headlines supplies inspiration for blog topics.
type Headlines interface {
	Latest(ctx context.Context) []string
}

type Deps struct {
	Messenger Messenger
	Producer  *generation.Producer
	Runner    *generation.Runner
	History   History
	Prompts   *prompts.Set
	Headlines Headlines // optional

	// IsAllowed gates every update; nil allows everyone.
	IsAllowed      func(username string) bool
	TopicsPerBatch int
	SessionTTL     time.Duration
	// JobTimeout bounds a single generation job; zero means no bound.
	JobTimeout time.Duration
	Log        *slog.Logger
}

type App struct {
	messenger      Messenger
	producer       *generation.Producer
	runner         *generation.Runner
	history        History
	prompts        *prompts.Set
	headlines      Headlines
	isAllowed      func(string) bool
	topicsPerBatch int
	jobTimeout     time.Duration
	sessions       *sessions
	log            *slog.Logger
}

func New(d Deps) (*App, error) {
	switch {
	case d.Messenger == nil:
		return nil, errors.New("app: messenger is required")
	case d.Producer == nil:
		return nil, errors.New("app: producer is required")
	case d.Runner == nil:
		return nil, errors.New("app: runner is required")
	case d.History == nil:
		return nil, errors.New("app: history is required")
	case d.Prompts == nil:
		return nil, errors.New("app: prompts are required")
	}
	if d.TopicsPerBatch <= 0 {
		d.TopicsPerBatch = 5
	}
	if d.IsAllowed == nil {
		d.IsAllowed = func(string) bool { return true }
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &App{
		messenger:      d.Messenger,
		producer:       d.Producer,
		runner:         d.Runner,
		history:        d.History,
		prompts:        d.Prompts,
		headlines:      d.Headlines,
		isAllowed:      d.IsAllowed,
		topicsPerBatch: d.TopicsPerBatch,
		jobTimeout:     d.JobTimeout,
		sessions:       newSessions(d.SessionTTL),
		log:            d.Log,
	}, nil
}

// Run expires abandoned topic menus until ctx is cancelled.
func (a *App) Run(ctx context.Context, interval time.Duration) {
	a.sessions.run(ctx, interval)
}

// HandleUpdate reacts to one incoming message. It returns the started
// generation task, or nil when the message started none (menu navigation,
// refused access, busy chat, unknown text). It does not wait for the task.
func (a *App) HandleUpdate(ctx context.Context, u telegram.Update) *generation.Task {
	log := a.log.With("chat_id", u.ChatID)

	if !a.isAllowed(u.Username) {
		log.Info("access denied", "username", u.Username)
		a.reply(ctx, u.ChatID, msgDenied, withMenu(false))
		return nil
	}

	text := strings.TrimSpace(u.Text)
	switch text {
	case CmdStart:
		a.sessions.clear(u.ChatID)
		a.reply(ctx, u.ChatID, msgGreeting, withMenu(false))
		return nil
	case BtnBack:
		a.sessions.clear(u.ChatID)
		a.reply(ctx, u.ChatID, msgMenu, withMenu(false))
		return nil
	case BtnBlog:
		return a.startTopics(ctx, u.ChatID, blogFlow)
	case BtnTask:
		return a.startTopics(ctx, u.ChatID, taskFlow)
	case BtnQuiz:
		return a.startTopics(ctx, u.ChatID, quizFlow)
	case BtnQuote:
		return a.protected(ctx, u.ChatID, "quote", func(ctx context.Context) error {
			return a.single(ctx, u.ChatID, prompts.Quote, msgQuoteWorking, msgQuote, msgQuoteExhausted)
		})
	case BtnStory:
		return a.protected(ctx, u.ChatID, "story", func(ctx context.Context) error {
			return a.single(ctx, u.ChatID, prompts.Story, msgStoryWorking, msgStory, msgStoryExhausted)
		})
	}

	s, ok := a.sessions.get(u.ChatID)
	if !ok {
		log.Debug("ignoring message outside of a menu")
		return nil
	}
	if text == s.mode.regenerate {
		return a.startTopics(ctx, u.ChatID, s.mode)
	}
	if s.offers(text) {
		f := s.mode
		return a.protected(ctx, u.ChatID, f.postKind(), func(ctx context.Context) error {
			return a.writePost(ctx, u.ChatID, f, text)
		})
	}
	// A regenerate button of another menu does nothing.
	return nil
}

func (a *App) startTopics(ctx context.Context, chatID int64, f *flow) *generation.Task {
	return a.protected(ctx, chatID, f.topicsKind(), func(ctx context.Context) error {
		return a.offerTopics(ctx, chatID, f)
	})
}

// protected runs job in the background unless the chat already has a
// generation running. A failed job is reported to the chat.
func (a *App) protected(ctx context.Context, chatID int64, kind string, job generation.Job) *generation.Task {
	task, ok := a.runner.Submit(ctx, chatID, kind, func(ctx context.Context) error {
		if a.jobTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.jobTimeout)
			defer cancel()
		}

		// the job context may be the reason it failed
		notify := func() { a.reply(context.WithoutCancel(ctx), chatID, msgCritical, telegram.Options{}) }
		defer func() {
			if rec := recover(); rec != nil {
				notify()
				panic(rec)
			}
		}()

		err := job(ctx)
		if err != nil {
			notify()
		}
		return err
	})
	if !ok {
		a.reply(ctx, chatID, msgBusy, telegram.Options{Markdown: true})
		return nil
	}
	return task
}

// say sends a message and returns the error to the running job.
func (a *App) say(ctx context.Context, chatID int64, text string, opts telegram.Options) error {
	return a.messenger.Send(ctx, chatID, text, opts)
}

// reply sends a message outside of a job; failures are only logged.
func (a *App) reply(ctx context.Context, chatID int64, text string, opts telegram.Options) {
	if err := a.messenger.Send(ctx, chatID, text, opts); err != nil {
		a.log.Error("Error send to Telegram", "chat_id", chatID, "err", err)
	}
}
