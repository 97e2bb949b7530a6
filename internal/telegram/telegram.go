// Package telegram is the chat transport: outgoing messages and quiz polls
// with retries, and the long-polling update loop.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/deusflow/devbot/internal/retry"
)

// MaxMessageRunes is Telegram's text limit for one message.
const MaxMessageRunes = 4096

// Options controls how a text message is rendered.
type Options struct {
	Markdown bool
	// Keyboard rows shown as a resizable reply keyboard. Nil keeps the current one.
	Keyboard [][]string
}

// Poll is an anonymous quiz poll.
type Poll struct {
	Question      string
	Options       []string
	CorrectOption int
	Explanation   string
}

// Update is an incoming text message.
type Update struct {
	ChatID   int64
	Username string
	Text     string
}

type Client struct {
	api   *tgbotapi.BotAPI
	retry retry.RetryConfig
	log   *slog.Logger
}

func New(token string, log *slog.Logger) (*Client, error) {
	return NewWithEndpoint(token, tgbotapi.APIEndpoint, &http.Client{}, log)
}

// NewWithEndpoint talks to a custom Bot API endpoint, e.g. a local server.
// endpoint keeps the library format "<base>/bot%s/%s".
func NewWithEndpoint(token, endpoint string, httpClient *http.Client, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	log.Info("Telegram bot authorized", "username", api.Self.UserName)
	return &Client{api: api, retry: retry.TelegramConfig, log: log}, nil
}

func (c *Client) Username() string {
	return c.api.Self.UserName
}

// Send delivers text, splitting it when it exceeds the message limit. The
// keyboard is attached to the last part. A Markdown message Telegram refuses
// to parse is resent as plain text.
func (c *Client) Send(ctx context.Context, chatID int64, text string, opts Options) error {
	parts := Split(text, MaxMessageRunes)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.DisableWebPagePreview = true
		if opts.Markdown {
			msg.ParseMode = tgbotapi.ModeMarkdown
		}
		if i == len(parts)-1 && opts.Keyboard != nil {
			msg.ReplyMarkup = keyboard(opts.Keyboard)
		}

		err := c.send(ctx, msg)
		if err != nil && opts.Markdown && isParseError(err) {
			c.log.Warn("Markdown rejected, resending as plain text", "chat_id", chatID, "err", err)
			msg.ParseMode = ""
			err = c.send(ctx, msg)
		}
		if err != nil {
			return fmt.Errorf("send message to %d: %w", chatID, err)
		}
	}
	return nil
}

func (c *Client) SendPoll(ctx context.Context, chatID int64, poll Poll) error {
	cfg := tgbotapi.NewPoll(chatID, poll.Question, poll.Options...)
	cfg.Type = "quiz"
	cfg.IsAnonymous = true
	cfg.CorrectOptionID = int64(poll.CorrectOption)
	cfg.Explanation = poll.Explanation

	if err := c.send(ctx, cfg); err != nil {
		return fmt.Errorf("send poll to %d: %w", chatID, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, msg tgbotapi.Chattable) error {
	attempt := 0
	return retry.WithRetry(ctx, c.retry, func() error {
		attempt++
		_, err := c.api.Send(msg)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return retry.Permanent(err)
		}
		c.log.Warn("Error send to Telegram", "attempt", attempt, "max", c.retry.MaxAttempts, "err", err)
		return err
	})
}

// Listen long-polls for updates and hands every text message to handle until
// ctx is cancelled. handle must not block for long.
func (c *Client) Listen(ctx context.Context, handle func(Update)) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.api.GetUpdatesChan(u)
	c.log.Info("Waiting for updates")

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			c.log.Info("Stopped receiving updates")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if ev, ok := toUpdate(update); ok {
				handle(ev)
			}
		}
	}
}

func toUpdate(update tgbotapi.Update) (Update, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return Update{}, false
	}
	ev := Update{ChatID: msg.Chat.ID, Text: msg.Text}
	if msg.From != nil {
		ev.Username = msg.From.UserName
	}
	return ev, true
}

func keyboard(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	buttons := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			r = append(r, tgbotapi.NewKeyboardButton(label))
		}
		buttons = append(buttons, tgbotapi.NewKeyboardButtonRow(r...))
	}
	kb := tgbotapi.NewReplyKeyboard(buttons...)
	kb.ResizeKeyboard = true
	return kb
}

// Client errors other than flood control will fail the same way again.
func retryable(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return true
}

func isParseError(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest &&
		strings.Contains(apiErr.Message, "parse entities")
}

// Split cuts text into parts of at most limit runes, preferring line breaks.
func Split(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
