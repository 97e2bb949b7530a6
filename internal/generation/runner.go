package generation

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/devbot/internal/guard"
	"github.com/deusflow/devbot/internal/metrics"
)

// Job is one content generation for a chat.
type Job func(ctx context.Context) error

// Task is a submitted Job. Done is closed when the job has returned and the
// chat's guard entry has been released.
type Task struct {
	ID        string
	ChatID    int64
	Kind      string
	StartedAt time.Time

	done chan struct{}
	err  error
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the job finished and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Runner starts jobs in the background, at most one per chat.
type Runner struct {
	guard   *guard.Guard
	metrics *metrics.Metrics
	log     *slog.Logger
	wg      sync.WaitGroup
}

func NewRunner(g *guard.Guard, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{guard: g, metrics: metrics.Global, log: log}
}

// Submit admits or rejects job synchronously. When the chat already has a
// generation running it returns false and job is not started. Otherwise job
// runs on its own goroutine and the guard entry is released on every exit
// path, panics included.
func (r *Runner) Submit(ctx context.Context, chatID int64, kind string, job Job) (*Task, bool) {
	lease, ok := r.guard.Acquire(chatID, kind)
	if !ok {
		r.metrics.IncrementGenerationsRejected()
		r.log.Info("⏳ generation rejected, chat busy", "chat_id", chatID, "kind", kind)
		return nil, false
	}

	t := &Task{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Kind:      kind,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}
	r.metrics.IncrementGenerationsStarted()
	r.log.Debug("generation started", "task_id", t.ID, "chat_id", chatID, "kind", kind)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(t.done)
		defer lease.Release()

		t.err = r.run(ctx, t, job)

		elapsed := time.Since(t.StartedAt)
		r.metrics.RecordGeneration(elapsed)
		if t.err != nil {
			r.metrics.SetError(t.err.Error())
			r.log.Error("❌ generation failed", "task_id", t.ID, "chat_id", chatID, "kind", kind, "err", t.err)
			return
		}
		r.log.Info("generation finished", "task_id", t.ID, "chat_id", chatID, "kind", kind, "elapsed", elapsed.Round(time.Millisecond))
	}()

	return t, true
}

func (r *Runner) run(ctx context.Context, t *Task, job Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic in generation", "task_id", t.ID, "panic", rec, "stack", string(debug.Stack()))
			err = fmt.Errorf("generation panicked: %v", rec)
		}
	}()
	return job(ctx)
}

// Wait blocks until every submitted job has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
