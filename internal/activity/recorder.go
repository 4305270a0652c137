// Package activity writes the user_activity audit log off the request path.
package activity

import (
	"context"
	"sync"
	"time"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"

	"github.com/rs/zerolog"
)

type Options struct {
	QueueSize    int
	WriteTimeout time.Duration
}

// Recorder queues activity entries and writes them from a background
// goroutine. Record never blocks and never reports failure to its caller:
// a full queue drops the entry, a failed write is logged and discarded.
type Recorder struct {
	repo         repository.ActivityRepository
	queue        chan model.Activity
	writeTimeout time.Duration
	log          zerolog.Logger
	now          func() time.Time

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewRecorder(repo repository.ActivityRepository, opts Options, log zerolog.Logger) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &Recorder{
		repo:         repo,
		queue:        make(chan model.Activity, opts.QueueSize),
		writeTimeout: opts.WriteTimeout,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
		done:         make(chan struct{}),
	}
}

// Start launches the writer. Call it once.
func (r *Recorder) Start() {
	go r.run()
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.queue {
		r.write(entry)
	}
}

func (r *Recorder) write(entry model.Activity) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Str("action", entry.Action).Msg("activity write panicked")
		}
	}()

	if err := r.repo.Create(ctx, &entry); err != nil {
		r.log.Warn().Err(err).Str("action", entry.Action).Str("user_id", entry.UserID).Msg("activity write failed, entry discarded")
	}
}

// Record queues one audit entry for actor.
func (r *Recorder) Record(actor model.Actor, action, details string) {
	entry := model.Activity{
		UserID:    actor.ID(),
		Action:    action,
		Details:   details,
		Timestamp: r.now(),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.log.Debug().Str("action", action).Msg("activity recorder closed, entry dropped")
		return
	}
	select {
	case r.queue <- entry:
	default:
		r.log.Warn().Str("action", action).Msg("activity queue full, entry dropped")
	}
}

// Close stops accepting entries and waits for the queue to drain or ctx to
// expire.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
