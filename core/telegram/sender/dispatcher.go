// Package sender runs outbound Telegram calls on a small worker pool so
// handlers do not block on the network.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/diarybot/core/logger"
	"github.com/m3rciful/diarybot/core/telegram/netutil"
)

var (
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	ErrQueueFull   = errors.New("telegram sender: queue full")
)

// Options tunes the dispatcher. Zero values get defaults.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration // grows linearly with the attempt number
	MaxDuration  time.Duration // budget for all attempts of one job
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes queued calls with bounded retries.
type Dispatcher struct {
	opts   Options
	queue  chan job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	failed atomic.Uint64
}

// NewDispatcher starts opts.Workers workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, queue: make(chan job, opts.QueueSize)}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for j := range d.queue {
				d.process(j)
			}
		}()
	}
	return d
}

// Enqueue hands run to a worker without waiting. run may be called more than
// once, so it must be safe to repeat.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.queue <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount is the number of jobs that gave up.
func (d *Dispatcher) ErrorCount() uint64 { return d.failed.Load() }

// Close rejects new jobs, finishes the queued ones and waits for the workers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) process(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attrs := jobAttrs(j)
	logger.Debug(j.ctx, "tg.sender", "send.start", attrs...)

	var err error
	attempt := 1
	for ; ; attempt++ {
		if err = ctx.Err(); err != nil {
			break
		}
		if err = j.run(); err == nil {
			logger.Debug(j.ctx, "tg.sender", "send.success", append(attrs,
				slog.Int("attempts", attempt),
				slog.Duration("elapsed", time.Since(start)),
			)...)
			return
		}
		if attempt > d.opts.MaxRetries || !netutil.ShouldRetry(err) {
			break
		}
		delay := d.opts.RetryBackoff * time.Duration(attempt)
		logger.Debug(j.ctx, "tg.sender", "send.retry", append(attrs,
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("err_kind", netutil.Classify(err)),
		)...)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
	}

	d.failed.Add(1)
	logger.Error(j.ctx, "tg.sender", "send.fail", append(attrs,
		slog.String("err", netutil.Redact(err)),
		slog.String("err_kind", netutil.Classify(err)),
		slog.Int("attempts", attempt),
		slog.Duration("elapsed", time.Since(start)),
	)...)
}

func jobAttrs(j job) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}
