package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior. BufferSize 0 delivers
// synchronously on the caller's goroutine.
type Config struct {
	Enabled      bool
	BufferSize   int
	DropIfFull   bool
	WriteTimeout time.Duration
}

// Dispatcher forwards entries to a sink without letting sink latency or
// failure reach the caller.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	logger    *slog.Logger
	ch        chan Entry
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher returns nil when auditing is disabled; a nil dispatcher
// ignores every call.
func NewDispatcher(cfg Config, sink Sink, logger *slog.Logger) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}

	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		done:   make(chan struct{}),
	}
	if cfg.BufferSize > 0 {
		d.ch = make(chan Entry, cfg.BufferSize)
		d.wg.Add(1)
		go d.run()
	}
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case entry := <-d.ch:
			d.deliver(entry)
		case <-d.done:
			for {
				select {
				case entry := <-d.ch:
					d.deliver(entry)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.WriteTimeout)
	defer cancel()

	if err := d.sink.Append(ctx, entry); err != nil {
		d.failed.Add(1)
		d.logger.Warn("audit append failed",
			slog.String("action", string(entry.Action)),
			slog.String("user_id", entry.UserID),
			slog.Any("error", err),
		)
	}
}

// Emit queues entry. It never blocks when DropIfFull is set.
func (d *Dispatcher) Emit(ctx context.Context, entry Entry) {
	if d == nil || d.closed.Load() {
		return
	}
	if d.ch == nil {
		d.deliver(entry)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- entry:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- entry:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close stops intake and drains queued entries.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped counts entries discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Failed counts entries the sink rejected.
func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
