package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Processor is the unit of work the loop drives on every tick. The
// notification Service satisfies it.
type Processor interface {
	ProcessPending(ctx context.Context) error
}

// ErrProcessorNil is returned when NewLoop is called without a processor.
var ErrProcessorNil = errors.New("scheduler: processor cannot be nil")

// Loop periodically invokes a Processor. One sweep runs at a time; a
// tick that arrives while the previous sweep is still in flight is
// skipped rather than stacked.
type Loop struct {
	processor Processor
	interval  time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithInterval sets the sweep interval. Defaults to one minute.
func WithInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithLogger sets the loop's logger.
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoop creates a sweep loop for the given processor.
func NewLoop(processor Processor, opts ...LoopOption) (*Loop, error) {
	if processor == nil {
		return nil, ErrProcessorNil
	}

	l := &Loop{
		processor: processor,
		interval:  time.Minute,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Start begins sweeping in the background. The first sweep runs
// immediately; subsequent sweeps follow the configured interval.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return fmt.Errorf("scheduler: loop already started")
	}

	ctx, l.cancel = context.WithCancel(ctx)

	l.wg.Add(1)
	go l.run(ctx)

	l.logger.Info("scheduler loop started",
		slog.Duration("interval", l.interval))
	return nil
}

// Stop cancels the loop and waits for the in-flight sweep to finish.
func (l *Loop) Stop() error {
	l.mu.Lock()
	if l.cancel == nil {
		l.mu.Unlock()
		return fmt.Errorf("scheduler: loop not started")
	}
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	cancel()
	l.wg.Wait()

	l.logger.Info("scheduler loop stopped")
	return nil
}

// Run starts the loop, blocks until ctx is cancelled, then stops it.
// Convenient with errgroup:
//
//	g.Go(loop.Run(ctx))
func (l *Loop) Run(ctx context.Context) func() error {
	return func() error {
		if err := l.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return l.Stop()
	}
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep(ctx)
		}
	}
}

// sweep runs one processing pass. A panic in the processor is contained
// so a poisoned item cannot kill the loop.
func (l *Loop) sweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("sweep panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	if err := l.processor.ProcessPending(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		l.logger.Error("sweep failed",
			slog.String("error", err.Error()))
	}
}
