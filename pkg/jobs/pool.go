package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotRunning is returned by Submit when the pool is stopped.
var ErrNotRunning = errors.New("worker pool is not running")

// Task is a unit of work carrying a typed payload.
type Task[T any] struct {
	ID        string
	Payload   T
	Attempt   int
	Submitted time.Time
}

// Handler processes a task. Returning an error schedules a retry until the
// attempt budget is exhausted.
type Handler[T any] func(context.Context, Task[T]) error

// Config configures worker pool behaviour.
type Config struct {
	Workers    int
	Buffer     int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Pool dispatches tasks to a fixed set of goroutines.
type Pool[T any] struct {
	name    string
	handler Handler[T]
	cfg     Config

	tasks   chan Task[T]
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewPool builds a pool with the provided handler.
func NewPool[T any](name string, handler Handler[T], cfg Config) *Pool[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pool[T]{
		name:    name,
		handler: handler,
		cfg:     cfg,
		tasks:   make(chan Task[T], cfg.Buffer),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (p *Pool[T]) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	p.running = true
	p.cfg.Logger.Info("worker pool started", zap.String("pool", p.name), zap.Int("workers", p.cfg.Workers))
}

// Stop cancels the workers and waits for in-flight tasks to return.
func (p *Pool[T]) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()
	p.wg.Wait()
	p.cfg.Logger.Info("worker pool stopped", zap.String("pool", p.name))
}

// Submit queues a task, blocking while the buffer is full.
func (p *Pool[T]) Submit(task Task[T]) error {
	p.mu.Lock()
	ctx, running := p.ctx, p.running
	p.mu.Unlock()
	if !running {
		return fmt.Errorf("%s: %w", p.name, ErrNotRunning)
	}
	if task.Submitted.IsZero() {
		task.Submitted = time.Now().UTC()
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", p.name, ErrNotRunning)
	case p.tasks <- task:
		return nil
	}
}

func (p *Pool[T]) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.tasks:
			if err := p.handler(p.ctx, task); err != nil {
				p.retry(task, err)
			}
		}
	}
}

func (p *Pool[T]) retry(task Task[T], err error) {
	task.Attempt++
	if task.Attempt > p.cfg.MaxRetries {
		p.cfg.Logger.Error("task exhausted retries", zap.String("pool", p.name), zap.String("task_id", task.ID), zap.Error(err))
		return
	}
	p.cfg.Logger.Warn("task failed, retrying", zap.String("pool", p.name), zap.String("task_id", task.ID), zap.Int("attempt", task.Attempt), zap.Error(err))

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		timer := time.NewTimer(p.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-p.ctx.Done():
		case <-timer.C:
			if err := p.Submit(task); err != nil {
				p.cfg.Logger.Error("failed to requeue task", zap.String("pool", p.name), zap.String("task_id", task.ID), zap.Error(err))
			}
		}
	}()
}
