// Package runner executes independent research runs concurrently with a
// bounded number in flight.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sweetpotato0/ai-research/pkg/logging"
	"github.com/sweetpotato0/ai-research/research"
)

// Researcher runs one query end to end. *research.Pipeline satisfies it.
type Researcher interface {
	Run(ctx context.Context, query string) (*research.Response, error)
}

// Task is one query to research.
type Task struct {
	ID    string
	Query string
}

// Result represents the result of a task execution
type Result struct {
	TaskID   string
	Query    string
	Response *research.Response
	Error    error
}

// ResultHandler is called once per finished task, from the task's goroutine.
type ResultHandler func(ctx context.Context, res *Result)

// Runner bounds concurrent runs with a semaphore.
type Runner struct {
	researcher Researcher
	semaphore  chan struct{}
	onResult   ResultHandler
	logger     *slog.Logger
}

// Option customises a Runner.
type Option func(*Runner)

// WithResultHandler registers a callback for each finished task.
func WithResultHandler(fn ResultHandler) Option {
	return func(r *Runner) { r.onResult = fn }
}

// WithLogger overrides the runner logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a runner allowing maxConcurrency runs at once.
func New(researcher Researcher, maxConcurrency int, opts ...Option) *Runner {
	if maxConcurrency <= 0 {
		maxConcurrency = 2
	}
	r := &Runner{
		researcher: researcher,
		semaphore:  make(chan struct{}, maxConcurrency),
		logger:     logging.WithComponent("runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Concurrency reports the maximum number of runs in flight.
func (r *Runner) Concurrency() int {
	return cap(r.semaphore)
}

// Run executes one query once a slot is free.
func (r *Runner) Run(ctx context.Context, query string) (*research.Response, error) {
	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.researcher.Run(ctx, query)
}

// RunAll executes every task and returns results in task order. A panic in
// one run becomes that task's error.
func (r *Runner) RunAll(ctx context.Context, tasks []*Task) []*Result {
	results := make([]*Result, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(index int, t *Task) {
			defer wg.Done()
			res := &Result{TaskID: t.ID, Query: t.Query}
			defer func() {
				if p := recover(); p != nil {
					res.Response = nil
					res.Error = fmt.Errorf("panic in task %s: %v", t.ID, p)
				}
				results[index] = res
				if res.Error != nil {
					r.logger.Error("research task failed", "task", t.ID, "error", res.Error)
				}
				if r.onResult != nil {
					r.onResult(ctx, res)
				}
			}()

			res.Response, res.Error = r.Run(ctx, t.Query)
		}(i, task)
	}

	wg.Wait()
	return results
}

// Tasks builds tasks from queries with sequential ids.
func Tasks(queries []string) []*Task {
	tasks := make([]*Task, len(queries))
	for i, q := range queries {
		tasks[i] = &Task{ID: fmt.Sprintf("task-%d", i+1), Query: q}
	}
	return tasks
}
