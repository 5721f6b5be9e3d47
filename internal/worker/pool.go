package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of work submitted to a group.
type Task struct {
	ID string
	Fn func(ctx context.Context) error
}

// Result is the settled outcome of a Task.
type Result struct {
	ID       string
	Err      error
	Duration time.Duration
}

// WorkerPool runs groups of tasks concurrently. A group always settles
// completely: a failing or panicking task never cancels its siblings.
type WorkerPool struct {
	name    string
	workers int
	logger  *zap.Logger
}

// NewWorkerPool creates a pool that runs at most workers tasks of a group at
// once. A non-positive count runs every task of a group at once.
func NewWorkerPool(name string, workers int, logger *zap.Logger) *WorkerPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{name: name, workers: workers, logger: logger}
}

// RunGroup starts every task and blocks until all of them have returned.
// Results are in task order.
func (wp *WorkerPool) RunGroup(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))

	var g errgroup.Group
	if wp.workers > 0 {
		g.SetLimit(wp.workers)
	}
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			start := time.Now()
			err := wp.safeExecute(ctx, task)
			results[i] = Result{ID: task.ID, Err: err, Duration: time.Since(start)}
			// never fail the group
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (wp *WorkerPool) safeExecute(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
			wp.logger.Error("Task panic recovered",
				zap.String("pool", wp.name),
				zap.String("task_id", task.ID),
				zap.Any("panic", r))
		}
	}()
	return task.Fn(ctx)
}
