// internal/pkg/async/pool.go
package async

import (
	"context"
	"sync"
)

// Task is one named unit of work submitted to a Pool.
type Task struct {
	Name    string
	Execute func() (interface{}, error)
}

// Result is the outcome of one task. Tasks still pending when the context is
// cancelled simply have no entry in the result map; callers that care about
// timeouts compare the map against the submitted task names.
type Result struct {
	Name string
	Data interface{}
	Err  error
}

// Pool runs tasks across a fixed number of workers and collects results by
// task name.
type Pool struct {
	workerCount int
}

// NewPool creates a pool with the given worker count.
func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

func (p *Pool) worker(ctx context.Context, wg *sync.WaitGroup, tasks <-chan Task, results chan<- Result) {
	defer wg.Done()
	for {
		select {
		case task, ok := <-tasks:
			if !ok {
				return
			}
			data, err := task.Execute()
			select {
			case results <- Result{Name: task.Name, Data: data, Err: err}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Execute fans the tasks out over the workers and fans the results back in.
// It returns when every task has completed or the context is done, whichever
// comes first; results collected so far are always returned.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	var wg sync.WaitGroup
	taskCh := make(chan Task)
	resultCh := make(chan Result)
	results := make(map[string]Result, len(tasks))

	// Start workers
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go p.worker(ctx, &wg, taskCh, resultCh)
	}

	// Send tasks
	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Collect results
	for i := 0; i < len(tasks); i++ {
		select {
		case result := <-resultCh:
			results[result.Name] = result
		case <-ctx.Done():
			return results
		}
	}

	wg.Wait()
	return results
}
