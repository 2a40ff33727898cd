package async

import (
	"context"
	"fmt"
	"sync"
)

type Task struct {
	Name    string
	Execute func(ctx context.Context) (interface{}, error)
}

type Result struct {
	Name string
	Data interface{}
	Err  error
}

type Pool struct {
	workerCount int
}

func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

func run(ctx context.Context, task Task) (result Result) {
	result.Name = task.Name
	defer func() {
		if r := recover(); r != nil {
			result.Data = nil
			result.Err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	result.Data, result.Err = task.Execute(ctx)
	return result
}

func worker(ctx context.Context, tasks <-chan Task, results chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()
	for task := range tasks {
		if err := ctx.Err(); err != nil {
			results <- Result{Name: task.Name, Err: err}
			continue
		}
		results <- run(ctx, task)
	}
}

// Execute runs tasks on the pool and returns every result keyed by task name.
// onResult, when set, is called from the collecting goroutine as each task finishes.
// Tasks not started before ctx is done report ctx.Err().
func (p *Pool) Execute(ctx context.Context, tasks []Task, onResult func(Result)) map[string]Result {
	var wg sync.WaitGroup
	results := make(map[string]Result, len(tasks))
	taskCh := make(chan Task)
	resultCh := make(chan Result, len(tasks))

	// Start workers
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go worker(ctx, taskCh, resultCh, &wg)
	}

	// Send tasks
	go func() {
		for _, task := range tasks {
			taskCh <- task
		}
		close(taskCh)
	}()

	// Collect results
	for i := 0; i < len(tasks); i++ {
		result := <-resultCh
		results[result.Name] = result
		if onResult != nil {
			onResult(result)
		}
	}

	wg.Wait()
	close(resultCh)

	return results
}
