// Package worker runs batches of map generation tasks.
//
// Every task is generated from scratch by the Generator, so each worker owns
// its own generation state; a single map is never split across goroutines.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Generator renders one map. This matches pipeline.Generator.Generate.
type Generator interface {
	Generate(ctx context.Context, recipe string, seed int64) ([]byte, error)
}

// Task names a recipe and the seed to render it with.
type Task struct {
	Recipe string
	Seed   int64
}

// Key identifies the task in logs and file names, e.g. "islands_s42".
func (t Task) Key() string {
	return fmt.Sprintf("%s_s%d", t.Recipe, t.Seed)
}

type Result struct {
	Task    Task
	Data    []byte
	Err     error
	Elapsed time.Duration
}

// Observer is told about each finished task. Calls are serialized.
type Observer interface {
	Observe(Result)
}

type Config struct {
	Workers   int
	Generator Generator
	Observer  Observer
}

// Pool renders (recipe, seed) tasks on a fixed number of goroutines.
type Pool struct {
	workers  int
	gen      Generator
	observer Observer
	mu       sync.Mutex
}

// New creates a pool. Workers defaults to 1.
func New(cfg Config) *Pool {
	return &Pool{
		workers:  max(cfg.Workers, 1),
		gen:      cfg.Generator,
		observer: cfg.Observer,
	}
}

// Run renders every task and returns one result per task, in task order.
// Tasks that were not started when ctx ends report ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	next := make(chan int)
	var wg sync.WaitGroup
	for range min(p.workers, len(tasks)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				results[i] = p.render(ctx, tasks[i])
				p.observe(results[i])
			}
		}()
	}

	i := 0
dispatch:
	for ; i < len(tasks); i++ {
		select {
		case next <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(next)
	wg.Wait()

	for ; i < len(tasks); i++ {
		results[i] = Result{Task: tasks[i], Err: ctx.Err()}
		p.observe(results[i])
	}
	return results
}

func (p *Pool) render(ctx context.Context, task Task) Result {
	if err := ctx.Err(); err != nil {
		return Result{Task: task, Err: err}
	}
	start := time.Now()
	data, err := p.gen.Generate(ctx, task.Recipe, task.Seed)
	return Result{Task: task, Data: data, Err: err, Elapsed: time.Since(start)}
}

func (p *Pool) observe(r Result) {
	if p.observer == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observer.Observe(r)
}
