// Package worker implements the build's bounded concurrency model: a
// worker pool sized to the host's CPU count owns every fetch and
// compile task, a target's build task enqueues only after its upstream
// builds have succeeded, and the whole run cancels cooperatively on
// context cancellation. Built on golang.org/x/sync/errgroup's SetLimit:
// a bounded group of concurrent tasks that cancels as a unit on the
// first failure.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Task is one schedulable unit: a build or fetch keyed by name, with
// the names of the upstream tasks it must wait on.
type Task struct {
	Name      string
	DependsOn []string
	Run       func(ctx context.Context) error
}

// Pool runs a dependency-ordered task graph with at most Limit tasks
// executing concurrently. A Limit of 0 uses
// runtime.NumCPU(), the spec's default.
type Pool struct {
	Limit int
}

// Run executes every task in tasks, respecting DependsOn edges:
// "a target's build task is enqueued only after all upstream build
// tasks have completed successfully". Tasks with no pending dependency between them may run
// in any order, bounded by Limit concurrent workers. The first task
// failure cancels every task still running or waiting, and Run returns
// that error once every goroutine has unwound.
func (p *Pool) Run(ctx context.Context, tasks []Task) error {
	limit := p.Limit
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	byName := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		byName[t.Name] = t
	}
	if err := checkAcyclic(tasks); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	done := make(map[string]chan struct{}, len(tasks))
	for _, t := range tasks {
		done[t.Name] = make(chan struct{})
	}
	failed := make(map[string]bool)

	// Launch in dependency order, so every upstream task already holds a
	// worker slot (or has finished) before a task waiting on it takes one.
	var ordered []Task
	placed := make(map[string]bool, len(tasks))
	var place func(t Task)
	place = func(t Task) {
		if placed[t.Name] {
			return
		}
		placed[t.Name] = true
		for _, dep := range t.DependsOn {
			place(byName[dep])
		}
		ordered = append(ordered, t)
	}
	for _, t := range tasks {
		place(t)
	}

	for _, t := range ordered {
		t := t
		g.Go(func() error {
			for _, dep := range t.DependsOn {
				select {
				case <-done[dep]:
				case <-ctx.Done():
					return ctx.Err()
				}
				mu.Lock()
				f := failed[dep]
				mu.Unlock()
				if f {
					close(done[t.Name])
					mu.Lock()
					failed[t.Name] = true
					mu.Unlock()
					return fmt.Errorf("worker: skipping %q, upstream %q failed", t.Name, dep)
				}
			}

			err := t.Run(ctx)
			if err != nil {
				mu.Lock()
				failed[t.Name] = true
				mu.Unlock()
			}
			close(done[t.Name])
			return err
		})
	}

	return g.Wait()
}

// checkAcyclic rejects a task graph with a dependency cycle or an
// edge to an unknown task name, both of which would otherwise hang
// Run forever waiting on a channel nothing closes.
func checkAcyclic(tasks []Task) error {
	byName := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		byName[t.Name] = t
	}
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if _, ok := byName[dep]; !ok {
				return fmt.Errorf("worker: task %q depends on unknown task %q", t.Name, dep)
			}
		}
	}

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(tasks))
	var visit func(name string, chain []string) error
	visit = func(name string, chain []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("worker: cyclic task dependency: %v", append(chain, name))
		}
		color[name] = gray
		for _, dep := range byName[name].DependsOn {
			if err := visit(dep, append(chain, name)); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}
	for _, t := range tasks {
		if err := visit(t.Name, nil); err != nil {
			return err
		}
	}
	return nil
}
