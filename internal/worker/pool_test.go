package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPool_RunsUpstreamBeforeDownstream(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(ctx context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	p := &Pool{Limit: 4}
	err := p.Run(context.Background(), []Task{
		{Name: "lib", Run: record("lib")},
		{Name: "app", DependsOn: []string{"lib"}, Run: record("app")},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(order) != 2 || order[0] != "lib" || order[1] != "app" {
		t.Fatalf("order = %v, want [lib app]", order)
	}
}

func TestPool_IndependentTasksRunConcurrently(t *testing.T) {
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	task := func() func(context.Context) error {
		return func(ctx context.Context) error {
			wg.Done()
			<-start
			return nil
		}
	}

	p := &Pool{Limit: 2}
	done := make(chan error, 1)
	go func() {
		done <- p.Run(context.Background(), []Task{
			{Name: "a", Run: task()},
			{Name: "b", Run: task()},
		})
	}()

	waited := make(chan struct{})
	go func() {
		wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("both independent tasks did not start concurrently")
	}
	close(start)

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestPool_FailureSkipsDownstream(t *testing.T) {
	var ran bool
	p := &Pool{Limit: 2}
	err := p.Run(context.Background(), []Task{
		{Name: "lib", Run: func(ctx context.Context) error { return errors.New("boom") }},
		{Name: "app", DependsOn: []string{"lib"}, Run: func(ctx context.Context) error {
			ran = true
			return nil
		}},
	})
	if err == nil {
		t.Fatal("Run() error = nil, want the upstream failure surfaced")
	}
	if ran {
		t.Error("downstream task ran despite its upstream dependency failing")
	}
}

func TestPool_RejectsCycle(t *testing.T) {
	p := &Pool{}
	err := p.Run(context.Background(), []Task{
		{Name: "a", DependsOn: []string{"b"}, Run: func(context.Context) error { return nil }},
		{Name: "b", DependsOn: []string{"a"}, Run: func(context.Context) error { return nil }},
	})
	if err == nil {
		t.Fatal("Run() error = nil, want a cycle error")
	}
}

func TestPool_RejectsUnknownDependency(t *testing.T) {
	p := &Pool{}
	err := p.Run(context.Background(), []Task{
		{Name: "a", DependsOn: []string{"missing"}, Run: func(context.Context) error { return nil }},
	})
	if err == nil {
		t.Fatal("Run() error = nil, want an unknown-dependency error")
	}
}
