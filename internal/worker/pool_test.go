package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MeKo-Tech/roadgeom/internal/geo"
)

// mockGenerator simulates pipeline execution for testing.
type mockGenerator struct {
	delay        time.Duration
	failRegions  map[string]bool
	callCount    atomic.Int32
}

func (m *mockGenerator) Generate(ctx context.Context, region Region, force bool) (string, error) {
	m.callCount.Add(1)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(m.delay):
	}

	if m.failRegions != nil && m.failRegions[region.Name] {
		return "", errors.New("simulated failure")
	}

	return "/tmp/" + region.Name + ".png", nil
}

func testRegion(name string) Region {
	return Region{Name: name, Bounds: geo.BoundingBox{MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 1}}
}

func TestPool_BasicExecution(t *testing.T) {
	gen := &mockGenerator{delay: 10 * time.Millisecond}

	pool := New(Config{Workers: 2, Generator: gen})

	tasks := []Task{
		{Region: testRegion("a")},
		{Region: testRegion("b")},
		{Region: testRegion("c")},
	}

	results := pool.Run(context.Background(), tasks)

	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}

	for _, r := range results {
		if r.Err != nil {
			t.Errorf("Unexpected error for %s: %v", r.Task.Region.Name, r.Err)
		}
		if r.Path == "" {
			t.Errorf("Expected path for %s, got empty", r.Task.Region.Name)
		}
	}

	if gen.callCount.Load() != int32(len(tasks)) {
		t.Errorf("Expected %d generator calls, got %d", len(tasks), gen.callCount.Load())
	}
}

func TestPool_Parallelism(t *testing.T) {
	gen := &mockGenerator{delay: 50 * time.Millisecond}

	pool := New(Config{Workers: 4, Generator: gen})

	tasks := make([]Task, 8)
	for i := range tasks {
		tasks[i] = Task{Region: testRegion(string(rune('a' + i)))}
	}

	start := time.Now()
	results := pool.Run(context.Background(), tasks)
	elapsed := time.Since(start)

	maxExpected := 200 * time.Millisecond
	if elapsed > maxExpected {
		t.Errorf("Expected parallel execution in ~100ms, took %v", elapsed)
	}

	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}
}

func TestPool_ErrorHandling(t *testing.T) {
	gen := &mockGenerator{
		delay:       10 * time.Millisecond,
		failRegions: map[string]bool{"b": true},
	}

	pool := New(Config{Workers: 2, Generator: gen})

	tasks := []Task{
		{Region: testRegion("a")},
		{Region: testRegion("b")},
		{Region: testRegion("c")},
	}

	results := pool.Run(context.Background(), tasks)

	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}

	var successCount, failCount int
	for _, r := range results {
		if r.Err != nil {
			failCount++
			if r.Task.Region.Name != "b" {
				t.Errorf("Unexpected failure for %s", r.Task.Region.Name)
			}
		} else {
			successCount++
		}
	}

	if successCount != 2 {
		t.Errorf("Expected 2 successes, got %d", successCount)
	}
	if failCount != 1 {
		t.Errorf("Expected 1 failure, got %d", failCount)
	}
}

func TestPool_Cancellation(t *testing.T) {
	gen := &mockGenerator{delay: 100 * time.Millisecond}

	pool := New(Config{Workers: 2, Generator: gen})

	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = Task{Region: testRegion(string(rune('a' + i)))}
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := pool.Run(ctx, tasks)
	elapsed := time.Since(start)

	if elapsed > 200*time.Millisecond {
		t.Errorf("Expected early cancellation, took %v", elapsed)
	}

	var cancelledCount int
	for _, r := range results {
		if r.Err != nil && errors.Is(r.Err, context.Canceled) {
			cancelledCount++
		}
	}

	t.Logf("Completed with %d results (%d cancelled) in %v", len(results), cancelledCount, elapsed)
}

func TestPool_ProgressCallback(t *testing.T) {
	gen := &mockGenerator{delay: 10 * time.Millisecond}

	var progressCalls atomic.Int32
	var lastCompleted, lastTotal int

	pool := New(Config{
		Workers:   2,
		Generator: gen,
		OnProgress: func(completed, total, failed int) {
			progressCalls.Add(1)
			lastCompleted = completed
			lastTotal = total
		},
	})

	tasks := []Task{
		{Region: testRegion("a")},
		{Region: testRegion("b")},
		{Region: testRegion("c")},
	}

	pool.Run(context.Background(), tasks)

	if progressCalls.Load() == 0 {
		t.Error("Expected progress callbacks, got none")
	}
	if lastCompleted != len(tasks) {
		t.Errorf("Expected lastCompleted=%d, got %d", len(tasks), lastCompleted)
	}
	if lastTotal != len(tasks) {
		t.Errorf("Expected lastTotal=%d, got %d", len(tasks), lastTotal)
	}
}

func TestPool_EmptyTasks(t *testing.T) {
	gen := &mockGenerator{}

	pool := New(Config{Workers: 2, Generator: gen})

	results := pool.Run(context.Background(), nil)

	if len(results) != 0 {
		t.Errorf("Expected 0 results for empty tasks, got %d", len(results))
	}
	if gen.callCount.Load() != 0 {
		t.Errorf("Expected 0 generator calls for empty tasks, got %d", gen.callCount.Load())
	}
}
