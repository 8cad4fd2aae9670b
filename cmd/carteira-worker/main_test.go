package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunTasksReleasesAfterTasksReturn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var running atomic.Int32
	slowStop := func(ctx context.Context) error {
		running.Add(1)
		defer running.Add(-1)
		<-ctx.Done()
		// Still writing when shutdown begins.
		time.Sleep(20 * time.Millisecond)
		return nil
	}

	var runningAtRelease int32 = -1
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := runTasks(ctx, func() { runningAtRelease = running.Load() }, slowStop, slowStop)
	if err != nil {
		t.Fatalf("runTasks: %v", err)
	}
	if runningAtRelease != 0 {
		t.Fatalf("released with %d task(s) still running", runningAtRelease)
	}
}

func TestRunTasksStopsOthersOnFailure(t *testing.T) {
	boom := errors.New("broker closed")
	released := false

	err := runTasks(context.Background(), func() { released = true },
		func(context.Context) error { return boom },
		func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		})
	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if !released {
		t.Fatalf("release not called after failure")
	}
}
