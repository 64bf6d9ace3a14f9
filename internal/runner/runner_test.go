package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nholik/svc-watchdog/internal/manager"
	"github.com/nholik/svc-watchdog/internal/watchdog"
	"github.com/rs/zerolog"
)

type fakeTicker struct {
	ch      chan time.Time
	stopped bool
	mu      sync.Mutex
}

func (t *fakeTicker) C() <-chan time.Time {
	return t.ch
}

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *fakeTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type scriptedManager struct {
	mu           sync.Mutex
	states       []manager.State
	queryErr     error
	restartCalls int
}

func (m *scriptedManager) QueryStatus(_ context.Context, _ string) (manager.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return manager.StateUnknown, m.queryErr
	}
	state := m.states[0]
	if len(m.states) > 1 {
		m.states = m.states[1:]
	}
	return state, nil
}

func (m *scriptedManager) Restart(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restartCalls++
	return nil
}

func (m *scriptedManager) Close() error {
	return nil
}

func TestRunner_Run_TriggersRunOnceOnTicks(t *testing.T) {
	ticker := &fakeTicker{ch: make(chan time.Time, 2)}
	runCalls := make(chan struct{}, 3)

	r := New(zerolog.Nop(), time.Second,
		WithTickerFactory(func(time.Duration) Ticker {
			return ticker
		}),
		WithRunOnce(func(context.Context) error {
			runCalls <- struct{}{}
			return nil
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		_ = r.Run(ctx)
		close(done)
	}()

	ticker.ch <- time.Now()
	ticker.ch <- time.Now()

	// Immediate startup run plus one per tick.
	if !waitForCalls(runCalls, 3, time.Second) {
		t.Fatalf("expected three run calls")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("runner did not stop after cancel")
	}

	if !ticker.Stopped() {
		t.Fatalf("expected ticker to be stopped")
	}
}

func TestRunner_Run_StopsOnContextCancel(t *testing.T) {
	ticker := &fakeTicker{ch: make(chan time.Time, 1)}

	r := New(zerolog.Nop(), time.Second,
		WithTickerFactory(func(time.Duration) Ticker {
			return ticker
		}),
		WithRunOnce(func(context.Context) error {
			return nil
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		_ = r.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("runner did not stop after cancel")
	}

	if !ticker.Stopped() {
		t.Fatalf("expected ticker to be stopped")
	}
}

func TestRunner_Run_RejectsZeroPollInterval(t *testing.T) {
	r := New(zerolog.Nop(), 0)

	err := r.Run(context.Background())
	if err == nil {
		t.Fatalf("expected error for zero poll interval")
	}
}

func TestRunner_RunOnce_WrapsQueryError(t *testing.T) {
	mgr := &scriptedManager{queryErr: &manager.QueryError{Service: "nginx", Err: errors.New("unreachable")}}
	wd := watchdog.New(mgr, zerolog.Nop(), watchdog.WithStatusWriter(io.Discard))

	r := New(zerolog.Nop(), time.Second, WithWatchdog(wd, "nginx"))

	err := r.RunOnce(context.Background())

	var runtimeErr *RuntimeError
	if !errors.As(err, &runtimeErr) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	var queryErr *manager.QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("expected wrapped QueryError, got %v", err)
	}
}

func TestRunner_RunOnce_LogsStateTransitions(t *testing.T) {
	mgr := &scriptedManager{states: []manager.State{
		manager.StateRunning,
		manager.StateStopped,
		manager.StateRunning,
	}}
	wd := watchdog.New(mgr, zerolog.Nop(), watchdog.WithStatusWriter(io.Discard))

	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	r := New(logger, time.Second, WithWatchdog(wd, "nginx"))

	for i := 0; i < 3; i++ {
		_ = r.RunOnce(context.Background())
	}

	output := logs.String()
	if !strings.Contains(output, "service went down") {
		t.Fatalf("expected went-down transition in logs, got: %s", output)
	}
	if !strings.Contains(output, "service recovered") {
		t.Fatalf("expected recovered transition in logs, got: %s", output)
	}
	if mgr.restartCalls != 1 {
		t.Fatalf("expected one restart across cycles, got %d", mgr.restartCalls)
	}
}

func TestRunner_RunOnce_NoTransitionLogWhenStateStable(t *testing.T) {
	mgr := &scriptedManager{states: []manager.State{manager.StateRunning}}
	wd := watchdog.New(mgr, zerolog.Nop(), watchdog.WithStatusWriter(io.Discard))

	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	r := New(logger, time.Second, WithWatchdog(wd, "nginx"))

	for i := 0; i < 3; i++ {
		if err := r.RunOnce(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	output := logs.String()
	if strings.Contains(output, "service went down") || strings.Contains(output, "service recovered") {
		t.Fatalf("expected no transition logs for stable state, got: %s", output)
	}
}

func waitForCalls(calls <-chan struct{}, count int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for i := 0; i < count; i++ {
		select {
		case <-calls:
		case <-deadline:
			return false
		}
	}
	return true
}
