package sync

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTriggerDebouncePerSource(t *testing.T) {
	rc := NewRequestCoordinator(TriggerConfig{Debounce: time.Minute}, nil, testLogger())
	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	if rc.debounced(request{source: SourceDataChange, at: base}) {
		t.Error("first request must pass")
	}
	if !rc.debounced(request{source: SourceDataChange, at: base.Add(10 * time.Second)}) {
		t.Error("request inside the quiet window must be swallowed")
	}
	if rc.debounced(request{source: SourcePeriodic, at: base.Add(10 * time.Second)}) {
		t.Error("sources debounce independently")
	}
	if rc.debounced(request{source: SourceDataChange, at: base.Add(2 * time.Minute)}) {
		t.Error("request after the quiet window must pass")
	}
}

func TestTriggerDelayHonorsThrottleAndCooldown(t *testing.T) {
	cfg := TriggerConfig{
		Debounce:    time.Second,
		MinInterval: time.Minute,
		Cooldown:    10 * time.Minute,
	}
	rc := NewRequestCoordinator(cfg, nil, testLogger())
	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	rc.clock = func() time.Time { return base }

	// No history: only the debounce window applies.
	if d := rc.delayUntilAllowed(base); d != time.Second {
		t.Errorf("delay = %s, want the debounce window", d)
	}

	rc.lastRunAt = base.Add(-10 * time.Second)
	if d := rc.delayUntilAllowed(base); d != 50*time.Second {
		t.Errorf("delay = %s, want the remaining throttle interval", d)
	}

	rc.lastFailure = base.Add(-time.Minute)
	if d := rc.delayUntilAllowed(base); d != 9*time.Minute {
		t.Errorf("delay = %s, want the remaining cooldown", d)
	}
}

func TestTriggerFailureStartsCooldown(t *testing.T) {
	ran := 0
	run := func(ctx context.Context, opts Options) (*Outcome, error) {
		ran++
		return nil, errors.New("boom")
	}
	rc := NewRequestCoordinator(TriggerConfig{Cooldown: time.Hour}, run, testLogger())
	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	rc.clock = func() time.Time { return base }

	rc.fire(context.Background(), []Source{SourcePeriodic})
	if ran != 1 {
		t.Fatalf("run called %d times, want 1", ran)
	}
	if rc.lastFailure.IsZero() {
		t.Fatal("a failed run must start the cooldown")
	}
	if d := rc.delayUntilAllowed(base); d < 59*time.Minute {
		t.Errorf("delay after failure = %s, want close to the cooldown", d)
	}
}

func TestTriggerManualFiresImmediately(t *testing.T) {
	fired := make(chan Options, 1)
	run := func(ctx context.Context, opts Options) (*Outcome, error) {
		fired <- opts
		return &Outcome{}, nil
	}
	// Long policy windows that a manual request must ignore.
	rc := NewRequestCoordinator(TriggerConfig{
		Debounce:    time.Hour,
		MinInterval: time.Hour,
		Cooldown:    time.Hour,
	}, run, testLogger())
	rc.lastFailure = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rc.Run(ctx)

	rc.Request(SourceManual)

	select {
	case opts := <-fired:
		if !opts.Silent {
			t.Error("background-triggered syncs run silent")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("manual request did not fire")
	}
}

func TestTriggerCoalescesBurst(t *testing.T) {
	fired := make(chan struct{}, 16)
	run := func(ctx context.Context, opts Options) (*Outcome, error) {
		fired <- struct{}{}
		return &Outcome{}, nil
	}
	rc := NewRequestCoordinator(TriggerConfig{Debounce: 50 * time.Millisecond}, run, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rc.Run(ctx)

	for i := 0; i < 5; i++ {
		rc.Request(SourceDataChange)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("burst never fired")
	}

	// The burst fell inside one quiet window: exactly one run.
	select {
	case <-fired:
		t.Error("burst fired more than once")
	case <-time.After(200 * time.Millisecond):
	}
}
