package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Source identifies what asked for a sync. Sources are debounced
// independently so a burst of data changes cannot starve a network-regained
// probe, and vice versa.
type Source string

const (
	SourceDataChange      Source = "data-change"
	SourceStartup         Source = "startup"
	SourceNetworkRegained Source = "network-regained"
	SourcePeriodic        Source = "periodic"
	SourceManual          Source = "manual"
)

// TriggerConfig tunes the request coordinator.
type TriggerConfig struct {
	// Debounce is the quiet window after a request before a sync fires,
	// so rapid bursts coalesce into one run.
	Debounce time.Duration

	// MinInterval throttles background runs: at least this long between
	// the start of consecutive syncs.
	MinInterval time.Duration

	// Cooldown delays the next background run after a failed one.
	Cooldown time.Duration
}

// DefaultTriggerConfig matches the behavior of the periodic daemon.
func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{
		Debounce:    2 * time.Second,
		MinInterval: 30 * time.Second,
		Cooldown:    2 * time.Minute,
	}
}

// RunFunc executes one sync pass.
type RunFunc func(ctx context.Context, opts Options) (*Outcome, error)

type request struct {
	source Source
	at     time.Time
}

// RequestCoordinator funnels sync requests from every source through
// debounce, throttle and failure-cooldown policy before invoking the
// coordinator. A manual request bypasses all three: the user asked, the
// user gets a sync.
type RequestCoordinator struct {
	cfg    TriggerConfig
	run    RunFunc
	logger *slog.Logger
	clock  func() time.Time

	requests chan request

	mu          sync.Mutex
	lastRequest map[Source]time.Time
	lastRunAt   time.Time
	lastFailure time.Time
}

// NewRequestCoordinator creates the trigger funnel. Start its loop with Run.
func NewRequestCoordinator(cfg TriggerConfig, run RunFunc, logger *slog.Logger) *RequestCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestCoordinator{
		cfg:         cfg,
		run:         run,
		logger:      logger,
		clock:       time.Now,
		requests:    make(chan request, 16),
		lastRequest: make(map[Source]time.Time),
	}
}

// Request asks for a sync on behalf of a source. Never blocks; when the
// queue is full the request is dropped, which is safe because a pending
// request already guarantees a run.
func (rc *RequestCoordinator) Request(source Source) {
	select {
	case rc.requests <- request{source: source, at: rc.clock()}:
	default:
		rc.logger.Debug("request queue full, coalescing", "source", string(source))
	}
}

// Run drives the coordinator until ctx is done. Each accepted request
// schedules a run at the earliest instant the policy allows; requests that
// arrive while one is scheduled merely extend or keep that schedule.
func (rc *RequestCoordinator) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	scheduled := false
	var pendingSources []Source

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case req := <-rc.requests:
			if req.source == SourceManual {
				// Manual requests fire immediately. The coordinator's
				// single-flight guard handles overlap with a scheduled run.
				rc.fire(ctx, []Source{SourceManual})
				continue
			}
			if rc.debounced(req) {
				continue
			}
			pendingSources = append(pendingSources, req.source)
			delay := rc.delayUntilAllowed(req.at)
			if scheduled {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			}
			timer.Reset(delay)
			scheduled = true

		case <-timer.C:
			scheduled = false
			sources := pendingSources
			pendingSources = nil
			rc.fire(ctx, sources)
		}
	}
}

// debounced reports whether this request falls inside its source's quiet
// window and should be swallowed.
func (rc *RequestCoordinator) debounced(req request) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if last, ok := rc.lastRequest[req.source]; ok && req.at.Sub(last) < rc.cfg.Debounce {
		return true
	}
	rc.lastRequest[req.source] = req.at
	return false
}

// delayUntilAllowed computes how long to wait before the next background
// run may start, honoring the debounce window, the throttle interval and
// any failure cooldown.
func (rc *RequestCoordinator) delayUntilAllowed(requested time.Time) time.Duration {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	earliest := requested.Add(rc.cfg.Debounce)
	if !rc.lastRunAt.IsZero() {
		if t := rc.lastRunAt.Add(rc.cfg.MinInterval); t.After(earliest) {
			earliest = t
		}
	}
	if !rc.lastFailure.IsZero() {
		if t := rc.lastFailure.Add(rc.cfg.Cooldown); t.After(earliest) {
			earliest = t
		}
	}

	delay := earliest.Sub(rc.clock())
	if delay < 0 {
		delay = 0
	}
	return delay
}

func (rc *RequestCoordinator) fire(ctx context.Context, sources []Source) {
	now := rc.clock()
	rc.mu.Lock()
	rc.lastRunAt = now
	rc.mu.Unlock()

	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	rc.logger.Debug("sync triggered", "sources", names)

	outcome, err := rc.run(ctx, Options{Silent: true})
	failed := err != nil || (outcome != nil && outcome.Failed())
	if failed {
		rc.mu.Lock()
		rc.lastFailure = rc.clock()
		rc.mu.Unlock()
		if err != nil {
			rc.logger.Warn("triggered sync failed", "error", err)
		}
	}
}
