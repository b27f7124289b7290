// Package stealth provides the pacing gate every outbound browser action must
// pass through. The scheduler knows nothing about what an action does, only
// how often actions of its class are allowed to happen, which lets
// failure-injection tests exercise pacing independent of scraping logic.
package stealth

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ActionClass groups observable interactions for per-class pacing.
type ActionClass string

const (
	// ActionNavigate is a full page navigation.
	ActionNavigate ActionClass = "navigation"
	// ActionClick is a single element interaction.
	ActionClick ActionClass = "click"
	// ActionScroll is a feed or modal scroll step.
	ActionScroll ActionClass = "scroll"
	// ActionExtract is a content read (DOM extraction, screenshot).
	ActionExtract ActionClass = "extract"
)

// Config holds scheduler pacing parameters.
type Config struct {
	// MinDelay and MaxDelay bound the randomized per-class inter-action
	// delay. Each gated call draws a fresh delay from this range.
	MinDelay time.Duration
	MaxDelay time.Duration
	// ActionsPerMinute is the soft ceiling across all classes. Exceeding it
	// inserts a cooldown instead of a regular delay.
	ActionsPerMinute int
	// CooldownMin and CooldownMax bound the randomized cooldown inserted
	// once the soft ceiling is hit.
	CooldownMin time.Duration
	CooldownMax time.Duration
	// Seed fixes the random source for reproducible runs. Zero means a
	// time-derived seed.
	Seed int64
}

// DefaultConfig returns the design-default pacing: 1.5-5s randomized delays,
// 18 actions per minute soft ceiling, 30-90s cooldowns.
func DefaultConfig() Config {
	return Config{
		MinDelay:         1500 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		ActionsPerMinute: 18,
		CooldownMin:      30 * time.Second,
		CooldownMax:      90 * time.Second,
	}
}

// Stats reports scheduler activity for observability.
type Stats struct {
	TotalActions int
	Cooldowns    int
	ByClass      map[ActionClass]int
}

// Scheduler is the central gate for every outbound action.
type Scheduler struct {
	cfg     Config
	mu      sync.Mutex
	rng     *rand.Rand
	last    map[ActionClass]time.Time
	limiter *rate.Limiter
	total   int
	cooled  int
	byClass map[ActionClass]int

	// now and sleep are injectable for deterministic tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewScheduler creates a scheduler with the given pacing configuration.
func NewScheduler(cfg Config) *Scheduler {
	def := DefaultConfig()
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = def.MinDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if cfg.ActionsPerMinute <= 0 {
		cfg.ActionsPerMinute = def.ActionsPerMinute
	}
	if cfg.CooldownMin <= 0 {
		cfg.CooldownMin = def.CooldownMin
	}
	if cfg.CooldownMax <= 0 {
		cfg.CooldownMax = def.CooldownMax
	}
	if cfg.CooldownMax < cfg.CooldownMin {
		cfg.CooldownMax = cfg.CooldownMin
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Scheduler{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
		last:    make(map[ActionClass]time.Time),
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.ActionsPerMinute)/60.0), cfg.ActionsPerMinute),
		byClass: make(map[ActionClass]int),
		now:     time.Now,
		sleep:   sleepWithContext,
	}
}

// Gate blocks until it is safe to perform one action of the given class.
// It enforces the randomized per-class minimum delay, and once the rolling
// actions-per-minute budget is exhausted it inserts a longer cooldown.
// Returns the context's error if cancelled while waiting.
func (s *Scheduler) Gate(ctx context.Context, class ActionClass) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	now := s.now()
	wait := s.classWait(class, now)
	cooldown := time.Duration(0)
	if !s.limiter.AllowN(now.Add(wait), 1) {
		cooldown = s.randomBetween(s.cfg.CooldownMin, s.cfg.CooldownMax)
		s.cooled++
	}
	s.mu.Unlock()

	if total := wait + cooldown; total > 0 {
		if err := s.sleep(ctx, total); err != nil {
			return err
		}
	}

	s.mu.Lock()
	done := s.now()
	s.last[class] = done
	if cooldown > 0 {
		// Account for the action against the refilled budget. The ceiling is
		// soft: if the bucket is somehow still empty the action proceeds
		// anyway, and the next Gate call sees the deficit and cools down again.
		_ = s.limiter.AllowN(done, 1)
	}
	s.total++
	s.byClass[class]++
	s.mu.Unlock()
	return nil
}

// Stats returns a snapshot of scheduler activity.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	byClass := make(map[ActionClass]int, len(s.byClass))
	for k, v := range s.byClass {
		byClass[k] = v
	}
	return Stats{TotalActions: s.total, Cooldowns: s.cooled, ByClass: byClass}
}

// classWait computes the remaining randomized delay for the class.
// Caller holds the mutex.
func (s *Scheduler) classWait(class ActionClass, now time.Time) time.Duration {
	delay := s.randomBetween(s.cfg.MinDelay, s.cfg.MaxDelay)
	last, seen := s.last[class]
	if !seen {
		return 0
	}
	elapsed := now.Sub(last)
	if elapsed >= delay {
		return 0
	}
	return delay - elapsed
}

// randomBetween draws a duration uniformly from [min, max].
// Caller holds the mutex.
func (s *Scheduler) randomBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(s.rng.Int63n(int64(max-min)+1))
}

// sleepWithContext sleeps for d unless the context is cancelled first.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
