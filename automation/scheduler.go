package automation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/automesh/core"
	"github.com/hupe1980/automesh/logging"
)

// Named schedule expressions and their firing intervals.
var namedSchedules = map[string]time.Duration{
	"@every_minute": time.Minute,
	"@hourly":       time.Hour,
	"@daily":        24 * time.Hour,
	"@weekly":       7 * 24 * time.Hour,
}

// ParseScheduleExpression resolves a schedule expression to its firing
// interval. Supported forms are the named expressions (@every_minute,
// @hourly, @daily, @weekly) and "every Nm" / "every Nh" with a positive
// integer N. Anything else is rejected with a *core.ValidationError.
func ParseScheduleExpression(expr string) (time.Duration, error) {
	if d, ok := namedSchedules[expr]; ok {
		return d, nil
	}

	if rest, ok := strings.CutPrefix(expr, "every "); ok {
		unit := time.Duration(0)
		num := ""
		switch {
		case strings.HasSuffix(rest, "m"):
			unit, num = time.Minute, strings.TrimSuffix(rest, "m")
		case strings.HasSuffix(rest, "h"):
			unit, num = time.Hour, strings.TrimSuffix(rest, "h")
		}
		if unit != 0 {
			if n, err := strconv.Atoi(num); err == nil && n > 0 {
				return time.Duration(n) * unit, nil
			}
		}
	}

	return 0, &core.ValidationError{
		Field:   "trigger.config.schedule",
		Value:   expr,
		Message: "unknown schedule expression",
	}
}

// runFunc triggers an automation run. The scheduler never inspects the
// result; failures are recorded on the execution record by the engine.
type runFunc func(ctx context.Context, automationID string, input map[string]any)

// scheduler arms one repeating timer per schedule-triggered automation.
type scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Ticker
	done   map[string]chan struct{}
	run    runFunc
	logger logging.Logger
	closed bool
}

func newScheduler(run runFunc, logger logging.Logger) *scheduler {
	return &scheduler{
		timers: make(map[string]*time.Ticker),
		done:   make(map[string]chan struct{}),
		run:    run,
		logger: logger,
	}
}

// Arm starts the timer for an automation, replacing any existing one.
func (s *scheduler) Arm(automationID, expr string) error {
	interval, err := ParseScheduleExpression(expr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("scheduler closed")
	}

	s.disarmLocked(automationID)

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	s.timers[automationID] = ticker
	s.done[automationID] = done

	s.logger.Debug("schedule armed", "automation_id", automationID, "interval", interval.String())

	go func() {
		for {
			select {
			case <-done:
				return
			case firedAt := <-ticker.C:
				s.run(context.Background(), automationID, map[string]any{
					"trigger":  string(core.TriggerSchedule),
					"fired_at": firedAt.UTC().Format(time.RFC3339),
				})
			}
		}
	}()

	return nil
}

// Disarm stops the timer for an automation if one is armed.
func (s *scheduler) Disarm(automationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarmLocked(automationID)
}

func (s *scheduler) disarmLocked(automationID string) {
	if ticker, ok := s.timers[automationID]; ok {
		ticker.Stop()
		close(s.done[automationID])
		delete(s.timers, automationID)
		delete(s.done, automationID)
		s.logger.Debug("schedule disarmed", "automation_id", automationID)
	}
}

// Close stops all timers. The scheduler cannot be reused afterwards.
func (s *scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.timers {
		s.disarmLocked(id)
	}
	s.closed = true
}
