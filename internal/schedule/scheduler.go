package schedule

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Logger defines the logging interface used by the Scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Firing describes one timer going off.
type Firing struct {
	Relay int
	Rule  Rule
	Key   string

	// Live reports whether the timer is still armed. A firing that raced
	// with RebuildAll or Disarm reports false and must be ignored.
	Live func() bool
}

// FireFunc receives timer firings. It runs on the cron goroutine.
type FireFunc func(Firing)

// ArmedRule is a snapshot of one armed timer.
type ArmedRule struct {
	Relay int       `json:"relay"`
	Key   string    `json:"key"`
	Rule  Rule      `json:"rule"`
	Next  time.Time `json:"next"`
}

type timer struct {
	relay    int
	rule     Rule
	key      string
	schedule cron.Schedule
	entry    cron.EntryID
	stopped  atomic.Bool
}

// Scheduler materialises rules as cron entries, one per armed rule.
//
// Apart from the callback path, the Scheduler is not safe for concurrent use;
// its owner serialises RebuildAll, Disarm and Armed.
type Scheduler struct {
	cron   *cron.Cron
	parser cron.Parser
	loc    *time.Location
	onFire FireFunc
	timers []*timer
	logger Logger
}

// NewScheduler creates a scheduler evaluating rules in loc. A nil loc means
// time.Local.
func NewScheduler(loc *time.Location, onFire FireFunc) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc), cron.WithParser(parser)),
		parser: parser,
		loc:    loc,
		onFire: onFire,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.logger = logger
}

// Start begins dispatching timers in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts dispatching. The returned context is done once running
// callbacks have returned.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RebuildAll stops every timer and arms one per rule whose relay satisfies
// armed. Relays are processed in ascending order and rules in store order.
func (s *Scheduler) RebuildAll(rules map[int][]Rule, armed func(relayID int) bool) {
	for _, t := range s.timers {
		s.stop(t)
	}
	s.timers = s.timers[:0]

	ids := make([]int, 0, len(rules))
	for id := range rules {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if !armed(id) {
			continue
		}
		for _, rule := range rules[id] {
			if err := s.arm(id, rule); err != nil {
				s.logger.Error("failed to arm schedule", "relay", id, "key", rule.Key(id), "error", err)
			}
		}
	}

	s.logger.Debug("schedules rebuilt", "armed", len(s.timers))
}

// Disarm stops the first armed timer matching rule on relayID.
// It reports whether a timer was found.
func (s *Scheduler) Disarm(relayID int, rule Rule) bool {
	key := rule.Key(relayID)
	for i, t := range s.timers {
		if t.relay == relayID && t.key == key {
			s.stop(t)
			s.timers = slices.Delete(s.timers, i, i+1)
			return true
		}
	}
	return false
}

// Armed lists the armed timers with their next fire time.
func (s *Scheduler) Armed() []ArmedRule {
	now := time.Now().In(s.loc)
	out := make([]ArmedRule, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, ArmedRule{
			Relay: t.relay,
			Key:   t.key,
			Rule:  t.rule.clone(),
			Next:  t.schedule.Next(now),
		})
	}
	return out
}

// Len returns the number of armed timers.
func (s *Scheduler) Len() int {
	return len(s.timers)
}

// Location returns the zone rules are evaluated in.
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

func (s *Scheduler) arm(relayID int, rule Rule) error {
	sched, err := s.parse(rule)
	if err != nil {
		return err
	}

	t := &timer{
		relay:    relayID,
		rule:     rule.clone(),
		key:      rule.Key(relayID),
		schedule: sched,
	}
	t.entry = s.cron.Schedule(sched, cron.FuncJob(func() {
		if t.stopped.Load() || s.onFire == nil {
			return
		}
		s.onFire(Firing{
			Relay: t.relay,
			Rule:  t.rule.clone(),
			Key:   t.key,
			Live:  func() bool { return !t.stopped.Load() },
		})
	}))
	s.timers = append(s.timers, t)
	return nil
}

func (s *Scheduler) stop(t *timer) {
	t.stopped.Store(true)
	s.cron.Remove(t.entry)
}

func (s *Scheduler) parse(rule Rule) (cron.Schedule, error) {
	sched, err := s.parser.Parse(rule.CronSpec())
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", rule.CronSpec(), err)
	}
	return sched, nil
}
