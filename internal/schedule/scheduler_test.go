package schedule

import (
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/relayhub/internal/relay"
)

type fireRecorder struct {
	mu      sync.Mutex
	firings []Firing
}

func (r *fireRecorder) fire(f Firing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.firings = append(r.firings, f)
}

func (r *fireRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.firings)
}

func allManual(int) bool { return true }

// runEntries invokes every cron job synchronously, as the cron loop would.
func runEntries(s *Scheduler) {
	for _, e := range s.cron.Entries() {
		e.Job.Run()
	}
}

func TestScheduler_RebuildAllArmsManualRelaysOnly(t *testing.T) {
	rec := &fireRecorder{}
	s := NewScheduler(time.UTC, rec.fire)

	rules := map[int][]Rule{
		3: {rule("07:00", relay.StateOn, 1)},
		4: {rule("08:00", relay.StateOff, 2), rule("09:00", relay.StateOn, 2)},
	}
	s.RebuildAll(rules, func(id int) bool { return id == 3 })

	armed := s.Armed()
	if len(armed) != 1 {
		t.Fatalf("Armed() = %d timers, want 1", len(armed))
	}
	if armed[0].Relay != 3 || armed[0].Key != "3-07:00-1-ON" {
		t.Errorf("armed = %+v", armed[0])
	}
	if len(s.cron.Entries()) != 1 {
		t.Errorf("cron entries = %d, want 1", len(s.cron.Entries()))
	}

	runEntries(s)
	if rec.count() != 1 {
		t.Fatalf("firings = %d, want 1", rec.count())
	}
	f := rec.firings[0]
	if f.Relay != 3 || f.Rule.Action != relay.StateOn || !f.Live() {
		t.Errorf("firing = %+v live=%v", f, f.Live())
	}
}

func TestScheduler_RebuildAllReplacesTimers(t *testing.T) {
	rec := &fireRecorder{}
	s := NewScheduler(time.UTC, rec.fire)
	rules := map[int][]Rule{3: {rule("07:00", relay.StateOn, 1)}}

	s.RebuildAll(rules, allManual)
	old := s.cron.Entries()

	s.RebuildAll(rules, allManual)
	if s.Len() != 1 || len(s.cron.Entries()) != 1 {
		t.Fatalf("after rebuild: timers=%d entries=%d, want 1/1", s.Len(), len(s.cron.Entries()))
	}

	// A job captured before the rebuild is stale and must not fire.
	old[0].Job.Run()
	if rec.count() != 0 {
		t.Errorf("stale timer fired %d times", rec.count())
	}
}

func TestScheduler_LiveTurnsFalseAfterRebuild(t *testing.T) {
	rec := &fireRecorder{}
	s := NewScheduler(time.UTC, rec.fire)
	rules := map[int][]Rule{3: {rule("07:00", relay.StateOn, 1)}}

	s.RebuildAll(rules, allManual)
	runEntries(s)
	f := rec.firings[0]

	s.RebuildAll(rules, func(int) bool { return false })
	if f.Live() {
		t.Error("Live() = true for a firing whose timer was stopped")
	}
	if s.Len() != 0 || len(s.cron.Entries()) != 0 {
		t.Errorf("timers=%d entries=%d after disarming all", s.Len(), len(s.cron.Entries()))
	}
}

func TestScheduler_PauseAndRearm(t *testing.T) {
	s := NewScheduler(time.UTC, nil)
	rules := map[int][]Rule{3: {rule("07:00", relay.StateOn, 1), rule("19:00", relay.StateOff, 1)}}

	s.RebuildAll(rules, allManual)
	s.RebuildAll(rules, func(int) bool { return false })
	if s.Len() != 0 {
		t.Fatalf("Len() = %d while paused, want 0", s.Len())
	}
	s.RebuildAll(rules, allManual)
	if s.Len() != 2 {
		t.Errorf("Len() = %d after re-arm, want 2", s.Len())
	}
}

func TestScheduler_IdenticalRulesGetOwnTimers(t *testing.T) {
	s := NewScheduler(time.UTC, nil)
	r := rule("07:00", relay.StateOn, 1)
	s.RebuildAll(map[int][]Rule{3: {r, r}}, allManual)

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if !s.Disarm(3, r) {
		t.Fatal("Disarm() = false")
	}
	if s.Len() != 1 || len(s.cron.Entries()) != 1 {
		t.Errorf("after Disarm: timers=%d entries=%d, want 1/1", s.Len(), len(s.cron.Entries()))
	}
}

func TestScheduler_DisarmUnknown(t *testing.T) {
	s := NewScheduler(time.UTC, nil)
	s.RebuildAll(map[int][]Rule{3: {rule("07:00", relay.StateOn, 1)}}, allManual)

	if s.Disarm(3, rule("08:00", relay.StateOn, 1)) {
		t.Error("Disarm() = true for a rule that was never armed")
	}
	if s.Disarm(4, rule("07:00", relay.StateOn, 1)) {
		t.Error("Disarm() = true for the wrong relay")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestScheduler_EmptyRebuildIsNoop(t *testing.T) {
	s := NewScheduler(nil, nil)
	s.RebuildAll(nil, allManual)

	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if s.Location() != time.Local {
		t.Errorf("Location() = %v, want Local", s.Location())
	}
}

func TestScheduler_NextFireTime(t *testing.T) {
	s := NewScheduler(time.UTC, nil)
	sched, err := s.parse(rule("07:00", relay.StateOn, 1))
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	// 2024-01-07 is a Sunday.
	from := time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC)
	want := time.Date(2024, 1, 8, 7, 0, 0, 0, time.UTC)
	if got := sched.Next(from); !got.Equal(want) {
		t.Errorf("Next(%v) = %v, want %v", from, got, want)
	}

	// Monday after 07:00 rolls to the following Monday.
	from = time.Date(2024, 1, 8, 7, 0, 30, 0, time.UTC)
	want = time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)
	if got := sched.Next(from); !got.Equal(want) {
		t.Errorf("Next(%v) = %v, want %v", from, got, want)
	}
}

func TestScheduler_ArmedNextIsInFuture(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	s := NewScheduler(loc, nil)
	s.RebuildAll(map[int][]Rule{1: {rule("00:00", relay.StateOff, 0, 1, 2, 3, 4, 5, 6)}}, allManual)

	armed := s.Armed()
	if len(armed) != 1 {
		t.Fatalf("Armed() = %d, want 1", len(armed))
	}
	next := armed[0].Next
	if !next.After(time.Now()) {
		t.Errorf("Next = %v, want a future time", next)
	}
	if h, m, _ := next.In(loc).Clock(); h != 0 || m != 0 {
		t.Errorf("Next = %v, want midnight in %v", next.In(loc), loc)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(time.UTC, nil)
	s.Start()
	s.RebuildAll(map[int][]Rule{1: {rule("07:00", relay.StateOn, 1)}}, allManual)

	ctx := s.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("Stop() did not finish")
	}
}
