package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/nerrad567/relayhub/internal/relay"
)

// timePattern accepts H:MM and HH:MM in 24-hour notation.
var timePattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// Weekdays is a set of weekday indices, 0 = Sunday.
//
// It decodes from JSON numbers or numeric strings, since form controls
// tend to send the latter.
type Weekdays []int

// UnmarshalJSON implements json.Unmarshaler.
func (w *Weekdays) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*w = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: days must be an array", ErrInvalidDay)
	}
	days := make(Weekdays, 0, len(raw))
	for _, item := range raw {
		var n int
		if err := json.Unmarshal(item, &n); err == nil {
			days = append(days, n)
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidDay, item)
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDay, s)
		}
		days = append(days, n)
	}
	*w = days
	return nil
}

// Rule is one recurring trigger for a relay.
type Rule struct {
	Time   string      `json:"time"`
	Days   Weekdays    `json:"days"`
	Action relay.State `json:"action"`
}

// Normalize validates the rule and returns its canonical form: time as
// zero-padded HH:MM, days sorted and de-duplicated, action upper-case.
// Every error wraps ErrInvalidRule.
func (r Rule) Normalize() (Rule, error) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(r.Time))
	if m == nil {
		return Rule{}, fmt.Errorf("%w: %w: %q", ErrInvalidRule, ErrInvalidTime, r.Time)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])

	if len(r.Days) == 0 {
		return Rule{}, fmt.Errorf("%w: %w", ErrInvalidRule, ErrNoDays)
	}
	days := slices.Clone(r.Days)
	for _, d := range days {
		if d < 0 || d > 6 {
			return Rule{}, fmt.Errorf("%w: %w: %d (must be 0-6)", ErrInvalidRule, ErrInvalidDay, d)
		}
	}
	slices.Sort(days)
	days = slices.Compact(days)

	action, err := relay.ParseState(string(r.Action))
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %w: %q", ErrInvalidRule, ErrInvalidAction, r.Action)
	}

	return Rule{
		Time:   fmt.Sprintf("%02d:%02d", hour, minute),
		Days:   days,
		Action: action,
	}, nil
}

// Key identifies the timer for a rule on a relay, e.g. "3-07:00-1-2-ON".
// Identical rules on one relay share a key.
func (r Rule) Key(relayID int) string {
	return fmt.Sprintf("%d-%s-%s-%s", relayID, r.Time, joinDays(r.Days, "-"), r.Action)
}

// CronSpec returns the five-field cron expression for a normalised rule,
// e.g. "0 7 * * 1,2".
func (r Rule) CronSpec() string {
	hh, mm, _ := strings.Cut(r.Time, ":")
	hour, _ := strconv.Atoi(hh)
	minute, _ := strconv.Atoi(mm)
	return fmt.Sprintf("%d %d * * %s", minute, hour, joinDays(r.Days, ","))
}

func (r Rule) clone() Rule {
	r.Days = slices.Clone(r.Days)
	return r
}

func joinDays(days []int, sep string) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, sep)
}
