// Package schedule holds time-of-day rules for relays and turns them into
// recurring timers.
//
// A Rule fires at a local wall-clock time ("HH:MM") on a set of weekdays
// (0 = Sunday .. 6 = Saturday) and switches its relay ON or OFF. Rules live
// in a Store in insertion order; the Scheduler derives one cron entry per
// rule whose relay is in manual mode.
//
// The Scheduler is rebuilt wholesale whenever rules or modes change. Rules
// are not persisted and start empty on every boot.
//
// Daylight-saving transitions follow github.com/robfig/cron/v3: a time that
// does not exist on the transition day is skipped, a repeated hour fires once.
package schedule
