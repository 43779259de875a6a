package domain

import "time"

// Recurrence governs automatic regeneration of a completed task.
type Recurrence string

// Possible recurrence rules
const (
	RecurrenceNone    Recurrence = "NONE"
	RecurrenceDaily   Recurrence = "DAILY"
	RecurrenceWeekly  Recurrence = "WEEKLY"
	RecurrenceMonthly Recurrence = "MONTHLY"
)

// IsValid reports whether r is a known recurrence rule.
func (r Recurrence) IsValid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// NextDueDate returns the due date one period after due.
//
// Monthly steps use calendar arithmetic, so January 31 moves into early
// March the same way time.AddDate normalizes overflowing days.
// ok is false for RecurrenceNone and unknown rules.
func NextDueDate(due time.Time, r Recurrence) (next time.Time, ok bool) {
	switch r {
	case RecurrenceDaily:
		return due.AddDate(0, 0, 1), true
	case RecurrenceWeekly:
		return due.AddDate(0, 0, 7), true
	case RecurrenceMonthly:
		return due.AddDate(0, 1, 0), true
	default:
		return time.Time{}, false
	}
}
