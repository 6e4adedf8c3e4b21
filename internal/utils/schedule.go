package utils

import (
	"sync"
	"time"

	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/models"
)

// SchedulePolicy decides whether a habit is due on date
type SchedulePolicy func(habit models.Habit, date time.Time) bool

var (
	policiesMu sync.RWMutex
	policies   = map[constants.FrequencyType]SchedulePolicy{
		constants.FrequencyDaily: func(models.Habit, time.Time) bool {
			return true
		},
		constants.FrequencyWeekdays: func(_ models.Habit, date time.Time) bool {
			wd := date.Weekday()
			return wd >= time.Monday && wd <= time.Friday
		},
		constants.FrequencyWeekends: func(_ models.Habit, date time.Time) bool {
			return IsWeekend(date)
		},
		constants.FrequencyWeekly: func(h models.Habit, date time.Time) bool {
			return date.Weekday() == WeeklyAnchor(h)
		},
		constants.FrequencyCustom: func(h models.Habit, date time.Time) bool {
			for _, wd := range h.Frequency.Days {
				if date.Weekday() == wd {
					return true
				}
			}
			return false
		},
	}
)

// RegisterSchedulePolicy installs or replaces the policy for a frequency type
func RegisterSchedulePolicy(freq constants.FrequencyType, policy SchedulePolicy) {
	policiesMu.Lock()
	defer policiesMu.Unlock()
	policies[freq] = policy
}

// KnownFrequency reports whether a policy exists for freq
func KnownFrequency(freq constants.FrequencyType) bool {
	policiesMu.RLock()
	defer policiesMu.RUnlock()
	_, ok := policies[freq]
	return ok
}

// IsScheduled determines if a habit is due on the given date based on its frequency.
// Unknown frequencies are never scheduled.
func IsScheduled(habit models.Habit, date time.Time) bool {
	policiesMu.RLock()
	policy, ok := policies[habit.Frequency.Type]
	policiesMu.RUnlock()
	if !ok {
		return false
	}
	return policy(habit, date)
}

// WeeklyAnchor returns the weekday a weekly habit is due on: the first configured
// day, or the weekday the habit was created.
func WeeklyAnchor(habit models.Habit) time.Weekday {
	if len(habit.Frequency.Days) > 0 {
		return habit.Frequency.Days[0]
	}
	return habit.CreatedAt.Weekday()
}

// IsWeekend reports whether date falls on Saturday or Sunday
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
