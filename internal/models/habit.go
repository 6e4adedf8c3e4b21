package models

import (
	"time"

	"github.com/julianstephens/grove/internal/constants"
)

// Frequency describes on which calendar days a habit is due
type Frequency struct {
	Type constants.FrequencyType `json:"type"`
	Days []time.Weekday          `json:"days,omitempty"` // weekly: first entry, custom: full mask
}

// Habit represents a recurring practice owned by one identity
type Habit struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Frequency   Frequency  `json:"frequency"`
	TargetValue int        `json:"target_value"`
	Unit        string     `json:"unit,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Completion is the record of a habit being done on one calendar day.
// At most one exists per (HabitID, Date).
type Completion struct {
	HabitID        string    `json:"habit_id"`
	Date           string    `json:"date"` // YYYY-MM-DD format
	CompletedValue int       `json:"completed_value"`
	Timestamp      time.Time `json:"timestamp"`
}

// TodayHabit is a habit due today annotated with its derived statistics
type TodayHabit struct {
	Habit          Habit `json:"habit"`
	Completed      bool  `json:"completed"`
	Streak         int   `json:"streak"`
	CompletionRate int   `json:"completion_rate"`
}
