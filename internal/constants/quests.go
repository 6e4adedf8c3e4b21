package constants

// QuestType identifies a daily quest template
type QuestType string

const (
	QuestStreak         QuestType = "streak"
	QuestCompleteAll    QuestType = "complete_all"
	QuestEarlyBird      QuestType = "early_bird"
	QuestConsistency    QuestType = "consistency"
	QuestHabitCombo     QuestType = "habit_combo"
	QuestWeekendWarrior QuestType = "weekend_warrior"

	// DefaultEarlyBirdHour is the local hour before which a completion counts as early
	DefaultEarlyBirdHour = 9

	// ConsistencyWindowDays is the lookback for the consistency quest
	ConsistencyWindowDays = 7
)

// FrequencyType represents how often a habit is scheduled
type FrequencyType string

const (
	FrequencyDaily    FrequencyType = "daily"
	FrequencyWeekdays FrequencyType = "weekdays"
	FrequencyWeekends FrequencyType = "weekends"
	FrequencyWeekly   FrequencyType = "weekly"
	FrequencyCustom   FrequencyType = "custom"
)
