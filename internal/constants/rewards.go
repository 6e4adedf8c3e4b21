package constants

// Ledger rewards and costs. Amounts are whole points.
const (
	HabitCompletionReward = 5
	WaterReward           = 2

	// Bamboo watering and planting rules
	DailyWaterLimit      = 3
	PlantingCooldownDays = 15

	// Growth curve
	GrowthRampDays       = 15 // base growth stops increasing after this many days
	GrowthPerDay         = 6
	ExpectedWaterPerDay  = 3
	NeglectGraceDays     = 2
	NeglectPenaltyPerDay = 10
	MaxGrowth            = 100

	// Plant stage thresholds (exclusive upper bounds)
	SproutMaxGrowth = 33
	YoungMaxGrowth  = 66

	// Pot thresholds (exclusive upper bounds)
	PotSeedlingMaxGrowth = 25
	PotGrowingMaxGrowth  = 50
	PotLushMaxGrowth     = 100

	// Habit statistics
	DefaultRateWindowDays = 7
	MaxStreakLookbackDays = 3660
)

// Ledger source tags
const (
	SourceHabit       = "habit"
	SourceHabitUndo   = "habit-undo"
	SourceQuest       = "quest"
	SourceBambooWater = "bamboo-water"
	SourceBambooPlant = "bamboo-plant"
	SourceManual      = "manual"
)
