package models

import "time"

// PlantStage is the derived maturity bucket of a bamboo plant
type PlantStage string

const (
	StageSprout PlantStage = "sprout"
	StageYoung  PlantStage = "young"
	StageMature PlantStage = "mature"
)

// PotState is the derived visual state of a plant's pot
type PotState string

const (
	PotEmpty    PotState = "empty"
	PotSeedling PotState = "seedling"
	PotGrowing  PotState = "growing"
	PotLush     PotState = "lush"
	PotFull     PotState = "full"
)

// BambooPlant holds the stored primitives of a planted bamboo.
// Growth, stage and pot are always derived, never stored.
type BambooPlant struct {
	ID              string    `json:"id"`
	Species         string    `json:"species"`
	Name            string    `json:"name"`
	PlantedDate     time.Time `json:"planted_date"`
	DailyWaterCount int       `json:"daily_water_count"`
	LastWateredDate string    `json:"last_watered_date,omitempty"` // YYYY-MM-DD format
	TotalWaterings  int       `json:"total_waterings"`
}

// PlantView is a plant together with its derived values at a point in time
type PlantView struct {
	BambooPlant
	Growth         int        `json:"growth"`
	Stage          PlantStage `json:"stage"`
	Pot            PotState   `json:"pot"`
	WateringsToday int        `json:"waterings_today"`
}
