package bamboo

import (
	"math"
	"time"

	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/models"
	"github.com/julianstephens/grove/internal/utils"
)

// DaysSincePlanting counts calendar days with the planting day as day 1.
// It is 0 when now is before the planting day.
func DaysSincePlanting(planted, now time.Time) int {
	days := utils.DaysBetween(planted.In(now.Location()), now) + 1
	if days < 1 {
		return 0
	}
	return days
}

// Growth derives a plant's 0-100 growth from when it was planted and how often it was watered.
//
// Growth ramps 6 points a day for the first 15 days and is scaled by how well watering kept
// up with 3 a day. Every day past a 2 day grace since the last day the waterings cover
// costs 10 points.
func Growth(planted time.Time, totalWaterings int, now time.Time) int {
	days := DaysSincePlanting(planted, now)
	if days == 0 {
		return 0
	}
	if totalWaterings < 0 {
		totalWaterings = 0
	}

	base := float64(min(constants.GrowthRampDays, days) * constants.GrowthPerDay)

	ratio := 1.0
	if expected := days * constants.ExpectedWaterPerDay; expected > 0 {
		ratio = math.Min(1, float64(totalWaterings)/float64(expected))
	}
	growth := base * ratio

	lastWaterDay := (totalWaterings + constants.ExpectedWaterPerDay - 1) / constants.ExpectedWaterPerDay
	if gap := max(0, days-lastWaterDay); gap > constants.NeglectGraceDays {
		growth -= float64((gap - constants.NeglectGraceDays) * constants.NeglectPenaltyPerDay)
	}

	growth = math.Max(0, math.Min(constants.MaxGrowth, growth))
	return int(math.Round(growth))
}

// Stage buckets growth into sprout, young and mature
func Stage(growth int) models.PlantStage {
	switch {
	case growth < constants.SproutMaxGrowth:
		return models.StageSprout
	case growth < constants.YoungMaxGrowth:
		return models.StageYoung
	default:
		return models.StageMature
	}
}

// Pot derives the pot visual from growth and watering history
func Pot(growth, totalWaterings int) models.PotState {
	switch {
	case totalWaterings == 0:
		return models.PotEmpty
	case growth < constants.PotSeedlingMaxGrowth:
		return models.PotSeedling
	case growth < constants.PotGrowingMaxGrowth:
		return models.PotGrowing
	case growth < constants.PotLushMaxGrowth:
		return models.PotLush
	default:
		return models.PotFull
	}
}

// View computes the derived values of p at now
func View(p models.BambooPlant, now time.Time) models.PlantView {
	g := Growth(p.PlantedDate, p.TotalWaterings, now)
	today := 0
	if p.LastWateredDate == utils.DayKey(now) {
		today = p.DailyWaterCount
	}
	return models.PlantView{
		BambooPlant:    p,
		Growth:         g,
		Stage:          Stage(g),
		Pot:            Pot(g, p.TotalWaterings),
		WateringsToday: today,
	}
}
