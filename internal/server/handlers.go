package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/julianstephens/grove/internal/calendar"
	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/habits"
	"github.com/julianstephens/grove/internal/ledger"
	"github.com/julianstephens/grove/internal/models"
)

type amountRequest struct {
	Amount int    `json:"amount"`
	Source string `json:"source"`
}

type habitRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Frequency   models.Frequency `json:"frequency"`
	TargetValue int              `json:"target_value"`
	Unit        string           `json:"unit"`
}

type activeRequest struct {
	Active *bool `json:"active"`
}

type toggleRequest struct {
	Date string `json:"date"`
}

type plantRequest struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func badBody(err error) error {
	return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
}

func handleState(c *fiber.Ctx) error {
	return c.JSON(engineOf(c).State())
}

// Points

func handleBalance(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"balance": engineOf(c).Balance()})
}

func handleHistory(c *fiber.Ctx) error {
	return c.JSON(engineOf(c).History())
}

func handleCredit(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(err)
	}
	e := engineOf(c)
	entry, err := e.Credit(req.Amount, sourceOrManual(req.Source))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"entry": entry, "balance": e.Balance()})
}

func handleDebit(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(err)
	}
	e := engineOf(c)
	entry, err := e.Debit(req.Amount, sourceOrManual(req.Source))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"entry": entry, "balance": e.Balance()})
}

func sourceOrManual(ref string) string {
	return ledger.Source(constants.SourceManual, ref)
}

// Habits

func handleListHabits(c *fiber.Ctx) error {
	return c.JSON(engineOf(c).Habits(c.QueryBool("all")))
}

func handleAddHabit(c *fiber.Ctx) error {
	var req habitRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(err)
	}
	h, err := engineOf(c).AddHabit(habits.NewHabit{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Frequency:   req.Frequency,
		TargetValue: req.TargetValue,
		Unit:        req.Unit,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(h)
}

func handleTodaysHabits(c *fiber.Ctx) error {
	return c.JSON(engineOf(c).TodaysHabits())
}

func handleGetHabit(c *fiber.Ctx) error {
	h, err := engineOf(c).Habit(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(h)
}

func handleSetHabitActive(c *fiber.Ctx) error {
	var req activeRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(err)
	}
	if req.Active == nil {
		return fiber.NewError(fiber.StatusBadRequest, "active is required")
	}
	h, err := engineOf(c).SetHabitActive(c.Params("id"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(h)
}

func handleDeleteHabit(c *fiber.Ctx) error {
	if err := engineOf(c).DeleteHabit(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func handleToggle(c *fiber.Ctx) error {
	var req toggleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(err)
		}
	}
	e := engineOf(c)
	out, err := e.ToggleCompletion(c.Params("id"), req.Date)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"result": out, "balance": e.Balance()})
}

func handleHabitStats(c *fiber.Ctx) error {
	e := engineOf(c)
	id := c.Params("id")
	streak, err := e.Streak(id)
	if err != nil {
		return err
	}
	longest, err := e.LongestStreak(id)
	if err != nil {
		return err
	}
	window := c.QueryInt("window", constants.DefaultRateWindowDays)
	rate, err := e.CompletionRate(id, window)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"habit_id":        id,
		"streak":          streak,
		"longest_streak":  longest,
		"completion_rate": rate,
		"window_days":     window,
	})
}

// Quests

func handleQuests(c *fiber.Ctx) error {
	return c.JSON(engineOf(c).GenerateDaily())
}

func handleRefreshQuests(c *fiber.Ctx) error {
	e := engineOf(c)
	e.GenerateDaily()
	done, err := e.UpdateProgress()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"quests": e.Quests(), "completed": done, "balance": e.Balance()})
}

// Garden

type gardenResponse struct {
	Plants         []models.PlantView `json:"plants"`
	NextPlantingAt *string            `json:"next_planting_at,omitempty"`
	CanPlantToday  bool               `json:"can_plant_today"`
	Balance        int                `json:"balance"`
}

func handlePlants(c *fiber.Ctx) error {
	e := engineOf(c)
	resp := gardenResponse{Plants: e.Plants(), CanPlantToday: true, Balance: e.Balance()}
	if next, ok := e.NextPlantingDate(); ok {
		day := next.Format(constants.DateFormat)
		resp.NextPlantingAt = &day
		resp.CanPlantToday = !e.Clock().Now().Before(next)
	}
	return c.JSON(resp)
}

func handlePlant(c *fiber.Ctx) error {
	var req plantRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(err)
	}
	e := engineOf(c)
	view, err := e.Plant(req.Type, req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"plant": view, "balance": e.Balance()})
}

func handleSpecies(c *fiber.Ctx) error {
	return c.JSON(engineOf(c).Species())
}

func handleWater(c *fiber.Ctx) error {
	e := engineOf(c)
	view, err := e.Water(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"plant": view, "balance": e.Balance()})
}

func handleRemovePlant(c *fiber.Ctx) error {
	if err := engineOf(c).RemovePlant(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Calendar

func handleCalendar(c *fiber.Ctx) error {
	e := engineOf(c)
	now := e.Clock().Now()
	year, month := now.Year(), int(now.Month())
	if m := c.Query("month"); m != "" {
		var err error
		if year, month, err = calendar.ParseMonth(m); err != nil {
			return err
		}
	}
	grid, err := e.MonthGrid(year, month)
	if err != nil {
		return err
	}
	return c.JSON(grid)
}
