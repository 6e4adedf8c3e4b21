// Package server exposes the engine over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/engine"
	grerrors "github.com/julianstephens/grove/internal/errors"
	"github.com/julianstephens/grove/internal/identity"
	"github.com/julianstephens/grove/internal/logger"
)

const (
	localsEngine = "engine"

	// HeaderSync is set to "failed" when the change was applied but not saved
	HeaderSync = "X-Grove-Sync"
)

type Server struct {
	app      *fiber.App
	registry *Registry
}

func New(registry *Registry) *Server {
	app := fiber.New(fiber.Config{
		AppName:               constants.AppName + " " + constants.Version,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})
	s := &Server{app: app, registry: registry}

	app.Use(recover.New())
	app.Use(requestLogger())
	s.routes()
	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	logger.Info("Starting API server", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and flushes every open engine
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	return errors.Join(err, s.registry.Flush(ctx))
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": constants.Version, "engines": s.registry.Len()})
	})

	me := api.Group("", s.withEngine)
	me.Get("/state", handleState)

	me.Get("/points", handleBalance)
	me.Get("/points/history", handleHistory)
	me.Post("/points/credit", handleCredit)
	me.Post("/points/debit", handleDebit)

	me.Get("/habits", handleListHabits)
	me.Post("/habits", handleAddHabit)
	me.Get("/habits/today", handleTodaysHabits)
	me.Get("/habits/:id", handleGetHabit)
	me.Patch("/habits/:id", handleSetHabitActive)
	me.Delete("/habits/:id", handleDeleteHabit)
	me.Post("/habits/:id/toggle", handleToggle)
	me.Get("/habits/:id/stats", handleHabitStats)

	me.Get("/quests", handleQuests)
	me.Post("/quests/refresh", handleRefreshQuests)

	me.Get("/garden", handlePlants)
	me.Post("/garden", handlePlant)
	me.Get("/garden/species", handleSpecies)
	me.Post("/garden/:id/water", handleWater)
	me.Delete("/garden/:id", handleRemovePlant)

	me.Get("/calendar", handleCalendar)
}

// withEngine resolves the caller's identity from headers and attaches its engine
func (s *Server) withEngine(c *fiber.Ctx) error {
	var id identity.Identity
	switch {
	case c.Get(constants.HeaderUserID) != "":
		id = identity.User(c.Get(constants.HeaderUserID))
	case c.Get(constants.HeaderGuestID) != "":
		id = identity.Guest(c.Get(constants.HeaderGuestID))
	default:
		return fiber.NewError(fiber.StatusUnauthorized, "missing "+constants.HeaderUserID+" or "+constants.HeaderGuestID+" header")
	}
	if !id.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "invalid identity")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), constants.ConnectTimeout)
	defer cancel()
	e, release, err := s.registry.Get(ctx, id.Key())
	if err != nil {
		return err
	}
	defer release()
	c.Locals(localsEngine, e)

	err = c.Next()
	if err == nil && e.LastPersistError() != nil && c.Method() != fiber.MethodGet {
		c.Set(HeaderSync, "failed")
	}
	return err
}

func engineOf(c *fiber.Ctx) *engine.Engine {
	return c.Locals(localsEngine).(*engine.Engine)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{grerrors.ErrInsufficientBalance, fiber.StatusConflict, "INSUFFICIENT_BALANCE"},
	{grerrors.ErrDailyWateringLimitReached, fiber.StatusConflict, "DAILY_LIMIT_REACHED"},
	{grerrors.ErrPlantingCooldownActive, fiber.StatusConflict, "PLANTING_COOLDOWN"},
	{grerrors.ErrHabitNotFound, fiber.StatusNotFound, "HABIT_NOT_FOUND"},
	{grerrors.ErrPlantNotFound, fiber.StatusNotFound, "PLANT_NOT_FOUND"},
	{grerrors.ErrInvalidDate, fiber.StatusBadRequest, "INVALID_DATE"},
	{grerrors.ErrInvalidAmount, fiber.StatusBadRequest, "INVALID_AMOUNT"},
	{grerrors.ErrInvalidHabit, fiber.StatusBadRequest, "INVALID_HABIT"},
	{grerrors.ErrUnknownPlantType, fiber.StatusBadRequest, "UNKNOWN_PLANT_TYPE"},
	{grerrors.ErrPersistenceFailure, fiber.StatusServiceUnavailable, "PERSISTENCE_FAILURE"},
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	body := errorBody{Code: "INTERNAL", Message: "Internal Server Error"}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		body = errorBody{Code: "HTTP_ERROR", Message: fe.Message}
	} else {
		for _, m := range errorStatus {
			if errors.Is(err, m.err) {
				status = m.status
				body = errorBody{Code: m.code, Message: grerrors.UserMessage(err)}
				break
			}
		}
	}
	if status >= fiber.StatusInternalServerError {
		logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": body})
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug("Request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		)
		return err
	}
}
