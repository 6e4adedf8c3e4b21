package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/grove/internal/logger"
)

var (
	// ErrInsufficientBalance is returned when a debit would drive the points balance negative
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrHabitNotFound is returned for unknown, deleted or inactive habit ids
	ErrHabitNotFound = errors.New("habit not found")
	// ErrDailyWateringLimitReached is returned when a plant was already watered the maximum times today
	ErrDailyWateringLimitReached = errors.New("daily watering limit reached")
	// ErrPlantingCooldownActive is returned when the last planting is too recent
	ErrPlantingCooldownActive = errors.New("planting cooldown active")
	// ErrInvalidDate is returned for input that is not a calendar day
	ErrInvalidDate = errors.New("invalid date")
	// ErrPersistenceFailure wraps failures reported by the storage backend
	ErrPersistenceFailure = errors.New("persistence failure")

	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrPlantNotFound    = errors.New("plant not found")
	ErrUnknownPlantType = errors.New("unknown plant type")
	ErrInvalidHabit     = errors.New("invalid habit")
	ErrSessionActive    = errors.New("another session is active for this identity")
)

var userMessages = []struct {
	err error
	msg string
}{
	{ErrInsufficientBalance, "Insufficient Points"},
	{ErrHabitNotFound, "Habit not found"},
	{ErrDailyWateringLimitReached, "Daily limit reached"},
	{ErrPlantingCooldownActive, "You can plant again once the cooldown ends"},
	{ErrInvalidDate, "Invalid date"},
	{ErrPersistenceFailure, "Changes could not be synced"},
	{ErrInvalidAmount, "Amount must be positive"},
	{ErrPlantNotFound, "Plant not found"},
	{ErrUnknownPlantType, "Unknown bamboo species"},
	{ErrInvalidHabit, "Invalid habit"},
	{ErrSessionActive, "Another session is already running"},
}

// UserMessage maps a domain error to a short message suitable for display.
// Errors outside the taxonomy fall back to their own text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return err.Error()
}

// IsDomain reports whether err belongs to the engine's error taxonomy
func IsDomain(err error) bool {
	if err == nil {
		return false
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return true
		}
	}
	return false
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
