package calendar

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/grove/internal/cli"
	"github.com/julianstephens/grove/internal/clock"
	"github.com/julianstephens/grove/internal/config"
	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/habits"
	"github.com/julianstephens/grove/internal/identity"
	"github.com/julianstephens/grove/internal/models"
	"github.com/julianstephens/grove/internal/storage/sqlite"
)

func setupTestContext(t *testing.T) (*cli.Context, func()) {
	t.Helper()
	dir := t.TempDir()
	store := sqlite.NewStore(filepath.Join(dir, "grove.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}

	ctx := &cli.Context{
		Store:     store,
		Config:    config.Default(),
		ConfigDir: dir,
		Identity:  identity.User("alice"),
		Clock:     clock.NewFixed(time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)),
	}
	return ctx, func() {
		if err := ctx.Close(); err != nil {
			t.Errorf("failed to close context: %v", err)
		}
	}
}

func TestRenderMarksTodayAndRates(t *testing.T) {
	ctx, cleanup := setupTestContext(t)
	defer cleanup()

	e, err := ctx.Engine(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	h, err := e.AddHabit(habits.NewHabit{
		Title:       "Read",
		Frequency:   models.Frequency{Type: constants.FrequencyDaily},
		TargetValue: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.ToggleCompletion(h.ID, "2026-10-16"); err != nil {
		t.Fatal(err)
	}

	grid, err := e.MonthGrid(2026, 10)
	if err != nil {
		t.Fatal(err)
	}
	out := Render(grid)

	if !strings.HasPrefix(out, "October 2026\n") {
		t.Errorf("unexpected header: %q", strings.SplitN(out, "\n", 2)[0])
	}
	if !strings.Contains(out, "*16100%") {
		t.Errorf("today should be marked complete, got:\n%s", out)
	}
	if !strings.Contains(out, " 17  0%") {
		t.Errorf("tomorrow should show 0%%, got:\n%s", out)
	}
	// October 2026 starts on a Thursday: 4 padding cells
	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[2], strings.Repeat(" ", 28)) {
		t.Errorf("first week should be padded to Thursday, got %q", lines[2])
	}
}

func TestCalendarCmdMonthFlag(t *testing.T) {
	ctx, cleanup := setupTestContext(t)
	defer cleanup()

	if err := (&CalendarCmd{Month: "2026-02"}).Run(ctx); err != nil {
		t.Errorf("valid month failed: %v", err)
	}
	if err := (&CalendarCmd{Month: "02/2026"}).Run(ctx); err == nil {
		t.Error("malformed month should fail")
	}
	if err := (&CalendarCmd{}).Run(ctx); err != nil {
		t.Errorf("default month failed: %v", err)
	}
}
