// Package quests generates the daily quest set and pays out quests as habit activity completes them.
package quests

import (
	"fmt"

	"github.com/julianstephens/grove/internal/clock"
	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/habits"
	"github.com/julianstephens/grove/internal/ledger"
	"github.com/julianstephens/grove/internal/logger"
	"github.com/julianstephens/grove/internal/models"
	"github.com/julianstephens/grove/internal/utils"
)

// Option configures a Tracker
type Option func(*Tracker)

// WithEarlyBirdHour sets the local hour before which a completion counts for the early bird quest
func WithEarlyBirdHour(hour int) Option {
	return func(t *Tracker) {
		if hour > 0 && hour <= 24 {
			t.earlyBirdHour = hour
		}
	}
}

// Tracker owns today's quests
type Tracker struct {
	clock         clock.Clock
	habits        *habits.Store
	ledger        *ledger.Ledger
	earlyBirdHour int
	quests        []models.Quest
}

// New returns a tracker seeded with persisted quests. Quests from other days are dropped.
func New(c clock.Clock, h *habits.Store, l *ledger.Ledger, quests []models.Quest, opts ...Option) *Tracker {
	t := &Tracker{
		clock:         c,
		habits:        h,
		ledger:        l,
		earlyBirdHour: constants.DefaultEarlyBirdHour,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.quests = t.forToday(quests)
	return t
}

// GenerateDaily creates today's quests unless they already exist.
// It returns true when a new set was generated.
func (t *Tracker) GenerateDaily() bool {
	t.quests = t.forToday(t.quests)
	if len(t.quests) > 0 {
		return false
	}
	if len(t.habits.List(false)) == 0 {
		return false
	}

	snap := t.snapshot()
	day := utils.DayKey(snap.today)
	for _, tpl := range templates {
		if !tpl.available(snap.today) {
			continue
		}
		t.quests = append(t.quests, models.Quest{
			ID:          fmt.Sprintf("%s-%s", day, tpl.Type),
			Type:        tpl.Type,
			Date:        day,
			Title:       tpl.Title,
			Description: tpl.Description,
			Target:      tpl.target(snap),
			Points:      tpl.Points,
		})
	}
	logger.Debug("Generated daily quests", "date", day, "count", len(t.quests))
	return true
}

// UpdateProgress recomputes progress of today's quests from the habit store.
// Progress is capped at the target. A quest reaching its target is marked completed
// and paid exactly once; it stays completed for the rest of the day. Newly completed
// quests are returned.
func (t *Tracker) UpdateProgress() ([]models.Quest, error) {
	t.quests = t.forToday(t.quests)
	snap := t.snapshot()

	var completed []models.Quest
	for i := range t.quests {
		q := &t.quests[i]
		tpl, ok := lookupTemplate(q.Type)
		if !ok {
			continue
		}

		if q.Completed {
			q.Progress = q.Target
			continue
		}
		if tpl.liveTarget {
			q.Target = tpl.target(snap)
		}
		q.Progress = min(tpl.progress(snap), q.Target)
		if q.Progress < q.Target {
			continue
		}

		if _, err := t.ledger.Credit(q.Points, ledger.Source(constants.SourceQuest, string(q.Type))); err != nil {
			return completed, fmt.Errorf("pay quest %s: %w", q.ID, err)
		}
		q.Completed = true
		completed = append(completed, *q)
		logger.Info("Quest completed", "quest", q.ID, "points", q.Points)
	}
	return completed, nil
}

// Today returns a copy of today's quests
func (t *Tracker) Today() []models.Quest {
	current := t.forToday(t.quests)
	out := make([]models.Quest, len(current))
	copy(out, current)
	return out
}

func (t *Tracker) snapshot() snapshot {
	now := t.clock.Now()
	return snapshot{
		store:         t.habits,
		now:           now,
		today:         utils.StartOfDay(now),
		earlyBirdHour: t.earlyBirdHour,
	}
}

func (t *Tracker) forToday(quests []models.Quest) []models.Quest {
	today := clock.Today(t.clock)
	out := make([]models.Quest, 0, len(quests))
	for _, q := range quests {
		if q.Date == today {
			out = append(out, q)
		}
	}
	return out
}
