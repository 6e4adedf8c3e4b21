package quests

import (
	"time"

	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/habits"
	"github.com/julianstephens/grove/internal/utils"
)

// snapshot is the read-only view a template computes progress from
type snapshot struct {
	store         *habits.Store
	now           time.Time
	today         time.Time
	earlyBirdHour int
}

type template struct {
	Type        constants.QuestType
	Title       string
	Description string
	Points      int
	// available reports whether the template is offered on date
	available func(date time.Time) bool
	target    func(s snapshot) int
	// liveTarget re-evaluates target on every update until the quest completes
	liveTarget bool
	progress   func(s snapshot) int
}

func always(time.Time) bool { return true }

func fixed(n int) func(snapshot) int {
	return func(snapshot) int { return n }
}

var templates = []template{
	{
		Type:        constants.QuestStreak,
		Title:       "Streak Keeper",
		Description: "Keep any habit going for 3 days in a row",
		Points:      15,
		available:   always,
		target:      fixed(3),
		progress: func(s snapshot) int {
			best := 0
			for _, h := range s.store.List(false) {
				if n, err := s.store.Streak(h.ID); err == nil && n > best {
					best = n
				}
			}
			return best
		},
	},
	{
		Type:        constants.QuestCompleteAll,
		Title:       "Clean Sweep",
		Description: "Complete every habit scheduled for today",
		Points:      20,
		available:   always,
		target: func(s snapshot) int {
			return max(1, len(s.store.ScheduledOn(s.today)))
		},
		liveTarget: true,
		progress: func(s snapshot) int {
			key := utils.DayKey(s.today)
			done := 0
			for _, h := range s.store.ScheduledOn(s.today) {
				if s.store.IsCompleted(h.ID, key) {
					done++
				}
			}
			return done
		},
	},
	{
		Type:        constants.QuestEarlyBird,
		Title:       "Early Bird",
		Description: "Complete a habit early in the morning",
		Points:      10,
		available:   always,
		target:      fixed(1),
		progress: func(s snapshot) int {
			for _, c := range s.store.CompletionsOn(utils.DayKey(s.today)) {
				if c.Timestamp.In(s.now.Location()).Hour() < s.earlyBirdHour {
					return 1
				}
			}
			return 0
		},
	},
	{
		Type:        constants.QuestConsistency,
		Title:       "Steady Hands",
		Description: "Complete at least one habit on 5 of the last 7 days",
		Points:      15,
		available:   always,
		target:      fixed(5),
		progress: func(s snapshot) int {
			days := 0
			for i := 0; i < constants.ConsistencyWindowDays; i++ {
				d := s.today.AddDate(0, 0, -i)
				if len(s.store.CompletionsOn(utils.DayKey(d))) > 0 {
					days++
				}
			}
			return days
		},
	},
	{
		Type:        constants.QuestHabitCombo,
		Title:       "Well Rounded",
		Description: "Complete habits from 2 different categories today",
		Points:      10,
		available:   always,
		target:      fixed(2),
		progress: func(s snapshot) int {
			seen := make(map[string]struct{})
			for _, c := range s.store.CompletionsOn(utils.DayKey(s.today)) {
				h, err := s.store.Get(c.HabitID)
				if err != nil || h.Category == "" {
					continue
				}
				seen[h.Category] = struct{}{}
			}
			return len(seen)
		},
	},
	{
		Type:        constants.QuestWeekendWarrior,
		Title:       "Weekend Warrior",
		Description: "Complete 2 habits on a weekend day",
		Points:      25,
		available:   utils.IsWeekend,
		target:      fixed(2),
		progress: func(s snapshot) int {
			return len(s.store.CompletionsOn(utils.DayKey(s.today)))
		},
	},
}

func lookupTemplate(t constants.QuestType) (template, bool) {
	for _, tpl := range templates {
		if tpl.Type == t {
			return tpl, true
		}
	}
	return template{}, false
}
