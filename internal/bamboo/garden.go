// Package bamboo simulates the bamboo garden: planting, watering and derived growth.
package bamboo

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/grove/internal/clock"
	"github.com/julianstephens/grove/internal/constants"
	grerrors "github.com/julianstephens/grove/internal/errors"
	"github.com/julianstephens/grove/internal/ledger"
	"github.com/julianstephens/grove/internal/models"
	"github.com/julianstephens/grove/internal/utils"
)

// Garden holds one identity's plants.
// Precondition checks and their effects run under one lock.
type Garden struct {
	mu      sync.Mutex
	clock   clock.Clock
	ledger  *ledger.Ledger
	catalog *Catalog
	plants  []models.BambooPlant
}

// New returns a garden seeded with persisted plants
func New(c clock.Clock, l *ledger.Ledger, catalog *Catalog, plants []models.BambooPlant) *Garden {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	seeded := make([]models.BambooPlant, len(plants))
	copy(seeded, plants)
	return &Garden{
		clock:   c,
		ledger:  l,
		catalog: catalog,
		plants:  seeded,
	}
}

// Catalog returns the species catalog the garden plants from
func (g *Garden) Catalog() *Catalog {
	return g.catalog
}

// Plant buys and plants a new bamboo of speciesType.
// Planting is refused while the cooldown since the latest planting runs, or when the
// balance does not cover the species cost.
func (g *Garden) Plant(speciesType, name string) (models.PlantView, error) {
	species, err := g.catalog.Lookup(speciesType)
	if err != nil {
		return models.PlantView{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if next, ok := g.nextPlantingLocked(); ok && utils.DaysBetween(next, now) < 0 {
		return models.PlantView{}, fmt.Errorf("%w: next planting on %s", grerrors.ErrPlantingCooldownActive, utils.DayKey(next))
	}

	if species.Cost > 0 {
		if _, err := g.ledger.Debit(species.Cost, ledger.Source(constants.SourceBambooPlant, species.Type)); err != nil {
			return models.PlantView{}, fmt.Errorf("plant %s: %w", species.Type, err)
		}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = species.Name
	}
	p := models.BambooPlant{
		ID:          uuid.New().String(),
		Species:     species.Type,
		Name:        name,
		PlantedDate: now,
	}
	g.plants = append(g.plants, p)
	return View(p, now), nil
}

// Water waters a plant once. Each plant takes at most 3 waterings per calendar day;
// every accepted watering earns points.
func (g *Garden) Water(plantID string) (models.PlantView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx := g.indexLocked(plantID)
	if idx < 0 {
		return models.PlantView{}, fmt.Errorf("%w: %s", grerrors.ErrPlantNotFound, plantID)
	}
	p := &g.plants[idx]

	now := g.clock.Now()
	today := utils.DayKey(now)
	if p.LastWateredDate != today {
		p.DailyWaterCount = 0
	}
	if p.DailyWaterCount >= constants.DailyWaterLimit {
		return View(*p, now), fmt.Errorf("%w: %s already watered %d times today", grerrors.ErrDailyWateringLimitReached, p.Name, p.DailyWaterCount)
	}

	if _, err := g.ledger.Credit(constants.WaterReward, ledger.Source(constants.SourceBambooWater, p.ID)); err != nil {
		return models.PlantView{}, fmt.Errorf("water %s: %w", p.ID, err)
	}
	p.DailyWaterCount++
	p.TotalWaterings++
	p.LastWateredDate = today
	return View(*p, now), nil
}

// Remove digs up a plant
func (g *Garden) Remove(plantID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx := g.indexLocked(plantID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", grerrors.ErrPlantNotFound, plantID)
	}
	g.plants = append(g.plants[:idx], g.plants[idx+1:]...)
	return nil
}

// Get returns one plant with derived values
func (g *Garden) Get(plantID string) (models.PlantView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx := g.indexLocked(plantID)
	if idx < 0 {
		return models.PlantView{}, fmt.Errorf("%w: %s", grerrors.ErrPlantNotFound, plantID)
	}
	return View(g.plants[idx], g.clock.Now()), nil
}

// Plants returns every plant with derived values, oldest first
func (g *Garden) Plants() []models.PlantView {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	out := make([]models.PlantView, 0, len(g.plants))
	for _, p := range g.plants {
		out = append(out, View(p, now))
	}
	return out
}

// Stored returns the stored primitives for persistence
func (g *Garden) Stored() []models.BambooPlant {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]models.BambooPlant, len(g.plants))
	copy(out, g.plants)
	return out
}

// NextPlantingDate reports the first day planting is allowed again.
// ok is false when nothing is planted.
func (g *Garden) NextPlantingDate() (next time.Time, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nextPlantingLocked()
}

// CanPlant reports whether Plant would pass the cooldown and balance checks for speciesType
func (g *Garden) CanPlant(speciesType string) error {
	species, err := g.catalog.Lookup(speciesType)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if next, ok := g.nextPlantingLocked(); ok && utils.DaysBetween(next, g.clock.Now()) < 0 {
		return grerrors.ErrPlantingCooldownActive
	}
	if !g.ledger.CanAfford(species.Cost) {
		return grerrors.ErrInsufficientBalance
	}
	return nil
}

func (g *Garden) nextPlantingLocked() (time.Time, bool) {
	if len(g.plants) == 0 {
		return time.Time{}, false
	}
	loc := g.clock.Now().Location()
	latest := g.plants[0].PlantedDate
	for _, p := range g.plants[1:] {
		if p.PlantedDate.After(latest) {
			latest = p.PlantedDate
		}
	}
	return utils.StartOfDay(latest.In(loc)).AddDate(0, 0, constants.PlantingCooldownDays), true
}

func (g *Garden) indexLocked(plantID string) int {
	for i := range g.plants {
		if g.plants[i].ID == plantID {
			return i
		}
	}
	return -1
}
