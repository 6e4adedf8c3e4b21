package models

import "time"

// StateVersion is bumped when the persisted engine document changes shape
const StateVersion = 1

// EngineState is everything the engine persists for one identity
type EngineState struct {
	Version     int           `json:"version" bson:"version"`
	Identity    string        `json:"identity" bson:"identity"`
	Habits      []Habit       `json:"habits" bson:"habits"`
	Completions []Completion  `json:"completions" bson:"completions"`
	Ledger      []LedgerEntry `json:"ledger" bson:"ledger"`
	Quests      []Quest       `json:"quests" bson:"quests"`
	Plants      []BambooPlant `json:"plants" bson:"plants"`
	UpdatedAt   time.Time     `json:"updated_at" bson:"updated_at"`
}

// NewEngineState returns an empty state for the identity
func NewEngineState(identity string) EngineState {
	return EngineState{
		Version:     StateVersion,
		Identity:    identity,
		Habits:      []Habit{},
		Completions: []Completion{},
		Ledger:      []LedgerEntry{},
		Quests:      []Quest{},
		Plants:      []BambooPlant{},
	}
}

// Normalize replaces nil collections with empty ones and stamps the identity
func (s *EngineState) Normalize(identity string) {
	if s.Identity == "" {
		s.Identity = identity
	}
	if s.Version == 0 {
		s.Version = StateVersion
	}
	if s.Habits == nil {
		s.Habits = []Habit{}
	}
	if s.Completions == nil {
		s.Completions = []Completion{}
	}
	if s.Ledger == nil {
		s.Ledger = []LedgerEntry{}
	}
	if s.Quests == nil {
		s.Quests = []Quest{}
	}
	if s.Plants == nil {
		s.Plants = []BambooPlant{}
	}
}
