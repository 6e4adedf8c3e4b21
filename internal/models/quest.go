package models

import "github.com/julianstephens/grove/internal/constants"

// Quest is a daily challenge derived from habit activity
type Quest struct {
	ID          string              `json:"id"`
	Type        constants.QuestType `json:"type"`
	Date        string              `json:"date"` // YYYY-MM-DD format
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Target      int                 `json:"target"`
	Progress    int                 `json:"progress"`
	Points      int                 `json:"points"`
	Completed   bool                `json:"completed"`
}
