package achievement

import (
	"time"
)

type CriteriaType string

const (
	CriteriaEventsAttended CriteriaType = "events_attended"
)

type Achievement struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	CriteriaType  CriteriaType `json:"criteriaType"`
	CriteriaValue int          `json:"criteriaValue"`
}

type UserAchievement struct {
	UserID        string    `json:"userId"`
	AchievementID string    `json:"achievementId"`
	UnlockedAt    time.Time `json:"unlockedAt"`
}

// Catalog is the fixed set of attendance milestones.
var Catalog = []Achievement{
	{ID: "first-run", Name: "First Steps", Description: "Attended your first club run", CriteriaType: CriteriaEventsAttended, CriteriaValue: 1},
	{ID: "five-runs", Name: "Regular", Description: "Attended 5 club runs", CriteriaType: CriteriaEventsAttended, CriteriaValue: 5},
	{ID: "ten-runs", Name: "Crew Core", Description: "Attended 10 club runs", CriteriaType: CriteriaEventsAttended, CriteriaValue: 10},
	{ID: "twenty-five-runs", Name: "Road Veteran", Description: "Attended 25 club runs", CriteriaType: CriteriaEventsAttended, CriteriaValue: 25},
}

// Unlocked returns the catalog entries reached at exactly eventsAttended.
func Unlocked(eventsAttended int) []Achievement {
	var out []Achievement
	for _, a := range Catalog {
		if a.CriteriaType == CriteriaEventsAttended && a.CriteriaValue == eventsAttended {
			out = append(out, a)
		}
	}
	return out
}
