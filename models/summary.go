package models

import "time"

// ScheduleDayCount is one row of the per-day fixture distribution.
type ScheduleDayCount struct {
	Day      int       `json:"day"`
	Date     time.Time `json:"date"`
	Fixtures int       `json:"fixtures"`
}

// ScheduleSummary is the observable result of a regeneration: how many
// fixtures were replaced and how they distribute over the season days.
type ScheduleSummary struct {
	Division        int                `json:"division"`
	Subdivision     string             `json:"subdivision"`
	CompetitionType CompetitionType    `json:"competition_type"`
	Shortened       bool               `json:"shortened"`
	FirstDay        int                `json:"first_day"`
	LastDay         int                `json:"last_day"`
	DeletedFixtures int64              `json:"deleted_fixtures"`
	TotalFixtures   int                `json:"total_fixtures"`
	Days            []ScheduleDayCount `json:"days"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// AutoFillReport is the observable result of a fill attempt.
type AutoFillReport struct {
	TournamentID      int                  `json:"tournament_id"`
	Status            TournamentFillStatus `json:"status"`
	EntryCount        int                  `json:"entry_count"`
	PlaceholdersAdded int                  `json:"placeholders_added"`
	BracketMatches    int                  `json:"bracket_matches"`
	CompletedAt       time.Time            `json:"completed_at"`
}
