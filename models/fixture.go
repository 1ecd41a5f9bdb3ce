package models

import "time"

// CompetitionType разделяет расписания лиги и турниров в таблице fixtures.
type CompetitionType string

const (
	CompetitionLeague     CompetitionType = "LEAGUE"
	CompetitionTournament CompetitionType = "TOURNAMENT"
)

func (c CompetitionType) Valid() bool {
	switch c {
	case CompetitionLeague, CompetitionTournament:
		return true
	}
	return false
}

// Fixture is one scheduled game. Within a competition type a team appears at
// most once per day; home and away are distinct members of one subdivision.
type Fixture struct {
	ID              int             `json:"id" db:"id"`
	CompetitionType CompetitionType `json:"competition_type" db:"competition_type"`
	HomeTeamID      int             `json:"home_team_id" db:"home_team_id"`
	AwayTeamID      int             `json:"away_team_id" db:"away_team_id"`
	Day             int             `json:"day" db:"day"`
	ScheduledAt     time.Time       `json:"scheduled_at" db:"scheduled_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`

	HomeTeam *Team `json:"home_team,omitempty" db:"-"`
	AwayTeam *Team `json:"away_team,omitempty" db:"-"`
}
