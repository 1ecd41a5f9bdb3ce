package models

import "time"

// Entry is one bracket slot holder: either a real team (TeamID set) or a
// synthesized placeholder (PlaceholderUID set). Registration order is the
// seeding order.
type Entry struct {
	ID             int       `json:"id" db:"id"`
	TournamentID   int       `json:"tournament_id" db:"tournament_id"`
	TeamID         *int      `json:"team_id,omitempty" db:"team_id"`
	PlaceholderUID *string   `json:"placeholder_uid,omitempty" db:"placeholder_uid"`
	DisplayName    string    `json:"display_name" db:"display_name"`
	IsPlaceholder  bool      `json:"is_placeholder" db:"is_placeholder"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}
