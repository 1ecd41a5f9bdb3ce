package models

import "time"

// TournamentFillStatus представляет статусы заполнения турнира, соответствующие ENUM в БД.
type TournamentFillStatus string

const (
	FillStatusOpen       TournamentFillStatus = "open"
	FillStatusAutoFilled TournamentFillStatus = "auto_filled"
	FillStatusLocked     TournamentFillStatus = "locked"
)

func (s TournamentFillStatus) Valid() bool {
	switch s {
	case FillStatusOpen, FillStatusAutoFilled, FillStatusLocked:
		return true
	}
	return false
}

// Tournament is a bracket competition. Capacity is the bracket size the
// auto-fill tops the field up to; once the registration deadline passes an
// under-subscribed tournament is filled with placeholder entries and locked.
type Tournament struct {
	ID                   int                  `json:"id" db:"id"`
	Name                 string               `json:"name" db:"name"`
	Capacity             int                  `json:"capacity" db:"capacity"`
	RegistrationDeadline time.Time            `json:"registration_deadline" db:"registration_deadline"`
	FillStatus           TournamentFillStatus `json:"fill_status" db:"fill_status"`
	CreatedAt            time.Time            `json:"created_at" db:"created_at"`

	Entries []Entry `json:"entries,omitempty" db:"-"`
}
