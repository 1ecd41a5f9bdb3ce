package models

import "time"

// BracketMatch is a persisted slot of a seeded tournament bracket.
// Entry1ID/Entry2ID are nil while the slot waits for a winner of an earlier
// match; NextMatchID and WinnerToSlot describe where the winner advances.
type BracketMatch struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	BracketUID   string    `json:"bracket_uid" db:"bracket_uid"`
	Round        int       `json:"round" db:"round"`
	OrderInRound int       `json:"order_in_round" db:"order_in_round"`
	Entry1ID     *int      `json:"entry1_id,omitempty" db:"entry1_id"`
	Entry2ID     *int      `json:"entry2_id,omitempty" db:"entry2_id"`
	NextMatchID  *int      `json:"next_match_id,omitempty" db:"next_match_id"`
	WinnerToSlot *int      `json:"winner_to_slot,omitempty" db:"winner_to_slot"`
	IsBye        bool      `json:"is_bye" db:"is_bye"`
	ByeEntryID   *int      `json:"bye_entry_id,omitempty" db:"bye_entry_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
