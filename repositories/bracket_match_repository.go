package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/matchday-system/models"
	"github.com/lib/pq"
)

var (
	ErrBracketMatchNotFound     = errors.New("bracket match not found")
	ErrBracketMatchEntryInvalid = errors.New("bracket match entry conflict or invalid")
	ErrBracketMatchUIDConflict  = errors.New("bracket match uid already exists for this tournament")
)

type BracketMatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.BracketMatch) error
	UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID *int, winnerToSlot *int) error
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.BracketMatch, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
}

type postgresBracketMatchRepository struct {
	db *sql.DB
}

func NewPostgresBracketMatchRepository(db *sql.DB) BracketMatchRepository {
	return &postgresBracketMatchRepository{db: db}
}

func (r *postgresBracketMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresBracketMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.BracketMatch) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO bracket_matches
			(tournament_id, bracket_uid, round, order_in_round,
			 entry1_id, entry2_id, next_match_id, winner_to_slot, is_bye, bye_entry_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		match.TournamentID,
		match.BracketUID,
		match.Round,
		match.OrderInRound,
		match.Entry1ID,
		match.Entry2ID,
		match.NextMatchID,
		match.WinnerToSlot,
		match.IsBye,
		match.ByeEntryID,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleBracketMatchError(err)
}

func (r *postgresBracketMatchRepository) UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID *int, winnerToSlot *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE bracket_matches SET next_match_id = $1, winner_to_slot = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, nextMatchID, winnerToSlot, matchID)
	if err != nil {
		return r.handleBracketMatchError(err)
	}
	return checkAffectedRows(result, ErrBracketMatchNotFound)
}

func (r *postgresBracketMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.BracketMatch, error) {
	query := `
		SELECT id, tournament_id, bracket_uid, round, order_in_round,
		       entry1_id, entry2_id, next_match_id, winner_to_slot, is_bye, bye_entry_id, created_at
		FROM bracket_matches
		WHERE tournament_id = $1
		ORDER BY round, order_in_round`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.BracketMatch, 0)
	for rows.Next() {
		var m models.BracketMatch
		if scanErr := rows.Scan(
			&m.ID, &m.TournamentID, &m.BracketUID, &m.Round, &m.OrderInRound,
			&m.Entry1ID, &m.Entry2ID, &m.NextMatchID, &m.WinnerToSlot, &m.IsBye, &m.ByeEntryID, &m.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, &m)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return matches, nil
}

func (r *postgresBracketMatchRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT COUNT(*) FROM bracket_matches WHERE tournament_id = $1`

	var count int
	if err := executor.QueryRowContext(ctx, query, tournamentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bracket matches: %w", err)
	}
	return count, nil
}

func (r *postgresBracketMatchRepository) handleBracketMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "bracket_matches_tournament_id_bracket_uid_key" {
				return ErrBracketMatchUIDConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "bracket_matches_entry1_id_fkey", "bracket_matches_entry2_id_fkey", "bracket_matches_bye_entry_id_fkey":
				return ErrBracketMatchEntryInvalid
			}
		}
	}
	return err
}
