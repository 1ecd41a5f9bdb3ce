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
	ErrEntryNotFound          = errors.New("tournament entry not found")
	ErrEntryAlreadyRegistered = errors.New("team already registered for this tournament")
	ErrEntryTournamentInvalid = errors.New("entry tournament conflict or invalid")
	ErrEntryTeamInvalid       = errors.New("entry team conflict or invalid")
)

type EntryRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entry *models.Entry) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Entry, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
}

type postgresEntryRepository struct {
	db *sql.DB
}

func NewPostgresEntryRepository(db *sql.DB) EntryRepository {
	return &postgresEntryRepository{db: db}
}

func (r *postgresEntryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEntryRepository) Create(ctx context.Context, exec SQLExecutor, entry *models.Entry) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_entries
			(tournament_id, team_id, placeholder_uid, display_name, is_placeholder)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		entry.TournamentID,
		entry.TeamID,
		entry.PlaceholderUID,
		entry.DisplayName,
		entry.IsPlaceholder,
	).Scan(&entry.ID, &entry.CreatedAt)

	return r.handleEntryError(err)
}

// ListByTournament returns entries in registration order. Bracket
// seeding and placeholder numbering both rely on this ordering.
func (r *postgresEntryRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Entry, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, team_id, placeholder_uid, display_name, is_placeholder, created_at
		FROM tournament_entries
		WHERE tournament_id = $1
		ORDER BY created_at, id`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.Entry, 0)
	for rows.Next() {
		var e models.Entry
		if scanErr := rows.Scan(
			&e.ID, &e.TournamentID, &e.TeamID, &e.PlaceholderUID, &e.DisplayName, &e.IsPlaceholder, &e.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, &e)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *postgresEntryRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT COUNT(*) FROM tournament_entries WHERE tournament_id = $1`

	var count int
	if err := executor.QueryRowContext(ctx, query, tournamentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tournament entries: %w", err)
	}
	return count, nil
}

func (r *postgresEntryRepository) handleEntryError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournament_entries_tournament_id_team_id_key" ||
				pqErr.Constraint == "tournament_entries_tournament_id_placeholder_uid_key" {
				return ErrEntryAlreadyRegistered
			}
		case "23503":
			switch pqErr.Constraint {
			case "tournament_entries_tournament_id_fkey":
				return ErrEntryTournamentInvalid
			case "tournament_entries_team_id_fkey":
				return ErrEntryTeamInvalid
			}
		}
	}
	return err
}
