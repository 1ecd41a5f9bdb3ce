package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/matchday-system/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict")
	ErrTournamentFillConflict = errors.New("tournament fill status changed concurrently")
)

type ListTournamentsFilter struct {
	FillStatus *models.TournamentFillStatus
	Limit      int
	Offset     int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	UpdateFillStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentFillStatus) error
	ListDueForFill(ctx context.Context, currentTime time.Time) ([]*models.Tournament, error)
	Delete(ctx context.Context, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	executor := r.getExecutor(nil)
	query := `
		INSERT INTO tournaments (name, capacity, registration_deadline, fill_status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	if t.FillStatus == "" {
		t.FillStatus = models.FillStatusOpen
	}

	err := executor.QueryRowContext(ctx, query,
		t.Name, t.Capacity, t.RegistrationDeadline, t.FillStatus,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, name, capacity, registration_deadline, fill_status, created_at
		FROM tournaments
		WHERE id = $1`

	t := &models.Tournament{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Capacity, &t.RegistrationDeadline, &t.FillStatus, &t.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	executor := r.getExecutor(nil)
	query := `
		SELECT id, name, capacity, registration_deadline, fill_status, created_at
		FROM tournaments
		WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.FillStatus != nil {
		query += fmt.Sprintf(" AND fill_status = $%d", argID)
		args = append(args, *filter.FillStatus)
		argID++
	}

	query += " ORDER BY registration_deadline DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(
			&t.ID, &t.Name, &t.Capacity, &t.RegistrationDeadline, &t.FillStatus, &t.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tournaments, nil
}

// UpdateFillStatus moves a tournament between fill states with a guard
// on the expected current state. When another writer got there first
// the update matches zero rows and ErrTournamentFillConflict is
// returned, which lets the caller re-read and decide whether the race
// was benign.
func (r *postgresTournamentRepository) UpdateFillStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentFillStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET fill_status = $1 WHERE id = $2 AND fill_status = $3`
	result, err := executor.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentFillConflict)
}

func (r *postgresTournamentRepository) ListDueForFill(ctx context.Context, currentTime time.Time) ([]*models.Tournament, error) {
	executor := r.getExecutor(nil)
	query := `
		SELECT id, name, capacity, registration_deadline, fill_status, created_at
		FROM tournaments
		WHERE fill_status = $1 AND registration_deadline <= $2
		ORDER BY registration_deadline, id`

	rows, err := executor.QueryContext(ctx, query, models.FillStatusOpen, currentTime)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments due for fill: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(
			&t.ID, &t.Name, &t.Capacity, &t.RegistrationDeadline, &t.FillStatus, &t.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament due for fill: %w", scanErr)
		}
		tournaments = append(tournaments, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	executor := r.getExecutor(nil)
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23505" && pqErr.Constraint == "tournaments_name_key" {
			return ErrTournamentNameConflict
		}
	}
	return err
}
